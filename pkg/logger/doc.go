// Package logger is a small, context-aware layer over log/slog used by every
// service in the module. It exposes one factory, New, configured through
// functional options, plus attribute helpers that keep field names uniform
// across billing, provisioning and monitoring log lines.
//
// The options let callers:
//
//   - pick an output format (text for development, JSON elsewhere)
//   - set the minimum level from a slog.Level or its textual name
//   - attach static attributes such as the service name and environment
//   - register ContextExtractor callbacks that copy values stored in a
//     context.Context (request id, client ip) onto every record
//
// # Architecture
//
// New selects slog.NewTextHandler or slog.NewJSONHandler based on the
// configured Format, applies the static attributes and wraps the result in a
// LogHandlerDecorator. The decorator runs the registered extractors on each
// Handle call before delegating to the underlying handler, so attributes
// derived from the context appear even when the caller only passes ctx.
//
// Attribute helpers live in attr.go. They return slog.Attr values with fixed
// keys (organization_id, plan_id, batch_id, provider, event_type, ...) so
// dashboards and alerts can rely on a single spelling.
//
// # Usage
//
//	import "github.com/swarmdock/backend/pkg/logger"
//
//	func main() {
//	    log := logger.New(
//	        logger.WithEnvironment("production", "swarmdock-backend"),
//	        logger.WithLevelName(os.Getenv("LOG_LEVEL")),
//	        logger.WithContextExtractors(requestid.LoggerExtractor),
//	    )
//	    logger.SetAsDefault(log)
//
//	    log.InfoContext(ctx, "plan activated",
//	        logger.OrganizationID(org.ID),
//	        logger.PlanID(p.ID),
//	        logger.Provider("stripe"),
//	    )
//	}
//
// # Configuration
//
//   - WithEnvironment: debug text output for development, info JSON for
//     staging and production; also records the service and env attributes.
//   - WithFormat: explicit FormatText or FormatJSON; unknown formats panic.
//   - WithLevel / WithLevelName: minimum level; unknown names are ignored.
//   - WithOutput: destination writer, stdout by default.
//   - WithAttr: static attributes added to every record.
//   - WithContextExtractors / WithContextValue: attributes read from ctx.
//
// # Error Handling
//
// Error returns an empty attribute for a nil error, which slog drops, so
// call sites can log unconditionally:
//
//	log.Info("sweep finished", logger.Error(err))
//
// # Testing
//
// Discard returns a logger that drops every record. Tests that assert on log
// output pass WithOutput with a bytes.Buffer and WithFormat(FormatJSON).
package logger
