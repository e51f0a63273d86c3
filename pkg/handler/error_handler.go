package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/swarmdock/backend/pkg/logger"
	"github.com/swarmdock/backend/pkg/requestid"
	"github.com/swarmdock/backend/pkg/validator"
)

// ErrorMapping binds a domain sentinel to the HTTP answer it produces.
type ErrorMapping struct {
	Target error
	Status HTTPError
}

// ErrorInfo contains classified error information
type ErrorInfo struct {
	StatusCode int
	Key        string
	Message    string
	Details    map[string][]string
	LogLevel   slog.Level
}

const genericMessage = "An error occurred processing your request"

func isClientError(statusCode int) bool {
	return statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError
}

// determineLogLevel maps HTTP status codes to appropriate log levels
func determineLogLevel(statusCode int) slog.Level {
	if isClientError(statusCode) {
		return slog.LevelWarn
	}
	return slog.LevelError
}

// ClassifyError resolves err against the mappings first, then HTTPError.
// Validation failures of either kind always win. Server errors never leak
// their message.
func ClassifyError(err error, mappings ...ErrorMapping) ErrorInfo {
	info := ErrorInfo{
		StatusCode: ErrInternalServerError.Code,
		Key:        ErrInternalServerError.Key,
	}

	matched := false
	for _, m := range mappings {
		if errors.Is(err, m.Target) {
			info.StatusCode, info.Key = m.Status.Code, m.Status.Key
			matched = true
			break
		}
	}

	var httpErr HTTPError
	if !matched && errors.As(err, &httpErr) {
		info.StatusCode, info.Key = httpErr.Code, httpErr.Key
	}

	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		info.StatusCode = http.StatusBadRequest
		info.Key = "validation_error"
		info.Details = map[string][]string(validationErr)
	}
	if ruleErrs := validator.ExtractValidationErrors(err); ruleErrs != nil {
		info.StatusCode = http.StatusBadRequest
		info.Key = "validation_error"
		info.Details = ruleErrs.ByField()
	}

	switch {
	case isClientError(info.StatusCode):
		info.Message = strings.ReplaceAll(err.Error(), "\n", "; ")
	case info.StatusCode == http.StatusInternalServerError:
		info.Message = genericMessage
	default:
		info.Message = http.StatusText(info.StatusCode)
	}
	info.LogLevel = determineLogLevel(info.StatusCode)

	return info
}

// NewErrorHandler creates the JSON error handler shared by all routes.
// Configure this once in main.go and pass it to the router.
func NewErrorHandler(log *slog.Logger, mappings ...ErrorMapping) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		info := ClassifyError(err, mappings...)

		log.LogAttrs(r.Context(), info.LogLevel, "request error",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", info.StatusCode),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		w := ctx.ResponseWriter()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(info.StatusCode)
		if encErr := json.NewEncoder(w).Encode(ErrorBody{
			Error:   info.Key,
			Message: info.Message,
			Details: info.Details,
		}); encErr != nil {
			log.ErrorContext(r.Context(), "failed to write error body", logger.Error(encErr))
		}
	}
}
