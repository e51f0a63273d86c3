package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/binder"
	"github.com/swarmdock/backend/pkg/clientip"
	"github.com/swarmdock/backend/pkg/handler"
	"github.com/swarmdock/backend/pkg/httpserver"
	"github.com/swarmdock/backend/pkg/logger"
	"github.com/swarmdock/backend/pkg/payment"
	"github.com/swarmdock/backend/pkg/ratelimiter"
	"github.com/swarmdock/backend/pkg/requestid"
	"github.com/swarmdock/backend/svc/billing"
	"github.com/swarmdock/backend/svc/plan"
	"github.com/swarmdock/backend/svc/pricing"
	"github.com/swarmdock/backend/svc/usage"
)

type Billing interface {
	InitSubscription(ctx context.Context, sub billing.Subscriber, storageGB, bandwidthGB int) (string, error)
	CancelSubscription(ctx context.Context, orgID uuid.UUID) (*plan.Plan, error)
	HandleProviderNotification(ctx context.Context, provider string, body []byte, signature string) error
}

type Plans interface {
	GetActivePlan(ctx context.Context, orgID uuid.UUID) (*plan.Plan, error)
}

type Usage interface {
	ListCurrent(ctx context.Context, orgID uuid.UUID) ([]usage.Metric, error)
}

type Providers interface {
	Get(name string) (payment.Provider, error)
}

// Deps are the services behind the routes. All are required.
type Deps struct {
	Billing   Billing
	Plans     Plans
	Usage     Usage
	Providers Providers
	Prices    *pricing.PriceList
}

type Server struct {
	Deps

	logger       *slog.Logger
	checks       []httpserver.Check
	checkTimeout time.Duration
	metrics      http.Handler
	checkout     *ratelimiter.Bucket
	errorHandler handler.ErrorHandler[handler.Context]
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHealthChecks registers readiness checks served on /health.
func WithHealthChecks(timeout time.Duration, checks ...httpserver.Check) Option {
	return func(s *Server) {
		s.checkTimeout = timeout
		s.checks = append(s.checks, checks...)
	}
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithCheckoutLimit throttles /subscriptions/init per organization.
func WithCheckoutLimit(b *ratelimiter.Bucket) Option {
	return func(s *Server) {
		s.checkout = b
	}
}

// New panics when a dependency is missing.
func New(deps Deps, opts ...Option) *Server {
	if deps.Billing == nil || deps.Plans == nil || deps.Usage == nil || deps.Providers == nil || deps.Prices == nil {
		panic("api: all dependencies are required")
	}
	s := &Server{
		Deps:         deps,
		logger:       slog.Default(),
		checkTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("api"))
	s.errorHandler = handler.NewErrorHandler(s.logger, errorMappings...)
	return s
}

// Handler builds the router with its middleware stack. Tracing is applied by
// httpserver around the whole handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		clientip.Middleware,
		middleware.Recoverer,
	)

	r.Get("/health", httpserver.HealthHandler(s.logger, s.checkTimeout, s.checks...))
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Post("/payment/{provider}-notification", wrap[notificationRequest](s, s.notification, bindNotification(s.Providers)))
	r.Get("/plans/config", wrap[struct{}](s, s.priceList))

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		var throttle []func(http.Handler) http.Handler
		if s.checkout != nil {
			throttle = append(throttle, ratelimiter.Middleware(s.checkout, organizationKey, s.fail))
		}
		r.With(throttle...).Post("/subscriptions/init", wrap[InitRequest](s, s.initSubscription, binder.JSON()))
		r.Post("/subscriptions/cancel", wrap[struct{}](s, s.cancelSubscription))
		r.Get("/plans/active", wrap[struct{}](s, s.activePlan))
		r.Get("/usage-metrics", wrap[struct{}](s, s.usageMetrics))
	})

	return r
}

// fail reports err from plain middleware through the JSON error handler.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.errorHandler(handler.NewContext(w, r), err)
}

// wrap applies the shared error handler and binders to a route handler.
func wrap[R any](s *Server, h handler.HandlerFunc[handler.Context, R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](s.errorHandler),
	)
}
