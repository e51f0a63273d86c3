package api

import (
	"net/http"

	"github.com/swarmdock/backend/pkg/handler"
	"github.com/swarmdock/backend/pkg/payment"
	"github.com/swarmdock/backend/pkg/ratelimiter"
	"github.com/swarmdock/backend/svc/billing"
	"github.com/swarmdock/backend/svc/capacity"
	"github.com/swarmdock/backend/svc/organization"
	"github.com/swarmdock/backend/svc/plan"
	"github.com/swarmdock/backend/svc/pricing"
	"github.com/swarmdock/backend/svc/usage"
)

// errorMappings is checked in order; the first match decides the answer.
var errorMappings = []handler.ErrorMapping{
	{Target: payment.ErrUnknownProvider, Status: handler.NewHTTPError(http.StatusNotFound, "unknown_provider")},
	{Target: payment.ErrInvalidSignature, Status: handler.NewHTTPError(http.StatusBadRequest, "invalid_signature")},
	{Target: payment.ErrInvalidPayload, Status: handler.NewHTTPError(http.StatusBadRequest, "invalid_payload")},

	{Target: pricing.ErrUnknownTier, Status: handler.NewHTTPError(http.StatusBadRequest, "unknown_tier")},
	{Target: pricing.ErrInvalidRequest, Status: handler.NewHTTPError(http.StatusBadRequest, "invalid_request")},
	{Target: pricing.ErrCapacityExceeded, Status: handler.NewHTTPError(http.StatusBadRequest, "capacity_exceeded")},
	{Target: billing.ErrInvalidRequest, Status: handler.NewHTTPError(http.StatusBadRequest, "invalid_request")},

	{Target: plan.ErrConflict, Status: handler.NewHTTPError(http.StatusConflict, "active_plan_exists")},
	{Target: plan.ErrStaleState, Status: handler.ErrConflict},
	{Target: plan.ErrNoActivePlan, Status: handler.NewHTTPError(http.StatusNotFound, "no_active_plan")},
	{Target: plan.ErrPlanNotFound, Status: handler.ErrNotFound},
	{Target: billing.ErrPaymentNotFound, Status: handler.ErrNotFound},
	{Target: organization.ErrNotFound, Status: handler.ErrNotFound},

	{Target: usage.ErrQuotaExceeded, Status: handler.NewHTTPError(http.StatusForbidden, "quota_exceeded")},
	{Target: capacity.ErrInsufficientFunds, Status: handler.NewHTTPError(http.StatusServiceUnavailable, "insufficient_funds")},
	{Target: payment.ErrNotConfigured, Status: handler.ErrServiceUnavailable},
	{Target: ratelimiter.ErrLimited, Status: handler.NewHTTPError(http.StatusTooManyRequests, "too_many_requests")},
}
