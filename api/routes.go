package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/handler"
	"github.com/swarmdock/backend/pkg/logger"
	"github.com/swarmdock/backend/pkg/payment"
	"github.com/swarmdock/backend/pkg/validator"
	"github.com/swarmdock/backend/svc/billing"
	"github.com/swarmdock/backend/svc/plan"
	"github.com/swarmdock/backend/svc/usage"
)

// FreePlanType marks the placeholder answered when no plan is active.
const FreePlanType = "FREE_PLAN"

const maxNotificationSize = 1 << 20

type InitRequest struct {
	Storage   int `json:"storage"`
	Bandwidth int `json:"bandwidth"`
}

type InitResponse struct {
	URL string `json:"url"`
}

type CancelResponse struct {
	CancelAt *time.Time `json:"cancelAt"`
}

// FreePlan is the zero-quota answer of /plans/active.
type FreePlan struct {
	Type           string      `json:"type"`
	OrganizationID uuid.UUID   `json:"organizationId"`
	Amount         int64       `json:"amount"`
	Currency       string      `json:"currency"`
	Frequency      string      `json:"frequency"`
	Quotas         plan.Quotas `json:"quotas"`
}

type notificationRequest struct {
	Provider  string
	Body      []byte
	Signature string
}

// bindNotification keeps the body raw; signatures are computed over bytes.
func bindNotification(providers Providers) handler.Bind {
	return func(r *http.Request, v any) error {
		req, ok := v.(*notificationRequest)
		if !ok {
			return fmt.Errorf("unexpected request type %T", v)
		}
		provider, err := providers.Get(chi.URLParam(r, "provider"))
		if err != nil {
			return err
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationSize+1))
		if err != nil {
			return fmt.Errorf("%w: %v", payment.ErrInvalidPayload, err)
		}
		if len(body) > maxNotificationSize {
			return fmt.Errorf("%w: body too large", payment.ErrInvalidPayload)
		}
		req.Provider = provider.Name()
		req.Body = body
		req.Signature = r.Header.Get(provider.SignatureHeader())
		return nil
	}
}

func (s *Server) notification(ctx handler.Context, req notificationRequest) handler.Response {
	if err := s.Billing.HandleProviderNotification(ctx, req.Provider, req.Body, req.Signature); err != nil {
		return handler.Fail(err)
	}
	s.logger.DebugContext(ctx, "payment notification accepted",
		logger.Provider(req.Provider),
		logger.Component("webhook"),
	)
	return handler.JSON(map[string]bool{"received": true})
}

func (s *Server) initSubscription(ctx handler.Context, req InitRequest) handler.Response {
	if err := validator.Apply(
		validator.MinNum("storage", req.Storage, 1),
		validator.MinNum("bandwidth", req.Bandwidth, 1),
	); err != nil {
		return handler.Fail(err)
	}

	id := identityFrom(ctx)
	url, err := s.Billing.InitSubscription(ctx, billing.Subscriber{
		OrganizationID: id.OrganizationID,
		Email:          id.Email,
	}, req.Storage, req.Bandwidth)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(InitResponse{URL: url})
}

func (s *Server) cancelSubscription(ctx handler.Context, _ struct{}) handler.Response {
	pl, err := s.Billing.CancelSubscription(ctx, identityFrom(ctx).OrganizationID)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(CancelResponse{CancelAt: pl.CancelAt})
}

func (s *Server) activePlan(ctx handler.Context, _ struct{}) handler.Response {
	orgID := identityFrom(ctx).OrganizationID
	pl, err := s.Plans.GetActivePlan(ctx, orgID)
	if err != nil {
		return handler.Fail(err)
	}
	if pl == nil {
		return handler.JSON(FreePlan{
			Type:           FreePlanType,
			OrganizationID: orgID,
			Currency:       s.Prices.Currency,
			Frequency:      s.Prices.Frequency,
		})
	}
	return handler.JSON(pl)
}

func (s *Server) priceList(_ handler.Context, _ struct{}) handler.Response {
	return handler.JSON(s.Prices)
}

func (s *Server) usageMetrics(ctx handler.Context, _ struct{}) handler.Response {
	metrics, err := s.Usage.ListCurrent(ctx, identityFrom(ctx).OrganizationID)
	if err != nil {
		return handler.Fail(err)
	}
	if metrics == nil {
		metrics = []usage.Metric{}
	}
	return handler.JSON(metrics)
}
