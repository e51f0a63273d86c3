package billing

import (
	"context"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/svc/organization"
	"github.com/swarmdock/backend/svc/plan"
	"github.com/swarmdock/backend/svc/pricing"
)

// Plans is the plan lifecycle as seen by billing. *plan.Service satisfies it.
type Plans interface {
	GetActivePlan(ctx context.Context, orgID uuid.UUID) (*plan.Plan, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*plan.Plan, error)
	CreatePendingPlan(ctx context.Context, orgID uuid.UUID, terms plan.Terms) (*plan.Plan, error)
	ActivatePlan(ctx context.Context, orgID, planID uuid.UUID) (*plan.Plan, error)
	CancelPlan(ctx context.Context, orgID, planID uuid.UUID, reason string) (*plan.Plan, error)
	ScheduleCancellationOfActivePlan(ctx context.Context, orgID uuid.UUID) (*plan.Plan, error)
	ExtendPaidUntil(ctx context.Context, planID uuid.UUID, ref string) (*plan.Plan, error)
}

// Usage is satisfied by *usage.Engine.
type Usage interface {
	UpgradeCurrentMetrics(ctx context.Context, orgID uuid.UUID, uploadLimit, downloadLimit int64) error
}

// Capacity is satisfied by *capacity.Provisioner.
type Capacity interface {
	PurchaseCapacity(ctx context.Context, org *organization.Organization, p *plan.Plan) error
	TopUpAndDilute(ctx context.Context, org *organization.Organization, p *plan.Plan) error
}

type Organizations interface {
	Get(ctx context.Context, id uuid.UUID) (*organization.Organization, error)
}

// Quoter prices a storage/bandwidth pair. *pricing.PriceList satisfies it.
type Quoter interface {
	Quote(storageGB, bandwidthGB int) (pricing.Quote, error)
}

// Metrics is satisfied by *metrics.Metrics.
type Metrics interface {
	PaymentEvent(provider, eventType, result string)
}

type noopMetrics struct{}

func (noopMetrics) PaymentEvent(string, string, string) {}
