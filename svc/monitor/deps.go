package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/bzz"
	"github.com/swarmdock/backend/pkg/swarm"
	"github.com/swarmdock/backend/svc/organization"
	"github.com/swarmdock/backend/svc/plan"
)

type Plans interface {
	ListActivePlans(ctx context.Context) ([]plan.Plan, error)
	ListMaturedCancellations(ctx context.Context, now time.Time) ([]plan.Plan, error)
	CancelPlan(ctx context.Context, orgID, planID uuid.UUID, reason string) (*plan.Plan, error)
}

type Organizations interface {
	Get(ctx context.Context, id uuid.UUID) (*organization.Organization, error)
	ListWithBatch(ctx context.Context) ([]organization.Organization, error)
}

// Node is the read side of the Bee API. *swarm.Client satisfies it.
type Node interface {
	ListBatches(ctx context.Context) ([]swarm.Batch, error)
	WalletBalance(ctx context.Context) (bzz.Amount, error)
}

// Releaser is satisfied by *capacity.Provisioner.
type Releaser interface {
	Release(ctx context.Context, org *organization.Organization) error
}

// UsageResetter is satisfied by *usage.Engine.
type UsageResetter interface {
	ResetCurrentMetrics(ctx context.Context, orgID uuid.UUID) error
}

// Gauges is satisfied by *metrics.Metrics.
type Gauges interface {
	SetWalletBalance(bzz float64)
	SetBatchTTL(batchID string, ttl time.Duration)
	ForgetBatch(batchID string)
}

type noopGauges struct{}

func (noopGauges) SetWalletBalance(float64)          {}
func (noopGauges) SetBatchTTL(string, time.Duration) {}
func (noopGauges) ForgetBatch(string)                {}
