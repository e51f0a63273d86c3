package plan

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists plans. Status changes are conditional writes: they apply
// only when the stored status still equals the expected one.
type Store interface {
	Create(ctx context.Context, p *Plan) error
	// Get returns ErrPlanNotFound for an unknown id.
	Get(ctx context.Context, id uuid.UUID) (*Plan, error)
	// GetActive returns (nil, nil) when the organization has no active plan.
	GetActive(ctx context.Context, orgID uuid.UUID) (*Plan, error)

	// Activate moves a PENDING_PAYMENT plan to ACTIVE in one write that
	// also requires no other ACTIVE plan for the organization. It returns
	// ErrConflict when another plan is active and ErrStaleState when the
	// plan is no longer pending.
	Activate(ctx context.Context, id uuid.UUID, paidUntil, now time.Time) (*Plan, error)

	// Transition sets status to `to` if it is currently `from`, otherwise
	// it returns ErrStaleState.
	Transition(ctx context.Context, id uuid.UUID, from, to Status, reason string, now time.Time) (*Plan, error)

	SetCancelAt(ctx context.Context, id uuid.UUID, cancelAt, now time.Time) (*Plan, error)
	// Renew sets PaidUntil and records ref as the latest renewal. When ref
	// is already recorded the stored plan is returned unchanged.
	Renew(ctx context.Context, id uuid.UUID, paidUntil time.Time, ref string, now time.Time) (*Plan, error)

	ListActive(ctx context.Context) ([]Plan, error)
	// ListMaturedCancellations returns ACTIVE plans with CancelAt <= now.
	ListMaturedCancellations(ctx context.Context, now time.Time) ([]Plan, error)
}
