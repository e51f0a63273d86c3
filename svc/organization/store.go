package organization

import (
	"context"

	"github.com/google/uuid"
)

// Store persists organizations.
type Store interface {
	// Create inserts org; ID and timestamps are set by the caller.
	Create(ctx context.Context, org *Organization) error
	// Get returns ErrNotFound when no organization has id.
	Get(ctx context.Context, id uuid.UUID) (*Organization, error)
	// UpdateBatch applies upd and returns the updated organization.
	UpdateBatch(ctx context.Context, id uuid.UUID, upd BatchUpdate) (*Organization, error)
	// ListWithBatch returns organizations that hold a batch handle.
	ListWithBatch(ctx context.Context) ([]Organization, error)
}
