package usage

import (
	"context"

	"github.com/google/uuid"
)

// Key identifies a metric.
type Key struct {
	OrganizationID uuid.UUID
	Period         string
	Type           MetricType
}

// Store persists metrics, unique per Key.
type Store interface {
	// Get returns (nil, nil) when the metric does not exist.
	Get(ctx context.Context, key Key) (*Metric, error)
	// GetOrCreate inserts a metric with the given availability and zero
	// usage unless one exists, and returns the stored row either way.
	GetOrCreate(ctx context.Context, key Key, available int64) (*Metric, error)
	// Increment adds value to Used of metric id.
	Increment(ctx context.Context, id uuid.UUID, value int64) (*Metric, error)
	// Consume adds size to Used only if the result stays within Available,
	// in one conditional write. Otherwise it returns ErrQuotaExceeded.
	Consume(ctx context.Context, id uuid.UUID, size int64) (*Metric, error)
	// Upsert sets Available and, when used is not nil, Used.
	Upsert(ctx context.Context, key Key, available int64, used *int64) (*Metric, error)
	List(ctx context.Context, orgID uuid.UUID, periods ...string) ([]Metric, error)
}
