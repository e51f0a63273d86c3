package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/logger"
	"github.com/swarmdock/backend/svc/plan"
)

// PlanReader returns the active plan of an organization, or nil.
type PlanReader interface {
	GetActivePlan(ctx context.Context, orgID uuid.UUID) (*plan.Plan, error)
}

// Engine meters uploads and downloads against the active plan's quotas.
type Engine struct {
	store  Store
	plans  PlanReader
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(store Store, plans PlanReader, opts ...Option) *Engine {
	if store == nil || plans == nil {
		panic("usage: Store and PlanReader are required")
	}
	e := &Engine{store: store, plans: plans, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logger.Component("usage"))
	return e
}

func (e *Engine) key(orgID uuid.UUID, t MetricType) Key {
	return Key{OrganizationID: orgID, Period: PeriodOf(t, e.now()), Type: t}
}

// GetOrInit returns the current-period metric, creating it from the active
// plan's quota (zero without a plan) when missing.
func (e *Engine) GetOrInit(ctx context.Context, orgID uuid.UUID, t MetricType) (*Metric, error) {
	key := e.key(orgID, t)
	m, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}

	var available int64
	p, err := e.plans.GetActivePlan(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active plan: %w", err)
	}
	if p != nil {
		available = quotaOf(p.Quotas, t)
	}

	e.logger.InfoContext(ctx, "initializing usage metric",
		logger.OrganizationID(orgID), slog.String("type", string(t)),
		slog.String("period", key.Period), slog.Int64("available", available))
	return e.store.GetOrCreate(ctx, key, available)
}

// Validate checks that size more bytes fit into the quota without
// recording them. Upload sizes are chunk aligned.
func (e *Engine) Validate(ctx context.Context, orgID uuid.UUID, t MetricType, size int64) (*Metric, error) {
	size, err := e.normalize(t, size)
	if err != nil {
		return nil, err
	}
	m, err := e.GetOrInit(ctx, orgID, t)
	if err != nil {
		return nil, err
	}
	if !m.Fits(size) {
		return nil, fmt.Errorf("%w: %s needs %d bytes, %d remaining", ErrQuotaExceeded, t, size, m.Remaining())
	}
	return m, nil
}

// Increment records value bytes on an existing metric.
func (e *Engine) Increment(ctx context.Context, m *Metric, value int64) (*Metric, error) {
	if m == nil {
		return nil, ErrMetricNotFound
	}
	value, err := e.normalize(m.Type, value)
	if err != nil {
		return nil, err
	}
	return e.store.Increment(ctx, m.ID, value)
}

// Consume validates and records size bytes in one conditional write, so
// concurrent requests cannot overrun the quota.
func (e *Engine) Consume(ctx context.Context, orgID uuid.UUID, t MetricType, size int64) (*Metric, error) {
	size, err := e.normalize(t, size)
	if err != nil {
		return nil, err
	}
	m, err := e.GetOrInit(ctx, orgID, t)
	if err != nil {
		return nil, err
	}
	return e.store.Consume(ctx, m.ID, size)
}

// UpgradeCurrentMetrics sets the available bytes of the current metrics and
// keeps what was already used.
func (e *Engine) UpgradeCurrentMetrics(ctx context.Context, orgID uuid.UUID, uploadLimit, downloadLimit int64) error {
	if _, err := e.store.Upsert(ctx, e.key(orgID, MetricUploadedBytes), uploadLimit, nil); err != nil {
		return fmt.Errorf("failed to upgrade upload metric: %w", err)
	}
	if _, err := e.store.Upsert(ctx, e.key(orgID, MetricDownloadedBytes), downloadLimit, nil); err != nil {
		return fmt.Errorf("failed to upgrade download metric: %w", err)
	}
	e.logger.InfoContext(ctx, "usage metrics upgraded", logger.OrganizationID(orgID),
		slog.Int64("upload_limit", uploadLimit), slog.Int64("download_limit", downloadLimit))
	return nil
}

// ResetCurrentMetrics zeroes availability and usage of the current metrics.
func (e *Engine) ResetCurrentMetrics(ctx context.Context, orgID uuid.UUID) error {
	var zero int64
	for _, t := range []MetricType{MetricUploadedBytes, MetricDownloadedBytes} {
		if _, err := e.store.Upsert(ctx, e.key(orgID, t), 0, &zero); err != nil {
			return fmt.Errorf("failed to reset %s metric: %w", t, err)
		}
	}
	e.logger.InfoContext(ctx, "usage metrics reset", logger.OrganizationID(orgID))
	return nil
}

// ListCurrent returns the lifetime upload metric and this month's download
// metric, whichever exist.
func (e *Engine) ListCurrent(ctx context.Context, orgID uuid.UUID) ([]Metric, error) {
	return e.store.List(ctx, orgID, LifetimePeriod, PeriodOf(MetricDownloadedBytes, e.now()))
}

func (e *Engine) normalize(t MetricType, size int64) (int64, error) {
	if size < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if t == MetricUploadedBytes {
		return ChunkAlign(size), nil
	}
	return size, nil
}

func quotaOf(q plan.Quotas, t MetricType) int64 {
	if t == MetricUploadedBytes {
		return q.UploadSizeLimit
	}
	return q.DownloadSizeLimit
}
