package pgstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/pg"
	"github.com/swarmdock/backend/svc/usage"
)

type Usage struct{ db DB }

var _ usage.Store = (*Usage)(nil)

const metricColumns = `id, organization_id, period, type, available, used`

func (s *Usage) Get(ctx context.Context, key usage.Key) (*usage.Metric, error) {
	m, err := scanMetric(s.db.QueryRow(ctx, `
		SELECT `+metricColumns+` FROM usage_metrics
		WHERE organization_id = $1 AND period = $2 AND type = $3`,
		key.OrganizationID, key.Period, string(key.Type)))
	if pg.IsNotFoundError(err) {
		return nil, nil
	}
	return m, err
}

func (s *Usage) GetOrCreate(ctx context.Context, key usage.Key, available int64) (*usage.Metric, error) {
	_, err := s.db.Exec(ctx, `
		INSERT INTO usage_metrics (id, organization_id, period, type, available, used)
		VALUES ($1, $2, $3, $4, $5, 0)
		ON CONFLICT (organization_id, period, type) DO NOTHING`,
		uuid.New(), key.OrganizationID, key.Period, string(key.Type), available)
	if err != nil {
		return nil, fmt.Errorf("insert usage metric: %w", err)
	}
	m, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, usage.ErrMetricNotFound
	}
	return m, nil
}

func (s *Usage) Increment(ctx context.Context, id uuid.UUID, value int64) (*usage.Metric, error) {
	m, err := scanMetric(s.db.QueryRow(ctx, `
		UPDATE usage_metrics SET used = used + $2, updated_at = now()
		WHERE id = $1
		RETURNING `+metricColumns,
		id, value))
	if pg.IsNotFoundError(err) {
		return nil, usage.ErrMetricNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("increment usage metric: %w", err)
	}
	return m, nil
}

func (s *Usage) Consume(ctx context.Context, id uuid.UUID, size int64) (*usage.Metric, error) {
	m, err := scanMetric(s.db.QueryRow(ctx, `
		UPDATE usage_metrics SET used = used + $2, updated_at = now()
		WHERE id = $1 AND used + $2 <= available
		RETURNING `+metricColumns,
		id, size))
	if err == nil {
		return m, nil
	}
	if !pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("consume usage metric: %w", err)
	}

	current, err := scanMetric(s.db.QueryRow(ctx, `SELECT `+metricColumns+` FROM usage_metrics WHERE id = $1`, id))
	if pg.IsNotFoundError(err) {
		return nil, usage.ErrMetricNotFound
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %d of %d bytes used", usage.ErrQuotaExceeded, current.Used, current.Available)
}

func (s *Usage) Upsert(ctx context.Context, key usage.Key, available int64, used *int64) (*usage.Metric, error) {
	m, err := scanMetric(s.db.QueryRow(ctx, `
		INSERT INTO usage_metrics (id, organization_id, period, type, available, used)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6::bigint, 0))
		ON CONFLICT (organization_id, period, type) DO UPDATE SET
			available = EXCLUDED.available,
			used = COALESCE($6::bigint, usage_metrics.used),
			updated_at = now()
		RETURNING `+metricColumns,
		uuid.New(), key.OrganizationID, key.Period, string(key.Type), available, used))
	if err != nil {
		return nil, fmt.Errorf("upsert usage metric: %w", err)
	}
	return m, nil
}

func (s *Usage) List(ctx context.Context, orgID uuid.UUID, periods ...string) ([]usage.Metric, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+metricColumns+` FROM usage_metrics
		WHERE organization_id = $1 AND period = ANY($2)
		ORDER BY type DESC`,
		orgID, periods)
	if err != nil {
		return nil, fmt.Errorf("list usage metrics: %w", err)
	}
	return collect(rows, scanMetric)
}

func scanMetric(row scanner) (*usage.Metric, error) {
	var (
		m   usage.Metric
		typ string
	)
	if err := row.Scan(&m.ID, &m.OrganizationID, &m.Period, &typ, &m.Available, &m.Used); err != nil {
		return nil, err
	}
	m.Type = usage.MetricType(typ)
	return &m, nil
}
