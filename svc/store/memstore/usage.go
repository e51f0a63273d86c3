package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/svc/usage"
)

type Usage struct{ db *DB }

var _ usage.Store = (*Usage)(nil)

func (s *Usage) Get(_ context.Context, key usage.Key) (*usage.Metric, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if m, ok := s.db.metrics[key]; ok {
		return ptr(m), nil
	}
	return nil, nil
}

func (s *Usage) GetOrCreate(_ context.Context, key usage.Key, available int64) (*usage.Metric, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if m, ok := s.db.metrics[key]; ok {
		return ptr(m), nil
	}
	m := newMetric(key, available)
	s.db.metrics[key] = m
	return ptr(m), nil
}

func (s *Usage) Increment(_ context.Context, id uuid.UUID, value int64) (*usage.Metric, error) {
	return s.update(id, func(m *usage.Metric) error {
		m.Used += value
		return nil
	})
}

func (s *Usage) Consume(_ context.Context, id uuid.UUID, size int64) (*usage.Metric, error) {
	return s.update(id, func(m *usage.Metric) error {
		if !m.Fits(size) {
			return fmt.Errorf("%w: %d of %d bytes used", usage.ErrQuotaExceeded, m.Used, m.Available)
		}
		m.Used += size
		return nil
	})
}

func (s *Usage) Upsert(_ context.Context, key usage.Key, available int64, used *int64) (*usage.Metric, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, ok := s.db.metrics[key]
	if !ok {
		m = newMetric(key, available)
	}
	m.Available = available
	if used != nil {
		m.Used = *used
	}
	s.db.metrics[key] = m
	return ptr(m), nil
}

func (s *Usage) List(_ context.Context, orgID uuid.UUID, periods ...string) ([]usage.Metric, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []usage.Metric
	for k, m := range s.db.metrics {
		if k.OrganizationID == orgID && slices.Contains(periods, k.Period) {
			out = append(out, m)
		}
	}
	// uploads first
	slices.SortFunc(out, func(a, b usage.Metric) int { return cmp.Compare(b.Type, a.Type) })
	return out, nil
}

func (s *Usage) update(id uuid.UUID, fn func(*usage.Metric) error) (*usage.Metric, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for k, m := range s.db.metrics {
		if m.ID != id {
			continue
		}
		if err := fn(&m); err != nil {
			return nil, err
		}
		s.db.metrics[k] = m
		return ptr(m), nil
	}
	return nil, usage.ErrMetricNotFound
}

func newMetric(key usage.Key, available int64) usage.Metric {
	return usage.Metric{
		ID:             uuid.New(),
		OrganizationID: key.OrganizationID,
		Period:         key.Period,
		Type:           key.Type,
		Available:      available,
	}
}
