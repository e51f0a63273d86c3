package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/svc/plan"
)

type Plans struct{ db *DB }

var _ plan.Store = (*Plans)(nil)

func (s *Plans) Create(_ context.Context, p *plan.Plan) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.plans[p.ID]; ok {
		return fmt.Errorf("plan %s already exists", p.ID)
	}
	s.db.plans[p.ID] = clonePlan(*p)
	return nil
}

func (s *Plans) Get(_ context.Context, id uuid.UUID) (*plan.Plan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.plans[id]
	if !ok {
		return nil, plan.ErrPlanNotFound
	}
	return ptr(clonePlan(p)), nil
}

func (s *Plans) GetActive(_ context.Context, orgID uuid.UUID) (*plan.Plan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if p, ok := s.activeLocked(orgID); ok {
		return ptr(clonePlan(p)), nil
	}
	return nil, nil
}

func (s *Plans) activeLocked(orgID uuid.UUID) (plan.Plan, bool) {
	for _, p := range s.db.plans {
		if p.OrganizationID == orgID && p.Status == plan.StatusActive {
			return p, true
		}
	}
	return plan.Plan{}, false
}

func (s *Plans) Activate(_ context.Context, id uuid.UUID, paidUntil, now time.Time) (*plan.Plan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.plans[id]
	if !ok {
		return nil, plan.ErrPlanNotFound
	}
	if p.Status != plan.StatusPendingPayment {
		return nil, plan.ErrStaleState
	}
	if _, active := s.activeLocked(p.OrganizationID); active {
		return nil, plan.ErrConflict
	}
	p.Status = plan.StatusActive
	p.PaidUntil = ptr(paidUntil)
	p.UpdatedAt = now
	s.db.plans[id] = p
	return ptr(clonePlan(p)), nil
}

func (s *Plans) Transition(_ context.Context, id uuid.UUID, from, to plan.Status, reason string, now time.Time) (*plan.Plan, error) {
	return s.update(id, func(p *plan.Plan) error {
		if p.Status != from {
			return plan.ErrStaleState
		}
		p.Status = to
		p.StatusReason = reason
		p.UpdatedAt = now
		return nil
	})
}

func (s *Plans) SetCancelAt(_ context.Context, id uuid.UUID, cancelAt, now time.Time) (*plan.Plan, error) {
	return s.update(id, func(p *plan.Plan) error {
		p.CancelAt = ptr(cancelAt)
		p.UpdatedAt = now
		return nil
	})
}

func (s *Plans) Renew(_ context.Context, id uuid.UUID, paidUntil time.Time, ref string, now time.Time) (*plan.Plan, error) {
	return s.update(id, func(p *plan.Plan) error {
		if ref != "" && p.RenewedBy == ref {
			return nil
		}
		p.PaidUntil = ptr(paidUntil)
		p.RenewedBy = ref
		p.UpdatedAt = now
		return nil
	})
}

func (s *Plans) ListActive(_ context.Context) ([]plan.Plan, error) {
	return s.list(func(p plan.Plan) bool { return p.Status == plan.StatusActive }), nil
}

func (s *Plans) ListMaturedCancellations(_ context.Context, now time.Time) ([]plan.Plan, error) {
	return s.list(func(p plan.Plan) bool {
		return p.Status == plan.StatusActive && p.CancelAt != nil && !p.CancelAt.After(now)
	}), nil
}

func (s *Plans) update(id uuid.UUID, fn func(*plan.Plan) error) (*plan.Plan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.plans[id]
	if !ok {
		return nil, plan.ErrPlanNotFound
	}
	if err := fn(&p); err != nil {
		return nil, err
	}
	s.db.plans[id] = p
	return ptr(clonePlan(p)), nil
}

func (s *Plans) list(match func(plan.Plan) bool) []plan.Plan {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []plan.Plan
	for _, p := range s.db.plans {
		if match(p) {
			out = append(out, clonePlan(p))
		}
	}
	return out
}

func clonePlan(p plan.Plan) plan.Plan {
	if p.PaidUntil != nil {
		p.PaidUntil = ptr(*p.PaidUntil)
	}
	if p.CancelAt != nil {
		p.CancelAt = ptr(*p.CancelAt)
	}
	return p
}
