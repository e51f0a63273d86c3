package memstore

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/svc/billing"
)

type Payments struct{ db *DB }

var _ billing.PaymentStore = (*Payments)(nil)

func (s *Payments) Create(_ context.Context, p *billing.Payment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.paymentsByTx[p.MerchantTransactionID]; ok {
		return billing.ErrDuplicatePayment
	}
	s.db.payments[p.ID] = *p
	s.db.paymentsByTx[p.MerchantTransactionID] = p.ID
	return nil
}

func (s *Payments) GetByMerchantTransactionID(_ context.Context, id string) (*billing.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	pid, ok := s.db.paymentsByTx[id]
	if !ok {
		return nil, billing.ErrPaymentNotFound
	}
	return ptr(s.db.payments[pid]), nil
}

func (s *Payments) MarkSucceeded(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.payments[id]
	if !ok {
		return false, billing.ErrPaymentNotFound
	}
	if p.Status != billing.PaymentPending {
		return false, nil
	}
	p.Status = billing.PaymentSuccess
	p.UpdatedAt = now
	s.db.payments[id] = p
	return true, nil
}

// ForPlan lists payments of a plan, used by tests.
func (s *Payments) ForPlan(planID uuid.UUID) []billing.Payment {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []billing.Payment
	for _, p := range s.db.payments {
		if p.PlanID == planID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b billing.Payment) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

type Notifications struct{ db *DB }

var _ billing.NotificationStore = (*Notifications)(nil)

func (s *Notifications) Save(_ context.Context, n *billing.Notification) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n.Body = slices.Clone(n.Body)
	s.db.notifications = append(s.db.notifications, *n)
	return nil
}

func (s *Notifications) All() []billing.Notification {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return slices.Clone(s.db.notifications)
}
