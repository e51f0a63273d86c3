package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/pg"
	"github.com/swarmdock/backend/svc/billing"
)

type Payments struct{ db DB }

var _ billing.PaymentStore = (*Payments)(nil)

const paymentColumns = `id, merchant_transaction_id, provider_transaction_id, organization_id, plan_id,
	amount, currency, status, status_reason_code, provider, created_at, updated_at`

func (s *Payments) Create(ctx context.Context, p *billing.Payment) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.MerchantTransactionID, p.ProviderTransactionID, p.OrganizationID, p.PlanID,
		p.Amount, p.Currency, string(p.Status), p.StatusReasonCode, p.Provider, p.CreatedAt, p.UpdatedAt)
	if pg.IsDuplicateKeyError(err) {
		return billing.ErrDuplicatePayment
	}
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *Payments) GetByMerchantTransactionID(ctx context.Context, id string) (*billing.Payment, error) {
	p, err := scanPayment(s.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE merchant_transaction_id = $1`, id))
	if pg.IsNotFoundError(err) {
		return nil, billing.ErrPaymentNotFound
	}
	return p, err
}

func (s *Payments) MarkSucceeded(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE payments SET status = 'SUCCESS', updated_at = $2
		WHERE id = $1 AND status = 'PENDING'`,
		id, now)
	if err != nil {
		return false, fmt.Errorf("mark payment succeeded: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check payment: %w", err)
	}
	if !exists {
		return false, billing.ErrPaymentNotFound
	}
	return false, nil
}

func scanPayment(row scanner) (*billing.Payment, error) {
	var (
		p      billing.Payment
		status string
	)
	err := row.Scan(
		&p.ID, &p.MerchantTransactionID, &p.ProviderTransactionID, &p.OrganizationID, &p.PlanID,
		&p.Amount, &p.Currency, &status, &p.StatusReasonCode, &p.Provider, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = billing.PaymentStatus(status)
	return &p, nil
}

type Notifications struct{ db DB }

var _ billing.NotificationStore = (*Notifications)(nil)

func (s *Notifications) Save(ctx context.Context, n *billing.Notification) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO payment_notifications (id, provider, event_id, type, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.Provider, n.EventID, n.Type, n.Body, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment notification: %w", err)
	}
	return nil
}
