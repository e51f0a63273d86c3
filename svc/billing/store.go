package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PaymentStore interface {
	// Create returns ErrDuplicatePayment when the merchant transaction id
	// is taken.
	Create(ctx context.Context, p *Payment) error
	// GetByMerchantTransactionID returns ErrPaymentNotFound when missing.
	GetByMerchantTransactionID(ctx context.Context, id string) (*Payment, error)
	// MarkSucceeded moves a PENDING payment to SUCCESS and reports whether
	// this call made the change.
	MarkSucceeded(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type NotificationStore interface {
	Save(ctx context.Context, n *Notification) error
}

// Deduplicator claims provider event ids. Claim reports false for an id
// seen before.
type Deduplicator interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}
