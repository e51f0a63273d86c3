package billing

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailure PaymentStatus = "FAILURE"
)

// Payment is one charge of a plan. MerchantTransactionID is unique: the
// checkout payment uses a generated id, renewals use the provider invoice.
type Payment struct {
	ID                    uuid.UUID
	MerchantTransactionID string
	ProviderTransactionID string
	OrganizationID        uuid.UUID
	PlanID                uuid.UUID
	Amount                int64
	Currency              string
	Status                PaymentStatus
	StatusReasonCode      string
	Provider              string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Notification is a verified provider event kept for audit.
type Notification struct {
	ID        uuid.UUID
	Provider  string
	EventID   string
	Type      string
	Body      []byte
	CreatedAt time.Time
}

func renewalTransactionID(provider, invoiceID string) string {
	return provider + ":invoice:" + invoiceID
}
