package plan

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusActive         Status = "ACTIVE"
	StatusCancelled      Status = "CANCELLED"
)

// Quotas are the usage limits a plan grants, in bytes and counts.
type Quotas struct {
	UploadSizeLimit    int64 `json:"uploadSizeLimit"`
	UploadCountLimit   int64 `json:"uploadCountLimit"`
	DownloadSizeLimit  int64 `json:"downloadSizeLimit"`
	DownloadCountLimit int64 `json:"downloadCountLimit"`
}

// Plan is a monthly subscription of an organization. At most one plan per
// organization is ACTIVE.
type Plan struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	Frequency      string     `json:"frequency"`
	Status         Status     `json:"status"`
	StatusReason   string     `json:"statusReason,omitempty"`
	Quotas         Quotas     `json:"quotas"`
	PaidUntil      *time.Time `json:"paidUntil,omitempty"`
	CancelAt       *time.Time `json:"cancelAt,omitempty"`
	RenewedBy      string     `json:"-"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (p *Plan) IsActive() bool { return p.Status == StatusActive }

// Terms are the commercial terms of a new plan.
type Terms struct {
	Amount    int64
	Currency  string
	Frequency string
	Quotas    Quotas
}
