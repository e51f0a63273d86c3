package organization

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus is the provisioning state of an organization's postage batch.
type BatchStatus string

const (
	BatchCreating       BatchStatus = "CREATING"
	BatchCreated        BatchStatus = "CREATED"
	BatchFailedToCreate BatchStatus = "FAILED_TO_CREATE"
	BatchFailedToTopUp  BatchStatus = "FAILED_TO_TOP_UP"
	BatchFailedToDilute BatchStatus = "FAILED_TO_DILUTE"
	BatchRemoved        BatchStatus = "REMOVED"
)

// Organization is the tenant that owns plans, usage and a postage batch.
type Organization struct {
	ID                 uuid.UUID
	Name               string
	PostageBatchID     *string
	PostageBatchStatus *BatchStatus
	Enabled            bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BatchID returns the batch handle or "".
func (o *Organization) BatchID() string {
	if o.PostageBatchID == nil {
		return ""
	}
	return *o.PostageBatchID
}

// BatchStatus returns the provisioning status or "" when never provisioned.
func (o *Organization) BatchStatus() BatchStatus {
	if o.PostageBatchStatus == nil {
		return ""
	}
	return *o.PostageBatchStatus
}

// BatchUpdate changes the batch handle and/or status. A nil field is left
// as is; ClearBatch removes the handle.
type BatchUpdate struct {
	BatchID    *string
	ClearBatch bool
	Status     *BatchStatus
}

func StatusPtr(s BatchStatus) *BatchStatus { return &s }
