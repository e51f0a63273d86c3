package capacity

import "errors"

var (
	ErrNotProvisioned     = errors.New("capacity: organization has no usable postage batch")
	ErrInsufficientFunds  = errors.New("capacity: insufficient wallet balance")
	ErrProvisioningFailed = errors.New("capacity: provisioning failed")
	ErrInvalidBatchState  = errors.New("capacity: operation not allowed in current batch state")
	ErrInvalidConfig      = errors.New("capacity: invalid config")
	ErrCreationInProgress = errors.New("capacity: postage batch creation in progress")
)
