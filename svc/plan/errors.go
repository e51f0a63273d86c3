package plan

import "errors"

var (
	ErrPlanNotFound  = errors.New("plan not found")
	ErrConflict      = errors.New("organization already has an active plan")
	ErrNoActivePlan  = errors.New("organization has no active plan")
	ErrInvalidStatus = errors.New("plan status does not allow this operation")
	ErrStaleState    = errors.New("plan status changed concurrently")
	ErrInvalidTerms  = errors.New("invalid plan terms")
)
