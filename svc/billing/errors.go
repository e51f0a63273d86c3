package billing

import "errors"

var (
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrDuplicatePayment = errors.New("payment already recorded")
	ErrInvalidRequest   = errors.New("invalid subscription request")
	ErrMissingReference = errors.New("event has no merchant transaction id")
)
