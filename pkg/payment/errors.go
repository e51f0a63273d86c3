package payment

import "errors"

var (
	ErrUnknownProvider   = errors.New("payment: unknown provider")
	ErrInvalidSignature  = errors.New("payment: invalid webhook signature")
	ErrInvalidPayload    = errors.New("payment: invalid webhook payload")
	ErrInvalidCheckout   = errors.New("payment: invalid checkout request")
	ErrCheckoutFailed    = errors.New("payment: failed to create checkout")
	ErrMissingPriceID    = errors.New("payment: no catalog price configured for tier")
	ErrNotConfigured     = errors.New("payment: provider is not configured")
)
