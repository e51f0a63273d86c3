// Package payment abstracts hosted subscription checkouts and webhook
// verification over Stripe and Paddle, normalizing their notifications
// into checkout-completed and invoice-paid events.
package payment
