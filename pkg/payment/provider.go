package payment

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Provider is a payment provider offering hosted subscription checkout and
// signed webhook notifications.
type Provider interface {
	// Name is the path segment used in /payment/{name}-notification.
	Name() string

	// SignatureHeader is the HTTP header carrying the webhook signature.
	SignatureHeader() string

	// InitPayment opens a hosted checkout for a monthly subscription. The
	// merchant transaction id must come back in the resulting events.
	InitPayment(ctx context.Context, req CheckoutRequest) (*Checkout, error)

	// VerifyAndParseEvent rejects payloads with a bad signature before
	// anything is decoded.
	VerifyAndParseEvent(ctx context.Context, payload []byte, signature string) (*Event, error)
}

// CheckoutRequest describes one subscription purchase.
type CheckoutRequest struct {
	MerchantTransactionID string
	OrganizationID        uuid.UUID
	PlanID                uuid.UUID
	Email                 string
	AmountMinor           int64
	Currency              string
	// TierKey identifies the storage/bandwidth combination, for providers
	// that sell catalog prices instead of ad hoc amounts.
	TierKey     string
	Description string
}

func (r CheckoutRequest) validate() error {
	switch {
	case r.MerchantTransactionID == "":
		return fmt.Errorf("%w: merchant transaction id is required", ErrInvalidCheckout)
	case r.AmountMinor <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidCheckout)
	case r.Currency == "":
		return fmt.Errorf("%w: currency is required", ErrInvalidCheckout)
	}
	return nil
}

// Checkout is a hosted checkout the customer is redirected to.
type Checkout struct {
	URL       string
	SessionID string
}

// Registry resolves providers by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
