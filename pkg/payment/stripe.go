package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/swarmdock/backend/pkg/logger"
)

const metadataClientReference = "client_reference_id"

// StripeConfig holds Stripe credentials and checkout settings.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	ProductID     string `env:"STRIPE_PRODUCT_ID"`
	FrontendURL   string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
}

func (c StripeConfig) Enabled() bool {
	return c.SecretKey != "" && c.WebhookSecret != ""
}

// StripeProvider sells monthly subscriptions through Stripe Checkout.
type StripeProvider struct {
	cfg        StripeConfig
	newSession func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	logger     *slog.Logger
}

type StripeOption func(*StripeProvider)

// WithSessionCreator replaces the Stripe API call, used by tests.
func WithSessionCreator(fn func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)) StripeOption {
	return func(p *StripeProvider) {
		if fn != nil {
			p.newSession = fn
		}
	}
}

func WithStripeLogger(l *slog.Logger) StripeOption {
	return func(p *StripeProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewStripeProvider(cfg StripeConfig, opts ...StripeOption) (*StripeProvider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: stripe secret key and webhook secret are required", ErrNotConfigured)
	}
	stripe.Key = cfg.SecretKey

	p := &StripeProvider{cfg: cfg, newSession: session.New, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.Component("stripe"))
	return p, nil
}

func (p *StripeProvider) Name() string { return "stripe" }

func (p *StripeProvider) SignatureHeader() string { return "Stripe-Signature" }

func (p *StripeProvider) InitPayment(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	frontend := strings.TrimRight(p.cfg.FrontendURL, "/")
	params := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID:        stripe.String(req.MerchantTransactionID),
		BillingAddressCollection: stripe.String("auto"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(req.AmountMinor),
				Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval: stripe.String("month"),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				metadataClientReference: req.MerchantTransactionID,
				"organization_id":       req.OrganizationID.String(),
				"plan_id":               req.PlanID.String(),
			},
		},
		SuccessURL: stripe.String(frontend + "/payment-result?success=true&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(frontend + "/payment-result?canceled=true"),
	}
	if p.cfg.ProductID != "" {
		params.LineItems[0].PriceData.Product = stripe.String(p.cfg.ProductID)
	} else {
		params.LineItems[0].PriceData.ProductData = &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(req.Description),
		}
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}

	s, err := p.newSession(params)
	if err != nil {
		return nil, errors.Join(ErrCheckoutFailed, err)
	}
	if s == nil || s.URL == "" {
		return nil, fmt.Errorf("%w: stripe returned no checkout url", ErrCheckoutFailed)
	}

	p.logger.InfoContext(ctx, "stripe checkout session created",
		logger.MerchantTransactionID(req.MerchantTransactionID),
		slog.String("session_id", s.ID))

	return &Checkout{URL: s.URL, SessionID: s.ID}, nil
}

type stripeMetadataHolder struct {
	Metadata map[string]string `json:"metadata"`
}

// stripeInvoice decodes the invoice fields we need. Newer API versions
// moved subscription_details under parent, so both places are read.
type stripeInvoice struct {
	ID                  string                `json:"id"`
	BillingReason       string                `json:"billing_reason"`
	AmountPaid          int64                 `json:"amount_paid"`
	Currency            string                `json:"currency"`
	SubscriptionDetails *stripeMetadataHolder `json:"subscription_details"`
	Parent              *struct {
		SubscriptionDetails *stripeMetadataHolder `json:"subscription_details"`
	} `json:"parent"`
}

func (i stripeInvoice) merchantTransactionID() string {
	if i.SubscriptionDetails != nil {
		if v := i.SubscriptionDetails.Metadata[metadataClientReference]; v != "" {
			return v
		}
	}
	if i.Parent != nil && i.Parent.SubscriptionDetails != nil {
		return i.Parent.SubscriptionDetails.Metadata[metadataClientReference]
	}
	return ""
}

type stripeCheckoutSession struct {
	ID                string `json:"id"`
	ClientReferenceID string `json:"client_reference_id"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency"`
}

func (p *StripeProvider) VerifyAndParseEvent(ctx context.Context, payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}

	out := &Event{
		ID:           ev.ID,
		Provider:     p.Name(),
		ProviderType: string(ev.Type),
		Type:         EventIgnored,
		Raw:          payload,
	}
	if ev.Data == nil {
		return out, nil
	}

	switch string(ev.Type) {
	case "checkout.session.completed":
		var s stripeCheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
		out.Type = EventCheckoutCompleted
		out.MerchantTransactionID = s.ClientReferenceID
		out.AmountPaid = s.AmountTotal
		out.Currency = strings.ToUpper(s.Currency)

	case "invoice.paid":
		var inv stripeInvoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
		out.Type = EventInvoicePaid
		out.InvoiceID = inv.ID
		out.BillingReason = inv.BillingReason
		out.AmountPaid = inv.AmountPaid
		out.Currency = strings.ToUpper(inv.Currency)
		out.MerchantTransactionID = inv.merchantTransactionID()
	}

	p.logger.DebugContext(ctx, "stripe event verified",
		logger.EventID(out.ID), logger.EventType(out.ProviderType))

	return out, nil
}
