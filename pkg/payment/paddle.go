package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/swarmdock/backend/pkg/logger"
)

const customDataMerchantTx = "merchant_transaction_id"

// PaddleConfig holds Paddle Billing credentials. Paddle sells catalog
// prices, so every storage/bandwidth tier needs a price id.
type PaddleConfig struct {
	APIKey        string            `env:"PADDLE_API_KEY"`
	WebhookSecret string            `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string            `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	PriceIDs      map[string]string `env:"PADDLE_PRICE_IDS"`
}

func (c PaddleConfig) Enabled() bool {
	return c.APIKey != "" && c.WebhookSecret != ""
}

// transactionCreator is the slice of the Paddle SDK used for checkouts.
type transactionCreator interface {
	CreateTransaction(ctx context.Context, req *paddle.CreateTransactionRequest) (*paddle.Transaction, error)
}

// PaddleProvider sells subscriptions through Paddle Billing checkouts.
type PaddleProvider struct {
	cfg          PaddleConfig
	transactions transactionCreator
	verifier     *paddle.WebhookVerifier
	logger       *slog.Logger
}

type PaddleOption func(*PaddleProvider)

func WithTransactionCreator(tc transactionCreator) PaddleOption {
	return func(p *PaddleProvider) {
		if tc != nil {
			p.transactions = tc
		}
	}
}

func WithPaddleLogger(l *slog.Logger) PaddleOption {
	return func(p *PaddleProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewPaddleProvider(cfg PaddleConfig, opts ...PaddleOption) (*PaddleProvider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: paddle api key and webhook secret are required", ErrNotConfigured)
	}

	p := &PaddleProvider{
		cfg:      cfg,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.transactions == nil {
		var (
			client *paddle.SDK
			err    error
		)
		switch strings.ToLower(cfg.Environment) {
		case "sandbox":
			client, err = paddle.NewSandbox(cfg.APIKey)
		case "production", "":
			client, err = paddle.New(cfg.APIKey)
		default:
			return nil, fmt.Errorf("%w: invalid paddle environment %q", ErrNotConfigured, cfg.Environment)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create paddle client: %w", err)
		}
		p.transactions = client.TransactionsClient
	}

	p.logger = p.logger.With(logger.Component("paddle"))
	return p, nil
}

func (p *PaddleProvider) Name() string { return "paddle" }

func (p *PaddleProvider) SignatureHeader() string { return "Paddle-Signature" }

func (p *PaddleProvider) InitPayment(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	priceID, ok := p.cfg.PriceIDs[req.TierKey]
	if !ok || priceID == "" {
		return nil, fmt.Errorf("%w: %q", ErrMissingPriceID, req.TierKey)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  priceID,
		Quantity: 1,
	})

	txReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			customDataMerchantTx: req.MerchantTransactionID,
			"organization_id":    req.OrganizationID.String(),
			"plan_id":            req.PlanID.String(),
		},
	}
	if req.Email != "" {
		txReq.CustomData["email"] = req.Email
	}

	tx, err := p.transactions.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, errors.Join(ErrCheckoutFailed, err)
	}
	if tx == nil || tx.Checkout == nil || tx.Checkout.URL == nil {
		return nil, fmt.Errorf("%w: paddle returned no checkout url", ErrCheckoutFailed)
	}

	p.logger.InfoContext(ctx, "paddle transaction created",
		logger.MerchantTransactionID(req.MerchantTransactionID),
		slog.String("transaction_id", tx.ID))

	return &Checkout{URL: *tx.Checkout.URL, SessionID: tx.ID}, nil
}

type paddleNotification struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Data      struct {
		ID           string         `json:"id"`
		Origin       string         `json:"origin"`
		CurrencyCode string         `json:"currency_code"`
		CustomData   map[string]any `json:"custom_data"`
		Details      struct {
			Totals struct {
				GrandTotal string `json:"grand_total"`
			} `json:"totals"`
		} `json:"details"`
	} `json:"data"`
}

func (p *PaddleProvider) VerifyAndParseEvent(ctx context.Context, payload []byte, signature string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}
	req.Header.Set(p.SignatureHeader(), signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	var n paddleNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}

	out := &Event{
		ID:           n.EventID,
		Provider:     p.Name(),
		ProviderType: n.EventType,
		Type:         EventIgnored,
		Raw:          payload,
	}
	if n.EventType != "transaction.completed" {
		return out, nil
	}

	if v, ok := n.Data.CustomData[customDataMerchantTx].(string); ok {
		out.MerchantTransactionID = v
	}
	out.Currency = n.Data.CurrencyCode
	if total, err := strconv.ParseInt(n.Data.Details.Totals.GrandTotal, 10, 64); err == nil {
		out.AmountPaid = total
	}

	// Renewals are transactions created by the subscription itself.
	switch n.Data.Origin {
	case "subscription_recurring", "subscription_charge":
		out.Type = EventInvoicePaid
		out.InvoiceID = n.Data.ID
		out.BillingReason = BillingReasonSubscriptionCycle
	default:
		out.Type = EventCheckoutCompleted
	}

	return out, nil
}
