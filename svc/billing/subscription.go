package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/logger"
	"github.com/swarmdock/backend/pkg/payment"
	"github.com/swarmdock/backend/svc/plan"
)

// Subscriber is the authenticated caller starting a subscription.
type Subscriber struct {
	OrganizationID uuid.UUID
	Email          string
}

// InitSubscription prices the requested tiers, records a pending plan and
// payment, and returns the hosted checkout URL.
func (p *Processor) InitSubscription(ctx context.Context, sub Subscriber, storageGB, bandwidthGB int) (string, error) {
	if sub.OrganizationID == uuid.Nil {
		return "", fmt.Errorf("%w: organization is required", ErrInvalidRequest)
	}
	quote, err := p.Prices.Quote(storageGB, bandwidthGB)
	if err != nil {
		return "", err
	}
	provider, err := p.Providers.Get(p.cfg.Provider)
	if err != nil {
		return "", err
	}

	pl, err := p.Plans.CreatePendingPlan(ctx, sub.OrganizationID, plan.Terms{
		Amount:    quote.AmountMinor,
		Currency:  quote.Currency,
		Frequency: quote.Frequency,
		Quotas:    plan.Quotas(quote.Quotas),
	})
	if err != nil {
		return "", err
	}

	now := p.now().UTC()
	pay := &Payment{
		ID:                    uuid.New(),
		MerchantTransactionID: uuid.NewString(),
		OrganizationID:        sub.OrganizationID,
		PlanID:                pl.ID,
		Amount:                quote.AmountMinor,
		Currency:              quote.Currency,
		Status:                PaymentPending,
		Provider:              provider.Name(),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := p.Payments.Create(ctx, pay); err != nil {
		return "", fmt.Errorf("failed to record payment: %w", err)
	}

	p.logger.InfoContext(ctx, "initializing payment",
		logger.OrganizationID(sub.OrganizationID),
		logger.PlanID(pl.ID),
		logger.MerchantTransactionID(pay.MerchantTransactionID),
		logger.Amount(fmt.Sprintf("%d %s", pay.Amount, strings.ToUpper(pay.Currency))),
	)

	checkout, err := provider.InitPayment(ctx, payment.CheckoutRequest{
		MerchantTransactionID: pay.MerchantTransactionID,
		OrganizationID:        sub.OrganizationID,
		PlanID:                pl.ID,
		Email:                 sub.Email,
		AmountMinor:           quote.AmountMinor,
		Currency:              quote.Currency,
		TierKey:               quote.TierKey(),
		Description:           fmt.Sprintf("Storage %d GB, bandwidth %d GB", storageGB, bandwidthGB),
	})
	if err != nil {
		return "", err
	}
	return checkout.URL, nil
}

// CancelSubscription schedules the active plan to end with its paid period.
func (p *Processor) CancelSubscription(ctx context.Context, orgID uuid.UUID) (*plan.Plan, error) {
	pl, err := p.Plans.ScheduleCancellationOfActivePlan(ctx, orgID)
	if err != nil {
		if errors.Is(err, plan.ErrNoActivePlan) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to schedule cancellation: %w", err)
	}
	p.logger.InfoContext(ctx, "subscription cancellation scheduled",
		logger.OrganizationID(orgID), logger.PlanID(pl.ID), slog.Time("cancel_at", *pl.CancelAt))
	return pl, nil
}
