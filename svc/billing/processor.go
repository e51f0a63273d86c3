package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/alert"
	"github.com/swarmdock/backend/pkg/async"
	"github.com/swarmdock/backend/pkg/logger"
	"github.com/swarmdock/backend/pkg/payment"
	"github.com/swarmdock/backend/svc/organization"
	"github.com/swarmdock/backend/svc/plan"
)

const (
	resultProcessed = "processed"
	resultIgnored   = "ignored"
	resultDuplicate = "duplicate"
	resultRejected  = "rejected"
	resultFailed    = "failed"
)

// Deps are the required collaborators of a Processor.
type Deps struct {
	Providers     *payment.Registry
	Payments      PaymentStore
	Notifications NotificationStore
	Plans         Plans
	Usage         Usage
	Capacity      Capacity
	Organizations Organizations
	Prices        Quoter
}

func (d Deps) validate() error {
	if d.Providers == nil || d.Payments == nil || d.Notifications == nil || d.Plans == nil ||
		d.Usage == nil || d.Capacity == nil || d.Organizations == nil || d.Prices == nil {
		return errors.New("billing: missing dependency")
	}
	return nil
}

// Processor turns verified payment provider events into plan, usage and
// capacity changes, and starts new subscriptions.
type Processor struct {
	Deps
	cfg     Config
	dedup   Deduplicator
	alerts  alert.Sender
	metrics Metrics
	tracker *async.Tracker
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Processor)

// WithDeduplicator drops redelivered provider events before processing.
func WithDeduplicator(d Deduplicator) Option {
	return func(p *Processor) { p.dedup = d }
}

func WithAlerts(a alert.Sender) Option {
	return func(p *Processor) {
		if a != nil {
			p.alerts = a
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(p *Processor) {
		if m != nil {
			p.metrics = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProcessor panics when a dependency is missing.
func NewProcessor(cfg Config, deps Deps, opts ...Option) *Processor {
	if err := deps.validate(); err != nil {
		panic(err.Error())
	}
	p := &Processor{
		Deps:    deps,
		cfg:     cfg,
		metrics: noopMetrics{},
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.Component("billing"))
	if p.alerts == nil {
		p.alerts = alert.NewNotifier(0, alert.WithLogger(p.logger))
	}
	p.tracker = async.NewTracker(cfg.ProvisionTimeout)
	return p
}

// HandleProviderNotification verifies and applies one webhook delivery.
// A nil error means the provider may stop redelivering.
func (p *Processor) HandleProviderNotification(ctx context.Context, providerName string, body []byte, signature string) error {
	provider, err := p.Providers.Get(providerName)
	if err != nil {
		return err
	}

	ev, err := provider.VerifyAndParseEvent(ctx, body, signature)
	if err != nil {
		p.metrics.PaymentEvent(providerName, "unknown", resultRejected)
		p.logger.WarnContext(ctx, "rejected payment notification", logger.Provider(providerName), logger.Error(err))
		return err
	}
	log := p.logger.With(logger.Provider(providerName), logger.EventID(ev.ID), logger.EventType(ev.ProviderType))

	if err := p.Notifications.Save(ctx, &Notification{
		ID:        uuid.New(),
		Provider:  providerName,
		EventID:   ev.ID,
		Type:      ev.ProviderType,
		Body:      body,
		CreatedAt: p.now().UTC(),
	}); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if ev.Type == payment.EventIgnored {
		p.metrics.PaymentEvent(providerName, string(ev.Type), resultIgnored)
		return nil
	}

	key := providerName + ":" + ev.ID
	claimed := false
	if p.dedup != nil && ev.ID != "" {
		ok, err := p.dedup.Claim(ctx, key)
		switch {
		case err != nil:
			log.WarnContext(ctx, "event deduplication unavailable", logger.Error(err))
		case !ok:
			p.metrics.PaymentEvent(providerName, string(ev.Type), resultDuplicate)
			log.InfoContext(ctx, "duplicate payment notification dropped")
			return nil
		default:
			claimed = true
		}
	}

	switch ev.Type {
	case payment.EventCheckoutCompleted:
		err = p.handleCheckoutCompleted(ctx, ev)
	case payment.EventInvoicePaid:
		err = p.handleInvoicePaid(ctx, ev)
	default:
		p.metrics.PaymentEvent(providerName, string(ev.Type), resultIgnored)
		log.WarnContext(ctx, "unhandled payment event type", slog.String("type", string(ev.Type)))
		return nil
	}

	if err != nil {
		p.metrics.PaymentEvent(providerName, string(ev.Type), resultFailed)
		if claimed {
			if rerr := p.dedup.Release(context.WithoutCancel(ctx), key); rerr != nil {
				log.WarnContext(ctx, "failed to release event claim", logger.Error(rerr))
			}
		}
		return err
	}
	p.metrics.PaymentEvent(providerName, string(ev.Type), resultProcessed)
	return nil
}

// handleCheckoutCompleted activates the plan bought by a checkout. The
// payment is marked SUCCESS as the last step, so a delivery that fails
// after activation leaves a PENDING payment next to an ACTIVE plan and the
// redelivery finishes the remaining steps.
func (p *Processor) handleCheckoutCompleted(ctx context.Context, ev *payment.Event) error {
	if ev.MerchantTransactionID == "" {
		return ErrMissingReference
	}
	log := p.logger.With(logger.Provider(ev.Provider), logger.MerchantTransactionID(ev.MerchantTransactionID))
	log.InfoContext(ctx, "processing completed checkout")

	pay, err := p.Payments.GetByMerchantTransactionID(ctx, ev.MerchantTransactionID)
	if err != nil {
		return err
	}
	org, err := p.Organizations.Get(ctx, pay.OrganizationID)
	if err != nil {
		return err
	}
	target, err := p.Plans.GetPlan(ctx, pay.PlanID)
	if err != nil {
		return err
	}
	log = log.With(logger.OrganizationID(pay.OrganizationID), logger.PlanID(target.ID))
	settled := pay.Status == PaymentSuccess

	switch {
	case target.Status == plan.StatusPendingPayment:
	case target.Status == plan.StatusActive && !settled:
		log.WarnContext(ctx, "resuming partially applied checkout")
		if needsCapacity(org, target) {
			p.provision(ctx, "purchase", org, target, p.Capacity.PurchaseCapacity)
		}
		return p.completeCheckout(ctx, pay, target)
	default:
		log.ErrorContext(ctx, "plan to activate is not pending payment", slog.String("status", string(target.Status)))
		p.alerts.SendAlert(ctx, fmt.Sprintf(
			"Plan %s of organization %s must be %s to activate, but it is %s",
			target.ID, pay.OrganizationID, plan.StatusPendingPayment, target.Status,
		), nil)
		if !settled {
			return p.markSucceeded(ctx, pay)
		}
		return nil
	}

	active, err := p.Plans.GetActivePlan(ctx, pay.OrganizationID)
	if err != nil {
		return err
	}
	upgrade := active != nil && active.ID != target.ID
	if upgrade {
		if _, err := p.Plans.CancelPlan(ctx, pay.OrganizationID, active.ID, "UPGRADED_TO: "+target.ID.String()); err != nil {
			return fmt.Errorf("failed to cancel upgraded plan: %w", err)
		}
	}

	activated, err := p.Plans.ActivatePlan(ctx, pay.OrganizationID, target.ID)
	if err != nil {
		if upgrade {
			p.alerts.SendAlert(ctx, fmt.Sprintf(
				"Plan %s was cancelled for upgrade but plan %s could not be activated", active.ID, target.ID,
			), err)
		}
		return err
	}

	// Provisioning starts before anything else can fail: the steps after
	// it are repeated on redelivery, provisioning is not.
	if org.BatchID() != "" {
		p.provision(ctx, "top up and dilute", org, activated, p.Capacity.TopUpAndDilute)
	} else {
		p.provision(ctx, "purchase", org, activated, p.Capacity.PurchaseCapacity)
	}
	if err := p.completeCheckout(ctx, pay, activated); err != nil {
		return err
	}
	log.InfoContext(ctx, "plan activated from checkout", slog.Bool("upgrade", upgrade))
	return nil
}

// completeCheckout applies the plan's quotas and settles the payment. Both
// steps are idempotent.
func (p *Processor) completeCheckout(ctx context.Context, pay *Payment, pl *plan.Plan) error {
	if err := p.Usage.UpgradeCurrentMetrics(ctx, pay.OrganizationID,
		pl.Quotas.UploadSizeLimit, pl.Quotas.DownloadSizeLimit); err != nil {
		return fmt.Errorf("failed to upgrade usage metrics: %w", err)
	}
	return p.markSucceeded(ctx, pay)
}

func (p *Processor) markSucceeded(ctx context.Context, pay *Payment) error {
	if _, err := p.Payments.MarkSucceeded(ctx, pay.ID, p.now().UTC()); err != nil {
		return fmt.Errorf("failed to mark payment succeeded: %w", err)
	}
	return nil
}

// needsCapacity reports whether no batch was ever requested for the
// organization under pl. A batch released by the sweeper while the plan
// awaits cancellation does not count.
func needsCapacity(org *organization.Organization, pl *plan.Plan) bool {
	switch org.BatchStatus() {
	case "":
		return true
	case organization.BatchRemoved:
		return pl.CancelAt == nil
	}
	return false
}

// handleInvoicePaid renews the plan of the original checkout. The renewal
// payment is keyed by the invoice and written after the idempotent plan
// extension, so a failed delivery is repeated in full and a completed one
// is recognised by the payment row.
func (p *Processor) handleInvoicePaid(ctx context.Context, ev *payment.Event) error {
	log := p.logger.With(logger.Provider(ev.Provider), logger.MerchantTransactionID(ev.MerchantTransactionID))
	if ev.IsInitialInvoice() {
		log.InfoContext(ctx, "skipping initial subscription invoice")
		return nil
	}
	if ev.MerchantTransactionID == "" || ev.InvoiceID == "" {
		return ErrMissingReference
	}
	log = log.With(slog.String("invoice_id", ev.InvoiceID))

	original, err := p.Payments.GetByMerchantTransactionID(ctx, ev.MerchantTransactionID)
	if err != nil {
		return err
	}
	log = log.With(logger.OrganizationID(original.OrganizationID), logger.PlanID(original.PlanID))

	ref := renewalTransactionID(ev.Provider, ev.InvoiceID)
	switch _, err := p.Payments.GetByMerchantTransactionID(ctx, ref); {
	case err == nil:
		log.InfoContext(ctx, "renewal invoice already processed")
		return nil
	case !errors.Is(err, ErrPaymentNotFound):
		return err
	}

	org, err := p.Organizations.Get(ctx, original.OrganizationID)
	if err != nil {
		return err
	}

	renewed, err := p.Plans.ExtendPaidUntil(ctx, original.PlanID, ref)
	switch {
	case errors.Is(err, plan.ErrInvalidStatus):
		p.alerts.SendAlert(ctx, fmt.Sprintf(
			"Renewal %s was paid but plan %s is no longer active", ev.InvoiceID, original.PlanID,
		), err)
		renewed = nil
	case err != nil:
		return fmt.Errorf("failed to extend plan: %w", err)
	}

	amount, currency := ev.AmountPaid, ev.Currency
	if amount <= 0 {
		amount = original.Amount
	}
	if currency == "" {
		currency = original.Currency
	}
	now := p.now().UTC()
	if err := p.Payments.Create(ctx, &Payment{
		ID:                    uuid.New(),
		MerchantTransactionID: ref,
		ProviderTransactionID: ev.InvoiceID,
		OrganizationID:        original.OrganizationID,
		PlanID:                original.PlanID,
		Amount:                amount,
		Currency:              currency,
		Status:                PaymentSuccess,
		Provider:              ev.Provider,
		CreatedAt:             now,
		UpdatedAt:             now,
	}); err != nil {
		if errors.Is(err, ErrDuplicatePayment) {
			log.InfoContext(ctx, "renewal invoice already processed")
			return nil
		}
		return fmt.Errorf("failed to record renewal payment: %w", err)
	}

	if renewed == nil {
		return nil
	}
	p.provision(ctx, "top up", org, renewed, p.Capacity.TopUpAndDilute)
	log.InfoContext(ctx, "plan renewed", slog.Time("paid_until", *renewed.PaidUntil))
	return nil
}

// provision runs op in the background. The capacity layer persists and
// alerts failures itself; the result is only logged here.
func (p *Processor) provision(
	ctx context.Context,
	name string,
	org *organization.Organization,
	pl *plan.Plan,
	op func(context.Context, *organization.Organization, *plan.Plan) error,
) {
	log := p.logger.With(logger.OrganizationID(org.ID), logger.PlanID(pl.ID))
	async.Go(p.tracker, ctx, func(ctx context.Context) (struct{}, error) {
		if err := op(ctx, org, pl); err != nil {
			log.ErrorContext(ctx, "background "+name+" failed", logger.Error(err))
			return struct{}{}, err
		}
		log.InfoContext(ctx, "background "+name+" finished")
		return struct{}{}, nil
	})
}

// Wait blocks until background provisioning has finished or ctx expires.
func (p *Processor) Wait(ctx context.Context) error {
	return p.tracker.Wait(ctx)
}
