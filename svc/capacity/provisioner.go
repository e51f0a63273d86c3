package capacity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/alert"
	"github.com/swarmdock/backend/pkg/bzz"
	"github.com/swarmdock/backend/pkg/logger"
	"github.com/swarmdock/backend/pkg/swarm"
	"github.com/swarmdock/backend/svc/organization"
	"github.com/swarmdock/backend/svc/plan"
	"github.com/swarmdock/backend/svc/pricing"
)

// SwarmClient is the subset of the Bee API the provisioner drives.
type SwarmClient interface {
	CreateBatch(ctx context.Context, amount *big.Int, depth int) (string, error)
	TopUpBatch(ctx context.Context, id string, amount *big.Int) error
	DiluteBatch(ctx context.Context, id string, depth int) error
	GetBatch(ctx context.Context, id string) (*swarm.Batch, error)
	WalletBalance(ctx context.Context) (bzz.Amount, error)
}

// Organizations persists batch handles and statuses.
type Organizations interface {
	UpdateBatch(ctx context.Context, id uuid.UUID, upd organization.BatchUpdate) (*organization.Organization, error)
}

// Metrics receives provisioning failures. *metrics.Metrics satisfies it.
type Metrics interface {
	ProvisioningFailed(operation string)
}

type noopMetrics struct{}

func (noopMetrics) ProvisioningFailed(string) {}

const (
	opCreate = "create"
	opTopUp  = "top_up"
	opDilute = "dilute"
	opFunds  = "funds"
)

// Provisioner buys and maintains postage batches.
type Provisioner struct {
	cfg     Config
	swarm   SwarmClient
	orgs    Organizations
	alerts  alert.Sender
	metrics Metrics
	logger  *slog.Logger
}

type Option func(*Provisioner)

func WithAlerts(a alert.Sender) Option {
	return func(p *Provisioner) {
		if a != nil {
			p.alerts = a
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(p *Provisioner) {
		if m != nil {
			p.metrics = m
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Provisioner) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProvisioner panics on missing collaborators or an invalid config.
func NewProvisioner(cfg Config, client SwarmClient, orgs Organizations, opts ...Option) *Provisioner {
	if client == nil || orgs == nil {
		panic("capacity: swarm client and organization store are required")
	}
	if err := cfg.Validate(); err != nil {
		panic(err.Error())
	}
	p := &Provisioner{
		cfg:     cfg,
		swarm:   client,
		orgs:    orgs,
		metrics: noopMetrics{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.Component("capacity"))
	if p.alerts == nil {
		p.alerts = alert.NewNotifier(0, alert.WithLogger(p.logger))
	}
	return p
}

func (p *Provisioner) Config() Config { return p.cfg }

// VerifyProvisioned fails with ErrNotProvisioned unless the organization
// holds a batch the node still knows about.
func (p *Provisioner) VerifyProvisioned(ctx context.Context, org *organization.Organization) error {
	id := org.BatchID()
	if id == "" {
		return ErrNotProvisioned
	}
	if _, err := p.swarm.GetBatch(ctx, id); err != nil {
		if errors.Is(err, swarm.ErrBatchNotFound) {
			p.alerts.SendAlert(ctx, fmt.Sprintf("Batch %s of organization %s is unknown to the node", id, org.ID), err)
			return errors.Join(ErrNotProvisioned, err)
		}
		return err
	}
	return nil
}

// VerifySufficientFunds checks that the wallet can pay for gb of storage
// over days.
func (p *Provisioner) VerifySufficientFunds(ctx context.Context, days int, gb float64) error {
	c, err := pricing.CalculateCapacity(days, gb)
	if err != nil {
		return err
	}
	return p.verifyFunds(ctx, c)
}

func (p *Provisioner) verifyFunds(ctx context.Context, c pricing.Capacity) error {
	balance, err := p.swarm.WalletBalance(ctx)
	if err != nil {
		return fmt.Errorf("read wallet balance: %w", err)
	}
	if balance.Cmp(c.EstimatedCost) < 0 {
		p.metrics.ProvisioningFailed(opFunds)
		p.alerts.SendAlert(ctx, fmt.Sprintf(
			"Insufficient funds: wallet holds %s BZZ, %s BZZ required for depth %d",
			balance.ToBZZ(2), c.EstimatedCost.ToBZZ(2), c.Depth,
		), nil)
		return ErrInsufficientFunds
	}
	return nil
}

// PurchaseCapacity buys a batch sized for the plan's storage quota over
// PurchaseDays. Failures are persisted as FAILED_TO_CREATE and alerted.
func (p *Provisioner) PurchaseCapacity(ctx context.Context, org *organization.Organization, pl *plan.Plan) error {
	log := p.logger.With(logger.OrganizationID(org.ID), logger.PlanID(pl.ID))

	if _, err := p.setStatus(ctx, org, eventPurchase, nil); err != nil {
		return err
	}

	gb := pricing.StorageGB(pl.Quotas.UploadSizeLimit)
	c, err := pricing.CalculateCapacity(p.cfg.PurchaseDays, gb)
	if err == nil {
		err = p.verifyFunds(ctx, c)
	}
	if err != nil {
		return p.failCreate(ctx, org, log, err)
	}

	log.InfoContext(ctx, "creating postage batch", logger.Depth(c.Depth), logger.Amount(c.Amount.String()))
	createCtx, cancel := context.WithTimeout(ctx, p.cfg.CreateTimeout)
	defer cancel()
	id, err := p.swarm.CreateBatch(createCtx, c.Amount, c.Depth)
	if err != nil {
		return p.failCreate(ctx, org, log, err)
	}

	if _, err := p.setStatus(ctx, org, eventCreated, &id); err != nil {
		return err
	}
	log.InfoContext(ctx, "postage batch created", logger.BatchID(id), logger.Depth(c.Depth))
	return nil
}

func (p *Provisioner) failCreate(ctx context.Context, org *organization.Organization, log *slog.Logger, cause error) error {
	p.metrics.ProvisioningFailed(opCreate)
	log.ErrorContext(ctx, "failed to create postage batch", logger.Error(cause))
	if _, err := p.setStatus(ctx, org, eventCreateFailed, nil); err != nil {
		log.ErrorContext(ctx, "failed to persist batch status", logger.Error(err))
	}
	if !errors.Is(cause, ErrInsufficientFunds) {
		p.alerts.SendAlert(ctx, fmt.Sprintf("Failed to create postage batch for organization %s", org.ID), cause)
	}
	return errors.Join(ErrProvisioningFailed, cause)
}

// TopUpAndDilute extends the organization's batch by RenewalDays and grows
// it to the depth the plan's storage quota needs. A failed top-up skips the
// dilution.
func (p *Provisioner) TopUpAndDilute(ctx context.Context, org *organization.Organization, pl *plan.Plan) error {
	id := org.BatchID()
	if id == "" {
		return ErrNotProvisioned
	}
	log := p.logger.With(logger.OrganizationID(org.ID), logger.PlanID(pl.ID), logger.BatchID(id))

	c, err := pricing.CalculateCapacity(p.cfg.RenewalDays, pricing.StorageGB(pl.Quotas.UploadSizeLimit))
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "topping up postage batch", logger.Amount(c.Amount.String()))
	if err := p.swarm.TopUpBatch(ctx, id, c.Amount); err != nil {
		return p.fail(ctx, org, log, opTopUp, eventTopUpFailed, "top up", err)
	}

	if p.needsDilute(ctx, id, c.Depth) {
		log.InfoContext(ctx, "diluting postage batch", logger.Depth(c.Depth))
		if err := p.swarm.DiluteBatch(ctx, id, c.Depth); err != nil {
			return p.fail(ctx, org, log, opDilute, eventDiluteFailed, "dilute", err)
		}
	}

	if org.BatchStatus() != organization.BatchCreated {
		if _, err := p.setStatus(ctx, org, eventRenewed, nil); err != nil {
			return err
		}
	}
	return nil
}

// needsDilute reports whether the batch is shallower than depth. When the
// batch cannot be read the dilution is attempted anyway.
func (p *Provisioner) needsDilute(ctx context.Context, id string, depth int) bool {
	b, err := p.swarm.GetBatch(ctx, id)
	if err != nil || b == nil {
		return true
	}
	return b.Depth < depth
}

func (p *Provisioner) fail(ctx context.Context, org *organization.Organization, log *slog.Logger, op string, ev event, verb string, cause error) error {
	p.metrics.ProvisioningFailed(op)
	log.ErrorContext(ctx, "failed to "+verb+" postage batch", logger.Error(cause))
	if _, err := p.setStatus(ctx, org, ev, nil); err != nil {
		log.ErrorContext(ctx, "failed to persist batch status", logger.Error(err))
	}
	p.alerts.SendAlert(ctx, fmt.Sprintf("Failed to %s postage batch %s of organization %s", verb, org.BatchID(), org.ID), cause)
	return errors.Join(ErrProvisioningFailed, cause)
}

// Release drops the organization's batch handle and marks it REMOVED.
// Releasing twice is a no-op. A batch still being created cannot be
// released yet: ErrCreationInProgress asks the caller to try again later.
func (p *Provisioner) Release(ctx context.Context, org *organization.Organization) error {
	switch org.BatchStatus() {
	case organization.BatchRemoved, statusNone:
		return nil
	case organization.BatchCreating:
		return ErrCreationInProgress
	}
	_, err := p.setStatus(ctx, org, eventRelease, nil)
	return err
}

// setStatus moves org along ev, storing batchID when given. org is updated
// in place with the persisted row.
func (p *Provisioner) setStatus(ctx context.Context, org *organization.Organization, ev event, batchID *string) (*organization.Organization, error) {
	to, err := transitions.Next(org.BatchStatus(), ev)
	if err != nil {
		return nil, errors.Join(ErrInvalidBatchState, err)
	}
	upd := organization.BatchUpdate{BatchID: batchID, Status: organization.StatusPtr(to)}
	if ev == eventRelease {
		upd.ClearBatch = true
	}
	updated, err := p.orgs.UpdateBatch(ctx, org.ID, upd)
	if err != nil {
		return nil, err
	}
	*org = *updated
	return updated, nil
}
