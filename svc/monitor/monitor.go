package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/logger"
	"github.com/swarmdock/backend/pkg/requestid"
	"github.com/swarmdock/backend/pkg/scheduler"
	"github.com/swarmdock/backend/pkg/swarm"
	"github.com/swarmdock/backend/svc/capacity"
)

const (
	JobExpiration   = "expiration_monitor"
	JobWallet       = "wallet_monitor"
	JobCancellation = "cancellation_sweeper"

	// CancellationReason is recorded on plans ended by the sweeper.
	CancellationReason = "CANCELLATION_SCHEDULED"
)

const (
	secondsPerYear = 31_536_000
	secondsPerDay  = 86_400
)

// Monitors reconcile billing state with the storage network.
type Monitors struct {
	cfg    Config
	plans  Plans
	orgs   Organizations
	node   Node
	cap    Releaser
	usage  UsageResetter
	gauges Gauges
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Monitors)

func WithGauges(g Gauges) Option {
	return func(m *Monitors) {
		if g != nil {
			m.gauges = g
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitors) {
		if now != nil {
			m.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Monitors) {
		if l != nil {
			m.logger = l
		}
	}
}

func New(cfg Config, plans Plans, orgs Organizations, node Node, releaser Releaser, usage UsageResetter, opts ...Option) *Monitors {
	if plans == nil || orgs == nil || node == nil || releaser == nil || usage == nil {
		panic("monitor: missing dependency")
	}
	m := &Monitors{
		cfg:    cfg,
		plans:  plans,
		orgs:   orgs,
		node:   node,
		cap:    releaser,
		usage:  usage,
		gauges: noopGauges{},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logger.Component("monitor"))
	return m
}

// Register adds the three jobs to s. Every run gets its own correlation id.
func (m *Monitors) Register(s *scheduler.Scheduler) error {
	jobs := []struct {
		name string
		spec string
		fn   scheduler.JobFunc
	}{
		{JobExpiration, m.cfg.ExpirationSchedule, m.CheckExpiration},
		{JobWallet, m.cfg.WalletSchedule, m.CheckWallet},
		{JobCancellation, m.cfg.CancellationSchedule, m.SweepCancellations},
	}
	for _, j := range jobs {
		sched, err := scheduler.Parse(j.spec)
		if err != nil {
			return fmt.Errorf("schedule of %s: %w", j.name, err)
		}
		if err := s.Add(j.name, sched, withRequestID(j.fn)); err != nil {
			return err
		}
	}
	return nil
}

func withRequestID(fn scheduler.JobFunc) scheduler.JobFunc {
	return func(ctx context.Context) error {
		return fn(requestid.WithContext(ctx, requestid.New("job")))
	}
}

// TTLDays converts a batch TTL to whole days within a year.
func TTLDays(ttlSeconds int64) int64 {
	return (ttlSeconds % secondsPerYear) / secondsPerDay
}

// CheckExpiration logs the remaining lifetime of every active plan's batch
// and warns about organizations that hold a batch without an active plan.
func (m *Monitors) CheckExpiration(ctx context.Context) error {
	log := m.logger.With(logger.Job(JobExpiration))

	plans, err := m.plans.ListActivePlans(ctx)
	if err != nil {
		return err
	}
	batches, err := m.node.ListBatches(ctx)
	if err != nil {
		return err
	}
	if len(plans) != len(batches) {
		log.WarnContext(ctx, "number of active plans and batches do not match",
			slog.Int("plans", len(plans)), slog.Int("batches", len(batches)))
	}

	byID := make(map[string]swarm.Batch, len(batches))
	for _, b := range batches {
		byID[b.BatchID] = b
	}

	var errs []error
	subscribed := make(map[uuid.UUID]bool, len(plans))
	for _, p := range plans {
		subscribed[p.OrganizationID] = true
		org, err := m.orgs.Get(ctx, p.OrganizationID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b, ok := byID[org.BatchID()]
		if !ok {
			log.WarnContext(ctx, "no batch on the node for organization",
				logger.OrganizationID(org.ID), logger.BatchID(org.BatchID()))
			continue
		}

		m.gauges.SetBatchTTL(b.BatchID, time.Duration(b.BatchTTL)*time.Second)
		days := TTLDays(b.BatchTTL)
		attrs := []any{
			logger.OrganizationID(org.ID),
			logger.BatchID(b.BatchID),
			slog.Int64("ttl", b.BatchTTL),
			slog.Int64("ttl_days", days),
			slog.Int("utilization", b.Utilization),
			logger.Amount(b.Amount),
		}
		if days > int64(m.cfg.TTLWarnDays) {
			log.InfoContext(ctx, "batch ttl", attrs...)
		} else {
			log.WarnContext(ctx, "batch close to expiry", attrs...)
		}
	}

	holders, err := m.orgs.ListWithBatch(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	for _, org := range holders {
		if !subscribed[org.ID] {
			log.WarnContext(ctx, "organization holds a batch without an active plan",
				logger.OrganizationID(org.ID), logger.BatchID(org.BatchID()),
				slog.String("status", string(org.BatchStatus())))
		}
	}
	return errors.Join(errs...)
}

// CheckWallet logs the node's wallet balance.
func (m *Monitors) CheckWallet(ctx context.Context) error {
	balance, err := m.node.WalletBalance(ctx)
	if err != nil {
		return err
	}
	m.gauges.SetWalletBalance(balance.Float64())
	m.logger.InfoContext(ctx, "wallet balance", logger.Job(JobWallet), slog.String("bzz", balance.ToBZZ(2)))
	return nil
}

// SweepCancellations ends plans whose scheduled cancellation has passed:
// the batch is released, the usage metrics reset and the plan cancelled.
// Plans whose batch is still being created are left for a later sweep.
func (m *Monitors) SweepCancellations(ctx context.Context) error {
	log := m.logger.With(logger.Job(JobCancellation))

	plans, err := m.plans.ListMaturedCancellations(ctx, m.now().UTC())
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "cancelling plans", slog.Int("count", len(plans)))

	var errs []error
	for _, p := range plans {
		err := m.cancel(ctx, log, p.OrganizationID, p.ID)
		if errors.Is(err, capacity.ErrCreationInProgress) {
			log.InfoContext(ctx, "postage batch still being created, cancellation deferred",
				logger.OrganizationID(p.OrganizationID), logger.PlanID(p.ID))
			continue
		}
		if err != nil {
			log.ErrorContext(ctx, "failed to cancel plan",
				logger.OrganizationID(p.OrganizationID), logger.PlanID(p.ID), logger.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
