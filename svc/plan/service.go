package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/alert"
	"github.com/swarmdock/backend/pkg/logger"
)

// Service is the plan lifecycle manager.
type Service struct {
	store  Store
	alerts alert.Sender
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithAlerts(a alert.Sender) Option {
	return func(s *Service) {
		if a != nil {
			s.alerts = a
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService panics on a nil store.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("plan: Store is required")
	}
	s := &Service{store: store, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("plan"))
	if s.alerts == nil {
		s.alerts = alert.NewNotifier(0, alert.WithLogger(s.logger))
	}
	return s
}

// GetActivePlan returns (nil, nil) when the organization has no active plan.
func (s *Service) GetActivePlan(ctx context.Context, orgID uuid.UUID) (*Plan, error) {
	return s.store.GetActive(ctx, orgID)
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) CreatePendingPlan(ctx context.Context, orgID uuid.UUID, terms Terms) (*Plan, error) {
	if orgID == uuid.Nil {
		return nil, fmt.Errorf("%w: organization id is required", ErrInvalidTerms)
	}
	if terms.Amount <= 0 || terms.Currency == "" {
		return nil, fmt.Errorf("%w: amount and currency are required", ErrInvalidTerms)
	}
	if terms.Frequency == "" {
		terms.Frequency = "MONTH"
	}

	now := s.now().UTC()
	p := &Plan{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Amount:         terms.Amount,
		Currency:       terms.Currency,
		Frequency:      terms.Frequency,
		Status:         StatusPendingPayment,
		Quotas:         terms.Quotas,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	s.logger.InfoContext(ctx, "pending plan created",
		logger.OrganizationID(orgID), logger.PlanID(p.ID), slog.Int64("amount_minor", p.Amount))
	return p, nil
}

// ActivatePlan activates a pending plan and starts its first paid month.
// It fails with ErrConflict while another plan of the organization is
// active; the check and the write are a single store operation.
func (s *Service) ActivatePlan(ctx context.Context, orgID, planID uuid.UUID) (*Plan, error) {
	p, err := s.planOf(ctx, orgID, planID)
	if err != nil {
		return nil, err
	}
	if _, err := transitions.Next(p.Status, eventActivate); err != nil {
		return nil, errors.Join(ErrInvalidStatus, err)
	}

	now := s.now().UTC()
	activated, err := s.store.Activate(ctx, planID, now.AddDate(0, 1, 0), now)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			s.alerts.SendAlert(ctx, fmt.Sprintf("Cannot activate plan %s: organization %s already has an active plan", planID, orgID), err)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "plan activated",
		logger.OrganizationID(orgID), logger.PlanID(planID), slog.Time("paid_until", *activated.PaidUntil))
	return activated, nil
}

// CancelPlan cancels a pending or active plan immediately.
func (s *Service) CancelPlan(ctx context.Context, orgID, planID uuid.UUID, reason string) (*Plan, error) {
	p, err := s.planOf(ctx, orgID, planID)
	if err != nil {
		return nil, err
	}
	to, err := transitions.Next(p.Status, eventCancel)
	if err != nil {
		return nil, errors.Join(ErrInvalidStatus, err)
	}

	cancelled, err := s.store.Transition(ctx, planID, p.Status, to, reason, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "plan cancelled",
		logger.OrganizationID(orgID), logger.PlanID(planID), slog.String("reason", reason))
	return cancelled, nil
}

// ScheduleCancellationOfActivePlan lets the active plan run until the end
// of its paid period.
func (s *Service) ScheduleCancellationOfActivePlan(ctx context.Context, orgID uuid.UUID) (*Plan, error) {
	p, err := s.store.GetActive(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNoActivePlan
	}

	now := s.now().UTC()
	cancelAt := now
	if p.PaidUntil != nil && p.PaidUntil.After(now) {
		cancelAt = *p.PaidUntil
	}

	updated, err := s.store.SetCancelAt(ctx, p.ID, cancelAt, now)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "plan cancellation scheduled",
		logger.OrganizationID(orgID), logger.PlanID(p.ID), slog.Time("cancel_at", cancelAt))
	return updated, nil
}

// ExtendPaidUntil adds one billing period to an active plan. The period
// starts at the later of the current PaidUntil and now. ref names the
// renewal; a ref that was already applied leaves the plan as it is.
func (s *Service) ExtendPaidUntil(ctx context.Context, planID uuid.UUID, ref string) (*Plan, error) {
	p, err := s.store.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if ref != "" && p.RenewedBy == ref {
		return p, nil
	}
	if !p.IsActive() {
		return nil, fmt.Errorf("%w: plan %s is %s", ErrInvalidStatus, planID, p.Status)
	}

	now := s.now().UTC()
	from := now
	if p.PaidUntil != nil && p.PaidUntil.After(now) {
		from = *p.PaidUntil
	}
	return s.store.Renew(ctx, planID, from.AddDate(0, 1, 0), ref, now)
}

func (s *Service) ListActivePlans(ctx context.Context) ([]Plan, error) {
	return s.store.ListActive(ctx)
}

func (s *Service) ListMaturedCancellations(ctx context.Context, now time.Time) ([]Plan, error) {
	return s.store.ListMaturedCancellations(ctx, now)
}

func (s *Service) planOf(ctx context.Context, orgID, planID uuid.UUID) (*Plan, error) {
	p, err := s.store.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if p.OrganizationID != orgID {
		return nil, fmt.Errorf("%w: plan %s does not belong to organization %s", ErrPlanNotFound, planID, orgID)
	}
	return p, nil
}
