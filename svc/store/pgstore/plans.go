package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/pg"
	"github.com/swarmdock/backend/svc/plan"
)

type Plans struct{ db DB }

var _ plan.Store = (*Plans)(nil)

const planColumns = `id, organization_id, amount, currency, frequency, status, status_reason,
	upload_size_limit, upload_count_limit, download_size_limit, download_count_limit,
	paid_until, cancel_at, renewed_by, created_at, updated_at`

func (s *Plans) Create(ctx context.Context, p *plan.Plan) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO plans (`+planColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		p.ID, p.OrganizationID, p.Amount, p.Currency, p.Frequency, string(p.Status), p.StatusReason,
		p.Quotas.UploadSizeLimit, p.Quotas.UploadCountLimit, p.Quotas.DownloadSizeLimit, p.Quotas.DownloadCountLimit,
		p.PaidUntil, p.CancelAt, p.RenewedBy, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (s *Plans) Get(ctx context.Context, id uuid.UUID) (*plan.Plan, error) {
	p, err := scanPlan(s.db.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
	if pg.IsNotFoundError(err) {
		return nil, plan.ErrPlanNotFound
	}
	return p, err
}

func (s *Plans) GetActive(ctx context.Context, orgID uuid.UUID) (*plan.Plan, error) {
	p, err := scanPlan(s.db.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plans WHERE organization_id = $1 AND status = 'ACTIVE'`, orgID))
	if pg.IsNotFoundError(err) {
		return nil, nil
	}
	return p, err
}

// Activate relies on the NOT EXISTS guard for the common case and on the
// partial unique index for two activations racing each other.
func (s *Plans) Activate(ctx context.Context, id uuid.UUID, paidUntil, now time.Time) (*plan.Plan, error) {
	p, err := scanPlan(s.db.QueryRow(ctx, `
		UPDATE plans SET status = 'ACTIVE', paid_until = $2, updated_at = $3
		WHERE id = $1
			AND status = 'PENDING_PAYMENT'
			AND NOT EXISTS (
				SELECT 1 FROM plans a
				WHERE a.organization_id = plans.organization_id AND a.status = 'ACTIVE'
			)
		RETURNING `+planColumns,
		id, paidUntil, now))
	switch {
	case err == nil:
		return p, nil
	case pg.IsDuplicateKeyError(err):
		return nil, plan.ErrConflict
	case !pg.IsNotFoundError(err):
		return nil, fmt.Errorf("activate plan: %w", err)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != plan.StatusPendingPayment {
		return nil, plan.ErrStaleState
	}
	return nil, plan.ErrConflict
}

func (s *Plans) Transition(ctx context.Context, id uuid.UUID, from, to plan.Status, reason string, now time.Time) (*plan.Plan, error) {
	p, err := scanPlan(s.db.QueryRow(ctx, `
		UPDATE plans SET status = $3, status_reason = $4, updated_at = $5
		WHERE id = $1 AND status = $2
		RETURNING `+planColumns,
		id, string(from), string(to), reason, now))
	if pg.IsNotFoundError(err) {
		if _, gerr := s.Get(ctx, id); gerr != nil {
			return nil, gerr
		}
		return nil, plan.ErrStaleState
	}
	if err != nil {
		return nil, fmt.Errorf("transition plan: %w", err)
	}
	return p, nil
}

func (s *Plans) SetCancelAt(ctx context.Context, id uuid.UUID, cancelAt, now time.Time) (*plan.Plan, error) {
	p, err := scanPlan(s.db.QueryRow(ctx,
		`UPDATE plans SET cancel_at = $2, updated_at = $3 WHERE id = $1 RETURNING `+planColumns,
		id, cancelAt, now))
	if pg.IsNotFoundError(err) {
		return nil, plan.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update plan cancel_at: %w", err)
	}
	return p, nil
}

// Renew skips the write when ref is already recorded and returns the
// stored row instead.
func (s *Plans) Renew(ctx context.Context, id uuid.UUID, paidUntil time.Time, ref string, now time.Time) (*plan.Plan, error) {
	p, err := scanPlan(s.db.QueryRow(ctx, `
		UPDATE plans SET paid_until = $2, renewed_by = $3, updated_at = $4
		WHERE id = $1 AND ($3 = '' OR renewed_by <> $3)
		RETURNING `+planColumns,
		id, paidUntil, ref, now))
	if pg.IsNotFoundError(err) {
		return s.Get(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("renew plan: %w", err)
	}
	return p, nil
}

func (s *Plans) ListActive(ctx context.Context) ([]plan.Plan, error) {
	return s.list(ctx, `SELECT `+planColumns+` FROM plans WHERE status = 'ACTIVE' ORDER BY created_at`)
}

func (s *Plans) ListMaturedCancellations(ctx context.Context, now time.Time) ([]plan.Plan, error) {
	return s.list(ctx, `
		SELECT `+planColumns+` FROM plans
		WHERE status = 'ACTIVE' AND cancel_at IS NOT NULL AND cancel_at <= $1
		ORDER BY cancel_at`, now)
}

func (s *Plans) list(ctx context.Context, query string, args ...any) ([]plan.Plan, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return collect(rows, scanPlan)
}

func scanPlan(row scanner) (*plan.Plan, error) {
	var (
		p      plan.Plan
		status string
	)
	err := row.Scan(
		&p.ID, &p.OrganizationID, &p.Amount, &p.Currency, &p.Frequency, &status, &p.StatusReason,
		&p.Quotas.UploadSizeLimit, &p.Quotas.UploadCountLimit, &p.Quotas.DownloadSizeLimit, &p.Quotas.DownloadCountLimit,
		&p.PaidUntil, &p.CancelAt, &p.RenewedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = plan.Status(status)
	return &p, nil
}
