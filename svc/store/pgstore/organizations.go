package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/pg"
	"github.com/swarmdock/backend/svc/organization"
)

type Organizations struct{ db DB }

var _ organization.Store = (*Organizations)(nil)

const organizationColumns = `id, name, postage_batch_id, postage_batch_status, enabled, created_at, updated_at`

func (s *Organizations) Create(ctx context.Context, org *organization.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	if org.UpdatedAt.IsZero() {
		org.UpdatedAt = org.CreatedAt
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO organizations (id, name, postage_batch_id, postage_batch_status, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		org.ID, org.Name, org.PostageBatchID, statusText(org.PostageBatchStatus), org.Enabled, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (s *Organizations) Get(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	org, err := scanOrganization(s.db.QueryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, id))
	if pg.IsNotFoundError(err) {
		return nil, organization.ErrNotFound
	}
	return org, err
}

func (s *Organizations) UpdateBatch(ctx context.Context, id uuid.UUID, upd organization.BatchUpdate) (*organization.Organization, error) {
	org, err := scanOrganization(s.db.QueryRow(ctx, `
		UPDATE organizations SET
			postage_batch_id = CASE WHEN $2::boolean THEN NULL ELSE COALESCE($3::text, postage_batch_id) END,
			postage_batch_status = COALESCE($4::text, postage_batch_status),
			updated_at = now()
		WHERE id = $1
		RETURNING `+organizationColumns,
		id, upd.ClearBatch, upd.BatchID, statusText(upd.Status)))
	if pg.IsNotFoundError(err) {
		return nil, organization.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update organization batch: %w", err)
	}
	return org, nil
}

func (s *Organizations) ListWithBatch(ctx context.Context) ([]organization.Organization, error) {
	rows, err := s.db.Query(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE postage_batch_id IS NOT NULL ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return collect(rows, scanOrganization)
}

func scanOrganization(row scanner) (*organization.Organization, error) {
	var (
		org    organization.Organization
		status *string
	)
	if err := row.Scan(&org.ID, &org.Name, &org.PostageBatchID, &status, &org.Enabled, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	if status != nil {
		org.PostageBatchStatus = organization.StatusPtr(organization.BatchStatus(*status))
	}
	return &org, nil
}

func statusText(s *organization.BatchStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
