package monitor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/logger"
)

// cancel ends one matured plan. The plan is cancelled last so that it stays
// in the matured list until the batch is released and the metrics are
// reset; both of those steps are idempotent and simply run again on the
// next sweep.
func (m *Monitors) cancel(ctx context.Context, log *slog.Logger, orgID, planID uuid.UUID) error {
	org, err := m.orgs.Get(ctx, orgID)
	if err != nil {
		return err
	}
	log = log.With(logger.OrganizationID(orgID), logger.PlanID(planID))

	batchID := org.BatchID()
	if err := m.cap.Release(ctx, org); err != nil {
		return err
	}
	if batchID != "" {
		log.InfoContext(ctx, "postage batch released", logger.BatchID(batchID))
		m.gauges.ForgetBatch(batchID)
	}

	if err := m.usage.ResetCurrentMetrics(ctx, orgID); err != nil {
		return err
	}

	_, err = m.plans.CancelPlan(ctx, orgID, planID, CancellationReason)
	return err
}
