package plan_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmdock/backend/pkg/alert/alerttest"
	"github.com/swarmdock/backend/pkg/logger"
	"github.com/swarmdock/backend/svc/plan"
	"github.com/swarmdock/backend/svc/store/memstore"
)

var (
	now   = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	terms = plan.Terms{
		Amount:   2880,
		Currency: "EUR",
		Quotas:   plan.Quotas{UploadSizeLimit: 64 << 30, DownloadSizeLimit: 128 << 30},
	}
)

func newService(t *testing.T) (*plan.Service, *alerttest.Recorder) {
	t.Helper()
	alerts := &alerttest.Recorder{}
	svc := plan.NewService(memstore.New().Plans(),
		plan.WithClock(func() time.Time { return now }),
		plan.WithAlerts(alerts),
		plan.WithLogger(logger.Discard()),
	)
	return svc, alerts
}

func TestActivatePlan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, alerts := newService(t)
	orgID := uuid.New()

	active, err := svc.GetActivePlan(ctx, orgID)
	require.NoError(t, err)
	assert.Nil(t, active)

	first, err := svc.CreatePendingPlan(ctx, orgID, terms)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusPendingPayment, first.Status)
	assert.Equal(t, "MONTH", first.Frequency)

	activated, err := svc.ActivatePlan(ctx, orgID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusActive, activated.Status)
	require.NotNil(t, activated.PaidUntil)
	assert.Equal(t, time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC), *activated.PaidUntil)

	second, err := svc.CreatePendingPlan(ctx, orgID, terms)
	require.NoError(t, err)
	_, err = svc.ActivatePlan(ctx, orgID, second.ID)
	assert.ErrorIs(t, err, plan.ErrConflict)
	assert.True(t, alerts.Contains(second.ID.String()))

	_, err = svc.ActivatePlan(ctx, orgID, first.ID)
	assert.ErrorIs(t, err, plan.ErrInvalidStatus)

	_, err = svc.ActivatePlan(ctx, uuid.New(), second.ID)
	assert.ErrorIs(t, err, plan.ErrPlanNotFound)
}

func TestActivatePlan_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(t)
	orgID := uuid.New()

	const n = 8
	ids := make([]uuid.UUID, n)
	for i := range ids {
		p, err := svc.CreatePendingPlan(ctx, orgID, terms)
		require.NoError(t, err)
		ids[i] = p.ID
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if _, err := svc.ActivatePlan(ctx, orgID, id); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestCancelPlan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(t)
	orgID := uuid.New()

	p, err := svc.CreatePendingPlan(ctx, orgID, terms)
	require.NoError(t, err)
	_, err = svc.ActivatePlan(ctx, orgID, p.ID)
	require.NoError(t, err)

	cancelled, err := svc.CancelPlan(ctx, orgID, p.ID, "UPGRADED_TO: x")
	require.NoError(t, err)
	assert.Equal(t, plan.StatusCancelled, cancelled.Status)
	assert.Equal(t, "UPGRADED_TO: x", cancelled.StatusReason)

	_, err = svc.CancelPlan(ctx, orgID, p.ID, "again")
	assert.ErrorIs(t, err, plan.ErrInvalidStatus)
}

func TestScheduleCancellationOfActivePlan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(t)
	orgID := uuid.New()

	_, err := svc.ScheduleCancellationOfActivePlan(ctx, orgID)
	assert.ErrorIs(t, err, plan.ErrNoActivePlan)

	p, err := svc.CreatePendingPlan(ctx, orgID, terms)
	require.NoError(t, err)
	p, err = svc.ActivatePlan(ctx, orgID, p.ID)
	require.NoError(t, err)

	scheduled, err := svc.ScheduleCancellationOfActivePlan(ctx, orgID)
	require.NoError(t, err)
	require.NotNil(t, scheduled.CancelAt)
	assert.Equal(t, *p.PaidUntil, *scheduled.CancelAt)
	assert.Equal(t, plan.StatusActive, scheduled.Status)

	matured, err := svc.ListMaturedCancellations(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, matured)

	matured, err = svc.ListMaturedCancellations(ctx, p.PaidUntil.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, matured, 1)
	assert.Equal(t, p.ID, matured[0].ID)
}

func TestExtendPaidUntil(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(t)
	orgID := uuid.New()

	p, err := svc.CreatePendingPlan(ctx, orgID, terms)
	require.NoError(t, err)
	_, err = svc.ExtendPaidUntil(ctx, p.ID, "in_1")
	assert.ErrorIs(t, err, plan.ErrInvalidStatus)

	_, err = svc.ActivatePlan(ctx, orgID, p.ID)
	require.NoError(t, err)

	extended, err := svc.ExtendPaidUntil(ctx, p.ID, "in_1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 15, 10, 0, 0, 0, time.UTC), *extended.PaidUntil)

	// same renewal applied again
	again, err := svc.ExtendPaidUntil(ctx, p.ID, "in_1")
	require.NoError(t, err)
	assert.Equal(t, *extended.PaidUntil, *again.PaidUntil)

	next, err := svc.ExtendPaidUntil(ctx, p.ID, "in_2")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC), *next.PaidUntil)

	active, err := svc.ListActivePlans(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCreatePendingPlan_Invalid(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	_, err := svc.CreatePendingPlan(context.Background(), uuid.Nil, terms)
	assert.ErrorIs(t, err, plan.ErrInvalidTerms)
	_, err = svc.CreatePendingPlan(context.Background(), uuid.New(), plan.Terms{Currency: "EUR"})
	assert.ErrorIs(t, err, plan.ErrInvalidTerms)
}
