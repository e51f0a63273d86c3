package pgstore_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/swarmdock/backend/db"
	"github.com/swarmdock/backend/pkg/logger"
	"github.com/swarmdock/backend/pkg/pg"
	"github.com/swarmdock/backend/svc/billing"
	"github.com/swarmdock/backend/svc/organization"
	"github.com/swarmdock/backend/svc/plan"
	"github.com/swarmdock/backend/svc/store/pgstore"
	"github.com/swarmdock/backend/svc/usage"
)

var (
	containerOnce sync.Once
	containerURL  string
	containerErr  error
	container     *tcpostgres.PostgresContainer
)

func TestMain(m *testing.M) {
	code := m.Run()
	if container != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_ = container.Terminate(ctx)
		cancel()
	}
	os.Exit(code)
}

// databaseURL returns DATABASE_URL when set and otherwise starts one
// Postgres container shared by the package's tests. Tests are skipped only
// when no container runtime is available.
func databaseURL(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	containerOnce.Do(func() {
		provider, err := testcontainers.ProviderDocker.GetProvider()
		if err != nil {
			containerErr = err
			return
		}
		_ = provider.Close()

		ctx := context.Background()
		container, containerErr = tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("swarmdock_test"),
			tcpostgres.WithUsername("swarmdock"),
			tcpostgres.WithPassword("swarmdock"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if containerErr != nil {
			return
		}
		containerURL, containerErr = container.ConnectionString(ctx, "sslmode=disable")
	})
	if containerErr != nil {
		t.Skipf("postgres container not available: %v", containerErr)
	}
	return containerURL
}

// newStore connects to the test database and applies the migrations.
func newStore(t *testing.T) *pgstore.Store {
	t.Helper()
	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString: databaseURL(t),
		MaxOpenConns:     16,
		MaxIdleConns:     1,
		RetryAttempts:    3,
		RetryInterval:    time.Second,
		MigrationsTable:  "schema_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pg.Migrate(ctx, pool, cfg, db.Migrations, db.MigrationsDir, logger.Discard()))
	return pgstore.New(pool)
}

func newOrg(t *testing.T, s *pgstore.Store) *organization.Organization {
	t.Helper()
	org := &organization.Organization{ID: uuid.New(), Name: "acme", Enabled: true}
	require.NoError(t, s.Organizations().Create(context.Background(), org))
	return org
}

func newPendingPlan(t *testing.T, s *pgstore.Store, orgID uuid.UUID) *plan.Plan {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := &plan.Plan{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Amount:         2880,
		Currency:       "EUR",
		Frequency:      "MONTH",
		Status:         plan.StatusPendingPayment,
		Quotas:         plan.Quotas{UploadSizeLimit: 1 << 36, DownloadSizeLimit: 1 << 37},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, s.Plans().Create(context.Background(), p))
	return p
}

func TestOrganizations(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	org := newOrg(t, s)

	_, err := s.Organizations().Get(ctx, uuid.New())
	assert.ErrorIs(t, err, organization.ErrNotFound)

	id := "batch-" + uuid.NewString()
	updated, err := s.Organizations().UpdateBatch(ctx, org.ID, organization.BatchUpdate{
		BatchID: &id,
		Status:  organization.StatusPtr(organization.BatchCreated),
	})
	require.NoError(t, err)
	assert.Equal(t, id, updated.BatchID())
	assert.Equal(t, organization.BatchCreated, updated.BatchStatus())

	updated, err = s.Organizations().UpdateBatch(ctx, org.ID, organization.BatchUpdate{
		Status: organization.StatusPtr(organization.BatchFailedToTopUp),
	})
	require.NoError(t, err)
	assert.Equal(t, id, updated.BatchID())

	updated, err = s.Organizations().UpdateBatch(ctx, org.ID, organization.BatchUpdate{
		ClearBatch: true,
		Status:     organization.StatusPtr(organization.BatchRemoved),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.PostageBatchID)
	assert.Equal(t, organization.BatchRemoved, updated.BatchStatus())
}

func TestPlans_Activate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	org := newOrg(t, s)
	now := time.Now().UTC()

	first := newPendingPlan(t, s, org.ID)
	second := newPendingPlan(t, s, org.ID)

	active, err := s.Plans().Activate(ctx, first.ID, now.AddDate(0, 1, 0), now)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusActive, active.Status)

	_, err = s.Plans().Activate(ctx, second.ID, now.AddDate(0, 1, 0), now)
	assert.ErrorIs(t, err, plan.ErrConflict)

	_, err = s.Plans().Activate(ctx, first.ID, now.AddDate(0, 1, 0), now)
	assert.ErrorIs(t, err, plan.ErrStaleState)

	got, err := s.Plans().GetActive(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = s.Plans().Transition(ctx, first.ID, plan.StatusPendingPayment, plan.StatusCancelled, "x", now)
	assert.ErrorIs(t, err, plan.ErrStaleState)

	cancelled, err := s.Plans().Transition(ctx, first.ID, plan.StatusActive, plan.StatusCancelled, "UPGRADED_TO: "+second.ID.String(), now)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusCancelled, cancelled.Status)

	none, err := s.Plans().GetActive(ctx, org.ID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestPlans_ConcurrentActivation(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	org := newOrg(t, s)
	now := time.Now().UTC()

	const n = 8
	pending := make([]*plan.Plan, n)
	for i := range pending {
		pending[i] = newPendingPlan(t, s, org.ID)
	}

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i, p := range pending {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = s.Plans().Activate(ctx, p.ID, now.AddDate(0, 1, 0), now)
		}()
	}
	close(start)
	wg.Wait()

	activated := 0
	for _, err := range errs {
		if err == nil {
			activated++
			continue
		}
		assert.ErrorIs(t, err, plan.ErrConflict)
	}
	assert.Equal(t, 1, activated)

	active, err := s.Plans().GetActive(ctx, org.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	winner := -1
	for i, err := range errs {
		if err == nil {
			winner = i
		}
	}
	require.GreaterOrEqual(t, winner, 0)
	assert.Equal(t, pending[winner].ID, active.ID)
}

func TestPlans_Renew(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	org := newOrg(t, s)
	now := time.Now().UTC().Truncate(time.Microsecond)

	p := newPendingPlan(t, s, org.ID)
	_, err := s.Plans().Activate(ctx, p.ID, now.AddDate(0, 1, 0), now)
	require.NoError(t, err)

	renewed, err := s.Plans().Renew(ctx, p.ID, now.AddDate(0, 2, 0), "stripe:invoice:in_1", now)
	require.NoError(t, err)
	assert.Equal(t, "stripe:invoice:in_1", renewed.RenewedBy)
	assert.True(t, now.AddDate(0, 2, 0).Equal(*renewed.PaidUntil))

	again, err := s.Plans().Renew(ctx, p.ID, now.AddDate(0, 3, 0), "stripe:invoice:in_1", now)
	require.NoError(t, err)
	assert.True(t, now.AddDate(0, 2, 0).Equal(*again.PaidUntil))

	_, err = s.Plans().Renew(ctx, uuid.New(), now, "stripe:invoice:in_2", now)
	assert.ErrorIs(t, err, plan.ErrPlanNotFound)
}

func TestPlans_MaturedCancellations(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	org := newOrg(t, s)
	now := time.Now().UTC()

	p := newPendingPlan(t, s, org.ID)
	_, err := s.Plans().Activate(ctx, p.ID, now.AddDate(0, 1, 0), now)
	require.NoError(t, err)
	_, err = s.Plans().SetCancelAt(ctx, p.ID, now.Add(time.Hour), now)
	require.NoError(t, err)

	contains := func(plans []plan.Plan) bool {
		for _, q := range plans {
			if q.ID == p.ID {
				return true
			}
		}
		return false
	}

	due, err := s.Plans().ListMaturedCancellations(ctx, now)
	require.NoError(t, err)
	assert.False(t, contains(due))

	due, err = s.Plans().ListMaturedCancellations(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, contains(due))
}

func TestPayments(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	org := newOrg(t, s)
	p := newPendingPlan(t, s, org.ID)
	now := time.Now().UTC()

	pay := &billing.Payment{
		ID:                    uuid.New(),
		MerchantTransactionID: uuid.NewString(),
		OrganizationID:        org.ID,
		PlanID:                p.ID,
		Amount:                2880,
		Currency:              "EUR",
		Status:                billing.PaymentPending,
		Provider:              "stripe",
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	require.NoError(t, s.Payments().Create(ctx, pay))

	dup := *pay
	dup.ID = uuid.New()
	assert.ErrorIs(t, s.Payments().Create(ctx, &dup), billing.ErrDuplicatePayment)

	changed, err := s.Payments().MarkSucceeded(ctx, pay.ID, now)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.Payments().MarkSucceeded(ctx, pay.ID, now)
	require.NoError(t, err)
	assert.False(t, changed)

	racing := *pay
	racing.ID = uuid.New()
	racing.MerchantTransactionID = uuid.NewString()
	require.NoError(t, s.Payments().Create(ctx, &racing))
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Payments().MarkSucceeded(ctx, racing.ID, now)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)

	_, err = s.Payments().MarkSucceeded(ctx, uuid.New(), now)
	assert.ErrorIs(t, err, billing.ErrPaymentNotFound)

	got, err := s.Payments().GetByMerchantTransactionID(ctx, pay.MerchantTransactionID)
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentSuccess, got.Status)

	_, err = s.Payments().GetByMerchantTransactionID(ctx, "missing")
	assert.ErrorIs(t, err, billing.ErrPaymentNotFound)

	require.NoError(t, s.Notifications().Save(ctx, &billing.Notification{
		ID: uuid.New(), Provider: "stripe", EventID: "evt_1", Type: "invoice.paid",
		Body: []byte(`{"id":"evt_1"}`), CreatedAt: now,
	}))
}

func TestUsage(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	org := newOrg(t, s)
	key := usage.Key{OrganizationID: org.ID, Period: usage.LifetimePeriod, Type: usage.MetricUploadedBytes}

	missing, err := s.Usage().Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, missing)

	m, err := s.Usage().GetOrCreate(ctx, key, 8192)
	require.NoError(t, err)
	again, err := s.Usage().GetOrCreate(ctx, key, 1)
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID)
	assert.Equal(t, int64(8192), again.Available)

	m, err = s.Usage().Consume(ctx, m.ID, 4096)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), m.Used)

	_, err = s.Usage().Consume(ctx, m.ID, 8192)
	assert.ErrorIs(t, err, usage.ErrQuotaExceeded)

	m, err = s.Usage().Increment(ctx, m.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4106), m.Used)

	m, err = s.Usage().Upsert(ctx, key, 1<<30, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4106), m.Used)

	zero := int64(0)
	m, err = s.Usage().Upsert(ctx, key, 0, &zero)
	require.NoError(t, err)
	assert.Zero(t, m.Used)
	assert.Zero(t, m.Available)

	list, err := s.Usage().List(ctx, org.ID, usage.LifetimePeriod, "2026-07")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, usage.MetricUploadedBytes, list[0].Type)
}

func TestUsage_ConcurrentConsume(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	org := newOrg(t, s)
	key := usage.Key{OrganizationID: org.ID, Period: usage.LifetimePeriod, Type: usage.MetricUploadedBytes}

	m, err := s.Usage().GetOrCreate(ctx, key, 10*4096)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		consumed int
		exceeded int
	)
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Usage().Consume(ctx, m.ID, 4096)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				consumed++
			case errors.Is(err, usage.ErrQuotaExceeded):
				exceeded++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, consumed)
	assert.Equal(t, 15, exceeded)
	final, err := s.Usage().Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, final.Available, final.Used)
}
