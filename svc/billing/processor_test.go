package billing_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmdock/backend/pkg/alert/alerttest"
	"github.com/swarmdock/backend/pkg/bzz"
	"github.com/swarmdock/backend/pkg/logger"
	"github.com/swarmdock/backend/pkg/payment"
	"github.com/swarmdock/backend/pkg/redis"
	"github.com/swarmdock/backend/pkg/swarm"
	"github.com/swarmdock/backend/svc/billing"
	"github.com/swarmdock/backend/svc/capacity"
	"github.com/swarmdock/backend/svc/organization"
	"github.com/swarmdock/backend/svc/plan"
	"github.com/swarmdock/backend/svc/pricing"
	"github.com/swarmdock/backend/svc/store/memstore"
	"github.com/swarmdock/backend/svc/usage"
)

const gib = int64(1) << 30

var now = time.Date(2026, 7, 9, 8, 0, 0, 0, time.UTC)

// fakeProvider accepts the signature "valid" and reads the event as JSON.
type fakeProvider struct {
	mu       sync.Mutex
	requests []payment.CheckoutRequest
}

func (p *fakeProvider) Name() string            { return "fake" }
func (p *fakeProvider) SignatureHeader() string { return "X-Fake-Signature" }

func (p *fakeProvider) InitPayment(_ context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return &payment.Checkout{URL: "https://pay.example.com/" + req.MerchantTransactionID}, nil
}

func (p *fakeProvider) VerifyAndParseEvent(_ context.Context, payload []byte, signature string) (*payment.Event, error) {
	if signature != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	var ev payment.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, payment.ErrInvalidPayload
	}
	ev.Provider = p.Name()
	ev.Raw = payload
	return &ev, nil
}

func (p *fakeProvider) lastRequest() payment.CheckoutRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

type fakeSwarm struct {
	mu       sync.Mutex
	topUpErr error
	depths   map[string]int
	created  int
	toppedUp int
	diluted  []int
}

func (f *fakeSwarm) CreateBatch(_ context.Context, _ *big.Int, depth int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	f.depths[id] = depth
	f.created++
	return id, nil
}

func (f *fakeSwarm) TopUpBatch(context.Context, string, *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.topUpErr != nil {
		return f.topUpErr
	}
	f.toppedUp++
	return nil
}

func (f *fakeSwarm) DiluteBatch(_ context.Context, id string, depth int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.depths[id] = depth
	f.diluted = append(f.diluted, depth)
	return nil
}

func (f *fakeSwarm) GetBatch(_ context.Context, id string) (*swarm.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.depths[id]
	if !ok {
		return nil, swarm.ErrBatchNotFound
	}
	return &swarm.Batch{BatchID: id, Depth: d}, nil
}

func (f *fakeSwarm) WalletBalance(context.Context) (bzz.Amount, error) {
	return bzz.FromBZZ(1_000_000), nil
}

var errTransient = errors.New("transient db error")

// failOnce makes the next call fail with errTransient once armed.
type failOnce struct {
	mu    sync.Mutex
	armed bool
}

func (f *failOnce) arm() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = true
}

func (f *failOnce) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.armed {
		return nil
	}
	f.armed = false
	return errTransient
}

type flakyUsage struct {
	billing.Usage
	failOnce
}

func (u *flakyUsage) UpgradeCurrentMetrics(ctx context.Context, orgID uuid.UUID, uploadLimit, downloadLimit int64) error {
	if err := u.fail(); err != nil {
		return err
	}
	return u.Usage.UpgradeCurrentMetrics(ctx, orgID, uploadLimit, downloadLimit)
}

type flakyOrganizations struct {
	billing.Organizations
	failOnce
}

func (o *flakyOrganizations) Get(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	if err := o.fail(); err != nil {
		return nil, err
	}
	return o.Organizations.Get(ctx, id)
}

type flakyPayments struct {
	billing.PaymentStore
	failOnce
}

func (s *flakyPayments) Create(ctx context.Context, p *billing.Payment) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.PaymentStore.Create(ctx, p)
}

type eventCounter struct {
	mu     sync.Mutex
	events []string
}

func (c *eventCounter) PaymentEvent(provider, eventType, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, provider+"/"+eventType+"/"+result)
}

func (c *eventCounter) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

type env struct {
	db       *memstore.DB
	provider *fakeProvider
	swarm    *fakeSwarm
	alerts   *alerttest.Recorder
	events   *eventCounter
	plans    *plan.Service
	usage    *usage.Engine
	proc     *billing.Processor
	org      *organization.Organization
}

// newEnv wires a processor over memstore. wrap may replace dependencies
// before the processor is built.
func newEnv(t *testing.T, wrap ...func(*billing.Deps)) *env {
	t.Helper()
	clock := func() time.Time { return now }
	e := &env{
		db:       memstore.New(),
		provider: &fakeProvider{},
		swarm:    &fakeSwarm{depths: map[string]int{}},
		alerts:   &alerttest.Recorder{},
		events:   &eventCounter{},
	}
	log := logger.Discard()

	e.plans = plan.NewService(e.db.Plans(), plan.WithClock(clock), plan.WithAlerts(e.alerts), plan.WithLogger(log))
	e.usage = usage.NewEngine(e.db.Usage(), e.plans, usage.WithClock(clock), usage.WithLogger(log))
	prov := capacity.NewProvisioner(capacity.DefaultConfig(), e.swarm, e.db.Organizations(),
		capacity.WithAlerts(e.alerts), capacity.WithLogger(log))
	prices, err := pricing.DefaultPriceList()
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	deps := billing.Deps{
		Providers:     payment.NewRegistry(e.provider),
		Payments:      e.db.Payments(),
		Notifications: e.db.Notifications(),
		Plans:         e.plans,
		Usage:         e.usage,
		Capacity:      prov,
		Organizations: e.db.Organizations(),
		Prices:        prices,
	}
	for _, w := range wrap {
		w(&deps)
	}

	e.proc = billing.NewProcessor(
		billing.Config{Provider: "fake", ProvisionTimeout: time.Minute},
		deps,
		billing.WithDeduplicator(redis.NewDeduplicator(client, redis.Config{KeyPrefix: "test:"})),
		billing.WithAlerts(e.alerts),
		billing.WithMetrics(e.events),
		billing.WithClock(clock),
		billing.WithLogger(log),
	)

	e.org = &organization.Organization{ID: uuid.New(), Name: "acme", Enabled: true, CreatedAt: now}
	require.NoError(t, e.db.Organizations().Create(context.Background(), e.org))
	return e
}

func (e *env) deliver(t *testing.T, ev payment.Event) error {
	t.Helper()
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	err = e.proc.HandleProviderNotification(context.Background(), "fake", body, "valid")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.proc.Wait(ctx))
	return err
}

// checkout starts a subscription and returns the provider request.
func (e *env) checkout(t *testing.T, storage, bandwidth int) payment.CheckoutRequest {
	t.Helper()
	_, err := e.proc.InitSubscription(context.Background(),
		billing.Subscriber{OrganizationID: e.org.ID, Email: "owner@example.com"}, storage, bandwidth)
	require.NoError(t, err)
	return e.provider.lastRequest()
}

// subscribe runs a checkout to completion and returns its merchant
// transaction id and plan.
func (e *env) subscribe(t *testing.T, storage, bandwidth int) (string, *plan.Plan) {
	t.Helper()
	ctx := context.Background()
	req := e.checkout(t, storage, bandwidth)

	require.NoError(t, e.deliver(t, payment.Event{
		ID:                    "evt_" + req.MerchantTransactionID,
		Type:                  payment.EventCheckoutCompleted,
		MerchantTransactionID: req.MerchantTransactionID,
	}))
	p, err := e.plans.GetPlan(ctx, req.PlanID)
	require.NoError(t, err)
	return req.MerchantTransactionID, p
}

func (e *env) orgState(t *testing.T) *organization.Organization {
	t.Helper()
	org, err := e.db.Organizations().Get(context.Background(), e.org.ID)
	require.NoError(t, err)
	return org
}

func TestInitSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	url, err := e.proc.InitSubscription(ctx, billing.Subscriber{OrganizationID: e.org.ID, Email: "owner@example.com"}, 64, 128)
	require.NoError(t, err)

	req := e.provider.lastRequest()
	assert.Equal(t, "https://pay.example.com/"+req.MerchantTransactionID, url)
	assert.Equal(t, int64(2880), req.AmountMinor)
	assert.Equal(t, "EUR", req.Currency)
	assert.Equal(t, "64-128", req.TierKey)
	assert.Equal(t, "owner@example.com", req.Email)

	p, err := e.plans.GetPlan(ctx, req.PlanID)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusPendingPayment, p.Status)
	assert.Equal(t, 64*gib, p.Quotas.UploadSizeLimit)
	assert.Equal(t, 128*gib, p.Quotas.DownloadSizeLimit)

	pay, err := e.db.Payments().GetByMerchantTransactionID(ctx, req.MerchantTransactionID)
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentPending, pay.Status)
	assert.Equal(t, int64(2880), pay.Amount)

	_, err = e.proc.InitSubscription(ctx, billing.Subscriber{OrganizationID: e.org.ID}, 5, 128)
	assert.ErrorIs(t, err, pricing.ErrUnknownTier)

	_, err = e.proc.InitSubscription(ctx, billing.Subscriber{}, 64, 128)
	assert.ErrorIs(t, err, billing.ErrInvalidRequest)
}

func TestCheckoutCompleted_FreshPurchase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	tx, p := e.subscribe(t, 4, 128)
	assert.Equal(t, plan.StatusActive, p.Status)
	require.NotNil(t, p.PaidUntil)
	assert.Equal(t, now.AddDate(0, 1, 0), *p.PaidUntil)

	pay, err := e.db.Payments().GetByMerchantTransactionID(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentSuccess, pay.Status)

	org := e.orgState(t)
	assert.Equal(t, organization.BatchCreated, org.BatchStatus())
	assert.NotEmpty(t, org.BatchID())
	assert.Equal(t, 1, e.swarm.created)

	metrics, err := e.usage.ListCurrent(ctx, e.org.ID)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, 4*gib, metrics[0].Available)
	assert.Equal(t, 128*gib, metrics[1].Available)

	assert.Len(t, e.db.Notifications().All(), 1)
}

func TestCheckoutCompleted_Idempotent(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	tx, p := e.subscribe(t, 4, 128)

	t.Run("same event id is dropped", func(t *testing.T) {
		require.NoError(t, e.deliver(t, payment.Event{
			ID: "evt_" + tx, Type: payment.EventCheckoutCompleted, MerchantTransactionID: tx,
		}))
		assert.Equal(t, 1, e.swarm.created)
		assert.Empty(t, e.alerts.Alerts())
	})

	t.Run("new event id for a settled checkout", func(t *testing.T) {
		require.NoError(t, e.deliver(t, payment.Event{
			ID: "evt_retry", Type: payment.EventCheckoutCompleted, MerchantTransactionID: tx,
		}))
		assert.Equal(t, 1, e.swarm.created)
		assert.True(t, e.alerts.Contains("must be PENDING_PAYMENT"))

		again, err := e.plans.GetPlan(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, plan.StatusActive, again.Status)
	})
}

func TestCheckoutCompleted_Upgrade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	_, old := e.subscribe(t, 4, 128)
	_, upgraded := e.subscribe(t, 64, 256)

	assert.Equal(t, plan.StatusActive, upgraded.Status)
	prev, err := e.plans.GetPlan(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusCancelled, prev.Status)
	assert.Equal(t, "UPGRADED_TO: "+upgraded.ID.String(), prev.StatusReason)

	assert.Equal(t, 1, e.swarm.created)
	assert.Equal(t, 1, e.swarm.toppedUp)
	assert.Equal(t, []int{25}, e.swarm.diluted)

	metrics, err := e.usage.ListCurrent(ctx, e.org.ID)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, 64*gib, metrics[0].Available)
	assert.Equal(t, 256*gib, metrics[1].Available)
}

func TestCheckoutCompleted_Resume(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	completed := func(tx string) payment.Event {
		return payment.Event{ID: "evt_" + tx, Type: payment.EventCheckoutCompleted, MerchantTransactionID: tx}
	}

	t.Run("quota upgrade fails once", func(t *testing.T) {
		t.Parallel()
		var flaky *flakyUsage
		e := newEnv(t, func(d *billing.Deps) {
			flaky = &flakyUsage{Usage: d.Usage}
			d.Usage = flaky
		})
		req := e.checkout(t, 4, 128)
		flaky.arm()

		err := e.deliver(t, completed(req.MerchantTransactionID))
		require.ErrorIs(t, err, errTransient)
		pay, err := e.db.Payments().GetByMerchantTransactionID(ctx, req.MerchantTransactionID)
		require.NoError(t, err)
		assert.Equal(t, billing.PaymentPending, pay.Status)

		require.NoError(t, e.deliver(t, completed(req.MerchantTransactionID)))

		p, err := e.plans.GetPlan(ctx, req.PlanID)
		require.NoError(t, err)
		assert.Equal(t, plan.StatusActive, p.Status)
		assert.Equal(t, 1, e.swarm.created)
		assert.Equal(t, organization.BatchCreated, e.orgState(t).BatchStatus())

		metrics, err := e.usage.ListCurrent(ctx, e.org.ID)
		require.NoError(t, err)
		require.Len(t, metrics, 2)
		assert.Equal(t, 4*gib, metrics[0].Available)

		pay, err = e.db.Payments().GetByMerchantTransactionID(ctx, req.MerchantTransactionID)
		require.NoError(t, err)
		assert.Equal(t, billing.PaymentSuccess, pay.Status)
		assert.False(t, e.alerts.Contains("must be PENDING_PAYMENT"))
	})

	t.Run("organization lookup fails once", func(t *testing.T) {
		t.Parallel()
		var flaky *flakyOrganizations
		e := newEnv(t, func(d *billing.Deps) {
			flaky = &flakyOrganizations{Organizations: d.Organizations}
			d.Organizations = flaky
		})
		req := e.checkout(t, 4, 128)
		flaky.arm()

		err := e.deliver(t, completed(req.MerchantTransactionID))
		require.ErrorIs(t, err, errTransient)
		p, err := e.plans.GetPlan(ctx, req.PlanID)
		require.NoError(t, err)
		assert.Equal(t, plan.StatusPendingPayment, p.Status)

		require.NoError(t, e.deliver(t, completed(req.MerchantTransactionID)))
		p, err = e.plans.GetPlan(ctx, req.PlanID)
		require.NoError(t, err)
		assert.Equal(t, plan.StatusActive, p.Status)
		assert.Equal(t, 1, e.swarm.created)
		assert.Equal(t, organization.BatchCreated, e.orgState(t).BatchStatus())
	})
}

func renewal(tx, invoice string) payment.Event {
	return payment.Event{
		ID:                    "evt_" + invoice,
		Type:                  payment.EventInvoicePaid,
		MerchantTransactionID: tx,
		InvoiceID:             invoice,
		BillingReason:         payment.BillingReasonSubscriptionCycle,
		AmountPaid:            2880,
		Currency:              "eur",
	}
}

func TestInvoicePaid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("initial invoice is skipped", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		tx, p := e.subscribe(t, 4, 128)

		require.NoError(t, e.deliver(t, payment.Event{
			ID: "evt_in_1", Type: payment.EventInvoicePaid, MerchantTransactionID: tx,
			InvoiceID: "in_1", BillingReason: payment.BillingReasonSubscriptionCreate,
		}))
		assert.Len(t, e.db.Payments().ForPlan(p.ID), 1)
		assert.Equal(t, 0, e.swarm.toppedUp)
	})

	t.Run("renewal extends and tops up", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		tx, p := e.subscribe(t, 4, 128)

		require.NoError(t, e.deliver(t, renewal(tx, "in_2")))

		renewed, err := e.plans.GetPlan(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, now.AddDate(0, 2, 0), *renewed.PaidUntil)

		payments := e.db.Payments().ForPlan(p.ID)
		require.Len(t, payments, 2)
		for _, pay := range payments {
			assert.Equal(t, billing.PaymentSuccess, pay.Status)
		}
		assert.Equal(t, 1, e.swarm.toppedUp)

		// same invoice under a new event id
		again := renewal(tx, "in_2")
		again.ID = "evt_other"
		require.NoError(t, e.deliver(t, again))
		renewed, err = e.plans.GetPlan(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, now.AddDate(0, 2, 0), *renewed.PaidUntil)
		assert.Len(t, e.db.Payments().ForPlan(p.ID), 2)
		assert.Equal(t, 1, e.swarm.toppedUp)
	})

	t.Run("failed top-up skips dilute", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		tx, _ := e.subscribe(t, 4, 128)
		e.swarm.mu.Lock()
		e.swarm.topUpErr = swarm.ErrRequestFailed
		e.swarm.mu.Unlock()

		require.NoError(t, e.deliver(t, renewal(tx, "in_3")))

		assert.Equal(t, organization.BatchFailedToTopUp, e.orgState(t).BatchStatus())
		assert.Empty(t, e.swarm.diluted)
		assert.True(t, e.alerts.Contains("Failed to top up"))
	})

	t.Run("payment write fails once", func(t *testing.T) {
		t.Parallel()
		var flaky *flakyPayments
		e := newEnv(t, func(d *billing.Deps) {
			flaky = &flakyPayments{PaymentStore: d.Payments}
			d.Payments = flaky
		})
		tx, p := e.subscribe(t, 4, 128)
		flaky.arm()

		require.ErrorIs(t, e.deliver(t, renewal(tx, "in_5")), errTransient)
		assert.Equal(t, 0, e.swarm.toppedUp)

		require.NoError(t, e.deliver(t, renewal(tx, "in_5")))
		renewed, err := e.plans.GetPlan(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, now.AddDate(0, 2, 0), *renewed.PaidUntil)
		assert.Len(t, e.db.Payments().ForPlan(p.ID), 2)
		assert.Equal(t, 1, e.swarm.toppedUp)
	})

	t.Run("plan no longer active", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		tx, p := e.subscribe(t, 4, 128)
		_, err := e.plans.CancelPlan(ctx, e.org.ID, p.ID, "test")
		require.NoError(t, err)

		require.NoError(t, e.deliver(t, renewal(tx, "in_6")))
		assert.True(t, e.alerts.Contains("no longer active"))
		assert.Len(t, e.db.Payments().ForPlan(p.ID), 2)
		assert.Equal(t, 0, e.swarm.toppedUp)
	})

	t.Run("unknown original payment", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		err := e.deliver(t, renewal("missing", "in_4"))
		assert.ErrorIs(t, err, billing.ErrPaymentNotFound)
	})
}

func TestHandleProviderNotification_Rejects(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	err := e.proc.HandleProviderNotification(ctx, "fake", []byte(`{}`), "forged")
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	assert.Empty(t, e.db.Notifications().All())

	err = e.proc.HandleProviderNotification(ctx, "paypal", []byte(`{}`), "valid")
	assert.ErrorIs(t, err, payment.ErrUnknownProvider)

	err = e.proc.HandleProviderNotification(ctx, "fake", []byte(`{"ID":"evt_x","Type":"checkout.completed"}`), "valid")
	assert.ErrorIs(t, err, billing.ErrMissingReference)
}

func TestHandleProviderNotification_UnhandledType(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	require.NoError(t, e.deliver(t, payment.Event{ID: "evt_refund", Type: payment.EventType("refund.created")}))
	assert.Equal(t, []string{"fake/refund.created/ignored"}, e.events.all())
	assert.Len(t, e.db.Notifications().All(), 1)
	assert.Equal(t, 0, e.swarm.created)
}

func TestCancelSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.proc.CancelSubscription(ctx, e.org.ID)
	assert.ErrorIs(t, err, plan.ErrNoActivePlan)

	_, p := e.subscribe(t, 4, 128)
	cancelled, err := e.proc.CancelSubscription(ctx, e.org.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, cancelled.ID)
	assert.Equal(t, *p.PaidUntil, *cancelled.CancelAt)
	assert.Equal(t, plan.StatusActive, cancelled.Status)
}
