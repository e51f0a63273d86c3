package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmdock/backend/pkg/logger"
	"github.com/swarmdock/backend/pkg/scheduler"
)

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestScheduler(clock *fakeClock, ticker *fakeTicker, opts ...scheduler.Option) *scheduler.Scheduler {
	base := []scheduler.Option{
		scheduler.WithLogger(logger.Discard()),
		scheduler.WithClock(clock.Now),
		scheduler.WithTicker(func(time.Duration) scheduler.Ticker { return ticker }),
	}
	return scheduler.New(append(base, opts...)...)
}

func TestScheduler_Add(t *testing.T) {
	t.Parallel()
	s := scheduler.New(scheduler.WithLogger(logger.Discard()))
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add("b", scheduler.Every(time.Minute), noop))
	require.NoError(t, s.Add("a", scheduler.Every(time.Minute), noop))
	assert.ErrorIs(t, s.Add("a", scheduler.Every(time.Minute), noop), scheduler.ErrJobAlreadyRegistered)
	assert.ErrorIs(t, s.Add("c", nil, noop), scheduler.ErrInvalidSchedule)
	assert.Equal(t, []string{"a", "b"}, s.Jobs())
}

func TestScheduler_StartWithoutJobs(t *testing.T) {
	t.Parallel()
	s := scheduler.New(scheduler.WithLogger(logger.Discard()))
	assert.ErrorIs(t, s.Start(context.Background()), scheduler.ErrSchedulerNotConfigured)
}

func TestScheduler_RunsDueJobs(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	ticker := &fakeTicker{ch: make(chan time.Time)}

	var observed atomic.Int32
	s := newTestScheduler(clock, ticker, scheduler.WithObserver(func(string, time.Duration, error) {
		observed.Add(1)
	}))

	var fast, slow atomic.Int32
	require.NoError(t, s.Add("fast", scheduler.Every(5*time.Minute), func(context.Context) error {
		fast.Add(1)
		return nil
	}))
	require.NoError(t, s.Add("slow", scheduler.Every(30*time.Minute), func(context.Context) error {
		slow.Add(1)
		return errors.New("boom")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	// Not due yet.
	ticker.ch <- clock.Now()
	clock.Advance(5 * time.Minute)
	ticker.ch <- clock.Now()
	assert.Eventually(t, func() bool { return fast.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), slow.Load())

	clock.Advance(25 * time.Minute)
	ticker.ch <- clock.Now()
	assert.Eventually(t, func() bool { return fast.Load() == 2 && slow.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(3), observed.Load())
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	ticker := &fakeTicker{ch: make(chan time.Time)}
	s := newTestScheduler(clock, ticker)

	release := make(chan struct{})
	var runs atomic.Int32
	require.NoError(t, s.Add("blocking", scheduler.Every(time.Minute), func(context.Context) error {
		runs.Add(1)
		<-release
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	clock.Advance(time.Minute)
	ticker.ch <- clock.Now()
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(time.Minute)
	ticker.ch <- clock.Now()
	close(release)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_RunNow(t *testing.T) {
	t.Parallel()
	s := scheduler.New(scheduler.WithLogger(logger.Discard()))

	require.NoError(t, s.Add("panics", scheduler.Every(time.Hour), func(context.Context) error {
		panic("unexpected")
	}))
	err := s.RunNow(context.Background(), "panics")
	assert.ErrorIs(t, err, scheduler.ErrJobPanicked)

	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), scheduler.ErrJobNotFound)
}

func TestParse(t *testing.T) {
	t.Parallel()
	from := time.Date(2026, 3, 10, 12, 2, 0, 0, time.UTC)

	tests := []struct {
		spec string
		next time.Time
	}{
		{"30m", from.Add(30 * time.Minute)},
		{"@every 10m", from.Add(10 * time.Minute)},
		{"*/5 * * * *", time.Date(2026, 3, 10, 12, 5, 0, 0, time.UTC)},
		{"@hourly", time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			t.Parallel()
			s, err := scheduler.Parse(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.next, s.Next(from))
			assert.NotEmpty(t, s.String())
		})
	}

	for _, bad := range []string{"", "-5m", "not a schedule", "* * *"} {
		_, err := scheduler.Parse(bad)
		assert.ErrorIs(t, err, scheduler.ErrInvalidSchedule, bad)
	}
}
