package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// JobFunc is the unit of work run on a schedule.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	schedule Schedule
	fn       JobFunc
	nextRun  time.Time
	running  bool
}

// Scheduler runs registered jobs in-process on their schedules. A job
// that is still running when it becomes due again is skipped for that
// round. Only one Scheduler instance per deployment is expected.
type Scheduler struct {
	mu        sync.Mutex
	jobs      map[string]*job
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
	newTicker func(time.Duration) Ticker
	observers []Observer
	wg        sync.WaitGroup
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:     make(map[string]*job),
		interval: 10 * time.Second,
		logger:   slog.Default(),
		now:      time.Now,
		newTicker: func(d time.Duration) Ticker {
			return timeTicker{t: time.NewTicker(d)}
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers fn under name. The first run happens one schedule period
// after Start, not immediately.
func (s *Scheduler) Add(name string, schedule Schedule, fn JobFunc) error {
	if schedule == nil || fn == nil {
		return fmt.Errorf("%w: job %q", ErrInvalidSchedule, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyRegistered, name)
	}
	s.jobs[name] = &job{name: name, schedule: schedule, fn: fn}

	s.logger.Info("registered periodic job",
		slog.String("job", name),
		slog.String("schedule", schedule.String()))

	return nil
}

// Jobs returns the registered job names in lexical order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start blocks until ctx is cancelled, then waits for running jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if len(s.jobs) == 0 {
		s.mu.Unlock()
		return ErrSchedulerNotConfigured
	}
	now := s.now()
	for _, j := range s.jobs {
		j.nextRun = j.schedule.Next(now)
	}
	s.mu.Unlock()

	ticker := s.newTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			s.wg.Wait()
			return nil
		case <-ticker.C():
			s.runDue(ctx)
		}
	}
}

func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	due := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.nextRun.After(now) {
			continue
		}
		j.nextRun = j.schedule.Next(now)
		if j.running {
			s.logger.Warn("periodic job still running, skipping round", slog.String("job", j.name))
			continue
		}
		j.running = true
		due = append(due, j)
	}
	s.mu.Unlock()

	for _, j := range due {
		s.wg.Add(1)
		go func(j *job) {
			defer s.wg.Done()
			defer s.finish(j)
			_ = s.execute(ctx, j)
		}(j)
	}
}

func (s *Scheduler) finish(j *job) {
	s.mu.Lock()
	j.running = false
	s.mu.Unlock()
}

// RunNow runs the named job synchronously, outside of its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.execute(ctx, j)
}

func (s *Scheduler) execute(ctx context.Context, j *job) (err error) {
	started := s.now()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(ErrJobPanicked, fmt.Errorf("%v", r))
		}
		took := s.now().Sub(started)
		if err != nil {
			s.logger.ErrorContext(ctx, "periodic job failed",
				slog.String("job", j.name),
				slog.Duration("duration", took),
				slog.Any("error", err))
		} else {
			s.logger.DebugContext(ctx, "periodic job finished",
				slog.String("job", j.name),
				slog.Duration("duration", took))
		}
		for _, o := range s.observers {
			o(j.name, took, err)
		}
	}()

	return j.fn(ctx)
}
