package async

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Future holds the result of a function running in another goroutine.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

// Await blocks until the function returns.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout gives up after timeout with ErrTimeout. The function
// keeps running.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		var zero U
		return zero, ErrTimeout
	}
}

func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Async runs fn(ctx, param) in a new goroutine. A panic in fn is turned
// into an error wrapping ErrPanic.
func Async[T any, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}

		f.result, f.err = fn(ctx, param)
	}()

	return f
}

// Tracker launches detached background work and remembers it so the
// process can drain it on shutdown. Work started through a Tracker
// outlives the request that triggered it but not the Tracker's timeout.
type Tracker struct {
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewTracker(timeout time.Duration) *Tracker {
	return &Tracker{timeout: timeout}
}

// Go runs fn detached from ctx cancellation. Context values (request id,
// trace span) are kept.
func Go[U any](t *Tracker, ctx context.Context, fn func(context.Context) (U, error)) *Future[U] {
	t.wg.Add(1)
	return Async(context.WithoutCancel(ctx), fn, func(ctx context.Context, fn func(context.Context) (U, error)) (U, error) {
		defer t.wg.Done()
		if t.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t.timeout)
			defer cancel()
		}
		return fn(ctx)
	})
}

// Wait blocks until all started work is done or ctx expires.
func (t *Tracker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
