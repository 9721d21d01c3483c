// Package iterator provides lazy, pull-based iterators with bounded
// buffering, driven by a single-threaded cooperative scheduler.
//
// All iterator methods must be called from the goroutine that runs the
// scheduler (or before it starts). Blocking work such as HTTP requests is
// started with Scheduler.Go, and its continuation is executed back on the
// scheduler goroutine, so iterator state never needs locking.
package iterator

import (
	"context"
	"errors"
)

// ErrStalled is returned by Run when nothing is queued or outstanding but
// the completion condition has not been reached.
var ErrStalled = errors.New("iterator: scheduler stalled with no pending work")

// ErrClosed is returned by Run after the scheduler has been closed.
var ErrClosed = errors.New("iterator: scheduler closed")

// Scheduler is a cooperative event loop. Deferred tasks run in FIFO order;
// results of background work are delivered as continuations.
type Scheduler struct {
	queue   []func()
	results chan func()
	pending int
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler whose background work is bound to a
// fresh context that is cancelled by Close.
func NewScheduler() *Scheduler {
	return NewSchedulerContext(context.Background())
}

// NewSchedulerContext creates a scheduler whose background work context
// derives from parent.
func NewSchedulerContext(parent context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(parent)
	return &Scheduler{
		results: make(chan func(), 16),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Context returns the context handed to background work.
func (s *Scheduler) Context() context.Context {
	return s.ctx
}

// Defer queues fn to run on the scheduler goroutine after the current task.
func (s *Scheduler) Defer(fn func()) {
	s.queue = append(s.queue, fn)
}

// Go runs work on its own goroutine. The continuation work returns, if any,
// is executed on the scheduler goroutine. Work must honour ctx so that
// Close aborts it.
func (s *Scheduler) Go(work func(ctx context.Context) func()) {
	s.pending++
	go func() {
		cont := work(s.ctx)
		select {
		case s.results <- cont:
		case <-s.ctx.Done():
		}
	}()
}

// Pending reports the number of deferred tasks plus outstanding background
// operations.
func (s *Scheduler) Pending() int {
	return len(s.queue) + s.pending
}

// Run executes tasks until done reports true. It returns ErrStalled when
// done is false but no further progress is possible.
func (s *Scheduler) Run(ctx context.Context, done func() bool) error {
	for !done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.ctx.Err() != nil {
			return ErrClosed
		}
		if len(s.queue) > 0 {
			task := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			task()
			continue
		}
		if s.pending == 0 {
			return ErrStalled
		}
		select {
		case cont := <-s.results:
			s.pending--
			if cont != nil {
				cont()
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return ErrClosed
		}
	}
	return nil
}

// Drain runs until no tasks or background operations remain.
func (s *Scheduler) Drain(ctx context.Context) error {
	err := s.Run(ctx, func() bool { return s.Pending() == 0 })
	if errors.Is(err, ErrStalled) {
		return nil
	}
	return err
}

// Close cancels all background work. Pending continuations are dropped.
func (s *Scheduler) Close() {
	s.cancel()
}
