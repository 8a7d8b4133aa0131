package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrLoopClosed is returned when the event loop is closed
var ErrLoopClosed = fmt.Errorf("event loop closed")

// Work represents work to be executed on the event loop.
// All engine state is touched only through work items.
type Work func(ctx context.Context)

// Loop runs queued work on a single goroutine.
type Loop struct {
	workQueue chan Work

	// closing is closed to signal senders to stop
	closing   chan struct{}
	closeOnce sync.Once
}

// NewLoop creates a loop with the given queue capacity.
func NewLoop(size int) *Loop {
	if size <= 0 {
		size = 256
	}
	return &Loop{
		workQueue: make(chan Work, size),
		closing:   make(chan struct{}),
	}
}

// Close signals the loop to stop accepting new work.
// Safe to call concurrently with Do/DoSync.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.closing)
	})
}

func (l *Loop) closed() bool {
	select {
	case <-l.closing:
		return true
	default:
		return false
	}
}

// Do queues work without blocking.
// Returns false if the loop is closing, the queue is full, or ctx is cancelled.
func (l *Loop) Do(ctx context.Context, work Work) bool {
	if l.closed() {
		log.Warn().Msg("Event loop closing, dropping work")
		return false
	}
	select {
	case <-l.closing:
		log.Warn().Msg("Event loop closing, dropping work")
		return false
	case <-ctx.Done():
		log.Warn().Msg("Context cancelled, dropping work")
		return false
	case l.workQueue <- work:
		return true
	default:
		log.Warn().Msg("Event loop queue full, dropping work")
		return false
	}
}

// DoSync queues work and blocks until there's space.
func (l *Loop) DoSync(ctx context.Context, work Work) error {
	if l.closed() {
		return ErrLoopClosed
	}
	select {
	case <-l.closing:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	case l.workQueue <- work:
		return nil
	}
}

// DoSyncWithResult queues work, waits for space, and waits for the result.
func (l *Loop) DoSyncWithResult(ctx context.Context, work func(context.Context) error) error {
	done := make(chan error, 1)
	wrappedWork := Work(func(c context.Context) {
		done <- work(c)
	})

	select {
	case <-l.closing:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	case l.workQueue <- wrappedWork:
	}

	select {
	case <-l.closing:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Post queues a function without a context. Used by surface backends.
func (l *Loop) Post(fn func()) {
	l.Do(context.Background(), func(context.Context) { fn() })
}

// Run executes work until ctx is cancelled or the loop is closed.
// It is the ONLY goroutine that touches engine state.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.drainQueue(ctx)
			return
		case <-l.closing:
			l.drainQueue(ctx)
			return
		case work := <-l.workQueue:
			l.executeWork(ctx, work)
		}
	}
}

// drainQueue processes any remaining work in the queue before exiting
func (l *Loop) drainQueue(ctx context.Context) {
	for {
		select {
		case work := <-l.workQueue:
			l.executeWork(ctx, work)
		default:
			return
		}
	}
}

// executeWork runs a single work item with panic recovery
func (l *Loop) executeWork(ctx context.Context, work Work) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Msg("Event loop work panicked - loop continuing")
		}
	}()
	work(ctx)
}
