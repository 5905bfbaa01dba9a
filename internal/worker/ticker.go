// Package worker runs the periodic background jobs: the provisioning poller
// and the lifecycle monitor.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/getsentry/sentry-go"
)

// Job is one pass of a periodic worker
type Job func(ctx context.Context) error

// Ticker runs a job on a fixed interval. Passes never overlap: a tick that
// fires while the previous pass is still running is dropped.
type Ticker struct {
	name     string
	interval time.Duration
	job      Job
	logger   *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTicker(name string, interval time.Duration, job Job, log *logger.Logger) *Ticker {
	return &Ticker{
		name:     name,
		interval: interval,
		job:      job,
		logger:   log,
	}
}

// Start launches the loop. The first pass runs immediately.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, t.cancel = context.WithCancel(context.WithoutCancel(ctx))
	t.done = make(chan struct{})
	go t.loop(ctx)

	t.logger.Infow("worker started", "worker", t.name, "interval", t.interval.String())
}

// Stop cancels the loop and waits for the running pass to return
func (t *Ticker) Stop(ctx context.Context) error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel = nil
	t.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		t.logger.Infow("worker stopped", "worker", t.name)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Ticker) loop(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runOnce(ctx)
		}
	}
}

func (t *Ticker) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Errorw("worker pass panicked", "worker", t.name, "panic", r)
			sentry.CurrentHub().Recover(r)
		}
	}()

	start := time.Now()
	if err := t.job(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		t.logger.Errorw("worker pass failed", "worker", t.name, "error", err)
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("worker", t.name)
			sentry.CaptureException(err)
		})
		return
	}
	t.logger.Debugw("worker pass completed", "worker", t.name, "elapsed_ms", time.Since(start).Milliseconds())
}
