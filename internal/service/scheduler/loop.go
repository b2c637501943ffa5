package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
	"github.com/oshokin/arming-scheduler/internal/logger"
)

// ErrPassInProgress is returned when a pass is requested while one is running.
var ErrPassInProgress = errors.New("reconciliation pass already in progress")

// Reconciler is the engine driven by the loop.
type Reconciler interface {
	Reconcile(ctx context.Context, buildingID int64) (domain.Result, error)
	ReconcileAll(ctx context.Context) ([]domain.Result, error)
}

// Loop runs a reconciliation pass immediately on Start and then every interval.
type Loop struct {
	engine   Reconciler
	interval time.Duration

	// mu guards cancel.
	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// passing is set while a pass runs.
	passing atomic.Bool
}

// New creates a loop. It does nothing until Start is called.
func New(engine Reconciler, interval time.Duration) *Loop {
	return &Loop{
		engine:   engine,
		interval: interval,
	}
}

// Start begins periodic passes in the background. Calling Start on a running
// loop does nothing. The loop stops when ctx is cancelled or Stop is called.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return
	}

	ctx, l.cancel = context.WithCancel(logger.WithName(ctx, "scheduler"))

	l.wg.Add(1)

	go l.run(ctx)

	logger.InfoKV(ctx, "Scheduler started", "interval", l.interval)
}

// Stop ends the loop and waits for it. A pass in progress finishes the
// building it is on and stops before the next one. The loop may be started again.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	l.wg.Wait()
}

// ReconcileOne reconciles one building synchronously, waiting for any
// reconciliation of the same building in progress.
func (l *Loop) ReconcileOne(ctx context.Context, buildingID int64) (domain.Result, error) {
	result, err := l.engine.Reconcile(ctx, buildingID)
	if err != nil {
		logger.ErrorKV(ctx, "On-demand reconciliation failed", "building_id", buildingID, "error", err)

		return result, err
	}

	logger.InfoKV(ctx, "On-demand reconciliation done",
		"building_id", buildingID,
		"action", string(result.Action),
		"affected", result.Affected,
		"notified", result.Notified,
	)

	return result, nil
}

// RunPass runs one pass over all buildings now. It returns ErrPassInProgress
// instead of waiting when another pass is running.
func (l *Loop) RunPass(ctx context.Context) ([]domain.Result, error) {
	if !l.passing.CompareAndSwap(false, true) {
		return nil, ErrPassInProgress
	}
	defer l.passing.Store(false)

	started := time.Now()

	results, err := l.engine.ReconcileAll(ctx)

	summarize(ctx, results, time.Since(started))

	return results, err
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.tick(ctx)

	for {
		select {
		case <-ticker.C:
			l.tick(ctx)
		case <-ctx.Done():
			logger.Info(ctx, "Scheduler stopped")

			return
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	_, err := l.RunPass(ctx)

	switch {
	case err == nil:
	case errors.Is(err, ErrPassInProgress):
		logger.Warnf(ctx, "Skipping tick: %v", err)
	case errors.Is(err, context.Canceled):
		logger.Info(ctx, "Reconciliation pass stopped by shutdown")
	default:
		logger.ErrorKV(ctx, "Reconciliation pass failed", "error", err)
	}
}

func summarize(ctx context.Context, results []domain.Result, took time.Duration) {
	var (
		affected            int64
		notified, skipped   int
		failed, unscheduled int
	)

	for i := range results {
		affected += results[i].Affected
		notified += results[i].Notified

		switch {
		case results[i].Err != nil:
			failed++
		case results[i].Skipped == domain.SkipBusy:
			skipped++
		case results[i].Skipped == domain.SkipNoSchedule:
			unscheduled++
		}
	}

	logger.InfoKV(ctx, "Reconciliation pass done",
		"buildings", len(results),
		"affected", affected,
		"notified", notified,
		"busy", skipped,
		"unscheduled", unscheduled,
		"failed", failed,
		"took", took,
	)
}
