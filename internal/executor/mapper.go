package executor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spachava753/pipetask/internal/models"
)

// mapTargets runs every target and returns their results in submission
// order along with the number that succeeded. With one worker targets run
// one after another in the caller's goroutine, otherwise on a bounded pool.
// Either way the batch must finish before the dispatcher timeout. A failed
// batch still returns one slot per target, nil where the invocation did
// not complete.
func (d *Dispatcher) mapTargets(ctx context.Context, logger *slog.Logger, label string, targets []Target, workers int) ([]any, int, error) {
	batchCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if workers <= 1 {
		return d.mapSerial(batchCtx, label, targets)
	}
	return d.mapPool(batchCtx, logger, label, targets, workers)
}

func (d *Dispatcher) mapSerial(ctx context.Context, label string, targets []Target) ([]any, int, error) {
	results := make([]any, len(targets))
	for i, t := range targets {
		if err := ctx.Err(); err != nil {
			return results, i, d.batchError(ctx, label)
		}
		res, err := d.invoke(ctx, t)
		if err != nil {
			if ctx.Err() != nil {
				return results, i, d.batchError(ctx, label)
			}
			return results, i, err
		}
		results[i] = res
	}
	return results, len(targets), nil
}

func (d *Dispatcher) mapPool(ctx context.Context, logger *slog.Logger, label string, targets []Target, workers int) ([]any, int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	// Workers may still be writing after an early return, so results is
	// only touched under mu and callers get a copy.
	var mu sync.Mutex
	results := make([]any, len(targets))
	snapshot := func() []any {
		mu.Lock()
		defer mu.Unlock()
		return append([]any(nil), results...)
	}
	var completed atomic.Int64
	done := make(chan error, 1)

	// Feeder: Go blocks once the limit is reached.
	go func() {
		for i, t := range targets {
			i, t := i, t
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				res, err := d.invoke(gctx, t)
				if err != nil {
					return err
				}
				mu.Lock()
				results[i] = res
				mu.Unlock()
				completed.Add(1)
				return nil
			})
		}
		done <- g.Wait()
	}()

	// Wait in bounded slices so an interrupt or the deadline is noticed
	// even while every worker is busy.
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			n := int(completed.Load())
			if err != nil && ctx.Err() != nil {
				return snapshot(), n, d.batchError(ctx, label)
			}
			return snapshot(), n, err
		case <-ctx.Done():
			// Workers still running see ctx cancelled; whatever they produce
			// from here on is not reported.
			return snapshot(), int(completed.Load()), d.batchError(ctx, label)
		case <-ticker.C:
			logger.Debug("waiting for invocations", "task", label, "completed", completed.Load(), "total", len(targets))
		}
	}
}

// batchError converts the batch context's end into an ExecutionError.
func (d *Dispatcher) batchError(ctx context.Context, label string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		d.metrics.BatchTimeouts.Inc()
		return &models.ExecutionError{
			Type:     models.ErrTypeBatchTimeout,
			TaskName: label,
			Message:  d.timeout.String(),
			Err:      models.ErrBatchTimeout,
		}
	}
	return &models.ExecutionError{
		Type:     models.ErrTypeCancelled,
		TaskName: label,
		Err:      models.ErrCancelled,
	}
}
