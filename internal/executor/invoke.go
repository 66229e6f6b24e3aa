package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/task"
	"github.com/spachava753/pipetask/internal/telemetry"
)

// Target is everything a worker needs for one invocation. It holds only
// serialized data so the worker shares nothing with the dispatcher: it
// rebuilds the task from the registry and opens its own repository handle.
type Target struct {
	TaskName string
	Label    string
	Config   []byte
	// Quantum is set for pipeline tasks, Item for legacy tasks.
	Quantum []byte
	Item    []byte
}

// invoke runs one target and normalizes its failure. Application errors
// (*models.TaskError) and envelopes pass through unchanged; anything else,
// panics included, is wrapped in a *models.Envelope with the stack.
func (d *Dispatcher) invoke(ctx context.Context, t Target) (result any, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &models.Envelope{
				Type:    fmt.Sprintf("%T", r),
				Message: fmt.Sprint(r),
				Trace:   string(debug.Stack()),
			}
			telemetry.FromContext(ctx).Warn("invocation panicked", "task", t.Label, "panic", r)
		}

		status := "success"
		var taskErr *models.TaskError
		switch {
		case err == nil:
		case errors.As(err, &taskErr):
			status = "task_error"
		default:
			status = "error"
		}
		d.metrics.Invocations.WithLabelValues(t.Label, status).Inc()
		d.metrics.Duration.WithLabelValues(t.Label).Observe(time.Since(start).Seconds())
	}()

	result, err = d.runTarget(ctx, t)
	if err != nil {
		err = d.normalize(ctx, t, err)
	}
	return result, err
}

func (d *Dispatcher) normalize(ctx context.Context, t Target, err error) error {
	var taskErr *models.TaskError
	if errors.As(err, &taskErr) {
		return err
	}
	var env *models.Envelope
	if errors.As(err, &env) {
		return err
	}

	trace := string(debug.Stack())
	telemetry.FromContext(ctx).Warn("unhandled invocation error", "task", t.Label, "error", err, "trace", trace)
	return &models.Envelope{
		Type:    rootTypeName(err),
		Message: err.Error(),
		Trace:   trace,
	}
}

// rootTypeName names the type of the innermost wrapped error.
func rootTypeName(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}

func (d *Dispatcher) runTarget(ctx context.Context, t Target) (any, error) {
	class, err := d.registry.Resolve(t.TaskName)
	if err != nil {
		return nil, err
	}
	cfg := class.NewConfig()
	if err := yaml.Unmarshal(t.Config, cfg); err != nil {
		return nil, fmt.Errorf("decoding config for %s: %w", t.TaskName, err)
	}

	repo, err := d.repoFactory()
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	defer repo.Close()

	switch class.Kind {
	case task.KindPipeline:
		q, err := models.DecodeQuantum(t.Quantum)
		if err != nil {
			return nil, err
		}
		pt, err := class.NewPipelineTask(cfg)
		if err != nil {
			return nil, err
		}
		return pt.RunQuantum(ctx, q, repo)
	case task.KindLegacy:
		var id models.DataID
		if err := yaml.Unmarshal(t.Item, &id); err != nil {
			return nil, fmt.Errorf("decoding data item: %w", err)
		}
		if id == nil {
			id = models.DataID{}
		}
		lt, err := class.NewLegacyTask(cfg)
		if err != nil {
			return nil, err
		}
		return lt.RunDataItem(ctx, id, repo)
	default:
		return nil, &models.TaskResolutionError{TaskName: t.TaskName, Kind: class.Kind.String()}
	}
}
