package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/overrides"
	"github.com/spachava753/pipetask/internal/plan"
	"github.com/spachava753/pipetask/internal/repository"
	"github.com/spachava753/pipetask/internal/task"
	"github.com/spachava753/pipetask/internal/telemetry"
)

const (
	// DefaultTimeout bounds one batch of invocations when no timeout is set.
	DefaultTimeout = 9999 * time.Second
	// DefaultPollInterval is how often a pool wait wakes up to report progress.
	DefaultPollInterval = time.Second
)

// Options configure a Dispatcher.
type Options struct {
	Name          string
	Processes     int
	Timeout       time.Duration
	PollInterval  time.Duration
	FailFast      bool
	ClobberConfig bool
	Registry      *task.Registry
	Repository    repository.Factory
	Metrics       *Metrics
	Logger        *slog.Logger
}

// Dispatcher configures tasks, runs their pre-call hook and fans their
// invocations out to workers.
type Dispatcher struct {
	name          string
	processes     int
	timeout       time.Duration
	pollInterval  time.Duration
	failFast      bool
	clobberConfig bool
	registry      *task.Registry
	repoFactory   repository.Factory
	metrics       *Metrics
	logger        *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("dispatcher requires a task registry")
	}
	if opts.Repository == nil {
		return nil, fmt.Errorf("dispatcher requires a repository factory")
	}

	d := &Dispatcher{
		name:          opts.Name,
		processes:     max(opts.Processes, 1),
		timeout:       opts.Timeout,
		pollInterval:  opts.PollInterval,
		failFast:      opts.FailFast,
		clobberConfig: opts.ClobberConfig,
		registry:      opts.Registry,
		repoFactory:   opts.Repository,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	if d.pollInterval <= 0 {
		d.pollInterval = DefaultPollInterval
	}
	if d.metrics == nil {
		d.metrics = NewMetrics(nil)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d, nil
}

// prepared is a step whose task has been resolved and configured.
type prepared struct {
	label   string
	name    string
	class   *task.Class
	inst    any
	cfgData []byte
	targets []Target
}

func (d *Dispatcher) newResult() *models.RunResult {
	return &models.RunResult{
		RunID:     uuid.NewString(),
		RunName:   d.name,
		StartedAt: time.Now(),
	}
}

func finish(result *models.RunResult) {
	result.EndedAt = time.Now()
	result.TotalDurationSec = result.EndedAt.Sub(result.StartedAt).Seconds()
}

// configure resolves a task name to a class of the wanted kind and builds
// its configuration: defaults first, then the overrides in order.
func (d *Dispatcher) configure(name, label string, want task.Kind, ovr *overrides.List) (*prepared, error) {
	class, err := d.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	if class.Kind != want {
		return nil, &models.TaskResolutionError{
			TaskName: name,
			Kind:     class.Kind.String(),
			Err:      fmt.Errorf("expected a %s task", want),
		}
	}

	cfg := class.NewConfig()
	if err := ovr.ApplyTo(cfg); err != nil {
		return nil, err
	}
	inst, err := class.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating task %s: %w", name, err)
	}
	cfgData, err := models.EncodeYAML(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config for %s: %w", name, err)
	}
	return &prepared{label: label, name: class.Name, class: class, inst: inst, cfgData: cfgData}, nil
}

// runPreCalls runs the pre-call hook once per prepared task. It returns
// false when a failure was tolerated and nothing may run.
func (d *Dispatcher) runPreCalls(ctx context.Context, logger *slog.Logger, steps []*prepared) (bool, error) {
	repo, err := d.repoFactory()
	if err != nil {
		return false, fmt.Errorf("opening repository: %w", err)
	}
	defer repo.Close()

	for _, p := range steps {
		err := d.precall(ctx, repo, p.label, p.cfgData, p.inst)
		if err == nil {
			continue
		}
		d.metrics.PreCallFailures.WithLabelValues(p.label).Inc()
		if d.failFast {
			return false, &models.ExecutionError{
				Type:     models.ErrTypePreCallFailed,
				TaskName: p.label,
				Err:      fmt.Errorf("%w: %w", models.ErrPreCallFailed, err),
			}
		}
		logger.Error("pre-call hook failed, nothing will run", "task", p.label, "error", err)
		return false, nil
	}
	return true, nil
}

// workers returns the parallelism for a batch of n targets.
func (d *Dispatcher) workers(logger *slog.Logger, p *prepared, n int) int {
	w := d.processes
	if w > 1 && p.class.SerialOnly {
		logger.Warn("task does not support parallel execution, using one worker", "task", p.label)
		w = 1
	}
	return max(min(w, n), 1)
}

func (d *Dispatcher) execute(ctx context.Context, logger *slog.Logger, result *models.RunResult, steps []*prepared) error {
	result.Executed = true
	for _, p := range steps {
		sr := models.StepResult{TaskName: p.name, Label: p.label, Quanta: len(p.targets)}
		result.TotalQuanta += len(p.targets)

		if len(p.targets) == 0 {
			logger.Warn("no data to process", "task", p.label)
			result.Steps = append(result.Steps, sr)
			continue
		}

		workers := d.workers(logger, p, len(p.targets))
		logger.Info("running task", "task", p.label, "invocations", len(p.targets), "workers", workers)
		results, completed, err := d.mapTargets(ctx, logger, p.label, p.targets, workers)
		sr.Results = results
		result.CompletedQuanta += completed
		result.Steps = append(result.Steps, sr)
		if err != nil {
			var env *models.Envelope
			if errors.As(err, &env) {
				return &models.ExecutionError{Type: models.ErrTypeInvocationFailed, TaskName: p.label, Err: err}
			}
			return err
		}
	}
	return nil
}

// Run dispatches an execution plan. Every step is resolved, configured
// and passed through the pre-call hook before any quantum runs; steps then
// run in plan order. A tolerated pre-call failure returns a result with
// Executed false and no error.
func (d *Dispatcher) Run(ctx context.Context, steps []plan.Step) (*models.RunResult, error) {
	result := d.newResult()
	defer finish(result)
	logger := d.logger.With("run_id", result.RunID)
	ctx = telemetry.WithLogger(ctx, logger)

	preparedSteps := make([]*prepared, 0, len(steps))
	for _, step := range steps {
		p, err := d.configure(step.TaskName, step.Label, task.KindPipeline, step.Overrides)
		if err != nil {
			return result, err
		}
		for _, q := range step.Quanta {
			data, err := models.EncodeQuantum(q)
			if err != nil {
				return result, err
			}
			p.targets = append(p.targets, Target{TaskName: p.name, Label: p.label, Config: p.cfgData, Quantum: data})
		}
		preparedSteps = append(preparedSteps, p)
	}

	ok, err := d.runPreCalls(ctx, logger, preparedSteps)
	if err != nil || !ok {
		return result, err
	}

	if err := d.execute(ctx, logger, result, preparedSteps); err != nil {
		return result, err
	}
	logger.Info("run finished", "quanta", result.TotalQuanta, "completed", result.CompletedQuanta)
	return result, nil
}

// RunLegacy dispatches a legacy task over a list of data items, one
// invocation per item.
func (d *Dispatcher) RunLegacy(ctx context.Context, name, label string, ovr *overrides.List, items []models.DataID) (*models.RunResult, error) {
	result := d.newResult()
	defer finish(result)
	logger := d.logger.With("run_id", result.RunID)
	ctx = telemetry.WithLogger(ctx, logger)

	if label == "" {
		label = task.ShortName(name)
	}
	p, err := d.configure(name, label, task.KindLegacy, ovr)
	if err != nil {
		return result, err
	}
	for _, id := range items {
		data, err := models.EncodeYAML(id)
		if err != nil {
			return result, fmt.Errorf("encoding data item: %w", err)
		}
		p.targets = append(p.targets, Target{TaskName: p.name, Label: label, Config: p.cfgData, Item: data})
	}

	ok, err := d.runPreCalls(ctx, logger, []*prepared{p})
	if err != nil || !ok {
		return result, err
	}
	return result, d.execute(ctx, logger, result, []*prepared{p})
}

// IsTaskError reports whether err carries an application-level task error.
func IsTaskError(err error) bool {
	var taskErr *models.TaskError
	return errors.As(err, &taskErr)
}
