// Package plan turns a pipeline into an ordered list of execution steps,
// each carrying the quanta its task has to run.
package plan

import (
	"context"
	"log/slog"

	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/overrides"
	"github.com/spachava753/pipetask/internal/pipeline"
	"github.com/spachava753/pipetask/internal/repository"
	"github.com/spachava753/pipetask/internal/task"
)

// Step pairs a configured task instance with its quanta.
type Step struct {
	TaskName  string
	Label     string
	Config    any
	Overrides *overrides.List
	Task      task.PipelineTask
	Quanta    []*models.Quantum
}

// Builder builds execution plans.
type Builder struct {
	loader pipeline.ClassLoader
	repo   repository.Repository
}

// NewBuilder creates a plan builder. repo is consulted by tasks when a
// dataset pool has no entry for a type they need; it may be nil.
func NewBuilder(loader pipeline.ClassLoader, repo repository.Repository) *Builder {
	return &Builder{loader: loader, repo: repo}
}

// BuildPlan asks every task for its quanta. With requested outputs the
// pipeline is walked backward from the last task, otherwise forward from
// the first using the available inputs. Giving both is an error.
func (b *Builder) BuildPlan(ctx context.Context, p pipeline.Pipeline, available, requested models.DatasetPool) ([]Step, error) {
	if !available.Empty() && !requested.Empty() {
		return nil, &models.PlanningError{Err: models.ErrMixedSelectors}
	}
	if !requested.Empty() {
		return b.backward(ctx, p, requested)
	}
	return b.forward(ctx, p, available)
}

func (b *Builder) newStep(td *pipeline.TaskDef) (Step, error) {
	c, err := td.ResolveClass(b.loader)
	if err != nil {
		return Step{}, &models.PlanningError{Task: td.Label, Message: "resolving task class", Err: err}
	}
	t, err := c.NewPipelineTask(td.Config)
	if err != nil {
		return Step{}, &models.PlanningError{Task: td.Label, Err: err}
	}
	return Step{
		TaskName:  td.TaskName,
		Label:     td.Label,
		Config:    td.Config,
		Overrides: td.Overrides,
		Task:      t,
	}, nil
}

func (b *Builder) forward(ctx context.Context, p pipeline.Pipeline, available models.DatasetPool) ([]Step, error) {
	inputs := available.Clone()
	steps := make([]Step, 0, len(p))

	for _, td := range p {
		step, err := b.newStep(td)
		if err != nil {
			return nil, err
		}
		quanta, err := step.Task.DefineQuanta(ctx, inputs, models.DatasetPool{}, b.repo)
		if err != nil {
			return nil, &models.PlanningError{Task: td.Label, Message: "defining quanta", Err: err}
		}
		step.Quanta = quanta
		steps = append(steps, step)

		for _, q := range quanta {
			inputs.Merge(q.Outputs)
		}
		slog.Debug("planned step", "label", td.Label, "mode", "forward", "quanta", len(quanta))
	}
	return steps, nil
}

func (b *Builder) backward(ctx context.Context, p pipeline.Pipeline, requested models.DatasetPool) ([]Step, error) {
	outputs := requested.Clone()
	steps := make([]Step, len(p))

	for i := len(p) - 1; i >= 0; i-- {
		td := p[i]
		step, err := b.newStep(td)
		if err != nil {
			return nil, err
		}
		quanta, err := step.Task.DefineQuanta(ctx, models.DatasetPool{}, outputs, b.repo)
		if err != nil {
			return nil, &models.PlanningError{Task: td.Label, Message: "defining quanta", Err: err}
		}
		step.Quanta = quanta
		steps[i] = step

		for _, q := range quanta {
			outputs.Merge(q.Inputs)
		}
		slog.Debug("planned step", "label", td.Label, "mode", "backward", "quanta", len(quanta))
	}
	return steps, nil
}
