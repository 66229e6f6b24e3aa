// Package task defines the capabilities a task implementation can offer,
// the class descriptor that builds task instances, and the registry that
// maps task names to classes.
package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/repository"
)

// PipelineTask is a task that declares its dataset types, splits its work
// into quanta and runs one quantum at a time.
type PipelineTask interface {
	InputDatasetTypes() []models.DatasetType
	OutputDatasetTypes() []models.DatasetType
	// DefineQuanta partitions the work given the available inputs and the
	// requested outputs. Either pool may be empty, in which case the task
	// consults repo.
	DefineQuanta(ctx context.Context, inputs, outputs models.DatasetPool, repo repository.Repository) ([]*models.Quantum, error)
	RunQuantum(ctx context.Context, q *models.Quantum, repo repository.Repository) (any, error)
}

// LegacyTask processes one data item per invocation and has no notion of
// quanta.
type LegacyTask interface {
	RunDataItem(ctx context.Context, id models.DataID, repo repository.Repository) (any, error)
}

// SchemaWriter is implemented by tasks that persist output schemas before
// any invocation runs.
type SchemaWriter interface {
	Schemas() map[string]any
}

// Class builds configurations and instances of one task implementation.
type Class struct {
	Name string
	Kind Kind
	// SerialOnly forbids running more than one invocation at a time.
	SerialOnly bool
	NewConfig  func() any
	New        func(cfg any) (any, error)
}

// ShortName returns the part of the name after the last dot.
func (c *Class) ShortName() string {
	return ShortName(c.Name)
}

// ShortName returns the part of a dotted task name after the last dot.
func ShortName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// NewPipelineTask instantiates the class and asserts the pipeline capability.
func (c *Class) NewPipelineTask(cfg any) (PipelineTask, error) {
	inst, err := c.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating task %s: %w", c.Name, err)
	}
	pt, ok := inst.(PipelineTask)
	if !ok {
		return nil, fmt.Errorf("task %s is not a pipeline task", c.Name)
	}
	return pt, nil
}

// NewLegacyTask instantiates the class and asserts the legacy capability.
func (c *Class) NewLegacyTask(cfg any) (LegacyTask, error) {
	inst, err := c.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating task %s: %w", c.Name, err)
	}
	lt, ok := inst.(LegacyTask)
	if !ok {
		return nil, fmt.Errorf("task %s is not a legacy task", c.Name)
	}
	return lt, nil
}

// DatasetTypes returns the input and output dataset types a pipeline task
// declares for cfg.
func (c *Class) DatasetTypes(cfg any) (inputs, outputs []models.DatasetType, err error) {
	pt, err := c.NewPipelineTask(cfg)
	if err != nil {
		return nil, nil, err
	}
	return pt.InputDatasetTypes(), pt.OutputDatasetTypes(), nil
}
