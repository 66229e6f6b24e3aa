// Package pipeline holds the ordered list of task definitions that make
// up a pipeline, the checks and ordering of their data dependencies, and
// the editing actions used to assemble one.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/overrides"
	"github.com/spachava753/pipetask/internal/task"
)

// ClassLoader resolves a task name to its class.
type ClassLoader interface {
	LoadClass(name string) (*task.Class, error)
}

// TaskDef is one pipeline entry: a task name, its label, the overrides
// that produced its configuration and the configuration itself. Class is
// resolved lazily and memoized.
type TaskDef struct {
	TaskName  string
	Label     string
	Config    any
	Overrides *overrides.List
	Class     *task.Class
}

// ResolveClass returns the memoized class, loading it through loader the
// first time.
func (t *TaskDef) ResolveClass(loader ClassLoader) (*task.Class, error) {
	if t.Class != nil {
		return t.Class, nil
	}
	if loader == nil {
		return nil, fmt.Errorf("task %s: %w", t.TaskName, models.ErrMissingTaskLoader)
	}
	c, err := loader.LoadClass(t.TaskName)
	if err != nil {
		return nil, err
	}
	t.Class = c
	return c, nil
}

// Pipeline is an ordered sequence of task definitions.
type Pipeline []*TaskDef

// LabelIndex returns the position of the task with the given label, or -1.
func (p Pipeline) LabelIndex(label string) int {
	for i, td := range p {
		if td.Label == label {
			return i
		}
	}
	return -1
}

func (p Pipeline) String() string {
	labels := make([]string, len(p))
	for i, td := range p {
		labels[i] = td.Label
	}
	return "Pipeline(" + strings.Join(labels, ", ") + ")"
}
