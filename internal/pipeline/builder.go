package pipeline

import (
	"fmt"

	"github.com/spachava753/pipetask/internal/overrides"
	"github.com/spachava753/pipetask/internal/task"
)

// Builder assembles a pipeline through a sequence of editing actions.
// Labels are unique within the pipeline.
type Builder struct {
	loader ClassLoader
	tasks  Pipeline
}

// NewBuilder creates an empty builder that resolves task names via loader.
func NewBuilder(loader ClassLoader) *Builder {
	return &Builder{loader: loader}
}

// Pipeline returns the assembled pipeline.
func (b *Builder) Pipeline() Pipeline {
	return append(Pipeline(nil), b.tasks...)
}

func (b *Builder) find(label string) (*TaskDef, int, error) {
	idx := b.tasks.LabelIndex(label)
	if idx < 0 {
		return nil, -1, fmt.Errorf("no task with label %q", label)
	}
	return b.tasks[idx], idx, nil
}

// NewTask appends a task with its default configuration. An empty label
// defaults to the short task name.
func (b *Builder) NewTask(name, label string) error {
	if b.loader == nil {
		return fmt.Errorf("adding task %s: no task loader", name)
	}
	c, err := b.loader.LoadClass(name)
	if err != nil {
		return fmt.Errorf("adding task %s: %w", name, err)
	}
	if label == "" {
		label = task.ShortName(c.Name)
	}
	if b.tasks.LabelIndex(label) >= 0 {
		return fmt.Errorf("adding task %s: label %q already in use", name, label)
	}

	b.tasks = append(b.tasks, &TaskDef{
		TaskName:  c.Name,
		Label:     label,
		Config:    c.NewConfig(),
		Overrides: &overrides.List{},
		Class:     c,
	})
	return nil
}

// DeleteTask removes the task with the given label.
func (b *Builder) DeleteTask(label string) error {
	_, idx, err := b.find(label)
	if err != nil {
		return err
	}
	b.tasks = append(b.tasks[:idx], b.tasks[idx+1:]...)
	return nil
}

// MoveTask moves a task to position idx. Negative positions count from
// the end, so -1 moves the task last.
func (b *Builder) MoveTask(label string, idx int) error {
	td, from, err := b.find(label)
	if err != nil {
		return err
	}
	if idx < 0 {
		idx += len(b.tasks)
	}
	if idx < 0 || idx >= len(b.tasks) {
		return fmt.Errorf("moving task %q: position out of range", label)
	}

	rest := append(Pipeline(nil), b.tasks[:from]...)
	rest = append(rest, b.tasks[from+1:]...)
	moved := append(Pipeline(nil), rest[:idx]...)
	moved = append(moved, td)
	b.tasks = append(moved, rest[idx:]...)
	return nil
}

// Relabel changes a task label.
func (b *Builder) Relabel(label, newLabel string) error {
	td, _, err := b.find(label)
	if err != nil {
		return err
	}
	if newLabel == "" {
		return fmt.Errorf("relabeling task %q: empty label", label)
	}
	if newLabel != label && b.tasks.LabelIndex(newLabel) >= 0 {
		return fmt.Errorf("relabeling task %q: label %q already in use", label, newLabel)
	}
	td.Label = newLabel
	return nil
}

// ConfigOverride applies a "field=value" assignment to a task config.
func (b *Builder) ConfigOverride(label, assignment string) error {
	field, value, err := overrides.ParseAssignment(assignment)
	if err != nil {
		return err
	}
	return b.ConfigValue(label, field, value)
}

// ConfigValue assigns value to the dotted field of a task config.
func (b *Builder) ConfigValue(label, field string, value any) error {
	return b.override(label, func(l *overrides.List) { l.AddValue(field, value) })
}

// ConfigFile loads a config file onto a task config.
func (b *Builder) ConfigFile(label, path string) error {
	return b.override(label, func(l *overrides.List) { l.AddFile(path) })
}

// NameSubstitution formats template names in a task config.
func (b *Builder) NameSubstitution(label, mapping string) error {
	return b.override(label, func(l *overrides.List) { l.AddNameSubstitution(mapping) })
}

// override applies a single override to the task config and records it
// so the same edit can be replayed on a fresh configuration.
func (b *Builder) override(label string, add func(*overrides.List)) error {
	td, _, err := b.find(label)
	if err != nil {
		return err
	}
	var one overrides.List
	add(&one)
	if err := one.ApplyTo(td.Config); err != nil {
		return err
	}
	add(td.Overrides)
	return nil
}
