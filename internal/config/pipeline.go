package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/overrides"
	"github.com/spachava753/pipetask/internal/pipeline"
)

// BuildPipeline assembles the pipeline described by the run config's task
// list. Overrides are applied as each task is added, so a bad override is
// reported against its task. Relative override file paths are resolved
// against baseDir.
func BuildPipeline(cfg models.RunConfig, loader pipeline.ClassLoader, baseDir string) (pipeline.Pipeline, error) {
	b := pipeline.NewBuilder(loader)
	for i, ts := range cfg.Tasks {
		if err := b.NewTask(ts.Task, ts.Label); err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		// NewTask defaulted the label when it was empty.
		p := b.Pipeline()
		label := p[len(p)-1].Label

		for j, o := range ts.Overrides {
			if err := applyOverride(b, label, o, baseDir); err != nil {
				return nil, fmt.Errorf("tasks[%d].overrides[%d]: %w", i, j, err)
			}
		}
	}
	return b.Pipeline(), nil
}

func applyOverride(b *pipeline.Builder, label string, o models.OverrideSpec, baseDir string) error {
	switch {
	case o.File != "":
		return b.ConfigFile(label, resolvePath(baseDir, o.File))
	case o.Names != "":
		return b.NameSubstitution(label, o.Names)
	case o.Value == nil && strings.Contains(o.Field, "="):
		return b.ConfigOverride(label, o.Field)
	case o.Field != "":
		return b.ConfigValue(label, o.Field, o.Value)
	default:
		return fmt.Errorf("empty override")
	}
}

// OverrideList converts override specs into an override list without
// applying them.
func OverrideList(specs []models.OverrideSpec, baseDir string) (*overrides.List, error) {
	l := &overrides.List{}
	for i, o := range specs {
		switch {
		case o.File != "":
			l.AddFile(resolvePath(baseDir, o.File))
		case o.Names != "":
			l.AddNameSubstitution(o.Names)
		case o.Value == nil && strings.Contains(o.Field, "="):
			field, value, err := overrides.ParseAssignment(o.Field)
			if err != nil {
				return nil, fmt.Errorf("overrides[%d]: %w", i, err)
			}
			l.AddValue(field, value)
		case o.Field != "":
			l.AddValue(o.Field, o.Value)
		default:
			return nil, fmt.Errorf("overrides[%d]: empty override", i)
		}
	}
	return l, nil
}

func resolvePath(baseDir, path string) string {
	if baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
