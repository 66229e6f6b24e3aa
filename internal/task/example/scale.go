// Package example provides small reference tasks: a one-to-one scaling
// task, a many-to-one summing task and a legacy per-item echo task.
package example

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/overrides"
	"github.com/spachava753/pipetask/internal/repository"
	"github.com/spachava753/pipetask/internal/task"
)

// DatasetConfig names a dataset type and its units.
type DatasetConfig struct {
	Name         string   `yaml:"name" toml:"name"`
	Units        []string `yaml:"units" toml:"units"`
	StorageClass string   `yaml:"storage_class,omitempty" toml:"storage_class"`
}

// DatasetType converts the config into a models.DatasetType.
func (d DatasetConfig) DatasetType() models.DatasetType {
	return models.DatasetType{
		Name:         d.Name,
		Units:        append([]string(nil), d.Units...),
		StorageClass: d.StorageClass,
	}
}

// ScaleConfig configures ScaleTask.
type ScaleConfig struct {
	Input  DatasetConfig `yaml:"input" toml:"input"`
	Output DatasetConfig `yaml:"output" toml:"output"`
	Factor float64       `yaml:"factor" toml:"factor"`
	Offset float64       `yaml:"offset" toml:"offset"`
}

// DefaultScaleConfig returns a ScaleConfig with default values.
func DefaultScaleConfig() *ScaleConfig {
	return &ScaleConfig{
		Input:  DatasetConfig{Name: "raw", Units: []string{"visit", "ccd"}, StorageClass: "number"},
		Output: DatasetConfig{Name: "calexp", Units: []string{"visit", "ccd"}, StorageClass: "number"},
		Factor: 1.0,
	}
}

func (c *ScaleConfig) FormatTemplateNames(names map[string]string) error {
	c.Input.Name = overrides.FormatTemplate(c.Input.Name, names)
	c.Output.Name = overrides.FormatTemplate(c.Output.Name, names)
	return nil
}

// ScaleTask reads one number per quantum and writes value*factor+offset
// under the same DataID.
type ScaleTask struct {
	cfg *ScaleConfig
}

// NewScaleTask creates a ScaleTask from a *ScaleConfig.
func NewScaleTask(cfg any) (any, error) {
	c, ok := cfg.(*ScaleConfig)
	if !ok {
		return nil, fmt.Errorf("expected *ScaleConfig, got %T", cfg)
	}
	return &ScaleTask{cfg: c}, nil
}

func (t *ScaleTask) InputDatasetTypes() []models.DatasetType {
	return []models.DatasetType{t.cfg.Input.DatasetType()}
}

func (t *ScaleTask) OutputDatasetTypes() []models.DatasetType {
	return []models.DatasetType{t.cfg.Output.DatasetType()}
}

func (t *ScaleTask) DefineQuanta(ctx context.Context, inputs, outputs models.DatasetPool, repo repository.Repository) ([]*models.Quantum, error) {
	in, out := t.cfg.Input, t.cfg.Output

	// Requested outputs drive the quanta when given. Backward planning
	// that asks for nothing this task makes leaves it idle.
	if !outputs.Empty() {
		ids := outputs[out.Name]
		quanta := make([]*models.Quantum, 0, len(ids))
		for _, id := range ids {
			q, err := models.NewQuantum(
				map[string][]models.DataID{in.Name: {id.Project(in.Units)}},
				map[string][]models.DataID{out.Name: {id}},
				nil, out.Name)
			if err != nil {
				return nil, err
			}
			quanta = append(quanta, q)
		}
		return quanta, nil
	}

	ids, err := available(ctx, inputs, in.Name, repo)
	if err != nil {
		return nil, err
	}
	quanta := make([]*models.Quantum, 0, len(ids))
	for _, id := range ids {
		q, err := models.NewQuantum(
			map[string][]models.DataID{in.Name: {id}},
			map[string][]models.DataID{out.Name: {id.Project(out.Units)}},
			nil, in.Name)
		if err != nil {
			return nil, err
		}
		quanta = append(quanta, q)
	}
	return quanta, nil
}

func (t *ScaleTask) RunQuantum(ctx context.Context, q *models.Quantum, repo repository.Repository) (any, error) {
	in, out := t.cfg.Input.Name, t.cfg.Output.Name
	if len(q.Inputs[in]) != 1 || len(q.Outputs[out]) != 1 {
		return nil, &models.TaskError{TaskName: "ScaleTask", Message: "expected exactly one input and one output"}
	}

	inRef := models.DatasetRef{DatasetType: in, DataID: q.Inputs[in][0]}
	raw, err := repo.Get(ctx, inRef)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", inRef.Key(), err)
	}
	v, err := toFloat(raw)
	if err != nil {
		return nil, &models.TaskError{TaskName: "ScaleTask", Message: fmt.Sprintf("%s: %v", inRef.Key(), err)}
	}

	result := v*t.cfg.Factor + t.cfg.Offset
	outRef := models.DatasetRef{DatasetType: out, DataID: q.Outputs[out][0]}
	if err := repo.Put(ctx, outRef, result); err != nil {
		return nil, fmt.Errorf("writing %s: %w", outRef.Key(), err)
	}
	slog.Debug("scaled dataset", "input", inRef.Key(), "output", outRef.Key(), "value", result)
	return result, nil
}

// available returns the DataIDs of datasetType from the pool, or from the
// repository when the pool has no entry for it.
func available(ctx context.Context, pool models.DatasetPool, datasetType string, repo repository.Repository) ([]models.DataID, error) {
	if ids, ok := pool[datasetType]; ok {
		return ids, nil
	}
	if repo == nil {
		return nil, nil
	}
	ids, err := repo.Query(ctx, datasetType)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", datasetType, err)
	}
	return ids, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not a number", v, v)
	}
}

// Register adds the example tasks to reg.
func Register(reg *task.Registry) error {
	classes := []task.Class{
		{
			Name:      "example.ScaleTask",
			Kind:      task.KindPipeline,
			NewConfig: func() any { return DefaultScaleConfig() },
			New:       NewScaleTask,
		},
		{
			Name:      "example.SumTask",
			Kind:      task.KindPipeline,
			NewConfig: func() any { return DefaultSumConfig() },
			New:       NewSumTask,
		},
		{
			Name:       "example.EchoTask",
			Kind:       task.KindLegacy,
			SerialOnly: true,
			NewConfig:  func() any { return DefaultEchoConfig() },
			New:        NewEchoTask,
		},
	}
	for _, c := range classes {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
