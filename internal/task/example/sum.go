package example

import (
	"context"
	"fmt"

	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/overrides"
	"github.com/spachava753/pipetask/internal/repository"
)

// SumConfig configures SumTask.
type SumConfig struct {
	Input  DatasetConfig `yaml:"input" toml:"input"`
	Output DatasetConfig `yaml:"output" toml:"output"`
	// Source is the stored dataset type whose DataIDs, projected onto the
	// input units, stand in for inputs that do not exist yet when
	// planning backward.
	Source string `yaml:"source,omitempty" toml:"source"`
}

// DefaultSumConfig returns a SumConfig with default values.
func DefaultSumConfig() *SumConfig {
	return &SumConfig{
		Input:  DatasetConfig{Name: "calexp", Units: []string{"visit", "ccd"}, StorageClass: "number"},
		Output: DatasetConfig{Name: "visitSum", Units: []string{"visit"}, StorageClass: "number"},
		Source: "raw",
	}
}

func (c *SumConfig) FormatTemplateNames(names map[string]string) error {
	c.Input.Name = overrides.FormatTemplate(c.Input.Name, names)
	c.Output.Name = overrides.FormatTemplate(c.Output.Name, names)
	c.Source = overrides.FormatTemplate(c.Source, names)
	return nil
}

// SumTask adds up every input sharing the output units into one output.
type SumTask struct {
	cfg *SumConfig
}

// NewSumTask creates a SumTask from a *SumConfig.
func NewSumTask(cfg any) (any, error) {
	c, ok := cfg.(*SumConfig)
	if !ok {
		return nil, fmt.Errorf("expected *SumConfig, got %T", cfg)
	}
	return &SumTask{cfg: c}, nil
}

func (t *SumTask) InputDatasetTypes() []models.DatasetType {
	return []models.DatasetType{t.cfg.Input.DatasetType()}
}

func (t *SumTask) OutputDatasetTypes() []models.DatasetType {
	return []models.DatasetType{t.cfg.Output.DatasetType()}
}

// Schemas declares the stored form of the output.
func (t *SumTask) Schemas() map[string]any {
	return map[string]any{
		t.cfg.Output.Name: map[string]any{"type": "float64", "units": t.cfg.Output.Units},
	}
}

func (t *SumTask) DefineQuanta(ctx context.Context, inputs, outputs models.DatasetPool, repo repository.Repository) ([]*models.Quantum, error) {
	in, out := t.cfg.Input, t.cfg.Output

	var inputIDs []models.DataID
	var wanted map[string]bool
	if !outputs.Empty() {
		// Backward: only groups for requested outputs. Inputs come from the
		// repository, or from the source type when upstream tasks have not
		// produced them yet.
		wanted = make(map[string]bool, len(outputs[out.Name]))
		for _, id := range outputs[out.Name] {
			wanted[id.Project(out.Units).String()] = true
		}
		found, err := t.backwardInputs(ctx, repo)
		if err != nil {
			return nil, err
		}
		inputIDs = found
	} else {
		found, err := available(ctx, inputs, in.Name, repo)
		if err != nil {
			return nil, err
		}
		inputIDs = found
	}

	var order []string
	groups := make(map[string][]models.DataID)
	keys := make(map[string]models.DataID)
	for _, id := range inputIDs {
		key := id.Project(out.Units)
		k := key.String()
		if wanted != nil && !wanted[k] {
			continue
		}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
			keys[k] = key
		}
		groups[k] = append(groups[k], id)
	}

	quanta := make([]*models.Quantum, 0, len(order))
	for _, k := range order {
		q, err := models.NewQuantum(
			map[string][]models.DataID{in.Name: groups[k]},
			map[string][]models.DataID{out.Name: {keys[k]}},
			map[string]any{"count": len(groups[k])},
			out.Name)
		if err != nil {
			return nil, err
		}
		quanta = append(quanta, q)
	}
	return quanta, nil
}

func (t *SumTask) backwardInputs(ctx context.Context, repo repository.Repository) ([]models.DataID, error) {
	in := t.cfg.Input
	pool := models.DatasetPool{}
	stored, err := available(ctx, nil, in.Name, repo)
	if err != nil {
		return nil, err
	}
	pool.Merge(map[string][]models.DataID{in.Name: stored})

	if t.cfg.Source != "" && t.cfg.Source != in.Name {
		source, err := available(ctx, nil, t.cfg.Source, repo)
		if err != nil {
			return nil, err
		}
		projected := make([]models.DataID, 0, len(source))
		for _, id := range source {
			p := id.Project(in.Units)
			if len(p) == len(in.Units) {
				projected = append(projected, p)
			}
		}
		pool.Merge(map[string][]models.DataID{in.Name: projected})
	}
	return pool[in.Name], nil
}

func (t *SumTask) RunQuantum(ctx context.Context, q *models.Quantum, repo repository.Repository) (any, error) {
	in, out := t.cfg.Input.Name, t.cfg.Output.Name
	if len(q.Outputs[out]) != 1 {
		return nil, &models.TaskError{TaskName: "SumTask", Message: "expected exactly one output"}
	}

	var total float64
	for _, id := range q.Inputs[in] {
		ref := models.DatasetRef{DatasetType: in, DataID: id}
		raw, err := repo.Get(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", ref.Key(), err)
		}
		v, err := toFloat(raw)
		if err != nil {
			return nil, &models.TaskError{TaskName: "SumTask", Message: fmt.Sprintf("%s: %v", ref.Key(), err)}
		}
		total += v
	}

	outRef := models.DatasetRef{DatasetType: out, DataID: q.Outputs[out][0]}
	if err := repo.Put(ctx, outRef, total); err != nil {
		return nil, fmt.Errorf("writing %s: %w", outRef.Key(), err)
	}
	return total, nil
}
