package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spachava753/pipetask/internal/models"
)

// DefaultRunConfig returns a RunConfig with default values.
func DefaultRunConfig() models.RunConfig {
	return models.RunConfig{
		Processes:  1,
		TimeoutSec: 9999,
		LogLevel:   "info",
		LogFormat:  "text",
		Repository: models.RepositoryConfig{
			Type: "memory",
		},
	}
}

// LoadRunConfig loads and parses a run.yaml file.
func LoadRunConfig(path string) (models.RunConfig, error) {
	cfg := DefaultRunConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading run config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing run config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	// Apply defaults for missing values
	if cfg.Processes <= 0 {
		cfg.Processes = 1
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 9999
	}
	if cfg.Repository.Type == "" {
		cfg.Repository.Type = "memory"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	return cfg, nil
}

func validate(cfg models.RunConfig) error {
	hasTasks := len(cfg.Tasks) > 0
	hasLegacy := cfg.Legacy != nil
	if !hasTasks && !hasLegacy {
		return fmt.Errorf("run config: must specify either 'tasks' or 'legacy'")
	}
	if hasTasks && hasLegacy {
		return fmt.Errorf("run config: cannot specify both 'tasks' and 'legacy'")
	}
	if !cfg.Inputs.Empty() && !cfg.Outputs.Empty() {
		return fmt.Errorf("run config: %w", models.ErrMixedSelectors)
	}

	for i, ts := range cfg.Tasks {
		if ts.Task == "" {
			return fmt.Errorf("tasks[%d]: missing 'task'", i)
		}
		if err := validateOverrides(ts.Overrides); err != nil {
			return fmt.Errorf("tasks[%d]: %w", i, err)
		}
	}
	if hasLegacy {
		if cfg.Legacy.Task == "" {
			return fmt.Errorf("legacy: missing 'task'")
		}
		if err := validateOverrides(cfg.Legacy.Overrides); err != nil {
			return fmt.Errorf("legacy: %w", err)
		}
	}
	return nil
}

func validateOverrides(specs []models.OverrideSpec) error {
	for i, o := range specs {
		set := 0
		if o.File != "" {
			set++
		}
		if o.Field != "" {
			set++
		}
		if o.Names != "" {
			set++
		}
		if set != 1 {
			return fmt.Errorf("overrides[%d]: must specify exactly one of 'file', 'field' or 'names'", i)
		}
		if o.Field == "" && o.Value != nil {
			return fmt.Errorf("overrides[%d]: 'value' requires 'field'", i)
		}
	}
	return nil
}
