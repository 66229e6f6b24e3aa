package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/repository"
	"github.com/spachava753/pipetask/internal/task"
)

// ConfigDatasetType is the dataset type under which a task's resolved
// configuration is stored.
func ConfigDatasetType(label string) string {
	return label + "_config"
}

// SchemaDatasetType is the dataset type under which an output schema is
// stored.
func SchemaDatasetType(datasetType string) string {
	return datasetType + "_schema"
}

// precall persists the resolved configuration and any declared schemas
// before the first invocation. A stored configuration that differs is an
// error unless clobbering is enabled.
func (d *Dispatcher) precall(ctx context.Context, repo repository.Repository, label string, cfgData []byte, inst any) error {
	ref := models.DatasetRef{DatasetType: ConfigDatasetType(label), DataID: models.DataID{}}

	stored, err := repo.Get(ctx, ref)
	switch {
	case err == nil:
		if s, _ := stored.(string); s != string(cfgData) && !d.clobberConfig {
			return fmt.Errorf("config for %s differs from the stored config (enable clobber_config to overwrite)", label)
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return fmt.Errorf("reading stored config: %w", err)
	}

	if err := repo.Put(ctx, ref, string(cfgData)); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if sw, ok := inst.(task.SchemaWriter); ok {
		for name, schema := range sw.Schemas() {
			sref := models.DatasetRef{DatasetType: SchemaDatasetType(name), DataID: models.DataID{}}
			if err := repo.Put(ctx, sref, schema); err != nil {
				return fmt.Errorf("writing schema for %s: %w", name, err)
			}
		}
	}
	return nil
}
