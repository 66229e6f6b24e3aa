package example

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/repository"
)

// EchoConfig configures EchoTask.
type EchoConfig struct {
	Output string `yaml:"output" toml:"output"`
	Prefix string `yaml:"prefix" toml:"prefix"`
}

// DefaultEchoConfig returns an EchoConfig with default values.
func DefaultEchoConfig() *EchoConfig {
	return &EchoConfig{Output: "echo", Prefix: "item"}
}

// EchoTask writes a short description of every data item it is given.
type EchoTask struct {
	cfg *EchoConfig
}

// NewEchoTask creates an EchoTask from an *EchoConfig.
func NewEchoTask(cfg any) (any, error) {
	c, ok := cfg.(*EchoConfig)
	if !ok {
		return nil, fmt.Errorf("expected *EchoConfig, got %T", cfg)
	}
	return &EchoTask{cfg: c}, nil
}

func (t *EchoTask) RunDataItem(ctx context.Context, id models.DataID, repo repository.Repository) (any, error) {
	msg := fmt.Sprintf("%s %s", t.cfg.Prefix, id)
	slog.Info("echo", "data_id", id.String(), "message", msg)
	if err := repo.Put(ctx, models.DatasetRef{DatasetType: t.cfg.Output, DataID: id}, msg); err != nil {
		return nil, fmt.Errorf("writing echo: %w", err)
	}
	return msg, nil
}
