package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/spachava753/pipetask/internal/models"
)

// ErrNotFound is returned by Get when no dataset matches.
var ErrNotFound = errors.New("dataset not found")

// Repository is the narrow contract tasks and the dispatcher use to read
// and write datasets. Implementations are handles: each worker opens its
// own through a Factory and closes it when done.
type Repository interface {
	Get(ctx context.Context, ref models.DatasetRef) (any, error)
	Put(ctx context.Context, ref models.DatasetRef, value any) error
	// Query lists the DataIDs stored for a dataset type.
	Query(ctx context.Context, datasetType string) ([]models.DataID, error)
	Close() error
}

// Factory opens a new repository handle.
type Factory func() (Repository, error)

// NewFactory returns a Factory for the configured repository type.
func NewFactory(cfg models.RepositoryConfig) (Factory, error) {
	switch cfg.Type {
	case "", "memory":
		store := NewMemoryStore()
		return func() (Repository, error) { return store.Open(), nil }, nil
	case "dir":
		if cfg.Path == "" {
			return nil, fmt.Errorf("repository type %q requires a path", cfg.Type)
		}
		return func() (Repository, error) { return OpenDir(cfg.Path) }, nil
	default:
		return nil, fmt.Errorf("unsupported repository type: %s", cfg.Type)
	}
}
