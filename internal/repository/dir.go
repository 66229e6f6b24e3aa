package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spachava753/pipetask/internal/models"
)

// storedDataset is the on-disk form of one dataset.
type storedDataset struct {
	DataID models.DataID `yaml:"data_id"`
	Value  any           `yaml:"value"`
}

// DirRepository stores each dataset as a YAML file under
// <root>/<dataset type>/<data id>.yaml.
type DirRepository struct {
	root string
}

// OpenDir opens a directory-backed repository, creating root if needed.
func OpenDir(root string) (*DirRepository, error) {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("creating repository directory: %w", err)
	}
	return &DirRepository{root: absPath}, nil
}

func (r *DirRepository) path(ref models.DatasetRef) string {
	name := ref.DataID.String()
	if name == "" {
		name = "_"
	}
	name = strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			return c
		case c == '=' || c == '-' || c == '.' || c == '_':
			return c
		}
		return '_'
	}, name)
	return filepath.Join(r.root, ref.DatasetType, name+".yaml")
}

func (r *DirRepository) Get(ctx context.Context, ref models.DatasetRef) (any, error) {
	data, err := os.ReadFile(r.path(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ref.Key(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", ref.Key(), err)
	}

	var stored storedDataset
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", ref.Key(), err)
	}
	return stored.Value, nil
}

func (r *DirRepository) Put(ctx context.Context, ref models.DatasetRef, value any) error {
	p := r.path(ref)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating dataset directory: %w", err)
	}

	data, err := models.EncodeYAML(storedDataset{DataID: ref.DataID, Value: value})
	if err != nil {
		return fmt.Errorf("encoding dataset %s: %w", ref.Key(), err)
	}

	// Write then rename so concurrent readers never see a partial file.
	// Each writer gets its own temp file; the last rename wins.
	f, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing dataset %s: %w", ref.Key(), err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing dataset %s: %w", ref.Key(), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing dataset %s: %w", ref.Key(), err)
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing dataset %s: %w", ref.Key(), err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing dataset %s: %w", ref.Key(), err)
	}
	return nil
}

func (r *DirRepository) Query(ctx context.Context, datasetType string) ([]models.DataID, error) {
	entries, err := os.ReadDir(filepath.Join(r.root, datasetType))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading dataset type directory: %w", err)
	}

	var ids []models.DataID
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.root, datasetType, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading dataset: %w", err)
		}
		var stored storedDataset
		if err := yaml.Unmarshal(data, &stored); err != nil {
			return nil, fmt.Errorf("parsing dataset %s: %w", entry.Name(), err)
		}
		if stored.DataID == nil {
			stored.DataID = models.DataID{}
		}
		ids = append(ids, stored.DataID)
	}
	return ids, nil
}

func (r *DirRepository) Close() error { return nil }
