package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/spachava753/pipetask/internal/models"
)

type memoryEntry struct {
	id    models.DataID
	value any
}

// MemoryStore keeps datasets in process memory. Handles opened from the
// same store see each other's writes.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string]memoryEntry
	order   map[string][]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]map[string]memoryEntry),
		order:   make(map[string][]string),
	}
}

// Open returns a new handle on the store.
func (s *MemoryStore) Open() Repository {
	return &memoryRepo{store: s}
}

type memoryRepo struct {
	store  *MemoryStore
	closed bool
}

func (r *memoryRepo) Get(ctx context.Context, ref models.DatasetRef) (any, error) {
	if r.closed {
		return nil, fmt.Errorf("repository handle is closed")
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	e, ok := r.store.entries[ref.DatasetType][ref.DataID.String()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref.Key(), ErrNotFound)
	}
	return e.value, nil
}

func (r *memoryRepo) Put(ctx context.Context, ref models.DatasetRef, value any) error {
	if r.closed {
		return fmt.Errorf("repository handle is closed")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	byID, ok := r.store.entries[ref.DatasetType]
	if !ok {
		byID = make(map[string]memoryEntry)
		r.store.entries[ref.DatasetType] = byID
	}
	key := ref.DataID.String()
	if _, exists := byID[key]; !exists {
		r.store.order[ref.DatasetType] = append(r.store.order[ref.DatasetType], key)
	}
	byID[key] = memoryEntry{id: ref.DataID, value: value}
	return nil
}

func (r *memoryRepo) Query(ctx context.Context, datasetType string) ([]models.DataID, error) {
	if r.closed {
		return nil, fmt.Errorf("repository handle is closed")
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var ids []models.DataID
	for _, key := range r.store.order[datasetType] {
		ids = append(ids, r.store.entries[datasetType][key].id)
	}
	return ids, nil
}

func (r *memoryRepo) Close() error {
	r.closed = true
	return nil
}
