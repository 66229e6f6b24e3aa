package task

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/spachava753/pipetask/internal/models"
)

// ErrRegistryClosed is returned by every registry operation after Close.
var ErrRegistryClosed = errors.New("task registry is closed")

// Registry maps task names to classes. It is safe for concurrent use and
// is passed explicitly to whatever needs to build tasks.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
	closed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string]*Class),
	}
}

// Register adds a class. A class without an explicit kind is classified
// from an instance built with its default configuration.
func (r *Registry) Register(c Class) error {
	if c.Name == "" {
		return fmt.Errorf("registering task: empty name")
	}
	if c.New == nil || c.NewConfig == nil {
		return fmt.Errorf("registering task %s: missing constructor", c.Name)
	}
	if c.Kind == KindUnknown {
		proto, err := c.New(c.NewConfig())
		if err != nil {
			return fmt.Errorf("registering task %s: building prototype: %w", c.Name, err)
		}
		c.Kind = Classify(proto)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	if _, exists := r.classes[c.Name]; exists {
		return fmt.Errorf("registering task %s: already registered", c.Name)
	}
	r.classes[c.Name] = &c
	return nil
}

// Lookup finds a class by full name, or by short name when exactly one
// registered class has it.
func (r *Registry) Lookup(name string) (*Class, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}

	if c, ok := r.classes[name]; ok {
		return c, nil
	}

	var matches []*Class
	for _, c := range r.classes {
		if c.ShortName() == name {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownTask, name)
	default:
		return nil, fmt.Errorf("task name %q matches %d registered tasks", name, len(matches))
	}
}

// LoadClass is Lookup under the name the pipeline checks expect.
func (r *Registry) LoadClass(name string) (*Class, error) {
	return r.Lookup(name)
}

// Resolve looks up a class and requires a runnable kind.
func (r *Registry) Resolve(name string) (*Class, error) {
	c, err := r.Lookup(name)
	if err != nil {
		return nil, &models.TaskResolutionError{TaskName: name, Kind: KindUnknown.String(), Err: err}
	}
	if !c.Kind.Runnable() {
		return nil, &models.TaskResolutionError{TaskName: name, Kind: c.Kind.String()}
	}
	return c, nil
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.classes))
	for n := range r.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Close releases the registry. Subsequent lookups fail.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.classes = nil
	return nil
}
