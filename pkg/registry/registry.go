package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// ModelFactory creates a fresh data model instance.
type ModelFactory func() ports.DataModel

// Registry maps model names to factories. Scenes use it to recreate models on restore.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ModelFactory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]ModelFactory),
	}
}

// Register adds a model factory to the registry.
// If a model with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn ModelFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = fn
}

// Create looks up a model by name and instantiates it.
// Returns domain.ErrModelNotRegistered if the name is unknown.
func (r *Registry) Create(name string) (ports.DataModel, error) {
	r.mu.RLock()
	fn, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrModelNotRegistered, name)
	}
	return fn(), nil
}

// Names returns the registered model names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
