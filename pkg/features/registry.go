package features

import (
	"fmt"
	"sync"
)

// Factory constructs a service from config primitives. Args carries the
// positional arguments in config order, Kwargs the keyword arguments.
// Failures inside a factory propagate to the caller unmodified.
type Factory func(args []any, kwargs map[string]any) (any, error)

// Registry maps config factory keys to constructors. Config files refer to
// constructors by these keys in their "factory" field; implementations
// register themselves at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs a factory under the given key. Registering the same key
// twice is a programming error and panics.
func (r *Registry) Register(key string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[key]; exists {
		panic(fmt.Sprintf("features: factory %q registered twice", key))
	}
	r.factories[key] = factory
}

// Lookup returns the factory registered under key, or ErrUnknownFactory.
func (r *Registry) Lookup(key string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFactory, key)
	}
	return factory, nil
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by the default
// service locator.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// RegisterFactory installs a factory in the process-wide registry.
func RegisterFactory(key string, factory Factory) {
	defaultRegistry.Register(key, factory)
}
