package features

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// ServiceLocator resolves services from a FactoryMap, constructing them
// lazily and caching them per task scope.
//
// A scope is identified by the context passed to the retrieval methods: calls
// with the same context share one cache and therefore one instance per
// service, while calls with distinct contexts construct independent
// instances. There is no cross-scope de-duplication, so factories must be
// safe to run more than once per process. The FactoryMap is immutable for the
// locator's lifetime and safe for concurrent reads.
type ServiceLocator struct {
	factories FactoryMap
	registry  *Registry
	log       *slog.Logger

	mu     sync.Mutex
	scopes map[context.Context]*scope
}

// scope is the per-task service cache. Entries are keyed by both service name
// and interface identifier. A context can be shared across goroutines, so the
// scope carries its own lock; holding it across instantiation also makes
// construction exactly-once per scope.
type scope struct {
	id uuid.UUID

	mu      sync.Mutex
	entries map[string]any
}

// Option configures a ServiceLocator.
type Option func(*ServiceLocator)

// WithRegistry sets the factory registry the locator instantiates from.
func WithRegistry(r *Registry) Option {
	return func(l *ServiceLocator) {
		l.registry = r
	}
}

// WithLogger sets the logger used for locator events.
func WithLogger(log *slog.Logger) Option {
	return func(l *ServiceLocator) {
		l.log = log
	}
}

// NewServiceLocator creates a locator over the given factory map. The default
// registry is used unless overridden with WithRegistry.
func NewServiceLocator(factories FactoryMap, opts ...Option) *ServiceLocator {
	l := &ServiceLocator{
		factories: factories,
		registry:  DefaultRegistry(),
		log:       slog.Default(),
		scopes:    make(map[context.Context]*scope),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// scopeFor returns the scope owned by ctx, creating it on first use. Scopes
// for cancellable contexts are dropped once the context is done.
func (l *ServiceLocator) scopeFor(ctx context.Context) *scope {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.scopes[ctx]
	if !ok {
		s = &scope{id: uuid.New(), entries: make(map[string]any)}
		l.scopes[ctx] = s
		if ctx.Done() != nil {
			context.AfterFunc(ctx, func() {
				l.mu.Lock()
				delete(l.scopes, ctx)
				l.mu.Unlock()
			})
		}
	}
	return s
}

func (l *ServiceLocator) instantiate(def *FactoryDefinition, s *scope) (any, error) {
	factory, err := l.registry.Lookup(def.Factory)
	if err != nil {
		return nil, err
	}
	l.log.Info("instantiating service", "factory", def.Factory, "scope", s.id)
	// factory failures propagate unmodified; the locator has no insight into
	// their meaning
	return factory(def.Args, def.Kwargs)
}

// GetByType returns this scope's instance of the service registered for the
// given interface identifier, constructing it on first use. The instance is
// cached under both its service name and its interface identifier.
func (l *ServiceLocator) GetByType(ctx context.Context, iface string) (any, error) {
	s := l.scopeFor(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.entries[iface]; ok {
		return v, nil
	}

	def, name, err := l.factories.GetByType(iface)
	if err != nil {
		return nil, err
	}
	v, err := l.instantiate(def, s)
	if err != nil {
		return nil, err
	}
	s.entries[name] = v
	s.entries[def.Implements] = v
	return v, nil
}

// GetByName returns this scope's instance of the named service, constructing
// it on first use. The interface-identifier cache slot is back-filled only
// when empty, so a name-based lookup never overrides a type default already
// cached for that interface.
func (l *ServiceLocator) GetByName(ctx context.Context, name string) (any, error) {
	s := l.scopeFor(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.entries[name]; ok {
		return v, nil
	}

	def, err := l.factories.GetByName(name)
	if err != nil {
		return nil, err
	}
	v, err := l.instantiate(def, s)
	if err != nil {
		return nil, err
	}
	s.entries[name] = v
	if _, ok := s.entries[def.Implements]; !ok {
		s.entries[def.Implements] = v
	}
	return v, nil
}

// InterfaceID computes the stable interface identifier for T, as used in
// config "implements" fields. For an interface defined as blob.Storage the
// identifier is "blob.Storage".
func InterfaceID[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// GetByType retrieves a service from the locator by the interface type T and
// verifies the instance satisfies it.
func GetByType[T any](ctx context.Context, l *ServiceLocator) (T, error) {
	var zero T
	iface := InterfaceID[T]()
	v, err := l.GetByType(ctx, iface)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s produced %T", ErrInvalidType, iface, v)
	}
	return t, nil
}

// GetByName retrieves a named service from the locator and verifies it
// satisfies T.
func GetByName[T any](ctx context.Context, l *ServiceLocator, name string) (T, error) {
	var zero T
	v, err := l.GetByName(ctx, name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s produced %T", ErrInvalidType, name, v)
	}
	return t, nil
}

var (
	processMu sync.Mutex
	process   *ServiceLocator
)

// Default returns the process-wide locator, creating it on first use from the
// discovered config file. Prefer Configure in tests: lazy initialization
// depends on the working directory and environment.
func Default() (*ServiceLocator, error) {
	processMu.Lock()
	defer processMu.Unlock()

	if process == nil {
		settings, err := LoadSettings()
		if err != nil {
			return nil, err
		}
		path, err := FindFile(CurrentOrHome(), settings.ConfigName)
		if err != nil {
			return nil, &ConfigError{Source: settings.ConfigName, Err: err}
		}
		slog.Info("creating service locator", "config", path)
		fm, err := FactoryMapFromFile(path, StandardResolver())
		if err != nil {
			return nil, err
		}
		process = NewServiceLocator(fm)
	}
	return process, nil
}

// Configure replaces the process-wide locator with one built from the given
// factory map, discarding any prior instance and its caches.
func Configure(factories FactoryMap, opts ...Option) *ServiceLocator {
	processMu.Lock()
	defer processMu.Unlock()

	if process != nil {
		slog.Warn("service locator already configured, reconfiguring")
	}
	process = NewServiceLocator(factories, opts...)
	return process
}

// Reset discards the process-wide locator. Intended for test isolation.
func Reset() {
	processMu.Lock()
	defer processMu.Unlock()
	process = nil
}

// Service retrieves a service from the process-wide locator by interface
// type.
func Service[T any](ctx context.Context) (T, error) {
	l, err := Default()
	if err != nil {
		var zero T
		return zero, err
	}
	return GetByType[T](ctx, l)
}

// ServiceByName retrieves a named service from the process-wide locator.
func ServiceByName[T any](ctx context.Context, name string) (T, error) {
	l, err := Default()
	if err != nil {
		var zero T
		return zero, err
	}
	return GetByName[T](ctx, l, name)
}
