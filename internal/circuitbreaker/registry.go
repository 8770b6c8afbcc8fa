package circuitbreaker

import (
	"sync"
	"time"
)

// Registry maps processor name to its circuit breaker. One breaker is
// seeded per configured processor at engine startup and lives for the
// process lifetime. All operations are O(1) or
// O(processors).
type Registry struct {
	mutex    sync.RWMutex
	cfg      Config
	breakers map[string]*CircuitBreaker
	order    []string
}

// NewRegistry constructs an empty registry; breakers are created via
// Seed as each processor is registered with the fallback engine.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Seed creates the breaker for name if it does not already exist,
// preserving first-seen (registration) order for List.
func (r *Registry) Seed(name string) *CircuitBreaker {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	cb := NewCircuitBreaker(r.cfg)
	r.breakers[name] = cb
	r.order = append(r.order, name)
	return cb
}

// Get returns the breaker for name, or nil if name is unknown. Callers on
// the admin HTTP surface treat a nil result as a 404.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.breakers[name]
}

// List returns all registered processor names in registration order.
func (r *Registry) List() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Reset resets the named breaker to CLOSED with an empty window. Reports
// ok=false if name is unknown.
func (r *Registry) Reset(name string) (ok bool) {
	cb := r.Get(name)
	if cb == nil {
		return false
	}
	cb.Reset()
	return true
}

// Inject injects count synthetic failures into the named breaker's
// window, triggering an immediate trip evaluation. Reports ok=false if
// name is unknown.
func (r *Registry) Inject(name string, now time.Time, count int) (ok bool) {
	cb := r.Get(name)
	if cb == nil {
		return false
	}
	cb.InjectFailures(now, count)
	return true
}
