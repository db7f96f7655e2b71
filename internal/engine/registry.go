package engine

import "sync"

// Registry hands out one Manager per document key with an explicit
// Get/Release lifecycle. The host layer owns the registry; the engine itself
// carries no process-wide state.
type Registry struct {
	mu         sync.Mutex
	managers   map[string]*Manager
	newManager func(docID string) *Manager
}

// NewRegistry creates a registry that builds managers with the given
// factory.
func NewRegistry(factory func(docID string) *Manager) *Registry {
	return &Registry{
		managers:   make(map[string]*Manager),
		newManager: factory,
	}
}

// Get returns the manager for key, creating one on first use.
func (r *Registry) Get(key string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.managers[key]
	if !ok {
		m = r.newManager(key)
		r.managers[key] = m
	}
	return m
}

// Lookup returns the manager for key without creating one.
func (r *Registry) Lookup(key string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.managers[key]
	return m, ok
}

// Release disposes the manager for key and removes it. Releasing an unknown
// key is a no-op.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	m, ok := r.managers[key]
	delete(r.managers, key)
	r.mu.Unlock()

	if ok {
		m.Dispose()
	}
}

// ReleaseAll disposes every tracked manager. Used at teardown.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	managers := r.managers
	r.managers = make(map[string]*Manager)
	r.mu.Unlock()

	for _, m := range managers {
		m.Dispose()
	}
}

// Keys returns the keys of all tracked managers.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.managers))
	for k := range r.managers {
		keys = append(keys, k)
	}
	return keys
}
