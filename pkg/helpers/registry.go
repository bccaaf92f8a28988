package helpers

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores helpers by name. It backs the keyed get/set/has/unset
// access the engine offers and produces the `view` value for each render.
type Registry struct {
	mu      sync.RWMutex
	helpers map[string]any
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		helpers: make(map[string]any),
	}
}

// Get retrieves a helper by name.
func (r *Registry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	helper, ok := r.helpers[name]
	return helper, ok
}

// Set stores helper under name, replacing any previous value.
func (r *Registry) Set(name string, helper any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.helpers[name] = helper
}

// Has reports whether a non-nil helper is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	helper, ok := r.helpers[name]
	return ok && helper != nil
}

// Unset removes the helper registered under name.
func (r *Registry) Unset(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.helpers, name)
}

// Register stores a custom helper under the name derived from its type (see
// NameOf) and returns that name.
func (r *Registry) Register(helper any) (string, error) {
	if helper == nil {
		return "", fmt.Errorf("helpers: helper is required")
	}
	name := NameOf(helper)
	if name == "" {
		return "", fmt.Errorf("helpers: cannot derive a name for %T", helper)
	}
	r.Set(name, helper)
	return name, nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(helper any) string {
	name, err := r.Register(helper)
	if err != nil {
		panic(err)
	}
	return name
}

// Names returns a sorted list of helper names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.helpers))
	for name := range r.helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies the current helpers into a fresh map. Later registry
// changes do not affect the returned map.
func (r *Registry) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]any, len(r.helpers))
	for name, helper := range r.helpers {
		out[name] = helper
	}
	return out
}
