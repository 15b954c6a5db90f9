package runtime

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps module names to module instances, including modules whose load failed.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: map[string]*Module{}}
}

// Register installs a module. Returns an error if the name already exists.
func (r *Registry) Register(m *Module) error {
	if m == nil || m.Name == "" {
		return fmt.Errorf("runtime: module name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modules[m.Name]; exists {
		return fmt.Errorf("runtime: %s already registered", m.Name)
	}
	r.modules[m.Name] = m
	return nil
}

// Get returns the module registered under name.
func (r *Registry) Get(name string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Remove drops name from the registry and reports whether it was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[name]; !ok {
		return false
	}
	delete(r.modules, name)
	return true
}

// Names returns a sorted list of registered module names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
