package runtime

import (
	"fmt"
	"sync"
)

// State tracks a module through a single load.
type State string

const (
	StateResolved  State = "resolved"
	StateExecuting State = "executing"
	StateLoaded    State = "loaded"
	StateFailed    State = "failed"
)

// Spec binds a module name to the loader that claimed it. It carries no
// document content; loaders re-read their source when executing.
type Spec struct {
	Name   string
	Loader Loader
	// Origin is the canonical location of the module source.
	Origin string
}

// Validate ensures the spec is usable by the runtime.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("runtime: spec name is required")
	}
	if s.Loader == nil {
		return fmt.Errorf("runtime: spec %s has no loader", s.Name)
	}
	return nil
}

// Module is one imported unit. The runtime owns it; loaders populate its namespace in place.
type Module struct {
	Name      string
	Spec      *Spec
	Namespace *Namespace

	mu       sync.RWMutex
	state    State
	err      error
	executed int
}

// NewModule binds an empty namespace to spec.
func NewModule(spec *Spec, ns *Namespace) *Module {
	return &Module{Name: spec.Name, Spec: spec, Namespace: ns, state: StateResolved}
}

// State returns the current load state.
func (m *Module) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Err returns the failure recorded for a failed load.
func (m *Module) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Executed returns how many fragments ran to completion.
func (m *Module) Executed() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.executed
}

// MarkExecuted records one more completed fragment. Loaders call it after each cell.
func (m *Module) MarkExecuted() {
	m.mu.Lock()
	m.executed++
	m.mu.Unlock()
}

// settled reports whether the load has finished, successfully or not.
func (m *Module) settled() bool {
	state := m.State()
	return state == StateLoaded || state == StateFailed
}

func (m *Module) setState(state State, err error) {
	m.mu.Lock()
	m.state = state
	m.err = err
	m.mu.Unlock()
}

// Origin returns the canonical source location, if the spec recorded one.
func (m *Module) Origin() string {
	if m.Spec == nil {
		return ""
	}
	return m.Spec.Origin
}
