package runtime

import (
	"errors"
	"fmt"
	"sync"
)

// ErrModuleNotFound is returned when no finder in the chain claims a name.
var ErrModuleNotFound = errors.New("runtime: module not found")

// Runtime owns the finder chain, the module registry and the per-name import
// locks. Concurrent imports of the same name are serialized here, so loaders
// need no locking of their own.
type Runtime struct {
	chain    *Chain
	registry *Registry
	nsOpts   NamespaceOptions

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Option customizes runtime construction.
type Option func(*Runtime)

// WithNamespaceOptions sets the options used for default module allocation.
func WithNamespaceOptions(opts NamespaceOptions) Option {
	return func(rt *Runtime) {
		rt.nsOpts = opts
	}
}

// New returns a runtime with an empty chain and registry.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		chain:    &Chain{},
		registry: NewRegistry(),
		locks:    map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(rt)
		}
	}
	return rt
}

// Chain exposes the finder chain.
func (rt *Runtime) Chain() *Chain {
	return rt.chain
}

// Modules exposes the module registry.
func (rt *Runtime) Modules() *Registry {
	return rt.registry
}

// Import returns the module registered under name, resolving and executing it
// on first use. A module whose load failed stays registered with its partial
// namespace; importing it again returns the same module and the same error.
func (rt *Runtime) Import(name string) (*Module, error) {
	if m, ok := rt.registry.Get(name); ok && m.settled() {
		return m, m.Err()
	}
	lock := rt.importLock(name)
	lock.Lock()
	defer lock.Unlock()
	if m, ok := rt.registry.Get(name); ok {
		return m, m.Err()
	}

	spec, err := rt.findSpec(name)
	if err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	m, err := rt.createModule(spec)
	if err != nil {
		return nil, err
	}
	if err := rt.registry.Register(m); err != nil {
		return nil, err
	}
	m.setState(StateExecuting, nil)
	if err := rt.exec(m); err != nil {
		m.setState(StateFailed, err)
		return m, err
	}
	m.setState(StateLoaded, nil)
	return m, nil
}

// exec runs the loader. A panicking loader leaves the module failed rather
// than stuck in the executing state.
func (rt *Runtime) exec(m *Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("runtime: exec %s: panic: %v", m.Name, r)
		}
	}()
	return m.Spec.Loader.ExecModule(m)
}

// Forget removes name from the registry so the next Import loads it from scratch.
func (rt *Runtime) Forget(name string) bool {
	lock := rt.importLock(name)
	lock.Lock()
	defer lock.Unlock()
	return rt.registry.Remove(name)
}

func (rt *Runtime) findSpec(name string) (*Spec, error) {
	for _, f := range rt.chain.Finders() {
		spec, err := f.FindSpec(name, nil)
		if err != nil {
			return nil, fmt.Errorf("runtime: find %s: %w", name, err)
		}
		if spec == nil {
			continue
		}
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		return spec, nil
	}
	return nil, nil
}

func (rt *Runtime) createModule(spec *Spec) (*Module, error) {
	m, err := spec.Loader.CreateModule(spec)
	if err != nil {
		return nil, fmt.Errorf("runtime: create %s: %w", spec.Name, err)
	}
	if m != nil {
		return m, nil
	}
	ns, err := NewNamespace(rt.nsOpts)
	if err != nil {
		return nil, err
	}
	return NewModule(spec, ns), nil
}

func (rt *Runtime) importLock(name string) *sync.Mutex {
	rt.locksMu.Lock()
	defer rt.locksMu.Unlock()
	lock, ok := rt.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		rt.locks[name] = lock
	}
	return lock
}
