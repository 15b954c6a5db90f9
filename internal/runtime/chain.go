package runtime

import "sync"

// Finder resolves a module name to a spec. A nil spec with a nil error means
// the finder does not recognise the name and the next finder should be asked.
type Finder interface {
	FindSpec(name string, path []string) (*Spec, error)
}

// Loader executes a resolved module.
type Loader interface {
	// CreateModule may return nil to ask the runtime for a default module.
	CreateModule(spec *Spec) (*Module, error)
	ExecModule(m *Module) error
}

// FinderFunc adapts a function to the Finder interface.
type FinderFunc func(name string, path []string) (*Spec, error)

// FindSpec calls f.
func (f FinderFunc) FindSpec(name string, path []string) (*Spec, error) {
	return f(name, path)
}

// Chain is the ordered list of finders consulted for every import.
type Chain struct {
	mu      sync.RWMutex
	finders []Finder
}

// Append adds f to the end of the chain so existing finders keep priority.
func (c *Chain) Append(f Finder) {
	if f == nil {
		return
	}
	c.mu.Lock()
	c.finders = append(c.finders, f)
	c.mu.Unlock()
}

// AppendUnless appends f only when no existing finder matches present. It
// reports whether f was appended. The check and the append happen under one lock.
func (c *Chain) AppendUnless(f Finder, present func(Finder) bool) bool {
	if f == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if present != nil {
		for _, existing := range c.finders {
			if present(existing) {
				return false
			}
		}
	}
	c.finders = append(c.finders, f)
	return true
}

// Contains reports whether any finder satisfies match.
func (c *Chain) Contains(match func(Finder) bool) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.finders {
		if match(f) {
			return true
		}
	}
	return false
}

// Finders returns a snapshot of the chain in lookup order.
func (c *Chain) Finders() []Finder {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Finder, len(c.finders))
	copy(out, c.finders)
	return out
}

// Len returns the number of installed finders.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.finders)
}
