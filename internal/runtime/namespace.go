package runtime

import (
	"fmt"
	"go/token"
	"go/types"
	"io"
	"os"
	"reflect"
	"sort"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Namespace is the binding environment of one module. It is backed by a yaegi
// interpreter running in incremental mode, so every compiled fragment sees the
// declarations of the fragments executed before it.
type Namespace struct {
	interp *interp.Interpreter

	mu       sync.Mutex
	pending  map[*interp.Program][]string
	declared map[string]struct{}
}

// NamespaceOptions configures the interpreter behind a namespace.
type NamespaceOptions struct {
	Stdout io.Writer
	Stderr io.Writer
	Args   []string
}

// NewNamespace allocates an empty namespace with the Go standard library available to cells.
func NewNamespace(opts NamespaceOptions) (*Namespace, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	i := interp.New(interp.Options{
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
		Args:   opts.Args,
	})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("runtime: load stdlib symbols: %w", err)
	}
	return &Namespace{
		interp:   i,
		pending:  map[*interp.Program][]string{},
		declared: map[string]struct{}{},
	}, nil
}

// Compile parses and type-checks src against the current bindings without running it.
func (ns *Namespace) Compile(src string) (*interp.Program, error) {
	prog, err := ns.interp.Compile(src)
	if err != nil {
		return nil, err
	}
	ns.mu.Lock()
	ns.pending[prog] = declaredNames(src)
	ns.mu.Unlock()
	return prog, nil
}

// Execute runs a compiled fragment against the namespace. The interpreter
// reports panics raised by the fragment as interp.Panic errors.
func (ns *Namespace) Execute(prog *interp.Program) error {
	_, err := ns.interp.Execute(prog)
	ns.mu.Lock()
	defer ns.mu.Unlock()
	names := ns.pending[prog]
	delete(ns.pending, prog)
	if err != nil {
		return err
	}
	for _, name := range names {
		ns.declared[name] = struct{}{}
	}
	return nil
}

// Lookup returns the value bound to name, if any. Predeclared identifiers
// count only when a fragment redeclared them.
func (ns *Namespace) Lookup(name string) (value reflect.Value, ok bool) {
	if ns == nil || !token.IsIdentifier(name) {
		return reflect.Value{}, false
	}
	if types.Universe.Lookup(name) != nil && !ns.isDeclared(name) {
		return reflect.Value{}, false
	}
	defer func() {
		if recover() != nil {
			value, ok = reflect.Value{}, false
		}
	}()
	v, err := ns.interp.Eval(name)
	if err != nil || !v.IsValid() {
		return reflect.Value{}, false
	}
	return v, true
}

// Names returns the sorted top-level names bound in the namespace: the
// interpreter's globals plus the functions and types executed fragments declared.
func (ns *Namespace) Names() []string {
	if ns == nil {
		return nil
	}
	seen := map[string]struct{}{}
	for name := range ns.interp.Globals() {
		seen[name] = struct{}{}
	}
	ns.mu.Lock()
	for name := range ns.declared {
		seen[name] = struct{}{}
	}
	ns.mu.Unlock()
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ns *Namespace) isDeclared(name string) bool {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	_, ok := ns.declared[name]
	return ok
}
