package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kingrea/nbimport/internal/logging"
	"github.com/kingrea/nbimport/internal/metrics"
	"github.com/kingrea/nbimport/internal/notebook"
	"github.com/kingrea/nbimport/internal/runtime"
	"github.com/kingrea/nbimport/internal/session"
)

const (
	// DefaultExtension is appended to a module name to find its notebook.
	DefaultExtension = ".ipynb"
	// DefaultExcludeTag marks a cell its author does not want imported.
	DefaultExcludeTag = "noimport"
)

// DefaultDirectivePrefixes mark cells holding session-only magics.
var DefaultDirectivePrefixes = []string{"%"}

// Finder resolves module names to notebooks and executes their code cells.
// It implements both runtime.Finder and runtime.Loader.
type Finder struct {
	dir               string
	extension         string
	directivePrefixes []string
	excludeTag        string

	logger  *log.Logger
	metrics *metrics.Collector
	session session.Lookup
}

// Option customizes a Finder.
type Option func(*Finder)

// WithDir sets the search directory. Without it names resolve against the
// working directory at lookup time.
func WithDir(dir string) Option {
	return func(f *Finder) {
		f.dir = dir
	}
}

// WithExtension overrides the notebook file extension.
func WithExtension(ext string) Option {
	return func(f *Finder) {
		if ext != "" {
			f.extension = ext
		}
	}
}

// WithDirectivePrefixes overrides the prefixes that mark session-only cells.
func WithDirectivePrefixes(prefixes ...string) Option {
	return func(f *Finder) {
		var kept []string
		for _, p := range prefixes {
			if p != "" {
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			f.directivePrefixes = kept
		}
	}
}

// WithExcludeTag overrides the metadata tag that opts a cell out.
func WithExcludeTag(tag string) Option {
	return func(f *Finder) {
		if tag != "" {
			f.excludeTag = tag
		}
	}
}

// WithLogger overrides the default discard logger.
func WithLogger(l *log.Logger) Option {
	return func(f *Finder) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMetrics records lookups, loads and cell outcomes.
func WithMetrics(c *metrics.Collector) Option {
	return func(f *Finder) {
		f.metrics = c
	}
}

// WithSession overrides how the active interactive session is found.
func WithSession(lookup session.Lookup) Option {
	return func(f *Finder) {
		if lookup != nil {
			f.session = lookup
		}
	}
}

// New returns a notebook finder.
func New(opts ...Option) *Finder {
	f := &Finder{
		extension:         DefaultExtension,
		directivePrefixes: DefaultDirectivePrefixes,
		excludeTag:        DefaultExcludeTag,
		logger:            logging.Discard(),
		session:           session.Active,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// PathFor maps a module name to its candidate notebook path.
func (f *Finder) PathFor(name string) string {
	file := name + f.extension
	if f.dir == "" {
		return file
	}
	return filepath.Join(f.dir, file)
}

// FindSpec claims name when its notebook is readable. Anything else is a
// miss so the rest of the chain can try.
func (f *Finder) FindSpec(name string, _ []string) (*runtime.Spec, error) {
	path := f.PathFor(name)
	if !readable(path) {
		f.metrics.RecordLookup(false)
		return nil, nil
	}
	origin, err := canonical(path)
	if err != nil {
		f.logger.Debug("notebook not resolvable", "path", path, "err", err)
		f.metrics.RecordLookup(false)
		return nil, nil
	}
	f.metrics.RecordLookup(true)
	return &runtime.Spec{Name: name, Loader: f, Origin: origin}, nil
}

// CreateModule defers to the runtime's default allocation.
func (f *Finder) CreateModule(*runtime.Spec) (*runtime.Module, error) {
	return nil, nil
}

// ExecModule reads the module's notebook and runs its importable code cells
// into the module namespace, stopping at the first failure.
func (f *Finder) ExecModule(m *runtime.Module) (err error) {
	started := time.Now()
	defer func() {
		f.metrics.RecordLoad(err, time.Since(started))
	}()

	path := f.PathFor(m.Name)
	nb, err := f.read(path)
	if err != nil {
		return err
	}
	for _, cell := range f.Plan(nb, path) {
		if !cell.Runnable() {
			f.logger.Debug("skipping cell", "module", m.Name, "cell", cell.Index, "reason", cell.Skip)
			f.metrics.RecordCell(string(cell.Skip))
			continue
		}
		if err := f.runCell(m, path, cell); err != nil {
			f.metrics.RecordCell(metrics.CellFailed)
			f.logger.Error("cell failed", "module", m.Name, "cell", cell.Index, "err", err)
			return err
		}
		m.MarkExecuted()
		f.metrics.RecordCell(metrics.CellExecuted)
	}
	f.logger.Info("notebook imported", "module", m.Name, "path", path, "cells", m.Executed())
	return nil
}

func (f *Finder) read(path string) (*notebook.Notebook, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer file.Close()
	nb, err := notebook.Read(file)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	return nb, nil
}

func (f *Finder) runCell(m *runtime.Module, path string, cell PlannedCell) error {
	label := cell.Label
	if s, ok := f.session(); ok && s != nil {
		label = s.Cache(cell.Source)
	}
	prog, err := m.Namespace.Compile(cell.Source)
	if err != nil {
		return &CellError{Path: path, Index: cell.Index, Label: label, Stage: StageCompile, Err: err}
	}
	if err := m.Namespace.Execute(prog); err != nil {
		return &CellError{Path: path, Index: cell.Index, Label: label, Stage: StageExecute, Err: err}
	}
	return nil
}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
