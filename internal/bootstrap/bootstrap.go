// Package bootstrap installs the notebook finder into a runtime's chain,
// exactly once per runtime. The process-wide runtime is created lazily by
// Default; Init installs into it and is safe to call any number of times.
package bootstrap

import (
	"sync"

	"github.com/kingrea/nbimport/internal/loader"
	"github.com/kingrea/nbimport/internal/runtime"
)

var (
	defaultOnce    sync.Once
	defaultRuntime *runtime.Runtime
)

// Default returns the process-wide runtime.
func Default() *runtime.Runtime {
	defaultOnce.Do(func() {
		defaultRuntime = runtime.New()
	})
	return defaultRuntime
}

// Init installs a notebook finder into the process-wide runtime. Repeated
// calls leave the chain unchanged.
func Init() {
	Install(Default())
}

// InitWorker installs a notebook finder into a worker's own runtime. It is the
// preload callback handed to the cluster.
func InitWorker(rt *runtime.Runtime) error {
	Install(rt)
	return nil
}

// Install appends a notebook finder to the end of rt's chain unless one is
// already installed, and reports whether it appended.
func Install(rt *runtime.Runtime, opts ...loader.Option) bool {
	if rt == nil {
		return false
	}
	return rt.Chain().AppendUnless(loader.New(opts...), Installed)
}

// Installed reports whether f is a notebook finder.
func Installed(f runtime.Finder) bool {
	_, ok := f.(*loader.Finder)
	return ok
}
