package cluster

import (
	"github.com/charmbracelet/log"

	"github.com/kingrea/nbimport/internal/bootstrap"
	"github.com/kingrea/nbimport/internal/loader"
	"github.com/kingrea/nbimport/internal/runtime"
)

// Setup starts a local cluster whose workers can import notebooks. Zero
// workers means one per CPU. Finder options apply to every worker's finder.
func Setup(workers, threadsPerWorker int, logger *log.Logger, opts ...loader.Option) (*Client, *Cluster, error) {
	preload := bootstrap.InitWorker
	if len(opts) > 0 {
		preload = func(rt *runtime.Runtime) error {
			bootstrap.Install(rt, opts...)
			return nil
		}
	}
	c, err := NewLocal(Options{
		Workers:          workers,
		ThreadsPerWorker: threadsPerWorker,
		Preload:          []Preload{preload},
		Logger:           logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return NewClient(c), c, nil
}

// ImportTask imports name on whichever worker runs it and returns the module.
func ImportTask(name string) Task {
	return func(rt *runtime.Runtime) (any, error) {
		return rt.Import(name)
	}
}
