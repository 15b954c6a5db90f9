package cluster

import (
	"context"
	"errors"
	"fmt"
	goruntime "runtime"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/nbimport/internal/logging"
	"github.com/kingrea/nbimport/internal/runtime"
)

// ErrClosed is returned for work submitted to a stopped cluster.
var ErrClosed = errors.New("cluster: closed")

// Task is a unit of work executed against a worker's runtime.
type Task func(rt *runtime.Runtime) (any, error)

// Preload runs against every worker runtime before the worker accepts tasks.
type Preload func(rt *runtime.Runtime) error

// Options configures a local cluster.
type Options struct {
	// Workers defaults to the number of CPUs.
	Workers int
	// ThreadsPerWorker is how many tasks a worker runs at once. Defaults to 1.
	ThreadsPerWorker int
	Preload          []Preload
	Logger           *log.Logger
	// Runtime builds each worker's runtime. Defaults to runtime.New.
	Runtime func() *runtime.Runtime
}

// Worker owns an isolated runtime and the goroutines that serve its queue.
type Worker struct {
	ID      string
	Runtime *runtime.Runtime

	queue   chan job
	pending atomic.Int64
}

type job struct {
	ctx    context.Context
	task   Task
	result chan<- Result
}

// Result is the outcome of one task.
type Result struct {
	WorkerID string
	Value    any
	Err      error
}

// Cluster is a fixed set of in-process workers.
type Cluster struct {
	workers []*Worker
	logger  *log.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewLocal starts a cluster. Every preload runs on every worker before any
// worker starts serving; a preload failure stops start-up.
func NewLocal(opts Options) (*Cluster, error) {
	opts.normalize()
	c := &Cluster{logger: opts.Logger}
	for i := 0; i < opts.Workers; i++ {
		w := &Worker{
			ID:      uuid.NewString(),
			Runtime: opts.Runtime(),
			queue:   make(chan job),
		}
		for _, preload := range opts.Preload {
			if err := preload(w.Runtime); err != nil {
				return nil, fmt.Errorf("cluster: preload worker %s: %w", w.ID, err)
			}
		}
		c.workers = append(c.workers, w)
	}
	for _, w := range c.workers {
		for t := 0; t < opts.ThreadsPerWorker; t++ {
			c.wg.Add(1)
			go c.serve(w)
		}
	}
	c.logger.Info("cluster started", "workers", len(c.workers), "threads", opts.ThreadsPerWorker)
	return c, nil
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = goruntime.NumCPU()
	}
	if o.ThreadsPerWorker <= 0 {
		o.ThreadsPerWorker = 1
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.Runtime == nil {
		o.Runtime = func() *runtime.Runtime { return runtime.New() }
	}
}

func (c *Cluster) serve(w *Worker) {
	defer c.wg.Done()
	for j := range w.queue {
		j.result <- execute(w, j)
		close(j.result)
		w.pending.Add(-1)
	}
}

func execute(w *Worker, j job) (res Result) {
	res.WorkerID = w.ID
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("cluster: task panicked on %s: %v", w.ID, r)
		}
	}()
	if err := j.ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	res.Value, res.Err = j.task(w.Runtime)
	return res
}

// Workers returns the cluster's workers.
func (c *Cluster) Workers() []*Worker {
	out := make([]*Worker, len(c.workers))
	copy(out, c.workers)
	return out
}

// Close stops accepting work and waits for running tasks to finish.
func (c *Cluster) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for _, w := range c.workers {
		close(w.queue)
	}
	c.mu.Unlock()
	c.wg.Wait()
	c.logger.Info("cluster stopped")
	return nil
}

func (c *Cluster) dispatch(ctx context.Context, w *Worker, task Task) (<-chan Result, error) {
	result := make(chan Result, 1)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	w.pending.Add(1)
	select {
	case w.queue <- job{ctx: ctx, task: task, result: result}:
		return result, nil
	case <-ctx.Done():
		w.pending.Add(-1)
		return nil, ctx.Err()
	}
}

func (c *Cluster) leastLoaded() *Worker {
	var best *Worker
	for _, w := range c.workers {
		if best == nil || w.pending.Load() < best.pending.Load() {
			best = w
		}
	}
	return best
}

// Client submits work to a cluster.
type Client struct {
	cluster *Cluster
}

// NewClient binds a client to c.
func NewClient(c *Cluster) *Client {
	return &Client{cluster: c}
}

// Run executes task once on every worker and returns the results in worker
// order. The first error cancels the remaining dispatches.
func (cl *Client) Run(ctx context.Context, task Task) ([]Result, error) {
	workers := cl.cluster.workers
	results := make([]Result, len(workers))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range workers {
		i, w := i, w
		g.Go(func() error {
			ch, err := cl.cluster.dispatch(gctx, w, task)
			if err != nil {
				return err
			}
			select {
			case res := <-ch:
				results[i] = res
				if res.Err != nil {
					return fmt.Errorf("cluster: worker %s: %w", w.ID, res.Err)
				}
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	err := g.Wait()
	return results, err
}

// Submit queues task on the least-loaded worker.
func (cl *Client) Submit(ctx context.Context, task Task) (*Future, error) {
	w := cl.cluster.leastLoaded()
	if w == nil {
		return nil, fmt.Errorf("cluster: no workers")
	}
	ch, err := cl.cluster.dispatch(ctx, w, task)
	if err != nil {
		return nil, err
	}
	return &Future{ch: ch}, nil
}

// Future is a pending task result. Wait may be called more than once.
type Future struct {
	ch <-chan Result

	mu   sync.Mutex
	done bool
	res  Result
}

// Wait blocks until the task finishes or ctx is done.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return f.res, f.res.Err
	}
	select {
	case res := <-f.ch:
		f.res, f.done = res, true
		return res, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
