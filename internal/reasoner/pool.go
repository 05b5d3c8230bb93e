package reasoner

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"modalkb/internal/logging"
)

// Runner is a cancellable unit of work. Stop is a request; runners
// check StopRequested at safe points and exit cooperatively.
type Runner interface {
	Run()
	Stop()
	StopRequested() bool
}

// RunnerBase carries the stop flag. Embed it in runner
// implementations.
type RunnerBase struct {
	stop atomic.Bool
}

// Stop requests cooperative cancellation.
func (b *RunnerBase) Stop() { b.stop.Store(true) }

// StopRequested reports whether cancellation was requested.
func (b *RunnerBase) StopRequested() bool { return b.stop.Load() }

// WorkerHooks are backend-overridable per-worker lifecycle hooks.
// Initialize runs once when a worker starts; an error retires that
// worker. Finalize runs when the worker exits.
type WorkerHooks struct {
	Initialize func() error
	Finalize   func()
}

// WorkerPool is a fixed-size pool of workers pulling runners from a
// shared bounded queue.
type WorkerPool struct {
	mu       sync.RWMutex
	tasks    chan Runner
	group    *errgroup.Group
	hooks    WorkerHooks
	shutdown bool
	once     sync.Once
}

// NewWorkerPool starts size workers; zero or negative selects the
// number of CPUs.
func NewWorkerPool(size int, hooks WorkerHooks) *WorkerPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &WorkerPool{
		tasks: make(chan Runner, size*16),
		group: &errgroup.Group{},
		hooks: hooks,
	}
	for i := 0; i < size; i++ {
		p.group.Go(p.worker)
	}
	return p
}

func (p *WorkerPool) worker() error {
	if p.hooks.Initialize != nil {
		if err := p.hooks.Initialize(); err != nil {
			logging.Errorf("worker initialization failed: %v", err)
			return err
		}
	}
	if p.hooks.Finalize != nil {
		defer p.hooks.Finalize()
	}
	for r := range p.tasks {
		if r.StopRequested() {
			continue
		}
		r.Run()
	}
	return nil
}

// Submit enqueues a runner, blocking while the queue is full. Runners
// submitted after Shutdown are dropped with a warning; the return
// reports acceptance.
func (p *WorkerPool) Submit(r Runner) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.shutdown {
		logging.Warnf("dropping runner submitted to a stopped worker pool")
		return false
	}
	p.tasks <- r
	return true
}

// Shutdown stops accepting work, drains the queue, and waits for all
// workers to exit.
func (p *WorkerPool) Shutdown() {
	p.once.Do(func() {
		p.mu.Lock()
		p.shutdown = true
		close(p.tasks)
		p.mu.Unlock()
	})
	_ = p.group.Wait()
}
