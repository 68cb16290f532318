package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolClosed is returned when submitting to a pool that has been closed or shut down
var ErrPoolClosed = errors.New("worker pool closed")

// ErrJobPanic marks a job that panicked instead of returning a result
var ErrJobPanic = errors.New("job panicked")

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// errResult is what a future resolves to when its job never produced a Result
type errResult struct {
	err error
}

func (r *errResult) GetError() error {
	return r.err
}

// Future resolves to the Result of one submitted job
type Future struct {
	done   chan struct{}
	result Result
	once   sync.Once
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(r Result) {
	f.once.Do(func() {
		if r == nil {
			r = &errResult{}
		}
		f.result = r
		close(f.done)
	})
}

// Done is closed once the result is available
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the job has resolved
func (f *Future) Wait() Result {
	<-f.done
	return f.result
}

type task struct {
	job    Job
	future *Future
}

// Pool is a long-lived, explicitly constructed set of workers.
// Submitted jobs resolve through futures; the owner shuts the pool down.
type Pool struct {
	workers    int
	queue      chan task
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	mu         sync.RWMutex
	closed     bool
	startOnce  sync.Once
	closeOnce  sync.Once
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:    workers,
		queue:      make(chan task, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Workers returns the configured parallelism
func (p *Pool) Workers() int {
	return p.workers
}

// Start starts the workers. Calling it more than once has no effect.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			p.run(t)
		}
	}
}

// run executes one job, turning a panic into an error result
func (p *Pool) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			t.future.resolve(&errResult{err: fmt.Errorf("%w: %v", ErrJobPanic, r)})
		}
	}()
	t.future.resolve(t.job.Execute(p.ctx))
}

// Submit queues a job and returns its future.
// It blocks while the queue is full and fails with ErrPoolClosed after Close or Shutdown.
func (p *Pool) Submit(job Job) (*Future, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	f := newFuture()
	select {
	case <-p.ctx.Done():
		return nil, ErrPoolClosed
	case p.queue <- task{job: job, future: f}:
		return f, nil
	}
}

// Close stops accepting jobs and waits for every queued job to finish
func (p *Pool) Close() {
	p.markClosed()
	p.Start() // a never-started pool still has to drain its queue
	p.wg.Wait()
}

// Shutdown cancels running jobs and fails the ones still queued
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.markClosed()
	p.wg.Wait()

	for t := range p.queue {
		t.future.resolve(&errResult{err: ErrPoolClosed})
	}
}

func (p *Pool) markClosed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.closeOnce.Do(func() {
		close(p.queue)
	})
}

// Collect waits for every future and returns the results in submission order
func Collect(futures []*Future) []Result {
	results := make([]Result, len(futures))
	for i, f := range futures {
		results[i] = f.Wait()
	}
	return results
}
