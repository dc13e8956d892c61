package analysis

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrPoolClosed resolves futures for requests the pool never ran.
var ErrPoolClosed = errors.New("analysis pool is closed")

// Result pairs an analysis verdict with the page it belongs to.
type Result struct {
	// Page is the analyzed page path.
	Page string

	// Analysis is the verdict. Nil when Err is set.
	Analysis *PageAnalysis

	// Err is the analysis failure, if any.
	Err error
}

// Future resolves to the result of one submitted request.
type Future struct {
	done chan struct{}
	res  Result
}

// Await blocks until the result is available or the context ends.
func (f *Future) Await(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (f *Future) resolve(res Result) {
	f.res = res
	close(f.done)
}

// Pool runs page analysis on a fixed set of workers. Submissions are
// unbounded; concurrency is bounded by the worker count.
type Pool interface {
	Submit(ctx context.Context, req Request) *Future
	Close() error
}

type queued struct {
	ctx context.Context
	req Request
	fut *Future
}

// WorkerPool is the production Pool. Every worker owns one Runtime from
// the factory and reuses it for each request it picks up.
type WorkerPool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []queued
	closed   bool
	wg       sync.WaitGroup
	runtimes []Runtime
}

// NewPool starts size workers, each with its own Runtime. A size of zero
// or less uses the machine's available parallelism. A factory failure
// closes the runtimes already created and fails construction.
func NewPool(size int, factory RuntimeFactory) (*WorkerPool, error) {
	if size <= 0 {
		size = runtime.NumCPU()
	}

	p := &WorkerPool{}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < size; i++ {
		rt, err := factory()
		if err != nil {
			for _, open := range p.runtimes {
				open.Close()
			}
			return nil, err
		}
		p.runtimes = append(p.runtimes, rt)
	}

	for _, rt := range p.runtimes {
		p.wg.Add(1)
		go p.worker(rt)
	}
	return p, nil
}

// Submit enqueues a request without blocking and returns its Future.
// After Close the Future resolves immediately with ErrPoolClosed.
func (p *WorkerPool) Submit(ctx context.Context, req Request) *Future {
	fut := &Future{done: make(chan struct{})}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		fut.resolve(Result{Page: req.Page, Err: ErrPoolClosed})
		return fut
	}
	p.queue = append(p.queue, queued{ctx: ctx, req: req, fut: fut})
	p.mu.Unlock()

	p.cond.Signal()
	return fut
}

// Close stops the workers after their current task, resolves queued
// futures with ErrPoolClosed and closes every Runtime. It is safe to call
// more than once.
func (p *WorkerPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	pending := p.queue
	p.queue = nil
	p.mu.Unlock()

	p.cond.Broadcast()

	for _, q := range pending {
		q.fut.resolve(Result{Page: q.req.Page, Err: ErrPoolClosed})
	}

	p.wg.Wait()

	var firstErr error
	for _, rt := range p.runtimes {
		if err := rt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *WorkerPool) worker(rt Runtime) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		q := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		analysis, err := rt.Analyze(q.ctx, q.req)
		q.fut.resolve(Result{Page: q.req.Page, Analysis: analysis, Err: err})
	}
}
