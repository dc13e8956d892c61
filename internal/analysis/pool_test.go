package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type fakeRuntime struct {
	id      int
	inUse   atomic.Bool
	closed  atomic.Bool
	analyze func(req Request) (*PageAnalysis, error)
}

func (f *fakeRuntime) Analyze(ctx context.Context, req Request) (*PageAnalysis, error) {
	if !f.inUse.CompareAndSwap(false, true) {
		return nil, errors.New("runtime shared between workers")
	}
	defer f.inUse.Store(false)

	if f.analyze != nil {
		return f.analyze(req)
	}
	return &PageAnalysis{IsStatic: true}, nil
}

func (f *fakeRuntime) Close() error {
	f.closed.Store(true)
	return nil
}

func fakeFactory(runtimes *[]*fakeRuntime, analyze func(req Request) (*PageAnalysis, error)) RuntimeFactory {
	return func() (Runtime, error) {
		rt := &fakeRuntime{id: len(*runtimes), analyze: analyze}
		*runtimes = append(*runtimes, rt)
		return rt, nil
	}
}

func TestPoolResolvesEverySubmission(t *testing.T) {
	var runtimes []*fakeRuntime
	pool, err := NewPool(3, fakeFactory(&runtimes, func(req Request) (*PageAnalysis, error) {
		return &PageAnalysis{IsStatic: true}, nil
	}))
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	var futures []*Future
	for i := 0; i < 20; i++ {
		futures = append(futures, pool.Submit(ctx, Request{Page: fmt.Sprintf("/page-%02d", i)}))
	}

	for i, fut := range futures {
		res, err := fut.Await(ctx)
		if err != nil {
			t.Fatalf("Await(%d) error: %v", i, err)
		}
		if res.Err != nil {
			t.Fatalf("result %d error: %v", i, res.Err)
		}
		if want := fmt.Sprintf("/page-%02d", i); res.Page != want {
			t.Errorf("result %d Page = %q, want %q", i, res.Page, want)
		}
		if res.Analysis == nil || !res.Analysis.IsStatic {
			t.Errorf("result %d Analysis = %+v", i, res.Analysis)
		}
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	var active, peak int32
	var runtimes []*fakeRuntime

	pool, err := NewPool(2, fakeFactory(&runtimes, func(req Request) (*PageAnalysis, error) {
		cur := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return &PageAnalysis{}, nil
	}))
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	var futures []*Future
	for i := 0; i < 16; i++ {
		futures = append(futures, pool.Submit(ctx, Request{Page: fmt.Sprintf("/p%d", i)}))
	}
	for _, fut := range futures {
		if _, err := fut.Await(ctx); err != nil {
			t.Fatalf("Await() error: %v", err)
		}
	}

	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", got)
	}
	if len(runtimes) != 2 {
		t.Errorf("runtime count = %d, want 2", len(runtimes))
	}
}

func TestPoolDefaultSize(t *testing.T) {
	var runtimes []*fakeRuntime
	pool, err := NewPool(0, fakeFactory(&runtimes, nil))
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}
	defer pool.Close()

	if len(runtimes) != runtime.NumCPU() {
		t.Errorf("runtime count = %d, want %d", len(runtimes), runtime.NumCPU())
	}
}

func TestPoolSubmitAfterClose(t *testing.T) {
	var runtimes []*fakeRuntime
	pool, err := NewPool(1, fakeFactory(&runtimes, nil))
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	res, err := pool.Submit(context.Background(), Request{Page: "/late"}).Await(context.Background())
	if err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	if !errors.Is(res.Err, ErrPoolClosed) {
		t.Errorf("Err = %v, want ErrPoolClosed", res.Err)
	}
	if res.Page != "/late" {
		t.Errorf("Page = %q, want /late", res.Page)
	}
}

func TestPoolCloseResolvesQueued(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	var runtimes []*fakeRuntime
	pool, err := NewPool(1, fakeFactory(&runtimes, func(req Request) (*PageAnalysis, error) {
		close(started)
		<-release
		return &PageAnalysis{}, nil
	}))
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}

	ctx := context.Background()
	running := pool.Submit(ctx, Request{Page: "/running"})
	<-started

	var queuedFutures []*Future
	for i := 0; i < 3; i++ {
		queuedFutures = append(queuedFutures, pool.Submit(ctx, Request{Page: fmt.Sprintf("/queued-%d", i)}))
	}

	closed := make(chan error, 1)
	go func() { closed <- pool.Close() }()

	for _, fut := range queuedFutures {
		res, err := fut.Await(ctx)
		if err != nil {
			t.Fatalf("Await() error: %v", err)
		}
		if !errors.Is(res.Err, ErrPoolClosed) {
			t.Errorf("queued Err = %v, want ErrPoolClosed", res.Err)
		}
	}

	close(release)

	res, err := running.Await(ctx)
	if err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	if res.Err != nil {
		t.Errorf("running task Err = %v, want nil", res.Err)
	}
	if err := <-closed; err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestPoolCloseClosesRuntimes(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runtimes []*fakeRuntime
	pool, err := NewPool(4, fakeFactory(&runtimes, nil))
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		pool.Submit(ctx, Request{Page: fmt.Sprintf("/p%d", i)})
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}

	for i, rt := range runtimes {
		if !rt.closed.Load() {
			t.Errorf("runtime %d not closed", i)
		}
	}
}

func TestPoolFactoryFailure(t *testing.T) {
	var runtimes []*fakeRuntime
	calls := 0
	factory := func() (Runtime, error) {
		calls++
		if calls == 3 {
			return nil, errors.New("context allocation failed")
		}
		rt := &fakeRuntime{id: calls}
		runtimes = append(runtimes, rt)
		return rt, nil
	}

	if _, err := NewPool(4, factory); err == nil {
		t.Fatal("NewPool() should fail when the factory fails")
	}
	for i, rt := range runtimes {
		if !rt.closed.Load() {
			t.Errorf("runtime %d leaked open after factory failure", i)
		}
	}
}

func TestFutureAwaitCanceled(t *testing.T) {
	release := make(chan struct{})

	var runtimes []*fakeRuntime
	pool, err := NewPool(1, fakeFactory(&runtimes, func(req Request) (*PageAnalysis, error) {
		<-release
		return &PageAnalysis{}, nil
	}))
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}
	defer pool.Close()
	defer close(release)

	fut := pool.Submit(context.Background(), Request{Page: "/blocked"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fut.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Await() error = %v, want context.Canceled", err)
	}
}

func TestPoolResultErrors(t *testing.T) {
	var runtimes []*fakeRuntime
	pool, err := NewPool(1, fakeFactory(&runtimes, func(req Request) (*PageAnalysis, error) {
		if req.Page == "/broken" {
			return nil, &InvalidExportError{Page: req.Page}
		}
		return &PageAnalysis{HasStaticProps: true}, nil
	}))
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	res, err := pool.Submit(ctx, Request{Page: "/broken"}).Await(ctx)
	if err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	if !IsInvalidExport(res.Err) {
		t.Errorf("Err = %v, want invalid-export", res.Err)
	}

	res, err = pool.Submit(ctx, Request{Page: "/ok"}).Await(ctx)
	if err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	if res.Err != nil || !res.Analysis.HasStaticProps {
		t.Errorf("result = %+v", res)
	}
}

func TestIsInvalidExport(t *testing.T) {
	err := &InvalidExportError{Page: "/about"}

	if !IsInvalidExport(err) {
		t.Error("IsInvalidExport() should detect the error directly")
	}
	if !IsInvalidExport(fmt.Errorf("analysis: %w", err)) {
		t.Error("IsInvalidExport() should detect the error through wrapping")
	}
	if IsInvalidExport(errors.New("other")) {
		t.Error("IsInvalidExport() should reject unrelated errors")
	}
	if IsInvalidExport(nil) {
		t.Error("IsInvalidExport(nil) should be false")
	}
}
