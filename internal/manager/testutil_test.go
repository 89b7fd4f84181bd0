package manager

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"diffusiond/pkg/types"
)

// fakeRuntime is an in-memory Runtime used for tests. Pipelines it loads
// render a flat PNG of the requested size.
type fakeRuntime struct {
	mu        sync.Mutex
	specs     []LoadSpec
	pipelines []*fakePipeline

	loads      atomic.Int32
	emptyCache atomic.Int32
	loadDelay  time.Duration
	// loadErrs are returned by successive loads before loads start succeeding.
	loadErrs []error
	info     types.RuntimeInfo
	infoErr  error
	mem      uint64

	// template for each new pipeline
	callDelay time.Duration
	callErr   error
	callPanic string
	noImages  bool
}

func (f *fakeRuntime) Load(ctx context.Context, spec LoadSpec) (Pipeline, error) {
	f.loads.Add(1)
	if f.loadDelay > 0 {
		select {
		case <-time.After(f.loadDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs = append(f.specs, spec)
	if len(f.loadErrs) > 0 {
		err := f.loadErrs[0]
		f.loadErrs = f.loadErrs[1:]
		return nil, err
	}
	p := &fakePipeline{delay: f.callDelay, err: f.callErr, panicMsg: f.callPanic, noImages: f.noImages}
	f.pipelines = append(f.pipelines, p)
	return p, nil
}

func (f *fakeRuntime) EmptyCache(context.Context) error {
	f.emptyCache.Add(1)
	return nil
}

func (f *fakeRuntime) MemoryAllocated(context.Context) (uint64, error) { return f.mem, nil }

func (f *fakeRuntime) Info(context.Context) (types.RuntimeInfo, error) {
	if f.infoErr != nil {
		return types.RuntimeInfo{}, f.infoErr
	}
	return f.info, nil
}

func (f *fakeRuntime) lastSpec(t *testing.T) LoadSpec {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.specs) == 0 {
		t.Fatalf("no load observed")
	}
	return f.specs[len(f.specs)-1]
}

func (f *fakeRuntime) pipeline(t *testing.T, i int) *fakePipeline {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.pipelines) {
		t.Fatalf("pipeline %d not loaded (have %d)", i, len(f.pipelines))
	}
	return f.pipelines[i]
}

// fakePipeline records calls and flags any overlapping invocation.
type fakePipeline struct {
	mu       sync.Mutex
	calls    []PipelineCall
	active   atomic.Int32
	overlap  atomic.Bool
	closed   atomic.Bool
	delay    time.Duration
	err      error
	panicMsg string
	noImages bool
}

func (p *fakePipeline) Call(ctx context.Context, call PipelineCall) ([][]byte, error) {
	if p.active.Add(1) > 1 {
		p.overlap.Store(true)
	}
	defer p.active.Add(-1)
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.noImages {
		return nil, nil
	}
	b, err := flatPNG(intKwarg(call.Kwargs, "width"), intKwarg(call.Kwargs, "height"))
	if err != nil {
		return nil, err
	}
	return [][]byte{b}, nil
}

func (p *fakePipeline) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *fakePipeline) lastCall(t *testing.T) PipelineCall {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		t.Fatalf("no pipeline call observed")
	}
	return p.calls[len(p.calls)-1]
}

func intKwarg(kw map[string]any, key string) int {
	switch v := kw[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func flatPNG(w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.New("bad size")
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.Gray{Y: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// lockFree reports whether the generation lock can be taken right now. It
// leaves the lock released.
func lockFree(m *Manager) bool {
	select {
	case m.genCh <- struct{}{}:
		<-m.genCh
		return true
	default:
		return false
	}
}

func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}
