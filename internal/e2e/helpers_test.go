package e2e

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phayes/freeport"

	"diffusiond/internal/httpapi"
	"diffusiond/internal/manager"
)

// fakeRuntime speaks the diffusion runtime protocol and renders flat PNGs
// of the requested size.
type fakeRuntime struct {
	mu       sync.Mutex
	loads    []map[string]any
	calls    []map[string]any
	inflight int
	maxSeen  int
	// callDelay holds each pipeline call open so overlap would be observable.
	callDelay time.Duration
	// callStatus, when non-zero, fails every pipeline call with this status.
	callStatus int
	mem        uint64
}

func (f *fakeRuntime) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /info", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, map[string]any{
			"accelerator": true,
			"device_name": "NVIDIA L4",
			"versions":    map[string]string{"cuda": "12.1", "torch": "2.3.0"},
			"devices":     []map[string]any{{"name": "NVIDIA L4", "total_memory": uint64(24) << 30, "multi_processor_count": 58}},
		})
	})
	mux.HandleFunc("POST /pipelines", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.loads = append(f.loads, body)
		n := len(f.loads)
		f.mu.Unlock()
		writeBody(w, map[string]any{"handle": fmt.Sprintf("p-%d", n)})
	})
	mux.HandleFunc("POST /pipelines/{handle}/call", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.calls = append(f.calls, body)
		f.inflight++
		if f.inflight > f.maxSeen {
			f.maxSeen = f.inflight
		}
		delay, status := f.callDelay, f.callStatus
		f.mem += 1 << 20
		f.mu.Unlock()
		defer func() {
			f.mu.Lock()
			f.inflight--
			f.mu.Unlock()
		}()
		time.Sleep(delay)
		if status != 0 {
			http.Error(w, "CUDA out of memory", status)
			return
		}
		kw, _ := body["kwargs"].(map[string]any)
		wpx, _ := kw["width"].(float64)
		hpx, _ := kw["height"].(float64)
		writeBody(w, map[string]any{"images": []string{flatPNG(int(wpx), int(hpx))}})
	})
	mux.HandleFunc("DELETE /pipelines/{handle}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /accelerator/empty_cache", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /accelerator/memory_allocated", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		m := f.mem
		f.mu.Unlock()
		writeBody(w, map[string]any{"bytes": m})
	})
	return mux
}

func (f *fakeRuntime) snapshot() (loads, calls []map[string]any, maxSeen int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.loads...), append([]map[string]any(nil), f.calls...), f.maxSeen
}

func writeBody(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func flatPNG(w, h int) string {
	if w <= 0 || h <= 0 {
		w, h = 8, 8
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 90, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// stack is a running diffusiond HTTP server wired to a fake runtime.
type stack struct {
	URL     string
	Runtime *fakeRuntime
	Manager *manager.Manager
}

// newStack starts the real mux on a free local port in front of a fake runtime.
func newStack(t *testing.T, rt *fakeRuntime) *stack {
	t.Helper()
	if rt == nil {
		rt = &fakeRuntime{}
	}
	rtSrv := httptest.NewServer(rt.handler())
	t.Cleanup(rtSrv.Close)

	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Runtime: manager.NewDiffusersServerRuntime(manager.ServerOptions{
			BaseURL:        rtSrv.URL,
			RequestTimeout: 10 * time.Second,
		}),
		Device: manager.DeviceCUDA,
	})

	port, err := freeport.GetFreePort()
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("listen %s: %v", addr, err)
	}
	srv := &http.Server{Handler: httpapi.NewMux(mgr), ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		_ = mgr.Close(ctx)
	})

	s := &stack{URL: "http://" + addr, Runtime: rt, Manager: mgr}
	waitHealthy(t, s.URL+"/healthz")
	return s
}

func waitHealthy(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server at %s never became healthy", url)
}

func postJSON(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func decodePNGSize(t *testing.T, b64 string) (int, int) {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return cfg.Width, cfg.Height
}
