package manager

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"diffusiond/pkg/types"
)

// ServerOptions configures the HTTP diffusion runtime client.
type ServerOptions struct {
	BaseURL string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// HubToken is forwarded on load for gated model repositories.
	HubToken string
	// RequestTimeout bounds each pipeline call; zero means no bound.
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
}

// diffusersServer implements Runtime by talking to a diffusers runtime server over HTTP.
type diffusersServer struct {
	baseURL    string
	apiKey     string
	hubToken   string
	reqTimeout time.Duration
	httpClient *http.Client
}

// NewDiffusersServerRuntime constructs a server-backed runtime.
func NewDiffusersServerRuntime(opts ServerOptions) Runtime {
	connect := opts.ConnectTimeout
	if connect <= 0 {
		connect = 5 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connect,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout=0: every request carries a context deadline instead.
	return &diffusersServer{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		hubToken:   opts.HubToken,
		reqTimeout: opts.RequestTimeout,
		httpClient: &http.Client{Transport: tr, Timeout: 0},
	}
}

type loadRequest struct {
	ModelID       string `json:"model_id"`
	PipelineClass string `json:"pipeline_class"`
	Device        string `json:"device"`
	TorchDtype    string `json:"torch_dtype"`
	Token         string `json:"token,omitempty"`
}

type loadResponse struct {
	Handle string `json:"handle"`
}

type callRequest struct {
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

type callResponse struct {
	Images []string `json:"images"`
}

type memoryResponse struct {
	Bytes uint64 `json:"bytes"`
}

type infoResponse struct {
	Accelerator bool              `json:"accelerator"`
	DeviceName  string            `json:"device_name"`
	Versions    map[string]string `json:"versions"`
	Devices     []struct {
		Name                string `json:"name"`
		TotalMemory         uint64 `json:"total_memory"`
		MultiProcessorCount int    `json:"multi_processor_count"`
	} `json:"devices"`
}

func (s *diffusersServer) Load(ctx context.Context, spec LoadSpec) (Pipeline, error) {
	var out loadResponse
	err := s.do(ctx, http.MethodPost, "/pipelines", loadRequest{
		ModelID:       spec.ModelID,
		PipelineClass: spec.PipelineClass,
		Device:        string(spec.Device),
		TorchDtype:    string(spec.Precision),
		Token:         s.hubToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Handle == "" {
		return nil, runtimeError{status: http.StatusOK, msg: "load returned empty handle"}
	}
	return &serverPipeline{srv: s, handle: out.Handle, modelID: spec.ModelID}, nil
}

func (s *diffusersServer) EmptyCache(ctx context.Context) error {
	return s.do(ctx, http.MethodPost, "/accelerator/empty_cache", nil, nil)
}

func (s *diffusersServer) MemoryAllocated(ctx context.Context) (uint64, error) {
	var out memoryResponse
	if err := s.do(ctx, http.MethodGet, "/accelerator/memory_allocated", nil, &out); err != nil {
		return 0, err
	}
	return out.Bytes, nil
}

func (s *diffusersServer) Info(ctx context.Context) (types.RuntimeInfo, error) {
	var out infoResponse
	if err := s.do(ctx, http.MethodGet, "/info", nil, &out); err != nil {
		return types.RuntimeInfo{}, err
	}
	info := types.RuntimeInfo{
		Accelerator: out.Accelerator,
		DeviceName:  out.DeviceName,
		Versions:    out.Versions,
	}
	for i, d := range out.Devices {
		info.Devices = append(info.Devices, types.DeviceProperties{
			Index:            i,
			Name:             d.Name,
			TotalMemoryBytes: d.TotalMemory,
			ProcessorCount:   d.MultiProcessorCount,
		})
	}
	return info, nil
}

// do sends one JSON request. A nil in sends no body; a nil out discards the response.
func (s *diffusersServer) do(ctx context.Context, method, path string, in, out any) error {
	if s.baseURL == "" {
		return ErrDependencyUnavailable("diffusion runtime not configured")
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		// Translate context timeouts/cancels
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrDependencyUnavailable("diffusion runtime unreachable: " + err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return runtimeError{status: resp.StatusCode, msg: strings.TrimSpace(resp.Status + ": " + string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return runtimeError{status: resp.StatusCode, msg: "decode " + path + ": " + err.Error()}
	}
	return nil
}

// serverPipeline is a pipeline resident in the runtime server, addressed by handle.
type serverPipeline struct {
	srv     *diffusersServer
	handle  string
	modelID string
}

func (p *serverPipeline) Call(ctx context.Context, call PipelineCall) ([][]byte, error) {
	if p.srv.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.srv.reqTimeout)
		defer cancel()
	}
	args := call.Args
	if args == nil {
		args = []any{}
	}
	var out callResponse
	path := "/pipelines/" + url.PathEscape(p.handle) + "/call"
	if err := p.srv.do(ctx, http.MethodPost, path, callRequest{Args: args, Kwargs: call.Kwargs}, &out); err != nil {
		return nil, err
	}
	images := make([][]byte, 0, len(out.Images))
	for i, s := range out.Images {
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("decode image %d: %w", i, err)
		}
		images = append(images, b)
	}
	return images, nil
}

func (p *serverPipeline) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := p.srv.do(ctx, http.MethodDelete, "/pipelines/"+url.PathEscape(p.handle), nil, nil)
	var rerr runtimeError
	if errors.As(err, &rerr) && rerr.status == http.StatusNotFound {
		log.Debug().Str("model", p.modelID).Str("handle", p.handle).Msg("pipeline already released")
		return nil
	}
	return err
}
