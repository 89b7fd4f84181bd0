package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"diffusiond/internal/manager"
	"diffusiond/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
	Generate(ctx context.Context, req types.GenerateRequest) (manager.Result, error)
	Diagnostics(ctx context.Context) types.Diagnostics
	Warm(ctx context.Context, labelOrID string) (string, error)
}

// WarmResponse is returned by POST /models/{model}/load.
type WarmResponse struct {
	// Operation id of the background load.
	Op string `json:"op"`
	// example: SG161222/RealVisXL_V4.0
	Model string `json:"model" example:"SG161222/RealVisXL_V4.0"`
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	ui := newUIHandler(svc)
	r.With(InflightMiddleware).Get("/", ui.page)
	r.With(InflightMiddleware).Post("/", ui.generate)

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ModelsResponse{Models: svc.ListModels()})
	})
	r.Post("/models/{model}/load", handleWarm(svc))
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})
	r.Get("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Diagnostics(r.Context()))
	})
	r.With(InflightMiddleware).Post("/generate", handleGenerate(svc))
	r.With(InflightMiddleware).Post("/v1/images/generations", handleOpenAIImages(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	if swaggerEnabled {
		MountSwagger(r)
	}
	return r
}

// isJSON reports whether the request declares a JSON body.
func isJSON(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct != "" && strings.HasPrefix(strings.ToLower(ct), "application/json")
}

// decodeJSON enforces content type and body size, then decodes into v.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if !isJSON(r) {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// oversize bodies also land here; report 400 without size details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// handleGenerate godoc
// @Summary      Generate an image
// @Description  Runs one generation behind the process-wide generation lock and returns a base64 PNG.
// @Tags         generate
// @Accept       json
// @Produce      json
// @Param        request  body      types.GenerateRequest  true  "Generation parameters"
// @Success      200      {object}  types.GenerateResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      404      {object}  types.ErrorResponse
// @Failure      502      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /generate [post]
func handleGenerate(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.GenerateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		// Basic validation
		if strings.TrimSpace(req.Prompt) == "" {
			writeJSONError(w, http.StatusBadRequest, "prompt is required")
			return
		}
		res, ok := runGenerate(w, r, svc, "json", req)
		if !ok {
			return
		}
		writeJSON(w, toGenerateResponse(res))
	}
}

// runGenerate calls the service with logging, metrics and error mapping. On
// failure it writes a JSON error and returns false.
func runGenerate(w http.ResponseWriter, r *http.Request, svc Service, surface string, req types.GenerateRequest) (manager.Result, bool) {
	start := time.Now()
	lvl := requestLogLevel(r)
	logGenerateStart(r, lvl, surface, req.Model, req.Prompt)
	ctx, cancel := generationContext(r.Context())
	defer cancel()
	res, err := svc.Generate(ctx, req)
	countImage(surface, err)
	if err != nil {
		status := statusForError(err)
		logGenerateEnd(r, lvl, status, start, err)
		// If the client went away there is nobody to answer.
		if r.Context().Err() != nil {
			return res, false
		}
		writeJSONError(w, status, err.Error())
		return res, false
	}
	logGenerateEnd(r, lvl, http.StatusOK, start, nil)
	return res, true
}

func toGenerateResponse(res manager.Result) types.GenerateResponse {
	return types.GenerateResponse{
		ID:                res.ID,
		Model:             res.ModelID,
		Caption:           res.Caption,
		ImageB64:          base64.StdEncoding.EncodeToString(res.PNG),
		Width:             res.Width,
		Height:            res.Height,
		ElapsedSeconds:    res.Elapsed.Seconds(),
		MemoryBeforeBytes: res.MemoryBefore,
		MemoryAfterBytes:  res.MemoryAfter,
		Steps:             res.Request.Steps,
		GuidanceScale:     res.Request.GuidanceScale,
	}
}

// handleWarm godoc
// @Summary      Load a model in the background
// @Tags         models
// @Produce      json
// @Param        model  path      string  true  "Catalog label or hub id (URL-escaped)"
// @Success      202    {object}  WarmResponse
// @Failure      404    {object}  types.ErrorResponse
// @Router       /models/{model}/load [post]
func handleWarm(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// hub ids contain a slash, so clients send it escaped
		model, err := url.PathUnescape(chi.URLParam(r, "model"))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid model")
			return
		}
		op, err := svc.Warm(serverBaseCtx, model)
		if err != nil {
			writeJSONError(w, statusForError(err), err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(WarmResponse{Op: op, Model: model})
	}
}
