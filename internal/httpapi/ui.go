package httpapi

import (
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/microcosm-cc/bluemonday"

	"diffusiond/internal/manager"
	"diffusiond/pkg/types"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTemplate = template.Must(
	template.New("index.html").Funcs(sprig.FuncMap()).ParseFS(templatesFS, "templates/index.html"),
)

// pageData feeds templates/index.html.
type pageData struct {
	Models   []types.Model
	Selected types.Model
	Form     formValues
	Limits   limits
	Diag     types.Diagnostics
	Result   *pageResult
	// Error is sanitized; runtime failures can carry an upstream HTML error page.
	Error    template.HTML
}

type formValues struct {
	Model          string
	Prompt         string
	NegativePrompt string
	Steps          int
	GuidanceScale  float64
	Width          int
	Height         int
}

type limits struct {
	MinSteps, MaxSteps       int
	MinGuidance, MaxGuidance float64
}

type pageResult struct {
	Caption   string
	ImageSrc  template.URL
	Width     int
	Height    int
	Elapsed   float64
	MemBefore string
	MemAfter  string
}

type uiHandler struct {
	svc    Service
	policy *bluemonday.Policy
}

func newUIHandler(svc Service) *uiHandler {
	return &uiHandler{svc: svc, policy: bluemonday.StrictPolicy()}
}

// page renders the form with defaults. ?model= preselects a catalog entry so
// the size selectors show that family's choices.
func (u *uiHandler) page(w http.ResponseWriter, r *http.Request) {
	data := u.baseData(r, r.URL.Query().Get("model"))
	u.render(w, http.StatusOK, data)
}

// generate handles the form trigger. Generation only ever happens here, never on page load.
func (u *uiHandler) generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		data := u.baseData(r, "")
		data.Error = u.errorText("invalid form submission")
		u.render(w, http.StatusBadRequest, data)
		return
	}
	data := u.baseData(r, r.PostForm.Get("model"))
	f := &data.Form
	f.Prompt = r.PostForm.Get("prompt")
	f.NegativePrompt = r.PostForm.Get("negative_prompt")
	f.Steps = formInt(r, "steps", f.Steps)
	f.GuidanceScale = formFloat(r, "guidance_scale", f.GuidanceScale)
	f.Width = formInt(r, "width", f.Width)
	f.Height = formInt(r, "height", f.Height)

	model := strings.TrimSpace(r.PostForm.Get("model"))
	if model == "" {
		model = data.Selected.Label
	}
	req := types.GenerateRequest{
		Model:          model,
		Prompt:         f.Prompt,
		NegativePrompt: f.NegativePrompt,
		Steps:          f.Steps,
		GuidanceScale:  f.GuidanceScale,
		Width:          f.Width,
		Height:         f.Height,
	}
	start := time.Now()
	lvl := requestLogLevel(r)
	logGenerateStart(r, lvl, "ui", req.Model, req.Prompt)
	ctx, cancel := generationContext(r.Context())
	defer cancel()
	res, err := u.svc.Generate(ctx, req)
	countImage("ui", err)
	if err != nil {
		status := statusForError(err)
		logGenerateEnd(r, lvl, status, start, err)
		if r.Context().Err() != nil {
			return
		}
		data.Error = u.errorText(err.Error())
		u.render(w, status, data)
		return
	}
	logGenerateEnd(r, lvl, http.StatusOK, start, nil)
	// echo the effective parameters back into the form
	f.Steps, f.GuidanceScale = res.Request.Steps, res.Request.GuidanceScale
	f.Width, f.Height = res.Request.Width, res.Request.Height
	data.Result = u.result(res)
	u.render(w, http.StatusOK, data)
}

func (u *uiHandler) baseData(r *http.Request, model string) pageData {
	models := u.svc.ListModels()
	selected := models[0]
	for _, m := range models {
		if m.Default {
			selected = m
		}
	}
	for _, m := range models {
		if model != "" && (m.Label == model || m.ID == model) {
			selected = m
		}
	}
	return pageData{
		Models:   models,
		Selected: selected,
		Form: formValues{
			Model:          selected.Label,
			Prompt:         manager.DefaultPrompt,
			NegativePrompt: manager.DefaultNegativePrompt,
			Steps:          manager.DefaultSteps,
			GuidanceScale:  manager.DefaultGuidance,
			Width:          selected.DefaultSize,
			Height:         selected.DefaultSize,
		},
		Limits: limits{
			MinSteps: manager.MinSteps, MaxSteps: manager.MaxSteps,
			MinGuidance: manager.MinGuidance, MaxGuidance: manager.MaxGuidance,
		},
		Diag: u.svc.Diagnostics(r.Context()),
	}
}

func (u *uiHandler) result(res manager.Result) *pageResult {
	return &pageResult{
		Caption:   res.Caption,
		ImageSrc:  template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(res.PNG)),
		Width:     res.Width,
		Height:    res.Height,
		Elapsed:   res.Elapsed.Seconds(),
		MemBefore: formatMiB(res.MemoryBefore),
		MemAfter:  formatMiB(res.MemoryAfter),
	}
}

// errorText strips markup from an error message, leaving escaped plain text.
func (u *uiHandler) errorText(msg string) template.HTML {
	return template.HTML(u.policy.Sanitize(msg))
}

func (u *uiHandler) render(w http.ResponseWriter, status int, data pageData) {
	var buf strings.Builder
	if err := pageTemplate.Execute(&buf, data); err != nil {
		logger().Error().Err(err).Msg("render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func formatMiB(b *uint64) string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%.1f MiB", float64(*b)/(1<<20))
}

func formInt(r *http.Request, key string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get(key))); err == nil {
		return n
	}
	return def
}

func formFloat(r *http.Request, key string, def float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(r.PostForm.Get(key)), 64); err == nil {
		return f
	}
	return def
}
