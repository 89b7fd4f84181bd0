package manager

import (
	"math"
	"strings"

	"diffusiond/internal/registry"
	"diffusiond/pkg/types"
)

// Parameter bounds and defaults.
const (
	DefaultPrompt         = "A Kubestronaut riding a dragon in space"
	DefaultNegativePrompt = "blurry, low quality, distorted, deformed, extra limbs, watermark, text"

	MinSteps     = 10
	MaxSteps     = 50
	DefaultSteps = 25

	MinGuidance     = 1.0
	MaxGuidance     = 12.0
	DefaultGuidance = 5.0
)

// NormalizeRequest resolves the model and brings every parameter into bounds.
// Zero values select defaults; out-of-range values are clamped; width and height
// snap to the nearest size of the model family. Only an empty prompt or an
// unknown model is an error.
func NormalizeRequest(cat *registry.Catalog, in types.GenerateRequest) (Request, error) {
	entry, ok := cat.Resolve(in.Model)
	if !ok {
		return Request{}, ErrModelNotFound(in.Model)
	}
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return Request{}, invalidRequestError{msg: "prompt is required"}
	}
	return Request{
		Entry:          entry,
		Prompt:         prompt,
		NegativePrompt: strings.TrimSpace(in.NegativePrompt),
		Steps:          clampSteps(in.Steps),
		GuidanceScale:  clampGuidance(in.GuidanceScale),
		Width:          snapSize(entry.Variant, in.Width),
		Height:         snapSize(entry.Variant, in.Height),
	}, nil
}

func clampSteps(n int) int {
	switch {
	case n == 0:
		return DefaultSteps
	case n < MinSteps:
		return MinSteps
	case n > MaxSteps:
		return MaxSteps
	}
	return n
}

func clampGuidance(g float64) float64 {
	switch {
	case g == 0 || math.IsNaN(g):
		return DefaultGuidance
	case g < MinGuidance:
		return MinGuidance
	case g > MaxGuidance:
		return MaxGuidance
	}
	return g
}

// snapSize picks the allowed size closest to px; ties go to the smaller size.
func snapSize(v registry.Variant, px int) int {
	if px == 0 {
		return v.DefaultSize()
	}
	sizes := v.Sizes()
	best := sizes[0]
	for _, s := range sizes[1:] {
		if abs(s-px) < abs(best-px) {
			best = s
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
