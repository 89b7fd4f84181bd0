package manager

import (
	"math"
	"testing"

	"diffusiond/internal/registry"
	"diffusiond/pkg/types"
)

func TestClampSteps(t *testing.T) {
	cases := map[int]int{0: DefaultSteps, 1: MinSteps, -3: MinSteps, 10: 10, 37: 37, 50: 50, 51: MaxSteps}
	for in, want := range cases {
		if got := clampSteps(in); got != want {
			t.Fatalf("clampSteps(%d)=%d want %d", in, got, want)
		}
	}
}

func TestClampGuidance(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, DefaultGuidance},
		{math.NaN(), DefaultGuidance},
		{0.5, MinGuidance},
		{7.5, 7.5},
		{12, 12},
		{30, MaxGuidance},
	}
	for _, tc := range cases {
		if got := clampGuidance(tc.in); got != tc.want {
			t.Fatalf("clampGuidance(%v)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestSnapSize(t *testing.T) {
	cases := []struct {
		v    registry.Variant
		in   int
		want int
	}{
		{registry.VariantXL, 0, 1024},
		{registry.VariantXL, 1024, 1024},
		{registry.VariantXL, 100, 768},
		{registry.VariantXL, 9999, 1280},
		{registry.VariantXL, 832, 768}, // tie goes to the smaller size
		{registry.VariantXL, 833, 896},
		{registry.VariantBase, 0, 512},
		{registry.VariantBase, 448, 384},
		{registry.VariantBase, 700, 640},
		{registry.VariantBase, 720, 768},
		{registry.VariantBase, 1024, 768},
	}
	for _, tc := range cases {
		if got := snapSize(tc.v, tc.in); got != tc.want {
			t.Fatalf("snapSize(%s,%d)=%d want %d", tc.v, tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRequest(t *testing.T) {
	cat := registry.Default()
	req, err := NormalizeRequest(cat, types.GenerateRequest{Prompt: "  hi  ", NegativePrompt: " ugly "})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if req.Entry.ID != xlID || req.Prompt != "hi" || req.NegativePrompt != "ugly" {
		t.Fatalf("unexpected request %+v", req)
	}
	if _, err := NormalizeRequest(cat, types.GenerateRequest{Model: "missing", Prompt: "x"}); !IsModelNotFound(err) {
		t.Fatalf("expected model not found, got %v", err)
	}
	if _, err := NormalizeRequest(cat, types.GenerateRequest{}); !IsInvalidRequest(err) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}
