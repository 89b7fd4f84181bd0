package manager

import (
	"context"
	"sync/atomic"
	"time"

	"diffusiond/internal/registry"
)

// State is the coarse manager state reported by Status.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateGenerating State = "generating"
	StateError      State = "error"
)

// Device is where a handle's weights live.
type Device string

const (
	DeviceCUDA Device = "cuda"
	DeviceCPU  Device = "cpu"
	// DeviceAuto asks the runtime at each load and uses the accelerator if it has one.
	DeviceAuto Device = "auto"
)

// Precision is the numeric type of a handle's weights.
type Precision string

const (
	PrecisionHalf Precision = "float16"
	PrecisionFull Precision = "float32"
)

// PrecisionFor returns reduced precision on the accelerator, full precision otherwise.
func PrecisionFor(d Device) Precision {
	if d == DeviceCUDA {
		return PrecisionHalf
	}
	return PrecisionFull
}

// callAdapter invokes a pipeline with the call signature of one variant.
type callAdapter func(ctx context.Context, p Pipeline, req Request) ([][]byte, error)

// Handle is a loaded, device-resident pipeline. One per model id, reused for
// the process lifetime.
type Handle struct {
	ModelID   string
	Label     string
	Variant   registry.Variant
	Device    Device
	Precision Precision
	LoadedAt  time.Time

	pipeline    Pipeline
	call        callAdapter
	generations atomic.Uint64
}

// Generations returns the number of completed generations on h.
func (h *Handle) Generations() uint64 { return h.generations.Load() }

// Request is a normalized generation request: every field is within bounds.
type Request struct {
	Entry          registry.Entry
	Prompt         string
	NegativePrompt string
	Steps          int
	GuidanceScale  float64
	Width          int
	Height         int
}

// Result is one generated image plus timing and memory diagnostics.
type Result struct {
	ID        string
	ModelID   string
	Label     string
	Caption   string
	PNG       []byte
	Width     int
	Height    int
	Elapsed   time.Duration
	Device    Device
	Precision Precision
	Request   Request
	// Set only when an accelerator is present and the reading succeeded.
	MemoryBefore *uint64
	MemoryAfter  *uint64
}
