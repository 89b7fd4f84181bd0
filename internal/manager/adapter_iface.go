package manager

import (
	"context"

	"diffusiond/pkg/types"
)

// Accelerator exposes the runtime's device allocator. Generate only uses it for
// handles placed on DeviceCUDA.
type Accelerator interface {
	// EmptyCache releases cached, unused accelerator memory.
	EmptyCache(ctx context.Context) error
	// MemoryAllocated reports accelerator memory currently allocated, in bytes.
	MemoryAllocated(ctx context.Context) (uint64, error)
}

// Runtime abstracts the diffusion runtime that owns the accelerator.
// Concrete implementations (e.g., an HTTP diffusers server) satisfy this interface.
type Runtime interface {
	Accelerator
	// Load fetches weights for spec.ModelID and places them on spec.Device.
	Load(ctx context.Context, spec LoadSpec) (Pipeline, error)
	// Info describes the runtime's device and library versions.
	Info(ctx context.Context) (types.RuntimeInfo, error)
}

// Pipeline is a loaded, device-resident diffusion pipeline. It is not safe for
// concurrent calls; the Manager serializes Call behind the generation lock.
type Pipeline interface {
	// Call runs one inference and returns encoded PNG images.
	Call(ctx context.Context, call PipelineCall) ([][]byte, error)
	// Close releases resources associated with the pipeline.
	Close() error
}

// LoadSpec captures what the runtime needs to construct a pipeline.
type LoadSpec struct {
	ModelID       string
	PipelineClass string
	Device        Device
	Precision     Precision
}

// PipelineCall is one invocation: positional arguments plus keyword arguments.
// Keys absent from Kwargs are not passed at all.
type PipelineCall struct {
	Args   []any
	Kwargs map[string]any
}
