package types

// DeviceProperties describes one accelerator device.
type DeviceProperties struct {
	// example: 0
	Index int `json:"index" example:"0"`
	// example: NVIDIA L4
	Name string `json:"name" example:"NVIDIA L4"`
	// example: 23580639232
	TotalMemoryBytes uint64 `json:"total_memory_bytes" example:"23580639232"`
	// Streaming multiprocessor count; 0 when unknown.
	// example: 58
	ProcessorCount int `json:"processor_count" example:"58"`
}

// RuntimeInfo is what the diffusion runtime reports about its accelerator.
type RuntimeInfo struct {
	Accelerator bool               `json:"accelerator"`
	DeviceName  string             `json:"device_name,omitempty"`
	Versions    map[string]string  `json:"versions,omitempty"`
	Devices     []DeviceProperties `json:"devices,omitempty"`
}

// HostInfo describes the general processor the service runs on.
type HostInfo struct {
	// example: AMD EPYC 7B13
	CPUModel string `json:"cpu_model" example:"AMD EPYC 7B13"`
	// example: 8
	LogicalCPUs int `json:"logical_cpus" example:"8"`
	// example: 33554432000
	TotalMemoryBytes uint64 `json:"total_memory_bytes" example:"33554432000"`
}

// Diagnostics is the GPU diagnostics panel returned by GET /diagnostics.
type Diagnostics struct {
	// Whether an accelerator is usable for inference.
	Accelerator bool `json:"accelerator"`
	// Placement used for model handles: cuda or cpu.
	// example: cuda
	Device string `json:"device" example:"cuda"`
	// Numeric precision used for model handles.
	// example: float16
	Precision string `json:"precision" example:"float16"`
	// example: NVIDIA L4
	DeviceName string `json:"device_name,omitempty" example:"NVIDIA L4"`
	// Runtime and driver version strings (e.g. torch, cuda, diffusers, driver).
	Versions map[string]string `json:"versions,omitempty"`
	// example: 1
	DeviceCount int                `json:"device_count" example:"1"`
	Devices     []DeviceProperties `json:"devices,omitempty"`
	Host        HostInfo           `json:"host"`
	// Accelerator-related environment variables.
	Env map[string]string `json:"env,omitempty"`
	// Device-status command that was run.
	// example: nvidia-smi
	StatusCommand string `json:"status_command,omitempty" example:"nvidia-smi"`
	// Command output, or a "not available or failed" message.
	StatusOutput string `json:"status_output,omitempty"`
	// Set when the diffusion runtime could not be queried.
	RuntimeError string `json:"runtime_error,omitempty"`
}
