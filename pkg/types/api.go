package types

// GenerateRequest represents an image generation request payload.
type GenerateRequest struct {
	// Model label or hub id. If empty, the default catalog entry is used.
	// example: Realistic Vision XL (RealVisXL V4.0)
	Model string `json:"model,omitempty" example:"Realistic Vision XL (RealVisXL V4.0)"`
	// Required prompt text.
	// example: a red cube on a white table
	Prompt string `json:"prompt" example:"a red cube on a white table"`
	// Optional negative prompt; omitted from the pipeline call when empty.
	// example: blurry, low quality
	NegativePrompt string `json:"negative_prompt,omitempty" example:"blurry, low quality"`
	// Denoising steps, clamped to [10,50]. 0 selects the default (25).
	// example: 25
	Steps int `json:"steps,omitempty" example:"25"`
	// Classifier-free guidance scale, clamped to [1.0,12.0]. 0 selects the default (5.0).
	// example: 5
	GuidanceScale float64 `json:"guidance_scale,omitempty" example:"5"`
	// Image width, snapped to the model family's discrete sizes. 0 selects the family default.
	// example: 1024
	Width int `json:"width,omitempty" example:"1024"`
	// Image height, snapped to the model family's discrete sizes. 0 selects the family default.
	// example: 1024
	Height int `json:"height,omitempty" example:"1024"`
}

// GenerateResponse is returned by POST /generate.
type GenerateResponse struct {
	// Generation id.
	// example: 5f0c3c1e-8a0e-4c55-9d0b-0f3b2f7c1a11
	ID string `json:"id" example:"5f0c3c1e-8a0e-4c55-9d0b-0f3b2f7c1a11"`
	// Hub id of the model that produced the image.
	// example: SG161222/RealVisXL_V4.0
	Model string `json:"model" example:"SG161222/RealVisXL_V4.0"`
	// Caption for display; the prompt.
	Caption string `json:"caption"`
	// Base64-encoded PNG.
	ImageB64 string `json:"image_b64"`
	// example: 1024
	Width int `json:"width" example:"1024"`
	// example: 1024
	Height int `json:"height" example:"1024"`
	// Wall-clock inference time in seconds.
	// example: 7.42
	ElapsedSeconds float64 `json:"elapsed_seconds" example:"7.42"`
	// Accelerator memory allocated before the call, when an accelerator is present.
	MemoryBeforeBytes *uint64 `json:"memory_before_bytes,omitempty"`
	// Accelerator memory allocated after the call, when an accelerator is present.
	MemoryAfterBytes *uint64 `json:"memory_after_bytes,omitempty"`
	// Effective parameters after clamping.
	Steps         int     `json:"steps"`
	GuidanceScale float64 `json:"guidance_scale"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// Catalog entries in selector order.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// HandleStatus summarizes a loaded model handle for /status.
type HandleStatus struct {
	// example: SG161222/RealVisXL_V4.0
	ModelID string `json:"model_id" example:"SG161222/RealVisXL_V4.0"`
	// example: Realistic Vision XL (RealVisXL V4.0)
	Label string `json:"label" example:"Realistic Vision XL (RealVisXL V4.0)"`
	// example: xl
	Variant string `json:"variant" example:"xl"`
	// example: cuda
	Device string `json:"device" example:"cuda"`
	// example: float16
	Precision string `json:"precision" example:"float16"`
	// Load completion time (unix seconds).
	// example: 1700000000
	LoadedAt int64 `json:"loaded_at_unix" example:"1700000000"`
	// Number of completed generations on this handle.
	// example: 3
	Generations uint64 `json:"generations" example:"3"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Loaded model handles.
	Handles []HandleStatus `json:"handles"`
	// Overall state: idle, loading, generating or error.
	// example: idle
	State string `json:"state" example:"idle"`
	// Whether the generation lock is currently held.
	// example: false
	LockHeld bool `json:"lock_held" example:"false"`
	// Number of requests waiting for the generation lock.
	// example: 0
	Waiting int `json:"waiting" example:"0"`
	// example: 12
	GenerationsTotal uint64 `json:"generations_total" example:"12"`
	// example: 1
	FailuresTotal uint64 `json:"failures_total" example:"1"`
	// example: 2
	LoadsTotal uint64 `json:"loads_total" example:"2"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
