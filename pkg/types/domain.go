package types

// Model describes one selectable entry of the model catalog.
type Model struct {
	// Human-readable label shown in the model selector.
	// example: Realistic Vision XL (RealVisXL V4.0)
	Label string `json:"label" example:"Realistic Vision XL (RealVisXL V4.0)"`
	// Hosted model registry identifier.
	// example: SG161222/RealVisXL_V4.0
	ID string `json:"id" example:"SG161222/RealVisXL_V4.0"`
	// Pipeline family: "xl" or "base".
	// example: xl
	Variant string `json:"variant" example:"xl"`
	// Whether this entry is preselected.
	// example: true
	Default bool `json:"default,omitempty" example:"true"`
	// Discrete width/height choices for this family.
	// example: [768,896,1024,1152,1280]
	Sizes []int `json:"sizes" example:"768,896,1024,1152,1280"`
	// Width/height used when a request omits them.
	// example: 1024
	DefaultSize int `json:"default_size" example:"1024"`
}
