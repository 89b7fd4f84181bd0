// Package registry holds the fixed catalog of selectable diffusion models.
package registry

import (
	"fmt"
	"strings"

	"diffusiond/pkg/types"
)

// Variant is the pipeline family of a model. It decides the pipeline class,
// the call signature and the resolution choices.
type Variant string

const (
	VariantBase Variant = "base"
	VariantXL   Variant = "xl"
)

// Pipeline classes understood by the diffusion runtime.
const (
	PipelineBase = "StableDiffusionPipeline"
	PipelineXL   = "StableDiffusionXLPipeline"
)

var (
	baseSizes = []int{384, 512, 640, 768}
	xlSizes   = []int{768, 896, 1024, 1152, 1280}
)

// VariantFor classifies a hub id. Any id naming an "XL" model is XL.
func VariantFor(id string) Variant {
	if strings.Contains(strings.ToUpper(id), "XL") {
		return VariantXL
	}
	return VariantBase
}

// PipelineClass returns the runtime pipeline implementation for v.
func (v Variant) PipelineClass() string {
	if v == VariantXL {
		return PipelineXL
	}
	return PipelineBase
}

// Sizes returns the discrete width/height choices for v, ascending.
func (v Variant) Sizes() []int {
	src := baseSizes
	if v == VariantXL {
		src = xlSizes
	}
	return append([]int(nil), src...)
}

// DefaultSize is the width/height used when a request leaves them unset.
func (v Variant) DefaultSize() int {
	if v == VariantXL {
		return 1024
	}
	return 512
}

// Entry is one catalog row.
type Entry struct {
	Label   string
	ID      string
	Variant Variant
}

// Builtin entries, in selector order.
var builtin = []Entry{
	{Label: "Stable Diffusion v1.5", ID: "runwayml/stable-diffusion-v1-5"},
	{Label: "Realistic Vision XL (RealVisXL V4.0)", ID: "SG161222/RealVisXL_V4.0"},
}

// DefaultIndex is the preselected builtin entry.
const DefaultIndex = 1

// Catalog maps labels to hub ids. It is immutable after construction.
type Catalog struct {
	entries []Entry
	def     int
}

// Default returns the builtin two-entry catalog.
func Default() *Catalog {
	c, err := New(builtin, DefaultIndex)
	if err != nil {
		panic(err)
	}
	return c
}

// New builds a catalog. Variants left empty are derived from the id.
func New(entries []Entry, defaultIndex int) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog: no entries")
	}
	if defaultIndex < 0 || defaultIndex >= len(entries) {
		return nil, fmt.Errorf("catalog: default index %d out of range [0,%d)", defaultIndex, len(entries))
	}
	seen := make(map[string]bool, len(entries))
	out := make([]Entry, len(entries))
	for i, e := range entries {
		if e.Label == "" || e.ID == "" {
			return nil, fmt.Errorf("catalog: entry %d needs label and id", i)
		}
		if seen[e.Label] {
			return nil, fmt.Errorf("catalog: duplicate label %q", e.Label)
		}
		seen[e.Label] = true
		if e.Variant == "" {
			e.Variant = VariantFor(e.ID)
		}
		out[i] = e
	}
	return &Catalog{entries: out, def: defaultIndex}, nil
}

// Resolve maps a label (or a hub id) to its entry. Empty input selects the default.
func (c *Catalog) Resolve(labelOrID string) (Entry, bool) {
	key := strings.TrimSpace(labelOrID)
	if key == "" {
		return c.entries[c.def], true
	}
	for _, e := range c.entries {
		if e.Label == key {
			return e, true
		}
	}
	for _, e := range c.entries {
		if e.ID == key {
			return e, true
		}
	}
	return Entry{}, false
}

// DefaultEntry returns the preselected entry.
func (c *Catalog) DefaultEntry() Entry { return c.entries[c.def] }

// DefaultIndex returns the position of the preselected entry.
func (c *Catalog) DefaultIndex() int { return c.def }

// Entries returns a copy of all entries in selector order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Models projects the catalog into API types.
func (c *Catalog) Models() []types.Model {
	out := make([]types.Model, 0, len(c.entries))
	for i, e := range c.entries {
		out = append(out, types.Model{
			Label:       e.Label,
			ID:          e.ID,
			Variant:     string(e.Variant),
			Default:     i == c.def,
			Sizes:       e.Variant.Sizes(),
			DefaultSize: e.Variant.DefaultSize(),
		})
	}
	return out
}
