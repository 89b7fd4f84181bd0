package manager

import (
	"context"

	"diffusiond/internal/registry"
)

// adapterFor selects the call signature of a pipeline variant once, at load time.
func adapterFor(v registry.Variant) callAdapter {
	if v == registry.VariantXL {
		return callXL
	}
	return callBase
}

// callXL passes every parameter, the prompt included, as a keyword.
func callXL(ctx context.Context, p Pipeline, req Request) ([][]byte, error) {
	kw := commonKwargs(req)
	kw["prompt"] = req.Prompt
	return p.Call(ctx, PipelineCall{Kwargs: kw})
}

// callBase passes the prompt positionally and the rest as keywords.
func callBase(ctx context.Context, p Pipeline, req Request) ([][]byte, error) {
	return p.Call(ctx, PipelineCall{Args: []any{req.Prompt}, Kwargs: commonKwargs(req)})
}

// commonKwargs omits negative_prompt entirely when it is empty.
func commonKwargs(req Request) map[string]any {
	kw := map[string]any{
		"num_inference_steps": req.Steps,
		"guidance_scale":      req.GuidanceScale,
		"width":               req.Width,
		"height":              req.Height,
	}
	if req.NegativePrompt != "" {
		kw["negative_prompt"] = req.NegativePrompt
	}
	return kw
}
