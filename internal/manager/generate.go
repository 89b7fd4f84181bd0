package manager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"diffusiond/pkg/types"
)

// Generate is the single inference entry point. It normalizes the request,
// obtains the memoized handle, and then, holding the generation lock, clears
// the accelerator cache, calls the pipeline through the handle's variant
// adapter and records timing and memory readings. The lock is released on
// every path, including pipeline errors and panics.
func (m *Manager) Generate(ctx context.Context, in types.GenerateRequest) (Result, error) {
	req, err := NormalizeRequest(m.catalog, in)
	if err != nil {
		return Result{}, err
	}
	h, release, err := m.lockHandle(ctx, req.Entry.ID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	res, err := m.runLocked(ctx, h, req)
	status := "ok"
	if err != nil {
		status = "error"
		m.failuresTotal.Add(1)
		m.setLastError(err)
		m.publish(Event{Name: "generate_error", ModelID: h.ModelID, Fields: map[string]any{"error": err.Error()}})
	} else {
		m.generationsTotal.Add(1)
		h.generations.Add(1)
		m.publish(Event{Name: "generate_done", ModelID: h.ModelID, Fields: map[string]any{
			"id": res.ID, "elapsed_ms": res.Elapsed.Milliseconds(), "width": res.Width, "height": res.Height,
		}})
	}
	generationDuration.WithLabelValues(h.ModelID, status).Observe(res.Elapsed.Seconds())
	return res, err
}

// lockHandle returns a loaded handle together with the held generation lock.
// Unload also takes the lock, so a handle that is still memoized once the lock
// is held cannot be closed before release. A handle unloaded while the caller
// waited is loaded again.
func (m *Manager) lockHandle(ctx context.Context, modelID string) (*Handle, func(), error) {
	for {
		h, err := m.EnsureHandle(ctx, modelID)
		if err != nil {
			return nil, nil, err
		}
		release, err := m.beginGeneration(ctx)
		if err != nil {
			return nil, nil, err
		}
		m.mu.RLock()
		current := m.handles[modelID] == h
		m.mu.RUnlock()
		if current {
			return h, release, nil
		}
		release()
	}
}

// runLocked must only be called while holding the generation lock.
func (m *Manager) runLocked(ctx context.Context, h *Handle, req Request) (Result, error) {
	res := Result{
		ID:        uuid.New().String(),
		ModelID:   h.ModelID,
		Label:     h.Label,
		Caption:   req.Prompt,
		Device:    h.Device,
		Precision: h.Precision,
		Request:   req,
	}
	accelerated := h.Device == DeviceCUDA && m.runtime != nil
	if accelerated {
		if err := m.runtime.EmptyCache(ctx); err != nil {
			log.Warn().Err(err).Msg("accelerator empty_cache failed")
		}
		res.MemoryBefore = m.memoryReading(ctx)
	}
	m.publish(Event{Name: "generate_start", ModelID: h.ModelID, Fields: map[string]any{
		"id": res.ID, "steps": req.Steps, "guidance_scale": req.GuidanceScale, "width": req.Width, "height": req.Height,
	}})

	start := timeNow()
	images, err := h.call(ctx, h.pipeline, req)
	res.Elapsed = timeNow().Sub(start)
	if accelerated {
		res.MemoryAfter = m.memoryReading(ctx)
	}
	if err != nil {
		return res, err
	}
	if len(images) == 0 {
		return res, errors.New("pipeline returned no images")
	}
	res.PNG = images[0]
	cfg, err := png.DecodeConfig(bytes.NewReader(res.PNG))
	if err != nil {
		return res, fmt.Errorf("decode pipeline image: %w", err)
	}
	res.Width, res.Height = cfg.Width, cfg.Height
	if res.Width != req.Width || res.Height != req.Height {
		log.Warn().Str("model", h.ModelID).
			Int("want_w", req.Width).Int("want_h", req.Height).
			Int("got_w", res.Width).Int("got_h", res.Height).
			Msg("pipeline image size differs from request")
	}
	return res, nil
}

// memoryReading is best-effort: a failed reading is logged and omitted.
func (m *Manager) memoryReading(ctx context.Context) *uint64 {
	n, err := m.runtime.MemoryAllocated(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("accelerator memory_allocated failed")
		return nil
	}
	return &n
}
