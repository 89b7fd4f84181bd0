package manager

import (
	"context"

	"github.com/rs/zerolog/log"

	"diffusiond/internal/registry"
	"diffusiond/pkg/types"
)

// EnsureHandle returns the memoized handle for a label or id, loading it on
// first use. Concurrent first-time callers share one runtime load. Failed loads
// are not cached; the next call tries again.
func (m *Manager) EnsureHandle(ctx context.Context, labelOrID string) (*Handle, error) {
	entry, ok := m.catalog.Resolve(labelOrID)
	if !ok {
		return nil, ErrModelNotFound(labelOrID)
	}
	m.mu.RLock()
	h := m.handles[entry.ID]
	m.mu.RUnlock()
	if h != nil {
		return h, nil
	}

	// The load outlives any single caller: a disconnecting client must not
	// abort weights that other callers are waiting on.
	loadCtx := context.WithoutCancel(ctx)
	ch := m.loads.DoChan(entry.ID, func() (any, error) {
		m.mu.RLock()
		h := m.handles[entry.ID]
		m.mu.RUnlock()
		if h != nil {
			return h, nil
		}
		return m.load(loadCtx, entry)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// load constructs a handle: pick device and precision, select the pipeline
// class by variant, ask the runtime to fetch weights and place them.
func (m *Manager) load(ctx context.Context, entry registry.Entry) (*Handle, error) {
	start := timeNow()
	dev := m.loadDevice(ctx)
	spec := LoadSpec{
		ModelID:       entry.ID,
		PipelineClass: entry.Variant.PipelineClass(),
		Device:        dev,
		Precision:     PrecisionFor(dev),
	}
	m.mu.Lock()
	m.loading++
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.loading--
		m.mu.Unlock()
	}()

	m.publish(Event{Name: "load_start", ModelID: entry.ID, Fields: map[string]any{
		"pipeline": spec.PipelineClass, "device": string(spec.Device), "precision": string(spec.Precision),
	}})

	if m.runtime == nil {
		err := ErrDependencyUnavailable("diffusion runtime not configured")
		m.loadFailed(entry.ID, err)
		return nil, err
	}
	p, err := m.runtime.Load(ctx, spec)
	if err != nil {
		m.loadFailed(entry.ID, err)
		return nil, err
	}

	h := &Handle{
		ModelID:   entry.ID,
		Label:     entry.Label,
		Variant:   entry.Variant,
		Device:    spec.Device,
		Precision: spec.Precision,
		LoadedAt:  timeNow(),
		pipeline:  p,
		call:      adapterFor(entry.Variant),
	}
	m.mu.Lock()
	m.handles[entry.ID] = h
	m.lastErr = ""
	m.mu.Unlock()
	m.loadsTotal.Add(1)
	pipelineLoadsTotal.WithLabelValues(entry.ID, "ok").Inc()

	dur := timeNow().Sub(start)
	m.publish(Event{Name: "load_ready", ModelID: entry.ID, Fields: map[string]any{"dur_ms": dur.Milliseconds()}})
	return h, nil
}

// loadDevice resolves DeviceAuto against the runtime at load time. A runtime
// that cannot describe itself gets the general processor.
func (m *Manager) loadDevice(ctx context.Context) Device {
	if m.device != DeviceAuto {
		return m.device
	}
	if m.runtime == nil {
		return DeviceCPU
	}
	info, err := m.RuntimeInfo(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("runtime info unavailable; loading on cpu")
		return DeviceCPU
	}
	return deviceFor(&info)
}

// deviceFor maps a runtime description to a placement; nil means unknown.
func deviceFor(info *types.RuntimeInfo) Device {
	if info != nil && info.Accelerator {
		return DeviceCUDA
	}
	return DeviceCPU
}

func (m *Manager) loadFailed(modelID string, err error) {
	m.setLastError(err)
	pipelineLoadsTotal.WithLabelValues(modelID, "error").Inc()
	m.publish(Event{Name: "load_error", ModelID: modelID, Fields: map[string]any{"error": err.Error()}})
}

// Preload loads the default catalog entry in the background.
func (m *Manager) Preload(ctx context.Context) {
	id := m.catalog.DefaultEntry().ID
	go func() {
		if _, err := m.EnsureHandle(ctx, id); err != nil {
			log.Warn().Str("model", id).Err(err).Msg("preload failed")
		}
	}()
}
