package manager

import (
	"context"
	"sort"
	"time"

	"diffusiond/pkg/types"
)

// Prober produces the GPU diagnostics panel. rt is nil when the runtime could
// not be queried.
type Prober interface {
	Report(ctx context.Context, rt *types.RuntimeInfo) types.Diagnostics
}

// runtimeInfoTimeout bounds the runtime query made for each diagnostics render.
const runtimeInfoTimeout = 3 * time.Second

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := types.StatusResponse{
		State:            string(m.stateLocked()),
		LockHeld:         m.lockHeld(),
		Waiting:          int(m.waiting.Load()),
		GenerationsTotal: m.generationsTotal.Load(),
		FailuresTotal:    m.failuresTotal.Load(),
		LoadsTotal:       m.loadsTotal.Load(),
		LastError:        m.lastErr,
		UptimeSeconds:    int64(timeNow().Sub(m.startTime) / time.Second),
		ServerTimeUnix:   timeNow().Unix(),
	}
	resp.Handles = make([]types.HandleStatus, 0, len(m.handles))
	for _, h := range m.handles {
		resp.Handles = append(resp.Handles, types.HandleStatus{
			ModelID:     h.ModelID,
			Label:       h.Label,
			Variant:     string(h.Variant),
			Device:      string(h.Device),
			Precision:   string(h.Precision),
			LoadedAt:    h.LoadedAt.Unix(),
			Generations: h.Generations(),
		})
	}
	sort.Slice(resp.Handles, func(i, j int) bool { return resp.Handles[i].ModelID < resp.Handles[j].ModelID })
	return resp
}

// stateLocked requires m.mu held (read or write).
func (m *Manager) stateLocked() State {
	switch {
	case m.lockHeld():
		return StateGenerating
	case m.loading > 0:
		return StateLoading
	case m.lastErr != "" && len(m.handles) == 0:
		return StateError
	}
	return StateIdle
}

// RuntimeInfo queries the diffusion runtime for its device description.
func (m *Manager) RuntimeInfo(ctx context.Context) (types.RuntimeInfo, error) {
	if m.runtime == nil {
		return types.RuntimeInfo{}, ErrDependencyUnavailable("diffusion runtime not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, runtimeInfoTimeout)
	defer cancel()
	return m.runtime.Info(ctx)
}

// Diagnostics renders the GPU panel. It never fails: runtime and probe errors
// are reported inside the returned value.
func (m *Manager) Diagnostics(ctx context.Context) types.Diagnostics {
	var rt *types.RuntimeInfo
	info, rtErr := m.RuntimeInfo(ctx)
	if rtErr == nil {
		rt = &info
	}
	var d types.Diagnostics
	if m.prober != nil {
		d = m.prober.Report(ctx, rt)
	} else if rt != nil {
		d = types.Diagnostics{
			Accelerator: rt.Accelerator,
			DeviceName:  rt.DeviceName,
			Versions:    rt.Versions,
			DeviceCount: len(rt.Devices),
			Devices:     rt.Devices,
		}
	}
	if rtErr != nil {
		d.RuntimeError = rtErr.Error()
	}
	dev := m.device
	if dev == DeviceAuto {
		dev = deviceFor(rt)
	}
	d.Device = string(dev)
	d.Precision = string(PrecisionFor(dev))
	return d
}
