package manager

import (
	"context"
)

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	RuntimeConfigured bool   `json:"runtime_configured"`
	RuntimeReachable  bool   `json:"runtime_reachable"`
	Accelerator       bool   `json:"accelerator"`
	DeviceName        string `json:"device_name,omitempty"`
	Error             string `json:"error,omitempty"`
}

// SanityCheck validates that the diffusion runtime is configured and answers.
// It does not mutate state and is safe to call at any time.
func (m *Manager) SanityCheck(ctx context.Context) SanityReport {
	r := SanityReport{RuntimeConfigured: m.runtime != nil}
	if m.runtime == nil {
		r.Error = "diffusion runtime not configured"
		return r
	}
	info, err := m.RuntimeInfo(ctx)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.RuntimeReachable = true
	r.Accelerator = info.Accelerator
	r.DeviceName = info.DeviceName
	return r
}
