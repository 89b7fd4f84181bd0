// Package manager is the generation shell of diffusiond. It resolves catalog
// entries to memoized model handles, normalizes generation parameters and runs
// exactly one pipeline call at a time behind a process-wide generation lock.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults.
//   - types.go: Handle, Device, Precision, Request and Result.
//   - errors.go: error types and predicates (IsModelNotFound, IsInvalidRequest, ...).
//   - params.go: NormalizeRequest, clamping and size snapping.
//   - ensure.go: EnsureHandle, load-once handle memoization.
//   - variant.go: per-variant pipeline call adapters.
//   - admission.go: the generation lock.
//   - generate.go: Generate, the single inference entry point.
//   - status_report.go: Status and Diagnostics reporting.
//   - unload.go: Unload and Close.
//   - ops.go: Warm (async load) and publisher wiring.
//   - sanity.go: runtime reachability check.
//   - adapter_iface.go: Runtime/Pipeline interfaces.
//   - adapter_diffusers_server.go: HTTP client for an external diffusion runtime.
//   - events.go, eventpub_*.go, metrics.go: observability.
//
// The diffusion pipeline itself never runs in this process. A Runtime owns the
// accelerator, fetches weights and executes pipeline calls; when none is
// configured, loads fail with a dependency-unavailable error (no mocking).
package manager
