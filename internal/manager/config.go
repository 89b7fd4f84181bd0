package manager

import (
	"diffusiond/internal/registry"
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Catalog of selectable models; the builtin catalog when nil.
	Catalog *registry.Catalog
	// Runtime executing pipelines; loads fail with a dependency error when nil.
	Runtime Runtime
	// Device for new handles: DeviceCUDA or DeviceCPU pin placement, anything
	// else (empty included) means DeviceAuto.
	Device Device
	// Diagnostics source for the GPU panel; optional.
	Prober Prober
	// Publisher receives lifecycle events; events are dropped when nil.
	Publisher EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		catalog:   cfg.Catalog,
		runtime:   cfg.Runtime,
		device:    DeviceAuto,
		prober:    cfg.Prober,
		publisher: cfg.Publisher,
		handles:   make(map[string]*Handle),
		genCh:     make(chan struct{}, 1),
	}
	if m.catalog == nil {
		m.catalog = registry.Default()
	}
	switch cfg.Device {
	case DeviceCUDA, DeviceCPU:
		m.device = cfg.Device
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	m.startTime = timeNow()
	return m
}
