package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"diffusiond/internal/registry"
	"diffusiond/pkg/types"
)

// timeNow is swapped in tests that need deterministic clocks.
var timeNow = time.Now

type Manager struct {
	mu      sync.RWMutex
	handles map[string]*Handle
	lastErr string
	loading int

	catalog   *registry.Catalog
	runtime   Runtime
	device    Device
	prober    Prober
	publisher EventPublisher

	// loads collapses concurrent first-time loads of one model id.
	loads singleflight.Group

	// genCh is the generation lock: size 1, held for the duration of one pipeline call.
	genCh   chan struct{}
	waiting atomic.Int64

	loadsTotal       atomic.Uint64
	generationsTotal atomic.Uint64
	failuresTotal    atomic.Uint64
	startTime        time.Time
}

// New constructs a Manager for the builtin catalog.
func New(rt Runtime, device Device) *Manager {
	return NewWithConfig(ManagerConfig{Runtime: rt, Device: device})
}

// Ready reports whether at least one model handle is loaded.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles) > 0
}

// ListModels returns the catalog in selector order.
func (m *Manager) ListModels() []types.Model {
	return m.catalog.Models()
}

// Catalog exposes the immutable model catalog.
func (m *Manager) Catalog() *registry.Catalog { return m.catalog }

// Device returns the configured placement: DeviceCUDA, DeviceCPU or DeviceAuto.
func (m *Manager) Device() Device { return m.device }

// Handle returns the loaded handle for a label or id, if any.
func (m *Manager) Handle(labelOrID string) (*Handle, bool) {
	e, ok := m.catalog.Resolve(labelOrID)
	if !ok {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handles[e.ID]
	return h, ok
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	if err == nil {
		m.lastErr = ""
	} else {
		m.lastErr = err.Error()
	}
	m.mu.Unlock()
}
