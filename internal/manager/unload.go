package manager

import (
	"context"
	"errors"
)

// Unload closes a handle and forgets it. It takes the generation lock first so
// a pipeline is never closed mid-call; ctx bounds the wait.
func (m *Manager) Unload(ctx context.Context, labelOrID string) error {
	entry, ok := m.catalog.Resolve(labelOrID)
	if !ok {
		return ErrModelNotFound(labelOrID)
	}
	m.mu.RLock()
	h := m.handles[entry.ID]
	m.mu.RUnlock()
	if h == nil {
		return ErrModelNotFound(labelOrID)
	}

	release, err := m.beginGeneration(ctx)
	if err != nil {
		return err
	}
	defer release()

	m.mu.Lock()
	delete(m.handles, entry.ID)
	m.mu.Unlock()
	m.publish(Event{Name: "unload_done", ModelID: entry.ID, Fields: map[string]any{}})
	return h.pipeline.Close()
}

// Close unloads every handle. Used on shutdown.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	var errs []error
	for _, id := range ids {
		if err := m.Unload(ctx, id); err != nil && !IsModelNotFound(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
