package manager

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Warm kicks off an asynchronous load of a model and returns an operation ID.
// Callers poll Status to observe the handle appear. Unknown models fail fast.
func (m *Manager) Warm(ctx context.Context, labelOrID string) (string, error) {
	entry, ok := m.catalog.Resolve(labelOrID)
	if !ok {
		return "", ErrModelNotFound(labelOrID)
	}
	op := uuid.NewString()
	go func() {
		// Detached: the HTTP request that triggered the warm-up returns immediately.
		if _, err := m.EnsureHandle(context.WithoutCancel(ctx), entry.ID); err != nil {
			log.Warn().Str("op", op).Str("model", entry.ID).Err(err).Msg("warm failed")
		}
	}()
	return op, nil
}

// SetEventPublisher swaps the event sink. Nil restores the no-op publisher.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}
