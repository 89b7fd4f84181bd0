package manager

import (
	"context"
	"sync"
	"time"
)

// beginGeneration blocks until the process-wide generation lock is free or ctx
// is done. There is no queue limit and no timeout: a second trigger simply
// waits. Returns a release func to be deferred; calling it more than once is safe.
func (m *Manager) beginGeneration(ctx context.Context) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	m.waiting.Add(1)
	defer m.waiting.Add(-1)

	start := time.Now()
	select {
	case m.genCh <- struct{}{}:
		generationLockWait.Observe(time.Since(start).Seconds())
		var once sync.Once
		return func() { once.Do(func() { <-m.genCh }) }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
}

// lockHeld reports whether a pipeline call is in flight.
func (m *Manager) lockHeld() bool { return len(m.genCh) > 0 }
