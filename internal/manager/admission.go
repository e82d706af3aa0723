package manager

import (
	"context"
)

// admit reserves one of batch_size generation slots, waiting up to MaxWait.
// Returns a release func to be deferred.
func (m *Manager) admit(ctx context.Context) (func(), error) {
	release := func() { m.sem.Release(1) }
	if m.sem.TryAcquire(1) {
		return release, nil
	}
	m.queued.Add(1)
	defer m.queued.Add(-1)
	wctx, cancel := context.WithTimeout(ctx, m.cfg.MaxWait)
	defer cancel()
	if err := m.sem.Acquire(wctx, 1); err != nil {
		if ctx.Err() != nil {
			return func() {}, ctx.Err()
		}
		return func() {}, tooBusyError{limit: m.batchSize}
	}
	return release, nil
}
