package cmxrt

import "context"

// Close stops the scheduler and releases the memory pools. It waits for a
// running pass to finish. Arenas obtained from the Runtime become invalid.
//
// Close is idempotent.
func (r *Runtime) Close() error {
	if r == nil || r.closed.Swap(true) {
		return nil
	}

	ctx := context.Background()
	if err := r.runLock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer r.runLock.Release(1)

	r.sched.Shutdown()
	err := r.pool.Shutdown()

	r.logger.LogShutdown(ctx, err)

	return err
}
