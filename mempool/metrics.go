package mempool

// MetricsObserver receives pool events.
// Implementations must be non-blocking and safe for concurrent use.
type MetricsObserver interface {
	// OnPoolReset is called by FreeAll for each pool with the usage it
	// reached during the pass that just ended.
	OnPoolReset(pool PoolType, used, peak, capacity uint64)

	// OnAllocFailure is called when Alloc cannot satisfy a request.
	OnAllocFailure(pool PoolType, requested int)
}

// NoopMetricsObserver discards every event.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnPoolReset(PoolType, uint64, uint64, uint64) {}
func (NoopMetricsObserver) OnAllocFailure(PoolType, int)                 {}
