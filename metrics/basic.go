package metrics

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hupe1980/cmxrt/mempool"
	"github.com/hupe1980/cmxrt/scheduler"
)

// Basic provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type Basic struct {
	SubmitCount    atomic.Int64
	SubmitErrors   atomic.Int64
	TaskCompleted  atomic.Int64
	TaskFailed     atomic.Int64
	TaskTotalNanos atomic.Int64
	MaxQueueDepth  atomic.Int64

	PoolResets    atomic.Int64
	PoolPeakBytes [3]atomic.Uint64
	AllocFailures atomic.Int64
}

var (
	_ scheduler.MetricsObserver = (*Basic)(nil)
	_ mempool.MetricsObserver   = (*Basic)(nil)
)

// NewBasic creates a Basic collector.
func NewBasic() *Basic {
	return &Basic{}
}

// OnSubmit implements scheduler.MetricsObserver.
func (b *Basic) OnSubmit(_ scheduler.Priority, err error) {
	if err != nil {
		b.SubmitErrors.Add(1)
		return
	}
	b.SubmitCount.Add(1)
}

// OnTaskDone implements scheduler.MetricsObserver.
func (b *Basic) OnTaskDone(_ scheduler.Priority, status scheduler.Status, duration time.Duration) {
	switch status {
	case scheduler.StatusCompleted:
		b.TaskCompleted.Add(1)
	case scheduler.StatusFailed:
		b.TaskFailed.Add(1)
	}
	b.TaskTotalNanos.Add(duration.Nanoseconds())
}

// OnQueueDepth implements scheduler.MetricsObserver.
func (b *Basic) OnQueueDepth(depth int) {
	d := int64(depth)
	for {
		cur := b.MaxQueueDepth.Load()
		if d <= cur || b.MaxQueueDepth.CompareAndSwap(cur, d) {
			return
		}
	}
}

// OnPoolReset implements mempool.MetricsObserver.
func (b *Basic) OnPoolReset(pool mempool.PoolType, used, _, _ uint64) {
	b.PoolResets.Add(1)
	if !pool.Valid() {
		return
	}
	peak := &b.PoolPeakBytes[pool]
	for {
		cur := peak.Load()
		if used <= cur || peak.CompareAndSwap(cur, used) {
			return
		}
	}
}

// OnAllocFailure implements mempool.MetricsObserver.
func (b *Basic) OnAllocFailure(mempool.PoolType, int) {
	b.AllocFailures.Add(1)
}

// AvgTaskLatency returns the mean duration of executed tasks.
func (b *Basic) AvgTaskLatency() time.Duration {
	n := b.TaskCompleted.Load() + b.TaskFailed.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(b.TaskTotalNanos.Load() / n)
}

// Stats returns a point-in-time snapshot.
func (b *Basic) Stats() BasicStats {
	return BasicStats{
		Submitted:     b.SubmitCount.Load(),
		Rejected:      b.SubmitErrors.Load(),
		Completed:     b.TaskCompleted.Load(),
		Failed:        b.TaskFailed.Load(),
		AvgLatency:    b.AvgTaskLatency(),
		MaxQueueDepth: b.MaxQueueDepth.Load(),
		PassPeak: [3]uint64{
			b.PoolPeakBytes[mempool.TensorPool].Load(),
			b.PoolPeakBytes[mempool.TempBufferPool].Load(),
			b.PoolPeakBytes[mempool.GeneralPool].Load(),
		},
		AllocFailures: b.AllocFailures.Load(),
	}
}

// BasicStats is a snapshot of a Basic collector. PassPeak is the largest
// per-pass usage of each pool, indexed by mempool.PoolType.
type BasicStats struct {
	Submitted     int64
	Rejected      int64
	Completed     int64
	Failed        int64
	AvgLatency    time.Duration
	MaxQueueDepth int64
	PassPeak      [3]uint64
	AllocFailures int64
}

func (s BasicStats) String() string {
	return fmt.Sprintf("submitted=%d rejected=%d completed=%d failed=%d avg=%s max_ready=%d alloc_failures=%d",
		s.Submitted, s.Rejected, s.Completed, s.Failed, s.AvgLatency, s.MaxQueueDepth, s.AllocFailures)
}
