package metrics

import (
	"time"

	"github.com/hupe1980/cmxrt/mempool"
	"github.com/hupe1980/cmxrt/scheduler"
)

// Observer is implemented by every collector in this package.
type Observer interface {
	scheduler.MetricsObserver
	mempool.MetricsObserver
}

// Multi forwards every event to each observer in order.
type Multi []Observer

var _ Observer = Multi(nil)

// NewMulti combines observers. Nil observers are skipped.
func NewMulti(observers ...Observer) Multi {
	m := make(Multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m Multi) OnSubmit(priority scheduler.Priority, err error) {
	for _, o := range m {
		o.OnSubmit(priority, err)
	}
}

func (m Multi) OnTaskDone(priority scheduler.Priority, status scheduler.Status, duration time.Duration) {
	for _, o := range m {
		o.OnTaskDone(priority, status, duration)
	}
}

func (m Multi) OnQueueDepth(depth int) {
	for _, o := range m {
		o.OnQueueDepth(depth)
	}
}

func (m Multi) OnPoolReset(pool mempool.PoolType, used, peak, capacity uint64) {
	for _, o := range m {
		o.OnPoolReset(pool, used, peak, capacity)
	}
}

func (m Multi) OnAllocFailure(pool mempool.PoolType, requested int) {
	for _, o := range m {
		o.OnAllocFailure(pool, requested)
	}
}
