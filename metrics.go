package cmxrt

import (
	"github.com/hupe1980/cmxrt/mempool"
	"github.com/hupe1980/cmxrt/scheduler"
)

// MetricsObserver receives scheduler and memory pool events.
// Implement this interface to integrate with monitoring systems; the
// metrics package provides Basic and Prometheus implementations.
type MetricsObserver interface {
	scheduler.MetricsObserver
	mempool.MetricsObserver
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct {
	schedulerNoopObserver
	mempoolNoopObserver
}

// Aliases give the embedded no-op observers distinct field names.
type (
	schedulerNoopObserver = scheduler.NoopMetricsObserver
	mempoolNoopObserver   = mempool.NoopMetricsObserver
)

var _ MetricsObserver = NoopMetricsObserver{}
