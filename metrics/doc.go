// Package metrics provides MetricsObserver implementations for the scheduler
// and the memory pools.
//
// Basic keeps in-memory atomic counters and needs no external system.
// Prometheus exports the same events as Prometheus collectors:
//
//	reg := prometheus.NewRegistry()
//	obs := metrics.NewPrometheus(reg)
//	rt, err := cmxrt.New(cmxrt.WithMetricsObserver(obs))
//
// Both types implement scheduler.MetricsObserver and
// mempool.MetricsObserver and are safe for concurrent use.
package metrics
