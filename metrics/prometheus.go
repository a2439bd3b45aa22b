package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/cmxrt/mempool"
	"github.com/hupe1980/cmxrt/scheduler"
)

const namespace = "cmxrt"

// Prometheus exports scheduler and pool events as Prometheus collectors.
type Prometheus struct {
	submissions   *prometheus.CounterVec
	tasks         *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	readyDepth    prometheus.Gauge
	poolUsed      *prometheus.GaugeVec
	poolPeak      *prometheus.GaugeVec
	poolCapacity  *prometheus.GaugeVec
	allocFailures *prometheus.CounterVec
}

var (
	_ scheduler.MetricsObserver = (*Prometheus)(nil)
	_ mempool.MetricsObserver   = (*Prometheus)(nil)
)

// NewPrometheus creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer. It panics if a collector is
// already registered, like prometheus.MustRegister.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &Prometheus{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "submissions_total",
				Help:      "Total number of task submissions",
			},
			[]string{"priority", "result"},
		),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_total",
				Help:      "Total number of tasks that reached a terminal status",
			},
			[]string{"priority", "status"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "task_duration_seconds",
				Help:      "Duration of executed task bodies in seconds",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
			},
			[]string{"priority"},
		),
		readyDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "ready_tasks",
				Help:      "Number of tasks in the ready queue",
			},
		),
		poolUsed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "pass_used_bytes",
				Help:      "Bytes used by the last pass before the pool was reset",
			},
			[]string{"pool"},
		),
		poolPeak: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "peak_bytes",
				Help:      "High-water mark of pool usage",
			},
			[]string{"pool"},
		),
		poolCapacity: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "capacity_bytes",
				Help:      "Pool capacity",
			},
			[]string{"pool"},
		),
		allocFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "alloc_failures_total",
				Help:      "Total allocations rejected because a pool was exhausted",
			},
			[]string{"pool"},
		),
	}

	reg.MustRegister(
		p.submissions,
		p.tasks,
		p.taskDuration,
		p.readyDepth,
		p.poolUsed,
		p.poolPeak,
		p.poolCapacity,
		p.allocFailures,
	)

	return p
}

// OnSubmit implements scheduler.MetricsObserver.
func (p *Prometheus) OnSubmit(priority scheduler.Priority, err error) {
	result := "accepted"
	if err != nil {
		result = "rejected"
	}
	p.submissions.WithLabelValues(priority.String(), result).Inc()
}

// OnTaskDone implements scheduler.MetricsObserver.
func (p *Prometheus) OnTaskDone(priority scheduler.Priority, status scheduler.Status, duration time.Duration) {
	p.tasks.WithLabelValues(priority.String(), status.String()).Inc()
	if duration > 0 {
		p.taskDuration.WithLabelValues(priority.String()).Observe(duration.Seconds())
	}
}

// OnQueueDepth implements scheduler.MetricsObserver.
func (p *Prometheus) OnQueueDepth(depth int) {
	p.readyDepth.Set(float64(depth))
}

// OnPoolReset implements mempool.MetricsObserver.
func (p *Prometheus) OnPoolReset(pool mempool.PoolType, used, peak, capacity uint64) {
	name := pool.String()
	p.poolUsed.WithLabelValues(name).Set(float64(used))
	p.poolPeak.WithLabelValues(name).Set(float64(peak))
	p.poolCapacity.WithLabelValues(name).Set(float64(capacity))
}

// OnAllocFailure implements mempool.MetricsObserver.
func (p *Prometheus) OnAllocFailure(pool mempool.PoolType, _ int) {
	p.allocFailures.WithLabelValues(pool.String()).Inc()
}
