package scheduler

import "time"

// MetricsObserver receives scheduler events. Callbacks run while the
// scheduler lock is held and must be non-blocking.
type MetricsObserver interface {
	// OnSubmit is called for every submission; err is nil on success.
	OnSubmit(priority Priority, err error)

	// OnTaskDone is called when a task reaches a terminal status. duration is
	// zero for tasks failed by dependency propagation.
	OnTaskDone(priority Priority, status Status, duration time.Duration)

	// OnQueueDepth is called with the ready-ring length after it changes.
	OnQueueDepth(depth int)
}

// NoopMetricsObserver discards every event.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnSubmit(Priority, error)                   {}
func (NoopMetricsObserver) OnTaskDone(Priority, Status, time.Duration) {}
func (NoopMetricsObserver) OnQueueDepth(int)                           {}
