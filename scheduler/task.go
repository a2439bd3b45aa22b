package scheduler

import "fmt"

// TaskID identifies a task within one scheduler generation.
type TaskID uint32

// InvalidTaskID is never assigned to a task.
const InvalidTaskID TaskID = 0

// TaskFunc is a task body. A non-nil error marks the task Failed.
type TaskFunc func() error

// Priority orders ready tasks under the PriorityBased strategy.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("Priority(%d)", uint8(p))
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p <= PriorityCritical
}

// Status is the lifecycle state of a task.
// Pending -> Running -> Completed | Failed; terminal states never change.
type Status uint8

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed

	numStatuses = 4
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Terminal reports whether s is Completed or Failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TaskInfo is a snapshot of one task.
type TaskInfo struct {
	ID       TaskID
	Priority Priority
	Status   Status
	Deps     []TaskID
	Err      error
}

// task is one slot of the task pool. deps hold slot indices, which are
// stable for the lifetime of a generation.
type task struct {
	fn       TaskFunc
	err      error
	deps     [MaxDependencies]uint16
	depCount uint8
	priority Priority
	status   Status
}

func (t *task) dependencies() []uint16 {
	return t.deps[:t.depCount]
}
