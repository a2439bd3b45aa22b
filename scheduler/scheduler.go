package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/time/rate"
)

const (
	// MaxTasks is the number of task slots.
	MaxTasks = 256
	// MaxDependencies is the maximum number of dependencies per task.
	MaxDependencies = 8
	// MaxReadyTasks is the capacity of the ready ring.
	MaxReadyTasks = 64
)

// Stats counts tasks of the current generation by status.
type Stats struct {
	Total     int
	Pending   int
	Running   int
	Completed int
	Failed    int
}

// Scheduler is a bounded dependency-aware task scheduler.
//
// Submission and execution are safe for concurrent use. Task bodies run on
// the goroutine that calls ExecuteSingleTask (directly or through
// ExecuteReadyTasks and Wait).
type Scheduler struct {
	mu sync.Mutex

	tasks    [MaxTasks]task
	count    int
	byStatus [numStatuses]int
	ready    readyQueue
	// blocked holds Pending slots that are not in the ready ring.
	blocked *bitset.BitSet

	// gen is bumped by Reset so that a task finishing across a Reset does
	// not write into a reused slot.
	gen      uint64
	strategy Strategy
	running  atomic.Bool

	wake         chan struct{}
	pollInterval time.Duration

	logger     *slog.Logger
	metrics    MetricsObserver
	failureLog rate.Sometimes
}

// New creates a stopped Scheduler. Call Initialize before submitting.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		blocked:      bitset.New(MaxTasks),
		wake:         make(chan struct{}, 1),
		pollInterval: DefaultPollInterval,
		logger:       slog.New(slog.DiscardHandler),
		metrics:      NoopMetricsObserver{},
		failureLog:   rate.Sometimes{First: 10, Interval: time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize starts the scheduler with an empty task pool.
func (s *Scheduler) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return ErrAlreadyRunning
	}

	s.clearLocked()
	s.running.Store(true)
	s.logger.Debug("scheduler initialized", "strategy", s.strategy.String())

	return nil
}

// Shutdown stops the scheduler and drops every task. Initialize must be
// called again before reuse.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Swap(false) {
		return
	}

	s.clearLocked()
	s.signal()
	s.logger.Debug("scheduler shut down")
}

// Reset drops every task and restarts id assignment at 1. The scheduler
// keeps running. A task body executing during Reset finishes, but its result
// is discarded.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
	s.signal()
}

func (s *Scheduler) clearLocked() {
	clear(s.tasks[:s.count])
	s.count = 0
	s.byStatus = [numStatuses]int{}
	s.ready.clear()
	s.blocked.ClearAll()
	s.gen++
}

// Running reports whether the scheduler accepts tasks.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Submit adds a task without dependencies. It is ready immediately.
func (s *Scheduler) Submit(fn TaskFunc, p Priority) (TaskID, error) {
	return s.SubmitWithDeps(fn, nil, p)
}

// SubmitWithDeps adds a task that runs after every task in deps completed.
// If a dependency already failed, the task is failed immediately.
//
// On error no state changes.
func (s *Scheduler) SubmitWithDeps(fn TaskFunc, deps []TaskID, p Priority) (TaskID, error) {
	id, err := s.submit(fn, deps, p)
	s.metrics.OnSubmit(p, err)
	return id, err
}

func (s *Scheduler) submit(fn TaskFunc, deps []TaskID, p Priority) (TaskID, error) {
	if fn == nil {
		return InvalidTaskID, ErrNilTask
	}
	if len(deps) > MaxDependencies {
		return InvalidTaskID, fmt.Errorf("%w: %d > %d", ErrTooManyDependencies, len(deps), MaxDependencies)
	}
	if !p.Valid() {
		return InvalidTaskID, fmt.Errorf("%w: %d", ErrInvalidPriority, uint8(p))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return InvalidTaskID, ErrNotRunning
	}
	if s.count >= MaxTasks {
		return InvalidTaskID, ErrTaskPoolFull
	}

	var resolved [MaxDependencies]uint16
	for i, dep := range deps {
		slot, ok := s.slotOf(dep)
		if !ok {
			return InvalidTaskID, fmt.Errorf("%w: %d", ErrUnknownDependency, dep)
		}
		resolved[i] = slot
	}

	slot := uint16(s.count) //nolint:gosec // count < MaxTasks
	s.count++

	s.tasks[slot] = task{
		fn:       fn,
		deps:     resolved,
		depCount: uint8(len(deps)), //nolint:gosec // bounded by MaxDependencies
		priority: p,
		status:   StatusPending,
	}
	s.byStatus[StatusPending]++

	s.settle(slot)
	s.metrics.OnQueueDepth(s.ready.len())

	return idOf(slot), nil
}

func idOf(slot uint16) TaskID {
	return TaskID(slot) + 1
}

func (s *Scheduler) slotOf(id TaskID) (uint16, bool) {
	if id == InvalidTaskID || int(id) > s.count {
		return 0, false
	}
	return uint16(id - 1), true //nolint:gosec // id <= count <= MaxTasks
}

type depState uint8

const (
	depsSatisfied depState = iota
	depsBlocked
	depsFailed
)

// check reports whether the dependencies of slot are all Completed, and the
// first failed dependency if any failed.
func (s *Scheduler) check(slot uint16) (depState, uint16) {
	state := depsSatisfied
	for _, dep := range s.tasks[slot].dependencies() {
		switch s.tasks[dep].status {
		case StatusCompleted:
		case StatusFailed:
			return depsFailed, dep
		default:
			state = depsBlocked
		}
	}
	return state, 0
}

// settle moves a Pending, un-queued task forward: into the ready ring when
// its dependencies completed, to Failed when one of them failed, or into
// the blocked set otherwise. A ready task that does not fit the ring stays
// blocked until the next rescan.
func (s *Scheduler) settle(slot uint16) {
	t := &s.tasks[slot]

	state, failedDep := s.check(slot)
	switch state {
	case depsFailed:
		s.blocked.Clear(uint(slot))
		s.setStatus(t, StatusFailed)
		t.fn = nil
		t.err = fmt.Errorf("%w: task %d", ErrDependencyFailed, idOf(failedDep))
		s.metrics.OnTaskDone(t.priority, StatusFailed, 0)
		s.signal()
	case depsSatisfied:
		if s.ready.push(slot) {
			s.blocked.Clear(uint(slot))
			s.signal()
			return
		}
		s.blocked.Set(uint(slot))
	default:
		s.blocked.Set(uint(slot))
	}
}

// rescan settles every blocked task in slot order. Dependencies always have
// lower slots than their dependents, so one pass propagates failures
// transitively.
func (s *Scheduler) rescan() {
	for i, ok := s.blocked.NextSet(0); ok; i, ok = s.blocked.NextSet(i + 1) {
		s.settle(uint16(i)) //nolint:gosec // i < MaxTasks
	}
}

func (s *Scheduler) setStatus(t *task, st Status) {
	s.byStatus[t.status]--
	s.byStatus[st]++
	t.status = st
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// next removes the next ready task according to the strategy and marks it
// Running.
func (s *Scheduler) next() (slot uint16, fn TaskFunc, gen uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready.len() == 0 {
		return 0, nil, 0, false
	}

	switch s.strategy {
	case PriorityBased:
		best := 0
		for i := 1; i < s.ready.len(); i++ {
			if s.tasks[s.ready.at(i)].priority > s.tasks[s.ready.at(best)].priority {
				best = i
			}
		}
		slot = s.ready.removeAt(best)
	default:
		slot, _ = s.ready.pop()
	}

	t := &s.tasks[slot]
	s.setStatus(t, StatusRunning)
	s.metrics.OnQueueDepth(s.ready.len())

	return slot, t.fn, s.gen, true
}

// ExecuteSingleTask runs one ready task on the calling goroutine and
// reports whether a task ran.
func (s *Scheduler) ExecuteSingleTask() bool {
	if !s.running.Load() {
		return false
	}

	slot, fn, gen, ok := s.next()
	if !ok {
		return false
	}

	start := time.Now()
	err := call(fn)
	s.finish(slot, gen, err, time.Since(start))

	return true
}

func call(fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

func (s *Scheduler) finish(slot uint16, gen uint64, err error, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}

	t := &s.tasks[slot]
	t.fn = nil
	if err != nil {
		t.err = err
		s.setStatus(t, StatusFailed)
		s.failureLog.Do(func() {
			s.logger.Warn("task failed", "task_id", idOf(slot), "priority", t.priority.String(), "error", err)
		})
	} else {
		s.setStatus(t, StatusCompleted)
	}
	s.metrics.OnTaskDone(t.priority, t.status, elapsed)

	s.rescan()
	s.metrics.OnQueueDepth(s.ready.len())
	s.signal()
}

// ExecuteReadyTasks runs tasks until the ready ring is empty, including tasks
// that become ready along the way, and returns how many ran.
func (s *Scheduler) ExecuteReadyTasks() int {
	n := 0
	for s.ExecuteSingleTask() {
		n++
	}
	return n
}

// WaitForCompletion drains the scheduler until no task is Pending or
// Running, or the timeout elapses. A timeout of 0 waits without bound. It
// returns true if every task reached a terminal status.
func (s *Scheduler) WaitForCompletion(timeout time.Duration) bool {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.Wait(ctx) == nil
}

// Wait drains the scheduler until no task is Pending or Running. Tasks
// running on other goroutines are waited for. ctx is checked between tasks;
// Wait returns ctx.Err() when ctx ends first, and ErrNotRunning if the
// scheduler stops.
func (s *Scheduler) Wait(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if !s.running.Load() {
			return ErrNotRunning
		}

		for s.ExecuteSingleTask() {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		// Shutdown clears the pool, so an empty pool alone does not mean
		// every task ran.
		if !s.running.Load() {
			return ErrNotRunning
		}
		if !s.HasPendingTasks() {
			return nil
		}

		select {
		case <-s.wake:
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// HasPendingTasks reports whether any task is Pending or Running.
func (s *Scheduler) HasPendingTasks() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byStatus[StatusPending]+s.byStatus[StatusRunning] > 0
}

// PendingCount returns the number of Pending tasks, queued or not.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byStatus[StatusPending]
}

// ReadyCount returns the number of tasks in the ready ring.
func (s *Scheduler) ReadyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready.len()
}

// Task returns a snapshot of the task with the given id.
func (s *Scheduler) Task(id TaskID) (TaskInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slotOf(id)
	if !ok {
		return TaskInfo{}, false
	}

	t := &s.tasks[slot]
	info := TaskInfo{
		ID:       id,
		Priority: t.priority,
		Status:   t.status,
		Err:      t.err,
	}
	if t.depCount > 0 {
		info.Deps = make([]TaskID, 0, t.depCount)
		for _, dep := range t.dependencies() {
			info.Deps = append(info.Deps, idOf(dep))
		}
	}

	return info, true
}

// SetStrategy changes the selection strategy for subsequent selections.
func (s *Scheduler) SetStrategy(st Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategy = st
}

// Strategy returns the current selection strategy.
func (s *Scheduler) Strategy() Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strategy
}

// Stats returns task counts by status.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Total:     s.count,
		Pending:   s.byStatus[StatusPending],
		Running:   s.byStatus[StatusRunning],
		Completed: s.byStatus[StatusCompleted],
		Failed:    s.byStatus[StatusFailed],
	}
}
