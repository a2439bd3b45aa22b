package cmxrt

import (
	"fmt"
	"time"

	"github.com/hupe1980/cmxrt/arena"
	"github.com/hupe1980/cmxrt/mempool"
	"github.com/hupe1980/cmxrt/scheduler"
)

// StepFunc is the body of one graph step, typically one kernel invocation.
type StepFunc func(*Context) error

// Step is one node of a decomposed model graph.
//
// Deps are indices of earlier steps in the same slice.
type Step struct {
	Name     string
	Fn       StepFunc
	Deps     []int
	Priority scheduler.Priority
}

// Context gives a running step access to the memory pools of the pass.
//
// Memory drawn from the arenas is valid until the pass ends; it is not
// zeroed.
type Context struct {
	RunID string
	Index int
	Name  string

	Tensor  *arena.Arena
	Temp    *arena.Arena
	General *arena.Arena

	pool *mempool.Manager
}

// Alloc allocates from pool pt and reports exhaustion as a
// *mempool.ExhaustedError.
func (c *Context) Alloc(pt mempool.PoolType, size, align int) ([]byte, error) {
	return c.pool.Alloc(pt, size, align)
}

// Float32s allocates n float32 values from the tensor pool.
func (c *Context) Float32s(n int) ([]float32, error) {
	if s := c.Tensor.AllocFloat32Slice(n); s != nil {
		return s, nil
	}
	return nil, &mempool.ExhaustedError{Pool: mempool.TensorPool, Requested: n * 4, Available: c.Tensor.Available()}
}

// Scratch allocates n float32 values from the temp-buffer pool.
func (c *Context) Scratch(n int) ([]float32, error) {
	if s := c.Temp.AllocFloat32Slice(n); s != nil {
		return s, nil
	}
	return nil, &mempool.ExhaustedError{Pool: mempool.TempBufferPool, Requested: n * 4, Available: c.Temp.Available()}
}

// StepResult is the outcome of one step.
type StepResult struct {
	Name   string
	TaskID scheduler.TaskID
	Status scheduler.Status
	Err    error
}

// RunResult is the outcome of one pass.
//
// Memory is the pool usage at the end of the pass, before the pools were
// rewound.
type RunResult struct {
	RunID     string
	Steps     []StepResult
	Completed int
	Failed    int
	Duration  time.Duration
	Memory    mempool.MemoryStats
}

// ValidateSteps checks that steps form a graph the scheduler can run: at most
// scheduler.MaxTasks steps, every step has a function and a valid priority,
// and every dependency refers to an earlier step.
func ValidateSteps(steps []Step) error {
	if len(steps) > scheduler.MaxTasks {
		return fmt.Errorf("%w: %d > %d", ErrTooManySteps, len(steps), scheduler.MaxTasks)
	}

	for i, st := range steps {
		if st.Fn == nil {
			return fmt.Errorf("%w: step %d (%s): nil function", ErrInvalidStep, i, st.Name)
		}
		if !st.Priority.Valid() {
			return fmt.Errorf("%w: step %d (%s): invalid priority %d", ErrInvalidStep, i, st.Name, st.Priority)
		}
		if len(st.Deps) > scheduler.MaxDependencies {
			return fmt.Errorf("%w: step %d (%s): %d dependencies, max %d",
				ErrInvalidStep, i, st.Name, len(st.Deps), scheduler.MaxDependencies)
		}
		for _, d := range st.Deps {
			if d < 0 || d >= i {
				return fmt.Errorf("%w: step %d (%s): dependency %d is not an earlier step", ErrInvalidStep, i, st.Name, d)
			}
		}
	}

	return nil
}
