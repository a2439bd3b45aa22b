package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRunning is returned when the scheduler is not initialized.
	ErrNotRunning = errors.New("scheduler: not running")
	// ErrAlreadyRunning is returned by Initialize on a running scheduler.
	ErrAlreadyRunning = errors.New("scheduler: already running")
	// ErrNilTask is returned when submitting a nil TaskFunc.
	ErrNilTask = errors.New("scheduler: nil task function")
	// ErrTaskPoolFull is returned when all MaxTasks slots are in use.
	ErrTaskPoolFull = errors.New("scheduler: task pool full")
	// ErrTooManyDependencies is returned for more than MaxDependencies deps.
	ErrTooManyDependencies = errors.New("scheduler: too many dependencies")
	// ErrUnknownDependency is returned for a dependency id that was never
	// assigned in the current generation.
	ErrUnknownDependency = errors.New("scheduler: unknown dependency")
	// ErrInvalidPriority is returned for a priority outside the known set.
	ErrInvalidPriority = errors.New("scheduler: invalid priority")
	// ErrUnknownStrategy is returned by ParseStrategy.
	ErrUnknownStrategy = errors.New("scheduler: unknown strategy")
	// ErrDependencyFailed marks a task that never ran because one of its
	// dependencies failed.
	ErrDependencyFailed = errors.New("scheduler: dependency failed")
)

// PanicError is the error recorded for a task whose body panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("scheduler: task panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
