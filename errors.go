package cmxrt

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when using a closed Runtime.
	ErrClosed = errors.New("cmxrt: runtime closed")
	// ErrInvalidStep is returned for a step with a nil function, bad
	// dependencies or an invalid priority.
	ErrInvalidStep = errors.New("cmxrt: invalid step")
	// ErrTooManySteps is returned for graphs larger than the task pool.
	ErrTooManySteps = errors.New("cmxrt: too many steps")
	// ErrStepFailed is matched by every *StepError.
	ErrStepFailed = errors.New("cmxrt: step failed")
)

// StepError reports the first failed step of a run.
//
// The step's own error can be accessed via errors.Unwrap / errors.As.
type StepError struct {
	Index int
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("cmxrt: step %d (%s) failed: %v", e.Index, e.Name, e.Err)
}

// Unwrap returns ErrStepFailed and the step's error.
func (e *StepError) Unwrap() []error {
	return []error{ErrStepFailed, e.Err}
}
