package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLength is returned for an empty input.
	ErrInvalidLength = errors.New("scan: input length must be positive")

	// ErrInvalidWorkerBudget is returned when maxWorkers < 1.
	ErrInvalidWorkerBudget = errors.New("scan: worker budget must be at least 1")

	// ErrNotPowerOfTwo is returned when the input length is not an exact power of two.
	// The stride arithmetic would otherwise skip or overlap buffer slots.
	ErrNotPowerOfTwo = errors.New("scan: input length must be a power of two")

	// ErrWorkerFailed marks a task that panicked. The computation is aborted
	// before the next level starts.
	ErrWorkerFailed = errors.New("scan: worker failed")
)

// TaskError describes the task that failed during a level.
type TaskError struct {
	Phase  Phase
	Level  int
	Worker int
	Cause  any
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("scan: %s level %d worker %d failed: %v", e.Phase, e.Level, e.Worker, e.Cause)
}

// Unwrap lets errors.Is match ErrWorkerFailed, and the cause when it is an error.
func (e *TaskError) Unwrap() []error {
	if err, ok := e.Cause.(error); ok {
		return []error{ErrWorkerFailed, err}
	}
	return []error{ErrWorkerFailed}
}

// validate checks the preconditions of Compute. It never allocates.
func validate(n, maxWorkers int) error {
	if n <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidLength, n)
	}
	if maxWorkers < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkerBudget, maxWorkers)
	}
	if !IsPowerOfTwo(n) {
		return fmt.Errorf("%w: got %d", ErrNotPowerOfTwo, n)
	}
	return nil
}
