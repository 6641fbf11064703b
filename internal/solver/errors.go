package solver

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDt indicates a non-positive outer step.
	ErrInvalidDt = errors.New("solver: dt must be positive")

	// ErrInvalidDuration indicates a non-positive run duration.
	ErrInvalidDuration = errors.New("solver: duration must be positive")

	// ErrNoOperators indicates a scheduler with nothing to run.
	ErrNoOperators = errors.New("solver: no operators registered")
)

// SimError reports a failed outer step.
type SimError struct {
	Step     int
	Time     float64
	Operator string
	Err      error
}

func (e *SimError) Error() string {
	if e.Operator != "" {
		return fmt.Sprintf("step %d (t=%.4f): %s: %v", e.Step, e.Time, e.Operator, e.Err)
	}
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Err)
}

func (e *SimError) Unwrap() error {
	return e.Err
}
