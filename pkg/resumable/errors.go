package resumable

import (
	"github.com/pkg/errors"
)

var (
	ErrStepFailed = errors.New("step failed")
	ErrNilStep    = errors.New("step function must be set")
)

// StepError is returned when a step fails. The completed steps are left as they were, so that
// the next resume runs the step again.
type StepError struct {
	Step  string
	Cause error
}

func (e *StepError) Error() string {
	return "step " + e.Step + ": " + e.Cause.Error()
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

func (e *StepError) Is(target error) bool {
	return target == ErrStepFailed
}
