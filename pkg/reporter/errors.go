package reporter

import (
	"fmt"

	"github.com/pkg/errors"
)

type Step string

const (
	Step_Config  Step = "config"
	Step_Fetch   Step = "fetch"
	Step_Hash    Step = "hash"
	Step_Persist Step = "persist"
	Step_Report  Step = "report"
	Step_Compare Step = "compare"
)

var ErrMismatch = errors.New("code hashes differ")

// StepError records which pipeline step failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func newStepError(step Step, err error) *StepError {
	return &StepError{Step: step, Err: err}
}

func NewConfigError(err error) error {
	return newStepError(Step_Config, err)
}

// FailedStep returns the step an error came from, if any.
func FailedStep(err error) (Step, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step, true
	}
	return "", false
}

const (
	ExitCode_Ok       = 0
	ExitCode_Unknown  = 1
	ExitCode_Config   = 2
	ExitCode_Fetch    = 3
	ExitCode_Hash     = 4
	ExitCode_Persist  = 5
	ExitCode_Report   = 6
	ExitCode_Mismatch = 7
)

func ExitCode(err error) int {
	if err == nil {
		return ExitCode_Ok
	}
	if errors.Is(err, ErrMismatch) {
		return ExitCode_Mismatch
	}
	step, ok := FailedStep(err)
	if !ok {
		return ExitCode_Unknown
	}
	switch step {
	case Step_Config:
		return ExitCode_Config
	case Step_Fetch:
		return ExitCode_Fetch
	case Step_Hash:
		return ExitCode_Hash
	case Step_Persist:
		return ExitCode_Persist
	case Step_Report:
		return ExitCode_Report
	default:
		return ExitCode_Unknown
	}
}
