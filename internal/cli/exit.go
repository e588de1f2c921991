package cli

import (
	"errors"

	"github.com/fairdiet/fairdiet/internal/pipeline"
	"github.com/fairdiet/fairdiet/internal/series"
)

// Exit codes returned by the fairdiet binary.
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitInvalidSelection = 2
	ExitDegenerate       = 3
	ExitDataLoad         = 4
)

// ExitError carries an explicit process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit"
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, series.ErrDataLoad) {
		return ExitDataLoad
	}
	switch pipeline.Classify(nil, err) {
	case pipeline.OutcomeInvalidSelection:
		return ExitInvalidSelection
	case pipeline.OutcomeDegenerate:
		return ExitDegenerate
	case pipeline.OutcomeOK, pipeline.OutcomeClimateUnavailable, pipeline.OutcomeCanceled, pipeline.OutcomeFatal:
		return ExitFailure
	default:
		return ExitFailure
	}
}
