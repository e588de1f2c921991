package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/climate"
	"github.com/fairdiet/fairdiet/internal/scaling"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrUnknownRegion is matched by *UnknownRegionError.
const ErrUnknownRegion = constError("unknown region")

// UnknownRegionError is returned when a recompute names a region with no store.
type UnknownRegionError struct {
	Name  string
	Known []string
}

func (e *UnknownRegionError) Error() string {
	return fmt.Sprintf("%s %q (known: %s)", ErrUnknownRegion, e.Name, strings.Join(e.Known, ", "))
}

// Is lets errors.Is match ErrUnknownRegion.
func (e *UnknownRegionError) Is(target error) bool {
	return target == ErrUnknownRegion
}

// Outcome classifies a recompute result for the presentation layer.
type Outcome int

const (
	// OutcomeOK means emissions and climate series are present.
	OutcomeOK Outcome = iota

	// OutcomeClimateUnavailable means emissions are valid but the climate
	// model failed; climate panels should be marked unavailable.
	OutcomeClimateUnavailable

	// OutcomeInvalidSelection means the request named an unknown region, basis,
	// group or level. The previous bundle stays on screen.
	OutcomeInvalidSelection

	// OutcomeDegenerate means no finite compensation exists for the request.
	// The previous bundle stays on screen.
	OutcomeDegenerate

	// OutcomeCanceled means a newer request superseded this one.
	OutcomeCanceled

	// OutcomeFatal is a data or programming error.
	OutcomeFatal
)

// String returns a short label.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeClimateUnavailable:
		return "climate_unavailable"
	case OutcomeInvalidSelection:
		return "invalid_selection"
	case OutcomeDegenerate:
		return "degenerate"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "fatal"
	}
}

// Recoverable reports whether the session can continue after this outcome.
func (o Outcome) Recoverable() bool {
	return o != OutcomeFatal
}

// Classify maps a Recompute result to an Outcome.
func Classify(bundle *ResultBundle, err error) Outcome {
	switch {
	case err == nil && bundle != nil && !bundle.Status.ClimateAvailable:
		return OutcomeClimateUnavailable
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	case errors.Is(err, ErrUnknownRegion),
		errors.Is(err, catalog.ErrUnknownBasis),
		errors.Is(err, catalog.ErrUnknownGroup),
		errors.Is(err, scaling.ErrInvalidLevel):
		return OutcomeInvalidSelection
	case errors.Is(err, scaling.ErrDegenerateScaling):
		return OutcomeDegenerate
	case errors.Is(err, climate.ErrClimateModel):
		return OutcomeClimateUnavailable
	default:
		return OutcomeFatal
	}
}
