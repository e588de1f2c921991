// Package climate is the boundary to the external climate-response model.
//
// A Model maps an annual net emissions trajectory (Gt CO2e/yr) to CO2
// concentration (ppm), radiative forcing (W/m²) and temperature anomaly (K),
// all aligned to the input's year index. Models are treated as deterministic
// pure functions. Callers go through Run, which checks both the input and the
// returned series so that a diverging model can never hand NaN downstream.
package climate

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrClimateModel matches every failure reported by a climate model.
const ErrClimateModel = constError("climate model failed")

// ModelError describes a failed or invalid climate model call.
type ModelError struct {
	Model  string
	Reason string
	Err    error
}

func (e *ModelError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrClimateModel, e.Model)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets errors.Is match ErrClimateModel.
func (e *ModelError) Is(target error) bool {
	return target == ErrClimateModel
}

// Unwrap returns the underlying cause.
func (e *ModelError) Unwrap() error {
	return e.Err
}

// Projection holds the three climate series, each the same length as the
// emissions input.
type Projection struct {
	Concentration []float64 `json:"concentration"`
	Forcing       []float64 `json:"forcing"`
	Temperature   []float64 `json:"temperature"`
}

// Model is implemented by climate-response engines.
type Model interface {
	Name() string
	Project(ctx context.Context, emissions []float64) (Projection, error)
}

// Func adapts a plain function to Model.
type Func struct {
	Label string
	Fn    func(ctx context.Context, emissions []float64) (Projection, error)
}

// Name returns the label.
func (f Func) Name() string { return f.Label }

// Project calls Fn.
func (f Func) Project(ctx context.Context, emissions []float64) (Projection, error) {
	return f.Fn(ctx, emissions)
}

// Unavailable is the model used when none is configured. Every call fails.
type Unavailable struct {
	Reason string
}

// Name returns "unavailable".
func (Unavailable) Name() string { return "unavailable" }

// Project always returns a ModelError.
func (u Unavailable) Project(context.Context, []float64) (Projection, error) {
	reason := u.Reason
	if reason == "" {
		reason = "no climate model configured"
	}
	return Projection{}, &ModelError{Model: u.Name(), Reason: reason}
}

// Run validates emissions, calls m and validates its projection. Any failure
// is returned as a *ModelError.
func Run(ctx context.Context, m Model, emissions []float64) (Projection, error) {
	if m == nil {
		m = Unavailable{}
	}
	if i, ok := firstNonFinite(emissions); !ok {
		return Projection{}, &ModelError{
			Model:  m.Name(),
			Reason: fmt.Sprintf("emissions input is not finite at index %d", i),
		}
	}

	p, err := m.Project(ctx, append([]float64(nil), emissions...))
	if err != nil {
		var me *ModelError
		if errors.As(err, &me) {
			return Projection{}, err
		}
		return Projection{}, &ModelError{Model: m.Name(), Err: err}
	}
	if err = Validate(p, len(emissions)); err != nil {
		return Projection{}, &ModelError{Model: m.Name(), Reason: err.Error()}
	}
	return p, nil
}

// Validate checks that every series has length n and only finite values.
func Validate(p Projection, n int) error {
	series := []struct {
		name   string
		values []float64
	}{
		{"concentration", p.Concentration},
		{"forcing", p.Forcing},
		{"temperature", p.Temperature},
	}
	for _, s := range series {
		if len(s.values) != n {
			return fmt.Errorf("%s has %d values, want %d", s.name, len(s.values), n)
		}
		if i, ok := firstNonFinite(s.values); !ok {
			return fmt.Errorf("%s is not finite at index %d", s.name, i)
		}
	}
	return nil
}

func firstNonFinite(values []float64) (int, bool) {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i, false
		}
	}
	return 0, true
}
