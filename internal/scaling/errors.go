package scaling

import "fmt"

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors for the scaling engine.
const (
	// ErrDegenerateScaling is returned when the basis left to compensate is zero
	// or negative, so no finite compensation factor conserves the total.
	ErrDegenerateScaling = constError("degenerate scaling")

	// ErrInvalidLevel is returned for reduction levels outside 0..MaxLevel.
	ErrInvalidLevel = constError("invalid reduction level")
)

// DegenerateScalingError reports the first year in which compensation failed.
// AdjustedTotal is the basis total after the reduction; Compensable is the part
// of the baseline held by items that receive the compensation factor.
type DegenerateScalingError struct {
	Year          int
	Pass          string // "ruminant" or "meat"
	BasisTotal    float64
	AdjustedTotal float64
	Compensable   float64
}

func (e *DegenerateScalingError) Error() string {
	return fmt.Sprintf("%s: %s pass, year %d: basis total %g, adjusted %g, only %g available to compensate",
		ErrDegenerateScaling, e.Pass, e.Year, e.BasisTotal, e.AdjustedTotal, e.Compensable)
}

// Is lets errors.Is match ErrDegenerateScaling.
func (e *DegenerateScalingError) Is(target error) bool {
	return target == ErrDegenerateScaling
}

func invalidLevel(name string, level int) error {
	return fmt.Errorf("%w: %s level %d not in 0..%d", ErrInvalidLevel, name, level, MaxLevel)
}
