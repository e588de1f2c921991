package greenops

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors for unit normalization and equivalencies.
var (
	// ErrInvalidUnit indicates an unrecognized emissions unit.
	ErrInvalidUnit = constError("invalid emissions unit")

	// ErrNegativeValue indicates a negative quantity where only magnitudes apply.
	ErrNegativeValue = constError("negative emissions value")

	// ErrCalculationOverflow indicates a non-finite input or result.
	ErrCalculationOverflow = constError("calculation overflow")
)
