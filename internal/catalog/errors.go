package catalog

import "fmt"

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors, comparable with errors.Is.
var (
	// ErrInvalidCatalog indicates a malformed catalog definition. It is fatal at startup.
	ErrInvalidCatalog = constError("invalid catalog")

	// ErrUnknownBasis indicates a nutrient basis outside weight, calories and protein.
	ErrUnknownBasis = constError("unknown nutrient basis")

	// ErrUnknownGroup indicates a group id not present in the catalog.
	ErrUnknownGroup = constError("unknown food group")
)

// UnknownBasisError reports the rejected basis name.
type UnknownBasisError struct {
	Name string
}

func (e *UnknownBasisError) Error() string {
	return fmt.Sprintf("%s: %q (want weight, calories or protein)", ErrUnknownBasis, e.Name)
}

// Is lets errors.Is match ErrUnknownBasis.
func (e *UnknownBasisError) Is(target error) bool {
	return target == ErrUnknownBasis
}
