package greenops

import (
	"math"
	"strings"
)

// unitFactor returns the multiplier to kilograms for unit. Matching is
// case-insensitive and ignores a trailing "CO2e".
func unitFactor(unit string) (float64, bool) {
	u := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(unit)), "co2e")
	switch strings.TrimSpace(u) {
	case "g":
		return GramsToKg, true
	case "kg":
		return KgToKg, true
	case "t":
		return TonsToKg, true
	case "kt":
		return KilotonsToKg, true
	case "mt":
		return MegatonsToKg, true
	case "gt":
		return GigatonsToKg, true
	default:
		return 0, false
	}
}

// NormalizeToKg converts value in unit to kilograms CO2e.
//
// It returns ErrCalculationOverflow for non-finite input or result,
// ErrNegativeValue for negative input and ErrInvalidUnit for unknown units.
func NormalizeToKg(value float64, unit string) (float64, error) {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, ErrCalculationOverflow
	}
	if value < 0 {
		return 0, ErrNegativeValue
	}
	factor, ok := unitFactor(unit)
	if !ok {
		return 0, ErrInvalidUnit
	}
	result := value * factor
	if math.IsInf(result, 0) {
		return 0, ErrCalculationOverflow
	}
	return result, nil
}

// IsRecognizedUnit reports whether unit is accepted by NormalizeToKg.
func IsRecognizedUnit(unit string) bool {
	_, ok := unitFactor(unit)
	return ok
}
