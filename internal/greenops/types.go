// Package greenops turns emissions quantities into text people can read:
// unit normalization, thousands separators, Gt/Mt scaling and "equivalent to"
// comparisons based on EPA conversion factors.
package greenops

import "fmt"

// EquivalencyType is a category of everyday comparison.
type EquivalencyType int

const (
	// EquivalencyVehicleYears is passenger vehicles driven for one year.
	EquivalencyVehicleYears EquivalencyType = iota

	// EquivalencyHomeYears is homes' energy use for one year.
	EquivalencyHomeYears

	// EquivalencyMilesDriven is miles driven by an average passenger vehicle.
	EquivalencyMilesDriven

	// EquivalencyTreeSeedlings is tree seedlings grown for 10 years.
	EquivalencyTreeSeedlings
)

// String returns the type's name.
func (e EquivalencyType) String() string {
	switch e {
	case EquivalencyVehicleYears:
		return "VehicleYears"
	case EquivalencyHomeYears:
		return "HomeYears"
	case EquivalencyMilesDriven:
		return "MilesDriven"
	case EquivalencyTreeSeedlings:
		return "TreeSeedlings"
	default:
		return fmt.Sprintf("EquivalencyType(%d)", e)
	}
}

// EmissionsInput is a quantity of CO2e with its unit.
type EmissionsInput struct {
	Value float64 `json:"value"`

	// Unit is one of g, kg, t, kt, Mt, Gt, with or without a CO2e suffix.
	Unit string `json:"unit"`
}

// EquivalencyResult is a single comparison.
type EquivalencyResult struct {
	Type           EquivalencyType `json:"type"`
	Value          float64         `json:"value"`
	FormattedValue string          `json:"formatted_value"`
	Label          string          `json:"label"`
}

// EquivalencyOutput holds all comparisons for one quantity.
type EquivalencyOutput struct {
	InputKg float64             `json:"input_kg"`
	Results []EquivalencyResult `json:"results"`

	// DisplayText is the prose form, e.g.
	// "Equivalent to ~1.2 million cars driven for a year or ~900,000 homes' energy for a year".
	DisplayText string `json:"display_text"`

	// CompactText is the short form for status lines, e.g. "(≈ 1.2 million cars/yr)".
	CompactText string `json:"compact_text"`

	IsEmpty bool `json:"is_empty"`
}
