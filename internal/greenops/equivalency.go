package greenops

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// equivalencyDef describes how one comparison is derived from kg CO2e.
type equivalencyDef struct {
	kind    EquivalencyType
	factor  float64
	label   string
	compact string
}

//nolint:gochecknoglobals // Fixed table of EPA comparisons, ordered for display.
var equivalencyDefs = []equivalencyDef{
	{kind: EquivalencyVehicleYears, factor: EPAVehicleYearFactor, label: "cars driven for a year", compact: "cars/yr"},
	{kind: EquivalencyHomeYears, factor: EPAHomeYearFactor, label: "homes' energy for a year", compact: "homes/yr"},
	{kind: EquivalencyMilesDriven, factor: EPAMilesDrivenFactor, label: "miles driven", compact: "mi"},
	{kind: EquivalencyTreeSeedlings, factor: EPATreeSeedlingFactor, label: "tree seedlings grown for 10 years", compact: "seedlings"},
}

// Calculate normalizes input to kg CO2e and computes every EPA comparison.
//
// Below MinEquivalencyThresholdKg the output is empty with no error. An
// unrecognized unit is reported, naming the unit, before the value is looked
// at. Sign and overflow problems are returned from NormalizeToKg unchanged.
func Calculate(input EmissionsInput) (EquivalencyOutput, error) {
	if !IsRecognizedUnit(input.Unit) {
		return EquivalencyOutput{IsEmpty: true}, fmt.Errorf("%w: %q", ErrInvalidUnit, input.Unit)
	}
	kg, err := NormalizeToKg(input.Value, input.Unit)
	if err != nil {
		return EquivalencyOutput{IsEmpty: true}, err
	}
	if kg < MinEquivalencyThresholdKg {
		return EquivalencyOutput{InputKg: kg, IsEmpty: true}, nil
	}

	results := make([]EquivalencyResult, 0, len(equivalencyDefs))
	for _, def := range equivalencyDefs {
		v := kg / def.factor
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return EquivalencyOutput{IsEmpty: true}, ErrCalculationOverflow
		}
		results = append(results, EquivalencyResult{
			Type:           def.kind,
			Value:          v,
			FormattedValue: formatEquivalencyValue(v),
			Label:          def.label,
		})
	}

	// The two most relatable comparisons lead the prose.
	return EquivalencyOutput{
		InputKg: kg,
		Results: results,
		DisplayText: fmt.Sprintf("Equivalent to ~%s %s or ~%s %s",
			results[0].FormattedValue, results[0].Label,
			results[1].FormattedValue, results[1].Label),
		CompactText: fmt.Sprintf("(≈ %s %s)", results[0].FormattedValue, equivalencyDefs[0].compact),
	}, nil
}

// DescribeChange summarizes the difference between baseline and scenario
// emissions, both in Gt CO2e, e.g.
// "Avoids 1.234 Gt CO2e, equivalent to ~268.3 million cars driven for a year".
//
// An empty string means the change is too small to describe or the inputs
// were unusable; the latter is logged.
func DescribeChange(baselineGt, scenarioGt float64) string {
	delta := baselineGt - scenarioGt
	verb := "Avoids"
	if delta < 0 {
		verb = "Adds"
	}
	out, err := Calculate(EmissionsInput{Value: math.Abs(delta), Unit: "Gt"})
	if err != nil {
		log.Warn().Err(err).
			Float64("baseline_gt", baselineGt).
			Float64("scenario_gt", scenarioGt).
			Msg("equivalency calculation failed")
		return ""
	}
	if out.IsEmpty {
		return ""
	}
	first := out.Results[0]
	return fmt.Sprintf("%s %s, equivalent to ~%s %s",
		verb, FormatEmissions(math.Abs(delta)), first.FormattedValue, first.Label)
}

// formatEquivalencyValue uses FormatLarge above one million and plain
// separators below.
func formatEquivalencyValue(v float64) string {
	if v >= LargeNumberThreshold {
		return FormatLarge(v)
	}
	return FormatNumber(int64(math.Round(v)))
}
