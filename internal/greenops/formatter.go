package greenops

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer formats numbers with English thousands separators.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// FormatNumber formats an integer with thousand separators.
// Example: FormatNumber(18248) returns "18,248".
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatFloat formats f with precision decimals and thousand separators.
// Example: FormatFloat(1234.567, 2) returns "1,234.57".
func FormatFloat(f float64, precision int) string {
	const base = 10
	multiplier := math.Pow(base, float64(precision))
	rounded := math.Round(f*multiplier) / multiplier
	if precision == 0 {
		return FormatNumber(int64(rounded))
	}
	return printer.Sprintf("%.*f", precision, rounded)
}

// FormatLarge abbreviates large counts: "~1.5 billion", "~5.2 million".
// Values below one million are written out with separators.
func FormatLarge(n float64) string {
	switch {
	case n >= TrillionThreshold:
		return printer.Sprintf("~%.1f trillion", n/TrillionThreshold)
	case n >= BillionThreshold:
		return printer.Sprintf("~%.1f billion", n/BillionThreshold)
	case n >= LargeNumberThreshold:
		return printer.Sprintf("~%.1f million", n/LargeNumberThreshold)
	default:
		return FormatNumber(int64(math.Round(n)))
	}
}

// emissionsScale is one step of the Gt → Mt → kt → t ladder.
type emissionsScale struct {
	unit   string
	factor float64 // relative to Gt
}

//nolint:gochecknoglobals // Fixed lookup table.
var emissionsScales = []emissionsScale{
	{unit: "Gt", factor: 1},
	{unit: "Mt", factor: 1e3},
	{unit: "kt", factor: 1e6},
	{unit: "t", factor: 1e9},
}

// FormatEmissions renders a quantity given in Gt CO2e using the largest unit
// in which it is at least 1, with three decimals.
// Example: FormatEmissions(0.0123) returns "12.300 Mt CO2e".
func FormatEmissions(gt float64) string {
	if math.IsNaN(gt) || math.IsInf(gt, 0) {
		return "n/a"
	}
	abs := math.Abs(gt)
	scale := emissionsScales[len(emissionsScales)-1]
	for _, s := range emissionsScales {
		if abs*s.factor >= 1 {
			scale = s
			break
		}
	}
	if abs == 0 {
		scale = emissionsScales[0]
	}
	return FormatFloat(gt*scale.factor, 3) + " " + scale.unit + " CO2e"
}

// FormatSigned is FormatEmissions with an explicit sign for deltas.
func FormatSigned(gt float64) string {
	s := FormatEmissions(gt)
	if gt > 0 && !strings.HasPrefix(s, "+") {
		return "+" + s
	}
	return s
}

// FormatPercent renders a ratio delta as "-12.3%".
func FormatPercent(ratio float64) string {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return "n/a"
	}
	sign := ""
	if ratio > 0 {
		sign = "+"
	}
	return sign + FormatFloat(ratio*100, 1) + "%"
}
