package greenops

// EPA Formula Constants (2024 Edition)
// Source: https://www.epa.gov/energy/greenhouse-gas-equivalencies-calculator
//
// Each constant is the kg CO2e attributed to one unit of the activity:
//
//	equivalency = kg_CO2e / factor
const (
	// EPAMilesDrivenFactor is kg CO2e per mile for an average passenger vehicle.
	EPAMilesDrivenFactor = 0.192

	// EPAVehicleYearFactor is kg CO2e emitted by a typical passenger vehicle in a year.
	EPAVehicleYearFactor = 4600.0

	// EPAHomeYearFactor is kg CO2e from one average US home's energy use for a year.
	EPAHomeYearFactor = 7480.0

	// EPATreeSeedlingFactor is kg CO2e absorbed per tree seedling over 10 years.
	EPATreeSeedlingFactor = 60.0
)

// Unit conversion constants for normalizing emissions to kilograms.
const (
	// GramsToKg converts grams to kilograms.
	GramsToKg = 0.001

	// KgToKg is the identity conversion for kilograms.
	KgToKg = 1.0

	// TonsToKg converts metric tons to kilograms.
	TonsToKg = 1000.0

	// KilotonsToKg converts kilotonnes to kilograms.
	KilotonsToKg = 1e6

	// MegatonsToKg converts megatonnes to kilograms.
	MegatonsToKg = 1e9

	// GigatonsToKg converts gigatonnes to kilograms. Pipeline series are in Gt.
	GigatonsToKg = 1e12
)

// Display thresholds.
const (
	// MinEquivalencyThresholdKg is the minimum kg CO2e for showing equivalencies.
	MinEquivalencyThresholdKg = 1.0

	// LargeNumberThreshold switches FormatLarge to "~X.X million".
	LargeNumberThreshold = 1_000_000

	// BillionThreshold switches FormatLarge to "~X.X billion".
	BillionThreshold = 1_000_000_000

	// TrillionThreshold switches FormatLarge to "~X.X trillion".
	TrillionThreshold = 1_000_000_000_000
)
