package pipeline

import (
	"fmt"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/scaling"
)

// InterventionState is the user's current selection. It is passed by value;
// the pipeline never keeps or mutates it.
type InterventionState struct {
	RuminantLevel int           `json:"ruminant_level" yaml:"ruminant_level"`
	MeatLevel     int           `json:"meat_level"     yaml:"meat_level"`
	Basis         catalog.Basis `json:"basis"          yaml:"basis"`
	GroupFilter   string        `json:"group_filter,omitempty" yaml:"group_filter,omitempty"`
}

// String renders the state for logs and status lines.
func (s InterventionState) String() string {
	out := fmt.Sprintf("ruminant=%d meat=%d basis=%s", s.RuminantLevel, s.MeatLevel, s.Basis)
	if s.GroupFilter != "" {
		out += " group=" + s.GroupFilter
	}
	return out
}

// Validate checks levels and basis without consulting the catalog.
func (s InterventionState) Validate() error {
	if !s.Basis.Valid() {
		return &catalog.UnknownBasisError{Name: s.Basis.String()}
	}
	if s.RuminantLevel < 0 || s.RuminantLevel > scaling.MaxLevel {
		return fmt.Errorf("%w: ruminant level %d not in 0..%d", scaling.ErrInvalidLevel, s.RuminantLevel, scaling.MaxLevel)
	}
	if s.MeatLevel < 0 || s.MeatLevel > scaling.MaxLevel {
		return fmt.Errorf("%w: meat level %d not in 0..%d", scaling.ErrInvalidLevel, s.MeatLevel, scaling.MaxLevel)
	}
	return nil
}

// Series is one labelled trajectory aligned to ResultBundle.Years.
type Series struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Status reports what happened during a recompute that still produced results.
type Status struct {
	ClimateAvailable bool   `json:"climate_available"`
	ClimateModel     string `json:"climate_model,omitempty"`
	ClimateError     string `json:"climate_error,omitempty"`
	ClampedYears     []int  `json:"clamped_years,omitempty"`
	MeatLevelApplied bool   `json:"meat_level_applied"`

	// ClimateErr is the *climate.ModelError behind ClimateError.
	ClimateErr error `json:"-" yaml:"-"`
}

// ResultBundle is everything the presentation layer renders for one state.
// It is freshly allocated per recompute and owned by the caller.
type ResultBundle struct {
	ID     string            `json:"id"`
	Region catalog.Region    `json:"region"`
	State  InterventionState `json:"state"`
	Years  []int             `json:"years"`

	// Per-item, per-group and stacked series honour State.GroupFilter.
	PerItemEmissions     []Series `json:"per_item_emissions"`
	PerGroupEmissions    []Series `json:"per_group_emissions"`
	CumulativeGroupStack []Series `json:"cumulative_group_stack"`
	ScaledCalories       []Series `json:"scaled_calories"`
	ScaledProtein        []Series `json:"scaled_protein"`

	// Totals always cover every item.
	TotalEmissions    []float64 `json:"total_emissions"`
	BaselineEmissions []float64 `json:"baseline_emissions"`
	TotalCalories     []float64 `json:"total_calories"`
	TotalProtein      []float64 `json:"total_protein"`

	Concentration []float64 `json:"concentration,omitempty"`
	Forcing       []float64 `json:"forcing,omitempty"`
	Temperature   []float64 `json:"temperature,omitempty"`

	Status Status `json:"status"`
}

// Last returns the final value of values, or 0 when empty.
func Last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

// AvoidedEmissions returns the cumulative baseline minus intervention total
// over the whole year range, in Gt CO2e.
func (b *ResultBundle) AvoidedEmissions() float64 {
	var avoided float64
	for y := range b.TotalEmissions {
		avoided += b.BaselineEmissions[y] - b.TotalEmissions[y]
	}
	return avoided
}
