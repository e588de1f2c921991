package tui

import (
	"fmt"
	"strings"

	"github.com/fairdiet/fairdiet/internal/pipeline"
)

// Panel is one of the dashboard's chart views.
type Panel int

const (
	PanelEmissions Panel = iota
	PanelConcentration
	PanelForcing
	PanelTemperature
	PanelNutrients
)

// AllPanels lists panels in tab order.
//
//nolint:gochecknoglobals // Fixed enumeration.
var AllPanels = []Panel{PanelEmissions, PanelConcentration, PanelForcing, PanelTemperature, PanelNutrients}

// panelInfo is the static description of a panel.
type panelInfo struct {
	key      string
	title    string
	glossary string
	axis     Axis
	climate  bool
}

//nolint:gochecknoglobals // Fixed lookup table.
var panels = map[Panel]panelInfo{
	PanelEmissions: {
		key:      "emissions",
		title:    "CO2 emission",
		glossary: "Food supply CO2e emissions to the atmosphere, stacked by food group, measured in billion tonnes per year",
		axis:     Axis{Min: -1, Max: 30, Unit: "Gt CO2e/yr"},
	},
	PanelConcentration: {
		key:      "concentration",
		title:    "CO2 concentration",
		glossary: "Atmospheric CO2 concentration measured in parts per million (ppm)",
		axis:     Axis{Min: 250, Max: 750, Unit: "ppm"},
		climate:  true,
	},
	PanelForcing: {
		key:   "forcing",
		title: "Radiative forcing",
		glossary: "Balance between total energy absorbed by Earth's atmosphere and total energy " +
			"radiated back to space, measured in watts per square metre",
		axis:    Axis{Min: -5, Max: 5, Unit: "W/m²"},
		climate: true,
	},
	PanelTemperature: {
		key:   "temperature",
		title: "Temperature anomaly",
		glossary: "Difference in degrees between projected atmospheric temperature " +
			"and the baseline expected from stable emissions",
		axis:    Axis{Min: -1, Max: 2, Unit: "K"},
		climate: true,
	},
	PanelNutrients: {
		key:      "nutrients",
		title:    "Nutrients",
		glossary: "Daily energy and protein supply per capita, in kcal and grams respectively",
		axis:     Axis{Min: 150, Max: 700, Unit: "kcal/capita/day"},
	},
}

// proteinAxis is the secondary axis of the nutrients panel.
//
//nolint:gochecknoglobals // Fixed axis hint.
var proteinAxis = Axis{Min: 10, Max: 50, Unit: "g protein/capita/day"}

// String returns the panel's config key, e.g. "forcing".
func (p Panel) String() string {
	if info, ok := panels[p]; ok {
		return info.key
	}
	return fmt.Sprintf("Panel(%d)", int(p))
}

// Title is the tab label.
func (p Panel) Title() string { return panels[p].title }

// Glossary is the explanatory line shown under the chart.
func (p Panel) Glossary() string { return panels[p].glossary }

// Axis is the default y-range hint.
func (p Panel) Axis() Axis { return panels[p].axis }

// NeedsClimate reports whether the panel plots climate model output.
func (p Panel) NeedsClimate() bool { return panels[p].climate }

// Next returns the following panel, wrapping around.
func (p Panel) Next() Panel { return AllPanels[(int(p)+1)%len(AllPanels)] }

// Prev returns the preceding panel, wrapping around.
func (p Panel) Prev() Panel {
	return AllPanels[(int(p)+len(AllPanels)-1)%len(AllPanels)]
}

// ParsePanel accepts a panel key or title, case-insensitively.
func ParsePanel(s string) (Panel, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for _, p := range AllPanels {
		if want == p.String() || want == strings.ToLower(p.Title()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown panel %q", s)
}

// RenderPanel draws panel p for bundle at the given width.
func RenderPanel(p Panel, b *pipeline.ResultBundle, width int) string {
	if b == nil {
		return SubtleStyle.Render("No results yet.")
	}
	if p.NeedsClimate() && !b.Status.ClimateAvailable {
		reason := b.Status.ClimateError
		if reason == "" {
			reason = "no climate model configured"
		}
		return BoxStyle.Width(max(width-borderPadding, minChartWidth)).Render(
			WarningStyle.Render("Climate projection unavailable") + "\n" + SubtleStyle.Render(reason))
	}

	switch p {
	case PanelEmissions:
		// Draw the tallest band first so lower bands stay visible.
		stack := b.CumulativeGroupStack
		chart := make([]ChartSeries, 0, len(stack))
		for i := len(stack) - 1; i >= 0; i-- {
			chart = append(chart, ChartSeries{Name: stack[i].Name, Values: stack[i].Values})
		}
		return RenderChart(b.Years, chart, width, chartHeight, p.Axis())
	case PanelConcentration:
		return RenderChart(b.Years, []ChartSeries{{Name: "CO2", Values: b.Concentration}}, width, chartHeight, p.Axis())
	case PanelForcing:
		return RenderChart(b.Years, []ChartSeries{{Name: "Forcing", Values: b.Forcing}}, width, chartHeight, p.Axis())
	case PanelTemperature:
		return RenderChart(b.Years, []ChartSeries{{Name: "Anomaly", Values: b.Temperature}}, width, chartHeight, p.Axis())
	case PanelNutrients:
		half := chartHeight / 2 //nolint:mnd // Two stacked charts.
		energy := RenderChart(b.Years, []ChartSeries{{Name: "Energy intake", Values: b.TotalCalories}}, width, half, p.Axis())
		protein := RenderChart(b.Years, []ChartSeries{{Name: "Protein intake", Values: b.TotalProtein}}, width, half, proteinAxis)
		return energy + "\n" + protein
	default:
		return ""
	}
}
