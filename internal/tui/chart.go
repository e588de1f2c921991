package tui

import (
	"fmt"
	"math"
	"strings"
)

// Axis is a y-range hint. The rendered range is widened to fit the data.
type Axis struct {
	Min, Max float64
	Unit     string
}

// ChartSeries is one plotted line. Glyph defaults by position when zero.
type ChartSeries struct {
	Name   string
	Values []float64
	Glyph  rune
}

//nolint:gochecknoglobals // Fixed glyph cycle.
var chartGlyphs = []rune{'█', '▓', '▒', '░', '*', '+', 'o', 'x'}

const yLabelWidth = 9

// RenderChart plots series against years as text. width covers the whole
// chart including the y labels; height is the number of plot rows.
func RenderChart(years []int, series []ChartSeries, width, height int, axis Axis) string {
	plotWidth := max(width-yLabelWidth-1, minChartWidth-yLabelWidth)
	height = max(height, 2) //nolint:mnd // Top and bottom rows.
	lo, hi := chartRange(series, axis)

	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", plotWidth))
	}

	for si, s := range series {
		glyph := s.Glyph
		if glyph == 0 {
			glyph = chartGlyphs[si%len(chartGlyphs)]
		}
		n := len(s.Values)
		if n == 0 {
			continue
		}
		for c := range plotWidth {
			idx := 0
			if plotWidth > 1 {
				idx = c * (n - 1) / (plotWidth - 1)
			}
			v := s.Values[idx]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			row := int(math.Round((hi - v) / (hi - lo) * float64(height-1)))
			grid[row][c] = glyph
		}
	}

	var sb strings.Builder
	sb.WriteString(LabelStyle.Render(axis.Unit))
	sb.WriteString("\n")
	for r, line := range grid {
		label := strings.Repeat(" ", yLabelWidth)
		switch r {
		case 0:
			label = fmt.Sprintf("%*.4g", yLabelWidth, hi)
		case height / 2: //nolint:mnd // Midpoint label.
			label = fmt.Sprintf("%*.4g", yLabelWidth, hi-(hi-lo)*float64(r)/float64(height-1))
		case height - 1:
			label = fmt.Sprintf("%*.4g", yLabelWidth, lo)
		}
		sb.WriteString(label)
		sb.WriteString("┤")
		sb.WriteString(string(line))
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Repeat(" ", yLabelWidth))
	sb.WriteString("└")
	sb.WriteString(strings.Repeat("─", plotWidth))
	sb.WriteString("\n")
	sb.WriteString(xLabels(years, plotWidth))

	if legend := chartLegend(series); legend != "" {
		sb.WriteString("\n")
		sb.WriteString(legend)
	}
	return sb.String()
}

// chartRange is the axis hint widened to include every finite value.
func chartRange(series []ChartSeries, axis Axis) (float64, float64) {
	lo, hi := axis.Min, axis.Max
	for _, s := range series {
		for _, v := range s.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// xLabels places the first year under the left edge and the last under the
// right edge.
func xLabels(years []int, plotWidth int) string {
	pad := strings.Repeat(" ", yLabelWidth+1)
	if len(years) == 0 {
		return pad
	}
	first := fmt.Sprint(years[0])
	if len(years) == 1 {
		return pad + first
	}
	last := fmt.Sprint(years[len(years)-1])
	gap := max(plotWidth-len(first)-len(last), 1)
	return pad + first + strings.Repeat(" ", gap) + last
}

func chartLegend(series []ChartSeries) string {
	if len(series) < 2 { //nolint:mnd // A single series needs no legend.
		if len(series) == 1 && series[0].Name != "" {
			return strings.Repeat(" ", yLabelWidth+1) + LabelStyle.Render(series[0].Name)
		}
		return ""
	}
	parts := make([]string, 0, len(series))
	for i, s := range series {
		glyph := s.Glyph
		if glyph == 0 {
			glyph = chartGlyphs[i%len(chartGlyphs)]
		}
		parts = append(parts, string(glyph)+" "+s.Name)
	}
	return strings.Repeat(" ", yLabelWidth+1) + LabelStyle.Render(strings.Join(parts, "  "))
}
