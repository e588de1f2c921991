package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/greenops"
	"github.com/fairdiet/fairdiet/internal/pipeline"
	"github.com/fairdiet/fairdiet/internal/scaling"
)

// View renders the current view.
func (m *DashboardModel) View() string {
	switch m.status {
	case DashboardStateQuitting:
		return ""
	case DashboardStateError:
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\nPress q to quit."
	case DashboardStateReady:
	}

	sections := []string{
		TitleStyle.Render("Diet shift emissions"),
		m.renderControls(),
		RenderTabs(m.panel),
		RenderPanel(m.panel, m.bundle, m.width),
		SubtleStyle.Render(m.panel.Glossary()),
		m.table.View(),
		m.renderStatusBar(),
		RenderDashboardHelp(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderControls shows the selection as label/value pairs.
func (m *DashboardModel) renderControls() string {
	region := m.Region()
	if r, ok := m.cat.Region(region); ok && r.Label != "" {
		region = r.Label
	}
	meat := RenderLevel(m.state.MeatLevel)
	if !m.meatOn {
		meat += SubtleStyle.Render(" (disabled)")
	}
	filter := "all"
	if m.state.GroupFilter != "" {
		filter = m.state.GroupFilter
		if g, err := m.cat.Group(filter); err == nil {
			filter = g.Name
		}
	}

	pairs := [][2]string{
		{"Region", region},
		{"Basis", m.state.Basis.String()},
		{"Ruminant cut", RenderLevel(m.state.RuminantLevel)},
		{"Meat cut", meat},
		{"Groups", filter},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, LabelStyle.Render(p[0]+": ")+ValueStyle.Render(p[1]))
	}
	return strings.Join(parts, "   ")
}

// RenderLevel draws a 0..4 reduction level as a bar, e.g. "■■□□ 50%".
func RenderLevel(level int) string {
	level = min(max(level, 0), scaling.MaxLevel)
	bar := strings.Repeat(IconLevelOn, level) + strings.Repeat(IconLevelOff, scaling.MaxLevel-level)
	return fmt.Sprintf("%s %d%%", bar, level*100/scaling.MaxLevel) //nolint:mnd // Percent.
}

// RenderTabs renders the panel tabs with the active one highlighted.
func RenderTabs(active Panel) string {
	tabs := make([]string, 0, len(AllPanels))
	for i, p := range AllPanels {
		label := fmt.Sprintf("%d %s", i+1, p.Title())
		if p == active {
			tabs = append(tabs, ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, TabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderStatusBar summarises the final-year totals and recompute state.
func (m *DashboardModel) renderStatusBar() string {
	var parts []string
	if m.loading {
		parts = append(parts, m.loader.View())
	}

	if b := m.bundle; b != nil && len(b.Years) > 0 {
		total := pipeline.Last(b.TotalEmissions)
		base := pipeline.Last(b.BaselineEmissions)
		summary := fmt.Sprintf("%d: %s", b.Years[len(b.Years)-1], greenops.FormatEmissions(total))
		if base > 0 {
			summary += " " + RenderEmissionsDelta(total-base, (total-base)/base)
		}
		parts = append(parts, ValueStyle.Render(summary))
		if line := greenops.DescribeChange(sum(b.BaselineEmissions), sum(b.TotalEmissions)); line != "" {
			parts = append(parts, SubtleStyle.Render(line+" over "+yearSpan(b.Years)))
		}
		if len(b.Status.ClampedYears) > 0 {
			parts = append(parts, WarningStyle.Render(fmt.Sprintf("compensation clamped in %d year(s)", len(b.Status.ClampedYears))))
		}
	}

	if m.notice != "" {
		style := WarningStyle
		if m.outcome == pipeline.OutcomeInvalidSelection || m.outcome == pipeline.OutcomeDegenerate {
			style = ErrorStyle
		}
		parts = append(parts, style.Render(m.notice))
	}
	return strings.Join(parts, "\n")
}

// RenderEmissionsDelta renders a signed change with a direction arrow.
// Reductions are good news and use the OK colour.
func RenderEmissionsDelta(deltaGt, ratio float64) string {
	var icon string
	var style lipgloss.Style
	switch {
	case deltaGt > 0:
		icon, style = IconArrowUp, WarningStyle
	case deltaGt < 0:
		icon, style = IconArrowDown, OKStyle
	default:
		icon, style = IconArrowRight, SubtleStyle
	}
	return style.Render(fmt.Sprintf("%s %s (%s)", icon, greenops.FormatSigned(deltaGt), greenops.FormatPercent(ratio)))
}

// RenderDashboardHelp renders the key binding line.
func RenderDashboardHelp() string {
	shortcuts := []string{
		"←/→: Ruminant cut",
		"[/]: Meat cut",
		"b: Basis",
		"r: Region",
		"tab/1-5: Panel",
		"↑/↓ Enter: Filter group",
		"Esc: All groups",
		"q: Quit",
	}
	return HelpStyle.Render(strings.Join(shortcuts, " | "))
}

// newGroupTable builds the per-group table.
func newGroupTable(groups []catalog.FoodGroup, b *pipeline.ResultBundle, height int) table.Model {
	columns := []table.Column{
		{Title: "Group", Width: 24},     //nolint:mnd // Column width.
		{Title: "Items", Width: 6},      //nolint:mnd // Column width.
		{Title: "Emissions", Width: 20}, //nolint:mnd // Column width.
		{Title: "Share", Width: 8},      //nolint:mnd // Column width.
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(groupRows(groups, b)),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	t.SetStyles(s)
	return t
}

// groupRows lists every catalog group with its final-year emissions. Groups
// excluded by the bundle's filter show a dash.
func groupRows(groups []catalog.FoodGroup, b *pipeline.ResultBundle) []table.Row {
	values := map[string]float64{}
	var total float64
	if b != nil {
		for _, s := range b.PerGroupEmissions {
			values[s.ID] = pipeline.Last(s.Values)
		}
		total = pipeline.Last(b.TotalEmissions)
	}

	rows := make([]table.Row, len(groups))
	for i, g := range groups {
		emissions, share := "—", "—"
		if v, ok := values[g.ID]; ok {
			emissions = greenops.FormatEmissions(v)
			if total > 0 {
				share = greenops.FormatFloat(v/total*100, 1) + "%" //nolint:mnd // Percent.
			}
		}
		rows[i] = table.Row{g.Name, fmt.Sprint(len(g.Items)), emissions, share}
	}
	return rows
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

func yearSpan(years []int) string {
	if len(years) == 0 {
		return ""
	}
	return fmt.Sprintf("%d-%d", years[0], years[len(years)-1])
}
