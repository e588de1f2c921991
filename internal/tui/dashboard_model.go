package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/logging"
	"github.com/fairdiet/fairdiet/internal/pipeline"
	"github.com/fairdiet/fairdiet/internal/scaling"
)

// Submitter is the part of *pipeline.Scheduler the dashboard uses.
type Submitter interface {
	Submit(req pipeline.Request) uint64
	Results() <-chan pipeline.Result
}

// DashboardState is the coarse state of the dashboard.
type DashboardState int

const (
	// DashboardStateReady shows the latest bundle, possibly with a recompute pending.
	DashboardStateReady DashboardState = iota
	// DashboardStateError shows a fatal error.
	DashboardStateError
	// DashboardStateQuitting is set once the user quits.
	DashboardStateQuitting
)

// DashboardOptions is the initial selection.
type DashboardOptions struct {
	Region string
	State  pipeline.InterventionState
	Panel  Panel

	// MeatReduction tells the dashboard whether the meat slider has any
	// effect, so it can be labelled as such.
	MeatReduction bool
}

// resultMsg carries a scheduler result into Update.
type resultMsg pipeline.Result

// resultsClosedMsg is sent when the scheduler stops.
type resultsClosedMsg struct{}

// DashboardModel is the Bubble Tea model for the interactive dashboard.
type DashboardModel struct {
	ctx   context.Context
	sched Submitter
	cat   *catalog.Catalog

	// Selection
	regions   []string
	regionIdx int
	state     pipeline.InterventionState
	panel     Panel
	meatOn    bool

	// Last good bundle and the selection that produced it
	bundle       *pipeline.ResultBundle
	bundleRegion string

	// Recompute tracking
	pendingSeq uint64
	loading    bool
	outcome    pipeline.Outcome
	notice     string

	groups []catalog.FoodGroup
	table  table.Model
	loader *LoadingState
	status DashboardState
	err    error
	width  int
	height int
}

// NewDashboardModel creates the dashboard. regions are the selectable region
// names; an unknown opts.Region starts on the first one.
func NewDashboardModel(
	ctx context.Context,
	sched Submitter,
	cat *catalog.Catalog,
	regions []string,
	opts DashboardOptions,
) *DashboardModel {
	m := &DashboardModel{
		ctx:     ctx,
		sched:   sched,
		cat:     cat,
		regions: regions,
		state:   opts.State,
		panel:   opts.Panel,
		meatOn:  opts.MeatReduction,
		groups:  cat.Groups(),
		loader:  NewLoadingState(),
		width:   defaultWidth,
		height:  defaultHeight,
	}
	for i, r := range regions {
		if r == opts.Region {
			m.regionIdx = i
		}
	}
	m.table = newGroupTable(m.groups, nil, tableHeight)
	return m
}

// Init submits the initial selection and starts listening for results.
func (m *DashboardModel) Init() tea.Cmd {
	m.submit()
	return tea.Batch(m.waitForResult(), m.loader.Init())
}

// Update handles messages and updates the model state.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case resultMsg:
		return m, m.handleResult(pipeline.Result(msg))

	case resultsClosedMsg:
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	if m.loading {
		return m, m.loader.Update(msg)
	}
	return m, nil
}

// handleKeyMsg processes keyboard input.
//
//nolint:exhaustive,cyclop // Only handling the dashboard's key bindings.
func (m *DashboardModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.status == DashboardStateError {
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			m.status = DashboardStateQuitting
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		m.status = DashboardStateQuitting
		return m, tea.Quit
	case tea.KeyLeft:
		return m, m.setRuminant(m.state.RuminantLevel - 1)
	case tea.KeyRight:
		return m, m.setRuminant(m.state.RuminantLevel + 1)
	case tea.KeyUp:
		m.table.MoveUp(1)
		return m, nil
	case tea.KeyDown:
		m.table.MoveDown(1)
		return m, nil
	case tea.KeyTab:
		m.panel = m.panel.Next()
		return m, nil
	case tea.KeyShiftTab:
		m.panel = m.panel.Prev()
		return m, nil
	case tea.KeyEnter:
		return m, m.toggleGroupFilter()
	case tea.KeyEsc:
		if m.state.GroupFilter == "" {
			return m, nil
		}
		m.state.GroupFilter = ""
		return m, m.changed()
	case tea.KeyRunes:
		return m.handleRune(msg.String())
	}
	return m, nil
}

func (m *DashboardModel) handleRune(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		m.status = DashboardStateQuitting
		return m, tea.Quit
	case "h":
		return m, m.setRuminant(m.state.RuminantLevel - 1)
	case "l":
		return m, m.setRuminant(m.state.RuminantLevel + 1)
	case "[":
		return m, m.setMeat(m.state.MeatLevel - 1)
	case "]":
		return m, m.setMeat(m.state.MeatLevel + 1)
	case "b":
		next := (int(m.state.Basis) + 1) % len(catalog.AllBases)
		m.state.Basis = catalog.AllBases[next]
		return m, m.changed()
	case "r":
		if len(m.regions) < 2 { //nolint:mnd // Nothing to cycle through.
			return m, nil
		}
		m.regionIdx = (m.regionIdx + 1) % len(m.regions)
		return m, m.changed()
	case "k":
		m.table.MoveUp(1)
	case "j":
		m.table.MoveDown(1)
	case "1", "2", "3", "4", "5":
		m.panel = AllPanels[int(key[0]-'1')]
	}
	return m, nil
}

func (m *DashboardModel) setRuminant(level int) tea.Cmd {
	if level < 0 || level > scaling.MaxLevel || level == m.state.RuminantLevel {
		return nil
	}
	m.state.RuminantLevel = level
	return m.changed()
}

func (m *DashboardModel) setMeat(level int) tea.Cmd {
	if level < 0 || level > scaling.MaxLevel || level == m.state.MeatLevel {
		return nil
	}
	m.state.MeatLevel = level
	return m.changed()
}

// toggleGroupFilter restricts the charts to the focused group, or clears the
// filter when that group is already selected.
func (m *DashboardModel) toggleGroupFilter() tea.Cmd {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.groups) {
		return nil
	}
	id := m.groups[cursor].ID
	if m.state.GroupFilter == id {
		m.state.GroupFilter = ""
	} else {
		m.state.GroupFilter = id
	}
	return m.changed()
}

// changed submits the current selection and keeps the spinner going.
func (m *DashboardModel) changed() tea.Cmd {
	wasLoading := m.loading
	m.submit()
	if wasLoading {
		return nil
	}
	return m.loader.Init()
}

func (m *DashboardModel) submit() {
	if len(m.regions) == 0 {
		return
	}
	m.pendingSeq = m.sched.Submit(pipeline.Request{Region: m.Region(), State: m.state})
	m.loading = true
	logging.FromContext(m.ctx).Debug().
		Ctx(m.ctx).
		Str("component", "tui").
		Uint64("seq", m.pendingSeq).
		Str("region", m.Region()).
		Str("state", m.state.String()).
		Msg("recompute submitted")
}

// waitForResult blocks on the scheduler's result channel.
func (m *DashboardModel) waitForResult() tea.Cmd {
	ch := m.sched.Results()
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return resultsClosedMsg{}
		}
		return resultMsg(r)
	}
}

// handleResult applies a scheduler result. Superseded results are ignored;
// invalid or degenerate selections keep the previous bundle on screen and
// move the sliders back to it.
func (m *DashboardModel) handleResult(r pipeline.Result) tea.Cmd {
	next := m.waitForResult()
	if r.Seq < m.pendingSeq {
		return next
	}
	m.loading = false
	m.outcome = r.Outcome()
	m.notice = ""

	switch m.outcome {
	case pipeline.OutcomeOK, pipeline.OutcomeClimateUnavailable:
		m.bundle = r.Bundle
		m.bundleRegion = r.Request.Region
		if r.Bundle != nil && !r.Bundle.Status.ClimateAvailable {
			m.notice = "climate projection unavailable"
		}
		m.table.SetRows(groupRows(m.groups, r.Bundle))
	case pipeline.OutcomeInvalidSelection, pipeline.OutcomeDegenerate:
		m.notice = r.Err.Error()
		m.revert()
	case pipeline.OutcomeCanceled:
	case pipeline.OutcomeFatal:
		m.err = r.Err
		m.status = DashboardStateError
	}
	return next
}

// revert restores the selection shown by the current bundle.
func (m *DashboardModel) revert() {
	if m.bundle == nil {
		return
	}
	m.state = m.bundle.State
	for i, name := range m.regions {
		if name == m.bundleRegion {
			m.regionIdx = i
		}
	}
}

// Region returns the selected region name.
func (m *DashboardModel) Region() string {
	if len(m.regions) == 0 {
		return ""
	}
	return m.regions[m.regionIdx]
}

// State returns the selected intervention state.
func (m *DashboardModel) State() pipeline.InterventionState { return m.state }

// Panel returns the visible panel.
func (m *DashboardModel) Panel() Panel { return m.panel }

// Bundle returns the bundle on screen, if any.
func (m *DashboardModel) Bundle() *pipeline.ResultBundle { return m.bundle }

// Loading reports whether a recompute is pending.
func (m *DashboardModel) Loading() bool { return m.loading }

// Notice is the last non-fatal problem shown in the status bar.
func (m *DashboardModel) Notice() string { return m.notice }

// Err is the fatal error, if any.
func (m *DashboardModel) Err() error { return m.err }
