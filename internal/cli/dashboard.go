package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/config"
	"github.com/fairdiet/fairdiet/internal/logging"
	"github.com/fairdiet/fairdiet/internal/pipeline"
	"github.com/fairdiet/fairdiet/internal/tui"
)

// ErrNotTerminal is returned when the dashboard is started without a TTY.
var ErrNotTerminal = errors.New("the dashboard needs an interactive terminal; use `fairdiet recompute` instead")

// DashboardParams holds the dashboard's initial selection flags.
type DashboardParams struct {
	Region   string
	Basis    string
	Panel    string
	Ruminant int
	Meat     int
}

// NewDashboardCmd creates the "dashboard" command, the interactive terminal UI.
func NewDashboardCmd() *cobra.Command {
	var params DashboardParams

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Explore diet shifts interactively",
		Long: `Open the terminal dashboard. Sliders change the ruminant and other-meat
reduction levels; every change is recomputed in the background and only the
newest selection is shown. Logs are written to ~/.fairdiet/logs unless
logging.file is set.`,
		Annotations: map[string]string{annotationInteractive: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeDashboard(cmd, params)
		},
	}

	cmd.Flags().StringVar(&params.Region, "region", "", "initial region (default from dashboard.region)")
	cmd.Flags().StringVar(&params.Basis, "basis", "", "initial basis (default from dashboard.basis)")
	cmd.Flags().StringVar(&params.Panel, "panel", "", "initial panel: emissions, concentration, forcing, temperature, nutrients")
	cmd.Flags().IntVar(&params.Ruminant, "ruminant", 0, "initial ruminant reduction level (0-4)")
	cmd.Flags().IntVar(&params.Meat, "meat", 0, "initial other-meat reduction level (0-4)")

	return cmd
}

// dashboardOptions resolves the initial selection from flags and config.
func dashboardOptions(cfg *config.Config, params DashboardParams, regions []string) (tui.DashboardOptions, error) {
	req, err := resolveSelection(cfg, RecomputeParams{
		Region:   params.Region,
		Basis:    params.Basis,
		Ruminant: params.Ruminant,
		Meat:     params.Meat,
		Output:   outputTable,
	})
	if err != nil {
		return tui.DashboardOptions{}, err
	}
	if err = ValidateRecomputeParams(&RecomputeParams{Ruminant: params.Ruminant, Meat: params.Meat, Output: outputTable}); err != nil {
		return tui.DashboardOptions{}, err
	}
	if !slices.Contains(regions, req.Region) {
		return tui.DashboardOptions{}, &pipeline.UnknownRegionError{Name: req.Region, Known: regions}
	}

	panelName := params.Panel
	if panelName == "" {
		panelName = cfg.Dashboard.Panel
	}
	panel, err := tui.ParsePanel(panelName)
	if err != nil {
		return tui.DashboardOptions{}, usageError("%v", err)
	}

	return tui.DashboardOptions{
		Region:        req.Region,
		State:         req.State,
		Panel:         panel,
		MeatReduction: cfg.Scaling.ApplyMeatReduction,
	}, nil
}

func executeDashboard(cmd *cobra.Command, params DashboardParams) error {
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return &ExitError{Code: ExitFailure, Err: ErrNotTerminal}
	}
	ctx := cmd.Context()
	log := logging.FromContext(ctx)
	cfg := config.GetGlobalConfig()

	p, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	opts, err := dashboardOptions(cfg, params, p.Regions())
	if err != nil {
		return err
	}

	sched := pipeline.NewScheduler(ctx, p)
	defer sched.Close()

	model := tui.NewDashboardModel(ctx, sched, p.Catalog(), p.Regions(), opts)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	log.Info().
		Ctx(ctx).
		Str("component", "cli").
		Str("operation", "dashboard").
		Str("region", opts.Region).
		Str("state", opts.State.String()).
		Msg("dashboard started")

	if _, err = program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running dashboard: %w", err)
	}
	if fatal := model.Err(); fatal != nil {
		return fatal
	}
	return nil
}

// regionNames lists catalog region names, used in help output.
func regionNames(cat *catalog.Catalog) []string {
	regions := cat.Regions()
	names := make([]string, len(regions))
	for i, r := range regions {
		names[i] = r.Name
	}
	return names
}
