package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/config"
	"github.com/fairdiet/fairdiet/internal/greenops"
	"github.com/fairdiet/fairdiet/internal/logging"
	"github.com/fairdiet/fairdiet/internal/pipeline"
	"github.com/fairdiet/fairdiet/internal/scaling"
)

// Output formats.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// tabwriterPadding is the minimum padding between table columns.
const tabwriterPadding = 2

// RecomputeParams holds the parameters for the recompute command.
// Exported for testing.
type RecomputeParams struct {
	Region   string
	Ruminant int
	Meat     int
	Basis    string
	Group    string
	Year     int
	Output   string
}

// NewRecomputeCmd creates the "recompute" command, which runs one selection
// through the pipeline and prints the result.
func NewRecomputeCmd() *cobra.Command {
	var params RecomputeParams

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute emissions and climate response for one selection",
		Long: `Scale the region's food supply for the given reduction levels and report
per-group emissions, totals against the baseline and the climate projection.

Levels run from 0 (no change) to 4 (item removed); each step removes a
quarter of the original supply, compensated by the remaining items so the
chosen basis is conserved.`,
		Example: `  # Halve ruminant supply in the UK
  fairdiet recompute --region uk --ruminant 2

  # Remove all ruminants in Chile, conserving protein, restricted to legumes
  fairdiet recompute --region chile --ruminant 4 --basis protein --group legumes

  # Full result bundle as JSON
  fairdiet recompute --region usa --ruminant 1 --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeRecompute(cmd, params)
		},
	}

	cmd.Flags().StringVar(&params.Region, "region", "", "region name (default from dashboard.region)")
	cmd.Flags().IntVar(&params.Ruminant, "ruminant", 0, "ruminant reduction level (0-4)")
	cmd.Flags().IntVar(&params.Meat, "meat", 0, "other-meat reduction level (0-4, needs scaling.apply_meat_reduction)")
	cmd.Flags().StringVar(&params.Basis, "basis", "", "conserved basis: weight, calories or protein (default from dashboard.basis)")
	cmd.Flags().StringVar(&params.Group, "group", "", "restrict per-group output to one food group")
	cmd.Flags().IntVar(&params.Year, "year", 0, "year to report (default: last year)")
	cmd.Flags().StringVar(&params.Output, "output", outputTable, "output format (table, json, yaml)")

	return cmd
}

// ValidateRecomputeParams checks flag values that do not need the catalog.
// Exported for testing.
func ValidateRecomputeParams(params *RecomputeParams) error {
	if params.Ruminant < 0 || params.Ruminant > scaling.MaxLevel {
		return usageError("--ruminant must be between 0 and %d, got %d", scaling.MaxLevel, params.Ruminant)
	}
	if params.Meat < 0 || params.Meat > scaling.MaxLevel {
		return usageError("--meat must be between 0 and %d, got %d", scaling.MaxLevel, params.Meat)
	}
	switch params.Output {
	case outputTable, outputJSON, outputYAML:
	default:
		return usageError("unsupported output format %q", params.Output)
	}
	return nil
}

// resolveSelection fills defaults from the dashboard section and parses the basis.
func resolveSelection(cfg *config.Config, params RecomputeParams) (pipeline.Request, error) {
	region := params.Region
	if region == "" {
		region = cfg.Dashboard.Region
	}
	basisName := params.Basis
	if basisName == "" {
		basisName = cfg.Dashboard.Basis
	}
	basis, err := catalog.ParseBasis(basisName)
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{
		Region: strings.ToLower(strings.TrimSpace(region)),
		State: pipeline.InterventionState{
			RuminantLevel: params.Ruminant,
			MeatLevel:     params.Meat,
			Basis:         basis,
			GroupFilter:   params.Group,
		},
	}, nil
}

func executeRecompute(cmd *cobra.Command, params RecomputeParams) error {
	if err := ValidateRecomputeParams(&params); err != nil {
		return err
	}
	ctx := cmd.Context()
	cfg := config.GetGlobalConfig()

	req, err := resolveSelection(cfg, params)
	if err != nil {
		return err
	}

	p, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	bundle, err := p.Recompute(ctx, req.Region, req.State)
	if err != nil {
		return err
	}
	if !bundle.Status.ClimateAvailable {
		logging.FromContext(ctx).Warn().
			Ctx(ctx).
			Str("component", "cli").
			Str("climate_error", bundle.Status.ClimateError).
			Msg("climate projection unavailable")
	}

	out := cmd.OutOrStdout()
	switch params.Output {
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	case outputYAML:
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(bundle)
	default:
		return RenderBundleTable(out, p.Catalog(), bundle, params.Year)
	}
}

// RenderBundleTable writes a per-group summary of bundle for one year (the
// last when year is 0) followed by totals and the climate projection.
func RenderBundleTable(w io.Writer, cat *catalog.Catalog, b *pipeline.ResultBundle, year int) error {
	idx := len(b.Years) - 1
	if year != 0 {
		i, ok := cat.Years().Index(year)
		if !ok {
			return usageError("--year %d outside %d-%d", year, cat.Years().First, cat.Years().Last)
		}
		idx = i
	}
	if idx < 0 {
		return fmt.Errorf("result has no years")
	}
	reportYear := b.Years[idx]

	region := b.Region.Label
	if region == "" {
		region = b.Region.Name
	}
	if _, err := fmt.Fprintf(w, "%s, %d (%s)\n\n", region, reportYear, b.State); err != nil {
		return fmt.Errorf("writing heading: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, tabwriterPadding, ' ', 0)
	if _, err := fmt.Fprintf(tw, "GROUP\tEMISSIONS\tSHARE\n-----\t---------\t-----\n"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	total := b.TotalEmissions[idx]
	for _, s := range b.PerGroupEmissions {
		v := s.Values[idx]
		share := "-"
		if total > 0 {
			share = greenops.FormatFloat(v/total*100, 1) + "%" //nolint:mnd // Percent.
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, greenops.FormatEmissions(v), share); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	base := b.BaselineEmissions[idx]
	lines := []string{
		"",
		fmt.Sprintf("Total:     %s", greenops.FormatEmissions(total)),
		fmt.Sprintf("Baseline:  %s", greenops.FormatEmissions(base)),
	}
	if base > 0 {
		lines = append(lines, fmt.Sprintf("Change:    %s (%s)",
			greenops.FormatSigned(total-base), greenops.FormatPercent((total-base)/base)))
	}
	var cumBase, cumTotal float64
	for y := range b.TotalEmissions {
		cumBase += b.BaselineEmissions[y]
		cumTotal += b.TotalEmissions[y]
	}
	if desc := greenops.DescribeChange(cumBase, cumTotal); desc != "" {
		lines = append(lines, fmt.Sprintf("%d-%d: %s", b.Years[0], b.Years[len(b.Years)-1], desc))
	}
	if len(b.Status.ClampedYears) > 0 {
		lines = append(lines, fmt.Sprintf("Warning: compensation clamped in %d year(s)", len(b.Status.ClampedYears)))
	}
	if b.State.MeatLevel > 0 && !b.Status.MeatLevelApplied {
		lines = append(lines, "Note: meat level ignored (scaling.apply_meat_reduction is off)")
	}

	lines = append(lines, "")
	if b.Status.ClimateAvailable {
		lines = append(lines,
			fmt.Sprintf("Climate (%s):", b.Status.ClimateModel),
			fmt.Sprintf("  CO2 concentration:   %.1f ppm", b.Concentration[idx]),
			fmt.Sprintf("  Radiative forcing:   %.3f W/m²", b.Forcing[idx]),
			fmt.Sprintf("  Temperature anomaly: %.3f K", b.Temperature[idx]),
		)
	} else {
		lines = append(lines, "Climate: unavailable ("+b.Status.ClimateError+")")
	}

	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
