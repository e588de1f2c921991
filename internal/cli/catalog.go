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
)

// catalogView is the structured form printed for --output json/yaml.
type catalogView struct {
	Years   catalog.YearRange `json:"years"   yaml:"years"`
	Regions []catalog.Region  `json:"regions" yaml:"regions"`
	Groups  []groupView       `json:"groups"  yaml:"groups"`
}

type groupView struct {
	ID    string     `json:"id"    yaml:"id"`
	Name  string     `json:"name"  yaml:"name"`
	Items []itemView `json:"items" yaml:"items"`
}

type itemView struct {
	Code           string  `json:"code"            yaml:"code"`
	Name           string  `json:"name"            yaml:"name"`
	Role           string  `json:"role"            yaml:"role"`
	EmissionFactor float64 `json:"emission_factor" yaml:"emission_factor"`
}

// NewCatalogCmd creates the "catalog" command, which prints the food groups,
// items and regions without loading any data.
func NewCatalogCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show food groups, items and regions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := loadCatalog(config.GetGlobalConfig())
			if err != nil {
				return err
			}
			return renderCatalog(cmd.OutOrStdout(), cat, output)
		},
	}
	cmd.Flags().StringVar(&output, "output", outputTable, "output format (table, json, yaml)")
	return cmd
}

func buildCatalogView(cat *catalog.Catalog) catalogView {
	view := catalogView{Years: cat.Years(), Regions: cat.Regions()}
	for _, g := range cat.Groups() {
		gv := groupView{ID: g.ID, Name: g.Name}
		for _, item := range g.Items {
			gv.Items = append(gv.Items, itemView{
				Code:           item.Code,
				Name:           item.Name,
				Role:           item.Role.String(),
				EmissionFactor: item.EmissionFactor,
			})
		}
		view.Groups = append(view.Groups, gv)
	}
	return view
}

func renderCatalog(w io.Writer, cat *catalog.Catalog, output string) error {
	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(buildCatalogView(cat))
	case outputYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(buildCatalogView(cat))
	case outputTable:
	default:
		return usageError("unsupported output format %q", output)
	}

	years := cat.Years()
	if _, err := fmt.Fprintf(w, "Years: %d-%d\nRegions: %s\n\n",
		years.First, years.Last, strings.Join(regionNames(cat), ", ")); err != nil {
		return fmt.Errorf("writing heading: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, tabwriterPadding, ' ', 0)
	if _, err := fmt.Fprintf(tw, "GROUP\tITEM\tROLE\tKG CO2E/KG\n-----\t----\t----\t----------\n"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, g := range cat.Groups() {
		for _, item := range g.Items {
			if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\n", g.Name, item.Name, item.Role, item.EmissionFactor); err != nil {
				return fmt.Errorf("writing row: %w", err)
			}
		}
	}
	return tw.Flush()
}
