package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/ethpandaops/reportviewer/pkg/layout"
	"github.com/ethpandaops/reportviewer/pkg/scope"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	scopeRoots      []string
	scopeExcluded   []int
	scopeActiveTabs []string
)

// layoutCmd represents the layout command group
//
//nolint:gochecknoglobals // Cobra commands are typically global
var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Inspect persisted layout trees",
	Long:  `Commands for validating layout trees and resolving filter scopes against them. FILE may be - for stdin.`,
}

//nolint:gochecknoglobals // Cobra commands are typically global
var layoutValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Validate a position_json layout tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runLayoutValidate,
}

//nolint:gochecknoglobals // Cobra commands are typically global
var layoutScopeCmd = &cobra.Command{
	Use:   "scope FILE",
	Short: "Resolve the charts and tabs a filter scope reaches",
	Long: `Resolve a scope given as root paths and excluded charts.

Examples:
  # Charts under TAB-1 except chart 7
  reportviewer layout scope position.json --root TAB-1 --exclude 7

  # Global scope, reporting which charts are visible with TAB-2 active
  reportviewer layout scope position.json --active-tab TAB-2`,
	Args: cobra.ExactArgs(1),
	RunE: runLayoutScope,
}

func init() {
	rootCmd.AddCommand(layoutCmd)
	layoutCmd.AddCommand(layoutValidateCmd)
	layoutCmd.AddCommand(layoutScopeCmd)

	layoutScopeCmd.Flags().StringSliceVar(&scopeRoots, "root", []string{layout.RootID}, "root path component ids")
	layoutScopeCmd.Flags().IntSliceVar(&scopeExcluded, "exclude", nil, "excluded chart ids")
	layoutScopeCmd.Flags().StringSliceVar(&scopeActiveTabs, "active-tab", nil, "active tab ids used to report visible charts")
}

func readLayout(cmd *cobra.Command, file string) (layout.Layout, error) {
	var (
		data []byte
		err  error
	)

	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file) //nolint:gosec // User-provided layout path
	}

	if err != nil {
		return layout.Layout{}, err
	}

	l, err := layout.Parse(data)
	if err != nil {
		return layout.Layout{}, fmt.Errorf("failed to parse layout: %w", err)
	}

	return layout.UpdateParentsList(l), nil
}

func runLayoutValidate(cmd *cobra.Command, args []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	l, err := readLayout(cmd, args[0])
	if err != nil {
		return err
	}

	if err := layout.Validate(l); err != nil {
		return fmt.Errorf("invalid layout: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TYPE\tCOUNT")

	for _, t := range []layout.ComponentType{
		layout.TypeTabs, layout.TypeTab, layout.TypeRow, layout.TypeColumn,
		layout.TypeChart, layout.TypeMarkdown, layout.TypeHeader, layout.TypeDivider,
	} {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", t, len(l.ComponentsOfType(t)))
	}

	_ = w.Flush()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "layout is valid: %d charts, tabs: %t\n", len(l.ChartIDs()), l.HasTabs())

	return nil
}

type scopeOutput struct {
	Charts  []int    `json:"charts"`
	Tabs    []string `json:"tabs"`
	Visible []int    `json:"visible,omitempty"`
}

func runLayoutScope(cmd *cobra.Command, args []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	l, err := readLayout(cmd, args[0])
	if err != nil {
		return err
	}

	charts := scope.Resolve(scope.Scope{RootPath: scopeRoots, Excluded: scopeExcluded}, l)

	out := scopeOutput{
		Charts: charts,
		Tabs:   scope.TabsWithChartsInScope(l, charts),
	}

	if len(scopeActiveTabs) > 0 {
		out.Visible = []int{}

		for _, id := range charts {
			if scope.IsVisible(l, id, scopeActiveTabs) {
				out.Visible = append(out.Visible, id)
			}
		}
	}

	if out.Tabs == nil {
		out.Tabs = []string{}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}
