package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/ethpandaops/reportviewer/pkg/layout"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// viewersCmd represents the viewers command group
//
//nolint:gochecknoglobals // Cobra commands are typically global
var viewersCmd = &cobra.Command{
	Use:   "viewers",
	Short: "Inspect stored report viewers",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Keep migration logs out of table output unless asked for
		if !cmd.Flags().Changed("log-level") {
			logger.SetLevel(logrus.ErrorLevel)
		}

		return nil
	},
}

//nolint:gochecknoglobals // Cobra commands are typically global
var viewersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List report viewers with their chart counts",
	RunE:  runViewersList,
}

func init() {
	rootCmd.AddCommand(viewersCmd)
	viewersCmd.AddCommand(viewersListCmd)
}

func runViewersList(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	repo, err := reportviewer.NewRepository(ctx, logger, &config.Database)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.WithError(closeErr).Error("Failed to close repository")
		}
	}()

	viewers, err := repo.List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tSLUG\tCHARTS\tPLACED\tTABS\tPUBLISHED\tCHANGED")

	for _, rv := range viewers {
		charts, err := repo.Charts(ctx, rv.ID)
		if err != nil {
			return err
		}

		l, _ := layout.ParseOrEmpty([]byte(rv.PositionJSON))

		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%t\t%t\t%s\n",
			rv.ID, rv.Title, rv.Slug, len(charts), len(l.ChartIDs()), l.HasTabs(),
			rv.Published, rv.ChangedOn.Format("2006-01-02 15:04"))
	}

	_ = w.Flush()

	return nil
}
