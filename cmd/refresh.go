package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/refresh"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/ethpandaops/reportviewer/pkg/tasks"
	"github.com/spf13/cobra"
)

// ErrNoCharts is returned when a report viewer holds no charts to refresh
var ErrNoCharts = errors.New("report viewer has no charts")

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	refreshReportViewerID int
	refreshChartIDs       []int
	refreshStagger        time.Duration
	refreshScheduled      bool
)

// refreshCmd represents the refresh command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Queue chart refreshes of a report viewer",
	Long: `Refresh queues the charts of a report viewer for the workers, queried
with their saved form data and no session filters.

Examples:
  # Refresh every chart of report viewer 3
  reportviewer refresh --report-viewer 3

  # Refresh two charts, spreading the queries over ten seconds
  reportviewer refresh --report-viewer 3 --chart 12 --chart 14 --stagger 10s`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().IntVar(&refreshReportViewerID, "report-viewer", 0, "report viewer id")
	refreshCmd.Flags().IntSliceVar(&refreshChartIDs, "chart", nil, "chart ids to refresh (default every chart)")
	refreshCmd.Flags().DurationVar(&refreshStagger, "stagger", 0, "spread the chart queries over this window")
	refreshCmd.Flags().BoolVar(&refreshScheduled, "scheduled", false, "queue on the scheduled queue instead of the interactive one")

	_ = refreshCmd.MarkFlagRequired("report-viewer")
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	if validationErr := config.Redis.Validate(); validationErr != nil {
		return validationErr
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

	chartIDs, err := refreshTargets(cmd, repo)
	if err != nil {
		return err
	}

	queueOptions, err := config.Redis.QueueOptions()
	if err != nil {
		return err
	}

	queue := tasks.NewQueueManager(queueOptions, &config.Redis)
	defer func() {
		if closeErr := queue.Close(); closeErr != nil {
			logger.WithError(closeErr).Error("Failed to close queue client")
		}
	}()

	req := refresh.Request{
		ReportViewerID: refreshReportViewerID,
		Reason:         refresh.ReasonManual,
		Stagger:        refreshStagger,
	}

	if refreshScheduled {
		req.Reason = refresh.ReasonScheduled
	}

	for _, id := range chartIDs {
		req.Charts = append(req.Charts, refresh.ChartQuery{ChartID: id})
	}

	if err := tasks.NewRefresher(logger, queue).Refresh(ctx, req); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "queued %d chart refreshes of report viewer %d\n", len(chartIDs), refreshReportViewerID)

	return nil
}

// refreshTargets returns the requested charts, checking each is placed on
// the report viewer
func refreshTargets(cmd *cobra.Command, repo reportviewer.Repository) ([]int, error) {
	if _, err := repo.Get(cmd.Context(), refreshReportViewerID); err != nil {
		return nil, err
	}

	charts, err := repo.Charts(cmd.Context(), refreshReportViewerID)
	if err != nil {
		return nil, err
	}

	placed := make(map[int]bool, len(charts))
	all := make([]int, 0, len(charts))

	for _, c := range charts {
		placed[c.ID] = true
		all = append(all, c.ID)
	}

	if len(refreshChartIDs) == 0 {
		if len(all) == 0 {
			return nil, fmt.Errorf("%w: %d", ErrNoCharts, refreshReportViewerID)
		}

		return all, nil
	}

	for _, id := range refreshChartIDs {
		if !placed[id] {
			return nil, fmt.Errorf("chart %d is not placed on report viewer %d", id, refreshReportViewerID)
		}
	}

	return refreshChartIDs, nil
}
