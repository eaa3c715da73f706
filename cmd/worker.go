package cmd

import (
	"github.com/ethpandaops/reportviewer/pkg/server"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	workerConcurrency int
)

//nolint:gochecknoglobals // Cobra commands are typically global
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start a chart refresh worker",
	Long: `The worker queries the chart data API for every queued chart refresh
and stores the results for the API to serve. It runs neither the API
nor the scheduler.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "number of concurrent refreshes (default from config)")
}

func runWorker(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	if err := applyLogLevel(cmd, config); err != nil {
		return err
	}

	config.API.Enabled = false
	config.Scheduler.Enabled = false
	config.Worker.Enabled = true

	if workerConcurrency > 0 {
		config.Worker.Concurrency = workerConcurrency
	}

	logger.WithField("concurrency", config.Worker.Concurrency).Info("Configuration loaded")

	srv, err := server.NewServer(cmd.Context(), logger, config)
	if err != nil {
		return err
	}

	return srv.Start(cmd.Context())
}
