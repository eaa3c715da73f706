package cmd

import (
	"fmt"

	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	migrateStatusOnly bool
)

//nolint:gochecknoglobals // Cobra commands are typically global
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending report viewer database migrations",
	Long: `Apply every pending schema migration to the configured database and
print the resulting schema version.

Examples:
  # Migrate the database named in config.yaml
  reportviewer migrate --config config.yaml

  # Only print the current schema version
  reportviewer migrate --status`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateStatusOnly, "status", false, "print the schema version without migrating")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	if validationErr := config.Database.Validate(); validationErr != nil {
		return validationErr
	}

	db, err := reportviewer.Open(&config.Database)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.WithError(closeErr).Error("Failed to close database")
		}
	}()

	ctx := cmd.Context()

	if !migrateStatusOnly {
		if err := reportviewer.Migrate(ctx, logger, db, config.Database.Driver); err != nil {
			return err
		}
	}

	version, err := reportviewer.MigrationVersion(ctx, db, config.Database.Driver)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s schema version: %d\n", config.Database.Driver, version)

	return nil
}
