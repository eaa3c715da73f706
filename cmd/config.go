package cmd

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/ethpandaops/reportviewer/pkg/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// loadConfig reads a server config file on top of the defaults
func loadConfig(path string) (*server.Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	config := &server.Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

// applyLogLevel uses the config level unless --log-level was given
func applyLogLevel(cmd *cobra.Command, config *server.Config) error {
	if cmd.Flags().Changed("log-level") {
		return nil
	}

	level, err := logrus.ParseLevel(config.Logging)
	if err != nil {
		return err
	}

	logger.SetLevel(level)

	return nil
}
