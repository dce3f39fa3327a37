package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coreybb/storybook/config"
)

var configPath string

// RootCmd is the storybook command tree.
var RootCmd = &cobra.Command{
	Use:           "storybook",
	Short:         "Generate personalized illustrated children's books",
	Long:          "Generate personalized illustrated children's books and serve them over HTTP",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
}

// loadRuntime reads configuration and installs the process logger.
func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(logger)
	cfg.LogWarnings(logger)
	return cfg, logger, nil
}
