package main

import (
	"github.com/spf13/cobra"

	"taengine/internal/config"
	"taengine/internal/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "taengine",
		Short:         "Technical analysis engine for kline series",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&ro.configPath, "config", "", "Path to a .toml or .yaml config file")
	cmd.PersistentFlags().StringVar(&ro.logLevel, "log-level", "", "Override log.level")

	cmd.AddCommand(
		newAnalyzeCmd(ro),
		newServeCmd(ro),
		newConfigCmd(ro),
	)
	return cmd
}

// load reads the config and points the logger at stderr with its settings.
func (ro *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(ro.configPath)
	if err != nil {
		return nil, err
	}
	if ro.logLevel != "" {
		cfg.Log.Level = ro.logLevel
	}
	if err := logger.Configure(cfg.Log.Level, cfg.Log.Pretty, cmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	return cfg, nil
}
