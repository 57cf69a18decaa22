package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-rootmotion/internal/config"
	"github.com/Carmen-Shannon/oxy-rootmotion/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rootmotion",
	Short: "Bake root motion curves from animated skeletons",
	Long: `rootmotion samples the animations of a glTF model, extracts the motion of its
center of gravity (or of a designated root bone) and persists the resulting curves.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error), overrides the configuration")
}

// loadConfig loads the configuration named by --config and applies --log-level.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		if _, err := logging.ParseLevel(lvl); err != nil {
			return config.Config{}, nil, err
		}
		cfg.LogLevel = lvl
	}
	return cfg, logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Level()), nil
}
