package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/config"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "espalier",
	Short:         "Espalier manages dataflow node scenes",
	Long:          `Espalier stores node-graph scenes and lets you inspect, validate and serve them over HTTP or MCP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML or JSON config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

// setup loads the configuration and builds the logger for cmd.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logging.NewWithWriter(cmd.ErrOrStderr(), level, cfg.LogFormat), nil
}

// openEditor builds an Editor on the configured backend. The returned func
// releases the backend.
func openEditor(cmd *cobra.Command, extra ...espalier.Option) (*espalier.Editor, config.Config, *slog.Logger, func(), error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, cfg, nil, nil, err
	}
	b, err := openBackend(cfg)
	if err != nil {
		return nil, cfg, nil, nil, err
	}
	closeBackend := func() {
		if err := b.close(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}

	opts := []espalier.Option{
		espalier.WithStore(b.store),
		espalier.WithLogger(logger),
		espalier.WithGeometryConfig(cfg.Geometry),
	}
	if b.locker != nil {
		opts = append(opts, espalier.WithLocker(b.locker))
	}
	editor, err := espalier.New(append(opts, extra...)...)
	if err != nil {
		closeBackend()
		return nil, cfg, nil, nil, err
	}
	logger.Debug("store opened", "backend", cfg.Store.Backend)
	return editor, cfg, logger, closeBackend, nil
}
