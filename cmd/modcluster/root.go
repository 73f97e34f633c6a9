// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/AleutianAI/modcluster/cmd/modcluster/config"
	"github.com/AleutianAI/modcluster/services/cluster/telemetry"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// =============================================================================
// GLOBAL STATE
// =============================================================================

var (
	configPath string
	logLevel   string
	logFormat  string

	// appConfig is loaded once per invocation by PersistentPreRunE.
	appConfig config.ModclusterConfig

	telemetryShutdown telemetry.ShutdownFunc

	rootCmd = &cobra.Command{
		Use:   "modcluster",
		Short: "Identify modules in a call graph by hierarchical clustering",
		Long: `modcluster aggregates method-level calls into class coupling, builds a
dendrogram by agglomerative clustering, and cuts it into modules whose
average coupling meets a threshold.`,
		SilenceUsage:       true,
		PersistentPreRunE:  setupRuntime,
		PersistentPostRunE: shutdownRuntime,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default ~/.modcluster/modcluster.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Log format: text, json (overrides config)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(couplingCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

// setupRuntime loads config, installs the logger, and starts telemetry.
func setupRuntime(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format = logFormat
	}

	logger, err := telemetry.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg.Telemetry.ServiceVersion = version
	shutdown, err := telemetry.Init(cmd.Context(), cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	telemetryShutdown = shutdown
	appConfig = cfg
	return nil
}

func shutdownRuntime(_ *cobra.Command, _ []string) error {
	if telemetryShutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetryShutdown(ctx); err != nil {
		slog.Warn("Telemetry shutdown failed", "error", err)
	}
	return nil
}
