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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/modcluster/cmd/modcluster/config"
	"github.com/AleutianAI/modcluster/services/cluster/api"
	"github.com/AleutianAI/modcluster/services/cluster/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var (
	servePort  int
	serveDebug bool
)

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the clustering HTTP API",
	Long: `Serve the clustering API under /v1/cluster:

  POST /v1/cluster/analyze   - Cluster a call graph into modules
  POST /v1/cluster/coupling  - Class coupling edges of a call graph
  GET  /v1/cluster/health    - Health check
  GET  /metrics              - Prometheus metrics (metric_exporter: prometheus)

Examples:
  modcluster serve
  modcluster serve --port 9090 --debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8090, "Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable gin debug mode and request logging")
}

// newRouter builds the gin engine for cfg.
func newRouter(cfg config.ModclusterConfig, debug bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	if debug {
		router.Use(gin.Logger())
	}

	handlers := api.NewHandlers(
		api.WithLogger(slog.Default()),
		api.WithProjectPackages(cfg.Clustering.ProjectPackages),
		api.WithAnalysisTimeout(cfg.Server.Timeout),
	)
	limiter := api.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.Burst)
	v1 := router.Group("/v1",
		api.MaxBodyBytes(cfg.Server.MaxBodyBytes),
		api.RateLimit(limiter),
	)
	api.RegisterRoutes(v1, handlers)

	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}
	return router
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}

	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newRouter(cfg, serveDebug),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting modcluster server", slog.String("address", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down modcluster server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
