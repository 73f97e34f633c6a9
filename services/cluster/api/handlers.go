// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api exposes the clustering pipeline over HTTP with gin.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/modcluster/services/cluster"
	"github.com/AleutianAI/modcluster/services/cluster/callgraph"
	"github.com/AleutianAI/modcluster/services/cluster/coupling"
	"github.com/AleutianAI/modcluster/services/cluster/dendrogram"
	"github.com/AleutianAI/modcluster/services/cluster/modules"
	"github.com/AleutianAI/modcluster/services/cluster/report"
	"github.com/AleutianAI/modcluster/services/cluster/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Option configures Handlers.
type Option func(*Handlers)

// WithLogger sets the base logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithProjectPackages fixes the project package set for every request
// instead of detecting it from each call graph.
func WithProjectPackages(packages []string) Option {
	return func(h *Handlers) {
		h.projectPackages = append([]string(nil), packages...)
	}
}

// WithAnalysisTimeout bounds each analysis. Zero disables the bound.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(h *Handlers) {
		h.timeout = d
	}
}

// Handlers contains the HTTP handlers for the clustering API.
//
// Thread Safety: Safe for concurrent use. Every request builds its own
// pipeline and aggregator.
type Handlers struct {
	logger          *slog.Logger
	projectPackages []string
	timeout         time.Duration
}

// NewHandlers creates handlers.
func NewHandlers(opts ...Option) *Handlers {
	h := &Handlers{logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleAnalyze handles POST /v1/cluster/analyze.
//
// Description:
//
//	Aggregates the posted call graph into class coupling, clusters it, and
//	cuts the dendrogram into modules at the requested threshold.
//
// Request Body:
//
//	AnalyzeRequest
//
// Response:
//
//	200 OK: AnalyzeResponse
//	400 Bad Request: Validation error
//	413 Request Entity Too Large: Body over the configured limit
//	503 Service Unavailable: Request cancelled mid-analysis
//	504 Gateway Timeout: Analysis timeout exceeded
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	setTraceHeader(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(), h.logger).
		With("request_id", requestID, "handler", "HandleAnalyze")

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		status, code := bindStatus(err)
		c.JSON(status, ErrorResponse{
			Error:   "Invalid request body",
			Code:    code,
			Details: err.Error(),
		})
		return
	}

	policy, err := modules.ParseCapPolicy(req.CapPolicy)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	if err := callgraph.Validate(req.CallGraph); err != nil {
		h.fail(c, logger, err)
		return
	}

	ctx, cancel := h.analysisContext(c.Request.Context())
	defer cancel()

	pipeline := cluster.NewPipeline(
		cluster.WithLogger(h.logger.With("request_id", requestID)),
		cluster.WithAcceptSingletons(req.AcceptSingletons),
		cluster.WithCapPolicy(policy),
		cluster.WithProjectPackages(h.projectPackages),
	)
	result, err := pipeline.Analyze(ctx, req.CallGraph, *req.MinCoupling)
	if err != nil {
		h.fail(c, logger, err)
		return
	}

	logger.Info("Analysis complete",
		"run_id", result.RunID,
		"classes", result.ClassCount,
		"modules", len(result.Modules),
	)

	c.JSON(http.StatusOK, AnalyzeResponse{
		RunID:            result.RunID,
		ClassCount:       result.ClassCount,
		TotalEdges:       result.TotalEdges,
		MinCoupling:      result.MinCoupling,
		MaxModules:       result.MaxModules,
		Modules:          result.Modules,
		Dendrogram:       dendrogram.NewView(result.Root),
		Verification:     result.Verification,
		DetectedPackages: result.DetectedPackages,
		DurationMs:       result.Duration.Milliseconds(),
	})
}

// HandleCoupling handles POST /v1/cluster/coupling.
//
// Description:
//
//	Aggregates the posted call graph and returns the class coupling edges,
//	heaviest first. No clustering is done.
//
// Request Body:
//
//	CouplingRequest
//
// Response:
//
//	200 OK: CouplingResponse
//	400 Bad Request: Validation error
//	413 Request Entity Too Large: Body over the configured limit
func (h *Handlers) HandleCoupling(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	setTraceHeader(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(), h.logger).
		With("request_id", requestID, "handler", "HandleCoupling")

	var req CouplingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		status, code := bindStatus(err)
		c.JSON(status, ErrorResponse{
			Error:   "Invalid request body",
			Code:    code,
			Details: err.Error(),
		})
		return
	}
	if err := callgraph.Validate(req.CallGraph); err != nil {
		h.fail(c, logger, err)
		return
	}

	aggregator := coupling.NewAggregator(
		coupling.WithProjectPackages(h.projectPackages),
		coupling.WithLogger(logger),
	)
	counts, weights, total := aggregator.Aggregate(req.CallGraph)
	graph := report.NewCouplingGraph(counts, weights, total)

	c.JSON(http.StatusOK, CouplingResponse{
		TotalEdges:       total,
		ClassCount:       len(counts.Classes()),
		Edges:            graph.Edges(req.MinWeight),
		DetectedPackages: aggregator.DetectedPackages(),
	})
}

// HandleHealth handles GET /v1/cluster/health.
//
// Description:
//
//	Returns the health status of the service. Always returns 200 if running.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

func (h *Handlers) analysisContext(parent context.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(parent, h.timeout)
	}
	return context.WithCancel(parent)
}

func (h *Handlers) fail(c *gin.Context, logger *slog.Logger, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "code", code)
	} else {
		logger.Warn("Request rejected", "error", err, "code", code)
	}
	c.JSON(status, ErrorResponse{
		Error: err.Error(),
		Code:  code,
	})
}

// getOrCreateRequestID returns the X-Request-ID header or a new UUID, and
// echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// setTraceHeader echoes the request's trace ID as X-Trace-ID when a span is
// active.
func setTraceHeader(c *gin.Context) {
	if traceID := telemetry.TraceID(c.Request.Context()); traceID != "" {
		c.Header("X-Trace-ID", traceID)
	}
}
