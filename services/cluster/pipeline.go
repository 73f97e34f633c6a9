// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cluster runs the full analysis: call graph to coupling tables,
// coupling tables to a dendrogram, dendrogram to modules.
//
// # Stages
//
//	coupling.Aggregator   -> Counts, Weights
//	clustering.Clusterer  -> *dendrogram.Node
//	modules.Cutter        -> []modules.Module, modules.Verification
//
// # Thread Safety
//
// A Pipeline holds only configuration and is safe for concurrent use; every
// Analyze call creates its own Aggregator so package detection never leaks
// between runs.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/modcluster/services/cluster/clustering"
	"github.com/AleutianAI/modcluster/services/cluster/coupling"
	"github.com/AleutianAI/modcluster/services/cluster/dendrogram"
	"github.com/AleutianAI/modcluster/services/cluster/modules"
	"github.com/AleutianAI/modcluster/services/cluster/telemetry"
	"github.com/google/uuid"
)

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger passed to every stage.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithAcceptSingletons accepts leaves reached during the cut as modules.
func WithAcceptSingletons(accept bool) Option {
	return func(p *Pipeline) {
		p.acceptSingletons = accept
	}
}

// WithCapPolicy sets the module cutter's behavior at the module bound.
func WithCapPolicy(policy modules.CapPolicy) Option {
	return func(p *Pipeline) {
		p.capPolicy = policy
	}
}

// WithProjectPackages fixes the project package set used by Analyze.
func WithProjectPackages(packages []string) Option {
	return func(p *Pipeline) {
		p.projectPackages = append([]string(nil), packages...)
	}
}

// WithCancelCheckEvery sets how many merges run between context checks.
func WithCancelCheckEvery(n int) Option {
	return func(p *Pipeline) {
		p.cancelCheckEvery = n
	}
}

// Pipeline wires the aggregation, clustering, and cut stages together.
type Pipeline struct {
	logger           *slog.Logger
	acceptSingletons bool
	capPolicy        modules.CapPolicy
	projectPackages  []string
	cancelCheckEvery int
}

// NewPipeline creates a Pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:           slog.Default(),
		capPolicy:        modules.CapStrict,
		cancelCheckEvery: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result bundles everything one run produced.
//
// Treat a Result as read-only; Root and the tables are shared with callers.
// Counts and Weights are keyed by struct and are excluded from JSON; reports
// render them through their Nested forms.
type Result struct {
	RunID            string               `json:"run_id" yaml:"run_id"`
	Root             *dendrogram.Node     `json:"-" yaml:"-"`
	Modules          []modules.Module     `json:"modules" yaml:"modules"`
	Counts           coupling.Counts      `json:"-" yaml:"-"`
	Weights          coupling.Weights     `json:"-" yaml:"-"`
	TotalEdges       int                  `json:"total_edges" yaml:"total_edges"`
	ClassCount       int                  `json:"class_count" yaml:"class_count"`
	MinCoupling      float64              `json:"min_coupling" yaml:"min_coupling"`
	MaxModules       int                  `json:"max_modules" yaml:"max_modules"`
	Verification     modules.Verification `json:"verification" yaml:"verification"`
	DetectedPackages []string             `json:"detected_packages,omitempty" yaml:"detected_packages,omitempty"`
	Duration         time.Duration        `json:"duration_ns" yaml:"duration"`
}

// Empty reports whether the run had no classes to cluster.
func (r *Result) Empty() bool {
	return r == nil || r.Root == nil
}

// ModuleOf returns the ID of the module containing class.
func (r *Result) ModuleOf(class string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, m := range r.Modules {
		if m.Contains(class) {
			return m.ID, true
		}
	}
	return "", false
}

// Analyze aggregates g into coupling tables and runs the pipeline on them.
//
// Description:
//
//	Uses a fresh coupling.Aggregator for every call. The detected (or fixed)
//	project packages are recorded on the Result.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	g - The call graph. Not modified; may be empty.
//	minCoupling - CP threshold. Not validated.
//
// Outputs:
//
//	*Result - The run result. Empty graphs give an empty result, not an error.
//	error - ErrNilContext, or ErrAnalysisCancelled wrapping ctx.Err().
func (p *Pipeline) Analyze(ctx context.Context, g coupling.CallGraph, minCoupling float64) (*Result, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	runID := uuid.NewString()
	ctx, span := startRunSpan(ctx, "Analyze", runID, minCoupling)
	defer span.End()
	logger := telemetry.LoggerWithTrace(ctx, p.logger)

	aggregator := coupling.NewAggregator(
		coupling.WithProjectPackages(p.projectPackages),
		coupling.WithLogger(p.logger),
	)
	counts, weights, total := aggregator.Aggregate(g)

	logger.Debug("coupling aggregated",
		slog.String("run_id", runID),
		slog.Int("callers", len(g)),
		slog.Int("pairs", len(counts)),
		slog.Int("total_edges", total),
	)

	result, err := p.run(ctx, runID, counts, weights, minCoupling)
	if err != nil {
		return nil, err
	}
	result.DetectedPackages = aggregator.DetectedPackages()
	return result, nil
}

// Run clusters precomputed coupling tables and cuts the dendrogram.
//
// Description:
//
//	The class universe comes from counts; weights provide similarity.
//	The module bound uses the root's class count. No classes yields an
//	empty Result (nil Root, no modules).
//
// Outputs:
//
//	*Result - The run result.
//	error - ErrNilContext, or ErrAnalysisCancelled wrapping ctx.Err().
func (p *Pipeline) Run(ctx context.Context, counts coupling.Counts, weights coupling.Weights, minCoupling float64) (*Result, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return p.run(ctx, uuid.NewString(), counts, weights, minCoupling)
}

func (p *Pipeline) run(ctx context.Context, runID string, counts coupling.Counts, weights coupling.Weights, minCoupling float64) (*Result, error) {
	start := time.Now()
	ctx, span := startRunSpan(ctx, "Run", runID, minCoupling)
	defer span.End()

	logger := telemetry.LoggerWithTrace(ctx, p.logger).With(slog.String("run_id", runID))

	result := &Result{
		RunID:       runID,
		Modules:     make([]modules.Module, 0),
		Counts:      counts,
		Weights:     weights,
		TotalEdges:  coupling.TotalInterClassEdges(counts),
		MinCoupling: minCoupling,
	}

	merges := 0
	clusterer := clustering.New(counts, weights,
		clustering.WithLogger(logger),
		clustering.WithCancelCheckEvery(p.cancelCheckEvery),
		clustering.WithMergeObserver(func(*dendrogram.Node) { merges++ }),
	)
	root, err := clusterer.Cluster(ctx)
	switch {
	case errors.Is(err, clustering.ErrEmptyInput):
		result.Verification = modules.Verification{WithinBound: true, AllMeetThreshold: true}
		result.Duration = time.Since(start)
		logger.Info("no project classes to cluster")
		recordRunMetrics(ctx, result.Duration, 0, 0, true)
		setRunSpanResult(span, 0, 0, true)
		return result, nil
	case err != nil:
		recordRunMetrics(ctx, time.Since(start), 0, merges, false)
		telemetry.RecordError(span, err)
		if ctx.Err() != nil {
			logger.Warn("clustering cancelled", slog.Int("merges_completed", merges))
			return nil, fmt.Errorf("%w: %w", ErrAnalysisCancelled, err)
		}
		return nil, fmt.Errorf("clustering: %w", err)
	}

	cutter := modules.NewCutter(weights,
		modules.WithMinCoupling(minCoupling),
		modules.WithAcceptSingletons(p.acceptSingletons),
		modules.WithCapPolicy(p.capPolicy),
		modules.WithLogger(logger),
	)
	result.Root = root
	result.ClassCount = root.ClassCount()
	result.MaxModules = modules.MaxModules(result.ClassCount)
	result.Modules = cutter.Identify(ctx, root, result.ClassCount)
	result.Verification = cutter.Verify(result.Modules, result.ClassCount, root.Members())
	result.Duration = time.Since(start)

	recordRunMetrics(ctx, result.Duration, len(result.Modules), merges, true)
	setRunSpanResult(span, result.ClassCount, len(result.Modules), result.Verification.WithinBound)

	logger.Info("clustering complete",
		slog.Int("classes", result.ClassCount),
		slog.Int("total_edges", result.TotalEdges),
		slog.Int("merges", merges),
		slog.Int("modules", len(result.Modules)),
		slog.Int("max_modules", result.MaxModules),
		slog.Float64("min_coupling", minCoupling),
		slog.Bool("within_bound", result.Verification.WithinBound),
		slog.Duration("duration", result.Duration),
	)
	if !result.Verification.WithinBound {
		logger.Warn("module count exceeds bound",
			slog.Int("modules", len(result.Modules)),
			slog.Int("max_modules", result.MaxModules),
		)
	}
	return result, nil
}
