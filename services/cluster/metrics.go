// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cluster

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for pipeline operations.
var (
	tracer = otel.Tracer("cluster.pipeline")
	meter  = otel.Meter("cluster.pipeline")
)

// Metrics for pipeline runs.
var (
	runLatency        metric.Float64Histogram
	runTotal          metric.Int64Counter
	modulesIdentified metric.Int64Histogram
	mergeIterations   metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runLatency, err = meter.Float64Histogram(
			"cluster_pipeline_duration_seconds",
			metric.WithDescription("Duration of clustering pipeline runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runTotal, err = meter.Int64Counter(
			"cluster_pipeline_runs_total",
			metric.WithDescription("Total number of clustering pipeline runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		modulesIdentified, err = meter.Int64Histogram(
			"cluster_modules_identified",
			metric.WithDescription("Number of modules identified per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		mergeIterations, err = meter.Int64Histogram(
			"cluster_merge_iterations",
			metric.WithDescription("Number of merge iterations per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordRunMetrics records metrics for one pipeline run.
func recordRunMetrics(ctx context.Context, duration time.Duration, moduleCount, merges int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))

	runLatency.Record(ctx, duration.Seconds(), attrs)
	runTotal.Add(ctx, 1, attrs)

	if success {
		modulesIdentified.Record(ctx, int64(moduleCount))
		mergeIterations.Record(ctx, int64(merges))
	}
}

// startRunSpan creates a span for a pipeline stage.
func startRunSpan(ctx context.Context, name, runID string, minCoupling float64) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Pipeline."+name,
		trace.WithAttributes(
			attribute.String("cluster.run_id", runID),
			attribute.Float64("cluster.min_coupling", minCoupling),
		),
	)
}

// setRunSpanResult sets the result attributes on a run span.
func setRunSpanResult(span trace.Span, classCount, moduleCount int, withinBound bool) {
	span.SetAttributes(
		attribute.Int("cluster.class_count", classCount),
		attribute.Int("cluster.module_count", moduleCount),
		attribute.Bool("cluster.within_bound", withinBound),
	)
}
