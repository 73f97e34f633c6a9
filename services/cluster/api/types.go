// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"github.com/AleutianAI/modcluster/services/cluster/coupling"
	"github.com/AleutianAI/modcluster/services/cluster/dendrogram"
	"github.com/AleutianAI/modcluster/services/cluster/modules"
	"github.com/AleutianAI/modcluster/services/cluster/report"
)

// ServiceVersion is the clustering API version.
const ServiceVersion = "0.1.0"

// AnalyzeRequest is the request body for POST /v1/cluster/analyze.
type AnalyzeRequest struct {
	// CallGraph maps each caller method to the methods it calls.
	CallGraph coupling.CallGraph `json:"call_graph" binding:"required"`

	// MinCoupling is the CP threshold a module must reach. Values outside
	// (0, 1] are accepted as given.
	MinCoupling *float64 `json:"min_coupling" binding:"required"`

	// AcceptSingletons lets single-class leaves become modules.
	AcceptSingletons bool `json:"accept_singletons,omitempty"`

	// CapPolicy is "strict" (default) or "compat".
	CapPolicy string `json:"cap_policy,omitempty"`
}

// AnalyzeResponse is the response for POST /v1/cluster/analyze.
type AnalyzeResponse struct {
	RunID            string               `json:"run_id"`
	ClassCount       int                  `json:"class_count"`
	TotalEdges       int                  `json:"total_edges"`
	MinCoupling      float64              `json:"min_coupling"`
	MaxModules       int                  `json:"max_modules"`
	Modules          []modules.Module     `json:"modules"`
	Dendrogram       *dendrogram.View     `json:"dendrogram,omitempty"`
	Verification     modules.Verification `json:"verification"`
	DetectedPackages []string             `json:"detected_packages,omitempty"`

	// DurationMs is the pipeline wall time in milliseconds.
	DurationMs int64 `json:"duration_ms"`
}

// CouplingRequest is the request body for POST /v1/cluster/coupling.
type CouplingRequest struct {
	// CallGraph maps each caller method to the methods it calls.
	CallGraph coupling.CallGraph `json:"call_graph" binding:"required"`

	// MinWeight drops edges lighter than this. Zero keeps every edge.
	MinWeight float64 `json:"min_weight,omitempty" binding:"gte=0"`
}

// CouplingResponse is the response for POST /v1/cluster/coupling.
type CouplingResponse struct {
	TotalEdges       int           `json:"total_edges"`
	ClassCount       int           `json:"class_count"`
	Edges            []report.Edge `json:"edges"`
	DetectedPackages []string      `json:"detected_packages,omitempty"`
}

// HealthResponse is the response for GET /v1/cluster/health.
type HealthResponse struct {
	// Status is "healthy".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`
}

// ErrorResponse is returned for every non-2xx response.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
