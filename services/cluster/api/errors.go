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
	"context"
	"errors"
	"net/http"

	"github.com/AleutianAI/modcluster/services/cluster"
	"github.com/AleutianAI/modcluster/services/cluster/callgraph"
	"github.com/AleutianAI/modcluster/services/cluster/modules"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeRequestTooLarge   = "REQUEST_TOO_LARGE"
	CodeInvalidCallGraph  = "INVALID_CALL_GRAPH"
	CodeInvalidCapPolicy  = "INVALID_CAP_POLICY"
	CodeRateLimited       = "RATE_LIMITED"
	CodeAnalysisTimeout   = "ANALYSIS_TIMEOUT"
	CodeAnalysisCancelled = "ANALYSIS_CANCELLED"
	CodeAnalysisFailed    = "ANALYSIS_FAILED"
)

// errorStatus maps a handler error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, callgraph.ErrInvalidCallGraph):
		return http.StatusBadRequest, CodeInvalidCallGraph
	case errors.Is(err, modules.ErrUnknownCapPolicy):
		return http.StatusBadRequest, CodeInvalidCapPolicy
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeAnalysisTimeout
	case errors.Is(err, cluster.ErrAnalysisCancelled), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, CodeAnalysisCancelled
	default:
		return http.StatusInternalServerError, CodeAnalysisFailed
	}
}

// bindStatus maps a request binding error to an HTTP status and error code.
func bindStatus(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, CodeRequestTooLarge
	}
	return http.StatusBadRequest, CodeInvalidRequest
}
