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

import "errors"

// Sentinel errors for pipeline operations.
var (
	// ErrAnalysisCancelled wraps the context error when a run is cancelled.
	// errors.Is also matches context.Canceled or context.DeadlineExceeded.
	ErrAnalysisCancelled = errors.New("analysis cancelled")

	// ErrNilContext is returned when a nil context is passed.
	ErrNilContext = errors.New("context must not be nil")
)
