// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command modcluster groups the classes of a call graph into modules by
// hierarchical clustering of their call coupling.
//
// Usage:
//
//	modcluster analyze callgraph.json --cp 0.3
//	modcluster analyze callgraph.yaml --format json --out reports/
//	modcluster analyze callgraph.json --watch
//	modcluster coupling callgraph.json --out reports/
//	modcluster serve --port 8090
//
// Example requests against `modcluster serve`:
//
//	# Health check
//	curl http://localhost:8090/v1/cluster/health
//
//	# Cluster a call graph
//	curl -X POST http://localhost:8090/v1/cluster/analyze \
//	  -H "Content-Type: application/json" \
//	  -d '{"call_graph": {"A.run": ["B.x"]}, "min_coupling": 0.3}'
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
