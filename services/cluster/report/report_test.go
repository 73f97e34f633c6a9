// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/modcluster/services/cluster"
	"github.com/AleutianAI/modcluster/services/cluster/coupling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testTables() (coupling.Counts, coupling.Weights, int) {
	counts := coupling.Counts{
		coupling.NewPair("com.app.A", "com.app.B"): 5,
		coupling.NewPair("com.app.B", "com.app.C"): 3,
		coupling.NewPair("com.app.A", "com.app.C"): 2,
	}
	return counts, coupling.NormalizeToCouplingWeights(counts, 10), 10
}

func testGraph() *CouplingGraph {
	counts, weights, total := testTables()
	g := NewCouplingGraph(counts, weights, total)
	g.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return g
}

func testResult(t *testing.T, cp float64) *cluster.Result {
	t.Helper()
	counts, weights, _ := testTables()
	r, err := cluster.NewPipeline().Run(context.Background(), counts, weights, cp)
	require.NoError(t, err)
	return r
}

// =============================================================================
// Coupling graph
// =============================================================================

func TestCouplingGraph_Edges(t *testing.T) {
	edges := testGraph().Edges(0.25)

	require.Len(t, edges, 2)
	assert.Equal(t, Edge{Source: "com.app.A", Target: "com.app.B", Weight: 0.5, Count: 5}, edges[0])
	assert.Equal(t, "com.app.B", edges[1].Source)
	assert.Equal(t, 3, edges[1].Count)
}

func TestCouplingGraph_WriteDOT(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testGraph().WriteDOT(&buf, 0.25, 2))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "digraph CouplingGraph {\n"))
	assert.Contains(t, out, `"com.app.A" [label="A"];`)
	assert.Contains(t, out, `"com.app.B" [label="B"];`)
	assert.NotContains(t, out, `"com.app.C" [label`)
	assert.Contains(t, out, `"com.app.A" -> "com.app.B" [label="0.500 (5)", weight=0.500];`)
	assert.Contains(t, out, "// Total edges: 1\n")
	assert.Contains(t, out, "// Total inter-class calls: 10\n")
	assert.True(t, strings.HasSuffix(out, "}\n"))
}

func TestCouplingGraph_WriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testGraph().WriteJSON(&buf, 0.3))

	var doc GraphDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, 10, doc.Metadata.TotalInterClassEdges)
	assert.Equal(t, 0.3, doc.Metadata.MinWeight)
	assert.Equal(t, 2025, doc.Metadata.GeneratedAt.Year())
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, GraphNode{ID: "com.app.A", Label: "A", Package: "com.app"}, doc.Nodes[0])
	require.Len(t, doc.Edges, 2)
	assert.Equal(t, 0.5, doc.Edges[0].Weight)
}

func TestCouplingGraph_WriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testGraph().WriteCSV(&buf, 0))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Source", "Target", "Weight", "Count", "Percentage"}, rows[0])
	assert.Equal(t, []string{"com.app.A", "com.app.B", "0.500000", "5", "50.00%"}, rows[1])
	assert.Equal(t, "0.300000", rows[2][2])
	assert.Equal(t, "0.200000", rows[3][2])
}

func TestCouplingGraph_TextSummary(t *testing.T) {
	out := testGraph().TextSummary(0.25)

	assert.Contains(t, out, "Total inter-class calls: 10\n")
	assert.Contains(t, out, "Edges above threshold: 2\n")
	assert.Contains(t, out, "Total weight above threshold: 0.8000\n")
	assert.Contains(t, out, " 1) A -> B: 0.5000 (5 calls)\n")
	assert.Contains(t, out, " 3) A -> C: 0.2000 (2 calls)\n")
}

func TestCouplingGraph_TextSummaryLimitsTopEdges(t *testing.T) {
	counts := coupling.Counts{}
	for i := 0; i < TopEdges+5; i++ {
		counts[coupling.NewPair("X", fmt.Sprintf("Y%02d", i))] = i + 1
	}
	total := coupling.TotalInterClassEdges(counts)
	g := NewCouplingGraph(counts, coupling.NormalizeToCouplingWeights(counts, total), total)

	out := g.TextSummary(0)
	assert.Contains(t, out, "10) ")
	assert.NotContains(t, out, "11) ")
}

// =============================================================================
// Clustering reports
// =============================================================================

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, testResult(t, 0.4)))
	out := buf.String()

	assert.Contains(t, out, "- Total classes: 3\n")
	assert.Contains(t, out, "- Modules identified: 1 (max 1)\n")
	assert.Contains(t, out, "- Minimum coupling required: 0.400\n")
	assert.Contains(t, out, "1. Module_Cluster_1 (2 classes, coupling=0.5000): [com.app.A, com.app.B]\n")
	assert.Contains(t, out, "- Module bound: 1 modules (max 1) OK\n")
	assert.Contains(t, out, "- Unassigned classes (1): com.app.C\n")
	assert.Contains(t, out, "=== MERGE HISTORY ===\n"+
		"1. Cluster_1 = com.app.A + com.app.B (coupling=0.5000)\n"+
		"2. Cluster_2 = com.app.C + Cluster_1 (coupling=0.2500)\n")
	assert.Contains(t, out, "=== CLASS ASSIGNMENT ===\n"+
		"com.app.A -> Module_Cluster_1\n"+
		"com.app.B -> Module_Cluster_1\n"+
		"com.app.C -> (unassigned)\n")
}

func TestWriteText_Empty(t *testing.T) {
	r, err := cluster.NewPipeline().Run(context.Background(), coupling.Counts{}, coupling.Weights{}, 0.3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))
	assert.Contains(t, buf.String(), "No project classes to cluster.")
}

func TestWriteModulesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteModulesCSV(&buf, testResult(t, 0.3)))

	assert.Equal(t,
		"Module_ID,Class_Count,Average_Coupling,Classes\n"+
			"Module_Cluster_2,3,0.333,com.app.A;com.app.B;com.app.C\n",
		buf.String())
}

func TestWriteDendrogram(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDendrogram(&buf, testResult(t, 0.3).Root))

	want := "" +
		"Cluster_2 (coupling=0.250, level=2, classes=3)\n" +
		"├── com.app.C\n" +
		"└── Cluster_1 (coupling=0.500, level=1, classes=2)\n" +
		"    ├── com.app.A\n" +
		"    └── com.app.B\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, WriteDendrogram(&buf, nil))
	assert.Equal(t, "(empty dendrogram)\n", buf.String())
}

func TestWriteResultJSON(t *testing.T) {
	r := testResult(t, 0.3)
	var buf bytes.Buffer
	require.NoError(t, WriteResultJSON(&buf, r))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, r.RunID, doc["run_id"])
	assert.Equal(t, float64(3), doc["class_count"])
	assert.Len(t, doc["modules"], 1)
	assert.Equal(t, "Cluster_2", doc["dendrogram"].(map[string]any)["id"])
	counts := doc["coupling_counts"].(map[string]any)
	assert.Equal(t, float64(5), counts["com.app.A"].(map[string]any)["com.app.B"])
}

func TestWriteResultYAML(t *testing.T) {
	r := testResult(t, 0.3)
	var buf bytes.Buffer
	require.NoError(t, WriteResultYAML(&buf, r))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, r.RunID, doc["run_id"])
	assert.Equal(t, 1, doc["max_modules"])
	assert.Contains(t, doc, "dendrogram")
	assert.Contains(t, doc, "coupling_weights")
}

func TestRender(t *testing.T) {
	r := testResult(t, 0.3)

	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, f, r, Options{}))
			assert.NotEmpty(t, buf.String())
		})
	}

	err := Render(&bytes.Buffer{}, Format("pdf"), r, Options{})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	assert.Equal(t, ".json", f.Extension())
	assert.Equal(t, ".txt", FormatTree.Extension())

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
