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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/modcluster/cmd/modcluster/config"
	"github.com/AleutianAI/modcluster/services/cluster/callgraph"
	"github.com/AleutianAI/modcluster/services/cluster/api"
	"github.com/AleutianAI/modcluster/services/cluster/modules"
	"github.com/AleutianAI/modcluster/services/cluster/report"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testGraphJSON yields counts A-B=5, B-C=3, A-C=2 (total 10).
const testGraphJSON = `{
  "com.app.A.run": ["com.app.B.b1", "com.app.B.b2", "com.app.B.b3", "com.app.B.b4", "com.app.B.b5", "com.app.C.c1", "com.app.C.c2"],
  "com.app.B.run": ["com.app.C.c3", "com.app.C.c4", "com.app.C.c5"]
}`

func writeTestGraph(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "callgraph.json")
	require.NoError(t, os.WriteFile(path, []byte(testGraphJSON), 0o644))
	return path
}

func newTestAnalyzeCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "analyze"}
	addAnalyzeFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

// =============================================================================
// analyze
// =============================================================================

func TestResolveAnalyzeOptions_ConfigDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Clustering.MinCoupling = 0.45
	cfg.Clustering.CapPolicy = "compat"
	cfg.Report.Formats = []string{"json", "tree"}

	opts, err := resolveAnalyzeOptions(newTestAnalyzeCmd(t), cfg)
	require.NoError(t, err)

	assert.Equal(t, 0.45, opts.minCoupling)
	assert.Equal(t, modules.CapCompat, opts.capPolicy)
	assert.Equal(t, []report.Format{report.FormatJSON, report.FormatTree}, opts.formats)
	assert.Equal(t, cfg.Report.MaxNodes, opts.render.MaxNodes)
}

func TestResolveAnalyzeOptions_FlagsOverrideConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	cmd := newTestAnalyzeCmd(t, "--cp", "0.6", "--accept-singletons", "--cap-policy", "compat", "--format", "csv,dot", "--out", "reports")
	opts, err := resolveAnalyzeOptions(cmd, cfg)
	require.NoError(t, err)

	assert.Equal(t, 0.6, opts.minCoupling)
	assert.True(t, opts.acceptSingletons)
	assert.Equal(t, modules.CapCompat, opts.capPolicy)
	assert.Equal(t, []report.Format{report.FormatCSV, report.FormatDOT}, opts.formats)
	assert.Equal(t, "reports", opts.outDir)
}

func TestResolveAnalyzeOptions_Invalid(t *testing.T) {
	_, err := resolveAnalyzeOptions(newTestAnalyzeCmd(t, "--format", "pdf"), config.DefaultConfig())
	assert.ErrorIs(t, err, report.ErrUnknownFormat)

	_, err = resolveAnalyzeOptions(newTestAnalyzeCmd(t, "--cap-policy", "loose"), config.DefaultConfig())
	assert.ErrorIs(t, err, modules.ErrUnknownCapPolicy)
}

func TestAnalyzeFile_Stdout(t *testing.T) {
	opts, err := resolveAnalyzeOptions(newTestAnalyzeCmd(t, "--cp", "0.4"), config.DefaultConfig())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, analyzeFile(context.Background(), writeTestGraph(t), opts, &out))

	assert.Contains(t, out.String(), "Module_Cluster_1 (2 classes, coupling=0.5000): [com.app.A, com.app.B]")
	assert.Contains(t, out.String(), "Unassigned classes (1): com.app.C")
}

func TestAnalyzeFile_OutDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	opts, err := resolveAnalyzeOptions(
		newTestAnalyzeCmd(t, "--format", "text,csv,json,yaml,dot,tree", "--out", dir),
		config.DefaultConfig())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, analyzeFile(context.Background(), writeTestGraph(t), opts, &out))

	for _, name := range []string{
		"clustering_report.txt", "modules.csv", "clustering_result.json",
		"clustering_result.yaml", "coupling_graph.dot", "dendrogram.txt",
	} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.NotZero(t, info.Size(), name)
	}

	csv, err := os.ReadFile(filepath.Join(dir, "modules.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"Module_ID,Class_Count,Average_Coupling,Classes\n"+
			"Module_Cluster_2,3,0.333,com.app.A;com.app.B;com.app.C\n",
		string(csv))

	summary := out.String()
	assert.Contains(t, summary, "Call graph: 2 callers, 10 call edges, 10 distinct callees\n")
	assert.Contains(t, summary, "Classes: 3\n")
	assert.Contains(t, summary, "Modules: 1 (max 1)\n")
	assert.Contains(t, summary, "OK: Wrote "+filepath.Join(dir, "modules.csv"))
}

func TestResolveAnalyzeOptions_DuplicateFormats(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Report.Formats = []string{"csv", "CSV", "tree"}

	opts, err := resolveAnalyzeOptions(newTestAnalyzeCmd(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, []report.Format{report.FormatCSV, report.FormatTree}, opts.formats)

	opts, err = resolveAnalyzeOptions(newTestAnalyzeCmd(t, "--format", "json,json", "--format", "json"), cfg)
	require.NoError(t, err)
	assert.Equal(t, []report.Format{report.FormatJSON}, opts.formats)
}

func TestWatchAndAnalyze_MissingDirectory(t *testing.T) {
	opts, err := resolveAnalyzeOptions(newTestAnalyzeCmd(t), config.DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	path := filepath.Join(t.TempDir(), "missing", "callgraph.json")
	err = watchAndAnalyze(ctx, path, opts, &bytes.Buffer{})
	assert.Error(t, err)
	assert.NoError(t, ctx.Err(), "watch must fail fast instead of waiting for ctx")
}

func TestAnalyzeFile_MissingFile(t *testing.T) {
	opts, err := resolveAnalyzeOptions(newTestAnalyzeCmd(t), config.DefaultConfig())
	require.NoError(t, err)

	err = analyzeFile(context.Background(), filepath.Join(t.TempDir(), "none.json"), opts, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestReportFileName_Unique(t *testing.T) {
	seen := make(map[string]report.Format)
	for _, f := range report.Formats() {
		name := reportFileName(f)
		if prev, ok := seen[name]; ok {
			t.Errorf("formats %s and %s share file %s", prev, f, name)
		}
		seen[name] = f
	}
}

// =============================================================================
// coupling
// =============================================================================

func TestWriteCouplingFiles(t *testing.T) {
	dir := t.TempDir()
	g := map[string][]string{}
	require.NoError(t, json.Unmarshal([]byte(testGraphJSON), &g))

	graph := buildCouplingGraph(g, nil)
	require.NoError(t, writeCouplingFiles(context.Background(), dir, graph, 0.25, 0))

	dot, err := os.ReadFile(filepath.Join(dir, couplingDOTFile))
	require.NoError(t, err)
	assert.Contains(t, string(dot), `"com.app.A" -> "com.app.B" [label="0.500 (5)", weight=0.500];`)
	assert.NotContains(t, string(dot), `"com.app.A" -> "com.app.C"`)

	var doc report.GraphDocument
	data, err := os.ReadFile(filepath.Join(dir, couplingJSONFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 10, doc.Metadata.TotalInterClassEdges)
	assert.Len(t, doc.Edges, 2)

	csv, err := os.ReadFile(filepath.Join(dir, couplingCSVFile))
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(csv), "\n"), "header plus every pair")
}

func TestWriteCouplingSummary(t *testing.T) {
	g := map[string][]string{}
	require.NoError(t, json.Unmarshal([]byte(testGraphJSON), &g))

	var out bytes.Buffer
	require.NoError(t, writeCouplingSummary(&out, callgraph.Stats(g), buildCouplingGraph(g, nil), 0.25))

	assert.True(t, strings.HasPrefix(out.String(), "Call graph: 2 callers, 10 call edges, 10 distinct callees\n\n"))
	assert.Contains(t, out.String(), "Edges above threshold: 2\n")
}

// =============================================================================
// serve
// =============================================================================

func TestNewRouter_Health(t *testing.T) {
	router := newRouter(config.DefaultConfig(), false)

	req, _ := http.NewRequest("GET", "/v1/cluster/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestNewRouter_BodyLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.MaxBodyBytes = 16

	router := newRouter(cfg, false)
	body := `{"call_graph": ` + testGraphJSON + `, "min_coupling": 0.3}`
	req, _ := http.NewRequest("POST", "/v1/cluster/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

// =============================================================================
// version
// =============================================================================

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	assert.True(t, strings.HasPrefix(out.String(), "modcluster "+version+" (api "+api.ServiceVersion))
}
