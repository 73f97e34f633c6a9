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
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/AleutianAI/modcluster/cmd/modcluster/config"
	"github.com/AleutianAI/modcluster/pkg/ux"
	"github.com/AleutianAI/modcluster/services/cluster"
	"github.com/AleutianAI/modcluster/services/cluster/callgraph"
	"github.com/AleutianAI/modcluster/services/cluster/modules"
	"github.com/AleutianAI/modcluster/services/cluster/report"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	analyzeMinCoupling      float64
	analyzeAcceptSingletons bool
	analyzeCapPolicy        string
	analyzeFormats          []string
	analyzeOutDir           string
	analyzeWatch            bool
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

// analyzeCmd clusters a call graph file into modules.
var analyzeCmd = &cobra.Command{
	Use:   "analyze CALLGRAPH",
	Short: "Cluster a call graph into modules",
	Long: `Aggregate a call graph into class coupling, cluster the classes, and cut
the dendrogram into modules whose average coupling is at least --cp.

The call graph is a JSON or YAML mapping from caller method to the list of
methods it calls, e.g. {"com.app.A.run": ["com.app.B.load"]}.

Formats:
  text  - Human-readable report (default)
  csv   - One row per module
  json  - Full result with dendrogram and coupling tables
  yaml  - Same as json, as YAML
  dot   - Graphviz coupling graph
  tree  - Indented dendrogram

Examples:
  modcluster analyze callgraph.json
  modcluster analyze callgraph.json --cp 0.4 --accept-singletons
  modcluster analyze callgraph.yaml --format json,tree --out reports/
  modcluster analyze callgraph.json --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	addAnalyzeFlags(analyzeCmd)
}

func addAnalyzeFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&analyzeMinCoupling, "cp", 0.3,
		"Minimum average coupling for a module (overrides config)")
	cmd.Flags().BoolVar(&analyzeAcceptSingletons, "accept-singletons", false,
		"Allow single classes to become modules")
	cmd.Flags().StringVar(&analyzeCapPolicy, "cap-policy", "strict",
		"Module bound policy: strict, compat")
	cmd.Flags().StringSliceVar(&analyzeFormats, "format", nil,
		"Output formats: "+formatNames()+" (default from config)")
	cmd.Flags().StringVar(&analyzeOutDir, "out", "",
		"Write reports into this directory instead of stdout")
	cmd.Flags().BoolVar(&analyzeWatch, "watch", false,
		"Re-run whenever the call graph file changes")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// analyzeOptions is the resolved configuration for one analyze invocation.
type analyzeOptions struct {
	minCoupling      float64
	acceptSingletons bool
	capPolicy        modules.CapPolicy
	projectPackages  []string
	formats          []report.Format
	outDir           string
	render           report.Options
}

// resolveAnalyzeOptions merges flags that were set over the config values.
func resolveAnalyzeOptions(cmd *cobra.Command, cfg config.ModclusterConfig) (analyzeOptions, error) {
	opts := analyzeOptions{
		minCoupling:      cfg.Clustering.MinCoupling,
		acceptSingletons: cfg.Clustering.AcceptSingletons,
		projectPackages:  cfg.Clustering.ProjectPackages,
		outDir:           cfg.Report.OutputDir,
		render: report.Options{
			MinWeight: cfg.Report.MinWeight,
			MaxNodes:  cfg.Report.MaxNodes,
		},
	}
	policyName := cfg.Clustering.CapPolicy
	requested := cfg.Report.Formats

	flags := cmd.Flags()
	if flags.Changed("cp") {
		opts.minCoupling = analyzeMinCoupling
	}
	if flags.Changed("accept-singletons") {
		opts.acceptSingletons = analyzeAcceptSingletons
	}
	if flags.Changed("cap-policy") {
		policyName = analyzeCapPolicy
	}
	if flags.Changed("format") {
		requested = analyzeFormats
	}
	if flags.Changed("out") {
		opts.outDir = analyzeOutDir
	}

	policy, err := modules.ParseCapPolicy(policyName)
	if err != nil {
		return opts, err
	}
	opts.capPolicy = policy

	if len(requested) == 0 {
		requested = []string{string(report.FormatText)}
	}
	seen := make(map[report.Format]bool, len(requested))
	for _, name := range requested {
		f, err := report.ParseFormat(name)
		if err != nil {
			return opts, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		opts.formats = append(opts.formats, f)
	}
	return opts, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	opts, err := resolveAnalyzeOptions(cmd, appConfig)
	if err != nil {
		return err
	}
	path := args[0]
	out := cmd.OutOrStdout()

	if !analyzeWatch {
		return analyzeFile(cmd.Context(), path, opts, out)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchAndAnalyze(ctx, path, opts, out)
}

// analyzeFile loads path, runs the pipeline, and writes the reports.
func analyzeFile(ctx context.Context, path string, opts analyzeOptions, out io.Writer) error {
	g, err := callgraph.Load(path)
	if err != nil {
		return err
	}

	pipeline := cluster.NewPipeline(
		cluster.WithLogger(slog.Default()),
		cluster.WithAcceptSingletons(opts.acceptSingletons),
		cluster.WithCapPolicy(opts.capPolicy),
		cluster.WithProjectPackages(opts.projectPackages),
	)
	result, err := pipeline.Analyze(ctx, g, opts.minCoupling)
	if err != nil {
		return err
	}

	if opts.outDir == "" {
		for _, f := range opts.formats {
			if err := report.Render(out, f, result, opts.render); err != nil {
				return err
			}
		}
		return nil
	}

	written, err := writeReports(ctx, opts.outDir, opts.formats, result, opts.render)
	if err != nil {
		return err
	}
	printAnalyzeSummary(ux.NewPrinter(out), callgraph.Stats(g), result, written)
	return nil
}

// reportFileName is the file each format is written to under --out.
func reportFileName(f report.Format) string {
	switch f {
	case report.FormatText:
		return "clustering_report" + f.Extension()
	case report.FormatCSV:
		return "modules" + f.Extension()
	case report.FormatDOT:
		return "coupling_graph" + f.Extension()
	case report.FormatTree:
		return "dendrogram" + f.Extension()
	default:
		return "clustering_result" + f.Extension()
	}
}

// writeReports renders every format to its own file in dir concurrently.
// Returns the written paths in format order.
func writeReports(ctx context.Context, dir string, formats []report.Format, r *cluster.Result, opts report.Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	paths := make([]string, len(formats))
	g, _ := errgroup.WithContext(ctx)
	for i, f := range formats {
		paths[i] = filepath.Join(dir, reportFileName(f))
		path := paths[i]
		g.Go(func() error {
			return writeFile(path, func(w io.Writer) error {
				return report.Render(w, f, r, opts)
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// writeFile creates path and fills it with write. The file is closed even
// when write fails; a close error is reported when write succeeded.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printAnalyzeSummary(p *ux.Printer, stats callgraph.GraphStats, r *cluster.Result, written []string) {
	p.Title("Clustering complete")
	p.KeyValue("Run ID", r.RunID)
	p.KeyValue("Call graph", formatGraphStats(stats))
	p.KeyValue("Classes", r.ClassCount)
	p.KeyValue("Modules", fmt.Sprintf("%d (max %d)", len(r.Modules), r.MaxModules))
	for _, m := range r.Modules {
		p.Info(fmt.Sprintf("%s  %s  %d classes", m.ID, p.Bar(m.AverageCoupling, 20), m.ClassCount))
	}
	if !r.Verification.WithinBound {
		p.WarningBox("Module bound exceeded",
			fmt.Sprintf("%d modules for %d classes", r.Verification.ModuleCount, r.ClassCount))
	}
	if n := len(r.Verification.Unassigned); n > 0 {
		p.Warning(fmt.Sprintf("%d classes not in any module", n))
	}
	for _, path := range written {
		p.Success("Wrote " + path)
	}
}

// watchAndAnalyze runs once, then again after every change to path until
// ctx is done. Failed runs are logged and do not stop the watch.
func watchAndAnalyze(ctx context.Context, path string, opts analyzeOptions, out io.Writer) error {
	if err := analyzeFile(ctx, path, opts, out); err != nil {
		slog.Error("Analysis failed", "path", path, "error", err)
	}

	watcher, err := callgraph.NewWatcher(path, func(ctx context.Context, p string) {
		slog.Info("Call graph changed, re-running analysis", "path", p)
		if err := analyzeFile(ctx, p, opts, out); err != nil {
			slog.Error("Analysis failed", "path", p, "error", err)
		}
	}, &callgraph.WatcherOptions{Logger: slog.Default()})
	if err != nil {
		return err
	}
	defer watcher.Stop()
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	slog.Info("Watching call graph", "path", watcher.Path())
	<-ctx.Done()
	return nil
}

func formatGraphStats(s callgraph.GraphStats) string {
	return fmt.Sprintf("%d callers, %d call edges, %d distinct callees", s.Callers, s.Edges, s.DistinctCallees)
}

func formatNames() string {
	names := make([]string, 0, len(report.Formats()))
	for _, f := range report.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
