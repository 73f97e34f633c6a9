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
	"path/filepath"

	"github.com/AleutianAI/modcluster/services/cluster/callgraph"
	"github.com/AleutianAI/modcluster/services/cluster/coupling"
	"github.com/AleutianAI/modcluster/services/cluster/report"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Files written by the coupling command.
const (
	couplingDOTFile  = "coupling_graph.dot"
	couplingJSONFile = "coupling_graph.json"
	couplingCSVFile  = "coupling_report.csv"
)

var (
	couplingMinWeight float64
	couplingMaxNodes  int
	couplingOutDir    string
)

// couplingCmd writes the class coupling graph without clustering.
var couplingCmd = &cobra.Command{
	Use:   "coupling CALLGRAPH",
	Short: "Write the class coupling graph of a call graph",
	Long: `Aggregate a call graph into class coupling and write:

  coupling_graph.dot   - Graphviz graph, edges labelled "weight (count)"
  coupling_graph.json  - Nodes, edges and metadata
  coupling_report.csv  - One row per class pair, heaviest first

A summary with the strongest couplings is printed to stdout.

Examples:
  modcluster coupling callgraph.json
  modcluster coupling callgraph.json --min-weight 0.05 --max-nodes 30 --out reports/`,
	Args: cobra.ExactArgs(1),
	RunE: runCoupling,
}

func init() {
	couplingCmd.Flags().Float64Var(&couplingMinWeight, "min-weight", 0.01,
		"Hide edges lighter than this in DOT and JSON output (overrides config)")
	couplingCmd.Flags().IntVar(&couplingMaxNodes, "max-nodes", 50,
		"Maximum classes drawn in DOT output, 0 = all (overrides config)")
	couplingCmd.Flags().StringVar(&couplingOutDir, "out", ".",
		"Directory for the output files")
}

func runCoupling(cmd *cobra.Command, args []string) error {
	minWeight := appConfig.Report.MinWeight
	maxNodes := appConfig.Report.MaxNodes
	if cmd.Flags().Changed("min-weight") {
		minWeight = couplingMinWeight
	}
	if cmd.Flags().Changed("max-nodes") {
		maxNodes = couplingMaxNodes
	}

	g, err := callgraph.Load(args[0])
	if err != nil {
		return err
	}
	graph := buildCouplingGraph(g, appConfig.Clustering.ProjectPackages)

	if err := writeCouplingFiles(cmd.Context(), couplingOutDir, graph, minWeight, maxNodes); err != nil {
		return err
	}
	return writeCouplingSummary(cmd.OutOrStdout(), callgraph.Stats(g), graph, minWeight)
}

// writeCouplingSummary prints the call graph size followed by the coupling
// summary.
func writeCouplingSummary(w io.Writer, stats callgraph.GraphStats, graph *report.CouplingGraph, minWeight float64) error {
	if _, err := fmt.Fprintf(w, "Call graph: %s\n\n", formatGraphStats(stats)); err != nil {
		return err
	}
	_, err := io.WriteString(w, graph.TextSummary(minWeight))
	return err
}

func buildCouplingGraph(g coupling.CallGraph, projectPackages []string) *report.CouplingGraph {
	aggregator := coupling.NewAggregator(
		coupling.WithProjectPackages(projectPackages),
		coupling.WithLogger(slog.Default()),
	)
	counts, weights, total := aggregator.Aggregate(g)
	slog.Debug("Coupling aggregated",
		"classes", len(counts.Classes()),
		"pairs", len(counts),
		"total_edges", total,
		"project_packages", aggregator.DetectedPackages(),
	)
	return report.NewCouplingGraph(counts, weights, total)
}

// writeCouplingFiles writes the DOT, JSON and CSV renderings into dir
// concurrently. The CSV always lists every pair.
func writeCouplingFiles(ctx context.Context, dir string, graph *report.CouplingGraph, minWeight float64, maxNodes int) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writeFile(filepath.Join(dir, couplingDOTFile), func(w io.Writer) error {
			return graph.WriteDOT(w, minWeight, maxNodes)
		})
	})
	g.Go(func() error {
		return writeFile(filepath.Join(dir, couplingJSONFile), func(w io.Writer) error {
			return graph.WriteJSON(w, minWeight)
		})
	})
	g.Go(func() error {
		return writeFile(filepath.Join(dir, couplingCSVFile), func(w io.Writer) error {
			return graph.WriteCSV(w, 0)
		})
	})
	return g.Wait()
}
