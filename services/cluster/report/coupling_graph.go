// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders coupling tables and clustering results as DOT,
// JSON, YAML, CSV and plain text.
//
// Every writer iterates in a fixed order (classes sorted, edges by weight
// descending then by name) so repeated runs produce identical output.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/modcluster/services/cluster/coupling"
)

// TopEdges is the number of edges listed in TextSummary.
const TopEdges = 10

// Edge is one weighted coupling between two classes.
type Edge struct {
	Source string  `json:"source" yaml:"source"`
	Target string  `json:"target" yaml:"target"`
	Weight float64 `json:"weight" yaml:"weight"`
	Count  int     `json:"count" yaml:"count"`
}

// CouplingGraph renders the weighted coupling graph.
type CouplingGraph struct {
	counts     coupling.Counts
	weights    coupling.Weights
	totalEdges int
	now        func() time.Time
}

// NewCouplingGraph creates a renderer over the given tables.
func NewCouplingGraph(counts coupling.Counts, weights coupling.Weights, totalEdges int) *CouplingGraph {
	return &CouplingGraph{
		counts:     counts,
		weights:    weights,
		totalEdges: totalEdges,
		now:        time.Now,
	}
}

// TotalEdges returns the inter-class call total the weights were normalized by.
func (g *CouplingGraph) TotalEdges() int { return g.totalEdges }

// Classes returns every class appearing in the weight table, sorted.
func (g *CouplingGraph) Classes() []string {
	set := make(map[string]struct{})
	for p := range g.weights {
		set[p.A] = struct{}{}
		set[p.B] = struct{}{}
	}
	classes := make([]string, 0, len(set))
	for c := range set {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes
}

// Edges returns the edges with weight >= minWeight, heaviest first. Ties
// are ordered by source, then target.
func (g *CouplingGraph) Edges(minWeight float64) []Edge {
	edges := make([]Edge, 0, len(g.weights))
	for _, p := range g.weights.Pairs() {
		w := g.weights[p]
		if w < minWeight {
			continue
		}
		edges = append(edges, Edge{
			Source: p.A,
			Target: p.B,
			Weight: w,
			Count:  g.counts.Get(p.A, p.B),
		})
	}
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Weight > edges[j].Weight
	})
	return edges
}

// WriteDOT writes a Graphviz digraph.
//
// Description:
//
//	Nodes are the sorted classes, truncated to maxNodes when maxNodes > 0.
//	Edges between shown nodes with weight >= minWeight are labelled
//	"weight (count)". Footer comments give the drawn edge count and the
//	inter-class call total.
func (g *CouplingGraph) WriteDOT(w io.Writer, minWeight float64, maxNodes int) error {
	classes := g.Classes()
	if maxNodes > 0 && len(classes) > maxNodes {
		classes = classes[:maxNodes]
	}
	shown := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		shown[c] = struct{}{}
	}

	var b strings.Builder
	b.WriteString("digraph CouplingGraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fillcolor=lightblue];\n")
	b.WriteString("  edge [fontsize=10];\n\n")

	for _, c := range classes {
		fmt.Fprintf(&b, "  %s [label=%s];\n", dotQuote(c), dotQuote(coupling.ShortName(c)))
	}
	b.WriteString("\n")

	drawn := 0
	for _, e := range g.Edges(minWeight) {
		_, okS := shown[e.Source]
		_, okT := shown[e.Target]
		if !okS || !okT {
			continue
		}
		label := fmt.Sprintf("%.3f (%d)", e.Weight, e.Count)
		fmt.Fprintf(&b, "  %s -> %s [label=%s, weight=%.3f];\n",
			dotQuote(e.Source), dotQuote(e.Target), dotQuote(label), e.Weight)
		drawn++
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "  // Total edges: %d\n", drawn)
	fmt.Fprintf(&b, "  // Total inter-class calls: %d\n", g.totalEdges)
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func dotQuote(s string) string {
	return strconv.Quote(s)
}

// GraphNode is a class node in the JSON graph document.
type GraphNode struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Package string `json:"package"`
}

// GraphMetadata describes how a JSON graph document was produced.
type GraphMetadata struct {
	TotalInterClassEdges int       `json:"totalInterClassEdges"`
	MinWeight            float64   `json:"minWeight"`
	GeneratedAt          time.Time `json:"generatedAt"`
}

// GraphDocument is the JSON form of the coupling graph.
type GraphDocument struct {
	Metadata GraphMetadata `json:"metadata"`
	Nodes    []GraphNode   `json:"nodes"`
	Edges    []Edge        `json:"edges"`
}

// Document builds the JSON graph document. Every class is listed as a node;
// only edges with weight >= minWeight are included.
func (g *CouplingGraph) Document(minWeight float64) GraphDocument {
	classes := g.Classes()
	nodes := make([]GraphNode, 0, len(classes))
	for _, c := range classes {
		nodes = append(nodes, GraphNode{
			ID:      c,
			Label:   coupling.ShortName(c),
			Package: coupling.PackageOf(c),
		})
	}
	return GraphDocument{
		Metadata: GraphMetadata{
			TotalInterClassEdges: g.totalEdges,
			MinWeight:            minWeight,
			GeneratedAt:          g.now().UTC(),
		},
		Nodes: nodes,
		Edges: g.Edges(minWeight),
	}
}

// WriteJSON writes the graph document as indented JSON.
func (g *CouplingGraph) WriteJSON(w io.Writer, minWeight float64) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g.Document(minWeight)); err != nil {
		return fmt.Errorf("encode coupling graph: %w", err)
	}
	return nil
}

// WriteCSV writes Source,Target,Weight,Count,Percentage rows, heaviest first.
func (g *CouplingGraph) WriteCSV(w io.Writer, minWeight float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Source", "Target", "Weight", "Count", "Percentage"}); err != nil {
		return err
	}
	for _, e := range g.Edges(minWeight) {
		row := []string{
			e.Source,
			e.Target,
			strconv.FormatFloat(e.Weight, 'f', 6, 64),
			strconv.Itoa(e.Count),
			fmt.Sprintf("%.2f%%", e.Weight*100),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// TextSummary returns the edge totals above minWeight and the TopEdges
// strongest couplings overall.
func (g *CouplingGraph) TextSummary(minWeight float64) string {
	var b strings.Builder
	b.WriteString("=== COUPLING GRAPH SUMMARY ===\n\n")
	fmt.Fprintf(&b, "Total inter-class calls: %d\n", g.totalEdges)
	fmt.Fprintf(&b, "Minimum weight threshold: %.4f\n", minWeight)

	above := g.Edges(minWeight)
	sum := 0.0
	for _, e := range above {
		sum += e.Weight
	}
	fmt.Fprintf(&b, "Edges above threshold: %d\n", len(above))
	fmt.Fprintf(&b, "Total weight above threshold: %.4f\n", sum)

	fmt.Fprintf(&b, "\n=== TOP %d STRONGEST COUPLINGS ===\n", TopEdges)
	all := g.Edges(0)
	for i, e := range all {
		if i == TopEdges {
			break
		}
		fmt.Fprintf(&b, "%2d) %s -> %s: %.4f (%d calls)\n",
			i+1, coupling.ShortName(e.Source), coupling.ShortName(e.Target), e.Weight, e.Count)
	}
	return b.String()
}
