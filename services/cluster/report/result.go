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
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/AleutianAI/modcluster/services/cluster"
	"github.com/AleutianAI/modcluster/services/cluster/dendrogram"
	"gopkg.in/yaml.v3"
)

// WriteText writes the human-readable clustering report.
func WriteText(w io.Writer, r *cluster.Result) error {
	var b strings.Builder
	b.WriteString("=== HIERARCHICAL CLUSTERING REPORT ===\n\n")

	b.WriteString("OVERVIEW:\n")
	fmt.Fprintf(&b, "- Run ID: %s\n", r.RunID)
	fmt.Fprintf(&b, "- Total classes: %d\n", r.ClassCount)
	fmt.Fprintf(&b, "- Inter-class calls: %d\n", r.TotalEdges)
	fmt.Fprintf(&b, "- Modules identified: %d (max %d)\n", len(r.Modules), r.MaxModules)
	fmt.Fprintf(&b, "- Minimum coupling required: %.3f\n", r.MinCoupling)
	if len(r.DetectedPackages) > 0 {
		fmt.Fprintf(&b, "- Project packages: %s\n", formatPackages(r.DetectedPackages))
	}
	b.WriteString("\n")

	if r.Empty() {
		b.WriteString("No project classes to cluster.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("MODULES:\n")
	if len(r.Modules) == 0 {
		b.WriteString("(none)\n")
	}
	for i, m := range r.Modules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m)
	}

	b.WriteString("\n=== MODULE STATISTICS ===\n")
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for i, m := range r.Modules {
		fmt.Fprintf(tw, "\nModule %d:\t%s\n", i+1, m.ID)
		fmt.Fprintf(tw, "  Classes:\t%d\n", m.ClassCount)
		fmt.Fprintf(tw, "  Average coupling:\t%.3f\n", m.AverageCoupling)
		fmt.Fprintf(tw, "  Members:\t%s\n", strings.Join(m.Classes, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	b.WriteString("\n=== CONSTRAINTS ===\n")
	v := r.Verification
	fmt.Fprintf(&b, "- Module bound: %d modules (max %d) %s\n", v.ModuleCount, v.MaxModules, okFail(v.WithinBound))
	fmt.Fprintf(&b, "- Coupling threshold %.3f: %s\n", r.MinCoupling, okFail(v.AllMeetThreshold))
	if len(v.Failing) > 0 {
		fmt.Fprintf(&b, "- Below threshold: %s\n", strings.Join(v.Failing, ", "))
	}
	if len(v.Unassigned) > 0 {
		fmt.Fprintf(&b, "- Unassigned classes (%d): %s\n", len(v.Unassigned), strings.Join(v.Unassigned, ", "))
	}

	b.WriteString("\n=== MERGE HISTORY ===\n")
	for _, n := range dendrogram.InternalNodes(r.Root) {
		fmt.Fprintf(&b, "%d. %s = %s + %s (coupling=%.4f)\n",
			n.Level(), n.ID(), n.Left().ID(), n.Right().ID(), n.Coupling())
	}

	b.WriteString("\n=== CLASS ASSIGNMENT ===\n")
	for _, class := range r.Root.Members() {
		id, ok := r.ModuleOf(class)
		if !ok {
			id = "(unassigned)"
		}
		fmt.Fprintf(&b, "%s -> %s\n", class, id)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func okFail(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAILED"
}

func formatPackages(pkgs []string) string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		if p == "" {
			p = "(unnamed)"
		}
		out[i] = p
	}
	return strings.Join(out, ", ")
}

// WriteModulesCSV writes Module_ID,Class_Count,Average_Coupling,Classes rows.
// Classes are joined with ";".
func WriteModulesCSV(w io.Writer, r *cluster.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Module_ID", "Class_Count", "Average_Coupling", "Classes"}); err != nil {
		return err
	}
	for _, m := range r.Modules {
		row := []string{
			m.ID,
			strconv.Itoa(m.ClassCount),
			strconv.FormatFloat(m.AverageCoupling, 'f', 3, 64),
			strings.Join(m.Classes, ";"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDendrogram writes the tree with box-drawing indentation, root first.
//
//	Cluster_2 (coupling=0.250, level=2, classes=3)
//	├── C
//	└── Cluster_1 (coupling=0.500, level=1, classes=2)
//	    ├── A
//	    └── B
func WriteDendrogram(w io.Writer, root *dendrogram.Node) error {
	if root == nil {
		_, err := io.WriteString(w, "(empty dendrogram)\n")
		return err
	}
	var b strings.Builder
	writeNode(&b, root, "", "")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeNode(b *strings.Builder, n *dendrogram.Node, prefix, childPrefix string) {
	b.WriteString(prefix)
	if n.IsLeaf() {
		b.WriteString(n.ID())
		b.WriteString("\n")
		return
	}
	fmt.Fprintf(b, "%s (coupling=%.3f, level=%d, classes=%d)\n", n.ID(), n.Coupling(), n.Level(), n.ClassCount())
	writeNode(b, n.Left(), childPrefix+"├── ", childPrefix+"│   ")
	writeNode(b, n.Right(), childPrefix+"└── ", childPrefix+"    ")
}

// ResultDocument is the serializable form of a run: the Result fields plus
// the dendrogram and the coupling tables as nested maps.
type ResultDocument struct {
	cluster.Result `yaml:",inline"`

	Dendrogram      *dendrogram.View              `json:"dendrogram,omitempty" yaml:"dendrogram,omitempty"`
	CouplingCounts  map[string]map[string]int     `json:"coupling_counts" yaml:"coupling_counts"`
	CouplingWeights map[string]map[string]float64 `json:"coupling_weights" yaml:"coupling_weights"`
}

// NewResultDocument builds the serializable form of r.
func NewResultDocument(r *cluster.Result) ResultDocument {
	return ResultDocument{
		Result:          *r,
		Dendrogram:      dendrogram.NewView(r.Root),
		CouplingCounts:  r.Counts.Nested(),
		CouplingWeights: r.Weights.Nested(),
	}
}

// WriteResultJSON writes the full run as indented JSON.
func WriteResultJSON(w io.Writer, r *cluster.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewResultDocument(r)); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// WriteResultYAML writes the full run as YAML.
func WriteResultYAML(w io.Writer, r *cluster.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewResultDocument(r)); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return enc.Close()
}
