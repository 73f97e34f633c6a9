// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coupling

import (
	"log/slog"
	"sort"
)

// AggregatorOption is a functional option for configuring an Aggregator.
type AggregatorOption func(*Aggregator)

// WithProjectPackages fixes the project package set instead of detecting it
// from each call graph. An empty list keeps detection enabled.
func WithProjectPackages(packages []string) AggregatorOption {
	return func(a *Aggregator) {
		if len(packages) == 0 {
			return
		}
		a.fixed = NewPackageSet(packages...)
	}
}

// WithLogger sets the logger used for aggregation diagnostics.
func WithLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Aggregator converts call graphs into coupling tables.
//
// Description:
//
//	Holds the project package set used to tell project classes from
//	external code. The set is detected from the call graph on every
//	CountInterClassCalls call unless it was fixed with WithProjectPackages.
//
// Thread Safety:
//
//	Not safe for concurrent use. Create one Aggregator per analysis.
type Aggregator struct {
	detected *PackageSet
	fixed    *PackageSet
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		detected: NewPackageSet(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DetectedPackages returns the project packages used by the last count, sorted.
func (a *Aggregator) DetectedPackages() []string {
	return a.projectPackages().List()
}

// ResetPackageDetection clears the detected package set.
func (a *Aggregator) ResetPackageDetection() {
	a.detected.Reset()
}

func (a *Aggregator) projectPackages() *PackageSet {
	if a.fixed != nil {
		return a.fixed
	}
	return a.detected
}

// dedupKey identifies one call relationship. The caller is not part of the
// key: two methods of A calling B.x count once.
type dedupKey struct {
	pair   Pair
	callee string
}

// CountInterClassCalls counts distinct call relationships between project classes.
//
// Description:
//
//	For every caller in a project class, each callee is resolved to its
//	class. Unresolved callees, callees outside the project, and calls within
//	the same class are skipped. Every distinct (class pair, callee) adds one
//	to the pair's count, so A.m1 -> B.x and A.m2 -> B.x count once while
//	A -> B.x, A -> B.y and B -> A.z each count.
//
// Inputs:
//
//	g - The call graph. Not modified. May be nil.
//
// Outputs:
//
//	Counts - The pair count table. Empty (never nil) when nothing qualifies.
//
// Side Effects:
//
//	Resets and re-detects the aggregator's project package set.
func (a *Aggregator) CountInterClassCalls(g CallGraph) Counts {
	counts := make(Counts)
	resolver := newClassResolver(g)
	if a.fixed == nil {
		a.ResetPackageDetection()
		a.detected.detect(g, resolver)
	}
	project := a.projectPackages()

	callers := make([]string, 0, len(g))
	for caller := range g {
		callers = append(callers, caller)
	}
	sort.Strings(callers)

	seen := make(map[dedupKey]struct{})
	skipped := 0
	for _, caller := range callers {
		callerClass, ok := resolver.classOf(caller)
		if !ok || !project.ContainsClass(callerClass) {
			skipped += len(g[caller])
			continue
		}
		for _, callee := range g[caller] {
			calleeClass, ok := resolver.classOf(callee)
			if !ok || !project.ContainsClass(calleeClass) || calleeClass == callerClass {
				skipped++
				continue
			}
			key := dedupKey{pair: NewPair(callerClass, calleeClass), callee: callee}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			counts[key.pair]++
		}
	}

	a.logger.Debug("counted inter-class calls",
		slog.Int("callers", len(g)),
		slog.Int("pairs", len(counts)),
		slog.Int("relationships", len(seen)),
		slog.Int("skipped_edges", skipped),
		slog.Int("project_packages", project.Len()),
	)
	return counts
}

// TotalInterClassEdges returns the sum of all counts, 0 for an empty table.
func TotalInterClassEdges(c Counts) int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// NormalizeToCouplingWeights divides every count by total.
//
// Returns an empty table when total <= 0.
func NormalizeToCouplingWeights(c Counts, total int) Weights {
	weights := make(Weights, len(c))
	if total <= 0 {
		return weights
	}
	for p, n := range c {
		weights[p] = float64(n) / float64(total)
	}
	return weights
}

// Aggregate runs the three aggregation steps on g.
//
// Outputs:
//
//	Counts - Pair counts.
//	Weights - Normalized weights, empty when no pair qualified.
//	int - Total inter-class relationships.
func (a *Aggregator) Aggregate(g CallGraph) (Counts, Weights, int) {
	counts := a.CountInterClassCalls(g)
	total := TotalInterClassEdges(counts)
	return counts, NormalizeToCouplingWeights(counts, total), total
}
