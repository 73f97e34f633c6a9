// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package coupling derives inter-class coupling from a method-level call graph.
//
// A call graph maps fully-qualified caller methods ("pkg.Class.method") to the
// methods they call. The Aggregator folds it into a symmetric class-pair count
// table (Counts) and a normalized weight table (Weights) whose values sum to 1.
//
// # Pair Keys
//
// Both tables are keyed by Pair, a canonical unordered class pair with A < B.
// A pair is never stored in both directions. Use NewPair to build keys and
// Weights.Between to look up coupling regardless of argument order.
//
// # Thread Safety
//
// Counts and Weights are plain maps. They are safe for concurrent reads once
// built and MUST NOT be mutated by downstream stages.
package coupling

import (
	"sort"
)

// CallGraph maps a caller method identifier to the identifiers it calls.
//
// Callee identifiers are fully-qualified when the producer could resolve
// them, otherwise a bare method name. Duplicate callees in one list are
// allowed and do not inflate counts.
type CallGraph map[string][]string

// Pair is a canonical unordered pair of class identifiers with A < B.
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewPair returns the canonical pair for two class identifiers.
func NewPair(x, y string) Pair {
	if x <= y {
		return Pair{A: x, B: y}
	}
	return Pair{A: y, B: x}
}

// String returns "A <-> B".
func (p Pair) String() string {
	return p.A + " <-> " + p.B
}

// Counts maps a class pair to the number of distinct call relationships
// observed between the two classes.
type Counts map[Pair]int

// Get returns the count for two classes in either order.
func (c Counts) Get(x, y string) int {
	if n, ok := c[Pair{A: x, B: y}]; ok {
		return n
	}
	return c[Pair{A: y, B: x}]
}

// Classes returns every class that appears in at least one pair, sorted.
func (c Counts) Classes() []string {
	seen := make(map[string]struct{}, len(c)*2)
	for p := range c {
		seen[p.A] = struct{}{}
		seen[p.B] = struct{}{}
	}
	return sortedKeys(seen)
}

// Pairs returns the keys of the table sorted by (A, B).
func (c Counts) Pairs() []Pair {
	pairs := make([]Pair, 0, len(c))
	for p := range c {
		pairs = append(pairs, p)
	}
	sortPairs(pairs)
	return pairs
}

// Nested returns the table as a two-level map keyed A -> B -> count.
func (c Counts) Nested() map[string]map[string]int {
	out := make(map[string]map[string]int)
	for p, n := range c {
		inner, ok := out[p.A]
		if !ok {
			inner = make(map[string]int)
			out[p.A] = inner
		}
		inner[p.B] = n
	}
	return out
}

// Weights maps a class pair to its normalized coupling in [0, 1].
type Weights map[Pair]float64

// Between returns the coupling between two classes.
//
// The weight is looked up in either stored direction. Missing pairs have
// coupling 0; a missing weight is never an error.
func (w Weights) Between(x, y string) float64 {
	if v, ok := w[Pair{A: x, B: y}]; ok {
		return v
	}
	if v, ok := w[Pair{A: y, B: x}]; ok {
		return v
	}
	return 0
}

// Pairs returns the keys of the table sorted by (A, B).
func (w Weights) Pairs() []Pair {
	pairs := make([]Pair, 0, len(w))
	for p := range w {
		pairs = append(pairs, p)
	}
	sortPairs(pairs)
	return pairs
}

// Nested returns the table as a two-level map keyed A -> B -> weight.
func (w Weights) Nested() map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for p, v := range w {
		inner, ok := out[p.A]
		if !ok {
			inner = make(map[string]float64)
			out[p.A] = inner
		}
		inner[p.B] = v
	}
	return out
}

func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
