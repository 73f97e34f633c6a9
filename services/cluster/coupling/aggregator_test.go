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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Fixtures
// =============================================================================

// dedupGraph is the classic dedup scenario:
//
//	A.m1 -> B.x
//	A.m2 -> B.x   (same callee, counted once)
//	B.y  -> C.z
//	C.w  -> A.m1
func dedupGraph() CallGraph {
	return CallGraph{
		"A.m1": {"B.x"},
		"A.m2": {"B.x"},
		"B.y":  {"C.z"},
		"C.w":  {"A.m1"},
	}
}

// qualifiedGraph has a project rooted at com.shop with one external callee.
func qualifiedGraph() CallGraph {
	return CallGraph{
		"com.shop.order.OrderService.place": {
			"com.shop.order.OrderRepository.save",
			"com.shop.billing.Invoice.create",
			"com.shop.order.OrderService.validate",
			"println",
		},
		"com.shop.order.OrderRepository.save": {
			"com.shop.db.Connection.exec",
		},
		"com.shop.billing.Invoice.create": {
			"com.shop.order.OrderService.total",
			"Connection.exec",
		},
	}
}

// =============================================================================
// CountInterClassCalls
// =============================================================================

func TestCountInterClassCalls_DedupScenario(t *testing.T) {
	agg := NewAggregator()
	counts := agg.CountInterClassCalls(dedupGraph())

	assert.Equal(t, 1, counts.Get("A", "B"))
	assert.Equal(t, 1, counts.Get("A", "C"))
	assert.Equal(t, 1, counts.Get("B", "C"))
	assert.Len(t, counts, 3)

	total := TotalInterClassEdges(counts)
	assert.Equal(t, 3, total)

	weights := NormalizeToCouplingWeights(counts, total)
	for _, p := range weights.Pairs() {
		assert.InDelta(t, 1.0/3.0, weights[p], 1e-9, "pair %s", p)
	}
}

func TestCountInterClassCalls_DistinctCalleesAndDirections(t *testing.T) {
	g := CallGraph{
		"A.m": {"B.x", "B.y"},
		"B.z": {"A.m"},
	}
	counts := NewAggregator().CountInterClassCalls(g)

	// B.x, B.y and the reverse call A.m are three distinct relationships.
	assert.Equal(t, 3, counts.Get("A", "B"))
}

func TestCountInterClassCalls_SkipsSelfCallsAndUnresolved(t *testing.T) {
	g := CallGraph{
		"app.A.m": {"app.A.n", "helper", ".x", "app.B.run"},
	}
	counts := NewAggregator().CountInterClassCalls(g)

	require.Len(t, counts, 1)
	assert.Equal(t, 1, counts.Get("app.A", "app.B"))
}

func TestCountInterClassCalls_QualifiedProject(t *testing.T) {
	agg := NewAggregator()
	counts := agg.CountInterClassCalls(qualifiedGraph())

	assert.Equal(t, 1, counts.Get("com.shop.order.OrderService", "com.shop.order.OrderRepository"))
	// place -> Invoice.create and create -> OrderService.total are distinct callees.
	assert.Equal(t, 2, counts.Get("com.shop.order.OrderService", "com.shop.billing.Invoice"))
	assert.Equal(t, 1, counts.Get("com.shop.order.OrderRepository", "com.shop.db.Connection"))
	// "Connection.exec" matches no caller class, so it stays in the unnamed package.
	assert.Equal(t, 1, counts.Get("com.shop.billing.Invoice", "Connection"))

	assert.Contains(t, agg.DetectedPackages(), "com.shop.order")
	assert.Contains(t, agg.DetectedPackages(), "com.shop.billing")
}

func TestCountInterClassCalls_SimpleNameResolvesToCallerClass(t *testing.T) {
	g := CallGraph{
		"com.app.Service.run":  {"repository.load"},
		"com.app.Repository.x": {},
	}
	counts := NewAggregator().CountInterClassCalls(g)

	assert.Equal(t, 1, counts.Get("com.app.Repository", "com.app.Service"))
}

func TestCountInterClassCalls_FixedProjectPackages(t *testing.T) {
	g := CallGraph{
		"com.app.A.m":    {"com.app.B.n", "org.lib.Util.call"},
		"org.lib.Util.x": {"com.app.A.m"},
	}

	detected := NewAggregator().CountInterClassCalls(g)
	// Detection treats every observed package as part of the project.
	assert.Equal(t, 2, detected.Get("com.app.A", "org.lib.Util"))

	fixed := NewAggregator(WithProjectPackages([]string{"com.app"})).CountInterClassCalls(g)
	assert.Equal(t, 0, fixed.Get("com.app.A", "org.lib.Util"))
	assert.Equal(t, 1, fixed.Get("com.app.A", "com.app.B"))
}

func TestCountInterClassCalls_EmptyGraph(t *testing.T) {
	agg := NewAggregator()

	counts := agg.CountInterClassCalls(nil)
	require.NotNil(t, counts)
	assert.Empty(t, counts)
	assert.Empty(t, agg.DetectedPackages())
}

func TestCountInterClassCalls_ResetsDetectionBetweenRuns(t *testing.T) {
	agg := NewAggregator()

	agg.CountInterClassCalls(CallGraph{"com.one.A.m": {"com.one.B.n"}})
	assert.Equal(t, []string{"com.one"}, agg.DetectedPackages())

	agg.CountInterClassCalls(CallGraph{"org.two.C.m": {"org.two.D.n"}})
	assert.Equal(t, []string{"org.two"}, agg.DetectedPackages())

	agg.ResetPackageDetection()
	assert.Empty(t, agg.DetectedPackages())
}

// =============================================================================
// Properties
// =============================================================================

func TestCounts_PairCanonicalization(t *testing.T) {
	counts := NewAggregator().CountInterClassCalls(qualifiedGraph())

	for p := range counts {
		assert.Less(t, p.A, p.B, "pair %s is not canonical", p)
		_, reversed := counts[Pair{A: p.B, B: p.A}]
		assert.False(t, reversed, "pair %s stored in both directions", p)
	}
}

func TestWeights_Conservation(t *testing.T) {
	counts, weights, total := NewAggregator().Aggregate(qualifiedGraph())

	sum := 0
	for _, n := range counts {
		sum += n
	}
	assert.Equal(t, total, sum)

	weightSum := 0.0
	for _, w := range weights {
		weightSum += w
	}
	assert.InDelta(t, 1.0, weightSum, 1e-9)
}

func TestNormalizeToCouplingWeights_NonPositiveTotal(t *testing.T) {
	counts := Counts{NewPair("A", "B"): 2}

	assert.Empty(t, NormalizeToCouplingWeights(counts, 0))
	assert.Empty(t, NormalizeToCouplingWeights(counts, -5))
	assert.Empty(t, NormalizeToCouplingWeights(nil, 0))
}

func TestTotalInterClassEdges(t *testing.T) {
	assert.Equal(t, 0, TotalInterClassEdges(nil))
	assert.Equal(t, 10, TotalInterClassEdges(Counts{
		NewPair("A", "B"): 5,
		NewPair("B", "C"): 3,
		NewPair("A", "C"): 2,
	}))
}
