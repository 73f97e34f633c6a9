// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package clustering builds a dendrogram by agglomerative, average-link
// clustering of classes driven by coupling weights.
package clustering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/modcluster/services/cluster/coupling"
	"github.com/AleutianAI/modcluster/services/cluster/dendrogram"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("cluster.clustering")

// ErrEmptyInput is returned by Cluster when the coupling matrix has no classes.
// No root is fabricated in that case.
var ErrEmptyInput = errors.New("no classes to cluster")

// Option is a functional option for configuring a Clusterer.
type Option func(*Clusterer)

// WithLogger sets the logger for merge diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Clusterer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCancelCheckEvery sets how many merge iterations run between context
// checks. Values below 1 are ignored; the default checks every iteration.
func WithCancelCheckEvery(n int) Option {
	return func(c *Clusterer) {
		if n >= 1 {
			c.checkEvery = n
		}
	}
}

// MergeObserver is called after every merge with the new node.
type MergeObserver func(merged *dendrogram.Node)

// WithMergeObserver registers a callback invoked after every merge.
func WithMergeObserver(observer MergeObserver) Option {
	return func(c *Clusterer) {
		c.observer = observer
	}
}

// Clusterer performs agglomerative clustering over a set of classes.
//
// Description:
//
//	The class universe is every class appearing in the count table, sorted
//	lexicographically. Coupling between classes comes from the weight table;
//	missing pairs have coupling 0. Internal nodes are named Cluster_<n>
//	unless a class name starts with that prefix; see dendrogram.IDPrefixFor.
//
// Thread Safety:
//
//	Safe for concurrent use. Cluster does not mutate the Clusterer or the
//	tables it was built from.
type Clusterer struct {
	weights    coupling.Weights
	classes    []string
	idPrefix   string
	logger     *slog.Logger
	observer   MergeObserver
	checkEvery int
}

// New creates a Clusterer for the classes in counts, using weights as the
// similarity measure.
func New(counts coupling.Counts, weights coupling.Weights, opts ...Option) *Clusterer {
	classes := counts.Classes()
	c := &Clusterer{
		weights:    weights,
		classes:    classes,
		idPrefix:   dendrogram.IDPrefixFor(classes),
		logger:     slog.Default(),
		checkEvery: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classes returns the sorted class universe.
func (c *Clusterer) Classes() []string {
	out := make([]string, len(c.classes))
	copy(out, c.classes)
	return out
}

// candidate is the best merge found during one scan.
type candidate struct {
	i, j     int
	coupling float64
}

// Cluster merges clusters until a single root remains.
//
// Description:
//
//	Starts with one leaf per class. Each iteration scans every pair (i, j),
//	i < j, of active clusters in list order, scores it with the average
//	weight over all cross-cluster class pairs, and merges the pair with the
//	strictly greatest score. Ties go to the pair found first. The two
//	children are removed (order preserved) and the merged node appended.
//
//	Merge couplings are not guaranteed to decrease monotonically.
//
// Inputs:
//
//	ctx - Context for cancellation, checked between iterations (see
//	      WithCancelCheckEvery).
//
// Outputs:
//
//	*dendrogram.Node - The root. A single class yields its leaf.
//	error - ErrEmptyInput when there are no classes, ctx.Err() when cancelled.
//
// Complexity: O(k²) cluster pairs per iteration, each O(|c1|·|c2|) lookups.
func (c *Clusterer) Cluster(ctx context.Context) (*dendrogram.Node, error) {
	ctx, span := tracer.Start(ctx, "Clusterer.Cluster",
		trace.WithAttributes(attribute.Int("class_count", len(c.classes))),
	)
	defer span.End()

	if len(c.classes) == 0 {
		span.AddEvent("empty_input")
		return nil, ErrEmptyInput
	}

	clusters := make([]*dendrogram.Node, 0, len(c.classes))
	for _, class := range c.classes {
		clusters = append(clusters, dendrogram.NewLeaf(class))
	}

	iteration := 0
	for len(clusters) > 1 {
		if iteration%c.checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				span.AddEvent("cancelled", trace.WithAttributes(
					attribute.Int("iterations_completed", iteration),
				))
				return nil, err
			}
		}
		iteration++

		best := c.closestPair(clusters)
		left, right := clusters[best.i], clusters[best.j]

		merged, err := dendrogram.NewCluster(dendrogram.ClusterID(c.idPrefix, iteration), left, right, best.coupling, iteration)
		if err != nil {
			return nil, fmt.Errorf("merge %s and %s: %w", left.ID(), right.ID(), err)
		}

		c.logger.Debug("merged clusters",
			slog.Int("iteration", iteration),
			slog.String("left", left.ID()),
			slog.String("right", right.ID()),
			slog.Float64("coupling", best.coupling),
			slog.Int("remaining", len(clusters)-1),
		)

		// j > i, so removing j first keeps i valid.
		clusters = append(clusters[:best.j], clusters[best.j+1:]...)
		clusters = append(clusters[:best.i], clusters[best.i+1:]...)
		clusters = append(clusters, merged)

		if c.observer != nil {
			c.observer(merged)
		}
	}

	root := clusters[0]
	span.SetAttributes(attribute.Int("iterations", iteration))
	c.logger.Debug("clustering complete",
		slog.Int("classes", len(c.classes)),
		slog.Int("iterations", iteration),
		slog.String("root", root.ID()),
	)
	return root, nil
}

// closestPair returns the pair of clusters with the greatest average coupling.
// Requires at least two clusters.
func (c *Clusterer) closestPair(clusters []*dendrogram.Node) candidate {
	best := candidate{i: -1, j: -1, coupling: -1}
	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			score := InterClusterCoupling(clusters[i], clusters[j], c.weights)
			if score > best.coupling {
				best = candidate{i: i, j: j, coupling: score}
			}
		}
	}
	return best
}

// InterClusterCoupling returns the mean weight over all pairs (x, y) with x in
// a and y in b. Returns 0 when either cluster is empty.
func InterClusterCoupling(a, b *dendrogram.Node, weights coupling.Weights) float64 {
	left, right := a.Members(), b.Members()
	if len(left) == 0 || len(right) == 0 {
		return 0
	}
	total := 0.0
	for _, x := range left {
		for _, y := range right {
			total += weights.Between(x, y)
		}
	}
	return total / float64(len(left)*len(right))
}
