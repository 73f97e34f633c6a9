// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dendrogram provides the binary merge tree produced by agglomerative
// clustering.
//
// # Ownership Model
//
// A Node is either a leaf (one class) or an internal node that exclusively
// owns its two children. Nodes are immutable: every field is set by the
// constructor and only exposed through accessors. The tree grows by building
// new parents over existing nodes, never by mutating them.
//
// # Thread Safety
//
// Nodes are safe for concurrent reads.
package dendrogram

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for node construction.
var (
	// ErrNilChild is returned when an internal node is built with a nil child.
	ErrNilChild = errors.New("internal node requires two non-nil children")

	// ErrOverlappingMembers is returned when two children share a class.
	ErrOverlappingMembers = errors.New("children have overlapping member classes")
)

// ClusterIDPrefix is the default prefix of internal node IDs.
const ClusterIDPrefix = "Cluster_"

// Node is a leaf class or a merged cluster in the dendrogram.
type Node struct {
	id       string
	classes  []string
	left     *Node
	right    *Node
	coupling float64
	level    int
}

// NewLeaf creates a leaf node for a single class.
//
// The leaf's ID is the class name; coupling and level are 0.
func NewLeaf(class string) *Node {
	return &Node{
		id:      class,
		classes: []string{class},
	}
}

// NewCluster creates an internal node merging left and right.
//
// Description:
//
//	The member set is the union of the children's members, which must be
//	disjoint. coupling is the inter-cluster coupling that won the merge and
//	level is the 1-based merge iteration.
//
// Outputs:
//
//	*Node - The merged node.
//	error - ErrNilChild or ErrOverlappingMembers.
func NewCluster(id string, left, right *Node, coupling float64, level int) (*Node, error) {
	if left == nil || right == nil {
		return nil, ErrNilChild
	}

	classes := make([]string, 0, len(left.classes)+len(right.classes))
	classes = append(classes, left.classes...)
	classes = append(classes, right.classes...)
	sort.Strings(classes)
	for i := 1; i < len(classes); i++ {
		if classes[i] == classes[i-1] {
			return nil, fmt.Errorf("%w: %s", ErrOverlappingMembers, classes[i])
		}
	}

	return &Node{
		id:       id,
		classes:  classes,
		left:     left,
		right:    right,
		coupling: coupling,
		level:    level,
	}, nil
}

// ClusterID returns the ID given to the internal node created at iteration.
func ClusterID(prefix string, iteration int) string {
	return fmt.Sprintf("%s%d", prefix, iteration)
}

// IDPrefixFor returns ClusterIDPrefix, extended with underscores until no
// class in classes starts with it. Internal node IDs built from the result
// never equal a class name, so leaf and cluster IDs stay distinct.
func IDPrefixFor(classes []string) string {
	prefix := ClusterIDPrefix
	for {
		clash := false
		for _, class := range classes {
			if strings.HasPrefix(class, prefix) {
				clash = true
				break
			}
		}
		if !clash {
			return prefix
		}
		prefix += "_"
	}
}

// ID returns the node identifier: the class name for leaves, Cluster_<n> otherwise.
func (n *Node) ID() string { return n.id }

// IsLeaf reports whether the node is a single class.
func (n *Node) IsLeaf() bool { return n.left == nil && n.right == nil }

// Left returns the left child, nil for leaves.
func (n *Node) Left() *Node { return n.left }

// Right returns the right child, nil for leaves.
func (n *Node) Right() *Node { return n.right }

// Coupling returns the inter-cluster coupling recorded at merge time.
func (n *Node) Coupling() float64 { return n.coupling }

// Level returns the merge iteration that created the node, 0 for leaves.
func (n *Node) Level() int { return n.level }

// ClassCount returns the number of member classes.
func (n *Node) ClassCount() int { return len(n.classes) }

// Classes returns a sorted copy of the member classes.
func (n *Node) Classes() []string {
	out := make([]string, len(n.classes))
	copy(out, n.classes)
	return out
}

// String returns a short description of the node.
func (n *Node) String() string {
	if n.IsLeaf() {
		return "Leaf(" + n.id + ")"
	}
	return fmt.Sprintf("Cluster(%s, coupling=%.3f, classes=%d)", n.id, n.coupling, len(n.classes))
}

// Members returns the sorted member slice without copying.
//
// Callers MUST NOT modify the returned slice. Used by the pairwise loops of
// the clusterer and the module cutter; everything else should use Classes.
func (n *Node) Members() []string { return n.classes }
