// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dendrogram

import "sort"

// VisitFunc is called for every node during Walk. Returning false skips the
// node's children.
type VisitFunc func(n *Node, depth int) bool

// Walk visits the tree depth-first, parent before children, left before right.
//
// A nil root is a no-op.
func Walk(root *Node, visit VisitFunc) {
	if root == nil {
		return
	}
	walk(root, 0, visit)
}

func walk(n *Node, depth int, visit VisitFunc) {
	if !visit(n, depth) || n.IsLeaf() {
		return
	}
	walk(n.left, depth+1, visit)
	walk(n.right, depth+1, visit)
}

// InternalNodes returns the merge nodes ordered by level, first merge first.
func InternalNodes(root *Node) []*Node {
	var nodes []*Node
	Walk(root, func(n *Node, _ int) bool {
		if !n.IsLeaf() {
			nodes = append(nodes, n)
		}
		return true
	})
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].level < nodes[j].level
	})
	return nodes
}

// View is a serializable snapshot of a dendrogram subtree.
type View struct {
	ID       string   `json:"id" yaml:"id"`
	Classes  []string `json:"classes" yaml:"classes"`
	Coupling float64  `json:"coupling" yaml:"coupling"`
	Level    int      `json:"level" yaml:"level"`
	Left     *View    `json:"left,omitempty" yaml:"left,omitempty"`
	Right    *View    `json:"right,omitempty" yaml:"right,omitempty"`
}

// NewView builds a View of the subtree rooted at n. Returns nil for a nil node.
func NewView(n *Node) *View {
	if n == nil {
		return nil
	}
	v := &View{
		ID:       n.id,
		Classes:  n.Classes(),
		Coupling: n.coupling,
		Level:    n.level,
	}
	if !n.IsLeaf() {
		v.Left = NewView(n.left)
		v.Right = NewView(n.right)
	}
	return v
}
