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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree creates:
//
//	Cluster_2 (0.25)
//	├── Cluster_1 (0.5)
//	│   ├── A
//	│   └── B
//	└── C
func buildTree(t *testing.T) *Node {
	t.Helper()

	ab, err := NewCluster(ClusterID(ClusterIDPrefix, 1), NewLeaf("A"), NewLeaf("B"), 0.5, 1)
	require.NoError(t, err)
	root, err := NewCluster(ClusterID(ClusterIDPrefix, 2), ab, NewLeaf("C"), 0.25, 2)
	require.NoError(t, err)
	return root
}

func TestNewLeaf(t *testing.T) {
	leaf := NewLeaf("com.app.Service")

	assert.True(t, leaf.IsLeaf())
	assert.Equal(t, "com.app.Service", leaf.ID())
	assert.Equal(t, []string{"com.app.Service"}, leaf.Classes())
	assert.Equal(t, 1, leaf.ClassCount())
	assert.Zero(t, leaf.Coupling())
	assert.Zero(t, leaf.Level())
	assert.Nil(t, leaf.Left())
	assert.Nil(t, leaf.Right())
	assert.Equal(t, "Leaf(com.app.Service)", leaf.String())
}

func TestNewCluster(t *testing.T) {
	root := buildTree(t)

	assert.False(t, root.IsLeaf())
	assert.Equal(t, "Cluster_2", root.ID())
	assert.Equal(t, []string{"A", "B", "C"}, root.Classes())
	assert.Equal(t, 3, root.ClassCount())
	assert.Equal(t, 0.25, root.Coupling())
	assert.Equal(t, 2, root.Level())
	assert.Equal(t, "Cluster(Cluster_2, coupling=0.250, classes=3)", root.String())
}

func TestNewCluster_Errors(t *testing.T) {
	_, err := NewCluster("x", nil, NewLeaf("A"), 0, 1)
	assert.ErrorIs(t, err, ErrNilChild)

	_, err = NewCluster("x", NewLeaf("A"), NewLeaf("A"), 0, 1)
	assert.ErrorIs(t, err, ErrOverlappingMembers)
}

func TestClasses_ReturnsCopy(t *testing.T) {
	root := buildTree(t)

	classes := root.Classes()
	classes[0] = "mutated"
	assert.Equal(t, []string{"A", "B", "C"}, root.Classes())
}

func TestWalk_Order(t *testing.T) {
	root := buildTree(t)

	var ids []string
	var depths []int
	Walk(root, func(n *Node, depth int) bool {
		ids = append(ids, n.ID())
		depths = append(depths, depth)
		return true
	})

	assert.Equal(t, []string{"Cluster_2", "Cluster_1", "A", "B", "C"}, ids)
	assert.Equal(t, []int{0, 1, 2, 2, 1}, depths)
}

func TestWalk_SkipChildren(t *testing.T) {
	root := buildTree(t)

	var ids []string
	Walk(root, func(n *Node, _ int) bool {
		ids = append(ids, n.ID())
		return n.ID() != "Cluster_1"
	})

	assert.Equal(t, []string{"Cluster_2", "Cluster_1", "C"}, ids)
}

func TestIDPrefixFor(t *testing.T) {
	assert.Equal(t, "Cluster_", IDPrefixFor(nil))
	assert.Equal(t, "Cluster_", IDPrefixFor([]string{"A", "com.app.Cluster_1", "Cluster"}))
	assert.Equal(t, "Cluster__", IDPrefixFor([]string{"A", "Cluster_1"}))
	assert.Equal(t, "Cluster___", IDPrefixFor([]string{"Cluster_1", "Cluster__x"}))
	assert.Equal(t, "Cluster_7", ClusterID(ClusterIDPrefix, 7))
}

func TestInternalNodes(t *testing.T) {
	root := buildTree(t)

	internal := InternalNodes(root)
	require.Len(t, internal, 2)
	assert.Equal(t, "Cluster_1", internal[0].ID())
	assert.Equal(t, 1, internal[0].Level())
	assert.Equal(t, 2, internal[1].Level())

	assert.Empty(t, InternalNodes(nil))
	assert.Empty(t, InternalNodes(NewLeaf("A")))
}

func TestNewView(t *testing.T) {
	assert.Nil(t, NewView(nil))

	v := NewView(buildTree(t))
	require.NotNil(t, v.Left)
	require.NotNil(t, v.Right)
	assert.Equal(t, "Cluster_2", v.ID)
	assert.Equal(t, "Cluster_1", v.Left.ID)
	assert.Equal(t, "C", v.Right.ID)
	assert.Nil(t, v.Right.Left)
}
