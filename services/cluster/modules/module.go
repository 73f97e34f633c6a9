// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package modules cuts a dendrogram into a bounded set of cohesive modules.
package modules

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/modcluster/services/cluster/coupling"
	"github.com/AleutianAI/modcluster/services/cluster/dendrogram"
)

// ModuleIDPrefix prefixes every module ID; the rest is the source node's ID.
const ModuleIDPrefix = "Module_"

// Module is a group of classes accepted by the cutter.
type Module struct {
	// ID is ModuleIDPrefix followed by the dendrogram node ID.
	ID string `json:"id" yaml:"id"`

	// Classes are the member classes, sorted.
	Classes []string `json:"classes" yaml:"classes"`

	// ClassCount is len(Classes).
	ClassCount int `json:"class_count" yaml:"class_count"`

	// AverageCoupling is the mean weight over all distinct member pairs.
	// 0 for a singleton.
	AverageCoupling float64 `json:"average_coupling" yaml:"average_coupling"`
}

// newModule builds a Module from a dendrogram node.
func newModule(n *dendrogram.Node, avg float64) Module {
	return Module{
		ID:              ModuleIDPrefix + n.ID(),
		Classes:         n.Classes(),
		ClassCount:      n.ClassCount(),
		AverageCoupling: avg,
	}
}

// Contains reports whether class belongs to the module.
func (m Module) Contains(class string) bool {
	for _, c := range m.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// String returns a one-line description of the module.
func (m Module) String() string {
	return fmt.Sprintf("%s (%d classes, coupling=%.4f): [%s]",
		m.ID, m.ClassCount, m.AverageCoupling, strings.Join(m.Classes, ", "))
}

// MaxModules returns the module-count bound for totalClasses classes: floor(N/2).
func MaxModules(totalClasses int) int {
	return totalClasses / 2
}

// AverageCoupling returns the mean weight over every distinct pair of classes.
//
// Fewer than two classes yields 0. Missing weights count as 0.
func AverageCoupling(classes []string, w coupling.Weights) float64 {
	if len(classes) < 2 {
		return 0
	}
	total := 0.0
	pairs := 0
	for i := 0; i < len(classes); i++ {
		for j := i + 1; j < len(classes); j++ {
			total += w.Between(classes[i], classes[j])
			pairs++
		}
	}
	return total / float64(pairs)
}
