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

import "strings"

// PackageSet is the set of packages considered part of the analyzed project.
//
// Description:
//
//	A class is a project class when its package equals a member of the set,
//	or when one of the two is a dotted prefix of the other. "com.app" and
//	"com.app.service" are therefore the same project, while "com.application"
//	is not. The unnamed package "" only matches itself.
//
// Thread Safety:
//
//	Not safe for concurrent mutation. Each Aggregator owns its own set.
type PackageSet struct {
	packages map[string]struct{}
}

// NewPackageSet returns a set holding the given packages.
func NewPackageSet(packages ...string) *PackageSet {
	s := &PackageSet{packages: make(map[string]struct{}, len(packages))}
	for _, p := range packages {
		s.packages[p] = struct{}{}
	}
	return s
}

// Add inserts a package.
func (s *PackageSet) Add(pkg string) {
	s.packages[pkg] = struct{}{}
}

// Reset empties the set.
func (s *PackageSet) Reset() {
	s.packages = make(map[string]struct{})
}

// Len returns the number of packages in the set.
func (s *PackageSet) Len() int {
	return len(s.packages)
}

// List returns the packages sorted.
func (s *PackageSet) List() []string {
	return sortedKeys(s.packages)
}

// ContainsClass reports whether class belongs to a project package.
func (s *PackageSet) ContainsClass(class string) bool {
	if class == "" {
		return false
	}
	pkg := PackageOf(class)
	if _, ok := s.packages[pkg]; ok {
		return true
	}
	if pkg == "" {
		return false
	}
	for project := range s.packages {
		if project == "" {
			continue
		}
		if strings.HasPrefix(pkg, project+".") || strings.HasPrefix(project, pkg+".") {
			return true
		}
	}
	return false
}

// detect adds the package of every resolvable caller and callee class of g.
func (s *PackageSet) detect(g CallGraph, resolver *classResolver) {
	for caller, callees := range g {
		if class, ok := resolver.classOf(caller); ok {
			s.Add(PackageOf(class))
		}
		for _, callee := range callees {
			if class, ok := resolver.classOf(callee); ok {
				s.Add(PackageOf(class))
			}
		}
	}
}
