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
	"sort"
	"strings"
)

// ClassOf returns the class identifier of a method identifier.
//
// The class is everything before the last dot. Identifiers without a dot, or
// whose only dot is the first character, are unresolved and return false.
//
//	ClassOf("app.service.UserService.save") // "app.service.UserService", true
//	ClassOf("save")                         // "", false
func ClassOf(method string) (string, bool) {
	lastDot := strings.LastIndex(method, ".")
	if lastDot <= 0 {
		return "", false
	}
	return method[:lastDot], true
}

// PackageOf returns the package part of a class identifier.
//
// A class without a dot lives in the unnamed package "".
func PackageOf(class string) string {
	lastDot := strings.LastIndex(class, ".")
	if lastDot < 0 {
		return ""
	}
	return class[:lastDot]
}

// ShortName returns the class name without its package.
func ShortName(class string) string {
	lastDot := strings.LastIndex(class, ".")
	if lastDot < 0 {
		return class
	}
	return class[lastDot+1:]
}

// classResolver maps method identifiers to class identifiers for one call graph.
//
// Callees are often recorded with a simple class name ("UserService.save")
// because the producer could not resolve the package. Those are matched
// case-insensitively against the short names of the caller classes. The first
// caller in sorted order wins so resolution is deterministic.
type classResolver struct {
	byShortName map[string]string
}

// newClassResolver indexes the caller classes of g.
func newClassResolver(g CallGraph) *classResolver {
	callers := make([]string, 0, len(g))
	for caller := range g {
		callers = append(callers, caller)
	}
	sort.Strings(callers)

	index := make(map[string]string, len(callers))
	for _, caller := range callers {
		class, ok := ClassOf(caller)
		if !ok {
			continue
		}
		key := strings.ToLower(ShortName(class))
		if _, exists := index[key]; !exists {
			index[key] = class
		}
	}
	return &classResolver{byShortName: index}
}

// classOf resolves a method identifier to its class.
func (r *classResolver) classOf(method string) (string, bool) {
	class, ok := ClassOf(method)
	if !ok {
		return "", false
	}
	if strings.Contains(class, ".") {
		return class, true
	}
	if full, found := r.byShortName[strings.ToLower(class)]; found {
		return full, true
	}
	return class, true
}
