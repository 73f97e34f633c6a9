// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package callgraph reads already-built call graphs from disk and watches
// them for changes.
//
// A call graph file is a mapping from caller method identifier to a list of
// callee identifiers, in JSON or YAML:
//
//	{"com.app.OrderService.place": ["com.app.Invoice.create", "println"]}
//
//	com.app.OrderService.place:
//	  - com.app.Invoice.create
//	  - println
package callgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AleutianAI/modcluster/services/cluster/coupling"
	"gopkg.in/yaml.v3"
)

// Sentinel errors for call graph loading.
var (
	// ErrUnsupportedFormat is returned for file extensions other than
	// .json, .yaml and .yml.
	ErrUnsupportedFormat = errors.New("unsupported call graph format")

	// ErrInvalidCallGraph is returned when the document decodes but is not a
	// usable call graph (empty caller or callee identifiers).
	ErrInvalidCallGraph = errors.New("invalid call graph")
)

// Format is a call graph serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads and decodes the call graph at path.
func Load(path string) (coupling.CallGraph, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open call graph: %w", err)
	}
	defer f.Close()

	g, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Decode reads one call graph document from r.
//
// Description:
//
//	An empty document decodes to an empty graph. A caller mapped to null
//	has no callees. Empty caller or callee identifiers are rejected with
//	ErrInvalidCallGraph.
func Decode(r io.Reader, format Format) (coupling.CallGraph, error) {
	var g coupling.CallGraph

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&g); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&g); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if g == nil {
		g = coupling.CallGraph{}
	}
	if err := Validate(g); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks that every caller and callee identifier is non-empty.
// Callers are checked in sorted order so the reported error is stable.
func Validate(g coupling.CallGraph) error {
	callers := make([]string, 0, len(g))
	for caller := range g {
		callers = append(callers, caller)
	}
	sort.Strings(callers)

	for _, caller := range callers {
		if strings.TrimSpace(caller) == "" {
			return fmt.Errorf("%w: empty caller identifier", ErrInvalidCallGraph)
		}
		for i, callee := range g[caller] {
			if strings.TrimSpace(callee) == "" {
				return fmt.Errorf("%w: empty callee #%d of %s", ErrInvalidCallGraph, i, caller)
			}
		}
	}
	return nil
}

// GraphStats summarizes a call graph.
type GraphStats struct {
	Callers         int `json:"callers" yaml:"callers"`
	Edges           int `json:"edges" yaml:"edges"`
	DistinctCallees int `json:"distinct_callees" yaml:"distinct_callees"`
}

// Stats counts callers, call edges (duplicates included) and distinct callees.
func Stats(g coupling.CallGraph) GraphStats {
	callees := make(map[string]struct{})
	stats := GraphStats{Callers: len(g)}
	for _, list := range g {
		stats.Edges += len(list)
		for _, callee := range list {
			callees[callee] = struct{}{}
		}
	}
	stats.DistinctCallees = len(callees)
	return stats
}
