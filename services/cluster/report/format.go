// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/modcluster/services/cluster"
)

// ErrUnknownFormat is returned for an unrecognised report format name.
var ErrUnknownFormat = errors.New("unknown report format")

// Format selects a clustering report rendering.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatDOT  Format = "dot"
	FormatTree Format = "tree"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatText, FormatCSV, FormatJSON, FormatYAML, FormatDOT, FormatTree}
}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file extension used when writing f to disk.
func (f Format) Extension() string {
	switch f {
	case FormatText, FormatTree:
		return ".txt"
	case FormatYAML:
		return ".yaml"
	default:
		return "." + string(f)
	}
}

// Options tunes the coupling graph renderings.
type Options struct {
	// MinWeight hides edges lighter than this in DOT output.
	MinWeight float64

	// MaxNodes limits DOT output to the first MaxNodes classes. 0 means all.
	MaxNodes int
}

// Render writes r in format f.
//
// DOT renders the coupling graph; every other format renders the clustering.
func Render(w io.Writer, f Format, r *cluster.Result, opts Options) error {
	switch f {
	case FormatText:
		return WriteText(w, r)
	case FormatCSV:
		return WriteModulesCSV(w, r)
	case FormatJSON:
		return WriteResultJSON(w, r)
	case FormatYAML:
		return WriteResultYAML(w, r)
	case FormatDOT:
		return NewCouplingGraph(r.Counts, r.Weights, r.TotalEdges).WriteDOT(w, opts.MinWeight, opts.MaxNodes)
	case FormatTree:
		return WriteDendrogram(w, r.Root)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}
