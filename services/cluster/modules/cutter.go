// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package modules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/modcluster/services/cluster/coupling"
	"github.com/AleutianAI/modcluster/services/cluster/dendrogram"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("cluster.modules")

// ErrUnknownCapPolicy is returned when parsing an unrecognised cap policy name.
var ErrUnknownCapPolicy = errors.New("unknown cap policy")

// =============================================================================
// CAP POLICY
// =============================================================================

// CapPolicy decides what happens to a node reached after the module bound
// has been hit.
type CapPolicy int

const (
	// CapStrict drops every node reached at the bound, so the module count
	// never exceeds MaxModules.
	CapStrict CapPolicy = iota

	// CapCompat still accepts a valid internal node reached at the bound.
	// The module count may then exceed MaxModules; Verify reports it.
	CapCompat
)

// String returns the config name of the policy.
func (p CapPolicy) String() string {
	switch p {
	case CapStrict:
		return "strict"
	case CapCompat:
		return "compat"
	default:
		return fmt.Sprintf("CapPolicy(%d)", int(p))
	}
}

// ParseCapPolicy parses "strict" or "compat" (case-insensitive). The empty
// string means CapStrict.
func ParseCapPolicy(s string) (CapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return CapStrict, nil
	case "compat":
		return CapCompat, nil
	default:
		return CapStrict, fmt.Errorf("%w: %q", ErrUnknownCapPolicy, s)
	}
}

// =============================================================================
// CUTTER
// =============================================================================

// Option is a functional option for configuring a Cutter.
type Option func(*Cutter)

// WithMinCoupling sets the minimum average coupling (CP) a module must reach.
// Values outside [0, 1] are accepted as given.
func WithMinCoupling(cp float64) Option {
	return func(c *Cutter) {
		c.minCoupling = cp
	}
}

// WithAcceptSingletons accepts leaves reached during the cut as one-class
// modules even when CP > 0.
func WithAcceptSingletons(accept bool) Option {
	return func(c *Cutter) {
		c.acceptSingletons = accept
	}
}

// WithCapPolicy sets the behavior at the module bound.
func WithCapPolicy(policy CapPolicy) Option {
	return func(c *Cutter) {
		c.capPolicy = policy
	}
}

// WithLogger sets the logger for acceptance diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cutter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Cutter turns a dendrogram into modules.
//
// Description:
//
//	Cuts the tree top-down: a node whose members reach the minimum average
//	coupling becomes a module, otherwise its children are tried, left first.
//	At most MaxModules(totalClasses) modules are produced under CapStrict.
//
// Thread Safety:
//
//	Safe for concurrent use. Identify keeps its state on the stack.
type Cutter struct {
	weights          coupling.Weights
	minCoupling      float64
	acceptSingletons bool
	capPolicy        CapPolicy
	logger           *slog.Logger
}

// NewCutter creates a Cutter scoring nodes with weights.
func NewCutter(weights coupling.Weights, opts ...Option) *Cutter {
	c := &Cutter{
		weights:   weights,
		capPolicy: CapStrict,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MinCoupling returns the configured CP threshold.
func (c *Cutter) MinCoupling() float64 { return c.minCoupling }

// CapPolicy returns the configured cap policy.
func (c *Cutter) CapPolicy() CapPolicy { return c.capPolicy }

// cutState carries the accumulated modules through the recursion.
type cutState struct {
	modules    []Module
	maxModules int
	capHit     bool
}

// Identify cuts root into modules.
//
// Description:
//
//	Depth-first, left before right:
//	  - once maxModules modules are accepted, descent stops. CapStrict drops
//	    the node; CapCompat still accepts a valid internal node.
//	  - a leaf is accepted when valid.
//	  - an internal node whose average coupling is >= CP is accepted whole,
//	    otherwise its children are cut.
//	A node is valid when it has members and its average coupling is >= CP.
//	Singletons average 0, so leaves need CP <= 0 or WithAcceptSingletons.
//
// Inputs:
//
//	ctx - Used for tracing only.
//	root - Dendrogram root. nil yields no modules.
//	totalClasses - Class count used for the bound MaxModules(totalClasses).
//
// Outputs:
//
//	[]Module - Accepted modules in cut order. Never nil.
func (c *Cutter) Identify(ctx context.Context, root *dendrogram.Node, totalClasses int) []Module {
	_, span := tracer.Start(ctx, "Cutter.Identify",
		trace.WithAttributes(
			attribute.Int("total_classes", totalClasses),
			attribute.Float64("min_coupling", c.minCoupling),
			attribute.String("cap_policy", c.capPolicy.String()),
		),
	)
	defer span.End()

	state := &cutState{
		modules:    make([]Module, 0),
		maxModules: MaxModules(totalClasses),
	}
	if root != nil {
		c.cut(root, state)
	}

	span.SetAttributes(
		attribute.Int("module_count", len(state.modules)),
		attribute.Bool("cap_hit", state.capHit),
	)
	c.logger.Debug("module cut complete",
		slog.Int("modules", len(state.modules)),
		slog.Int("max_modules", state.maxModules),
		slog.Float64("min_coupling", c.minCoupling),
		slog.Bool("cap_hit", state.capHit),
	)
	return state.modules
}

func (c *Cutter) cut(n *dendrogram.Node, state *cutState) {
	if len(state.modules) >= state.maxModules {
		if !state.capHit {
			state.capHit = true
			c.logger.Debug("module limit reached, stopping cut",
				slog.Int("max_modules", state.maxModules),
			)
		}
		if c.capPolicy == CapCompat && !n.IsLeaf() {
			c.acceptIfValid(n, state)
		}
		return
	}

	if n.IsLeaf() {
		c.acceptIfValid(n, state)
		return
	}

	avg := AverageCoupling(n.Members(), c.weights)
	if avg >= c.minCoupling {
		c.acceptIfValid(n, state)
		return
	}

	c.logger.Debug("cluster below threshold, splitting",
		slog.String("node", n.ID()),
		slog.Float64("coupling", avg),
	)
	c.cut(n.Left(), state)
	c.cut(n.Right(), state)
}

func (c *Cutter) acceptIfValid(n *dendrogram.Node, state *cutState) {
	if n.ClassCount() == 0 {
		return
	}
	avg := AverageCoupling(n.Members(), c.weights)
	if avg >= c.minCoupling || (c.acceptSingletons && n.IsLeaf()) {
		m := newModule(n, avg)
		state.modules = append(state.modules, m)
		c.logger.Debug("module accepted",
			slog.String("module", m.ID),
			slog.Int("classes", m.ClassCount),
			slog.Float64("coupling", avg),
		)
		return
	}
	c.logger.Debug("cluster rejected, insufficient coupling",
		slog.String("node", n.ID()),
		slog.Float64("coupling", avg),
	)
}
