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
	"log/slog"
	"sort"
)

// Verification reports how a module list relates to the cut constraints.
type Verification struct {
	MaxModules       int      `json:"max_modules" yaml:"max_modules"`
	ModuleCount      int      `json:"module_count" yaml:"module_count"`
	WithinBound      bool     `json:"within_bound" yaml:"within_bound"`
	AllMeetThreshold bool     `json:"all_meet_threshold" yaml:"all_meet_threshold"`
	Failing          []string `json:"failing,omitempty" yaml:"failing,omitempty"`
	Unassigned       []string `json:"unassigned,omitempty" yaml:"unassigned,omitempty"`
}

// Verify checks mods against the bound and the CP threshold.
//
// Description:
//
//	Diagnostic only; mods is never modified. Failing lists modules whose
//	average coupling is below CP (possible with WithAcceptSingletons).
//	Unassigned lists the classes in universe that no module contains,
//	sorted; pass nil to skip that check.
func (c *Cutter) Verify(mods []Module, totalClasses int, universe []string) Verification {
	v := Verification{
		MaxModules:       MaxModules(totalClasses),
		ModuleCount:      len(mods),
		AllMeetThreshold: true,
	}
	v.WithinBound = v.ModuleCount <= v.MaxModules

	assigned := make(map[string]struct{})
	for _, m := range mods {
		if m.AverageCoupling < c.minCoupling {
			v.AllMeetThreshold = false
			v.Failing = append(v.Failing, m.ID)
		}
		for _, class := range m.Classes {
			assigned[class] = struct{}{}
		}
	}
	for _, class := range universe {
		if _, ok := assigned[class]; !ok {
			v.Unassigned = append(v.Unassigned, class)
		}
	}
	sort.Strings(v.Unassigned)

	c.logger.Debug("module constraints verified",
		slog.Int("modules", v.ModuleCount),
		slog.Int("max_modules", v.MaxModules),
		slog.Bool("within_bound", v.WithinBound),
		slog.Bool("all_meet_threshold", v.AllMeetThreshold),
		slog.Int("unassigned", len(v.Unassigned)),
	)
	return v
}
