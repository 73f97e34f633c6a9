// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the modcluster YAML configuration.
package config

import (
	"time"

	"github.com/AleutianAI/modcluster/services/cluster/telemetry"
)

// ModclusterConfig is the root of modcluster.yaml.
type ModclusterConfig struct {
	// Clustering: thresholds and cut policy
	Clustering ClusteringConfig `yaml:"clustering"`

	// Report: output formats and coupling graph rendering
	Report ReportConfig `yaml:"report"`

	// Server: HTTP API settings for `modcluster serve`
	Server ServerConfig `yaml:"server"`

	// Logging: slog level and handler format
	Logging LoggingConfig `yaml:"logging"`

	// Telemetry: OpenTelemetry exporters
	Telemetry telemetry.Config `yaml:"telemetry"`
}

type ClusteringConfig struct {
	MinCoupling      float64 `yaml:"min_coupling" validate:"gte=0,lte=1"` // e.g. 0.3
	AcceptSingletons bool    `yaml:"accept_singletons"`
	CapPolicy        string  `yaml:"cap_policy" validate:"cappolicy"` // strict | compat

	// ProjectPackages fixes the project package set; empty means detect
	ProjectPackages []string `yaml:"project_packages,omitempty"`
}

type ReportConfig struct {
	MinWeight float64  `yaml:"min_weight" validate:"gte=0,lte=1"`
	MaxNodes  int      `yaml:"max_nodes" validate:"gte=0"` // 0 = all classes
	Formats   []string `yaml:"formats" validate:"dive,oneof=text csv json yaml dot tree"`
	OutputDir string   `yaml:"output_dir"` // empty = stdout
}

type ServerConfig struct {
	Port         int           `yaml:"port" validate:"gte=1,lte=65535"`
	RateLimit    float64       `yaml:"rate_limit" validate:"gte=0"` // requests/second per client, 0 = off
	Burst        int           `yaml:"burst" validate:"gte=0"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" validate:"gte=0"`
	Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() ModclusterConfig {
	return ModclusterConfig{
		Clustering: ClusteringConfig{
			MinCoupling: 0.3,
			CapPolicy:   "strict",
		},
		Report: ReportConfig{
			MinWeight: 0.01,
			MaxNodes:  50,
			Formats:   []string{"text"},
		},
		Server: ServerConfig{
			Port:         8090,
			RateLimit:    10,
			Burst:        20,
			MaxBodyBytes: 10 << 20,
			Timeout:      2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}
