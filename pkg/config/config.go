// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the engine's tunables from a YAML file, applies
// environment variable overrides on top, and validates the result.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FingerprintConfig controls k-gram and AST-subtree fingerprinting.
type FingerprintConfig struct {
	K                int `yaml:"k" validate:"required,gt=0"`
	W                int `yaml:"w" validate:"required,gt=0"`
	MinSubtreeTokens int `yaml:"min_subtree_tokens" validate:"required,gt=0"`
}

// SimilarityConfig controls pairwise comparison and match reconstruction.
type SimilarityConfig struct {
	CandidateThreshold float64 `yaml:"candidate_threshold" validate:"gte=0,lte=1"`
	Gap                int     `yaml:"gap" validate:"gte=0"`
	MinMatchKgrams     int     `yaml:"min_match_kgrams" validate:"gte=1"`
}

// CandidateConfig controls the inverted-index pre-filter.
type CandidateConfig struct {
	MinOverlapRatio      float64 `yaml:"min_overlap_ratio" validate:"gte=0,lte=1"`
	MaxCandidatesPerFile int     `yaml:"max_candidates_per_file" validate:"gte=1"`
}

// TaskConfig controls the worker pool driving comparisons.
type TaskConfig struct {
	WorkerCount int    `yaml:"worker_count" validate:"gte=1"`
	TimeoutSec  int    `yaml:"timeout_seconds" validate:"gte=1"`
	Store       string `yaml:"store" validate:"oneof=memory badger redis"`
}

// Config is the root configuration document for a simguard worker or CLI.
//
// It is loaded from YAML, then environment variables named SIMGUARD_<FIELD>
// (e.g. SIMGUARD_CANDIDATE_THRESHOLD) are applied on top of whatever the
// file contained, matching the override-environment-wins convention the
// rest of this codebase's ancestry uses for its daemons.
type Config struct {
	Fingerprint FingerprintConfig `yaml:"fingerprint"`
	Similarity  SimilarityConfig  `yaml:"similarity"`
	Candidate   CandidateConfig   `yaml:"candidate"`
	Task        TaskConfig        `yaml:"task"`

	DataDir     string `yaml:"data_dir" validate:"required"`
	RedisAddr   string `yaml:"redis_addr"`
	BadgerPath  string `yaml:"badger_path"`
	GCSBucket   string `yaml:"gcs_bucket"`
	LogLevel    string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	OTelEnabled bool   `yaml:"otel_enabled"`
}

// Default returns the configuration a fresh install gets before any
// file or environment override is applied.
func Default() Config {
	return Config{
		Fingerprint: FingerprintConfig{K: 6, W: 5, MinSubtreeTokens: 20},
		Similarity:  SimilarityConfig{CandidateThreshold: 0.15, Gap: 2, MinMatchKgrams: 2},
		Candidate:   CandidateConfig{MinOverlapRatio: 0.15, MaxCandidatesPerFile: 256},
		Task:        TaskConfig{WorkerCount: 8, TimeoutSec: 600, Store: "memory"},
		DataDir:     "./data",
		LogLevel:    "info",
	}
}

var validate = validator.New()

// Load reads a YAML config file at path, falling back to Default() for
// any field the file omits, then applies environment overrides and
// validates the result.
//
// If path does not exist, a default config is written there first (the
// same first-run-creates-a-config convention the daemon this module was
// adapted from uses), so operators have a starting point to edit.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path, cfg); err != nil {
			return Config{}, fmt.Errorf("config: creating default at %s: %w", path, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func writeDefault(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
