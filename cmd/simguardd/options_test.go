// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sourcewatch/simguard/internal/task"
	"github.com/sourcewatch/simguard/pkg/config"
)

func TestLiveOptions_ResolveFillsUnsetFieldsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Similarity.CandidateThreshold = 0.2
	cfg.Similarity.Gap = 3
	cfg.Similarity.MinMatchKgrams = 4
	live := newLiveOptions(cfg)

	resolved := live.resolve(task.Options{})
	a := assert.New(t)
	a.NotNil(resolved.CandidateThreshold)
	a.Equal(0.2, *resolved.CandidateThreshold)
	a.Equal(3, *resolved.Gap)
	a.Equal(4, *resolved.MinMatchKgrams)
}

func TestLiveOptions_ResolveKeepsExplicitRequestOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Similarity.CandidateThreshold = 0.2
	live := newLiveOptions(cfg)

	override := 0.9
	resolved := live.resolve(task.Options{CandidateThreshold: &override})
	assert.Equal(t, 0.9, *resolved.CandidateThreshold)
}

func TestLiveOptions_UpdateReplacesDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Similarity.Gap = 2
	live := newLiveOptions(cfg)

	cfg.Similarity.Gap = 9
	live.update(cfg)

	resolved := live.resolve(task.Options{})
	assert.Equal(t, 9, *resolved.Gap)
}
