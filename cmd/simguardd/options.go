// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"sync/atomic"

	"github.com/sourcewatch/simguard/internal/task"
	"github.com/sourcewatch/simguard/pkg/config"
)

// liveOptions holds the comparison-time defaults (candidate_threshold,
// gap, min_match_kgrams) applied to a submitted job when the request
// itself doesn't override them. It is updated in place as the config
// watcher picks up edits to the config file, so retuning those knobs
// takes effect for the next submission without a restart — unlike
// fingerprint.Options (k, w, min_subtree_tokens), which is baked into
// the engine at startup because changing it would require
// re-fingerprinting every indexed file.
type liveOptions struct {
	value atomic.Pointer[task.Options]
}

func newLiveOptions(cfg config.Config) *liveOptions {
	l := &liveOptions{}
	l.update(cfg)
	return l
}

func (l *liveOptions) update(cfg config.Config) {
	threshold := cfg.Similarity.CandidateThreshold
	gap := cfg.Similarity.Gap
	minMatch := cfg.Similarity.MinMatchKgrams
	l.value.Store(&task.Options{
		CandidateThreshold: &threshold,
		Gap:                &gap,
		MinMatchKgrams:     &minMatch,
	})
}

// resolve fills in any nil field of req with the live default.
func (l *liveOptions) resolve(req task.Options) task.Options {
	defaults := l.value.Load()
	if req.CandidateThreshold == nil {
		req.CandidateThreshold = defaults.CandidateThreshold
	}
	if req.Gap == nil {
		req.Gap = defaults.Gap
	}
	if req.MinMatchKgrams == nil {
		req.MinMatchKgrams = defaults.MinMatchKgrams
	}
	return req
}
