// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package candidate pre-filters which files are worth a full pairwise
// comparison, using the inverted index to avoid the quadratic blowup
// of comparing every file against every other file.
package candidate

import (
	"context"

	"github.com/sourcewatch/simguard/internal/store"
)

// DefaultMaxCandidatesPerFile bounds cross-task fan-out per file.
const DefaultMaxCandidatesPerFile = 256

// Scope selects which files candidates_for considers.
type Scope int

const (
	// Within restricts candidates to a caller-supplied set of file
	// hashes (typically the other files already in the same task).
	Within Scope = iota

	// Global considers the entire inverted index.
	Global
)

// Selector is a pre-filter, not a gate: within a task every unordered
// pair is still compared regardless of what it returns. Its job is
// only to surface cross-task candidates worth comparing against, so
// the quadratic-within-a-task cost never has to extend to the whole
// corpus.
type Selector struct {
	index                store.Index
	minOverlapRatio      float64
	maxCandidatesPerFile int
}

// Option configures a Selector.
type Option func(*Selector)

// WithMinOverlapRatio overrides the overlap ratio threshold (defaults
// to the engine's candidate_threshold, since the selector and the
// engine's early-exit agree on one meaning of "worth looking at").
func WithMinOverlapRatio(ratio float64) Option {
	return func(s *Selector) { s.minOverlapRatio = ratio }
}

// WithMaxCandidatesPerFile overrides the fan-out cap.
func WithMaxCandidatesPerFile(max int) Option {
	return func(s *Selector) { s.maxCandidatesPerFile = max }
}

// NewSelector builds a Selector over the given inverted index.
// minOverlapRatio should normally be set to the engine's configured
// candidate_threshold so index pruning and the engine's early exit
// agree on what counts as "worth comparing".
func NewSelector(index store.Index, minOverlapRatio float64, opts ...Option) *Selector {
	s := &Selector{
		index:                index,
		minOverlapRatio:      minOverlapRatio,
		maxCandidatesPerFile: DefaultMaxCandidatesPerFile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CandidatesFor returns content hashes worth comparing against
// contentHash, whose token fingerprint is described by hashes.
//
// For Scope Within, the result is restricted to taskFiles (the other
// files already known to belong to the same task); for Scope Global
// the entire index is queried and contentHash itself is excluded.
func (s *Selector) CandidatesFor(ctx context.Context, contentHash string, hashes []uint64, scope Scope, taskFiles []string) ([]string, error) {
	found, err := s.index.Candidates(ctx, store.KindToken, contentHash, hashes, s.minOverlapRatio, s.maxCandidatesPerFile)
	if err != nil {
		return nil, err
	}

	if scope == Global {
		return found, nil
	}

	allowed := make(map[string]struct{}, len(taskFiles))
	for _, f := range taskFiles {
		allowed[f] = struct{}{}
	}
	within := found[:0:0]
	for _, c := range found {
		if _, ok := allowed[c]; ok {
			within = append(within, c)
		}
	}
	return within, nil
}

// CrossTaskCandidates returns the global-scope candidates for
// contentHash with any file already in withinTaskFiles removed, per
// the Task Runner's pair-enumeration rule: cross-task candidates are
// additive to the within-task all-pairs set, never overlapping it.
func (s *Selector) CrossTaskCandidates(ctx context.Context, contentHash string, hashes []uint64, withinTaskFiles []string) ([]string, error) {
	found, err := s.index.Candidates(ctx, store.KindToken, contentHash, hashes, s.minOverlapRatio, s.maxCandidatesPerFile)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]struct{}, len(withinTaskFiles))
	for _, f := range withinTaskFiles {
		exclude[f] = struct{}{}
	}

	out := make([]string, 0, len(found))
	for _, c := range found {
		if _, ok := exclude[c]; !ok {
			out = append(out, c)
		}
	}
	return out, nil
}
