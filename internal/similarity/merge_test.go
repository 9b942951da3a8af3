// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcewatch/simguard/internal/fingerprint"
)

func tokenFP(positions ...fingerprint.Position) *fingerprint.TokenFingerprint {
	return &fingerprint.TokenFingerprint{Positions: positions}
}

func pos(hash uint64, startLine, endLine, index int) fingerprint.Position {
	return fingerprint.Position{
		Hash:  hash,
		Span:  fingerprint.Span{StartLine: startLine, EndLine: endLine},
		Index: index,
	}
}

func TestBuildCandidates_OnlySharedHashesCrossProduct(t *testing.T) {
	a := tokenFP(pos(1, 1, 2, 0), pos(2, 3, 4, 1), pos(99, 9, 10, 2))
	b := tokenFP(pos(1, 10, 11, 0), pos(2, 12, 13, 1))

	candidates := buildCandidates(a, b)
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.NotEqual(t, uint64(99), c.hash)
	}
}

func TestBuildCandidates_SortedByAStartThenBStart(t *testing.T) {
	a := tokenFP(pos(1, 5, 5, 0), pos(2, 1, 1, 1))
	b := tokenFP(pos(1, 50, 50, 0), pos(2, 10, 10, 1))

	candidates := buildCandidates(a, b)
	require.Len(t, candidates, 2)
	assert.Equal(t, 1, candidates[0].aStart)
	assert.Equal(t, 5, candidates[1].aStart)
}

func TestMergeCandidates_MergesContiguousRuns(t *testing.T) {
	candidates := []matchCandidate{
		{aStart: 1, aEnd: 1, bStart: 1, bEnd: 1, hash: 1},
		{aStart: 2, aEnd: 2, bStart: 2, bEnd: 2, hash: 2},
		{aStart: 3, aEnd: 3, bStart: 3, bEnd: 3, hash: 3},
	}
	matches := mergeCandidates(candidates, 2, 2)
	require.Len(t, matches, 1)
	assert.Equal(t, Match{AStart: 1, AEnd: 3, BStart: 1, BEnd: 3}, matches[0])
}

func TestMergeCandidates_RespectsLineGapTolerance(t *testing.T) {
	candidates := []matchCandidate{
		{aStart: 1, aEnd: 1, bStart: 1, bEnd: 1, hash: 1},
		{aStart: 10, aEnd: 10, bStart: 10, bEnd: 10, hash: 2},
	}
	matches := mergeCandidates(candidates, 2, 1)
	require.Len(t, matches, 2)
}

func TestMergeCandidates_FiltersBelowMinMatchKgrams(t *testing.T) {
	candidates := []matchCandidate{
		{aStart: 1, aEnd: 1, bStart: 1, bEnd: 1, hash: 1},
	}
	matches := mergeCandidates(candidates, 2, 2)
	assert.Empty(t, matches)
}

func TestMergeCandidates_NonOverlappingAPreferEarlierGroup(t *testing.T) {
	// group1 (A 1-2, B 1-2) and group2 (A 2-3, B 50-51) overlap at A=2;
	// group2's B-range is too far from group1's to merge with it, so
	// both groups form, pass min_match_kgrams, and then collide in the
	// final non-overlap pass. The earlier group wins.
	candidates := []matchCandidate{
		{aStart: 1, aEnd: 1, bStart: 1, bEnd: 1, hash: 1},
		{aStart: 2, aEnd: 2, bStart: 2, bEnd: 2, hash: 2},
		{aStart: 2, aEnd: 2, bStart: 50, bEnd: 50, hash: 3},
		{aStart: 3, aEnd: 3, bStart: 51, bEnd: 51, hash: 4},
	}
	matches := mergeCandidates(candidates, 2, 2)
	require.Len(t, matches, 1)
	assert.Equal(t, Match{AStart: 1, AEnd: 2, BStart: 1, BEnd: 2}, matches[0])
}

func TestMergeCandidates_EmptyInputProducesNoMatches(t *testing.T) {
	assert.Empty(t, mergeCandidates(nil, 2, 2))
}

func TestMergeCandidates_ResultsSortedByAStart(t *testing.T) {
	candidates := []matchCandidate{
		{aStart: 20, aEnd: 21, bStart: 20, bEnd: 21, hash: 1},
		{aStart: 20, aEnd: 21, bStart: 20, bEnd: 21, hash: 2},
		{aStart: 1, aEnd: 2, bStart: 1, bEnd: 2, hash: 3},
		{aStart: 1, aEnd: 2, bStart: 1, bEnd: 2, hash: 4},
	}
	matches := mergeCandidates(candidates, 2, 2)
	require.Len(t, matches, 2)
	assert.Less(t, matches[0].AStart, matches[1].AStart)
}
