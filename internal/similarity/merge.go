// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package similarity

import (
	"sort"

	"github.com/sourcewatch/simguard/internal/fingerprint"
)

// matchCandidate is one cross-product pairing of a shared-hash
// occurrence in A with a shared-hash occurrence in B, before merging.
type matchCandidate struct {
	aStart, aEnd int
	bStart, bEnd int
	hash         uint64
}

// buildCandidates forms the cross product A.positions[h] × B.positions[h]
// for every hash h shared between the two token fingerprints, sorted by
// a_span.start ascending (ties broken by b_span.start for determinism).
func buildCandidates(a, b *fingerprint.TokenFingerprint) []matchCandidate {
	aByHash := positionsByHash(a)
	bByHash := positionsByHash(b)

	var candidates []matchCandidate
	for h, aPositions := range aByHash {
		bPositions, ok := bByHash[h]
		if !ok {
			continue
		}
		for _, ap := range aPositions {
			for _, bp := range bPositions {
				candidates = append(candidates, matchCandidate{
					aStart: ap.StartLine, aEnd: ap.EndLine,
					bStart: bp.StartLine, bEnd: bp.EndLine,
					hash: h,
				})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].aStart != candidates[j].aStart {
			return candidates[i].aStart < candidates[j].aStart
		}
		return candidates[i].bStart < candidates[j].bStart
	})
	return candidates
}

func positionsByHash(fp *fingerprint.TokenFingerprint) map[uint64][]fingerprint.Span {
	out := make(map[uint64][]fingerprint.Span)
	for _, p := range fp.Positions {
		out[p.Hash] = append(out[p.Hash], p.Span)
	}
	return out
}

// mergeGroup is an in-progress merged match, tracking the distinct
// shared hashes backing it so min_match_kgrams can be enforced.
type mergeGroup struct {
	aStart, aEnd int
	bStart, bEnd int
	hashes       map[uint64]struct{}
}

// mergeCandidates greedily merges left-to-right on A with a line-gap
// tolerance, a monotonic-B-range consistency check, a minMatchKgrams
// floor, and a final pass enforcing pairwise non-overlapping A-ranges
// (preferring the earlier group when ambiguous B-mappings would
// otherwise overlap).
func mergeCandidates(candidates []matchCandidate, gap, minMatchKgrams int) []Match {
	var groups []*mergeGroup

	for _, c := range candidates {
		if len(groups) > 0 {
			last := groups[len(groups)-1]
			if c.aStart <= last.aEnd+gap &&
				c.bStart <= last.bEnd+gap &&
				c.bStart >= last.bEnd-gap {
				if c.aEnd > last.aEnd {
					last.aEnd = c.aEnd
				}
				if c.bEnd > last.bEnd {
					last.bEnd = c.bEnd
				}
				if c.bStart < last.bStart {
					last.bStart = c.bStart
				}
				last.hashes[c.hash] = struct{}{}
				continue
			}
		}
		groups = append(groups, &mergeGroup{
			aStart: c.aStart, aEnd: c.aEnd,
			bStart: c.bStart, bEnd: c.bEnd,
			hashes: map[uint64]struct{}{c.hash: {}},
		})
	}

	filtered := make([]*mergeGroup, 0, len(groups))
	for _, g := range groups {
		if len(g.hashes) >= minMatchKgrams {
			filtered = append(filtered, g)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].aStart < filtered[j].aStart
	})

	matches := make([]Match, 0, len(filtered))
	lastAEnd := -1
	for _, g := range filtered {
		if len(matches) > 0 && g.aStart <= lastAEnd {
			// Ambiguous B-mapping produced A-overlap; prefer the
			// earlier group and drop this one entirely.
			continue
		}
		matches = append(matches, Match{
			AStart: g.aStart, AEnd: g.aEnd,
			BStart: g.bStart, BEnd: g.bEnd,
		})
		lastAEnd = g.aEnd
	}
	return matches
}
