// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package similarity

// jaccard computes |A ∩ B| / |A ∪ B| over two sets of 64-bit hashes.
// Defined as 0 when both sets are empty (no signal either way, not a
// perfect match).
func jaccard(a, b map[uint64]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	for h := range small {
		if _, ok := large[h]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func sharedHashes(a, b map[uint64]struct{}) []uint64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := make([]uint64, 0, len(small))
	for h := range small {
		if _, ok := large[h]; ok {
			shared = append(shared, h)
		}
	}
	return shared
}
