// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memstore

import (
	"math"
	"sort"
	"strconv"
)

func fingerprint64ToKey(h uint64) string {
	return strconv.FormatUint(h, 36)
}

func sameHashSet(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[uint64]int, len(a))
	for _, h := range a {
		seen[h]++
	}
	for _, h := range b {
		seen[h]--
	}
	for _, count := range seen {
		if count != 0 {
			return false
		}
	}
	return true
}

// minOverlapCount computes ceil(minOverlapRatio * total), floored at 1
// so a ratio of 0 still requires at least one shared fingerprint.
func minOverlapCount(total int, minOverlapRatio float64) int {
	if total <= 0 {
		return 1
	}
	n := int(math.Ceil(minOverlapRatio * float64(total)))
	if n < 1 {
		n = 1
	}
	return n
}

func sortByOverlapDesc(candidates []string, overlap map[string]int) {
	sort.Slice(candidates, func(i, j int) bool {
		if overlap[candidates[i]] != overlap[candidates[j]] {
			return overlap[candidates[i]] > overlap[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
}
