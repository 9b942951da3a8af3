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
)

func set(values ...uint64) map[uint64]struct{} {
	out := make(map[uint64]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func TestJaccard_BothEmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, jaccard(set(), set()))
}

func TestJaccard_IdenticalSetsIsOne(t *testing.T) {
	assert.Equal(t, 1.0, jaccard(set(1, 2, 3), set(1, 2, 3)))
}

func TestJaccard_DisjointSetsIsZero(t *testing.T) {
	assert.Equal(t, 0.0, jaccard(set(1, 2, 3), set(4, 5, 6)))
}

func TestJaccard_PartialOverlap(t *testing.T) {
	// |{1,2,3} ∩ {2,3,4}| = 2, |{1,2,3} ∪ {2,3,4}| = 4
	assert.Equal(t, 0.5, jaccard(set(1, 2, 3), set(2, 3, 4)))
}

func TestJaccard_Symmetric(t *testing.T) {
	a := set(1, 2, 3, 7)
	b := set(2, 3, 4)
	assert.Equal(t, jaccard(a, b), jaccard(b, a))
}

func TestJaccard_OneEmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, jaccard(set(1, 2), set()))
}

func TestSharedHashes(t *testing.T) {
	shared := sharedHashes(set(1, 2, 3), set(2, 3, 4))
	assert.ElementsMatch(t, []uint64{2, 3}, shared)
}
