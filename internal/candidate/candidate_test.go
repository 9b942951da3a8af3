// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package candidate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcewatch/simguard/internal/store"
	"github.com/sourcewatch/simguard/internal/store/memstore"
)

// S6: 1000 unrelated indexed files plus two files overlapping the
// query's hashes above the threshold; CandidatesFor must surface only
// those two. Their order is not checked here, and the fan-out cap is
// covered by TestSelector_RespectsMaxCandidatesPerFile.
func TestSelector_CandidatePruning(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		// Each unrelated file gets a disjoint hash range so it can never
		// overlap with the query file's hashes.
		base := uint64(1_000_000 + i*10)
		hashes := []uint64{base, base + 1, base + 2, base + 3}
		require.NoError(t, st.IndexFile(ctx, store.KindToken, fmt.Sprintf("unrelated-%d", i), hashes))
	}

	queryHashes := []uint64{1, 2, 3, 4}
	require.NoError(t, st.IndexFile(ctx, store.KindToken, "match-1", queryHashes))
	require.NoError(t, st.IndexFile(ctx, store.KindToken, "match-2", []uint64{1, 2, 3, 999}))

	selector := NewSelector(st, 0.5)
	found, err := selector.CandidatesFor(ctx, "query", queryHashes, Global, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"match-1", "match-2"}, found)
}

func TestSelector_WithinScopeRestrictsToTaskFiles(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	hashes := []uint64{1, 2, 3, 4}
	require.NoError(t, st.IndexFile(ctx, store.KindToken, "in-task", hashes))
	require.NoError(t, st.IndexFile(ctx, store.KindToken, "out-of-task", hashes))

	selector := NewSelector(st, 0.5)
	found, err := selector.CandidatesFor(ctx, "query", hashes, Within, []string{"in-task"})
	require.NoError(t, err)
	assert.Equal(t, []string{"in-task"}, found)
}

func TestSelector_CrossTaskCandidatesExcludesWithinTaskFiles(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	hashes := []uint64{1, 2, 3, 4}
	require.NoError(t, st.IndexFile(ctx, store.KindToken, "task-sibling", hashes))
	require.NoError(t, st.IndexFile(ctx, store.KindToken, "cross-task", hashes))

	selector := NewSelector(st, 0.5)
	found, err := selector.CrossTaskCandidates(ctx, "query", hashes, []string{"task-sibling"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cross-task"}, found)
}

func TestSelector_RespectsMaxCandidatesPerFile(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	hashes := []uint64{1, 2, 3, 4}
	for i := 0; i < 10; i++ {
		require.NoError(t, st.IndexFile(ctx, store.KindToken, fmt.Sprintf("match-%d", i), hashes))
	}

	selector := NewSelector(st, 0.5, WithMaxCandidatesPerFile(3))
	found, err := selector.CandidatesFor(ctx, "query", hashes, Global, nil)
	require.NoError(t, err)
	assert.Len(t, found, 3)
}
