// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcewatch/simguard/internal/fingerprint"
	"github.com/sourcewatch/simguard/internal/store"
)

func TestNew_Defaults(t *testing.T) {
	s := New()
	require.NotNil(t, s)
	assert.Equal(t, DefaultMaxEntries, s.opts.maxEntries)
	assert.Equal(t, DefaultMaxAge, s.opts.maxAge)
}

func TestNew_InvalidOptionsIgnored(t *testing.T) {
	s := New(WithMaxEntries(-1), WithMaxAge(-time.Hour))
	assert.Equal(t, DefaultMaxEntries, s.opts.maxEntries)
	assert.Equal(t, DefaultMaxAge, s.opts.maxAge)
}

func TestFingerprintStore_TokenRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.GetToken(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	fp := &fingerprint.TokenFingerprint{ContentHash: "abc", Language: "go"}
	require.NoError(t, s.PutToken(ctx, fp))

	got, err := s.GetToken(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, fp, got)
}

func TestFingerprintStore_AstRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	fp := &fingerprint.AstFingerprint{ContentHash: "xyz", Language: "python"}
	require.NoError(t, s.PutAst(ctx, fp))

	got, err := s.GetAst(ctx, "xyz")
	require.NoError(t, err)
	assert.Equal(t, fp, got)
}

func TestIndex_IdempotentIndexing(t *testing.T) {
	s := New()
	ctx := context.Background()

	hashes := []uint64{1, 2, 3}
	require.NoError(t, s.IndexFile(ctx, store.KindToken, "fileA", hashes))
	require.NoError(t, s.IndexFile(ctx, store.KindToken, "fileA", hashes))

	got, err := s.FileHashes(ctx, store.KindToken, "fileA")
	require.NoError(t, err)
	assert.ElementsMatch(t, hashes, got)

	candidates, err := s.Candidates(ctx, store.KindToken, "other", hashes, 0.5, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"fileA"}, candidates, "re-indexing the same file must not duplicate postings")
}

func TestIndex_ReindexingReplacesStaleHashes(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.IndexFile(ctx, store.KindToken, "fileA", []uint64{1, 2, 3}))
	require.NoError(t, s.IndexFile(ctx, store.KindToken, "fileA", []uint64{9, 9, 9, 4}))

	candidates, err := s.Candidates(ctx, store.KindToken, "other", []uint64{1, 2, 3}, 0.1, 10)
	require.NoError(t, err)
	assert.Empty(t, candidates, "old hashes must no longer reference fileA after re-indexing")
}

func TestIndex_CandidatesExcludesSelf(t *testing.T) {
	s := New()
	ctx := context.Background()

	hashes := []uint64{10, 20, 30}
	require.NoError(t, s.IndexFile(ctx, store.KindToken, "fileA", hashes))
	require.NoError(t, s.IndexFile(ctx, store.KindToken, "fileB", hashes))

	candidates, err := s.Candidates(ctx, store.KindToken, "fileA", hashes, 0.5, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"fileB"}, candidates)
}

func TestIndex_CandidatesRespectsOverlapRatioAndCap(t *testing.T) {
	s := New()
	ctx := context.Background()
	query := []uint64{1, 2, 3, 4}

	require.NoError(t, s.IndexFile(ctx, store.KindToken, "full", []uint64{1, 2, 3, 4}))
	require.NoError(t, s.IndexFile(ctx, store.KindToken, "partial", []uint64{1, 2}))
	require.NoError(t, s.IndexFile(ctx, store.KindToken, "none", []uint64{99}))

	candidates, err := s.Candidates(ctx, store.KindToken, "self", query, 0.75, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"full"}, candidates)

	candidates, err = s.Candidates(ctx, store.KindToken, "self", query, 0.25, 1)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestIndex_RemoveFile(t *testing.T) {
	s := New()
	ctx := context.Background()

	hashes := []uint64{1, 2, 3}
	require.NoError(t, s.IndexFile(ctx, store.KindToken, "fileA", hashes))
	require.NoError(t, s.RemoveFile(ctx, store.KindToken, "fileA"))

	_, err := s.FileHashes(ctx, store.KindToken, "fileA")
	assert.ErrorIs(t, err, store.ErrNotFound)

	candidates, err := s.Candidates(ctx, store.KindToken, "other", hashes, 0.1, 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCache_TTLExpiry(t *testing.T) {
	s := New(WithMaxAge(time.Hour))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// A Get landing before expiry refreshes the entry's TTL, so a cache
// value under active read traffic survives past its original window.
func TestCache_GetRefreshesTTL(t *testing.T) {
	s := New(WithMaxAge(60 * time.Millisecond))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("v"), 20*time.Millisecond))

	time.Sleep(10 * time.Millisecond)
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	// Without the refresh this read just performed, the original 20ms
	// TTL (set at Put time) would have lapsed by now.
	time.Sleep(30 * time.Millisecond)
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

// Evicting a content hash's token fingerprint (TTL expiry here) must
// also drop the postings, file-hash set, and any pair-result cache
// entry that named it — otherwise a stale cache entry could outlive
// the fingerprint it was computed from.
func TestFingerprintEviction_InvalidatesDependentCacheEntry(t *testing.T) {
	s := New(WithMaxAge(10 * time.Millisecond))
	ctx := context.Background()

	require.NoError(t, s.PutToken(ctx, &fingerprint.TokenFingerprint{ContentHash: "a"}))
	require.NoError(t, s.IndexFile(ctx, store.KindToken, "a", []uint64{1, 2, 3}))
	require.NoError(t, s.Put(ctx, "pair:a:b", []byte("cached-result"), time.Hour))

	time.Sleep(20 * time.Millisecond)
	_, err := s.GetToken(ctx, "a")
	assert.ErrorIs(t, err, store.ErrNotFound, "token fingerprint should have expired")

	_, err = s.Get(ctx, "pair:a:b")
	assert.ErrorIs(t, err, store.ErrNotFound, "cache entry naming the evicted hash should be invalidated")

	_, err = s.FileHashes(ctx, store.KindToken, "a")
	assert.ErrorIs(t, err, store.ErrNotFound, "file-hash set should be removed along with the fingerprint")
}

func TestCache_DeleteIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	assert.NoError(t, s.Delete(ctx, "never-existed"))
}

func TestLRUEviction_BoundsEntryCount(t *testing.T) {
	s := New(WithMaxEntries(2))
	ctx := context.Background()

	require.NoError(t, s.PutToken(ctx, &fingerprint.TokenFingerprint{ContentHash: "a"}))
	require.NoError(t, s.PutToken(ctx, &fingerprint.TokenFingerprint{ContentHash: "b"}))
	require.NoError(t, s.PutToken(ctx, &fingerprint.TokenFingerprint{ContentHash: "c"}))

	_, errA := s.GetToken(ctx, "a")
	_, errB := s.GetToken(ctx, "b")
	_, errC := s.GetToken(ctx, "c")

	misses := 0
	for _, err := range []error{errA, errB, errC} {
		if err != nil {
			misses++
		}
	}
	assert.Equal(t, 1, misses, "exactly one of the three entries should have been evicted")
}
