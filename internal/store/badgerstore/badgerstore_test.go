// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package badgerstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcewatch/simguard/internal/fingerprint"
	"github.com/sourcewatch/simguard/internal/store"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenInMemory(t *testing.T) {
	db := openTestDB(t)
	assert.True(t, db.InMemory())
	assert.Empty(t, db.Path())
}

func TestFingerprintStore_TokenRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.GetToken(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	fp := &fingerprint.TokenFingerprint{ContentHash: "abc", Language: "go", K: 6, W: 5}
	require.NoError(t, db.PutToken(ctx, fp))

	got, err := db.GetToken(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, fp.ContentHash, got.ContentHash)
	assert.Equal(t, fp.Language, got.Language)
}

func TestIndex_IdempotentIndexing(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	hashes := []uint64{1, 2, 3}
	require.NoError(t, db.IndexFile(ctx, store.KindToken, "fileA", hashes))
	require.NoError(t, db.IndexFile(ctx, store.KindToken, "fileA", hashes))

	candidates, err := db.Candidates(ctx, store.KindToken, "other", hashes, 0.5, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"fileA"}, candidates)
}

func TestIndex_ReindexingReplacesStaleHashes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.IndexFile(ctx, store.KindToken, "fileA", []uint64{1, 2, 3}))
	require.NoError(t, db.IndexFile(ctx, store.KindToken, "fileA", []uint64{9, 9, 9, 4}))

	candidates, err := db.Candidates(ctx, store.KindToken, "other", []uint64{1, 2, 3}, 0.1, 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestIndex_RemoveFile(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	hashes := []uint64{1, 2, 3}
	require.NoError(t, db.IndexFile(ctx, store.KindToken, "fileA", hashes))
	require.NoError(t, db.RemoveFile(ctx, store.KindToken, "fileA"))

	_, err := db.FileHashes(ctx, store.KindToken, "fileA")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIndex_CandidatesExcludesSelf(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	hashes := []uint64{10, 20, 30}
	require.NoError(t, db.IndexFile(ctx, store.KindToken, "fileA", hashes))
	require.NoError(t, db.IndexFile(ctx, store.KindToken, "fileB", hashes))

	candidates, err := db.Candidates(ctx, store.KindToken, "fileA", hashes, 0.5, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"fileB"}, candidates)
}

func TestCache_TTLExpiry(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Put(ctx, "k", []byte("v"), 50*time.Millisecond))
	time.Sleep(200 * time.Millisecond)
	_, err := db.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// A Get that lands before expiry refreshes the key's TTL (to the
// store's configured default), so a value under active read traffic
// does not expire out from under its readers.
func TestCache_GetRefreshesTTL(t *testing.T) {
	cfg := InMemoryConfig()
	db, err := Open(cfg)
	require.NoError(t, err)
	db.ttl = 4 * time.Second
	defer db.Close()
	ctx := context.Background()

	// Badger stores expiry as whole unix seconds, so the TTLs here are
	// whole seconds too.
	require.NoError(t, db.Put(ctx, "k", []byte("v"), 2*time.Second))

	time.Sleep(500 * time.Millisecond)
	got, err := db.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// Without the refresh this read just performed, the original
	// 2s TTL would have lapsed by now.
	time.Sleep(2 * time.Second)
	got, err = db.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestCache_DeleteMissingKeyIsNotAnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	assert.NoError(t, db.Delete(ctx, "never-existed"))
}
