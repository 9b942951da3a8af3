// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package blob

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// These tests require a real bucket and credentials; they are skipped
// unless the environment that points at them is configured, matching
// how this codebase's GCS client is exercised without a live network
// call in CI.

func newIntegrationStore(t *testing.T) *GCSStore {
	t.Helper()
	keyPath := os.Getenv("SIMGUARD_GCS_TEST_SA_KEY_PATH")
	bucket := os.Getenv("SIMGUARD_GCS_TEST_BUCKET")
	if keyPath == "" || bucket == "" {
		t.Skip("skipping integration test: SIMGUARD_GCS_TEST_SA_KEY_PATH and SIMGUARD_GCS_TEST_BUCKET not set")
	}
	store, err := NewGCSStore(context.Background(), bucket, "simguard-test/", keyPath)
	require.NoError(t, err)
	return store
}

func TestGCSStore_PutThenResolveRoundTrips_Integration(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()

	hash := "integration-test-hash"
	require.NoError(t, store.Put(ctx, hash, []byte("package main"), "go"))

	src, language, err := store.Resolve(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, []byte("package main"), src)
	require.Equal(t, "go", language)
}

func TestGCSStore_ResolveUnknownHashReturnsErrNotFound_Integration(t *testing.T) {
	store := newIntegrationStore(t)
	_, _, err := store.Resolve(context.Background(), "does-not-exist-hash")
	require.ErrorIs(t, err, ErrNotFound)
}
