// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "simguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /initial\nsimilarity:\n  gap: 2\n"), 0644))

	reloaded := make(chan Config, 1)
	w, err := NewWatcher(path, func(cfg Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, nil)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("data_dir: /updated\nsimilarity:\n  gap: 5\n"), 0644))

	select {
	case cfg := <-reloaded:
		require.Equal(t, "/updated", cfg.DataDir)
		require.Equal(t, 5, cfg.Similarity.Gap)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
