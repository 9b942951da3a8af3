// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/sourcewatch/simguard/internal/blob"
	"github.com/sourcewatch/simguard/internal/store"
	"github.com/sourcewatch/simguard/internal/store/badgerstore"
	"github.com/sourcewatch/simguard/internal/store/memstore"
	"github.com/sourcewatch/simguard/internal/store/redisstore"
	"github.com/sourcewatch/simguard/pkg/config"
)

// backend bundles one concrete store implementation under the three
// narrow interfaces the engine and candidate selector depend on, plus
// whatever needs closing when the daemon shuts down.
type backend struct {
	fps    store.FingerprintStore
	index  store.Index
	cache  store.Cache
	closer func() error
}

// newBackend selects the fingerprint/index/result-cache backend named
// by cfg.Task.Store. "memory" and "badger" are single-process backends
// suitable for one worker; "redis" is the distributed tier shared
// across a worker fleet.
func newBackend(cfg config.Config) (*backend, error) {
	switch cfg.Task.Store {
	case "memory":
		st := memstore.New()
		return &backend{fps: st, index: st, cache: st, closer: st.Close}, nil

	case "badger":
		bcfg := badgerstore.DefaultConfig()
		if cfg.BadgerPath != "" {
			bcfg.Path = cfg.BadgerPath
		}
		db, err := badgerstore.Open(bcfg)
		if err != nil {
			return nil, fmt.Errorf("opening badger store at %s: %w", bcfg.Path, err)
		}
		return &backend{fps: db, index: db, cache: db, closer: db.Close}, nil

	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("task.store is \"redis\" but redis_addr is empty")
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		st := redisstore.New(client)
		return &backend{fps: st, index: st, cache: st, closer: st.Close}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Task.Store)
	}
}

// newBlobStore selects between a local filesystem blob store and a
// Cloud Storage-backed one: a configured bucket means the worker is
// part of a fleet sharing one corpus, and file bytes have to live
// somewhere every node can reach.
func newBlobStore(ctx context.Context, cfg config.Config) (blob.Store, func() error, error) {
	if cfg.GCSBucket != "" {
		gcs, err := blob.NewGCSStore(ctx, cfg.GCSBucket, "simguard/sources/", "")
		if err != nil {
			return nil, nil, fmt.Errorf("opening GCS blob store: %w", err)
		}
		return gcs, gcs.Close, nil
	}

	fs, err := blob.NewFSStore(filepath.Join(cfg.DataDir, "blobs"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening filesystem blob store: %w", err)
	}
	return fs, func() error { return nil }, nil
}
