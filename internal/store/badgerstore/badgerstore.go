// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/sourcewatch/simguard/internal/fingerprint"
	"github.com/sourcewatch/simguard/internal/store"
)

// DefaultTTL mirrors the distributed backend's fingerprint retention
// window so either backend can be swapped in without changing eviction
// behavior observed by callers.
const DefaultTTL = 7 * 24 * time.Hour

const (
	tokenFPPrefix  = "fp:token:"
	astFPPrefix    = "fp:ast:"
	postingsPrefix = "inv:hash:"
	fileSetPrefix  = "inv:file:"
	cachePrefix    = "cache:"
)

// DB wraps a BadgerDB instance with lifecycle management and
// implements store.FingerprintStore, store.Index, and store.Cache
// directly against it.
type DB struct {
	db       *badger.DB
	gc       *gcRunner
	path     string
	inMemory bool
	ttl      time.Duration
}

// Open opens a BadgerDB-backed store with the given configuration.
func Open(cfg Config) (*DB, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, err
	}

	wrapped := &DB{db: db, path: cfg.Path, inMemory: cfg.InMemory, ttl: DefaultTTL}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		wrapped.gc = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		wrapped.gc.start()
	}
	return wrapped, nil
}

// OpenInMemory is a convenience wrapper for Open(InMemoryConfig()),
// used by tests and short-lived CLI invocations.
func OpenInMemory() (*DB, error) {
	return Open(InMemoryConfig())
}

var _ store.FingerprintStore = (*DB)(nil)
var _ store.Index = (*DB)(nil)
var _ store.Cache = (*DB)(nil)

func (d *DB) Close() error {
	if d.gc != nil {
		d.gc.stop()
	}
	return d.db.Close()
}

func (d *DB) Path() string   { return d.path }
func (d *DB) InMemory() bool { return d.inMemory }

func getJSON(txn *badger.Txn, key string, out any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := badger.NewEntry([]byte(key), raw)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	return txn.SetEntry(entry)
}

// getJSONRefreshTTL reads key and, on a hit, rewrites it with its TTL
// reset to ttl from now. A fingerprint or cache entry that is still
// being read is still in active use and should not expire out from
// under its readers just because it was written a while ago.
func getJSONRefreshTTL(txn *badger.Txn, key string, ttl time.Duration, out any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	var raw []byte
	if err := item.Value(func(val []byte) error {
		raw = append([]byte(nil), val...)
		return nil
	}); err != nil {
		return err
	}
	if ttl > 0 {
		if err := txn.SetEntry(badger.NewEntry([]byte(key), raw).WithTTL(ttl)); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, out)
}

func (d *DB) GetToken(ctx context.Context, contentHash string) (*fingerprint.TokenFingerprint, error) {
	var fp fingerprint.TokenFingerprint
	err := withTxn(ctx, d.db, func(txn *badger.Txn) error {
		return getJSONRefreshTTL(txn, tokenFPPrefix+contentHash, d.ttl, &fp)
	})
	if err != nil {
		return nil, err
	}
	return &fp, nil
}

func (d *DB) PutToken(ctx context.Context, fp *fingerprint.TokenFingerprint) error {
	return withTxn(ctx, d.db, func(txn *badger.Txn) error {
		return setJSON(txn, tokenFPPrefix+fp.ContentHash, fp, d.ttl)
	})
}

func (d *DB) GetAst(ctx context.Context, contentHash string) (*fingerprint.AstFingerprint, error) {
	var fp fingerprint.AstFingerprint
	err := withTxn(ctx, d.db, func(txn *badger.Txn) error {
		return getJSONRefreshTTL(txn, astFPPrefix+contentHash, d.ttl, &fp)
	})
	if err != nil {
		return nil, err
	}
	return &fp, nil
}

func (d *DB) PutAst(ctx context.Context, fp *fingerprint.AstFingerprint) error {
	return withTxn(ctx, d.db, func(txn *badger.Txn) error {
		return setJSON(txn, astFPPrefix+fp.ContentHash, fp, d.ttl)
	})
}

func postingsKey(kind store.FingerprintKind, h uint64) string {
	return postingsPrefix + string(kind) + ":" + strconv.FormatUint(h, 36)
}

func fileSetKey(kind store.FingerprintKind, contentHash string) string {
	return fileSetPrefix + string(kind) + ":" + contentHash
}

func (d *DB) IndexFile(ctx context.Context, kind store.FingerprintKind, contentHash string, hashes []uint64) error {
	prev, err := d.FileHashes(ctx, kind, contentHash)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err == nil && sameHashSet(prev, hashes) {
		return nil
	}
	if err == nil {
		if rmErr := d.RemoveFile(ctx, kind, contentHash); rmErr != nil {
			return rmErr
		}
	}

	return withTxn(ctx, d.db, func(txn *badger.Txn) error {
		for _, h := range hashes {
			key := postingsKey(kind, h)
			var set []string
			if getErr := getJSON(txn, key, &set); getErr != nil && !errors.Is(getErr, store.ErrNotFound) {
				return getErr
			}
			if !containsString(set, contentHash) {
				set = append(set, contentHash)
			}
			if setErr := setJSON(txn, key, set, d.ttl); setErr != nil {
				return setErr
			}
		}
		return setJSON(txn, fileSetKey(kind, contentHash), hashes, d.ttl)
	})
}

func (d *DB) RemoveFile(ctx context.Context, kind store.FingerprintKind, contentHash string) error {
	hashes, err := d.FileHashes(ctx, kind, contentHash)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return withTxn(ctx, d.db, func(txn *badger.Txn) error {
		for _, h := range hashes {
			key := postingsKey(kind, h)
			var set []string
			if getErr := getJSON(txn, key, &set); getErr != nil {
				if errors.Is(getErr, store.ErrNotFound) {
					continue
				}
				return getErr
			}
			set = removeString(set, contentHash)
			if len(set) == 0 {
				if delErr := txn.Delete([]byte(key)); delErr != nil {
					return delErr
				}
				continue
			}
			if setErr := setJSON(txn, key, set, d.ttl); setErr != nil {
				return setErr
			}
		}
		return txn.Delete([]byte(fileSetKey(kind, contentHash)))
	})
}

func (d *DB) FileHashes(ctx context.Context, kind store.FingerprintKind, contentHash string) ([]uint64, error) {
	var hashes []uint64
	err := withReadTxn(ctx, d.db, func(txn *badger.Txn) error {
		return getJSON(txn, fileSetKey(kind, contentHash), &hashes)
	})
	if err != nil {
		return nil, err
	}
	return hashes, nil
}

func (d *DB) Candidates(ctx context.Context, kind store.FingerprintKind, self string, hashes []uint64, minOverlapRatio float64, maxCandidates int) ([]string, error) {
	overlap := make(map[string]int)

	err := withReadTxn(ctx, d.db, func(txn *badger.Txn) error {
		for _, h := range hashes {
			var set []string
			if getErr := getJSON(txn, postingsKey(kind, h), &set); getErr != nil {
				if errors.Is(getErr, store.ErrNotFound) {
					continue
				}
				return getErr
			}
			for _, contentHash := range set {
				if contentHash == self {
					continue
				}
				overlap[contentHash]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	minOverlap := minOverlapCount(len(hashes), minOverlapRatio)
	candidates := make([]string, 0, len(overlap))
	for contentHash, count := range overlap {
		if count >= minOverlap {
			candidates = append(candidates, contentHash)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if overlap[candidates[i]] != overlap[candidates[j]] {
			return overlap[candidates[i]] > overlap[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
	if maxCandidates > 0 && len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates, nil
}

func (d *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := withTxn(ctx, d.db, func(txn *badger.Txn) error {
		fullKey := cachePrefix + key
		item, getErr := txn.Get([]byte(fullKey))
		if errors.Is(getErr, badger.ErrKeyNotFound) {
			return store.ErrNotFound
		}
		if getErr != nil {
			return getErr
		}
		if valErr := item.Value(func(val []byte) error {
			raw = append([]byte(nil), val...)
			return nil
		}); valErr != nil {
			return valErr
		}
		if d.ttl > 0 {
			return txn.SetEntry(badger.NewEntry([]byte(fullKey), raw).WithTTL(d.ttl))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (d *DB) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = d.ttl
	}
	return withTxn(ctx, d.db, func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(cachePrefix+key), value).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

func (d *DB) Delete(ctx context.Context, key string) error {
	return withTxn(ctx, d.db, func(txn *badger.Txn) error {
		err := txn.Delete([]byte(cachePrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func removeString(set []string, v string) []string {
	out := set[:0]
	for _, s := range set {
		if s != v {
			out = append(out, s)
		}
	}
	return out
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
