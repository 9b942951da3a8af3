// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store defines the content-addressed fingerprint store, the
// inverted index, and the pair-result cache contracts shared by the
// in-process, embedded, and distributed backends under this package's
// subpackages (memstore, badgerstore, redisstore).
//
// Fingerprints and results are ephemeral and always rebuildable from
// source bytes — every backend is a performance optimization, never a
// source of truth, so a store miss is never an error condition on its
// own.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sourcewatch/simguard/internal/fingerprint"
)

// ErrNotFound is returned by Cache.Get and FingerprintStore getters when
// the requested key has no entry (a genuine miss, not a failure).
var ErrNotFound = errors.New("store: not found")

// FingerprintStore persists token and AST fingerprints keyed by content
// hash, so that re-indexing the same file bytes never recomputes a
// fingerprint.
type FingerprintStore interface {
	GetToken(ctx context.Context, contentHash string) (*fingerprint.TokenFingerprint, error)
	PutToken(ctx context.Context, fp *fingerprint.TokenFingerprint) error

	GetAst(ctx context.Context, contentHash string) (*fingerprint.AstFingerprint, error)
	PutAst(ctx context.Context, fp *fingerprint.AstFingerprint) error

	// Close releases any resources held by the store.
	Close() error
}

// FingerprintKind distinguishes the two fingerprint families the
// inverted index tracks separately; a token hash and an AST hash that
// happen to collide numerically must never be treated as the same
// posting list.
type FingerprintKind string

const (
	KindToken FingerprintKind = "token"
	KindAst   FingerprintKind = "ast"
)

// Index is the inverted index mapping a fingerprint hash to the set of
// content hashes ("files") that contain it.
type Index interface {
	// IndexFile records that contentHash contains every hash in hashes
	// for the given kind. IndexFile is idempotent: indexing the same
	// (kind, contentHash, hashes) more than once leaves the index in the
	// same state as indexing it once.
	IndexFile(ctx context.Context, kind FingerprintKind, contentHash string, hashes []uint64) error

	// RemoveFile removes contentHash from every posting list it
	// appears in for the given kind.
	RemoveFile(ctx context.Context, kind FingerprintKind, contentHash string) error

	// Candidates returns content hashes whose posting-list overlap with
	// hashes is at least ceil(minOverlapRatio * len(hashes)), sorted by
	// descending overlap count and capped at maxCandidates. self is
	// excluded from the result even if present in the index.
	Candidates(ctx context.Context, kind FingerprintKind, self string, hashes []uint64, minOverlapRatio float64, maxCandidates int) ([]string, error)

	// FileHashes returns the set of hashes last indexed for contentHash,
	// or ErrNotFound if it has never been indexed (or was removed).
	FileHashes(ctx context.Context, kind FingerprintKind, contentHash string) ([]uint64, error)

	Close() error
}

// Cache is a generic TTL-bounded byte-value cache. It backs the
// pair-result cache in package similarity; callers own serialization.
type Cache interface {
	// Get returns the cached value for key, or ErrNotFound on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key with the given time-to-live. A ttl of
	// zero means the backend's default TTL applies.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key if present; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}
