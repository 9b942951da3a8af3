// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package redisstore is the distributed backend for the fingerprint
// store, inverted index, and pair-result cache, for deployments running
// more than one task runner worker against shared state.
//
// The key-naming scheme and the idempotent-reindex/posting-removal
// pair of operations are grounded on the inverted index design found
// in this project's original Python/Redis reference implementation:
// hash-to-files and file-to-hashes sets kept in lockstep so a file can
// be de-indexed without a full index scan.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sourcewatch/simguard/internal/fingerprint"
	"github.com/sourcewatch/simguard/internal/store"
)

// Key prefixes. Mirrors the reference implementation's
// inv:hash / inv:file / inv:meta namespacing, extended with a kind
// segment so token and AST postings never collide.
const (
	tokenFPPrefix  = "simguard:fp:token:"
	astFPPrefix    = "simguard:fp:ast:"
	postingsPrefix = "simguard:inv:hash:"
	fileSetPrefix  = "simguard:inv:file:"
	cachePrefix    = "simguard:cache:"
)

// DefaultTTL mirrors the reference implementation's 7-day fingerprint
// retention window.
const DefaultTTL = 7 * 24 * time.Hour

// Store implements store.FingerprintStore, store.Index, and
// store.Cache against a Redis deployment via go-redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the default key TTL applied to fingerprints and
// postings. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New wraps an existing *redis.Client. The caller owns the client's
// lifecycle except that Store.Close closes it.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.FingerprintStore = (*Store)(nil)
var _ store.Index = (*Store)(nil)
var _ store.Cache = (*Store)(nil)

func (s *Store) Close() error {
	return s.client.Close()
}

// GetToken reads via GETEX rather than GET, pushing the key's expiry
// back out by s.ttl on every hit: a fingerprint still being queried is
// still live and should not lapse on a clock started at write time.
func (s *Store) GetToken(ctx context.Context, contentHash string) (*fingerprint.TokenFingerprint, error) {
	raw, err := s.client.GetEx(ctx, tokenFPPrefix+contentHash, s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get token fingerprint: %w", err)
	}
	var fp fingerprint.TokenFingerprint
	if err := json.Unmarshal(raw, &fp); err != nil {
		return nil, fmt.Errorf("redisstore: decode token fingerprint: %w", err)
	}
	return &fp, nil
}

func (s *Store) PutToken(ctx context.Context, fp *fingerprint.TokenFingerprint) error {
	raw, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("redisstore: encode token fingerprint: %w", err)
	}
	if err := s.client.Set(ctx, tokenFPPrefix+fp.ContentHash, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: put token fingerprint: %w", err)
	}
	return nil
}

func (s *Store) GetAst(ctx context.Context, contentHash string) (*fingerprint.AstFingerprint, error) {
	raw, err := s.client.GetEx(ctx, astFPPrefix+contentHash, s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get ast fingerprint: %w", err)
	}
	var fp fingerprint.AstFingerprint
	if err := json.Unmarshal(raw, &fp); err != nil {
		return nil, fmt.Errorf("redisstore: decode ast fingerprint: %w", err)
	}
	return &fp, nil
}

func (s *Store) PutAst(ctx context.Context, fp *fingerprint.AstFingerprint) error {
	raw, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("redisstore: encode ast fingerprint: %w", err)
	}
	if err := s.client.Set(ctx, astFPPrefix+fp.ContentHash, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: put ast fingerprint: %w", err)
	}
	return nil
}

func postingsKey(kind store.FingerprintKind, h uint64) string {
	return postingsPrefix + string(kind) + ":" + strconv.FormatUint(h, 36)
}

func fileSetKey(kind store.FingerprintKind, contentHash string) string {
	return fileSetPrefix + string(kind) + ":" + contentHash
}

// IndexFile sends the SADD+EXPIRE pairs for every hash in one
// MULTI/EXEC transaction, so Candidates never sees half of them, matching
// the reference implementation's add_file_fingerprints. Idempotency
// falls out of SADD's set semantics: adding the same hash twice is a
// no-op. Re-indexing with a different hash set first removes the old
// postings, same as RemoveFile.
func (s *Store) IndexFile(ctx context.Context, kind store.FingerprintKind, contentHash string, hashes []uint64) error {
	prevHashes, err := s.FileHashes(ctx, kind, contentHash)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err == nil && sameHashSet(prevHashes, hashes) {
		return nil
	}
	if err == nil {
		if rmErr := s.RemoveFile(ctx, kind, contentHash); rmErr != nil {
			return rmErr
		}
	}

	pipe := s.client.TxPipeline()
	fsKey := fileSetKey(kind, contentHash)
	hashStrs := make([]any, len(hashes))
	for i, h := range hashes {
		hashStrs[i] = strconv.FormatUint(h, 36)
		pKey := postingsKey(kind, h)
		pipe.SAdd(ctx, pKey, contentHash)
		pipe.Expire(ctx, pKey, s.ttl)
	}
	if len(hashStrs) > 0 {
		pipe.SAdd(ctx, fsKey, hashStrs...)
		pipe.Expire(ctx, fsKey, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: index file: %w", err)
	}
	return nil
}

func (s *Store) RemoveFile(ctx context.Context, kind store.FingerprintKind, contentHash string) error {
	hashes, err := s.FileHashes(ctx, kind, contentHash)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	for _, h := range hashes {
		pipe.SRem(ctx, postingsKey(kind, h), contentHash)
	}
	pipe.Del(ctx, fileSetKey(kind, contentHash))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: remove file: %w", err)
	}
	return nil
}

func (s *Store) FileHashes(ctx context.Context, kind store.FingerprintKind, contentHash string) ([]uint64, error) {
	members, err := s.client.SMembers(ctx, fileSetKey(kind, contentHash)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: file hashes: %w", err)
	}
	if len(members) == 0 {
		exists, err := s.client.Exists(ctx, fileSetKey(kind, contentHash)).Result()
		if err != nil {
			return nil, fmt.Errorf("redisstore: file hashes exists check: %w", err)
		}
		if exists == 0 {
			return nil, store.ErrNotFound
		}
	}
	hashes := make([]uint64, 0, len(members))
	for _, m := range members {
		h, err := strconv.ParseUint(m, 36, 64)
		if err != nil {
			continue
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// Candidates mirrors the reference implementation's
// find_candidate_files: count how many of the query's posting lists
// each candidate content hash appears in, then keep those at or above
// ceil(minOverlapRatio * len(hashes)).
func (s *Store) Candidates(ctx context.Context, kind store.FingerprintKind, self string, hashes []uint64, minOverlapRatio float64, maxCandidates int) ([]string, error) {
	overlap := make(map[string]int)

	pipe := s.client.TxPipeline()
	cmds := make([]*redis.StringSliceCmd, len(hashes))
	for i, h := range hashes {
		cmds[i] = pipe.SMembers(ctx, postingsKey(kind, h))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redisstore: candidates: %w", err)
	}
	for _, cmd := range cmds {
		members, err := cmd.Result()
		if err != nil {
			continue
		}
		for _, m := range members {
			if m == self {
				continue
			}
			overlap[m]++
		}
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

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.GetEx(ctx, cachePrefix+key, s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: cache get: %w", err)
	}
	return raw, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.client.Set(ctx, cachePrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: cache put: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, cachePrefix+key).Err(); err != nil {
		return fmt.Errorf("redisstore: cache delete: %w", err)
	}
	return nil
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
