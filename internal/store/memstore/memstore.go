// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package memstore is the single-process, in-memory backend for the
// fingerprint store, inverted index, and pair-result cache. It is
// grounded on the teacher's ephemeral graph cache: bounded LRU
// eviction, a time-to-live per entry, and the same "cache is never the
// source of truth" posture.
package memstore

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sourcewatch/simguard/internal/fingerprint"
	"github.com/sourcewatch/simguard/internal/store"
)

// Default tuning, mirroring the teacher cache's documented defaults.
const (
	DefaultMaxEntries = 10000
	DefaultMaxAge     = 7 * 24 * time.Hour
)

// Option configures a Store.
type Option func(*options)

type options struct {
	maxEntries int
	maxAge     time.Duration
}

// WithMaxEntries bounds the number of entries kept per internal map
// (fingerprints, postings, cache) before LRU eviction kicks in.
// Non-positive values are ignored.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// WithMaxAge bounds how long an entry may live before it is treated as
// expired on next access. Non-positive values are ignored.
func WithMaxAge(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.maxAge = d
		}
	}
}

func defaultOptions() options {
	return options{maxEntries: DefaultMaxEntries, maxAge: DefaultMaxAge}
}

type entry struct {
	key        string
	value      any
	expiresAt  time.Time
	lruElement *list.Element
}

// lruTTL is a bounded, TTL-aware LRU map. It is the building block
// shared by Store's fingerprint map, posting lists, and result cache.
type lruTTL struct {
	mu      sync.Mutex
	opts    options
	entries map[string]*entry
	lru     *list.List

	// onEvict, if set, is called (with the entry's key) whenever an
	// entry is removed by LRU or TTL expiry, not by an explicit
	// delete. Store uses this to keep postings/fileSets consistent
	// when a fingerprint falls out of the cache.
	onEvict func(key string)
}

func newLRUTTL(opts options) *lruTTL {
	return &lruTTL{
		opts:    opts,
		entries: make(map[string]*entry),
		lru:     list.New(),
	}
}

func (c *lruTTL) get(key string) (any, bool) {
	c.mu.Lock()

	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil, false
	}
	if c.opts.maxAge > 0 && time.Now().After(e.expiresAt) {
		c.removeLocked(e)
		c.mu.Unlock()
		c.notifyEvict(e.key)
		return nil, false
	}
	// A read refreshes the TTL: an entry still being actively
	// consulted shouldn't expire out from under its readers.
	if c.opts.maxAge > 0 {
		e.expiresAt = time.Now().Add(c.opts.maxAge)
	}
	c.lru.MoveToFront(e.lruElement)
	value := e.value
	c.mu.Unlock()
	return value, true
}

// notifyEvict invokes onEvict outside the lock, since onEvict
// callbacks (e.g. Store.evictFingerprint) themselves acquire locks on
// other lruTTL instances and must not be called while c.mu is held.
func (c *lruTTL) notifyEvict(key string) {
	if c.onEvict != nil {
		c.onEvict(key)
	}
}

func (c *lruTTL) put(key string, value any, ttl time.Duration) {
	c.mu.Lock()

	if ttl <= 0 {
		ttl = c.opts.maxAge
	}
	if existing, ok := c.entries[key]; ok {
		existing.value = value
		existing.expiresAt = time.Now().Add(ttl)
		c.lru.MoveToFront(existing.lruElement)
		c.mu.Unlock()
		return
	}

	e := &entry{key: key, value: value, expiresAt: time.Now().Add(ttl)}
	e.lruElement = c.lru.PushFront(e)
	c.entries[key] = e

	var evicted []string
	for c.opts.maxEntries > 0 && len(c.entries) > c.opts.maxEntries {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		oldestEntry := oldest.Value.(*entry)
		c.removeLocked(oldestEntry)
		evicted = append(evicted, oldestEntry.key)
	}
	c.mu.Unlock()

	for _, k := range evicted {
		c.notifyEvict(k)
	}
}

func (c *lruTTL) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
}

// deleteMatching removes every entry whose key satisfies match. Used
// to invalidate pair-result cache entries that name an evicted
// fingerprint's content hash.
func (c *lruTTL) deleteMatching(match func(key string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var toRemove []*entry
	for k, e := range c.entries {
		if match(k) {
			toRemove = append(toRemove, e)
		}
	}
	for _, e := range toRemove {
		c.removeLocked(e)
	}
}

func (c *lruTTL) removeLocked(e *entry) {
	delete(c.entries, e.key)
	c.lru.Remove(e.lruElement)
}

// Store implements store.FingerprintStore, store.Index, and
// store.Cache entirely in process memory.
type Store struct {
	opts options

	tokenFP  *lruTTL
	astFP    *lruTTL
	postings map[store.FingerprintKind]*lruTTL // hash(as string key) -> map[contentHash]struct{}
	fileSets map[store.FingerprintKind]*lruTTL // contentHash -> []uint64
	cache    *lruTTL

	mu sync.RWMutex // guards postings map-of-maps mutation below the lruTTL granularity; Candidates reads under it
}

// New returns a ready-to-use Store.
func New(opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store{
		opts:    o,
		tokenFP: newLRUTTL(o),
		astFP:   newLRUTTL(o),
		postings: map[store.FingerprintKind]*lruTTL{
			store.KindToken: newLRUTTL(o),
			store.KindAst:   newLRUTTL(o),
		},
		fileSets: map[store.FingerprintKind]*lruTTL{
			store.KindToken: newLRUTTL(o),
			store.KindAst:   newLRUTTL(o),
		},
		cache: newLRUTTL(o),
	}

	// A fingerprint falling out of the cache (LRU pressure or TTL
	// expiry) must not leave its postings, file-hash set, or dependent
	// pair-result cache entries behind: that is exactly the "stale
	// postings survive eviction" consistency violation. Both
	// directions are wired: the token/AST fingerprint's own removal
	// plus the cache entries for every pair naming that content hash.
	s.tokenFP.onEvict = func(contentHash string) { s.evictFingerprint(store.KindToken, contentHash) }
	s.astFP.onEvict = func(contentHash string) { s.evictFingerprint(store.KindAst, contentHash) }

	return s
}

// evictFingerprint removes contentHash's postings and file-hash set
// for kind, and drops every pair-result cache entry naming it.
func (s *Store) evictFingerprint(kind store.FingerprintKind, contentHash string) {
	if v, ok := s.fileSets[kind].get(contentHash); ok {
		s.removeFromPostings(s.postings[kind], contentHash, v.([]uint64))
		s.fileSets[kind].delete(contentHash)
	}
	s.invalidateCacheEntriesFor(contentHash)
}

// invalidateCacheEntriesFor drops every pair-result cache entry whose
// key names contentHash, since such an entry's correctness depends on
// contentHash's fingerprint still being present.
func (s *Store) invalidateCacheEntriesFor(contentHash string) {
	s.cache.deleteMatching(func(key string) bool {
		return cacheKeyNamesHash(key, contentHash)
	})
}

var _ store.FingerprintStore = (*Store)(nil)
var _ store.Index = (*Store)(nil)
var _ store.Cache = (*Store)(nil)

func (s *Store) GetToken(_ context.Context, contentHash string) (*fingerprint.TokenFingerprint, error) {
	v, ok := s.tokenFP.get(contentHash)
	if !ok {
		return nil, store.ErrNotFound
	}
	return v.(*fingerprint.TokenFingerprint), nil
}

func (s *Store) PutToken(_ context.Context, fp *fingerprint.TokenFingerprint) error {
	s.tokenFP.put(fp.ContentHash, fp, s.opts.maxAge)
	return nil
}

func (s *Store) GetAst(_ context.Context, contentHash string) (*fingerprint.AstFingerprint, error) {
	v, ok := s.astFP.get(contentHash)
	if !ok {
		return nil, store.ErrNotFound
	}
	return v.(*fingerprint.AstFingerprint), nil
}

func (s *Store) PutAst(_ context.Context, fp *fingerprint.AstFingerprint) error {
	s.astFP.put(fp.ContentHash, fp, s.opts.maxAge)
	return nil
}

func (s *Store) Close() error { return nil }

// postingKey turns a k-gram/subtree hash into the lruTTL string key
// the postings map is keyed on.
func postingKey(h uint64) string {
	return fingerprint64ToKey(h)
}

// cacheKeyNamesHash reports whether key (a colon-joined pair-result
// cache key such as "pair:<hashA>:<hashB>") names contentHash as one
// of its components.
func cacheKeyNamesHash(key, contentHash string) bool {
	for _, part := range strings.Split(key, ":") {
		if part == contentHash {
			return true
		}
	}
	return false
}

func (s *Store) IndexFile(_ context.Context, kind store.FingerprintKind, contentHash string, hashes []uint64) error {
	postings := s.postings[kind]
	fileSets := s.fileSets[kind]

	// Idempotency: if this exact content hash was already indexed with
	// the same hash set, there is nothing to do. If it was indexed with
	// a different set (re-fingerprint after a config change), remove
	// the stale postings first.
	if prev, ok := fileSets.get(contentHash); ok {
		prevHashes := prev.([]uint64)
		if sameHashSet(prevHashes, hashes) {
			return nil
		}
		s.removeFromPostings(postings, contentHash, prevHashes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range hashes {
		key := postingKey(h)
		var set map[string]struct{}
		if v, ok := postings.get(key); ok {
			set = v.(map[string]struct{})
		} else {
			set = make(map[string]struct{})
		}
		set[contentHash] = struct{}{}
		postings.put(key, set, s.opts.maxAge)
	}
	fileSets.put(contentHash, append([]uint64(nil), hashes...), s.opts.maxAge)
	return nil
}

func (s *Store) RemoveFile(_ context.Context, kind store.FingerprintKind, contentHash string) error {
	fileSets := s.fileSets[kind]
	v, ok := fileSets.get(contentHash)
	if !ok {
		return nil
	}
	s.removeFromPostings(s.postings[kind], contentHash, v.([]uint64))
	fileSets.delete(contentHash)
	return nil
}

func (s *Store) removeFromPostings(postings *lruTTL, contentHash string, hashes []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range hashes {
		key := postingKey(h)
		v, ok := postings.get(key)
		if !ok {
			continue
		}
		set := v.(map[string]struct{})
		delete(set, contentHash)
		if len(set) == 0 {
			postings.delete(key)
		} else {
			postings.put(key, set, s.opts.maxAge)
		}
	}
}

func (s *Store) FileHashes(_ context.Context, kind store.FingerprintKind, contentHash string) ([]uint64, error) {
	v, ok := s.fileSets[kind].get(contentHash)
	if !ok {
		return nil, store.ErrNotFound
	}
	return v.([]uint64), nil
}

func (s *Store) Candidates(_ context.Context, kind store.FingerprintKind, self string, hashes []uint64, minOverlapRatio float64, maxCandidates int) ([]string, error) {
	postings := s.postings[kind]
	overlap := make(map[string]int)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range hashes {
		v, ok := postings.get(postingKey(h))
		if !ok {
			continue
		}
		for contentHash := range v.(map[string]struct{}) {
			if contentHash == self {
				continue
			}
			overlap[contentHash]++
		}
	}

	minOverlap := minOverlapCount(len(hashes), minOverlapRatio)
	candidates := make([]string, 0, len(overlap))
	for contentHash, count := range overlap {
		if count >= minOverlap {
			candidates = append(candidates, contentHash)
		}
	}

	sortByOverlapDesc(candidates, overlap)
	if maxCandidates > 0 && len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.cache.get(key)
	if !ok {
		return nil, store.ErrNotFound
	}
	return v.([]byte), nil
}

func (s *Store) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.cache.put(key, value, ttl)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.cache.delete(key)
	return nil
}
