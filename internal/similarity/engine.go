// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sourcewatch/simguard/internal/fingerprint"
	"github.com/sourcewatch/simguard/internal/lang"
	"github.com/sourcewatch/simguard/internal/store"
)

// Default option values, as documented in the configuration table.
const (
	DefaultCandidateThreshold = 0.15
	DefaultGap                = 2
	DefaultMinMatchKgrams     = 2
)

// BytesResolver resolves a content hash back to the source bytes and
// language tag needed to (re)build a fingerprint that isn't already in
// the store. Implementations typically wrap a blob store keyed by the
// same content hash the caller originally submitted.
type BytesResolver interface {
	Resolve(ctx context.Context, contentHash string) (src []byte, language string, err error)
}

// EngineOptions configures an Engine. The zero value is not usable; use
// DefaultEngineOptions and override individual fields.
type EngineOptions struct {
	Fingerprint        fingerprint.Options
	CandidateThreshold float64
	Gap                int
	MinMatchKgrams     int
	Logger             *slog.Logger
}

// DefaultEngineOptions returns the documented defaults.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Fingerprint:        fingerprint.DefaultOptions(),
		CandidateThreshold: DefaultCandidateThreshold,
		Gap:                DefaultGap,
		MinMatchKgrams:     DefaultMinMatchKgrams,
		Logger:             slog.Default(),
	}
}

// Engine computes pairwise similarity between content-addressed files,
// consulting a fingerprint store, an inverted index, and a pair-result
// cache so that repeated or concurrent comparisons of the same pair
// never redo the work (or disagree about the answer).
type Engine struct {
	registry *lang.Registry
	fps      store.FingerprintStore
	index    store.Index
	cache    store.Cache
	resolver BytesResolver
	opts     EngineOptions

	sf singleflight.Group
}

// NewEngine wires an Engine from its collaborators. fps, index, and
// cache are injected collaborators per the design's "treat the store
// as an injected dependency, not an ambient global" posture; any
// store.FingerprintStore/Index/Cache implementation (memstore,
// badgerstore, redisstore) may be passed here interchangeably.
func NewEngine(registry *lang.Registry, fps store.FingerprintStore, index store.Index, cache store.Cache, resolver BytesResolver, opts EngineOptions) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		registry: registry,
		fps:      fps,
		index:    index,
		cache:    cache,
		resolver: resolver,
		opts:     opts,
	}
}

// WithOptions returns a new Engine sharing this one's store, index,
// cache, registry, and resolver but using opts for comparison
// behavior. It has its own single-flight group, so in-flight
// de-duplication is scoped per Engine value, not across overrides —
// callers that vary k/w/min_subtree_tokens per job should be aware
// that differing fingerprint.Options change what gets built and
// cached under a given content hash, so only vary them when job
// scoping guarantees content hashes don't collide across option sets.
func (e *Engine) WithOptions(opts EngineOptions) *Engine {
	return NewEngine(e.registry, e.fps, e.index, e.cache, e.resolver, opts)
}

// Options returns the EngineOptions this Engine was constructed with.
func (e *Engine) Options() EngineOptions {
	return e.opts
}

// EnsureIndexed loads or builds the token fingerprint for contentHash,
// persisting and indexing it as a side effect, and returns the hash
// set retained by winnowing. Callers that need a file's fingerprint
// hashes for candidate selection ahead of a full Compare (the task
// runner's pair-enumeration step) call this directly rather than
// duplicating fingerprint construction.
func (e *Engine) EnsureIndexed(ctx context.Context, contentHash string) ([]uint64, error) {
	fp, err := e.loadTokenFingerprint(ctx, contentHash)
	if err != nil {
		return nil, err
	}
	return fp.Hashes(), nil
}

// Compare computes the similarity between two content-addressed files,
// consulting and then populating the pair-result cache.
func (e *Engine) Compare(ctx context.Context, hashA, hashB string) (*PairResult, error) {
	ctx, span := tracer.Start(ctx, "similarity.Compare")
	defer span.End()

	start := time.Now()
	canonA, canonB := canonicalOrder(hashA, hashB)
	cacheKey := pairCacheKey(canonA, canonB)

	if cached, err := e.getCached(ctx, canonA, canonB, cacheKey); err == nil {
		recordCompareMetrics(ctx, time.Since(start), true, true)
		return cached, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		e.opts.Logger.Warn("pair cache read failed, recomputing", slog.String("error", err.Error()))
	}

	// Single-flight: only one worker computes a given pair at a time;
	// a concurrent caller for the same pair waits for this result
	// rather than racing a divergent computation.
	v, err, _ := e.sf.Do(cacheKey, func() (any, error) {
		// Re-check the cache inside the flight in case another
		// process (not deduplicated by this in-process singleflight
		// group) published a result while we were waiting to enter.
		if cached, cacheErr := e.getCached(ctx, canonA, canonB, cacheKey); cacheErr == nil {
			return cached, nil
		}
		return e.compareUncached(ctx, canonA, canonB)
	})
	recordCompareMetrics(ctx, time.Since(start), false, err == nil)
	if err != nil {
		return nil, err
	}
	return v.(*PairResult), nil
}

func (e *Engine) compareUncached(ctx context.Context, hashA, hashB string) (*PairResult, error) {
	tokenA, errA := e.loadTokenFingerprint(ctx, hashA)
	tokenB, errB := e.loadTokenFingerprint(ctx, hashB)

	// An unparseable file degrades the pair to a zero result tagged
	// with a reason instead of aborting the comparison: the other
	// side's fingerprint is still meaningful to have on record, and a
	// bad file shouldn't take down every pair it's a candidate for.
	if reason, degraded := tokenizeFailureReason(hashA, errA, hashB, errB); degraded {
		result := &PairResult{HashA: hashA, HashB: hashB, Reason: reason}
		return result, e.putCached(ctx, pairCacheKey(hashA, hashB), result)
	}
	if errA != nil {
		return nil, errA
	}
	if errB != nil {
		return nil, errB
	}

	// A file compared with itself is identical however few fingerprints
	// it yields: full similarity and one match covering every line.
	if hashA == hashB {
		if src, _, err := e.resolver.Resolve(ctx, hashA); err == nil && len(src) > 0 {
			lines := bytes.Count(src, []byte("\n"))
			if src[len(src)-1] != '\n' {
				lines++
			}
			result := &PairResult{HashA: hashA, HashB: hashB, TokenSimilarity: 1, AstSimilarity: 1,
				Matches: []Match{{AStart: 1, AEnd: lines, BStart: 1, BEnd: lines}}}
			return result, e.putCached(ctx, pairCacheKey(hashA, hashB), result)
		}
	}

	tokenSim := jaccard(tokenA.UniqueHashSet(), tokenB.UniqueHashSet())

	if tokenSim < e.opts.CandidateThreshold {
		result := &PairResult{HashA: hashA, HashB: hashB, TokenSimilarity: tokenSim, AstSimilarity: 0}
		return result, e.putCached(ctx, pairCacheKey(hashA, hashB), result)
	}

	astA := e.loadAstFingerprintBestEffort(ctx, hashA)
	astB := e.loadAstFingerprintBestEffort(ctx, hashB)
	astSim := jaccard(astA.UniqueHashSet(), astB.UniqueHashSet())

	candidates := buildCandidates(tokenA, tokenB)
	matches := mergeCandidates(candidates, e.opts.Gap, e.opts.MinMatchKgrams)

	result := &PairResult{
		HashA:           hashA,
		HashB:           hashB,
		TokenSimilarity: tokenSim,
		AstSimilarity:   astSim,
		Matches:         matches,
	}
	return result, e.putCached(ctx, pairCacheKey(hashA, hashB), result)
}

// loadTokenFingerprint returns the token fingerprint for contentHash,
// building and storing it if it is not already cached. Content the
// adapter rejects as invalid is reported as TokenizeError; every other
// lookup, resolve, or build failure is reported as
// FingerprintUnavailableError.
func (e *Engine) loadTokenFingerprint(ctx context.Context, contentHash string) (*fingerprint.TokenFingerprint, error) {
	fp, err := e.fps.GetToken(ctx, contentHash)
	if err == nil {
		return fp, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, &FingerprintUnavailableError{ContentHash: contentHash, Err: err}
	}

	src, language, err := e.resolver.Resolve(ctx, contentHash)
	if err != nil {
		return nil, &FingerprintUnavailableError{ContentHash: contentHash, Err: err}
	}
	adapter, err := e.registry.Get(language)
	if err != nil {
		return nil, &FingerprintUnavailableError{ContentHash: contentHash, Err: err}
	}

	built, err := fingerprint.BuildTokenFingerprint(ctx, adapter, language, contentHash, src, e.opts.Fingerprint)
	if err != nil {
		if errors.Is(err, lang.ErrInvalidContent) {
			return nil, &TokenizeError{ContentHash: contentHash, Err: err}
		}
		return nil, &FingerprintUnavailableError{ContentHash: contentHash, Err: err}
	}

	if putErr := e.fps.PutToken(ctx, built); putErr != nil {
		e.opts.Logger.Warn("failed to persist token fingerprint", slog.String("content_hash", contentHash), slog.String("error", putErr.Error()))
	}
	if idxErr := e.index.IndexFile(ctx, store.KindToken, contentHash, built.Hashes()); idxErr != nil {
		e.opts.Logger.Warn("failed to index token fingerprint", slog.String("content_hash", contentHash), slog.String("error", idxErr.Error()))
	}
	return built, nil
}

// loadAstFingerprintBestEffort returns the AST fingerprint for
// contentHash, or an empty one if it cannot be parsed. A parse failure
// is logged and continued past, never propagated: the file gets an
// empty AstFingerprint, so ast similarity involving it is 0.
func (e *Engine) loadAstFingerprintBestEffort(ctx context.Context, contentHash string) *fingerprint.AstFingerprint {
	if fp, err := e.fps.GetAst(ctx, contentHash); err == nil {
		return fp
	}

	src, language, err := e.resolver.Resolve(ctx, contentHash)
	if err != nil {
		e.opts.Logger.Warn("could not resolve bytes for AST fingerprint", slog.String("content_hash", contentHash), slog.String("error", err.Error()))
		return &fingerprint.AstFingerprint{ContentHash: contentHash}
	}
	adapter, err := e.registry.Get(language)
	if err != nil {
		e.opts.Logger.Warn("no adapter for AST fingerprint", slog.String("content_hash", contentHash), slog.String("language", language))
		return &fingerprint.AstFingerprint{ContentHash: contentHash, Language: language}
	}

	root, err := adapter.Parse(ctx, src)
	if err != nil {
		e.opts.Logger.Info("parse failed, continuing with empty AST fingerprint", slog.String("content_hash", contentHash), slog.String("error", err.Error()))
		return &fingerprint.AstFingerprint{ContentHash: contentHash, Language: language}
	}

	built := fingerprint.BuildAstFingerprint(ctx, root, language, contentHash, e.opts.Fingerprint)
	if putErr := e.fps.PutAst(ctx, built); putErr != nil {
		e.opts.Logger.Warn("failed to persist AST fingerprint", slog.String("content_hash", contentHash), slog.String("error", putErr.Error()))
	}
	if idxErr := e.index.IndexFile(ctx, store.KindAst, contentHash, built.Hashes()); idxErr != nil {
		e.opts.Logger.Warn("failed to index AST fingerprint", slog.String("content_hash", contentHash), slog.String("error", idxErr.Error()))
	}
	return built
}

// getCached returns the cached PairResult for key, if any, but only
// after validating it is still backed by both sides' token
// fingerprints: a cache entry is valid only while both are present, so
// an LRU/TTL eviction of either invalidates every pair result that
// depended on it. A stale entry is deleted and reported as a miss so
// the caller recomputes and re-populates it. Degraded results (Reason
// set) never depended on a persisted fingerprint existing in the first
// place, so they skip this check.
func (e *Engine) getCached(ctx context.Context, hashA, hashB, key string) (*PairResult, error) {
	raw, err := e.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var result PairResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("similarity: decode cached pair result: %w", err)
	}
	if result.Reason == "" && !e.fingerprintsStillPresent(ctx, hashA, hashB) {
		_ = e.cache.Delete(ctx, key)
		return nil, store.ErrNotFound
	}
	return &result, nil
}

// fingerprintsStillPresent reports whether both content hashes still
// have a token fingerprint in the store, i.e. neither has been evicted
// since the cached pair result was written.
func (e *Engine) fingerprintsStillPresent(ctx context.Context, hashA, hashB string) bool {
	if _, err := e.fps.GetToken(ctx, hashA); err != nil {
		return false
	}
	if _, err := e.fps.GetToken(ctx, hashB); err != nil {
		return false
	}
	return true
}

func (e *Engine) putCached(ctx context.Context, key string, result *PairResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("similarity: encode pair result: %w", err)
	}
	return e.cache.Put(ctx, key, raw, 0)
}

// canonicalOrder returns (a, b) reordered so the first element is
// lexicographically smaller, making compare(A,B) and compare(B,A)
// address the same cache entry.
func canonicalOrder(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

func pairCacheKey(canonA, canonB string) string {
	return "pair:" + canonA + ":" + canonB
}

// tokenizeFailureReason reports whether either load error is a
// TokenizeError and, if so, a human-readable reason naming which side
// failed. FingerprintUnavailableError (or any other error) is left for
// the caller to propagate as a pair-level error instead.
func tokenizeFailureReason(hashA string, errA error, hashB string, errB error) (string, bool) {
	var tokErr *TokenizeError
	if errors.As(errA, &tokErr) {
		return fmt.Sprintf("tokenize failed for %s: %v", hashA, tokErr.Err), true
	}
	if errors.As(errB, &tokErr) {
		return fmt.Sprintf("tokenize failed for %s: %v", hashB, tokErr.Err), true
	}
	return "", false
}

// Hashes exposes TokenFingerprint.Hashes() for callers outside this
// package that already hold a fingerprint, without reaching into
// package fingerprint directly.
func Hashes(fp *fingerprint.TokenFingerprint) []uint64 {
	return fp.Hashes()
}
