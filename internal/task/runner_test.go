// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcewatch/simguard/internal/candidate"
	"github.com/sourcewatch/simguard/internal/fingerprint"
	"github.com/sourcewatch/simguard/internal/lang"
	"github.com/sourcewatch/simguard/internal/similarity"
	"github.com/sourcewatch/simguard/internal/store"
	"github.com/sourcewatch/simguard/internal/store/memstore"
)

// flakyFingerprintStore wraps a real FingerprintStore but lets a test
// force a specific, non-ErrNotFound failure on the Nth GetToken call for
// a given hash, simulating a transient backend read failure.
type flakyFingerprintStore struct {
	store.FingerprintStore
	mu        sync.Mutex
	failAt    map[string]int
	callCount map[string]int
}

func newFlakyFingerprintStore(underlying store.FingerprintStore) *flakyFingerprintStore {
	return &flakyFingerprintStore{
		FingerprintStore: underlying,
		failAt:           make(map[string]int),
		callCount:        make(map[string]int),
	}
}

func (s *flakyFingerprintStore) failOnCall(hash string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAt[hash] = n
}

func (s *flakyFingerprintStore) GetToken(ctx context.Context, hash string) (*fingerprint.TokenFingerprint, error) {
	s.mu.Lock()
	s.callCount[hash]++
	shouldFail := s.callCount[hash] == s.failAt[hash]
	s.mu.Unlock()
	if shouldFail {
		return nil, errors.New("flaky store: transient read failure")
	}
	return s.FingerprintStore.GetToken(ctx, hash)
}

type fakeResolver struct {
	mu    sync.Mutex
	files map[string]struct {
		src      []byte
		language string
	}
}

func newFakeResolver() *fakeResolver {
	r := &fakeResolver{}
	r.files = make(map[string]struct {
		src      []byte
		language string
	})
	return r
}

func (r *fakeResolver) add(language string, src []byte) string {
	hash := fingerprint.ContentHash(src)
	r.mu.Lock()
	r.files[hash] = struct {
		src      []byte
		language string
	}{src: src, language: language}
	r.mu.Unlock()
	return hash
}

func (r *fakeResolver) Resolve(_ context.Context, contentHash string) ([]byte, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[contentHash]
	if !ok {
		return nil, "", fmt.Errorf("no such content hash: %s", contentHash)
	}
	return f.src, f.language, nil
}

type fakeSink struct {
	mu      sync.Mutex
	results map[PairKey]*similarity.PairResult
}

func newFakeSink() *fakeSink {
	return &fakeSink{results: make(map[PairKey]*similarity.PairResult)}
}

func (s *fakeSink) HasResult(_ context.Context, key PairKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.results[key]
	return ok, nil
}

func (s *fakeSink) WriteResult(_ context.Context, key PairKey, result *similarity.PairResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = result
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

type fakeProgress struct {
	mu      sync.Mutex
	reports []int
}

func (p *fakeProgress) ReportProgress(_ context.Context, _ string, completed, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, completed)
}

type fakeBroker struct {
	mu      sync.Mutex
	acked   []string
	nacked  []string
	requeue []bool
}

func (b *fakeBroker) Ack(_ context.Context, taskID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.acked = append(b.acked, taskID)
	return nil
}

func (b *fakeBroker) Nack(_ context.Context, taskID string, requeue bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nacked = append(b.nacked, taskID)
	b.requeue = append(b.requeue, requeue)
	return nil
}

func newTestRunner(t *testing.T) (*Runner, *fakeResolver, *fakeSink, *fakeBroker) {
	t.Helper()
	registry := lang.NewDefaultRegistry()
	st := memstore.New()
	resolver := newFakeResolver()
	engine := similarity.NewEngine(registry, st, st, st, resolver, similarity.DefaultEngineOptions())
	selector := candidate.NewSelector(st, similarity.DefaultCandidateThreshold)
	sink := newFakeSink()
	broker := &fakeBroker{}
	runner := NewRunner(engine, selector, sink, &fakeProgress{}, broker, nil)
	return runner, resolver, sink, broker
}

func TestRunner_WithinTaskAllPairsCompared(t *testing.T) {
	runner, resolver, sink, broker := newTestRunner(t)

	hashA := resolver.add("python", []byte("def f(x):\n    return x + 1\n"))
	hashB := resolver.add("python", []byte("def g(y):\n    return y + 2\n"))
	hashC := resolver.add("python", []byte("print('unrelated')\n"))

	job := Job{
		TaskID: "task-1",
		Files: []FileRef{
			{FileID: "a", ContentHash: hashA, Language: "python"},
			{FileID: "b", ContentHash: hashB, Language: "python"},
			{FileID: "c", ContentHash: hashC, Language: "python"},
		},
	}

	err := runner.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 3, sink.count()) // 3 choose 2 = 3 within-task pairs
	assert.Equal(t, []string{"task-1"}, broker.acked)
	assert.Empty(t, broker.nacked)
}

func TestRunner_RejectsJobWithFewerThanTwoFiles(t *testing.T) {
	runner, resolver, _, broker := newTestRunner(t)
	hashA := resolver.add("python", []byte("def f(x):\n    return x\n"))

	job := Job{TaskID: "task-2", Files: []FileRef{{FileID: "a", ContentHash: hashA, Language: "python"}}}
	err := runner.Run(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, []string{"task-2"}, broker.nacked)
}

func TestRunner_IdempotentRetrySkipsWrittenPairs(t *testing.T) {
	runner, resolver, sink, _ := newTestRunner(t)

	hashA := resolver.add("python", []byte("def f(x):\n    return x + 1\n"))
	hashB := resolver.add("python", []byte("def g(y):\n    return y + 2\n"))

	job := Job{
		TaskID: "task-3",
		Files: []FileRef{
			{FileID: "a", ContentHash: hashA, Language: "python"},
			{FileID: "b", ContentHash: hashB, Language: "python"},
		},
	}

	require.NoError(t, runner.Run(context.Background(), job))
	assert.Equal(t, 1, sink.count())

	// Re-running the same job must not error and must leave the sink
	// in the same state (one result for the one pair).
	require.NoError(t, runner.Run(context.Background(), job))
	assert.Equal(t, 1, sink.count())
}

// A transient GetToken failure during comparison (distinct from the
// earlier indexing read) is retried once by comparePair; the job still
// completes and is acked.
func TestRunner_RetriesOnceOnFingerprintUnavailable(t *testing.T) {
	registry := lang.NewDefaultRegistry()
	st := memstore.New()
	flaky := newFlakyFingerprintStore(st)
	resolver := newFakeResolver()
	engine := similarity.NewEngine(registry, flaky, st, st, resolver, similarity.DefaultEngineOptions())
	selector := candidate.NewSelector(st, similarity.DefaultCandidateThreshold)
	sink := newFakeSink()
	broker := &fakeBroker{}
	runner := NewRunner(engine, selector, sink, &fakeProgress{}, broker, nil)

	hashA := resolver.add("python", []byte("def f(x):\n    return x + 1\n"))
	hashB := resolver.add("python", []byte("def g(y):\n    return y + 2\n"))

	// The 1st GetToken(hashA) call happens during EnsureIndexed and must
	// succeed so the fingerprint is actually persisted. The 2nd call
	// happens when compareUncached re-reads it; fail exactly that one.
	// The runner's retry is the 3rd call, which succeeds against the
	// now-persisted fingerprint.
	flaky.failOnCall(hashA, 2)

	job := Job{
		TaskID: "task-retry",
		Files: []FileRef{
			{FileID: "a", ContentHash: hashA, Language: "python"},
			{FileID: "b", ContentHash: hashB, Language: "python"},
		},
	}

	err := runner.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, []string{"task-retry"}, broker.acked)
	assert.Empty(t, broker.nacked)
}

func TestRunner_CrossTaskCandidatesCompared(t *testing.T) {
	runner, resolver, sink, _ := newTestRunner(t)

	priorSrc := []byte("def compute_total(items):\n    total = 0\n    for item in items:\n        total += item\n    return total\n")
	// Renamed identifiers only: shares nearly every token k-gram hash
	// with priorSrc (rename invariance), but hashes to a distinct
	// content hash so it can be indexed as a separate file.
	newSrc := []byte("def compute_total(elements):\n    total = 0\n    for elem in elements:\n        total += elem\n    return total\n")

	priorHash := resolver.add("python", priorSrc)
	priorJob := Job{
		TaskID: "prior-task",
		Files: []FileRef{
			{FileID: "p1", ContentHash: priorHash, Language: "python"},
			{FileID: "p2", ContentHash: resolver.add("python", []byte("x = 1\ny = 2\n")), Language: "python"},
		},
	}
	require.NoError(t, runner.Run(context.Background(), priorJob))

	newHash := resolver.add("python", newSrc)
	require.NotEqual(t, priorHash, newHash)
	newJob := Job{
		TaskID: "new-task",
		Files: []FileRef{
			{FileID: "n1", ContentHash: newHash, Language: "python"},
			{FileID: "n2", ContentHash: resolver.add("python", []byte("z = 99\n")), Language: "python"},
		},
	}
	require.NoError(t, runner.Run(context.Background(), newJob))

	found := false
	for key := range sink.results {
		if key.TaskID == "new-task" && (key.HashA == priorHash || key.HashB == priorHash) {
			found = true
		}
	}
	assert.True(t, found, "expected a cross-task pair between the new task's renamed file and the prior task's file")
}
