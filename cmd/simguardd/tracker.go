// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"sync"

	"github.com/sourcewatch/simguard/internal/similarity"
	"github.com/sourcewatch/simguard/internal/store"
	"github.com/sourcewatch/simguard/internal/task"
)

// pairResult pairs a PairKey with its result for JSON responses.
type pairResult struct {
	HashA  string                 `json:"hash_a"`
	HashB  string                 `json:"hash_b"`
	Result *similarity.PairResult `json:"result"`
}

// taskRecord tracks one submitted job's progress as the pool works
// through it, so a later GET can report status without re-running
// anything.
type taskRecord struct {
	mu        sync.Mutex
	total     int
	completed int
	results   []pairResult
	err       error
	done      bool
}

func (r *taskRecord) snapshot() (total, completed int, results []pairResult, err error, done bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]pairResult, len(r.results))
	copy(out, r.results)
	return r.total, r.completed, out, r.err, r.done
}

// taskTracker holds the in-memory record for every job the daemon has
// accepted since startup. Records are never evicted here; an operator
// restarting the daemon loses history, which is acceptable since every
// result is also durably written through the configured result cache.
type taskTracker struct {
	mu      sync.Mutex
	records map[string]*taskRecord
}

func newTaskTracker() *taskTracker {
	return &taskTracker{records: make(map[string]*taskRecord)}
}

func (t *taskTracker) register(taskID string) *taskRecord {
	rec := &taskRecord{}
	t.mu.Lock()
	t.records[taskID] = rec
	t.mu.Unlock()
	return rec
}

func (t *taskTracker) get(taskID string) (*taskRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[taskID]
	return rec, ok
}

func (t *taskTracker) markDone(taskID string, err error) {
	rec, ok := t.get(taskID)
	if !ok {
		return
	}
	rec.mu.Lock()
	rec.done = true
	rec.err = err
	rec.mu.Unlock()
}

// trackingProgress updates the tracker's per-task counters as the
// runner reports progress; it carries no job-specific state of its
// own since every call already names the task ID.
type trackingProgress struct {
	tracker *taskTracker
}

func (p *trackingProgress) ReportProgress(_ context.Context, taskID string, completed, total int) {
	rec, ok := p.tracker.get(taskID)
	if !ok {
		return
	}
	rec.mu.Lock()
	rec.completed = completed
	rec.total = total
	rec.mu.Unlock()
}

// trackingResultSink writes through to the durable result cache and
// also appends to the in-memory record so a status poll can return
// results without a second round trip to the cache per pair.
type trackingResultSink struct {
	*cacheResultSink
	tracker *taskTracker
}

func newTrackingResultSink(cache store.Cache, tracker *taskTracker) *trackingResultSink {
	return &trackingResultSink{cacheResultSink: newCacheResultSink(cache), tracker: tracker}
}

func (s *trackingResultSink) WriteResult(ctx context.Context, key task.PairKey, result *similarity.PairResult) error {
	if err := s.cacheResultSink.WriteResult(ctx, key, result); err != nil {
		return err
	}
	if rec, ok := s.tracker.get(key.TaskID); ok {
		rec.mu.Lock()
		rec.results = append(rec.results, pairResult{HashA: key.HashA, HashB: key.HashB, Result: result})
		rec.mu.Unlock()
	}
	return nil
}
