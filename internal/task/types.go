// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package task orchestrates one plagiarism-detection job end to end:
// resolving file bytes, fingerprinting and indexing them, enumerating
// the pairs worth comparing, and writing results through to external
// storage while reporting progress.
package task

import (
	"context"
	"time"

	"github.com/sourcewatch/simguard/internal/similarity"
)

// DefaultTimeout is the job timeout applied when a Job does not
// specify one.
const DefaultTimeout = 10 * time.Minute

// DefaultWorkerCount bounds the internal comparison pool when a Job
// does not specify one.
const DefaultWorkerCount = 8

// FileRef identifies one file submitted as part of a job.
type FileRef struct {
	FileID      string
	ContentHash string
	Language    string
}

// Options overrides comparison behavior for one job; unset fields
// (pointers left nil) fall back to the runner's defaults. Only
// comparison-time knobs are overridable here — candidate_threshold,
// gap, and min_match_kgrams never change what gets fingerprinted, so
// varying them per job can never cause two jobs to disagree about
// what a given content hash's fingerprint is.
type Options struct {
	CandidateThreshold *float64
	Gap                *int
	MinMatchKgrams     *int
}

func (o Options) apply(base similarity.EngineOptions) similarity.EngineOptions {
	if o.CandidateThreshold != nil {
		base.CandidateThreshold = *o.CandidateThreshold
	}
	if o.Gap != nil {
		base.Gap = *o.Gap
	}
	if o.MinMatchKgrams != nil {
		base.MinMatchKgrams = *o.MinMatchKgrams
	}
	return base
}

// Job is one unit of work delivered by the broker: a task ID, the
// files it covers, and optional per-job comparison overrides.
type Job struct {
	TaskID  string
	Files   []FileRef
	Options Options
	// Timeout bounds the whole job; zero means DefaultTimeout applies.
	Timeout time.Duration
	// WorkerCount bounds the internal comparison pool; zero means
	// DefaultWorkerCount applies.
	WorkerCount int
}

// PairKey canonically identifies an unordered file pair for
// idempotent writes and retries.
type PairKey struct {
	TaskID string
	HashA  string
	HashB  string
}

// NewPairKey canonicalizes (a, b) so PairKey(a, b) == PairKey(b, a).
func NewPairKey(taskID, a, b string) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{TaskID: taskID, HashA: a, HashB: b}
}

// ResultSink persists a PairResult for a task, keyed by the
// canonicalized pair. Writes must be idempotent: writing the same
// pair twice leaves the store in the same state as writing it once.
type ResultSink interface {
	// HasResult reports whether a result has already been written for
	// this pair, so the runner can skip recomputation on retry.
	HasResult(ctx context.Context, key PairKey) (bool, error)

	// WriteResult persists result for the given pair.
	WriteResult(ctx context.Context, key PairKey, result *similarity.PairResult) error
}

// ProgressReporter is notified as a job makes progress, so a caller
// can expose a live pairs-completed counter.
type ProgressReporter interface {
	ReportProgress(ctx context.Context, taskID string, completed, total int)
}

// Broker acknowledges or rejects delivery of the message that carried
// a Job, so the caller's queue can route failures to a dead letter
// destination without this package reaching into the transport.
type Broker interface {
	Ack(ctx context.Context, taskID string) error
	Nack(ctx context.Context, taskID string, requeue bool) error
}
