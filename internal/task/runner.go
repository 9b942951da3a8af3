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
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sourcewatch/simguard/internal/candidate"
	"github.com/sourcewatch/simguard/internal/similarity"
	"github.com/sourcewatch/simguard/pkg/logging"
)

// Runner executes one Job at a time: it fingerprints and indexes every
// file, enumerates the within-task and cross-task pairs worth
// comparing, and drives them through the similarity engine with a
// bounded internal pool.
//
// Runner logs through *logging.Logger rather than a raw *slog.Logger:
// a confirmed match is logged with an "event"="match_detected"
// attribute that a configured logging.MatchAuditExporter picks out of
// the stream into a separate audit trail, and that only happens for
// entries that go through Logger itself.
type Runner struct {
	engine   *similarity.Engine
	selector *candidate.Selector
	sink     ResultSink
	progress ProgressReporter
	broker   Broker
	logger   *logging.Logger
}

// NewRunner wires a Runner from its collaborators.
func NewRunner(engine *similarity.Engine, selector *candidate.Selector, sink ResultSink, progress ProgressReporter, broker Broker, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		engine:   engine,
		selector: selector,
		sink:     sink,
		progress: progress,
		broker:   broker,
		logger:   logger,
	}
}

// Run processes one job to completion: index every file, enumerate
// pairs, compare them through a bounded pool, and ack or nack the
// originating message. A job-level error means the job was nacked,
// except when Ack itself fails, in which case that error is returned
// and no Nack is sent; the caller does not need to call Broker itself.
func (r *Runner) Run(ctx context.Context, job Job) error {
	start := time.Now()

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if len(job.Files) < 2 {
		err := fmt.Errorf("task: job %s needs at least 2 files, got %d", job.TaskID, len(job.Files))
		_ = r.broker.Nack(ctx, job.TaskID, false)
		recordJobMetrics(ctx, time.Since(start), 0, "invalid", true)
		return err
	}

	engine := r.engine
	if job.Options != (Options{}) {
		engine = r.engine.WithOptions(job.Options.apply(r.engine.Options()))
	}

	hashesByFile := make(map[string][]uint64, len(job.Files))
	for _, f := range job.Files {
		hashes, err := engine.EnsureIndexed(ctx, f.ContentHash)
		if err != nil {
			r.logger.Error("failed to index file for task", "task_id", job.TaskID, "file_id", f.FileID, "error", err.Error())
			_ = r.broker.Nack(ctx, job.TaskID, false)
			recordJobMetrics(ctx, time.Since(start), 0, "index_error", true)
			return fmt.Errorf("task: indexing file %s: %w", f.FileID, err)
		}
		hashesByFile[f.ContentHash] = hashes
	}

	withinTaskHashes := make([]string, len(job.Files))
	for i, f := range job.Files {
		withinTaskHashes[i] = f.ContentHash
	}

	type pairTask struct {
		hashA, hashB string
	}
	var allPairs []pairTask

	for pair := range combinations(ctx, job.Files) {
		allPairs = append(allPairs, pairTask{hashA: pair.a.ContentHash, hashB: pair.b.ContentHash})
	}
	withinCount := len(allPairs)

	for _, f := range job.Files {
		cross, err := r.selector.CrossTaskCandidates(ctx, f.ContentHash, hashesByFile[f.ContentHash], withinTaskHashes)
		if err != nil {
			r.logger.Warn("cross-task candidate lookup failed, continuing without cross-task pairs for file", "task_id", job.TaskID, "file_id", f.FileID, "error", err.Error())
			continue
		}
		for _, c := range cross {
			allPairs = append(allPairs, pairTask{hashA: f.ContentHash, hashB: c})
		}
	}

	total := len(allPairs)
	r.logger.Info("task pair plan", "task_id", job.TaskID, "within_task_pairs", withinCount, "cross_task_pairs", total-withinCount, "total_pairs", total)

	workerCount := job.WorkerCount
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}

	completed := newProgressCounter(total, job.TaskID, r.progress)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount)

	for _, p := range allPairs {
		p := p
		g.Go(func() error {
			return r.comparePair(gCtx, job.TaskID, p.hashA, p.hashB, engine, completed)
		})
	}

	if err := g.Wait(); err != nil {
		r.logger.Error("task failed", "task_id", job.TaskID, "error", err.Error())
		_ = r.broker.Nack(ctx, job.TaskID, true)
		recordJobMetrics(ctx, time.Since(start), total, "compare_error", false)
		return fmt.Errorf("task: %s: %w", job.TaskID, err)
	}

	if err := r.broker.Ack(ctx, job.TaskID); err != nil {
		recordJobMetrics(ctx, time.Since(start), total, "ack_error", false)
		return fmt.Errorf("task: ack job %s: %w", job.TaskID, err)
	}
	recordJobMetrics(ctx, time.Since(start), total, "success", false)
	return nil
}

func (r *Runner) comparePair(ctx context.Context, taskID, hashA, hashB string, engine *similarity.Engine, completed *progressCounter) error {
	key := NewPairKey(taskID, hashA, hashB)

	done, err := r.sink.HasResult(ctx, key)
	if err != nil {
		return fmt.Errorf("task: checking existing result for %s/%s: %w", hashA, hashB, err)
	}
	if done {
		completed.increment(ctx)
		return nil
	}

	result, err := engine.Compare(ctx, hashA, hashB)
	if err != nil && errors.Is(err, similarity.ErrFingerprintUnavailable) {
		// A fingerprint failure may be transient (e.g. a blob-store
		// hiccup resolving bytes); retry once with a fresh fingerprint
		// computation before giving up on the pair. Nothing is cached
		// on the failure path, so this retry naturally rebuilds from
		// scratch rather than replaying the same failure.
		r.logger.Warn("fingerprint unavailable, retrying once", "task_id", taskID, "hash_a", hashA, "hash_b", hashB, "error", err.Error())
		result, err = engine.Compare(ctx, hashA, hashB)
	}
	if err != nil {
		return fmt.Errorf("task: comparing %s/%s: %w", hashA, hashB, err)
	}

	// On timeout/cancellation, abandon without writing a partial
	// result; whatever was already written stays (it is correct).
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := r.sink.WriteResult(ctx, key, result); err != nil {
		return fmt.Errorf("task: writing result for %s/%s: %w", hashA, hashB, err)
	}

	if len(result.Matches) > 0 {
		r.logger.Info("match detected",
			"event", "match_detected",
			"task_id", taskID,
			"hash_a", hashA,
			"hash_b", hashB,
			"token_similarity", result.TokenSimilarity,
			"ast_similarity", result.AstSimilarity,
		)
	}

	completed.increment(ctx)
	return nil
}
