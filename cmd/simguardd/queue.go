// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/sourcewatch/simguard/internal/task"
)

// ErrQueueFull is returned by jobQueue.Submit when the bounded backlog
// is already at capacity; the caller should respond with backpressure
// (HTTP 503) rather than block the request indefinitely.
var ErrQueueFull = errors.New("simguardd: job queue is full")

// jobQueue fans jobs submitted over HTTP out to a fixed pool of
// goroutines, each driving the shared task.Runner. queueDepth is an
// UpDownCounter rather than a synchronous gauge so it survives
// whatever Prometheus scrape interval an operator configures, per the
// "queue depth" metric this worker is meant to expose.
type jobQueue struct {
	jobs       chan task.Job
	runner     *task.Runner
	tracker    *taskTracker
	logger     *slog.Logger
	queueDepth metric.Int64UpDownCounter
}

func newJobQueue(runner *task.Runner, tracker *taskTracker, capacity int, logger *slog.Logger) (*jobQueue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	depth, err := otel.Meter("simguard.simguardd").Int64UpDownCounter(
		"simguardd_queue_depth",
		metric.WithDescription("Number of jobs submitted but not yet finished"),
	)
	if err != nil {
		return nil, err
	}
	return &jobQueue{
		jobs:       make(chan task.Job, capacity),
		runner:     runner,
		tracker:    tracker,
		logger:     logger,
		queueDepth: depth,
	}, nil
}

// Submit enqueues job without blocking, returning ErrQueueFull if the
// backlog is already at capacity.
func (q *jobQueue) Submit(ctx context.Context, job task.Job) error {
	select {
	case q.jobs <- job:
		q.queueDepth.Add(ctx, 1)
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs workerCount goroutines pulling jobs until ctx is
// canceled, at which point they stop taking new work. Start itself
// returns as soon as the goroutines are launched; it does not wait for
// in-flight jobs to drain.
func (q *jobQueue) Start(ctx context.Context, workerCount int) {
	for i := 0; i < workerCount; i++ {
		go q.worker(ctx)
	}
}

func (q *jobQueue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			err := q.runner.Run(ctx, job)
			if err != nil {
				q.logger.Error("job failed", slog.String("task_id", job.TaskID), slog.String("error", err.Error()))
			}
			q.tracker.markDone(job.TaskID, err)
			q.queueDepth.Add(ctx, -1)
		}
	}
}
