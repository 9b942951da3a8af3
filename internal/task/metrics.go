// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package task

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("simguard.task")

var (
	jobDuration   metric.Float64Histogram
	jobTotal      metric.Int64Counter
	jobDeadLetter metric.Int64Counter
	pairsTotal    metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the package's instruments. Safe to call
// multiple times; only the first call does any work.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		jobDuration, err = meter.Float64Histogram(
			"task_job_duration_seconds",
			metric.WithDescription("Duration of a task run from first file indexed to final ack/nack"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		jobTotal, err = meter.Int64Counter(
			"task_job_total",
			metric.WithDescription("Total number of task jobs run, labeled by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		jobDeadLetter, err = meter.Int64Counter(
			"task_job_dead_letter_total",
			metric.WithDescription("Total number of jobs nacked without requeue"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		pairsTotal, err = meter.Int64Counter(
			"task_pairs_compared_total",
			metric.WithDescription("Total number of file pairs compared across all jobs"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordJobMetrics records the outcome of one job run. deadLettered is
// true only when the job was nacked without requeue (a permanent
// failure such as too few files), not on a requeueable comparison
// error.
func recordJobMetrics(ctx context.Context, duration time.Duration, pairs int, outcome string, deadLettered bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	jobDuration.Record(ctx, duration.Seconds(), attrs)
	jobTotal.Add(ctx, 1, attrs)
	if pairs > 0 {
		pairsTotal.Add(ctx, int64(pairs))
	}
	if deadLettered {
		jobDeadLetter.Add(ctx, 1)
	}
}
