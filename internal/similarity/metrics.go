// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package similarity

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("simguard.similarity")
	meter  = otel.Meter("simguard.similarity")
)

var (
	compareLatency   metric.Float64Histogram
	compareTotal     metric.Int64Counter
	compareErrors    metric.Int64Counter
	compareCacheHits metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the package's instruments. Safe to call
// multiple times; only the first call does any work.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		compareLatency, err = meter.Float64Histogram(
			"similarity_compare_duration_seconds",
			metric.WithDescription("Duration of pairwise similarity comparisons"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		compareTotal, err = meter.Int64Counter(
			"similarity_compare_total",
			metric.WithDescription("Total number of pairwise similarity comparisons"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		compareErrors, err = meter.Int64Counter(
			"similarity_compare_errors_total",
			metric.WithDescription("Total number of failed pairwise similarity comparisons"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		compareCacheHits, err = meter.Int64Counter(
			"similarity_compare_cache_hits_total",
			metric.WithDescription("Total number of pairwise comparisons served from the result cache"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordCompareMetrics(ctx context.Context, duration time.Duration, cacheHit, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Bool("cache_hit", cacheHit),
		attribute.Bool("success", success),
	)
	compareLatency.Record(ctx, duration.Seconds(), attrs)
	compareTotal.Add(ctx, 1, attrs)
	if cacheHit {
		compareCacheHits.Add(ctx, 1)
	}
	if !success {
		compareErrors.Add(ctx, 1)
	}
}
