// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package fingerprint

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("simguard.fingerprint")

var (
	buildLatency metric.Float64Histogram
	buildTotal   metric.Int64Counter
	buildErrors  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the package's instruments. Safe to call
// multiple times; only the first call does any work.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"fingerprint_build_duration_seconds",
			metric.WithDescription("Duration of fingerprint build operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"fingerprint_build_total",
			metric.WithDescription("Total number of fingerprint build operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildErrors, err = meter.Int64Counter(
			"fingerprint_build_errors_total",
			metric.WithDescription("Total number of failed fingerprint build operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordFingerprintMetrics records latency and outcome for a single
// fingerprint build. kind is "token" or "ast".
func recordFingerprintMetrics(ctx context.Context, kind, language string, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("language", language),
		attribute.Bool("success", success),
	)

	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)
	if !success {
		buildErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("language", language),
		))
	}
}
