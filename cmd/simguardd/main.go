// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command simguardd runs the plagiarism-detection worker as a long
// lived process: it accepts comparison jobs over HTTP, fingerprints
// and indexes files through a configured store backend, compares
// pairs through a bounded pool, and exposes Prometheus metrics and a
// stdout trace stream for local operators.
//
// Usage:
//
//	simguardd -config ~/.simguard/simguard.yaml -addr :8081
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sourcewatch/simguard/internal/candidate"
	"github.com/sourcewatch/simguard/internal/fingerprint"
	"github.com/sourcewatch/simguard/internal/lang"
	"github.com/sourcewatch/simguard/internal/similarity"
	"github.com/sourcewatch/simguard/internal/task"
	"github.com/sourcewatch/simguard/pkg/config"
	"github.com/sourcewatch/simguard/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath(), "path to the config file")
	addr := flag.String("addr", ":8081", "HTTP listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	auditFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "match_audit.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("opening match audit file: %w", err)
	}
	defer auditFile.Close()

	logger := logging.New(logging.Config{
		Level:    levelFromString(cfg.LogLevel),
		Service:  "simguardd",
		JSON:     true,
		Exporter: logging.NewMatchAuditExporter(auditFile),
	})
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := initTelemetry(ctx, "simguardd", "0.1.0")
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err.Error())
		}
	}()

	be, err := newBackend(cfg)
	if err != nil {
		return fmt.Errorf("opening store backend: %w", err)
	}
	defer func() {
		if err := be.closer(); err != nil {
			logger.Error("closing store backend", "error", err.Error())
		}
	}()

	blobs, closeBlobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}
	defer func() {
		if err := closeBlobs(); err != nil {
			logger.Error("closing blob store", "error", err.Error())
		}
	}()

	registry := lang.NewDefaultRegistry()
	engineOpts := similarity.EngineOptions{
		Fingerprint: fingerprint.Options{
			K:                cfg.Fingerprint.K,
			W:                cfg.Fingerprint.W,
			MinSubtreeTokens: cfg.Fingerprint.MinSubtreeTokens,
		},
		CandidateThreshold: cfg.Similarity.CandidateThreshold,
		Gap:                cfg.Similarity.Gap,
		MinMatchKgrams:     cfg.Similarity.MinMatchKgrams,
		Logger:             logger.Slog(),
	}
	engine := similarity.NewEngine(registry, be.fps, be.index, be.cache, blobs, engineOpts)
	selector := candidate.NewSelector(be.index, cfg.Candidate.MinOverlapRatio, candidate.WithMaxCandidatesPerFile(cfg.Candidate.MaxCandidatesPerFile))

	tracker := newTaskTracker()
	sink := newTrackingResultSink(be.cache, tracker)
	progress := &trackingProgress{tracker: tracker}
	runner := task.NewRunner(engine, selector, sink, progress, noopBroker{}, logger)

	liveOpts := newLiveOptions(cfg)
	watcher, err := config.NewWatcher(*configPath, func(reloaded config.Config) {
		liveOpts.update(reloaded)
		logger.Info("config reloaded",
			"candidate_threshold", reloaded.Similarity.CandidateThreshold,
			"gap", reloaded.Similarity.Gap,
			"min_match_kgrams", reloaded.Similarity.MinMatchKgrams,
		)
	}, logger.Slog())
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("starting config watcher: %w", err)
	}
	defer watcher.Stop()

	queue, err := newJobQueue(runner, tracker, cfg.Task.WorkerCount*4, logger.Slog())
	if err != nil {
		return fmt.Errorf("creating job queue: %w", err)
	}
	queue.Start(ctx, cfg.Task.WorkerCount)

	srv := newServer(queue, tracker, liveOpts, tel.metricsHandler)
	httpServer := &http.Server{Addr: *addr, Handler: srv.routes()}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("simguardd listening", "addr", *addr, "store", cfg.Task.Store)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "simguard.yaml"
	}
	return filepath.Join(home, ".simguard", "simguard.yaml")
}

// levelFromString maps the config file's log_level string onto the
// logging package's Level type, defaulting to info on an empty or
// unrecognized value.
func levelFromString(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

// noopBroker satisfies task.Broker for a daemon whose jobs arrive over
// HTTP rather than a message queue with its own ack/nack semantics.
type noopBroker struct{}

func (noopBroker) Ack(context.Context, string) error        { return nil }
func (noopBroker) Nack(context.Context, string, bool) error { return nil }
