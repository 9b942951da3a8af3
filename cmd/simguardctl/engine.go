// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/sourcewatch/simguard/internal/blob"
	"github.com/sourcewatch/simguard/internal/candidate"
	"github.com/sourcewatch/simguard/internal/fingerprint"
	"github.com/sourcewatch/simguard/internal/lang"
	"github.com/sourcewatch/simguard/internal/similarity"
	"github.com/sourcewatch/simguard/internal/store/memstore"
	"github.com/sourcewatch/simguard/pkg/config"
)

// localWorkspace bundles everything a one-shot CLI invocation needs: a
// registry, an in-process fingerprint store/index/cache, and a
// filesystem blob store for the raw source bytes. A CLI run never
// needs Redis or BadgerDB persistence across invocations, so memstore
// is always used here regardless of cfg.Task.Store.
type localWorkspace struct {
	registry *lang.Registry
	store    *memstore.Store
	blobs    *blob.FSStore
	engine   *similarity.Engine
	selector *candidate.Selector
}

func newLocalWorkspace(cfg config.Config) (*localWorkspace, error) {
	registry := lang.NewDefaultRegistry()
	st := memstore.New()

	blobs, err := blob.NewFSStore(filepath.Join(cfg.DataDir, "blobs"))
	if err != nil {
		return nil, fmt.Errorf("simguardctl: opening local blob store: %w", err)
	}

	opts := similarity.EngineOptions{
		Fingerprint: fingerprint.Options{
			K:                cfg.Fingerprint.K,
			W:                cfg.Fingerprint.W,
			MinSubtreeTokens: cfg.Fingerprint.MinSubtreeTokens,
		},
		CandidateThreshold: cfg.Similarity.CandidateThreshold,
		Gap:                cfg.Similarity.Gap,
		MinMatchKgrams:     cfg.Similarity.MinMatchKgrams,
	}

	engine := similarity.NewEngine(registry, st, st, st, blobs, opts)
	selector := candidate.NewSelector(st, cfg.Candidate.MinOverlapRatio, candidate.WithMaxCandidatesPerFile(cfg.Candidate.MaxCandidatesPerFile))

	return &localWorkspace{registry: registry, store: st, blobs: blobs, engine: engine, selector: selector}, nil
}
