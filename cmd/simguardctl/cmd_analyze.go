// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sourcewatch/simguard/internal/fingerprint"
	"github.com/sourcewatch/simguard/internal/similarity"
)

func runAnalyze(cmd *cobra.Command, args []string) error {
	path1, path2 := args[0], args[1]

	src1, err := os.ReadFile(path1)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path1, err)
	}
	src2, err := os.ReadFile(path2)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path2, err)
	}

	ws, err := newLocalWorkspace(cfg)
	if err != nil {
		return err
	}
	engine := ws.engine
	if threshold > 0 {
		opts := engine.Options()
		opts.CandidateThreshold = threshold
		engine = engine.WithOptions(opts)
	}

	ctx := context.Background()
	hash1 := fingerprint.ContentHash(src1)
	hash2 := fingerprint.ContentHash(src2)
	if err := ws.blobs.Put(ctx, hash1, src1, language); err != nil {
		return fmt.Errorf("storing %s: %w", path1, err)
	}
	if err := ws.blobs.Put(ctx, hash2, src2, language); err != nil {
		return fmt.Errorf("storing %s: %w", path2, err)
	}

	result, err := engine.Compare(ctx, hash1, hash2)
	if err != nil {
		return fmt.Errorf("comparing %s and %s: %w", path1, path2, err)
	}

	return printJSON(analyzeOutput{
		File1:      path1,
		File2:      path2,
		Language:   language,
		PairResult: result,
	})
}

type analyzeOutput struct {
	File1      string                 `json:"file1"`
	File2      string                 `json:"file2"`
	Language   string                 `json:"language"`
	PairResult *similarity.PairResult `json:"result"`
}
