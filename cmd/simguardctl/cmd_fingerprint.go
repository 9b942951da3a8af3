// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sourcewatch/simguard/internal/fingerprint"
)

type fingerprintOutput struct {
	File             string                        `json:"file"`
	Language         string                        `json:"language"`
	ContentHash      string                        `json:"content_hash"`
	TokenFingerprint *fingerprint.TokenFingerprint `json:"token_fingerprint"`
	AstFingerprint   *fingerprint.AstFingerprint   `json:"ast_fingerprint"`
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	ws, err := newLocalWorkspace(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	contentHash := fingerprint.ContentHash(src)
	if err := ws.blobs.Put(ctx, contentHash, src, language); err != nil {
		return fmt.Errorf("storing %s: %w", path, err)
	}

	adapter, err := ws.registry.Get(language)
	if err != nil {
		return err
	}

	tokenFP, err := fingerprint.BuildTokenFingerprint(ctx, adapter, language, contentHash, src, ws.engine.Options().Fingerprint)
	if err != nil {
		return fmt.Errorf("tokenizing %s: %w", path, err)
	}

	var astFP *fingerprint.AstFingerprint
	if root, perr := adapter.Parse(ctx, src); perr == nil {
		built := fingerprint.BuildAstFingerprint(ctx, root, language, contentHash, ws.engine.Options().Fingerprint)
		astFP = built
	}

	out := fingerprintOutput{
		File:             path,
		Language:         language,
		ContentHash:      contentHash,
		TokenFingerprint: tokenFP,
		AstFingerprint:   astFP,
	}
	return printJSON(out)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
