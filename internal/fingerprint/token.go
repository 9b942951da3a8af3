// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/sourcewatch/simguard/internal/lang"
)

// BuildTokenFingerprint tokenizes src with the given language adapter
// and reduces the resulting k-gram stream to a winnowed fingerprint.
//
// contentHash should be the content-addressed identity of src (e.g.
// sha256); it is stored on the result for use as a store key and is
// not recomputed here to avoid hashing the same bytes twice when the
// caller already has it.
func BuildTokenFingerprint(ctx context.Context, adapter lang.Adapter, language, contentHash string, src []byte, opts Options) (*TokenFingerprint, error) {
	start := time.Now()
	tokens, err := adapter.Tokenize(ctx, src)
	if err != nil {
		recordFingerprintMetrics(ctx, "token", language, time.Since(start), false)
		return nil, err
	}

	hashes := kgramHashes(tokens, opts.K)
	winnowedIdx := winnow(hashes, opts.W)

	positions := make([]Position, 0, len(winnowedIdx))
	for _, idx := range winnowedIdx {
		span := kgramSpan(tokens, idx, opts.K)
		positions = append(positions, Position{
			Hash:  hashes[idx],
			Span:  span,
			Index: idx,
		})
	}

	fp := &TokenFingerprint{
		ContentHash: contentHash,
		Language:    language,
		K:           opts.K,
		W:           opts.W,
		Positions:   positions,
		TotalKgrams: len(hashes),
	}

	recordFingerprintMetrics(ctx, "token", language, time.Since(start), true)
	return fp, nil
}

// kgramSpan computes the line span covered by the k-gram starting at
// token index idx and spanning k tokens.
func kgramSpan(tokens []lang.Token, idx, k int) Span {
	end := idx + k - 1
	if end >= len(tokens) {
		end = len(tokens) - 1
	}
	return Span{
		StartLine: tokens[idx].StartLine,
		EndLine:   tokens[end].EndLine,
	}
}

// ContentHash returns the sha256 hex digest of src, the canonical
// content-addressing scheme used across the store and task runner.
func ContentHash(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}
