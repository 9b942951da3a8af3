// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package fingerprint

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/sourcewatch/simguard/internal/lang"
)

// BuildAstFingerprint walks the AST rooted at root and fingerprints
// every subtree spanning at least opts.MinSubtreeTokens leaf tokens.
// Subtrees below that threshold are considered too generic to carry
// plagiarism signal (e.g. a bare identifier or a one-token literal)
// and are excluded, though their hash still contributes to their
// ancestors' canonical hashes.
func BuildAstFingerprint(ctx context.Context, root *lang.Node, language, contentHash string, opts Options) *AstFingerprint {
	start := time.Now()
	fp := &AstFingerprint{
		ContentHash:      contentHash,
		Language:         language,
		MinSubtreeTokens: opts.MinSubtreeTokens,
	}
	subtreeHash(root, opts.MinSubtreeTokens, &fp.Positions)
	recordFingerprintMetrics(ctx, "ast", language, time.Since(start), true)
	return fp
}

// subtreeHash canonically hashes a subtree bottom-up as
// (node.Kind, hash(child0), hash(child1), ..., hash(childN)), appending
// an AstPosition to out for every subtree spanning at least minTokens
// leaf tokens. The hash is intentionally non-commutative — swapping
// two children's order (e.g. reordering independent statements)
// changes the hash, since such a reorder is a structural change, not a
// renaming.
//
// Returns the subtree's hash and its leaf (token) count so the caller
// can fold both into its own parent hash without recomputing them.
func subtreeHash(n *lang.Node, minTokens int, out *[]AstPosition) (uint64, int) {
	h := fnv.New64a()
	h.Write([]byte(n.Kind))

	leafCount := 0
	if len(n.Children) == 0 {
		leafCount = 1
	}
	for _, child := range n.Children {
		childHash, childLeaves := subtreeHash(child, minTokens, out)
		leafCount += childLeaves

		var buf [8]byte
		for i := 0; i < 8; i++ {
			buf[i] = byte(childHash >> (8 * i))
		}
		h.Write(buf[:])
	}

	sum := h.Sum64()
	if leafCount >= minTokens {
		*out = append(*out, AstPosition{
			Hash:      sum,
			Span:      Span{StartLine: n.StartLine, EndLine: n.EndLine},
			TokenSpan: leafCount,
			Kind:      n.Kind,
		})
	}
	return sum, leafCount
}
