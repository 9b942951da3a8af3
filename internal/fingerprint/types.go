// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package fingerprint builds renaming-resistant token fingerprints
// (k-gram rolling hashes reduced by winnowing) and structural AST
// subtree fingerprints from a normalized token stream or generic AST,
// as produced by package lang.
package fingerprint

// Options configures fingerprint construction. The zero value is not
// usable; call DefaultOptions and override individual fields.
type Options struct {
	// K is the k-gram length in tokens.
	K int

	// W is the winnowing window size in k-grams.
	W int

	// MinSubtreeTokens is the minimum token span an AST subtree must
	// cover to be eligible for AST fingerprinting. Subtrees smaller than
	// this are considered too generic (e.g. a bare "return x") to carry
	// plagiarism signal on their own.
	MinSubtreeTokens int
}

// DefaultOptions returns the documented defaults: K=6, W=5,
// MinSubtreeTokens=20.
func DefaultOptions() Options {
	return Options{K: 6, W: 5, MinSubtreeTokens: 20}
}

// Span identifies a contiguous line range a fingerprint position
// corresponds to in the source file it was built from.
type Span struct {
	StartLine int
	EndLine   int
}

// Position is a single winnowed k-gram occurrence: its hash and the
// span of source lines the k-gram covers.
type Position struct {
	Hash  uint64
	Span  Span
	Index int // k-gram index within the token stream, 0-based
}

// TokenFingerprint is the winnowed set of k-gram hashes for one source
// file, together with the positions retained by winnowing.
type TokenFingerprint struct {
	ContentHash string
	Language    string
	K           int
	W           int

	// Positions is sorted by Index ascending. Multiple positions may
	// share a Hash (the same k-gram occurring more than once); all are
	// kept since the inverted index needs every occurrence for match
	// region reconstruction.
	Positions []Position

	// TotalKgrams is the number of k-grams the token stream produced
	// before winnowing, used as the Jaccard/overlap denominator base.
	TotalKgrams int
}

// Hashes returns the (possibly-repeated) set of hashes retained by
// winnowing, in Position order.
func (fp *TokenFingerprint) Hashes() []uint64 {
	hashes := make([]uint64, len(fp.Positions))
	for i, p := range fp.Positions {
		hashes[i] = p.Hash
	}
	return hashes
}

// UniqueHashSet returns the distinct set of hashes retained by
// winnowing, used for Jaccard overlap computation.
func (fp *TokenFingerprint) UniqueHashSet() map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(fp.Positions))
	for _, p := range fp.Positions {
		set[p.Hash] = struct{}{}
	}
	return set
}

// AstPosition is a single fingerprinted subtree: its canonical hash,
// the span it covers, and the number of tokens it spans (used to
// enforce MinSubtreeTokens downstream and for weighting).
type AstPosition struct {
	Hash      uint64
	Span      Span
	TokenSpan int
	Kind      string
}

// AstFingerprint is the set of canonical subtree hashes for one source
// file's AST, filtered to subtrees spanning at least MinSubtreeTokens
// tokens.
type AstFingerprint struct {
	ContentHash      string
	Language         string
	MinSubtreeTokens int

	Positions []AstPosition
}

// Hashes returns the (possibly-repeated) set of subtree hashes, in
// Positions order.
func (fp *AstFingerprint) Hashes() []uint64 {
	hashes := make([]uint64, len(fp.Positions))
	for i, p := range fp.Positions {
		hashes[i] = p.Hash
	}
	return hashes
}

// UniqueHashSet returns the distinct set of subtree hashes.
func (fp *AstFingerprint) UniqueHashSet() map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(fp.Positions))
	for _, p := range fp.Positions {
		set[p.Hash] = struct{}{}
	}
	return set
}
