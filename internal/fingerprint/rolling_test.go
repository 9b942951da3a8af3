// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcewatch/simguard/internal/lang"
)

func mkTokens(kinds ...lang.TokenKind) []lang.Token {
	toks := make([]lang.Token, len(kinds))
	for i, k := range kinds {
		toks[i] = lang.Token{Kind: k, StartLine: i + 1, EndLine: i + 1}
	}
	return toks
}

func TestKgramHashes_Deterministic(t *testing.T) {
	toks := mkTokens(lang.KindIdent, lang.KindOther, lang.KindNumber, lang.KindIdent, lang.KindOther, lang.KindString, lang.KindIdent)
	h1 := kgramHashes(toks, 3)
	h2 := kgramHashes(toks, 3)
	require.Equal(t, h1, h2)
	assert.Len(t, h1, len(toks)-3+1)
}

func TestKgramHashes_TooShort(t *testing.T) {
	toks := mkTokens(lang.KindIdent, lang.KindOther)
	assert.Nil(t, kgramHashes(toks, 6))
}

func TestWinnow_EveryWindowHasASelection(t *testing.T) {
	hashes := []uint64{5, 3, 8, 1, 9, 2, 7, 4, 6}
	selected := winnow(hashes, 4)
	require.NotEmpty(t, selected)

	// Every window of w consecutive k-grams must contain at least one
	// selected index (the winnowing guarantee).
	for start := 0; start+4 <= len(hashes); start++ {
		found := false
		for _, idx := range selected {
			if idx >= start && idx < start+4 {
				found = true
				break
			}
		}
		assert.True(t, found, "window starting at %d has no selected fingerprint", start)
	}
}

func TestWinnow_RightmostTieBreak(t *testing.T) {
	// Two equal minimums (value 1) at indices 1 and 3 within a window of 4.
	hashes := []uint64{5, 1, 9, 1, 7}
	selected := winnow(hashes, 4)
	require.NotEmpty(t, selected)
	assert.Equal(t, 3, selected[0], "tie should resolve to the rightmost minimum")
}

func TestWinnow_DedupesConsecutiveWindows(t *testing.T) {
	hashes := []uint64{9, 9, 1, 9, 9, 9}
	selected := winnow(hashes, 3)
	seen := make(map[int]int)
	for _, idx := range selected {
		seen[idx]++
	}
	for idx, count := range seen {
		assert.Equal(t, 1, count, "index %d selected more than once", idx)
	}
}

func TestTokenValue_IgnoresLexemeForIdentsAndLiterals(t *testing.T) {
	a := lang.Token{Kind: lang.KindIdent, Lexeme: ""}
	b := lang.Token{Kind: lang.KindIdent, Lexeme: ""}
	assert.Equal(t, tokenValue(a), tokenValue(b))
}

func TestTokenValue_DistinguishesOperatorLexemes(t *testing.T) {
	plus := lang.Token{Kind: lang.KindOther, Lexeme: "+"}
	minus := lang.Token{Kind: lang.KindOther, Lexeme: "-"}
	assert.NotEqual(t, tokenValue(plus), tokenValue(minus))
}
