// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package fingerprint

import "github.com/sourcewatch/simguard/internal/lang"

// rollingBase and rollingMod parameterize the Karp-Rabin rolling hash
// over the normalized token stream. A fixed seed keeps fingerprints
// reproducible across runs and processes, which the result cache and
// inverted index both depend on.
const (
	rollingBase uint64 = 1000003
	rollingMod  uint64 = 1<<61 - 1 // a Mersenne prime, keeps hash arithmetic in uint64 range
)

// tokenValue maps a normalized token to a small integer the rolling
// hash folds in. Kind dominates the value so that renaming (which only
// changes Lexeme for idents/strings/numbers, already cleared upstream)
// never changes tokenValue for those kinds; Lexeme only contributes for
// KindOther/KindKeyword, where the literal text is structurally
// meaningful (e.g. "+" vs "-", "if" vs "for").
func tokenValue(t lang.Token) uint64 {
	v := uint64(t.Kind) + 1
	for i := 0; i < len(t.Lexeme); i++ {
		v = v*131 + uint64(t.Lexeme[i])
	}
	return v
}

// kgramHashes computes the rolling Karp-Rabin hash of every length-k
// window of tokens, sliding by one token at a time. It returns one
// hash per k-gram, aligned to the index of the k-gram's first token.
func kgramHashes(tokens []lang.Token, k int) []uint64 {
	n := len(tokens)
	if k <= 0 || n < k {
		return nil
	}

	hashes := make([]uint64, n-k+1)

	// highestPow = base^(k-1) mod, used to remove the outgoing token's
	// contribution when the window slides.
	highestPow := uint64(1)
	for i := 0; i < k-1; i++ {
		highestPow = (highestPow * rollingBase) % rollingMod
	}

	var h uint64
	for i := 0; i < k; i++ {
		h = (h*rollingBase + tokenValue(tokens[i])) % rollingMod
	}
	hashes[0] = h

	for i := k; i < n; i++ {
		outgoing := (tokenValue(tokens[i-k]) * highestPow) % rollingMod
		h = (h + rollingMod - outgoing) % rollingMod
		h = (h*rollingBase + tokenValue(tokens[i])) % rollingMod
		hashes[i-k+1] = h
	}

	return hashes
}

// winnow reduces a sequence of k-gram hashes to the robust winnowing
// fingerprint set: for every window of w consecutive k-grams, the
// minimum-hash k-gram is selected; ties within a window are broken by
// taking the rightmost (highest-index) occurrence of the minimum, and
// a k-gram already selected by the previous window is not re-emitted.
//
// This is the Schleimer/Wilkerson/Aiken winnowing algorithm with a
// rightmost tie-break, which guarantees every substring of w or more
// consecutive k-grams contributes at least one fingerprint.
func winnow(hashes []uint64, w int) []int {
	if w <= 0 || len(hashes) == 0 {
		if len(hashes) > 0 {
			all := make([]int, len(hashes))
			for i := range hashes {
				all[i] = i
			}
			return all
		}
		return nil
	}
	if w == 1 {
		all := make([]int, len(hashes))
		for i := range hashes {
			all[i] = i
		}
		return all
	}

	var selected []int
	lastSelected := -1

	for start := 0; start < len(hashes); start++ {
		end := start + w
		if end > len(hashes) {
			end = len(hashes)
		}
		if end-start < 1 {
			break
		}

		minIdx := start
		for i := start + 1; i < end; i++ {
			if hashes[i] <= hashes[minIdx] {
				minIdx = i // rightmost tie-break: <= keeps advancing to later ties
			}
		}

		if minIdx != lastSelected {
			selected = append(selected, minIdx)
			lastSelected = minIdx
		}

		if end == len(hashes) {
			break
		}
	}

	return selected
}
