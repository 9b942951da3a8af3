// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package fingerprint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcewatch/simguard/internal/lang"
)

func bigFunc(name string) []byte {
	return []byte("package main\n\nfunc " + name + "(items []int) int {\n" +
		"\ttotal := 0\n" +
		"\tfor _, v := range items {\n" +
		"\t\tif v > 0 {\n" +
		"\t\t\ttotal += v\n" +
		"\t\t} else {\n" +
		"\t\t\ttotal -= v\n" +
		"\t\t}\n" +
		"\t}\n" +
		"\treturn total\n" +
		"}\n")
}

func TestBuildAstFingerprint_RenamingInvariant(t *testing.T) {
	reg := lang.NewDefaultRegistry()
	adapter, err := reg.Get("go")
	require.NoError(t, err)

	ctx := context.Background()
	opts := Options{MinSubtreeTokens: 5}

	rootA, err := adapter.Parse(ctx, bigFunc("SumAbs"))
	require.NoError(t, err)
	rootB, err := adapter.Parse(ctx, bigFunc("TotalMagnitude"))
	require.NoError(t, err)

	fpA := BuildAstFingerprint(ctx, rootA, "go", "hashA", opts)
	fpB := BuildAstFingerprint(ctx, rootB, "go", "hashB", opts)

	assert.Equal(t, fpA.UniqueHashSet(), fpB.UniqueHashSet())
}

func TestBuildAstFingerprint_FiltersSmallSubtrees(t *testing.T) {
	reg := lang.NewDefaultRegistry()
	adapter, err := reg.Get("go")
	require.NoError(t, err)

	ctx := context.Background()
	root, err := adapter.Parse(ctx, bigFunc("SumAbs"))
	require.NoError(t, err)

	small := BuildAstFingerprint(ctx, root, "go", "h", Options{MinSubtreeTokens: 1})
	large := BuildAstFingerprint(ctx, root, "go", "h", Options{MinSubtreeTokens: 1000})

	assert.Greater(t, len(small.Positions), len(large.Positions))
	assert.Empty(t, large.Positions)
}

func TestBuildAstFingerprint_OrderSensitive(t *testing.T) {
	// Swapping the if/else branches is a structural change, not a
	// rename, so the subtree hash must differ.
	src := []byte("package main\n\nfunc F(v int) int {\n" +
		"\tif v > 0 {\n\t\treturn 1\n\t} else {\n\t\treturn -1\n\t}\n}\n")
	swapped := []byte("package main\n\nfunc F(v int) int {\n" +
		"\tif v > 0 {\n\t\treturn -1\n\t} else {\n\t\treturn 1\n\t}\n}\n")

	reg := lang.NewDefaultRegistry()
	adapter, err := reg.Get("go")
	require.NoError(t, err)
	ctx := context.Background()

	rootA, err := adapter.Parse(ctx, src)
	require.NoError(t, err)
	rootB, err := adapter.Parse(ctx, swapped)
	require.NoError(t, err)

	opts := Options{MinSubtreeTokens: 1}
	fpA := BuildAstFingerprint(ctx, rootA, "go", "a", opts)
	fpB := BuildAstFingerprint(ctx, rootB, "go", "b", opts)

	assert.NotEqual(t, fpA.UniqueHashSet(), fpB.UniqueHashSet())
}
