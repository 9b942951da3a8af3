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

func TestBuildTokenFingerprint_RenamingInvariant(t *testing.T) {
	reg := lang.NewDefaultRegistry()
	adapter, err := reg.Get("go")
	require.NoError(t, err)

	srcA := []byte("package main\n\nfunc Add(x, y int) int {\n\treturn x + y\n}\n")
	srcB := []byte("package main\n\nfunc Sum(p, q int) int {\n\treturn p + q\n}\n")

	opts := DefaultOptions()
	ctx := context.Background()

	fpA, err := BuildTokenFingerprint(ctx, adapter, "go", ContentHash(srcA), srcA, opts)
	require.NoError(t, err)
	fpB, err := BuildTokenFingerprint(ctx, adapter, "go", ContentHash(srcB), srcB, opts)
	require.NoError(t, err)

	assert.Equal(t, fpA.Hashes(), fpB.Hashes(), "renaming identifiers must not change the token fingerprint")
}

func TestBuildTokenFingerprint_Deterministic(t *testing.T) {
	reg := lang.NewDefaultRegistry()
	adapter, err := reg.Get("go")
	require.NoError(t, err)

	src := []byte("package main\n\nfunc Add(x, y int) int {\n\treturn x + y\n}\n")
	opts := DefaultOptions()
	ctx := context.Background()

	fp1, err := BuildTokenFingerprint(ctx, adapter, "go", ContentHash(src), src, opts)
	require.NoError(t, err)
	fp2, err := BuildTokenFingerprint(ctx, adapter, "go", ContentHash(src), src, opts)
	require.NoError(t, err)

	assert.Equal(t, fp1.Hashes(), fp2.Hashes())
}

func TestBuildTokenFingerprint_DifferentLogicDiffers(t *testing.T) {
	reg := lang.NewDefaultRegistry()
	adapter, err := reg.Get("go")
	require.NoError(t, err)

	srcA := []byte("package main\n\nfunc Add(x, y int) int {\n\treturn x + y\n}\n")
	srcB := []byte("package main\n\nfunc Mul(x, y int) int {\n\tresult := 0\n\tfor i := 0; i < y; i++ {\n\t\tresult += x\n\t}\n\treturn result\n}\n")

	opts := DefaultOptions()
	ctx := context.Background()

	fpA, err := BuildTokenFingerprint(ctx, adapter, "go", ContentHash(srcA), srcA, opts)
	require.NoError(t, err)
	fpB, err := BuildTokenFingerprint(ctx, adapter, "go", ContentHash(srcB), srcB, opts)
	require.NoError(t, err)

	assert.NotEqual(t, fpA.UniqueHashSet(), fpB.UniqueHashSet())
}

func TestContentHash_StableAndDistinct(t *testing.T) {
	a := ContentHash([]byte("hello"))
	b := ContentHash([]byte("hello"))
	c := ContentHash([]byte("world"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
