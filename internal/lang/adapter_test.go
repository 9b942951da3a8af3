// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lang

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_UnknownTag(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("cobol")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedLanguage))

	var unsupported *UnsupportedLanguageError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "cobol", unsupported.Language)
}

func TestNewDefaultRegistry_RegistersAllTags(t *testing.T) {
	r := NewDefaultRegistry()
	want := []string{"python", "javascript", "typescript", "go", "java", "c", "cpp", "rust"}
	for _, tag := range want {
		a, err := r.Get(tag)
		require.NoError(t, err, "tag %q should be registered", tag)
		assert.NotNil(t, a)
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		path string
		tag  string
		ok   bool
	}{
		{"main.go", "go", true},
		{"app/views.py", "python", true},
		{"src/index.tsx", "typescript", true},
		{"src/App.jsx", "javascript", true},
		{"Main.java", "java", true},
		{"lib.rs", "rust", true},
		{"vector.hpp", "cpp", true},
		{"README.md", "", false},
		{"Makefile", "", false},
	}
	for _, c := range cases {
		tag, ok := DetectLanguage(c.path)
		assert.Equal(t, c.ok, ok, "path %q", c.path)
		assert.Equal(t, c.tag, tag, "path %q", c.path)
	}
}

func TestTreeSitterAdapter_TokenizeGo(t *testing.T) {
	src := []byte("package main\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n")
	r := NewDefaultRegistry()
	adapter, err := r.Get("go")
	require.NoError(t, err)

	tokens, err := adapter.Tokenize(context.Background(), src)
	require.NoError(t, err)
	require.NotEmpty(t, tokens)

	var sawIdent, sawKeyword bool
	for _, tok := range tokens {
		if tok.Kind == KindIdent {
			sawIdent = true
			assert.Empty(t, tok.Lexeme, "identifier lexemes must be collapsed")
		}
		if tok.Kind == KindKeyword {
			sawKeyword = true
		}
	}
	assert.True(t, sawIdent)
	assert.True(t, sawKeyword)
}

func TestTreeSitterAdapter_TokenizeRejectsInvalidUTF8(t *testing.T) {
	r := NewDefaultRegistry()
	adapter, err := r.Get("go")
	require.NoError(t, err)

	_, err = adapter.Tokenize(context.Background(), []byte{0xff, 0xfe, 0x00})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidContent))
}

func TestTreeSitterAdapter_ParseProducesNode(t *testing.T) {
	src := []byte("package main\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n")
	r := NewDefaultRegistry()
	adapter, err := r.Get("go")
	require.NoError(t, err)

	root, err := adapter.Parse(context.Background(), src)
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.NotEmpty(t, root.Kind)
	assert.NotEmpty(t, root.Children)
}

func TestTreeSitterAdapter_RenamingInvariance(t *testing.T) {
	a := []byte("package main\n\nfunc Add(x, y int) int {\n\treturn x + y\n}\n")
	b := []byte("package main\n\nfunc Sum(p, q int) int {\n\treturn p + q\n}\n")

	r := NewDefaultRegistry()
	adapter, err := r.Get("go")
	require.NoError(t, err)

	tokensA, err := adapter.Tokenize(context.Background(), a)
	require.NoError(t, err)
	tokensB, err := adapter.Tokenize(context.Background(), b)
	require.NoError(t, err)

	require.Equal(t, len(tokensA), len(tokensB))
	for i := range tokensA {
		assert.Equal(t, tokensA[i].Kind, tokensB[i].Kind, "token %d kind should match after renaming", i)
	}
}
