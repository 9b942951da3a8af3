// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package lang maps a language tag to a tree-sitter grammar and exposes
// a normalized token stream and a generic AST for that grammar.
//
// Every Adapter implementation performs the same two passes over a
// tree-sitter parse tree: a leaf walk that emits a renaming-resistant
// token stream, and a structural walk that produces a language-agnostic
// *Node tree for AST fingerprinting. Normalization (collapsing
// identifiers, literals, and dropping comments) is the invariant that
// makes downstream similarity renaming-resistant; it is never optional.
package lang

import "fmt"

// TokenKind is the normalized category of a single token.
//
// Tokens are normalized so that two programs differing only by
// identifier names or literal values produce identical token kind
// sequences.
type TokenKind int

const (
	// KindOther covers punctuation and operators — anything that is not
	// an identifier, literal, keyword (KindKeyword), or dropped
	// (comment/whitespace).
	// Keywords and operators are kept verbatim via Lexeme because their
	// *kind* already carries structural information; only identifiers
	// and literals are collapsed.
	KindOther TokenKind = iota

	// KindIdent covers identifiers: variable, function, type, and field
	// names. Collapsed to a single placeholder kind so renaming does not
	// change the token stream.
	KindIdent

	// KindString covers string and character literals of any quoting style.
	KindString

	// KindNumber covers integer, float, and other numeric literals.
	KindNumber

	// KindKeyword covers reserved words (if, for, func, def, ...). Kept
	// distinct from KindOther because keyword density is structurally
	// meaningful and keywords can't be renamed away.
	KindKeyword
)

// String returns a short human-readable name for the kind.
func (k TokenKind) String() string {
	switch k {
	case KindIdent:
		return "ident"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindKeyword:
		return "keyword"
	default:
		return "other"
	}
}

// Token is a single normalized lexical unit from a source file.
//
// Lexeme is retained only for KindOther and KindKeyword tokens (operators,
// punctuation, reserved words); for KindIdent/KindString/KindNumber it is
// cleared, since the k-gram hash must depend only on the token kind
// sequence, never on the renamed text.
type Token struct {
	Kind      TokenKind
	Lexeme    string
	StartLine int
	EndLine   int
}

// Node is a language-agnostic AST node.
//
// Kind is the grammar's node type name (e.g. "function_declaration").
// Children are in source order; order is significant for AST hashing.
type Node struct {
	Kind      string
	Children  []*Node
	StartLine int
	EndLine   int
}

// String returns a short debug representation of the node.
func (n *Node) String() string {
	return fmt.Sprintf("%s[%d:%d]", n.Kind, n.StartLine, n.EndLine)
}
