// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lang

import (
	"context"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

func isValidUTF8(src []byte) bool {
	return utf8.Valid(src)
}

// classifyFunc maps a tree-sitter grammar node type name to a TokenKind.
// Node types not recognized by a given grammar fall back to KindOther.
type classifyFunc func(nodeType string) TokenKind

// commentSkipFunc reports whether a node type is a comment and must be
// dropped from the token stream entirely — comments carry no structural
// signal and their presence/absence must not affect fingerprints.
type commentSkipFunc func(nodeType string) bool

// treeSitterAdapter is the shared Adapter implementation backing every
// concrete per-language adapter in this package. Each language supplies
// only its tree-sitter grammar and the node-type classification rules;
// the parse lifecycle, UTF-8 validation, and leaf-walk are identical
// across languages, following the single-Parse-method pattern used
// throughout this grammar's reference parsers.
type treeSitterAdapter struct {
	language  string
	grammar   func() *sitter.Language
	classify  classifyFunc
	isComment commentSkipFunc
}

func newTreeSitterAdapter(language string, grammar *sitter.Language, classify classifyFunc) *treeSitterAdapter {
	if classify == nil {
		classify = defaultClassify
	}
	return &treeSitterAdapter{
		language:  language,
		grammar:   func() *sitter.Language { return grammar },
		classify:  classify,
		isComment: defaultIsComment,
	}
}

// parseTree runs a fresh tree-sitter parser over src and returns the
// resulting tree. A new *sitter.Parser is created on every call so that
// adapters are safe for concurrent use, mirroring the teacher's
// reference Go parser.
func (a *treeSitterAdapter) parseTree(ctx context.Context, src []byte) (*sitter.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("lang: parse canceled before start: %w", err)
	}
	if err := requireUTF8(src); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(a.grammar())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, wrapParseFailure(a.language, err)
	}

	if err := ctx.Err(); err != nil {
		tree.Close()
		return nil, fmt.Errorf("lang: parse canceled after tree-sitter: %w", err)
	}
	return tree, nil
}

// Tokenize implements Adapter.
func (a *treeSitterAdapter) Tokenize(ctx context.Context, src []byte) ([]Token, error) {
	tree, err := a.parseTree(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, &ParseError{Language: a.language, Reason: "tree-sitter returned nil root node"}
	}

	tokens := make([]Token, 0, root.EndByte()-root.StartByte())
	a.walkLeaves(root, src, &tokens)
	return tokens, nil
}

// Parse implements Adapter.
func (a *treeSitterAdapter) Parse(ctx context.Context, src []byte) (*Node, error) {
	tree, err := a.parseTree(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, &ParseError{Language: a.language, Reason: "tree-sitter returned nil root node"}
	}
	return a.toNode(root), nil
}

// walkLeaves performs a depth-first walk over the tree-sitter tree,
// appending one Token per leaf (childless) node that is not a dropped
// comment. Named (non-punctuation) and anonymous leaves are both kept:
// operators and punctuation are structurally meaningful even though
// they have no children.
func (a *treeSitterAdapter) walkLeaves(n *sitter.Node, src []byte, out *[]Token) {
	if n == nil {
		return
	}
	nodeType := n.Type()
	if a.isComment(nodeType) {
		return
	}
	if n.ChildCount() == 0 {
		if n.StartByte() == n.EndByte() {
			return
		}
		kind := a.classify(nodeType)
		lexeme := ""
		if kind == KindOther || kind == KindKeyword {
			lexeme = n.Content(src)
		}
		*out = append(*out, Token{
			Kind:      kind,
			Lexeme:    lexeme,
			StartLine: int(n.StartPoint().Row) + 1,
			EndLine:   int(n.EndPoint().Row) + 1,
		})
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		a.walkLeaves(n.Child(i), src, out)
	}
}

// toNode converts a tree-sitter node into a generic *Node tree,
// preserving child order (order is significant for AST hashing) and
// dropping comment subtrees so AST fingerprints are comment-invariant.
func (a *treeSitterAdapter) toNode(n *sitter.Node) *Node {
	if n == nil {
		return nil
	}
	node := &Node{
		Kind:      n.Type(),
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || a.isComment(child.Type()) {
			continue
		}
		node.Children = append(node.Children, a.toNode(child))
	}
	return node
}

// defaultClassify handles the node-type naming conventions shared by
// every tree-sitter grammar wired into this package: "identifier"-style
// leaves, quoted literals, and numeric literals all use consistent
// suffixes across grammars. Grammar-specific keyword sets are supplied
// by each adapter's own classify override.
func defaultClassify(nodeType string) TokenKind {
	switch nodeType {
	case "identifier", "field_identifier", "type_identifier",
		"property_identifier", "shorthand_property_identifier",
		"statement_identifier", "package_identifier":
		return KindIdent
	case "string", "string_literal", "raw_string_literal", "char_literal",
		"interpreted_string_literal", "template_string", "string_fragment",
		"string_content":
		return KindString
	case "number", "int_literal", "float_literal", "integer", "int",
		"number_literal", "decimal_integer_literal", "decimal_floating_point_literal":
		return KindNumber
	default:
		return KindOther
	}
}

// defaultIsComment covers the handful of comment node-type spellings
// used across the grammars wired into this package.
func defaultIsComment(nodeType string) bool {
	switch nodeType {
	case "comment", "line_comment", "block_comment", "doc_comment":
		return true
	default:
		return false
	}
}

// keywordClassifier builds a classify function that defers to base for
// every node type except the given grammar-specific keyword node types,
// which are reported as KindKeyword.
func keywordClassifier(base classifyFunc, keywords map[string]bool) classifyFunc {
	return func(nodeType string) TokenKind {
		if keywords[nodeType] {
			return KindKeyword
		}
		return base(nodeType)
	}
}
