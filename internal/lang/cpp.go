// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

var cppKeywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"switch": true, "case": true, "default": true, "break": true,
	"continue": true, "return": true, "goto": true, "struct": true,
	"union": true, "enum": true, "typedef": true, "static": true,
	"extern": true, "const": true, "volatile": true, "sizeof": true,
	"void": true, "inline": true, "class": true, "public": true,
	"private": true, "protected": true, "virtual": true, "override": true,
	"template": true, "typename": true, "namespace": true, "using": true,
	"new": true, "delete": true, "this": true, "try": true, "catch": true,
	"throw": true, "friend": true, "operator": true, "explicit": true,
	"constexpr": true, "noexcept": true, "auto": true,
}

var cppClassify = keywordClassifier(defaultClassify, cppKeywords)

func cppGrammar() *sitter.Language {
	return cpp.GetLanguage()
}
