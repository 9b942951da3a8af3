// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

var javaKeywords = map[string]bool{
	"class": true, "interface": true, "enum": true, "extends": true,
	"implements": true, "return": true, "if": true, "else": true,
	"for": true, "while": true, "do": true, "break": true, "continue": true,
	"new": true, "try": true, "catch": true, "finally": true, "throw": true,
	"throws": true, "switch": true, "case": true, "default": true,
	"import": true, "package": true, "public": true, "private": true,
	"protected": true, "static": true, "final": true, "abstract": true,
	"synchronized": true, "volatile": true, "transient": true,
	"instanceof": true, "this": true, "super": true, "void": true,
}

var javaClassify = keywordClassifier(defaultClassify, javaKeywords)

func javaGrammar() *sitter.Language {
	return java.GetLanguage()
}
