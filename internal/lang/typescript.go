// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

var typescriptKeywords = map[string]bool{
	"function": true, "return": true, "if": true, "else": true,
	"for": true, "while": true, "do": true, "break": true, "continue": true,
	"var": true, "let": true, "const": true, "class": true, "extends": true,
	"implements": true, "interface": true, "type": true, "enum": true,
	"new": true, "delete": true, "typeof": true, "instanceof": true,
	"try": true, "catch": true, "finally": true, "throw": true,
	"switch": true, "case": true, "default": true, "import": true,
	"export": true, "from": true, "as": true, "async": true, "await": true,
	"yield": true, "static": true, "get": true, "set": true, "of": true,
	"in": true, "namespace": true, "readonly": true, "public": true,
	"private": true, "protected": true, "abstract": true,
}

var typescriptClassify = keywordClassifier(defaultClassify, typescriptKeywords)

func typescriptGrammar() *sitter.Language {
	return typescript.GetLanguage()
}
