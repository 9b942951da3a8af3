// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

var goKeywords = map[string]bool{
	"func": true, "package": true, "import": true, "return": true,
	"if": true, "else": true, "for": true, "range": true, "switch": true,
	"case": true, "default": true, "break": true, "continue": true,
	"go": true, "defer": true, "chan": true, "select": true, "var": true,
	"const": true, "type": true, "struct": true, "interface": true,
	"map": true, "fallthrough": true, "goto": true,
}

var goClassify = keywordClassifier(defaultClassify, goKeywords)

func goGrammar() *sitter.Language {
	return golang.GetLanguage()
}
