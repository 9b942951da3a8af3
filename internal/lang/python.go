// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

var pythonKeywords = map[string]bool{
	"def": true, "class": true, "return": true, "if": true, "elif": true,
	"else": true, "for": true, "while": true, "break": true, "continue": true,
	"import": true, "from": true, "as": true, "with": true, "try": true,
	"except": true, "finally": true, "raise": true, "yield": true,
	"lambda": true, "global": true, "nonlocal": true, "pass": true,
	"assert": true, "del": true, "async": true, "await": true,
	"and": true, "or": true, "not": true, "in": true, "is": true,
}

var pythonClassify = keywordClassifier(defaultClassify, pythonKeywords)

func pythonGrammar() *sitter.Language {
	return python.GetLanguage()
}
