// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

var rustKeywords = map[string]bool{
	"fn": true, "let": true, "mut": true, "if": true, "else": true,
	"match": true, "for": true, "while": true, "loop": true, "break": true,
	"continue": true, "return": true, "struct": true, "enum": true,
	"trait": true, "impl": true, "pub": true, "use": true, "mod": true,
	"crate": true, "self": true, "super": true, "where": true, "move": true,
	"ref": true, "async": true, "await": true, "dyn": true, "unsafe": true,
	"const": true, "static": true, "type": true, "as": true, "in": true,
}

var rustClassify = keywordClassifier(defaultClassify, rustKeywords)

func rustGrammar() *sitter.Language {
	return rust.GetLanguage()
}
