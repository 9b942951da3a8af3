// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lang

import (
	"path/filepath"
	"strings"
)

// extensionTags maps a lowercased file extension (including the dot) to
// the language tag NewDefaultRegistry registers an adapter under.
var extensionTags = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".go":   "go",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cc":   "cpp",
	".cpp":  "cpp",
	".cxx":  "cpp",
	".hpp":  "cpp",
	".hh":   "cpp",
	".rs":   "rust",
}

// DetectLanguage maps a file path to a language tag by its extension.
//
// Returns "" and false when the extension has no known mapping; callers
// should treat this as "unsupported" rather than guessing.
func DetectLanguage(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	tag, ok := extensionTags[ext]
	return tag, ok
}
