package parsers

import (
	"path/filepath"
	"sort"
	"strings"
)

// Language names accepted by Parse.
const (
	Python     = "python"
	Java       = "java"
	JavaScript = "javascript"
	TypeScript = "typescript"
	TSX        = "tsx"
	C          = "c"
	Rust       = "rust"
	Ruby       = "ruby"
	PHP        = "php"
)

var extensionLanguages = map[string]string{
	".py":   Python,
	".pyi":  Python,
	".java": Java,
	".js":   JavaScript,
	".mjs":  JavaScript,
	".cjs":  JavaScript,
	".jsx":  JavaScript,
	".es":   JavaScript,
	".es6":  JavaScript,
	".gs":   JavaScript,
	".ts":   TypeScript,
	".mts":  TypeScript,
	".cts":  TypeScript,
	".tsx":  TSX,
	".c":    C,
	".h":    C,
	".rs":   Rust,
	".rb":   Ruby,
	".php":  PHP,
}

// LanguageForExtension maps a file extension (with or without the leading
// dot) to a language name.
func LanguageForExtension(ext string) (string, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	lang, ok := extensionLanguages[ext]
	return lang, ok
}

// LanguageForPath maps a file path to a language name by its extension.
func LanguageForPath(path string) (string, bool) {
	return LanguageForExtension(filepath.Ext(path))
}

// Extensions returns every recognised file extension, sorted.
func Extensions() []string {
	out := make([]string, 0, len(extensionLanguages))
	for ext := range extensionLanguages {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Languages returns every supported language name, sorted.
func Languages() []string {
	seen := make(map[string]bool)
	var out []string
	for _, lang := range extensionLanguages {
		if !seen[lang] {
			seen[lang] = true
			out = append(out, lang)
		}
	}
	sort.Strings(out)
	return out
}
