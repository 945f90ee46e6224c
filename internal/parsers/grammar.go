package parsers

import (
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// grammar describes how functions and their docstrings look in one
// language's syntax tree.
type grammar struct {
	name     string
	language *sitter.Language

	// functionKinds are the node kinds extracted as functions.
	functionKinds map[string]bool

	// wrapperKinds enclose a function without being part of it, e.g.
	// `export function f` or `const f = () => {}`. A leading doc comment
	// sits before the outermost wrapper.
	wrapperKinds map[string]bool

	// commentKinds are the node kinds of comments.
	commentKinds map[string]bool

	// skipKinds may sit between a doc comment and its function.
	skipKinds map[string]bool

	// docPrefixes select doc comments among comments. Empty accepts any.
	docPrefixes []string

	// innerDocstring is set for languages whose docstring is the first
	// string statement of the function body.
	innerDocstring bool
}

func set(kinds ...string) map[string]bool {
	m := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

var (
	grammarsOnce sync.Once
	grammars     map[string]*grammar
)

func loadGrammars() map[string]*grammar {
	grammarsOnce.Do(func() {
		jsFunctions := set("function_declaration", "generator_function_declaration", "method_definition", "arrow_function", "function_expression")
		jsWrappers := set("export_statement", "variable_declarator", "lexical_declaration", "variable_declaration")

		grammars = map[string]*grammar{
			Python: {
				name:           Python,
				language:       sitter.NewLanguage(python.Language()),
				functionKinds:  set("function_definition"),
				wrapperKinds:   set("decorated_definition"),
				commentKinds:   set("comment"),
				innerDocstring: true,
			},
			Java: {
				name:          Java,
				language:      sitter.NewLanguage(java.Language()),
				functionKinds: set("method_declaration", "constructor_declaration"),
				commentKinds:  set("block_comment", "line_comment"),
				docPrefixes:   []string{"/**"},
			},
			JavaScript: {
				// The TypeScript grammar is a superset of JavaScript.
				name:          JavaScript,
				language:      sitter.NewLanguage(typescript.LanguageTypescript()),
				functionKinds: jsFunctions,
				wrapperKinds:  jsWrappers,
				commentKinds:  set("comment"),
				docPrefixes:   []string{"/**"},
			},
			TypeScript: {
				name:          TypeScript,
				language:      sitter.NewLanguage(typescript.LanguageTypescript()),
				functionKinds: jsFunctions,
				wrapperKinds:  jsWrappers,
				commentKinds:  set("comment"),
				docPrefixes:   []string{"/**"},
			},
			TSX: {
				name:          TSX,
				language:      sitter.NewLanguage(typescript.LanguageTSX()),
				functionKinds: jsFunctions,
				wrapperKinds:  jsWrappers,
				commentKinds:  set("comment"),
				docPrefixes:   []string{"/**"},
			},
			C: {
				name:          C,
				language:      sitter.NewLanguage(c.Language()),
				functionKinds: set("function_definition"),
				commentKinds:  set("comment"),
			},
			Rust: {
				name:          Rust,
				language:      sitter.NewLanguage(rust.Language()),
				functionKinds: set("function_item"),
				commentKinds:  set("line_comment", "block_comment"),
				skipKinds:     set("attribute_item"),
				docPrefixes:   []string{"///", "/**"},
			},
			Ruby: {
				name:          Ruby,
				language:      sitter.NewLanguage(ruby.Language()),
				functionKinds: set("method", "singleton_method"),
				commentKinds:  set("comment"),
				docPrefixes:   []string{"#"},
			},
			PHP: {
				name:          PHP,
				language:      sitter.NewLanguage(php.LanguagePHP()),
				functionKinds: set("function_definition", "method_declaration"),
				commentKinds:  set("comment"),
				skipKinds:     set("attribute_list"),
				docPrefixes:   []string{"/**"},
			},
		}
	})
	return grammars
}

func grammarFor(language string) (*grammar, bool) {
	g, ok := loadGrammars()[language]
	return g, ok
}
