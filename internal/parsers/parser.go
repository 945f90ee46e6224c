package parsers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/autodoc/internal/tracking"
)

var (
	// ErrUnsupportedLanguage is returned for a language with no grammar.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrSyntax is returned when the tree contains syntax errors and the
	// parser does not tolerate them.
	ErrSyntax = errors.New("source has syntax errors")
)

// Parser extracts functions from source text with tree-sitter. It is safe
// for concurrent use; each call gets its own tree-sitter parser.
type Parser struct {
	cache          *parseCache
	tolerateErrors bool
	logger         *logrus.Logger
}

// Option configures a Parser.
type Option func(*parserConfig)

type parserConfig struct {
	cacheSize      int
	cacheTTL       time.Duration
	tolerateErrors bool
	logger         *logrus.Logger
}

// WithCache caches parse results for identical (language, source) pairs.
// A size of zero disables caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(c *parserConfig) {
		c.cacheSize = size
		c.cacheTTL = ttl
	}
}

// WithSyntaxErrors makes Parse return whatever functions tree-sitter
// recovered from a tree with errors instead of failing with ErrSyntax.
func WithSyntaxErrors(tolerate bool) Option {
	return func(c *parserConfig) { c.tolerateErrors = tolerate }
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *parserConfig) { c.logger = logger }
}

// New creates a Parser.
func New(opts ...Option) (*Parser, error) {
	cfg := parserConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logrus.New()
		cfg.logger.SetOutput(io.Discard)
	}

	p := &Parser{
		tolerateErrors: cfg.tolerateErrors,
		logger:         cfg.logger,
	}
	if cfg.cacheSize > 0 {
		cache, err := newParseCache(cfg.cacheSize, cfg.cacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create parse cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// Parse extracts every named function of source, ordered by offset.
func (p *Parser) Parse(ctx context.Context, language, source string) ([]*tracking.Function, error) {
	g, ok := grammarFor(language)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.cache != nil {
		if fns, ok := p.cache.get(language, source); ok {
			return tracking.CloneAll(fns), nil
		}
	}

	start := time.Now()
	fns, err := p.parse(ctx, g, []byte(source))
	if err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"language":  language,
		"bytes":     len(source),
		"functions": len(fns),
		"duration":  time.Since(start),
	}).Trace("parsed source")

	if p.cache != nil {
		p.cache.put(language, source, tracking.CloneAll(fns))
	}
	return fns, nil
}

func (p *Parser) parse(ctx context.Context, g *grammar, source []byte) ([]*tracking.Function, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(g.language); err != nil {
		return nil, fmt.Errorf("failed to load %s grammar: %w", g.name, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s source", g.name)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() && !p.tolerateErrors {
		return nil, fmt.Errorf("%w (%s)", ErrSyntax, g.name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e := &extractor{ctx: ctx, g: g, source: source}
	return e.run(root)
}

// ParseFile reads path and parses it in the language its extension maps to.
func (p *Parser) ParseFile(ctx context.Context, path string) ([]*tracking.Function, string, error) {
	language, ok := LanguageForPath(path)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, language, fmt.Errorf("failed to read %s: %w", path, err)
	}
	fns, err := p.Parse(ctx, language, string(source))
	if err != nil {
		return nil, language, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return fns, language, nil
}

// CacheStats reports parse cache hits and misses.
func (p *Parser) CacheStats() (hits, misses int64) {
	if p.cache == nil {
		return 0, 0
	}
	return p.cache.stats()
}

// Close releases the parse cache.
func (p *Parser) Close() {
	if p.cache != nil {
		p.cache.close()
	}
}
