// Package config loads autodoc configuration.
//
// Configuration hierarchy (highest to lowest priority):
//  1. Environment variables (AUTODOC_*)
//  2. Project config (.autodoc/config.yml)
//  3. User config (~/.autodoc/config.yml)
//  4. Built-in defaults
//
// Nested keys map to env vars with underscores, e.g.
// AUTODOC_TRACKING_CHANGE_THRESHOLD.
package config

import (
	"path/filepath"
	"time"
)

// Config represents the complete autodoc configuration.
type Config struct {
	Tracking TrackingConfig `yaml:"tracking" mapstructure:"tracking"`
	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Parser   ParserConfig   `yaml:"parser" mapstructure:"parser"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Formats  FormatsConfig  `yaml:"formats" mapstructure:"formats"`
}

// TrackingConfig tunes change classification.
type TrackingConfig struct {
	ChangeThreshold int        `yaml:"change_threshold" mapstructure:"change_threshold"` // accumulated edit distance that marks a function for re-documentation
	DebounceMS      int        `yaml:"debounce_ms" mapstructure:"debounce_ms"`           // quiet period after the last edit before reparsing
	DefaultTagMode  string     `yaml:"default_tag_mode" mapstructure:"default_tag_mode"` // "auto", "highlight" or "ignore"
	Tags            TagsConfig `yaml:"tags" mapstructure:"tags"`
}

// TagsConfig holds the literal markers that override the default tag mode.
type TagsConfig struct {
	Auto      string `yaml:"auto" mapstructure:"auto"`
	Highlight string `yaml:"highlight" mapstructure:"highlight"`
	Ignore    string `yaml:"ignore" mapstructure:"ignore"`
}

// PathsConfig defines which files to track and which to ignore.
type PathsConfig struct {
	Code   []string `yaml:"code" mapstructure:"code"`     // glob patterns for code files
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns to ignore
}

// ParserConfig configures structural parsing.
type ParserConfig struct {
	CacheSize            int  `yaml:"cache_size" mapstructure:"cache_size"`                           // parse results kept in memory, 0 disables the cache
	CacheTTLSeconds      int  `yaml:"cache_ttl_seconds" mapstructure:"cache_ttl_seconds"`             // lifetime of a cached parse
	TolerateSyntaxErrors bool `yaml:"tolerate_syntax_errors" mapstructure:"tolerate_syntax_errors"` // classify partial trees instead of skipping the cycle
}

// StorageConfig defines where history is kept.
type StorageConfig struct {
	HistoryEnabled bool   `yaml:"history_enabled" mapstructure:"history_enabled"`
	HistoryPath    string `yaml:"history_path" mapstructure:"history_path"` // empty means .autodoc/history.db under the project root
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // logrus level name
	Format string `yaml:"format" mapstructure:"format"` // "text" or "json"
}

// FormatsConfig maps a language to the docstring style a writer should use.
type FormatsConfig map[string]string

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Tracking: TrackingConfig{
			ChangeThreshold: 50,
			DebounceMS:      500,
			DefaultTagMode:  "highlight",
			Tags: TagsConfig{
				Auto:      "@autodoc-auto",
				Highlight: "@autodoc-highlight",
				Ignore:    "@autodoc-ignore",
			},
		},
		Paths: PathsConfig{
			Code: []string{
				"**/*.py",
				"**/*.java",
				"**/*.js",
				"**/*.jsx",
				"**/*.ts",
				"**/*.tsx",
				"**/*.c",
				"**/*.h",
				"**/*.rs",
				"**/*.rb",
				"**/*.php",
			},
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				".autodoc/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
				"*.pyc",
			},
		},
		Parser: ParserConfig{
			CacheSize:       256,
			CacheTTLSeconds: 600,
		},
		Storage: StorageConfig{
			HistoryEnabled: true,
			HistoryPath:    "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Formats: FormatsConfig{
			"python":     "rest",
			"java":       "javadoc",
			"javascript": "jsdoc",
			"typescript": "jsdoc",
			"tsx":        "jsdoc",
			"php":        "phpdoc",
			"ruby":       "yard",
			"rust":       "rustdoc",
			"c":          "doxygen",
		},
	}
}

// Debounce returns the debounce window as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Tracking.DebounceMS) * time.Millisecond
}

// CacheTTL returns the parse cache lifetime as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Parser.CacheTTLSeconds) * time.Second
}

// HistoryPath resolves the history database path against rootDir.
func (c *Config) HistoryPath(rootDir string) string {
	path := c.Storage.HistoryPath
	if path == "" {
		return filepath.Join(rootDir, ".autodoc", "history.db")
	}
	if !filepath.IsAbs(path) {
		return filepath.Join(rootDir, path)
	}
	return path
}

// FormatFor returns the docstring style configured for language, or "".
func (c *Config) FormatFor(language string) string {
	return c.Formats[language]
}

// GetSourceExtensions extracts unique file extensions from the code patterns.
// Returns extensions with leading dot (e.g., []string{".py", ".ts"}).
func (c *Config) GetSourceExtensions() []string {
	seen := make(map[string]bool)
	var extensions []string
	for _, pattern := range c.Paths.Code {
		if ext := extractExtension(pattern); ext != "" && !seen[ext] {
			seen[ext] = true
			extensions = append(extensions, ext)
		}
	}
	return extensions
}

// extractExtension extracts the file extension from a glob pattern.
// Examples: "**/*.py" -> ".py", "*.ts" -> ".ts".
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
