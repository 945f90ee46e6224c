package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"

	"github.com/mvp-joe/autodoc/internal/tracking"
)

var (
	// ErrInvalidThreshold indicates a non-positive change threshold
	ErrInvalidThreshold = errors.New("invalid change threshold")

	// ErrInvalidDebounce indicates a negative debounce window
	ErrInvalidDebounce = errors.New("invalid debounce")

	// ErrInvalidTagMode indicates an unknown default tag mode
	ErrInvalidTagMode = errors.New("invalid tag mode")

	// ErrDuplicateTag indicates two tag modes share a marker
	ErrDuplicateTag = errors.New("duplicate tag marker")

	// ErrInvalidPattern indicates a glob that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrInvalidCacheSettings indicates invalid parser cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrInvalidLogLevel indicates an unknown log level
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidLogFormat indicates an unknown log format
	ErrInvalidLogFormat = errors.New("invalid log format")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateTracking(&cfg.Tracking); err != nil {
		errs = append(errs, err)
	}
	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}
	if err := validateParser(&cfg.Parser); err != nil {
		errs = append(errs, err)
	}
	if err := validateLogging(&cfg.Logging); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateTracking(cfg *TrackingConfig) error {
	var errs []error

	if cfg.ChangeThreshold <= 0 {
		errs = append(errs, fmt.Errorf("%w: change_threshold must be positive, got %d", ErrInvalidThreshold, cfg.ChangeThreshold))
	}

	if cfg.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms cannot be negative, got %d", ErrInvalidDebounce, cfg.DebounceMS))
	}

	if _, err := tracking.ParseTagMode(cfg.DefaultTagMode); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidTagMode, err))
	}

	// Empty markers disable a mode; non-empty ones must be distinct.
	seen := make(map[string]string)
	for mode, marker := range map[string]string{"auto": cfg.Tags.Auto, "highlight": cfg.Tags.Highlight, "ignore": cfg.Tags.Ignore} {
		if marker == "" {
			continue
		}
		if other, ok := seen[marker]; ok {
			errs = append(errs, fmt.Errorf("%w: %q used for both %s and %s", ErrDuplicateTag, marker, other, mode))
			continue
		}
		seen[marker] = mode
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	for _, pattern := range append(append([]string{}, cfg.Code...), cfg.Ignore...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateParser(cfg *ParserConfig) error {
	var errs []error

	// Zero cache size disables the cache.
	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidCacheSettings, cfg.CacheSize))
	}

	if cfg.CacheSize > 0 && cfg.CacheTTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("%w: cache_ttl_seconds must be positive, got %d", ErrInvalidCacheSettings, cfg.CacheTTLSeconds))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	var errs []error

	if _, err := logrus.ParseLevel(cfg.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.Level))
	}

	format := strings.ToLower(cfg.Format)
	if format != "text" && format != "json" {
		errs = append(errs, fmt.Errorf("%w: must be 'text' or 'json', got '%s'", ErrInvalidLogFormat, cfg.Format))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
