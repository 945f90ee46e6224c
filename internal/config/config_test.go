package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/autodoc/internal/tracking"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - Load() uses defaults when no config file exists
// - Load() loads from .autodoc/config.yml when present
// - Load() loads from .autodoc/config.yaml when present
// - Project config overrides user config, which overrides defaults
// - A partial formats map keeps the default format of every other language
// - Environment variables override config file values
// - Load() returns error for malformed YAML
// - Load() returns error for invalid configuration values
// - Validate() rejects non-positive threshold, negative debounce, unknown tag mode
// - Validate() rejects duplicate tag markers
// - Validate() rejects invalid glob patterns
// - Validate() rejects bad cache and logging settings
// - Validate() returns multiple errors for multiple invalid fields
// - Settings() converts the tracking section for the engine
// - HistoryPath() resolves relative to the project root
// - GetSourceExtensions() extracts unique extensions

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	configDir := filepath.Join(dir, ".autodoc")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, name), []byte(content), 0o644))
}

func load(t *testing.T, root string) (*Config, error) {
	t.Helper()
	return NewLoaderWithHome(root, t.TempDir()).Load()
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, 50, cfg.Tracking.ChangeThreshold)
	assert.Equal(t, 500, cfg.Tracking.DebounceMS)
	assert.Equal(t, "highlight", cfg.Tracking.DefaultTagMode)
	assert.Equal(t, "@autodoc-ignore", cfg.Tracking.Tags.Ignore)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce())
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL())
	assert.True(t, cfg.Storage.HistoryEnabled)
	assert.Equal(t, "rest", cfg.FormatFor("python"))
	assert.NotEmpty(t, cfg.Paths.Code)
	assert.NotEmpty(t, cfg.Paths.Ignore)

	assert.NoError(t, Validate(cfg))
}

func TestLoad_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, t.TempDir())
	require.NoError(t, err)

	defaults := Default()
	assert.Equal(t, defaults.Tracking, cfg.Tracking)
	assert.Equal(t, defaults.Parser, cfg.Parser)
	assert.Equal(t, defaults.Paths.Code, cfg.Paths.Code)
	assert.Equal(t, "jsdoc", cfg.FormatFor("typescript"))
}

func TestLoad_ConfigYml(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, "config.yml", `
tracking:
  change_threshold: 80
  default_tag_mode: auto
paths:
  code:
    - "src/**/*.py"
formats:
  python: google
`)

	cfg, err := load(t, root)
	require.NoError(t, err)

	assert.Equal(t, 80, cfg.Tracking.ChangeThreshold)
	assert.Equal(t, "auto", cfg.Tracking.DefaultTagMode)
	assert.Equal(t, []string{"src/**/*.py"}, cfg.Paths.Code)
	assert.Equal(t, "google", cfg.FormatFor("python"))
	// Unset keys keep their defaults.
	assert.Equal(t, 500, cfg.Tracking.DebounceMS)
	assert.Equal(t, "javadoc", cfg.FormatFor("java"))
}

func TestLoad_PartialFormatsMerge(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	home := t.TempDir()
	writeConfig(t, home, "config.yml", "formats:\n  java: google-java\n")
	writeConfig(t, root, "config.yml", "formats:\n  python: numpy\n")

	cfg, err := NewLoaderWithHome(root, home).Load()
	require.NoError(t, err)

	assert.Equal(t, "numpy", cfg.FormatFor("python"))
	assert.Equal(t, "google-java", cfg.FormatFor("java"))
	for language, format := range Default().Formats {
		if language == "python" || language == "java" {
			continue
		}
		assert.Equal(t, format, cfg.FormatFor(language), language)
	}
}

func TestLoad_ConfigYaml(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, "config.yaml", "parser:\n  cache_size: 0\n")

	cfg, err := load(t, root)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Parser.CacheSize)
}

func TestLoad_ProjectOverridesUserConfig(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	home := t.TempDir()
	writeConfig(t, home, "config.yml", "logging:\n  level: debug\ntracking:\n  change_threshold: 30\n")
	writeConfig(t, root, "config.yml", "tracking:\n  change_threshold: 70\n")

	cfg, err := NewLoaderWithHome(root, home).Load()
	require.NoError(t, err)

	assert.Equal(t, 70, cfg.Tracking.ChangeThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.yml", "tracking:\n  change_threshold: 80\n")

	t.Setenv("AUTODOC_TRACKING_CHANGE_THRESHOLD", "120")
	t.Setenv("AUTODOC_LOGGING_FORMAT", "json")

	cfg, err := load(t, root)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Tracking.ChangeThreshold)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_MalformedYAML(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, "config.yml", "tracking: [unclosed\n")

	_, err := load(t, root)
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, "config.yml", "tracking:\n  change_threshold: 0\n")

	_, err := load(t, root)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestValidate_Tracking(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero threshold", func(c *Config) { c.Tracking.ChangeThreshold = 0 }, ErrInvalidThreshold},
		{"negative debounce", func(c *Config) { c.Tracking.DebounceMS = -1 }, ErrInvalidDebounce},
		{"unknown tag mode", func(c *Config) { c.Tracking.DefaultTagMode = "loud" }, ErrInvalidTagMode},
		{"duplicate marker", func(c *Config) { c.Tracking.Tags.Auto = c.Tracking.Tags.Ignore }, ErrDuplicateTag},
		{"bad glob", func(c *Config) { c.Paths.Ignore = []string{"[unclosed"} }, ErrInvalidPattern},
		{"negative cache", func(c *Config) { c.Parser.CacheSize = -1 }, ErrInvalidCacheSettings},
		{"zero ttl", func(c *Config) { c.Parser.CacheTTLSeconds = 0 }, ErrInvalidCacheSettings},
		{"bad level", func(c *Config) { c.Logging.Level = "chatty" }, ErrInvalidLogLevel},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.want)
		})
	}
}

func TestValidate_EmptyMarkersAllowed(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Tracking.Tags.Auto = ""
	cfg.Tracking.Tags.Highlight = ""
	assert.NoError(t, Validate(cfg))
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Tracking.ChangeThreshold = -5
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "change_threshold")
	assert.Contains(t, err.Error(), "xml")
}

func TestSettings(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Tracking.DefaultTagMode = "ignore"
	cfg.Tracking.ChangeThreshold = 42

	s := cfg.Settings()
	assert.Equal(t, 42, s.ChangeThreshold)
	assert.Equal(t, tracking.TagIgnore, s.DefaultTagMode)
	assert.Equal(t, tracking.DefaultSentinels(), s.Tags)

	holder := NewSettingsHolder(cfg)
	cfg.Tracking.ChangeThreshold = 7
	holder.Update(cfg)
	assert.Equal(t, 7, holder.Settings().ChangeThreshold)
}

func TestHistoryPath(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, filepath.Join("/repo", ".autodoc", "history.db"), cfg.HistoryPath("/repo"))

	cfg.Storage.HistoryPath = "var/hist.db"
	assert.Equal(t, filepath.Join("/repo", "var", "hist.db"), cfg.HistoryPath("/repo"))

	cfg.Storage.HistoryPath = "/tmp/h.db"
	assert.Equal(t, "/tmp/h.db", cfg.HistoryPath("/repo"))
}

func TestGetSourceExtensions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Paths.Code = []string{"**/*.py", "src/*.py", "**/*.ts", "Makefile"}
	assert.Equal(t, []string{".py", ".ts"}, cfg.GetSourceExtensions())
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Logging.Level = "debug"
	logger := cfg.NewLogger(nil)
	assert.True(t, logger.IsLevelEnabled(logrus.DebugLevel))
	assert.False(t, logger.IsLevelEnabled(logrus.TraceLevel))
}
