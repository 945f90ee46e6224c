package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from files and environment variables.
	Load() (*Config, error)
}

type loader struct {
	rootDir string
	homeDir string
}

// NewLoader creates a loader for the project at rootDir. The user config
// is looked up in the home directory.
func NewLoader(rootDir string) Loader {
	home, _ := os.UserHomeDir()
	return &loader{rootDir: rootDir, homeDir: home}
}

// NewLoaderWithHome is NewLoader with an explicit home directory.
func NewLoaderWithHome(rootDir, homeDir string) Loader {
	return &loader{rootDir: rootDir, homeDir: homeDir}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (AUTODOC_*)
// 2. Project config (.autodoc/config.yml or .autodoc/config.yaml)
// 3. User config (~/.autodoc/config.yml)
// 4. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("AUTODOC")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., AUTODOC_TRACKING_DEBOUNCE_MS)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvVars(v)

	setDefaults(v)

	if l.homeDir != "" {
		if err := mergeConfigFile(v, filepath.Join(l.homeDir, ".autodoc")); err != nil {
			return nil, fmt.Errorf("failed to read user config: %w", err)
		}
	}
	if err := mergeConfigFile(v, filepath.Join(l.rootDir, ".autodoc")); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	fillFormatDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// mergeConfigFile merges dir/config.yml (or .yaml) into v. A missing file
// is not an error.
func mergeConfigFile(v *viper.Viper, dir string) error {
	for _, name := range []string{"config.yml", "config.yaml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		v.SetConfigFile(path)
		return v.MergeInConfig()
	}
	return nil
}

// bindEnvVars binds scalar keys so env vars work without a config file.
func bindEnvVars(v *viper.Viper) {
	// Tracking configuration
	v.BindEnv("tracking.change_threshold")
	v.BindEnv("tracking.debounce_ms")
	v.BindEnv("tracking.default_tag_mode")
	v.BindEnv("tracking.tags.auto")
	v.BindEnv("tracking.tags.highlight")
	v.BindEnv("tracking.tags.ignore")

	// Parser configuration
	v.BindEnv("parser.cache_size")
	v.BindEnv("parser.cache_ttl_seconds")
	v.BindEnv("parser.tolerate_syntax_errors")

	// Storage configuration
	v.BindEnv("storage.history_enabled")
	v.BindEnv("storage.history_path")

	// Logging configuration
	v.BindEnv("logging.level")
	v.BindEnv("logging.format")
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("tracking.change_threshold", defaults.Tracking.ChangeThreshold)
	v.SetDefault("tracking.debounce_ms", defaults.Tracking.DebounceMS)
	v.SetDefault("tracking.default_tag_mode", defaults.Tracking.DefaultTagMode)
	v.SetDefault("tracking.tags.auto", defaults.Tracking.Tags.Auto)
	v.SetDefault("tracking.tags.highlight", defaults.Tracking.Tags.Highlight)
	v.SetDefault("tracking.tags.ignore", defaults.Tracking.Tags.Ignore)

	v.SetDefault("paths.code", defaults.Paths.Code)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("parser.cache_size", defaults.Parser.CacheSize)
	v.SetDefault("parser.cache_ttl_seconds", defaults.Parser.CacheTTLSeconds)
	v.SetDefault("parser.tolerate_syntax_errors", defaults.Parser.TolerateSyntaxErrors)

	v.SetDefault("storage.history_enabled", defaults.Storage.HistoryEnabled)
	v.SetDefault("storage.history_path", defaults.Storage.HistoryPath)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	// One key per language so a config file that sets a single format
	// merges with the rest instead of replacing the whole map.
	for language, format := range defaults.Formats {
		v.SetDefault("formats."+language, format)
	}
}

// fillFormatDefaults adds the default format for every language the loaded
// config leaves unset.
func fillFormatDefaults(cfg *Config) {
	if cfg.Formats == nil {
		cfg.Formats = FormatsConfig{}
	}
	for language, format := range Default().Formats {
		if cfg.Formats[language] == "" {
			cfg.Formats[language] = format
		}
	}
}

// LoadConfig is a convenience function that loads config for the current
// working directory.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
