package config

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mvp-joe/autodoc/internal/engine"
	"github.com/mvp-joe/autodoc/internal/tracking"
)

// Settings converts the tracking section to engine settings. The config
// must have passed Validate.
func (c *Config) Settings() engine.Settings {
	mode, err := tracking.ParseTagMode(c.Tracking.DefaultTagMode)
	if err != nil {
		mode = tracking.TagHighlight
	}
	return engine.Settings{
		ChangeThreshold: c.Tracking.ChangeThreshold,
		DefaultTagMode:  mode,
		Tags: tracking.Sentinels{
			Auto:      c.Tracking.Tags.Auto,
			Highlight: c.Tracking.Tags.Highlight,
			Ignore:    c.Tracking.Tags.Ignore,
		},
	}
}

// SettingsHolder is an engine.SettingsProvider whose value can be swapped
// while the engine runs, e.g. after the config file changed.
type SettingsHolder struct {
	mu       sync.RWMutex
	settings engine.Settings
}

// NewSettingsHolder creates a holder with the settings of cfg.
func NewSettingsHolder(cfg *Config) *SettingsHolder {
	return &SettingsHolder{settings: cfg.Settings()}
}

// Settings implements engine.SettingsProvider.
func (h *SettingsHolder) Settings() engine.Settings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.settings
}

// Update replaces the settings with those of cfg.
func (h *SettingsHolder) Update(cfg *Config) {
	h.mu.Lock()
	h.settings = cfg.Settings()
	h.mu.Unlock()
}

// NewLogger builds a logrus logger from the logging section, writing to out.
func (c *Config) NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	if level, err := logrus.ParseLevel(c.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	if strings.EqualFold(c.Logging.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
