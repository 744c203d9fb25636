package config

import (
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath returns the per-user config file location,
// e.g. ~/.config/upower-notify/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to locate user config directory")
	}
	return filepath.Join(dir, "upower-notify", "config.yaml"), nil
}

// Load reads, defaults and validates the config file at path. A missing or
// empty file yields the built-in defaults; any other failure (unreadable
// file, bad YAML, invalid values) is returned and should be treated as
// startup-fatal.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Infof("config file %s not found, using built-in defaults", path)
			return Default(), nil
		}
		return nil, pkgerrors.Wrapf(err, "failed to read config file %s", path)
	}

	if strings.TrimSpace(string(b)) == "" {
		return Default(), nil
	}

	conf := &Config{}
	if err := yaml.Unmarshal(b, conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to parse config file %s", path)
	}

	conf.applyDefaults()

	if err := Validate(conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid config file %s", path)
	}

	return conf, nil
}

// applyDefaults fills unset scalar fields. The rule list is left exactly as
// the user wrote it: an explicit empty rule list means "notify about
// nothing", not "use the default rules".
func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = DefaultAppName
	}
	if c.Device == "" {
		c.Device = DefaultDevice
	}
	if c.Source == "" {
		c.Source = SourceDBus
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollIntervalSec
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandTimeoutSec
	}
	if c.Thresholds.Low == 0 {
		c.Thresholds.Low = DefaultLowThreshold
	}
	if c.Thresholds.Critical == 0 {
		c.Thresholds.Critical = DefaultCritThreshold
	}
}
