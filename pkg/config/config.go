// Package config holds the machine configuration. It is serialisable as
// YAML and loadable from any afs URL.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"tinyos/pkg/pit"
	"tinyos/pkg/rtc"
)

// Limits of the machine.
const (
	MaxTerminals = 3
	MaxProcesses = 6
)

// Config is the machine configuration. The zero value of a nested field
// inherits its default when loaded through Load.
type Config struct {
	Terminals  int              `yaml:"terminals"`
	Shell      string           `yaml:"shell"`
	Timer      TimerConfig      `yaml:"timer"`
	RTC        RTCConfig        `yaml:"rtc"`
	Filesystem FilesystemConfig `yaml:"filesystem"`
	Log        LogConfig        `yaml:"log"`
	Trace      TraceConfig      `yaml:"trace"`
}

type TimerConfig struct {
	Hz int `yaml:"hz"`
}

type RTCConfig struct {
	Hz int `yaml:"hz"`
}

// FilesystemConfig locates the boot image. When Directory is set the
// image is built from that directory instead of downloaded from URL.
type FilesystemConfig struct {
	URL       string `yaml:"url"`
	Directory string `yaml:"directory"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"`
}

// DefaultConfig returns the configuration of the stock machine.
func DefaultConfig() *Config {
	return &Config{
		Terminals: MaxTerminals,
		Shell:     "shell",
		Timer:     TimerConfig{Hz: pit.DefaultHz},
		RTC:       RTCConfig{Hz: rtc.DefaultHz},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Validate returns an aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Terminals < 1 || c.Terminals > MaxTerminals {
		errs = append(errs, fmt.Errorf("terminals must be in [1,%d], got %d", MaxTerminals, c.Terminals))
	}
	if c.Shell == "" {
		errs = append(errs, errors.New("shell must be set"))
	}
	if c.Timer.Hz <= 0 || c.Timer.Hz > pit.BaseHz {
		errs = append(errs, fmt.Errorf("timer.hz must be in [1,%d], got %d", pit.BaseHz, c.Timer.Hz))
	}
	if _, err := rtc.RateSelect(c.RTC.Hz); err != nil {
		errs = append(errs, fmt.Errorf("rtc.hz: %w", err))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// SlogLevel parses the configured level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Level))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load downloads and parses the configuration at URL.
func Load(ctx context.Context, fs afs.Service, URL string) (*Config, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download config %v: %w", URL, err)
	}
	return Parse(data)
}

// Encode renders cfg as YAML.
func Encode(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
