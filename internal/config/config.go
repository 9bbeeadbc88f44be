// Package config loads engine configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file named by VULFRAM_CONFIG, then individual environment variables.
// Unknown keys in the YAML file are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvFile names the environment variable holding the YAML config path.
const EnvFile = "VULFRAM_CONFIG"

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatNone = "none"
)

// Graphics backends.
const (
	GraphicsHeadless = "headless"
	GraphicsWGPU     = "wgpu"
)

// DefaultMaxBatchCommands bounds a single send.
const DefaultMaxBatchCommands = 4096

// Config is the engine configuration.
//
// Env tags carry no defaults: an unset variable keeps whatever the lower
// layers produced.
type Config struct {
	LogLevel         string        `yaml:"log_level" env:"VULFRAM_LOG_LEVEL"`
	LogFormat        string        `yaml:"log_format" env:"VULFRAM_LOG_FORMAT"`
	Graphics         string        `yaml:"graphics" env:"VULFRAM_GRAPHICS"`
	JournalPath      string        `yaml:"journal_path" env:"VULFRAM_JOURNAL"`
	MaxBatchCommands int           `yaml:"max_batch_commands" env:"VULFRAM_MAX_BATCH_COMMANDS"`
	PumpTimeout      time.Duration `yaml:"pump_timeout" env:"VULFRAM_PUMP_TIMEOUT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:         "info",
		LogFormat:        FormatText,
		Graphics:         GraphicsHeadless,
		MaxBatchCommands: DefaultMaxBatchCommands,
	}
}

// Load resolves configuration from defaults, the optional YAML file and the
// environment, then validates it.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := cfg.mergeYAML(data); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeYAML overlays a YAML document onto c. Keys absent from the document
// keep their current values.
func (c *Config) mergeYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		// An empty file is a valid, empty overlay.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// Validate rejects values the engine cannot honor.
func (c Config) Validate() error {
	var errs []error

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case FormatText, FormatJSON, FormatNone:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	switch c.Graphics {
	case GraphicsHeadless, GraphicsWGPU:
	default:
		errs = append(errs, fmt.Errorf("unknown graphics backend %q", c.Graphics))
	}
	if c.MaxBatchCommands < 0 {
		errs = append(errs, fmt.Errorf("max_batch_commands must be >= 0, got %d", c.MaxBatchCommands))
	}
	if c.PumpTimeout < 0 {
		errs = append(errs, fmt.Errorf("pump_timeout must be >= 0, got %s", c.PumpTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
