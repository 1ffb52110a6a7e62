// Package config holds the hxembed command configuration: embedded YAML
// defaults with an optional user file layered on top.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/pthm/hxembed"
)

//go:embed config.yaml
var defaultConfig []byte

type (
	FetchConfig struct {
		Timeout   time.Duration `yaml:"timeout"`
		MaxBytes  int64         `yaml:"max_bytes"`
		UserAgent string        `yaml:"user_agent"`
	}

	EmbedConfig struct {
		BaseURL      string        `yaml:"base_url"`
		Concurrency  int           `yaml:"concurrency"`
		StyleTimeout time.Duration `yaml:"style_timeout"`
		Sanitize     bool          `yaml:"sanitize"`
	}

	ServeConfig struct {
		Listen  string `yaml:"listen"`
		Key     string `yaml:"key"`
		Opaque  bool   `yaml:"opaque"`
		Metrics bool   `yaml:"metrics"`
	}

	Config struct {
		Version int           `yaml:"version"`
		Fetch   FetchConfig   `yaml:"fetch"`
		Embed   EmbedConfig   `yaml:"embed"`
		Serve   ServeConfig   `yaml:"serve"`
		Logging LoggingConfig `yaml:"logging"`
	}
)

func unmarshalConfig(data []byte, cfg *Config) (*Config, error) {
	// Only fields we defined are accepted, typos in the file are errors.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given
// path, superimposes its values on top of the embedded defaults and
// validates the result. An empty path yields the defaults.
func LoadConfiguration(path string) (*Config, error) {
	cfg, err := unmarshalConfig(defaultConfig, &Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to process default configuration: %w", err)
	}

	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if cfg, err = unmarshalConfig(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to process configuration file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	var errs []error
	if cfg.Version != 1 {
		errs = append(errs, fmt.Errorf("unsupported configuration version %d", cfg.Version))
	}
	if cfg.Embed.Concurrency < 1 {
		errs = append(errs, errors.New("embed.concurrency must be at least 1"))
	}
	if cfg.Embed.BaseURL != "" {
		if u, err := url.Parse(cfg.Embed.BaseURL); err != nil || !u.IsAbs() {
			errs = append(errs, fmt.Errorf("embed.base_url %q is not an absolute URL", cfg.Embed.BaseURL))
		}
	}
	if err := cfg.Logging.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Default returns the embedded default configuration.
func Default() []byte {
	return defaultConfig
}

// Dump renders cfg as YAML.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}

// Options turns the configuration into embed options.
func (cfg *Config) Options() ([]hxembed.Option, error) {
	opts := []hxembed.Option{
		hxembed.WithFetcher(hxembed.NewHTTPFetcher(hxembed.FetchConfig{
			Timeout:   cfg.Fetch.Timeout,
			MaxBytes:  cfg.Fetch.MaxBytes,
			UserAgent: cfg.Fetch.UserAgent,
		})),
		hxembed.WithConcurrency(cfg.Embed.Concurrency),
		hxembed.WithStyleTimeout(cfg.Embed.StyleTimeout),
	}
	if cfg.Embed.BaseURL != "" {
		base, err := url.Parse(cfg.Embed.BaseURL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, hxembed.WithBaseURL(base))
	}
	if cfg.Embed.Sanitize {
		opts = append(opts, hxembed.WithSanitizer(hxembed.UGCSanitizer()))
	}
	return opts, nil
}
