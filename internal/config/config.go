// Package config loads imgopt settings from a TOML or YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/davesmith10/imgopt/internal/quant"
)

// Defaults. Timeouts and intervals are in seconds.
const (
	DefaultQuality      = quant.DefaultQuality
	DefaultFetchTimeout = 30
	DefaultMaxBytes     = 64 << 20
	DefaultUserAgent    = "imgopt/1.0"
	DefaultSuffix       = "_optimized"
	DefaultDebounceMS   = 500
	DefaultPollInterval = 5
)

// FetchConfig controls HTTP downloads of URL inputs.
type FetchConfig struct {
	Timeout   int    `toml:"timeout" yaml:"timeout"` // seconds
	MaxBytes  int64  `toml:"max_bytes" yaml:"max_bytes"`
	UserAgent string `toml:"user_agent" yaml:"user_agent"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (f FetchConfig) TimeoutDuration() time.Duration {
	return time.Duration(f.Timeout) * time.Second
}

type BatchConfig struct {
	Workers int    `toml:"workers" yaml:"workers"` // 0 = number of CPUs
	Suffix  string `toml:"suffix" yaml:"suffix"`
}

type WatchConfig struct {
	Dirs         []string `toml:"dirs" yaml:"dirs"`
	Output       string   `toml:"output" yaml:"output"`
	DebounceMS   int      `toml:"debounce_ms" yaml:"debounce_ms"`
	PollInterval int      `toml:"poll_interval" yaml:"poll_interval"` // seconds, 0 disables polling
}

func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

func (w WatchConfig) PollDuration() time.Duration {
	return time.Duration(w.PollInterval) * time.Second
}

// Config is the full set of settings. Zero-valued CLI flags never override
// it; only flags the user set do.
type Config struct {
	Quality   int    `toml:"quality" yaml:"quality"`
	MaxWidth  int    `toml:"max_width" yaml:"max_width"`
	MaxHeight int    `toml:"max_height" yaml:"max_height"`
	Format    string `toml:"format" yaml:"format"`
	Dither    bool   `toml:"dither" yaml:"dither"`

	Fetch FetchConfig `toml:"fetch" yaml:"fetch"`
	Batch BatchConfig `toml:"batch" yaml:"batch"`
	Watch WatchConfig `toml:"watch" yaml:"watch"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Quality: DefaultQuality,
		Format:  "png",
		Dither:  true,
		Fetch: FetchConfig{
			Timeout:   DefaultFetchTimeout,
			MaxBytes:  DefaultMaxBytes,
			UserAgent: DefaultUserAgent,
		},
		Batch: BatchConfig{Suffix: DefaultSuffix},
		Watch: WatchConfig{
			DebounceMS:   DefaultDebounceMS,
			PollInterval: DefaultPollInterval,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
// Files ending in .yaml or .yml are parsed as YAML, anything else as TOML.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		_, err = toml.Decode(string(data), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("quality %d out of range 0-100", c.Quality)
	}
	if c.MaxWidth < 0 || c.MaxHeight < 0 {
		return fmt.Errorf("max_width and max_height must not be negative")
	}
	switch strings.ToLower(c.Format) {
	case "", "png", "webp":
	default:
		return fmt.Errorf("unknown format %q (want png or webp)", c.Format)
	}
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch.timeout must not be negative")
	}
	if c.Fetch.MaxBytes < 0 {
		return fmt.Errorf("fetch.max_bytes must not be negative")
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative")
	}
	if c.Watch.DebounceMS < 0 || c.Watch.PollInterval < 0 {
		return fmt.Errorf("watch.debounce_ms and watch.poll_interval must not be negative")
	}
	return nil
}
