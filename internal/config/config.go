// Package config loads settings from the YAML config file and environment
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dundee/topfiles/pkg/analyze"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables overriding the config file
const EnvPrefix = "TOPFILES"

// Store kinds
const (
	StoreJSON   = "json"
	StoreBadger = "badger"
)

// Config holds all settings of the application
type Config struct {
	CacheStore         string        `yaml:"cache-store" split_words:"true"`
	CachePath          string        `yaml:"cache-path" split_words:"true"`
	MaxDepth           int           `yaml:"max-depth" split_words:"true"`
	PathWarnLength     int           `yaml:"path-warn-length" split_words:"true"`
	PathCriticalLength int           `yaml:"path-critical-length" split_words:"true"`
	MemoryModerateMB   uint64        `yaml:"memory-moderate-mb" split_words:"true"`
	MemoryHighMB       uint64        `yaml:"memory-high-mb" split_words:"true"`
	MemoryTargetMB     uint64        `yaml:"memory-target-mb" split_words:"true"`
	MaxCacheAge        time.Duration `yaml:"max-cache-age" split_words:"true"`
	MaxIOPS            int           `yaml:"max-iops" split_words:"true"`
	IODelay            time.Duration `yaml:"io-delay" split_words:"true"`
	Top                int           `yaml:"top" split_words:"true"`
	LogFile            string        `yaml:"log-file" split_words:"true"`
	LogLevel           string        `yaml:"log-level" split_words:"true"`
	NoColor            bool          `yaml:"no-color" split_words:"true"`
}

// Default returns configuration used when nothing is set
func Default() Config {
	scanner := analyze.DefaultScannerOptions()
	return Config{
		CacheStore:         StoreJSON,
		MaxDepth:           scanner.MaxDepth,
		PathWarnLength:     scanner.PathWarnLength,
		PathCriticalLength: scanner.PathCriticalLength,
		MemoryModerateMB:   scanner.MemoryModerateMB,
		MemoryHighMB:       scanner.MemoryHighMB,
		MemoryTargetMB:     scanner.MemoryTargetMB,
		Top:                analyze.DefaultTopCount,
		LogLevel:           "info",
	}
}

// DefaultPath returns path of the config file in the home directory
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".topfiles.yaml"
	}
	return filepath.Join(home, ".topfiles.yaml")
}

// Load reads the config file at path over the defaults and applies
// environment overrides. Missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, errors.Wrapf(err, "reading config file %s", path)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, errors.Wrapf(err, "parsing config file %s", path)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, errors.Wrap(err, "reading environment")
	}

	return cfg, nil
}

// Validate checks that the values can be used
func (c Config) Validate() error {
	switch c.CacheStore {
	case StoreJSON, StoreBadger:
	default:
		return errors.Errorf("unknown cache store %q, use %s or %s", c.CacheStore, StoreJSON, StoreBadger)
	}

	if c.MaxDepth < 0 {
		return errors.New("max depth cannot be negative")
	}
	if c.PathWarnLength < 0 || c.PathCriticalLength < 0 {
		return errors.New("path length limits cannot be negative")
	}
	if c.PathCriticalLength > 0 && c.PathCriticalLength < c.PathWarnLength {
		return errors.Errorf("critical path length %d is lower than warning length %d",
			c.PathCriticalLength, c.PathWarnLength)
	}
	if c.MaxIOPS < 0 || c.IODelay < 0 || c.MaxCacheAge < 0 {
		return errors.New("throttling and cache age cannot be negative")
	}
	if c.Top <= 0 {
		return errors.Errorf("top must be positive, got %d", c.Top)
	}
	return nil
}

// ScannerOptions converts the config to options of the scanner
func (c Config) ScannerOptions() analyze.ScannerOptions {
	return analyze.ScannerOptions{
		MaxDepth:           c.MaxDepth,
		PathWarnLength:     c.PathWarnLength,
		PathCriticalLength: c.PathCriticalLength,
		MemoryModerateMB:   c.MemoryModerateMB,
		MemoryHighMB:       c.MemoryHighMB,
		MemoryTargetMB:     c.MemoryTargetMB,
		Throttle:           analyze.NewIOThrottle(c.MaxIOPS, c.IODelay),
	}
}
