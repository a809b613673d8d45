package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "MKWR_"

type Config struct {
	LogLevel int `koanf:"log_level" yaml:"log_level"`
	// ReleaseDate is the first day of the combined all-tracks series.
	ReleaseDate string `koanf:"release_date" yaml:"release_date"`

	Scraper ScraperConfig `koanf:"scraper" yaml:"scraper"`
	Cache   CacheConfig   `koanf:"cache" yaml:"cache"`
	Server  ServerConfig  `koanf:"server" yaml:"server"`
	Metrics MetricsConfig `koanf:"metrics" yaml:"metrics"`
}

type ScraperConfig struct {
	BaseURL    string        `koanf:"base_url" yaml:"base_url"`
	Workers    int           `koanf:"workers" yaml:"workers"`
	Timeout    time.Duration `koanf:"timeout" yaml:"timeout"`
	MaxRetries int           `koanf:"max_retries" yaml:"max_retries"`
	RetryDelay time.Duration `koanf:"retry_delay" yaml:"retry_delay"`
}

type CacheConfig struct {
	// Backend of the record cache: "local" or "gcs"
	Backend string `koanf:"backend" yaml:"backend"`
	Name    string `koanf:"name" yaml:"name"`

	// Local storage options
	Dir string `koanf:"dir" yaml:"dir"`

	// GCS storage options
	Bucket          string `koanf:"bucket" yaml:"bucket"`
	Prefix          string `koanf:"prefix" yaml:"prefix"`
	CredentialsFile string `koanf:"credentials_file" yaml:"credentials_file"`
}

type ServerConfig struct {
	Port string `koanf:"port" yaml:"port"`
}

type MetricsConfig struct {
	// RebuildBuckets are the rebuild duration histogram buckets in seconds.
	// Empty keeps the built-in buckets.
	RebuildBuckets []float64 `koanf:"rebuild_buckets" yaml:"rebuild_buckets,omitempty"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		LogLevel:    0,
		ReleaseDate: "2025-06-05",
		Scraper: ScraperConfig{
			BaseURL:    "https://mkwrs.com/mkworld/",
			Workers:    4,
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			RetryDelay: 2 * time.Second,
		},
		Cache: CacheConfig{
			Backend: "local",
			Name:    "record_memo.txt",
			Dir:     ".",
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

// Load layers defaults, the YAML file at path (skipped when path is empty)
// and MKWR_ environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// MKWR_SCRAPER_BASE_URL -> scraper.base_url
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, section := range []string{"scraper", "cache", "server"} {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	return key
}

func (c *Config) Validate() error {
	if _, err := c.Release(); err != nil {
		return err
	}
	if c.Scraper.Workers < 1 {
		return errors.New("scraper.workers must be at least 1")
	}
	if c.Scraper.MaxRetries < 0 {
		return errors.New("scraper.max_retries must not be negative")
	}
	for i, b := range c.Metrics.RebuildBuckets {
		if b <= 0 || (i > 0 && b <= c.Metrics.RebuildBuckets[i-1]) {
			return errors.New("metrics.rebuild_buckets must be positive and strictly increasing")
		}
	}
	switch c.Cache.Backend {
	case "local":
		if c.Cache.Dir == "" {
			return errors.New("cache.dir is required for the local backend")
		}
	case "gcs":
		if c.Cache.Bucket == "" {
			return errors.New("cache.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// Release parses ReleaseDate.
func (c *Config) Release() (civil.Date, error) {
	d, err := civil.ParseDate(c.ReleaseDate)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid release_date %q: %w", c.ReleaseDate, err)
	}
	return d, nil
}

// Dump renders the configuration as YAML.
func Dump(c *Config) ([]byte, error) {
	return yamlv3.Marshal(c)
}
