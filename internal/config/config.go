// Package config handles configuration loading for newspulse.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/avelek/newspulse/pkg/models"
)

// Config represents the complete application configuration.
type Config struct {
	Study     StudyConfig     `mapstructure:"study"     yaml:"study"`
	Sentiment SentimentConfig `mapstructure:"sentiment" yaml:"sentiment"`
	Price     PriceConfig     `mapstructure:"price"     yaml:"price"`
	Fetch     FetchConfig     `mapstructure:"fetch"     yaml:"fetch"`
	Cache     CacheConfig     `mapstructure:"cache"     yaml:"cache"`
	Align     AlignConfig     `mapstructure:"align"     yaml:"align"`
	Output    OutputConfig    `mapstructure:"output"    yaml:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// StudyConfig names the subject of a run: the news topic, the ticker
// whose price it is compared against, and the calendar window.
type StudyConfig struct {
	Keyword      string `mapstructure:"keyword"       yaml:"keyword"`
	Country      string `mapstructure:"country"       yaml:"country"` // source-country filter, e.g. "US"
	Ticker       string `mapstructure:"ticker"        yaml:"ticker"`
	Start        string `mapstructure:"start"         yaml:"start"` // YYYY-MM-DD, empty derives from lookback
	End          string `mapstructure:"end"           yaml:"end"`   // YYYY-MM-DD, empty means today
	LookbackDays int    `mapstructure:"lookback_days" yaml:"lookback_days"`
}

// SentimentConfig selects and tunes the news-sentiment source.
type SentimentConfig struct {
	Variant   string   `mapstructure:"variant"    yaml:"variant"` // "gkg", "doc", "rss"
	ToneField int      `mapstructure:"tone_field" yaml:"tone_field"`
	ChunkDays int      `mapstructure:"chunk_days" yaml:"chunk_days"`
	Reducer   string   `mapstructure:"reducer"    yaml:"reducer"`    // "mean", "sum", "last"
	RateLimit int      `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per minute
	BaseURL   string   `mapstructure:"base_url"   yaml:"base_url"`
	Feeds     []string `mapstructure:"feeds"      yaml:"feeds"` // rss variant only, empty uses the built-in list
}

// PriceConfig tunes the daily price source.
type PriceConfig struct {
	Interval  string `mapstructure:"interval"   yaml:"interval"`
	ChunkDays int    `mapstructure:"chunk_days" yaml:"chunk_days"`
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per minute
	BaseURL   string `mapstructure:"base_url"   yaml:"base_url"`
}

// FetchConfig holds the executor's concurrency and retry settings.
type FetchConfig struct {
	Concurrency   int `mapstructure:"concurrency"     yaml:"concurrency"`
	MaxRetries    int `mapstructure:"max_retries"     yaml:"max_retries"`
	TimeoutSec    int `mapstructure:"timeout_sec"     yaml:"timeout_sec"` // per fetch attempt
	BackoffBaseMS int `mapstructure:"backoff_base_ms" yaml:"backoff_base_ms"`
	BackoffMaxMS  int `mapstructure:"backoff_max_ms"  yaml:"backoff_max_ms"`
}

// CacheConfig holds chunk cache settings.
type CacheConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // "files", "sqlite", "memory"
	Path    string `mapstructure:"path"    yaml:"path"`    // directory for files, database file for sqlite
}

// AlignConfig holds alignment and lag settings.
type AlignConfig struct {
	MaxLag int `mapstructure:"max_lag" yaml:"max_lag"` // sentiment lead days carried into the table
}

// OutputConfig holds report output settings.
type OutputConfig struct {
	Dir   string `mapstructure:"dir"   yaml:"dir"`
	Title string `mapstructure:"title" yaml:"title"` // empty derives one from keyword and ticker
	PDF   bool   `mapstructure:"pdf"   yaml:"pdf"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"` // "debug", "info", "warn", "error"
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.newspulse/config.yaml (home directory)
//  3. /etc/newspulse/config.yaml (system)
//
// Environment variables override config file values.
// Format: NEWSPULSE_<SECTION>_<KEY>, e.g., NEWSPULSE_STUDY_KEYWORD
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".newspulse"))
	v.AddConfigPath("/etc/newspulse")

	// Environment variable settings
	v.SetEnvPrefix("NEWSPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, defaults + env vars cover everything
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("NEWSPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Range resolves the study window. Explicit dates win; otherwise the
// window ends today and reaches back lookback_days.
func (s StudyConfig) Range() (models.DateRange, error) {
	end := models.Today()
	if s.End != "" {
		var err error
		end, err = models.ParseDate(s.End)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("study.end: %w", err)
		}
	}

	start := end.AddDays(-s.LookbackDays)
	if s.Start != "" {
		var err error
		start, err = models.ParseDate(s.Start)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("study.start: %w", err)
		}
	}

	return models.NewDateRange(start, end)
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Study defaults
	v.SetDefault("study.keyword", "trump")
	v.SetDefault("study.country", "US")
	v.SetDefault("study.ticker", "DJT")
	v.SetDefault("study.lookback_days", 90)

	// Sentiment source defaults
	v.SetDefault("sentiment.variant", "doc")
	v.SetDefault("sentiment.tone_field", 2) // polarity-independent tone component
	v.SetDefault("sentiment.chunk_days", 1) // unbounded article volume per day, keep chunks small
	v.SetDefault("sentiment.reducer", "mean")
	v.SetDefault("sentiment.rate_limit", 30)

	// Price source defaults
	v.SetDefault("price.interval", "1d")
	v.SetDefault("price.chunk_days", 365) // one bar per trading day, a year per call is safe
	v.SetDefault("price.rate_limit", 30)

	// Fetch defaults
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.timeout_sec", 30)
	v.SetDefault("fetch.backoff_base_ms", 500)
	v.SetDefault("fetch.backoff_max_ms", 30000)

	// Cache defaults
	v.SetDefault("cache.backend", "files")
	v.SetDefault("cache.path", filepath.Join(homeDir(), ".newspulse", "cache"))

	// Alignment defaults
	v.SetDefault("align.max_lag", 5)

	// Output defaults
	v.SetDefault("output.dir", "reports")
	v.SetDefault("output.pdf", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", true)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
