package model

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"
)

// Config is the complete configuration of a corroborate run
type Config struct {
	Database    DatabaseConfig             `yaml:"database" mapstructure:"database"`
	Concurrency ConcurrencyConfig          `yaml:"concurrency" mapstructure:"concurrency"`
	Voting      VotingConfig               `yaml:"voting" mapstructure:"voting"`
	Algorithms  map[string]AlgorithmConfig `yaml:"algorithms" mapstructure:"algorithms"`
	Rank        RankConfig                 `yaml:"rank" mapstructure:"rank"`
	Similarity  SimilarityConfig           `yaml:"similarity" mapstructure:"similarity"`
	Cache       CacheConfig                `yaml:"cache" mapstructure:"cache"`
	Metrics     MetricsConfig              `yaml:"metrics" mapstructure:"metrics"`
	Log         LogConfig                  `yaml:"log" mapstructure:"log"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

type VotingConfig struct {
	GlobalThreshold float64 `yaml:"global_threshold" mapstructure:"global_threshold"`
}

// AlgorithmConfig configures one registered algorithm by its catalog name
type AlgorithmConfig struct {
	Enabled      bool     `yaml:"enabled" mapstructure:"enabled"`
	Threshold    *float64 `yaml:"threshold" mapstructure:"threshold"`
	TopSentences int      `yaml:"top_sentences,omitempty" mapstructure:"top_sentences"`
}

type RankConfig struct {
	Iterations int     `yaml:"iterations" mapstructure:"iterations"`
	Threshold  float64 `yaml:"threshold" mapstructure:"threshold"`
	Damping    float64 `yaml:"damping" mapstructure:"damping"`
}

type SimilarityConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"` // lexical, openai, ollama, anthropic, sts
	Model             string        `yaml:"model,omitempty" mapstructure:"model"`
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Proxy             string        `yaml:"proxy,omitempty" mapstructure:"proxy"` // empty uses HTTP(S)_PROXY
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	HostRates         []HostRate    `yaml:"host_rates,omitempty" mapstructure:"host_rates"`
}

// HostRate overrides RequestsPerSecond for one host, e.g. a local Ollama server.
// A list rather than a map since viper splits keys on dots.
type HostRate struct {
	Host              string  `yaml:"host" mapstructure:"host"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, disk, layered, redis
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	RedisAddr string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// Built-in algorithm names as they appear in the catalog
const (
	AlgorithmKeyword  = "Keyword"
	AlgorithmTFIDF    = "TF-IDF"
	AlgorithmTextRank = "TextRank Semantic Analysis"
)

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "corroborate.db",
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Voting: VotingConfig{
			GlobalThreshold: 0.5,
		},
		Algorithms: map[string]AlgorithmConfig{
			AlgorithmKeyword:  {Enabled: true, Threshold: Float(0.6)},
			AlgorithmTFIDF:    {Enabled: true, Threshold: Float(0.3)},
			AlgorithmTextRank: {Enabled: true, Threshold: Float(0.5), TopSentences: 10},
		},
		Rank: RankConfig{
			Iterations: 100,
			Threshold:  0.0001,
			Damping:    0.8,
		},
		Similarity: SimilarityConfig{
			Provider:          "lexical",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "memory",
			Dir:     ".corroborate-cache",
			TTL:     24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// EnabledAlgorithms returns the enabled algorithm names in sorted order
func (c *Config) EnabledAlgorithms() []string {
	var names []string
	for name, ac := range c.Algorithms {
		if ac.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Thresholds returns the confidence threshold of every algorithm that has one,
// enabled or not, as the catalog stores them
func (c *Config) Thresholds() map[string]float64 {
	out := make(map[string]float64, len(c.Algorithms))
	for name, ac := range c.Algorithms {
		if ac.Threshold != nil {
			out[name] = *ac.Threshold
		}
	}
	return out
}

// Validate reports every configuration problem found, each wrapping ErrConfiguration
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, a ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, a...)...))
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		add("unknown database driver %q", c.Database.Driver)
	}
	if c.Concurrency.Workers < 1 {
		add("concurrency.workers must be at least 1, got %d", c.Concurrency.Workers)
	}
	if !inUnit(c.Voting.GlobalThreshold) {
		add("voting.global_threshold must be in [0,1], got %v", c.Voting.GlobalThreshold)
	}
	for _, name := range c.EnabledAlgorithms() {
		ac := c.Algorithms[name]
		if ac.Threshold == nil {
			errs = append(errs, fmt.Errorf("%w: algorithm %q", ErrMissingThreshold, name))
			continue
		}
		if !inUnit(*ac.Threshold) {
			add("algorithm %q threshold must be in [0,1], got %v", name, *ac.Threshold)
		}
	}
	if c.Rank.Iterations < 1 {
		add("rank.iterations must be at least 1, got %d", c.Rank.Iterations)
	}
	if c.Rank.Damping <= 0 || c.Rank.Damping >= 1 {
		add("rank.damping must be in (0,1), got %v", c.Rank.Damping)
	}
	if c.Rank.Threshold < 0 {
		add("rank.threshold must not be negative, got %v", c.Rank.Threshold)
	}

	return errors.Join(errs...)
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
