package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the complete reginduce configuration
type Config struct {
	Induction   InductionConfig   `json:"induction" yaml:"induction" mapstructure:"induction"`
	Extraction  ExtractionConfig  `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Engine      EngineConfig      `json:"engine" yaml:"engine" mapstructure:"engine"`
	Concurrency ConcurrencyConfig `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
	Cache       CacheConfig       `json:"cache" yaml:"cache" mapstructure:"cache"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging" mapstructure:"logging"`
	Remote      RemoteConfig      `json:"remote" yaml:"remote" mapstructure:"remote"`
}

// InductionConfig controls the generalization engine
type InductionConfig struct {
	CaseInsensitive    bool     `json:"case_insensitive" yaml:"case_insensitive" mapstructure:"case_insensitive"`
	AllowOverMatches   bool     `json:"allow_over_matches" yaml:"allow_over_matches" mapstructure:"allow_over_matches"`
	HoldoutWords       []string `json:"holdout_words" yaml:"holdout_words" mapstructure:"holdout_words"`
	EnableTier2        bool     `json:"enable_tier2" yaml:"enable_tier2" mapstructure:"enable_tier2"`
	Tier2Scorer        string   `json:"tier2_scorer" yaml:"tier2_scorer" mapstructure:"tier2_scorer"` // tp_fp_diff or f1
	GeneralizeLabeled  bool     `json:"generalize_labeled" yaml:"generalize_labeled" mapstructure:"generalize_labeled"`
	MeasureSensitivity bool     `json:"measure_sensitivity" yaml:"measure_sensitivity" mapstructure:"measure_sensitivity"`
	Debug              bool     `json:"debug" yaml:"debug" mapstructure:"debug"` // Keep every pattern version
	ScoreCacheSize     int      `json:"score_cache_size" yaml:"score_cache_size" mapstructure:"score_cache_size"`
}

// ExtractionConfig controls the runtime extractor
type ExtractionConfig struct {
	Timeout  time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	UseTier2 bool          `json:"use_tier2" yaml:"use_tier2" mapstructure:"use_tier2"`
}

// EngineConfig selects the matching engine
type EngineConfig struct {
	Kind         EngineKind    `json:"kind" yaml:"kind" mapstructure:"kind"`
	MatchTimeout time.Duration `json:"match_timeout" yaml:"match_timeout" mapstructure:"match_timeout"` // Backtracking engine only
}

// ConcurrencyConfig sizes the worker pools
type ConcurrencyConfig struct {
	CPUFraction float64 `json:"cpu_fraction" yaml:"cpu_fraction" mapstructure:"cpu_fraction"`
	Documents   int     `json:"documents" yaml:"documents" mapstructure:"documents"` // Batch extraction workers
}

// CacheConfig controls the induced model cache
type CacheConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `json:"dir" yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `json:"memory_ttl" yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `json:"disk_ttl" yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"` // json or console
}

// RemoteConfig configures the externally hosted classifier
type RemoteConfig struct {
	Provider          string  `json:"provider" yaml:"provider" mapstructure:"provider"` // "openai" or ""
	Model             string  `json:"model" yaml:"model" mapstructure:"model"`
	APIKey            string  `json:"-" yaml:"-" mapstructure:"api_key"`
	BaseURL           string  `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Timeout           int     `json:"timeout" yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxExamples       int     `json:"max_examples" yaml:"max_examples" mapstructure:"max_examples"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
	HTTPProxy         string  `json:"http_proxy,omitempty" yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string  `json:"https_proxy,omitempty" yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string  `json:"no_proxy,omitempty" yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	cacheDir := ".reginduce-cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".reginduce", "cache")
	}

	return &Config{
		Induction: InductionConfig{
			EnableTier2:        true,
			Tier2Scorer:        "tp_fp_diff",
			MeasureSensitivity: true,
			ScoreCacheSize:     4096,
		},
		Extraction: ExtractionConfig{
			Timeout: 5 * time.Minute,
		},
		Engine: EngineConfig{
			Kind:         EngineLinear,
			MatchTimeout: 5 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			CPUFraction: 0.75,
			Documents:   4,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Remote: RemoteConfig{
			Timeout:           30,
			MaxExamples:       20,
			RequestsPerSecond: 2,
		},
	}
}

// Validate checks the configuration before any work begins
func (c *Config) Validate() error {
	switch c.Engine.Kind {
	case EngineBacktracking, EngineLinear:
	default:
		return fmt.Errorf("%w: %w: %q (supported: backtracking, linear)", ErrInvalidConfiguration, ErrEngineUnavailable, c.Engine.Kind)
	}
	if c.Extraction.Timeout <= 0 {
		return fmt.Errorf("%w: extraction timeout must be positive", ErrInvalidConfiguration)
	}
	if c.Concurrency.CPUFraction <= 0 || c.Concurrency.CPUFraction > 1 {
		return fmt.Errorf("%w: cpu_fraction must be in (0, 1], got %v", ErrInvalidConfiguration, c.Concurrency.CPUFraction)
	}
	return nil
}
