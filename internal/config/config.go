// Package config loads and validates crawldex configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/crawldex/crawldex/internal/crawl"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Index   IndexConfig   `mapstructure:"index"`
	AI      AIConfig      `mapstructure:"ai"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// IndexConfig locates the search index and names the target.
type IndexConfig struct {
	Host         string `mapstructure:"host"`
	APIKey       string `mapstructure:"api_key"`
	Name         string `mapstructure:"name"`
	PrimaryKey   string `mapstructure:"primary_key"`
	BatchSize    int    `mapstructure:"batch_size"`
	KeepSettings bool   `mapstructure:"keep_settings"`
}

// AIConfig configures the optional model backend for the AI pipeline steps.
type AIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// WebhookConfig configures optional crawl event delivery.
type WebhookConfig struct {
	URL string `mapstructure:"url"`
}

// FeatureConfig is the shared shape of every optional pipeline step.
type FeatureConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	IncludeURLs []string `mapstructure:"include_urls"`
	ExcludeURLs []string `mapstructure:"exclude_urls"`
}

// SelectorsConfig configures the custom CSS selector step.
type SelectorsConfig struct {
	FeatureConfig `mapstructure:",squash"`
	Selectors     map[string]string `mapstructure:"selectors"`
}

// SchemaConfig configures JSON-LD extraction.
type SchemaConfig struct {
	FeatureConfig `mapstructure:",squash"`
	OnlyType      string `mapstructure:"only_type"`
}

// AIExtractionConfig configures model-backed field extraction.
type AIExtractionConfig struct {
	FeatureConfig `mapstructure:",squash"`
	Fields        []string `mapstructure:"fields"`
	Prompt        string   `mapstructure:"prompt"`
}

// AISummaryConfig configures model-backed summarization.
type AISummaryConfig struct {
	FeatureConfig `mapstructure:",squash"`
	Prompt        string `mapstructure:"prompt"`
}

// FeaturesConfig groups the per-step pipeline configuration.
type FeaturesConfig struct {
	Metadata     FeatureConfig      `mapstructure:"metadata"`
	Selectors    SelectorsConfig    `mapstructure:"selectors"`
	Markdown     FeatureConfig      `mapstructure:"markdown"`
	Schema       SchemaConfig       `mapstructure:"schema"`
	AIExtraction AIExtractionConfig `mapstructure:"ai_extraction"`
	AISummary    AISummaryConfig    `mapstructure:"ai_summary"`
	Split        FeatureConfig      `mapstructure:"split"`
}

// CrawlConfig governs scope, pacing and the feature pipeline.
type CrawlConfig struct {
	Seeds             []string       `mapstructure:"seeds"`
	ExcludeURLs       []string       `mapstructure:"exclude_urls"`
	IndexURLs         []string       `mapstructure:"index_urls"`
	NotIndexURLs      []string       `mapstructure:"not_index_urls"`
	NotFoundSelectors []string       `mapstructure:"not_found_selectors"`
	Features          FeaturesConfig `mapstructure:"features"`

	UserAgent               string `mapstructure:"user_agent"`
	MaxDepth                int    `mapstructure:"max_depth"`
	Concurrency             int    `mapstructure:"concurrency"`
	DelayMs                 int    `mapstructure:"delay_ms"`
	TimeoutSeconds          int    `mapstructure:"timeout_seconds"`
	ProgressIntervalSeconds int    `mapstructure:"progress_interval_seconds"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("index.host", "http://localhost:7700")
	v.SetDefault("index.primary_key", "id")
	v.SetDefault("index.batch_size", 100)
	v.SetDefault("index.keep_settings", false)
	v.SetDefault("crawl.user_agent", "crawldex/0.1")
	v.SetDefault("crawl.max_depth", 0)
	v.SetDefault("crawl.concurrency", 4)
	v.SetDefault("crawl.delay_ms", 0)
	v.SetDefault("crawl.timeout_seconds", 15)
	v.SetDefault("crawl.progress_interval_seconds", 10)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if len(c.Crawl.Seeds) == 0 {
		return fmt.Errorf("crawl.seeds must not be empty")
	}
	if c.Index.Name == "" {
		return fmt.Errorf("index.name must be set")
	}
	if c.Index.BatchSize <= 0 {
		return fmt.Errorf("index.batch_size must be > 0")
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0")
	}
	if c.Crawl.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawl.timeout_seconds must be > 0")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	ai := c.Crawl.Features.AIExtraction.Enabled || c.Crawl.Features.AISummary.Enabled
	if ai && c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key must be set when an AI step is enabled")
	}
	return nil
}

// CrawlSettings converts the loaded configuration into the immutable
// per-crawl settings consumed by the pipeline.
func (c Config) CrawlSettings() crawl.Config {
	f := c.Crawl.Features
	out := crawl.Config{
		Seeds:        c.Crawl.Seeds,
		ExcludeURLs:  c.Crawl.ExcludeURLs,
		IndexURLs:    c.Crawl.IndexURLs,
		NotIndexURLs: c.Crawl.NotIndexURLs,

		IndexName:         c.Index.Name,
		PrimaryKey:        c.Index.PrimaryKey,
		BatchSize:         c.Index.BatchSize,
		KeepIndexSettings: c.Index.KeepSettings,

		NotFoundSelectors: c.Crawl.NotFoundSelectors,

		ProgressInterval: time.Duration(c.Crawl.ProgressIntervalSeconds) * time.Second,
		UserAgent:        c.Crawl.UserAgent,
		MaxDepth:         c.Crawl.MaxDepth,
	}
	out.Features.Metadata.Gate = f.Metadata.gate()
	out.Features.Selectors.Gate = f.Selectors.gate()
	out.Features.Selectors.Selectors = f.Selectors.Selectors
	out.Features.Markdown.Gate = f.Markdown.gate()
	out.Features.Schema.Gate = f.Schema.gate()
	out.Features.Schema.OnlyType = f.Schema.OnlyType
	out.Features.AIExtraction.Gate = f.AIExtraction.gate()
	out.Features.AIExtraction.Fields = f.AIExtraction.Fields
	out.Features.AIExtraction.Prompt = f.AIExtraction.Prompt
	out.Features.AISummary.Gate = f.AISummary.gate()
	out.Features.AISummary.Prompt = f.AISummary.Prompt
	out.Features.Split.Gate = f.Split.gate()
	return out
}

func (f FeatureConfig) gate() crawl.Gate {
	return crawl.Gate{
		Enabled:     f.Enabled,
		IncludeURLs: f.IncludeURLs,
		ExcludeURLs: f.ExcludeURLs,
	}
}
