// Package config loads application configuration from config.yaml and
// SCOUT_* environment variables, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/venture-scout/internal/scorer"
)

// Config holds the full application configuration.
type Config struct {
	Workspace  WorkspaceConfig  `yaml:"workspace" mapstructure:"workspace"`
	Ledger     LedgerConfig     `yaml:"ledger" mapstructure:"ledger"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Identity   IdentityConfig   `yaml:"identity" mapstructure:"identity"`
	Reset      ResetConfig      `yaml:"reset" mapstructure:"reset"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// WorkspaceConfig locates the checkpoint artifacts.
type WorkspaceConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LedgerConfig configures the run ledger backend.
type LedgerConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key              string `yaml:"key" mapstructure:"key"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	Model            string `yaml:"model" mapstructure:"model"`
	RateIntervalSecs int    `yaml:"rate_interval_secs" mapstructure:"rate_interval_secs"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key              string `yaml:"key" mapstructure:"key"`
	Model            string `yaml:"model" mapstructure:"model"`
	RateIntervalSecs int    `yaml:"rate_interval_secs" mapstructure:"rate_interval_secs"`
}

// DiscoveryConfig configures the discovery stage.
type DiscoveryConfig struct {
	QueriesFile     string   `yaml:"queries_file" mapstructure:"queries_file"`
	MaxResults      int      `yaml:"max_results" mapstructure:"max_results"`
	ExcludeDomains  []string `yaml:"exclude_domains" mapstructure:"exclude_domains"`
	ExcludeKeywords []string `yaml:"exclude_keywords" mapstructure:"exclude_keywords"`
}

// FetchConfig configures website fetching.
type FetchConfig struct {
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
	RateIntervalSecs int    `yaml:"rate_interval_secs" mapstructure:"rate_interval_secs"`
}

// IdentityConfig tunes name and domain normalization.
type IdentityConfig struct {
	LegalSuffixes      []string `yaml:"legal_suffixes" mapstructure:"legal_suffixes"`
	DomainSuffixTokens []string `yaml:"domain_suffix_tokens" mapstructure:"domain_suffix_tokens"`
}

// ResetConfig configures incompleteness detection.
type ResetConfig struct {
	RequiredFields []string `yaml:"required_fields" mapstructure:"required_fields"`
	Threshold      int      `yaml:"threshold" mapstructure:"threshold"`
}

// ScoringConfig configures the fit scorer.
type ScoringConfig struct {
	Weights           scorer.Weights `yaml:"weights" mapstructure:"weights"`
	ScalableModels    []string       `yaml:"scalable_models" mapstructure:"scalable_models"`
	TargetStages      []string       `yaml:"target_stages" mapstructure:"target_stages"`
	CustomerThreshold int            `yaml:"customer_threshold" mapstructure:"customer_threshold"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ScoreConfig converts the scoring section to the scorer's config type.
func (c *Config) ScoreConfig() scorer.Config {
	return scorer.Config{
		Weights:           c.Scoring.Weights,
		ScalableModels:    c.Scoring.ScalableModels,
		TargetStages:      c.Scoring.TargetStages,
		CustomerThreshold: c.Scoring.CustomerThreshold,
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("workspace.dir", "outputs")
	v.SetDefault("ledger.driver", "sqlite")
	v.SetDefault("ledger.database_url", "outputs/ledger.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.rate_interval_secs", 2)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.rate_interval_secs", 1)
	v.SetDefault("discovery.queries_file", "queries.yaml")
	v.SetDefault("discovery.max_results", 20)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; VentureScout/1.0)")
	v.SetDefault("fetch.rate_interval_secs", 1)
	v.SetDefault("reset.required_fields", []string{
		"founders", "funding_info", "location", "headquarters", "key_investors",
	})
	v.SetDefault("reset.threshold", 3)
	v.SetDefault("scoring.weights.business_model", 20)
	v.SetDefault("scoring.weights.market_alignment", 15)
	v.SetDefault("scoring.weights.stage_fit", 10)
	v.SetDefault("scoring.weights.team_quality", 10)
	v.SetDefault("scoring.weights.traction", 20)
	v.SetDefault("scoring.weights.investor_backing", 15)
	v.SetDefault("scoring.weights.exit_potential", 10)
	v.SetDefault("scoring.scalable_models", []string{"saas", "marketplace", "platform", "subscription"})
	v.SetDefault("scoring.target_stages", []string{"seed", "series-a", "series-b"})
	v.SetDefault("scoring.customer_threshold", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that would silently produce wrong output.
func (c *Config) Validate() error {
	if total := c.Scoring.Weights.Total(); total != 100 {
		return eris.Errorf("config: scoring weights sum to %d, want 100", total)
	}
	switch c.Ledger.Driver {
	case "sqlite", "postgres", "":
	default:
		return eris.Errorf("config: unknown ledger driver %q", c.Ledger.Driver)
	}
	if c.Reset.Threshold < 1 {
		return eris.Errorf("config: reset threshold %d, want >= 1", c.Reset.Threshold)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
