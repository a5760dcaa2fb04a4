// Package config loads enricher settings from an optional YAML file and
// ENRICHER_* environment variables.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Gemini      KeyConfig         `yaml:"gemini" mapstructure:"gemini"`
	Anthropic   KeyConfig         `yaml:"anthropic" mapstructure:"anthropic"`
	Oracle      OracleConfig      `yaml:"oracle" mapstructure:"oracle"`
	Fallback    OracleConfig      `yaml:"fallback" mapstructure:"fallback"`
	Input       InputConfig       `yaml:"input" mapstructure:"input"`
	Run         RunConfig         `yaml:"run" mapstructure:"run"`
	FallbackRun FallbackRunConfig `yaml:"fallback_run" mapstructure:"fallback_run"`
	Join        JoinConfig        `yaml:"join" mapstructure:"join"`
	Clean       CleanConfig       `yaml:"clean" mapstructure:"clean"`
	Checkpoint  CheckpointConfig  `yaml:"checkpoint" mapstructure:"checkpoint"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// KeyConfig holds one provider's credentials.
type KeyConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// OracleConfig selects and tunes the backend for one pass.
type OracleConfig struct {
	Provider       string        `yaml:"provider" mapstructure:"provider"`
	Model          string        `yaml:"model" mapstructure:"model"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// InputConfig controls how entity files are read.
type InputConfig struct {
	ListKeys []string `yaml:"list_keys" mapstructure:"list_keys"`
}

// RunConfig configures the primary pass.
type RunConfig struct {
	Input      string        `yaml:"input" mapstructure:"input"`
	Output     string        `yaml:"output" mapstructure:"output"`
	Checkpoint string        `yaml:"checkpoint" mapstructure:"checkpoint"`
	Delay      time.Duration `yaml:"delay" mapstructure:"delay"`
}

// FallbackRunConfig configures the name-only pass and its merge.
type FallbackRunConfig struct {
	Output     string        `yaml:"output" mapstructure:"output"`
	Checkpoint string        `yaml:"checkpoint" mapstructure:"checkpoint"`
	Merged     string        `yaml:"merged" mapstructure:"merged"`
	Delay      time.Duration `yaml:"delay" mapstructure:"delay"`
}

// JoinConfig configures the auxiliary dataset join.
type JoinConfig struct {
	Source      string `yaml:"source" mapstructure:"source"`
	ListKey     string `yaml:"list_key" mapstructure:"list_key"`
	FieldKey    string `yaml:"field_key" mapstructure:"field_key"`
	Output      string `yaml:"output" mapstructure:"output"`
	ReportLimit int    `yaml:"report_limit" mapstructure:"report_limit"`
}

// CleanConfig adds failure signatures to the built-in set.
type CleanConfig struct {
	ExtraSignatures []string `yaml:"extra_signatures" mapstructure:"extra_signatures"`
}

// CheckpointConfig controls recovery from an unreadable checkpoint.
type CheckpointConfig struct {
	StrictRecovery bool `yaml:"strict_recovery" mapstructure:"strict_recovery"`
}

// Load reads configuration from file and environment. An empty file means
// enricher.yaml in the working directory, if present.
func Load(file string) (*Config, error) {
	v := viper.New()

	// Config file
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("enricher")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("ENRICHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("gemini.api_key", "ENRICHER_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("anthropic.api_key", "ENRICHER_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("oracle.provider", "gemini")
	v.SetDefault("oracle.model", "gemini-2.5-flash")
	v.SetDefault("oracle.base_url", "")
	v.SetDefault("oracle.request_timeout", "90s")
	v.SetDefault("oracle.rate_limit_rps", 0)
	v.SetDefault("fallback.provider", "anthropic")
	v.SetDefault("fallback.model", "claude-haiku-4-5-20251001")
	v.SetDefault("fallback.base_url", "")
	v.SetDefault("fallback.request_timeout", "30s")
	v.SetDefault("fallback.rate_limit_rps", 0)
	v.SetDefault("input.list_keys", []string{"entities", "unique_chief_investigators", "results"})
	v.SetDefault("run.input", "researchers.json")
	v.SetDefault("run.output", "researchers_enriched.json")
	v.SetDefault("run.checkpoint", "researchers_enriched.checkpoint.json")
	v.SetDefault("run.delay", "2s")
	v.SetDefault("fallback_run.output", "researchers_name_analysis.json")
	v.SetDefault("fallback_run.checkpoint", "researchers_name_analysis.checkpoint.json")
	v.SetDefault("fallback_run.merged", "researchers_merged.json")
	v.SetDefault("fallback_run.delay", "1s")
	v.SetDefault("join.source", "")
	v.SetDefault("join.list_key", "entities")
	v.SetDefault("join.field_key", "total_projects")
	v.SetDefault("join.output", "researchers_with_counts.json")
	v.SetDefault("join.report_limit", 10)
	v.SetDefault("clean.extra_signatures", []string{})
	v.SetDefault("checkpoint.strict_recovery", false)

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
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

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	for name, o := range map[string]OracleConfig{"oracle": c.Oracle, "fallback": c.Fallback} {
		switch strings.ToLower(o.Provider) {
		case "gemini", "anthropic":
		default:
			return eris.Errorf("config: %s.provider must be gemini or anthropic, got %q", name, o.Provider)
		}
		if o.RateLimitRPS < 0 {
			return eris.Errorf("config: %s.rate_limit_rps must not be negative", name)
		}
	}
	if c.Run.Delay < 0 || c.FallbackRun.Delay < 0 {
		return eris.New("config: delays must not be negative")
	}
	return nil
}

// APIKey returns the credential for provider.
func (c *Config) APIKey(provider string) string {
	switch strings.ToLower(provider) {
	case "gemini":
		return c.Gemini.APIKey
	case "anthropic":
		return c.Anthropic.APIKey
	}
	return ""
}

// Dump renders the effective configuration as YAML with credentials masked.
func Dump(cfg Config) ([]byte, error) {
	cfg.Gemini.APIKey = mask(cfg.Gemini.APIKey)
	cfg.Anthropic.APIKey = mask(cfg.Anthropic.APIKey)
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "config: marshal")
	}
	return out, nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
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
