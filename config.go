package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type config struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Endpoints string `mapstructure:"endpoints"`
	Prompts   string `mapstructure:"prompts"`
	Language  string `mapstructure:"language"`
	Framework string `mapstructure:"framework"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Addr          string        `mapstructure:"addr"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	MaxConcurrent uint          `mapstructure:"max_concurrent"`
	StreamTimeout time.Duration `mapstructure:"stream_timeout"`
}

// newViper returns a viper instance with defaults, env bindings and the
// optional testgen.yaml config file search paths set.
func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("provider", defaultProvider)
	v.SetDefault("model", defaultModel)
	v.SetDefault("language", defaultLanguage)
	v.SetDefault("framework", defaultFramework)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("addr", defaultAddr)
	v.SetDefault("max_concurrent", defaultMaxConcurrent)
	v.SetDefault("stream_timeout", defaultStreamTimeout)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("base_url", "TESTGEN_BASE_URL", "LLM_HOST")
	_ = v.BindEnv("api_key", "TESTGEN_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("jwt_secret", "TESTGEN_JWT_SECRET", "JWT_SECRET")

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/testgen")
	return v
}

// loadConfig reads .env and the config file (both optional) and decodes the
// merged settings.
func loadConfig(v *viper.Viper) (config, error) {
	_ = godotenv.Load()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func (c config) validate() error {
	var result *multierror.Error

	switch c.Provider {
	case providerOpenAI, providerOllama:
	default:
		result = multierror.Append(result, fmt.Errorf("unknown provider %q", c.Provider))
	}
	if c.Model == "" {
		result = multierror.Append(result, errors.New("model must not be empty"))
	}
	if c.Language == "" {
		result = multierror.Append(result, errors.New("language must not be empty"))
	}
	if c.Framework == "" {
		result = multierror.Append(result, errors.New("framework must not be empty"))
	}
	return result.ErrorOrNil()
}

// validateServe adds the checks only the generation server needs.
func (c config) validateServe() error {
	var result *multierror.Error
	if err := c.validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.JWTSecret == "" {
		result = multierror.Append(result, errors.New("jwt_secret must be set to serve"))
	}
	if c.MaxConcurrent == 0 {
		result = multierror.Append(result, errors.New("max_concurrent must be at least 1"))
	}
	if c.StreamTimeout <= 0 {
		result = multierror.Append(result, errors.New("stream_timeout must be positive"))
	}
	return result.ErrorOrNil()
}
