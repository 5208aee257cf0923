// Package config loads the connector server configuration from the
// environment and an optional connector.env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the connector server.
type Config struct {
	Port string `mapstructure:"PORT" validate:"required,numeric"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn warning error"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`
	LogFile   string `mapstructure:"LOG_FILE"`

	// RedisURL shares rate limit state between replicas. Empty keeps it in memory.
	RedisURL string `mapstructure:"REDIS_URL" validate:"omitempty,url"`

	IntercomBaseURL  string        `mapstructure:"INTERCOM_BASE_URL" validate:"required,url"`
	UserAgent        string        `mapstructure:"USER_AGENT" validate:"required"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT" validate:"gt=0"`
	MaxPages         int           `mapstructure:"MAX_PAGES" validate:"min=1,max=1000"`
	RateLimitMaxWait time.Duration `mapstructure:"RATE_LIMIT_MAX_WAIT" validate:"gte=0"`
}

// Load reads configuration from path/connector.env, if present, with
// environment variables taking precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("connector") // Look for connector.env
	v.SetConfigType("env")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("INTERCOM_BASE_URL", "https://api.intercom.io")
	v.SetDefault("USER_AGENT", "intercom-connector/0.1.0")
	v.SetDefault("REQUEST_TIMEOUT", "5m")
	v.SetDefault("MAX_PAGES", 50)
	v.SetDefault("RATE_LIMIT_MAX_WAIT", "10s")
}

// Validate checks field constraints and reports every violation at once.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "url":
			messages = append(messages, fmt.Sprintf("%s must be a URL", e.Field()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]", e.Field(), e.Param()))
		case "min", "gte":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
		case "gt":
			messages = append(messages, fmt.Sprintf("%s must be greater than %s", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(messages, ", "))
}
