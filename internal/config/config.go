package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	CRMToken       string        `mapstructure:"CRM_API_TOKEN"`
	CRMBaseURL     string        `mapstructure:"CRM_BASE_URL"`
	InputPath      string        `mapstructure:"INPUT_PATH"`
	OutputPath     string        `mapstructure:"OUTPUT_PATH"`
	HTTPTimeout    time.Duration `mapstructure:"HTTP_TIMEOUT"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RetryBackoff   time.Duration `mapstructure:"RETRY_BACKOFF"`
	MaxEngagements int           `mapstructure:"MAX_ENGAGEMENTS_PER_CONTACT"`
	MaxDeals       int           `mapstructure:"MAX_DEALS_PER_CUSTOMER"`
	DetailMaxLen   int           `mapstructure:"DETAIL_MAX_LEN"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	Port           string        `mapstructure:"PORT"`
}

var ErrNoToken = errors.New("CRM_API_TOKEN is not set")

// Load reads envFile when it exists, then the process environment, which
// wins over the file.
func Load(envFile string) (Config, error) {
	v := viper.New()
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
	}
	v.AutomaticEnv()
	if envFile != "" {
		_ = v.ReadInConfig()
	}

	v.SetDefault("CRM_API_TOKEN", "")
	v.SetDefault("CRM_BASE_URL", "https://api.hubapi.com")
	v.SetDefault("INPUT_PATH", "customer_journeys.json")
	v.SetDefault("OUTPUT_PATH", "customer_touchpoints.json")
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RETRY_BACKOFF", "10s")
	v.SetDefault("MAX_ENGAGEMENTS_PER_CONTACT", 30)
	v.SetDefault("MAX_DEALS_PER_CUSTOMER", 10)
	v.SetDefault("DETAIL_MAX_LEN", 200)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "8080")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// RequireToken reports ErrNoToken for commands that talk to the CRM.
func (c Config) RequireToken() error {
	if strings.TrimSpace(c.CRMToken) == "" {
		return ErrNoToken
	}
	return nil
}

func (c Config) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
