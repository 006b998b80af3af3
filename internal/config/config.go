// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	ListenAddr           string        `mapstructure:"LISTEN_ADDR"`
	DBURL                string        `mapstructure:"DB_URL"`
	WebhookIPRange       string        `mapstructure:"WEBHOOK_IP_RANGE"`
	OrgCacheTTL          time.Duration `mapstructure:"ORG_CACHE_TTL"`
	IgnoreCommitPatterns []string      `mapstructure:"IGNORE_COMMIT_PATTERNS"`
	WebhookIPPrefix      netip.Prefix  `mapstructure:"-"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LISTEN_ADDR", ":8080")
	// Bitbucket Cloud webhook source range:
	// https://confluence.atlassian.com/bitbucket/manage-webhooks-735643732.html
	viper.SetDefault("WEBHOOK_IP_RANGE", "104.192.143.0/24")
	viper.SetDefault("ORG_CACHE_TTL", "5m")
	viper.SetDefault("IGNORE_COMMIT_PATTERNS", []string{
		`#skip-ingest`,
		`^Merge branch `,
		`^Merge pull request `,
	})

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	prefix, err := netip.ParsePrefix(cfg.WebhookIPRange)
	if err != nil {
		return nil, fmt.Errorf("WEBHOOK_IP_RANGE must be a valid CIDR block: %w", err)
	}
	cfg.WebhookIPPrefix = prefix

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.OrgCacheTTL <= 0 {
		return nil, errors.New("ORG_CACHE_TTL must be a positive duration")
	}

	return &cfg, nil
}
