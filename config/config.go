package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StoreType selects the KeyStore backend.
type StoreType string

const (
	StoreTypeRedis  StoreType = "redis"
	StoreTypeMemory StoreType = "memory"
)

// Config holds all configuration for the link server and the cache layer.
type Config struct {
	HTTPAddr  string `mapstructure:"http_addr"`
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	StoreType        StoreType     `mapstructure:"store_type"`
	RedisURL         string        `mapstructure:"redis_url"`
	RedisSecure      bool          `mapstructure:"redis_secure"`
	RedisTrust       string        `mapstructure:"redis_trust"` // PEM, literal \n sequences allowed
	RedisConnections int           `mapstructure:"redis_connections"`
	RedisPoolTimeout time.Duration `mapstructure:"redis_pool_timeout"`

	ClientID      string   `mapstructure:"client_id"`
	ClientSecret  string   `mapstructure:"client_secret"`
	OAuthAuthURL  string   `mapstructure:"oauth_auth_url"`
	OAuthTokenURL string   `mapstructure:"oauth_token_url"`
	OAuthScopes   []string `mapstructure:"oauth_scopes"`
	HelixURL      string   `mapstructure:"helix_url"`
	ValidateURL   string   `mapstructure:"validate_url"`
	AppToken      string   `mapstructure:"app_token"`

	// UpstreamTimeout bounds every call to the platform's API and identity endpoints.
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`

	TokenHashSalt         string        `mapstructure:"token_hash_salt"`
	DeviceTypes           []string      `mapstructure:"device_types"`
	PairingTTL            time.Duration `mapstructure:"pairing_ttl"`
	TokenRecordTTL        time.Duration `mapstructure:"token_record_ttl"`
	FollowRefreshInterval time.Duration `mapstructure:"follow_refresh_interval"`

	TracingEnabled  bool   `mapstructure:"tracing_enabled"`
	OtelServiceName string `mapstructure:"otel_service_name"`
}

// LoadConfig reads configuration from an optional twitched.yaml, environment
// variables prefixed with TWITCHED_ and the defaults below. configPath, when
// not empty, names the config file explicitly.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("twitched")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/twitched/")
		v.AddConfigPath("$HOME/.twitched")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TWITCHED")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("http_addr", "0.0.0.0:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("store_type", string(StoreTypeRedis))
	v.SetDefault("redis_url", "redis://localhost:6379")
	v.SetDefault("redis_secure", true)
	v.SetDefault("redis_trust", "")
	v.SetDefault("redis_connections", 1)
	v.SetDefault("redis_pool_timeout", "5s")
	v.SetDefault("client_id", "")
	v.SetDefault("client_secret", "")
	v.SetDefault("oauth_auth_url", "https://id.twitch.tv/oauth2/authorize")
	v.SetDefault("oauth_token_url", "https://id.twitch.tv/oauth2/token")
	v.SetDefault("oauth_scopes", []string{"chat_login", "user_follows_edit", "user_subscriptions"})
	v.SetDefault("helix_url", "https://api.twitch.tv/helix")
	v.SetDefault("validate_url", "https://id.twitch.tv/oauth2/validate")
	v.SetDefault("app_token", "")
	v.SetDefault("upstream_timeout", "10s")
	v.SetDefault("token_hash_salt", "")
	v.SetDefault("device_types", []string{"roku"})
	v.SetDefault("pairing_ttl", "24h")
	v.SetDefault("token_record_ttl", "10m")
	v.SetDefault("follow_refresh_interval", "1h")
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("otel_service_name", "twitched-link")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, env and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values viper cannot check by itself.
func (c *Config) Validate() error {
	switch c.StoreType {
	case StoreTypeRedis, StoreTypeMemory:
	default:
		return fmt.Errorf("unknown store_type %q", c.StoreType)
	}
	if c.RedisConnections < 1 {
		return fmt.Errorf("redis_connections must be at least 1, got %d", c.RedisConnections)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream_timeout must be positive, got %s", c.UpstreamTimeout)
	}
	if len(c.DeviceTypes) == 0 {
		return errors.New("device_types must not be empty")
	}
	return nil
}

// TrustPEM returns the configured trust anchor with escaped newlines unfolded,
// as environments often cannot carry multi-line values.
func (c *Config) TrustPEM() string {
	return strings.ReplaceAll(c.RedisTrust, `\n`, "\n")
}
