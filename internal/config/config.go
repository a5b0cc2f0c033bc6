package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int     `mapstructure:"port"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateBurst      int     `mapstructure:"rate_burst"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig configures the optional outcome event broker. An empty
// URL disables publication.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	// Enabled gates the admin API behind bearer tokens.
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
}

type ProcessorConfig struct {
	BatchSize          int           `mapstructure:"batch_size"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	BackoffBase        time.Duration `mapstructure:"backoff_base"`
	SendTimeout        time.Duration `mapstructure:"send_timeout"`
	GatewayConcurrency int           `mapstructure:"gateway_concurrency"`
	SendsPerSecond     float64       `mapstructure:"sends_per_second"`
	QuotaDeferral      time.Duration `mapstructure:"quota_deferral"`
	// Schedule is an optional cron expression; empty means one run
	// per invocation.
	Schedule string `mapstructure:"schedule"`
}

// GatewayConfig holds settings shared by every provider adapter.
type GatewayConfig struct {
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	DefaultCountryCode string        `mapstructure:"default_country_code"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// Load reads config.yaml (when present) and overlays NOTIFY_* env
// variables, so containers can run without a config file at all.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("NOTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.JWT.Enabled && config.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required when jwt.enabled is true")
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.timeout_seconds", 30)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "notify_engine")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("jwt.enabled", false)

	v.SetDefault("processor.batch_size", 50)
	v.SetDefault("processor.max_attempts", 3)
	v.SetDefault("processor.backoff_base", 2*time.Minute)
	v.SetDefault("processor.send_timeout", 15*time.Second)
	v.SetDefault("processor.gateway_concurrency", 4)
	v.SetDefault("processor.sends_per_second", 10.0)
	v.SetDefault("processor.quota_deferral", time.Hour)

	v.SetDefault("gateway.connect_timeout", 5*time.Second)
	v.SetDefault("gateway.request_timeout", 15*time.Second)
	v.SetDefault("gateway.default_country_code", "1")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", false)
}
