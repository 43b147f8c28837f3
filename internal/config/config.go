// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration, for both the backend server
// and the engagement agent.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Gate     GateConfig     `mapstructure:"gate"`
	Contest  ContestConfig  `mapstructure:"contest"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	API      APIConfig      `mapstructure:"api"`
	Agent    AgentConfig    `mapstructure:"agent"`
}

// AgentConfig holds the engagement agent's identity and the matches it
// serves. An empty user_id means the agent runs as a guest with a
// local-only identity; Matches drives draft resumption at startup.
type AgentConfig struct {
	UserID  string   `mapstructure:"user_id"`
	Matches []string `mapstructure:"matches"`
}

// ServerConfig holds the backend HTTP server configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the local key-value store configuration used by the
// agent for guest identity, gate counters and drafts.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// GateConfig holds the share-gate configuration for the prediction game.
// AllowReset guards the debug-only counter reset path and must stay off
// in production deployments.
type GateConfig struct {
	RequiredShares int  `mapstructure:"required_shares"`
	AllowReset     bool `mapstructure:"allow_reset"`
}

// ContestConfig holds pay-to-vote contest configuration.
type ContestConfig struct {
	MinAmount int64 `mapstructure:"min_amount"`
	MaxAmount int64 `mapstructure:"max_amount"`
}

// PaymentConfig holds the external payment provider endpoints.
type PaymentConfig struct {
	CheckoutURL string        `mapstructure:"checkout_url"`
	FeedURL     string        `mapstructure:"feed_url"`
	Reason      string        `mapstructure:"reason"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// APIConfig holds the agent's connection to the backend callable endpoints.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// e.g., DATABASE_HOST, REDIS_URL, GATE_REQUIRED_SHARES
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "fanpulse")
	v.SetDefault("database.name", "fanpulse")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Local store defaults
	v.SetDefault("redis.url", "redis://localhost:6379/0")

	// Gate defaults
	v.SetDefault("gate.required_shares", 3)
	v.SetDefault("gate.allow_reset", false)

	// Contest defaults
	v.SetDefault("contest.min_amount", 100)
	v.SetDefault("contest.max_amount", 1000000)

	// Payment provider defaults
	v.SetDefault("payment.reason", "contest vote")
	v.SetDefault("payment.dial_timeout", "10s")

	// Agent API defaults
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", "15s")
}
