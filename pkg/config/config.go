package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the Arbor wallet bot.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	Discord      DiscordConfig      `mapstructure:"discord"`
	Arbor        ArborConfig        `mapstructure:"arbor"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Sentry       SentryConfig       `mapstructure:"sentry"`
	Server       ServerConfig       `mapstructure:"server"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
}

// DiscordConfig configures the gateway session.
type DiscordConfig struct {
	APIToken string `mapstructure:"api_token" validate:"required"`
	// GuildID registers slash commands in a single guild, which applies instantly during development.
	GuildID string `mapstructure:"guild_id"`
}

// ArborConfig points at the external wallet service.
type ArborConfig struct {
	API     string        `mapstructure:"api" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Fork    string        `mapstructure:"fork" validate:"required"`
}

// DatabaseConfig describes the PostgreSQL connection.
type DatabaseConfig struct {
	User          string `mapstructure:"user" validate:"required"`
	Pass          string `mapstructure:"pass"`
	Host          string `mapstructure:"host" validate:"required"`
	Port          string `mapstructure:"port" validate:"required"`
	Name          string `mapstructure:"name" validate:"required"`
	SSLMode       string `mapstructure:"sslmode" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns  int    `mapstructure:"max_open_conns"`
	// MigrationsDir overrides the migrations embedded in the binary.
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// RedisConfig is optional; an empty Addr keeps conversation state and rate limits in memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
	File   string `mapstructure:"file"`
}

// SentryConfig enables error reporting.
type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Enabled true"`
}

// ServerConfig configures the metrics and health HTTP listener.
type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ConversationConfig bounds the direct message exchanges.
type ConversationConfig struct {
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
	StateTTL time.Duration `mapstructure:"state_ttl" validate:"gt=0"`
}

// RateLimitRule is a limit of requests per window, e.g. 5 per "1m".
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

// RateLimitConfig configures per-user command throttling.
type RateLimitConfig struct {
	Enabled   bool                     `mapstructure:"enabled"`
	Whitelist []string                 `mapstructure:"whitelist"`
	PerUser   RateLimitRule            `mapstructure:"per_user"`
	Commands  map[string]RateLimitRule `mapstructure:"commands"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Pass,
		c.Name,
		c.SSLMode,
	)
}
