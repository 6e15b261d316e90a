// Package config provides configuration loading and validation utilities.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var defaults = map[string]any{
	"discord.api_token": "",
	"discord.guild_id":  "",

	"arbor.api":     "http://localhost/api/v1",
	"arbor.timeout": "30s",
	"arbor.fork":    "xch",

	"database.user":           "root",
	"database.pass":           "",
	"database.host":           "localhost",
	"database.port":           "5432",
	"database.name":           "arborbot",
	"database.sslmode":        "disable",
	"database.max_open_conns": 10,
	"database.migrations_dir": "",

	"redis.addr":      "",
	"redis.password":  "",
	"redis.db":        0,
	"redis.pool_size": 10,

	"logger.level":  "info",
	"logger.format": "json",
	"logger.file":   "",

	"sentry.enabled": false,
	"sentry.dsn":     "",

	"server.port":             ":9090",
	"server.shutdown_timeout": "10s",

	"conversation.timeout":   "120s",
	"conversation.state_ttl": "10m",

	"rate_limit.enabled":                 true,
	"rate_limit.whitelist":               []string{},
	"rate_limit.per_user.limit":          20,
	"rate_limit.per_user.window":         "1m",
	"rate_limit.commands.send.limit":     3,
	"rate_limit.commands.send.window":    "1m",
	"rate_limit.commands.create.limit":   3,
	"rate_limit.commands.create.window":  "10m",
	"rate_limit.commands.recover.limit":  3,
	"rate_limit.commands.recover.window": "10m",
}

// Load reads configuration from an optional YAML file and environment variables, validates it,
// and returns the resulting Config together with the viper instance for hot reloading.
//
// Keys map to environment variables by replacing dots with underscores, so database.user is
// read from DATABASE_USER and discord.api_token from DISCORD_API_TOKEN.
func Load() (*Config, *viper.Viper, error) {
	// .env files are optional; deployments usually inject the environment directly.
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

// Watch re-decodes the configuration whenever the backing YAML file changes and hands the
// validated result to onChange. Invalid edits are reported through onError and ignored.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	if v == nil || onChange == nil || v.ConfigFileUsed() == "" {
		return
	}
	if _, err := os.Stat(v.ConfigFileUsed()); err != nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}

		onChange(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
