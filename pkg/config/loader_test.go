package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DISCORD_API_TOKEN", "token")

	cfg, v, err := Load()
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "test", cfg.AppEnv)
	assert.Equal(t, "token", cfg.Discord.APIToken)
	assert.Equal(t, "http://localhost/api/v1", cfg.Arbor.API)
	assert.Equal(t, "xch", cfg.Arbor.Fork)
	assert.Equal(t, "root", cfg.Database.User)
	assert.Equal(t, "", cfg.Database.Pass)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "arborbot", cfg.Database.Name)
	assert.Equal(t, 120*time.Second, cfg.Conversation.Timeout)
	assert.Equal(t, "", cfg.Redis.Addr)

	send, ok := cfg.RateLimit.Commands["send"]
	require.True(t, ok)
	assert.Equal(t, 3, send.Limit)
	assert.Equal(t, "1m", send.Window)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DISCORD_API_TOKEN", "token")
	t.Setenv("DATABASE_USER", "arbor")
	t.Setenv("DATABASE_PASS", "secret")
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("DATABASE_NAME", "wallets")
	t.Setenv("ARBOR_API", "https://arbor.example.com/api/v1")
	t.Setenv("CONVERSATION_TIMEOUT", "30s")

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "arbor", cfg.Database.User)
	assert.Equal(t, "secret", cfg.Database.Pass)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "wallets", cfg.Database.Name)
	assert.Equal(t, "https://arbor.example.com/api/v1", cfg.Arbor.API)
	assert.Equal(t, 30*time.Second, cfg.Conversation.Timeout)
	assert.Equal(t,
		"host=db.internal port=5432 user=arbor password=secret dbname=wallets sslmode=disable",
		cfg.Database.DSN(),
	)
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DISCORD_API_TOKEN", "")

	_, _, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APIToken")
}

func TestLoad_InvalidArborURL(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DISCORD_API_TOKEN", "token")
	t.Setenv("ARBOR_API", "not a url")

	_, _, err := Load()
	require.Error(t, err)
}
