package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	_, err := LoadConfig()
	assert.ErrorIs(t, err, ErrDiscordTokenNotSet)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("COMMAND_PREFIX", "")
	t.Setenv("METRICS_DB_PATH", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "!", cfg.CommandPrefix)
	assert.Equal(t, "seiun.db", cfg.MetricsDBPath)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("COMMAND_PREFIX", "?")
	t.Setenv("METRICS_DB_PATH", "/tmp/metrics.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "token", cfg.DiscordToken)
	assert.Equal(t, "?", cfg.CommandPrefix)
	assert.Equal(t, "/tmp/metrics.db", cfg.MetricsDBPath)
}
