package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ACTION_TIMEOUT", "")
	t.Setenv("CONSECUTIVE_FAILURE_LIMIT", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.ConsecutiveFailureLimit)
	assert.Equal(t, 30*time.Second, cfg.ActionTimeout)
	assert.Equal(t, 50, cfg.ResolverPageSize)
	assert.Equal(t, "@every 5m", cfg.SweepSchedule)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SKIP_AUTH", "true")
	t.Setenv("ACTION_TIMEOUT", "5s")
	t.Setenv("RESOLVER_PAGE_SIZE", "10")
	t.Setenv("DEFAULT_TIMEZONE", "Europe/Berlin")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.SkipAuth)
	assert.Equal(t, 5*time.Second, cfg.ActionTimeout)
	assert.Equal(t, 10, cfg.ResolverPageSize)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{DefaultTimezone: "Mars/Olympus"}
	assert.Equal(t, time.UTC, cfg.Location())
}
