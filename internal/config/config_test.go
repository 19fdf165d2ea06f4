package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Assignment.CutoffHour)
	assert.Equal(t, 5, cfg.Assignment.AgentCapacity)
	assert.Equal(t, 5*time.Minute, cfg.Assignment.OfferTTL())
	assert.Equal(t, 5*time.Minute, cfg.Assignment.EditWindow())
	assert.Equal(t, "* * * * *", cfg.Assignment.SweepCronSpec)
}

func TestLoadRejectsBadCutoffHour(t *testing.T) {
	t.Setenv("ASSIGN_CUTOFF_HOUR", "24")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ASSIGN_OFFER_TTL_SECONDS", "120")
	t.Setenv("AGENT_CAPACITY", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Assignment.OfferTTL())
	assert.Equal(t, 3, cfg.Assignment.AgentCapacity)
}

func TestAppAddr(t *testing.T) {
	app := AppConfig{Host: "127.0.0.1", Port: "9090"}
	assert.Equal(t, "127.0.0.1:9090", app.Addr())
}
