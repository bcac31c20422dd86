package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("BRIDGE_TIMEOUT", "")
	t.Setenv("EVENTS_BACKEND", "")

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.App.Addr)
	assert.Equal(t, 10*time.Second, cfg.Bridge.Timeout)
	assert.Equal(t, "none", cfg.Events.Backend)
	assert.Equal(t, 40, cfg.Limits.EventBurst)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BRIDGE_TIMEOUT", "250ms")
	t.Setenv("EVENT_RATE", "2.5")
	t.Setenv("EVENT_BURST", "not-a-number")
	t.Setenv("GO_ENV", "production")
	t.Setenv("OTEL_ENABLED", "true")

	cfg := FromEnv()
	assert.Equal(t, 250*time.Millisecond, cfg.Bridge.Timeout)
	assert.Equal(t, 2.5, cfg.Limits.EventRate)
	assert.Equal(t, 40, cfg.Limits.EventBurst)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Tracing.Enabled)
}
