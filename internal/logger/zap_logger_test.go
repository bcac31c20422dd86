package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := New(zap.New(core))

	l.Info("Hub", "client registered", map[string]interface{}{"conn_id": "c1"})
	l.Error("Router", "event failed", map[string]interface{}{"error": errors.New("boom")})
	l.Debug("Hub", "nil details", nil)

	entries := logs.All()
	require.Len(t, entries, 3)

	first := entries[0].ContextMap()
	assert.Equal(t, "Hub", first["module"])
	assert.Equal(t, map[string]interface{}{"conn_id": "c1"}, first["details"])

	second := entries[1].ContextMap()
	assert.Equal(t, "boom", second["error"])

	assert.Equal(t, map[string]interface{}{}, entries[2].ContextMap()["details"])
}
