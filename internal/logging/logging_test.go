package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("loud"))
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	loc := time.FixedZone("WIB", 7*3600)
	log := NewWithWriter(&buf, "info", loc)

	log.Debug("hidden")
	log.Info("tracing_configured", zap.Bool("tracing_enabled", false))
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "tracing_configured", entry["msg"])
	assert.Equal(t, false, entry["tracing_enabled"])

	ts, err := time.Parse(time.RFC3339Nano, entry["ts"].(string))
	require.NoError(t, err)
	_, offset := ts.Zone()
	assert.Equal(t, 7*3600, offset)
}

func TestCronSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewCronSink(zap.New(core))
	ctx := context.Background()

	sink.Info(ctx, "daily-reports-fetch", "Retrying in 300 seconds...", map[string]any{"nextRetryIn": int64(300000)})
	sink.Error(ctx, "daily-reports-fetch", "Failed attempt 1 of 3", map[string]any{
		"attempt":    1,
		"maxRetries": 3,
		"error":      "x",
	})

	require.Equal(t, 2, logs.Len())

	info := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, info.Level)
	assert.Equal(t, "Retrying in 300 seconds...", info.Message)
	fields := info.ContextMap()
	assert.Equal(t, "cron", fields["component"])
	assert.Equal(t, "daily-reports-fetch", fields["job"])
	assert.Equal(t, int64(300000), fields["nextRetryIn"])

	failed := logs.FilterMessage("Failed attempt 1 of 3").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
	assert.Equal(t, int64(1), failed[0].ContextMap()["attempt"])
	assert.Equal(t, "x", failed[0].ContextMap()["error"])
}
