package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(cfg LogConfig) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg.Output = &buf
	return NewLogger(cfg), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewLogger(t *testing.T) {
	t.Run("text format", func(t *testing.T) {
		logger, buf := newBufferedLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatText})
		logger.Info("interval stored", "resource", 7)

		assert.Contains(t, buf.String(), "interval stored")
		assert.Contains(t, buf.String(), "resource=7")
	})

	t.Run("json format", func(t *testing.T) {
		logger, buf := newBufferedLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatJSON})
		logger.Info("interval stored", "resource", float64(7))

		entry := decodeLine(t, buf)
		assert.Equal(t, "interval stored", entry["msg"])
		assert.Equal(t, float64(7), entry["resource"])
	})

	t.Run("level filters lower records", func(t *testing.T) {
		logger, buf := newBufferedLogger(LogConfig{Level: LogLevelWarn, Format: LogFormatText})
		logger.Debug("dropped debug")
		logger.Info("dropped info")
		logger.Warn("kept warn")
		logger.Error("kept error")

		out := buf.String()
		assert.NotContains(t, out, "dropped debug")
		assert.NotContains(t, out, "dropped info")
		assert.Contains(t, out, "kept warn")
		assert.Contains(t, out, "kept error")
	})

	t.Run("stamps service identity", func(t *testing.T) {
		logger, buf := newBufferedLogger(LogConfig{
			Level:          LogLevelInfo,
			Format:         LogFormatJSON,
			ServiceName:    "rcalendar",
			ServiceVersion: "1.2.3",
		})
		logger.Info("boot")

		entry := decodeLine(t, buf)
		assert.Equal(t, "rcalendar", entry["service"])
		assert.Equal(t, "1.2.3", entry["version"])
	})

	t.Run("stamps context-bound ids", func(t *testing.T) {
		logger, buf := newBufferedLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatJSON})

		ctx := WithCorrelationID(context.Background(), "corr-123")
		ctx = WithRequestID(ctx, "req-456")
		logger.InfoContext(ctx, "request")

		entry := decodeLine(t, buf)
		assert.Equal(t, "corr-123", entry[CorrelationIDKey])
		assert.Equal(t, "req-456", entry[RequestIDKey])
	})

	t.Run("bare context stays unstamped", func(t *testing.T) {
		logger, buf := newBufferedLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatJSON})
		logger.InfoContext(context.Background(), "request")

		entry := decodeLine(t, buf)
		assert.NotContains(t, entry, CorrelationIDKey)
		assert.NotContains(t, entry, RequestIDKey)
	})
}

func TestContextIDs_MintWhenEmpty(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "")
	assert.NotEmpty(t, CorrelationIDFromContext(ctx))

	ctx = WithRequestID(ctx, "")
	assert.NotEmpty(t, RequestIDFromContext(ctx))

	// An unset context yields empty ids rather than panicking.
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestLogConfigPresets(t *testing.T) {
	dev := DefaultLogConfig()
	assert.Equal(t, LogLevelInfo, dev.Level)
	assert.Equal(t, LogFormatText, dev.Format)
	assert.Equal(t, "rcalendar", dev.ServiceName)

	prod := ProductionLogConfig()
	assert.Equal(t, LogFormatJSON, prod.Format)
	assert.True(t, prod.AddSource)
	assert.Equal(t, "rcalendar", prod.ServiceName)
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		in   LogLevel
		want slog.Level
	}{
		{LogLevelDebug, slog.LevelDebug},
		{LogLevelInfo, slog.LevelInfo},
		{LogLevelWarn, slog.LevelWarn},
		{LogLevelError, slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseSlogLevel(tt.in), string(tt.in))
	}
}

func TestAttributeHandler_DerivedHandlers(t *testing.T) {
	logger, buf := newBufferedLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatJSON, ServiceName: "rcalendar"})

	// With carries both the extra attribute and the service stamp.
	logger.With("component", "outbox").Info("relay tick")

	entry := decodeLine(t, buf)
	assert.Equal(t, "outbox", entry["component"])
	assert.Equal(t, "rcalendar", entry["service"])

	// Level gating still defers to the wrapped handler.
	gated, gatedBuf := newBufferedLogger(LogConfig{Level: LogLevelError, Format: LogFormatJSON})
	gated.WithGroup("relay").Info("suppressed")
	assert.Zero(t, gatedBuf.Len())
}
