package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("debug not logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug message")
		assert.Zero(t, buf.Len())
	})

	t.Run("info logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Info("info message")
		entry := decodeEntry(t, &buf)
		assert.Equal(t, "info", entry["level"])
		assert.Equal(t, "info message", entry["msg"])
	})

	t.Run("warn and error logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Warn("warn message")
		assert.NotZero(t, buf.Len())

		buf.Reset()
		logger.Errorf("error %d", 42)
		entry := decodeEntry(t, &buf)
		assert.Equal(t, "error 42", entry["msg"])
	})
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithFields(map[string]interface{}{
		"client_type": "mobile",
		"count":       3,
	}).WithField("view", "dashboard").Info("served")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "mobile", entry["client_type"])
	assert.Equal(t, float64(3), entry["count"])
	assert.Equal(t, "dashboard", entry["view"])
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(errors.New("boom")).Error("failed")
	entry := decodeEntry(t, &buf)
	assert.Equal(t, "boom", entry["error"])

	assert.Same(t, logger, logger.WithError(nil))
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithFormat(DebugLevel, TextFormat, &buf)

	logger.WithField("key", "value").Debug("hello")

	out := buf.String()
	assert.Contains(t, out, "level=debug")
	assert.Contains(t, out, "key=value")
	assert.True(t, strings.Contains(out, "msg=hello"))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"warn", WarnLevel},
		{"error", ErrorLevel},
		{"nonsense", InfoLevel},
		{"", InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.in))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "INFO", InfoLevel.String())
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithLogger(ctx, logger)

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Same(t, logger, GetLogger(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
	assert.NotNil(t, GetLogger(context.Background()))

	FromContext(ctx).Info("tagged")
	entry := decodeEntry(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
}
