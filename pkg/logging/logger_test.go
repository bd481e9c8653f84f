package logging

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

func decodeEntries(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("test", "1.0.0", WarnLevel)
	logger.SetOutput(&buf)

	ctx := context.Background()
	logger.Debug(ctx, "debug", nil)
	logger.Info(ctx, "info", nil)
	logger.Warn(ctx, "warn", Fields{"k": "v"})

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, "v", entries[0].Fields["k"])
	assert.Equal(t, "test", entries[0].Service)
}

func TestStructuredLogger_ContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("test", "1.0.0", DebugLevel)
	logger.SetOutput(&buf)

	ctx := WithModelType(WithRequestID(context.Background(), "req-1"), "kapanewon")
	logger.Error(ctx, "[TEST_ERROR] failed", Fields{}, errors.New("boom"))

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].RequestID)
	assert.Equal(t, "kapanewon", entries[0].ModelType)
	assert.Equal(t, "boom", entries[0].Error)
	assert.NotEmpty(t, entries[0].File)
}

func TestContextLogger_MergesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("test", "1.0.0", DebugLevel)
	logger.SetOutput(&buf)

	cl := logger.WithFields(Fields{"component": "pipeline", "stage": "lag"})
	cl.Info(context.Background(), "msg", Fields{"stage": "rolling"})

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "pipeline", entries[0].Fields["component"])
	assert.Equal(t, "rolling", entries[0].Fields["stage"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("WARNING"))
	assert.Equal(t, ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

func TestRequestID_NilContext(t *testing.T) {
	assert.Equal(t, "", RequestID(nil))
}
