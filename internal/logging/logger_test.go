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

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var records []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}

	return records
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestStructuredLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})
	ctx := context.Background()

	scoped := logger.WithComponent("scanner").With("document", "index.html")
	scoped.Info(ctx, "Merged bundle written", "output", "all.js")
	scoped.Warn(ctx, errors.New("missing"), "Skipping merge source", "file", "b.js")

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)

	assert.Equal(t, "INFO", records[0]["level"])
	assert.Equal(t, "Merged bundle written", records[0]["msg"])
	assert.Equal(t, "scanner", records[0]["component"])
	assert.Equal(t, "index.html", records[0]["document"])
	assert.Equal(t, "all.js", records[0]["output"])

	assert.Equal(t, "WARN", records[1]["level"])
	assert.Equal(t, "missing", records[1]["error"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Format: "json", Output: &buf})
	ctx := context.Background()

	logger.Debug(ctx, "hidden")
	logger.Info(ctx, "hidden")
	logger.Warn(ctx, nil, "shown")
	logger.Error(ctx, nil, "shown")

	records := decodeLines(t, &buf)
	assert.Len(t, records, 2)
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.Debug(ctx, "x")
		logger.Info(ctx, "x")
		logger.Warn(ctx, nil, "x")
		logger.Error(ctx, errors.New("x"), "x")
	})
}

func TestPerfLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	op := StartOperation(logger, "process")
	op.End(context.Background(), "document", "a.html")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "process", records[0]["operation"])
	assert.Equal(t, "a.html", records[0]["document"])
	assert.Contains(t, records[0], "duration_ms")
}
