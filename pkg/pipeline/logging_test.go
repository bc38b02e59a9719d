package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel, format string) (*StructuredLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := &StructuredLogger{
		level:  level,
		format: format,
		output: buf,
	}
	return logger, buf
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"ERROR", ErrorLevel},
		{"Debug", DebugLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "INFO", InfoLevel.String())
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
	assert.Equal(t, "UNKNOWN", LogLevel(99).String())
}

func TestLoggerLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(WarnLevel, "text")

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")
	logger.Error("also kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[WARN] kept")
	assert.Contains(t, lines[1], "[ERROR] also kept")
}

func TestLoggerTextFormatSortsFields(t *testing.T) {
	logger, buf := newBufferLogger(DebugLevel, "text")

	logger.Info("stream started",
		String("track", "Umapyoi Densetsu"),
		Int("restarts", 0),
		Bool("live", false),
	)

	line := buf.String()
	assert.Contains(t, line, "[INFO] stream started")
	assert.Contains(t, line, "{live=false, restarts=0, track=Umapyoi Densetsu}")
}

func TestLoggerJSONFormat(t *testing.T) {
	logger, buf := newBufferLogger(DebugLevel, "json")

	logger.Error("encode failed", Error(errors.New("opus said no")), Int("frame", 42))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "encode failed", entry["message"])

	fields, ok := entry["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "opus said no", fields["error"])
	assert.Equal(t, float64(42), fields["frame"])
}

func TestLoggerWithCarriesFields(t *testing.T) {
	logger, buf := newBufferLogger(DebugLevel, "text")

	child := logger.With(String("guild_id", "guild-1"))
	child.Info("joined")

	assert.Contains(t, buf.String(), "guild_id=guild-1")

	// The parent stays clean.
	buf.Reset()
	logger.Info("plain")
	assert.NotContains(t, buf.String(), "guild_id")
}

func TestLoggerCallSiteFieldOverridesPersistent(t *testing.T) {
	logger, buf := newBufferLogger(DebugLevel, "text")

	child := logger.With(String("stage", "decode"))
	child.Info("progress", String("stage", "encode"))

	assert.Contains(t, buf.String(), "stage=encode")
	assert.NotContains(t, buf.String(), "stage=decode")
}

func TestFieldConstructors(t *testing.T) {
	tests := []struct {
		name     string
		field    Field
		key      string
		expected interface{}
	}{
		{"string", String("k", "v"), "k", "v"},
		{"int", Int("k", 7), "k", 7},
		{"int64", Int64("k", int64(1 << 40)), "k", int64(1 << 40)},
		{"float64", Float64("k", 1.5), "k", 1.5},
		{"bool", Bool("k", true), "k", true},
		{"duration", Duration("k", 1500 * time.Millisecond), "k", "1.5s"},
		{"error", Error(errors.New("boom")), "error", "boom"},
		{"any", Any("k", []int{1, 2}), "k", []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.field.Key)
			assert.Equal(t, tt.expected, tt.field.Value)
		})
	}
}

func TestDiscardLoggerDropsEverything(t *testing.T) {
	logger := DiscardLogger()

	// Nothing to observe beyond not panicking.
	logger.Debug("a")
	logger.Info("b")
	logger.Warn("c")
	logger.Error("d")
	logger.With(String("k", "v")).Error("e")
}
