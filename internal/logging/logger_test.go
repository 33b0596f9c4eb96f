package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
		level  string
	}{
		{"JSON Info", "json", "info"},
		{"JSON Debug", "json", "debug"},
		{"Console Warn", "console", "warn"},
		{"Text Error", "text", "error"},
		{"Defaults", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(Config{
				Format: tt.format,
				Level:  tt.level,
				Output: zapcore.AddSync(&buf),
			})
			require.NoError(t, err)
			logger.Error("heartbeat")
			require.Contains(t, buf.String(), "heartbeat")
		})
	}
}

func TestNewLoggerInvalid(t *testing.T) {
	_, err := NewLogger(Config{Format: "json", Level: "invalid"})
	require.Error(t, err)

	_, err = NewLogger(Config{Format: "xml", Level: "info"})
	require.Error(t, err)
}

func TestJSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Format: "json", Level: "info", Output: zapcore.AddSync(&buf)})
	require.NoError(t, err)

	logger.Info("filter loaded", zap.Uint64("size_in_bits", 193960), zap.Uint64("k", 5))
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "filter loaded", entry["msg"])
	require.Equal(t, "info", entry["level"])
	require.EqualValues(t, 193960, entry["size_in_bits"])
	require.Contains(t, entry, "timestamp")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestDiscardLogger(t *testing.T) {
	DiscardLogger().Info("nothing")
}
