package logging

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "logs",
			want:    filepath.Join("logs", "tollsim.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./logs",
			want:    filepath.Join(".", "logs", "tollsim.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "tollsim"),
			want:    filepath.Join("/var", "log", "tollsim", "tollsim.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, sessionStart))
		})
	}
}

func TestNewZerolog_Levels(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			l := NewZerolog(&bytes.Buffer{}, tt.input)
			assert.Equal(t, tt.want, l.GetLevel())
		})
	}
}

func TestNewZerolog_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, "info")

	l.Debug().Msg("hidden")
	l.Info().Str("backend", "sqlite").Msg("initialized")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"backend":"sqlite"`)
	assert.Contains(t, out, `"message":"initialized"`)
	assert.Contains(t, out, `"time":`)
}
