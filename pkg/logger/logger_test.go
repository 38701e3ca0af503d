package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithLevel(t *testing.T) {
	tests := []struct {
		env   string
		level string
		want  zerolog.Level
	}{
		{"production", "debug", zerolog.DebugLevel},
		{"production", "", zerolog.InfoLevel},
		{"production", "nonsense", zerolog.InfoLevel},
		{"test", "", zerolog.WarnLevel},
		{"test", "error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			l := NewWithLevel("kitchen-service", tt.env, tt.level)
			assert.Equal(t, tt.want, l.GetLevel())
		})
	}
}

func TestWithCell(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{Logger: zerolog.New(&buf)}

	l.WithCell("Kitchen Production", 4, 2).WithError(errors.New("boom")).Info().Msg("edit")

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "Kitchen Production", out["sheet"])
	assert.Equal(t, float64(4), out["row"])
	assert.Equal(t, float64(2), out["column"])
	assert.Equal(t, "boom", out["error"])
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsole("kitchenctl", "", &buf)
	assert.Equal(t, zerolog.WarnLevel, l.GetLevel())

	l.Info().Msg("hidden")
	l.Warn().Msg("in-memory store")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "in-memory store")
}
