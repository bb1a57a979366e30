package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: "warn", Output: &buf})

	Info("hidden")
	Warn("shown", "orders", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, float64(2), entry["orders"])
}

func TestLogErrorAddsErrorAttr(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: "debug", Format: "text", Output: &buf})

	LogError(context.Background(), errors.New("boom"), "submit failed")
	LogError(context.Background(), nil, "never logged")

	assert.Contains(t, buf.String(), "error=boom")
	assert.NotContains(t, buf.String(), "never logged")
}
