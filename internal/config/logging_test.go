package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("chunk processed", "units", 3)

	assert.Contains(t, stderr.String(), "chunk processed")
	assert.Contains(t, stderr.String(), "units=3")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	assert.Equal(t, "chunk processed", entry["msg"])
	assert.Equal(t, float64(3), entry["units"])
}

func TestSetupLoggerWithWriters_LevelFilter(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)

	logger.Info("below threshold")
	logger.Warn("chunk rejected")

	assert.NotContains(t, stderr.String(), "below threshold")
	assert.Contains(t, stderr.String(), "chunk rejected")
	assert.Equal(t, 1, strings.Count(file.String(), "\n"))
}
