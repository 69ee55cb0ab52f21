package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/config"
)

func TestNew(t *testing.T) {
	log, err := New(config.LogConfig{Level: "debug", Format: "console", OutputPath: "stdout"}, "medication-api")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1))

	_, err = New(config.LogConfig{Level: "loud", Format: "json", OutputPath: "stdout"}, "medication-api")
	assert.Error(t, err)
}

func TestNew_JSONCarriesServiceAndTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(config.LogConfig{Level: "info", Format: "json", OutputPath: path}, "medication-web")
	require.NoError(t, err)
	log.Info("started")
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, "medication-web", entry["service"])
	assert.Equal(t, "started", entry["msg"])
	assert.Contains(t, entry, "timestamp")
}
