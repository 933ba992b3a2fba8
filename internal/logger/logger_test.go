package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/webhookd/internal/logger"
)

func TestNewSystemLogger_WritesJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var mirror bytes.Buffer

	log, closer, err := logger.NewSystemLogger(dir, slog.LevelInfo, &mirror)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("webhook created", "subscription_id", "42")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "system.log"))
	require.NoError(t, err)
	assert.Equal(t, string(data), mirror.String())

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "webhook created", record["msg"])
	assert.Equal(t, "42", record["subscription_id"])
	assert.Equal(t, "webhookd", record["service"])
	assert.NotContains(t, string(data), "hidden")
}

func TestNewSystemLogger_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0600))

	_, _, err := logger.NewSystemLogger(filepath.Join(file, "logs"), slog.LevelInfo, nil)
	assert.Error(t, err)
}

func TestTee(t *testing.T) {
	var primary, secondary bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&primary, &slog.HandlerOptions{Level: slog.LevelInfo}))
	extra := slog.NewTextHandler(&secondary, &slog.HandlerOptions{Level: slog.LevelWarn})

	log := logger.Tee(base, extra).With("subscription_id", "7")
	log.Info("delivered")
	log.Warn("rejected", "reason", "signature mismatch")

	assert.Contains(t, primary.String(), "delivered")
	assert.Contains(t, primary.String(), "rejected")
	assert.NotContains(t, secondary.String(), "delivered")
	assert.Contains(t, secondary.String(), "subscription_id=7")
	assert.Contains(t, secondary.String(), `reason="signature mismatch"`)
}

func TestTee_NilHandler(t *testing.T) {
	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, base, logger.Tee(base, nil))
}
