package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CRM_API_TOKEN", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://api.hubapi.com", cfg.CRMBaseURL)
	assert.Equal(t, "customer_journeys.json", cfg.InputPath)
	assert.Equal(t, "customer_touchpoints.json", cfg.OutputPath)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 10*time.Second, cfg.RetryBackoff)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.Equal(t, 30, cfg.MaxEngagements)
	assert.Equal(t, 10, cfg.MaxDeals)
	assert.Equal(t, 200, cfg.DetailMaxLen)
	assert.Equal(t, "8080", cfg.Port)
	assert.ErrorIs(t, cfg.RequireToken(), ErrNoToken)
}

func TestLoadEnvFileAndOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CRM_API_TOKEN=file-token\nDETAIL_MAX_LEN=120\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("DETAIL_MAX_LEN", "80")
	t.Setenv("RETRY_BACKOFF", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.CRMToken)
	assert.Equal(t, 80, cfg.DetailMaxLen, "environment wins over the file")
	assert.Equal(t, 2*time.Second, cfg.RetryBackoff)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.NoError(t, cfg.RequireToken())
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "WARN"}.Level())
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "loud"}.Level())
}
