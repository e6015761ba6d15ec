package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/touchpoints/internal/report"
)

func TestLoadConfigFlagOverrides(t *testing.T) {
	saved := rootFlags
	t.Cleanup(func() { rootFlags = saved })

	rootFlags.envFile = filepath.Join(t.TempDir(), "missing.env")
	rootFlags.input = "in.csv"
	rootFlags.output = "out.json"
	rootFlags.logLevel = "debug"

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "in.csv", cfg.InputPath)
	assert.Equal(t, "out.json", cfg.OutputPath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestReportOptions(t *testing.T) {
	assert.Equal(t, report.Options{Mode: report.Markdown, Timelines: true}, reportOptions(true, true))
	assert.Equal(t, report.Options{Mode: report.ASCII}, reportOptions(false, false))
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"run", "analyze", "serve"} {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}
}
