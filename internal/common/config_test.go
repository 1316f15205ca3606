package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "macroscope.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "service", cfg.Snapshot.Engine)
	assert.Equal(t, "http://localhost:3000", cfg.Snapshot.ServiceURL)
	assert.Equal(t, 10, cfg.Snapshot.StartupAttempts)
	assert.Equal(t, time.Second, cfg.Snapshot.StartupPoll)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, LLMProviderGemini, cfg.LLM.DefaultProvider)
	assert.Equal(t, 30, cfg.Analysis.WindowDays)
	assert.Equal(t, "macro", cfg.Analysis.Topic)
	assert.False(t, cfg.Schedule.Enabled)
}

func TestLoadFromFilesMergesOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
environment = "production"

[server]
port = 9090

[snapshot]
engine = "chromedp"

[analysis]
window_days = 14
`)

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "chromedp", cfg.Snapshot.Engine)
	assert.Equal(t, 14, cfg.Analysis.WindowDays)
	// Untouched sections keep defaults
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, "./datasources.txt", cfg.Sources.File)
}

func TestLoadFromFilesLaterFileWins(t *testing.T) {
	first := writeConfigFile(t, "[server]\nport = 9090\n")
	dir := t.TempDir()
	second := filepath.Join(dir, "override.toml")
	require.NoError(t, os.WriteFile(second, []byte("[server]\nport = 7070\n"), 0644))

	cfg, err := LoadFromFiles(first, second)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/macroscope.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFromFilesRejectsInvalidEngine(t *testing.T) {
	path := writeConfigFile(t, "[snapshot]\nengine = \"selenium\"\n")

	_, err := LoadFromFiles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MACROSCOPE_ENV", "production")
	t.Setenv("MACROSCOPE_SERVER_PORT", "6060")
	t.Setenv("MACROSCOPE_SNAPSHOT_ENGINE", "chromedp")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 6060, cfg.Server.Port)
	assert.Equal(t, "chromedp", cfg.Snapshot.Engine)
	assert.True(t, cfg.IsProduction())
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()

	ApplyFlagOverrides(cfg, FlagOverrides{
		Port:        5555,
		Host:        "0.0.0.0",
		SourcesFile: "./custom.txt",
		WindowDays:  7,
	})

	assert.Equal(t, 5555, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "./custom.txt", cfg.Sources.File)
	assert.Equal(t, 7, cfg.Analysis.WindowDays)

	// Zero values leave config untouched
	ApplyFlagOverrides(cfg, FlagOverrides{})
	assert.Equal(t, 5555, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	key, err := ResolveAPIKey("gemini_api_key", "config-key")
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)

	t.Setenv("MACROSCOPE_GEMINI_API_KEY", "scoped-key")
	key, err = ResolveAPIKey("gemini_api_key", "config-key")
	require.NoError(t, err)
	assert.Equal(t, "scoped-key", key)

	key, err = ResolveAPIKey("anthropic_api_key", "config-key")
	require.NoError(t, err)
	assert.Equal(t, "config-key", key)

	_, err = ResolveAPIKey("anthropic_api_key", "")
	assert.Error(t, err)
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 6 * * *"))
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.Error(t, ValidateSchedule("0 6 * *"))
	assert.Error(t, ValidateSchedule("not a cron"))
}
