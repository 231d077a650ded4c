package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeConfig_Defaults(t *testing.T) {
	clearTestEnvVars(t)
	chdir(t, t.TempDir())

	config, err := InitializeConfig("")
	require.NoError(t, err)

	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)
	assert.False(t, config.Browser.Headless)
	assert.Equal(t, "https://app.ynab.com/users/budgets", config.Browser.BudgetsURL)
	assert.Equal(t, 5000, config.Browser.ElementTimeoutMS)
	assert.Equal(t, 60000, config.Browser.NavigationTimeoutMS)
	assert.Equal(t, 200, config.Browser.MaxCandidateLinks)
	assert.Equal(t, ",", config.Normalizer.Delimiter)
	assert.Equal(t, ',', config.Delimiter())
	assert.Equal(t, 20000, config.Normalizer.SnippetLimit)
	assert.Equal(t, []string{"Category Group", "Category", "group"}, config.Normalizer.Synonyms.Group)
	assert.Equal(t, []string{"Amount", "Budget", "amount"}, config.Normalizer.Synonyms.Amount)
	assert.True(t, config.Diagnostics.Enabled)
	assert.Equal(t, 3000, config.Server.Port)
	assert.Equal(t, 10, config.Server.MaxUploadMB)
	assert.True(t, config.History.Enabled)
	assert.Equal(t, "data/history.db", config.History.DBPath)
	assert.Equal(t, 800, config.Sync.RetryPauseMS)
}

func TestInitializeConfig_EnvironmentVariables(t *testing.T) {
	clearTestEnvVars(t)
	chdir(t, t.TempDir())

	testEnvVars := map[string]string{
		"BUDGETSYNC_LOG_LEVEL":                  "debug",
		"BUDGETSYNC_LOG_FORMAT":                 "json",
		"BUDGETSYNC_BROWSER_HEADLESS":           "true",
		"BUDGETSYNC_BROWSER_ELEMENT_TIMEOUT_MS": "2500",
		"BUDGETSYNC_NORMALIZER_DELIMITER":       ";",
		"BUDGETSYNC_SERVER_PORT":                "8080",
		"BUDGETSYNC_HISTORY_ENABLED":            "false",
	}
	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	config, err := InitializeConfig("")
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.True(t, config.Browser.Headless)
	assert.Equal(t, 2500, config.Browser.ElementTimeoutMS)
	assert.Equal(t, ';', config.Delimiter())
	assert.Equal(t, 8080, config.Server.Port)
	assert.False(t, config.History.Enabled)
}

func TestInitializeConfig_ConfigFile(t *testing.T) {
	clearTestEnvVars(t)
	tempDir := t.TempDir()
	chdir(t, tempDir)

	configContent := `
log:
  level: "warn"
normalizer:
  delimiter: ";"
  synonyms:
    group: ["Gruppe"]
    category: ["Kategorie"]
    amount: ["Betrag"]
sync:
  retry_pause_ms: 1500
selectors:
  file: "selectors.yaml"
`
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(configContent), 0644))

	config, err := InitializeConfig("")
	require.NoError(t, err)

	assert.Equal(t, "warn", config.Log.Level)
	assert.Equal(t, ";", config.Normalizer.Delimiter)
	assert.Equal(t, []string{"Gruppe"}, config.Normalizer.Synonyms.Group)
	assert.Equal(t, []string{"Betrag"}, config.Normalizer.Synonyms.Amount)
	assert.Equal(t, 1500, config.Sync.RetryPauseMS)
	assert.Equal(t, "selectors.yaml", config.Selectors.File)
	// untouched sections keep their defaults
	assert.Equal(t, 3000, config.Server.Port)
}

func TestInitializeConfig_ExplicitFile(t *testing.T) {
	clearTestEnvVars(t)
	chdir(t, t.TempDir())

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0644))

	config, err := InitializeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, config.Server.Port)

	_, err = InitializeConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInitializeConfig_HierarchicalPrecedence(t *testing.T) {
	clearTestEnvVars(t)
	tempDir := t.TempDir()
	chdir(t, tempDir)

	configContent := `
log:
  level: "warn"
server:
  port: 4000
  max_upload_mb: 20
`
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(configContent), 0644))
	t.Setenv("BUDGETSYNC_LOG_LEVEL", "error")
	t.Setenv("BUDGETSYNC_SERVER_PORT", "4500")

	config, err := InitializeConfig("")
	require.NoError(t, err)

	assert.Equal(t, "error", config.Log.Level)     // env var wins
	assert.Equal(t, 4500, config.Server.Port)      // env var wins
	assert.Equal(t, 20, config.Server.MaxUploadMB) // config file value
}

func TestValidateConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name         string
		modifyConfig func(*Config)
		expectError  string
	}{
		{"invalid log level", func(c *Config) { c.Log.Level = "invalid" }, "invalid log level"},
		{"invalid log format", func(c *Config) { c.Log.Format = "xml" }, "invalid log format"},
		{"multi-character delimiter", func(c *Config) { c.Normalizer.Delimiter = "ab" }, "single character"},
		{"empty delimiter", func(c *Config) { c.Normalizer.Delimiter = "" }, "single character"},
		{"zero snippet limit", func(c *Config) { c.Normalizer.SnippetLimit = 0 }, "snippet_limit"},
		{"no amount synonyms", func(c *Config) { c.Normalizer.Synonyms.Amount = nil }, "normalizer.synonyms"},
		{"zero element timeout", func(c *Config) { c.Browser.ElementTimeoutMS = 0 }, "browser timeouts"},
		{"missing listing url", func(c *Config) { c.Browser.BudgetsURL = "" }, "budgets_url"},
		{"negative pause", func(c *Config) { c.Sync.RowPauseMS = -1 }, "sync.row_pause_ms"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"upload limit too large", func(c *Config) { c.Server.MaxUploadMB = 1024 }, "server.max_upload_mb"},
		{"history without path", func(c *Config) { c.History.DBPath = "" }, "history.db_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			require.NoError(t, validateConfig(config))

			tt.modifyConfig(config)
			err := validateConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestValidateConfig_HistoryDisabledNeedsNoPath(t *testing.T) {
	config := Default()
	config.History.Enabled = false
	config.History.DBPath = ""
	assert.NoError(t, validateConfig(config))
}

func TestMillis(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, Millis(1500))
	assert.Equal(t, time.Duration(0), Millis(0))
}

func TestLoadEnv(t *testing.T) {
	clearTestEnvVars(t)
	dir := t.TempDir()
	chdir(t, dir)

	file, err := LoadEnv()
	require.NoError(t, err)
	assert.Empty(t, file)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BUDGETSYNC_LOG_LEVEL=debug\n"), 0600))
	t.Setenv("BUDGETSYNC_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("BUDGETSYNC_LOG_LEVEL"))

	file, err = LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ".env", file)
	assert.Equal(t, "debug", os.Getenv("BUDGETSYNC_LOG_LEVEL"))
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(originalDir)
	})
}

// clearTestEnvVars unsets every BUDGETSYNC_ variable for the duration of the test.
func clearTestEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix+"_") {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
	t.Setenv("HOME", t.TempDir())
}
