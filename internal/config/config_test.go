// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config home at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TAXEASE_HOME", dir)
	t.Setenv("TAXEASE_API_URL", "")
	t.Setenv("VITE_API_URL", "")
	t.Setenv("TAXEASE_TIMEOUT", "")
	t.Setenv("TAXEASE_LOG_LEVEL", "")
	return dir
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.API.Timeout())
	assert.Equal(t, time.Second, cfg.Health.RetryDelay())
	assert.False(t, cfg.Chat.PreserveOnNew)
	assert.True(t, cfg.Chat.AutoTitle)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", cfg.API.BaseURL)
	assert.True(t, cfg.UI.ShowSources)
}

func TestLoadTOMLKeepsUnsetDefaults(t *testing.T) {
	dir := isolate(t)
	body := `
[api]
base_url = "https://tax.example.com/api/"
timeout_secs = 10

[chat]
preserve_on_new = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://tax.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 10, cfg.API.TimeoutSecs)
	assert.True(t, cfg.Chat.PreserveOnNew)
	assert.True(t, cfg.Chat.AutoTitle)
	assert.Equal(t, 2, cfg.API.MaxRetries)

	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestLoadJSONFallback(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"ui": {"theme": "light"}}`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.UI.Theme)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte("[ui]\ntheme = \"neon\"\n"), 0600))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui.theme")
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("VITE_API_URL", "http://vite:9000/api")
	t.Setenv("TAXEASE_TIMEOUT", "45")
	t.Setenv("TAXEASE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://vite:9000/api", cfg.API.BaseURL)
	assert.Equal(t, 45, cfg.API.TimeoutSecs)
	assert.Equal(t, "debug", cfg.Log.Level)

	t.Setenv("TAXEASE_API_URL", "http://primary:8000/api")
	t.Setenv("TAXEASE_TIMEOUT", "1m")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "http://primary:8000/api", cfg.API.BaseURL)
	assert.Equal(t, 60, cfg.API.TimeoutSecs)
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TAXEASE_LOG_LEVEL=warn\nTAXEASE_TEST_ONLY=from-file\n"), 0600))
	t.Setenv("TAXEASE_LOG_LEVEL", "error")
	t.Setenv("TAXEASE_TEST_ONLY", "")
	os.Unsetenv("TAXEASE_TEST_ONLY")

	LoadDotEnv(path)
	assert.Equal(t, "error", os.Getenv("TAXEASE_LOG_LEVEL"))
	assert.Equal(t, "from-file", os.Getenv("TAXEASE_TEST_ONLY"))

	LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "localhost:8000"
	cfg.API.TimeoutSecs = 0
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 3)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("api.timeout_secs", "12"))
	v, err := cfg.Get("api.timeout_secs")
	require.NoError(t, err)
	assert.Equal(t, 12, v)

	require.NoError(t, cfg.Set("chat.preserve_on_new", "yes"))
	assert.True(t, cfg.Chat.PreserveOnNew)

	require.NoError(t, cfg.Set("api.rate_limit", 2.5))
	assert.Equal(t, 2.5, cfg.API.RateLimit)

	assert.Error(t, cfg.Set("api.timeout_secs", "soon"))
	assert.Error(t, cfg.Set("ui.show_sources", "maybe"))
	assert.Error(t, cfg.Set("api.nope", "1"))
	assert.Error(t, cfg.Set("api", "1"))
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestKeysCoverEverySetting(t *testing.T) {
	cfg := Default()
	keys := Keys()
	assert.Contains(t, keys, "version")
	assert.Contains(t, keys, "chat.preserve_on_new")
	assert.Contains(t, keys, "log.max_age_days")
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	cfg.UI.Theme = "dark"
	cfg.Chat.PreserveOnNew = true
	require.NoError(t, Save(cfg))

	path := filepath.Join(dir, "config.toml")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# taxease configuration file")

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "dark", loaded.UI.Theme)
	assert.True(t, loaded.Chat.PreserveOnNew)
}

func TestResolvedPaths(t *testing.T) {
	dir := isolate(t)
	cfg := Default()

	p, err := cfg.CredentialsPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "credentials.json"), p)

	p, err = cfg.ArchivePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "archive.db"), p)

	cfg.Log.Path = "/var/log/taxease.log"
	p, err = cfg.LogPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/log/taxease.log", p)
}
