package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Project.Name)
	assert.Equal(t, []string{"compose.yaml", "compose.yml", "docker-compose.yaml", "docker-compose.yml"}, cfg.Project.Files)
	assert.Equal(t, "", cfg.Runtime.Host)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
project:
  name: myapp
runtime:
  host: "tcp://127.0.0.1:2375"
log:
  level: "debug"
  format: "json"
`
	tmpFile := filepath.Join(t.TempDir(), "stackctl.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "myapp", cfg.Project.Name)
	assert.Equal(t, "tcp://127.0.0.1:2375", cfg.Runtime.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("STACKCTL_PROJECT_NAME", "fromenv")
	t.Setenv("STACKCTL_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "fromenv", cfg.Project.Name)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/stackctl.yaml")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

func TestSetupLogger_JSONFormat(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "info", Format: "json"}}
	assert.NotNil(t, SetupLogger(cfg))
}

func TestSetupLogger_TextFormat(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "info", Format: "text"}}
	assert.NotNil(t, SetupLogger(cfg))
}

func TestSetupLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "bogus", Format: "text"}}
	assert.NotNil(t, SetupLogger(cfg))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"STACKCTL_PROJECT_NAME",
		"STACKCTL_RUNTIME_HOST",
		"STACKCTL_LOG_LEVEL",
		"STACKCTL_LOG_FORMAT",
	} {
		os.Unsetenv(v)
	}
}
