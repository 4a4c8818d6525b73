// internal/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/maskd/pkg/masker"
)

// writeConfig writes a config file under a fake home directory and points
// HOME at it, so the loader's path validation accepts the file.
func writeConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "maskd")
	require.NoError(t, os.MkdirAll(dir, 0700))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	return path
}

func TestLoadWithFile_Defaults(t *testing.T) {
	// No config file present: defaults apply.
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, 9822, cfg.Server.Port)
	assert.Equal(t, masker.EngineModern, cfg.Masker.Engine)
}

func TestLoadWithFile_YAML(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 8181
  shutdown_timeout: 30s
masker:
  engine: legacy
  min_secret_length: 4
observability:
  log_level: debug
`, 0600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "30s", cfg.Server.ShutdownTimeout.Duration().String())
	assert.Equal(t, masker.EngineLegacy, cfg.Masker.Engine)
	assert.Equal(t, 4, cfg.Masker.MinSecretLength)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestLoadWithFile_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 8181
`, 0600)
	t.Setenv("MASKD_SERVER_HTTP_PORT", "9999")
	t.Setenv("MASKD_OBSERVABILITY_LOG_LEVEL", "warn")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port, "env must override file")
	assert.Equal(t, "warn", cfg.Observability.LogLevel)
}

func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	path := writeConfig(t, "server:\n  http_port: 8181\n", 0644)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoadWithFile_PathOutsideAllowedDirs(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	outside := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(outside, []byte("server: {}\n"), 0600))

	_, err := LoadWithFile(outside)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config path validation failed")
}

func TestLoadWithFile_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map\n", 0600)

	_, err := LoadWithFile(path)
	assert.Error(t, err)
}

func TestLoadWithFile_InvalidValues(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 99999
`, 0600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoadWithFile_ClampsMinSecretLength(t *testing.T) {
	path := writeConfig(t, `
masker:
  min_secret_length: 50
`, 0600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	// Validation clamps rather than erroring.
	assert.Equal(t, masker.MinSecretLengthLimit, cfg.Masker.MinSecretLength)
}

func TestLoadWithFile_SecretLiterals(t *testing.T) {
	path := writeConfig(t, `
secrets:
  - hunter22secret
  - deploykey-abcdef012345
`, 0600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	require.Len(t, cfg.Secrets, 2)
	assert.Equal(t, "hunter22secret", cfg.Secrets[0].Value())
	// The Secret wrapper keeps the value out of string formatting.
	assert.Equal(t, "[REDACTED]", cfg.Secrets[0].String())
}

func TestEnsureConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, EnsureConfigDir())
	info, err := os.Stat(filepath.Join(home, ".config", "maskd"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
