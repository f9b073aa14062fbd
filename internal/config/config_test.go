package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHasSaneBounds(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "user", cfg.Username)
	assert.Equal(t, "sandbox", cfg.Hostname)
	assert.Greater(t, cfg.Limits.MaxCommands, 0)
}

func TestValidateAcceptsDefault(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestValidateRejectsEmptyUsername(t *testing.T) {
	cfg := Default()
	cfg.Username = ""
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsOutOfBoundsLimit(t *testing.T) {
	cfg := Default()
	cfg.Limits.MaxCommands = -1
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsOversizedWallTimeout(t *testing.T) {
	cfg := Default()
	cfg.Python = &PythonConfig{Interpreter: "python3", WallTimeout: 9999}
	assert.Error(t, Validate(cfg))
}

func TestLoadYAMLAppliesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := "username: alice\nhostname: box\ncwd: /home/alice\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "box", cfg.Hostname)
	assert.Equal(t, "/home/alice", cfg.Cwd)
	assert.Greater(t, cfg.Limits.MaxCommands, 0)
}

func TestLoadYAMLRejectsInvalidLimits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := "limits:\n  maxcommands: -5\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := LoadYAML(path)
	assert.Error(t, err)
}

func TestLoadYAMLMissingFileErrors(t *testing.T) {
	_, err := LoadYAML(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
