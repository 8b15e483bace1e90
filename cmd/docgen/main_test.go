package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionString(t *testing.T) {
	s := versionString()
	assert.Contains(t, s, "docgen")
	assert.Contains(t, s, version)
	assert.Contains(t, s, commit)
	assert.Contains(t, s, date)
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, versionString()+"\n", out.String())
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"version", "generate", "preview", "serve", "branches"})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("loud"))
}

func TestLoadConfigAppliesFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("schema_version = \"1.0.0\"\n[log]\nlevel = \"warn\"\n"), 0o644))

	oldConfig, oldModel, oldProvider, oldVerbose := configPath, modelFlag, providerFlag, verboseFlag
	defer func() {
		configPath, modelFlag, providerFlag, verboseFlag = oldConfig, oldModel, oldProvider, oldVerbose
	}()
	configPath, modelFlag, providerFlag, verboseFlag = path, "llama3", "ollama", true

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "llama3", cfg.Provider.Model)
	assert.Equal(t, "ollama", cfg.Provider.Default)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestDefaultConfigPathPrefersYAMLWhenOnlyYAMLExists(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := defaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "docgen", "config.toml"), path)

	dir := filepath.Join(home, ".config", "docgen")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: info\n"), 0o644))

	path, err = defaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), path)
}

func TestNewAppUnknownProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	oldConfig, oldProvider := configPath, providerFlag
	defer func() { configPath, providerFlag = oldConfig, oldProvider }()
	configPath, providerFlag = path, "nonexistent"

	cfg, err := loadConfig()
	require.NoError(t, err)
	_, err = newApp(cfg, slog.Default())
	assert.ErrorContains(t, err, `unknown provider: "nonexistent"`)
}
