package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "groq", cfg.Provider.Default)
	assert.Equal(t, "deepseek-r1-distill-llama-70b", cfg.Provider.Model)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.BaseDelay.Std())
	assert.Equal(t, 300, cfg.Chunk.Size)
	assert.Equal(t, 10, cfg.Chunk.Overlap)
	assert.False(t, cfg.Chunk.DedupOverlap)
	assert.Equal(t, 6000, cfg.Readme.GroupChars)
	assert.Equal(t, "main", cfg.Fetch.DefaultBranch)
	assert.Equal(t, 128, cfg.Store.Size)
	assert.Equal(t, 30*time.Minute, cfg.Store.TTL.Std())
	require.NoError(t, cfg.Validate())
}

func TestModelFor(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "deepseek-r1-distill-llama-70b", cfg.Provider.ModelFor("summary"))
	assert.Equal(t, "compound-beta", cfg.Provider.ModelFor("comment"))
	assert.Equal(t, "deepseek-r1-distill-llama-70b", cfg.Provider.ModelFor("unknown"))

	require.NotNil(t, cfg.Provider.TemperatureFor("comment"))
	assert.InDelta(t, 0.6, *cfg.Provider.TemperatureFor("comment"), 1e-9)
	assert.Nil(t, cfg.Provider.TemperatureFor("unknown"))
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, "config.toml", `
schema_version = "1.2.0"

[provider]
default = "openai"
model = "gpt-4o"

[provider.models]
readme = "gpt-4o-mini"

[retry]
max_attempts = 3
base_delay = "500ms"

[chunk]
size = 120
overlap = 5
dedup_overlap = true

[store]
ttl = "5m"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider.Default)
	assert.Equal(t, "gpt-4o", cfg.Provider.Model)
	assert.Equal(t, "gpt-4o-mini", cfg.Provider.ModelFor("readme"))
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay.Std())
	assert.Equal(t, time.Second, cfg.Retry.MaxJitter.Std(), "unset fields keep defaults")
	assert.Equal(t, 120, cfg.Chunk.Size)
	assert.True(t, cfg.Chunk.DedupOverlap)
	assert.Equal(t, 5*time.Minute, cfg.Store.TTL.Std())
	assert.Len(t, cfg.Provider.OpenAI, 4, "default providers kept when none configured")
}

func TestLoadOpenAICompatibleProviders(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[provider]
default = "openrouter"

[[provider.openai_compatible]]
name = "openrouter"
base_url = "https://openrouter.ai/api/v1"
api_key_source = "env"
extra_headers = { HTTP-Referer = "https://github.com/julianshen/docgen" }
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Provider.OpenAI, 1)
	assert.Equal(t, "openrouter", cfg.Provider.OpenAI[0].Name)
	assert.Equal(t, "", cfg.Provider.OpenAI[0].APIKey)
	assert.Equal(t, "https://github.com/julianshen/docgen", cfg.Provider.OpenAI[0].ExtraHeaders["HTTP-Referer"])
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
provider:
  default: mistral
  model: mistral-large-latest
retry:
  base_delay: 3s
fetch:
  strategy: git
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.Provider.Default)
	assert.Equal(t, "mistral-large-latest", cfg.Provider.Model)
	assert.Equal(t, 3*time.Second, cfg.Retry.BaseDelay.Std())
	assert.Equal(t, "git", cfg.Fetch.Strategy)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	require.NoError(t, err)
	assert.Equal(t, "groq", cfg.Provider.Default)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeConfig(t, "bad.toml", "[invalid toml...")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoadInvalidDuration(t *testing.T) {
	path := writeConfig(t, "config.toml", "[retry]\nbase_delay = \"soon\"\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadRejectsFutureSchema(t *testing.T) {
	path := writeConfig(t, "config.toml", `schema_version = "2.0.0"`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema_version")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "max_attempts"},
		{"chunk size", func(c *Config) { c.Chunk.Size = 0 }, "chunk.size"},
		{"overlap", func(c *Config) { c.Chunk.Overlap = 300 }, "chunk.overlap"},
		{"strategy", func(c *Config) { c.Fetch.Strategy = "ftp" }, "fetch.strategy"},
		{"schema", func(c *Config) { c.SchemaVersion = "banana" }, "schema_version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := writeConfig(t, ".env", "DOCGEN_TEST_DOTENV=from-file\n")
	t.Setenv("DOCGEN_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("DOCGEN_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("DOCGEN_TEST_DOTENV"))
}

func TestLoadDotEnvNoFiles(t *testing.T) {
	assert.NoError(t, LoadDotEnv("/nonexistent/.env"))
}

func TestForgeResolveToken(t *testing.T) {
	t.Setenv("DOCGEN_TEST_TOKEN", "ghp_x")
	f := ForgeConfig{TokenSource: "env", TokenEnv: "DOCGEN_TEST_TOKEN"}
	assert.Equal(t, "ghp_x", f.ResolveToken())

	t.Setenv("DOCGEN_TEST_TOKEN", "")
	assert.Equal(t, "", f.ResolveToken())
	assert.Equal(t, "", ForgeConfig{}.ResolveToken())
}
