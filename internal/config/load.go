package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// supportedSchema is the range of schema_version values Load accepts.
const supportedSchema = "^1"

// Load reads the configuration at path on top of DefaultConfig. Files
// ending in .yaml or .yml are decoded as YAML, anything else as TOML. A
// missing file is not an error and yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Array tables replace the defaults rather than merging into them.
	defaults := cfg.Provider.OpenAI
	cfg.Provider.OpenAI = nil

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		_, err = toml.Decode(string(data), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if len(cfg.Provider.OpenAI) == 0 {
		cfg.Provider.OpenAI = defaults
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the schema version and numeric bounds.
func (c *Config) Validate() error {
	if err := checkSchema(c.SchemaVersion); err != nil {
		return err
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxJitter < 0 {
		return fmt.Errorf("retry delays must not be negative")
	}
	if c.Chunk.Size < 1 {
		return fmt.Errorf("chunk.size must be at least 1, got %d", c.Chunk.Size)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk.overlap must be in [0, %d), got %d", c.Chunk.Size, c.Chunk.Overlap)
	}
	switch c.Fetch.Strategy {
	case "archive", "git":
	default:
		return fmt.Errorf("unknown fetch.strategy %q", c.Fetch.Strategy)
	}
	return nil
}

func checkSchema(v string) error {
	if v == "" {
		return nil
	}
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("schema_version %q: %w", v, err)
	}
	constraint, err := semver.NewConstraint(supportedSchema)
	if err != nil {
		return err
	}
	if !constraint.Check(ver) {
		return fmt.Errorf("unsupported schema_version %s (supported: %s)", v, supportedSchema)
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped; existing variables win.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// ResolveToken returns the forge API token, or "" for anonymous access.
func (f ForgeConfig) ResolveToken() string {
	if f.TokenSource == "" {
		return ""
	}
	tok, err := ResolveAPIKey(f.TokenSource, f.Token, f.TokenEnv)
	if err != nil {
		return ""
	}
	return tok
}
