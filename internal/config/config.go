package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// SchemaVersion is the configuration layout this build understands.
const SchemaVersion = "1.0.0"

// Config represents the top-level application configuration.
type Config struct {
	SchemaVersion string         `toml:"schema_version" yaml:"schema_version"`
	Provider      ProviderConfig `toml:"provider" yaml:"provider"`
	Retry         RetryConfig    `toml:"retry" yaml:"retry"`
	Chunk         ChunkConfig    `toml:"chunk" yaml:"chunk"`
	Readme        ReadmeConfig   `toml:"readme" yaml:"readme"`
	Fetch         FetchConfig    `toml:"fetch" yaml:"fetch"`
	GitHub        ForgeConfig    `toml:"github" yaml:"github"`
	GitLab        ForgeConfig    `toml:"gitlab" yaml:"gitlab"`
	Server        ServerConfig   `toml:"server" yaml:"server"`
	Store         StoreConfig    `toml:"store" yaml:"store"`
	Log           LogConfig      `toml:"log" yaml:"log"`
}

// ProviderConfig holds settings for model provider selection.
type ProviderConfig struct {
	Default           string                   `toml:"default" yaml:"default"`
	Model             string                   `toml:"model" yaml:"model"`
	Models            ModelsConfig             `toml:"models" yaml:"models"`
	MaxTokens         int                      `toml:"max_tokens" yaml:"max_tokens"`
	RequestsPerSecond float64                  `toml:"requests_per_second" yaml:"requests_per_second"`
	Burst             int                      `toml:"burst" yaml:"burst"`
	Anthropic         KeyedProviderConfig      `toml:"anthropic" yaml:"anthropic"`
	Gemini            KeyedProviderConfig      `toml:"gemini" yaml:"gemini"`
	OpenAI            []OpenAICompatibleConfig `toml:"openai_compatible" yaml:"openai_compatible"`
}

// ModelsConfig overrides the model and temperature used per role. Empty
// model names fall back to ProviderConfig.Model.
type ModelsConfig struct {
	Summary            string   `toml:"summary" yaml:"summary"`
	Readme             string   `toml:"readme" yaml:"readme"`
	Comment            string   `toml:"comment" yaml:"comment"`
	SummaryTemperature *float64 `toml:"summary_temperature" yaml:"summary_temperature"`
	ReadmeTemperature  *float64 `toml:"readme_temperature" yaml:"readme_temperature"`
	CommentTemperature *float64 `toml:"comment_temperature" yaml:"comment_temperature"`
}

// KeyedProviderConfig holds settings for a vendor with a fixed endpoint.
type KeyedProviderConfig struct {
	APIKeySource string `toml:"api_key_source" yaml:"api_key_source"`
	APIKey       string `toml:"api_key" yaml:"api_key"`
	BaseURL      string `toml:"base_url" yaml:"base_url"`
}

// OpenAICompatibleConfig holds settings for an OpenAI-compatible provider.
type OpenAICompatibleConfig struct {
	Name         string            `toml:"name" yaml:"name"`
	BaseURL      string            `toml:"base_url" yaml:"base_url"`
	APIKeySource string            `toml:"api_key_source" yaml:"api_key_source"`
	APIKey       string            `toml:"api_key" yaml:"api_key"`
	ExtraHeaders map[string]string `toml:"extra_headers" yaml:"extra_headers"`
}

// RetryConfig controls the backoff applied to rate-limited model calls.
type RetryConfig struct {
	MaxAttempts int      `toml:"max_attempts" yaml:"max_attempts"`
	BaseDelay   Duration `toml:"base_delay" yaml:"base_delay"`
	MaxJitter   Duration `toml:"max_jitter" yaml:"max_jitter"`
}

// ChunkConfig controls how large files are split before prompting.
type ChunkConfig struct {
	Size         int  `toml:"size" yaml:"size"`
	Overlap      int  `toml:"overlap" yaml:"overlap"`
	DedupOverlap bool `toml:"dedup_overlap" yaml:"dedup_overlap"`
}

// ReadmeConfig controls README composition.
type ReadmeConfig struct {
	GroupChars      int  `toml:"group_chars" yaml:"group_chars"`
	DiagramFallback bool `toml:"diagram_fallback" yaml:"diagram_fallback"`
}

// FetchConfig controls how remote repositories are retrieved.
type FetchConfig struct {
	Strategy        string   `toml:"strategy" yaml:"strategy"` // "archive" or "git"
	DefaultBranch   string   `toml:"default_branch" yaml:"default_branch"`
	Timeout         Duration `toml:"timeout" yaml:"timeout"`
	MaxArchiveBytes int64    `toml:"max_archive_bytes" yaml:"max_archive_bytes"`
	WorkDir         string   `toml:"work_dir" yaml:"work_dir"`
}

// ForgeConfig holds credentials for a code hosting API.
type ForgeConfig struct {
	BaseURL     string `toml:"base_url" yaml:"base_url"`
	TokenSource string `toml:"token_source" yaml:"token_source"`
	Token       string `toml:"token" yaml:"token"`
	TokenEnv    string `toml:"token_env" yaml:"token_env"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr        string   `toml:"addr" yaml:"addr"`
	MaxBodySize int64    `toml:"max_body_size" yaml:"max_body_size"`
	ReadTimeout Duration `toml:"read_timeout" yaml:"read_timeout"`
}

// StoreConfig bounds the in-memory archive store.
type StoreConfig struct {
	Size int      `toml:"size" yaml:"size"`
	TTL  Duration `toml:"ttl" yaml:"ttl"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// DefaultConfig returns a Config populated with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		SchemaVersion: SchemaVersion,
		Provider: ProviderConfig{
			Default: "groq",
			Model:   "deepseek-r1-distill-llama-70b",
			Models: ModelsConfig{
				Comment:            "compound-beta",
				SummaryTemperature: floatPtr(0.1),
				ReadmeTemperature:  floatPtr(0.1),
				CommentTemperature: floatPtr(0.6),
			},
			MaxTokens: 4096,
			Anthropic: KeyedProviderConfig{APIKeySource: "env"},
			Gemini:    KeyedProviderConfig{APIKeySource: "env"},
			OpenAI: []OpenAICompatibleConfig{
				{Name: "groq", BaseURL: "https://api.groq.com/openai/v1", APIKeySource: "env"},
				{Name: "mistral", BaseURL: "https://api.mistral.ai/v1", APIKeySource: "env"},
				{Name: "openai", BaseURL: "https://api.openai.com/v1", APIKeySource: "env"},
				{Name: "ollama", BaseURL: "http://localhost:11434/v1", APIKeySource: "config", APIKey: "ollama"},
			},
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   Duration(2 * time.Second),
			MaxJitter:   Duration(time.Second),
		},
		Chunk: ChunkConfig{
			Size:    300,
			Overlap: 10,
		},
		Readme: ReadmeConfig{
			GroupChars:      6000,
			DiagramFallback: true,
		},
		Fetch: FetchConfig{
			Strategy:        "archive",
			DefaultBranch:   "main",
			Timeout:         Duration(2 * time.Minute),
			MaxArchiveBytes: 200 << 20,
		},
		GitHub: ForgeConfig{TokenSource: "env", TokenEnv: "GITHUB_TOKEN"},
		GitLab: ForgeConfig{BaseURL: "https://gitlab.com", TokenSource: "env", TokenEnv: "GITLAB_TOKEN"},
		Server: ServerConfig{
			Addr:        ":8000",
			MaxBodySize: 100 << 20,
			ReadTimeout: Duration(30 * time.Second),
		},
		Store: StoreConfig{
			Size: 128,
			TTL:  Duration(30 * time.Minute),
		},
		Log: LogConfig{Level: "info"},
	}
}

// ModelFor returns the model configured for role, falling back to the
// provider-wide model.
func (p ProviderConfig) ModelFor(role string) string {
	var m string
	switch role {
	case "summary":
		m = p.Models.Summary
	case "readme":
		m = p.Models.Readme
	case "comment":
		m = p.Models.Comment
	}
	if m == "" {
		return p.Model
	}
	return m
}

// TemperatureFor returns the sampling temperature for role, or nil to use
// the vendor default.
func (p ProviderConfig) TemperatureFor(role string) *float64 {
	switch role {
	case "summary":
		return p.Models.SummaryTemperature
	case "readme":
		return p.Models.ReadmeTemperature
	case "comment":
		return p.Models.CommentTemperature
	}
	return nil
}

func floatPtr(v float64) *float64 { return &v }

// Duration is a time.Duration that decodes from strings such as "2s" in both
// TOML and YAML files.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}
