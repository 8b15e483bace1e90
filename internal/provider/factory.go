package provider

import (
	"fmt"
	"strings"

	"github.com/julianshen/docgen/internal/config"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	geminiBaseURL    = "https://generativelanguage.googleapis.com/"
)

// ProviderConstructor is a function that creates a new LLMProvider.
type ProviderConstructor func(baseURL, apiKey string, extraHeaders map[string]string) LLMProvider

// registry holds registered provider constructors.
var registry = map[string]ProviderConstructor{}

// RegisterProvider registers a provider constructor by name.
func RegisterProvider(name string, constructor ProviderConstructor) {
	registry[name] = constructor
}

// NewProvider creates an LLMProvider from the configured default. "anthropic"
// and "gemini" use their native APIs; any other name is looked up among the
// OpenAI-compatible configurations.
func NewProvider(cfg *config.Config) (LLMProvider, error) {
	switch cfg.Provider.Default {
	case "anthropic":
		return newKeyedProvider("anthropic", cfg.Provider.Anthropic, anthropicBaseURL, "ANTHROPIC_API_KEY")
	case "gemini":
		return newKeyedProvider("gemini", cfg.Provider.Gemini, geminiBaseURL, "GEMINI_API_KEY")
	default:
		return newOpenAIProvider(cfg)
	}
}

func newKeyedProvider(name string, kc config.KeyedProviderConfig, defaultURL, envVar string) (LLMProvider, error) {
	constructor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%s provider not registered", name)
	}

	apiKey, err := config.ResolveAPIKey(kc.APIKeySource, kc.APIKey, envVar)
	if err != nil {
		return nil, fmt.Errorf("resolving %s API key: %w", name, err)
	}

	baseURL := kc.BaseURL
	if baseURL == "" {
		baseURL = defaultURL
	}
	return constructor(baseURL, apiKey, nil), nil
}

func newOpenAIProvider(cfg *config.Config) (LLMProvider, error) {
	name := cfg.Provider.Default

	constructor, ok := registry["openai"]
	if !ok {
		return nil, fmt.Errorf("openai provider not registered")
	}

	for _, oc := range cfg.Provider.OpenAI {
		if oc.Name == name {
			envVar := strings.ToUpper(name) + "_API_KEY"
			apiKey, err := config.ResolveAPIKey(oc.APIKeySource, oc.APIKey, envVar)
			if err != nil {
				return nil, fmt.Errorf("resolving %s API key: %w", name, err)
			}

			return constructor(oc.BaseURL, apiKey, oc.ExtraHeaders), nil
		}
	}

	return nil, fmt.Errorf("unknown provider: %q", name)
}
