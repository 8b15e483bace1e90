package integrations

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianshen/docgen/internal/config"
	"github.com/julianshen/docgen/internal/llm"
	"github.com/julianshen/docgen/internal/prompt"
	"github.com/julianshen/docgen/internal/provider"
)

// LLMCompleter wraps an LLMProvider to collect streamed text into a single
// string, choosing model, temperature and system prompt per capability.
type LLMCompleter struct {
	provider provider.LLMProvider
	cfg      config.ProviderConfig
}

// NewLLMCompleter creates a new LLMCompleter.
func NewLLMCompleter(p provider.LLMProvider, cfg config.ProviderConfig) *LLMCompleter {
	return &LLMCompleter{provider: p, cfg: cfg}
}

// Complete sends a prompt to the LLM and returns the full response text.
func (c *LLMCompleter) Complete(ctx context.Context, in llm.Request) (string, error) {
	role := string(in.Capability)
	maxTokens := c.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	req := provider.CompletionRequest{
		Model:       c.cfg.ModelFor(role),
		System:      prompt.SystemPrompt(in.Capability, in.Language),
		Messages:    []provider.Message{provider.NewUserMessage(in.Prompt)},
		MaxTokens:   maxTokens,
		Temperature: c.cfg.TemperatureFor(role),
	}

	ch, err := c.provider.Stream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}

	var parts []string
	var streamErr error
	for evt := range ch {
		if streamErr != nil {
			continue // drain so the producer can exit
		}
		switch evt.Type {
		case "text_delta":
			parts = append(parts, evt.Text)
		case "error":
			streamErr = evt.Error
		}
	}
	if streamErr != nil {
		return "", fmt.Errorf("llm stream error: %w", streamErr)
	}

	return strings.Join(parts, ""), nil
}
