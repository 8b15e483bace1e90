// Package gemini adapts the Google Gen AI SDK to the LLMProvider interface.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/julianshen/docgen/internal/provider"
)

func init() {
	provider.RegisterProvider("gemini", func(baseURL, apiKey string, _ map[string]string) provider.LLMProvider {
		return New(baseURL, apiKey)
	})
}

// Provider calls the Gemini API through genai. The SDK client is created on
// first use because construction needs a context.
type Provider struct {
	baseURL string
	apiKey  string

	mu     sync.Mutex
	client *genai.Client
}

// New creates a Gemini provider. An empty baseURL uses the SDK default.
func New(baseURL, apiKey string) *Provider {
	return &Provider{baseURL: baseURL, apiKey: apiKey}
}

func (p *Provider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	p.client = cli
	return cli, nil
}

// Stream issues a single GenerateContent call and replays the answer as a
// text_delta, a usage event and a stop event.
func (p *Provider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamEvent, error) {
	cli, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	genCfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature != nil {
		genCfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}

	resp, err := cli.Models.GenerateContent(ctx, req.Model, contents, genCfg)
	if err != nil {
		return nil, convertError(err)
	}

	ch := make(chan provider.StreamEvent, 3)
	ch <- provider.StreamEvent{Type: "text_delta", Text: resp.Text()}
	if u := resp.UsageMetadata; u != nil {
		ch <- provider.StreamEvent{
			Type:         "usage",
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
		}
	}
	ch <- provider.StreamEvent{Type: "stop"}
	close(ch)
	return ch, nil
}

// convertError maps SDK API errors onto provider.APIError so throttling is
// classified the same way as for the HTTP providers.
func convertError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &provider.APIError{StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &provider.APIError{StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini generate: %w", err)
}
