package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/julianshen/docgen/internal/provider"
)

func init() {
	provider.RegisterProvider("anthropic", func(baseURL, apiKey string, _ map[string]string) provider.LLMProvider {
		return New(baseURL, apiKey)
	})
}

// Provider implements the LLMProvider interface for the Anthropic Messages API.
type Provider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a new Anthropic provider.
func New(baseURL, apiKey string) *Provider {
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

// apiRequest is the request body sent to the Anthropic API.
type apiRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	Stream      bool         `json:"stream"`
	System      string       `json:"system,omitempty"`
	Messages    []apiMessage `json:"messages"`
	Temperature *float64     `json:"temperature,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Stream sends a completion request to the Anthropic API and returns a channel
// of StreamEvents parsed from the SSE response.
func (p *Provider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamEvent, error) {
	body, err := p.buildRequestBody(req)
	if err != nil {
		return nil, fmt.Errorf("building request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, provider.NewAPIError(resp)
	}

	ch := make(chan provider.StreamEvent)
	go p.processStream(ctx, resp, ch)

	return ch, nil
}

func (p *Provider) buildRequestBody(req provider.CompletionRequest) ([]byte, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	apiReq := apiRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		Stream:      true,
		System:      req.System,
		Temperature: req.Temperature,
	}
	for _, msg := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, apiMessage{Role: msg.Role, Content: msg.Content})
	}
	return json.Marshal(apiReq)
}

// processStream reads SSE events from the response body and sends StreamEvents
// as they arrive. It closes both the body and the channel when done.
func (p *Provider) processStream(ctx context.Context, resp *http.Response, ch chan<- provider.StreamEvent) {
	defer close(ch)
	defer resp.Body.Close()

	scanner := provider.NewSSEScanner(resp.Body)
	for scanner.Next() {
		if ctx.Err() != nil {
			select {
			case ch <- provider.StreamEvent{Type: "error", Error: ctx.Err()}:
			default:
			}
			return
		}

		evt := convertSSEEvent(scanner.Event())
		if evt == nil {
			continue
		}

		select {
		case ch <- *evt:
		case <-ctx.Done():
			return
		}
		if evt.Type == "error" || evt.Type == "stop" {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case ch <- provider.StreamEvent{Type: "error", Error: err}:
		case <-ctx.Done():
		}
	}
}

// convertSSEEvent maps the Anthropic event types docgen cares about.
func convertSSEEvent(evt provider.SSEEvent) *provider.StreamEvent {
	switch evt.Event {
	case "content_block_delta":
		var parsed struct {
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(evt.Data), &parsed); err != nil {
			return &provider.StreamEvent{Type: "error", Error: fmt.Errorf("parsing content_block_delta: %w", err)}
		}
		if parsed.Delta.Type != "text_delta" {
			return nil
		}
		return &provider.StreamEvent{Type: "text_delta", Text: parsed.Delta.Text}
	case "message_delta":
		var parsed struct {
			Usage struct {
				OutputTokens int `json:"output_tokens"`
			} `json:"usage"`
		}
		if err := json.Unmarshal([]byte(evt.Data), &parsed); err != nil {
			return nil
		}
		return &provider.StreamEvent{Type: "usage", OutputTokens: parsed.Usage.OutputTokens}
	case "error":
		var parsed struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal([]byte(evt.Data), &parsed)
		// overloaded_error and rate_limit_error are both throttling signals.
		msg := parsed.Error.Message
		if parsed.Error.Type == "rate_limit_error" || parsed.Error.Type == "overloaded_error" {
			msg = "rate limit: " + msg
		}
		return &provider.StreamEvent{Type: "error", Error: fmt.Errorf("anthropic %s: %s", parsed.Error.Type, msg)}
	case "message_stop":
		return &provider.StreamEvent{Type: "stop"}
	default:
		return nil
	}
}
