package llm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/julianshen/docgen/internal/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Completer) Completer {
			return CompleterFunc(func(ctx context.Context, req Request) (string, error) {
				order = append(order, name)
				return next.Complete(ctx, req)
			})
		}
	}
	base := CompleterFunc(func(context.Context, Request) (string, error) {
		order = append(order, "base")
		return "x", nil
	})

	_, err := Wrap(base, tag("outer"), nil, tag("inner")).Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "base"}, order)
}

func TestRateLimitDisabled(t *testing.T) {
	assert.Nil(t, RateLimit(0, 1))
}

func TestRateLimitCancelledContext(t *testing.T) {
	called := false
	base := CompleterFunc(func(context.Context, Request) (string, error) {
		called = true
		return "x", nil
	})
	c := Wrap(base, RateLimit(0.001, 1))

	// First token is available immediately.
	_, err := c.Complete(context.Background(), Request{})
	require.NoError(t, err)
	require.True(t, called)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called = false
	_, err = c.Complete(ctx, Request{})
	require.Error(t, err)
	assert.False(t, called)
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ok := Wrap(CompleterFunc(func(context.Context, Request) (string, error) { return "hello", nil }), WithLogging(logger))
	_, err := ok.Complete(context.Background(), Request{Capability: prompt.CapReadme, Prompt: "abc"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "capability=readme")
	assert.Contains(t, buf.String(), "response_chars=5")

	buf.Reset()
	bad := Wrap(CompleterFunc(func(context.Context, Request) (string, error) { return "", errors.New("nope") }), WithLogging(logger))
	_, err = bad.Complete(context.Background(), Request{Capability: prompt.CapSummary})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "model call failed")
	assert.Contains(t, buf.String(), "nope")
}
