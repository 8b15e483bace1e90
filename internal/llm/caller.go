// Package llm wraps model completion calls with rate-limit aware retries.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/julianshen/docgen/internal/prompt"
	"github.com/julianshen/docgen/internal/provider"
)

// Request is a single prompt aimed at one model capability.
type Request struct {
	Capability prompt.Capability
	Language   string // selects the system prompt flavour; may be empty
	Prompt     string
}

// Completer turns a request into raw model text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
}

// DefaultPolicy returns 5 attempts starting at a 2s delay with up to 1s of
// jitter.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: 2 * time.Second, MaxJitter: time.Second}
}

// Backoff returns the delay before retry n (1-based), excluding jitter.
func (p Policy) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return p.BaseDelay * time.Duration(1<<(n-1))
}

// Sleeper blocks for a duration. Implementations must return early with
// ctx.Err() when ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// TimerSleeper sleeps on a real timer.
type TimerSleeper struct{}

// Sleep waits for d or until ctx is done.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryError is returned when every attempt was rate limited.
type RetryError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s: max retries exceeded after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is a throttling signal worth retrying.
func IsRateLimited(err error) bool {
	return provider.IsRateLimited(err)
}

// Caller issues model requests through a Completer, retrying rate-limited
// failures with exponential backoff.
type Caller struct {
	Completer Completer
	Policy    Policy
	Sleeper   Sleeper
	// Jitter returns the random component added to each backoff. Nil draws
	// uniformly from [0, Policy.MaxJitter).
	Jitter func() time.Duration
	Logger *slog.Logger
}

// NewCaller returns a Caller with a real timer and random jitter.
func NewCaller(c Completer, p Policy, logger *slog.Logger) *Caller {
	return &Caller{Completer: c, Policy: p, Sleeper: TimerSleeper{}, Logger: logger}
}

// Call sends req and returns the trimmed response text. Only rate-limit
// errors are retried; anything else is returned straight away.
func (c *Caller) Call(ctx context.Context, req Request) (string, error) {
	attempts := c.Policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	op := "model call " + string(req.Capability)

	var lastErr error
	for n := 1; n <= attempts; n++ {
		text, err := c.Completer.Complete(ctx, req)
		if err == nil {
			recordCall(req.Capability, outcomeOK)
			return strings.TrimSpace(text), nil
		}
		lastErr = err
		if !IsRateLimited(err) {
			recordCall(req.Capability, outcomeError)
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if n == attempts {
			break
		}

		delay := c.Policy.Backoff(n) + c.jitter()
		if hint := retryAfter(err); hint > delay {
			delay = hint
		}
		c.logger().Warn("rate limited, backing off",
			"capability", req.Capability, "attempt", n, "delay", delay)
		recordRetry(req.Capability, delay)
		if err := c.sleeper().Sleep(ctx, delay); err != nil {
			recordCall(req.Capability, outcomeError)
			return "", fmt.Errorf("%s: %w", op, errors.Join(err, lastErr))
		}
	}

	recordCall(req.Capability, outcomeExhausted)
	return "", &RetryError{Op: op, Attempts: attempts, Err: lastErr}
}

// retryAfter returns the server's Retry-After hint carried by err, or zero.
func retryAfter(err error) time.Duration {
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

func (c *Caller) jitter() time.Duration {
	if c.Jitter != nil {
		return c.Jitter()
	}
	if c.Policy.MaxJitter <= 0 {
		return 0
	}
	return rand.N(c.Policy.MaxJitter)
}

func (c *Caller) sleeper() Sleeper {
	if c.Sleeper == nil {
		return TimerSleeper{}
	}
	return c.Sleeper
}

func (c *Caller) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
