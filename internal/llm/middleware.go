package llm

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Middleware decorates a Completer.
type Middleware func(Completer) Completer

// Wrap applies mws to c. The first middleware is the outermost.
func Wrap(c Completer, mws ...Middleware) Completer {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			c = mws[i](c)
		}
	}
	return c
}

// RateLimit throttles outgoing requests to rps with the given burst. A
// non-positive rps disables throttling.
func RateLimit(rps float64, burst int) Middleware {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next Completer) Completer {
		return CompleterFunc(func(ctx context.Context, req Request) (string, error) {
			if err := limiter.Wait(ctx); err != nil {
				return "", err
			}
			return next.Complete(ctx, req)
		})
	}
}

// WithLogging logs each request at debug level and failures at warn.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Completer) Completer {
		return CompleterFunc(func(ctx context.Context, req Request) (string, error) {
			start := time.Now()
			text, err := next.Complete(ctx, req)
			attrs := []any{
				"capability", req.Capability,
				"prompt_chars", len(req.Prompt),
				"elapsed", time.Since(start),
			}
			if err != nil {
				logger.Warn("model call failed", append(attrs, "error", err)...)
				return "", err
			}
			logger.Debug("model call", append(attrs, "response_chars", len(text))...)
			return text, nil
		})
	}
}
