package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/julianshen/docgen/internal/prompt"
	"github.com/julianshen/docgen/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCompleter fails with errs in order, then returns text.
type scriptedCompleter struct {
	mu    sync.Mutex
	errs  []error
	text  string
	calls int
}

func (s *scriptedCompleter) Complete(_ context.Context, _ Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return s.text, nil
}

type fakeSleeper struct {
	delays []time.Duration
}

func (f *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	return ctx.Err()
}

func rateLimited() error {
	return &provider.APIError{StatusCode: 429, Body: "slow down"}
}

func newTestCaller(c Completer, s Sleeper) *Caller {
	return &Caller{
		Completer: c,
		Policy:    Policy{MaxAttempts: 5, BaseDelay: 2 * time.Second, MaxJitter: time.Second},
		Sleeper:   s,
		Jitter:    func() time.Duration { return 250 * time.Millisecond },
	}
}

func TestCallSucceedsAfterRateLimits(t *testing.T) {
	for k := 0; k < 5; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			errs := make([]error, k)
			for i := range errs {
				errs[i] = rateLimited()
			}
			comp := &scriptedCompleter{errs: errs, text: "  done \n"}
			sl := &fakeSleeper{}

			got, err := newTestCaller(comp, sl).Call(context.Background(), Request{Capability: prompt.CapSummary, Prompt: "p"})
			require.NoError(t, err)
			assert.Equal(t, "done", got)
			assert.Equal(t, k+1, comp.calls)
			require.Len(t, sl.delays, k)
			for i := 1; i < len(sl.delays); i++ {
				assert.Greater(t, sl.delays[i], sl.delays[i-1])
			}
		})
	}
}

func TestCallBackoffSchedule(t *testing.T) {
	comp := &scriptedCompleter{errs: []error{rateLimited(), rateLimited(), rateLimited()}, text: "ok"}
	sl := &fakeSleeper{}

	_, err := newTestCaller(comp, sl).Call(context.Background(), Request{Capability: prompt.CapReadme})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{
		2*time.Second + 250*time.Millisecond,
		4*time.Second + 250*time.Millisecond,
		8*time.Second + 250*time.Millisecond,
	}, sl.delays)
}

func TestCallHonoursRetryAfter(t *testing.T) {
	comp := &scriptedCompleter{
		errs: []error{
			&provider.APIError{StatusCode: 429, RetryAfter: 10 * time.Second},
			&provider.APIError{StatusCode: 429, RetryAfter: time.Second},
		},
		text: "ok",
	}
	sl := &fakeSleeper{}

	_, err := newTestCaller(comp, sl).Call(context.Background(), Request{Capability: prompt.CapSummary})
	require.NoError(t, err)
	// A longer hint wins; a shorter one falls back to the backoff schedule.
	assert.Equal(t, []time.Duration{
		10 * time.Second,
		4*time.Second + 250*time.Millisecond,
	}, sl.delays)
}

func TestCallExhaustsRetries(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = errors.New("Error code: 429 - rate limit reached")
	}
	comp := &scriptedCompleter{errs: errs}
	sl := &fakeSleeper{}

	_, err := newTestCaller(comp, sl).Call(context.Background(), Request{Capability: prompt.CapComment})
	require.Error(t, err)

	var retryErr *RetryError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, 5, retryErr.Attempts)
	assert.Contains(t, err.Error(), "max retries")
	assert.Contains(t, err.Error(), "comment")
	assert.Equal(t, 5, comp.calls)
	assert.Len(t, sl.delays, 4)
}

func TestCallPermanentErrorNoRetry(t *testing.T) {
	boom := errors.New("invalid api key")
	comp := &scriptedCompleter{errs: []error{boom}, text: "never"}
	sl := &fakeSleeper{}

	_, err := newTestCaller(comp, sl).Call(context.Background(), Request{Capability: prompt.CapSummary})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, comp.calls)
	assert.Empty(t, sl.delays)
}

func TestCallStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	comp := &scriptedCompleter{errs: []error{rateLimited(), rateLimited()}, text: "late"}

	_, err := newTestCaller(comp, &fakeSleeper{}).Call(ctx, Request{Capability: prompt.CapSummary})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, comp.calls)
}

func TestCallSingleAttemptPolicy(t *testing.T) {
	comp := &scriptedCompleter{errs: []error{rateLimited()}}
	c := newTestCaller(comp, &fakeSleeper{})
	c.Policy.MaxAttempts = 0

	_, err := c.Call(context.Background(), Request{Capability: prompt.CapSummary})
	var retryErr *RetryError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, 1, retryErr.Attempts)
}

func TestDefaultJitterWithinBounds(t *testing.T) {
	c := &Caller{Policy: Policy{MaxJitter: 10 * time.Millisecond}}
	for i := 0; i < 100; i++ {
		j := c.jitter()
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, 10*time.Millisecond)
	}
	assert.Zero(t, (&Caller{}).jitter())
}

func TestTimerSleeperHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := TimerSleeper{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, TimerSleeper{}.Sleep(context.Background(), time.Millisecond))
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(rateLimited()))
	assert.True(t, IsRateLimited(errors.New("Rate Limit exceeded")))
	assert.True(t, IsRateLimited(fmt.Errorf("wrapped: %w", rateLimited())))
	assert.False(t, IsRateLimited(&provider.APIError{StatusCode: 500, Body: "oops"}))
	assert.False(t, IsRateLimited(nil))
}
