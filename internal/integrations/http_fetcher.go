package integrations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxDownload caps downloads when no explicit limit is configured.
const DefaultMaxDownload = 200 << 20 // 200 MB

// ErrTooLarge is returned when a response body exceeds the fetcher limit.
var ErrTooLarge = errors.New("response exceeds size limit")

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %q: HTTP %d", e.URL, e.StatusCode)
}

// HTTPFetcher retrieves URL contents with a timeout and response size limit.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates a new HTTPFetcher with the given timeout and body
// limit. A non-positive maxBytes uses DefaultMaxDownload.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDownload
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch retrieves the URL body. Extra headers (for example Authorization)
// are sent as given. Bodies larger than the limit fail with ErrTooLarge.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("fetch %q: %w (%d bytes)", url, ErrTooLarge, f.maxBytes)
	}

	return body, nil
}
