// internal/api/client.go
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single snapshot request when none is configured.
const DefaultTimeout = 500 * time.Millisecond

// maxSnapshotSize caps how much of a response body is read.
const maxSnapshotSize = 8 << 20

// FetchError covers every way a snapshot request can fail: transport errors,
// timeouts and non-200 responses.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client fetches game-state snapshots from the observer client's local endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// New creates a new snapshot client.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) URL() string {
	return c.url
}

// FetchSnapshot performs one GET and returns the raw body.
func (c *Client) FetchSnapshot(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &FetchError{URL: c.url, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: c.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return nil, &FetchError{URL: c.url, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// Healthcheck checks if the snapshot endpoint is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	if _, err := c.FetchSnapshot(ctx); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}
