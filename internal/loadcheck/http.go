package loadcheck

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// HTTPClient wraps http.Client with timeout and JSON helpers.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// do sends a request and decodes a JSON answer into out when the status is
// one of want. It returns the status code it got.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any, want ...int) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", "loadcheck-"+uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	for _, code := range want {
		if resp.StatusCode != code {
			continue
		}
		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
			}
		}
		return resp.StatusCode, nil
	}
	return resp.StatusCode, fmt.Errorf("%w: %s %s: %d %s",
		ErrUnexpectedCode, method, path, resp.StatusCode, strings.TrimSpace(string(data)))
}

// Ready checks /readyz.
func (c *HTTPClient) Ready(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, "/readyz", nil, nil, http.StatusOK); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return nil
}

// EnsureMovie creates the movie for title, or finds it when it already exists.
// The bool reports whether a new movie was created.
func (c *HTTPClient) EnsureMovie(ctx context.Context, title string) (Movie, bool, error) {
	var m Movie
	code, err := c.do(ctx, http.MethodPost, "/movies", map[string]string{"title": title}, &m,
		http.StatusCreated, http.StatusConflict)
	if err != nil {
		return Movie{}, false, err
	}
	if code == http.StatusCreated {
		return m, true, nil
	}

	// The provider may normalise the title, so match loosely.
	var all []Movie
	if _, err := c.do(ctx, http.MethodGet, "/movies", nil, &all, http.StatusOK); err != nil {
		return Movie{}, false, err
	}
	for _, m := range all {
		if strings.EqualFold(m.Title(), title) {
			return m, false, nil
		}
	}
	return Movie{}, false, fmt.Errorf("%w: %q exists but was not listed", ErrNoMovies, title)
}

// PostComment submits one comment.
func (c *HTTPClient) PostComment(ctx context.Context, movieID int64, body string) error {
	_, err := c.do(ctx, http.MethodPost, "/comments", commentRequest{MovieID: movieID, Body: body}, nil, http.StatusOK)
	return err
}

// Top fetches the leaderboard. With a nil window the all-time board is returned.
func (c *HTTPClient) Top(ctx context.Context, from, to *time.Time) ([]Entry, error) {
	path := "/top"
	if from != nil && to != nil {
		q := url.Values{}
		q.Set("dateFrom", from.UTC().Format(windowLayout))
		q.Set("dateTo", to.UTC().Format(windowLayout))
		path += "?" + q.Encode()
	}
	var out []Entry
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}
