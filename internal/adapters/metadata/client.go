// Package metadata fetches movie attributes from an OMDb-compatible provider.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/okian/marquee/internal/domain/attrs"
	"github.com/okian/marquee/internal/domain/types"
	"github.com/okian/marquee/pkg/logger"
	"github.com/okian/marquee/pkg/metrics"
)

const (
	maxBodyBytes = 1 << 20

	// Provider keys with a transport meaning.
	keyResponse = "Response"
	keyError    = "Error"
	keyIMDbID   = "imdbID"
)

// Record is a provider document for one title.
type Record struct {
	IMDbID     string
	Attributes attrs.Bag
}

// Fetcher looks up a title.
type Fetcher interface {
	Fetch(ctx context.Context, title string) (Record, error)
}

// Client is an OMDb HTTP client guarded by a rate limiter and a circuit breaker.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter

	breakerFailures uint32
	breakerTimeout  time.Duration
	cb              *gobreaker.CircuitBreaker[Record]

	logger logger.Logger
}

// New constructs a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:         baseURL,
		http:            &http.Client{},
		timeout:         5 * time.Second,
		limiter:         rate.NewLimiter(rate.Limit(10), 5),
		breakerFailures: 5,
		breakerTimeout:  30 * time.Second,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.cb = gobreaker.NewCircuitBreaker[Record](gobreaker.Settings{
		Name:        "metadata",
		MaxRequests: 1,
		Timeout:     c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.breakerFailures
		},
		// A missing title or a caller giving up says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrTitleNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn(context.Background(), "metadata breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
			metrics.UpdateMetadataBreakerState(int(to))
		},
	})
	metrics.UpdateMetadataBreakerState(int(gobreaker.StateClosed))
	return c
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.cb.State()
}

// Fetch looks up title. A provider "Response":"False" answer yields
// ErrTitleNotFound; every other failure wraps types.ErrUpstream.
func (c *Client) Fetch(ctx context.Context, title string) (Record, error) {
	start := time.Now()
	defer func() {
		metrics.RecordMetadataLatency(float64(time.Since(start).Milliseconds()))
	}()

	if strings.TrimSpace(title) == "" {
		return Record{}, ErrEmptyTitle
	}

	if err := c.limiter.Wait(ctx); err != nil {
		metrics.RecordMetadataFetch(metrics.FetchLimited)
		return Record{}, fmt.Errorf("%w: rate limit: %w", types.ErrUpstream, err)
	}

	rec, err := c.cb.Execute(func() (Record, error) {
		return c.fetch(ctx, title)
	})
	switch {
	case err == nil:
		metrics.RecordMetadataFetch(metrics.FetchOK)
		return rec, nil
	case errors.Is(err, ErrTitleNotFound):
		metrics.RecordMetadataFetch(metrics.FetchNotFound)
		return Record{}, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordMetadataFetch(metrics.FetchRejected)
		return Record{}, fmt.Errorf("%w: %w", types.ErrUpstream, err)
	default:
		metrics.RecordMetadataFetch(metrics.FetchError)
		c.logger.Warn(ctx, "metadata lookup failed", logger.String("title", title), logger.Error(err))
		return Record{}, err
	}
}

func (c *Client) lookupURL(title string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: base url: %w", types.ErrUpstream, err)
	}
	q := u.Query()
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}
	q.Set("t", title)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) fetch(ctx context.Context, title string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, err := c.lookupURL(title)
	if err != nil {
		return Record{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", types.ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", types.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Record{}, fmt.Errorf("%w: read body: %w", types.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Record{}, fmt.Errorf("%w: status %d", types.ErrUpstream, resp.StatusCode)
	}

	bag, err := attrs.ParseBag(body)
	if err != nil {
		return Record{}, fmt.Errorf("%w: decode body: %w", types.ErrUpstream, err)
	}
	if strings.EqualFold(bag.Text(keyResponse), "false") {
		return Record{}, fmt.Errorf("%w: %s", ErrTitleNotFound, bag.Text(keyError))
	}
	return Record{IMDbID: bag.Text(keyIMDbID), Attributes: bag}, nil
}
