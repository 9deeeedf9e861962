package reddit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/resilience"
	lru "github.com/hashicorp/golang-lru/v2"
)

const maxListingBytes = 8 << 20

// StatusError is a non-2xx answer from a source.
type StatusError struct {
	Source string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.Source, e.Code)
}

// errSkipped marks a source passed over because it served the same
// subreddit too recently.
var errSkipped = errors.New("skipped, requested too recently")

type source struct {
	cfg     config.RedditSource
	breaker *resilience.CircuitBreaker
}

// Client fetches hot listings, trying each configured source in order.
type Client struct {
	http        *http.Client
	sources     []*source
	lastRequest *lru.Cache[string, time.Time]
	retry       resilience.RetryConfig
	sourceDelay time.Duration
	metrics     *metrics.Metrics
	now         func() time.Time
	logger      *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for every source.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records fetch outcomes, latencies and breaker states.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient builds a Client for the sources in cfg.
func NewClient(cfg config.RedditConfig, opts ...Option) (*Client, error) {
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("reddit client needs at least one source")
	}
	size := cfg.TrackerSize
	if size <= 0 {
		size = 1024
	}
	tracker, err := lru.New[string, time.Time](size)
	if err != nil {
		return nil, fmt.Errorf("creating request tracker: %w", err)
	}
	c := &Client{
		http:        &http.Client{},
		lastRequest: tracker,
		sourceDelay: cfg.SourceDelay,
		now:         time.Now,
		logger:      slog.Default().With("component", "reddit-client"),
	}
	c.retry = resilience.RetryConfig{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     4 * cfg.RetryDelay,
		ShouldRetry:  retryable,
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, sc := range cfg.Sources {
		sc.BaseURL = strings.TrimRight(sc.BaseURL, "/")
		c.sources = append(c.sources, &source{
			cfg: sc,
			breaker: resilience.NewCircuitBreaker("reddit:"+sc.Name, resilience.CircuitBreakerConfig{
				FailureThreshold: cfg.BreakerFailures,
				ResetTimeout:     cfg.BreakerReset,
				IsFailure:        countsAgainstSource,
				OnStateChange:    c.recordBreaker,
			}),
		})
	}
	return c, nil
}

// Hot returns up to limit posts from the subreddit's hot listing. Sources are
// tried in order; the first success wins. A subreddit that does not exist
// fails fast with apperrors.ErrSubredditNotFound. When every source fails the
// error wraps apperrors.ErrUpstreamUnavailable and names each failure.
func (c *Client) Hot(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	name, err := ValidateSubreddit(subreddit)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	var failures []string
	pause := false
	for _, src := range c.sources {
		if pause && c.sourceDelay > 0 {
			if err := sleep(ctx, c.sourceDelay); err != nil {
				return nil, err
			}
		}
		posts, err := c.fromSource(ctx, src, name, limit)
		if err == nil {
			return posts, nil
		}
		if errors.Is(err, apperrors.ErrSubredditNotFound) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		pause = !errors.Is(err, errSkipped)
		failures = append(failures, fmt.Sprintf("%s: %v", src.cfg.Name, err))
	}
	return nil, fmt.Errorf("r/%s: %w: all sources failed: %s", name, apperrors.ErrUpstreamUnavailable, strings.Join(failures, ", "))
}

func (c *Client) fromSource(ctx context.Context, src *source, subreddit string, limit int) ([]Post, error) {
	key := src.cfg.Name + "|" + subreddit
	now := c.now()
	if last, ok := c.lastRequest.Get(key); ok && now.Sub(last) < src.cfg.MinInterval {
		c.record(src.cfg.Name, "skipped", 0)
		c.logger.Debug("source rate limit active, skipping", "source", src.cfg.Name, "subreddit", subreddit)
		return nil, errSkipped
	}
	c.lastRequest.Add(key, now)

	start := time.Now()
	var posts []Post
	err := src.breaker.Execute(func() error {
		return resilience.Retry(ctx, "reddit:"+src.cfg.Name, c.retry, func() error {
			return resilience.WithTimeout(ctx, src.cfg.Timeout, src.cfg.Name, func(ctx context.Context) error {
				var err error
				posts, err = c.fetch(ctx, src.cfg, subreddit, limit)
				return err
			})
		})
	})
	elapsed := time.Since(start)

	switch {
	case err == nil:
		c.record(src.cfg.Name, "ok", elapsed)
		c.logger.Debug("listing fetched", "source", src.cfg.Name, "subreddit", subreddit, "posts", len(posts))
		return posts, nil
	case errors.Is(err, apperrors.ErrSubredditNotFound):
		c.record(src.cfg.Name, "not_found", elapsed)
	default:
		c.record(src.cfg.Name, "error", elapsed)
		c.logger.Warn("source failed", "source", src.cfg.Name, "subreddit", subreddit, "error", err)
	}
	return nil, err
}

func (c *Client) fetch(ctx context.Context, src config.RedditSource, subreddit string, limit int) ([]Post, error) {
	u := fmt.Sprintf("%s/r/%s/hot.json?limit=%s", src.BaseURL, url.PathEscape(subreddit), strconv.Itoa(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if src.UserAgent != "" {
		req.Header.Set("User-Agent", src.UserAgent)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("r/%s: %w", subreddit, apperrors.ErrSubredditNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Source: src.Name, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		return nil, fmt.Errorf("reading listing: %w", err)
	}
	return ParseListing(body)
}

func (c *Client) record(source, outcome string, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RedditFetchTotal.WithLabelValues(source, outcome).Inc()
	if elapsed > 0 {
		c.metrics.RedditFetchLatency.WithLabelValues(source).Observe(elapsed.Seconds())
	}
}

func (c *Client) recordBreaker(name string, to resilience.State) {
	c.logger.Info("source breaker changed state", "breaker", name, "state", to.String())
	if c.metrics != nil {
		c.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	}
}

// retryable keeps trying on throttling, server errors and transport
// failures. Anything else is the source's final answer.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return !errors.Is(err, apperrors.ErrSubredditNotFound) &&
		!errors.Is(err, ErrBadListing) &&
		!errors.Is(err, context.Canceled)
}

// countsAgainstSource keeps a missing subreddit from tripping the breaker.
func countsAgainstSource(err error) bool {
	return !errors.Is(err, apperrors.ErrSubredditNotFound)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
