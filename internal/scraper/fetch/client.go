package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"time"

	"golang.org/x/time/rate"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
)

var (
	// ErrCircuitOpen is returned without any network call while a domain's breaker is open
	ErrCircuitOpen = errors.New("circuit open")
	// ErrRetriesExhausted wraps the last error once every attempt has failed
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 10 << 20

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Retryable reports whether the status is worth another attempt
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Engine fetches the HTML of a page
type Engine interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Options configures a Client
type Options struct {
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	RequestDelay   time.Duration
	Headers        map[string]string
}

// OptionsFromConfig builds client options from the scraper section of the config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		UserAgent:      cfg.Scraper.UserAgent,
		Timeout:        cfg.Scraper.RequestTimeout,
		MaxRetries:     cfg.Scraper.MaxRetries,
		RetryBaseDelay: cfg.Scraper.RetryBaseDelay,
		RequestDelay:   cfg.Scraper.RequestDelay,
	}
}

// Client is an HTTP client for a single source. Requests are spaced by a fixed
// delay and failed attempts are retried with a linearly increasing wait of
// attempt × RetryBaseDelay.
type Client struct {
	http     *http.Client
	opts     Options
	limiter  *rate.Limiter
	breakers *Breakers
	logger   logging.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client. breakers may be shared across clients or nil.
func NewClient(opts Options, breakers *Breakers, logger logging.Logger) *Client {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	limit := rate.Inf
	if opts.RequestDelay > 0 {
		limit = rate.Every(opts.RequestDelay)
	}

	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Client{
		http:     &http.Client{Timeout: opts.Timeout},
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
		breakers: breakers,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Fetch returns the body of url as a string
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	body, err := c.Get(ctx, url, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, headers, nil)
}

// GetJSON performs a GET request and decodes the JSON response into v
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, v interface{}) error {
	body, err := c.Get(ctx, url, withJSONAccept(headers))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// PostJSON sends payload as JSON and decodes the JSON response into v
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload, v interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request for %s: %w", url, err)
	}

	h := withJSONAccept(headers)
	h["Content-Type"] = "application/json"

	body, err := c.do(ctx, http.MethodPost, url, h, data)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, headers map[string]string, payload []byte) ([]byte, error) {
	var body []byte
	err := c.Run(ctx, url, func(ctx context.Context) error {
		var err error
		body, err = c.attempt(ctx, method, url, headers, payload)
		return err
	})
	return body, err
}

// Run executes fn under this client's pacing, circuit breaker and retry policy.
// It lets other engines (browser, hosted scraping) share the source's budget.
func (c *Client) Run(ctx context.Context, url string, fn func(ctx context.Context) error) error {
	domain := domainOf(url)
	var lastErr error

	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		if !c.breakers.Allow(domain) {
			return fmt.Errorf("%w for %s", ErrCircuitOpen, domain)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			c.breakers.RecordSuccess(domain)
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !retryable(err) {
			return err
		}

		c.breakers.RecordFailure(domain)

		c.logger.Warn("Request attempt failed", map[string]interface{}{
			"url":         url,
			"attempt":     attempt,
			"max_retries": c.opts.MaxRetries,
			"error":       err.Error(),
		})

		if attempt < c.opts.MaxRetries {
			if err := c.sleep(ctx, time.Duration(attempt)*c.opts.RetryBaseDelay); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, c.opts.MaxRetries, lastErr)
}

// Paced returns an Engine that runs e through c's pacing and retry policy
func (c *Client) Paced(e Engine) Engine {
	if e == nil {
		return c
	}
	return &pacedEngine{client: c, engine: e}
}

type pacedEngine struct {
	client *Client
	engine Engine
}

func (p *pacedEngine) Fetch(ctx context.Context, url string) (string, error) {
	var html string
	err := p.client.Run(ctx, url, func(ctx context.Context) error {
		var err error
		html, err = p.engine.Fetch(ctx, url)
		if err != nil {
			return transient(err)
		}
		return nil
	})
	return html, err
}

// transientError marks an engine failure (render timeout, hosted scrape
// error) as worth another attempt
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transient(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return err
	}
	return &transientError{err: err}
}

func (c *Client) attempt(ctx context.Context, method, url string, headers map[string]string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

// retryable treats network errors, timeouts, 429, 5xx and engine failures as
// transient. Anything else, such as a malformed URL, fails at once.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}

	// *url.Error satisfies net.Error, but a URL that does not parse never will
	var urlErr *neturl.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var transientErr *transientError
	return errors.As(err, &transientErr)
}

func withJSONAccept(headers map[string]string) map[string]string {
	h := make(map[string]string, len(headers)+2)
	h["Accept"] = "application/json"
	for k, v := range headers {
		h[k] = v
	}
	return h
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
