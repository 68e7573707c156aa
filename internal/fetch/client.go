// Package fetch downloads publications and probes remote files over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"
)

// DefaultUserAgent identifies the crawler to the publisher.
const DefaultUserAgent = "bpsloom/1.0 (+https://github.com/KaramelBytes/bpsloom-cli)"

// DefaultRobotsTargets are the robots.txt files checked by CheckRobots.
var DefaultRobotsTargets = []string{
	"https://observatorio.bps.gub.uy/robots.txt",
	"https://www.bps.gub.uy/robots.txt",
	"https://bps.gub.uy/robots.txt",
}

// Config holds the client settings. It is copied into the Client at construction.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxBytes    int64 // response body cap; 0 means 256 MiB
}

// DefaultConfig mirrors the defaults of the configuration file.
func DefaultConfig() Config {
	return Config{
		UserAgent:   DefaultUserAgent,
		Timeout:     20 * time.Second,
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 256 << 20
	}
	return c
}

// Client performs GET and size-probe requests with retry and backoff.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

// New returns a client for cfg. A nil logger uses slog.Default.
func New(cfg Config, log *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}, log: log}
}

// Config returns the settings the client was built with.
func (c *Client) Config() Config { return c.cfg }

// Resource is a downloaded document.
type Resource struct {
	URL         string // final URL after redirects
	ContentType string
	Data        []byte
}

// Get downloads url. Network errors, 429 and 5xx responses are retried with exponential
// backoff capped at MaxDelay; a Retry-After header overrides the backoff.
func (c *Client) Get(ctx context.Context, url string) (*Resource, error) {
	var out *Resource
	err := c.do(ctx, http.MethodGet, url, nil, func(resp *http.Response) error {
		body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBytes+1))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if int64(len(body)) > c.cfg.MaxBytes {
			return fmt.Errorf("response larger than %d bytes", c.cfg.MaxBytes)
		}
		out = &Resource{URL: resp.Request.URL.String(), ContentType: resp.Header.Get("Content-Type"), Data: body}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("downloaded", "url", url, "bytes", len(out.Data), "content_type", out.ContentType)
	return out, nil
}

// do runs one request with retries and hands a 2xx response to handle.
func (c *Client) do(ctx context.Context, method, url string, header http.Header, handle func(*http.Response) error) error {
	backoff := c.cfg.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		for k, vals := range header {
			for _, v := range vals {
				req.Header.Add(k, v)
			}
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			if !isRetryableNetErr(err) || attempt == c.cfg.MaxAttempts {
				return lastErr
			}
			c.log.Warn("request failed; retrying", "url", url, "attempt", attempt, "error", err)
			if err := sleep(ctx, c.capped(withJitter(backoff))); err != nil {
				return err
			}
			backoff *= 2
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			err := handle(resp)
			resp.Body.Close()
			return err
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 8<<10))
		resp.Body.Close()
		lastErr = &StatusError{URL: url, Method: method, StatusCode: resp.StatusCode}
		if !retryableStatus(resp.StatusCode) || attempt == c.cfg.MaxAttempts {
			return lastErr
		}
		wait := c.capped(withJitter(backoff))
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := parseRetryAfterSeconds(ra); err == nil && secs > 0 {
				wait = c.capped(time.Duration(secs) * time.Second)
			}
		}
		c.log.Warn("retryable status", "url", url, "status", resp.StatusCode, "attempt", attempt, "wait", wait.String())
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		backoff *= 2
	}
	return lastErr
}

func (c *Client) capped(d time.Duration) time.Duration {
	if d > c.cfg.MaxDelay {
		return c.cfg.MaxDelay
	}
	return d
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// parseRetryAfterSeconds reads Retry-After as seconds or an HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	// jitter factor in [0.8, 1.2)
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
