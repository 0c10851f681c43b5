package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the API endpoint settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Option customizes a [Client].
type Option func(*Client)

// WithBaseTransport sets the RoundTripper the interceptor wraps.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport.Base = rt }
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.transport.Logger = logger }
}

// WithObserver sets the round-trip observer.
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.transport.Observer = o }
}

// Client issues JSON requests against the library API through a [Transport].
// It is safe for concurrent use.
type Client struct {
	base      *url.URL
	userAgent string
	transport *Transport
	http      *http.Client
}

// NewClient builds a client rooted at cfg.BaseURL. tokens and onUnauthorized may
// be nil for anonymous use.
func NewClient(cfg Config, tokens TokenSource, onUnauthorized UnauthorizedHandler, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https", ErrInvalidBaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	c := &Client{
		base:      base,
		userAgent: cfg.UserAgent,
		transport: &Transport{
			Tokens:         tokens,
			OnUnauthorized: onUnauthorized,
			Logger:         zerolog.Nop(),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = &http.Client{
		Transport: c.transport,
		Timeout:   cfg.Timeout,
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// HTTPClient exposes the intercepted *http.Client for callers that need raw
// responses (file downloads, streaming).
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Resolve joins path onto the base URL. Paths are relative to the API root, so
// "login/" and "/login/" resolve to the same endpoint.
func (c *Client) Resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, err
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("api path %q must be relative", path)
	}
	return c.base.ResolveReference(ref), nil
}

// Do sends body (JSON-encoded when non-nil) and decodes a 2xx response into out
// (when non-nil). A 204 or an empty body decodes to nothing. Non-2xx responses
// return a [*StatusError].
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	target, err := c.Resolve(path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		se := &StatusError{
			StatusCode: resp.StatusCode,
			Method:     method,
			URL:        target.String(),
			Body:       data,
		}
		if resp.Request != nil {
			se.RequestID = resp.Request.Header.Get(HeaderRequestID)
		}
		return se
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	// An empty 2xx body leaves out untouched.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s response: %w", method, target.Path, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}
