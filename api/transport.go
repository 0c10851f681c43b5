package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderRequestID carries a per-request identifier for server-side correlation.
	HeaderRequestID = "X-Request-ID"

	bearerPrefix = "Bearer "
)

// TokenSource yields the current access token; "" means no session.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to [TokenSource].
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// UnauthorizedHandler is invoked for every 401 response before it reaches the
// caller. Implementations must be idempotent: concurrent requests can each
// observe a 401.
type UnauthorizedHandler interface {
	HandleUnauthorized(ctx context.Context, resp *http.Response)
}

// UnauthorizedFunc adapts a function to [UnauthorizedHandler].
type UnauthorizedFunc func(ctx context.Context, resp *http.Response)

func (f UnauthorizedFunc) HandleUnauthorized(ctx context.Context, resp *http.Response) {
	f(ctx, resp)
}

// RequestObserver receives the outcome of each round trip. status is 0 when the
// transport failed before a response arrived.
type RequestObserver interface {
	ObserveRequest(method string, status int, elapsed time.Duration)
}

// Transport attaches the bearer token to outgoing requests and reports 401
// responses to an [UnauthorizedHandler].
type Transport struct {
	Base           http.RoundTripper
	Tokens         TokenSource
	OnUnauthorized UnauthorizedHandler
	Observer       RequestObserver
	Logger         zerolog.Logger
}

// RoundTrip implements http.RoundTripper. The caller's request is never mutated.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())

	if t.Tokens != nil {
		if token := t.Tokens.Token(); token != "" {
			out.Header.Set("Authorization", bearerPrefix+token)
		}
	}
	requestID := out.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
		out.Header.Set(HeaderRequestID, requestID)
	}

	start := time.Now()
	resp, err := t.base().RoundTrip(out)
	elapsed := time.Since(start)

	if err != nil {
		t.observe(out.Method, 0, elapsed)
		t.Logger.Warn().
			Err(err).
			Str("method", out.Method).
			Str("path", out.URL.Path).
			Str("request_id", requestID).
			Dur("duration", elapsed).
			Msg("api request failed")
		return nil, err
	}

	t.observe(out.Method, resp.StatusCode, elapsed)

	var event *zerolog.Event
	if resp.StatusCode >= 400 {
		event = t.Logger.Warn()
	} else {
		event = t.Logger.Debug()
	}
	event.
		Str("method", out.Method).
		Str("path", out.URL.Path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("duration", elapsed).
		Msg("api request")

	if resp.StatusCode == http.StatusUnauthorized && t.OnUnauthorized != nil && !sessionExpirySkipped(req.Context()) {
		t.OnUnauthorized.HandleUnauthorized(req.Context(), resp)
	}

	return resp, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) observe(method string, status int, elapsed time.Duration) {
	if t.Observer != nil {
		t.Observer.ObserveRequest(method, status, elapsed)
	}
}
