package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ErrRedirectLoop is returned when guard redirects do not settle.
var ErrRedirectLoop = errors.New("navigation redirect loop")

const maxRedirects = 8

// AuthState reports whether a session is currently authenticated. The session
// manager satisfies it.
type AuthState interface {
	IsAuthenticated() bool
}

// AuthFunc adapts a function to [AuthState].
type AuthFunc func() bool

func (f AuthFunc) IsAuthenticated() bool { return f() }

// Listener observes every settled navigation.
type Listener func(from, to Decision)

// Router tracks the current location of a front end and routes every
// navigation through a [Guard]. Safe for concurrent use.
type Router struct {
	guard  *Guard
	auth   AuthState
	logger zerolog.Logger

	mu        sync.Mutex
	current   Decision
	listeners []Listener
}

// NewRouter creates a router with no current location.
func NewRouter(guard *Guard, auth AuthState, logger zerolog.Logger) *Router {
	return &Router{guard: guard, auth: auth, logger: logger}
}

// OnNavigate registers l for every settled navigation.
func (r *Router) OnNavigate(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Current returns the last settled navigation.
func (r *Router) Current() Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Push navigates to path, following guard redirects until a destination is
// allowed. The settled decision becomes the current location.
func (r *Router) Push(ctx context.Context, path string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	authenticated := r.auth != nil && r.auth.IsAuthenticated()
	target := path
	for i := 0; i < maxRedirects; i++ {
		d := r.guard.Evaluate(target, authenticated)
		if d.Allow {
			r.settle(d)
			return d, nil
		}
		r.logger.Debug().
			Str("from", target).
			Str("to", d.Path).
			Str("reason", d.Reason).
			Msg("navigation redirected")
		target = d.Path
	}
	return Decision{}, fmt.Errorf("%w: %s", ErrRedirectLoop, path)
}

// Navigate performs a full navigation to the named route. It is the command
// sink for the session manager's logout and expiry redirects.
func (r *Router) Navigate(ctx context.Context, name string) error {
	path, err := r.guard.table.URL(name)
	if err != nil {
		return err
	}
	_, err = r.Push(ctx, path)
	return err
}

func (r *Router) settle(d Decision) {
	r.mu.Lock()
	from := r.current
	r.current = d
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listeners {
		l(from, d)
	}
}
