package goShelf

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MrEthical07/goShelf/api"
	"github.com/MrEthical07/goShelf/internal/audit"
	"github.com/MrEthical07/goShelf/jwt"
	"github.com/MrEthical07/goShelf/session"
	"github.com/rs/zerolog"
)

// Manager owns the token and user of the signed-in user. It is the
// [api.TokenSource], [api.UnauthorizedHandler] and [api.RequestObserver] of its
// own client, and satisfies router.AuthState.
type Manager struct {
	config    Config
	store     session.Store
	client    *api.Client
	navigator Navigator
	logger    zerolog.Logger
	metrics   *Metrics
	audit     *audit.Dispatcher
	closers   []func() error
	now       func() time.Time

	mu    sync.RWMutex
	token string
	user  *User

	closeOnce sync.Once
	closeErr  error
}

// Token returns the current access token, or "" when unauthenticated.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// User returns a copy of the current user, or nil.
func (m *Manager) User() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.Clone()
}

// State returns a copy of the current session.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State{Token: m.token, User: m.user.Clone()}
}

// IsAuthenticated reports whether a token is held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != ""
}

// IsLibrarian reports whether the current user has the librarian role or is a
// superuser.
func (m *Manager) IsLibrarian() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isLibrarian(m.user, m.config.Roles.LibrarianRole)
}

func isLibrarian(u *User, role string) bool {
	if u == nil {
		return false
	}
	return u.Role == role || u.IsSuperuser
}

// Client returns the authorized API client. Every request made through it
// carries the current token, and a 401 response purges the session.
func (m *Manager) Client() *api.Client {
	return m.client
}

// Config returns the configuration the Manager was built with.
func (m *Manager) Config() Config {
	return m.config
}

// TokenClaims inspects the current token without verifying it.
func (m *Manager) TokenClaims() (*jwt.Claims, error) {
	token := m.Token()
	if token == "" {
		return nil, ErrNoToken
	}
	return jwt.Inspect(token)
}

// MetricsSnapshot returns the Manager's counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped()
}

// ObserveRequest records one API round trip.
func (m *Manager) ObserveRequest(_ string, status int, elapsed time.Duration) {
	m.metrics.Inc(MetricRequestTotal)
	switch {
	case status == http.StatusUnauthorized:
		m.metrics.Inc(MetricRequestUnauthorized)
	case status >= 500:
		m.metrics.Inc(MetricRequestServerError)
	}
	m.metrics.Observe(MetricRequestLatency, elapsed)
}

// HandleUnauthorized purges the session after the API rejected a token, then
// navigates to the entry route. It runs before the failing call returns.
func (m *Manager) HandleUnauthorized(ctx context.Context, resp *http.Response) {
	ctx = context.WithoutCancel(ctx)

	m.mu.Lock()
	hadToken := m.token != ""
	user := m.user
	m.token = ""
	m.user = nil
	m.mu.Unlock()

	path := ""
	if resp != nil && resp.Request != nil && resp.Request.URL != nil {
		path = resp.Request.URL.Path
	}

	if err := session.Purge(ctx, m.store); err != nil {
		m.metrics.Inc(MetricStoreFailure)
		m.logger.Error().Err(err).Msg("purge expired session")
	}
	if hadToken {
		m.metrics.Inc(MetricSessionExpired)
		m.logger.Info().Str("path", path).Msg("session expired")
		m.emitAudit(ctx, AuditSessionExpired, user, true, nil, map[string]string{"path": path})
	}
	m.navigate(ctx, m.config.Routes.EntryRoute)
}

// Close stops the audit dispatcher, draining queued events, and closes any
// Redis client the Builder created. Close is idempotent.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.audit.Close()
		var errs []error
		for _, c := range m.closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		m.closeErr = errors.Join(errs...)
	})
	return m.closeErr
}

func (m *Manager) navigate(ctx context.Context, route string) {
	if m.navigator == nil {
		m.logger.Debug().Str("route", route).Msg("navigation dropped: no navigator")
		return
	}
	if err := m.navigator.Navigate(ctx, route); err != nil {
		m.metrics.Inc(MetricNavigationFailure)
		m.logger.Warn().Err(err).Str("route", route).Msg("navigation failed")
	}
}

// hydrate loads the persisted session. Unreadable state is discarded, never
// returned.
func (m *Manager) hydrate(ctx context.Context) {
	st, err := session.Load(ctx, m.store)
	if err != nil {
		m.metrics.Inc(MetricSessionCorrupt)
		m.logger.Warn().Err(err).Msg("discarding unreadable persisted session")
		if errors.Is(err, session.ErrCorruptUser) {
			if perr := session.Purge(ctx, m.store); perr != nil {
				m.logger.Warn().Err(perr).Msg("clear corrupt session")
			}
		}
		m.emitAudit(ctx, AuditSessionCorrupt, nil, false, err, nil)
		return
	}

	if st.Token != "" && m.config.Session.DropExpiredOnLoad {
		if claims, err := jwt.Inspect(st.Token); err == nil && claims.Expired(m.now()) {
			m.logger.Info().Time("exp", claims.ExpiresAtTime()).Msg("dropping expired persisted session")
			if perr := session.Purge(ctx, m.store); perr != nil {
				m.logger.Warn().Err(perr).Msg("clear expired session")
			}
			m.emitAudit(ctx, AuditSessionExpired, st.User, true, nil, map[string]string{"reason": "expired_on_load"})
			return
		}
	}

	m.mu.Lock()
	m.token = st.Token
	m.user = st.User
	m.mu.Unlock()

	if st.Token != "" {
		m.metrics.Inc(MetricSessionRestored)
		m.logger.Debug().Msg("session restored")
	}
}

func storeError(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
