package goShelf

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrEthical07/goShelf/api"
	"github.com/MrEthical07/goShelf/session"
)

// Login exchanges credentials for a token and user, persists both, then
// replaces the in-memory session. On any error the current session is left
// as it was, and a rejected credential never triggers the 401 purge.
func (m *Manager) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var resp loginResponse
	err := m.client.Post(api.WithoutSessionExpiry(ctx), m.config.API.LoginPath, loginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		var se *api.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusBadRequest || se.StatusCode == http.StatusUnauthorized) {
			err = fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
			m.metrics.Inc(MetricLoginInvalidCredentials)
		} else {
			err = fmt.Errorf("%w: %w", ErrLoginFailed, err)
			m.metrics.Inc(MetricLoginFailure)
		}
		m.logger.Info().Err(err).Str("username", username).Msg("login rejected")
		m.emitAudit(ctx, AuditLoginFailed, &User{Username: username}, false, err, nil)
		return nil, err
	}

	if resp.Access == "" || resp.User == nil {
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, AuditLoginFailed, &User{Username: username}, false, ErrMalformedLoginResponse, nil)
		return nil, ErrMalformedLoginResponse
	}

	next := State{Token: resp.Access, User: resp.User}
	if err := session.Save(ctx, m.store, next); err != nil {
		m.metrics.Inc(MetricStoreFailure)
		m.metrics.Inc(MetricLoginFailure)
		m.logger.Error().Err(err).Msg("persist session")
		m.rollback(ctx)
		err = storeError(err)
		m.emitAudit(ctx, AuditLoginFailed, resp.User, false, err, nil)
		return nil, err
	}

	m.mu.Lock()
	m.token = next.Token
	m.user = next.User.Clone()
	m.mu.Unlock()

	m.metrics.Inc(MetricLoginSuccess)
	m.logger.Info().Int64("user_id", resp.User.ID).Str("username", resp.User.Username).Msg("login")
	m.emitAudit(ctx, AuditLogin, resp.User, true, nil, nil)

	return &LoginResult{User: resp.User.Clone(), Refresh: resp.Refresh}, nil
}

// rollback restores the persisted session to the in-memory one after a
// partial write.
func (m *Manager) rollback(ctx context.Context) {
	if err := session.Save(ctx, m.store, m.State()); err != nil {
		m.logger.Warn().Err(err).Msg("restore persisted session")
	}
}

// Logout clears the session in memory and in the store, then navigates to the
// entry route. Memory is always cleared and navigation always issued; a store
// failure is returned wrapped in [ErrStoreUnavailable]. Logging out twice is
// harmless.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	user := m.user
	m.token = ""
	m.user = nil
	m.mu.Unlock()

	var result error
	if err := session.Purge(ctx, m.store); err != nil {
		m.metrics.Inc(MetricStoreFailure)
		m.logger.Error().Err(err).Msg("purge session on logout")
		result = storeError(err)
	}

	m.metrics.Inc(MetricLogout)
	m.emitAudit(ctx, AuditLogout, user, result == nil, result, nil)
	m.navigate(ctx, m.config.Routes.EntryRoute)
	return result
}

// UpdateUser persists u and replaces the current user. The token is untouched.
func (m *Manager) UpdateUser(ctx context.Context, u *User) error {
	if u == nil {
		return ErrInvalidUser
	}
	next := u.Clone()
	if err := session.SaveUser(ctx, m.store, next); err != nil {
		m.metrics.Inc(MetricStoreFailure)
		return storeError(err)
	}

	m.mu.Lock()
	m.user = next
	m.mu.Unlock()

	m.metrics.Inc(MetricProfileUpdated)
	m.emitAudit(ctx, AuditProfileUpdated, next, true, nil, nil)
	return nil
}

// Register creates an account. It never changes the current session.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return nil, ErrInvalidRegistration
	}

	var user User
	if err := m.client.Post(api.WithoutSessionExpiry(ctx), m.config.API.RegisterPath, in, &user); err != nil {
		err = fmt.Errorf("%w: %w", ErrRegisterFailed, err)
		m.metrics.Inc(MetricRegisterFailure)
		m.emitAudit(ctx, AuditRegister, &User{Username: in.Username, Email: in.Email}, false, err, nil)
		return nil, err
	}

	m.metrics.Inc(MetricRegisterSuccess)
	m.logger.Info().Str("username", in.Username).Msg("registered")
	m.emitAudit(ctx, AuditRegister, &user, true, nil, nil)
	return &user, nil
}
