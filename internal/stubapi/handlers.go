package stubapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/goShelf/jwt"
	"github.com/MrEthical07/goShelf/session"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

type accountContextKey struct{}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"username and password are required"}})
		return
	}

	ctx := r.Context()
	if err := s.throttle.Check(ctx, body.Username); err != nil {
		s.throttleError(w, err)
		return
	}

	s.mu.RLock()
	acc, ok := s.accounts[body.Username]
	var hash []byte
	if ok {
		hash = acc.pwHash
	}
	s.mu.RUnlock()

	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(body.Password)) != nil {
		if err := s.throttle.Fail(ctx, body.Username); err != nil {
			s.logger.Warn().Err(err).Msg("record failed login")
		}
		s.logger.Info().Str("username", body.Username).Msg("login rejected")
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	if err := s.throttle.Reset(ctx, body.Username); err != nil {
		s.logger.Warn().Err(err).Msg("reset login throttle")
	}

	s.mu.RLock()
	user := acc.user.Clone()
	s.mu.RUnlock()

	token, err := s.signer.Issue(strconv.FormatInt(user.ID, 10))
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	claims, err := jwt.Inspect(token)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	s.mu.Lock()
	acc.live[claims.JTI()] = struct{}{}
	s.mu.Unlock()

	s.logger.Info().Str("username", user.Username).Msg("login")
	writeJSON(w, http.StatusOK, map[string]any{
		"access":  token,
		"refresh": uuid.NewString(),
		"user":    user,
	})
}

func (s *Server) throttleError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrRateLimited) {
		writeDetail(w, http.StatusTooManyRequests, "Request was throttled.")
		return
	}
	s.logger.Error().Err(err).Msg("login throttle")
	writeDetail(w, http.StatusServiceUnavailable, "throttle unavailable")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed body")
		return
	}
	user, err := s.AddUser(session.User{Username: body.Username, Email: body.Email, Role: "MEMBER"}, body.Password)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {err.Error()}})
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// authenticate admits requests carrying a live, verified bearer token.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		claims, err := s.signer.Verify(raw)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}

		s.mu.RLock()
		acc, found := s.byID[string(claims.UserID)]
		live := false
		if found {
			_, live = acc.live[claims.JTI()]
		}
		s.mu.RUnlock()
		if !live {
			writeDetail(w, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountContextKey{}, acc)))
	})
}

func (s *Server) currentAccount(r *http.Request) *account {
	acc, _ := r.Context().Value(accountContextKey{}).(*account)
	return acc
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	acc := s.currentAccount(r)
	s.mu.RLock()
	user := acc.user.Clone()
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var patch struct {
		Email *string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed body")
		return
	}
	acc := s.currentAccount(r)
	s.mu.Lock()
	if patch.Email != nil {
		acc.user.Email = *patch.Email
	}
	user := acc.user.Clone()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleBooks(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	books := append([]Book(nil), s.books...)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.books {
		if b.ID == id {
			writeJSON(w, http.StatusOK, b)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Not found.")
}
