package goShelf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MrEthical07/goShelf/session"
)

const aliceLogin = `{"access":"tok123","refresh":"r1","user":{"id":1,"username":"alice","email":"alice@example.com","role":"LIBRARIAN","is_superuser":false,"phone":"555-0101"}}`

// fakeLibraryAPI serves the login, register and books endpoints of the library API.
type fakeLibraryAPI struct {
	srv *httptest.Server

	mu            sync.Mutex
	validToken    string
	loginStatus   int
	loginResponse string
	authHeaders   []string
}

func newFakeLibraryAPI(t *testing.T) *fakeLibraryAPI {
	t.Helper()

	f := &fakeLibraryAPI{
		validToken:    "tok123",
		loginStatus:   http.StatusOK,
		loginResponse: aliceLogin,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/login/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status, body := f.loginStatus, f.loginResponse
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
	mux.HandleFunc("/api/register/", func(w http.ResponseWriter, r *http.Request) {
		var in RegisterInput
		if err := decodeJSON(r.Body, &in); err != nil || in.Username == "taken" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"username":["A user with that username already exists."]}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"id":9,"username":%q,"email":%q,"role":"MEMBER"}`, in.Username, in.Email)
	})
	mux.HandleFunc("/api/books/", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		f.mu.Lock()
		f.authHeaders = append(f.authHeaders, auth)
		valid := f.validToken
		f.mu.Unlock()
		if auth != "Bearer "+valid {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Given token not valid for any token type"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":1,"title":"Dune"}]`)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeLibraryAPI) baseURL() string {
	return f.srv.URL + "/api/"
}

func (f *fakeLibraryAPI) setLogin(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginStatus = status
	f.loginResponse = body
}

func (f *fakeLibraryAPI) lastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.authHeaders) == 0 {
		return ""
	}
	return f.authHeaders[len(f.authHeaders)-1]
}

type navRecorder struct {
	mu     sync.Mutex
	routes []string
}

func (n *navRecorder) Navigate(_ context.Context, route string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
	return nil
}

func (n *navRecorder) Routes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

// flakyStore fails writes or clears on demand.
type flakyStore struct {
	*session.MemoryStore

	mu        sync.Mutex
	failSet   bool
	failClear bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: session.NewMemoryStore()}
}

func (s *flakyStore) fail(set, clear bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSet = set
	s.failClear = clear
}

func (s *flakyStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	fail := s.failSet
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: disk full", session.ErrStoreUnavailable)
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *flakyStore) Clear(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	fail := s.failClear
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: read-only", session.ErrStoreUnavailable)
	}
	return s.MemoryStore.Clear(ctx, keys...)
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

func seedSession(t *testing.T, store session.Store, token string, user *User) {
	t.Helper()
	if err := session.Save(context.Background(), store, State{Token: token, User: user}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func testConfig(api *fakeLibraryAPI) Config {
	cfg := DefaultConfig()
	cfg.API.BaseURL = api.baseURL()
	cfg.API.Timeout = 0
	return cfg
}

func buildManager(t *testing.T, b *Builder) *Manager {
	t.Helper()
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build manager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}
