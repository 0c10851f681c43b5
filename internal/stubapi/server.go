package stubapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goShelf/jwt"
	"github.com/MrEthical07/goShelf/session"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Config configures a [Server].
type Config struct {
	// Secret signs access tokens; at least 16 bytes.
	Secret    []byte
	AccessTTL time.Duration
	// Redis enables login throttling when non-nil.
	Redis    redis.UniversalClient
	Throttle ThrottleConfig
	Logger   zerolog.Logger
	// BcryptCost defaults to bcrypt.MinCost, which keeps tests fast.
	BcryptCost int
}

// Book is one catalogue entry.
type Book struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Available bool   `json:"available"`
}

type account struct {
	user   session.User
	pwHash []byte
	// live holds the jti of every token that still authenticates.
	live map[string]struct{}
}

// Server is an http.Handler serving the library API under /api/.
type Server struct {
	signer   *jwt.Signer
	throttle *loginThrottle
	logger   zerolog.Logger
	cost     int
	router   *mux.Router

	mu       sync.RWMutex
	nextID   int64
	accounts map[string]*account
	byID     map[string]*account
	books    []Book
}

// New returns an empty server with a small seeded catalogue.
func New(cfg Config) (*Server, error) {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 30 * time.Minute
	}
	signer, err := jwt.NewSigner(jwt.SignerConfig{Secret: cfg.Secret, AccessTTL: cfg.AccessTTL, Issuer: "stubapi"})
	if err != nil {
		return nil, err
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.MinCost
	}

	s := &Server{
		signer:   signer,
		throttle: newLoginThrottle(cfg.Redis, cfg.Throttle),
		logger:   cfg.Logger,
		cost:     cfg.BcryptCost,
		accounts: make(map[string]*account),
		byID:     make(map[string]*account),
		books: []Book{
			{ID: 1, Title: "Dune", Author: "Frank Herbert", Available: true},
			{ID: 2, Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", Available: true},
			{ID: 3, Title: "Neuromancer", Author: "William Gibson", Available: false},
		},
	}

	root := mux.NewRouter()
	r := root.PathPrefix("/api").Subrouter()
	r.HandleFunc("/login/", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/register/", s.handleRegister).Methods(http.MethodPost)
	authed := r.NewRoute().Subrouter()
	authed.Use(s.authenticate)
	authed.HandleFunc("/me/", s.handleMe).Methods(http.MethodGet)
	authed.HandleFunc("/me/", s.handleUpdateMe).Methods(http.MethodPatch)
	authed.HandleFunc("/books/", s.handleBooks).Methods(http.MethodGet)
	authed.HandleFunc("/books/{id:[0-9]+}/", s.handleBook).Methods(http.MethodGet)
	s.router = root
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddUser registers u with password and returns the stored copy with its id.
func (s *Server) AddUser(u session.User, password string) (*session.User, error) {
	if strings.TrimSpace(u.Username) == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[u.Username]; ok {
		return nil, fmt.Errorf("username %q already exists", u.Username)
	}
	s.nextID++
	u.ID = s.nextID
	acc := &account{user: *u.Clone(), pwHash: hash, live: make(map[string]struct{})}
	s.accounts[u.Username] = acc
	s.byID[fmt.Sprint(u.ID)] = acc
	return acc.user.Clone(), nil
}

// RevokeAll invalidates every token issued to username so far; the next
// request with one of them gets 401.
func (s *Server) RevokeAll(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[username]; ok {
		clear(acc.live)
	}
}
