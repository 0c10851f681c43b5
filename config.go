package goShelf

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the full Manager configuration. Start from [DefaultConfig].
type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Routes  RoutesConfig  `yaml:"routes"`
	Roles   RolesConfig   `yaml:"roles"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig locates the library API.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	// LoginPath and RegisterPath are relative to BaseURL.
	LoginPath    string `yaml:"login_path"`
	RegisterPath string `yaml:"register_path"`
}

// StoreBackend selects the session.Store built by the Builder.
type StoreBackend string

const (
	// BackendMemory keeps the session in process memory only.
	BackendMemory StoreBackend = "memory"
	// BackendFile persists the session in a 0600 JSON file.
	BackendFile StoreBackend = "file"
	// BackendRedis persists the session in Redis under a key prefix.
	BackendRedis StoreBackend = "redis"
)

// SessionConfig controls persistence.
type SessionConfig struct {
	Backend  StoreBackend `yaml:"backend"`
	FilePath string       `yaml:"file_path"`
	Redis    RedisConfig  `yaml:"redis"`
	// DropExpiredOnLoad treats a persisted JWT whose exp has passed as absent
	// when the Manager is built.
	DropExpiredOnLoad bool `yaml:"drop_expired_on_load"`
}

// RedisConfig configures the Redis backend. Addr is ignored when the Builder
// is given a client.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
	Sliding  bool          `yaml:"sliding"`
}

// RoutesConfig names the routes the Manager navigates to.
type RoutesConfig struct {
	EntryRoute   string `yaml:"entry"`
	LandingRoute string `yaml:"landing"`
}

// RolesConfig names the role that grants librarian access.
type RolesConfig struct {
	LibrarianRole string `yaml:"librarian"`
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"latency_histograms"`
}

// LogConfig controls the logger built by [NewLogger].
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultConfig returns the configuration for a local library API.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:      "http://localhost:8000/api/",
			Timeout:      15 * time.Second,
			UserAgent:    "goshelf",
			LoginPath:    "login/",
			RegisterPath: "register/",
		},
		Session: SessionConfig{
			Backend: BackendMemory,
			Redis: RedisConfig{
				Prefix: "goshelf",
			},
		},
		Routes: RoutesConfig{
			EntryRoute:   "login",
			LandingRoute: "dashboard",
		},
		Roles: RolesConfig{
			LibrarianRole: "LIBRARIAN",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate reports the first invalid setting. Every error wraps [ErrInvalidConfig].
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	// API
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API BaseURL %q must be an absolute http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}
	if strings.TrimSpace(c.API.LoginPath) == "" {
		return errors.New("API LoginPath must be set")
	}
	if strings.TrimSpace(c.API.RegisterPath) == "" {
		return errors.New("API RegisterPath must be set")
	}

	// Session
	switch c.Session.Backend {
	case BackendMemory, BackendRedis:
	case BackendFile:
		if strings.TrimSpace(c.Session.FilePath) == "" {
			return errors.New("Session FilePath is required for the file backend")
		}
	default:
		return fmt.Errorf("Session Backend must be one of memory, file, redis (got %q)", c.Session.Backend)
	}
	if c.Session.Redis.TTL < 0 {
		return errors.New("Session Redis TTL must be >= 0")
	}
	if c.Session.Redis.Sliding && c.Session.Redis.TTL == 0 {
		return errors.New("Session Redis Sliding requires a TTL")
	}
	if c.Session.Redis.DB < 0 {
		return errors.New("Session Redis DB must be >= 0")
	}

	// Routes
	if strings.TrimSpace(c.Routes.EntryRoute) == "" {
		return errors.New("Routes EntryRoute must be set")
	}
	if strings.TrimSpace(c.Routes.LandingRoute) == "" {
		return errors.New("Routes LandingRoute must be set")
	}

	// Roles
	if strings.TrimSpace(c.Roles.LibrarianRole) == "" {
		return errors.New("Roles LibrarianRole must be set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Log
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
