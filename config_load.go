package goShelf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by [Config.ApplyEnv].
const (
	EnvAPIBaseURL     = "GOSHELF_API_BASE_URL"
	EnvAPITimeout     = "GOSHELF_API_TIMEOUT"
	EnvSessionBackend = "GOSHELF_SESSION_BACKEND"
	EnvSessionFile    = "GOSHELF_SESSION_FILE"
	EnvDropExpired    = "GOSHELF_SESSION_DROP_EXPIRED"
	EnvRedisAddr      = "GOSHELF_REDIS_ADDR"
	EnvRedisPassword  = "GOSHELF_REDIS_PASSWORD"
	EnvRedisDB        = "GOSHELF_REDIS_DB"
	EnvRedisPrefix    = "GOSHELF_REDIS_PREFIX"
	EnvRedisTTL       = "GOSHELF_REDIS_TTL"
	EnvLibrarianRole  = "GOSHELF_LIBRARIAN_ROLE"
	EnvLogLevel       = "GOSHELF_LOG_LEVEL"
	EnvLogPretty      = "GOSHELF_LOG_PRETTY"
)

// LoadConfig reads a YAML file over [DefaultConfig] and validates the result.
// Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over [DefaultConfig] and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: decode yaml: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides c with any GOSHELF_* variables present in the process
// environment. It does not validate.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		*dst = d
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		*dst = b
		return nil
	}

	str(EnvAPIBaseURL, &c.API.BaseURL)
	if err := dur(EnvAPITimeout, &c.API.Timeout); err != nil {
		return err
	}
	if v, ok := lookup(EnvSessionBackend); ok {
		c.Session.Backend = StoreBackend(v)
	}
	str(EnvSessionFile, &c.Session.FilePath)
	if err := boolean(EnvDropExpired, &c.Session.DropExpiredOnLoad); err != nil {
		return err
	}
	str(EnvRedisAddr, &c.Session.Redis.Addr)
	str(EnvRedisPassword, &c.Session.Redis.Password)
	if v, ok := lookup(EnvRedisDB); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvRedisDB, err)
		}
		c.Session.Redis.DB = db
	}
	str(EnvRedisPrefix, &c.Session.Redis.Prefix)
	if err := dur(EnvRedisTTL, &c.Session.Redis.TTL); err != nil {
		return err
	}
	str(EnvLibrarianRole, &c.Roles.LibrarianRole)
	str(EnvLogLevel, &c.Log.Level)
	return boolean(EnvLogPretty, &c.Log.Pretty)
}
