package stubapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned when a username exhausted its login budget.
	ErrRateLimited = errors.New("too many login attempts")
	// ErrRedisUnavailable wraps Redis failures in the throttle.
	ErrRedisUnavailable = errors.New("throttle redis unavailable")
)

// ThrottleConfig bounds failed logins per username.
type ThrottleConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
	Prefix      string
}

// loginThrottle counts failed logins in Redis with a cooldown TTL.
type loginThrottle struct {
	redis  redis.UniversalClient
	config ThrottleConfig
}

func newLoginThrottle(client redis.UniversalClient, cfg ThrottleConfig) *loginThrottle {
	if client == nil || cfg.MaxAttempts <= 0 {
		return nil
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "stubapi"
	}
	return &loginThrottle{redis: client, config: cfg}
}

func (l *loginThrottle) key(username string) string {
	return l.config.Prefix + ":login:" + username
}

// Check fails with ErrRateLimited once the budget is spent.
func (l *loginThrottle) Check(ctx context.Context, username string) error {
	if l == nil {
		return nil
	}
	count, err := l.redis.Get(ctx, l.key(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Fail records a failed attempt. The cooldown starts at the first failure.
func (l *loginThrottle) Fail(ctx context.Context, username string) error {
	if l == nil {
		return nil
	}
	key := l.key(username)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *loginThrottle) Reset(ctx context.Context, username string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(username)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
