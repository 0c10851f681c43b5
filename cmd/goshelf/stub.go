package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/goShelf/internal/stubapi"
	"github.com/MrEthical07/goShelf/middleware"
	"github.com/MrEthical07/goShelf/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// EnvStubSecret supplies the stub API signing secret when -secret is omitted.
const EnvStubSecret = "GOSHELF_STUB_SECRET"

type userFlags []string

func (u *userFlags) String() string { return strings.Join(*u, ",") }

func (u *userFlags) Set(v string) error {
	if strings.Count(v, ":") < 1 {
		return errors.New("want username:password[:role]")
	}
	*u = append(*u, v)
	return nil
}

func parseUser(v string) (session.User, string) {
	parts := strings.SplitN(v, ":", 3)
	u := session.User{Username: parts[0], Role: "MEMBER"}
	if len(parts) == 3 && parts[2] != "" {
		u.Role = parts[2]
	}
	u.Email = u.Username + "@example.com"
	return u, parts[1]
}

// stubAPI serves an in-memory library API until ctx is cancelled.
func (c *cli) stubAPI(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stub-api", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	var users userFlags
	addr := fs.String("addr", "127.0.0.1:8000", "listen address")
	secret := fs.String("secret", "", "token signing secret, at least 16 bytes (or "+EnvStubSecret+")")
	redisAddr := fs.String("redis-addr", "", "redis address for login throttling")
	redisMem := fs.Bool("redis-mem", false, "throttle logins with an in-process miniredis")
	maxAttempts := fs.Int("max-attempts", 5, "failed logins before a username is throttled")
	fs.Var(&users, "user", "seed account as username:password[:role]; repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key := *secret
	if key == "" {
		key = os.Getenv(EnvStubSecret)
	}
	if key == "" {
		key = "goshelf-stub-development-secret"
		c.logger.Warn().Msg("using the built-in development signing secret")
	}

	var rdb redis.UniversalClient
	switch {
	case *redisAddr != "":
		rdb = redis.NewClient(&redis.Options{Addr: *redisAddr})
	case *redisMem:
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		c.logger.Info().Str("addr", mr.Addr()).Msg("using miniredis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	srv, err := stubapi.New(stubapi.Config{
		Secret:   []byte(key),
		Redis:    rdb,
		Throttle: stubapi.ThrottleConfig{MaxAttempts: *maxAttempts},
		Logger:   c.logger,
	})
	if err != nil {
		return err
	}
	if len(users) == 0 {
		users = userFlags{"librarian:librarian:LIBRARIAN", "reader:reader"}
	}
	for _, v := range users {
		u, pw := parseUser(v)
		if _, err := srv.AddUser(u, pw); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Handler:           middleware.RequestLogger(c.logger)(srv),
		ReadHeaderTimeout: 5 * time.Second,
	}
	fmt.Fprintf(c.stdout, "stub library API listening on http://%s/api/\n", ln.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
