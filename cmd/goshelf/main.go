// Command goshelf drives a library API session from the terminal. The session
// is kept in a file between invocations.
//
//	goshelf [-config goshelf.yaml] [-env .env] <command> [flags]
//
// Commands: login, logout, whoami, register, get, routes, stub-api.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MrEthical07/goShelf"
	"github.com/MrEthical07/goShelf/router"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// EnvPassword supplies the password for login and register when -p is omitted.
const EnvPassword = "GOSHELF_PASSWORD"

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "goshelf: %v\n", err)
		}
		os.Exit(1)
	}
}

type cli struct {
	stdout io.Writer
	stderr io.Writer
	config goShelf.Config
	logger zerolog.Logger
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("goshelf", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "YAML configuration file")
		envPath    = fs.String("env", ".env", "dotenv file loaded before the environment is read")
		session    = fs.String("session", "", "session file (default: user config dir)")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: goshelf [flags] <login|logout|whoami|register|get|routes|stub-api> [args]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envPath, err)
	}

	cfg := goShelf.DefaultConfig()
	if *configPath != "" {
		loaded, err := goShelf.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	// A memory session would not survive the process.
	if cfg.Session.Backend == goShelf.BackendMemory {
		cfg.Session.Backend = goShelf.BackendFile
	}
	if *session != "" {
		cfg.Session.FilePath = *session
	}
	if cfg.Session.Backend == goShelf.BackendFile && cfg.Session.FilePath == "" {
		path, err := defaultSessionPath()
		if err != nil {
			return err
		}
		cfg.Session.FilePath = path
	}

	logger, err := goShelf.NewLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	c := &cli{stdout: stdout, stderr: stderr, config: cfg, logger: logger}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "login":
		return c.login(ctx, rest)
	case "logout":
		return c.logout(ctx)
	case "whoami":
		return c.whoami(ctx)
	case "register":
		return c.register(ctx, rest)
	case "get":
		return c.get(ctx, rest)
	case "routes":
		return c.routes(ctx)
	case "stub-api":
		return c.stubAPI(ctx, rest)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return errUsage
	}
}

func defaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "goshelf")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

func (c *cli) manager(ctx context.Context) (*goShelf.Manager, error) {
	return goShelf.New().
		WithConfig(c.config).
		WithLogger(c.logger).
		WithAuditSink(goShelf.NewLoggerSink(c.logger)).
		WithNavigator(goShelf.NavigatorFunc(func(_ context.Context, route string) error {
			if route == c.config.Routes.EntryRoute {
				fmt.Fprintln(c.stderr, "session expired; run `goshelf login` again")
			}
			return nil
		})).
		BuildContext(ctx)
}

func password(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvPassword)
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	username := fs.String("u", "", "username")
	pass := fs.String("p", "", "password (or "+EnvPassword+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("%w: login requires -u", errUsage)
	}

	m, err := c.manager(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	res, err := m.Login(ctx, *username, password(*pass))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "logged in as %s\n", res.User.Username)
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	m, err := c.manager(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "logged out")
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	m, err := c.manager(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	if !m.IsAuthenticated() {
		fmt.Fprintln(c.stdout, "not logged in")
		return nil
	}
	u := m.User()
	w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	if u != nil {
		fmt.Fprintf(w, "user\t%s\n", u.Username)
		fmt.Fprintf(w, "email\t%s\n", u.Email)
		fmt.Fprintf(w, "role\t%s\n", u.Role)
	}
	fmt.Fprintf(w, "librarian\t%t\n", m.IsLibrarian())
	if claims, err := m.TokenClaims(); err == nil {
		if exp := claims.ExpiresAtTime(); !exp.IsZero() {
			fmt.Fprintf(w, "expires\t%s\n", exp.Format(time.RFC3339))
		}
	}
	return w.Flush()
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	pass := fs.String("p", "", "password (or "+EnvPassword+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := c.manager(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	u, err := m.Register(ctx, goShelf.RegisterInput{Username: *username, Email: *email, Password: password(*pass)})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "registered %s (id %d); log in to continue\n", u.Username, u.ID)
	return nil
}

func (c *cli) get(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: get <path>", errUsage)
	}
	m, err := c.manager(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	var body json.RawMessage
	if err := m.Client().Get(ctx, args[0], &body); err != nil {
		return err
	}
	if len(body) == 0 {
		_, err = fmt.Fprintln(c.stdout, "(no content)")
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(c.stdout)
	return err
}

func (c *cli) routes(ctx context.Context) error {
	m, err := c.manager(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	table, err := router.NewTable(router.DefaultRoutes(),
		router.WithEntryRoute(c.config.Routes.EntryRoute),
		router.WithLandingRoute(c.config.Routes.LandingRoute))
	if err != nil {
		return err
	}
	guard := router.NewGuard(table)
	authed := m.IsAuthenticated()

	w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPATH\tACCESS\tDECISION")
	for _, r := range table.Routes() {
		decision := "allow"
		if !strings.Contains(r.Path, "{") {
			if d := guard.Evaluate(r.Path, authed); !d.Allow {
				decision = "redirect " + d.Route
			}
		} else if r.Access == router.AuthRequired && !authed {
			decision = "redirect " + table.EntryRoute()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Path, r.Access, decision)
	}
	return w.Flush()
}
