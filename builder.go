package goShelf

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goShelf/api"
	"github.com/MrEthical07/goShelf/internal/audit"
	"github.com/MrEthical07/goShelf/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles a [Manager]. A Builder can be used for one Build.
type Builder struct {
	config    Config
	store     session.Store
	redis     redis.UniversalClient
	navigator Navigator
	logger    *zerolog.Logger
	auditSink AuditSink
	transport http.RoundTripper

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore supplies the session store, overriding Config.Session.Backend.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithRedis supplies the client used by the redis backend. The Manager does
// not close a client it did not create.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithNavigator sets the sink for logout and expiry navigation commands.
func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

// WithLogger sets the logger. Without one the Manager does not log; see
// [NewLogger].
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithAuditSink sets the sink fed by the audit dispatcher. Audit must also be
// enabled in the config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithHTTPTransport sets the RoundTripper beneath the authorizing transport.
func (b *Builder) WithHTTPTransport(rt http.RoundTripper) *Builder {
	b.transport = rt
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, creates the store and client, and
// hydrates the session from the store.
func (b *Builder) Build() (*Manager, error) {
	return b.BuildContext(context.Background())
}

// BuildContext is Build with a context for the initial store read.
func (b *Builder) BuildContext(ctx context.Context) (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	m := &Manager{
		config:    cfg,
		navigator: b.navigator,
		logger:    logger,
		metrics:   NewMetrics(cfg.Metrics),
		now:       time.Now,
	}

	store, closer, err := b.buildStore(cfg)
	if err != nil {
		return nil, err
	}
	m.store = store
	if closer != nil {
		m.closers = append(m.closers, closer)
	}

	opts := []api.Option{api.WithLogger(logger), api.WithObserver(m)}
	if b.transport != nil {
		opts = append(opts, api.WithBaseTransport(b.transport))
	}
	client, err := api.NewClient(api.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
	}, m, m, opts...)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, err
	}
	m.client = client

	m.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	m.hydrate(ctx)

	b.built = true
	return m, nil
}

func (b *Builder) buildStore(cfg Config) (session.Store, func() error, error) {
	if b.store != nil {
		return b.store, nil, nil
	}

	switch cfg.Session.Backend {
	case BackendMemory:
		return session.NewMemoryStore(), nil, nil
	case BackendFile:
		return session.NewFileStore(cfg.Session.FilePath), nil, nil
	case BackendRedis:
		rc := cfg.Session.Redis
		if b.redis != nil {
			return session.NewRedisStore(b.redis, rc.Prefix, rc.TTL, rc.Sliding), nil, nil
		}
		if rc.Addr == "" {
			return nil, nil, fmt.Errorf("%w: Session Redis Addr is required without a client", ErrInvalidConfig)
		}
		client := redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		return session.NewRedisStore(client, rc.Prefix, rc.TTL, rc.Sliding), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown session backend %q", ErrInvalidConfig, cfg.Session.Backend)
	}
}
