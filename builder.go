package storefront

import (
	"errors"
	"log/slog"

	"github.com/MrEthical07/storefront/checkout"
	"github.com/MrEthical07/storefront/internal/audit"
	"github.com/MrEthical07/storefront/jwt"
	"github.com/MrEthical07/storefront/tokenstore"
	"github.com/MrEthical07/storefront/transport"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Client]. Each Builder builds once.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	transport transport.Transport
	persister tokenstore.Persister
	provider  checkout.PaymentProvider
	logger    *slog.Logger
	eventSink EventSink

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client used when Session.Persistence is "redis".
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTransport replaces the HTTP transport built from API config. Tests use it to
// route requests in process.
func (b *Builder) WithTransport(t transport.Transport) *Builder {
	b.transport = t
	return b
}

// WithPersister overrides Session.Persistence with a custom refresh-token backend.
func (b *Builder) WithPersister(p tokenstore.Persister) *Builder {
	b.persister = p
	return b
}

// WithPaymentProvider sets the provider that confirms card payments at checkout.
func (b *Builder) WithPaymentProvider(p checkout.PaymentProvider) *Builder {
	b.provider = p
	return b
}

// WithLogger sets the structured logger. A nil logger keeps slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithEventSink sets the event consumer. Events are only dispatched when
// Events.Enabled is set.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram. It has no effect
// unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the client. It performs no I/O.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	persister, err := b.buildPersister(cfg.Session)
	if err != nil {
		return nil, err
	}

	method, err := cfg.signingMethod()
	if err != nil {
		return nil, err
	}
	decoder, err := jwt.NewDecoder(jwt.DecoderConfig{
		SigningMethod: method,
		Key:           cloneBytes(cfg.JWT.VerifyKey),
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		return nil, err
	}

	base := b.transport
	if base == nil {
		base = transport.NewHTTP(transport.HTTPConfig{
			BaseURL:   cfg.API.BaseURL,
			Timeout:   cfg.API.Timeout,
			UserAgent: cfg.API.UserAgent,
		})
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	c := newClient(clientDeps{
		config:    cfg,
		logger:    logger,
		store:     tokenstore.New(persister, cfg.Session.TokenKey),
		decoder:   decoder,
		transport: base,
		provider:  b.provider,
		metrics:   NewMetrics(cfg.Metrics),
		events: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Events.Enabled,
			BufferSize: cfg.Events.BufferSize,
			DropIfFull: cfg.Events.DropIfFull,
		}, b.eventSink),
	})

	b.built = true
	return c, nil
}

func (b *Builder) buildPersister(cfg SessionConfig) (tokenstore.Persister, error) {
	if b.persister != nil {
		return b.persister, nil
	}
	switch cfg.Persistence {
	case PersistFile:
		return tokenstore.NewFileStore(cfg.FilePath), nil
	case PersistRedis:
		if b.redis == nil {
			return nil, errors.New("redis persistence requires a redis client")
		}
		return tokenstore.NewRedisStore(b.redis, cfg.RedisPrefix, cfg.RedisTTL), nil
	default:
		return tokenstore.NewMemoryStore(), nil
	}
}
