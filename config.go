package storefront

import (
	"errors"
	"net/url"
	"time"

	"github.com/MrEthical07/storefront/jwt"
	"github.com/MrEthical07/storefront/session"
	"github.com/MrEthical07/storefront/tokenstore"
	"github.com/MrEthical07/storefront/transport"
)

// Config is the complete client configuration. Start from [DefaultConfig] and treat
// the value as immutable once passed to [Builder.WithConfig].
type Config struct {
	API     APIConfig
	Session SessionConfig
	JWT     JWTConfig
	Events  EventsConfig
	Metrics MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the remote API.
type APIConfig struct {
	BaseURL string
	// Timeout bounds every request, including the refresh call.
	Timeout   time.Duration
	UserAgent string
}

/*
====================================
SESSION CONFIG
====================================
*/

// Persistence selects where the refresh token survives restarts.
type Persistence string

const (
	PersistMemory Persistence = "memory"
	PersistFile   Persistence = "file"
	PersistRedis  Persistence = "redis"
)

// SessionConfig controls credential lifetime and persistence.
type SessionConfig struct {
	// ExpiryBuffer is how long before exp an access token counts as stale.
	ExpiryBuffer time.Duration
	// TokenKey names the refresh token in the persister.
	TokenKey    string
	Persistence Persistence
	FilePath    string
	RedisPrefix string
	// RedisTTL expires the stored refresh token; zero keeps it until logout.
	RedisTTL time.Duration
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access token decoding. The default decodes claims without
// verifying signatures; the API remains the authority on every request.
type JWTConfig struct {
	SigningMethod string // "none" (default), "hs256", "ed25519"
	VerifyKey     []byte
	Issuer        string
}

// EventsConfig controls asynchronous session events.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the defaults. BaseURL must still be set.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout:   transport.DefaultTimeout,
			UserAgent: "storefront-client",
		},
		Session: SessionConfig{
			ExpiryBuffer: session.DefaultExpiryBuffer,
			TokenKey:     tokenstore.DefaultKey,
			Persistence:  PersistMemory,
			RedisPrefix:  "storefront",
		},
		JWT: JWTConfig{
			SigningMethod: "none",
		},
		Events: EventsConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.VerifyKey = cloneBytes(cfg.JWT.VerifyKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (c *Config) signingMethod() (jwt.SigningMethod, error) {
	switch c.JWT.SigningMethod {
	case "", "none":
		return jwt.MethodNone, nil
	case "hs256":
		return jwt.MethodHS256, nil
	case "ed25519":
		return jwt.MethodEd25519, nil
	default:
		return "", errors.New("unsupported JWT signing method")
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// API
	if c.API.BaseURL == "" {
		return errors.New("API BaseURL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("API BaseURL must be an absolute http(s) URL")
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}

	// Session
	if c.Session.ExpiryBuffer < 0 {
		return errors.New("Session ExpiryBuffer must be >= 0")
	}
	if c.Session.TokenKey == "" {
		return errors.New("Session TokenKey is required")
	}
	switch c.Session.Persistence {
	case PersistMemory:
	case PersistFile:
		if c.Session.FilePath == "" {
			return errors.New("file persistence requires Session FilePath")
		}
	case PersistRedis:
		if c.Session.RedisPrefix == "" {
			return errors.New("redis persistence requires Session RedisPrefix")
		}
		if c.Session.RedisTTL < 0 {
			return errors.New("Session RedisTTL must be >= 0")
		}
	default:
		return errors.New("Session Persistence must be 'memory', 'file' or 'redis'")
	}

	// JWT
	method, err := c.signingMethod()
	if err != nil {
		return err
	}
	if method != jwt.MethodNone && len(c.JWT.VerifyKey) == 0 {
		return errors.New("JWT signature verification requires VerifyKey")
	}

	// Events
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}
