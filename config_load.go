package storefront

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. STOREFRONT_API_BASE_URL.
const EnvPrefix = "STOREFRONT"

// LoadConfig reads configuration from path (YAML, JSON or TOML by extension) and
// the environment, over [DefaultConfig]. An empty path reads the environment only.
// The result is validated.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		API: APIConfig{
			BaseURL:   v.GetString("api.base_url"),
			Timeout:   v.GetDuration("api.timeout"),
			UserAgent: v.GetString("api.user_agent"),
		},
		Session: SessionConfig{
			ExpiryBuffer: v.GetDuration("session.expiry_buffer"),
			TokenKey:     v.GetString("session.token_key"),
			Persistence:  Persistence(strings.ToLower(v.GetString("session.persistence"))),
			FilePath:     v.GetString("session.file_path"),
			RedisPrefix:  v.GetString("session.redis_prefix"),
			RedisTTL:     v.GetDuration("session.redis_ttl"),
		},
		JWT: JWTConfig{
			SigningMethod: strings.ToLower(v.GetString("jwt.signing_method")),
			Issuer:        v.GetString("jwt.issuer"),
		},
		Events: EventsConfig{
			Enabled:    v.GetBool("events.enabled"),
			BufferSize: v.GetInt("events.buffer_size"),
			DropIfFull: v.GetBool("events.drop_if_full"),
		},
		Metrics: MetricsConfig{
			Enabled:                 v.GetBool("metrics.enabled"),
			EnableLatencyHistograms: v.GetBool("metrics.enable_latency_histograms"),
		},
	}
	if key := v.GetString("jwt.verify_key"); key != "" {
		cfg.JWT.VerifyKey = []byte(key)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.user_agent", d.API.UserAgent)
	v.SetDefault("session.expiry_buffer", d.Session.ExpiryBuffer)
	v.SetDefault("session.token_key", d.Session.TokenKey)
	v.SetDefault("session.persistence", string(d.Session.Persistence))
	v.SetDefault("session.file_path", d.Session.FilePath)
	v.SetDefault("session.redis_prefix", d.Session.RedisPrefix)
	v.SetDefault("session.redis_ttl", d.Session.RedisTTL)
	v.SetDefault("jwt.signing_method", d.JWT.SigningMethod)
	v.SetDefault("jwt.verify_key", "")
	v.SetDefault("jwt.issuer", d.JWT.Issuer)
	v.SetDefault("events.enabled", d.Events.Enabled)
	v.SetDefault("events.buffer_size", d.Events.BufferSize)
	v.SetDefault("events.drop_if_full", d.Events.DropIfFull)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.enable_latency_histograms", d.Metrics.EnableLatencyHistograms)
}
