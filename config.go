package filmzimmer

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Fawzi-AI/filmzimmer/pkg/kv"
)

// Config holds client configuration loaded from the environment.
type Config struct {
	APIKey      string        `env:"FILMZIMMER_API_KEY"`
	AccessToken string        `env:"FILMZIMMER_ACCESS_TOKEN"`
	BaseURL     string        `env:"FILMZIMMER_BASE_URL"        envDefault:"https://api.themoviedb.org/3"`
	Language    string        `env:"FILMZIMMER_LANGUAGE"        envDefault:"en-US"`
	Region      string        `env:"FILMZIMMER_REGION"`
	CachePath   string        `env:"FILMZIMMER_CACHE_PATH"`
	Timeout     time.Duration `env:"FILMZIMMER_REQUEST_TIMEOUT" envDefault:"10s"`
	MaxRetries  int           `env:"FILMZIMMER_MAX_RETRIES"     envDefault:"3"`
	RateLimit   float64       `env:"FILMZIMMER_RATE_LIMIT"      envDefault:"3.5"`
	RateBurst   int           `env:"FILMZIMMER_RATE_BURST"      envDefault:"35"`
}

// ConfigFromEnv loads client configuration from FILMZIMMER_* variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("filmzimmer: parsing environment: %w", err)
	}
	return cfg, nil
}

// NewClientFromEnv builds a client from environment configuration. When
// FILMZIMMER_CACHE_PATH is set, a SQLite-backed persistent cache tier
// is opened at that path and owned (closed) by the client.
func NewClientFromEnv(opts ...Option) (*Client, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithAPIKey(cfg.APIKey),
		WithBaseURL(cfg.BaseURL),
		WithDefaultLanguage(cfg.Language),
		WithTimeout(cfg.Timeout),
		WithRetryMax(cfg.MaxRetries),
		WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	}
	if cfg.AccessToken != "" {
		base = append(base, WithAccessToken(cfg.AccessToken))
	}
	if cfg.Region != "" {
		base = append(base, WithDefaultRegion(cfg.Region))
	}

	if cfg.CachePath != "" {
		store, err := kv.OpenSQLite(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("filmzimmer: opening cache store: %w", err)
		}
		base = append(base, WithStore(store), withOwnedStore())
	}

	return NewClient(append(base, opts...)...)
}
