package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/trafficrobot/pkg/errkind"
)

// Environment variable names.
const (
	EnvPrefix  = "TRAFFIC_"
	EnvConfig  = "TRAFFIC_CONFIG"
	EnvPort    = "PORT"
	EnvMapsKey = "GOOGLE_MAPS_API_KEY"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if TRAFFIC_CONFIG is set
//  3. PORT and GOOGLE_MAPS_API_KEY, the conventional unprefixed names
//  4. env (prefix TRAFFIC_)
func Load(_ context.Context) (*Config, error) {
	const op = "config.load"
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errkind.Wrap(op, ErrLoadConfig, err)
		}
	}

	if port := strings.TrimSpace(os.Getenv(EnvPort)); port != "" {
		if err := k.Set("addr", ":"+port); err != nil {
			return nil, errkind.Wrap(op, ErrLoadConfig, err)
		}
	}

	if key := strings.TrimSpace(os.Getenv(EnvMapsKey)); key != "" {
		if err := k.Set("maps_api_key", key); err != nil {
			return nil, errkind.Wrap(op, ErrLoadConfig, err)
		}
	}

	// TRAFFIC_MAPS_API_KEY -> maps_api_key (flat keys, underscores kept).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errkind.Wrap(op, ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errkind.Wrap(op, ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	const op = "config.validate"
	if strings.TrimSpace(c.Addr) == "" {
		return errkind.Wrap(op, ErrInvalidConfig, fmt.Errorf("addr must not be empty"))
	}
	switch c.Source {
	case SourceLive:
		if strings.TrimSpace(c.MapsAPIKey) == "" {
			return errkind.Wrap(op, ErrConfigMissing, fmt.Errorf("maps_api_key is required for the live source"))
		}
	case SourceStatic:
	default:
		return errkind.Wrap(op, ErrInvalidConfig, fmt.Errorf("unknown source %q", c.Source))
	}
	if c.FetchTimeoutMS <= 0 || c.DeliveryTimeoutMS <= 0 {
		return errkind.Wrap(op, ErrInvalidConfig, fmt.Errorf("timeouts must be positive"))
	}
	return nil
}
