package tokens

import (
	"errors"
	"os"
	"strings"
	"time"
)

// ErrConfig is returned for invalid configuration.
var ErrConfig = errors.New("invalid token config")

// Config defines signing keys and lifetimes for both token classes.
type Config struct {
	// Issuer is the value set in the "iss" claim.
	Issuer string

	// AccessSecret signs access tokens; RefreshSecret signs refresh
	// tokens. The two keys must differ.
	AccessSecret  []byte
	RefreshSecret []byte

	// AccessTTL is the access-token lifetime.
	AccessTTL time.Duration

	// RefreshTTL is the refresh-token lifetime.
	RefreshTTL time.Duration
}

// DefaultConfig returns lifetimes suitable for production; secrets must
// still be supplied by the caller or the environment.
func DefaultConfig() Config {
	return Config{
		Issuer:     "huddle",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	}
}

// LoadConfigFromEnv loads token configuration from environment variables.
//
// Required:
//   - HUDDLE_JWT_ACCESS_SECRET (>= 32 bytes)
//   - HUDDLE_JWT_REFRESH_SECRET (>= 32 bytes, distinct from access)
//
// Optional:
//   - HUDDLE_JWT_ISSUER
//   - HUDDLE_JWT_ACCESS_TTL (Go duration)
//   - HUDDLE_JWT_REFRESH_TTL (Go duration)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("HUDDLE_JWT_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	if v := strings.TrimSpace(os.Getenv("HUDDLE_JWT_ACCESS_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("HUDDLE_JWT_REFRESH_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTTL = d
	}

	cfg.AccessSecret = []byte(strings.TrimSpace(os.Getenv("HUDDLE_JWT_ACCESS_SECRET")))
	cfg.RefreshSecret = []byte(strings.TrimSpace(os.Getenv("HUDDLE_JWT_REFRESH_SECRET")))

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if len(c.AccessSecret) < 32 || len(c.RefreshSecret) < 32 {
		return ErrConfig
	}
	if string(c.AccessSecret) == string(c.RefreshSecret) {
		return ErrConfig
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.Issuer == "" {
		return ErrConfig
	}
	return nil
}
