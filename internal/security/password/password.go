package password

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Config is the single configuration surface for this package.
type Config struct {
	// Cost is the bcrypt cost factor. Higher is slower and stronger.
	Cost int

	// MinLength and MaxLength bound accepted plaintext passwords.
	// MaxLength also guards against bcrypt's 72-byte input truncation:
	// anything longer is rejected up front instead of silently truncated.
	MinLength int
	MaxLength int
}

// DefaultConfig returns a baseline suitable for interactive logins.
func DefaultConfig() Config {
	return Config{
		Cost:      bcrypt.DefaultCost,
		MinLength: 8,
		MaxLength: 72,
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - HUDDLE_BCRYPT_COST
// - HUDDLE_PASSWORD_MIN_LEN
// - HUDDLE_PASSWORD_MAX_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("HUDDLE_BCRYPT_COST"); ok {
		n, err := atoiBounded(v, bcrypt.MinCost, bcrypt.MaxCost)
		if err != nil {
			return Config{}, fmt.Errorf("HUDDLE_BCRYPT_COST: %w", err)
		}
		cfg.Cost = n
	}

	if v, ok := os.LookupEnv("HUDDLE_PASSWORD_MIN_LEN"); ok {
		n, err := atoiBounded(v, 1, 72)
		if err != nil {
			return Config{}, fmt.Errorf("HUDDLE_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.MinLength = n
	}

	if v, ok := os.LookupEnv("HUDDLE_PASSWORD_MAX_LEN"); ok {
		n, err := atoiBounded(v, 1, 72)
		if err != nil {
			return Config{}, fmt.Errorf("HUDDLE_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.MaxLength = n
	}

	if cfg.MinLength > cfg.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.MinLength,
			cfg.MaxLength,
		)
	}

	return cfg, nil
}

// Validate checks password policy. It does not mutate input.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)
	if n < c.MinLength {
		return ErrPasswordTooShort
	}
	if n > c.MaxLength || len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

// Hash hashes a password with bcrypt and returns the encoded hash string.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), c.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

// Verify checks whether password matches the given encoded hash.
// Returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, ErrInvalidHash) for malformed/unsupported hashes.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, ErrInvalidHash
}

func atoiBounded(s string, minVal, maxVal int) (int, error) {
	s = strings.TrimSpace(s)
	i64, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}

	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}
