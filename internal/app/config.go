package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// MetricsEnabled mounts the Prometheus endpoint on /metrics.
	MetricsEnabled bool

	// MaxBodyBytes caps accepted JSON request bodies.
	MaxBodyBytes int64
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("HUDDLE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("HUDDLE_LOG_LEVEL", "info"),
		LogFormat: EnvString("HUDDLE_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("HUDDLE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("HUDDLE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("HUDDLE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("HUDDLE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("HUDDLE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("HUDDLE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("HUDDLE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("HUDDLE_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("HUDDLE_READINESS_REQUIRE_DB", false),

		MetricsEnabled: EnvBool("HUDDLE_METRICS_ENABLED", true),

		MaxBodyBytes: int64(EnvInt("HUDDLE_HTTP_MAX_BODY_BYTES", 1<<20)),
	}
}
