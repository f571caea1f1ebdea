// Package cleanup sweeps stale refresh-token records on a schedule.
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"huddle/internal/auth/session"
)

// DefaultSchedule runs the sweep daily at 03:00 server time.
const DefaultSchedule = "0 3 * * *"

// DefaultRetention keeps revoked records for this long before removal,
// so reuse attempts against recently rotated tokens stay detectable.
const DefaultRetention = 30 * 24 * time.Hour

// Config controls the sweeper.
type Config struct {
	// Schedule is a cron expression (standard five-field form).
	Schedule string

	// Retention is how long revoked records are kept after revocation.
	Retention time.Duration
}

// DefaultConfig returns the production schedule and retention.
func DefaultConfig() Config {
	return Config{Schedule: DefaultSchedule, Retention: DefaultRetention}
}

// LoadConfigFromEnv reads overrides from the environment.
//
// Optional:
//   - HUDDLE_REFRESH_CLEANUP_SCHEDULE (cron expression)
//   - HUDDLE_REFRESH_CLEANUP_DAYS (retention for revoked records, days)
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("HUDDLE_REFRESH_CLEANUP_SCHEDULE")); v != "" {
		cfg.Schedule = v
	}
	if v := strings.TrimSpace(os.Getenv("HUDDLE_REFRESH_CLEANUP_DAYS")); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.Retention = time.Duration(days) * 24 * time.Hour
		}
	}
	return cfg
}

// Sweeper deletes expired and long-revoked refresh-token records.
type Sweeper struct {
	store session.Store
	cfg   Config
	log   *slog.Logger
	cron  *cron.Cron
}

// NewSweeper wires a sweeper; Start must be called to schedule it.
func NewSweeper(store session.Store, cfg Config, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{store: store, cfg: cfg, log: log}
}

// Start schedules the sweep and begins the cron loop.
func (s *Sweeper) Start() error {
	c := cron.New()
	_, err := c.AddFunc(s.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.Sweep(ctx, time.Now())
	})
	if err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.log.Info("cleanup.started", "schedule", s.cfg.Schedule, "retention", s.cfg.Retention)
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Sweep runs one pass at the given time. Errors are logged, not
// returned: a failed pass is retried at the next tick.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) {
	cutoff := now.Add(-s.cfg.Retention)
	n, err := s.store.DeleteExpiredAndOldRevoked(ctx, now, cutoff)
	if err != nil {
		s.log.Error("cleanup.failed", "error", err)
		return
	}
	s.log.Info("cleanup.swept", "deleted", n, "cutoff", cutoff)
}
