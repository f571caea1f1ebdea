// Package app wires the Huddle server runtime: config, logging, stores,
// HTTP routes, and the realtime chat gateway.
package app

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"huddle/internal/audit"
	"huddle/internal/auth/api"
	"huddle/internal/auth/cleanup"
	"huddle/internal/auth/session"
	"huddle/internal/auth/tokens"
	"huddle/internal/chat"
	"huddle/internal/group"
	"huddle/internal/identity"
	"huddle/internal/metrics"
	"huddle/internal/poll"
	"huddle/internal/ratelimit"
	"huddle/internal/security/crypto"
	"huddle/internal/security/password"
)

// App is the Huddle server runtime: it owns HTTP wiring and the
// lifecycles of the DB pool and the cleanup sweeper.
type App struct {
	cfg Config
	log Logger

	pool      *pgxpool.Pool
	dbEnabled bool

	registry *prometheus.Registry

	authLimiter *ratelimit.Middleware
	apiLimiter  *ratelimit.Middleware
	auditor     *audit.Auditor
	sweeper     *cleanup.Sweeper

	auth     *api.Handler
	groups   *group.Handler
	polls    *poll.Handler
	chatAPI  *chat.Handler
	privates *chat.PrivateHandler
	ws       *chat.Gateway
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	var (
		pool      *pgxpool.Pool
		dbEnabled bool

		users      identity.Store
		sessStore  session.Store
		groupStore group.Store
		pollStore  poll.Store
		chatStore  chat.Store
		privStore  chat.PrivateStore
	)

	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		users = identity.NewMemoryStore()
		sessStore = session.NewMemoryStore()
		groupStore = group.NewMemoryStore()
		pollStore = poll.NewMemoryStore()
		chatStore = chat.NewMemoryStore()
		privStore = chat.NewPrivateMemoryStore()
	} else {
		p, err := NewDBPool(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		log.Info("db.enabled.postgres_store")
		pool = p
		dbEnabled = true
		users = identity.NewPostgresStore(pool)
		sessStore = session.NewPostgresStore(pool)
		groupStore = group.NewPostgresStore(pool)
		pollStore = poll.NewPostgresStore(pool)
		chatStore = chat.NewPostgresStore(pool)
		privStore = chat.NewPrivatePostgresStore(pool)
	}

	tokCfg, err := tokens.LoadConfigFromEnv()
	if err != nil {
		closePool(pool)
		return nil, err
	}
	signer, err := tokens.NewSigner(tokCfg)
	if err != nil {
		closePool(pool)
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		closePool(pool)
		return nil, err
	}

	sessions := session.NewService(signer, sessStore, users, log)

	authHandler, err := api.NewHandler(log, api.Config{MaxBodyBytes: cfg.MaxBodyBytes}, users, sessions, signer, pwCfg)
	if err != nil {
		closePool(pool)
		return nil, err
	}

	groupSvc := group.NewService(groupStore, log)
	pollSvc := poll.NewService(pollStore, groupSvc, log)

	box, err := chatBox(cfg, log)
	if err != nil {
		closePool(pool)
		return nil, err
	}
	hub := chat.NewHub(log)
	chatSvc := chat.NewService(chatStore, box, groupSvc, users, hub, log)
	privSvc := chat.NewPrivateService(privStore, box, users, hub, log)

	authLimiter := ratelimit.NewMiddleware(
		ratelimit.NewLimiter(ratelimit.LoadConfigFromEnv()),
		authHandler.IdentityFromRequest, nil, log)
	apiLimiter := ratelimit.NewMiddleware(
		ratelimit.NewLimiter(ratelimit.LoadAPIConfigFromEnv()),
		authHandler.IdentityFromRequest, nil, log)

	auditor := audit.NewAuditor(log, nil, cfg.MaxBodyBytes,
		api.CurrentUser,
		func(raw string, now time.Time) (string, bool) {
			name, err := signer.VerifyAccess(raw, now)
			return name, err == nil
		},
		func(ctx context.Context, now time.Time, raw string) (string, bool) {
			name, err := sessions.UserForToken(ctx, now, raw)
			return name, err == nil
		},
	)

	registry := prometheus.NewRegistry()
	metrics.RegisterCollectors(registry)
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &App{
		cfg:       cfg,
		log:       log,
		pool:      pool,
		dbEnabled: dbEnabled,
		registry:    registry,
		authLimiter: authLimiter,
		apiLimiter:  apiLimiter,
		auditor:     auditor,
		sweeper:   cleanup.NewSweeper(sessStore, cleanup.LoadConfigFromEnv(), log),
		auth:      authHandler,
		groups:    group.NewHandler(log, groupSvc, users, cfg.MaxBodyBytes),
		polls:     poll.NewHandler(log, pollSvc, users, cfg.MaxBodyBytes),
		chatAPI:   chat.NewHandler(log, chatSvc, users),
		privates:  chat.NewPrivateHandler(log, privSvc, users, cfg.MaxBodyBytes),
		ws:        chat.NewGateway(log, chatSvc, privSvc, signer, users),
	}, nil
}

// chatBox loads the message encryption key. With a database configured
// the key is mandatory; in in-memory dev mode a missing key falls back
// to an ephemeral one, since the stored history is ephemeral anyway.
func chatBox(cfg Config, log Logger) (*crypto.Box, error) {
	box, err := crypto.NewBoxFromEnv()
	if err == nil {
		return box, nil
	}
	if !errors.Is(err, crypto.ErrKeyMissing) || cfg.DatabaseURL != "" {
		return nil, err
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	log.Warn("chat.key.ephemeral", "reason", crypto.KeyEnvVar+" not set")
	return crypto.NewBox(key)
}

// Run starts the HTTP server and blocks until context cancellation or
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	a.registerHTTP(mux)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	if err := a.sweeper.Start(); err != nil {
		return err
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.sweeper.Stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
	}

	a.sweeper.Stop()
	closePool(a.pool)

	if err != nil {
		return err
	}
	a.log.Info("server.stopped")
	return nil
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
