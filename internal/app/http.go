package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (a *App) registerHTTP(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.ReadinessRequireDB && !a.dbEnabled {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if a.dbEnabled && a.pool != nil {
			if err := PingDB(r.Context(), a.pool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				a.log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if a.cfg.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	}

	// Guarded auth endpoints get the full chain: audit outermost so
	// rate-limited requests still leave a security record.
	a.auth.Register(mux, func(event string, next http.Handler) http.Handler {
		return a.auditor.Wrap(event, a.authLimiter.Wrap(next))
	})

	// Domain routes carry the broader API limiter outside authentication
	// so floods are shed before token verification.
	guard := func(next http.Handler) http.Handler {
		return a.apiLimiter.Wrap(a.auth.RequireAuth(next))
	}
	a.groups.Register(mux, guard)
	a.polls.Register(mux, guard)
	a.chatAPI.Register(mux, guard)
	a.privates.Register(mux, guard)

	// The websocket gateway authenticates on upgrade itself.
	mux.Handle("GET /ws", a.ws)
}
