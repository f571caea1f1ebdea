package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"huddle/internal/auth/api"
	"huddle/internal/group"
	"huddle/internal/httpx"
	"huddle/internal/identity"
)

const defaultHistoryLimit = 50
const maxHistoryLimit = 200

// Handler exposes the chat history HTTP surface.
type Handler struct {
	log   *slog.Logger
	svc   *Service
	users identity.Store
}

// NewHandler wires the chat handler.
func NewHandler(log *slog.Logger, svc *Service, users identity.Store) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, svc: svc, users: users}
}

// Register wires chat routes onto the mux. auth is the bearer-token
// middleware; the websocket gateway is mounted separately because it
// authenticates on upgrade.
func (h *Handler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /api/groups/{id}/messages", auth(http.HandlerFunc(h.handleHistory)))
}

type messageResponse struct {
	ID       string    `json:"id"`
	GroupID  string    `json:"groupId"`
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sentAt"`
}

func (h *Handler) currentUser(ctx context.Context) (identity.User, bool) {
	name, ok := api.CurrentUser(ctx)
	if !ok {
		return identity.User{}, false
	}
	u, err := h.users.GetByUsername(ctx, name)
	if err != nil {
		return identity.User{}, false
	}
	return u, true
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, maxHistoryLimit)
		}
	}

	msgs, err := h.svc.History(r.Context(), r.PathValue("id"), u.ID, limit)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotMember):
			httpx.WriteError(w, http.StatusForbidden, "not_member", "group membership required")
		case errors.Is(err, group.ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "group_not_found", "group not found")
		default:
			h.log.Error("chat.history.fail", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{
			ID:       m.ID,
			GroupID:  m.GroupID,
			UserID:   m.UserID,
			Username: m.Username,
			Content:  m.Content,
			SentAt:   m.SentAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
