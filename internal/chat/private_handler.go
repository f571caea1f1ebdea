package chat

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"huddle/internal/auth/api"
	"huddle/internal/httpx"
	"huddle/internal/identity"
)

// PrivateHandler exposes the private-chat HTTP surface.
type PrivateHandler struct {
	log     *slog.Logger
	svc     *PrivateService
	users   identity.Store
	maxBody int64
}

// NewPrivateHandler wires the private-chat handler.
func NewPrivateHandler(log *slog.Logger, svc *PrivateService, users identity.Store, maxBody int64) *PrivateHandler {
	if log == nil {
		log = slog.Default()
	}
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &PrivateHandler{log: log, svc: svc, users: users, maxBody: maxBody}
}

// Register wires private-chat routes onto the mux. auth is the
// bearer-token middleware.
func (h *PrivateHandler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /api/private-chats/between", auth(http.HandlerFunc(h.handleBetween)))
	mux.Handle("GET /api/private-chats/{id}/messages", auth(http.HandlerFunc(h.handleHistory)))
	mux.Handle("POST /api/private-chats/{id}/messages", auth(http.HandlerFunc(h.handleSend)))
}

type conversationResponse struct {
	ID        string    `json:"id"`
	UserA     string    `json:"userA"`
	UserB     string    `json:"userB"`
	CreatedAt time.Time `json:"createdAt"`
}

type privateMessageResponse struct {
	ID       string    `json:"id"`
	ChatID   string    `json:"chatId"`
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sentAt"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *PrivateHandler) currentUser(r *http.Request) (identity.User, bool) {
	name, ok := api.CurrentUser(r.Context())
	if !ok {
		return identity.User{}, false
	}
	u, err := h.users.GetByUsername(r.Context(), name)
	if err != nil {
		return identity.User{}, false
	}
	return u, true
}

// handleBetween gets or creates the conversation between the caller
// and the peer named in the username query parameter.
func (h *PrivateHandler) handleBetween(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	peerName := identity.NormalizeUsername(r.URL.Query().Get("username"))
	if peerName == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username is required")
		return
	}
	peer, err := h.users.GetByUsername(r.Context(), peerName)
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "user_not_found", "user not found")
		return
	}

	conv, err := h.svc.GetOrCreate(r.Context(), time.Now().UTC(), u.ID, peer.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfConversation):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "cannot chat with yourself")
		default:
			h.log.Error("chat.private.between.fail", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, h.conversationResponse(r, conv))
}

func (h *PrivateHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r)
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
		h.writeConversationError(w, err)
		return
	}

	out := make([]privateMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, privateMessageResponse{
			ID:       m.ID,
			ChatID:   m.ConversationID,
			UserID:   m.UserID,
			Username: m.Username,
			Content:  m.Content,
			SentAt:   m.SentAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *PrivateHandler) handleSend(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req sendMessageRequest
	if err := httpx.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	m, err := h.svc.Send(r.Context(), time.Now().UTC(), r.PathValue("id"), u.ID, u.Username, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmpty):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "content is required")
		case errors.Is(err, ErrTooLong):
			httpx.WriteError(w, http.StatusBadRequest, "message_too_long", "message exceeds the size limit")
		default:
			h.writeConversationError(w, err)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, privateMessageResponse{
		ID:       m.ID,
		ChatID:   m.ConversationID,
		UserID:   m.UserID,
		Username: m.Username,
		Content:  m.Content,
		SentAt:   m.SentAt,
	})
}

// writeConversationError answers not-found and not-participant
// identically so outsiders cannot tell which conversations exist.
func (h *PrivateHandler) writeConversationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrConversationNotFound), errors.Is(err, ErrNotParticipant):
		httpx.WriteError(w, http.StatusNotFound, "conversation_not_found", "conversation not found")
	default:
		h.log.Error("chat.private.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func (h *PrivateHandler) conversationResponse(r *http.Request, conv Conversation) conversationResponse {
	resp := conversationResponse{ID: conv.ID, CreatedAt: conv.CreatedAt}
	if ua, err := h.users.GetByID(r.Context(), conv.UserAID); err == nil {
		resp.UserA = ua.Username
	}
	if ub, err := h.users.GetByID(r.Context(), conv.UserBID); err == nil {
		resp.UserB = ub.Username
	}
	return resp
}
