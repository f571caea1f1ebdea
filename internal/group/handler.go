package group

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"huddle/internal/auth/api"
	"huddle/internal/httpx"
	"huddle/internal/identity"
)

// Handler exposes the group HTTP surface.
type Handler struct {
	log     *slog.Logger
	svc     *Service
	users   identity.Store
	maxBody int64
}

// NewHandler wires the group handler.
func NewHandler(log *slog.Logger, svc *Service, users identity.Store, maxBody int64) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Handler{log: log, svc: svc, users: users, maxBody: maxBody}
}

// Register wires group routes onto the mux. auth is the bearer-token
// middleware.
func (h *Handler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /api/groups", auth(http.HandlerFunc(h.handleList)))
	mux.Handle("POST /api/groups", auth(http.HandlerFunc(h.handleCreate)))
	mux.Handle("POST /api/groups/{id}/join", auth(http.HandlerFunc(h.handleJoin)))
	mux.Handle("POST /api/groups/{id}/leave", auth(http.HandlerFunc(h.handleLeave)))
	mux.Handle("GET /api/groups/{id}/members", auth(http.HandlerFunc(h.handleMembers)))
	mux.Handle("DELETE /api/groups/{id}", auth(http.HandlerFunc(h.handleDelete)))
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type groupResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type memberResponse struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// currentUser resolves the request principal to a stored user.
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

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req createGroupRequest
	if err := httpx.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	g, err := h.svc.Create(r.Context(), time.Now().UTC(), req.Name, u.ID)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "group name is required")
			return
		}
		h.log.Error("group.create.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toGroupResponse(g))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.List(r.Context())
	if err != nil {
		h.log.Error("group.list.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupResponse(g))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	err := h.svc.Join(r.Context(), time.Now().UTC(), r.PathValue("id"), u.ID)
	if err != nil {
		h.writeGroupError(w, err, "group.join.fail")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLeave(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	if err := h.svc.Leave(r.Context(), r.PathValue("id"), u.ID); err != nil {
		h.writeGroupError(w, err, "group.leave.fail")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.svc.Members(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeGroupError(w, err, "group.members.fail")
		return
	}

	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp := memberResponse{UserID: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt}
		if u, err := h.users.GetByID(r.Context(), m.UserID); err == nil {
			resp.Username = u.Username
		}
		out = append(out, resp)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	if err := h.svc.Delete(r.Context(), r.PathValue("id"), u.ID); err != nil {
		h.writeGroupError(w, err, "group.delete.fail")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeGroupError(w http.ResponseWriter, err error, event string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "group_not_found", "group not found")
	case errors.Is(err, ErrNotMember):
		httpx.WriteError(w, http.StatusNotFound, "not_member", "not a member of this group")
	case errors.Is(err, ErrAlreadyMember):
		httpx.WriteError(w, http.StatusConflict, "already_member", "already a member of this group")
	case errors.Is(err, ErrLastAdmin):
		httpx.WriteError(w, http.StatusConflict, "last_admin", "the last admin cannot leave")
	case errors.Is(err, ErrAdminOnly):
		httpx.WriteError(w, http.StatusForbidden, "admin_only", "admin role required")
	default:
		h.log.Error(event, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func toGroupResponse(g Group) groupResponse {
	return groupResponse{ID: g.ID, Name: g.Name, CreatedBy: g.CreatedBy, CreatedAt: g.CreatedAt}
}
