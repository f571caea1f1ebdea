package poll

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

// Handler exposes the poll HTTP surface.
type Handler struct {
	log     *slog.Logger
	svc     *Service
	users   identity.Store
	maxBody int64
}

// NewHandler wires the poll handler.
func NewHandler(log *slog.Logger, svc *Service, users identity.Store, maxBody int64) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Handler{log: log, svc: svc, users: users, maxBody: maxBody}
}

// Register wires poll routes onto the mux. auth is the bearer-token
// middleware.
func (h *Handler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("POST /api/groups/{id}/polls", auth(http.HandlerFunc(h.handleCreate)))
	mux.Handle("GET /api/groups/{id}/polls", auth(http.HandlerFunc(h.handleList)))
	mux.Handle("POST /api/polls/{id}/vote", auth(http.HandlerFunc(h.handleVote)))
	mux.Handle("GET /api/polls/{id}/results", auth(http.HandlerFunc(h.handleResults)))
}

type createPollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type voteRequest struct {
	OptionID string `json:"optionId"`
}

type optionResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type pollResponse struct {
	ID        string           `json:"id"`
	GroupID   string           `json:"groupId"`
	Question  string           `json:"question"`
	Options   []optionResponse `json:"options"`
	CreatedBy string           `json:"createdBy"`
	CreatedAt time.Time        `json:"createdAt"`
}

type resultsResponse struct {
	Poll   pollResponse   `json:"poll"`
	Counts map[string]int `json:"counts"`
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

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req createPollRequest
	if err := httpx.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	p, err := h.svc.Create(r.Context(), time.Now().UTC(), r.PathValue("id"), u.ID, req.Question, req.Options)
	if err != nil {
		h.writePollError(w, err, "poll.create.fail")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toPollResponse(p))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	polls, err := h.svc.ListByGroup(r.Context(), r.PathValue("id"), u.ID)
	if err != nil {
		h.writePollError(w, err, "poll.list.fail")
		return
	}
	out := make([]pollResponse, 0, len(polls))
	for _, p := range polls {
		out = append(out, toPollResponse(p))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req voteRequest
	if err := httpx.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	if err := h.svc.Vote(r.Context(), time.Now().UTC(), r.PathValue("id"), req.OptionID, u.ID); err != nil {
		h.writePollError(w, err, "poll.vote.fail")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	p, counts, err := h.svc.Results(r.Context(), r.PathValue("id"), u.ID)
	if err != nil {
		h.writePollError(w, err, "poll.results.fail")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resultsResponse{Poll: toPollResponse(p), Counts: counts})
}

func (h *Handler) writePollError(w http.ResponseWriter, err error, event string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "poll_not_found", "poll not found")
	case errors.Is(err, ErrNotMember):
		httpx.WriteError(w, http.StatusForbidden, "not_member", "group membership required")
	case errors.Is(err, ErrBadOption):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_option", "option does not belong to poll")
	case errors.Is(err, ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "question and at least two options are required")
	default:
		h.log.Error(event, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func toPollResponse(p Poll) pollResponse {
	opts := make([]optionResponse, 0, len(p.Options))
	for _, o := range p.Options {
		opts = append(opts, optionResponse{ID: o.ID, Text: o.Text})
	}
	return pollResponse{
		ID:        p.ID,
		GroupID:   p.GroupID,
		Question:  p.Question,
		Options:   opts,
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
	}
}
