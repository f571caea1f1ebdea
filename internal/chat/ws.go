package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"huddle/internal/auth/tokens"
	"huddle/internal/identity"
)

const (
	wsDefaultSendQueueSize = 256
	wsDefaultWriteTimeout  = 5 * time.Second
	wsDefaultReadIdle      = 2 * time.Minute

	// Only localhost is allowed cross-origin by default.
	wsDefaultAllowedOrigins = "localhost,127.0.0.1"
)

// Gateway is the websocket entrypoint for live chat, group and
// private.
//
// It authenticates the upgrade with an access token, authorizes the
// caller against the requested room, and bridges the connection to
// the Hub.
type Gateway struct {
	log    *slog.Logger
	svc    *Service
	psvc   *PrivateService
	signer *tokens.Signer
	users  identity.Store

	originPatterns []string
	writeTimeout   time.Duration
	readIdle       time.Duration
	queueSize      int
}

// NewGateway constructs a gateway with env-tunable limits.
//
// Optional env:
//   - HUDDLE_WS_ALLOWED_ORIGINS (comma-separated host patterns)
//   - HUDDLE_WS_WRITE_TIMEOUT, HUDDLE_WS_READ_IDLE (Go durations)
//   - HUDDLE_WS_SEND_QUEUE
func NewGateway(log *slog.Logger, svc *Service, psvc *PrivateService, signer *tokens.Signer, users identity.Store) *Gateway {
	if log == nil {
		log = slog.Default()
	}

	g := &Gateway{
		log:          log,
		svc:          svc,
		psvc:         psvc,
		signer:       signer,
		users:        users,
		writeTimeout: wsDefaultWriteTimeout,
		readIdle:     wsDefaultReadIdle,
		queueSize:    wsDefaultSendQueueSize,
	}

	origins := wsDefaultAllowedOrigins
	if v := strings.TrimSpace(os.Getenv("HUDDLE_WS_ALLOWED_ORIGINS")); v != "" {
		origins = v
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			g.originPatterns = append(g.originPatterns, o)
		}
	}

	if v := strings.TrimSpace(os.Getenv("HUDDLE_WS_WRITE_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			g.writeTimeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("HUDDLE_WS_READ_IDLE")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			g.readIdle = d
		}
	}

	return g
}

// wire shapes

type inboundFrame struct {
	Content string `json:"content"`
}

type outboundFrame struct {
	ID       string    `json:"id"`
	GroupID  string    `json:"groupId,omitempty"`
	ChatID   string    `json:"chatId,omitempty"`
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sentAt"`
}

// sendFunc forwards one inbound frame to the room's service.
type sendFunc func(ctx context.Context, now time.Time, content string) error

// ServeHTTP upgrades GET /ws?group=<id>&token=<access> for group chat
// or GET /ws?chat=<id>&token=<access> for a private conversation.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	groupID := strings.TrimSpace(r.URL.Query().Get("group"))
	chatID := strings.TrimSpace(r.URL.Query().Get("chat"))
	if (groupID == "") == (chatID == "") {
		http.Error(w, "exactly one of group and chat is required", http.StatusBadRequest)
		return
	}

	user, ok := g.authenticate(r)
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var room string
	var send sendFunc
	if groupID != "" {
		member, err := g.svc.groups.IsMember(r.Context(), groupID, user.ID)
		if err != nil || !member {
			http.Error(w, "group membership required", http.StatusForbidden)
			return
		}
		room = GroupRoom(groupID)
		send = func(ctx context.Context, now time.Time, content string) error {
			_, err := g.svc.Send(ctx, now, groupID, user.ID, user.Username, content)
			return err
		}
	} else {
		if _, err := g.psvc.Conversation(r.Context(), chatID, user.ID); err != nil {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		room = PrivateRoom(chatID)
		send = func(ctx context.Context, now time.Time, content string) error {
			_, err := g.psvc.Send(ctx, now, chatID, user.ID, user.Username, content)
			return err
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Warn("chat.ws.accept.fail", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	client := NewClient(user.ID, user.Username, g.queueSize)
	hub := g.svc.Hub()
	hub.Subscribe(room, client)
	defer func() {
		hub.Unsubscribe(room, client)
		client.Close()
	}()

	g.log.Info("chat.ws.connected", "room", room, "user_id", user.ID)

	go g.writeLoop(r.Context(), conn, client)
	g.readLoop(r.Context(), conn, client, send)

	conn.Close(websocket.StatusNormalClosure, "bye")
}

// authenticate accepts the access token from the Authorization header
// or, for browser clients that cannot set upgrade headers, from the
// token query parameter.
func (g *Gateway) authenticate(r *http.Request) (identity.User, bool) {
	raw := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
		raw = strings.TrimSpace(h[len("bearer "):])
	}
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("token"))
	}
	if raw == "" {
		return identity.User{}, false
	}

	username, err := g.signer.VerifyAccess(raw, time.Now().UTC())
	if err != nil {
		return identity.User{}, false
	}
	user, err := g.users.GetByUsername(r.Context(), username)
	if err != nil {
		return identity.User{}, false
	}
	return user, true
}

func (g *Gateway) writeLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	for {
		select {
		case m := <-client.Send:
			wctx, cancel := context.WithTimeout(ctx, g.writeTimeout)
			err := wsjson.Write(wctx, conn, outboundFrame{
				ID:       m.ID,
				GroupID:  m.GroupID,
				ChatID:   m.ConversationID,
				UserID:   m.UserID,
				Username: m.Username,
				Content:  m.Content,
				SentAt:   m.SentAt,
			})
			cancel()
			if err != nil {
				client.Close()
				return
			}
		case <-client.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, client *Client, send sendFunc) {
	for {
		rctx, cancel := context.WithTimeout(ctx, g.readIdle)
		var in inboundFrame
		err := wsjson.Read(rctx, conn, &in)
		cancel()
		if err != nil {
			return
		}

		// Empty and oversized frames are dropped, not fatal.
		err = send(ctx, time.Now().UTC(), in.Content)
		if err != nil && !errors.Is(err, ErrEmpty) && !errors.Is(err, ErrTooLong) {
			g.log.Warn("chat.ws.send.fail", "err", err)
			return
		}

		select {
		case <-client.Done():
			return
		default:
		}
	}
}
