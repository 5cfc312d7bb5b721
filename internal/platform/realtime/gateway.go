package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	realtimev1 "mboa/contracts/realtime/v1"
	chathttp "mboa/contexts/community-experience/chat-service/adapters/http"
	chattransport "mboa/contexts/community-experience/chat-service/transport/http"
	presenceapp "mboa/contexts/community-experience/presence-service/application"
	statushttp "mboa/contexts/community-experience/status-service/adapters/http"
)

const (
	defaultKeepaliveInterval = 25 * time.Second
	defaultIdleTimeout       = 60 * time.Second

	// writeTimeout bounds a single frame write so one wedged client
	// cannot pin its writer goroutine.
	writeTimeout = 10 * time.Second

	// teardownTimeout bounds presence cleanup after a disconnect.
	teardownTimeout = 5 * time.Second
)

// Identity is the authenticated principal behind a connection.
type Identity struct {
	UserID string
	Role   string
	Name   string
}

func (id Identity) IsAdmin() bool {
	return id.Role == "admin" || id.Role == "super_admin"
}

// TokenVerifier checks a bearer token and resolves it to an identity.
// The HTTP server's JWT middleware provides the production implementation.
type TokenVerifier interface {
	VerifyToken(token string) (Identity, error)
}

// Gateway upgrades HTTP requests to WebSocket connections and bridges
// inbound frames to the chat, status and presence services. Each
// connection gets a single writer goroutine; everything addressed to the
// client goes through the Bus so ordering per connection is preserved.
type Gateway struct {
	Bus      *Bus
	Auth     TokenVerifier
	Chat     chathttp.Handler
	Statuses statushttp.Handler
	Presence presenceapp.PresenceService
	Logger   *slog.Logger

	KeepaliveInterval time.Duration
	IdleTimeout       time.Duration
}

// Handle is the /ws endpoint. The handshake requires a valid bearer
// token in the `token` query parameter or the Authorization header;
// anything else is rejected before the upgrade.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	identity, err := g.authenticate(r)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "Authentication required",
		})
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Browser clients connect from the app origin; the token is the
		// gate, not the Origin header.
		InsecureSkipVerify: true,
	})
	if err != nil {
		g.resolveLogger().Warn("websocket upgrade failed",
			"event", "realtime_upgrade_failed",
			"module", "platform/realtime",
			"error", err,
		)
		return
	}

	g.serve(r.Context(), conn, identity)
}

func (g *Gateway) authenticate(r *http.Request) (Identity, error) {
	if g.Auth == nil {
		return Identity{}, errors.New("realtime: no token verifier configured")
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if token == "" {
		return Identity{}, errors.New("realtime: missing bearer token")
	}
	return g.Auth.VerifyToken(token)
}

// serve owns the connection lifecycle: register, announce online, pump
// frames both ways, and tear everything down when either side drops.
// Blocks until the connection closes.
func (g *Gateway) serve(parent context.Context, conn *websocket.Conn, identity Identity) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	connID := uuid.NewString()
	frames := g.Bus.Register(connID, identity.UserID)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
	defer g.teardown(identity, connID)

	g.Bus.Join(connID, realtimev1.UserRoom(identity.UserID))

	if err := g.Presence.SetOnline(ctx, identity.UserID, connID); err != nil {
		g.resolveLogger().Warn("presence online failed",
			"event", "realtime_presence_failed",
			"module", "platform/realtime",
			"user_id", identity.UserID,
			"error", err,
		)
	}
	g.announcePresence(ctx, identity.UserID, realtimev1.EventUserOnline)

	go g.writeLoop(ctx, cancel, conn, frames)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var frame realtimev1.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			g.Bus.Send(connID, realtimev1.EventMessageError, map[string]string{"error": "invalid frame"})
			continue
		}
		g.dispatch(ctx, connID, identity, frame)
	}
}

// writeLoop is the single writer for one connection. It drains the
// outbound queue and pings on the keepalive interval; a ping that gets
// no pong within the idle timeout kills the connection.
func (g *Gateway) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, frames <-chan realtimev1.Frame) {
	defer cancel()

	keepalive := time.NewTicker(g.keepaliveInterval())
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-frames:
			data, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancelWrite()
			if err != nil {
				return
			}
		case <-keepalive.C:
			pingCtx, cancelPing := context.WithTimeout(ctx, g.idleTimeout())
			err := conn.Ping(pingCtx)
			cancelPing()
			if err != nil {
				return
			}
		}
	}
}

// teardown runs after the read loop exits: clear typing indicators for
// every conversation room the connection was in, drop presence, announce
// offline. Uses a fresh context because the connection's is gone.
func (g *Gateway) teardown(identity Identity, connID string) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	for _, room := range g.Bus.Rooms(connID) {
		if conversationID, ok := strings.CutPrefix(room, "conversation:"); ok {
			_ = g.Presence.ClearTyping(ctx, conversationID, identity.UserID)
		}
	}
	g.Bus.Unregister(connID)

	if err := g.Presence.SetOffline(ctx, identity.UserID); err != nil {
		g.resolveLogger().Warn("presence offline failed",
			"event", "realtime_presence_failed",
			"module", "platform/realtime",
			"user_id", identity.UserID,
			"error", err,
		)
	}
	g.announcePresence(ctx, identity.UserID, realtimev1.EventUserOffline)
}

// announcePresence emits an online/offline transition globally and to
// the user's presence room.
func (g *Gateway) announcePresence(ctx context.Context, userID string, event string) {
	payload := map[string]string{"userId": userID}
	g.Bus.PublishAll(ctx, event, payload)
	g.Bus.Publish(ctx, realtimev1.PresenceRoom(userID), event, payload)
}

type conversationPayload struct {
	ConversationID string `json:"conversationId"`
}

type sendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Type           string `json:"type,omitempty"`
	Content        string `json:"content"`
	ReplyToID      string `json:"replyToId,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

type presencePayload struct {
	UserIDs []string `json:"userIds"`
}

type statusPayload struct {
	StatusID string `json:"statusId"`
	Category string `json:"category,omitempty"`
}

func (g *Gateway) dispatch(ctx context.Context, connID string, identity Identity, frame realtimev1.Frame) {
	switch frame.Event {
	case realtimev1.EventConversationJoin:
		g.handleConversationJoin(ctx, connID, identity, frame.Data)
	case realtimev1.EventConversationLeave:
		g.handleConversationLeave(ctx, connID, identity, frame.Data)
	case realtimev1.EventMessageSend:
		g.handleMessageSend(ctx, connID, identity, frame.Data)
	case realtimev1.EventMessageRead:
		g.handleMessageRead(ctx, connID, identity, frame.Data)
	case realtimev1.EventTypingStart, realtimev1.EventTypingStop:
		g.handleTyping(ctx, connID, identity, frame.Event, frame.Data)
	case realtimev1.EventPresenceGet:
		g.handlePresenceGet(ctx, connID, frame.Data)
	case realtimev1.EventPresenceSubscribe:
		g.handlePresenceRooms(connID, frame.Data, true)
	case realtimev1.EventPresenceUnsub:
		g.handlePresenceRooms(connID, frame.Data, false)
	case realtimev1.EventPresencePing:
		g.handlePresencePing(ctx, connID, identity)
	case realtimev1.EventPresenceAway:
		g.handlePresenceTransition(ctx, connID, identity, false)
	case realtimev1.EventPresenceActive:
		g.handlePresenceTransition(ctx, connID, identity, true)
	case realtimev1.EventStatusSubscribe:
		g.handleStatusRooms(connID, frame.Data, true)
	case realtimev1.EventStatusUnsubscribe:
		g.handleStatusRooms(connID, frame.Data, false)
	case realtimev1.EventStatusLike, realtimev1.EventStatusUnlike,
		realtimev1.EventStatusRepost, realtimev1.EventStatusView:
		g.handleStatusInteraction(ctx, connID, identity, frame.Event, frame.Data)
	case realtimev1.EventStatusReply:
		g.handleStatusReply(ctx, connID, identity, frame.Data)
	default:
		g.Bus.Send(connID, errorEventFor(frame.Event), map[string]string{
			"error": "unknown event: " + frame.Event,
		})
	}
}

func (g *Gateway) handleConversationJoin(ctx context.Context, connID string, identity Identity, data json.RawMessage) {
	var p conversationPayload
	if err := decode(data, &p); err != nil || p.ConversationID == "" {
		g.Bus.Send(connID, realtimev1.EventMessageError, map[string]string{"error": "conversationId is required"})
		return
	}
	// Participant gate: only members may enter the room.
	if _, err := g.Chat.GetConversationHandler(ctx, identity.UserID, p.ConversationID); err != nil {
		g.Bus.Send(connID, realtimev1.EventMessageError, map[string]string{
			"conversationId": p.ConversationID,
			"error":          err.Error(),
		})
		return
	}
	g.Bus.Join(connID, realtimev1.ConversationRoom(p.ConversationID))
	// Joining a conversation implies catching up on it.
	if _, err := g.Chat.MarkConversationReadHandler(ctx, identity.UserID, p.ConversationID); err != nil {
		g.resolveLogger().Debug("auto mark-read failed",
			"event", "realtime_mark_read_failed",
			"module", "platform/realtime",
			"conversation_id", p.ConversationID,
			"error", err,
		)
	}
}

func (g *Gateway) handleConversationLeave(ctx context.Context, connID string, identity Identity, data json.RawMessage) {
	var p conversationPayload
	if err := decode(data, &p); err != nil || p.ConversationID == "" {
		return
	}
	g.Bus.Leave(connID, realtimev1.ConversationRoom(p.ConversationID))
	_ = g.Presence.ClearTyping(ctx, p.ConversationID, identity.UserID)
}

func (g *Gateway) handleMessageSend(ctx context.Context, connID string, identity Identity, data json.RawMessage) {
	var p sendMessagePayload
	if err := decode(data, &p); err != nil || p.ConversationID == "" {
		g.Bus.Send(connID, realtimev1.EventMessageError, map[string]string{"error": "conversationId is required"})
		return
	}
	_, err := g.Chat.SendMessageHandler(ctx, identity.UserID, identity.IsAdmin(), p.ConversationID, p.IdempotencyKey, chattransport.SendMessageRequest{
		Type:      p.Type,
		Content:   p.Content,
		ReplyToID: p.ReplyToID,
	})
	if err != nil {
		g.Bus.Send(connID, realtimev1.EventMessageError, map[string]string{
			"conversationId": p.ConversationID,
			"error":          err.Error(),
		})
	}
	// On success the message service broadcasts message:new, notifies the
	// other participants and acks the sender with message:sent.
}

func (g *Gateway) handleMessageRead(ctx context.Context, connID string, identity Identity, data json.RawMessage) {
	var p conversationPayload
	if err := decode(data, &p); err != nil || p.ConversationID == "" {
		g.Bus.Send(connID, realtimev1.EventMessageError, map[string]string{"error": "conversationId is required"})
		return
	}
	if _, err := g.Chat.MarkConversationReadHandler(ctx, identity.UserID, p.ConversationID); err != nil {
		g.Bus.Send(connID, realtimev1.EventMessageError, map[string]string{
			"conversationId": p.ConversationID,
			"error":          err.Error(),
		})
	}
}

func (g *Gateway) handleTyping(ctx context.Context, connID string, identity Identity, event string, data json.RawMessage) {
	var p conversationPayload
	if err := decode(data, &p); err != nil || p.ConversationID == "" {
		return
	}
	if event == realtimev1.EventTypingStart {
		_ = g.Presence.SetTyping(ctx, p.ConversationID, identity.UserID)
	} else {
		_ = g.Presence.ClearTyping(ctx, p.ConversationID, identity.UserID)
	}
	// Everyone in the conversation except the typist.
	g.Bus.PublishExcept(ctx, realtimev1.ConversationRoom(p.ConversationID), event, map[string]string{
		"conversationId": p.ConversationID,
		"userId":         identity.UserID,
	}, connID)
}

func (g *Gateway) handlePresenceGet(ctx context.Context, connID string, data json.RawMessage) {
	var p presencePayload
	if err := decode(data, &p); err != nil {
		g.Bus.Send(connID, realtimev1.EventPresenceError, map[string]string{"error": "userIds is required"})
		return
	}
	statuses, err := g.Presence.OnlineStatuses(ctx, p.UserIDs)
	if err != nil {
		g.Bus.Send(connID, realtimev1.EventPresenceError, map[string]string{"error": err.Error()})
		return
	}
	g.Bus.Send(connID, realtimev1.EventPresenceStatus, map[string]any{"statuses": statuses})
}

func (g *Gateway) handlePresenceRooms(connID string, data json.RawMessage, join bool) {
	var p presencePayload
	if err := decode(data, &p); err != nil {
		return
	}
	for _, userID := range p.UserIDs {
		if userID == "" {
			continue
		}
		if join {
			g.Bus.Join(connID, realtimev1.PresenceRoom(userID))
		} else {
			g.Bus.Leave(connID, realtimev1.PresenceRoom(userID))
		}
	}
}

func (g *Gateway) handlePresencePing(ctx context.Context, connID string, identity Identity) {
	if err := g.Presence.Refresh(ctx, identity.UserID); err != nil {
		g.Bus.Send(connID, realtimev1.EventPresenceError, map[string]string{"error": err.Error()})
		return
	}
	g.Bus.Send(connID, realtimev1.EventPresencePong, nil)
}

// handlePresenceTransition services the client-driven away/active toggle.
// Away reads as offline to everyone else; active restores the online
// binding for this connection.
func (g *Gateway) handlePresenceTransition(ctx context.Context, connID string, identity Identity, active bool) {
	if active {
		if err := g.Presence.SetOnline(ctx, identity.UserID, connID); err != nil {
			g.Bus.Send(connID, realtimev1.EventPresenceError, map[string]string{"error": err.Error()})
			return
		}
		g.announcePresence(ctx, identity.UserID, realtimev1.EventUserOnline)
		return
	}
	if err := g.Presence.SetOffline(ctx, identity.UserID); err != nil {
		g.Bus.Send(connID, realtimev1.EventPresenceError, map[string]string{"error": err.Error()})
		return
	}
	g.announcePresence(ctx, identity.UserID, realtimev1.EventUserOffline)
}

func (g *Gateway) handleStatusRooms(connID string, data json.RawMessage, join bool) {
	var p statusPayload
	// Missing payload means the bare feed subscription.
	_ = decode(data, &p)
	rooms := []string{realtimev1.RoomStatusFeed, realtimev1.RoomStatusAll}
	if p.Category != "" {
		rooms = append(rooms, realtimev1.StatusCategoryRoom(p.Category))
	}
	for _, room := range rooms {
		if join {
			g.Bus.Join(connID, room)
		} else {
			g.Bus.Leave(connID, room)
		}
	}
}

func (g *Gateway) handleStatusInteraction(ctx context.Context, connID string, identity Identity, event string, data json.RawMessage) {
	var p statusPayload
	if err := decode(data, &p); err != nil || p.StatusID == "" {
		g.Bus.Send(connID, realtimev1.EventStatusError, map[string]string{"error": "statusId is required"})
		return
	}

	var err error
	switch event {
	case realtimev1.EventStatusLike:
		_, err = g.Statuses.LikeStatusHandler(ctx, identity.UserID, p.StatusID)
	case realtimev1.EventStatusUnlike:
		_, err = g.Statuses.UnlikeStatusHandler(ctx, identity.UserID, p.StatusID)
	case realtimev1.EventStatusRepost:
		_, err = g.Statuses.RepostStatusHandler(ctx, identity.UserID, p.StatusID)
	case realtimev1.EventStatusView:
		_, err = g.Statuses.ViewStatusHandler(ctx, identity.UserID, p.StatusID)
	}
	if err != nil {
		g.Bus.Send(connID, realtimev1.EventStatusError, map[string]string{
			"statusId": p.StatusID,
			"error":    err.Error(),
		})
	}
	// Counter broadcasts to the feed rooms come from the interaction
	// service itself.
}

func (g *Gateway) handleStatusReply(ctx context.Context, connID string, identity Identity, data json.RawMessage) {
	var p statusPayload
	if err := decode(data, &p); err != nil || p.StatusID == "" {
		g.Bus.Send(connID, realtimev1.EventStatusError, map[string]string{"error": "statusId is required"})
		return
	}
	resp, err := g.Statuses.ReplyToStatusHandler(ctx, identity.UserID, p.StatusID)
	if err != nil {
		g.Bus.Send(connID, realtimev1.EventStatusError, map[string]string{
			"statusId": p.StatusID,
			"error":    err.Error(),
		})
		return
	}
	g.Bus.Send(connID, realtimev1.EventStatusReplyOK, map[string]any{
		"statusId":       p.StatusID,
		"conversationId": resp.Data.ConversationID,
		"created":        resp.Data.Created,
	})
}

func errorEventFor(event string) string {
	switch {
	case strings.HasPrefix(event, "presence:"):
		return realtimev1.EventPresenceError
	case strings.HasPrefix(event, "status:"):
		return realtimev1.EventStatusError
	default:
		return realtimev1.EventMessageError
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.New("realtime: empty payload")
	}
	return json.Unmarshal(data, v)
}

func (g *Gateway) keepaliveInterval() time.Duration {
	if g.KeepaliveInterval > 0 {
		return g.KeepaliveInterval
	}
	return defaultKeepaliveInterval
}

func (g *Gateway) idleTimeout() time.Duration {
	if g.IdleTimeout > 0 {
		return g.IdleTimeout
	}
	return defaultIdleTimeout
}

func (g *Gateway) resolveLogger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}
