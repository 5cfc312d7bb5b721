package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	realtimev1 "mboa/contracts/realtime/v1"
	chatservice "mboa/contexts/community-experience/chat-service"
	chatports "mboa/contexts/community-experience/chat-service/ports"
	chattransport "mboa/contexts/community-experience/chat-service/transport/http"
	presenceservice "mboa/contexts/community-experience/presence-service"
	statusservice "mboa/contexts/community-experience/status-service"
	statusports "mboa/contexts/community-experience/status-service/ports"
	statustransport "mboa/contexts/community-experience/status-service/transport/http"
)

type wsIdentities map[string]Identity

func (v wsIdentities) VerifyToken(token string) (Identity, error) {
	identity, ok := v[token]
	if !ok {
		return Identity{}, errors.New("unknown token")
	}
	return identity, nil
}

type wsChatDirectory struct{}

func (wsChatDirectory) GetUsers(_ context.Context, userIDs []string) (map[string]chatports.UserSnapshot, error) {
	out := make(map[string]chatports.UserSnapshot, len(userIDs))
	for _, id := range userIDs {
		out[id] = chatports.UserSnapshot{UserID: id, Name: "Name " + id}
	}
	return out, nil
}

func (wsChatDirectory) HasReferralRelation(_ context.Context, _ string, _ string) (bool, error) {
	return true, nil
}

type wsChatStorage struct{}

func (wsChatStorage) Upload(_ context.Context, input chatports.UploadInput) (string, error) {
	return input.Filename, nil
}

func (wsChatStorage) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://signed.example/" + path, nil
}

func (wsChatStorage) SignedURLs(_ context.Context, paths []string, _ time.Duration) (map[string]string, error) {
	out := make(map[string]string, len(paths))
	for _, path := range paths {
		out[path] = "https://signed.example/" + path
	}
	return out, nil
}

type wsStatusDirectory struct{}

func (wsStatusDirectory) GetUsers(_ context.Context, userIDs []string) (map[string]statusports.UserSnapshot, error) {
	out := make(map[string]statusports.UserSnapshot, len(userIDs))
	for _, id := range userIDs {
		out[id] = statusports.UserSnapshot{UserID: id, Name: "Name " + id}
	}
	return out, nil
}

type wsStatusStorage struct{}

func (wsStatusStorage) Upload(_ context.Context, input statusports.UploadInput) (string, error) {
	return input.Filename, nil
}

func (wsStatusStorage) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://signed.example/" + path, nil
}

func (wsStatusStorage) SignedURLs(_ context.Context, paths []string, _ time.Duration) (map[string]string, error) {
	out := make(map[string]string, len(paths))
	for _, path := range paths {
		out[path] = "https://signed.example/" + path
	}
	return out, nil
}

type wsStatusBridge struct{}

func (wsStatusBridge) OpenStatusReply(_ context.Context, statusID string, replyerID string, _ string) (string, bool, error) {
	return "conv_" + statusID + "_" + replyerID, true, nil
}

type gatewayFixture struct {
	gateway  *Gateway
	server   *httptest.Server
	bus      *Bus
	chat     chatservice.Module
	statuses statusservice.Module
	presence presenceservice.Module
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := NewBus(logger)

	chat := chatservice.NewInMemoryModule(wsChatDirectory{}, wsChatStorage{}, bus, logger)
	statuses := statusservice.NewInMemoryModule(wsStatusDirectory{}, wsStatusStorage{}, nil, wsStatusBridge{}, bus, logger)
	presence := presenceservice.NewInMemoryModule(logger)

	gateway := &Gateway{
		Bus: bus,
		Auth: wsIdentities{
			"tok-alice": {UserID: "alice", Role: "user", Name: "Alice"},
			"tok-bob":   {UserID: "bob", Role: "user", Name: "Bob"},
			"tok-carol": {UserID: "carol", Role: "user", Name: "Carol"},
		},
		Chat:     chat.Handler,
		Statuses: statuses.Handler,
		Presence: presence.Presence,
		Logger:   logger,
	}
	server := httptest.NewServer(http.HandlerFunc(gateway.Handle))
	t.Cleanup(server.Close)

	return &gatewayFixture{
		gateway:  gateway,
		server:   server,
		bus:      bus,
		chat:     chat,
		statuses: statuses,
		presence: presence,
	}
}

func (f *gatewayFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	frame := realtimev1.Frame{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		frame.Data = data
	}
	raw, err := json.Marshal(frame)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, raw))
}

// readUntil drains frames until one with the wanted event arrives. Presence
// broadcasts interleave with everything else, so tests match on the event
// they care about instead of assuming an exact sequence.
func readUntil(t *testing.T, conn *websocket.Conn, event string) realtimev1.Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s", event)
		var frame realtimev1.Frame
		require.NoError(t, json.Unmarshal(data, &frame))
		if frame.Event == event {
			return frame
		}
	}
}

// readUntilUser matches presence transitions for a specific user.
func readUntilUser(t *testing.T, conn *websocket.Conn, event string, userID string) realtimev1.Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s %s", event, userID)
		var frame realtimev1.Frame
		require.NoError(t, json.Unmarshal(data, &frame))
		if frame.Event != event {
			continue
		}
		var payload map[string]string
		require.NoError(t, json.Unmarshal(frame.Data, &payload))
		if payload["userId"] == userID {
			return frame
		}
	}
}

func frameField(t *testing.T, frame realtimev1.Frame, key string) any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	return payload[key]
}

func TestGatewayRejectsInvalidToken(t *testing.T) {
	fixture := newGatewayFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(fixture.server.URL, "http") + "?token=forged"
	conn, resp, err := websocket.Dial(ctx, url, nil) //nolint:bodyclose // handshake fails, no body to close
	require.Error(t, err)
	require.Nil(t, conn)
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	url = "ws" + strings.TrimPrefix(fixture.server.URL, "http")
	conn, _, err = websocket.Dial(ctx, url, nil) //nolint:bodyclose
	require.Error(t, err)
	require.Nil(t, conn)
}

func TestGatewayAnnouncesPresenceLifecycle(t *testing.T) {
	fixture := newGatewayFixture(t)
	ctx := context.Background()

	alice := fixture.dial(t, "tok-alice")
	readUntilUser(t, alice, realtimev1.EventUserOnline, "alice")

	bob := fixture.dial(t, "tok-bob")
	readUntilUser(t, alice, realtimev1.EventUserOnline, "bob")

	statuses, err := fixture.presence.Presence.OnlineStatuses(ctx, []string{"alice", "bob"})
	require.NoError(t, err)
	assert.True(t, statuses["alice"])
	assert.True(t, statuses["bob"])

	require.NoError(t, bob.Close(websocket.StatusNormalClosure, ""))
	readUntilUser(t, alice, realtimev1.EventUserOffline, "bob")

	statuses, err = fixture.presence.Presence.OnlineStatuses(ctx, []string{"bob"})
	require.NoError(t, err)
	assert.False(t, statuses["bob"])

	require.Eventually(t, func() bool { return fixture.bus.ActiveConnections() == 1 },
		2*time.Second, 10*time.Millisecond)
}

func TestGatewayConversationJoinGate(t *testing.T) {
	fixture := newGatewayFixture(t)
	ctx := context.Background()

	created, _, err := fixture.chat.Handler.CreateConversationHandler(ctx, "alice", chattransport.CreateConversationRequest{ParticipantID: "bob"})
	require.NoError(t, err)
	conversationID := created.Data.ConversationID

	_, err = fixture.chat.Handler.SendMessageHandler(ctx, "bob", false, conversationID, "", chattransport.SendMessageRequest{Content: "salut"})
	require.NoError(t, err)

	alice := fixture.dial(t, "tok-alice")
	readUntilUser(t, alice, realtimev1.EventUserOnline, "alice")

	writeFrame(t, alice, realtimev1.EventConversationJoin, map[string]string{"conversationId": conversationID})

	// Joining marks the conversation read, which the room (now including
	// alice) hears about.
	frame := readUntil(t, alice, realtimev1.EventMessageRead)
	assert.Equal(t, realtimev1.ConversationRoom(conversationID), frame.Room)
	assert.Equal(t, "alice", frameField(t, frame, "readBy"))
	assert.Equal(t, 1, fixture.bus.RoomSize(realtimev1.ConversationRoom(conversationID)))

	// Not a participant: the room stays shut.
	carol := fixture.dial(t, "tok-carol")
	writeFrame(t, carol, realtimev1.EventConversationJoin, map[string]string{"conversationId": conversationID})
	errFrame := readUntil(t, carol, realtimev1.EventMessageError)
	assert.Equal(t, conversationID, frameField(t, errFrame, "conversationId"))
	assert.Equal(t, 1, fixture.bus.RoomSize(realtimev1.ConversationRoom(conversationID)))
}

func TestGatewayMessageSendBroadcasts(t *testing.T) {
	fixture := newGatewayFixture(t)
	ctx := context.Background()

	created, _, err := fixture.chat.Handler.CreateConversationHandler(ctx, "alice", chattransport.CreateConversationRequest{ParticipantID: "bob"})
	require.NoError(t, err)
	conversationID := created.Data.ConversationID
	room := realtimev1.ConversationRoom(conversationID)

	alice := fixture.dial(t, "tok-alice")
	bob := fixture.dial(t, "tok-bob")

	writeFrame(t, alice, realtimev1.EventConversationJoin, map[string]string{"conversationId": conversationID})
	writeFrame(t, bob, realtimev1.EventConversationJoin, map[string]string{"conversationId": conversationID})
	require.Eventually(t, func() bool { return fixture.bus.RoomSize(room) == 2 },
		2*time.Second, 10*time.Millisecond)

	writeFrame(t, alice, realtimev1.EventMessageSend, map[string]string{
		"conversationId": conversationID,
		"content":        "bonjour",
	})

	newFrame := readUntil(t, bob, realtimev1.EventMessageNew)
	assert.Equal(t, room, newFrame.Room)

	// Sender gets the ack on the user room, the peer a notification.
	sentFrame := readUntil(t, alice, realtimev1.EventMessageSent)
	assert.Equal(t, realtimev1.UserRoom("alice"), sentFrame.Room)
	notifFrame := readUntil(t, bob, realtimev1.EventMessageNotification)
	assert.Equal(t, realtimev1.UserRoom("bob"), notifFrame.Room)

	// Invalid sends come back as message:error to the sender only.
	writeFrame(t, alice, realtimev1.EventMessageSend, map[string]string{
		"conversationId": conversationID,
	})
	readUntil(t, alice, realtimev1.EventMessageError)
}

func TestGatewayTypingSkipsTypist(t *testing.T) {
	fixture := newGatewayFixture(t)
	ctx := context.Background()

	created, _, err := fixture.chat.Handler.CreateConversationHandler(ctx, "alice", chattransport.CreateConversationRequest{ParticipantID: "bob"})
	require.NoError(t, err)
	conversationID := created.Data.ConversationID
	room := realtimev1.ConversationRoom(conversationID)

	alice := fixture.dial(t, "tok-alice")
	bob := fixture.dial(t, "tok-bob")
	writeFrame(t, alice, realtimev1.EventConversationJoin, map[string]string{"conversationId": conversationID})
	writeFrame(t, bob, realtimev1.EventConversationJoin, map[string]string{"conversationId": conversationID})
	require.Eventually(t, func() bool { return fixture.bus.RoomSize(room) == 2 },
		2*time.Second, 10*time.Millisecond)

	writeFrame(t, alice, realtimev1.EventTypingStart, map[string]string{"conversationId": conversationID})

	frame := readUntilUser(t, bob, realtimev1.EventTypingStart, "alice")
	assert.Equal(t, room, frame.Room)

	require.Eventually(t, func() bool {
		typing, err := fixture.presence.Presence.Typing(ctx, conversationID)
		return err == nil && len(typing) == 1 && typing[0] == "alice"
	}, 2*time.Second, 10*time.Millisecond)

	// Frames to one connection are FIFO: if the typing event had been
	// echoed to alice it would arrive before the pong.
	writeFrame(t, alice, realtimev1.EventPresencePing, nil)
	deadline, cancelRead := context.WithTimeout(ctx, 5*time.Second)
	defer cancelRead()
	for {
		_, data, err := alice.Read(deadline)
		require.NoError(t, err)
		var received realtimev1.Frame
		require.NoError(t, json.Unmarshal(data, &received))
		require.NotEqual(t, realtimev1.EventTypingStart, received.Event, "typist must not hear their own typing")
		if received.Event == realtimev1.EventPresencePong {
			break
		}
	}

	writeFrame(t, alice, realtimev1.EventTypingStop, map[string]string{"conversationId": conversationID})
	readUntilUser(t, bob, realtimev1.EventTypingStop, "alice")
	require.Eventually(t, func() bool {
		typing, err := fixture.presence.Presence.Typing(ctx, conversationID)
		return err == nil && len(typing) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGatewayPresenceQueriesAndTransitions(t *testing.T) {
	fixture := newGatewayFixture(t)
	ctx := context.Background()

	alice := fixture.dial(t, "tok-alice")
	readUntilUser(t, alice, realtimev1.EventUserOnline, "alice")
	bob := fixture.dial(t, "tok-bob")
	readUntilUser(t, alice, realtimev1.EventUserOnline, "bob")
	readUntilUser(t, bob, realtimev1.EventUserOnline, "bob")

	writeFrame(t, alice, realtimev1.EventPresenceGet, map[string][]string{"userIds": {"bob", "ghost"}})
	frame := readUntil(t, alice, realtimev1.EventPresenceStatus)
	var statusPayload struct {
		Statuses map[string]bool `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(frame.Data, &statusPayload))
	assert.True(t, statusPayload.Statuses["bob"])
	assert.False(t, statusPayload.Statuses["ghost"])

	writeFrame(t, alice, realtimev1.EventPresenceSubscribe, map[string][]string{"userIds": {"bob"}})
	require.Eventually(t, func() bool { return fixture.bus.RoomSize(realtimev1.PresenceRoom("bob")) == 1 },
		2*time.Second, 10*time.Millisecond)

	// Client-driven away reads as offline to everyone else.
	writeFrame(t, bob, realtimev1.EventPresenceAway, nil)
	readUntilUser(t, alice, realtimev1.EventUserOffline, "bob")
	statuses, err := fixture.presence.Presence.OnlineStatuses(ctx, []string{"bob"})
	require.NoError(t, err)
	assert.False(t, statuses["bob"])

	writeFrame(t, bob, realtimev1.EventPresenceActive, nil)
	readUntilUser(t, alice, realtimev1.EventUserOnline, "bob")
	statuses, err = fixture.presence.Presence.OnlineStatuses(ctx, []string{"bob"})
	require.NoError(t, err)
	assert.True(t, statuses["bob"])

	writeFrame(t, alice, realtimev1.EventPresenceUnsub, map[string][]string{"userIds": {"bob"}})
	require.Eventually(t, func() bool { return fixture.bus.RoomSize(realtimev1.PresenceRoom("bob")) == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestGatewayStatusInteractions(t *testing.T) {
	fixture := newGatewayFixture(t)
	ctx := context.Background()

	created, err := fixture.statuses.Handler.CreateStatusHandler(ctx, "bob", false, statustransport.CreateStatusRequest{
		Category: "business",
		Content:  "Offre de lancement",
	})
	require.NoError(t, err)
	statusID := created.Data.StatusID

	alice := fixture.dial(t, "tok-alice")
	bob := fixture.dial(t, "tok-bob")
	readUntilUser(t, bob, realtimev1.EventUserOnline, "bob")

	writeFrame(t, alice, realtimev1.EventStatusSubscribe, nil)
	require.Eventually(t, func() bool { return fixture.bus.RoomSize(realtimev1.RoomStatusFeed) == 1 },
		2*time.Second, 10*time.Millisecond)

	writeFrame(t, alice, realtimev1.EventStatusLike, map[string]string{"statusId": statusID})

	likedFrame := readUntil(t, alice, realtimev1.EventStatusLiked)
	assert.Equal(t, realtimev1.RoomStatusFeed, likedFrame.Room)
	assert.Equal(t, float64(1), frameField(t, likedFrame, "likesCount"))

	// The author hears about the like on their user room.
	readUntil(t, bob, realtimev1.EventNotificationNew)

	writeFrame(t, alice, realtimev1.EventStatusReply, map[string]string{"statusId": statusID})
	replyFrame := readUntil(t, alice, realtimev1.EventStatusReplyOK)
	assert.Equal(t, "conv_"+statusID+"_alice", frameField(t, replyFrame, "conversationId"))
	assert.Equal(t, true, frameField(t, replyFrame, "created"))

	writeFrame(t, alice, realtimev1.EventStatusLike, map[string]string{"statusId": "missing"})
	errFrame := readUntil(t, alice, realtimev1.EventStatusError)
	assert.Equal(t, "missing", frameField(t, errFrame, "statusId"))

	writeFrame(t, alice, realtimev1.EventStatusUnsubscribe, nil)
	require.Eventually(t, func() bool { return fixture.bus.RoomSize(realtimev1.RoomStatusFeed) == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestGatewayUnknownEvent(t *testing.T) {
	fixture := newGatewayFixture(t)

	alice := fixture.dial(t, "tok-alice")
	writeFrame(t, alice, "bogus:event", nil)

	frame := readUntil(t, alice, realtimev1.EventMessageError)
	errText, _ := frameField(t, frame, "error").(string)
	assert.Contains(t, errText, "unknown event")
}
