package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	realtimev1 "mboa/contracts/realtime/v1"
)

// frameBuffer is the per-connection outbound queue depth. A client that
// cannot drain this many frames is too far behind; further frames are
// dropped rather than stalling the publisher.
const frameBuffer = 64

type connection struct {
	id     string
	userID string
	frames chan realtimev1.Frame
}

// Bus is the in-process room fan-out behind every EventPublisher port.
// One Bus instance serves the whole node; delivery is bounded by this
// node's connection set.
type Bus struct {
	mu     sync.RWMutex
	conns  map[string]*connection
	rooms  map[string]map[string]struct{}
	joined map[string]map[string]struct{}
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		conns:  make(map[string]*connection),
		rooms:  make(map[string]map[string]struct{}),
		joined: make(map[string]map[string]struct{}),
		logger: logger,
	}
}

// Register adds a connection and returns its outbound frame queue. The
// queue is never closed; the reader stops when its connection context
// ends. Registering an id twice replaces the previous registration.
func (b *Bus) Register(connID string, userID string) <-chan realtimev1.Frame {
	conn := &connection{
		id:     connID,
		userID: userID,
		frames: make(chan realtimev1.Frame, frameBuffer),
	}
	b.mu.Lock()
	b.conns[connID] = conn
	b.joined[connID] = make(map[string]struct{})
	b.mu.Unlock()
	return conn.frames
}

// Unregister drops the connection from every room and from the bus.
// In-flight publishes that already snapshotted the connection may still
// enqueue to its buffer; the buffer is garbage once the reader stops.
func (b *Bus) Unregister(connID string) {
	b.mu.Lock()
	for room := range b.joined[connID] {
		b.leaveLocked(connID, room)
	}
	delete(b.joined, connID)
	delete(b.conns, connID)
	b.mu.Unlock()
}

func (b *Bus) Join(connID string, room string) {
	if room == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.conns[connID]; !ok {
		return
	}
	members, ok := b.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		b.rooms[room] = members
	}
	members[connID] = struct{}{}
	b.joined[connID][room] = struct{}{}
}

func (b *Bus) Leave(connID string, room string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaveLocked(connID, room)
	delete(b.joined[connID], room)
}

func (b *Bus) leaveLocked(connID string, room string) {
	members, ok := b.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(b.rooms, room)
	}
}

// Rooms lists the rooms a connection is currently in.
func (b *Bus) Rooms(connID string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rooms := make([]string, 0, len(b.joined[connID]))
	for room := range b.joined[connID] {
		rooms = append(rooms, room)
	}
	return rooms
}

// RoomSize reports the member count of a room. Used by tests to poll
// instead of sleeping.
func (b *Bus) RoomSize(room string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[room])
}

// ActiveConnections returns the count of registered connections.
func (b *Bus) ActiveConnections() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}

// Publish fans an event out to every member of a room. Implements the
// EventPublisher port each service declares. Fire-and-forget: marshal
// failures are logged, slow consumers are dropped, nothing blocks.
func (b *Bus) Publish(ctx context.Context, room string, event string, payload any) {
	b.PublishExcept(ctx, room, event, payload, "")
}

// PublishExcept is Publish minus one connection, used for events the
// originator must not receive back (typing indicators).
func (b *Bus) PublishExcept(ctx context.Context, room string, event string, payload any, skipConnID string) {
	frame, ok := b.buildFrame(room, event, payload)
	if !ok {
		return
	}

	b.mu.RLock()
	targets := make([]*connection, 0, len(b.rooms[room]))
	for connID := range b.rooms[room] {
		if connID == skipConnID {
			continue
		}
		if conn, found := b.conns[connID]; found {
			targets = append(targets, conn)
		}
	}
	b.mu.RUnlock()

	for _, conn := range targets {
		b.enqueue(conn, frame)
	}
}

// PublishAll fans an event out to every connection on this node,
// regardless of room membership. Used for global online/offline
// transitions.
func (b *Bus) PublishAll(ctx context.Context, event string, payload any) {
	frame, ok := b.buildFrame("", event, payload)
	if !ok {
		return
	}

	b.mu.RLock()
	targets := make([]*connection, 0, len(b.conns))
	for _, conn := range b.conns {
		targets = append(targets, conn)
	}
	b.mu.RUnlock()

	for _, conn := range targets {
		b.enqueue(conn, frame)
	}
}

// Send delivers an event to a single connection, bypassing rooms. Used
// for acks and error frames addressed to the caller.
func (b *Bus) Send(connID string, event string, payload any) {
	frame, ok := b.buildFrame("", event, payload)
	if !ok {
		return
	}

	b.mu.RLock()
	conn, found := b.conns[connID]
	b.mu.RUnlock()
	if !found {
		return
	}
	b.enqueue(conn, frame)
}

func (b *Bus) buildFrame(room string, event string, payload any) (realtimev1.Frame, bool) {
	frame := realtimev1.Frame{Event: event, Room: room}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			b.resolveLogger().Warn("event payload not serializable",
				"event", "realtime_marshal_failed",
				"module", "platform/realtime",
				"frame_event", event,
				"error", err,
			)
			return realtimev1.Frame{}, false
		}
		frame.Data = data
	}
	return frame, true
}

func (b *Bus) enqueue(conn *connection, frame realtimev1.Frame) {
	select {
	case conn.frames <- frame:
	default:
		b.resolveLogger().Warn("dropping frame for slow consumer",
			"event", "realtime_frame_dropped",
			"module", "platform/realtime",
			"connection_id", conn.id,
			"user_id", conn.userID,
			"frame_event", frame.Event,
		)
	}
}

func (b *Bus) resolveLogger() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}
