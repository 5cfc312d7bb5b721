package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mboa/contexts/community-experience/presence-service/ports"
)

const (
	defaultOnlineTTL = 300 * time.Second
	defaultTypingTTL = 10 * time.Second

	onlineKeyPrefix = "online:"
	socketKeyPrefix = "socket:"
	typingKeyPrefix = "typing:"
)

func onlineKey(userID string) string { return onlineKeyPrefix + userID }

func socketKey(socketID string) string { return socketKeyPrefix + socketID }

func typingPrefix(conversationID string) string { return typingKeyPrefix + conversationID + ":" }

func typingKey(conversationID string, userID string) string {
	return typingPrefix(conversationID) + userID
}

// PresenceService keeps the online/socket/typing maps. Liveness is TTL-based:
// the gateway heartbeats Refresh every 60s and TTLs outlive a missed beat.
type PresenceService struct {
	Store  ports.KV
	Logger *slog.Logger

	OnlineTTL time.Duration
	TypingTTL time.Duration
}

// SetOnline records both directions of the user<->socket binding.
func (s PresenceService) SetOnline(ctx context.Context, userID string, socketID string) error {
	userID = strings.TrimSpace(userID)
	socketID = strings.TrimSpace(socketID)
	if userID == "" || socketID == "" {
		return fmt.Errorf("presence set online: user and socket ids are required")
	}
	if err := s.Store.Set(ctx, onlineKey(userID), socketID, s.onlineTTL()); err != nil {
		return fmt.Errorf("presence set online: %w", err)
	}
	if err := s.Store.Set(ctx, socketKey(socketID), userID, s.onlineTTL()); err != nil {
		return fmt.Errorf("presence set online: %w", err)
	}
	resolveLogger(s.Logger).Debug("user online",
		"event", "presence_online",
		"module", "community-experience/presence-service",
		"user_id", userID,
	)
	return nil
}

// SetOffline removes the user's online and socket entries and drops every
// typing indicator the user still holds.
func (s PresenceService) SetOffline(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("presence set offline: user id is required")
	}

	keys := []string{onlineKey(userID)}
	if socketID, ok, err := s.Store.Get(ctx, onlineKey(userID)); err != nil {
		return fmt.Errorf("presence set offline: %w", err)
	} else if ok {
		keys = append(keys, socketKey(socketID))
	}

	typingKeys, err := s.Store.Scan(ctx, typingKeyPrefix)
	if err != nil {
		return fmt.Errorf("presence set offline: %w", err)
	}
	for _, key := range typingKeys {
		if strings.HasSuffix(key, ":"+userID) {
			keys = append(keys, key)
		}
	}

	if err := s.Store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("presence set offline: %w", err)
	}
	resolveLogger(s.Logger).Debug("user offline",
		"event", "presence_offline",
		"module", "community-experience/presence-service",
		"user_id", userID,
	)
	return nil
}

// Refresh extends the TTL on the online and socket entries. A heartbeat for
// an already expired user is a no-op; the gateway re-registers on the next
// connect.
func (s PresenceService) Refresh(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("presence refresh: user id is required")
	}
	socketID, ok, err := s.Store.Get(ctx, onlineKey(userID))
	if err != nil {
		return fmt.Errorf("presence refresh: %w", err)
	}
	if !ok {
		return nil
	}
	if _, err := s.Store.Expire(ctx, onlineKey(userID), s.onlineTTL()); err != nil {
		return fmt.Errorf("presence refresh: %w", err)
	}
	if _, err := s.Store.Expire(ctx, socketKey(socketID), s.onlineTTL()); err != nil {
		return fmt.Errorf("presence refresh: %w", err)
	}
	return nil
}

// OnlineStatuses multi-gets the online map for the requested users.
func (s PresenceService) OnlineStatuses(ctx context.Context, userIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		keys = append(keys, onlineKey(userID))
	}
	found, err := s.Store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("presence online statuses: %w", err)
	}
	for _, userID := range userIDs {
		_, online := found[onlineKey(userID)]
		out[userID] = online
	}
	return out, nil
}

func (s PresenceService) SetTyping(ctx context.Context, conversationID string, userID string) error {
	conversationID = strings.TrimSpace(conversationID)
	userID = strings.TrimSpace(userID)
	if conversationID == "" || userID == "" {
		return fmt.Errorf("presence set typing: conversation and user ids are required")
	}
	if err := s.Store.Set(ctx, typingKey(conversationID, userID), "1", s.typingTTL()); err != nil {
		return fmt.Errorf("presence set typing: %w", err)
	}
	return nil
}

func (s PresenceService) ClearTyping(ctx context.Context, conversationID string, userID string) error {
	if err := s.Store.Delete(ctx, typingKey(conversationID, userID)); err != nil {
		return fmt.Errorf("presence clear typing: %w", err)
	}
	return nil
}

// Typing lists the users currently typing in a conversation.
func (s PresenceService) Typing(ctx context.Context, conversationID string) ([]string, error) {
	prefix := typingPrefix(conversationID)
	keys, err := s.Store.Scan(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("presence typing: %w", err)
	}
	userIDs := make([]string, 0, len(keys))
	for _, key := range keys {
		userIDs = append(userIDs, strings.TrimPrefix(key, prefix))
	}
	return userIDs, nil
}

func (s PresenceService) onlineTTL() time.Duration {
	if s.OnlineTTL > 0 {
		return s.OnlineTTL
	}
	return defaultOnlineTTL
}

func (s PresenceService) typingTTL() time.Duration {
	if s.TypingTTL > 0 {
		return s.TypingTTL
	}
	return defaultTypingTTL
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
