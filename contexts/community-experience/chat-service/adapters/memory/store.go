package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mboa/contexts/community-experience/chat-service/domain/entities"
	domainerrors "mboa/contexts/community-experience/chat-service/domain/errors"
	"mboa/contexts/community-experience/chat-service/ports"

	"github.com/google/uuid"
)

type counterRow struct {
	unread   int
	messages int
}

// Store is the in-memory chat repository used by tests and local mode. It
// also serves as idempotency store, clock and id generator when the module
// is wired without Postgres.
type Store struct {
	mu sync.RWMutex

	conversations map[string]entities.Conversation
	messages      map[string]entities.Message
	counters      map[string]*counterRow
	idempotency   map[string]ports.IdempotencyRecord

	nowFunc func() time.Time
}

func NewStore() *Store {
	return &Store{
		conversations: make(map[string]entities.Conversation),
		messages:      make(map[string]entities.Message),
		counters:      make(map[string]*counterRow),
		idempotency:   make(map[string]ports.IdempotencyRecord),
	}
}

// SetNowFunc pins the store clock so tests can control time.
func (s *Store) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFunc = now
}

func (s *Store) SetConversation(conversation entities.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversation.ConversationID] = cloneConversation(conversation)
}

func (s *Store) SetMessage(message entities.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[message.MessageID] = cloneMessage(message)
}

func (s *Store) CreateConversation(ctx context.Context, conversation entities.Conversation) (entities.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.conversations {
		if conversation.Type == entities.ConversationTypeDirect && sameDirectPair(existing, conversation) {
			return entities.Conversation{}, domainerrors.ErrConflict
		}
		if conversation.Type == entities.ConversationTypeStatusReply &&
			existing.Type == entities.ConversationTypeStatusReply &&
			existing.StatusID == conversation.StatusID &&
			existing.InitiatorID == conversation.InitiatorID {
			return entities.Conversation{}, domainerrors.ErrConflict
		}
	}
	s.conversations[conversation.ConversationID] = cloneConversation(conversation)
	return cloneConversation(conversation), nil
}

func (s *Store) GetConversation(ctx context.Context, conversationID string) (entities.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversation, ok := s.conversations[strings.TrimSpace(conversationID)]
	if !ok {
		return entities.Conversation{}, domainerrors.ErrConversationNotFound
	}
	return cloneConversation(conversation), nil
}

func (s *Store) FindDirectConversation(ctx context.Context, userA string, userB string) (entities.Conversation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conversation := range s.conversations {
		if conversation.Type != entities.ConversationTypeDirect || len(conversation.Participants) != 2 {
			continue
		}
		if conversation.HasParticipant(userA) && conversation.HasParticipant(userB) {
			return cloneConversation(conversation), true, nil
		}
	}
	return entities.Conversation{}, false, nil
}

func (s *Store) FindStatusReplyConversation(ctx context.Context, statusID string, replyerID string) (entities.Conversation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conversation := range s.conversations {
		if conversation.Type != entities.ConversationTypeStatusReply {
			continue
		}
		if conversation.StatusID == strings.TrimSpace(statusID) && conversation.InitiatorID == strings.TrimSpace(replyerID) {
			return cloneConversation(conversation), true, nil
		}
	}
	return entities.Conversation{}, false, nil
}

func (s *Store) ListConversations(ctx context.Context, input ports.ListConversationsInput) ([]entities.Conversation, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Conversation, 0)
	for _, conversation := range s.conversations {
		if !conversation.HasParticipant(input.UserID) {
			continue
		}
		if conversation.IsArchivedFor(input.UserID) != input.Archived {
			continue
		}
		items = append(items, cloneConversation(conversation))
	}
	sort.Slice(items, func(i, j int) bool {
		return lastActivity(items[i]).After(lastActivity(items[j]))
	})
	total := len(items)
	return paginate(items, input.Offset, input.Limit), total, nil
}

func (s *Store) SetAcceptanceStatus(
	ctx context.Context,
	conversationID string,
	status entities.AcceptanceStatus,
	actorID string,
	now time.Time,
) (entities.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, ok := s.conversations[strings.TrimSpace(conversationID)]
	if !ok {
		return entities.Conversation{}, domainerrors.ErrConversationNotFound
	}
	conversation.AcceptanceStatus = status
	conversation.UpdatedAt = now.UTC()
	switch status {
	case entities.AcceptanceAccepted:
		ts := now.UTC()
		conversation.AcceptedAt = &ts
	case entities.AcceptanceReported, entities.AcceptanceBlocked:
		ts := now.UTC()
		conversation.ReportedAt = &ts
		conversation.ReportedBy = strings.TrimSpace(actorID)
	}
	s.conversations[conversation.ConversationID] = conversation
	return cloneConversation(conversation), nil
}

func (s *Store) SetConversationArchived(ctx context.Context, conversationID string, userID string, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, ok := s.conversations[strings.TrimSpace(conversationID)]
	if !ok {
		return domainerrors.ErrConversationNotFound
	}
	userID = strings.TrimSpace(userID)
	filtered := make([]string, 0, len(conversation.DeletedFor))
	for _, id := range conversation.DeletedFor {
		if id != userID {
			filtered = append(filtered, id)
		}
	}
	if archived {
		filtered = append(filtered, userID)
	}
	conversation.DeletedFor = filtered
	s.conversations[conversation.ConversationID] = conversation
	return nil
}

func (s *Store) UpdateLastMessage(ctx context.Context, conversationID string, ref ports.LastMessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, ok := s.conversations[strings.TrimSpace(conversationID)]
	if !ok {
		return domainerrors.ErrConversationNotFound
	}
	sentAt := ref.SentAt.UTC()
	conversation.LastMessageID = ref.MessageID
	conversation.LastMessageAt = &sentAt
	conversation.LastMessagePreview = ref.Preview
	conversation.LastMessageSenderID = ref.SenderID
	conversation.UpdatedAt = sentAt
	s.conversations[conversation.ConversationID] = conversation
	return nil
}

func (s *Store) IncrementUnread(ctx context.Context, conversationID string, userIDs []string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, userID := range userIDs {
		s.counter(conversationID, userID).unread++
	}
	return nil
}

func (s *Store) ResetUnread(ctx context.Context, conversationID string, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter(conversationID, userID).unread = 0
	return nil
}

func (s *Store) IncrementMessageCount(ctx context.Context, conversationID string, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter(conversationID, userID).messages++
	return nil
}

func (s *Store) MessageCount(ctx context.Context, conversationID string, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.counters[counterKey(conversationID, userID)]; ok {
		return row.messages, nil
	}
	return 0, nil
}

func (s *Store) UnreadCounts(ctx context.Context, conversationIDs []string, userID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(conversationIDs))
	for _, conversationID := range conversationIDs {
		counts[conversationID] = 0
		if row, ok := s.counters[counterKey(conversationID, userID)]; ok {
			counts[conversationID] = row.unread
		}
	}
	return counts, nil
}

func (s *Store) CreateMessage(ctx context.Context, message entities.Message) (entities.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[message.MessageID] = cloneMessage(message)
	return cloneMessage(message), nil
}

func (s *Store) GetMessage(ctx context.Context, messageID string) (entities.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	message, ok := s.messages[strings.TrimSpace(messageID)]
	if !ok {
		return entities.Message{}, domainerrors.ErrMessageNotFound
	}
	return cloneMessage(message), nil
}

func (s *Store) ListMessages(ctx context.Context, input ports.ListMessagesInput) ([]entities.Message, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversationID := strings.TrimSpace(input.ConversationID)
	items := make([]entities.Message, 0)
	for _, message := range s.messages {
		if message.ConversationID != conversationID {
			continue
		}
		if message.IsHiddenFor(input.ViewerID) {
			continue
		}
		items = append(items, cloneMessage(message))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	total := len(items)
	return paginate(items, input.Offset, input.Limit), total, nil
}

func (s *Store) MarkConversationRead(ctx context.Context, conversationID string, userID string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, ok := s.conversations[strings.TrimSpace(conversationID)]
	if !ok {
		return 0, domainerrors.ErrConversationNotFound
	}
	affected := 0
	for id, message := range s.messages {
		if message.ConversationID != conversation.ConversationID || message.Deleted {
			continue
		}
		if message.SenderID == userID || message.IsReadBy(userID) {
			continue
		}
		message.ReadBy = append(message.ReadBy, userID)
		message.Status = receiptStatus(conversation, message)
		message.UpdatedAt = now.UTC()
		s.messages[id] = message
		affected++
	}
	return affected, nil
}

func (s *Store) AddReadBy(ctx context.Context, messageIDs []string, userID string, now time.Time) ([]entities.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]entities.Message, 0, len(messageIDs))
	for _, id := range messageIDs {
		message, ok := s.messages[strings.TrimSpace(id)]
		if !ok {
			continue
		}
		conversation, ok := s.conversations[message.ConversationID]
		if !ok || !conversation.HasParticipant(userID) {
			continue
		}
		if message.SenderID == userID || message.IsReadBy(userID) {
			continue
		}
		message.ReadBy = append(message.ReadBy, userID)
		message.Status = receiptStatus(conversation, message)
		message.UpdatedAt = now.UTC()
		s.messages[message.MessageID] = message
		updated = append(updated, cloneMessage(message))
	}
	return updated, nil
}

func (s *Store) AddDeliveredTo(ctx context.Context, messageIDs []string, userID string, now time.Time) ([]entities.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]entities.Message, 0, len(messageIDs))
	for _, id := range messageIDs {
		message, ok := s.messages[strings.TrimSpace(id)]
		if !ok {
			continue
		}
		conversation, ok := s.conversations[message.ConversationID]
		if !ok || !conversation.HasParticipant(userID) {
			continue
		}
		if message.SenderID == userID || message.IsDeliveredTo(userID) {
			continue
		}
		message.DeliveredTo = append(message.DeliveredTo, userID)
		message.Status = receiptStatus(conversation, message)
		message.UpdatedAt = now.UTC()
		s.messages[message.MessageID] = message
		updated = append(updated, cloneMessage(message))
	}
	return updated, nil
}

func (s *Store) SoftDeleteMessage(ctx context.Context, messageID string, userID string, now time.Time) (entities.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message, ok := s.messages[strings.TrimSpace(messageID)]
	if !ok {
		return entities.Message{}, domainerrors.ErrMessageNotFound
	}
	ts := now.UTC()
	message.Deleted = true
	message.DeletedAt = &ts
	message.UpdatedAt = ts
	s.messages[message.MessageID] = message
	return cloneMessage(message), nil
}

func (s *Store) HideMessageFor(ctx context.Context, messageID string, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	message, ok := s.messages[strings.TrimSpace(messageID)]
	if !ok {
		return domainerrors.ErrMessageNotFound
	}
	if !message.IsHiddenFor(userID) {
		message.DeletedFor = append(message.DeletedFor, strings.TrimSpace(userID))
		s.messages[message.MessageID] = message
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.idempotency[key]
	if !ok {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.IsZero() && now.UTC().After(record.ExpiresAt.UTC()) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.idempotency[record.Key]; ok {
		if existing.RequestHash != record.RequestHash {
			return domainerrors.ErrIdempotencyConflict
		}
		return nil
	}
	s.idempotency[record.Key] = record
	return nil
}

func (s *Store) NewID(ctx context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	nowFunc := s.nowFunc
	s.mu.RUnlock()
	if nowFunc != nil {
		return nowFunc().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) counter(conversationID string, userID string) *counterRow {
	key := counterKey(conversationID, userID)
	row, ok := s.counters[key]
	if !ok {
		row = &counterRow{}
		s.counters[key] = row
	}
	return row
}

func counterKey(conversationID string, userID string) string {
	return strings.TrimSpace(conversationID) + "|" + strings.TrimSpace(userID)
}

// receiptStatus recomputes the message status from its receipt sets when a
// participant reads or receives a message. Read wins over delivered.
func receiptStatus(conversation entities.Conversation, message entities.Message) entities.MessageStatus {
	others := conversation.OtherParticipants(message.SenderID)
	allRead := len(others) > 0
	allDelivered := len(others) > 0
	for _, other := range others {
		if !message.IsReadBy(other) {
			allRead = false
		}
		if !message.IsDeliveredTo(other) && !message.IsReadBy(other) {
			allDelivered = false
		}
	}
	switch {
	case allRead:
		return entities.MessageStatusRead
	case allDelivered:
		return entities.MessageStatusDelivered
	default:
		return message.Status
	}
}

func lastActivity(conversation entities.Conversation) time.Time {
	if conversation.LastMessageAt != nil {
		return *conversation.LastMessageAt
	}
	return conversation.CreatedAt
}

func sameDirectPair(a entities.Conversation, b entities.Conversation) bool {
	if a.Type != entities.ConversationTypeDirect || len(a.Participants) != 2 || len(b.Participants) != 2 {
		return false
	}
	return a.HasParticipant(b.Participants[0]) && a.HasParticipant(b.Participants[1])
}

func paginate[T any](items []T, offset int, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func cloneConversation(in entities.Conversation) entities.Conversation {
	out := in
	out.Participants = append([]string(nil), in.Participants...)
	out.DeletedFor = append([]string(nil), in.DeletedFor...)
	out.AcceptedAt = cloneTime(in.AcceptedAt)
	out.ReportedAt = cloneTime(in.ReportedAt)
	out.LastMessageAt = cloneTime(in.LastMessageAt)
	return out
}

func cloneMessage(in entities.Message) entities.Message {
	out := in
	out.ReadBy = append([]string(nil), in.ReadBy...)
	out.DeliveredTo = append([]string(nil), in.DeliveredTo...)
	out.DeletedFor = append([]string(nil), in.DeletedFor...)
	out.DeletedAt = cloneTime(in.DeletedAt)
	if in.ReplyTo != nil {
		replyTo := *in.ReplyTo
		out.ReplyTo = &replyTo
	}
	return out
}

func cloneTime(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}

var _ ports.Repository = (*Store)(nil)
var _ ports.IdempotencyStore = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
