package ports

import (
	"context"
	"time"

	"mboa/contexts/community-experience/chat-service/domain/entities"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type IdempotencyRecord struct {
	Key         string
	RequestHash string
	Payload     []byte
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

// UserSnapshot is the Directory projection attached to conversations and
// interaction lists.
type UserSnapshot struct {
	UserID    string
	Name      string
	AvatarURL string
	Role      string
}

type DirectoryClient interface {
	GetUsers(ctx context.Context, userIDs []string) (map[string]UserSnapshot, error)
	HasReferralRelation(ctx context.Context, userID string, otherID string) (bool, error)
}

type UploadInput struct {
	Bucket      string
	Filename    string
	ContentType string
	Data        []byte
}

// StorageClient issues opaque storage paths on upload and time-limited
// signed URLs on read.
type StorageClient interface {
	Upload(ctx context.Context, input UploadInput) (string, error)
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
	SignedURLs(ctx context.Context, paths []string, expiry time.Duration) (map[string]string, error)
}

// EventPublisher fans an event out to a realtime room. Publishing is
// fire-and-forget; delivery is bounded by the connection set of this node.
type EventPublisher interface {
	Publish(ctx context.Context, room string, event string, payload any)
}

type LastMessageRef struct {
	MessageID string
	Preview   string
	SenderID  string
	SentAt    time.Time
}

type ListConversationsInput struct {
	UserID   string
	Archived bool
	Offset   int
	Limit    int
}

type ListMessagesInput struct {
	ConversationID string
	ViewerID       string
	Offset         int
	Limit          int
}

type SendMessageInput struct {
	ConversationID string
	SenderID       string
	SenderIsAdmin  bool
	Type           entities.MessageType
	Content        string
	ReplyToID      string
}

type SendDocumentInput struct {
	ConversationID string
	SenderID       string
	SenderIsAdmin  bool
	Caption        string
	Filename       string
	MimeType       string
	Size           int64
	Data           []byte
}

// MessagingStatus is the gate verdict for one user in one conversation.
type MessagingStatus struct {
	CanSend           bool
	Reason            string
	MessagesRemaining *int
}

// ConversationView is a list row: the conversation plus the viewer's unread
// count and Directory snapshots of the other participants.
type ConversationView struct {
	Conversation entities.Conversation
	UnreadCount  int
	Peers        []UserSnapshot
}

// MessageGroup is one calendar-date bucket of a grouped message listing.
type MessageGroup struct {
	DateLabel string
	Messages  []MessageView
}

// MessageView pairs a message with the signed URL issued for its document,
// when it carries one.
type MessageView struct {
	Message           entities.Message
	DocumentSignedURL string
}

type Repository interface {
	CreateConversation(ctx context.Context, conversation entities.Conversation) (entities.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (entities.Conversation, error)
	FindDirectConversation(ctx context.Context, userA string, userB string) (entities.Conversation, bool, error)
	FindStatusReplyConversation(ctx context.Context, statusID string, replyerID string) (entities.Conversation, bool, error)
	ListConversations(ctx context.Context, input ListConversationsInput) ([]entities.Conversation, int, error)
	SetAcceptanceStatus(ctx context.Context, conversationID string, status entities.AcceptanceStatus, actorID string, now time.Time) (entities.Conversation, error)
	SetConversationArchived(ctx context.Context, conversationID string, userID string, archived bool) error
	UpdateLastMessage(ctx context.Context, conversationID string, ref LastMessageRef) error

	IncrementUnread(ctx context.Context, conversationID string, userIDs []string, now time.Time) error
	ResetUnread(ctx context.Context, conversationID string, userID string) error
	IncrementMessageCount(ctx context.Context, conversationID string, userID string, now time.Time) error
	MessageCount(ctx context.Context, conversationID string, userID string) (int, error)
	UnreadCounts(ctx context.Context, conversationIDs []string, userID string) (map[string]int, error)

	CreateMessage(ctx context.Context, message entities.Message) (entities.Message, error)
	GetMessage(ctx context.Context, messageID string) (entities.Message, error)
	ListMessages(ctx context.Context, input ListMessagesInput) ([]entities.Message, int, error)
	MarkConversationRead(ctx context.Context, conversationID string, userID string, now time.Time) (int, error)
	AddReadBy(ctx context.Context, messageIDs []string, userID string, now time.Time) ([]entities.Message, error)
	AddDeliveredTo(ctx context.Context, messageIDs []string, userID string, now time.Time) ([]entities.Message, error)
	SoftDeleteMessage(ctx context.Context, messageID string, userID string, now time.Time) (entities.Message, error)
	HideMessageFor(ctx context.Context, messageID string, userID string) error
}
