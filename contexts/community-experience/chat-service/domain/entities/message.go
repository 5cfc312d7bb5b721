package entities

import (
	"strings"
	"time"
	"unicode/utf8"
)

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeDocument MessageType = "document"
	MessageTypeSystem   MessageType = "system"
	MessageTypeAd       MessageType = "ad"
)

type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// DocumentURLScheme prefixes the canonical opaque storage path persisted on
// document messages. Anything without this prefix is treated as external.
const DocumentURLScheme = "storage://"

// ReplyRef is the denormalized snapshot of the message being replied to.
type ReplyRef struct {
	MessageID  string
	Snippet    string
	SenderID   string
	SenderName string
	Type       MessageType
}

// Message is a single chat entry. DocumentURL holds the canonical opaque
// storage path; signed URLs are issued on read and never persisted.
type Message struct {
	MessageID        string
	ConversationID   string
	SenderID         string
	Type             MessageType
	Content          string
	DocumentURL      string
	DocumentName     string
	DocumentMimeType string
	DocumentSize     int64
	ReplyTo          *ReplyRef
	Status           MessageStatus
	ReadBy           []string
	DeliveredTo      []string
	Deleted          bool
	DeletedAt        *time.Time
	DeletedFor       []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (m Message) IsReadBy(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

func (m Message) IsDeliveredTo(userID string) bool {
	for _, id := range m.DeliveredTo {
		if id == userID {
			return true
		}
	}
	return false
}

func (m Message) IsHiddenFor(userID string) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

func IsValidMessageType(t MessageType) bool {
	switch t {
	case MessageTypeText, MessageTypeDocument, MessageTypeSystem, MessageTypeAd:
		return true
	default:
		return false
	}
}

// Snippet truncates text to limit runes for previews and reply references.
func Snippet(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}

// Preview is the conversation-list line for a message: content when present,
// the document name for attachments without caption.
func (m Message) Preview(limit int) string {
	if strings.TrimSpace(m.Content) != "" {
		return Snippet(m.Content, limit)
	}
	if m.Type == MessageTypeDocument {
		return Snippet(m.DocumentName, limit)
	}
	return ""
}
