package entities

import (
	"strings"
	"time"
)

type ConversationType string

const (
	ConversationTypeDirect      ConversationType = "direct"
	ConversationTypeStatusReply ConversationType = "status_reply"
)

type AcceptanceStatus string

const (
	AcceptancePending  AcceptanceStatus = "pending"
	AcceptanceAccepted AcceptanceStatus = "accepted"
	AcceptanceReported AcceptanceStatus = "reported"
	AcceptanceBlocked  AcceptanceStatus = "blocked"
)

// Conversation is the membership and gate record for a chat thread.
// Participants never shrink; per-user archiving is tracked in DeletedFor.
type Conversation struct {
	ConversationID      string
	Type                ConversationType
	StatusID            string
	Participants        []string
	InitiatorID         string
	AcceptanceStatus    AcceptanceStatus
	AcceptedAt          *time.Time
	ReportedAt          *time.Time
	ReportedBy          string
	LastMessageID       string
	LastMessageAt       *time.Time
	LastMessagePreview  string
	LastMessageSenderID string
	DeletedFor          []string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (c Conversation) HasParticipant(userID string) bool {
	userID = strings.TrimSpace(userID)
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherParticipants returns every participant except userID.
func (c Conversation) OtherParticipants(userID string) []string {
	others := make([]string, 0, len(c.Participants))
	for _, id := range c.Participants {
		if id != userID {
			others = append(others, id)
		}
	}
	return others
}

func (c Conversation) IsArchivedFor(userID string) bool {
	for _, id := range c.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

// MessagingClosed reports whether the gate forbids sending for everyone.
func (c Conversation) MessagingClosed() bool {
	return c.AcceptanceStatus == AcceptanceReported || c.AcceptanceStatus == AcceptanceBlocked
}

func (c Conversation) IsPending() bool {
	return c.AcceptanceStatus == AcceptancePending
}

func IsValidConversationType(t ConversationType) bool {
	return t == ConversationTypeDirect || t == ConversationTypeStatusReply
}

func IsValidAcceptanceStatus(s AcceptanceStatus) bool {
	switch s {
	case AcceptancePending, AcceptanceAccepted, AcceptanceReported, AcceptanceBlocked:
		return true
	default:
		return false
	}
}
