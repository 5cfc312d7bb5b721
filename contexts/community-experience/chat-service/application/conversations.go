package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	realtimev1 "mboa/contracts/realtime/v1"

	"mboa/contexts/community-experience/chat-service/domain/entities"
	domainerrors "mboa/contexts/community-experience/chat-service/domain/errors"
	"mboa/contexts/community-experience/chat-service/ports"
)

const (
	// initiatorMessageAllowance is the number of messages the initiator may
	// send while the conversation is still pending.
	initiatorMessageAllowance = 3

	defaultConversationPageSize = 20
	maxConversationPageSize     = 100
)

const (
	ReasonReported           = "reported"
	ReasonBlocked            = "blocked"
	ReasonMessageLimit       = "message_limit_reached"
	ReasonRecipientCanAccept = "recipient"
)

type ConversationService struct {
	Repo      ports.Repository
	Directory ports.DirectoryClient
	Events    ports.EventPublisher
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// GetOrCreateDirect returns the unique direct conversation between the two
// users, creating it in the pending state when it does not exist yet.
// The second return value reports whether a new conversation was created.
func (s ConversationService) GetOrCreateDirect(ctx context.Context, initiatorID string, participantID string) (entities.Conversation, bool, error) {
	initiatorID = strings.TrimSpace(initiatorID)
	participantID = strings.TrimSpace(participantID)
	if initiatorID == "" || participantID == "" {
		return entities.Conversation{}, false, domainerrors.ErrInvalidRequest
	}
	if initiatorID == participantID {
		return entities.Conversation{}, false, domainerrors.ErrSelfConversation
	}

	existing, found, err := s.Repo.FindDirectConversation(ctx, initiatorID, participantID)
	if err != nil {
		return entities.Conversation{}, false, err
	}
	if found {
		return existing, false, nil
	}

	id, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.Conversation{}, false, fmt.Errorf("generate conversation id: %w", err)
	}
	now := s.now()
	participants := []string{initiatorID, participantID}
	sort.Strings(participants)

	created, err := s.Repo.CreateConversation(ctx, entities.Conversation{
		ConversationID:   id,
		Type:             entities.ConversationTypeDirect,
		Participants:     participants,
		InitiatorID:      initiatorID,
		AcceptanceStatus: entities.AcceptancePending,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		// A concurrent creator may have won the unique race.
		if existing, found, findErr := s.Repo.FindDirectConversation(ctx, initiatorID, participantID); findErr == nil && found {
			return existing, false, nil
		}
		return entities.Conversation{}, false, err
	}

	resolveLogger(s.Logger).Info("direct conversation created",
		"event", "chat_conversation_created",
		"module", "community-experience/chat-service",
		"layer", "application",
		"conversation_id", created.ConversationID,
		"initiator_id", initiatorID,
	)
	return created, true, nil
}

// GetOrCreateStatusReply returns the unique reply conversation opened by
// replyerID on the given status, creating it when absent.
func (s ConversationService) GetOrCreateStatusReply(ctx context.Context, statusID string, replyerID string, authorID string) (entities.Conversation, bool, error) {
	statusID = strings.TrimSpace(statusID)
	replyerID = strings.TrimSpace(replyerID)
	authorID = strings.TrimSpace(authorID)
	if statusID == "" || replyerID == "" || authorID == "" {
		return entities.Conversation{}, false, domainerrors.ErrInvalidRequest
	}
	if replyerID == authorID {
		return entities.Conversation{}, false, domainerrors.ErrSelfConversation
	}

	existing, found, err := s.Repo.FindStatusReplyConversation(ctx, statusID, replyerID)
	if err != nil {
		return entities.Conversation{}, false, err
	}
	if found {
		return existing, false, nil
	}

	id, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.Conversation{}, false, fmt.Errorf("generate conversation id: %w", err)
	}
	now := s.now()
	created, err := s.Repo.CreateConversation(ctx, entities.Conversation{
		ConversationID:   id,
		Type:             entities.ConversationTypeStatusReply,
		StatusID:         statusID,
		Participants:     []string{replyerID, authorID},
		InitiatorID:      replyerID,
		AcceptanceStatus: entities.AcceptancePending,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		if existing, found, findErr := s.Repo.FindStatusReplyConversation(ctx, statusID, replyerID); findErr == nil && found {
			return existing, false, nil
		}
		return entities.Conversation{}, false, err
	}

	resolveLogger(s.Logger).Info("status reply conversation created",
		"event", "chat_status_reply_conversation_created",
		"module", "community-experience/chat-service",
		"layer", "application",
		"conversation_id", created.ConversationID,
		"status_id", statusID,
	)
	return created, true, nil
}

func (s ConversationService) Get(ctx context.Context, conversationID string, userID string) (entities.Conversation, error) {
	conversation, err := s.requireParticipant(ctx, conversationID, userID)
	if err != nil {
		return entities.Conversation{}, err
	}
	return conversation, nil
}

// GetView loads one conversation with the viewer's unread count and the
// Directory snapshots of the other participants.
func (s ConversationService) GetView(ctx context.Context, conversationID string, userID string) (ports.ConversationView, error) {
	conversation, err := s.requireParticipant(ctx, conversationID, userID)
	if err != nil {
		return ports.ConversationView{}, err
	}
	unread, err := s.Repo.UnreadCounts(ctx, []string{conversation.ConversationID}, userID)
	if err != nil {
		return ports.ConversationView{}, err
	}
	peers := make([]ports.UserSnapshot, 0, len(conversation.Participants)-1)
	others := conversation.OtherParticipants(userID)
	if len(others) > 0 {
		snapshots, err := s.Directory.GetUsers(ctx, others)
		if err != nil {
			return ports.ConversationView{}, fmt.Errorf("directory batch lookup: %w", err)
		}
		for _, other := range others {
			peers = append(peers, snapshots[other])
		}
	}
	return ports.ConversationView{
		Conversation: conversation,
		UnreadCount:  unread[conversation.ConversationID],
		Peers:        peers,
	}, nil
}

// List returns the viewer's non-archived conversations with unread counts
// and Directory snapshots of the other participants.
func (s ConversationService) List(ctx context.Context, userID string, page int, limit int) ([]ports.ConversationView, int, error) {
	return s.list(ctx, userID, false, page, limit)
}

func (s ConversationService) ListArchived(ctx context.Context, userID string, page int, limit int) ([]ports.ConversationView, int, error) {
	return s.list(ctx, userID, true, page, limit)
}

func (s ConversationService) list(ctx context.Context, userID string, archived bool, page int, limit int) ([]ports.ConversationView, int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, 0, domainerrors.ErrInvalidRequest
	}
	page, limit = normalizePage(page, limit, defaultConversationPageSize, maxConversationPageSize)

	conversations, total, err := s.Repo.ListConversations(ctx, ports.ListConversationsInput{
		UserID:   userID,
		Archived: archived,
		Offset:   (page - 1) * limit,
		Limit:    limit,
	})
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(conversations))
	peerIDs := make([]string, 0, len(conversations))
	seen := map[string]bool{}
	for _, conversation := range conversations {
		ids = append(ids, conversation.ConversationID)
		for _, other := range conversation.OtherParticipants(userID) {
			if !seen[other] {
				seen[other] = true
				peerIDs = append(peerIDs, other)
			}
		}
	}

	unread, err := s.Repo.UnreadCounts(ctx, ids, userID)
	if err != nil {
		return nil, 0, err
	}
	snapshots := map[string]ports.UserSnapshot{}
	if len(peerIDs) > 0 {
		snapshots, err = s.Directory.GetUsers(ctx, peerIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("directory batch lookup: %w", err)
		}
	}

	views := make([]ports.ConversationView, 0, len(conversations))
	for _, conversation := range conversations {
		peers := make([]ports.UserSnapshot, 0, len(conversation.Participants)-1)
		for _, other := range conversation.OtherParticipants(userID) {
			peers = append(peers, snapshots[other])
		}
		views = append(views, ports.ConversationView{
			Conversation: conversation,
			UnreadCount:  unread[conversation.ConversationID],
			Peers:        peers,
		})
	}
	return views, total, nil
}

// Archive hides the conversation from the viewer's default list.
func (s ConversationService) Archive(ctx context.Context, conversationID string, userID string) error {
	if _, err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return err
	}
	return s.Repo.SetConversationArchived(ctx, conversationID, userID, true)
}

func (s ConversationService) Restore(ctx context.Context, conversationID string, userID string) error {
	if _, err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return err
	}
	return s.Repo.SetConversationArchived(ctx, conversationID, userID, false)
}

// BulkArchive archives every listed conversation for the viewer and returns
// how many were archived. Conversations are never hard-deleted.
func (s ConversationService) BulkArchive(ctx context.Context, conversationIDs []string, userID string) (int, error) {
	archived := 0
	for _, id := range conversationIDs {
		if strings.TrimSpace(id) == "" {
			continue
		}
		if err := s.Archive(ctx, id, userID); err != nil {
			return archived, err
		}
		archived++
	}
	return archived, nil
}

// MarkRead marks every message not authored by userID as read and resets the
// viewer's unread counter. Returns the number of newly read messages.
func (s ConversationService) MarkRead(ctx context.Context, conversationID string, userID string) (int, error) {
	conversation, err := s.requireParticipant(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	now := s.now()
	affected, err := s.Repo.MarkConversationRead(ctx, conversationID, userID, now)
	if err != nil {
		return 0, err
	}
	if err := s.Repo.ResetUnread(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	if affected > 0 && s.Events != nil {
		s.Events.Publish(ctx, realtimev1.ConversationRoom(conversation.ConversationID), realtimev1.EventMessageRead, map[string]any{
			"conversationId": conversation.ConversationID,
			"readBy":         userID,
			"readAt":         now,
			"count":          affected,
		})
	}
	return affected, nil
}

// Accept opens unrestricted messaging for all participants.
func (s ConversationService) Accept(ctx context.Context, conversationID string, userID string) (entities.Conversation, error) {
	conversation, err := s.requireParticipant(ctx, conversationID, userID)
	if err != nil {
		return entities.Conversation{}, err
	}
	if conversation.MessagingClosed() {
		return entities.Conversation{}, domainerrors.ErrConversationBlocked
	}
	if conversation.AcceptanceStatus == entities.AcceptanceAccepted {
		return conversation, nil
	}
	return s.Repo.SetAcceptanceStatus(ctx, conversationID, entities.AcceptanceAccepted, userID, s.now())
}

// Report freezes the conversation for all participants.
func (s ConversationService) Report(ctx context.Context, conversationID string, userID string) (entities.Conversation, error) {
	if _, err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return entities.Conversation{}, err
	}
	updated, err := s.Repo.SetAcceptanceStatus(ctx, conversationID, entities.AcceptanceReported, userID, s.now())
	if err != nil {
		return entities.Conversation{}, err
	}
	resolveLogger(s.Logger).Info("conversation reported",
		"event", "chat_conversation_reported",
		"module", "community-experience/chat-service",
		"layer", "application",
		"conversation_id", conversationID,
		"reported_by", userID,
	)
	return updated, nil
}

// MessagingStatus evaluates the acceptance gate for userID.
func (s ConversationService) MessagingStatus(ctx context.Context, conversationID string, userID string, isAdmin bool) (ports.MessagingStatus, error) {
	conversation, err := s.requireParticipant(ctx, conversationID, userID)
	if err != nil {
		return ports.MessagingStatus{}, err
	}
	return s.messagingStatus(ctx, conversation, userID, isAdmin)
}

func (s ConversationService) messagingStatus(ctx context.Context, conversation entities.Conversation, userID string, isAdmin bool) (ports.MessagingStatus, error) {
	switch {
	case conversation.AcceptanceStatus == entities.AcceptanceAccepted:
		return ports.MessagingStatus{CanSend: true}, nil
	case conversation.MessagingClosed():
		return ports.MessagingStatus{CanSend: false, Reason: string(conversation.AcceptanceStatus)}, nil
	}

	// Pending: the recipient may always answer, the first answer accepts.
	if userID != conversation.InitiatorID {
		return ports.MessagingStatus{CanSend: true, Reason: ReasonRecipientCanAccept}, nil
	}
	if isAdmin {
		return ports.MessagingStatus{CanSend: true}, nil
	}

	sent, err := s.Repo.MessageCount(ctx, conversation.ConversationID, userID)
	if err != nil {
		return ports.MessagingStatus{}, err
	}
	remaining := initiatorMessageAllowance - sent
	if remaining < 0 {
		remaining = 0
	}
	if remaining > 0 {
		return ports.MessagingStatus{CanSend: true, MessagesRemaining: &remaining}, nil
	}

	for _, other := range conversation.OtherParticipants(userID) {
		related, err := s.Directory.HasReferralRelation(ctx, userID, other)
		if err != nil {
			return ports.MessagingStatus{}, fmt.Errorf("directory referral lookup: %w", err)
		}
		if related {
			return ports.MessagingStatus{CanSend: true}, nil
		}
	}
	return ports.MessagingStatus{CanSend: false, Reason: ReasonMessageLimit, MessagesRemaining: &remaining}, nil
}

func (s ConversationService) requireParticipant(ctx context.Context, conversationID string, userID string) (entities.Conversation, error) {
	conversationID = strings.TrimSpace(conversationID)
	userID = strings.TrimSpace(userID)
	if conversationID == "" || userID == "" {
		return entities.Conversation{}, domainerrors.ErrInvalidRequest
	}
	conversation, err := s.Repo.GetConversation(ctx, conversationID)
	if err != nil {
		return entities.Conversation{}, err
	}
	if !conversation.HasParticipant(userID) {
		return entities.Conversation{}, domainerrors.ErrNotParticipant
	}
	return conversation, nil
}

func (s ConversationService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func normalizePage(page int, limit int, fallback int, maximum int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = fallback
	}
	if limit > maximum {
		limit = maximum
	}
	return page, limit
}
