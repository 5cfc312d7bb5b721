package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	realtimev1 "mboa/contracts/realtime/v1"

	"mboa/contexts/community-experience/chat-service/domain/entities"
	domainerrors "mboa/contexts/community-experience/chat-service/domain/errors"
	"mboa/contexts/community-experience/chat-service/ports"
)

const (
	defaultMessagePageSize = 50
	maxMessagePageSize     = 200
	previewLength          = 100
	replySnippetLength     = 100
)

type MessageService struct {
	Repo          ports.Repository
	Conversations ConversationService
	Storage       ports.StorageClient
	Directory     ports.DirectoryClient
	Idempotency   ports.IdempotencyStore
	Events        ports.EventPublisher
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger

	MaxContentLength int
	SignedURLExpiry  time.Duration
	StorageBucket    string
	IdempotencyTTL   time.Duration
}

// Send creates a text message after the acceptance gate admits the sender.
// An optional idempotency key makes retries return the original message.
func (s MessageService) Send(ctx context.Context, idempotencyKey string, input ports.SendMessageInput) (entities.Message, error) {
	input.ConversationID = strings.TrimSpace(input.ConversationID)
	input.SenderID = strings.TrimSpace(input.SenderID)
	input.Content = strings.TrimSpace(input.Content)
	if input.Type == "" {
		input.Type = entities.MessageTypeText
	}
	if input.ConversationID == "" || input.SenderID == "" {
		return entities.Message{}, domainerrors.ErrInvalidRequest
	}
	if !entities.IsValidMessageType(input.Type) {
		return entities.Message{}, domainerrors.ErrInvalidRequest
	}
	if input.Type != entities.MessageTypeDocument && input.Content == "" {
		return entities.Message{}, domainerrors.ErrEmptyContent
	}
	if len([]rune(input.Content)) > s.maxContentLength() {
		return entities.Message{}, domainerrors.ErrContentTooLong
	}

	if strings.TrimSpace(idempotencyKey) == "" {
		return s.send(ctx, input, "", "", "", 0)
	}

	payload, _ := json.Marshal(input)
	requestHash := hashStrings("send_message", string(payload))
	var out entities.Message
	err := s.runIdempotent(ctx, idempotencyKey, requestHash,
		func(raw []byte) error { return json.Unmarshal(raw, &out) },
		func() ([]byte, error) {
			created, err := s.send(ctx, input, "", "", "", 0)
			if err != nil {
				return nil, err
			}
			return json.Marshal(created)
		},
	)
	return out, err
}

// SendDocument uploads the buffer to private storage under an opaque name,
// persists the canonical storage path, and returns a fresh signed URL for
// immediate display. Signed URLs are never persisted.
func (s MessageService) SendDocument(ctx context.Context, idempotencyKey string, input ports.SendDocumentInput) (entities.Message, string, error) {
	input.ConversationID = strings.TrimSpace(input.ConversationID)
	input.SenderID = strings.TrimSpace(input.SenderID)
	input.Caption = strings.TrimSpace(input.Caption)
	input.Filename = strings.TrimSpace(input.Filename)
	if input.ConversationID == "" || input.SenderID == "" || input.Filename == "" || len(input.Data) == 0 {
		return entities.Message{}, "", domainerrors.ErrInvalidRequest
	}
	if len([]rune(input.Caption)) > s.maxContentLength() {
		return entities.Message{}, "", domainerrors.ErrContentTooLong
	}

	create := func() (entities.Message, error) {
		objectID, err := s.IDGen.NewID(ctx)
		if err != nil {
			return entities.Message{}, fmt.Errorf("generate document object id: %w", err)
		}
		objectName := "chat-documents/" + objectID + strings.ToLower(path.Ext(input.Filename))
		storagePath, err := s.Storage.Upload(ctx, ports.UploadInput{
			Bucket:      s.StorageBucket,
			Filename:    objectName,
			ContentType: input.MimeType,
			Data:        input.Data,
		})
		if err != nil {
			return entities.Message{}, fmt.Errorf("upload document: %w", err)
		}
		return s.send(ctx, ports.SendMessageInput{
			ConversationID: input.ConversationID,
			SenderID:       input.SenderID,
			SenderIsAdmin:  input.SenderIsAdmin,
			Type:           entities.MessageTypeDocument,
			Content:        input.Caption,
		}, entities.DocumentURLScheme+storagePath, input.Filename, input.MimeType, input.Size)
	}

	var message entities.Message
	if strings.TrimSpace(idempotencyKey) == "" {
		created, err := create()
		if err != nil {
			return entities.Message{}, "", err
		}
		message = created
	} else {
		sum := sha256.Sum256(input.Data)
		requestHash := hashStrings("send_document", input.ConversationID, input.SenderID, input.Filename, hex.EncodeToString(sum[:]))
		err := s.runIdempotent(ctx, idempotencyKey, requestHash,
			func(raw []byte) error { return json.Unmarshal(raw, &message) },
			func() ([]byte, error) {
				created, err := create()
				if err != nil {
					return nil, err
				}
				return json.Marshal(created)
			},
		)
		if err != nil {
			return entities.Message{}, "", err
		}
	}

	signedURL := s.signDocument(ctx, message)
	return message, signedURL, nil
}

func (s MessageService) send(
	ctx context.Context,
	input ports.SendMessageInput,
	documentURL string,
	documentName string,
	documentMime string,
	documentSize int64,
) (entities.Message, error) {
	conversation, err := s.Conversations.requireParticipant(ctx, input.ConversationID, input.SenderID)
	if err != nil {
		return entities.Message{}, err
	}

	gate, err := s.Conversations.messagingStatus(ctx, conversation, input.SenderID, input.SenderIsAdmin)
	if err != nil {
		return entities.Message{}, err
	}
	if !gate.CanSend {
		if gate.Reason == ReasonMessageLimit {
			return entities.Message{}, domainerrors.ErrMessageLimitReached
		}
		return entities.Message{}, domainerrors.ErrConversationBlocked
	}

	now := s.now()
	var replyTo *entities.ReplyRef
	if strings.TrimSpace(input.ReplyToID) != "" {
		replyTo, err = s.buildReplyRef(ctx, input.ConversationID, input.ReplyToID)
		if err != nil {
			return entities.Message{}, err
		}
	}

	id, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.Message{}, fmt.Errorf("generate message id: %w", err)
	}
	message := entities.Message{
		MessageID:        id,
		ConversationID:   conversation.ConversationID,
		SenderID:         input.SenderID,
		Type:             input.Type,
		Content:          input.Content,
		DocumentURL:      documentURL,
		DocumentName:     documentName,
		DocumentMimeType: documentMime,
		DocumentSize:     documentSize,
		ReplyTo:          replyTo,
		Status:           entities.MessageStatusSent,
		ReadBy:           []string{input.SenderID},
		DeliveredTo:      []string{input.SenderID},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	created, err := s.Repo.CreateMessage(ctx, message)
	if err != nil {
		return entities.Message{}, err
	}

	// The recipient's first answer accepts the conversation.
	if conversation.IsPending() && input.SenderID != conversation.InitiatorID {
		if _, err := s.Repo.SetAcceptanceStatus(ctx, conversation.ConversationID, entities.AcceptanceAccepted, input.SenderID, now); err != nil {
			return entities.Message{}, err
		}
	}

	if err := s.Repo.UpdateLastMessage(ctx, conversation.ConversationID, ports.LastMessageRef{
		MessageID: created.MessageID,
		Preview:   created.Preview(previewLength),
		SenderID:  created.SenderID,
		SentAt:    now,
	}); err != nil {
		return entities.Message{}, err
	}
	// Sending restores the conversation for the sender only.
	if err := s.Repo.SetConversationArchived(ctx, conversation.ConversationID, input.SenderID, false); err != nil {
		return entities.Message{}, err
	}

	others := conversation.OtherParticipants(input.SenderID)
	if err := s.Repo.IncrementUnread(ctx, conversation.ConversationID, others, now); err != nil {
		return entities.Message{}, err
	}
	if err := s.Repo.IncrementMessageCount(ctx, conversation.ConversationID, input.SenderID, now); err != nil {
		return entities.Message{}, err
	}

	s.publishSendEvents(ctx, conversation, created)

	resolveLogger(s.Logger).Debug("message sent",
		"event", "chat_message_sent",
		"module", "community-experience/chat-service",
		"layer", "application",
		"conversation_id", conversation.ConversationID,
		"message_id", created.MessageID,
		"type", string(created.Type),
	)
	return created, nil
}

func (s MessageService) buildReplyRef(ctx context.Context, conversationID string, replyToID string) (*entities.ReplyRef, error) {
	replied, err := s.Repo.GetMessage(ctx, strings.TrimSpace(replyToID))
	if err != nil {
		return nil, err
	}
	if replied.ConversationID != conversationID {
		return nil, domainerrors.ErrInvalidRequest
	}
	senderName := ""
	if snapshots, err := s.Directory.GetUsers(ctx, []string{replied.SenderID}); err == nil {
		senderName = snapshots[replied.SenderID].Name
	}
	return &entities.ReplyRef{
		MessageID:  replied.MessageID,
		Snippet:    entities.Snippet(replied.Preview(replySnippetLength), replySnippetLength),
		SenderID:   replied.SenderID,
		SenderName: senderName,
		Type:       replied.Type,
	}, nil
}

func (s MessageService) publishSendEvents(ctx context.Context, conversation entities.Conversation, message entities.Message) {
	if s.Events == nil {
		return
	}
	payload := messageEventPayload(message)
	s.Events.Publish(ctx, realtimev1.ConversationRoom(conversation.ConversationID), realtimev1.EventMessageNew, payload)
	for _, other := range conversation.OtherParticipants(message.SenderID) {
		s.Events.Publish(ctx, realtimev1.UserRoom(other), realtimev1.EventMessageNotification, payload)
	}
	s.Events.Publish(ctx, realtimev1.UserRoom(message.SenderID), realtimev1.EventMessageSent, map[string]any{
		"messageId":      message.MessageID,
		"conversationId": message.ConversationID,
		"createdAt":      message.CreatedAt,
	})
}

// Get returns one message with a fresh signed URL when it is a document.
func (s MessageService) Get(ctx context.Context, messageID string, userID string) (ports.MessageView, error) {
	message, err := s.visibleMessage(ctx, messageID, userID)
	if err != nil {
		return ports.MessageView{}, err
	}
	return ports.MessageView{Message: message, DocumentSignedURL: s.signDocument(ctx, message)}, nil
}

// List returns one page of messages, newest first, excluding messages the
// viewer has hidden. Signed URLs are attached in batch for documents.
func (s MessageService) List(ctx context.Context, conversationID string, viewerID string, page int, limit int) ([]ports.MessageView, int, error) {
	if _, err := s.Conversations.requireParticipant(ctx, conversationID, viewerID); err != nil {
		return nil, 0, err
	}
	page, limit = normalizePage(page, limit, defaultMessagePageSize, maxMessagePageSize)
	messages, total, err := s.Repo.ListMessages(ctx, ports.ListMessagesInput{
		ConversationID: conversationID,
		ViewerID:       viewerID,
		Offset:         (page - 1) * limit,
		Limit:          limit,
	})
	if err != nil {
		return nil, 0, err
	}
	return s.attachSignedURLs(ctx, messages), total, nil
}

// ListGrouped reassembles one page in ascending order and groups it by
// calendar date with Today/Yesterday labels.
func (s MessageService) ListGrouped(ctx context.Context, conversationID string, viewerID string, page int, limit int) ([]ports.MessageGroup, int, error) {
	views, total, err := s.List(ctx, conversationID, viewerID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	// Reverse into ascending creation order for display.
	for i, j := 0, len(views)-1; i < j; i, j = i+1, j-1 {
		views[i], views[j] = views[j], views[i]
	}

	now := s.now()
	groups := make([]ports.MessageGroup, 0)
	for _, view := range views {
		label := dateLabel(view.Message.CreatedAt, now)
		if len(groups) == 0 || groups[len(groups)-1].DateLabel != label {
			groups = append(groups, ports.MessageGroup{DateLabel: label})
		}
		groups[len(groups)-1].Messages = append(groups[len(groups)-1].Messages, view)
	}
	return groups, total, nil
}

// SoftDelete marks the message deleted. Only the sender may do this.
func (s MessageService) SoftDelete(ctx context.Context, messageID string, userID string) (entities.Message, error) {
	message, err := s.Repo.GetMessage(ctx, strings.TrimSpace(messageID))
	if err != nil {
		return entities.Message{}, err
	}
	if message.SenderID != strings.TrimSpace(userID) {
		return entities.Message{}, domainerrors.ErrNotSender
	}
	return s.Repo.SoftDeleteMessage(ctx, message.MessageID, userID, s.now())
}

// DeleteForUser hides the message from one viewer only.
func (s MessageService) DeleteForUser(ctx context.Context, messageID string, userID string) error {
	message, err := s.Repo.GetMessage(ctx, strings.TrimSpace(messageID))
	if err != nil {
		return err
	}
	if _, err := s.Conversations.requireParticipant(ctx, message.ConversationID, userID); err != nil {
		return err
	}
	return s.Repo.HideMessageFor(ctx, message.MessageID, strings.TrimSpace(userID))
}

func (s MessageService) BulkDeleteForUser(ctx context.Context, messageIDs []string, userID string) (int, error) {
	deleted := 0
	for _, id := range messageIDs {
		if strings.TrimSpace(id) == "" {
			continue
		}
		if err := s.DeleteForUser(ctx, id, userID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// Forward re-sends the listed messages into every target conversation. The
// user must be a participant of every target; documents keep their opaque
// storage path without re-upload.
func (s MessageService) Forward(ctx context.Context, messageIDs []string, targetConversationIDs []string, userID string, isAdmin bool) ([]entities.Message, error) {
	if len(messageIDs) == 0 || len(targetConversationIDs) == 0 {
		return nil, domainerrors.ErrInvalidRequest
	}
	sources := make([]entities.Message, 0, len(messageIDs))
	for _, id := range messageIDs {
		message, err := s.visibleMessage(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		sources = append(sources, message)
	}
	for _, target := range targetConversationIDs {
		if _, err := s.Conversations.requireParticipant(ctx, target, userID); err != nil {
			return nil, err
		}
	}

	forwarded := make([]entities.Message, 0, len(sources)*len(targetConversationIDs))
	for _, target := range targetConversationIDs {
		for _, source := range sources {
			created, err := s.send(ctx, ports.SendMessageInput{
				ConversationID: target,
				SenderID:       userID,
				SenderIsAdmin:  isAdmin,
				Type:           source.Type,
				Content:        source.Content,
			}, source.DocumentURL, source.DocumentName, source.DocumentMimeType, source.DocumentSize)
			if err != nil {
				return nil, err
			}
			forwarded = append(forwarded, created)
		}
	}
	return forwarded, nil
}

// MarkRead adds the user to readBy of each message and publishes the read
// receipt to the affected conversation rooms.
func (s MessageService) MarkRead(ctx context.Context, messageIDs []string, userID string) ([]entities.Message, error) {
	userID = strings.TrimSpace(userID)
	if len(messageIDs) == 0 || userID == "" {
		return nil, domainerrors.ErrInvalidRequest
	}
	now := s.now()
	updated, err := s.Repo.AddReadBy(ctx, messageIDs, userID, now)
	if err != nil {
		return nil, err
	}
	if s.Events != nil {
		byConversation := map[string][]string{}
		for _, message := range updated {
			byConversation[message.ConversationID] = append(byConversation[message.ConversationID], message.MessageID)
		}
		for conversationID, ids := range byConversation {
			s.Events.Publish(ctx, realtimev1.ConversationRoom(conversationID), realtimev1.EventMessageRead, map[string]any{
				"conversationId": conversationID,
				"messageIds":     ids,
				"readBy":         userID,
				"readAt":         now,
			})
		}
	}
	return updated, nil
}

func (s MessageService) MarkDelivered(ctx context.Context, messageIDs []string, userID string) ([]entities.Message, error) {
	userID = strings.TrimSpace(userID)
	if len(messageIDs) == 0 || userID == "" {
		return nil, domainerrors.ErrInvalidRequest
	}
	return s.Repo.AddDeliveredTo(ctx, messageIDs, userID, s.now())
}

// DocumentURL issues a fresh signed URL for a document message. Unlike list
// batching, failures here surface to the caller.
func (s MessageService) DocumentURL(ctx context.Context, messageID string, userID string) (string, time.Time, error) {
	message, err := s.visibleMessage(ctx, messageID, userID)
	if err != nil {
		return "", time.Time{}, err
	}
	storagePath, ok := strings.CutPrefix(message.DocumentURL, entities.DocumentURLScheme)
	if !ok || storagePath == "" {
		return "", time.Time{}, domainerrors.ErrInvalidRequest
	}
	signed, err := s.Storage.SignedURL(ctx, storagePath, s.signedURLExpiry())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue signed url: %w", err)
	}
	return signed, s.now().Add(s.signedURLExpiry()), nil
}

func (s MessageService) visibleMessage(ctx context.Context, messageID string, userID string) (entities.Message, error) {
	message, err := s.Repo.GetMessage(ctx, strings.TrimSpace(messageID))
	if err != nil {
		return entities.Message{}, err
	}
	if _, err := s.Conversations.requireParticipant(ctx, message.ConversationID, userID); err != nil {
		return entities.Message{}, err
	}
	if message.IsHiddenFor(strings.TrimSpace(userID)) {
		return entities.Message{}, domainerrors.ErrMessageNotFound
	}
	return message, nil
}

// attachSignedURLs resolves opaque storage paths to signed URLs in one batch.
// On storage failure the listing continues without URLs.
func (s MessageService) attachSignedURLs(ctx context.Context, messages []entities.Message) []ports.MessageView {
	paths := make([]string, 0)
	for _, message := range messages {
		if storagePath, ok := strings.CutPrefix(message.DocumentURL, entities.DocumentURLScheme); ok && storagePath != "" {
			paths = append(paths, storagePath)
		}
	}
	signed := map[string]string{}
	if len(paths) > 0 {
		urls, err := s.Storage.SignedURLs(ctx, paths, s.signedURLExpiry())
		if err != nil {
			resolveLogger(s.Logger).Warn("signed url batch failed, listing continues without urls",
				"event", "chat_signed_url_batch_failed",
				"module", "community-experience/chat-service",
				"layer", "application",
				"error", err,
			)
		} else {
			signed = urls
		}
	}

	views := make([]ports.MessageView, 0, len(messages))
	for _, message := range messages {
		view := ports.MessageView{Message: message}
		if storagePath, ok := strings.CutPrefix(message.DocumentURL, entities.DocumentURLScheme); ok {
			view.DocumentSignedURL = signed[storagePath]
		}
		views = append(views, view)
	}
	return views
}

func (s MessageService) signDocument(ctx context.Context, message entities.Message) string {
	storagePath, ok := strings.CutPrefix(message.DocumentURL, entities.DocumentURLScheme)
	if !ok || storagePath == "" {
		return ""
	}
	signed, err := s.Storage.SignedURL(ctx, storagePath, s.signedURLExpiry())
	if err != nil {
		resolveLogger(s.Logger).Warn("signed url issuance failed",
			"event", "chat_signed_url_failed",
			"module", "community-experience/chat-service",
			"layer", "application",
			"message_id", message.MessageID,
			"error", err,
		)
		return ""
	}
	return signed
}

func messageEventPayload(message entities.Message) map[string]any {
	payload := map[string]any{
		"messageId":      message.MessageID,
		"conversationId": message.ConversationID,
		"senderId":       message.SenderID,
		"type":           string(message.Type),
		"content":        message.Content,
		"status":         string(message.Status),
		"createdAt":      message.CreatedAt,
	}
	if message.DocumentURL != "" {
		payload["documentName"] = message.DocumentName
		payload["documentMimeType"] = message.DocumentMimeType
		payload["documentSize"] = message.DocumentSize
	}
	if message.ReplyTo != nil {
		payload["replyTo"] = map[string]any{
			"messageId":  message.ReplyTo.MessageID,
			"snippet":    message.ReplyTo.Snippet,
			"senderId":   message.ReplyTo.SenderID,
			"senderName": message.ReplyTo.SenderName,
			"type":       string(message.ReplyTo.Type),
		}
	}
	return payload
}

func dateLabel(t time.Time, now time.Time) string {
	day := t.UTC().Truncate(24 * time.Hour)
	today := now.UTC().Truncate(24 * time.Hour)
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return t.UTC().Format("Jan 2, 2006")
	}
}

func (s MessageService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s MessageService) maxContentLength() int {
	if s.MaxContentLength <= 0 {
		return 5000
	}
	return s.MaxContentLength
}

func (s MessageService) signedURLExpiry() time.Duration {
	if s.SignedURLExpiry <= 0 {
		return time.Hour
	}
	return s.SignedURLExpiry
}

func (s MessageService) idempotencyTTL() time.Duration {
	if s.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.IdempotencyTTL
}

func (s MessageService) runIdempotent(
	ctx context.Context,
	key string,
	requestHash string,
	decode func([]byte) error,
	exec func() ([]byte, error),
) error {
	now := s.now()
	record, found, err := s.Idempotency.Get(ctx, key, now)
	if err != nil {
		return err
	}
	if found {
		if record.RequestHash != requestHash {
			return domainerrors.ErrIdempotencyConflict
		}
		return decode(record.Payload)
	}

	payload, err := exec()
	if err != nil {
		return err
	}
	if err := s.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Payload:     payload,
		ExpiresAt:   now.Add(s.idempotencyTTL()),
	}); err != nil {
		return err
	}
	return decode(payload)
}

func hashStrings(values ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(values, "|")))
	return hex.EncodeToString(sum[:])
}
