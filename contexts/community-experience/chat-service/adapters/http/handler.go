package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"mboa/contexts/community-experience/chat-service/application"
	"mboa/contexts/community-experience/chat-service/domain/entities"
	"mboa/contexts/community-experience/chat-service/ports"
	httptransport "mboa/contexts/community-experience/chat-service/transport/http"
)

type Handler struct {
	Conversations application.ConversationService
	Messages      application.MessageService
	Logger        *slog.Logger
}

func (h Handler) CreateConversationHandler(
	ctx context.Context,
	userID string,
	req httptransport.CreateConversationRequest,
) (httptransport.ConversationResponse, bool, error) {
	conversation, created, err := h.Conversations.GetOrCreateDirect(ctx, userID, req.ParticipantID)
	if err != nil {
		return httptransport.ConversationResponse{}, false, err
	}
	resp := httptransport.ConversationResponse{Success: true}
	resp.Message = "Conversation retrieved"
	if created {
		resp.Message = "Conversation created"
	}
	resp.Data = toConversationDTO(ports.ConversationView{Conversation: conversation}, userID)
	return resp, created, nil
}

func (h Handler) ListConversationsHandler(
	ctx context.Context,
	userID string,
	archived bool,
	page int,
	limit int,
) (httptransport.ConversationListResponse, error) {
	var (
		views []ports.ConversationView
		total int
		err   error
	)
	if archived {
		views, total, err = h.Conversations.ListArchived(ctx, userID, page, limit)
	} else {
		views, total, err = h.Conversations.List(ctx, userID, page, limit)
	}
	if err != nil {
		return httptransport.ConversationListResponse{}, err
	}
	resp := httptransport.ConversationListResponse{Success: true}
	resp.Data = make([]httptransport.ConversationDTO, 0, len(views))
	for _, view := range views {
		resp.Data = append(resp.Data, toConversationDTO(view, userID))
	}
	resp.Pagination = httptransport.NewPagination(normalizedPage(page), normalizedLimit(limit, 20), total)
	return resp, nil
}

func (h Handler) GetConversationHandler(
	ctx context.Context,
	userID string,
	conversationID string,
) (httptransport.ConversationResponse, error) {
	view, err := h.Conversations.GetView(ctx, conversationID, userID)
	if err != nil {
		return httptransport.ConversationResponse{}, err
	}
	return httptransport.ConversationResponse{
		Success: true,
		Data:    toConversationDTO(view, userID),
	}, nil
}

func (h Handler) AcceptConversationHandler(
	ctx context.Context,
	userID string,
	conversationID string,
) (httptransport.ConversationResponse, error) {
	conversation, err := h.Conversations.Accept(ctx, conversationID, userID)
	if err != nil {
		return httptransport.ConversationResponse{}, err
	}
	return httptransport.ConversationResponse{
		Success: true,
		Message: "Conversation accepted",
		Data:    toConversationDTO(ports.ConversationView{Conversation: conversation}, userID),
	}, nil
}

func (h Handler) ReportConversationHandler(
	ctx context.Context,
	userID string,
	conversationID string,
) (httptransport.ConversationResponse, error) {
	conversation, err := h.Conversations.Report(ctx, conversationID, userID)
	if err != nil {
		return httptransport.ConversationResponse{}, err
	}
	return httptransport.ConversationResponse{
		Success: true,
		Message: "Conversation reported",
		Data:    toConversationDTO(ports.ConversationView{Conversation: conversation}, userID),
	}, nil
}

func (h Handler) ArchiveConversationHandler(
	ctx context.Context,
	userID string,
	conversationID string,
) (httptransport.GenericResponse, error) {
	if err := h.Conversations.Archive(ctx, conversationID, userID); err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{Success: true, Message: "Conversation archived"}, nil
}

func (h Handler) RestoreConversationHandler(
	ctx context.Context,
	userID string,
	conversationID string,
) (httptransport.GenericResponse, error) {
	if err := h.Conversations.Restore(ctx, conversationID, userID); err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{Success: true, Message: "Conversation restored"}, nil
}

func (h Handler) BulkArchiveHandler(
	ctx context.Context,
	userID string,
	req httptransport.BulkArchiveRequest,
) (httptransport.GenericResponse, error) {
	count, err := h.Conversations.BulkArchive(ctx, req.ConversationIDs, userID)
	if err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{
		Success: true,
		Message: "Conversations archived",
		Data:    map[string]int{"archivedCount": count},
	}, nil
}

func (h Handler) MarkConversationReadHandler(
	ctx context.Context,
	userID string,
	conversationID string,
) (httptransport.GenericResponse, error) {
	count, err := h.Conversations.MarkRead(ctx, conversationID, userID)
	if err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{
		Success: true,
		Message: "Conversation marked as read",
		Data:    map[string]int{"count": count},
	}, nil
}

func (h Handler) MessagingStatusHandler(
	ctx context.Context,
	userID string,
	conversationID string,
	isAdmin bool,
) (httptransport.MessagingStatusResponse, error) {
	status, err := h.Conversations.MessagingStatus(ctx, conversationID, userID, isAdmin)
	if err != nil {
		return httptransport.MessagingStatusResponse{}, err
	}
	return httptransport.MessagingStatusResponse{
		Success: true,
		Data: httptransport.MessagingStatusDTO{
			CanSend:           status.CanSend,
			Reason:            status.Reason,
			MessagesRemaining: status.MessagesRemaining,
		},
	}, nil
}

func (h Handler) SendMessageHandler(
	ctx context.Context,
	userID string,
	isAdmin bool,
	conversationID string,
	idempotencyKey string,
	req httptransport.SendMessageRequest,
) (httptransport.MessageResponse, error) {
	message, err := h.Messages.Send(ctx, idempotencyKey, ports.SendMessageInput{
		ConversationID: conversationID,
		SenderID:       userID,
		SenderIsAdmin:  isAdmin,
		Type:           entities.MessageType(req.Type),
		Content:        req.Content,
		ReplyToID:      req.ReplyToID,
	})
	if err != nil {
		return httptransport.MessageResponse{}, err
	}
	return httptransport.MessageResponse{
		Success: true,
		Message: "Message sent",
		Data:    toMessageDTO(ports.MessageView{Message: message}),
	}, nil
}

func (h Handler) SendDocumentHandler(
	ctx context.Context,
	userID string,
	isAdmin bool,
	conversationID string,
	idempotencyKey string,
	req httptransport.SendDocumentRequest,
) (httptransport.MessageResponse, error) {
	message, signedURL, err := h.Messages.SendDocument(ctx, idempotencyKey, ports.SendDocumentInput{
		ConversationID: conversationID,
		SenderID:       userID,
		SenderIsAdmin:  isAdmin,
		Caption:        req.Caption,
		Filename:       req.Filename,
		MimeType:       req.MimeType,
		Size:           req.Size,
		Data:           req.Data,
	})
	if err != nil {
		return httptransport.MessageResponse{}, err
	}
	return httptransport.MessageResponse{
		Success: true,
		Message: "Document sent",
		Data:    toMessageDTO(ports.MessageView{Message: message, DocumentSignedURL: signedURL}),
	}, nil
}

func (h Handler) ListMessagesHandler(
	ctx context.Context,
	userID string,
	conversationID string,
	page int,
	limit int,
) (httptransport.MessageListResponse, error) {
	groups, total, err := h.Messages.ListGrouped(ctx, conversationID, userID, page, limit)
	if err != nil {
		return httptransport.MessageListResponse{}, err
	}
	resp := httptransport.MessageListResponse{Success: true}
	resp.Data = make([]httptransport.MessageGroupDTO, 0, len(groups))
	for _, group := range groups {
		dto := httptransport.MessageGroupDTO{
			Date:     group.DateLabel,
			Messages: make([]httptransport.MessageDTO, 0, len(group.Messages)),
		}
		for _, view := range group.Messages {
			dto.Messages = append(dto.Messages, toMessageDTO(view))
		}
		resp.Data = append(resp.Data, dto)
	}
	resp.Pagination = httptransport.NewPagination(normalizedPage(page), normalizedLimit(limit, 50), total)
	return resp, nil
}

func (h Handler) GetMessageHandler(
	ctx context.Context,
	userID string,
	messageID string,
) (httptransport.MessageResponse, error) {
	view, err := h.Messages.Get(ctx, messageID, userID)
	if err != nil {
		return httptransport.MessageResponse{}, err
	}
	return httptransport.MessageResponse{Success: true, Data: toMessageDTO(view)}, nil
}

func (h Handler) DeleteMessageHandler(
	ctx context.Context,
	userID string,
	messageID string,
) (httptransport.MessageResponse, error) {
	message, err := h.Messages.SoftDelete(ctx, messageID, userID)
	if err != nil {
		return httptransport.MessageResponse{}, err
	}
	return httptransport.MessageResponse{
		Success: true,
		Message: "Message deleted",
		Data:    toMessageDTO(ports.MessageView{Message: message}),
	}, nil
}

func (h Handler) DeleteMessageForMeHandler(
	ctx context.Context,
	userID string,
	messageID string,
) (httptransport.GenericResponse, error) {
	if err := h.Messages.DeleteForUser(ctx, messageID, userID); err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{Success: true, Message: "Message removed"}, nil
}

func (h Handler) BulkDeleteMessagesHandler(
	ctx context.Context,
	userID string,
	req httptransport.BulkDeleteMessagesRequest,
) (httptransport.GenericResponse, error) {
	count, err := h.Messages.BulkDeleteForUser(ctx, req.MessageIDs, userID)
	if err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{
		Success: true,
		Message: "Messages removed",
		Data:    map[string]int{"deletedCount": count},
	}, nil
}

func (h Handler) ForwardMessagesHandler(
	ctx context.Context,
	userID string,
	isAdmin bool,
	req httptransport.ForwardMessagesRequest,
) (httptransport.MessagesResponse, error) {
	messages, err := h.Messages.Forward(ctx, req.MessageIDs, req.ConversationIDs, userID, isAdmin)
	if err != nil {
		return httptransport.MessagesResponse{}, err
	}
	resp := httptransport.MessagesResponse{Success: true, Message: "Messages forwarded"}
	resp.Data = make([]httptransport.MessageDTO, 0, len(messages))
	for _, message := range messages {
		resp.Data = append(resp.Data, toMessageDTO(ports.MessageView{Message: message}))
	}
	return resp, nil
}

func (h Handler) MarkMessagesReadHandler(
	ctx context.Context,
	userID string,
	req httptransport.MarkMessagesRequest,
) (httptransport.GenericResponse, error) {
	updated, err := h.Messages.MarkRead(ctx, req.MessageIDs, userID)
	if err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{
		Success: true,
		Message: "Messages marked as read",
		Data:    map[string]int{"count": len(updated)},
	}, nil
}

func (h Handler) MarkMessagesDeliveredHandler(
	ctx context.Context,
	userID string,
	req httptransport.MarkMessagesRequest,
) (httptransport.GenericResponse, error) {
	updated, err := h.Messages.MarkDelivered(ctx, req.MessageIDs, userID)
	if err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{
		Success: true,
		Message: "Messages marked as delivered",
		Data:    map[string]int{"count": len(updated)},
	}, nil
}

func (h Handler) DocumentURLHandler(
	ctx context.Context,
	userID string,
	messageID string,
) (httptransport.GenericResponse, error) {
	url, expiresAt, err := h.Messages.DocumentURL(ctx, messageID, userID)
	if err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{
		Success: true,
		Data: map[string]string{
			"url":       url,
			"expiresAt": expiresAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

func toConversationDTO(view ports.ConversationView, viewerID string) httptransport.ConversationDTO {
	conversation := view.Conversation
	dto := httptransport.ConversationDTO{
		ConversationID:   conversation.ConversationID,
		Type:             string(conversation.Type),
		StatusID:         conversation.StatusID,
		Participants:     conversation.Participants,
		InitiatorID:      conversation.InitiatorID,
		AcceptanceStatus: string(conversation.AcceptanceStatus),
		UnreadCount:      view.UnreadCount,
		Archived:         conversation.IsArchivedFor(viewerID),
		CreatedAt:        conversation.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        conversation.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if conversation.AcceptedAt != nil {
		dto.AcceptedAt = conversation.AcceptedAt.UTC().Format(time.RFC3339)
	}
	if conversation.LastMessageID != "" && conversation.LastMessageAt != nil {
		dto.LastMessage = &httptransport.LastMessageDTO{
			MessageID: conversation.LastMessageID,
			Preview:   conversation.LastMessagePreview,
			SenderID:  conversation.LastMessageSenderID,
			SentAt:    conversation.LastMessageAt.UTC().Format(time.RFC3339),
		}
	}
	dto.Peers = make([]httptransport.PeerDTO, 0, len(view.Peers))
	for _, peer := range view.Peers {
		dto.Peers = append(dto.Peers, httptransport.PeerDTO{
			UserID:    peer.UserID,
			Name:      peer.Name,
			AvatarURL: peer.AvatarURL,
			Role:      peer.Role,
		})
	}
	return dto
}

func toMessageDTO(view ports.MessageView) httptransport.MessageDTO {
	message := view.Message
	dto := httptransport.MessageDTO{
		MessageID:      message.MessageID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Type:           string(message.Type),
		Content:        message.Content,
		DocumentURL:    view.DocumentSignedURL,
		DocumentName:   message.DocumentName,
		DocumentType:   message.DocumentMimeType,
		DocumentSize:   message.DocumentSize,
		Status:         string(message.Status),
		ReadBy:         message.ReadBy,
		DeliveredTo:    message.DeliveredTo,
		Deleted:        message.Deleted,
		CreatedAt:      message.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      message.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if message.Deleted {
		dto.Content = ""
		dto.DocumentURL = ""
		dto.DocumentName = ""
		dto.DocumentType = ""
		dto.DocumentSize = 0
	}
	if message.ReplyTo != nil {
		dto.ReplyTo = &httptransport.ReplyRefDTO{
			MessageID:  message.ReplyTo.MessageID,
			Snippet:    message.ReplyTo.Snippet,
			SenderID:   message.ReplyTo.SenderID,
			SenderName: message.ReplyTo.SenderName,
			Type:       string(message.ReplyTo.Type),
		}
	}
	return dto
}

func normalizedPage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

func normalizedLimit(limit int, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}
