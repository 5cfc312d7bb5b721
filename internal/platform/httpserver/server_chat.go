package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	chatdomainerrors "mboa/contexts/community-experience/chat-service/domain/errors"
	chathttp "mboa/contexts/community-experience/chat-service/transport/http"
	"mboa/internal/platform/clients"
)

// maxDocumentUploadBytes bounds the multipart form kept in memory while a
// chat document upload is parsed.
const maxDocumentUploadBytes = 32 << 20

func (s *Server) registerChatRoutes() {
	s.mux.HandleFunc("GET /api/v1/conversations", s.handleListConversations)
	s.mux.HandleFunc("GET /api/v1/conversations/archived", s.handleListArchivedConversations)
	s.mux.HandleFunc("POST /api/v1/conversations", s.handleCreateConversation)
	s.mux.HandleFunc("POST /api/v1/conversations/bulk-delete", s.handleBulkArchiveConversations)
	s.mux.HandleFunc("GET /api/v1/conversations/{conversation_id}", s.handleGetConversation)
	s.mux.HandleFunc("DELETE /api/v1/conversations/{conversation_id}", s.handleArchiveConversation)
	s.mux.HandleFunc("GET /api/v1/conversations/{conversation_id}/messages", s.handleListMessages)
	s.mux.HandleFunc("GET /api/v1/conversations/{conversation_id}/messaging-status", s.handleMessagingStatus)
	s.mux.HandleFunc("POST /api/v1/conversations/{conversation_id}/archive", s.handleArchiveConversation)
	s.mux.HandleFunc("POST /api/v1/conversations/{conversation_id}/unarchive", s.handleRestoreConversation)
	s.mux.HandleFunc("POST /api/v1/conversations/{conversation_id}/accept", s.handleAcceptConversation)
	s.mux.HandleFunc("POST /api/v1/conversations/{conversation_id}/report", s.handleReportConversation)
	s.mux.HandleFunc("PATCH /api/v1/conversations/{conversation_id}/read", s.handleMarkConversationRead)

	s.mux.HandleFunc("POST /api/v1/messages", s.handleSendMessage)
	s.mux.HandleFunc("POST /api/v1/messages/document", s.handleSendDocument)
	s.mux.HandleFunc("POST /api/v1/messages/bulk-delete", s.handleBulkDeleteMessages)
	s.mux.HandleFunc("POST /api/v1/messages/forward", s.handleForwardMessages)
	s.mux.HandleFunc("PATCH /api/v1/messages/read", s.handleMarkMessagesRead)
	s.mux.HandleFunc("PATCH /api/v1/messages/delivered", s.handleMarkMessagesDelivered)
	s.mux.HandleFunc("GET /api/v1/messages/{message_id}", s.handleGetMessage)
	s.mux.HandleFunc("DELETE /api/v1/messages/{message_id}", s.handleDeleteMessage)
	s.mux.HandleFunc("GET /api/v1/messages/{message_id}/document-url", s.handleDocumentURL)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	s.listConversations(w, r, false)
}

func (s *Server) handleListArchivedConversations(w http.ResponseWriter, r *http.Request) {
	s.listConversations(w, r, true)
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request, archived bool) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	page, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}
	resp, err := s.chat.Handler.ListConversationsHandler(r.Context(), identity.UserID, archived, page, limit)
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req chathttp.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, created, err := s.chat.Handler.CreateConversationHandler(r.Context(), identity.UserID, req)
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.chat.Handler.GetConversationHandler(r.Context(), identity.UserID, r.PathValue("conversation_id"))
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleArchiveConversation serves both the archive action and the DELETE
// verb: conversations are never hard-deleted, a delete archives the copy
// of the calling participant.
func (s *Server) handleArchiveConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.chat.Handler.ArchiveConversationHandler(r.Context(), identity.UserID, r.PathValue("conversation_id"))
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRestoreConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.chat.Handler.RestoreConversationHandler(r.Context(), identity.UserID, r.PathValue("conversation_id"))
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAcceptConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.chat.Handler.AcceptConversationHandler(r.Context(), identity.UserID, r.PathValue("conversation_id"))
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReportConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.chat.Handler.ReportConversationHandler(r.Context(), identity.UserID, r.PathValue("conversation_id"))
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkConversationRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.chat.Handler.MarkConversationReadHandler(r.Context(), identity.UserID, r.PathValue("conversation_id"))
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBulkArchiveConversations(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req chathttp.BulkArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.chat.Handler.BulkArchiveHandler(r.Context(), identity.UserID, req)
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMessagingStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.chat.Handler.MessagingStatusHandler(r.Context(), identity.UserID, r.PathValue("conversation_id"), identity.IsAdmin())
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	page, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}
	resp, err := s.chat.Handler.ListMessagesHandler(r.Context(), identity.UserID, r.PathValue("conversation_id"), page, limit)
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var body struct {
		ConversationID string `json:"conversationId"`
		Type           string `json:"type"`
		Content        string `json:"content"`
		ReplyToID      string `json:"replyToId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.chat.Handler.SendMessageHandler(
		r.Context(),
		identity.UserID,
		identity.IsAdmin(),
		body.ConversationID,
		strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		chathttp.SendMessageRequest{Type: body.Type, Content: body.Content, ReplyToID: body.ReplyToID},
	)
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleSendDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxDocumentUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		writeError(w, http.StatusBadRequest, "document file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read document file")
		return
	}
	resp, err := s.chat.Handler.SendDocumentHandler(
		r.Context(),
		identity.UserID,
		identity.IsAdmin(),
		r.FormValue("conversationId"),
		strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		chathttp.SendDocumentRequest{
			Caption:  r.FormValue("caption"),
			Filename: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Size:     int64(len(data)),
			Data:     data,
		},
	)
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.chat.Handler.GetMessageHandler(r.Context(), identity.UserID, r.PathValue("message_id"))
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteMessage soft-deletes for everyone by default; ?scope=me
// hides the message for the caller only.
func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	messageID := r.PathValue("message_id")
	if r.URL.Query().Get("scope") == "me" {
		resp, err := s.chat.Handler.DeleteMessageForMeHandler(r.Context(), identity.UserID, messageID)
		if err != nil {
			writeChatDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp, err := s.chat.Handler.DeleteMessageHandler(r.Context(), identity.UserID, messageID)
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBulkDeleteMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req chathttp.BulkDeleteMessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.chat.Handler.BulkDeleteMessagesHandler(r.Context(), identity.UserID, req)
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleForwardMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req chathttp.ForwardMessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.chat.Handler.ForwardMessagesHandler(r.Context(), identity.UserID, identity.IsAdmin(), req)
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleMarkMessagesRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req chathttp.MarkMessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.chat.Handler.MarkMessagesReadHandler(r.Context(), identity.UserID, req)
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkMessagesDelivered(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req chathttp.MarkMessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.chat.Handler.MarkMessagesDeliveredHandler(r.Context(), identity.UserID, req)
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDocumentURL(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.chat.Handler.DocumentURLHandler(r.Context(), identity.UserID, r.PathValue("message_id"))
	if err != nil {
		writeChatDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeChatDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatdomainerrors.ErrMessageLimitReached):
		writeError(w, http.StatusForbidden, "MESSAGE_LIMIT_REACHED")
	case errors.Is(err, chatdomainerrors.ErrConversationBlocked):
		writeError(w, http.StatusForbidden, "CONVERSATION_BLOCKED")
	case errors.Is(err, chatdomainerrors.ErrInvalidRequest),
		errors.Is(err, chatdomainerrors.ErrSelfConversation),
		errors.Is(err, chatdomainerrors.ErrEmptyContent),
		errors.Is(err, chatdomainerrors.ErrContentTooLong),
		errors.Is(err, chatdomainerrors.ErrIdempotencyKeyRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatdomainerrors.ErrConversationNotFound),
		errors.Is(err, chatdomainerrors.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatdomainerrors.ErrNotParticipant),
		errors.Is(err, chatdomainerrors.ErrNotSender),
		errors.Is(err, chatdomainerrors.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, chatdomainerrors.ErrIdempotencyConflict),
		errors.Is(err, chatdomainerrors.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, clients.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "upstream service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
