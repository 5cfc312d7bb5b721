package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	statusentities "mboa/contexts/community-experience/status-service/domain/entities"
	statusdomainerrors "mboa/contexts/community-experience/status-service/domain/errors"
	statusports "mboa/contexts/community-experience/status-service/ports"
	statushttp "mboa/contexts/community-experience/status-service/transport/http"
	"mboa/internal/platform/clients"
)

// maxStatusUploadBytes bounds the multipart form kept in memory while a
// status media upload is parsed.
const maxStatusUploadBytes = 64 << 20

func (s *Server) registerStatusRoutes() {
	s.mux.HandleFunc("GET /api/v1/statuses", s.handleStatusFeed)
	s.mux.HandleFunc("POST /api/v1/statuses", s.handleCreateStatus)
	s.mux.HandleFunc("GET /api/v1/statuses/categories", s.handleStatusCategories)
	s.mux.HandleFunc("GET /api/v1/statuses/my-statuses", s.handleMyStatuses)
	s.mux.HandleFunc("GET /api/v1/statuses/user/{user_id}", s.handleUserStatuses)
	s.mux.HandleFunc("GET /api/v1/statuses/{status_id}", s.handleGetStatus)
	s.mux.HandleFunc("DELETE /api/v1/statuses/{status_id}", s.handleDeleteStatus)
	s.mux.HandleFunc("POST /api/v1/statuses/{status_id}/like", s.handleLikeStatus)
	s.mux.HandleFunc("DELETE /api/v1/statuses/{status_id}/like", s.handleUnlikeStatus)
	s.mux.HandleFunc("POST /api/v1/statuses/{status_id}/repost", s.handleRepostStatus)
	s.mux.HandleFunc("POST /api/v1/statuses/{status_id}/reply", s.handleReplyToStatus)
	s.mux.HandleFunc("POST /api/v1/statuses/{status_id}/view", s.handleViewStatus)
	s.mux.HandleFunc("GET /api/v1/statuses/{status_id}/interactions", s.handleStatusInteractions)
}

func (s *Server) handleStatusFeed(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	page, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	filters := statusports.FeedFilters{
		Category: query.Get("category"),
		Country:  query.Get("country"),
		City:     query.Get("city"),
		Search:   query.Get("search"),
		SortBy:   query.Get("sortBy"),
	}
	resp, err := s.statuses.Handler.FeedHandler(r.Context(), identity.UserID, filters, page, limit)
	if err != nil {
		writeStatusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCreateStatus accepts either a JSON body (text statuses) or a
// multipart form whose media part carries the image or video.
func (s *Server) handleCreateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req statushttp.CreateStatusRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxStatusUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		req = statushttp.CreateStatusRequest{
			Category:         r.FormValue("category"),
			Content:          r.FormValue("content"),
			MediaType:        r.FormValue("mediaType"),
			Country:          r.FormValue("country"),
			City:             r.FormValue("city"),
			Region:           r.FormValue("region"),
			OriginalStatusID: r.FormValue("originalStatusId"),
		}
		if raw := strings.TrimSpace(r.FormValue("videoDuration")); raw != "" {
			duration, err := strconv.Atoi(raw)
			if err != nil || duration < 0 {
				writeError(w, http.StatusBadRequest, "videoDuration must be a non-negative integer")
				return
			}
			req.VideoDuration = duration
		}
		if file, header, err := r.FormFile("media"); err == nil {
			defer file.Close()
			data, readErr := io.ReadAll(file)
			if readErr != nil {
				writeError(w, http.StatusBadRequest, "could not read media file")
				return
			}
			req.MediaFilename = header.Filename
			req.MediaMimeType = header.Header.Get("Content-Type")
			req.MediaData = data
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	resp, err := s.statuses.Handler.CreateStatusHandler(r.Context(), identity.UserID, identity.IsAdmin(), req)
	if err != nil {
		writeStatusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleStatusCategories(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.statuses.Handler.CategoriesHandler(r.Context()))
}

func (s *Server) handleMyStatuses(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	page, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}
	resp, err := s.statuses.Handler.MyStatusesHandler(r.Context(), identity.UserID, page, limit)
	if err != nil {
		writeStatusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUserStatuses(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	page, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}
	resp, err := s.statuses.Handler.UserStatusesHandler(r.Context(), identity.UserID, r.PathValue("user_id"), page, limit)
	if err != nil {
		writeStatusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.statuses.Handler.GetStatusHandler(r.Context(), identity.UserID, r.PathValue("status_id"))
	if err != nil {
		writeStatusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.statuses.Handler.DeleteStatusHandler(r.Context(), identity.UserID, r.PathValue("status_id"))
	if err != nil {
		writeStatusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLikeStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.statuses.Handler.LikeStatusHandler(r.Context(), identity.UserID, r.PathValue("status_id"))
	if err != nil {
		writeStatusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUnlikeStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.statuses.Handler.UnlikeStatusHandler(r.Context(), identity.UserID, r.PathValue("status_id"))
	if err != nil {
		writeStatusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRepostStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.statuses.Handler.RepostStatusHandler(r.Context(), identity.UserID, r.PathValue("status_id"))
	if err != nil {
		writeStatusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReplyToStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.statuses.Handler.ReplyToStatusHandler(r.Context(), identity.UserID, r.PathValue("status_id"))
	if err != nil {
		writeStatusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleViewStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.statuses.Handler.ViewStatusHandler(r.Context(), identity.UserID, r.PathValue("status_id"))
	if err != nil {
		writeStatusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatusInteractions(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	page, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}
	var interactionType statusentities.InteractionType
	switch r.URL.Query().Get("type") {
	case "", "likes":
		interactionType = statusentities.InteractionLike
	case "reposts":
		interactionType = statusentities.InteractionRepost
	default:
		writeError(w, http.StatusBadRequest, "type must be likes or reposts")
		return
	}
	resp, err := s.statuses.Handler.InteractionsHandler(r.Context(), r.PathValue("status_id"), interactionType, page, limit)
	if err != nil {
		writeStatusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeStatusDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, statusdomainerrors.ErrInvalidRequest),
		errors.Is(err, statusdomainerrors.ErrCategoryUnknown),
		errors.Is(err, statusdomainerrors.ErrContentTooLong),
		errors.Is(err, statusdomainerrors.ErrEmptyStatus),
		errors.Is(err, statusdomainerrors.ErrVideoTooLong),
		errors.Is(err, statusdomainerrors.ErrSelfReply),
		errors.Is(err, statusdomainerrors.ErrModerationBlocked):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, statusdomainerrors.ErrStatusNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, statusdomainerrors.ErrCategoryRestricted),
		errors.Is(err, statusdomainerrors.ErrNotAuthor),
		errors.Is(err, statusdomainerrors.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, statusdomainerrors.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, clients.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "upstream service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
