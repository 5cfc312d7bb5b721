package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"mboa/contexts/community-experience/status-service/application"
	"mboa/contexts/community-experience/status-service/domain/entities"
	"mboa/contexts/community-experience/status-service/ports"
	httptransport "mboa/contexts/community-experience/status-service/transport/http"
)

type Handler struct {
	Statuses     application.StatusService
	Interactions application.InteractionService
	Logger       *slog.Logger
}

func (h Handler) CreateStatusHandler(
	ctx context.Context,
	userID string,
	isAdmin bool,
	req httptransport.CreateStatusRequest,
) (httptransport.StatusResponse, error) {
	view, err := h.Statuses.Create(ctx, ports.CreateStatusInput{
		AuthorID:         userID,
		IsAdmin:          isAdmin,
		Category:         req.Category,
		Content:          req.Content,
		MediaType:        entities.MediaType(req.MediaType),
		MediaFilename:    req.MediaFilename,
		MediaMimeType:    req.MediaMimeType,
		MediaData:        req.MediaData,
		VideoDuration:    req.VideoDuration,
		Country:          req.Country,
		City:             req.City,
		Region:           req.Region,
		OriginalStatusID: req.OriginalStatusID,
	})
	if err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{
		Success: true,
		Message: "Status created",
		Data:    toStatusDTO(view),
	}, nil
}

func (h Handler) FeedHandler(
	ctx context.Context,
	userID string,
	filters ports.FeedFilters,
	page int,
	limit int,
) (httptransport.StatusListResponse, error) {
	views, total, err := h.Statuses.Feed(ctx, userID, filters, page, limit)
	if err != nil {
		return httptransport.StatusListResponse{}, err
	}
	return statusListResponse(views, page, limit, total), nil
}

func (h Handler) GetStatusHandler(
	ctx context.Context,
	userID string,
	statusID string,
) (httptransport.StatusResponse, error) {
	view, err := h.Statuses.Get(ctx, statusID, userID)
	if err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Success: true, Data: toStatusDTO(view)}, nil
}

func (h Handler) DeleteStatusHandler(
	ctx context.Context,
	userID string,
	statusID string,
) (httptransport.GenericResponse, error) {
	if err := h.Statuses.Delete(ctx, statusID, userID); err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{Success: true, Message: "Status deleted"}, nil
}

func (h Handler) MyStatusesHandler(
	ctx context.Context,
	userID string,
	page int,
	limit int,
) (httptransport.StatusListResponse, error) {
	views, total, err := h.Statuses.MyStatuses(ctx, userID, page, limit)
	if err != nil {
		return httptransport.StatusListResponse{}, err
	}
	return statusListResponse(views, page, limit, total), nil
}

func (h Handler) UserStatusesHandler(
	ctx context.Context,
	viewerID string,
	userID string,
	page int,
	limit int,
) (httptransport.StatusListResponse, error) {
	views, total, err := h.Statuses.UserStatuses(ctx, userID, viewerID, page, limit)
	if err != nil {
		return httptransport.StatusListResponse{}, err
	}
	return statusListResponse(views, page, limit, total), nil
}

func (h Handler) CategoriesHandler(ctx context.Context) httptransport.CategoriesResponse {
	catalog := h.Statuses.Categories()
	resp := httptransport.CategoriesResponse{Success: true}
	resp.Data = make([]httptransport.CategoryDTO, 0, len(catalog))
	for _, category := range catalog {
		resp.Data = append(resp.Data, httptransport.CategoryDTO{
			Key:       category.Key,
			Label:     category.Label,
			AdminOnly: category.AdminOnly,
		})
	}
	return resp
}

func (h Handler) LikeStatusHandler(
	ctx context.Context,
	userID string,
	statusID string,
) (httptransport.GenericResponse, error) {
	status, err := h.Interactions.Like(ctx, statusID, userID)
	if err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{
		Success: true,
		Message: "Status liked",
		Data:    map[string]int{"likesCount": status.LikesCount},
	}, nil
}

func (h Handler) UnlikeStatusHandler(
	ctx context.Context,
	userID string,
	statusID string,
) (httptransport.GenericResponse, error) {
	status, err := h.Interactions.Unlike(ctx, statusID, userID)
	if err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{
		Success: true,
		Message: "Status unliked",
		Data:    map[string]int{"likesCount": status.LikesCount},
	}, nil
}

func (h Handler) RepostStatusHandler(
	ctx context.Context,
	userID string,
	statusID string,
) (httptransport.GenericResponse, error) {
	status, err := h.Interactions.Repost(ctx, statusID, userID)
	if err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{
		Success: true,
		Message: "Status reposted",
		Data:    map[string]int{"repostsCount": status.RepostsCount},
	}, nil
}

func (h Handler) ViewStatusHandler(
	ctx context.Context,
	userID string,
	statusID string,
) (httptransport.GenericResponse, error) {
	status, err := h.Interactions.View(ctx, statusID, userID)
	if err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{
		Success: true,
		Data:    map[string]int{"viewsCount": status.ViewsCount},
	}, nil
}

func (h Handler) ReplyToStatusHandler(
	ctx context.Context,
	userID string,
	statusID string,
) (httptransport.ReplyResponse, error) {
	conversationID, created, err := h.Interactions.Reply(ctx, statusID, userID)
	if err != nil {
		return httptransport.ReplyResponse{}, err
	}
	resp := httptransport.ReplyResponse{Success: true}
	resp.Message = "Conversation retrieved"
	if created {
		resp.Message = "Conversation created"
	}
	resp.Data.ConversationID = conversationID
	resp.Data.Created = created
	return resp, nil
}

func (h Handler) InteractionsHandler(
	ctx context.Context,
	statusID string,
	interactionType entities.InteractionType,
	page int,
	limit int,
) (httptransport.InteractionListResponse, error) {
	views, total, err := h.Interactions.Interactions(ctx, statusID, interactionType, page, limit)
	if err != nil {
		return httptransport.InteractionListResponse{}, err
	}
	resp := httptransport.InteractionListResponse{Success: true}
	resp.Data = make([]httptransport.InteractionUserDTO, 0, len(views))
	for _, view := range views {
		resp.Data = append(resp.Data, httptransport.InteractionUserDTO{
			UserID:       view.Interaction.UserID,
			Name:         view.User.Name,
			AvatarURL:    view.User.AvatarURL,
			Role:         view.User.Role,
			InteractedAt: view.Interaction.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	resp.Pagination = httptransport.NewPagination(normalizedPage(page), normalizedLimit(limit, 50), total)
	return resp, nil
}

func statusListResponse(views []ports.StatusView, page int, limit int, total int) httptransport.StatusListResponse {
	resp := httptransport.StatusListResponse{Success: true}
	resp.Data = make([]httptransport.StatusDTO, 0, len(views))
	for _, view := range views {
		resp.Data = append(resp.Data, toStatusDTO(view))
	}
	resp.Pagination = httptransport.NewPagination(normalizedPage(page), normalizedLimit(limit, 20), total)
	return resp
}

func toStatusDTO(view ports.StatusView) httptransport.StatusDTO {
	status := view.Status
	dto := httptransport.StatusDTO{
		StatusID:         status.StatusID,
		AuthorID:         status.AuthorID,
		Category:         status.Category,
		Content:          status.Content,
		MediaType:        string(status.MediaType),
		MediaURL:         view.MediaSignedURL,
		ThumbnailURL:     view.ThumbSignedURL,
		VideoDuration:    status.VideoDuration,
		Country:          status.Country,
		City:             status.City,
		Region:           status.Region,
		LikesCount:       status.LikesCount,
		RepostsCount:     status.RepostsCount,
		RepliesCount:     status.RepliesCount,
		ViewsCount:       status.ViewsCount,
		IsLiked:          view.Viewer.IsLiked,
		IsReposted:       view.Viewer.IsReposted,
		ContentWarned:    status.ContentWarned,
		IsRepost:         status.IsRepost,
		OriginalStatusID: status.OriginalStatusID,
		ExpiresAt:        status.ExpiresAt.UTC().Format(time.RFC3339),
		CreatedAt:        status.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        status.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if view.Author.UserID != "" {
		dto.Author = &httptransport.AuthorDTO{
			UserID:    view.Author.UserID,
			Name:      view.Author.Name,
			AvatarURL: view.Author.AvatarURL,
			Role:      view.Author.Role,
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
