package application

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	realtimev1 "mboa/contracts/realtime/v1"

	"mboa/contexts/community-experience/status-service/domain/entities"
	domainerrors "mboa/contexts/community-experience/status-service/domain/errors"
	"mboa/contexts/community-experience/status-service/ports"
)

const (
	defaultStatusPageSize = 20
	maxStatusPageSize     = 100

	SortRecent  = "recent"
	SortPopular = "popular"
)

type StatusService struct {
	Repo       ports.Repository
	Directory  ports.DirectoryClient
	Storage    ports.StorageClient
	Moderation ports.ModerationClient
	Events     ports.EventPublisher
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger

	MaxContentLength int
	MaxVideoSeconds  int
	ExpiryTTL        time.Duration
	SignedURLExpiry  time.Duration
	StorageBucket    string
}

// Create validates the category policy and media constraints, uploads media
// to private storage, runs it through moderation, and persists the status
// with expiresAt = now + TTL. A block verdict aborts before anything is
// persisted; warn keeps the status with contentWarned set.
func (s StatusService) Create(ctx context.Context, input ports.CreateStatusInput) (ports.StatusView, error) {
	input.AuthorID = strings.TrimSpace(input.AuthorID)
	input.Category = strings.TrimSpace(input.Category)
	input.Content = strings.TrimSpace(input.Content)
	if input.MediaType == "" {
		input.MediaType = entities.MediaTypeText
	}
	if input.AuthorID == "" || input.Category == "" {
		return ports.StatusView{}, domainerrors.ErrInvalidRequest
	}
	if !input.MediaType.Valid() {
		return ports.StatusView{}, domainerrors.ErrInvalidRequest
	}
	category, ok := entities.CategoryByKey(input.Category)
	if !ok {
		return ports.StatusView{}, domainerrors.ErrCategoryUnknown
	}
	if category.AdminOnly && !input.IsAdmin {
		return ports.StatusView{}, domainerrors.ErrCategoryRestricted
	}
	if len([]rune(input.Content)) > s.maxContentLength() {
		return ports.StatusView{}, domainerrors.ErrContentTooLong
	}
	if input.MediaType == entities.MediaTypeText && input.Content == "" {
		return ports.StatusView{}, domainerrors.ErrEmptyStatus
	}
	if input.MediaType != entities.MediaTypeText && len(input.MediaData) == 0 {
		return ports.StatusView{}, domainerrors.ErrEmptyStatus
	}
	if input.MediaType == entities.MediaTypeVideo && input.VideoDuration > s.maxVideoSeconds() {
		return ports.StatusView{}, domainerrors.ErrVideoTooLong
	}

	now := s.now()
	contentWarned := false
	moderationReason := ""
	mediaPath := ""
	if len(input.MediaData) > 0 {
		objectID, err := s.IDGen.NewID(ctx)
		if err != nil {
			return ports.StatusView{}, fmt.Errorf("generate media object id: %w", err)
		}
		objectName := "status-media/" + objectID + strings.ToLower(path.Ext(input.MediaFilename))
		mediaPath, err = s.Storage.Upload(ctx, ports.UploadInput{
			Bucket:      s.StorageBucket,
			Filename:    objectName,
			ContentType: input.MediaMimeType,
			Data:        input.MediaData,
		})
		if err != nil {
			return ports.StatusView{}, fmt.Errorf("upload status media: %w", err)
		}

		verdict := s.moderate(ctx, ports.MediaRef{
			MediaType:   input.MediaType,
			StoragePath: mediaPath,
			MimeType:    input.MediaMimeType,
			Data:        input.MediaData,
		})
		switch verdict.Action {
		case ports.ModerationBlock:
			resolveLogger(s.Logger).Info("status blocked by moderation",
				"event", "status_moderation_blocked",
				"module", "community-experience/status-service",
				"layer", "application",
				"author_id", input.AuthorID,
				"reason", verdict.Reason,
			)
			return ports.StatusView{}, domainerrors.ModerationBlocked{Reason: verdict.Reason}
		case ports.ModerationWarn:
			contentWarned = true
			moderationReason = verdict.Reason
		}
	}

	id, err := s.IDGen.NewID(ctx)
	if err != nil {
		return ports.StatusView{}, fmt.Errorf("generate status id: %w", err)
	}
	status := entities.Status{
		StatusID:         id,
		AuthorID:         input.AuthorID,
		Category:         category.Key,
		Content:          input.Content,
		MediaType:        input.MediaType,
		MediaMimeType:    input.MediaMimeType,
		VideoDuration:    input.VideoDuration,
		Country:          strings.TrimSpace(input.Country),
		City:             strings.TrimSpace(input.City),
		Region:           strings.TrimSpace(input.Region),
		IsApproved:       true,
		ContentWarned:    contentWarned,
		ModerationReason: moderationReason,
		ExpiresAt:        now.Add(s.expiryTTL()),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if mediaPath != "" {
		status.MediaURL = entities.MediaPathScheme + mediaPath
	}
	if original := strings.TrimSpace(input.OriginalStatusID); original != "" {
		if _, err := s.Repo.GetStatus(ctx, original); err != nil {
			return ports.StatusView{}, err
		}
		status.IsRepost = true
		status.OriginalStatusID = original
	}

	created, err := s.Repo.CreateStatus(ctx, status)
	if err != nil {
		return ports.StatusView{}, err
	}

	s.publishStatusEvent(ctx, realtimev1.EventStatusNew, created)

	resolveLogger(s.Logger).Info("status created",
		"event", "status_created",
		"module", "community-experience/status-service",
		"layer", "application",
		"status_id", created.StatusID,
		"author_id", created.AuthorID,
		"category", created.Category,
		"media_type", string(created.MediaType),
		"content_warned", created.ContentWarned,
	)
	return s.enrichOne(ctx, created, created.AuthorID), nil
}

// Feed returns one visible page filtered and sorted per the query, enriched
// with author snapshots, the viewer overlay and signed media URLs.
func (s StatusService) Feed(ctx context.Context, viewerID string, filters ports.FeedFilters, page int, limit int) ([]ports.StatusView, int, error) {
	page, limit = normalizePage(page, limit, defaultStatusPageSize, maxStatusPageSize)
	if filters.SortBy == "" {
		filters.SortBy = SortRecent
	}
	if filters.SortBy != SortRecent && filters.SortBy != SortPopular {
		return nil, 0, domainerrors.ErrInvalidRequest
	}
	statuses, total, err := s.Repo.ListFeed(ctx, ports.FeedQuery{
		Filters: filters,
		Now:     s.now(),
		Offset:  (page - 1) * limit,
		Limit:   limit,
	})
	if err != nil {
		return nil, 0, err
	}
	views, err := s.enrich(ctx, statuses, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// Get returns one status with feed enrichment. Expired or deleted statuses
// are not found, except for their author.
func (s StatusService) Get(ctx context.Context, statusID string, viewerID string) (ports.StatusView, error) {
	status, err := s.visibleStatus(ctx, statusID, viewerID)
	if err != nil {
		return ports.StatusView{}, err
	}
	views, err := s.enrich(ctx, []entities.Status{status}, viewerID)
	if err != nil {
		return ports.StatusView{}, err
	}
	return views[0], nil
}

// MyStatuses lists the author's own non-deleted statuses, expired included.
func (s StatusService) MyStatuses(ctx context.Context, authorID string, page int, limit int) ([]ports.StatusView, int, error) {
	authorID = strings.TrimSpace(authorID)
	if authorID == "" {
		return nil, 0, domainerrors.ErrInvalidRequest
	}
	page, limit = normalizePage(page, limit, defaultStatusPageSize, maxStatusPageSize)
	statuses, total, err := s.Repo.ListByAuthor(ctx, ports.AuthorQuery{
		AuthorID: authorID,
		Now:      s.now(),
		Offset:   (page - 1) * limit,
		Limit:    limit,
	})
	if err != nil {
		return nil, 0, err
	}
	views, err := s.enrich(ctx, statuses, authorID)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// UserStatuses lists another user's currently visible statuses.
func (s StatusService) UserStatuses(ctx context.Context, userID string, viewerID string, page int, limit int) ([]ports.StatusView, int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, 0, domainerrors.ErrInvalidRequest
	}
	page, limit = normalizePage(page, limit, defaultStatusPageSize, maxStatusPageSize)
	statuses, total, err := s.Repo.ListByAuthor(ctx, ports.AuthorQuery{
		AuthorID:    userID,
		VisibleOnly: true,
		Now:         s.now(),
		Offset:      (page - 1) * limit,
		Limit:       limit,
	})
	if err != nil {
		return nil, 0, err
	}
	views, err := s.enrich(ctx, statuses, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// Delete soft-deletes the status. Only the author may do this.
func (s StatusService) Delete(ctx context.Context, statusID string, userID string) error {
	status, err := s.Repo.GetStatus(ctx, strings.TrimSpace(statusID))
	if err != nil {
		return err
	}
	if !status.IsAuthor(userID) {
		return domainerrors.ErrNotAuthor
	}
	deleted, err := s.Repo.SoftDeleteStatus(ctx, status.StatusID, s.now())
	if err != nil {
		return err
	}

	s.publishStatusEvent(ctx, realtimev1.EventStatusDeleted, deleted)

	resolveLogger(s.Logger).Info("status deleted",
		"event", "status_deleted",
		"module", "community-experience/status-service",
		"layer", "application",
		"status_id", deleted.StatusID,
		"author_id", deleted.AuthorID,
	)
	return nil
}

// Categories returns the fixed catalog.
func (s StatusService) Categories() []entities.Category {
	return entities.Categories()
}

// ReapExpired bulk-soft-deletes every status past its expiry. Readers filter
// by expiry independently, so the sweep only reclaims rows.
func (s StatusService) ReapExpired(ctx context.Context) (int, error) {
	count, err := s.Repo.SoftDeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		resolveLogger(s.Logger).Info("expired statuses reaped",
			"event", "status_expiry_reaped",
			"module", "community-experience/status-service",
			"layer", "application",
			"count", count,
		)
	}
	return count, nil
}

// visibleStatus loads a status enforcing feed visibility, with an author
// bypass so owners can inspect their expired posts.
func (s StatusService) visibleStatus(ctx context.Context, statusID string, viewerID string) (entities.Status, error) {
	status, err := s.Repo.GetStatus(ctx, strings.TrimSpace(statusID))
	if err != nil {
		return entities.Status{}, err
	}
	if status.Visible(s.now()) || (status.IsAuthor(viewerID) && !status.Deleted) {
		return status, nil
	}
	return entities.Status{}, domainerrors.ErrStatusNotFound
}

// enrich attaches author snapshots, the viewer overlay and signed media URLs
// in batch. Storage failures degrade to a listing without URLs.
func (s StatusService) enrich(ctx context.Context, statuses []entities.Status, viewerID string) ([]ports.StatusView, error) {
	if len(statuses) == 0 {
		return []ports.StatusView{}, nil
	}

	authorIDs := make([]string, 0, len(statuses))
	statusIDs := make([]string, 0, len(statuses))
	paths := make([]string, 0, len(statuses))
	seen := map[string]bool{}
	for _, status := range statuses {
		statusIDs = append(statusIDs, status.StatusID)
		if !seen[status.AuthorID] {
			seen[status.AuthorID] = true
			authorIDs = append(authorIDs, status.AuthorID)
		}
		if storagePath, ok := strings.CutPrefix(status.MediaURL, entities.MediaPathScheme); ok && storagePath != "" {
			paths = append(paths, storagePath)
		}
		if storagePath, ok := strings.CutPrefix(status.ThumbnailURL, entities.MediaPathScheme); ok && storagePath != "" {
			paths = append(paths, storagePath)
		}
	}

	snapshots, err := s.Directory.GetUsers(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("directory batch lookup: %w", err)
	}

	flags := map[string]ports.ViewerFlags{}
	if viewerID = strings.TrimSpace(viewerID); viewerID != "" {
		flags, err = s.Repo.ViewerFlags(ctx, statusIDs, viewerID)
		if err != nil {
			return nil, err
		}
	}

	signed := map[string]string{}
	if len(paths) > 0 {
		urls, err := s.Storage.SignedURLs(ctx, paths, s.signedURLExpiry())
		if err != nil {
			resolveLogger(s.Logger).Warn("signed url batch failed, feed continues without urls",
				"event", "status_signed_url_batch_failed",
				"module", "community-experience/status-service",
				"layer", "application",
				"error", err,
			)
		} else {
			signed = urls
		}
	}

	views := make([]ports.StatusView, 0, len(statuses))
	for _, status := range statuses {
		view := ports.StatusView{
			Status: status,
			Author: snapshots[status.AuthorID],
			Viewer: flags[status.StatusID],
		}
		if storagePath, ok := strings.CutPrefix(status.MediaURL, entities.MediaPathScheme); ok {
			view.MediaSignedURL = signed[storagePath]
		}
		if storagePath, ok := strings.CutPrefix(status.ThumbnailURL, entities.MediaPathScheme); ok {
			view.ThumbSignedURL = signed[storagePath]
		}
		views = append(views, view)
	}
	return views, nil
}

// enrichOne is the single-status variant used right after a write, where
// directory and overlay lookups may be skipped cheaply.
func (s StatusService) enrichOne(ctx context.Context, status entities.Status, viewerID string) ports.StatusView {
	views, err := s.enrich(ctx, []entities.Status{status}, viewerID)
	if err != nil || len(views) == 0 {
		return ports.StatusView{Status: status}
	}
	return views[0]
}

func (s StatusService) publishStatusEvent(ctx context.Context, event string, status entities.Status) {
	if s.Events == nil {
		return
	}
	payload := statusEventPayload(status)
	s.Events.Publish(ctx, realtimev1.RoomStatusFeed, event, payload)
	s.Events.Publish(ctx, realtimev1.RoomStatusAll, event, payload)
	s.Events.Publish(ctx, realtimev1.StatusCategoryRoom(status.Category), event, payload)
}

// moderate runs the media review and fails open to allow on transport error.
func (s StatusService) moderate(ctx context.Context, ref ports.MediaRef) ports.ModerationResult {
	if s.Moderation == nil {
		return ports.ModerationResult{Action: ports.ModerationAllow}
	}
	verdict, err := s.Moderation.Moderate(ctx, ref)
	if err != nil {
		resolveLogger(s.Logger).Warn("moderation unavailable, allowing content",
			"event", "status_moderation_failed_open",
			"module", "community-experience/status-service",
			"layer", "application",
			"error", err,
		)
		return ports.ModerationResult{Action: ports.ModerationAllow}
	}
	if verdict.Action == "" {
		verdict.Action = ports.ModerationAllow
	}
	return verdict
}

func statusEventPayload(status entities.Status) map[string]any {
	return map[string]any{
		"statusId":     status.StatusID,
		"authorId":     status.AuthorID,
		"category":     status.Category,
		"mediaType":    string(status.MediaType),
		"likesCount":   status.LikesCount,
		"repostsCount": status.RepostsCount,
		"repliesCount": status.RepliesCount,
		"viewsCount":   status.ViewsCount,
		"expiresAt":    status.ExpiresAt,
		"createdAt":    status.CreatedAt,
	}
}

func (s StatusService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s StatusService) maxContentLength() int {
	if s.MaxContentLength <= 0 {
		return 2000
	}
	return s.MaxContentLength
}

func (s StatusService) maxVideoSeconds() int {
	if s.MaxVideoSeconds <= 0 {
		return 30
	}
	return s.MaxVideoSeconds
}

func (s StatusService) expiryTTL() time.Duration {
	if s.ExpiryTTL <= 0 {
		return 24 * time.Hour
	}
	return s.ExpiryTTL
}

func (s StatusService) signedURLExpiry() time.Duration {
	if s.SignedURLExpiry <= 0 {
		return time.Hour
	}
	return s.SignedURLExpiry
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
