package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"mboa/contexts/community-experience/status-service/domain/entities"
	domainerrors "mboa/contexts/community-experience/status-service/domain/errors"
	"mboa/contexts/community-experience/status-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Models lists every table owned by the status service for automigration.
func Models() []any {
	return []any{
		&statusModel{},
		&interactionModel{},
	}
}

func (r *Repository) CreateStatus(ctx context.Context, status entities.Status) (entities.Status, error) {
	row := statusModelFromEntity(status)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.Status{}, domainerrors.ErrConflict
		}
		return entities.Status{}, r.logError("status_repo_create_failed", err, "status_id", row.ID)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetStatus(ctx context.Context, statusID string) (entities.Status, error) {
	var row statusModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(statusID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Status{}, domainerrors.ErrStatusNotFound
		}
		return entities.Status{}, r.logError("status_repo_get_failed", err, "status_id", strings.TrimSpace(statusID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListFeed(ctx context.Context, query ports.FeedQuery) ([]entities.Status, int, error) {
	base := r.db.WithContext(ctx).Model(&statusModel{}).
		Where("deleted = ?", false).
		Where("is_approved = ?", true).
		Where("expires_at > ?", query.Now.UTC())
	if query.Filters.Category != "" {
		base = base.Where("category = ?", query.Filters.Category)
	}
	if query.Filters.Country != "" {
		base = base.Where("country = ?", query.Filters.Country)
	}
	if query.Filters.City != "" {
		base = base.Where("city = ?", query.Filters.City)
	}
	if search := strings.TrimSpace(query.Filters.Search); search != "" {
		base = base.Where("content ILIKE ?", "%"+search+"%")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, r.logError("status_repo_feed_count_failed", err)
	}

	order := "created_at DESC"
	if query.Filters.SortBy == "popular" {
		order = "likes_count DESC, views_count DESC, created_at DESC"
	}
	var rows []statusModel
	err := base.Session(&gorm.Session{}).
		Order(order).
		Offset(query.Offset).
		Limit(query.Limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, r.logError("status_repo_feed_failed", err)
	}
	return toEntities(rows), int(total), nil
}

func (r *Repository) ListByAuthor(ctx context.Context, query ports.AuthorQuery) ([]entities.Status, int, error) {
	base := r.db.WithContext(ctx).Model(&statusModel{}).
		Where("author_id = ?", strings.TrimSpace(query.AuthorID)).
		Where("deleted = ?", false)
	if query.VisibleOnly {
		base = base.Where("is_approved = ?", true).Where("expires_at > ?", query.Now.UTC())
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, r.logError("status_repo_author_count_failed", err, "author_id", strings.TrimSpace(query.AuthorID))
	}

	var rows []statusModel
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset(query.Offset).
		Limit(query.Limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, r.logError("status_repo_author_failed", err, "author_id", strings.TrimSpace(query.AuthorID))
	}
	return toEntities(rows), int(total), nil
}

func (r *Repository) SoftDeleteStatus(ctx context.Context, statusID string, now time.Time) (entities.Status, error) {
	result := r.db.WithContext(ctx).
		Model(&statusModel{}).
		Where("id = ?", strings.TrimSpace(statusID)).
		Updates(map[string]any{
			"deleted":    true,
			"deleted_at": now.UTC(),
			"updated_at": now.UTC(),
		})
	if result.Error != nil {
		return entities.Status{}, r.logError("status_repo_soft_delete_failed", result.Error, "status_id", strings.TrimSpace(statusID))
	}
	if result.RowsAffected == 0 {
		return entities.Status{}, domainerrors.ErrStatusNotFound
	}
	return r.GetStatus(ctx, statusID)
}

func (r *Repository) SoftDeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result := r.db.WithContext(ctx).
		Model(&statusModel{}).
		Where("deleted = ?", false).
		Where("expires_at <= ?", now.UTC()).
		Updates(map[string]any{
			"deleted":    true,
			"deleted_at": now.UTC(),
			"updated_at": now.UTC(),
		})
	if result.Error != nil {
		return 0, r.logError("status_repo_reap_failed", result.Error)
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) AddInteraction(ctx context.Context, interaction entities.Interaction) (bool, error) {
	row := interactionModel{
		ID:        strings.TrimSpace(interaction.InteractionID),
		StatusID:  strings.TrimSpace(interaction.StatusID),
		UserID:    strings.TrimSpace(interaction.UserID),
		Type:      string(interaction.Type),
		CreatedAt: interaction.CreatedAt.UTC(),
	}
	if interaction.Type == entities.InteractionView {
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			return false, r.logError("status_repo_add_view_failed", err, "status_id", row.StatusID)
		}
		return true, nil
	}
	// Like and repost rows are unique per (status,user,type); a replay hits
	// the partial unique index and inserts nothing.
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "status_id"}, {Name: "user_id"}, {Name: "type"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{gorm.Expr("type <> 'view'")}},
		DoNothing:   true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return false, nil
		}
		return false, r.logError("status_repo_add_interaction_failed", create.Error,
			"status_id", row.StatusID,
			"type", row.Type,
		)
	}
	return create.RowsAffected > 0, nil
}

func (r *Repository) RemoveInteraction(ctx context.Context, statusID string, userID string, interactionType entities.InteractionType) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("status_id = ?", strings.TrimSpace(statusID)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("type = ?", string(interactionType)).
		Delete(&interactionModel{})
	if result.Error != nil {
		return false, r.logError("status_repo_remove_interaction_failed", result.Error,
			"status_id", strings.TrimSpace(statusID),
			"type", string(interactionType),
		)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) LastViewAt(ctx context.Context, statusID string, userID string) (time.Time, bool, error) {
	var row interactionModel
	err := r.db.WithContext(ctx).
		Where("status_id = ?", strings.TrimSpace(statusID)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("type = ?", string(entities.InteractionView)).
		Order("created_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, r.logError("status_repo_last_view_failed", err,
			"status_id", strings.TrimSpace(statusID),
		)
	}
	return row.CreatedAt.UTC(), true, nil
}

func (r *Repository) ViewerFlags(ctx context.Context, statusIDs []string, userID string) (map[string]ports.ViewerFlags, error) {
	flags := make(map[string]ports.ViewerFlags, len(statusIDs))
	for _, id := range statusIDs {
		flags[id] = ports.ViewerFlags{}
	}
	if len(statusIDs) == 0 {
		return flags, nil
	}
	var rows []interactionModel
	err := r.db.WithContext(ctx).
		Where("status_id IN ?", statusIDs).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("type IN ?", []string{string(entities.InteractionLike), string(entities.InteractionRepost)}).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("status_repo_viewer_flags_failed", err, "user_id", strings.TrimSpace(userID))
	}
	for _, row := range rows {
		flag := flags[row.StatusID]
		switch entities.InteractionType(row.Type) {
		case entities.InteractionLike:
			flag.IsLiked = true
		case entities.InteractionRepost:
			flag.IsReposted = true
		}
		flags[row.StatusID] = flag
	}
	return flags, nil
}

func (r *Repository) ListInteractions(ctx context.Context, query ports.InteractionQuery) ([]entities.Interaction, int, error) {
	base := r.db.WithContext(ctx).Model(&interactionModel{}).
		Where("status_id = ?", strings.TrimSpace(query.StatusID)).
		Where("type = ?", string(query.Type))

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, r.logError("status_repo_interactions_count_failed", err, "status_id", strings.TrimSpace(query.StatusID))
	}

	var rows []interactionModel
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset(query.Offset).
		Limit(query.Limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, r.logError("status_repo_interactions_failed", err, "status_id", strings.TrimSpace(query.StatusID))
	}
	items := make([]entities.Interaction, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Interaction{
			InteractionID: row.ID,
			StatusID:      row.StatusID,
			UserID:        row.UserID,
			Type:          entities.InteractionType(row.Type),
			CreatedAt:     row.CreatedAt.UTC(),
		})
	}
	return items, int(total), nil
}

func (r *Repository) AdjustCounter(ctx context.Context, statusID string, field ports.CounterField, delta int) (entities.Status, error) {
	column := ""
	switch field {
	case ports.CounterLikes:
		column = "likes_count"
	case ports.CounterReposts:
		column = "reposts_count"
	case ports.CounterReplies:
		column = "replies_count"
	case ports.CounterViews:
		column = "views_count"
	default:
		return entities.Status{}, domainerrors.ErrInvalidRequest
	}
	result := r.db.WithContext(ctx).
		Model(&statusModel{}).
		Where("id = ?", strings.TrimSpace(statusID)).
		Update(column, gorm.Expr("GREATEST("+column+" + ?, 0)", delta))
	if result.Error != nil {
		return entities.Status{}, r.logError("status_repo_adjust_counter_failed", result.Error,
			"status_id", strings.TrimSpace(statusID),
			"column", column,
		)
	}
	if result.RowsAffected == 0 {
		return entities.Status{}, domainerrors.ErrStatusNotFound
	}
	return r.GetStatus(ctx, statusID)
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "community-experience/status-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("status repository operation failed", fields...)
	return err
}

type statusModel struct {
	ID               string     `gorm:"column:id;primaryKey"`
	AuthorID         string     `gorm:"column:author_id;index"`
	Category         string     `gorm:"column:category;index"`
	Content          string     `gorm:"column:content"`
	MediaType        string     `gorm:"column:media_type"`
	MediaURL         string     `gorm:"column:media_url"`
	MediaMimeType    string     `gorm:"column:media_mime_type"`
	ThumbnailURL     string     `gorm:"column:thumbnail_url"`
	VideoDuration    int        `gorm:"column:video_duration"`
	Country          string     `gorm:"column:country"`
	City             string     `gorm:"column:city"`
	Region           string     `gorm:"column:region"`
	LikesCount       int        `gorm:"column:likes_count"`
	RepostsCount     int        `gorm:"column:reposts_count"`
	RepliesCount     int        `gorm:"column:replies_count"`
	ViewsCount       int        `gorm:"column:views_count"`
	IsApproved       bool       `gorm:"column:is_approved"`
	ContentWarned    bool       `gorm:"column:content_warned"`
	ModerationReason string     `gorm:"column:moderation_reason"`
	IsRepost         bool       `gorm:"column:is_repost"`
	OriginalStatusID string     `gorm:"column:original_status_id"`
	ExpiresAt        time.Time  `gorm:"column:expires_at;index"`
	Deleted          bool       `gorm:"column:deleted"`
	DeletedAt        *time.Time `gorm:"column:deleted_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (statusModel) TableName() string {
	return "status_posts"
}

func statusModelFromEntity(status entities.Status) statusModel {
	row := statusModel{
		ID:               strings.TrimSpace(status.StatusID),
		AuthorID:         strings.TrimSpace(status.AuthorID),
		Category:         strings.TrimSpace(status.Category),
		Content:          status.Content,
		MediaType:        string(status.MediaType),
		MediaURL:         status.MediaURL,
		MediaMimeType:    status.MediaMimeType,
		ThumbnailURL:     status.ThumbnailURL,
		VideoDuration:    status.VideoDuration,
		Country:          status.Country,
		City:             status.City,
		Region:           status.Region,
		LikesCount:       status.LikesCount,
		RepostsCount:     status.RepostsCount,
		RepliesCount:     status.RepliesCount,
		ViewsCount:       status.ViewsCount,
		IsApproved:       status.IsApproved,
		ContentWarned:    status.ContentWarned,
		ModerationReason: status.ModerationReason,
		IsRepost:         status.IsRepost,
		OriginalStatusID: strings.TrimSpace(status.OriginalStatusID),
		ExpiresAt:        status.ExpiresAt.UTC(),
		Deleted:          status.Deleted,
		DeletedAt:        normalizeOptionalTime(status.DeletedAt),
		CreatedAt:        status.CreatedAt.UTC(),
		UpdatedAt:        status.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m statusModel) toEntity() entities.Status {
	return entities.Status{
		StatusID:         m.ID,
		AuthorID:         m.AuthorID,
		Category:         m.Category,
		Content:          m.Content,
		MediaType:        entities.MediaType(m.MediaType),
		MediaURL:         m.MediaURL,
		MediaMimeType:    m.MediaMimeType,
		ThumbnailURL:     m.ThumbnailURL,
		VideoDuration:    m.VideoDuration,
		Country:          m.Country,
		City:             m.City,
		Region:           m.Region,
		LikesCount:       m.LikesCount,
		RepostsCount:     m.RepostsCount,
		RepliesCount:     m.RepliesCount,
		ViewsCount:       m.ViewsCount,
		IsApproved:       m.IsApproved,
		ContentWarned:    m.ContentWarned,
		ModerationReason: m.ModerationReason,
		IsRepost:         m.IsRepost,
		OriginalStatusID: m.OriginalStatusID,
		ExpiresAt:        m.ExpiresAt.UTC(),
		Deleted:          m.Deleted,
		DeletedAt:        normalizeOptionalTime(m.DeletedAt),
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
}

func toEntities(rows []statusModel) []entities.Status {
	items := make([]entities.Status, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

type interactionModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	StatusID  string    `gorm:"column:status_id;index;uniqueIndex:ux_status_interactions_once,where:type <> 'view'"`
	UserID    string    `gorm:"column:user_id;uniqueIndex:ux_status_interactions_once,where:type <> 'view'"`
	Type      string    `gorm:"column:type;uniqueIndex:ux_status_interactions_once,where:type <> 'view'"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (interactionModel) TableName() string {
	return "status_interactions"
}

func normalizeOptionalTime(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	out := in.UTC()
	return &out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
