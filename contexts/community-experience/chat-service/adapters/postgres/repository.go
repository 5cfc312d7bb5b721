package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"mboa/contexts/community-experience/chat-service/domain/entities"
	domainerrors "mboa/contexts/community-experience/chat-service/domain/errors"
	"mboa/contexts/community-experience/chat-service/ports"

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

// Models lists every table owned by the chat service for automigration.
func Models() []any {
	return []any{
		&conversationModel{},
		&participantModel{},
		&counterModel{},
		&messageModel{},
		&receiptModel{},
		&hiddenModel{},
		&idempotencyModel{},
	}
}

func (r *Repository) CreateConversation(ctx context.Context, conversation entities.Conversation) (entities.Conversation, error) {
	row := conversationModelFromEntity(conversation)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, userID := range conversation.Participants {
			participant := participantModel{
				ConversationID: row.ID,
				UserID:         strings.TrimSpace(userID),
			}
			if err := tx.Create(&participant).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return entities.Conversation{}, domainerrors.ErrConflict
		}
		return entities.Conversation{}, r.logError("chat_repo_create_conversation_failed", err,
			"conversation_id", strings.TrimSpace(conversation.ConversationID),
		)
	}
	return r.GetConversation(ctx, row.ID)
}

func (r *Repository) GetConversation(ctx context.Context, conversationID string) (entities.Conversation, error) {
	var row conversationModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(conversationID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Conversation{}, domainerrors.ErrConversationNotFound
		}
		return entities.Conversation{}, r.logError("chat_repo_get_conversation_failed", err,
			"conversation_id", strings.TrimSpace(conversationID),
		)
	}
	items, err := r.hydrateConversations(ctx, []conversationModel{row})
	if err != nil {
		return entities.Conversation{}, err
	}
	return items[0], nil
}

func (r *Repository) FindDirectConversation(ctx context.Context, userA string, userB string) (entities.Conversation, bool, error) {
	return r.findByDedupeKey(ctx, directDedupeKey(userA, userB))
}

func (r *Repository) FindStatusReplyConversation(ctx context.Context, statusID string, replyerID string) (entities.Conversation, bool, error) {
	return r.findByDedupeKey(ctx, replyDedupeKey(statusID, replyerID))
}

func (r *Repository) findByDedupeKey(ctx context.Context, key string) (entities.Conversation, bool, error) {
	var row conversationModel
	err := r.db.WithContext(ctx).
		Where("dedupe_key = ?", key).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Conversation{}, false, nil
		}
		return entities.Conversation{}, false, r.logError("chat_repo_find_conversation_failed", err, "dedupe_key", key)
	}
	items, err := r.hydrateConversations(ctx, []conversationModel{row})
	if err != nil {
		return entities.Conversation{}, false, err
	}
	return items[0], true, nil
}

func (r *Repository) ListConversations(ctx context.Context, input ports.ListConversationsInput) ([]entities.Conversation, int, error) {
	userID := strings.TrimSpace(input.UserID)
	base := r.db.WithContext(ctx).Model(&conversationModel{}).
		Joins("JOIN chat_conversation_participants p ON p.conversation_id = chat_conversations.id").
		Where("p.user_id = ?", userID).
		Where("p.archived = ?", input.Archived)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, r.logError("chat_repo_list_conversations_count_failed", err, "user_id", userID)
	}

	var rows []conversationModel
	err := base.Session(&gorm.Session{}).
		Order("COALESCE(chat_conversations.last_message_at, chat_conversations.created_at) DESC").
		Offset(input.Offset).
		Limit(input.Limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, r.logError("chat_repo_list_conversations_failed", err, "user_id", userID)
	}
	items, err := r.hydrateConversations(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return items, int(total), nil
}

func (r *Repository) SetAcceptanceStatus(
	ctx context.Context,
	conversationID string,
	status entities.AcceptanceStatus,
	actorID string,
	now time.Time,
) (entities.Conversation, error) {
	updates := map[string]any{
		"acceptance_status": string(status),
		"updated_at":        now.UTC(),
	}
	switch status {
	case entities.AcceptanceAccepted:
		updates["accepted_at"] = now.UTC()
	case entities.AcceptanceReported, entities.AcceptanceBlocked:
		updates["reported_at"] = now.UTC()
		updates["reported_by"] = strings.TrimSpace(actorID)
	}
	result := r.db.WithContext(ctx).
		Model(&conversationModel{}).
		Where("id = ?", strings.TrimSpace(conversationID)).
		Updates(updates)
	if result.Error != nil {
		return entities.Conversation{}, r.logError("chat_repo_set_acceptance_failed", result.Error,
			"conversation_id", strings.TrimSpace(conversationID),
			"acceptance_status", string(status),
		)
	}
	if result.RowsAffected == 0 {
		return entities.Conversation{}, domainerrors.ErrConversationNotFound
	}
	return r.GetConversation(ctx, conversationID)
}

func (r *Repository) SetConversationArchived(ctx context.Context, conversationID string, userID string, archived bool) error {
	result := r.db.WithContext(ctx).
		Model(&participantModel{}).
		Where("conversation_id = ?", strings.TrimSpace(conversationID)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Update("archived", archived)
	if result.Error != nil {
		return r.logError("chat_repo_set_archived_failed", result.Error,
			"conversation_id", strings.TrimSpace(conversationID),
			"user_id", strings.TrimSpace(userID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConversationNotFound
	}
	return nil
}

func (r *Repository) UpdateLastMessage(ctx context.Context, conversationID string, ref ports.LastMessageRef) error {
	result := r.db.WithContext(ctx).
		Model(&conversationModel{}).
		Where("id = ?", strings.TrimSpace(conversationID)).
		Updates(map[string]any{
			"last_message_id":        strings.TrimSpace(ref.MessageID),
			"last_message_at":        ref.SentAt.UTC(),
			"last_message_preview":   ref.Preview,
			"last_message_sender_id": strings.TrimSpace(ref.SenderID),
			"updated_at":             ref.SentAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("chat_repo_update_last_message_failed", result.Error,
			"conversation_id", strings.TrimSpace(conversationID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConversationNotFound
	}
	return nil
}

func (r *Repository) IncrementUnread(ctx context.Context, conversationID string, userIDs []string, now time.Time) error {
	for _, userID := range userIDs {
		if err := r.bumpCounter(ctx, conversationID, userID, "unread_count", now); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) ResetUnread(ctx context.Context, conversationID string, userID string) error {
	err := r.db.WithContext(ctx).
		Model(&counterModel{}).
		Where("conversation_id = ?", strings.TrimSpace(conversationID)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Update("unread_count", 0).
		Error
	if err != nil {
		return r.logError("chat_repo_reset_unread_failed", err,
			"conversation_id", strings.TrimSpace(conversationID),
			"user_id", strings.TrimSpace(userID),
		)
	}
	return nil
}

func (r *Repository) IncrementMessageCount(ctx context.Context, conversationID string, userID string, now time.Time) error {
	return r.bumpCounter(ctx, conversationID, userID, "message_count", now)
}

// bumpCounter upserts a counter row and atomically adds one to the named
// column so concurrent senders never lose increments.
func (r *Repository) bumpCounter(ctx context.Context, conversationID string, userID string, column string, now time.Time) error {
	row := counterModel{
		ConversationID: strings.TrimSpace(conversationID),
		UserID:         strings.TrimSpace(userID),
		UpdatedAt:      now.UTC(),
	}
	switch column {
	case "unread_count":
		row.UnreadCount = 1
	case "message_count":
		row.MessageCount = 1
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			column:       gorm.Expr("chat_conversation_counters."+column+" + 1"),
			"updated_at": now.UTC(),
		}),
	}).Create(&row).Error
	if err != nil {
		return r.logError("chat_repo_bump_counter_failed", err,
			"conversation_id", row.ConversationID,
			"user_id", row.UserID,
			"column", column,
		)
	}
	return nil
}

func (r *Repository) MessageCount(ctx context.Context, conversationID string, userID string) (int, error) {
	var row counterModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", strings.TrimSpace(conversationID)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, r.logError("chat_repo_message_count_failed", err,
			"conversation_id", strings.TrimSpace(conversationID),
			"user_id", strings.TrimSpace(userID),
		)
	}
	return row.MessageCount, nil
}

func (r *Repository) UnreadCounts(ctx context.Context, conversationIDs []string, userID string) (map[string]int, error) {
	counts := make(map[string]int, len(conversationIDs))
	for _, id := range conversationIDs {
		counts[id] = 0
	}
	if len(conversationIDs) == 0 {
		return counts, nil
	}
	var rows []counterModel
	err := r.db.WithContext(ctx).
		Where("conversation_id IN ?", conversationIDs).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("chat_repo_unread_counts_failed", err, "user_id", strings.TrimSpace(userID))
	}
	for _, row := range rows {
		counts[row.ConversationID] = row.UnreadCount
	}
	return counts, nil
}

func (r *Repository) CreateMessage(ctx context.Context, message entities.Message) (entities.Message, error) {
	row := messageModelFromEntity(message)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return upsertReceipts(tx, message, row.CreatedAt)
	})
	if err != nil {
		return entities.Message{}, r.logError("chat_repo_create_message_failed", err,
			"message_id", strings.TrimSpace(message.MessageID),
			"conversation_id", strings.TrimSpace(message.ConversationID),
		)
	}
	return r.GetMessage(ctx, row.ID)
}

func (r *Repository) GetMessage(ctx context.Context, messageID string) (entities.Message, error) {
	var row messageModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(messageID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Message{}, domainerrors.ErrMessageNotFound
		}
		return entities.Message{}, r.logError("chat_repo_get_message_failed", err,
			"message_id", strings.TrimSpace(messageID),
		)
	}
	items, err := r.hydrateMessages(ctx, []messageModel{row})
	if err != nil {
		return entities.Message{}, err
	}
	return items[0], nil
}

func (r *Repository) ListMessages(ctx context.Context, input ports.ListMessagesInput) ([]entities.Message, int, error) {
	conversationID := strings.TrimSpace(input.ConversationID)
	viewerID := strings.TrimSpace(input.ViewerID)
	base := r.db.WithContext(ctx).Model(&messageModel{}).
		Where("conversation_id = ?", conversationID).
		Where(
			"NOT EXISTS (SELECT 1 FROM chat_message_hidden h WHERE h.message_id = chat_messages.id AND h.user_id = ?)",
			viewerID,
		)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, r.logError("chat_repo_list_messages_count_failed", err, "conversation_id", conversationID)
	}

	var rows []messageModel
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset(input.Offset).
		Limit(input.Limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, r.logError("chat_repo_list_messages_failed", err, "conversation_id", conversationID)
	}
	items, err := r.hydrateMessages(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return items, int(total), nil
}

func (r *Repository) MarkConversationRead(ctx context.Context, conversationID string, userID string, now time.Time) (int, error) {
	conversationID = strings.TrimSpace(conversationID)
	userID = strings.TrimSpace(userID)

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&messageModel{}).
		Where("conversation_id = ?", conversationID).
		Where("sender_id <> ?", userID).
		Where("deleted = ?", false).
		Where(
			"NOT EXISTS (SELECT 1 FROM chat_message_receipts rc WHERE rc.message_id = chat_messages.id AND rc.user_id = ? AND rc.read_at IS NOT NULL)",
			userID,
		).
		Pluck("id", &ids).
		Error
	if err != nil {
		return 0, r.logError("chat_repo_mark_read_scan_failed", err,
			"conversation_id", conversationID,
			"user_id", userID,
		)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := r.applyReceipts(ctx, ids, userID, now, true); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (r *Repository) AddReadBy(ctx context.Context, messageIDs []string, userID string, now time.Time) ([]entities.Message, error) {
	return r.addReceipts(ctx, messageIDs, userID, now, true)
}

func (r *Repository) AddDeliveredTo(ctx context.Context, messageIDs []string, userID string, now time.Time) ([]entities.Message, error) {
	return r.addReceipts(ctx, messageIDs, userID, now, false)
}

func (r *Repository) addReceipts(
	ctx context.Context,
	messageIDs []string,
	userID string,
	now time.Time,
	read bool,
) ([]entities.Message, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	userID = strings.TrimSpace(userID)

	// Only messages in conversations the user participates in, and never the
	// user's own messages.
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&messageModel{}).
		Where("id IN ?", messageIDs).
		Where("sender_id <> ?", userID).
		Where(
			"EXISTS (SELECT 1 FROM chat_conversation_participants p WHERE p.conversation_id = chat_messages.conversation_id AND p.user_id = ?)",
			userID,
		).
		Pluck("id", &ids).
		Error
	if err != nil {
		return nil, r.logError("chat_repo_add_receipts_scan_failed", err, "user_id", userID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := r.applyReceipts(ctx, ids, userID, now, read); err != nil {
		return nil, err
	}

	var rows []messageModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, r.logError("chat_repo_add_receipts_reload_failed", err, "user_id", userID)
	}
	return r.hydrateMessages(ctx, rows)
}

// applyReceipts upserts one receipt per message and recomputes the message
// status column. A message is read once every participant other than the
// sender has a read receipt, delivered once every one of them has any
// receipt.
func (r *Repository) applyReceipts(ctx context.Context, messageIDs []string, userID string, now time.Time, read bool) error {
	rows := make([]receiptModel, 0, len(messageIDs))
	for _, id := range messageIDs {
		row := receiptModel{
			MessageID:   strings.TrimSpace(id),
			UserID:      userID,
			DeliveredAt: timePtr(now.UTC()),
		}
		if read {
			row.ReadAt = timePtr(now.UTC())
		}
		rows = append(rows, row)
	}
	assignments := map[string]any{
		"delivered_at": gorm.Expr("COALESCE(chat_message_receipts.delivered_at, ?)", now.UTC()),
	}
	if read {
		assignments["read_at"] = gorm.Expr("COALESCE(chat_message_receipts.read_at, ?)", now.UTC())
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&rows).Error
	if err != nil {
		return r.logError("chat_repo_apply_receipts_failed", err, "user_id", userID)
	}

	err = r.db.WithContext(ctx).Exec(`
		UPDATE chat_messages m SET status = 'read', updated_at = ?
		WHERE m.id IN ? AND m.status <> 'read' AND NOT EXISTS (
			SELECT 1 FROM chat_conversation_participants p
			WHERE p.conversation_id = m.conversation_id AND p.user_id <> m.sender_id AND NOT EXISTS (
				SELECT 1 FROM chat_message_receipts rc
				WHERE rc.message_id = m.id AND rc.user_id = p.user_id AND rc.read_at IS NOT NULL
			)
		)`, now.UTC(), messageIDs).Error
	if err != nil {
		return r.logError("chat_repo_recompute_read_failed", err, "user_id", userID)
	}

	err = r.db.WithContext(ctx).Exec(`
		UPDATE chat_messages m SET status = 'delivered', updated_at = ?
		WHERE m.id IN ? AND m.status = 'sent' AND NOT EXISTS (
			SELECT 1 FROM chat_conversation_participants p
			WHERE p.conversation_id = m.conversation_id AND p.user_id <> m.sender_id AND NOT EXISTS (
				SELECT 1 FROM chat_message_receipts rc
				WHERE rc.message_id = m.id AND rc.user_id = p.user_id
			)
		)`, now.UTC(), messageIDs).Error
	if err != nil {
		return r.logError("chat_repo_recompute_delivered_failed", err, "user_id", userID)
	}
	return nil
}

func (r *Repository) SoftDeleteMessage(ctx context.Context, messageID string, userID string, now time.Time) (entities.Message, error) {
	result := r.db.WithContext(ctx).
		Model(&messageModel{}).
		Where("id = ?", strings.TrimSpace(messageID)).
		Updates(map[string]any{
			"deleted":    true,
			"deleted_at": now.UTC(),
			"updated_at": now.UTC(),
		})
	if result.Error != nil {
		return entities.Message{}, r.logError("chat_repo_soft_delete_failed", result.Error,
			"message_id", strings.TrimSpace(messageID),
		)
	}
	if result.RowsAffected == 0 {
		return entities.Message{}, domainerrors.ErrMessageNotFound
	}
	return r.GetMessage(ctx, messageID)
}

func (r *Repository) HideMessageFor(ctx context.Context, messageID string, userID string) error {
	row := hiddenModel{
		MessageID: strings.TrimSpace(messageID),
		UserID:    strings.TrimSpace(userID),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return r.logError("chat_repo_hide_message_failed", err,
			"message_id", row.MessageID,
			"user_id", row.UserID,
		)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("chat_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, r.logError("chat_repo_idempotency_expire_failed", err,
				"idempotency_key", strings.TrimSpace(key),
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		Payload:     append([]byte(nil), row.Payload...),
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         strings.TrimSpace(record.Key),
		RequestHash: strings.TrimSpace(record.RequestHash),
		Payload:     append([]byte(nil), record.Payload...),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("chat_repo_idempotency_put_failed", create.Error, "idempotency_key", row.Key)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).Error; err != nil {
		return r.logError("chat_repo_idempotency_load_existing_failed", err, "idempotency_key", row.Key)
	}
	if existing.RequestHash != row.RequestHash {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) hydrateConversations(ctx context.Context, rows []conversationModel) ([]entities.Conversation, error) {
	if len(rows) == 0 {
		return []entities.Conversation{}, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var participants []participantModel
	if err := r.db.WithContext(ctx).
		Where("conversation_id IN ?", ids).
		Find(&participants).Error; err != nil {
		return nil, r.logError("chat_repo_load_participants_failed", err)
	}
	byConversation := make(map[string][]participantModel, len(rows))
	for _, participant := range participants {
		byConversation[participant.ConversationID] = append(byConversation[participant.ConversationID], participant)
	}

	items := make([]entities.Conversation, 0, len(rows))
	for _, row := range rows {
		item := row.toEntity()
		for _, participant := range byConversation[row.ID] {
			item.Participants = append(item.Participants, participant.UserID)
			if participant.Archived {
				item.DeletedFor = append(item.DeletedFor, participant.UserID)
			}
		}
		sort.Strings(item.Participants)
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) hydrateMessages(ctx context.Context, rows []messageModel) ([]entities.Message, error) {
	if len(rows) == 0 {
		return []entities.Message{}, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var receipts []receiptModel
	if err := r.db.WithContext(ctx).
		Where("message_id IN ?", ids).
		Find(&receipts).Error; err != nil {
		return nil, r.logError("chat_repo_load_receipts_failed", err)
	}
	var hidden []hiddenModel
	if err := r.db.WithContext(ctx).
		Where("message_id IN ?", ids).
		Find(&hidden).Error; err != nil {
		return nil, r.logError("chat_repo_load_hidden_failed", err)
	}

	readBy := make(map[string][]string)
	deliveredTo := make(map[string][]string)
	for _, receipt := range receipts {
		if receipt.ReadAt != nil {
			readBy[receipt.MessageID] = append(readBy[receipt.MessageID], receipt.UserID)
		}
		if receipt.DeliveredAt != nil {
			deliveredTo[receipt.MessageID] = append(deliveredTo[receipt.MessageID], receipt.UserID)
		}
	}
	hiddenFor := make(map[string][]string)
	for _, row := range hidden {
		hiddenFor[row.MessageID] = append(hiddenFor[row.MessageID], row.UserID)
	}

	items := make([]entities.Message, 0, len(rows))
	for _, row := range rows {
		item := row.toEntity()
		item.ReadBy = sortedCopy(readBy[row.ID])
		item.DeliveredTo = sortedCopy(deliveredTo[row.ID])
		item.DeletedFor = sortedCopy(hiddenFor[row.ID])
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "community-experience/chat-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("chat repository operation failed", fields...)
	return err
}

type conversationModel struct {
	ID                  string     `gorm:"column:id;primaryKey"`
	Type                string     `gorm:"column:type"`
	StatusID            string     `gorm:"column:status_id"`
	InitiatorID         string     `gorm:"column:initiator_id"`
	DedupeKey           string     `gorm:"column:dedupe_key;uniqueIndex"`
	AcceptanceStatus    string     `gorm:"column:acceptance_status"`
	AcceptedAt          *time.Time `gorm:"column:accepted_at"`
	ReportedAt          *time.Time `gorm:"column:reported_at"`
	ReportedBy          string     `gorm:"column:reported_by"`
	LastMessageID       string     `gorm:"column:last_message_id"`
	LastMessageAt       *time.Time `gorm:"column:last_message_at"`
	LastMessagePreview  string     `gorm:"column:last_message_preview"`
	LastMessageSenderID string     `gorm:"column:last_message_sender_id"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
}

func (conversationModel) TableName() string {
	return "chat_conversations"
}

func conversationModelFromEntity(conversation entities.Conversation) conversationModel {
	row := conversationModel{
		ID:                  strings.TrimSpace(conversation.ConversationID),
		Type:                string(conversation.Type),
		StatusID:            strings.TrimSpace(conversation.StatusID),
		InitiatorID:         strings.TrimSpace(conversation.InitiatorID),
		AcceptanceStatus:    string(conversation.AcceptanceStatus),
		AcceptedAt:          normalizeOptionalTime(conversation.AcceptedAt),
		ReportedAt:          normalizeOptionalTime(conversation.ReportedAt),
		ReportedBy:          strings.TrimSpace(conversation.ReportedBy),
		LastMessageID:       strings.TrimSpace(conversation.LastMessageID),
		LastMessageAt:       normalizeOptionalTime(conversation.LastMessageAt),
		LastMessagePreview:  conversation.LastMessagePreview,
		LastMessageSenderID: strings.TrimSpace(conversation.LastMessageSenderID),
		CreatedAt:           conversation.CreatedAt.UTC(),
		UpdatedAt:           conversation.UpdatedAt.UTC(),
	}
	switch conversation.Type {
	case entities.ConversationTypeStatusReply:
		row.DedupeKey = replyDedupeKey(conversation.StatusID, conversation.InitiatorID)
	default:
		if len(conversation.Participants) == 2 {
			row.DedupeKey = directDedupeKey(conversation.Participants[0], conversation.Participants[1])
		}
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m conversationModel) toEntity() entities.Conversation {
	return entities.Conversation{
		ConversationID:      m.ID,
		Type:                entities.ConversationType(m.Type),
		StatusID:            m.StatusID,
		InitiatorID:         m.InitiatorID,
		AcceptanceStatus:    entities.AcceptanceStatus(m.AcceptanceStatus),
		AcceptedAt:          normalizeOptionalTime(m.AcceptedAt),
		ReportedAt:          normalizeOptionalTime(m.ReportedAt),
		ReportedBy:          m.ReportedBy,
		LastMessageID:       m.LastMessageID,
		LastMessageAt:       normalizeOptionalTime(m.LastMessageAt),
		LastMessagePreview:  m.LastMessagePreview,
		LastMessageSenderID: m.LastMessageSenderID,
		CreatedAt:           m.CreatedAt.UTC(),
		UpdatedAt:           m.UpdatedAt.UTC(),
	}
}

type participantModel struct {
	ConversationID string `gorm:"column:conversation_id;primaryKey"`
	UserID         string `gorm:"column:user_id;primaryKey"`
	Archived       bool   `gorm:"column:archived"`
}

func (participantModel) TableName() string {
	return "chat_conversation_participants"
}

type counterModel struct {
	ConversationID string    `gorm:"column:conversation_id;primaryKey"`
	UserID         string    `gorm:"column:user_id;primaryKey"`
	UnreadCount    int       `gorm:"column:unread_count"`
	MessageCount   int       `gorm:"column:message_count"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (counterModel) TableName() string {
	return "chat_conversation_counters"
}

type messageModel struct {
	ID               string     `gorm:"column:id;primaryKey"`
	ConversationID   string     `gorm:"column:conversation_id;index"`
	SenderID         string     `gorm:"column:sender_id"`
	Type             string     `gorm:"column:type"`
	Content          string     `gorm:"column:content"`
	DocumentURL      string     `gorm:"column:document_url"`
	DocumentName     string     `gorm:"column:document_name"`
	DocumentMimeType string     `gorm:"column:document_mime_type"`
	DocumentSize     int64      `gorm:"column:document_size"`
	ReplyToMessageID string     `gorm:"column:reply_to_message_id"`
	ReplySnippet     string     `gorm:"column:reply_snippet"`
	ReplySenderID    string     `gorm:"column:reply_sender_id"`
	ReplySenderName  string     `gorm:"column:reply_sender_name"`
	ReplyType        string     `gorm:"column:reply_type"`
	Status           string     `gorm:"column:status"`
	Deleted          bool       `gorm:"column:deleted"`
	DeletedAt        *time.Time `gorm:"column:deleted_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (messageModel) TableName() string {
	return "chat_messages"
}

func messageModelFromEntity(message entities.Message) messageModel {
	row := messageModel{
		ID:               strings.TrimSpace(message.MessageID),
		ConversationID:   strings.TrimSpace(message.ConversationID),
		SenderID:         strings.TrimSpace(message.SenderID),
		Type:             string(message.Type),
		Content:          message.Content,
		DocumentURL:      strings.TrimSpace(message.DocumentURL),
		DocumentName:     strings.TrimSpace(message.DocumentName),
		DocumentMimeType: strings.TrimSpace(message.DocumentMimeType),
		DocumentSize:     message.DocumentSize,
		Status:           string(message.Status),
		Deleted:          message.Deleted,
		DeletedAt:        normalizeOptionalTime(message.DeletedAt),
		CreatedAt:        message.CreatedAt.UTC(),
		UpdatedAt:        message.UpdatedAt.UTC(),
	}
	if message.ReplyTo != nil {
		row.ReplyToMessageID = strings.TrimSpace(message.ReplyTo.MessageID)
		row.ReplySnippet = message.ReplyTo.Snippet
		row.ReplySenderID = strings.TrimSpace(message.ReplyTo.SenderID)
		row.ReplySenderName = strings.TrimSpace(message.ReplyTo.SenderName)
		row.ReplyType = string(message.ReplyTo.Type)
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m messageModel) toEntity() entities.Message {
	item := entities.Message{
		MessageID:        m.ID,
		ConversationID:   m.ConversationID,
		SenderID:         m.SenderID,
		Type:             entities.MessageType(m.Type),
		Content:          m.Content,
		DocumentURL:      m.DocumentURL,
		DocumentName:     m.DocumentName,
		DocumentMimeType: m.DocumentMimeType,
		DocumentSize:     m.DocumentSize,
		Status:           entities.MessageStatus(m.Status),
		Deleted:          m.Deleted,
		DeletedAt:        normalizeOptionalTime(m.DeletedAt),
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
	if m.ReplyToMessageID != "" {
		item.ReplyTo = &entities.ReplyRef{
			MessageID:  m.ReplyToMessageID,
			Snippet:    m.ReplySnippet,
			SenderID:   m.ReplySenderID,
			SenderName: m.ReplySenderName,
			Type:       entities.MessageType(m.ReplyType),
		}
	}
	return item
}

type receiptModel struct {
	MessageID   string     `gorm:"column:message_id;primaryKey"`
	UserID      string     `gorm:"column:user_id;primaryKey"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	ReadAt      *time.Time `gorm:"column:read_at"`
}

func (receiptModel) TableName() string {
	return "chat_message_receipts"
}

// upsertReceipts seeds the sender's own receipt rows when a message is
// created so the sender never counts toward pending receipts.
func upsertReceipts(tx *gorm.DB, message entities.Message, now time.Time) error {
	seen := make(map[string]*receiptModel)
	for _, userID := range message.DeliveredTo {
		userID = strings.TrimSpace(userID)
		if _, ok := seen[userID]; !ok {
			seen[userID] = &receiptModel{MessageID: message.MessageID, UserID: userID}
		}
		seen[userID].DeliveredAt = timePtr(now.UTC())
	}
	for _, userID := range message.ReadBy {
		userID = strings.TrimSpace(userID)
		if _, ok := seen[userID]; !ok {
			seen[userID] = &receiptModel{MessageID: message.MessageID, UserID: userID}
		}
		seen[userID].ReadAt = timePtr(now.UTC())
		if seen[userID].DeliveredAt == nil {
			seen[userID].DeliveredAt = timePtr(now.UTC())
		}
	}
	if len(seen) == 0 {
		return nil
	}
	rows := make([]receiptModel, 0, len(seen))
	for _, row := range seen {
		rows = append(rows, *row)
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&rows).Error
}

type hiddenModel struct {
	MessageID string `gorm:"column:message_id;primaryKey"`
	UserID    string `gorm:"column:user_id;primaryKey"`
}

func (hiddenModel) TableName() string {
	return "chat_message_hidden"
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	Payload     []byte    `gorm:"column:payload"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "chat_idempotency"
}

func directDedupeKey(userA string, userB string) string {
	pair := []string{strings.TrimSpace(userA), strings.TrimSpace(userB)}
	sort.Strings(pair)
	return "direct|" + pair[0] + "|" + pair[1]
}

func replyDedupeKey(statusID string, replyerID string) string {
	return "reply|" + strings.TrimSpace(statusID) + "|" + strings.TrimSpace(replyerID)
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func timePtr(value time.Time) *time.Time {
	return &value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
