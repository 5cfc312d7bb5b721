package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"mboa/contexts/lottery-games/tombola-service/domain/entities"
	domainerrors "mboa/contexts/lottery-games/tombola-service/domain/errors"
	"mboa/contexts/lottery-games/tombola-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
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

// Models lists every table owned by the tombola service for automigration.
func Models() []any {
	return []any{
		&monthModel{},
		&winnerModel{},
		&ticketModel{},
	}
}

func (r *Repository) CreateMonth(ctx context.Context, month entities.TombolaMonth) error {
	row := monthModelFromEntity(month)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("tombola_repo_create_month_failed", err, "month_id", row.ID)
	}
	return nil
}

func (r *Repository) GetMonth(ctx context.Context, monthID string) (entities.TombolaMonth, error) {
	var row monthModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(monthID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.TombolaMonth{}, domainerrors.ErrMonthNotFound
		}
		return entities.TombolaMonth{}, r.logError("tombola_repo_get_month_failed", err, "month_id", strings.TrimSpace(monthID))
	}
	return r.monthWithWinners(ctx, row)
}

func (r *Repository) FindMonthByPeriod(ctx context.Context, month int, year int) (entities.TombolaMonth, bool, error) {
	var row monthModel
	err := r.db.WithContext(ctx).
		Where("month = ? AND year = ?", month, year).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.TombolaMonth{}, false, nil
	}
	if err != nil {
		return entities.TombolaMonth{}, false, r.logError("tombola_repo_find_month_failed", err)
	}
	found, err := r.monthWithWinners(ctx, row)
	if err != nil {
		return entities.TombolaMonth{}, false, err
	}
	return found, true, nil
}

func (r *Repository) CurrentMonth(ctx context.Context) (entities.TombolaMonth, bool, error) {
	var row monthModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.MonthOpen)).
		Order("year DESC, month DESC").
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.TombolaMonth{}, false, nil
	}
	if err != nil {
		return entities.TombolaMonth{}, false, r.logError("tombola_repo_current_month_failed", err)
	}
	found, err := r.monthWithWinners(ctx, row)
	if err != nil {
		return entities.TombolaMonth{}, false, err
	}
	return found, true, nil
}

func (r *Repository) ListMonths(ctx context.Context, offset int, limit int) ([]entities.TombolaMonth, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&monthModel{}).Count(&total).Error; err != nil {
		return nil, 0, r.logError("tombola_repo_list_months_count_failed", err)
	}
	var rows []monthModel
	err := r.db.WithContext(ctx).
		Order("year DESC, month DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, r.logError("tombola_repo_list_months_failed", err)
	}
	if len(rows) == 0 {
		return []entities.TombolaMonth{}, int(total), nil
	}

	monthIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		monthIDs = append(monthIDs, row.ID)
	}
	var winnerRows []winnerModel
	err = r.db.WithContext(ctx).
		Where("month_id IN ?", monthIDs).
		Order("rank ASC").
		Find(&winnerRows).
		Error
	if err != nil {
		return nil, 0, r.logError("tombola_repo_list_winners_failed", err)
	}
	winnersByMonth := make(map[string][]entities.Winner, len(rows))
	for _, winnerRow := range winnerRows {
		winnersByMonth[winnerRow.MonthID] = append(winnersByMonth[winnerRow.MonthID], winnerRow.toEntity())
	}

	months := make([]entities.TombolaMonth, 0, len(rows))
	for _, row := range rows {
		months = append(months, row.toEntity(winnersByMonth[row.ID]))
	}
	return months, int(total), nil
}

func (r *Repository) UpdateMonth(ctx context.Context, month entities.TombolaMonth) error {
	result := r.db.WithContext(ctx).
		Model(&monthModel{}).
		Where("id = ?", month.MonthID).
		Updates(map[string]any{
			"linked_challenge_id": month.LinkedChallengeID,
			"updated_at":          month.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("tombola_repo_update_month_failed", result.Error, "month_id", month.MonthID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrMonthNotFound
	}
	return nil
}

func (r *Repository) DeleteMonth(ctx context.Context, monthID string) error {
	result := r.db.WithContext(ctx).Where("id = ?", monthID).Delete(&monthModel{})
	if result.Error != nil {
		return r.logError("tombola_repo_delete_month_failed", result.Error, "month_id", monthID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrMonthNotFound
	}
	return nil
}

func (r *Repository) CloseOpenMonths(ctx context.Context, exceptMonthID string) (int, error) {
	result := r.db.WithContext(ctx).
		Model(&monthModel{}).
		Where("status = ? AND id <> ?", string(entities.MonthOpen), exceptMonthID).
		Updates(map[string]any{
			"status":     string(entities.MonthClosed),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, r.logError("tombola_repo_close_months_failed", result.Error)
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) SetMonthStatus(ctx context.Context, monthID string, status entities.MonthStatus) error {
	result := r.db.WithContext(ctx).
		Model(&monthModel{}).
		Where("id = ?", monthID).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return r.logError("tombola_repo_set_status_failed", result.Error, "month_id", monthID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrMonthNotFound
	}
	return nil
}

func (r *Repository) SetWinners(ctx context.Context, monthID string, winners []entities.Winner, drawDate time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&monthModel{}).
			Where("id = ?", monthID).
			Updates(map[string]any{
				"status":     string(entities.MonthClosed),
				"draw_date":  drawDate.UTC(),
				"updated_at": drawDate.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrMonthNotFound
		}
		for _, winner := range winners {
			row := winnerModel{
				MonthID:             monthID,
				Rank:                winner.Rank,
				UserID:              winner.UserID,
				Prize:               winner.Prize,
				WinningTicketNumber: winner.WinningTicketNumber,
				CreatedAt:           drawDate.UTC(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrMonthNotFound) {
			return err
		}
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("tombola_repo_set_winners_failed", err, "month_id", monthID)
	}
	return nil
}

func (r *Repository) NextTicketNumber(ctx context.Context, monthID string) (int, error) {
	var next int
	result := r.db.WithContext(ctx).Raw(
		"UPDATE tombola_months SET last_ticket_number = last_ticket_number + 1, updated_at = ? WHERE id = ? RETURNING last_ticket_number",
		time.Now().UTC(), monthID,
	).Scan(&next)
	if result.Error != nil {
		return 0, r.logError("tombola_repo_next_number_failed", result.Error, "month_id", monthID)
	}
	if result.RowsAffected == 0 {
		return 0, domainerrors.ErrMonthNotFound
	}
	return next, nil
}

func (r *Repository) CreateTicket(ctx context.Context, ticket entities.Ticket) error {
	row := ticketModelFromEntity(ticket)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("tombola_repo_create_ticket_failed", err, "ticket_id", row.TicketID)
	}
	return nil
}

func (r *Repository) GetTicketByToken(ctx context.Context, ticketID string) (entities.Ticket, bool, error) {
	var row ticketModel
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", strings.TrimSpace(ticketID)).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.Ticket{}, false, nil
	}
	if err != nil {
		return entities.Ticket{}, false, r.logError("tombola_repo_get_ticket_failed", err, "ticket_id", strings.TrimSpace(ticketID))
	}
	return row.toEntity(), true, nil
}

func (r *Repository) FindMintedTicket(ctx context.Context, paymentIntentID string, userTicketIndex int) (entities.Ticket, bool, error) {
	var row ticketModel
	err := r.db.WithContext(ctx).
		Where("payment_intent_id = ? AND user_ticket_index = ?", paymentIntentID, userTicketIndex).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.Ticket{}, false, nil
	}
	if err != nil {
		return entities.Ticket{}, false, r.logError("tombola_repo_find_minted_failed", err, "session_id", paymentIntentID)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) CountUserTickets(ctx context.Context, monthID string, userID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ticketModel{}).
		Where("month_id = ? AND user_id = ?", monthID, userID).
		Count(&count).
		Error
	if err != nil {
		return 0, r.logError("tombola_repo_count_user_tickets_failed", err, "month_id", monthID, "user_id", userID)
	}
	return int(count), nil
}

func (r *Repository) CountMonthTickets(ctx context.Context, monthID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ticketModel{}).
		Where("month_id = ?", monthID).
		Count(&count).
		Error
	if err != nil {
		return 0, r.logError("tombola_repo_count_month_tickets_failed", err, "month_id", monthID)
	}
	return int(count), nil
}

func (r *Repository) ListUserTickets(ctx context.Context, userID string, offset int, limit int) ([]entities.Ticket, int, error) {
	base := r.db.WithContext(ctx).Model(&ticketModel{}).Where("user_id = ?", userID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, r.logError("tombola_repo_user_tickets_count_failed", err, "user_id", userID)
	}
	var rows []ticketModel
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC, ticket_number DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, r.logError("tombola_repo_user_tickets_failed", err, "user_id", userID)
	}
	return toTicketEntities(rows), int(total), nil
}

func (r *Repository) ListMonthTickets(ctx context.Context, monthID string, offset int, limit int) ([]entities.Ticket, int, error) {
	base := r.db.WithContext(ctx).Model(&ticketModel{}).Where("month_id = ?", monthID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, r.logError("tombola_repo_month_tickets_count_failed", err, "month_id", monthID)
	}
	var rows []ticketModel
	err := base.Session(&gorm.Session{}).
		Order("ticket_number ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, r.logError("tombola_repo_month_tickets_failed", err, "month_id", monthID)
	}
	return toTicketEntities(rows), int(total), nil
}

func (r *Repository) AllMonthTickets(ctx context.Context, monthID string) ([]entities.Ticket, error) {
	var rows []ticketModel
	err := r.db.WithContext(ctx).
		Where("month_id = ?", monthID).
		Order("ticket_number ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("tombola_repo_all_tickets_failed", err, "month_id", monthID)
	}
	return toTicketEntities(rows), nil
}

func (r *Repository) TicketNumbers(ctx context.Context, monthID string) ([]int, error) {
	var numbers []int
	err := r.db.WithContext(ctx).
		Model(&ticketModel{}).
		Where("month_id = ?", monthID).
		Order("ticket_number ASC").
		Pluck("ticket_number", &numbers).
		Error
	if err != nil {
		return nil, r.logError("tombola_repo_ticket_numbers_failed", err, "month_id", monthID)
	}
	return numbers, nil
}

func (r *Repository) monthWithWinners(ctx context.Context, row monthModel) (entities.TombolaMonth, error) {
	var winnerRows []winnerModel
	err := r.db.WithContext(ctx).
		Where("month_id = ?", row.ID).
		Order("rank ASC").
		Find(&winnerRows).
		Error
	if err != nil {
		return entities.TombolaMonth{}, r.logError("tombola_repo_winners_failed", err, "month_id", row.ID)
	}
	winners := make([]entities.Winner, 0, len(winnerRows))
	for _, winnerRow := range winnerRows {
		winners = append(winners, winnerRow.toEntity())
	}
	return row.toEntity(winners), nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "lottery-games/tombola-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("tombola repository operation failed", fields...)
	return err
}

type monthModel struct {
	ID                   string     `gorm:"column:id;primaryKey"`
	Month                int        `gorm:"column:month;uniqueIndex:ux_tombola_months_period"`
	Year                 int        `gorm:"column:year;uniqueIndex:ux_tombola_months_period"`
	Status               string     `gorm:"column:status;index"`
	LastTicketNumber     int        `gorm:"column:last_ticket_number"`
	PreviousMonthWinners string     `gorm:"column:previous_month_winners"`
	LinkedChallengeID    string     `gorm:"column:linked_challenge_id"`
	DrawDate             *time.Time `gorm:"column:draw_date"`
	CreatedAt            time.Time  `gorm:"column:created_at"`
	UpdatedAt            time.Time  `gorm:"column:updated_at"`
}

func (monthModel) TableName() string {
	return "tombola_months"
}

func monthModelFromEntity(month entities.TombolaMonth) monthModel {
	row := monthModel{
		ID:                   month.MonthID,
		Month:                month.Month,
		Year:                 month.Year,
		Status:               string(month.Status),
		LastTicketNumber:     month.LastTicketNumber,
		PreviousMonthWinners: marshalUserIDs(month.PreviousMonthWinners),
		LinkedChallengeID:    month.LinkedChallengeID,
		CreatedAt:            month.CreatedAt.UTC(),
		UpdatedAt:            month.UpdatedAt.UTC(),
	}
	if !month.DrawDate.IsZero() {
		drawDate := month.DrawDate.UTC()
		row.DrawDate = &drawDate
	}
	return row
}

func (m monthModel) toEntity(winners []entities.Winner) entities.TombolaMonth {
	month := entities.TombolaMonth{
		MonthID:              m.ID,
		Month:                m.Month,
		Year:                 m.Year,
		Status:               entities.MonthStatus(m.Status),
		LastTicketNumber:     m.LastTicketNumber,
		Winners:              winners,
		PreviousMonthWinners: unmarshalUserIDs(m.PreviousMonthWinners),
		LinkedChallengeID:    m.LinkedChallengeID,
		CreatedAt:            m.CreatedAt.UTC(),
		UpdatedAt:            m.UpdatedAt.UTC(),
	}
	if m.DrawDate != nil {
		month.DrawDate = m.DrawDate.UTC()
	}
	return month
}

type winnerModel struct {
	MonthID             string    `gorm:"column:month_id;primaryKey"`
	Rank                int       `gorm:"column:rank;primaryKey"`
	UserID              string    `gorm:"column:user_id;index"`
	Prize               string    `gorm:"column:prize"`
	WinningTicketNumber int       `gorm:"column:winning_ticket_number"`
	CreatedAt           time.Time `gorm:"column:created_at"`
}

func (winnerModel) TableName() string {
	return "tombola_winners"
}

func (w winnerModel) toEntity() entities.Winner {
	return entities.Winner{
		UserID:              w.UserID,
		Prize:               w.Prize,
		Rank:                w.Rank,
		WinningTicketNumber: w.WinningTicketNumber,
	}
}

type ticketModel struct {
	TicketID        string    `gorm:"column:ticket_id;primaryKey"`
	UserID          string    `gorm:"column:user_id;index"`
	MonthID         string    `gorm:"column:month_id;index;uniqueIndex:ux_tombola_tickets_number"`
	TicketNumber    int       `gorm:"column:ticket_number;uniqueIndex:ux_tombola_tickets_number"`
	Weight          float64   `gorm:"column:weight"`
	UserTicketIndex int       `gorm:"column:user_ticket_index;uniqueIndex:ux_tombola_tickets_mint"`
	SourceType      string    `gorm:"column:source_type"`
	PaymentIntentID string    `gorm:"column:payment_intent_id;index;uniqueIndex:ux_tombola_tickets_mint"`
	ChallengeVoteID string    `gorm:"column:challenge_vote_id;index"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (ticketModel) TableName() string {
	return "tombola_tickets"
}

func ticketModelFromEntity(ticket entities.Ticket) ticketModel {
	return ticketModel{
		TicketID:        ticket.TicketID,
		UserID:          ticket.UserID,
		MonthID:         ticket.MonthID,
		TicketNumber:    ticket.TicketNumber,
		Weight:          ticket.Weight,
		UserTicketIndex: ticket.UserTicketIndex,
		SourceType:      string(ticket.SourceType),
		PaymentIntentID: ticket.PaymentIntentID,
		ChallengeVoteID: ticket.ChallengeVoteID,
		CreatedAt:       ticket.CreatedAt.UTC(),
	}
}

func (t ticketModel) toEntity() entities.Ticket {
	return entities.Ticket{
		TicketID:        t.TicketID,
		UserID:          t.UserID,
		MonthID:         t.MonthID,
		TicketNumber:    t.TicketNumber,
		Weight:          t.Weight,
		UserTicketIndex: t.UserTicketIndex,
		SourceType:      entities.TicketSource(t.SourceType),
		PaymentIntentID: t.PaymentIntentID,
		ChallengeVoteID: t.ChallengeVoteID,
		CreatedAt:       t.CreatedAt.UTC(),
	}
}

func toTicketEntities(rows []ticketModel) []entities.Ticket {
	tickets := make([]entities.Ticket, 0, len(rows))
	for _, row := range rows {
		tickets = append(tickets, row.toEntity())
	}
	return tickets
}

func marshalUserIDs(userIDs []string) string {
	if len(userIDs) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(userIDs)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func unmarshalUserIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var userIDs []string
	if err := json.Unmarshal([]byte(raw), &userIDs); err != nil {
		return nil
	}
	if len(userIDs) == 0 {
		return nil
	}
	return userIDs
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
