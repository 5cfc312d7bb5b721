package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"mboa/contexts/lottery-games/challenge-service/domain/entities"
	domainerrors "mboa/contexts/lottery-games/challenge-service/domain/errors"
	"mboa/contexts/lottery-games/challenge-service/ports"

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

// Models lists every table owned by the challenge service for automigration.
func Models() []any {
	return []any{
		&challengeModel{},
		&distributionModel{},
		&entrepreneurModel{},
		&voteModel{},
	}
}

func (r *Repository) CreateChallenge(ctx context.Context, challenge entities.ImpactChallenge) error {
	row := challengeModelFromEntity(challenge)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("challenge_repo_create_failed", err, "challenge_id", row.ID)
	}
	return nil
}

func (r *Repository) GetChallenge(ctx context.Context, challengeID string) (entities.ImpactChallenge, error) {
	var row challengeModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(challengeID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ImpactChallenge{}, domainerrors.ErrChallengeNotFound
		}
		return entities.ImpactChallenge{}, r.logError("challenge_repo_get_failed", err, "challenge_id", strings.TrimSpace(challengeID))
	}
	return r.challengeWithDistribution(ctx, row)
}

func (r *Repository) FindChallengeByPeriod(ctx context.Context, month int, year int) (entities.ImpactChallenge, bool, error) {
	var row challengeModel
	err := r.db.WithContext(ctx).
		Where("month = ? AND year = ?", month, year).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.ImpactChallenge{}, false, nil
	}
	if err != nil {
		return entities.ImpactChallenge{}, false, r.logError("challenge_repo_find_period_failed", err)
	}
	found, err := r.challengeWithDistribution(ctx, row)
	if err != nil {
		return entities.ImpactChallenge{}, false, err
	}
	return found, true, nil
}

func (r *Repository) CurrentChallenge(ctx context.Context) (entities.ImpactChallenge, bool, error) {
	var row challengeModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.ChallengeActive)).
		Order("year DESC, month DESC").
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = r.db.WithContext(ctx).
			Where("status <> ?", string(entities.ChallengeCancelled)).
			Order("year DESC, month DESC").
			First(&row).
			Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.ImpactChallenge{}, false, nil
	}
	if err != nil {
		return entities.ImpactChallenge{}, false, r.logError("challenge_repo_current_failed", err)
	}
	found, err := r.challengeWithDistribution(ctx, row)
	if err != nil {
		return entities.ImpactChallenge{}, false, err
	}
	return found, true, nil
}

func (r *Repository) ListChallenges(ctx context.Context, offset int, limit int) ([]entities.ImpactChallenge, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&challengeModel{}).Count(&total).Error; err != nil {
		return nil, 0, r.logError("challenge_repo_list_count_failed", err)
	}
	var rows []challengeModel
	err := r.db.WithContext(ctx).
		Order("year DESC, month DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, r.logError("challenge_repo_list_failed", err)
	}
	if len(rows) == 0 {
		return []entities.ImpactChallenge{}, int(total), nil
	}

	challengeIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		challengeIDs = append(challengeIDs, row.ID)
	}
	var distRows []distributionModel
	err = r.db.WithContext(ctx).
		Where("challenge_id IN ?", challengeIDs).
		Find(&distRows).
		Error
	if err != nil {
		return nil, 0, r.logError("challenge_repo_list_distributions_failed", err)
	}
	distByChallenge := make(map[string]distributionModel, len(distRows))
	for _, distRow := range distRows {
		distByChallenge[distRow.ChallengeID] = distRow
	}

	challenges := make([]entities.ImpactChallenge, 0, len(rows))
	for _, row := range rows {
		challenges = append(challenges, row.toEntity(distByChallenge[row.ID].toEntity()))
	}
	return challenges, int(total), nil
}

func (r *Repository) UpdateChallenge(ctx context.Context, challenge entities.ImpactChallenge) error {
	result := r.db.WithContext(ctx).
		Model(&challengeModel{}).
		Where("id = ?", challenge.ChallengeID).
		Updates(map[string]any{
			"campaign_name":  challenge.CampaignName,
			"start_date":     challenge.StartDate.UTC(),
			"end_date":       challenge.EndDate.UTC(),
			"description_fr": challenge.DescriptionFR,
			"description_en": challenge.DescriptionEN,
			"updated_at":     challenge.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("challenge_repo_update_failed", result.Error, "challenge_id", challenge.ChallengeID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrChallengeNotFound
	}
	return nil
}

func (r *Repository) DeleteChallenge(ctx context.Context, challengeID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("challenge_id = ?", challengeID).Delete(&entrepreneurModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", challengeID).Delete(&challengeModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrChallengeNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrChallengeNotFound) {
			return err
		}
		return r.logError("challenge_repo_delete_failed", err, "challenge_id", challengeID)
	}
	return nil
}

func (r *Repository) TransitionStatus(ctx context.Context, challengeID string, from entities.ChallengeStatus, to entities.ChallengeStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&challengeModel{}).
		Where("id = ? AND status = ?", challengeID, string(from)).
		Updates(map[string]any{
			"status":     string(to),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, r.logError("challenge_repo_transition_failed", result.Error, "challenge_id", challengeID)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) ApplyChallengeTotals(ctx context.Context, challengeID string, amount int64, votes int) error {
	result := r.db.WithContext(ctx).
		Model(&challengeModel{}).
		Where("id = ?", challengeID).
		Updates(map[string]any{
			"total_collected":  gorm.Expr("total_collected + ?", amount),
			"total_vote_count": gorm.Expr("total_vote_count + ?", votes),
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return r.logError("challenge_repo_totals_failed", result.Error, "challenge_id", challengeID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrChallengeNotFound
	}
	return nil
}

func (r *Repository) RecordDistribution(ctx context.Context, challengeID string, dist entities.Distribution) (bool, error) {
	recorded := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&challengeModel{}).
			Where("id = ? AND funds_distributed = ?", challengeID, false).
			Updates(map[string]any{
				"funds_distributed": true,
				"status":            string(entities.ChallengeFundsDistributed),
				"updated_at":        dist.DistributedAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&challengeModel{}).Where("id = ?", challengeID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return domainerrors.ErrChallengeNotFound
			}
			return nil
		}
		row := distributionModelFromEntity(challengeID, dist)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		recorded = true
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrChallengeNotFound) {
			return false, err
		}
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, r.logError("challenge_repo_distribution_failed", err, "challenge_id", challengeID)
	}
	return recorded, nil
}

func (r *Repository) CreateEntrepreneur(ctx context.Context, entrepreneur entities.Entrepreneur) error {
	row := entrepreneurModelFromEntity(entrepreneur)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("challenge_repo_create_entrepreneur_failed", err, "entrepreneur_id", row.ID)
	}
	return nil
}

func (r *Repository) GetEntrepreneur(ctx context.Context, entrepreneurID string) (entities.Entrepreneur, error) {
	var row entrepreneurModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(entrepreneurID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Entrepreneur{}, domainerrors.ErrEntrepreneurNotFound
		}
		return entities.Entrepreneur{}, r.logError("challenge_repo_get_entrepreneur_failed", err, "entrepreneur_id", strings.TrimSpace(entrepreneurID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListEntrepreneurs(ctx context.Context, challengeID string, approvedOnly bool) ([]entities.Entrepreneur, error) {
	query := r.db.WithContext(ctx).Where("challenge_id = ?", challengeID)
	if approvedOnly {
		query = query.Where("approved = ?", true)
	}
	var rows []entrepreneurModel
	err := query.
		Order("vote_count DESC, total_amount DESC, created_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("challenge_repo_list_entrepreneurs_failed", err, "challenge_id", challengeID)
	}
	entrepreneurs := make([]entities.Entrepreneur, 0, len(rows))
	for _, row := range rows {
		entrepreneurs = append(entrepreneurs, row.toEntity())
	}
	return entrepreneurs, nil
}

func (r *Repository) CountEntrepreneurs(ctx context.Context, challengeID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entrepreneurModel{}).
		Where("challenge_id = ?", challengeID).
		Count(&count).
		Error
	if err != nil {
		return 0, r.logError("challenge_repo_count_entrepreneurs_failed", err, "challenge_id", challengeID)
	}
	return int(count), nil
}

func (r *Repository) UpdateEntrepreneur(ctx context.Context, entrepreneur entities.Entrepreneur) error {
	result := r.db.WithContext(ctx).
		Model(&entrepreneurModel{}).
		Where("id = ?", entrepreneur.EntrepreneurID).
		Updates(map[string]any{
			"project_name":        entrepreneur.ProjectName,
			"project_description": entrepreneur.ProjectDescription,
			"city":                entrepreneur.City,
			"photo_url":           entrepreneur.PhotoURL,
			"video_url":           entrepreneur.VideoURL,
			"video_duration":      entrepreneur.VideoDuration,
			"updated_at":          entrepreneur.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("challenge_repo_update_entrepreneur_failed", result.Error, "entrepreneur_id", entrepreneur.EntrepreneurID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrEntrepreneurNotFound
	}
	return nil
}

func (r *Repository) ApproveEntrepreneur(ctx context.Context, entrepreneurID string) error {
	result := r.db.WithContext(ctx).
		Model(&entrepreneurModel{}).
		Where("id = ?", entrepreneurID).
		Updates(map[string]any{
			"approved":   true,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return r.logError("challenge_repo_approve_failed", result.Error, "entrepreneur_id", entrepreneurID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrEntrepreneurNotFound
	}
	return nil
}

func (r *Repository) DeleteEntrepreneur(ctx context.Context, entrepreneurID string) error {
	result := r.db.WithContext(ctx).Where("id = ?", entrepreneurID).Delete(&entrepreneurModel{})
	if result.Error != nil {
		return r.logError("challenge_repo_delete_entrepreneur_failed", result.Error, "entrepreneur_id", entrepreneurID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrEntrepreneurNotFound
	}
	return nil
}

func (r *Repository) ApplyEntrepreneurVote(ctx context.Context, entrepreneurID string, votes int, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&entrepreneurModel{}).
		Where("id = ?", entrepreneurID).
		Updates(map[string]any{
			"vote_count":   gorm.Expr("vote_count + ?", votes),
			"total_amount": gorm.Expr("total_amount + ?", amount),
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return r.logError("challenge_repo_apply_vote_failed", result.Error, "entrepreneur_id", entrepreneurID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrEntrepreneurNotFound
	}
	return nil
}

func (r *Repository) SetRanking(ctx context.Context, challengeID string, ranks []ports.EntrepreneurRank) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, rank := range ranks {
			result := tx.Model(&entrepreneurModel{}).
				Where("id = ? AND challenge_id = ?", rank.EntrepreneurID, challengeID).
				Updates(map[string]any{
					"rank":       rank.Rank,
					"is_winner":  rank.IsWinner,
					"updated_at": now,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return domainerrors.ErrEntrepreneurMismatch
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrEntrepreneurMismatch) {
			return err
		}
		return r.logError("challenge_repo_set_ranking_failed", err, "challenge_id", challengeID)
	}
	return nil
}

func (r *Repository) CreateVote(ctx context.Context, vote entities.ChallengeVote) error {
	row := voteModelFromEntity(vote)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("challenge_repo_create_vote_failed", err, "vote_id", row.ID)
	}
	return nil
}

func (r *Repository) GetVote(ctx context.Context, voteID string) (entities.ChallengeVote, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(voteID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ChallengeVote{}, domainerrors.ErrVoteNotFound
		}
		return entities.ChallengeVote{}, r.logError("challenge_repo_get_vote_failed", err, "vote_id", strings.TrimSpace(voteID))
	}
	return row.toEntity(), nil
}

func (r *Repository) FindVoteByPaymentIntent(ctx context.Context, sessionID string) (entities.ChallengeVote, bool, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("payment_intent_id = ?", sessionID).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.ChallengeVote{}, false, nil
	}
	if err != nil {
		return entities.ChallengeVote{}, false, r.logError("challenge_repo_find_vote_failed", err, "session_id", sessionID)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SetVoteSession(ctx context.Context, voteID string, sessionID string) error {
	result := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("id = ?", voteID).
		Updates(map[string]any{
			"payment_intent_id": sessionID,
			"updated_at":        time.Now().UTC(),
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("challenge_repo_set_session_failed", result.Error, "vote_id", voteID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrVoteNotFound
	}
	return nil
}

func (r *Repository) CompleteVote(ctx context.Context, voteID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("id = ? AND payment_status = ?", voteID, string(entities.PaymentPending)).
		Updates(map[string]any{
			"payment_status": string(entities.PaymentCompleted),
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return false, r.logError("challenge_repo_complete_vote_failed", result.Error, "vote_id", voteID)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) RecordTicketGeneration(ctx context.Context, voteID string, ticketIDs []string, generated bool, genError string) error {
	result := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("id = ?", voteID).
		Updates(map[string]any{
			"tombola_ticket_ids":      marshalTicketIDs(ticketIDs),
			"tickets_generated":       generated,
			"ticket_generation_error": genError,
			"updated_at":              time.Now().UTC(),
		})
	if result.Error != nil {
		return r.logError("challenge_repo_ticket_generation_failed", result.Error, "vote_id", voteID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrVoteNotFound
	}
	return nil
}

func (r *Repository) ListVotes(ctx context.Context, challengeID string, offset int, limit int) ([]entities.ChallengeVote, int, error) {
	base := r.db.WithContext(ctx).Model(&voteModel{}).Where("challenge_id = ?", challengeID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, r.logError("challenge_repo_list_votes_count_failed", err, "challenge_id", challengeID)
	}
	var rows []voteModel
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, r.logError("challenge_repo_list_votes_failed", err, "challenge_id", challengeID)
	}
	votes := make([]entities.ChallengeVote, 0, len(rows))
	for _, row := range rows {
		votes = append(votes, row.toEntity())
	}
	return votes, int(total), nil
}

func (r *Repository) VoteStats(ctx context.Context, challengeID string) (ports.VoteStats, error) {
	var row struct {
		CompletedVotes     int
		CompletedSupports  int
		VoteAmount         int64
		SupportAmount      int64
		TicketsMinted      int
		UniqueParticipants int
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) FILTER (WHERE vote_type = ?) AS completed_votes,
			COUNT(*) FILTER (WHERE vote_type = ?) AS completed_supports,
			COALESCE(SUM(amount_paid) FILTER (WHERE vote_type = ?), 0) AS vote_amount,
			COALESCE(SUM(amount_paid) FILTER (WHERE vote_type = ?), 0) AS support_amount,
			COALESCE(SUM(jsonb_array_length(tombola_ticket_ids::jsonb)), 0) AS tickets_minted,
			COUNT(DISTINCT user_id) FILTER (WHERE user_id <> '') AS unique_participants
		FROM challenge_votes
		WHERE challenge_id = ? AND payment_status = ?`,
		string(entities.VoteTypeVote), string(entities.VoteTypeSupport),
		string(entities.VoteTypeVote), string(entities.VoteTypeSupport),
		challengeID, string(entities.PaymentCompleted),
	).Scan(&row).Error
	if err != nil {
		return ports.VoteStats{}, r.logError("challenge_repo_vote_stats_failed", err, "challenge_id", challengeID)
	}
	return ports.VoteStats{
		CompletedVotes:     row.CompletedVotes,
		CompletedSupports:  row.CompletedSupports,
		VoteAmount:         row.VoteAmount,
		SupportAmount:      row.SupportAmount,
		TicketsMinted:      row.TicketsMinted,
		UniqueParticipants: row.UniqueParticipants,
	}, nil
}

func (r *Repository) challengeWithDistribution(ctx context.Context, row challengeModel) (entities.ImpactChallenge, error) {
	if !row.FundsDistributed {
		return row.toEntity(entities.Distribution{}), nil
	}
	var distRow distributionModel
	err := r.db.WithContext(ctx).
		Where("challenge_id = ?", row.ID).
		First(&distRow).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row.toEntity(entities.Distribution{}), nil
	}
	if err != nil {
		return entities.ImpactChallenge{}, r.logError("challenge_repo_distribution_read_failed", err, "challenge_id", row.ID)
	}
	return row.toEntity(distRow.toEntity()), nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "lottery-games/challenge-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("challenge repository operation failed", fields...)
	return err
}

type challengeModel struct {
	ID               string    `gorm:"column:id;primaryKey"`
	Month            int       `gorm:"column:month;uniqueIndex:ux_impact_challenges_period"`
	Year             int       `gorm:"column:year;uniqueIndex:ux_impact_challenges_period"`
	CampaignName     string    `gorm:"column:campaign_name"`
	Status           string    `gorm:"column:status;index"`
	StartDate        time.Time `gorm:"column:start_date"`
	EndDate          time.Time `gorm:"column:end_date"`
	DescriptionFR    string    `gorm:"column:description_fr"`
	DescriptionEN    string    `gorm:"column:description_en"`
	TombolaMonthID   string    `gorm:"column:tombola_month_id;index"`
	TotalCollected   int64     `gorm:"column:total_collected"`
	TotalVoteCount   int       `gorm:"column:total_vote_count"`
	FundsDistributed bool      `gorm:"column:funds_distributed"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (challengeModel) TableName() string {
	return "impact_challenges"
}

func challengeModelFromEntity(challenge entities.ImpactChallenge) challengeModel {
	return challengeModel{
		ID:               challenge.ChallengeID,
		Month:            challenge.Month,
		Year:             challenge.Year,
		CampaignName:     challenge.CampaignName,
		Status:           string(challenge.Status),
		StartDate:        challenge.StartDate.UTC(),
		EndDate:          challenge.EndDate.UTC(),
		DescriptionFR:    challenge.DescriptionFR,
		DescriptionEN:    challenge.DescriptionEN,
		TombolaMonthID:   challenge.TombolaMonthID,
		TotalCollected:   challenge.TotalCollected,
		TotalVoteCount:   challenge.TotalVoteCount,
		FundsDistributed: challenge.FundsDistributed,
		CreatedAt:        challenge.CreatedAt.UTC(),
		UpdatedAt:        challenge.UpdatedAt.UTC(),
	}
}

func (c challengeModel) toEntity(dist entities.Distribution) entities.ImpactChallenge {
	return entities.ImpactChallenge{
		ChallengeID:      c.ID,
		Month:            c.Month,
		Year:             c.Year,
		CampaignName:     c.CampaignName,
		Status:           entities.ChallengeStatus(c.Status),
		StartDate:        c.StartDate.UTC(),
		EndDate:          c.EndDate.UTC(),
		DescriptionFR:    c.DescriptionFR,
		DescriptionEN:    c.DescriptionEN,
		TombolaMonthID:   c.TombolaMonthID,
		TotalCollected:   c.TotalCollected,
		TotalVoteCount:   c.TotalVoteCount,
		FundsDistributed: c.FundsDistributed,
		Distribution:     dist,
		CreatedAt:        c.CreatedAt.UTC(),
		UpdatedAt:        c.UpdatedAt.UTC(),
	}
}

type distributionModel struct {
	ChallengeID             string    `gorm:"column:challenge_id;primaryKey"`
	WinnerAmount            int64     `gorm:"column:winner_amount"`
	LotteryPoolAmount       int64     `gorm:"column:lottery_pool_amount"`
	CommissionAmount        int64     `gorm:"column:commission_amount"`
	WinnerTransactionID     string    `gorm:"column:winner_transaction_id"`
	LotteryTransactionID    string    `gorm:"column:lottery_transaction_id"`
	CommissionTransactionID string    `gorm:"column:commission_transaction_id"`
	DistributedAt           time.Time `gorm:"column:distributed_at"`
}

func (distributionModel) TableName() string {
	return "challenge_distributions"
}

func distributionModelFromEntity(challengeID string, dist entities.Distribution) distributionModel {
	return distributionModel{
		ChallengeID:             challengeID,
		WinnerAmount:            dist.WinnerAmount,
		LotteryPoolAmount:       dist.LotteryPoolAmount,
		CommissionAmount:        dist.CommissionAmount,
		WinnerTransactionID:     dist.WinnerTransactionID,
		LotteryTransactionID:    dist.LotteryTransactionID,
		CommissionTransactionID: dist.CommissionTransactionID,
		DistributedAt:           dist.DistributedAt.UTC(),
	}
}

func (d distributionModel) toEntity() entities.Distribution {
	if d.ChallengeID == "" {
		return entities.Distribution{}
	}
	return entities.Distribution{
		WinnerAmount:            d.WinnerAmount,
		LotteryPoolAmount:       d.LotteryPoolAmount,
		CommissionAmount:        d.CommissionAmount,
		WinnerTransactionID:     d.WinnerTransactionID,
		LotteryTransactionID:    d.LotteryTransactionID,
		CommissionTransactionID: d.CommissionTransactionID,
		DistributedAt:           d.DistributedAt.UTC(),
	}
}

type entrepreneurModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	ChallengeID        string    `gorm:"column:challenge_id;index;uniqueIndex:ux_challenge_entrepreneurs_user,where:user_id <> ''"`
	UserID             string    `gorm:"column:user_id;index;uniqueIndex:ux_challenge_entrepreneurs_user,where:user_id <> ''"`
	ProjectName        string    `gorm:"column:project_name"`
	ProjectDescription string    `gorm:"column:project_description"`
	City               string    `gorm:"column:city"`
	PhotoURL           string    `gorm:"column:photo_url"`
	VideoURL           string    `gorm:"column:video_url"`
	VideoDuration      int       `gorm:"column:video_duration"`
	VoteCount          int       `gorm:"column:vote_count"`
	TotalAmount        int64     `gorm:"column:total_amount"`
	Rank               int       `gorm:"column:rank"`
	IsWinner           bool      `gorm:"column:is_winner"`
	Approved           bool      `gorm:"column:approved;index"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (entrepreneurModel) TableName() string {
	return "challenge_entrepreneurs"
}

func entrepreneurModelFromEntity(entrepreneur entities.Entrepreneur) entrepreneurModel {
	return entrepreneurModel{
		ID:                 entrepreneur.EntrepreneurID,
		ChallengeID:        entrepreneur.ChallengeID,
		UserID:             entrepreneur.UserID,
		ProjectName:        entrepreneur.ProjectName,
		ProjectDescription: entrepreneur.ProjectDescription,
		City:               entrepreneur.City,
		PhotoURL:           entrepreneur.PhotoURL,
		VideoURL:           entrepreneur.VideoURL,
		VideoDuration:      entrepreneur.VideoDuration,
		VoteCount:          entrepreneur.VoteCount,
		TotalAmount:        entrepreneur.TotalAmount,
		Rank:               entrepreneur.Rank,
		IsWinner:           entrepreneur.IsWinner,
		Approved:           entrepreneur.Approved,
		CreatedAt:          entrepreneur.CreatedAt.UTC(),
		UpdatedAt:          entrepreneur.UpdatedAt.UTC(),
	}
}

func (e entrepreneurModel) toEntity() entities.Entrepreneur {
	return entities.Entrepreneur{
		EntrepreneurID:     e.ID,
		ChallengeID:        e.ChallengeID,
		UserID:             e.UserID,
		ProjectName:        e.ProjectName,
		ProjectDescription: e.ProjectDescription,
		City:               e.City,
		PhotoURL:           e.PhotoURL,
		VideoURL:           e.VideoURL,
		VideoDuration:      e.VideoDuration,
		VoteCount:          e.VoteCount,
		TotalAmount:        e.TotalAmount,
		Rank:               e.Rank,
		IsWinner:           e.IsWinner,
		Approved:           e.Approved,
		CreatedAt:          e.CreatedAt.UTC(),
		UpdatedAt:          e.UpdatedAt.UTC(),
	}
}

type voteModel struct {
	ID                    string    `gorm:"column:id;primaryKey"`
	ChallengeID           string    `gorm:"column:challenge_id;index"`
	EntrepreneurID        string    `gorm:"column:entrepreneur_id;index"`
	UserID                string    `gorm:"column:user_id;index"`
	AmountPaid            int64     `gorm:"column:amount_paid"`
	VoteQuantity          int       `gorm:"column:vote_quantity"`
	VoteType              string    `gorm:"column:vote_type"`
	PaymentStatus         string    `gorm:"column:payment_status;index"`
	PaymentIntentID       *string   `gorm:"column:payment_intent_id;uniqueIndex:ux_challenge_votes_intent"`
	TombolaTicketIDs      string    `gorm:"column:tombola_ticket_ids"`
	TicketsGenerated      bool      `gorm:"column:tickets_generated"`
	TicketGenerationError string    `gorm:"column:ticket_generation_error"`
	CreatedAt             time.Time `gorm:"column:created_at"`
	UpdatedAt             time.Time `gorm:"column:updated_at"`
}

func (voteModel) TableName() string {
	return "challenge_votes"
}

func voteModelFromEntity(vote entities.ChallengeVote) voteModel {
	row := voteModel{
		ID:                    vote.VoteID,
		ChallengeID:           vote.ChallengeID,
		EntrepreneurID:        vote.EntrepreneurID,
		UserID:                vote.UserID,
		AmountPaid:            vote.AmountPaid,
		VoteQuantity:          vote.VoteQuantity,
		VoteType:              string(vote.VoteType),
		PaymentStatus:         string(vote.PaymentStatus),
		TombolaTicketIDs:      marshalTicketIDs(vote.TombolaTicketIDs),
		TicketsGenerated:      vote.TicketsGenerated,
		TicketGenerationError: vote.TicketGenerationError,
		CreatedAt:             vote.CreatedAt.UTC(),
		UpdatedAt:             vote.UpdatedAt.UTC(),
	}
	if vote.PaymentIntentID != "" {
		sessionID := vote.PaymentIntentID
		row.PaymentIntentID = &sessionID
	}
	return row
}

func (v voteModel) toEntity() entities.ChallengeVote {
	vote := entities.ChallengeVote{
		VoteID:                v.ID,
		ChallengeID:           v.ChallengeID,
		EntrepreneurID:        v.EntrepreneurID,
		UserID:                v.UserID,
		AmountPaid:            v.AmountPaid,
		VoteQuantity:          v.VoteQuantity,
		VoteType:              entities.VoteType(v.VoteType),
		PaymentStatus:         entities.PaymentStatus(v.PaymentStatus),
		TombolaTicketIDs:      unmarshalTicketIDs(v.TombolaTicketIDs),
		TicketsGenerated:      v.TicketsGenerated,
		TicketGenerationError: v.TicketGenerationError,
		CreatedAt:             v.CreatedAt.UTC(),
		UpdatedAt:             v.UpdatedAt.UTC(),
	}
	if v.PaymentIntentID != nil {
		vote.PaymentIntentID = *v.PaymentIntentID
	}
	return vote
}

func marshalTicketIDs(ticketIDs []string) string {
	if len(ticketIDs) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(ticketIDs)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func unmarshalTicketIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var ticketIDs []string
	if err := json.Unmarshal([]byte(raw), &ticketIDs); err != nil {
		return nil
	}
	if len(ticketIDs) == 0 {
		return nil
	}
	return ticketIDs
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
