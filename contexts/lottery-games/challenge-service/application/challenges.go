package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"mboa/contexts/lottery-games/challenge-service/domain/entities"
	domainerrors "mboa/contexts/lottery-games/challenge-service/domain/errors"
	"mboa/contexts/lottery-games/challenge-service/ports"
)

// ChallengeService owns the campaign lifecycle, the entrepreneur roster and
// the close-voting / distribute-funds admin flows.
type ChallengeService struct {
	Repo     ports.Repository
	Tombola  ports.TombolaGateway
	Payments ports.PaymentsClient
	Ops      ports.OpsAlerter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger

	MaxEntrepreneurs     int
	VideoMaxSeconds      int
	Currency             string
	LotteryPoolAccountID string
	CommissionAccountID  string
}

// FundSummary is the admin money view. Before distribution the three
// amounts are the projected split of the running total; afterwards they
// mirror the payout record and Distribution carries the transaction refs.
type FundSummary struct {
	TotalCollected    int64
	TotalVoteCount    int
	FundsDistributed  bool
	WinnerAmount      int64
	LotteryPoolAmount int64
	CommissionAmount  int64
	Distribution      *entities.Distribution
}

// Analytics aggregates the campaign's paid activity.
type Analytics struct {
	ChallengeID           string
	Status                entities.ChallengeStatus
	TotalCollected        int64
	TotalVoteCount        int
	CompletedVotes        int
	CompletedSupports     int
	VoteAmount            int64
	SupportAmount         int64
	TicketsMinted         int
	UniqueParticipants    int
	Entrepreneurs         int
	ApprovedEntrepreneurs int
}

// CreateChallenge opens a draft campaign for (month, year) and links it to
// the tombola month of the same period, creating that month when missing.
func (s ChallengeService) CreateChallenge(ctx context.Context, input ports.CreateChallengeInput) (entities.ImpactChallenge, error) {
	input.CampaignName = strings.TrimSpace(input.CampaignName)
	if input.Month < 1 || input.Month > 12 || input.Year < 2000 || input.CampaignName == "" {
		return entities.ImpactChallenge{}, domainerrors.ErrInvalidRequest
	}
	if _, ok, err := s.Repo.FindChallengeByPeriod(ctx, input.Month, input.Year); err != nil {
		return entities.ImpactChallenge{}, err
	} else if ok {
		return entities.ImpactChallenge{}, domainerrors.ErrChallengeExists
	}

	monthRef, err := s.Tombola.FindOrCreateMonth(ctx, input.Month, input.Year)
	if err != nil {
		return entities.ImpactChallenge{}, fmt.Errorf("link tombola month: %w", err)
	}
	challengeID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.ImpactChallenge{}, fmt.Errorf("generate challenge id: %w", err)
	}

	now := s.now()
	start, end := input.StartDate, input.EndDate
	if start.IsZero() {
		start = time.Date(input.Year, time.Month(input.Month), 1, 0, 0, 0, 0, time.UTC)
	}
	if end.IsZero() {
		end = time.Date(input.Year, time.Month(input.Month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	}
	challenge := entities.ImpactChallenge{
		ChallengeID:    challengeID,
		Month:          input.Month,
		Year:           input.Year,
		CampaignName:   input.CampaignName,
		Status:         entities.ChallengeDraft,
		StartDate:      start,
		EndDate:        end,
		DescriptionFR:  strings.TrimSpace(input.DescriptionFR),
		DescriptionEN:  strings.TrimSpace(input.DescriptionEN),
		TombolaMonthID: monthRef.MonthID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.CreateChallenge(ctx, challenge); err != nil {
		if errors.Is(err, domainerrors.ErrConflict) {
			return entities.ImpactChallenge{}, domainerrors.ErrChallengeExists
		}
		return entities.ImpactChallenge{}, err
	}
	resolveLogger(s.Logger).Info("challenge created",
		"event", "challenge_created",
		"module", "lottery-games/challenge-service",
		"challenge_id", challenge.ChallengeID,
		"period", fmt.Sprintf("%04d-%02d", challenge.Year, challenge.Month),
		"tombola_month_id", challenge.TombolaMonthID,
	)
	return challenge, nil
}

func (s ChallengeService) Get(ctx context.Context, challengeID string) (entities.ImpactChallenge, error) {
	return s.Repo.GetChallenge(ctx, strings.TrimSpace(challengeID))
}

// Current returns the campaign the public surfaces should show.
func (s ChallengeService) Current(ctx context.Context) (entities.ImpactChallenge, error) {
	challenge, ok, err := s.Repo.CurrentChallenge(ctx)
	if err != nil {
		return entities.ImpactChallenge{}, err
	}
	if !ok {
		return entities.ImpactChallenge{}, domainerrors.ErrChallengeNotFound
	}
	return challenge, nil
}

func (s ChallengeService) List(ctx context.Context, page int, limit int) ([]entities.ImpactChallenge, int, error) {
	offset, limit := normalizePage(page, limit, 20, 100)
	return s.Repo.ListChallenges(ctx, offset, limit)
}

// Update edits the admin-editable campaign attributes.
func (s ChallengeService) Update(ctx context.Context, input ports.UpdateChallengeInput) (entities.ImpactChallenge, error) {
	challenge, err := s.Repo.GetChallenge(ctx, strings.TrimSpace(input.ChallengeID))
	if err != nil {
		return entities.ImpactChallenge{}, err
	}
	if input.CampaignName != nil {
		name := strings.TrimSpace(*input.CampaignName)
		if name == "" {
			return entities.ImpactChallenge{}, domainerrors.ErrInvalidRequest
		}
		challenge.CampaignName = name
	}
	if input.StartDate != nil {
		challenge.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		challenge.EndDate = *input.EndDate
	}
	if input.DescriptionFR != nil {
		challenge.DescriptionFR = strings.TrimSpace(*input.DescriptionFR)
	}
	if input.DescriptionEN != nil {
		challenge.DescriptionEN = strings.TrimSpace(*input.DescriptionEN)
	}
	challenge.UpdatedAt = s.now()
	if err := s.Repo.UpdateChallenge(ctx, challenge); err != nil {
		return entities.ImpactChallenge{}, err
	}
	return challenge, nil
}

// SetStatus activates or cancels a campaign. Closing voting and
// distributing funds have dedicated flows and are not reachable here.
func (s ChallengeService) SetStatus(ctx context.Context, challengeID string, status entities.ChallengeStatus) (entities.ImpactChallenge, error) {
	if status != entities.ChallengeActive && status != entities.ChallengeCancelled {
		return entities.ImpactChallenge{}, domainerrors.ErrInvalidTransition
	}
	challenge, err := s.Repo.GetChallenge(ctx, strings.TrimSpace(challengeID))
	if err != nil {
		return entities.ImpactChallenge{}, err
	}
	if challenge.Status == status {
		return challenge, nil
	}
	if !challenge.Status.CanTransition(status) {
		return entities.ImpactChallenge{}, domainerrors.ErrInvalidTransition
	}
	ok, err := s.Repo.TransitionStatus(ctx, challenge.ChallengeID, challenge.Status, status)
	if err != nil {
		return entities.ImpactChallenge{}, err
	}
	if !ok {
		return entities.ImpactChallenge{}, domainerrors.ErrInvalidTransition
	}
	resolveLogger(s.Logger).Info("challenge status changed",
		"event", "challenge_status_changed",
		"module", "lottery-games/challenge-service",
		"challenge_id", challenge.ChallengeID,
		"from", string(challenge.Status),
		"to", string(status),
	)
	return s.Repo.GetChallenge(ctx, challenge.ChallengeID)
}

// Delete removes a campaign that never left draft.
func (s ChallengeService) Delete(ctx context.Context, challengeID string) error {
	challenge, err := s.Repo.GetChallenge(ctx, strings.TrimSpace(challengeID))
	if err != nil {
		return err
	}
	if challenge.Status != entities.ChallengeDraft || challenge.TotalVoteCount > 0 {
		return domainerrors.ErrChallengeNotDeletable
	}
	return s.Repo.DeleteChallenge(ctx, challenge.ChallengeID)
}

// AddEntrepreneur adds a roster entry. The roster is capped and frozen once
// voting closes.
func (s ChallengeService) AddEntrepreneur(ctx context.Context, input ports.CreateEntrepreneurInput) (entities.Entrepreneur, error) {
	input.ProjectName = strings.TrimSpace(input.ProjectName)
	if input.ProjectName == "" {
		return entities.Entrepreneur{}, domainerrors.ErrInvalidRequest
	}
	if input.VideoDuration < 0 {
		return entities.Entrepreneur{}, domainerrors.ErrInvalidRequest
	}
	if input.VideoDuration > s.videoMaxSeconds() {
		return entities.Entrepreneur{}, domainerrors.ErrVideoTooLong
	}
	challenge, err := s.Repo.GetChallenge(ctx, strings.TrimSpace(input.ChallengeID))
	if err != nil {
		return entities.Entrepreneur{}, err
	}
	if challenge.Status != entities.ChallengeDraft && challenge.Status != entities.ChallengeActive {
		return entities.Entrepreneur{}, fmt.Errorf("%w: roster is frozen once voting closes", domainerrors.ErrForbidden)
	}
	count, err := s.Repo.CountEntrepreneurs(ctx, challenge.ChallengeID)
	if err != nil {
		return entities.Entrepreneur{}, err
	}
	if count >= s.maxEntrepreneurs() {
		return entities.Entrepreneur{}, domainerrors.ErrRosterFull
	}

	entrepreneurID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.Entrepreneur{}, fmt.Errorf("generate entrepreneur id: %w", err)
	}
	now := s.now()
	entrepreneur := entities.Entrepreneur{
		EntrepreneurID:     entrepreneurID,
		ChallengeID:        challenge.ChallengeID,
		UserID:             strings.TrimSpace(input.UserID),
		ProjectName:        input.ProjectName,
		ProjectDescription: strings.TrimSpace(input.ProjectDescription),
		City:               strings.TrimSpace(input.City),
		PhotoURL:           strings.TrimSpace(input.PhotoURL),
		VideoURL:           strings.TrimSpace(input.VideoURL),
		VideoDuration:      input.VideoDuration,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.Repo.CreateEntrepreneur(ctx, entrepreneur); err != nil {
		return entities.Entrepreneur{}, err
	}
	resolveLogger(s.Logger).Info("entrepreneur added",
		"event", "challenge_entrepreneur_added",
		"module", "lottery-games/challenge-service",
		"challenge_id", challenge.ChallengeID,
		"entrepreneur_id", entrepreneur.EntrepreneurID,
	)
	return entrepreneur, nil
}

func (s ChallengeService) UpdateEntrepreneur(ctx context.Context, input ports.UpdateEntrepreneurInput) (entities.Entrepreneur, error) {
	entrepreneur, err := s.Repo.GetEntrepreneur(ctx, strings.TrimSpace(input.EntrepreneurID))
	if err != nil {
		return entities.Entrepreneur{}, err
	}
	if input.ProjectName != nil {
		name := strings.TrimSpace(*input.ProjectName)
		if name == "" {
			return entities.Entrepreneur{}, domainerrors.ErrInvalidRequest
		}
		entrepreneur.ProjectName = name
	}
	if input.ProjectDescription != nil {
		entrepreneur.ProjectDescription = strings.TrimSpace(*input.ProjectDescription)
	}
	if input.City != nil {
		entrepreneur.City = strings.TrimSpace(*input.City)
	}
	if input.PhotoURL != nil {
		entrepreneur.PhotoURL = strings.TrimSpace(*input.PhotoURL)
	}
	if input.VideoURL != nil {
		entrepreneur.VideoURL = strings.TrimSpace(*input.VideoURL)
	}
	if input.VideoDuration != nil {
		if *input.VideoDuration < 0 {
			return entities.Entrepreneur{}, domainerrors.ErrInvalidRequest
		}
		if *input.VideoDuration > s.videoMaxSeconds() {
			return entities.Entrepreneur{}, domainerrors.ErrVideoTooLong
		}
		entrepreneur.VideoDuration = *input.VideoDuration
	}
	entrepreneur.UpdatedAt = s.now()
	if err := s.Repo.UpdateEntrepreneur(ctx, entrepreneur); err != nil {
		return entities.Entrepreneur{}, err
	}
	return entrepreneur, nil
}

// ApproveEntrepreneur makes a roster entry votable. Approving an approved
// entry is a no-op.
func (s ChallengeService) ApproveEntrepreneur(ctx context.Context, entrepreneurID string) (entities.Entrepreneur, error) {
	entrepreneur, err := s.Repo.GetEntrepreneur(ctx, strings.TrimSpace(entrepreneurID))
	if err != nil {
		return entities.Entrepreneur{}, err
	}
	if entrepreneur.Approved {
		return entrepreneur, nil
	}
	if err := s.Repo.ApproveEntrepreneur(ctx, entrepreneur.EntrepreneurID); err != nil {
		return entities.Entrepreneur{}, err
	}
	resolveLogger(s.Logger).Info("entrepreneur approved",
		"event", "challenge_entrepreneur_approved",
		"module", "lottery-games/challenge-service",
		"entrepreneur_id", entrepreneur.EntrepreneurID,
	)
	return s.Repo.GetEntrepreneur(ctx, entrepreneur.EntrepreneurID)
}

// DeleteEntrepreneur removes a roster entry that never received a vote.
func (s ChallengeService) DeleteEntrepreneur(ctx context.Context, entrepreneurID string) error {
	entrepreneur, err := s.Repo.GetEntrepreneur(ctx, strings.TrimSpace(entrepreneurID))
	if err != nil {
		return err
	}
	if entrepreneur.VoteCount > 0 {
		return domainerrors.ErrEntrepreneurHasVotes
	}
	return s.Repo.DeleteEntrepreneur(ctx, entrepreneur.EntrepreneurID)
}

// Entrepreneurs lists the roster; the public surface sees approved entries
// only.
func (s ChallengeService) Entrepreneurs(ctx context.Context, challengeID string, includeUnapproved bool) ([]entities.Entrepreneur, error) {
	challenge, err := s.Repo.GetChallenge(ctx, strings.TrimSpace(challengeID))
	if err != nil {
		return nil, err
	}
	return s.Repo.ListEntrepreneurs(ctx, challenge.ChallengeID, !includeUnapproved)
}

// Leaderboard returns the approved roster in standings order: persisted
// ranks once voting closed, live vote counts before that.
func (s ChallengeService) Leaderboard(ctx context.Context, challengeID string) ([]entities.Entrepreneur, error) {
	entrepreneurs, err := s.Entrepreneurs(ctx, challengeID, false)
	if err != nil {
		return nil, err
	}
	sortByStanding(entrepreneurs)
	return entrepreneurs, nil
}

// CloseVoting freezes an active campaign: approved entrepreneurs are ranked
// by vote count, rank 1 is marked winner and the status moves to
// voting_closed.
func (s ChallengeService) CloseVoting(ctx context.Context, challengeID string) (entities.ImpactChallenge, error) {
	challenge, err := s.Repo.GetChallenge(ctx, strings.TrimSpace(challengeID))
	if err != nil {
		return entities.ImpactChallenge{}, err
	}
	if challenge.Status != entities.ChallengeActive {
		return entities.ImpactChallenge{}, fmt.Errorf("%w: voting can only be closed on an active challenge", domainerrors.ErrInvalidTransition)
	}
	entrepreneurs, err := s.Repo.ListEntrepreneurs(ctx, challenge.ChallengeID, true)
	if err != nil {
		return entities.ImpactChallenge{}, err
	}
	sortByStanding(entrepreneurs)
	ranks := make([]ports.EntrepreneurRank, 0, len(entrepreneurs))
	for i, entrepreneur := range entrepreneurs {
		ranks = append(ranks, ports.EntrepreneurRank{
			EntrepreneurID: entrepreneur.EntrepreneurID,
			Rank:           i + 1,
			IsWinner:       i == 0,
		})
	}
	if err := s.Repo.SetRanking(ctx, challenge.ChallengeID, ranks); err != nil {
		return entities.ImpactChallenge{}, err
	}
	ok, err := s.Repo.TransitionStatus(ctx, challenge.ChallengeID, entities.ChallengeActive, entities.ChallengeVotingClosed)
	if err != nil {
		return entities.ImpactChallenge{}, err
	}
	if !ok {
		return entities.ImpactChallenge{}, domainerrors.ErrInvalidTransition
	}
	winnerID := ""
	if len(ranks) > 0 {
		winnerID = ranks[0].EntrepreneurID
	}
	resolveLogger(s.Logger).Info("challenge voting closed",
		"event", "challenge_voting_closed",
		"module", "lottery-games/challenge-service",
		"challenge_id", challenge.ChallengeID,
		"ranked", len(ranks),
		"winner_entrepreneur_id", winnerID,
	)
	return s.Repo.GetChallenge(ctx, challenge.ChallengeID)
}

// DistributeFunds pays out a closed campaign: 50% to the winner's user
// account, 30% to the lottery pool, 20% plus the rounding remainder to the
// commission account. The three deposits run before the record is written;
// a deposit failure aborts with an ops alert and no state change.
func (s ChallengeService) DistributeFunds(ctx context.Context, challengeID string) (entities.ImpactChallenge, error) {
	challenge, err := s.Repo.GetChallenge(ctx, strings.TrimSpace(challengeID))
	if err != nil {
		return entities.ImpactChallenge{}, err
	}
	if challenge.FundsDistributed {
		return entities.ImpactChallenge{}, domainerrors.ErrFundsAlreadyDistributed
	}
	if challenge.Status != entities.ChallengeVotingClosed {
		return entities.ImpactChallenge{}, fmt.Errorf("%w: funds can only be distributed after voting closes", domainerrors.ErrInvalidTransition)
	}
	if s.LotteryPoolAccountID == "" || s.CommissionAccountID == "" {
		return entities.ImpactChallenge{}, domainerrors.ErrPayoutAccountsMissing
	}
	winner, err := s.winnerOf(ctx, challenge.ChallengeID)
	if err != nil {
		return entities.ImpactChallenge{}, err
	}

	winnerAmount, lotteryAmount, commissionAmount := entities.SplitFunds(challenge.TotalCollected)
	currency := s.currency()
	dist := entities.Distribution{
		WinnerAmount:      winnerAmount,
		LotteryPoolAmount: lotteryAmount,
		CommissionAmount:  commissionAmount,
		DistributedAt:     s.now(),
	}

	deposits := []struct {
		account string
		amount  int64
		stage   string
		txn     *string
	}{
		{winner.UserID, winnerAmount, "winner", &dist.WinnerTransactionID},
		{s.LotteryPoolAccountID, lotteryAmount, "lottery-pool", &dist.LotteryTransactionID},
		{s.CommissionAccountID, commissionAmount, "commission", &dist.CommissionTransactionID},
	}
	for _, deposit := range deposits {
		txnID, err := s.Payments.InternalDeposit(ctx, ports.DepositInput{
			AccountID: deposit.account,
			Amount:    deposit.amount,
			Currency:  currency,
			Reference: fmt.Sprintf("challenge:%s:%s", challenge.ChallengeID, deposit.stage),
		})
		if err != nil {
			err = fmt.Errorf("%s deposit: %w", deposit.stage, err)
			s.reportIntegrity(challenge.ChallengeID, "fund-distribution", err)
			return entities.ImpactChallenge{}, err
		}
		*deposit.txn = txnID
	}

	ok, err := s.Repo.RecordDistribution(ctx, challenge.ChallengeID, dist)
	if err != nil {
		return entities.ImpactChallenge{}, err
	}
	if !ok {
		err := fmt.Errorf("%w: deposits were issued but another distribution was already recorded", domainerrors.ErrFundsAlreadyDistributed)
		s.reportIntegrity(challenge.ChallengeID, "fund-distribution", err)
		return entities.ImpactChallenge{}, err
	}
	resolveLogger(s.Logger).Info("challenge funds distributed",
		"event", "challenge_funds_distributed",
		"module", "lottery-games/challenge-service",
		"challenge_id", challenge.ChallengeID,
		"total", challenge.TotalCollected,
		"winner_amount", winnerAmount,
		"lottery_amount", lotteryAmount,
		"commission_amount", commissionAmount,
	)
	return s.Repo.GetChallenge(ctx, challenge.ChallengeID)
}

// FundSummary reports collected totals plus the actual or projected split.
func (s ChallengeService) FundSummary(ctx context.Context, challengeID string) (FundSummary, error) {
	challenge, err := s.Repo.GetChallenge(ctx, strings.TrimSpace(challengeID))
	if err != nil {
		return FundSummary{}, err
	}
	summary := FundSummary{
		TotalCollected:   challenge.TotalCollected,
		TotalVoteCount:   challenge.TotalVoteCount,
		FundsDistributed: challenge.FundsDistributed,
	}
	if challenge.FundsDistributed {
		dist := challenge.Distribution
		summary.WinnerAmount = dist.WinnerAmount
		summary.LotteryPoolAmount = dist.LotteryPoolAmount
		summary.CommissionAmount = dist.CommissionAmount
		summary.Distribution = &dist
		return summary, nil
	}
	summary.WinnerAmount, summary.LotteryPoolAmount, summary.CommissionAmount = entities.SplitFunds(challenge.TotalCollected)
	return summary, nil
}

func (s ChallengeService) Analytics(ctx context.Context, challengeID string) (Analytics, error) {
	challenge, err := s.Repo.GetChallenge(ctx, strings.TrimSpace(challengeID))
	if err != nil {
		return Analytics{}, err
	}
	stats, err := s.Repo.VoteStats(ctx, challenge.ChallengeID)
	if err != nil {
		return Analytics{}, err
	}
	total, err := s.Repo.CountEntrepreneurs(ctx, challenge.ChallengeID)
	if err != nil {
		return Analytics{}, err
	}
	approved, err := s.Repo.ListEntrepreneurs(ctx, challenge.ChallengeID, true)
	if err != nil {
		return Analytics{}, err
	}
	return Analytics{
		ChallengeID:           challenge.ChallengeID,
		Status:                challenge.Status,
		TotalCollected:        challenge.TotalCollected,
		TotalVoteCount:        challenge.TotalVoteCount,
		CompletedVotes:        stats.CompletedVotes,
		CompletedSupports:     stats.CompletedSupports,
		VoteAmount:            stats.VoteAmount,
		SupportAmount:         stats.SupportAmount,
		TicketsMinted:         stats.TicketsMinted,
		UniqueParticipants:    stats.UniqueParticipants,
		Entrepreneurs:         total,
		ApprovedEntrepreneurs: len(approved),
	}, nil
}

func (s ChallengeService) winnerOf(ctx context.Context, challengeID string) (entities.Entrepreneur, error) {
	entrepreneurs, err := s.Repo.ListEntrepreneurs(ctx, challengeID, true)
	if err != nil {
		return entities.Entrepreneur{}, err
	}
	for _, entrepreneur := range entrepreneurs {
		if entrepreneur.IsWinner && entrepreneur.UserID != "" {
			return entrepreneur, nil
		}
	}
	return entities.Entrepreneur{}, domainerrors.ErrNoWinner
}

func (s ChallengeService) reportIntegrity(challengeID string, stage string, err error) {
	resolveLogger(s.Logger).Error("challenge distribution integrity error",
		"event", "challenge_distribution_integrity_error",
		"module", "lottery-games/challenge-service",
		"challenge_id", challengeID,
		"stage", stage,
		"error", err,
	)
	if s.Ops != nil {
		s.Ops.IntegrityError(challengeID, stage, err)
	}
}

func (s ChallengeService) maxEntrepreneurs() int {
	if s.MaxEntrepreneurs > 0 {
		return s.MaxEntrepreneurs
	}
	return entities.DefaultMaxEntrepreneurs
}

func (s ChallengeService) videoMaxSeconds() int {
	if s.VideoMaxSeconds > 0 {
		return s.VideoMaxSeconds
	}
	return entities.DefaultVideoMaxSeconds
}

func (s ChallengeService) currency() string {
	if s.Currency != "" {
		return s.Currency
	}
	return "XAF"
}

func (s ChallengeService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

// sortByStanding orders by vote count, then collected amount, then roster
// age so ranking is stable across runs.
func sortByStanding(entrepreneurs []entities.Entrepreneur) {
	sort.SliceStable(entrepreneurs, func(i, j int) bool {
		if entrepreneurs[i].VoteCount != entrepreneurs[j].VoteCount {
			return entrepreneurs[i].VoteCount > entrepreneurs[j].VoteCount
		}
		if entrepreneurs[i].TotalAmount != entrepreneurs[j].TotalAmount {
			return entrepreneurs[i].TotalAmount > entrepreneurs[j].TotalAmount
		}
		return entrepreneurs[i].CreatedAt.Before(entrepreneurs[j].CreatedAt)
	})
}

func normalizePage(page int, limit int, fallback int, maximum int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = fallback
	}
	if limit > maximum {
		limit = maximum
	}
	return (page - 1) * limit, limit
}
