package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mboa/contexts/lottery-games/challenge-service/application"
	"mboa/contexts/lottery-games/challenge-service/domain/entities"
	domainerrors "mboa/contexts/lottery-games/challenge-service/domain/errors"
	"mboa/contexts/lottery-games/challenge-service/ports"
	httptransport "mboa/contexts/lottery-games/challenge-service/transport/http"
)

type Handler struct {
	Challenges application.ChallengeService
	Votes      application.VoteService
	Logger     *slog.Logger
}

func (h Handler) CreateChallengeHandler(ctx context.Context, req httptransport.CreateChallengeRequest) (httptransport.ChallengeResponse, error) {
	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		return httptransport.ChallengeResponse{}, err
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return httptransport.ChallengeResponse{}, err
	}
	challenge, err := h.Challenges.CreateChallenge(ctx, ports.CreateChallengeInput{
		Month:         req.Month,
		Year:          req.Year,
		CampaignName:  req.CampaignName,
		StartDate:     startDate,
		EndDate:       endDate,
		DescriptionFR: req.DescriptionFR,
		DescriptionEN: req.DescriptionEN,
	})
	if err != nil {
		return httptransport.ChallengeResponse{}, err
	}
	return httptransport.ChallengeResponse{
		Success: true,
		Message: "Challenge created",
		Data:    toChallengeDTO(challenge),
	}, nil
}

func (h Handler) ListChallengesHandler(ctx context.Context, page int, limit int) (httptransport.ChallengeListResponse, error) {
	challenges, total, err := h.Challenges.List(ctx, page, limit)
	if err != nil {
		return httptransport.ChallengeListResponse{}, err
	}
	resp := httptransport.ChallengeListResponse{Success: true}
	resp.Data = make([]httptransport.ChallengeDTO, 0, len(challenges))
	for _, challenge := range challenges {
		resp.Data = append(resp.Data, toChallengeDTO(challenge))
	}
	resp.Pagination = httptransport.NewPagination(normalizedPage(page), normalizedLimit(limit, 20), total)
	return resp, nil
}

func (h Handler) CurrentChallengeHandler(ctx context.Context) (httptransport.ChallengeResponse, error) {
	challenge, err := h.Challenges.Current(ctx)
	if err != nil {
		return httptransport.ChallengeResponse{}, err
	}
	return httptransport.ChallengeResponse{Success: true, Data: toChallengeDTO(challenge)}, nil
}

func (h Handler) GetChallengeHandler(ctx context.Context, challengeID string) (httptransport.ChallengeResponse, error) {
	challenge, err := h.Challenges.Get(ctx, challengeID)
	if err != nil {
		return httptransport.ChallengeResponse{}, err
	}
	return httptransport.ChallengeResponse{Success: true, Data: toChallengeDTO(challenge)}, nil
}

func (h Handler) UpdateChallengeHandler(ctx context.Context, challengeID string, req httptransport.UpdateChallengeRequest) (httptransport.ChallengeResponse, error) {
	input := ports.UpdateChallengeInput{
		ChallengeID:   challengeID,
		CampaignName:  req.CampaignName,
		DescriptionFR: req.DescriptionFR,
		DescriptionEN: req.DescriptionEN,
	}
	if req.StartDate != nil {
		startDate, err := parseDate(*req.StartDate)
		if err != nil {
			return httptransport.ChallengeResponse{}, err
		}
		input.StartDate = &startDate
	}
	if req.EndDate != nil {
		endDate, err := parseDate(*req.EndDate)
		if err != nil {
			return httptransport.ChallengeResponse{}, err
		}
		input.EndDate = &endDate
	}
	challenge, err := h.Challenges.Update(ctx, input)
	if err != nil {
		return httptransport.ChallengeResponse{}, err
	}
	return httptransport.ChallengeResponse{Success: true, Message: "Challenge updated", Data: toChallengeDTO(challenge)}, nil
}

func (h Handler) SetStatusHandler(ctx context.Context, challengeID string, req httptransport.SetStatusRequest) (httptransport.ChallengeResponse, error) {
	challenge, err := h.Challenges.SetStatus(ctx, challengeID, entities.ChallengeStatus(req.Status))
	if err != nil {
		return httptransport.ChallengeResponse{}, err
	}
	return httptransport.ChallengeResponse{Success: true, Message: "Challenge updated", Data: toChallengeDTO(challenge)}, nil
}

func (h Handler) DeleteChallengeHandler(ctx context.Context, challengeID string) (httptransport.GenericResponse, error) {
	if err := h.Challenges.Delete(ctx, challengeID); err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{Success: true, Message: "Challenge deleted"}, nil
}

func (h Handler) AddEntrepreneurHandler(ctx context.Context, challengeID string, req httptransport.AddEntrepreneurRequest) (httptransport.EntrepreneurResponse, error) {
	entrepreneur, err := h.Challenges.AddEntrepreneur(ctx, ports.CreateEntrepreneurInput{
		ChallengeID:        challengeID,
		UserID:             req.UserID,
		ProjectName:        req.ProjectName,
		ProjectDescription: req.ProjectDescription,
		City:               req.City,
		PhotoURL:           req.PhotoURL,
		VideoURL:           req.VideoURL,
		VideoDuration:      req.VideoDuration,
	})
	if err != nil {
		return httptransport.EntrepreneurResponse{}, err
	}
	return httptransport.EntrepreneurResponse{
		Success: true,
		Message: "Entrepreneur added",
		Data:    toEntrepreneurDTO(entrepreneur),
	}, nil
}

func (h Handler) UpdateEntrepreneurHandler(ctx context.Context, entrepreneurID string, req httptransport.UpdateEntrepreneurRequest) (httptransport.EntrepreneurResponse, error) {
	entrepreneur, err := h.Challenges.UpdateEntrepreneur(ctx, ports.UpdateEntrepreneurInput{
		EntrepreneurID:     entrepreneurID,
		ProjectName:        req.ProjectName,
		ProjectDescription: req.ProjectDescription,
		City:               req.City,
		PhotoURL:           req.PhotoURL,
		VideoURL:           req.VideoURL,
		VideoDuration:      req.VideoDuration,
	})
	if err != nil {
		return httptransport.EntrepreneurResponse{}, err
	}
	return httptransport.EntrepreneurResponse{Success: true, Message: "Entrepreneur updated", Data: toEntrepreneurDTO(entrepreneur)}, nil
}

func (h Handler) ApproveEntrepreneurHandler(ctx context.Context, entrepreneurID string) (httptransport.EntrepreneurResponse, error) {
	entrepreneur, err := h.Challenges.ApproveEntrepreneur(ctx, entrepreneurID)
	if err != nil {
		return httptransport.EntrepreneurResponse{}, err
	}
	return httptransport.EntrepreneurResponse{Success: true, Message: "Entrepreneur approved", Data: toEntrepreneurDTO(entrepreneur)}, nil
}

func (h Handler) DeleteEntrepreneurHandler(ctx context.Context, entrepreneurID string) (httptransport.GenericResponse, error) {
	if err := h.Challenges.DeleteEntrepreneur(ctx, entrepreneurID); err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{Success: true, Message: "Entrepreneur removed"}, nil
}

func (h Handler) EntrepreneursHandler(ctx context.Context, challengeID string, includeUnapproved bool) (httptransport.EntrepreneurListResponse, error) {
	entrepreneurs, err := h.Challenges.Entrepreneurs(ctx, challengeID, includeUnapproved)
	if err != nil {
		return httptransport.EntrepreneurListResponse{}, err
	}
	return entrepreneurListResponse(entrepreneurs), nil
}

func (h Handler) LeaderboardHandler(ctx context.Context, challengeID string) (httptransport.EntrepreneurListResponse, error) {
	entrepreneurs, err := h.Challenges.Leaderboard(ctx, challengeID)
	if err != nil {
		return httptransport.EntrepreneurListResponse{}, err
	}
	return entrepreneurListResponse(entrepreneurs), nil
}

func (h Handler) CloseVotingHandler(ctx context.Context, challengeID string) (httptransport.ChallengeResponse, error) {
	challenge, err := h.Challenges.CloseVoting(ctx, challengeID)
	if err != nil {
		return httptransport.ChallengeResponse{}, err
	}
	return httptransport.ChallengeResponse{Success: true, Message: "Voting closed", Data: toChallengeDTO(challenge)}, nil
}

func (h Handler) DistributeFundsHandler(ctx context.Context, challengeID string) (httptransport.ChallengeResponse, error) {
	challenge, err := h.Challenges.DistributeFunds(ctx, challengeID)
	if err != nil {
		return httptransport.ChallengeResponse{}, err
	}
	return httptransport.ChallengeResponse{Success: true, Message: "Funds distributed", Data: toChallengeDTO(challenge)}, nil
}

func (h Handler) FundSummaryHandler(ctx context.Context, challengeID string) (httptransport.FundSummaryResponse, error) {
	summary, err := h.Challenges.FundSummary(ctx, challengeID)
	if err != nil {
		return httptransport.FundSummaryResponse{}, err
	}
	dto := httptransport.FundSummaryDTO{
		TotalCollected:    summary.TotalCollected,
		TotalVoteCount:    summary.TotalVoteCount,
		FundsDistributed:  summary.FundsDistributed,
		WinnerAmount:      summary.WinnerAmount,
		LotteryPoolAmount: summary.LotteryPoolAmount,
		CommissionAmount:  summary.CommissionAmount,
	}
	if summary.Distribution != nil {
		dist := toDistributionDTO(*summary.Distribution)
		dto.Distribution = &dist
	}
	return httptransport.FundSummaryResponse{Success: true, Data: dto}, nil
}

func (h Handler) AnalyticsHandler(ctx context.Context, challengeID string) (httptransport.AnalyticsResponse, error) {
	analytics, err := h.Challenges.Analytics(ctx, challengeID)
	if err != nil {
		return httptransport.AnalyticsResponse{}, err
	}
	return httptransport.AnalyticsResponse{
		Success: true,
		Data: httptransport.AnalyticsDTO{
			ChallengeID:           analytics.ChallengeID,
			Status:                string(analytics.Status),
			TotalCollected:        analytics.TotalCollected,
			TotalVoteCount:        analytics.TotalVoteCount,
			CompletedVotes:        analytics.CompletedVotes,
			CompletedSupports:     analytics.CompletedSupports,
			VoteAmount:            analytics.VoteAmount,
			SupportAmount:         analytics.SupportAmount,
			TicketsMinted:         analytics.TicketsMinted,
			UniqueParticipants:    analytics.UniqueParticipants,
			Entrepreneurs:         analytics.Entrepreneurs,
			ApprovedEntrepreneurs: analytics.ApprovedEntrepreneurs,
		},
	}, nil
}

func (h Handler) VoteHandler(ctx context.Context, userID string, challengeID string, req httptransport.VoteRequest) (httptransport.VoteSessionResponse, error) {
	session, err := h.Votes.InitiateVote(ctx, userID, challengeID, req.EntrepreneurID, req.Amount)
	if err != nil {
		return httptransport.VoteSessionResponse{}, err
	}
	return voteSessionResponse(session), nil
}

// SupportHandler accepts anonymous contributions; userID is empty when the
// request carries no token.
func (h Handler) SupportHandler(ctx context.Context, userID string, challengeID string, req httptransport.VoteRequest) (httptransport.VoteSessionResponse, error) {
	session, err := h.Votes.InitiateSupport(ctx, userID, challengeID, req.EntrepreneurID, req.Amount)
	if err != nil {
		return httptransport.VoteSessionResponse{}, err
	}
	return voteSessionResponse(session), nil
}

func (h Handler) TicketAllowanceHandler(ctx context.Context, userID string, challengeID string) (httptransport.AllowanceResponse, error) {
	allowance, err := h.Votes.TicketAllowance(ctx, userID, challengeID)
	if err != nil {
		return httptransport.AllowanceResponse{}, err
	}
	return httptransport.AllowanceResponse{
		Success: true,
		Data: httptransport.AllowanceDTO{
			MonthID:    allowance.MonthID,
			MaxTickets: allowance.MaxTickets,
			Used:       allowance.Used,
			Available:  allowance.Available,
			VotePrice:  allowance.VotePrice,
		},
	}, nil
}

// PaymentWebhookHandler is the service-authenticated confirmation path for
// challenge votes and supports.
func (h Handler) PaymentWebhookHandler(ctx context.Context, req httptransport.PaymentWebhookRequest) (httptransport.GenericResponse, error) {
	vote, processed, err := h.Votes.ConfirmPayment(ctx, ports.ConfirmPaymentInput{
		SessionID: req.SessionID,
		Status:    req.Status,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return httptransport.GenericResponse{}, err
	}
	if vote.VoteID == "" {
		return httptransport.GenericResponse{Success: true, Message: "Ignored"}, nil
	}
	message := "Already processed"
	if processed {
		message = "Vote confirmed"
	}
	return httptransport.GenericResponse{
		Success: true,
		Message: message,
		Data:    toVoteDTO(vote),
	}, nil
}

func (h Handler) VotesHandler(ctx context.Context, challengeID string, page int, limit int) (httptransport.VoteListResponse, error) {
	votes, total, err := h.Votes.Votes(ctx, challengeID, page, limit)
	if err != nil {
		return httptransport.VoteListResponse{}, err
	}
	resp := httptransport.VoteListResponse{Success: true}
	resp.Data = make([]httptransport.VoteDTO, 0, len(votes))
	for _, vote := range votes {
		resp.Data = append(resp.Data, toVoteDTO(vote))
	}
	resp.Pagination = httptransport.NewPagination(normalizedPage(page), normalizedLimit(limit, 50), total)
	return resp, nil
}

func entrepreneurListResponse(entrepreneurs []entities.Entrepreneur) httptransport.EntrepreneurListResponse {
	resp := httptransport.EntrepreneurListResponse{Success: true}
	resp.Data = make([]httptransport.EntrepreneurDTO, 0, len(entrepreneurs))
	for _, entrepreneur := range entrepreneurs {
		resp.Data = append(resp.Data, toEntrepreneurDTO(entrepreneur))
	}
	return resp
}

func voteSessionResponse(session ports.VoteSession) httptransport.VoteSessionResponse {
	return httptransport.VoteSessionResponse{
		Success: true,
		Message: "Checkout session created",
		Data: httptransport.VoteSessionDTO{
			VoteID:         session.VoteID,
			SessionID:      session.SessionID,
			CheckoutURL:    session.CheckoutURL,
			VoteQuantity:   session.VoteQuantity,
			TicketQuantity: session.TicketQuantity,
			Amount:         session.Amount,
			Currency:       session.Currency,
		},
	}
}

func toChallengeDTO(challenge entities.ImpactChallenge) httptransport.ChallengeDTO {
	dto := httptransport.ChallengeDTO{
		ChallengeID:      challenge.ChallengeID,
		Month:            challenge.Month,
		Year:             challenge.Year,
		CampaignName:     challenge.CampaignName,
		Status:           string(challenge.Status),
		StartDate:        challenge.StartDate.UTC().Format(time.RFC3339),
		EndDate:          challenge.EndDate.UTC().Format(time.RFC3339),
		DescriptionFR:    challenge.DescriptionFR,
		DescriptionEN:    challenge.DescriptionEN,
		TombolaMonthID:   challenge.TombolaMonthID,
		TotalCollected:   challenge.TotalCollected,
		TotalVoteCount:   challenge.TotalVoteCount,
		FundsDistributed: challenge.FundsDistributed,
		CreatedAt:        challenge.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        challenge.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if challenge.FundsDistributed {
		dist := toDistributionDTO(challenge.Distribution)
		dto.Distribution = &dist
	}
	return dto
}

func toDistributionDTO(dist entities.Distribution) httptransport.DistributionDTO {
	dto := httptransport.DistributionDTO{
		WinnerAmount:            dist.WinnerAmount,
		LotteryPoolAmount:       dist.LotteryPoolAmount,
		CommissionAmount:        dist.CommissionAmount,
		WinnerTransactionID:     dist.WinnerTransactionID,
		LotteryTransactionID:    dist.LotteryTransactionID,
		CommissionTransactionID: dist.CommissionTransactionID,
	}
	if !dist.DistributedAt.IsZero() {
		dto.DistributedAt = dist.DistributedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toEntrepreneurDTO(entrepreneur entities.Entrepreneur) httptransport.EntrepreneurDTO {
	return httptransport.EntrepreneurDTO{
		EntrepreneurID:     entrepreneur.EntrepreneurID,
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
		CreatedAt:          entrepreneur.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toVoteDTO(vote entities.ChallengeVote) httptransport.VoteDTO {
	return httptransport.VoteDTO{
		VoteID:                vote.VoteID,
		ChallengeID:           vote.ChallengeID,
		EntrepreneurID:        vote.EntrepreneurID,
		UserID:                vote.UserID,
		AmountPaid:            vote.AmountPaid,
		VoteQuantity:          vote.VoteQuantity,
		VoteType:              string(vote.VoteType),
		PaymentStatus:         string(vote.PaymentStatus),
		TombolaTicketIDs:      vote.TombolaTicketIDs,
		TicketsGenerated:      vote.TicketsGenerated,
		TicketGenerationError: vote.TicketGenerationError,
		CreatedAt:             vote.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func parseDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", domainerrors.ErrInvalidRequest, raw)
	}
	return parsed.UTC(), nil
}

// parseOptionalDate maps an absent date to the zero time so the use case can
// apply its period defaults.
func parseOptionalDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return parseDate(raw)
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
