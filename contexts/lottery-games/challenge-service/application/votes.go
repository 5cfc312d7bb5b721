package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"mboa/contexts/lottery-games/challenge-service/domain/entities"
	domainerrors "mboa/contexts/lottery-games/challenge-service/domain/errors"
	"mboa/contexts/lottery-games/challenge-service/ports"
)

// PaymentTypeChallengeVote tags checkout sessions opened for challenge
// votes and supports.
const PaymentTypeChallengeVote = "CHALLENGE_VOTE"

const (
	defaultVotePrice    = 200
	defaultCurrency     = "XAF"
	defaultCallbackPath = "/api/v1/challenges/webhooks/payment-confirmation"
)

// VoteService owns vote/support initiation and the webhook-driven payment
// confirmation, including ticket minting through the tombola gateway.
type VoteService struct {
	Repo     ports.Repository
	Tombola  ports.TombolaGateway
	Payments ports.PaymentsClient
	Ops      ports.OpsAlerter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger

	VotePrice    int64
	Currency     string
	CallbackPath string
}

// InitiateVote opens a checkout session for a paid vote. The amount must be
// a multiple of the vote price and the voter must still have ticket
// allowance for the linked tombola month.
func (s VoteService) InitiateVote(ctx context.Context, userID string, challengeID string, entrepreneurID string, amount int64) (ports.VoteSession, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ports.VoteSession{}, fmt.Errorf("%w: userId is required to vote", domainerrors.ErrInvalidRequest)
	}
	return s.initiate(ctx, userID, challengeID, entrepreneurID, amount, entities.VoteTypeVote)
}

// InitiateSupport opens a checkout session for a support contribution:
// same money flow as a vote, no ticket allowance check and no tickets
// minted. Supports may be anonymous.
func (s VoteService) InitiateSupport(ctx context.Context, userID string, challengeID string, entrepreneurID string, amount int64) (ports.VoteSession, error) {
	return s.initiate(ctx, strings.TrimSpace(userID), challengeID, entrepreneurID, amount, entities.VoteTypeSupport)
}

func (s VoteService) initiate(ctx context.Context, userID string, challengeID string, entrepreneurID string, amount int64, voteType entities.VoteType) (ports.VoteSession, error) {
	votePrice := s.votePrice()
	if amount < votePrice || amount%votePrice != 0 {
		return ports.VoteSession{}, domainerrors.ErrVoteAmountInvalid
	}
	voteQuantity := int(amount / votePrice)

	challenge, err := s.Repo.GetChallenge(ctx, strings.TrimSpace(challengeID))
	if err != nil {
		return ports.VoteSession{}, err
	}
	if challenge.Status != entities.ChallengeActive {
		return ports.VoteSession{}, domainerrors.ErrChallengeNotActive
	}
	entrepreneur, err := s.Repo.GetEntrepreneur(ctx, strings.TrimSpace(entrepreneurID))
	if err != nil {
		return ports.VoteSession{}, err
	}
	if entrepreneur.ChallengeID != challenge.ChallengeID {
		return ports.VoteSession{}, domainerrors.ErrEntrepreneurMismatch
	}
	if !entrepreneur.Approved {
		return ports.VoteSession{}, domainerrors.ErrEntrepreneurNotApproved
	}

	ticketsToGenerate := 0
	if voteType == entities.VoteTypeVote {
		existing, err := s.Tombola.UserTicketCount(ctx, challenge.TombolaMonthID, userID)
		if err != nil {
			return ports.VoteSession{}, fmt.Errorf("tombola allowance lookup: %w", err)
		}
		available := s.Tombola.MaxTickets() - existing
		if available <= 0 {
			return ports.VoteSession{}, domainerrors.ErrTicketAllowanceExhausted
		}
		if voteQuantity > available {
			return ports.VoteSession{}, fmt.Errorf("%w: only %d tickets left this month", domainerrors.ErrTicketAllowanceExhausted, available)
		}
		ticketsToGenerate = voteQuantity
	}

	voteID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return ports.VoteSession{}, fmt.Errorf("generate vote id: %w", err)
	}
	now := s.now()
	vote := entities.ChallengeVote{
		VoteID:         voteID,
		ChallengeID:    challenge.ChallengeID,
		EntrepreneurID: entrepreneur.EntrepreneurID,
		UserID:         userID,
		AmountPaid:     amount,
		VoteQuantity:   voteQuantity,
		VoteType:       voteType,
		PaymentStatus:  entities.PaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.CreateVote(ctx, vote); err != nil {
		return ports.VoteSession{}, err
	}

	intent, err := s.Payments.CreateIntent(ctx, ports.PaymentIntentInput{
		UserID:      userID,
		Amount:      amount,
		Currency:    s.currencyCode(),
		PaymentType: PaymentTypeChallengeVote,
		Metadata: map[string]string{
			"challengeId":        challenge.ChallengeID,
			"entrepreneurId":     entrepreneur.EntrepreneurID,
			"userId":             userID,
			"voteId":             vote.VoteID,
			"voteType":           string(voteType),
			"voteQuantity":       strconv.Itoa(voteQuantity),
			"ticketsToGenerate":  strconv.Itoa(ticketsToGenerate),
			"originatingService": "mboa",
			"callbackPath":       s.callbackPath(),
		},
	})
	if err != nil {
		return ports.VoteSession{}, fmt.Errorf("payments create intent: %w", err)
	}
	if err := s.Repo.SetVoteSession(ctx, vote.VoteID, intent.SessionID); err != nil {
		return ports.VoteSession{}, err
	}

	resolveLogger(s.Logger).Info("challenge checkout opened",
		"event", "challenge_checkout_opened",
		"module", "lottery-games/challenge-service",
		"challenge_id", challenge.ChallengeID,
		"entrepreneur_id", entrepreneur.EntrepreneurID,
		"vote_id", vote.VoteID,
		"vote_type", string(voteType),
		"vote_quantity", voteQuantity,
	)
	return ports.VoteSession{
		VoteID:         vote.VoteID,
		SessionID:      intent.SessionID,
		CheckoutURL:    intent.CheckoutURL,
		VoteQuantity:   voteQuantity,
		TicketQuantity: ticketsToGenerate,
		Amount:         amount,
		Currency:       s.currencyCode(),
	}, nil
}

// ConfirmPayment is the sole post-payment write path and is safe under
// webhook retries: the pending→completed transition admits one writer,
// counters increment exactly once and ticket minting is guarded by
// (paymentIntentId, userTicketIndex). A minting failure is recorded on the
// vote and alerted, never reverted. The bool reports whether this call did
// the processing.
func (s VoteService) ConfirmPayment(ctx context.Context, input ports.ConfirmPaymentInput) (entities.ChallengeVote, bool, error) {
	if !strings.EqualFold(input.Status, "SUCCEEDED") {
		resolveLogger(s.Logger).Info("challenge webhook ignored",
			"event", "challenge_webhook_ignored",
			"module", "lottery-games/challenge-service",
			"session_id", input.SessionID,
			"status", input.Status,
		)
		return entities.ChallengeVote{}, false, nil
	}
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return entities.ChallengeVote{}, false, fmt.Errorf("%w: sessionId is required", domainerrors.ErrInvalidRequest)
	}

	vote, ok, err := s.Repo.FindVoteByPaymentIntent(ctx, sessionID)
	if err != nil {
		return entities.ChallengeVote{}, false, err
	}
	if !ok {
		return entities.ChallengeVote{}, false, domainerrors.ErrVoteNotFound
	}
	if vote.PaymentStatus == entities.PaymentCompleted {
		return vote, false, nil
	}

	transitioned, err := s.Repo.CompleteVote(ctx, vote.VoteID)
	if err != nil {
		return entities.ChallengeVote{}, false, err
	}
	if !transitioned {
		// Lost the race against a concurrent delivery.
		replay, err := s.Repo.GetVote(ctx, vote.VoteID)
		if err != nil {
			return entities.ChallengeVote{}, false, err
		}
		return replay, false, nil
	}
	vote.PaymentStatus = entities.PaymentCompleted

	if err := s.Repo.ApplyEntrepreneurVote(ctx, vote.EntrepreneurID, vote.VoteQuantity, vote.AmountPaid); err != nil {
		s.reportIntegrity(sessionID, vote.VoteID, fmt.Errorf("entrepreneur counters: %w", err))
		return entities.ChallengeVote{}, false, err
	}
	if err := s.Repo.ApplyChallengeTotals(ctx, vote.ChallengeID, vote.AmountPaid, vote.VoteQuantity); err != nil {
		s.reportIntegrity(sessionID, vote.VoteID, fmt.Errorf("challenge counters: %w", err))
		return entities.ChallengeVote{}, false, err
	}

	if vote.VoteType == entities.VoteTypeVote && vote.UserID != "" {
		vote = s.mintTickets(ctx, vote, sessionID)
	}

	resolveLogger(s.Logger).Info("challenge payment confirmed",
		"event", "challenge_payment_confirmed",
		"module", "lottery-games/challenge-service",
		"challenge_id", vote.ChallengeID,
		"vote_id", vote.VoteID,
		"vote_type", string(vote.VoteType),
		"vote_quantity", vote.VoteQuantity,
		"tickets_minted", len(vote.TombolaTicketIDs),
	)
	return vote, true, nil
}

// mintTickets mints up to the remaining allowance for the voter. Counters
// are already committed; any failure here is recorded on the vote and
// alerted for manual reconciliation.
func (s VoteService) mintTickets(ctx context.Context, vote entities.ChallengeVote, sessionID string) entities.ChallengeVote {
	minted := make([]string, 0, vote.VoteQuantity)
	var mintErr error

	challenge, err := s.Repo.GetChallenge(ctx, vote.ChallengeID)
	if err != nil {
		mintErr = fmt.Errorf("load challenge: %w", err)
	}
	var toGenerate, existing int
	if mintErr == nil {
		existing, err = s.Tombola.UserTicketCount(ctx, challenge.TombolaMonthID, vote.UserID)
		if err != nil {
			mintErr = fmt.Errorf("tombola allowance lookup: %w", err)
		}
	}
	if mintErr == nil {
		toGenerate = min(vote.VoteQuantity, s.Tombola.MaxTickets()-existing)
		for i := 1; i <= toGenerate; i++ {
			ref, err := s.Tombola.MintTicket(ctx, ports.VoteTicketInput{
				MonthID:         challenge.TombolaMonthID,
				UserID:          vote.UserID,
				PaymentIntentID: sessionID,
				ChallengeVoteID: vote.VoteID,
				UserTicketIndex: existing + i,
			})
			if err != nil {
				mintErr = fmt.Errorf("mint ticket %d of %d: %w", i, toGenerate, err)
				break
			}
			minted = append(minted, ref.TicketID)
		}
	}

	if mintErr != nil {
		s.reportIntegrity(sessionID, vote.VoteID, mintErr)
		if err := s.Repo.RecordTicketGeneration(ctx, vote.VoteID, minted, false, mintErr.Error()); err != nil {
			resolveLogger(s.Logger).Error("record ticket generation failed",
				"event", "challenge_vote_update_failed",
				"module", "lottery-games/challenge-service",
				"vote_id", vote.VoteID,
				"error", err,
			)
		}
		vote.TombolaTicketIDs = minted
		vote.TicketGenerationError = mintErr.Error()
		return vote
	}

	if err := s.Repo.RecordTicketGeneration(ctx, vote.VoteID, minted, true, ""); err != nil {
		resolveLogger(s.Logger).Error("record ticket generation failed",
			"event", "challenge_vote_update_failed",
			"module", "lottery-games/challenge-service",
			"vote_id", vote.VoteID,
			"error", err,
		)
	}
	vote.TombolaTicketIDs = minted
	vote.TicketsGenerated = true
	return vote
}

// TicketAllowance reports how many tickets a user can still earn in the
// month a challenge is linked to.
func (s VoteService) TicketAllowance(ctx context.Context, userID string, challengeID string) (ports.TicketAllowance, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ports.TicketAllowance{}, fmt.Errorf("%w: userId is required", domainerrors.ErrInvalidRequest)
	}
	challenge, err := s.Repo.GetChallenge(ctx, strings.TrimSpace(challengeID))
	if err != nil {
		return ports.TicketAllowance{}, err
	}
	existing, err := s.Tombola.UserTicketCount(ctx, challenge.TombolaMonthID, userID)
	if err != nil {
		return ports.TicketAllowance{}, fmt.Errorf("tombola allowance lookup: %w", err)
	}
	maxTickets := s.Tombola.MaxTickets()
	available := maxTickets - existing
	if available < 0 {
		available = 0
	}
	return ports.TicketAllowance{
		MonthID:    challenge.TombolaMonthID,
		MaxTickets: maxTickets,
		Used:       existing,
		Available:  available,
		VotePrice:  s.votePrice(),
	}, nil
}

// Votes lists a challenge's votes newest first for the admin surface.
func (s VoteService) Votes(ctx context.Context, challengeID string, page int, limit int) ([]entities.ChallengeVote, int, error) {
	challenge, err := s.Repo.GetChallenge(ctx, strings.TrimSpace(challengeID))
	if err != nil {
		return nil, 0, err
	}
	offset, limit := normalizePage(page, limit, 50, 200)
	return s.Repo.ListVotes(ctx, challenge.ChallengeID, offset, limit)
}

func (s VoteService) reportIntegrity(sessionID string, voteID string, err error) {
	resolveLogger(s.Logger).Error("challenge ticket integrity error",
		"event", "challenge_ticket_integrity_error",
		"module", "lottery-games/challenge-service",
		"session_id", sessionID,
		"vote_id", voteID,
		"error", err,
	)
	if s.Ops != nil {
		s.Ops.IntegrityError(sessionID, voteID, err)
	}
}

func (s VoteService) votePrice() int64 {
	if s.VotePrice > 0 {
		return s.VotePrice
	}
	return defaultVotePrice
}

func (s VoteService) currencyCode() string {
	if s.Currency != "" {
		return s.Currency
	}
	return defaultCurrency
}

func (s VoteService) callbackPath() string {
	if s.CallbackPath != "" {
		return s.CallbackPath
	}
	return defaultCallbackPath
}

func (s VoteService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
