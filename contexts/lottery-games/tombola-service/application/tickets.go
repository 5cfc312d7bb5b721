package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mboa/contexts/lottery-games/tombola-service/domain/entities"
	domainerrors "mboa/contexts/lottery-games/tombola-service/domain/errors"
	"mboa/contexts/lottery-games/tombola-service/ports"
)

// PaymentTypeTombolaTicket tags direct-purchase checkout sessions at the
// Payments service.
const PaymentTypeTombolaTicket = "TOMBOLA_TICKET"

const (
	defaultTicketPrice  = 200
	defaultCurrency     = "XAF"
	defaultCallbackPath = "/api/v1/tombolas/webhooks/payment-confirmation"
)

// TicketService sells and mints tombola tickets. Tickets exist only after a
// confirmed payment; BuyTicket merely opens a checkout session carrying a
// provisional ticket token.
type TicketService struct {
	Repo     ports.Repository
	Payments ports.PaymentsClient
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Ops      ports.OpsAlerter
	Logger   *slog.Logger

	TicketPrice       int64
	MaxTicketsPerUser int
	Currency          string
	CallbackPath      string
}

// BuyTicket checks the monthly cap and opens a payment intent whose metadata
// carries the provisional ticket token. Nothing is persisted here.
func (s TicketService) BuyTicket(ctx context.Context, userID string) (ports.PurchaseSession, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ports.PurchaseSession{}, domainerrors.ErrInvalidRequest
	}
	month, ok, err := s.Repo.CurrentMonth(ctx)
	if err != nil {
		return ports.PurchaseSession{}, err
	}
	if !ok {
		return ports.PurchaseSession{}, domainerrors.ErrNoOpenMonth
	}
	existing, err := s.Repo.CountUserTickets(ctx, month.MonthID, userID)
	if err != nil {
		return ports.PurchaseSession{}, err
	}
	if existing >= s.maxTicketsPerUser() {
		return ports.PurchaseSession{}, domainerrors.ErrTicketCapReached
	}

	token, err := s.newTicketToken(ctx)
	if err != nil {
		return ports.PurchaseSession{}, err
	}
	intent, err := s.Payments.CreateIntent(ctx, ports.PaymentIntentInput{
		UserID:      userID,
		Amount:      s.ticketPrice(),
		Currency:    s.currency(),
		PaymentType: PaymentTypeTombolaTicket,
		Metadata: map[string]string{
			"ticketId":           token,
			"monthId":            month.MonthID,
			"userId":             userID,
			"originatingService": "mboa",
			"callbackPath":       s.callbackPath(),
		},
	})
	if err != nil {
		return ports.PurchaseSession{}, fmt.Errorf("create ticket payment intent: %w", err)
	}
	resolveLogger(s.Logger).Info("ticket checkout opened",
		"event", "tombola_ticket_checkout_opened",
		"module", "lottery-games/tombola-service",
		"month_id", month.MonthID,
		"user_id", userID,
		"session_id", intent.SessionID,
	)
	return ports.PurchaseSession{
		TicketID:    token,
		SessionID:   intent.SessionID,
		CheckoutURL: intent.CheckoutURL,
		Amount:      s.ticketPrice(),
		Currency:    s.currency(),
	}, nil
}

// ConfirmPurchase is the webhook write path for direct purchases. Idempotent
// on the provisional ticket token: replays return the already minted ticket.
// The bool reports whether this call minted the ticket.
func (s TicketService) ConfirmPurchase(ctx context.Context, input ports.ConfirmPurchaseInput) (entities.Ticket, bool, error) {
	if !strings.EqualFold(strings.TrimSpace(input.Status), "SUCCEEDED") {
		resolveLogger(s.Logger).Info("ignoring non-success payment status",
			"event", "tombola_webhook_ignored",
			"module", "lottery-games/tombola-service",
			"session_id", input.SessionID,
			"status", input.Status,
		)
		return entities.Ticket{}, false, nil
	}
	token := strings.TrimSpace(input.Metadata["ticketId"])
	monthID := strings.TrimSpace(input.Metadata["monthId"])
	userID := strings.TrimSpace(input.Metadata["userId"])
	if token == "" || monthID == "" || userID == "" {
		return entities.Ticket{}, false, fmt.Errorf("%w: webhook metadata requires ticketId, monthId and userId", domainerrors.ErrInvalidRequest)
	}

	if ticket, ok, err := s.Repo.GetTicketByToken(ctx, token); err != nil {
		return entities.Ticket{}, false, err
	} else if ok {
		return ticket, false, nil
	}

	month, err := s.Repo.GetMonth(ctx, monthID)
	if err != nil {
		return entities.Ticket{}, false, err
	}
	existing, err := s.Repo.CountUserTickets(ctx, month.MonthID, userID)
	if err != nil {
		return entities.Ticket{}, false, err
	}
	if existing >= s.maxTicketsPerUser() {
		// Payment succeeded but the cap blocks the mint; reconciliation is
		// manual from here.
		s.reportIntegrity(input.SessionID, token, domainerrors.ErrTicketCapReached)
		return entities.Ticket{}, false, domainerrors.ErrTicketCapReached
	}

	ticket, err := s.mint(ctx, ports.MintTicketInput{
		MonthID:         month.MonthID,
		UserID:          userID,
		PaymentIntentID: input.SessionID,
		UserTicketIndex: existing + 1,
		SourceType:      entities.SourceDirectPurchase,
		TicketID:        token,
	})
	if err != nil {
		return entities.Ticket{}, false, err
	}
	return ticket, true, nil
}

// MintVoteTicket mints one challenge-vote ticket. Idempotent on
// (paymentIntentId, userTicketIndex).
func (s TicketService) MintVoteTicket(ctx context.Context, input ports.MintTicketInput) (entities.Ticket, error) {
	if input.MonthID == "" || input.UserID == "" || input.PaymentIntentID == "" ||
		input.ChallengeVoteID == "" || input.UserTicketIndex <= 0 {
		return entities.Ticket{}, domainerrors.ErrInvalidRequest
	}
	if ticket, ok, err := s.Repo.FindMintedTicket(ctx, input.PaymentIntentID, input.UserTicketIndex); err != nil {
		return entities.Ticket{}, err
	} else if ok {
		return ticket, nil
	}
	input.SourceType = entities.SourceChallengeVote
	return s.mint(ctx, input)
}

func (s TicketService) mint(ctx context.Context, input ports.MintTicketInput) (entities.Ticket, error) {
	weight := entities.WeightForIndex(input.UserTicketIndex)
	if weight == 0 {
		return entities.Ticket{}, domainerrors.ErrTicketCapReached
	}
	token := input.TicketID
	if token == "" {
		generated, err := s.newTicketToken(ctx)
		if err != nil {
			return entities.Ticket{}, err
		}
		token = generated
	}
	number, err := s.Repo.NextTicketNumber(ctx, input.MonthID)
	if err != nil {
		return entities.Ticket{}, err
	}
	ticket := entities.Ticket{
		TicketID:        token,
		UserID:          input.UserID,
		MonthID:         input.MonthID,
		TicketNumber:    number,
		Weight:          weight,
		UserTicketIndex: input.UserTicketIndex,
		SourceType:      input.SourceType,
		PaymentIntentID: input.PaymentIntentID,
		ChallengeVoteID: input.ChallengeVoteID,
		CreatedAt:       s.now(),
	}
	if err := s.Repo.CreateTicket(ctx, ticket); err != nil {
		if errors.Is(err, domainerrors.ErrConflict) {
			// A concurrent webhook replay won the insert.
			if existing, ok, findErr := s.Repo.GetTicketByToken(ctx, token); findErr == nil && ok {
				return existing, nil
			}
			if existing, ok, findErr := s.Repo.FindMintedTicket(ctx, input.PaymentIntentID, input.UserTicketIndex); findErr == nil && ok {
				return existing, nil
			}
		}
		return entities.Ticket{}, err
	}
	resolveLogger(s.Logger).Info("ticket minted",
		"event", "tombola_ticket_minted",
		"module", "lottery-games/tombola-service",
		"month_id", input.MonthID,
		"user_id", input.UserID,
		"ticket_number", number,
		"source", string(ticket.SourceType),
	)
	return ticket, nil
}

func (s TicketService) MyTickets(ctx context.Context, userID string, page int, limit int) ([]entities.Ticket, int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, 0, domainerrors.ErrInvalidRequest
	}
	offset, limit := normalizePage(page, limit, 50, 200)
	return s.Repo.ListUserTickets(ctx, userID, offset, limit)
}

func (s TicketService) TicketsOfMonth(ctx context.Context, monthID string, page int, limit int) ([]entities.Ticket, int, error) {
	offset, limit := normalizePage(page, limit, 50, 500)
	return s.Repo.ListMonthTickets(ctx, strings.TrimSpace(monthID), offset, limit)
}

func (s TicketService) TicketNumbers(ctx context.Context, monthID string) ([]int, error) {
	return s.Repo.TicketNumbers(ctx, strings.TrimSpace(monthID))
}

// UserTicketCount serves ticket-allowance queries for the challenge side.
func (s TicketService) UserTicketCount(ctx context.Context, monthID string, userID string) (int, error) {
	return s.Repo.CountUserTickets(ctx, strings.TrimSpace(monthID), strings.TrimSpace(userID))
}

// MaxTickets exposes the configured per-(user,month) cap.
func (s TicketService) MaxTickets() int { return s.maxTicketsPerUser() }

func (s TicketService) reportIntegrity(sessionID string, refID string, err error) {
	resolveLogger(s.Logger).Error("payment confirmed but ticket mint failed",
		"event", "tombola_ticket_integrity_error",
		"module", "lottery-games/tombola-service",
		"session_id", sessionID,
		"ticket_id", refID,
		"error", err,
	)
	if s.Ops != nil {
		s.Ops.IntegrityError(sessionID, refID, err)
	}
}

func (s TicketService) newTicketToken(ctx context.Context) (string, error) {
	id, err := s.IDGen.NewID(ctx)
	if err != nil {
		return "", fmt.Errorf("generate ticket token: %w", err)
	}
	token := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(token) > 12 {
		token = token[:12]
	}
	return token, nil
}

func (s TicketService) ticketPrice() int64 {
	if s.TicketPrice > 0 {
		return s.TicketPrice
	}
	return defaultTicketPrice
}

func (s TicketService) maxTicketsPerUser() int {
	if s.MaxTicketsPerUser > 0 {
		return s.MaxTicketsPerUser
	}
	return entities.DefaultMaxTicketsPerUser
}

func (s TicketService) currency() string {
	if s.Currency != "" {
		return s.Currency
	}
	return defaultCurrency
}

func (s TicketService) callbackPath() string {
	if s.CallbackPath != "" {
		return s.CallbackPath
	}
	return defaultCallbackPath
}

func (s TicketService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
