package application

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"mboa/contexts/lottery-games/tombola-service/domain/entities"
	domainerrors "mboa/contexts/lottery-games/tombola-service/domain/errors"
	"mboa/contexts/lottery-games/tombola-service/ports"
)

// DrawWinners runs the weighted draw for a month and closes it. Up to three
// ranks go to distinct users; users who won the previous month are excluded.
// The draw is admin-initiated and final: a month with winners cannot be
// drawn again.
func (s MonthService) DrawWinners(ctx context.Context, monthID string) (entities.TombolaMonth, error) {
	month, err := s.Repo.GetMonth(ctx, monthID)
	if err != nil {
		return entities.TombolaMonth{}, err
	}
	if month.Status != entities.MonthOpen && month.Status != entities.MonthDrawing {
		return entities.TombolaMonth{}, domainerrors.ErrDrawNotAllowed
	}
	if month.Drawn() {
		return entities.TombolaMonth{}, domainerrors.ErrAlreadyDrawn
	}

	tickets, err := s.Repo.AllMonthTickets(ctx, month.MonthID)
	if err != nil {
		return entities.TombolaMonth{}, err
	}

	excluded := make(map[string]bool, len(month.PreviousMonthWinners))
	for _, userID := range month.PreviousMonthWinners {
		excluded[userID] = true
	}
	eligible := make([]entities.Ticket, 0, len(tickets))
	distinct := map[string]bool{}
	for _, ticket := range tickets {
		if excluded[ticket.UserID] {
			continue
		}
		eligible = append(eligible, ticket)
		distinct[ticket.UserID] = true
	}

	winners := make([]entities.Winner, 0, 3)
	ranks := len(distinct)
	if ranks > 3 {
		ranks = 3
	}
	selected := map[string]bool{}
	pool := eligible
	for rank := 1; rank <= ranks; rank++ {
		ticket, ok := s.pickWeighted(pool)
		if !ok {
			break
		}
		winners = append(winners, entities.Winner{
			UserID:              ticket.UserID,
			Prize:               entities.PrizeForRank(rank),
			Rank:                rank,
			WinningTicketNumber: ticket.TicketNumber,
		})
		selected[ticket.UserID] = true
		remaining := pool[:0:0]
		for _, candidate := range pool {
			if !selected[candidate.UserID] {
				remaining = append(remaining, candidate)
			}
		}
		pool = remaining
	}

	drawDate := s.now()
	if err := s.Repo.SetWinners(ctx, month.MonthID, winners, drawDate); err != nil {
		return entities.TombolaMonth{}, err
	}
	month.Winners = winners
	month.Status = entities.MonthClosed
	month.DrawDate = drawDate
	month.UpdatedAt = drawDate

	resolveLogger(s.Logger).Info("tombola draw completed",
		"event", "tombola_draw_completed",
		"module", "lottery-games/tombola-service",
		"month_id", month.MonthID,
		"period", fmt.Sprintf("%04d-%02d", month.Year, month.Month),
		"tickets", len(tickets),
		"eligible", len(eligible),
		"winners", len(winners),
	)
	if s.Ops != nil {
		s.Ops.DrawReport(month.Month, month.Year, len(winners))
	}
	s.notifyWinners(month)
	return month, nil
}

// pickWeighted selects one ticket with probability proportional to its
// weight, by a linear walk over the pool. Rounding fallthrough picks the
// last ticket.
func (s MonthService) pickWeighted(pool []entities.Ticket) (entities.Ticket, bool) {
	if len(pool) == 0 {
		return entities.Ticket{}, false
	}
	total := 0.0
	for _, ticket := range pool {
		total += ticket.DrawWeight()
	}
	target := s.uniform(total)
	acc := 0.0
	for _, ticket := range pool {
		acc += ticket.DrawWeight()
		if target < acc {
			return ticket, true
		}
	}
	return pool[len(pool)-1], true
}

func (s MonthService) uniform(total float64) float64 {
	if s.Uniform != nil {
		return s.Uniform(total)
	}
	return rand.Float64() * total
}

// notifyWinners is fire-and-forget: failures are logged and never block or
// fail the draw.
func (s MonthService) notifyWinners(month entities.TombolaMonth) {
	if s.Notifier == nil {
		return
	}
	logger := resolveLogger(s.Logger)
	for _, winner := range month.Winners {
		go func(winner entities.Winner) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := s.Notifier.Send(ctx, winner.UserID, ports.Notification{
				Type:  "tombola_win",
				Title: "Tirage Tombola",
				Body:  "Félicitations ! Vous avez gagné : " + winner.Prize,
				Data: map[string]string{
					"monthId": month.MonthID,
					"rank":    fmt.Sprintf("%d", winner.Rank),
					"prize":   winner.Prize,
				},
			})
			if err != nil {
				logger.Warn("winner notification failed",
					"event", "tombola_winner_notify_failed",
					"module", "lottery-games/tombola-service",
					"month_id", month.MonthID,
					"user_id", winner.UserID,
					"error", err,
				)
			}
		}(winner)
	}
}
