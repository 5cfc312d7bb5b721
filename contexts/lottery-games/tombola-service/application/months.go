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

// MonthService owns the tombola month lifecycle and the winner draw.
type MonthService struct {
	Repo     ports.Repository
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Notifier ports.NotifierClient
	Ops      ports.OpsAlerter
	Logger   *slog.Logger

	// Uniform draws from [0, total); overridable for deterministic tests.
	Uniform func(total float64) float64
}

// CreateMonth opens a new tombola month. Future periods and duplicates are
// rejected; any previously open month is closed.
func (s MonthService) CreateMonth(ctx context.Context, input ports.CreateMonthInput) (entities.TombolaMonth, error) {
	return s.createMonth(ctx, input, false)
}

// FindOrCreateMonth returns the month for (month, year), creating and
// opening it when missing. Used by challenge creation, which may run ahead
// of the calendar, so the future guard is skipped.
func (s MonthService) FindOrCreateMonth(ctx context.Context, month int, year int) (entities.TombolaMonth, error) {
	if found, ok, err := s.Repo.FindMonthByPeriod(ctx, month, year); err != nil {
		return entities.TombolaMonth{}, err
	} else if ok {
		return found, nil
	}
	created, err := s.createMonth(ctx, ports.CreateMonthInput{Month: month, Year: year}, true)
	if errors.Is(err, domainerrors.ErrMonthExists) {
		// Lost a concurrent create; the winner's row is the month.
		if found, ok, findErr := s.Repo.FindMonthByPeriod(ctx, month, year); findErr == nil && ok {
			return found, nil
		}
	}
	return created, err
}

func (s MonthService) createMonth(ctx context.Context, input ports.CreateMonthInput, allowFuture bool) (entities.TombolaMonth, error) {
	if input.Month < 1 || input.Month > 12 || input.Year < 2000 {
		return entities.TombolaMonth{}, domainerrors.ErrInvalidRequest
	}
	now := s.now()
	if !allowFuture && input.Year*100+input.Month > now.Year()*100+int(now.Month()) {
		return entities.TombolaMonth{}, domainerrors.ErrMonthInFuture
	}
	if _, ok, err := s.Repo.FindMonthByPeriod(ctx, input.Month, input.Year); err != nil {
		return entities.TombolaMonth{}, err
	} else if ok {
		return entities.TombolaMonth{}, domainerrors.ErrMonthExists
	}

	monthID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.TombolaMonth{}, fmt.Errorf("generate month id: %w", err)
	}
	month := entities.TombolaMonth{
		MonthID:              monthID,
		Month:                input.Month,
		Year:                 input.Year,
		Status:               entities.MonthOpen,
		LinkedChallengeID:    strings.TrimSpace(input.LinkedChallengeID),
		PreviousMonthWinners: s.previousWinners(ctx, input.Month, input.Year),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.Repo.CreateMonth(ctx, month); err != nil {
		if errors.Is(err, domainerrors.ErrConflict) {
			return entities.TombolaMonth{}, domainerrors.ErrMonthExists
		}
		return entities.TombolaMonth{}, err
	}
	closed, err := s.Repo.CloseOpenMonths(ctx, month.MonthID)
	if err != nil {
		return entities.TombolaMonth{}, err
	}
	resolveLogger(s.Logger).Info("tombola month opened",
		"event", "tombola_month_opened",
		"module", "lottery-games/tombola-service",
		"month_id", month.MonthID,
		"period", fmt.Sprintf("%04d-%02d", month.Year, month.Month),
		"closed_months", closed,
	)
	return month, nil
}

// previousWinners seeds the anti-consecutive-win exclusion set from the
// preceding calendar month, when that month exists.
func (s MonthService) previousWinners(ctx context.Context, month int, year int) []string {
	prevMonth, prevYear := entities.PreviousPeriod(month, year)
	previous, ok, err := s.Repo.FindMonthByPeriod(ctx, prevMonth, prevYear)
	if err != nil || !ok {
		return nil
	}
	userIDs := make([]string, 0, len(previous.Winners))
	for _, winner := range previous.Winners {
		userIDs = append(userIDs, winner.UserID)
	}
	return userIDs
}

// SetStatus transitions a month; opening a month closes every other open
// month first.
func (s MonthService) SetStatus(ctx context.Context, monthID string, status entities.MonthStatus) (entities.TombolaMonth, error) {
	if !status.Valid() {
		return entities.TombolaMonth{}, domainerrors.ErrInvalidRequest
	}
	month, err := s.Repo.GetMonth(ctx, monthID)
	if err != nil {
		return entities.TombolaMonth{}, err
	}
	if status == entities.MonthOpen {
		if _, err := s.Repo.CloseOpenMonths(ctx, month.MonthID); err != nil {
			return entities.TombolaMonth{}, err
		}
	}
	if err := s.Repo.SetMonthStatus(ctx, month.MonthID, status); err != nil {
		return entities.TombolaMonth{}, err
	}
	return s.Repo.GetMonth(ctx, monthID)
}

// Update edits the mutable month attributes (currently the challenge link).
func (s MonthService) Update(ctx context.Context, input ports.UpdateMonthInput) (entities.TombolaMonth, error) {
	month, err := s.Repo.GetMonth(ctx, input.MonthID)
	if err != nil {
		return entities.TombolaMonth{}, err
	}
	if input.LinkedChallengeID != nil {
		month.LinkedChallengeID = strings.TrimSpace(*input.LinkedChallengeID)
	}
	month.UpdatedAt = s.now()
	if err := s.Repo.UpdateMonth(ctx, month); err != nil {
		return entities.TombolaMonth{}, err
	}
	return month, nil
}

// Delete removes a month that never sold a ticket.
func (s MonthService) Delete(ctx context.Context, monthID string) error {
	month, err := s.Repo.GetMonth(ctx, monthID)
	if err != nil {
		return err
	}
	count, err := s.Repo.CountMonthTickets(ctx, month.MonthID)
	if err != nil {
		return err
	}
	if count > 0 || month.LastTicketNumber > 0 {
		return domainerrors.ErrMonthHasTickets
	}
	return s.Repo.DeleteMonth(ctx, month.MonthID)
}

func (s MonthService) List(ctx context.Context, page int, limit int) ([]entities.TombolaMonth, int, error) {
	offset, limit := normalizePage(page, limit, 20, 100)
	return s.Repo.ListMonths(ctx, offset, limit)
}

func (s MonthService) Get(ctx context.Context, monthID string) (entities.TombolaMonth, error) {
	return s.Repo.GetMonth(ctx, strings.TrimSpace(monthID))
}

// Current returns the single open month.
func (s MonthService) Current(ctx context.Context) (entities.TombolaMonth, error) {
	month, ok, err := s.Repo.CurrentMonth(ctx)
	if err != nil {
		return entities.TombolaMonth{}, err
	}
	if !ok {
		return entities.TombolaMonth{}, domainerrors.ErrNoOpenMonth
	}
	return month, nil
}

func (s MonthService) Winners(ctx context.Context, monthID string) ([]entities.Winner, error) {
	month, err := s.Repo.GetMonth(ctx, strings.TrimSpace(monthID))
	if err != nil {
		return nil, err
	}
	return month.Winners, nil
}

func (s MonthService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
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
