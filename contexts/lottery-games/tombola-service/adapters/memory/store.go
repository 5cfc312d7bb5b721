package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mboa/contexts/lottery-games/tombola-service/domain/entities"
	domainerrors "mboa/contexts/lottery-games/tombola-service/domain/errors"
	"mboa/contexts/lottery-games/tombola-service/ports"

	"github.com/google/uuid"
)

// Store is the in-memory tombola repository used by tests and local mode. It
// also serves as clock and id generator when the module is wired without
// Postgres.
type Store struct {
	mu sync.RWMutex

	months  map[string]entities.TombolaMonth
	tickets []entities.Ticket

	nowFunc func() time.Time
}

func NewStore() *Store {
	return &Store{
		months: make(map[string]entities.TombolaMonth),
	}
}

// SetNowFunc pins the store clock so tests can control time.
func (s *Store) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFunc = now
}

// SetMonth seeds a month directly, bypassing lifecycle rules.
func (s *Store) SetMonth(month entities.TombolaMonth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.months[month.MonthID] = cloneMonth(month)
}

func (s *Store) CreateMonth(ctx context.Context, month entities.TombolaMonth) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.months[month.MonthID]; ok {
		return domainerrors.ErrConflict
	}
	for _, existing := range s.months {
		if existing.Month == month.Month && existing.Year == month.Year {
			return domainerrors.ErrConflict
		}
	}
	s.months[month.MonthID] = cloneMonth(month)
	return nil
}

func (s *Store) GetMonth(ctx context.Context, monthID string) (entities.TombolaMonth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	month, ok := s.months[strings.TrimSpace(monthID)]
	if !ok {
		return entities.TombolaMonth{}, domainerrors.ErrMonthNotFound
	}
	return cloneMonth(month), nil
}

func (s *Store) FindMonthByPeriod(ctx context.Context, month int, year int) (entities.TombolaMonth, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, existing := range s.months {
		if existing.Month == month && existing.Year == year {
			return cloneMonth(existing), true, nil
		}
	}
	return entities.TombolaMonth{}, false, nil
}

func (s *Store) CurrentMonth(ctx context.Context) (entities.TombolaMonth, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, month := range s.months {
		if month.Status == entities.MonthOpen {
			return cloneMonth(month), true, nil
		}
	}
	return entities.TombolaMonth{}, false, nil
}

func (s *Store) ListMonths(ctx context.Context, offset int, limit int) ([]entities.TombolaMonth, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	months := make([]entities.TombolaMonth, 0, len(s.months))
	for _, month := range s.months {
		months = append(months, cloneMonth(month))
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Period() > months[j].Period() })
	total := len(months)
	return paginate(months, offset, limit), total, nil
}

func (s *Store) UpdateMonth(ctx context.Context, month entities.TombolaMonth) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.months[month.MonthID]; !ok {
		return domainerrors.ErrMonthNotFound
	}
	s.months[month.MonthID] = cloneMonth(month)
	return nil
}

func (s *Store) DeleteMonth(ctx context.Context, monthID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.months[monthID]; !ok {
		return domainerrors.ErrMonthNotFound
	}
	delete(s.months, monthID)
	return nil
}

func (s *Store) CloseOpenMonths(ctx context.Context, exceptMonthID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	closed := 0
	for id, month := range s.months {
		if id == exceptMonthID || month.Status != entities.MonthOpen {
			continue
		}
		month.Status = entities.MonthClosed
		month.UpdatedAt = s.now()
		s.months[id] = month
		closed++
	}
	return closed, nil
}

func (s *Store) SetMonthStatus(ctx context.Context, monthID string, status entities.MonthStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	month, ok := s.months[monthID]
	if !ok {
		return domainerrors.ErrMonthNotFound
	}
	month.Status = status
	month.UpdatedAt = s.now()
	s.months[monthID] = month
	return nil
}

func (s *Store) SetWinners(ctx context.Context, monthID string, winners []entities.Winner, drawDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	month, ok := s.months[monthID]
	if !ok {
		return domainerrors.ErrMonthNotFound
	}
	month.Winners = append([]entities.Winner(nil), winners...)
	month.Status = entities.MonthClosed
	month.DrawDate = drawDate
	month.UpdatedAt = drawDate
	s.months[monthID] = month
	return nil
}

func (s *Store) NextTicketNumber(ctx context.Context, monthID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	month, ok := s.months[monthID]
	if !ok {
		return 0, domainerrors.ErrMonthNotFound
	}
	month.LastTicketNumber++
	month.UpdatedAt = s.now()
	s.months[monthID] = month
	return month.LastTicketNumber, nil
}

func (s *Store) CreateTicket(ctx context.Context, ticket entities.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tickets {
		if existing.TicketID == ticket.TicketID {
			return domainerrors.ErrConflict
		}
		if existing.PaymentIntentID == ticket.PaymentIntentID && existing.UserTicketIndex == ticket.UserTicketIndex {
			return domainerrors.ErrConflict
		}
		if existing.MonthID == ticket.MonthID && existing.TicketNumber == ticket.TicketNumber {
			return domainerrors.ErrConflict
		}
	}
	s.tickets = append(s.tickets, ticket)
	return nil
}

func (s *Store) GetTicketByToken(ctx context.Context, ticketID string) (entities.Ticket, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ticket := range s.tickets {
		if ticket.TicketID == ticketID {
			return ticket, true, nil
		}
	}
	return entities.Ticket{}, false, nil
}

func (s *Store) FindMintedTicket(ctx context.Context, paymentIntentID string, userTicketIndex int) (entities.Ticket, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ticket := range s.tickets {
		if ticket.PaymentIntentID == paymentIntentID && ticket.UserTicketIndex == userTicketIndex {
			return ticket, true, nil
		}
	}
	return entities.Ticket{}, false, nil
}

func (s *Store) CountUserTickets(ctx context.Context, monthID string, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, ticket := range s.tickets {
		if ticket.MonthID == monthID && ticket.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountMonthTickets(ctx context.Context, monthID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, ticket := range s.tickets {
		if ticket.MonthID == monthID {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListUserTickets(ctx context.Context, userID string, offset int, limit int) ([]entities.Ticket, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tickets := make([]entities.Ticket, 0)
	for _, ticket := range s.tickets {
		if ticket.UserID == userID {
			tickets = append(tickets, ticket)
		}
	}
	sortTicketsNewestFirst(tickets)
	total := len(tickets)
	return paginate(tickets, offset, limit), total, nil
}

func (s *Store) ListMonthTickets(ctx context.Context, monthID string, offset int, limit int) ([]entities.Ticket, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tickets := s.monthTickets(monthID)
	total := len(tickets)
	return paginate(tickets, offset, limit), total, nil
}

func (s *Store) AllMonthTickets(ctx context.Context, monthID string) ([]entities.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.monthTickets(monthID), nil
}

func (s *Store) TicketNumbers(ctx context.Context, monthID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	numbers := make([]int, 0)
	for _, ticket := range s.tickets {
		if ticket.MonthID == monthID {
			numbers = append(numbers, ticket.TicketNumber)
		}
	}
	sort.Ints(numbers)
	return numbers, nil
}

// monthTickets returns the month's tickets ordered by ticket number; callers
// must hold the lock.
func (s *Store) monthTickets(monthID string) []entities.Ticket {
	tickets := make([]entities.Ticket, 0)
	for _, ticket := range s.tickets {
		if ticket.MonthID == monthID {
			tickets = append(tickets, ticket)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].TicketNumber < tickets[j].TicketNumber })
	return tickets
}

// Now implements ports.Clock.
func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

// NewID implements ports.IDGenerator.
func (s *Store) NewID(ctx context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) now() time.Time {
	if s.nowFunc != nil {
		return s.nowFunc()
	}
	return time.Now().UTC()
}

func cloneMonth(month entities.TombolaMonth) entities.TombolaMonth {
	out := month
	out.Winners = append([]entities.Winner(nil), month.Winners...)
	out.PreviousMonthWinners = append([]string(nil), month.PreviousMonthWinners...)
	return out
}

func sortTicketsNewestFirst(tickets []entities.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].TicketNumber > tickets[j].TicketNumber
		}
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
}

func paginate[T any](items []T, offset int, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

var (
	_ ports.Repository  = (*Store)(nil)
	_ ports.Clock       = (*Store)(nil)
	_ ports.IDGenerator = (*Store)(nil)
)
