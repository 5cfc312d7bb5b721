package ports

import (
	"context"
	"time"

	"mboa/contexts/lottery-games/tombola-service/domain/entities"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// PaymentIntentInput opens a checkout session with the external Payments
// service. Metadata is echoed back verbatim on webhook confirmation.
type PaymentIntentInput struct {
	UserID      string
	Amount      int64
	Currency    string
	PaymentType string
	Metadata    map[string]string
}

type PaymentIntent struct {
	SessionID   string
	CheckoutURL string
}

type PaymentsClient interface {
	CreateIntent(ctx context.Context, input PaymentIntentInput) (PaymentIntent, error)
}

type Notification struct {
	Type  string
	Title string
	Body  string
	Data  map[string]string
}

// NotifierClient is best-effort; callers log failures and move on.
type NotifierClient interface {
	Send(ctx context.Context, userID string, notification Notification) error
}

// OpsAlerter posts operational alerts out of band. Implementations must be
// nil-safe and must never block the calling path.
type OpsAlerter interface {
	IntegrityError(sessionID string, refID string, err error)
	DrawReport(month int, year int, winnerCount int)
}

type CreateMonthInput struct {
	Month             int
	Year              int
	LinkedChallengeID string
}

type UpdateMonthInput struct {
	MonthID           string
	LinkedChallengeID *string
}

// MintTicketInput mints one ticket inside an already confirmed payment.
// UserTicketIndex is the 1-based per-(user,month) index that fixes the
// weight; (PaymentIntentID, UserTicketIndex) is the idempotency guard.
type MintTicketInput struct {
	MonthID         string
	UserID          string
	PaymentIntentID string
	ChallengeVoteID string
	UserTicketIndex int
	SourceType      entities.TicketSource
	TicketID        string
}

// PurchaseSession is returned by BuyTicket; TicketID is provisional until
// the payment webhook mints the ticket.
type PurchaseSession struct {
	TicketID    string
	SessionID   string
	CheckoutURL string
	Amount      int64
	Currency    string
}

type ConfirmPurchaseInput struct {
	SessionID string
	Status    string
	Metadata  map[string]string
}

type Repository interface {
	CreateMonth(ctx context.Context, month entities.TombolaMonth) error
	GetMonth(ctx context.Context, monthID string) (entities.TombolaMonth, error)
	FindMonthByPeriod(ctx context.Context, month int, year int) (entities.TombolaMonth, bool, error)
	CurrentMonth(ctx context.Context) (entities.TombolaMonth, bool, error)
	ListMonths(ctx context.Context, offset int, limit int) ([]entities.TombolaMonth, int, error)
	// UpdateMonth persists the admin-editable attributes (challenge link).
	UpdateMonth(ctx context.Context, month entities.TombolaMonth) error
	DeleteMonth(ctx context.Context, monthID string) error

	// CloseOpenMonths closes every open month except the given id and
	// reports how many were closed.
	CloseOpenMonths(ctx context.Context, exceptMonthID string) (int, error)
	SetMonthStatus(ctx context.Context, monthID string, status entities.MonthStatus) error

	// SetWinners records the draw outcome and closes the month in one
	// atomic write.
	SetWinners(ctx context.Context, monthID string, winners []entities.Winner, drawDate time.Time) error

	// NextTicketNumber atomically increments lastTicketNumber and returns
	// the new value.
	NextTicketNumber(ctx context.Context, monthID string) (int, error)

	CreateTicket(ctx context.Context, ticket entities.Ticket) error
	GetTicketByToken(ctx context.Context, ticketID string) (entities.Ticket, bool, error)
	FindMintedTicket(ctx context.Context, paymentIntentID string, userTicketIndex int) (entities.Ticket, bool, error)
	CountUserTickets(ctx context.Context, monthID string, userID string) (int, error)
	CountMonthTickets(ctx context.Context, monthID string) (int, error)
	ListUserTickets(ctx context.Context, userID string, offset int, limit int) ([]entities.Ticket, int, error)
	ListMonthTickets(ctx context.Context, monthID string, offset int, limit int) ([]entities.Ticket, int, error)
	AllMonthTickets(ctx context.Context, monthID string) ([]entities.Ticket, error)
	TicketNumbers(ctx context.Context, monthID string) ([]int, error)
}
