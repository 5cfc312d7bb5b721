package entities

import "time"

type MonthStatus string

const (
	MonthOpen    MonthStatus = "open"
	MonthDrawing MonthStatus = "drawing"
	MonthClosed  MonthStatus = "closed"
)

func (s MonthStatus) Valid() bool {
	switch s {
	case MonthOpen, MonthDrawing, MonthClosed:
		return true
	}
	return false
}

// DefaultMaxTicketsPerUser caps tickets per (user, month) unless configured
// otherwise.
const DefaultMaxTicketsPerUser = 25

// Winner is one drawn rank of a tombola month.
type Winner struct {
	UserID              string
	Prize               string
	Rank                int
	WinningTicketNumber int
}

// TombolaMonth is the monthly lottery aggregate. LastTicketNumber is the
// dense numbering counter; ticket numbers for the month form the contiguous
// range [1..LastTicketNumber].
type TombolaMonth struct {
	MonthID              string
	Month                int
	Year                 int
	Status               MonthStatus
	LastTicketNumber     int
	Winners              []Winner
	PreviousMonthWinners []string
	LinkedChallengeID    string
	DrawDate             time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (m TombolaMonth) Drawn() bool { return len(m.Winners) > 0 || !m.DrawDate.IsZero() }

// Period returns the calendar period as a comparable scalar.
func (m TombolaMonth) Period() int { return m.Year*100 + m.Month }

// PreviousPeriod returns the (month, year) immediately before the given
// period; January rolls back to December of the previous year.
func PreviousPeriod(month int, year int) (int, int) {
	if month == 1 {
		return 12, year - 1
	}
	return month - 1, year
}

type TicketSource string

const (
	SourceDirectPurchase TicketSource = "direct_purchase"
	SourceChallengeVote  TicketSource = "challenge_vote"
)

// Ticket is immutable once minted. TicketID is the opaque 12-char token;
// TicketNumber is the dense per-month index used by the draw.
type Ticket struct {
	TicketID        string
	UserID          string
	MonthID         string
	TicketNumber    int
	Weight          float64
	UserTicketIndex int
	SourceType      TicketSource
	PaymentIntentID string
	ChallengeVoteID string
	CreatedAt       time.Time
}

// DrawWeight treats a missing weight as 1.0.
func (t Ticket) DrawWeight() float64 {
	if t.Weight > 0 {
		return t.Weight
	}
	return 1.0
}

// WeightForIndex is the diminishing per-ticket weight ladder keyed by the
// 1-based per-(user,month) ticket index. Indexes past 25 earn no ticket.
func WeightForIndex(index int) float64 {
	switch {
	case index >= 1 && index <= 3:
		return 1.0
	case index >= 4 && index <= 15:
		return 0.6
	case index >= 16 && index <= 25:
		return 0.3
	}
	return 0
}

// PrizeForRank returns the fixed prize labels; these are part of the
// external contract.
func PrizeForRank(rank int) string {
	switch rank {
	case 1:
		return "Bike"
	case 2:
		return "Phone"
	case 3:
		return "100k FCFA"
	}
	return ""
}
