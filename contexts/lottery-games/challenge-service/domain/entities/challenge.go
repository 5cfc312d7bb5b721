package entities

import "time"

type ChallengeStatus string

const (
	ChallengeDraft            ChallengeStatus = "draft"
	ChallengeActive           ChallengeStatus = "active"
	ChallengeVotingClosed     ChallengeStatus = "voting_closed"
	ChallengeFundsDistributed ChallengeStatus = "funds_distributed"
	ChallengeCancelled        ChallengeStatus = "cancelled"
)

func (s ChallengeStatus) Valid() bool {
	switch s {
	case ChallengeDraft, ChallengeActive, ChallengeVotingClosed, ChallengeFundsDistributed, ChallengeCancelled:
		return true
	}
	return false
}

// CanTransition encodes the challenge lifecycle. funds_distributed and
// cancelled are terminal.
func (s ChallengeStatus) CanTransition(to ChallengeStatus) bool {
	switch s {
	case ChallengeDraft:
		return to == ChallengeActive || to == ChallengeCancelled
	case ChallengeActive:
		return to == ChallengeVotingClosed || to == ChallengeCancelled
	case ChallengeVotingClosed:
		return to == ChallengeFundsDistributed || to == ChallengeCancelled
	}
	return false
}

const (
	DefaultMaxEntrepreneurs = 3
	DefaultVideoMaxSeconds  = 90
)

// Distribution split, in percent. The integer floor of each share is paid
// out and the rounding remainder lands on the commission.
const (
	WinnerSharePercent     = 50
	LotterySharePercent    = 30
	CommissionSharePercent = 20
)

// SplitFunds floors the three shares of total and folds the remainder into
// the commission so the parts always sum back to total.
func SplitFunds(total int64) (winner int64, lottery int64, commission int64) {
	winner = total * WinnerSharePercent / 100
	lottery = total * LotterySharePercent / 100
	commission = total * CommissionSharePercent / 100
	commission += total - winner - lottery - commission
	return winner, lottery, commission
}

// ImpactChallenge is the monthly campaign aggregate. TotalCollected and
// TotalVoteCount are mutated only through atomic increments on payment
// confirmation.
type ImpactChallenge struct {
	ChallengeID      string
	Month            int
	Year             int
	CampaignName     string
	Status           ChallengeStatus
	StartDate        time.Time
	EndDate          time.Time
	DescriptionFR    string
	DescriptionEN    string
	TombolaMonthID   string
	TotalCollected   int64
	TotalVoteCount   int
	FundsDistributed bool
	Distribution     Distribution
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Period returns the calendar period as a comparable scalar.
func (c ImpactChallenge) Period() int { return c.Year*100 + c.Month }

// Distribution is the 50/30/20 payout record, written once when funds are
// distributed.
type Distribution struct {
	WinnerAmount            int64
	LotteryPoolAmount       int64
	CommissionAmount        int64
	WinnerTransactionID     string
	LotteryTransactionID    string
	CommissionTransactionID string
	DistributedAt           time.Time
}

// Entrepreneur is one roster entry of a challenge. VoteCount and TotalAmount
// are denormalized vote tallies; Rank and IsWinner are written when voting
// closes.
type Entrepreneur struct {
	EntrepreneurID     string
	ChallengeID        string
	UserID             string
	ProjectName        string
	ProjectDescription string
	City               string
	PhotoURL           string
	VideoURL           string
	VideoDuration      int
	VoteCount          int
	TotalAmount        int64
	Rank               int
	IsWinner           bool
	Approved           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type VoteType string

const (
	VoteTypeVote    VoteType = "vote"
	VoteTypeSupport VoteType = "support"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// ChallengeVote records one paid contribution. UserID is empty for anonymous
// supports. PaymentIntentID is set once checkout opens; the transition to
// completed happens exactly once per intent.
type ChallengeVote struct {
	VoteID                string
	ChallengeID           string
	EntrepreneurID        string
	UserID                string
	AmountPaid            int64
	VoteQuantity          int
	VoteType              VoteType
	PaymentStatus         PaymentStatus
	PaymentIntentID       string
	TombolaTicketIDs      []string
	TicketsGenerated      bool
	TicketGenerationError string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
