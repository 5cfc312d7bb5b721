package ports

import (
	"context"
	"time"

	"mboa/contexts/lottery-games/challenge-service/domain/entities"
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

// DepositInput credits an internal account or a user wallet; AccountID
// carries either id. The returned transaction id is persisted for audit.
type DepositInput struct {
	AccountID string
	Amount    int64
	Currency  string
	Reference string
}

type PaymentsClient interface {
	CreateIntent(ctx context.Context, input PaymentIntentInput) (PaymentIntent, error)
	InternalDeposit(ctx context.Context, input DepositInput) (string, error)
}

// OpsAlerter posts operational alerts out of band. Implementations must be
// nil-safe and must never block the calling path.
type OpsAlerter interface {
	IntegrityError(sessionID string, refID string, err error)
}

// TombolaMonthRef identifies the lottery month a challenge is linked to.
type TombolaMonthRef struct {
	MonthID string
}

// VoteTicketInput mints one weighted lottery ticket for a confirmed vote.
// (PaymentIntentID, UserTicketIndex) is the idempotency guard.
type VoteTicketInput struct {
	MonthID         string
	UserID          string
	PaymentIntentID string
	ChallengeVoteID string
	UserTicketIndex int
}

type VoteTicketRef struct {
	TicketID     string
	TicketNumber int
	Weight       float64
}

// TombolaGateway is the challenge side of the tombola contract: month
// linkage at creation, allowance reads at vote initiation and ticket minting
// at payment confirmation.
type TombolaGateway interface {
	FindOrCreateMonth(ctx context.Context, month int, year int) (TombolaMonthRef, error)
	MintTicket(ctx context.Context, input VoteTicketInput) (VoteTicketRef, error)
	UserTicketCount(ctx context.Context, monthID string, userID string) (int, error)
	MaxTickets() int
}

type CreateChallengeInput struct {
	Month         int
	Year          int
	CampaignName  string
	StartDate     time.Time
	EndDate       time.Time
	DescriptionFR string
	DescriptionEN string
}

// UpdateChallengeInput carries the admin-editable attributes; nil fields are
// left untouched.
type UpdateChallengeInput struct {
	ChallengeID   string
	CampaignName  *string
	StartDate     *time.Time
	EndDate       *time.Time
	DescriptionFR *string
	DescriptionEN *string
}

type CreateEntrepreneurInput struct {
	ChallengeID        string
	UserID             string
	ProjectName        string
	ProjectDescription string
	City               string
	PhotoURL           string
	VideoURL           string
	VideoDuration      int
}

type UpdateEntrepreneurInput struct {
	EntrepreneurID     string
	ProjectName        *string
	ProjectDescription *string
	City               *string
	PhotoURL           *string
	VideoURL           *string
	VideoDuration      *int
}

// VoteSession is returned by vote/support initiation; the vote stays pending
// until the payment webhook confirms it.
type VoteSession struct {
	VoteID         string
	SessionID      string
	CheckoutURL    string
	VoteQuantity   int
	TicketQuantity int
	Amount         int64
	Currency       string
}

type ConfirmPaymentInput struct {
	SessionID string
	Status    string
	Metadata  map[string]string
}

// TicketAllowance is the per-user remaining mintable tickets for the month a
// challenge is linked to.
type TicketAllowance struct {
	MonthID    string
	MaxTickets int
	Used       int
	Available  int
	VotePrice  int64
}

// EntrepreneurRank is one row of the final standings written by closeVoting.
type EntrepreneurRank struct {
	EntrepreneurID string
	Rank           int
	IsWinner       bool
}

// VoteStats aggregates completed votes for the analytics surface.
type VoteStats struct {
	CompletedVotes     int
	CompletedSupports  int
	VoteAmount         int64
	SupportAmount      int64
	TicketsMinted      int
	UniqueParticipants int
}

type Repository interface {
	CreateChallenge(ctx context.Context, challenge entities.ImpactChallenge) error
	GetChallenge(ctx context.Context, challengeID string) (entities.ImpactChallenge, error)
	FindChallengeByPeriod(ctx context.Context, month int, year int) (entities.ImpactChallenge, bool, error)
	// CurrentChallenge prefers the active challenge and falls back to the
	// most recent non-cancelled one.
	CurrentChallenge(ctx context.Context) (entities.ImpactChallenge, bool, error)
	ListChallenges(ctx context.Context, offset int, limit int) ([]entities.ImpactChallenge, int, error)
	// UpdateChallenge persists the admin-editable attributes.
	UpdateChallenge(ctx context.Context, challenge entities.ImpactChallenge) error
	DeleteChallenge(ctx context.Context, challengeID string) error

	// TransitionStatus performs the conditional from→to update; it reports
	// false when the challenge was not in the expected state.
	TransitionStatus(ctx context.Context, challengeID string, from entities.ChallengeStatus, to entities.ChallengeStatus) (bool, error)
	// ApplyChallengeTotals atomically adds to totalCollected/totalVoteCount.
	ApplyChallengeTotals(ctx context.Context, challengeID string, amount int64, votes int) error
	// RecordDistribution writes the payout record and moves the challenge to
	// funds_distributed; it reports false when another writer got there
	// first.
	RecordDistribution(ctx context.Context, challengeID string, dist entities.Distribution) (bool, error)

	CreateEntrepreneur(ctx context.Context, entrepreneur entities.Entrepreneur) error
	GetEntrepreneur(ctx context.Context, entrepreneurID string) (entities.Entrepreneur, error)
	ListEntrepreneurs(ctx context.Context, challengeID string, approvedOnly bool) ([]entities.Entrepreneur, error)
	CountEntrepreneurs(ctx context.Context, challengeID string) (int, error)
	UpdateEntrepreneur(ctx context.Context, entrepreneur entities.Entrepreneur) error
	// ApproveEntrepreneur flips approved once; approving twice is a no-op.
	ApproveEntrepreneur(ctx context.Context, entrepreneurID string) error
	DeleteEntrepreneur(ctx context.Context, entrepreneurID string) error
	// ApplyEntrepreneurVote atomically adds to voteCount/totalAmount.
	ApplyEntrepreneurVote(ctx context.Context, entrepreneurID string, votes int, amount int64) error
	// SetRanking writes the final standings in one atomic batch.
	SetRanking(ctx context.Context, challengeID string, ranks []EntrepreneurRank) error

	CreateVote(ctx context.Context, vote entities.ChallengeVote) error
	GetVote(ctx context.Context, voteID string) (entities.ChallengeVote, error)
	FindVoteByPaymentIntent(ctx context.Context, sessionID string) (entities.ChallengeVote, bool, error)
	// SetVoteSession attaches the checkout session id once the intent is
	// opened.
	SetVoteSession(ctx context.Context, voteID string, sessionID string) error
	// CompleteVote performs the atomic pending→completed transition; it
	// reports false when the vote was not pending.
	CompleteVote(ctx context.Context, voteID string) (bool, error)
	// RecordTicketGeneration stores minted ticket ids; generated stays
	// false when minting aborted early and genError carries the cause.
	RecordTicketGeneration(ctx context.Context, voteID string, ticketIDs []string, generated bool, genError string) error
	ListVotes(ctx context.Context, challengeID string, offset int, limit int) ([]entities.ChallengeVote, int, error)
	VoteStats(ctx context.Context, challengeID string) (VoteStats, error)
}
