package challengeservice_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	challengeservice "mboa/contexts/lottery-games/challenge-service"
	"mboa/contexts/lottery-games/challenge-service/adapters/memory"
	"mboa/contexts/lottery-games/challenge-service/domain/entities"
	domainerrors "mboa/contexts/lottery-games/challenge-service/domain/errors"
	"mboa/contexts/lottery-games/challenge-service/ports"
	httptransport "mboa/contexts/lottery-games/challenge-service/transport/http"
)

type mintedTicket struct {
	monthID string
	userID  string
	index   int
	weight  float64
}

// fakeTombola mirrors the tombola contract: per-index weights, a monthly
// cap and the (sessionId, index) mint guard.
type fakeTombola struct {
	mu       sync.Mutex
	months   map[string]string
	mints    []mintedTicket
	byGuard  map[string]ports.VoteTicketRef
	counter  int
	max      int
	failCall int // fail the n-th MintTicket call when > 0
	calls    int
}

func newFakeTombola() *fakeTombola {
	return &fakeTombola{
		months:  make(map[string]string),
		byGuard: make(map[string]ports.VoteTicketRef),
		max:     25,
	}
}

func (f *fakeTombola) FindOrCreateMonth(_ context.Context, month int, year int) (ports.TombolaMonthRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%04d-%02d", year, month)
	if id, ok := f.months[key]; ok {
		return ports.TombolaMonthRef{MonthID: id}, nil
	}
	id := "tm_" + key
	f.months[key] = id
	return ports.TombolaMonthRef{MonthID: id}, nil
}

func (f *fakeTombola) MintTicket(_ context.Context, input ports.VoteTicketInput) (ports.VoteTicketRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failCall > 0 && f.calls == f.failCall {
		return ports.VoteTicketRef{}, errors.New("tombola unavailable")
	}
	guard := fmt.Sprintf("%s#%d", input.PaymentIntentID, input.UserTicketIndex)
	if ref, ok := f.byGuard[guard]; ok {
		return ref, nil
	}
	if input.UserTicketIndex > f.max {
		return ports.VoteTicketRef{}, errors.New("monthly ticket cap reached")
	}
	f.counter++
	ref := ports.VoteTicketRef{
		TicketID:     fmt.Sprintf("TKT%06d", f.counter),
		TicketNumber: f.counter,
		Weight:       weightForIndex(input.UserTicketIndex),
	}
	f.byGuard[guard] = ref
	f.mints = append(f.mints, mintedTicket{
		monthID: input.MonthID,
		userID:  input.UserID,
		index:   input.UserTicketIndex,
		weight:  ref.Weight,
	})
	return ref, nil
}

func (f *fakeTombola) UserTicketCount(_ context.Context, monthID string, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, mint := range f.mints {
		if mint.monthID == monthID && mint.userID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeTombola) MaxTickets() int {
	return f.max
}

func (f *fakeTombola) mintsOf(userID string) []mintedTicket {
	f.mu.Lock()
	defer f.mu.Unlock()
	mints := make([]mintedTicket, 0)
	for _, mint := range f.mints {
		if mint.userID == userID {
			mints = append(mints, mint)
		}
	}
	return mints
}

func weightForIndex(index int) float64 {
	switch {
	case index <= 3:
		return 1.0
	case index <= 15:
		return 0.6
	default:
		return 0.3
	}
}

type deposit struct {
	account   string
	amount    int64
	reference string
}

type fakePayments struct {
	mu         sync.Mutex
	intents    []ports.PaymentIntentInput
	deposits   []deposit
	depositErr error
}

func (f *fakePayments) CreateIntent(_ context.Context, input ports.PaymentIntentInput) (ports.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, input)
	sessionID := fmt.Sprintf("sess_%d", len(f.intents))
	return ports.PaymentIntent{
		SessionID:   sessionID,
		CheckoutURL: "https://pay.example/" + sessionID,
	}, nil
}

func (f *fakePayments) InternalDeposit(_ context.Context, input ports.DepositInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.depositErr != nil {
		return "", f.depositErr
	}
	f.deposits = append(f.deposits, deposit{
		account:   input.AccountID,
		amount:    input.Amount,
		reference: input.Reference,
	})
	return fmt.Sprintf("txn_%d", len(f.deposits)), nil
}

func (f *fakePayments) last() ports.PaymentIntentInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.intents[len(f.intents)-1]
}

type fakeOps struct {
	mu        sync.Mutex
	integrity []string
}

func (f *fakeOps) IntegrityError(sessionID string, refID string, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.integrity = append(f.integrity, sessionID+"|"+refID)
}

func (f *fakeOps) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.integrity)
}

func newTestModule() (challengeservice.Module, *fakeTombola, *fakePayments, *fakeOps) {
	tombola := newFakeTombola()
	payments := &fakePayments{}
	ops := &fakeOps{}
	module := challengeservice.NewInMemoryModule(tombola, payments, ops, nil)
	module.Store.SetNowFunc(func() time.Time {
		return time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)
	})
	return module, tombola, payments, ops
}

// newFundedModule wires explicit payout accounts for the distribution flows.
func newFundedModule() (challengeservice.Module, *fakeTombola, *fakePayments, *fakeOps) {
	tombola := newFakeTombola()
	payments := &fakePayments{}
	ops := &fakeOps{}
	store := memory.NewStore()
	store.SetNowFunc(func() time.Time {
		return time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)
	})
	module := challengeservice.NewModule(challengeservice.Dependencies{
		Repo:                 store,
		Tombola:              tombola,
		Payments:             payments,
		Ops:                  ops,
		Clock:                store,
		IDGen:                store,
		LotteryPoolAccountID: "acct_pool",
		CommissionAccountID:  "acct_commission",
	})
	module.Store = store
	return module, tombola, payments, ops
}

func createActiveChallenge(t *testing.T, module challengeservice.Module) httptransport.ChallengeDTO {
	t.Helper()
	ctx := context.Background()
	created, err := module.Handler.CreateChallengeHandler(ctx, httptransport.CreateChallengeRequest{
		Month:        5,
		Year:         2026,
		CampaignName: "Impact Mai 2026",
	})
	require.NoError(t, err)
	activated, err := module.Handler.SetStatusHandler(ctx, created.Data.ChallengeID, httptransport.SetStatusRequest{Status: "active"})
	require.NoError(t, err)
	return activated.Data
}

func addApprovedEntrepreneur(t *testing.T, module challengeservice.Module, challengeID string, userID string, name string) httptransport.EntrepreneurDTO {
	t.Helper()
	ctx := context.Background()
	added, err := module.Handler.AddEntrepreneurHandler(ctx, challengeID, httptransport.AddEntrepreneurRequest{
		UserID:      userID,
		ProjectName: name,
		City:        "Douala",
	})
	require.NoError(t, err)
	approved, err := module.Handler.ApproveEntrepreneurHandler(ctx, added.Data.EntrepreneurID)
	require.NoError(t, err)
	return approved.Data
}

func initiateVote(t *testing.T, module challengeservice.Module, userID string, challengeID string, entrepreneurID string, amount int64) httptransport.VoteSessionResponse {
	t.Helper()
	session, err := module.Handler.VoteHandler(context.Background(), userID, challengeID, httptransport.VoteRequest{
		EntrepreneurID: entrepreneurID,
		Amount:         amount,
	})
	require.NoError(t, err)
	return session
}

func confirmSession(t *testing.T, module challengeservice.Module, sessionID string) httptransport.GenericResponse {
	t.Helper()
	resp, err := module.Handler.PaymentWebhookHandler(context.Background(), httptransport.PaymentWebhookRequest{
		SessionID: sessionID,
		Status:    "SUCCEEDED",
	})
	require.NoError(t, err)
	return resp
}

func TestCreateChallengeLinksTombolaMonth(t *testing.T) {
	module, tombola, _, _ := newTestModule()
	ctx := context.Background()

	created, err := module.Handler.CreateChallengeHandler(ctx, httptransport.CreateChallengeRequest{
		Month:        5,
		Year:         2026,
		CampaignName: "Impact Mai 2026",
	})
	require.NoError(t, err)
	assert.Equal(t, "draft", created.Data.Status)
	assert.Equal(t, "tm_2026-05", created.Data.TombolaMonthID)
	assert.Equal(t, "2026-05-01T00:00:00Z", created.Data.StartDate)
	assert.Equal(t, "2026-06-01T00:00:00Z", created.Data.EndDate)
	assert.Len(t, tombola.months, 1)

	// One campaign per calendar period.
	_, err = module.Handler.CreateChallengeHandler(ctx, httptransport.CreateChallengeRequest{
		Month:        5,
		Year:         2026,
		CampaignName: "Doublon",
	})
	assert.ErrorIs(t, err, domainerrors.ErrChallengeExists)

	_, err = module.Handler.CreateChallengeHandler(ctx, httptransport.CreateChallengeRequest{
		Month:        13,
		Year:         2026,
		CampaignName: "Mois invalide",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidRequest)

	current, err := module.Handler.CurrentChallengeHandler(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.Data.ChallengeID, current.Data.ChallengeID)
}

func TestChallengeLifecycle(t *testing.T) {
	module, _, _, _ := newTestModule()
	ctx := context.Background()

	created, err := module.Handler.CreateChallengeHandler(ctx, httptransport.CreateChallengeRequest{
		Month:        5,
		Year:         2026,
		CampaignName: "Impact Mai 2026",
	})
	require.NoError(t, err)
	challengeID := created.Data.ChallengeID

	// voting_closed is only reachable through the close-voting flow.
	_, err = module.Handler.SetStatusHandler(ctx, challengeID, httptransport.SetStatusRequest{Status: "voting_closed"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)

	activated, err := module.Handler.SetStatusHandler(ctx, challengeID, httptransport.SetStatusRequest{Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, "active", activated.Data.Status)

	// An active campaign is no longer deletable.
	_, err = module.Handler.DeleteChallengeHandler(ctx, challengeID)
	assert.ErrorIs(t, err, domainerrors.ErrChallengeNotDeletable)

	cancelled, err := module.Handler.SetStatusHandler(ctx, challengeID, httptransport.SetStatusRequest{Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Data.Status)

	// cancelled is terminal.
	_, err = module.Handler.SetStatusHandler(ctx, challengeID, httptransport.SetStatusRequest{Status: "active"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)

	draft, err := module.Handler.CreateChallengeHandler(ctx, httptransport.CreateChallengeRequest{
		Month:        6,
		Year:         2026,
		CampaignName: "Impact Juin 2026",
	})
	require.NoError(t, err)
	_, err = module.Handler.DeleteChallengeHandler(ctx, draft.Data.ChallengeID)
	require.NoError(t, err)
	_, err = module.Handler.GetChallengeHandler(ctx, draft.Data.ChallengeID)
	assert.ErrorIs(t, err, domainerrors.ErrChallengeNotFound)
}

func TestRosterCapVideoLimitAndApproval(t *testing.T) {
	module, _, _, _ := newTestModule()
	ctx := context.Background()
	challenge := createActiveChallenge(t, module)

	for i := 1; i <= 3; i++ {
		_, err := module.Handler.AddEntrepreneurHandler(ctx, challenge.ChallengeID, httptransport.AddEntrepreneurRequest{
			UserID:      fmt.Sprintf("user_%d", i),
			ProjectName: fmt.Sprintf("Projet %d", i),
		})
		require.NoError(t, err)
	}
	_, err := module.Handler.AddEntrepreneurHandler(ctx, challenge.ChallengeID, httptransport.AddEntrepreneurRequest{
		UserID:      "user_4",
		ProjectName: "Projet 4",
	})
	assert.ErrorIs(t, err, domainerrors.ErrRosterFull)

	other, err := module.Handler.CreateChallengeHandler(ctx, httptransport.CreateChallengeRequest{
		Month:        6,
		Year:         2026,
		CampaignName: "Impact Juin 2026",
	})
	require.NoError(t, err)
	_, err = module.Handler.AddEntrepreneurHandler(ctx, other.Data.ChallengeID, httptransport.AddEntrepreneurRequest{
		UserID:        "user_5",
		ProjectName:   "Projet video",
		VideoDuration: 91,
	})
	assert.ErrorIs(t, err, domainerrors.ErrVideoTooLong)

	// Public listing shows approved entries only; admin sees everything.
	public, err := module.Handler.EntrepreneursHandler(ctx, challenge.ChallengeID, false)
	require.NoError(t, err)
	assert.Empty(t, public.Data)
	admin, err := module.Handler.EntrepreneursHandler(ctx, challenge.ChallengeID, true)
	require.NoError(t, err)
	require.Len(t, admin.Data, 3)

	approved, err := module.Handler.ApproveEntrepreneurHandler(ctx, admin.Data[0].EntrepreneurID)
	require.NoError(t, err)
	assert.True(t, approved.Data.Approved)

	// Approving twice is a no-op.
	again, err := module.Handler.ApproveEntrepreneurHandler(ctx, admin.Data[0].EntrepreneurID)
	require.NoError(t, err)
	assert.True(t, again.Data.Approved)

	public, err = module.Handler.EntrepreneursHandler(ctx, challenge.ChallengeID, false)
	require.NoError(t, err)
	assert.Len(t, public.Data, 1)
}

func TestVoteTicketWeightLadder(t *testing.T) {
	module, tombola, payments, _ := newTestModule()
	ctx := context.Background()
	challenge := createActiveChallenge(t, module)
	entrepreneur := addApprovedEntrepreneur(t, module, challenge.ChallengeID, "founder_1", "Projet A")

	// 600 FCFA = 3 votes; first three tickets carry weight 1.0.
	session := initiateVote(t, module, "user_1", challenge.ChallengeID, entrepreneur.EntrepreneurID, 600)
	assert.Equal(t, 3, session.Data.VoteQuantity)
	assert.Equal(t, 3, session.Data.TicketQuantity)
	intent := payments.last()
	assert.Equal(t, "CHALLENGE_VOTE", intent.PaymentType)
	assert.Equal(t, "3", intent.Metadata["ticketsToGenerate"])
	assert.Equal(t, "/api/v1/challenges/webhooks/payment-confirmation", intent.Metadata["callbackPath"])
	confirmSession(t, module, session.Data.SessionID)

	mints := tombola.mintsOf("user_1")
	require.Len(t, mints, 3)
	for _, mint := range mints {
		assert.Equal(t, 1.0, mint.weight)
	}

	// 2600 FCFA = 13 votes; indices 4..15 weigh 0.6, index 16 weighs 0.3.
	session = initiateVote(t, module, "user_1", challenge.ChallengeID, entrepreneur.EntrepreneurID, 2600)
	confirmSession(t, module, session.Data.SessionID)
	mints = tombola.mintsOf("user_1")
	require.Len(t, mints, 16)
	for _, mint := range mints[3:15] {
		assert.Equal(t, 0.6, mint.weight, "index %d", mint.index)
	}
	assert.Equal(t, 0.3, mints[15].weight)

	// 2400 FCFA = 12 votes but only 9 tickets remain; the vote path
	// rejects and points at Support.
	_, err := module.Handler.VoteHandler(ctx, "user_1", challenge.ChallengeID, httptransport.VoteRequest{
		EntrepreneurID: entrepreneur.EntrepreneurID,
		Amount:         2400,
	})
	require.ErrorIs(t, err, domainerrors.ErrTicketAllowanceExhausted)
	assert.Contains(t, err.Error(), "only 9 tickets left")

	// 1800 FCFA = 9 votes takes the user exactly to the cap.
	session = initiateVote(t, module, "user_1", challenge.ChallengeID, entrepreneur.EntrepreneurID, 1800)
	confirmSession(t, module, session.Data.SessionID)
	mints = tombola.mintsOf("user_1")
	require.Len(t, mints, 25)
	for _, mint := range mints[16:] {
		assert.Equal(t, 0.3, mint.weight, "index %d", mint.index)
	}

	allowance, err := module.Handler.TicketAllowanceHandler(ctx, "user_1", challenge.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, 25, allowance.Data.Used)
	assert.Equal(t, 0, allowance.Data.Available)

	_, err = module.Handler.VoteHandler(ctx, "user_1", challenge.ChallengeID, httptransport.VoteRequest{
		EntrepreneurID: entrepreneur.EntrepreneurID,
		Amount:         200,
	})
	assert.ErrorIs(t, err, domainerrors.ErrTicketAllowanceExhausted)

	// Counters carry every confirmed vote.
	reloaded, err := module.Handler.GetChallengeHandler(ctx, challenge.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), reloaded.Data.TotalCollected)
	assert.Equal(t, 25, reloaded.Data.TotalVoteCount)

	// Amounts off the price grid never open a session.
	_, err = module.Handler.VoteHandler(ctx, "user_2", challenge.ChallengeID, httptransport.VoteRequest{
		EntrepreneurID: entrepreneur.EntrepreneurID,
		Amount:         250,
	})
	assert.ErrorIs(t, err, domainerrors.ErrVoteAmountInvalid)
}

func TestSupportSkipsAllowanceAndTickets(t *testing.T) {
	module, tombola, _, _ := newTestModule()
	ctx := context.Background()
	challenge := createActiveChallenge(t, module)
	entrepreneur := addApprovedEntrepreneur(t, module, challenge.ChallengeID, "founder_1", "Projet A")

	// Anonymous support: no user, no tickets, counters still move.
	session, err := module.Handler.SupportHandler(ctx, "", challenge.ChallengeID, httptransport.VoteRequest{
		EntrepreneurID: entrepreneur.EntrepreneurID,
		Amount:         1000,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, session.Data.VoteQuantity)
	assert.Equal(t, 0, session.Data.TicketQuantity)
	confirmSession(t, module, session.Data.SessionID)

	assert.Empty(t, tombola.mints)
	reloaded, err := module.Handler.GetChallengeHandler(ctx, challenge.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), reloaded.Data.TotalCollected)
	assert.Equal(t, 5, reloaded.Data.TotalVoteCount)

	analytics, err := module.Handler.AnalyticsHandler(ctx, challenge.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, 1, analytics.Data.CompletedSupports)
	assert.Equal(t, 0, analytics.Data.CompletedVotes)
	assert.Equal(t, int64(1000), analytics.Data.SupportAmount)

	// Votes require an identified user.
	_, err = module.Handler.VoteHandler(ctx, "", challenge.ChallengeID, httptransport.VoteRequest{
		EntrepreneurID: entrepreneur.EntrepreneurID,
		Amount:         200,
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidRequest)
}

func TestWebhookIdempotency(t *testing.T) {
	module, tombola, _, _ := newTestModule()
	ctx := context.Background()
	challenge := createActiveChallenge(t, module)
	entrepreneur := addApprovedEntrepreneur(t, module, challenge.ChallengeID, "founder_1", "Projet A")

	session := initiateVote(t, module, "user_1", challenge.ChallengeID, entrepreneur.EntrepreneurID, 600)

	first := confirmSession(t, module, session.Data.SessionID)
	assert.Equal(t, "Vote confirmed", first.Message)
	second := confirmSession(t, module, session.Data.SessionID)
	assert.Equal(t, "Already processed", second.Message)

	// Counters and mints moved exactly once.
	leaderboard, err := module.Handler.LeaderboardHandler(ctx, challenge.ChallengeID)
	require.NoError(t, err)
	require.Len(t, leaderboard.Data, 1)
	assert.Equal(t, 3, leaderboard.Data[0].VoteCount)
	assert.Equal(t, int64(600), leaderboard.Data[0].TotalAmount)
	assert.Len(t, tombola.mintsOf("user_1"), 3)

	// Non-success statuses are acknowledged and ignored.
	ignored, err := module.Handler.PaymentWebhookHandler(ctx, httptransport.PaymentWebhookRequest{
		SessionID: session.Data.SessionID,
		Status:    "FAILED",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ignored", ignored.Message)

	// Unknown sessions are a permanent error for the payments service.
	_, err = module.Handler.PaymentWebhookHandler(ctx, httptransport.PaymentWebhookRequest{
		SessionID: "sess_unknown",
		Status:    "SUCCEEDED",
	})
	assert.ErrorIs(t, err, domainerrors.ErrVoteNotFound)
}

func TestMintFailureRecordsIntegrityWithoutRevertingCounters(t *testing.T) {
	module, tombola, _, ops := newTestModule()
	ctx := context.Background()
	challenge := createActiveChallenge(t, module)
	entrepreneur := addApprovedEntrepreneur(t, module, challenge.ChallengeID, "founder_1", "Projet A")

	session := initiateVote(t, module, "user_1", challenge.ChallengeID, entrepreneur.EntrepreneurID, 600)
	tombola.failCall = 2

	resp := confirmSession(t, module, session.Data.SessionID)
	assert.Equal(t, "Vote confirmed", resp.Message)
	assert.Equal(t, 1, ops.count())

	// The vote stays completed with the partial mint recorded.
	votes, err := module.Handler.VotesHandler(ctx, challenge.ChallengeID, 1, 50)
	require.NoError(t, err)
	require.Len(t, votes.Data, 1)
	assert.Equal(t, "completed", votes.Data[0].PaymentStatus)
	assert.False(t, votes.Data[0].TicketsGenerated)
	assert.Contains(t, votes.Data[0].TicketGenerationError, "mint ticket 2 of 3")
	assert.Len(t, votes.Data[0].TombolaTicketIDs, 1)

	// Counters were not reverted.
	leaderboard, err := module.Handler.LeaderboardHandler(ctx, challenge.ChallengeID)
	require.NoError(t, err)
	require.Len(t, leaderboard.Data, 1)
	assert.Equal(t, 3, leaderboard.Data[0].VoteCount)
}

func TestCloseVotingRanksByVoteCount(t *testing.T) {
	module, _, _, _ := newTestModule()
	ctx := context.Background()
	challenge := createActiveChallenge(t, module)
	first := addApprovedEntrepreneur(t, module, challenge.ChallengeID, "founder_1", "Projet A")
	second := addApprovedEntrepreneur(t, module, challenge.ChallengeID, "founder_2", "Projet B")
	third := addApprovedEntrepreneur(t, module, challenge.ChallengeID, "founder_3", "Projet C")

	session := initiateVote(t, module, "user_1", challenge.ChallengeID, second.EntrepreneurID, 600)
	confirmSession(t, module, session.Data.SessionID)
	session = initiateVote(t, module, "user_2", challenge.ChallengeID, first.EntrepreneurID, 200)
	confirmSession(t, module, session.Data.SessionID)

	closed, err := module.Handler.CloseVotingHandler(ctx, challenge.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, "voting_closed", closed.Data.Status)

	leaderboard, err := module.Handler.LeaderboardHandler(ctx, challenge.ChallengeID)
	require.NoError(t, err)
	require.Len(t, leaderboard.Data, 3)
	assert.Equal(t, second.EntrepreneurID, leaderboard.Data[0].EntrepreneurID)
	assert.Equal(t, 1, leaderboard.Data[0].Rank)
	assert.True(t, leaderboard.Data[0].IsWinner)
	assert.Equal(t, first.EntrepreneurID, leaderboard.Data[1].EntrepreneurID)
	assert.Equal(t, 2, leaderboard.Data[1].Rank)
	assert.False(t, leaderboard.Data[1].IsWinner)
	assert.Equal(t, third.EntrepreneurID, leaderboard.Data[2].EntrepreneurID)
	assert.Equal(t, 3, leaderboard.Data[2].Rank)

	// Voting is closed for good: no second close, no further votes.
	_, err = module.Handler.CloseVotingHandler(ctx, challenge.ChallengeID)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)
	_, err = module.Handler.VoteHandler(ctx, "user_3", challenge.ChallengeID, httptransport.VoteRequest{
		EntrepreneurID: first.EntrepreneurID,
		Amount:         200,
	})
	assert.ErrorIs(t, err, domainerrors.ErrChallengeNotActive)

	// Entrepreneurs with votes cannot be removed.
	_, err = module.Handler.DeleteEntrepreneurHandler(ctx, second.EntrepreneurID)
	assert.ErrorIs(t, err, domainerrors.ErrEntrepreneurHasVotes)
}

func TestDistributeFundsRounding(t *testing.T) {
	module, _, payments, _ := newFundedModule()
	ctx := context.Background()

	module.Store.SetChallenge(entities.ImpactChallenge{
		ChallengeID:    "ch_1",
		Month:          5,
		Year:           2026,
		CampaignName:   "Impact Mai 2026",
		Status:         entities.ChallengeVotingClosed,
		TombolaMonthID: "tm_2026-05",
		TotalCollected: 10007,
		TotalVoteCount: 50,
	})
	require.NoError(t, module.Store.CreateEntrepreneur(ctx, entities.Entrepreneur{
		EntrepreneurID: "ent_1",
		ChallengeID:    "ch_1",
		UserID:         "founder_1",
		ProjectName:    "Projet A",
		VoteCount:      50,
		TotalAmount:    10007,
		Rank:           1,
		IsWinner:       true,
		Approved:       true,
	}))

	// Projection before distribution: floors with remainder on commission.
	summary, err := module.Handler.FundSummaryHandler(ctx, "ch_1")
	require.NoError(t, err)
	assert.False(t, summary.Data.FundsDistributed)
	assert.Equal(t, int64(5003), summary.Data.WinnerAmount)
	assert.Equal(t, int64(3002), summary.Data.LotteryPoolAmount)
	assert.Equal(t, int64(2002), summary.Data.CommissionAmount)
	assert.Nil(t, summary.Data.Distribution)

	distributed, err := module.Handler.DistributeFundsHandler(ctx, "ch_1")
	require.NoError(t, err)
	assert.Equal(t, "funds_distributed", distributed.Data.Status)
	assert.True(t, distributed.Data.FundsDistributed)
	require.NotNil(t, distributed.Data.Distribution)
	assert.Equal(t, int64(5003), distributed.Data.Distribution.WinnerAmount)
	assert.Equal(t, int64(3002), distributed.Data.Distribution.LotteryPoolAmount)
	assert.Equal(t, int64(2002), distributed.Data.Distribution.CommissionAmount)

	require.Len(t, payments.deposits, 3)
	assert.Equal(t, deposit{account: "founder_1", amount: 5003, reference: "challenge:ch_1:winner"}, payments.deposits[0])
	assert.Equal(t, deposit{account: "acct_pool", amount: 3002, reference: "challenge:ch_1:lottery-pool"}, payments.deposits[1])
	assert.Equal(t, deposit{account: "acct_commission", amount: 2002, reference: "challenge:ch_1:commission"}, payments.deposits[2])

	// Distribution happens once.
	_, err = module.Handler.DistributeFundsHandler(ctx, "ch_1")
	assert.ErrorIs(t, err, domainerrors.ErrFundsAlreadyDistributed)

	summary, err = module.Handler.FundSummaryHandler(ctx, "ch_1")
	require.NoError(t, err)
	assert.True(t, summary.Data.FundsDistributed)
	require.NotNil(t, summary.Data.Distribution)
	assert.NotEmpty(t, summary.Data.Distribution.WinnerTransactionID)
}

func TestDistributeFundsGuards(t *testing.T) {
	module, _, payments, ops := newFundedModule()
	ctx := context.Background()

	module.Store.SetChallenge(entities.ImpactChallenge{
		ChallengeID:    "ch_1",
		Month:          5,
		Year:           2026,
		CampaignName:   "Impact Mai 2026",
		Status:         entities.ChallengeActive,
		TotalCollected: 1000,
	})

	// Only a closed vote can be paid out.
	_, err := module.Handler.DistributeFundsHandler(ctx, "ch_1")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)

	module.Store.SetChallenge(entities.ImpactChallenge{
		ChallengeID:    "ch_2",
		Month:          6,
		Year:           2026,
		CampaignName:   "Impact Juin 2026",
		Status:         entities.ChallengeVotingClosed,
		TotalCollected: 1000,
	})

	// No ranked winner, no payout.
	_, err = module.Handler.DistributeFundsHandler(ctx, "ch_2")
	assert.ErrorIs(t, err, domainerrors.ErrNoWinner)

	require.NoError(t, module.Store.CreateEntrepreneur(ctx, entities.Entrepreneur{
		EntrepreneurID: "ent_2",
		ChallengeID:    "ch_2",
		UserID:         "founder_2",
		ProjectName:    "Projet B",
		Rank:           1,
		IsWinner:       true,
		Approved:       true,
	}))

	// A deposit failure aborts before any record is written and alerts ops.
	payments.depositErr = errors.New("payments down")
	_, err = module.Handler.DistributeFundsHandler(ctx, "ch_2")
	require.Error(t, err)
	assert.Equal(t, 1, ops.count())
	reloaded, err := module.Handler.GetChallengeHandler(ctx, "ch_2")
	require.NoError(t, err)
	assert.False(t, reloaded.Data.FundsDistributed)
	assert.Equal(t, "voting_closed", reloaded.Data.Status)

	// Recovery succeeds once payments are back.
	payments.depositErr = nil
	distributed, err := module.Handler.DistributeFundsHandler(ctx, "ch_2")
	require.NoError(t, err)
	assert.True(t, distributed.Data.FundsDistributed)
}

func TestDistributeFundsRequiresPayoutAccounts(t *testing.T) {
	module, _, _, _ := newTestModule()
	ctx := context.Background()

	module.Store.SetChallenge(entities.ImpactChallenge{
		ChallengeID:    "ch_1",
		Month:          5,
		Year:           2026,
		CampaignName:   "Impact Mai 2026",
		Status:         entities.ChallengeVotingClosed,
		TotalCollected: 1000,
	})

	_, err := module.Handler.DistributeFundsHandler(ctx, "ch_1")
	assert.ErrorIs(t, err, domainerrors.ErrPayoutAccountsMissing)
}

func TestVoteRejectsUnapprovedOrForeignEntrepreneur(t *testing.T) {
	module, _, _, _ := newTestModule()
	ctx := context.Background()
	challenge := createActiveChallenge(t, module)

	pending, err := module.Handler.AddEntrepreneurHandler(ctx, challenge.ChallengeID, httptransport.AddEntrepreneurRequest{
		UserID:      "founder_1",
		ProjectName: "Projet A",
	})
	require.NoError(t, err)

	_, err = module.Handler.VoteHandler(ctx, "user_1", challenge.ChallengeID, httptransport.VoteRequest{
		EntrepreneurID: pending.Data.EntrepreneurID,
		Amount:         200,
	})
	assert.ErrorIs(t, err, domainerrors.ErrEntrepreneurNotApproved)

	other, err := module.Handler.CreateChallengeHandler(ctx, httptransport.CreateChallengeRequest{
		Month:        6,
		Year:         2026,
		CampaignName: "Impact Juin 2026",
	})
	require.NoError(t, err)
	_, err = module.Handler.SetStatusHandler(ctx, other.Data.ChallengeID, httptransport.SetStatusRequest{Status: "active"})
	require.NoError(t, err)
	foreign := addApprovedEntrepreneur(t, module, other.Data.ChallengeID, "founder_2", "Projet B")

	_, err = module.Handler.VoteHandler(ctx, "user_1", challenge.ChallengeID, httptransport.VoteRequest{
		EntrepreneurID: foreign.EntrepreneurID,
		Amount:         200,
	})
	assert.ErrorIs(t, err, domainerrors.ErrEntrepreneurMismatch)
}
