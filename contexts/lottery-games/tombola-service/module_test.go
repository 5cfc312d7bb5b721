package tombolaservice_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tombolaservice "mboa/contexts/lottery-games/tombola-service"
	"mboa/contexts/lottery-games/tombola-service/domain/entities"
	domainerrors "mboa/contexts/lottery-games/tombola-service/domain/errors"
	"mboa/contexts/lottery-games/tombola-service/ports"
	httptransport "mboa/contexts/lottery-games/tombola-service/transport/http"
)

type fakePayments struct {
	mu      sync.Mutex
	intents []ports.PaymentIntentInput
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

func (f *fakePayments) last() ports.PaymentIntentInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.intents[len(f.intents)-1]
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) Send(_ context.Context, userID string, _ ports.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, userID)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeOps struct {
	mu        sync.Mutex
	integrity []string
	draws     []string
}

func (f *fakeOps) IntegrityError(sessionID string, refID string, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.integrity = append(f.integrity, sessionID+"|"+refID)
}

func (f *fakeOps) DrawReport(month int, year int, winnerCount int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draws = append(f.draws, fmt.Sprintf("%04d-%02d:%d", year, month, winnerCount))
}

func newTestModule() (tombolaservice.Module, *fakePayments, *fakeNotifier, *fakeOps) {
	payments := &fakePayments{}
	notifier := &fakeNotifier{}
	ops := &fakeOps{}
	module := tombolaservice.NewInMemoryModule(payments, notifier, ops, nil)
	module.Store.SetNowFunc(func() time.Time {
		return time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)
	})
	return module, payments, notifier, ops
}

func seedTicket(t *testing.T, module tombolaservice.Module, monthID string, userID string, number int, weight float64) {
	t.Helper()
	err := module.Store.CreateTicket(context.Background(), entities.Ticket{
		TicketID:        fmt.Sprintf("SEED%08d", number),
		UserID:          userID,
		MonthID:         monthID,
		TicketNumber:    number,
		Weight:          weight,
		UserTicketIndex: number,
		SourceType:      entities.SourceDirectPurchase,
		PaymentIntentID: fmt.Sprintf("seed_sess_%d", number),
		CreatedAt:       time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func TestCreateMonthLifecycle(t *testing.T) {
	module, _, _, _ := newTestModule()
	ctx := context.Background()

	april, err := module.Handler.CreateMonthHandler(ctx, httptransport.CreateMonthRequest{Month: 4, Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, "open", april.Data.Status)

	// Opening May closes April.
	may, err := module.Handler.CreateMonthHandler(ctx, httptransport.CreateMonthRequest{Month: 5, Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, "open", may.Data.Status)

	reloaded, err := module.Handler.GetMonthHandler(ctx, april.Data.MonthID)
	require.NoError(t, err)
	assert.Equal(t, "closed", reloaded.Data.Status)

	current, err := module.Handler.CurrentMonthHandler(ctx)
	require.NoError(t, err)
	assert.Equal(t, may.Data.MonthID, current.Data.MonthID)

	_, err = module.Handler.CreateMonthHandler(ctx, httptransport.CreateMonthRequest{Month: 5, Year: 2026})
	assert.ErrorIs(t, err, domainerrors.ErrMonthExists)

	_, err = module.Handler.CreateMonthHandler(ctx, httptransport.CreateMonthRequest{Month: 7, Year: 2026})
	assert.ErrorIs(t, err, domainerrors.ErrMonthInFuture)

	// Re-opening April closes May again.
	_, err = module.Handler.SetStatusHandler(ctx, april.Data.MonthID, httptransport.SetStatusRequest{Status: "open"})
	require.NoError(t, err)
	current, err = module.Handler.CurrentMonthHandler(ctx)
	require.NoError(t, err)
	assert.Equal(t, april.Data.MonthID, current.Data.MonthID)
}

func TestBuyTicketAndConfirm(t *testing.T) {
	module, payments, _, _ := newTestModule()
	ctx := context.Background()

	month, err := module.Handler.CreateMonthHandler(ctx, httptransport.CreateMonthRequest{Month: 5, Year: 2026})
	require.NoError(t, err)

	purchase, err := module.Handler.BuyTicketHandler(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), purchase.Data.Amount)
	assert.Equal(t, "XAF", purchase.Data.Currency)
	require.NotEmpty(t, purchase.Data.TicketID)
	assert.Len(t, purchase.Data.TicketID, 12)

	intent := payments.last()
	assert.Equal(t, "TOMBOLA_TICKET", intent.PaymentType)
	assert.Equal(t, purchase.Data.TicketID, intent.Metadata["ticketId"])
	assert.Equal(t, month.Data.MonthID, intent.Metadata["monthId"])

	// No ticket exists until the webhook confirms payment.
	numbers, err := module.Handler.TicketNumbersHandler(ctx, month.Data.MonthID)
	require.NoError(t, err)
	assert.Empty(t, numbers.Data)

	webhook := httptransport.PaymentWebhookRequest{
		SessionID: purchase.Data.SessionID,
		Status:    "SUCCEEDED",
		Metadata:  intent.Metadata,
	}
	first, err := module.Handler.PaymentWebhookHandler(ctx, webhook)
	require.NoError(t, err)
	assert.Equal(t, "Ticket created", first.Message)

	// Replays return the original mint.
	second, err := module.Handler.PaymentWebhookHandler(ctx, webhook)
	require.NoError(t, err)
	assert.Equal(t, "Already processed", second.Message)

	mine, err := module.Handler.MyTicketsHandler(ctx, "user_1", 1, 50)
	require.NoError(t, err)
	require.Len(t, mine.Data, 1)
	assert.Equal(t, 1, mine.Data[0].TicketNumber)
	assert.Equal(t, 1.0, mine.Data[0].Weight)
	assert.Equal(t, "direct_purchase", mine.Data[0].SourceType)

	// A failed payment is acknowledged and ignored.
	ignored, err := module.Handler.PaymentWebhookHandler(ctx, httptransport.PaymentWebhookRequest{
		SessionID: "sess_other",
		Status:    "FAILED",
		Metadata:  intent.Metadata,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ignored", ignored.Message)
}

func TestBuyTicketCapAndIntegrityAlert(t *testing.T) {
	module, payments, _, ops := newTestModule()
	ctx := context.Background()

	month, err := module.Handler.CreateMonthHandler(ctx, httptransport.CreateMonthRequest{Month: 5, Year: 2026})
	require.NoError(t, err)
	for number := 1; number <= 25; number++ {
		seedTicket(t, module, month.Data.MonthID, "user_1", number, entities.WeightForIndex(number))
	}

	_, err = module.Handler.BuyTicketHandler(ctx, "user_1")
	assert.ErrorIs(t, err, domainerrors.ErrTicketCapReached)

	// A payment that slipped past the cap is never minted; ops is alerted
	// for manual reconciliation.
	_, err = module.Handler.PaymentWebhookHandler(ctx, httptransport.PaymentWebhookRequest{
		SessionID: "sess_late",
		Status:    "SUCCEEDED",
		Metadata: map[string]string{
			"ticketId": "LATETOKEN001",
			"monthId":  month.Data.MonthID,
			"userId":   "user_1",
		},
	})
	assert.ErrorIs(t, err, domainerrors.ErrTicketCapReached)
	assert.Equal(t, []string{"sess_late|LATETOKEN001"}, ops.integrity)
	assert.Empty(t, payments.intents)
}

func TestVoteTicketMintWeightLadder(t *testing.T) {
	module, _, _, _ := newTestModule()
	ctx := context.Background()

	month, err := module.Months.CreateMonth(ctx, ports.CreateMonthInput{Month: 5, Year: 2026})
	require.NoError(t, err)

	cases := []struct {
		index  int
		weight float64
	}{
		{1, 1.0}, {3, 1.0}, {4, 0.6}, {15, 0.6}, {16, 0.3}, {25, 0.3},
	}
	for _, tc := range cases {
		ticket, err := module.Tickets.MintVoteTicket(ctx, ports.MintTicketInput{
			MonthID:         month.MonthID,
			UserID:          "user_1",
			PaymentIntentID: "sess_vote",
			ChallengeVoteID: "vote_1",
			UserTicketIndex: tc.index,
		})
		require.NoError(t, err)
		assert.Equal(t, tc.weight, ticket.Weight, "index %d", tc.index)
		assert.Equal(t, entities.SourceChallengeVote, ticket.SourceType)
	}

	// Numbering is dense and sequential in mint order.
	numbers, err := module.Tickets.TicketNumbers(ctx, month.MonthID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, numbers)

	// Replaying an already minted index returns the existing ticket and
	// does not advance the counter.
	replay, err := module.Tickets.MintVoteTicket(ctx, ports.MintTicketInput{
		MonthID:         month.MonthID,
		UserID:          "user_1",
		PaymentIntentID: "sess_vote",
		ChallengeVoteID: "vote_1",
		UserTicketIndex: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, replay.TicketNumber)
	reloaded, err := module.Months.Get(ctx, month.MonthID)
	require.NoError(t, err)
	assert.Equal(t, 6, reloaded.LastTicketNumber)

	// Index 26 is past the cap and earns nothing.
	_, err = module.Tickets.MintVoteTicket(ctx, ports.MintTicketInput{
		MonthID:         month.MonthID,
		UserID:          "user_1",
		PaymentIntentID: "sess_vote",
		ChallengeVoteID: "vote_1",
		UserTicketIndex: 26,
	})
	assert.ErrorIs(t, err, domainerrors.ErrTicketCapReached)
}

func TestDrawExcludesPreviousWinnersAndRanksDistinctUsers(t *testing.T) {
	module, _, notifier, ops := newTestModule()
	ctx := context.Background()

	month, err := module.Months.CreateMonth(ctx, ports.CreateMonthInput{Month: 5, Year: 2026})
	require.NoError(t, err)
	month.PreviousMonthWinners = []string{"user_1"}
	module.Store.SetMonth(month)

	// user_2 holds the earliest tickets so a zero draw picks them first.
	seedTicket(t, module, month.MonthID, "user_2", 1, 1.0)
	seedTicket(t, module, month.MonthID, "user_2", 2, 1.0)
	seedTicket(t, module, month.MonthID, "user_2", 3, 1.0)
	seedTicket(t, module, month.MonthID, "user_3", 4, 0.6)
	seedTicket(t, module, month.MonthID, "user_3", 5, 0.6)
	for number := 6; number <= 15; number++ {
		seedTicket(t, module, month.MonthID, "user_1", number, 1.0)
	}

	module.Months.Uniform = func(total float64) float64 { return 0 }
	drawn, err := module.Months.DrawWinners(ctx, month.MonthID)
	require.NoError(t, err)

	require.Len(t, drawn.Winners, 2)
	assert.Equal(t, "user_2", drawn.Winners[0].UserID)
	assert.Equal(t, "Bike", drawn.Winners[0].Prize)
	assert.Equal(t, 1, drawn.Winners[0].WinningTicketNumber)
	assert.Equal(t, "user_3", drawn.Winners[1].UserID)
	assert.Equal(t, "Phone", drawn.Winners[1].Prize)
	assert.Equal(t, entities.MonthClosed, drawn.Status)
	assert.False(t, drawn.DrawDate.IsZero())

	assert.Equal(t, []string{"2026-05:2"}, ops.draws)
	assert.Eventually(t, func() bool { return notifier.count() == 2 }, time.Second, 10*time.Millisecond)

	// The draw is final.
	_, err = module.Months.DrawWinners(ctx, month.MonthID)
	assert.ErrorIs(t, err, domainerrors.ErrDrawNotAllowed)
}

func TestDrawFallthroughPicksLastTicket(t *testing.T) {
	module, _, _, _ := newTestModule()
	ctx := context.Background()

	month, err := module.Months.CreateMonth(ctx, ports.CreateMonthInput{Month: 5, Year: 2026})
	require.NoError(t, err)
	seedTicket(t, module, month.MonthID, "user_1", 1, 1.0)
	seedTicket(t, module, month.MonthID, "user_2", 2, 1.0)

	// A target at the very top of the range walks off the end; the last
	// ticket wins.
	module.Months.Uniform = func(total float64) float64 { return total }
	drawn, err := module.Months.DrawWinners(ctx, month.MonthID)
	require.NoError(t, err)
	require.Len(t, drawn.Winners, 2)
	assert.Equal(t, "user_2", drawn.Winners[0].UserID)
	assert.Equal(t, 2, drawn.Winners[0].WinningTicketNumber)
	assert.Equal(t, "user_1", drawn.Winners[1].UserID)
}

func TestDrawWithoutTicketsClosesMonth(t *testing.T) {
	module, _, notifier, _ := newTestModule()
	ctx := context.Background()

	month, err := module.Months.CreateMonth(ctx, ports.CreateMonthInput{Month: 5, Year: 2026})
	require.NoError(t, err)

	drawn, err := module.Months.DrawWinners(ctx, month.MonthID)
	require.NoError(t, err)
	assert.Empty(t, drawn.Winners)
	assert.Equal(t, entities.MonthClosed, drawn.Status)
	assert.Zero(t, notifier.count())
}

func TestDrawRejectsMonthWithRecordedWinners(t *testing.T) {
	module, _, _, _ := newTestModule()
	ctx := context.Background()

	month, err := module.Months.CreateMonth(ctx, ports.CreateMonthInput{Month: 5, Year: 2026})
	require.NoError(t, err)
	month.Status = entities.MonthDrawing
	month.Winners = []entities.Winner{{UserID: "user_9", Prize: "Bike", Rank: 1, WinningTicketNumber: 1}}
	module.Store.SetMonth(month)

	_, err = module.Months.DrawWinners(ctx, month.MonthID)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyDrawn)
}

func TestDeleteMonthOnlyWithoutTickets(t *testing.T) {
	module, _, _, _ := newTestModule()
	ctx := context.Background()

	month, err := module.Months.CreateMonth(ctx, ports.CreateMonthInput{Month: 5, Year: 2026})
	require.NoError(t, err)
	seedTicket(t, module, month.MonthID, "user_1", 1, 1.0)

	_, err = module.Handler.DeleteMonthHandler(ctx, month.MonthID)
	assert.ErrorIs(t, err, domainerrors.ErrMonthHasTickets)

	empty, err := module.Months.CreateMonth(ctx, ports.CreateMonthInput{Month: 4, Year: 2026})
	require.NoError(t, err)
	_, err = module.Handler.DeleteMonthHandler(ctx, empty.MonthID)
	require.NoError(t, err)
	_, err = module.Months.Get(ctx, empty.MonthID)
	assert.ErrorIs(t, err, domainerrors.ErrMonthNotFound)
}

func TestFindOrCreateMonthSeedsPreviousWinners(t *testing.T) {
	module, _, _, _ := newTestModule()
	ctx := context.Background()

	december, err := module.Months.CreateMonth(ctx, ports.CreateMonthInput{Month: 12, Year: 2025})
	require.NoError(t, err)
	december.Status = entities.MonthClosed
	december.Winners = []entities.Winner{
		{UserID: "user_1", Prize: "Bike", Rank: 1, WinningTicketNumber: 3},
		{UserID: "user_2", Prize: "Phone", Rank: 2, WinningTicketNumber: 7},
	}
	module.Store.SetMonth(december)

	// January rolls back to December of the previous year.
	january, err := module.Months.FindOrCreateMonth(ctx, 1, 2026)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user_1", "user_2"}, january.PreviousMonthWinners)

	// An existing month is returned as is.
	again, err := module.Months.FindOrCreateMonth(ctx, 1, 2026)
	require.NoError(t, err)
	assert.Equal(t, january.MonthID, again.MonthID)
}
