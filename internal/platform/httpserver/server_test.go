package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/dgrijalva/jwt-go"

	chatservice "mboa/contexts/community-experience/chat-service"
	chatapplication "mboa/contexts/community-experience/chat-service/application"
	chatports "mboa/contexts/community-experience/chat-service/ports"
	presenceservice "mboa/contexts/community-experience/presence-service"
	statusservice "mboa/contexts/community-experience/status-service"
	statusports "mboa/contexts/community-experience/status-service/ports"
	challengeservice "mboa/contexts/lottery-games/challenge-service"
	chalmemory "mboa/contexts/lottery-games/challenge-service/adapters/memory"
	chalports "mboa/contexts/lottery-games/challenge-service/ports"
	tombolaservice "mboa/contexts/lottery-games/tombola-service"
	tombapplication "mboa/contexts/lottery-games/tombola-service/application"
	tombports "mboa/contexts/lottery-games/tombola-service/ports"
	"mboa/internal/platform/realtime"
)

const (
	testJWTSecret     = "test-jwt-secret"
	testServiceSecret = "test-service-secret"
)

// stubChatDirectory resolves every user and reports no referral relations,
// so the initiator message gate stays in force.
type stubChatDirectory struct{}

func (stubChatDirectory) GetUsers(_ context.Context, userIDs []string) (map[string]chatports.UserSnapshot, error) {
	users := make(map[string]chatports.UserSnapshot, len(userIDs))
	for _, id := range userIDs {
		users[id] = chatports.UserSnapshot{UserID: id, Name: "Name " + id}
	}
	return users, nil
}

func (stubChatDirectory) HasReferralRelation(context.Context, string, string) (bool, error) {
	return false, nil
}

type stubChatStorage struct{}

func (stubChatStorage) Upload(_ context.Context, input chatports.UploadInput) (string, error) {
	return "chat-documents/" + input.Filename, nil
}

func (stubChatStorage) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://signed.example/" + path, nil
}

func (stubChatStorage) SignedURLs(_ context.Context, paths []string, _ time.Duration) (map[string]string, error) {
	urls := make(map[string]string, len(paths))
	for _, path := range paths {
		urls[path] = "https://signed.example/" + path
	}
	return urls, nil
}

type stubStatusDirectory struct{}

func (stubStatusDirectory) GetUsers(_ context.Context, userIDs []string) (map[string]statusports.UserSnapshot, error) {
	users := make(map[string]statusports.UserSnapshot, len(userIDs))
	for _, id := range userIDs {
		users[id] = statusports.UserSnapshot{UserID: id, Name: "Name " + id}
	}
	return users, nil
}

type stubStatusStorage struct{}

func (stubStatusStorage) Upload(_ context.Context, input statusports.UploadInput) (string, error) {
	return "status-media/" + input.Filename, nil
}

func (stubStatusStorage) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://signed.example/" + path, nil
}

func (stubStatusStorage) SignedURLs(_ context.Context, paths []string, _ time.Duration) (map[string]string, error) {
	urls := make(map[string]string, len(paths))
	for _, path := range paths {
		urls[path] = "https://signed.example/" + path
	}
	return urls, nil
}

// stubModeration blocks uploads whose payload contains the marker byte
// sequence and allows everything else.
type stubModeration struct{}

func (stubModeration) Moderate(_ context.Context, ref statusports.MediaRef) (statusports.ModerationResult, error) {
	if bytes.Contains(ref.Data, []byte("explicit")) {
		return statusports.ModerationResult{Action: statusports.ModerationBlock, Reason: "nudity"}, nil
	}
	return statusports.ModerationResult{Action: statusports.ModerationAllow}, nil
}

type stubTombolaPayments struct{}

func (stubTombolaPayments) CreateIntent(_ context.Context, input tombports.PaymentIntentInput) (tombports.PaymentIntent, error) {
	session := "sess-" + input.Metadata["ticketId"]
	return tombports.PaymentIntent{SessionID: session, CheckoutURL: "https://pay.example/checkout/" + session}, nil
}

type stubChallengePayments struct{}

func (stubChallengePayments) CreateIntent(_ context.Context, input chalports.PaymentIntentInput) (chalports.PaymentIntent, error) {
	session := "sess-" + input.Metadata["voteId"]
	return chalports.PaymentIntent{SessionID: session, CheckoutURL: "https://pay.example/checkout/" + session}, nil
}

func (stubChallengePayments) InternalDeposit(_ context.Context, input chalports.DepositInput) (string, error) {
	return "txn-" + input.Reference, nil
}

type stubNotifier struct{}

func (stubNotifier) Send(context.Context, string, tombports.Notification) error { return nil }

// statusReplyBridge routes status replies into the chat module, the same
// wiring the bootstrap uses in production.
type statusReplyBridge struct {
	conversations chatapplication.ConversationService
}

func (b statusReplyBridge) OpenStatusReply(ctx context.Context, statusID string, replyerID string, authorID string) (string, bool, error) {
	conversation, created, err := b.conversations.GetOrCreateStatusReply(ctx, statusID, replyerID, authorID)
	if err != nil {
		return "", false, err
	}
	return conversation.ConversationID, created, nil
}

// tombolaGateway exposes the tombola module to the challenge module the
// same way the bootstrap wires the two in production.
type tombolaGateway struct {
	months  tombapplication.MonthService
	tickets tombapplication.TicketService
}

func (g tombolaGateway) FindOrCreateMonth(ctx context.Context, month int, year int) (chalports.TombolaMonthRef, error) {
	found, err := g.months.FindOrCreateMonth(ctx, month, year)
	if err != nil {
		return chalports.TombolaMonthRef{}, err
	}
	return chalports.TombolaMonthRef{MonthID: found.MonthID}, nil
}

func (g tombolaGateway) MintTicket(ctx context.Context, input chalports.VoteTicketInput) (chalports.VoteTicketRef, error) {
	ticket, err := g.tickets.MintVoteTicket(ctx, tombports.MintTicketInput{
		MonthID:         input.MonthID,
		UserID:          input.UserID,
		PaymentIntentID: input.PaymentIntentID,
		ChallengeVoteID: input.ChallengeVoteID,
		UserTicketIndex: input.UserTicketIndex,
	})
	if err != nil {
		return chalports.VoteTicketRef{}, err
	}
	return chalports.VoteTicketRef{
		TicketID:     ticket.TicketID,
		TicketNumber: ticket.TicketNumber,
		Weight:       ticket.Weight,
	}, nil
}

func (g tombolaGateway) UserTicketCount(ctx context.Context, monthID string, userID string) (int, error) {
	return g.tickets.UserTicketCount(ctx, monthID, userID)
}

func (g tombolaGateway) MaxTickets() int { return g.tickets.MaxTickets() }

func newTestServer() *Server {
	logger := slog.Default()
	bus := realtime.NewBus(logger)
	chatModule := chatservice.NewInMemoryModule(stubChatDirectory{}, stubChatStorage{}, bus, logger)
	statusModule := statusservice.NewInMemoryModule(
		stubStatusDirectory{},
		stubStatusStorage{},
		stubModeration{},
		statusReplyBridge{conversations: chatModule.Conversations},
		bus,
		logger,
	)
	presenceModule := presenceservice.NewInMemoryModule(logger)
	tombolaModule := tombolaservice.NewInMemoryModule(stubTombolaPayments{}, stubNotifier{}, nil, logger)
	// The challenge module is built like the bootstrap builds it, with
	// payout accounts set so fund distribution is reachable.
	challengeStore := chalmemory.NewStore()
	challengeModule := challengeservice.NewModule(challengeservice.Dependencies{
		Repo:                 challengeStore,
		Tombola:              tombolaGateway{months: tombolaModule.Months, tickets: tombolaModule.Tickets},
		Payments:             stubChallengePayments{},
		Clock:                challengeStore,
		IDGen:                challengeStore,
		LotteryPoolAccountID: "acct-lottery-pool",
		CommissionAccountID:  "acct-commission",
		Logger:               logger,
	})
	return New(
		chatModule,
		statusModule,
		presenceModule,
		tombolaModule,
		challengeModule,
		bus,
		testJWTSecret,
		testServiceSecret,
		logger,
		":0",
	)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func userToken(t *testing.T, userID string) string {
	t.Helper()
	return signToken(t, testJWTSecret, jwt.MapClaims{"userId": userID, "role": "user", "name": "Name " + userID})
}

func adminToken(t *testing.T, userID string) string {
	t.Helper()
	return signToken(t, testJWTSecret, jwt.MapClaims{"userId": userID, "role": "admin", "name": "Admin " + userID})
}

// doJSON drives one request through the mux; an empty token leaves the
// request anonymous.
func doJSON(t *testing.T, server *Server, method string, target string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func doWebhook(t *testing.T, server *Server, target string, secret string, serviceName string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal webhook body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	if serviceName != "" {
		req.Header.Set("X-Service-Name", serviceName)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func TestHealthzAnswersOK(t *testing.T) {
	server := newTestServer()
	rr := doJSON(t, server, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, rr, &body)
	if !body.Success || body.Message != "ok" {
		t.Fatalf("unexpected health payload: %s", rr.Body.String())
	}
}

func TestErrorEnvelopeShape(t *testing.T) {
	server := newTestServer()
	rr := doJSON(t, server, http.MethodGet, "/api/v1/conversations", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, rr, &body)
	if body.Success {
		t.Fatalf("error envelope must carry success=false: %s", rr.Body.String())
	}
	if body.Message == "" {
		t.Fatalf("error envelope must carry a message: %s", rr.Body.String())
	}
}

func TestPaginationRejectsNegativeValues(t *testing.T) {
	server := newTestServer()
	rr := doJSON(t, server, http.MethodGet, "/api/v1/conversations?page=-1", userToken(t, "alice"), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}
