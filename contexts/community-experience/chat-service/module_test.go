package chatservice_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	chatservice "mboa/contexts/community-experience/chat-service"
	"mboa/contexts/community-experience/chat-service/application"
	"mboa/contexts/community-experience/chat-service/domain/entities"
	domainerrors "mboa/contexts/community-experience/chat-service/domain/errors"
	"mboa/contexts/community-experience/chat-service/ports"
	httptransport "mboa/contexts/community-experience/chat-service/transport/http"
	realtimev1 "mboa/contracts/realtime/v1"
)

type fakeDirectory struct {
	referrals map[string]bool
}

func (f fakeDirectory) GetUsers(_ context.Context, userIDs []string) (map[string]ports.UserSnapshot, error) {
	out := make(map[string]ports.UserSnapshot, len(userIDs))
	for _, id := range userIDs {
		out[id] = ports.UserSnapshot{UserID: id, Name: "Name " + id}
	}
	return out, nil
}

func (f fakeDirectory) HasReferralRelation(_ context.Context, userID string, otherID string) (bool, error) {
	return f.referrals[userID+"|"+otherID] || f.referrals[otherID+"|"+userID], nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeStorage) Upload(_ context.Context, input ports.UploadInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[input.Filename] = append([]byte(nil), input.Data...)
	return input.Filename, nil
}

func (f *fakeStorage) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://signed.example/" + path, nil
}

func (f *fakeStorage) SignedURLs(ctx context.Context, paths []string, expiry time.Duration) (map[string]string, error) {
	out := make(map[string]string, len(paths))
	for _, path := range paths {
		url, _ := f.SignedURL(ctx, path, expiry)
		out[path] = url
	}
	return out, nil
}

type recordedEvent struct {
	Room  string
	Event string
}

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEvents) Publish(_ context.Context, room string, event string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Room: room, Event: event})
}

func (f *fakeEvents) count(room string, event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, recorded := range f.events {
		if recorded.Room == room && recorded.Event == event {
			n++
		}
	}
	return n
}

func newTestModule(referrals map[string]bool) (chatservice.Module, *fakeEvents) {
	events := &fakeEvents{}
	module := chatservice.NewInMemoryModule(
		fakeDirectory{referrals: referrals},
		&fakeStorage{},
		events,
		nil,
	)
	return module, events
}

func TestInitiatorMessageGate(t *testing.T) {
	module, _ := newTestModule(nil)
	ctx := context.Background()

	created, _, err := module.Handler.CreateConversationHandler(ctx, "user_a", httptransport.CreateConversationRequest{
		ParticipantID: "user_b",
	})
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	conversationID := created.Data.ConversationID
	if created.Data.AcceptanceStatus != string(entities.AcceptancePending) {
		t.Fatalf("expected pending conversation, got %s", created.Data.AcceptanceStatus)
	}

	for i := 0; i < 3; i++ {
		if _, err := module.Handler.SendMessageHandler(ctx, "user_a", false, conversationID, "", httptransport.SendMessageRequest{
			Content: "hello",
		}); err != nil {
			t.Fatalf("send %d failed: %v", i+1, err)
		}
	}

	status, err := module.Handler.MessagingStatusHandler(ctx, "user_a", conversationID, false)
	if err != nil {
		t.Fatalf("messaging status failed: %v", err)
	}
	if status.Data.CanSend {
		t.Fatal("expected initiator to be blocked after three messages")
	}
	if status.Data.Reason != application.ReasonMessageLimit {
		t.Fatalf("expected reason %q, got %q", application.ReasonMessageLimit, status.Data.Reason)
	}

	_, err = module.Handler.SendMessageHandler(ctx, "user_a", false, conversationID, "", httptransport.SendMessageRequest{
		Content: "fourth message",
	})
	if !errors.Is(err, domainerrors.ErrMessageLimitReached) {
		t.Fatalf("expected message limit error, got %v", err)
	}

	// The recipient is never gated and their reply accepts the conversation.
	if _, err := module.Handler.SendMessageHandler(ctx, "user_b", false, conversationID, "", httptransport.SendMessageRequest{
		Content: "reply",
	}); err != nil {
		t.Fatalf("recipient reply failed: %v", err)
	}
	view, err := module.Handler.GetConversationHandler(ctx, "user_a", conversationID)
	if err != nil {
		t.Fatalf("get conversation failed: %v", err)
	}
	if view.Data.AcceptanceStatus != string(entities.AcceptanceAccepted) {
		t.Fatalf("expected accepted after recipient reply, got %s", view.Data.AcceptanceStatus)
	}

	if _, err := module.Handler.SendMessageHandler(ctx, "user_a", false, conversationID, "", httptransport.SendMessageRequest{
		Content: "unlimited now",
	}); err != nil {
		t.Fatalf("send after acceptance failed: %v", err)
	}
}

func TestReferralRelationLiftsGate(t *testing.T) {
	module, _ := newTestModule(map[string]bool{"user_a|user_b": true})
	ctx := context.Background()

	created, _, err := module.Handler.CreateConversationHandler(ctx, "user_a", httptransport.CreateConversationRequest{
		ParticipantID: "user_b",
	})
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := module.Handler.SendMessageHandler(ctx, "user_a", false, created.Data.ConversationID, "", httptransport.SendMessageRequest{
			Content: "referral message",
		}); err != nil {
			t.Fatalf("send %d failed: %v", i+1, err)
		}
	}
}

func TestSelfConversationRejected(t *testing.T) {
	module, _ := newTestModule(nil)

	_, _, err := module.Handler.CreateConversationHandler(context.Background(), "user_a", httptransport.CreateConversationRequest{
		ParticipantID: "user_a",
	})
	if !errors.Is(err, domainerrors.ErrSelfConversation) {
		t.Fatalf("expected self conversation error, got %v", err)
	}
}

func TestReportClosesMessagingForBothSides(t *testing.T) {
	module, _ := newTestModule(nil)
	ctx := context.Background()

	created, _, err := module.Handler.CreateConversationHandler(ctx, "user_a", httptransport.CreateConversationRequest{
		ParticipantID: "user_b",
	})
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	conversationID := created.Data.ConversationID

	if _, err := module.Handler.ReportConversationHandler(ctx, "user_b", conversationID); err != nil {
		t.Fatalf("report failed: %v", err)
	}

	_, err = module.Handler.SendMessageHandler(ctx, "user_a", false, conversationID, "", httptransport.SendMessageRequest{
		Content: "should be rejected",
	})
	if !errors.Is(err, domainerrors.ErrConversationBlocked) {
		t.Fatalf("expected blocked error for initiator, got %v", err)
	}
	_, err = module.Handler.SendMessageHandler(ctx, "user_b", false, conversationID, "", httptransport.SendMessageRequest{
		Content: "also rejected",
	})
	if !errors.Is(err, domainerrors.ErrConversationBlocked) {
		t.Fatalf("expected blocked error for reporter, got %v", err)
	}

	// Accepting a reported conversation must not reopen it.
	if _, err := module.Handler.AcceptConversationHandler(ctx, "user_b", conversationID); !errors.Is(err, domainerrors.ErrConversationBlocked) {
		t.Fatalf("expected blocked error on accept, got %v", err)
	}
}

func TestSendMessageIdempotentReplay(t *testing.T) {
	module, _ := newTestModule(nil)
	ctx := context.Background()

	created, _, err := module.Handler.CreateConversationHandler(ctx, "user_a", httptransport.CreateConversationRequest{
		ParticipantID: "user_b",
	})
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	conversationID := created.Data.ConversationID

	first, err := module.Handler.SendMessageHandler(ctx, "user_a", false, conversationID, "idem-send-1", httptransport.SendMessageRequest{
		Content: "hello once",
	})
	if err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	second, err := module.Handler.SendMessageHandler(ctx, "user_a", false, conversationID, "idem-send-1", httptransport.SendMessageRequest{
		Content: "hello once",
	})
	if err != nil {
		t.Fatalf("replayed send failed: %v", err)
	}
	if first.Data.MessageID != second.Data.MessageID {
		t.Fatalf("expected replay to return same message id, got %s and %s", first.Data.MessageID, second.Data.MessageID)
	}

	_, err = module.Handler.SendMessageHandler(ctx, "user_a", false, conversationID, "idem-send-1", httptransport.SendMessageRequest{
		Content: "different payload",
	})
	if !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}

	// The replay must not have consumed the initiator allowance twice.
	status, err := module.Handler.MessagingStatusHandler(ctx, "user_a", conversationID, false)
	if err != nil {
		t.Fatalf("messaging status failed: %v", err)
	}
	if status.Data.MessagesRemaining == nil || *status.Data.MessagesRemaining != 2 {
		t.Fatalf("expected 2 messages remaining, got %+v", status.Data.MessagesRemaining)
	}
}

func TestUnreadCountsAndMarkRead(t *testing.T) {
	module, events := newTestModule(nil)
	ctx := context.Background()

	created, _, err := module.Handler.CreateConversationHandler(ctx, "user_a", httptransport.CreateConversationRequest{
		ParticipantID: "user_b",
	})
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	conversationID := created.Data.ConversationID

	for i := 0; i < 2; i++ {
		if _, err := module.Handler.SendMessageHandler(ctx, "user_a", false, conversationID, "", httptransport.SendMessageRequest{
			Content: "unread message",
		}); err != nil {
			t.Fatalf("send failed: %v", err)
		}
	}

	list, err := module.Handler.ListConversationsHandler(ctx, "user_b", false, 1, 20)
	if err != nil {
		t.Fatalf("list conversations failed: %v", err)
	}
	if len(list.Data) != 1 {
		t.Fatalf("expected one conversation, got %d", len(list.Data))
	}
	if list.Data[0].UnreadCount != 2 {
		t.Fatalf("expected unread count 2, got %d", list.Data[0].UnreadCount)
	}
	if len(list.Data[0].Peers) != 1 || list.Data[0].Peers[0].UserID != "user_a" {
		t.Fatalf("expected peer snapshot for user_a, got %+v", list.Data[0].Peers)
	}

	marked, err := module.Handler.MarkConversationReadHandler(ctx, "user_b", conversationID)
	if err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if counts, ok := marked.Data.(map[string]int); !ok || counts["count"] != 2 {
		t.Fatalf("expected 2 marked messages, got %+v", marked.Data)
	}
	if events.count(realtimev1.ConversationRoom(conversationID), realtimev1.EventMessageRead) == 0 {
		t.Fatal("expected a message:read event on the conversation room")
	}

	list, err = module.Handler.ListConversationsHandler(ctx, "user_b", false, 1, 20)
	if err != nil {
		t.Fatalf("second list failed: %v", err)
	}
	if list.Data[0].UnreadCount != 0 {
		t.Fatalf("expected unread count 0 after mark read, got %d", list.Data[0].UnreadCount)
	}
}

func TestSendEventsFanOut(t *testing.T) {
	module, events := newTestModule(nil)
	ctx := context.Background()

	created, _, err := module.Handler.CreateConversationHandler(ctx, "user_a", httptransport.CreateConversationRequest{
		ParticipantID: "user_b",
	})
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	conversationID := created.Data.ConversationID

	if _, err := module.Handler.SendMessageHandler(ctx, "user_a", false, conversationID, "", httptransport.SendMessageRequest{
		Content: "fan out",
	}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if events.count(realtimev1.ConversationRoom(conversationID), realtimev1.EventMessageNew) != 1 {
		t.Fatal("expected message:new on the conversation room")
	}
	if events.count(realtimev1.UserRoom("user_b"), realtimev1.EventMessageNotification) != 1 {
		t.Fatal("expected message:notification on the recipient room")
	}
	if events.count(realtimev1.UserRoom("user_a"), realtimev1.EventMessageSent) != 1 {
		t.Fatal("expected message:sent ack on the sender room")
	}
}

func TestMessageGroupingLabels(t *testing.T) {
	module, _ := newTestModule(nil)
	ctx := context.Background()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	module.Store.SetNowFunc(func() time.Time { return now })

	conversation := entities.Conversation{
		ConversationID:   "conv_group",
		Type:             entities.ConversationTypeDirect,
		Participants:     []string{"user_a", "user_b"},
		InitiatorID:      "user_a",
		AcceptanceStatus: entities.AcceptanceAccepted,
		CreatedAt:        now.Add(-100 * time.Hour),
		UpdatedAt:        now,
	}
	module.Store.SetConversation(conversation)

	seed := func(id string, createdAt time.Time, content string) {
		module.Store.SetMessage(entities.Message{
			MessageID:      id,
			ConversationID: "conv_group",
			SenderID:       "user_a",
			Type:           entities.MessageTypeText,
			Content:        content,
			Status:         entities.MessageStatusSent,
			ReadBy:         []string{"user_a"},
			DeliveredTo:    []string{"user_a"},
			CreatedAt:      createdAt,
			UpdatedAt:      createdAt,
		})
	}
	seed("msg_old", now.Add(-80*time.Hour), "old message")
	seed("msg_yesterday", now.Add(-26*time.Hour), "yesterday message")
	seed("msg_today_1", now.Add(-2*time.Hour), "first today")
	seed("msg_today_2", now.Add(-1*time.Hour), "second today")

	resp, err := module.Handler.ListMessagesHandler(ctx, "user_b", "conv_group", 1, 50)
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	if len(resp.Data) != 3 {
		t.Fatalf("expected 3 date groups, got %d", len(resp.Data))
	}
	if resp.Data[0].Date != "Mar 7, 2026" {
		t.Fatalf("expected oldest group label 'Mar 7, 2026', got %q", resp.Data[0].Date)
	}
	if resp.Data[1].Date != "Yesterday" {
		t.Fatalf("expected 'Yesterday' label, got %q", resp.Data[1].Date)
	}
	if resp.Data[2].Date != "Today" {
		t.Fatalf("expected 'Today' label, got %q", resp.Data[2].Date)
	}
	today := resp.Data[2].Messages
	if len(today) != 2 || today[0].MessageID != "msg_today_1" || today[1].MessageID != "msg_today_2" {
		t.Fatalf("expected today messages in ascending order, got %+v", today)
	}
	if resp.Pagination == nil || resp.Pagination.TotalCount != 4 {
		t.Fatalf("expected pagination total 4, got %+v", resp.Pagination)
	}
}

func TestDocumentSigningNeverExposesStoragePath(t *testing.T) {
	module, _ := newTestModule(nil)
	ctx := context.Background()

	created, _, err := module.Handler.CreateConversationHandler(ctx, "user_a", httptransport.CreateConversationRequest{
		ParticipantID: "user_b",
	})
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	conversationID := created.Data.ConversationID

	sent, err := module.Handler.SendDocumentHandler(ctx, "user_a", false, conversationID, "", httptransport.SendDocumentRequest{
		Caption:  "quarterly report",
		Filename: "report.pdf",
		MimeType: "application/pdf",
		Size:     4,
		Data:     []byte("%PDF"),
	})
	if err != nil {
		t.Fatalf("send document failed: %v", err)
	}
	if !strings.HasPrefix(sent.Data.DocumentURL, "https://signed.example/") {
		t.Fatalf("expected signed url, got %q", sent.Data.DocumentURL)
	}
	if strings.Contains(sent.Data.DocumentURL, entities.DocumentURLScheme) {
		t.Fatalf("signed url leaked the storage scheme: %q", sent.Data.DocumentURL)
	}

	fresh, err := module.Handler.DocumentURLHandler(ctx, "user_b", sent.Data.MessageID)
	if err != nil {
		t.Fatalf("document url failed: %v", err)
	}
	payload, ok := fresh.Data.(map[string]string)
	if !ok || !strings.HasPrefix(payload["url"], "https://signed.example/") {
		t.Fatalf("expected fresh signed url, got %+v", fresh.Data)
	}
}

func TestForwardCopiesContentWithoutReply(t *testing.T) {
	module, _ := newTestModule(nil)
	ctx := context.Background()

	first, _, err := module.Handler.CreateConversationHandler(ctx, "user_a", httptransport.CreateConversationRequest{
		ParticipantID: "user_b",
	})
	if err != nil {
		t.Fatalf("create first conversation failed: %v", err)
	}
	second, _, err := module.Handler.CreateConversationHandler(ctx, "user_a", httptransport.CreateConversationRequest{
		ParticipantID: "user_c",
	})
	if err != nil {
		t.Fatalf("create second conversation failed: %v", err)
	}

	sent, err := module.Handler.SendMessageHandler(ctx, "user_a", false, first.Data.ConversationID, "", httptransport.SendMessageRequest{
		Content: "original",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	replied, err := module.Handler.SendMessageHandler(ctx, "user_b", false, first.Data.ConversationID, "", httptransport.SendMessageRequest{
		Content:   "a reply",
		ReplyToID: sent.Data.MessageID,
	})
	if err != nil {
		t.Fatalf("reply failed: %v", err)
	}
	if replied.Data.ReplyTo == nil || replied.Data.ReplyTo.MessageID != sent.Data.MessageID {
		t.Fatalf("expected reply reference, got %+v", replied.Data.ReplyTo)
	}

	forwarded, err := module.Handler.ForwardMessagesHandler(ctx, "user_a", false, httptransport.ForwardMessagesRequest{
		MessageIDs:      []string{replied.Data.MessageID},
		ConversationIDs: []string{second.Data.ConversationID},
	})
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	if len(forwarded.Data) != 1 {
		t.Fatalf("expected one forwarded message, got %d", len(forwarded.Data))
	}
	copyDTO := forwarded.Data[0]
	if copyDTO.Content != "a reply" {
		t.Fatalf("expected forwarded content to match, got %q", copyDTO.Content)
	}
	if copyDTO.ReplyTo != nil {
		t.Fatal("forwarded copies must not carry the reply reference")
	}
	if copyDTO.MessageID == replied.Data.MessageID {
		t.Fatal("forwarded copy must be a new message")
	}

	// Forwarding into a conversation the actor is not part of fails before
	// any copy is written.
	foreign, _, err := module.Handler.CreateConversationHandler(ctx, "user_d", httptransport.CreateConversationRequest{
		ParticipantID: "user_e",
	})
	if err != nil {
		t.Fatalf("create foreign conversation failed: %v", err)
	}
	_, err = module.Handler.ForwardMessagesHandler(ctx, "user_a", false, httptransport.ForwardMessagesRequest{
		MessageIDs:      []string{sent.Data.MessageID},
		ConversationIDs: []string{foreign.Data.ConversationID},
	})
	if !errors.Is(err, domainerrors.ErrNotParticipant) {
		t.Fatalf("expected not participant error, got %v", err)
	}
}

func TestSoftDeleteHidesContent(t *testing.T) {
	module, _ := newTestModule(nil)
	ctx := context.Background()

	created, _, err := module.Handler.CreateConversationHandler(ctx, "user_a", httptransport.CreateConversationRequest{
		ParticipantID: "user_b",
	})
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	sent, err := module.Handler.SendMessageHandler(ctx, "user_a", false, created.Data.ConversationID, "", httptransport.SendMessageRequest{
		Content: "to be deleted",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	_, err = module.Handler.DeleteMessageHandler(ctx, "user_b", sent.Data.MessageID)
	if !errors.Is(err, domainerrors.ErrNotSender) {
		t.Fatalf("expected not sender error, got %v", err)
	}

	deleted, err := module.Handler.DeleteMessageHandler(ctx, "user_a", sent.Data.MessageID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !deleted.Data.Deleted {
		t.Fatal("expected deleted flag")
	}
	if deleted.Data.Content != "" {
		t.Fatalf("expected content hidden after delete, got %q", deleted.Data.Content)
	}
}

func TestArchiveRestoreRoundTrip(t *testing.T) {
	module, _ := newTestModule(nil)
	ctx := context.Background()

	created, _, err := module.Handler.CreateConversationHandler(ctx, "user_a", httptransport.CreateConversationRequest{
		ParticipantID: "user_b",
	})
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	conversationID := created.Data.ConversationID

	if _, err := module.Handler.ArchiveConversationHandler(ctx, "user_a", conversationID); err != nil {
		t.Fatalf("archive failed: %v", err)
	}

	active, err := module.Handler.ListConversationsHandler(ctx, "user_a", false, 1, 20)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active.Data) != 0 {
		t.Fatalf("expected empty active list, got %d", len(active.Data))
	}
	archived, err := module.Handler.ListConversationsHandler(ctx, "user_a", true, 1, 20)
	if err != nil {
		t.Fatalf("list archived failed: %v", err)
	}
	if len(archived.Data) != 1 {
		t.Fatalf("expected one archived conversation, got %d", len(archived.Data))
	}

	// Archival is per participant.
	otherSide, err := module.Handler.ListConversationsHandler(ctx, "user_b", false, 1, 20)
	if err != nil {
		t.Fatalf("list for other side failed: %v", err)
	}
	if len(otherSide.Data) != 1 {
		t.Fatalf("expected conversation still visible to user_b, got %d", len(otherSide.Data))
	}

	// Sending restores the conversation for the sender.
	if _, err := module.Handler.SendMessageHandler(ctx, "user_a", false, conversationID, "", httptransport.SendMessageRequest{
		Content: "back again",
	}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	active, err = module.Handler.ListConversationsHandler(ctx, "user_a", false, 1, 20)
	if err != nil {
		t.Fatalf("list after send failed: %v", err)
	}
	if len(active.Data) != 1 {
		t.Fatalf("expected conversation restored after send, got %d", len(active.Data))
	}
}
