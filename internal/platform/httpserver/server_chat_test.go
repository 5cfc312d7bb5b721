package httpserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type conversationEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		ConversationID   string `json:"conversationId"`
		AcceptanceStatus string `json:"acceptanceStatus"`
		Archived         bool   `json:"archived"`
	} `json:"data"`
}

type messageEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		MessageID    string `json:"messageId"`
		Content      string `json:"content"`
		DocumentName string `json:"documentName"`
		DocumentURL  string `json:"documentUrl"`
	} `json:"data"`
}

func createConversation(t *testing.T, server *Server, token string, participantID string) string {
	t.Helper()
	rr := doJSON(t, server, http.MethodPost, "/api/v1/conversations", token, map[string]string{"participantId": participantID})
	if rr.Code != http.StatusCreated && rr.Code != http.StatusOK {
		t.Fatalf("create conversation: expected 201 or 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var envelope conversationEnvelope
	decodeBody(t, rr, &envelope)
	if envelope.Data.ConversationID == "" {
		t.Fatalf("create conversation returned no id: %s", rr.Body.String())
	}
	return envelope.Data.ConversationID
}

func sendMessage(t *testing.T, server *Server, token string, conversationID string, content string, idempotencyKey string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"conversationId": conversationID, "content": content})
	if err != nil {
		t.Fatalf("marshal message body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func TestConversationCreateIsIdempotent(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")

	first := doJSON(t, server, http.MethodPost, "/api/v1/conversations", alice, map[string]string{"participantId": "bob"})
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", first.Code, first.Body.String())
	}
	var created conversationEnvelope
	decodeBody(t, first, &created)

	replay := doJSON(t, server, http.MethodPost, "/api/v1/conversations", alice, map[string]string{"participantId": "bob"})
	if replay.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d body=%s", replay.Code, replay.Body.String())
	}
	var replayed conversationEnvelope
	decodeBody(t, replay, &replayed)
	if replayed.Data.ConversationID != created.Data.ConversationID {
		t.Fatalf("replay returned a different conversation: %s vs %s", replayed.Data.ConversationID, created.Data.ConversationID)
	}
}

func TestConversationWithSelfRejected(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")
	rr := doJSON(t, server, http.MethodPost, "/api/v1/conversations", alice, map[string]string{"participantId": "alice"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSendMessageRequiresIdempotencyKey(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")
	conversationID := createConversation(t, server, alice, "bob")

	rr := sendMessage(t, server, alice, conversationID, "hello", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSendMessageReplayReturnsSameMessage(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")
	conversationID := createConversation(t, server, alice, "bob")

	first := sendMessage(t, server, alice, conversationID, "hello", "key-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", first.Code, first.Body.String())
	}
	var sent messageEnvelope
	decodeBody(t, first, &sent)

	replay := sendMessage(t, server, alice, conversationID, "hello", "key-1")
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected 201 on replay, got %d body=%s", replay.Code, replay.Body.String())
	}
	var replayed messageEnvelope
	decodeBody(t, replay, &replayed)
	if replayed.Data.MessageID != sent.Data.MessageID {
		t.Fatalf("replay minted a new message: %s vs %s", replayed.Data.MessageID, sent.Data.MessageID)
	}
}

func TestInitiatorGateBlocksFourthMessageUntilAccept(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")
	bob := userToken(t, "bob")
	conversationID := createConversation(t, server, alice, "bob")

	status := doJSON(t, server, http.MethodGet, "/api/v1/conversations/"+conversationID+"/messaging-status", alice, nil)
	if status.Code != http.StatusOK {
		t.Fatalf("messaging-status: expected 200, got %d body=%s", status.Code, status.Body.String())
	}
	var gate struct {
		Data struct {
			CanSend           bool `json:"canSend"`
			MessagesRemaining *int `json:"messagesRemaining"`
		} `json:"data"`
	}
	decodeBody(t, status, &gate)
	if !gate.Data.CanSend || gate.Data.MessagesRemaining == nil || *gate.Data.MessagesRemaining != 3 {
		t.Fatalf("expected 3 messages remaining on a fresh conversation: %s", status.Body.String())
	}

	for i, key := range []string{"k1", "k2", "k3"} {
		rr := sendMessage(t, server, alice, conversationID, "ping", key)
		if rr.Code != http.StatusCreated {
			t.Fatalf("message %d: expected 201, got %d body=%s", i+1, rr.Code, rr.Body.String())
		}
	}

	blocked := sendMessage(t, server, alice, conversationID, "one too many", "k4")
	if blocked.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", blocked.Code, blocked.Body.String())
	}
	var envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, blocked, &envelope)
	if envelope.Message != "MESSAGE_LIMIT_REACHED" {
		t.Fatalf("expected MESSAGE_LIMIT_REACHED machine code, got %q", envelope.Message)
	}

	accept := doJSON(t, server, http.MethodPost, "/api/v1/conversations/"+conversationID+"/accept", bob, nil)
	if accept.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d body=%s", accept.Code, accept.Body.String())
	}

	unblocked := sendMessage(t, server, alice, conversationID, "free at last", "k5")
	if unblocked.Code != http.StatusCreated {
		t.Fatalf("expected 201 after accept, got %d body=%s", unblocked.Code, unblocked.Body.String())
	}
}

func TestNonParticipantCannotReadConversation(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")
	mallory := userToken(t, "mallory")
	conversationID := createConversation(t, server, alice, "bob")

	rr := doJSON(t, server, http.MethodGet, "/api/v1/conversations/"+conversationID+"/messages", mallory, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDeleteConversationArchivesForCaller(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")
	conversationID := createConversation(t, server, alice, "bob")

	deleted := doJSON(t, server, http.MethodDelete, "/api/v1/conversations/"+conversationID, alice, nil)
	if deleted.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d body=%s", deleted.Code, deleted.Body.String())
	}

	var active struct {
		Data []struct {
			ConversationID string `json:"conversationId"`
		} `json:"data"`
	}
	list := doJSON(t, server, http.MethodGet, "/api/v1/conversations", alice, nil)
	decodeBody(t, list, &active)
	if len(active.Data) != 0 {
		t.Fatalf("expected no active conversations, got %d", len(active.Data))
	}

	archived := doJSON(t, server, http.MethodGet, "/api/v1/conversations/archived", alice, nil)
	var archivedList struct {
		Data []struct {
			ConversationID string `json:"conversationId"`
		} `json:"data"`
	}
	decodeBody(t, archived, &archivedList)
	if len(archivedList.Data) != 1 || archivedList.Data[0].ConversationID != conversationID {
		t.Fatalf("expected the conversation in the archive: %s", archived.Body.String())
	}

	restored := doJSON(t, server, http.MethodPost, "/api/v1/conversations/"+conversationID+"/unarchive", alice, nil)
	if restored.Code != http.StatusOK {
		t.Fatalf("unarchive: expected 200, got %d body=%s", restored.Code, restored.Body.String())
	}
	list = doJSON(t, server, http.MethodGet, "/api/v1/conversations", alice, nil)
	active.Data = nil
	decodeBody(t, list, &active)
	if len(active.Data) != 1 {
		t.Fatalf("expected the conversation back in the active list: %s", list.Body.String())
	}
}

func TestDocumentUploadAndSignedURL(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")
	conversationID := createConversation(t, server, alice, "bob")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("document", "contract.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4 fixture")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.WriteField("conversationId", conversationID); err != nil {
		t.Fatalf("write form field: %v", err)
	}
	if err := writer.WriteField("caption", "the contract"); err != nil {
		t.Fatalf("write form field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/document", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice)
	req.Header.Set("Idempotency-Key", "doc-1")
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var sent messageEnvelope
	decodeBody(t, rr, &sent)
	if sent.Data.DocumentName != "contract.pdf" {
		t.Fatalf("expected document name to round-trip, got %q", sent.Data.DocumentName)
	}

	urlResp := doJSON(t, server, http.MethodGet, "/api/v1/messages/"+sent.Data.MessageID+"/document-url", alice, nil)
	if urlResp.Code != http.StatusOK {
		t.Fatalf("document-url: expected 200, got %d body=%s", urlResp.Code, urlResp.Body.String())
	}
	var urlEnvelope struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	decodeBody(t, urlResp, &urlEnvelope)
	if !strings.HasPrefix(urlEnvelope.Data.URL, "https://signed.example/") {
		t.Fatalf("expected a signed url, got %q", urlEnvelope.Data.URL)
	}
}

func TestDeleteMessageScopeMeHidesForCallerOnly(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")
	bob := userToken(t, "bob")
	conversationID := createConversation(t, server, alice, "bob")

	sent := sendMessage(t, server, alice, conversationID, "now you see me", "del-1")
	if sent.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", sent.Code, sent.Body.String())
	}
	var envelope messageEnvelope
	decodeBody(t, sent, &envelope)

	hidden := doJSON(t, server, http.MethodDelete, "/api/v1/messages/"+envelope.Data.MessageID+"?scope=me", alice, nil)
	if hidden.Code != http.StatusOK {
		t.Fatalf("delete scope=me: expected 200, got %d body=%s", hidden.Code, hidden.Body.String())
	}

	// Bob still sees the message untouched.
	list := doJSON(t, server, http.MethodGet, "/api/v1/conversations/"+conversationID+"/messages", bob, nil)
	if list.Code != http.StatusOK {
		t.Fatalf("list messages: expected 200, got %d body=%s", list.Code, list.Body.String())
	}
	if !strings.Contains(list.Body.String(), "now you see me") {
		t.Fatalf("expected bob to still see the message: %s", list.Body.String())
	}

	// Alice's listing no longer carries it.
	list = doJSON(t, server, http.MethodGet, "/api/v1/conversations/"+conversationID+"/messages", alice, nil)
	if strings.Contains(list.Body.String(), "now you see me") {
		t.Fatalf("expected the message hidden for alice: %s", list.Body.String())
	}
}

func TestOnlySenderCanDeleteForEveryone(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")
	bob := userToken(t, "bob")
	conversationID := createConversation(t, server, alice, "bob")

	sent := sendMessage(t, server, alice, conversationID, "mine to delete", "del-2")
	var envelope messageEnvelope
	decodeBody(t, sent, &envelope)

	rr := doJSON(t, server, http.MethodDelete, "/api/v1/messages/"+envelope.Data.MessageID, bob, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
}
