package httpserver

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type statusEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		StatusID   string `json:"statusId"`
		AuthorID   string `json:"authorId"`
		Category   string `json:"category"`
		MediaURL   string `json:"mediaUrl"`
		LikesCount int    `json:"likesCount"`
	} `json:"data"`
}

func createTextStatus(t *testing.T, server *Server, token string, category string, content string) string {
	t.Helper()
	rr := doJSON(t, server, http.MethodPost, "/api/v1/statuses", token, map[string]string{
		"category": category,
		"content":  content,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var envelope statusEnvelope
	decodeBody(t, rr, &envelope)
	if envelope.Data.StatusID == "" {
		t.Fatalf("create status returned no id: %s", rr.Body.String())
	}
	return envelope.Data.StatusID
}

func postStatusMedia(t *testing.T, server *Server, token string, category string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("category", category); err != nil {
		t.Fatalf("write form field: %v", err)
	}
	if err := writer.WriteField("mediaType", "image"); err != nil {
		t.Fatalf("write form field: %v", err)
	}
	part, err := writer.CreateFormFile("media", "snapshot.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/statuses", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func TestStatusPublishAndFeed(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")
	statusID := createTextStatus(t, server, alice, "annonces", "vends un vélo presque neuf")

	feed := doJSON(t, server, http.MethodGet, "/api/v1/statuses", userToken(t, "bob"), nil)
	if feed.Code != http.StatusOK {
		t.Fatalf("feed: expected 200, got %d body=%s", feed.Code, feed.Body.String())
	}
	var list struct {
		Data []struct {
			StatusID string `json:"statusId"`
			AuthorID string `json:"authorId"`
			Author   struct {
				Name string `json:"name"`
			} `json:"author"`
		} `json:"data"`
	}
	decodeBody(t, feed, &list)
	if len(list.Data) != 1 || list.Data[0].StatusID != statusID {
		t.Fatalf("expected the published status in the feed: %s", feed.Body.String())
	}
	if list.Data[0].AuthorID != "alice" || list.Data[0].Author.Name != "Name alice" {
		t.Fatalf("expected the author snapshot attached: %s", feed.Body.String())
	}
}

func TestStatusCategoriesCatalog(t *testing.T) {
	server := newTestServer()
	rr := doJSON(t, server, http.MethodGet, "/api/v1/statuses/categories", userToken(t, "alice"), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var catalog struct {
		Data []struct {
			Key       string `json:"key"`
			AdminOnly bool   `json:"adminOnly"`
		} `json:"data"`
	}
	decodeBody(t, rr, &catalog)
	if len(catalog.Data) == 0 {
		t.Fatalf("expected a non-empty category catalog: %s", rr.Body.String())
	}
	adminOnly := false
	for _, category := range catalog.Data {
		if category.Key == "officiel" && category.AdminOnly {
			adminOnly = true
		}
	}
	if !adminOnly {
		t.Fatalf("expected officiel to be flagged admin-only: %s", rr.Body.String())
	}
}

func TestUnknownCategoryRejected(t *testing.T) {
	server := newTestServer()
	rr := doJSON(t, server, http.MethodPost, "/api/v1/statuses", userToken(t, "alice"), map[string]string{
		"category": "no-such-category",
		"content":  "hello",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestAdminOnlyCategoryRequiresAdmin(t *testing.T) {
	server := newTestServer()
	denied := doJSON(t, server, http.MethodPost, "/api/v1/statuses", userToken(t, "alice"), map[string]string{
		"category": "officiel",
		"content":  "annonce officielle",
	})
	if denied.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d body=%s", denied.Code, denied.Body.String())
	}

	allowed := doJSON(t, server, http.MethodPost, "/api/v1/statuses", adminToken(t, "root"), map[string]string{
		"category": "officiel",
		"content":  "annonce officielle",
	})
	if allowed.Code != http.StatusCreated {
		t.Fatalf("expected 201 for admin, got %d body=%s", allowed.Code, allowed.Body.String())
	}
}

func TestStatusLikeAndUnlike(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")
	bob := userToken(t, "bob")
	statusID := createTextStatus(t, server, alice, "annonces", "aimez-moi")

	liked := doJSON(t, server, http.MethodPost, "/api/v1/statuses/"+statusID+"/like", bob, nil)
	if liked.Code != http.StatusOK {
		t.Fatalf("like: expected 200, got %d body=%s", liked.Code, liked.Body.String())
	}
	var counter struct {
		Data struct {
			LikesCount int `json:"likesCount"`
		} `json:"data"`
	}
	decodeBody(t, liked, &counter)
	if counter.Data.LikesCount != 1 {
		t.Fatalf("expected likesCount 1, got %d", counter.Data.LikesCount)
	}

	// Liking twice stays at one.
	liked = doJSON(t, server, http.MethodPost, "/api/v1/statuses/"+statusID+"/like", bob, nil)
	decodeBody(t, liked, &counter)
	if counter.Data.LikesCount != 1 {
		t.Fatalf("expected idempotent like to stay at 1, got %d", counter.Data.LikesCount)
	}

	interactions := doJSON(t, server, http.MethodGet, "/api/v1/statuses/"+statusID+"/interactions?type=likes", alice, nil)
	if interactions.Code != http.StatusOK {
		t.Fatalf("interactions: expected 200, got %d body=%s", interactions.Code, interactions.Body.String())
	}
	var who struct {
		Data []struct {
			UserID string `json:"userId"`
		} `json:"data"`
	}
	decodeBody(t, interactions, &who)
	if len(who.Data) != 1 || who.Data[0].UserID != "bob" {
		t.Fatalf("expected bob in the likes list: %s", interactions.Body.String())
	}

	unliked := doJSON(t, server, http.MethodDelete, "/api/v1/statuses/"+statusID+"/like", bob, nil)
	if unliked.Code != http.StatusOK {
		t.Fatalf("unlike: expected 200, got %d body=%s", unliked.Code, unliked.Body.String())
	}
	decodeBody(t, unliked, &counter)
	if counter.Data.LikesCount != 0 {
		t.Fatalf("expected likesCount back to 0, got %d", counter.Data.LikesCount)
	}
}

func TestStatusReplyOpensChatConversation(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")
	bob := userToken(t, "bob")
	statusID := createTextStatus(t, server, alice, "annonces", "répondez-moi")

	first := doJSON(t, server, http.MethodPost, "/api/v1/statuses/"+statusID+"/reply", bob, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("reply: expected 200, got %d body=%s", first.Code, first.Body.String())
	}
	var opened struct {
		Data struct {
			ConversationID string `json:"conversationId"`
			Created        bool   `json:"created"`
		} `json:"data"`
	}
	decodeBody(t, first, &opened)
	if opened.Data.ConversationID == "" || !opened.Data.Created {
		t.Fatalf("expected a newly opened conversation: %s", first.Body.String())
	}

	replay := doJSON(t, server, http.MethodPost, "/api/v1/statuses/"+statusID+"/reply", bob, nil)
	var reopened struct {
		Data struct {
			ConversationID string `json:"conversationId"`
			Created        bool   `json:"created"`
		} `json:"data"`
	}
	decodeBody(t, replay, &reopened)
	if reopened.Data.ConversationID != opened.Data.ConversationID || reopened.Data.Created {
		t.Fatalf("expected the same conversation on replay: %s", replay.Body.String())
	}

	// The conversation is visible through the chat surface.
	conversations := doJSON(t, server, http.MethodGet, "/api/v1/conversations", bob, nil)
	if !strings.Contains(conversations.Body.String(), opened.Data.ConversationID) {
		t.Fatalf("expected the reply conversation in bob's list: %s", conversations.Body.String())
	}
}

func TestSelfReplyRejected(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")
	statusID := createTextStatus(t, server, alice, "annonces", "pas de monologue")

	rr := doJSON(t, server, http.MethodPost, "/api/v1/statuses/"+statusID+"/reply", alice, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMediaUploadIsModerated(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")

	blocked := postStatusMedia(t, server, alice, "annonces", []byte("explicit payload"))
	if blocked.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blocked media, got %d body=%s", blocked.Code, blocked.Body.String())
	}

	allowed := postStatusMedia(t, server, alice, "annonces", []byte("holiday picture"))
	if allowed.Code != http.StatusCreated {
		t.Fatalf("expected 201 for clean media, got %d body=%s", allowed.Code, allowed.Body.String())
	}
	var envelope statusEnvelope
	decodeBody(t, allowed, &envelope)
	if !strings.HasPrefix(envelope.Data.MediaURL, "https://signed.example/") {
		t.Fatalf("expected a signed media url, got %q", envelope.Data.MediaURL)
	}
}

func TestOnlyAuthorDeletesStatus(t *testing.T) {
	server := newTestServer()
	alice := userToken(t, "alice")
	statusID := createTextStatus(t, server, alice, "annonces", "éphémère")

	denied := doJSON(t, server, http.MethodDelete, "/api/v1/statuses/"+statusID, userToken(t, "bob"), nil)
	if denied.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-author, got %d body=%s", denied.Code, denied.Body.String())
	}

	deleted := doJSON(t, server, http.MethodDelete, "/api/v1/statuses/"+statusID, alice, nil)
	if deleted.Code != http.StatusOK {
		t.Fatalf("expected 200 for author, got %d body=%s", deleted.Code, deleted.Body.String())
	}

	gone := doJSON(t, server, http.MethodGet, "/api/v1/statuses/"+statusID, alice, nil)
	if gone.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d body=%s", gone.Code, gone.Body.String())
	}
}
