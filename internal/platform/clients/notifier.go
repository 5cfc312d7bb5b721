package clients

import (
	"context"
	"net/http"
	"time"
)

const notifierTimeout = 5 * time.Second

type Notification struct {
	Type  string            `json:"type"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notifier delivers push notifications. Callers treat failures as
// best-effort: a missed notification never fails the triggering action.
type Notifier struct {
	api
}

func NewNotifier(cfg Config) *Notifier {
	return &Notifier{api: api{
		baseURL:    cfg.BaseURL,
		secret:     cfg.Secret,
		httpClient: &http.Client{Timeout: notifierTimeout},
	}}
}

func (n *Notifier) Send(ctx context.Context, userID string, notification Notification) error {
	body := struct {
		UserID string `json:"userId"`
		Notification
	}{UserID: userID, Notification: notification}
	return n.do(ctx, http.MethodPost, "/internal/notifications", body, nil)
}
