// Package opsalert posts operational alerts to a Slack channel. Alerts
// cover the situations that need a human: money accepted without the
// matching tickets minted, and completed tombola draws awaiting payout.
package opsalert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goslack "github.com/slack-go/slack"
)

// postTimeout bounds a single Slack API call; alerts are posted from a
// goroutine and must never hold up the calling path.
const postTimeout = 10 * time.Second

// Alerter is a thin wrapper around the slack-go SDK. A nil *Alerter is
// valid and drops every alert, so callers never need to branch on
// whether alerting is configured.
type Alerter struct {
	api     *goslack.Client
	channel string
	logger  *slog.Logger
}

// New returns nil when token or channel is empty; alerting is optional.
func New(token string, channel string, logger *slog.Logger) *Alerter {
	if token == "" || channel == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Alerter{
		api:     goslack.New(token),
		channel: channel,
		logger:  logger,
	}
}

// NewWithAPIURL targets a custom Slack API URL. Useful for testing with
// a mock server.
func NewWithAPIURL(token string, channel string, apiURL string, logger *slog.Logger) *Alerter {
	alerter := New(token, channel, logger)
	if alerter != nil {
		alerter.api = goslack.New(token, goslack.OptionAPIURL(apiURL))
	}
	return alerter
}

// IntegrityError reports a confirmed payment whose follow-up bookkeeping
// failed and needs manual reconciliation.
func (a *Alerter) IntegrityError(sessionID string, refID string, err error) {
	a.postAsync(fmt.Sprintf(
		":rotating_light: payment confirmed but follow-up failed\nsession: `%s`\nref: `%s`\nerror: %v\nmanual reconciliation required",
		sessionID, refID, err,
	))
}

// DrawReport announces a completed tombola draw.
func (a *Alerter) DrawReport(month int, year int, winnerCount int) {
	a.postAsync(fmt.Sprintf(
		":tada: tombola draw completed for %02d/%d with %d winner(s); payouts pending",
		month, year, winnerCount,
	))
}

func (a *Alerter) postAsync(text string) {
	if a == nil {
		return
	}
	go func() {
		if err := a.post(context.Background(), text); err != nil {
			a.logger.Error("ops alert failed",
				"event", "ops_alert_failed",
				"module", "internal/platform/opsalert",
				"layer", "platform",
				"error", err,
			)
		}
	}()
}

func (a *Alerter) post(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, postTimeout)
	defer cancel()

	_, _, err := a.api.PostMessageContext(ctx, a.channel, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("chat.postMessage failed: %w", err)
	}
	return nil
}
