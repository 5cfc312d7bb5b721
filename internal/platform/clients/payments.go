package clients

import (
	"context"
	"net/http"
	"time"
)

// paymentsTimeout is short: checkout sessions are opened inside a user
// request and the payment service is expected to answer fast.
const paymentsTimeout = 5 * time.Second

type IntentInput struct {
	UserID      string            `json:"userId,omitempty"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	PaymentType string            `json:"paymentType"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type Intent struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

type DepositInput struct {
	AccountID string `json:"accountId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
}

// Payments opens checkout sessions and moves funds between internal
// accounts during challenge fund distribution.
type Payments struct {
	api
}

func NewPayments(cfg Config) *Payments {
	return &Payments{api: api{
		baseURL:    cfg.BaseURL,
		secret:     cfg.Secret,
		httpClient: &http.Client{Timeout: paymentsTimeout},
	}}
}

func (p *Payments) CreateIntent(ctx context.Context, input IntentInput) (Intent, error) {
	var out struct {
		Data Intent `json:"data"`
	}
	if err := p.do(ctx, http.MethodPost, "/internal/payments/checkout-sessions", input, &out); err != nil {
		return Intent{}, err
	}
	return out.Data, nil
}

// InternalDeposit credits an internal account or user wallet and returns
// the payment service transaction id for the audit trail.
func (p *Payments) InternalDeposit(ctx context.Context, input DepositInput) (string, error) {
	var out struct {
		Data struct {
			TransactionID string `json:"transactionId"`
		} `json:"data"`
	}
	if err := p.do(ctx, http.MethodPost, "/internal/payments/deposits", input, &out); err != nil {
		return "", err
	}
	return out.Data.TransactionID, nil
}
