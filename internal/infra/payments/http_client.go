package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gymbook/internal/app/policies"
	"gymbook/internal/domain/shared/money"
)

// Gateway is the HTTP refund-by-amount client. Every call carries an explicit
// timeout and is never retried here: the gateway owns the already-refunded
// bookkeeping, and a blind retry risks a double refund.
type Gateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewGateway(baseURL, apiKey string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type refundRequest struct {
	PaymentRef  string `json:"payment_ref"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type refundResponse struct {
	RefundID    string `json:"refund_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

func (g *Gateway) Refund(ctx context.Context, paymentRef string, amount money.Money) (policies.RefundConfirmation, error) {
	body, err := json.Marshal(refundRequest{
		PaymentRef:  paymentRef,
		AmountCents: amount.Cents,
		Currency:    amount.Currency,
	})
	if err != nil {
		return policies.RefundConfirmation{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/refunds", bytes.NewReader(body))
	if err != nil {
		return policies.RefundConfirmation{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return policies.RefundConfirmation{}, fmt.Errorf("%w: %v", policies.ErrGateway, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return policies.RefundConfirmation{}, fmt.Errorf("%w: refund %s returned %d", policies.ErrGateway, paymentRef, resp.StatusCode)
	}
	var out refundResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return policies.RefundConfirmation{}, fmt.Errorf("%w: decode response: %v", policies.ErrGateway, err)
	}
	return policies.RefundConfirmation{
		PaymentRef: paymentRef,
		Amount:     money.Money{Cents: out.AmountCents, Currency: out.Currency},
		RefundID:   out.RefundID,
	}, nil
}

var _ policies.PaymentsPort = (*Gateway)(nil)
