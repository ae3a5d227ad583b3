package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"gymbook/internal/app/policies"
	"gymbook/internal/domain/shared/money"
)

// PaymentsGateway is the in-memory gateway used in dev and tests. It tracks
// refunded references and declines a second refund for the same one, matching
// the real gateway's source-of-truth behavior.
type PaymentsGateway struct {
	mu       sync.Mutex
	refunded map[string]money.Money
}

func NewPaymentsGateway() *PaymentsGateway {
	return &PaymentsGateway{refunded: make(map[string]money.Money)}
}

func (g *PaymentsGateway) Refund(ctx context.Context, paymentRef string, amount money.Money) (policies.RefundConfirmation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if paymentRef == "" {
		return policies.RefundConfirmation{}, fmt.Errorf("%w: empty payment reference", policies.ErrGateway)
	}
	if _, done := g.refunded[paymentRef]; done {
		return policies.RefundConfirmation{}, fmt.Errorf("%w: %s already refunded", policies.ErrGateway, paymentRef)
	}
	g.refunded[paymentRef] = amount
	return policies.RefundConfirmation{
		PaymentRef: paymentRef,
		Amount:     amount,
		RefundID:   uuid.NewString(),
	}, nil
}

var _ policies.PaymentsPort = (*PaymentsGateway)(nil)
