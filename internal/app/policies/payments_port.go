package policies

import (
	"context"
	"errors"

	"gymbook/internal/domain/shared/money"
)

// ErrGateway marks a failed or declined payment-gateway call. A drop sequence
// stops on this error with no refund or history records written; the retry
// picks up from the reserved drop.
var ErrGateway = errors.New("payments: gateway call failed")

type RefundConfirmation struct {
	PaymentRef string
	Amount     money.Money
	RefundID   string
}

// PaymentsPort is the refund-by-amount capability of the external gateway.
// The gateway is the source of truth for whether a reference was already
// refunded; the port must never be retried blindly.
type PaymentsPort interface {
	Refund(ctx context.Context, paymentRef string, amount money.Money) (RefundConfirmation, error)
}
