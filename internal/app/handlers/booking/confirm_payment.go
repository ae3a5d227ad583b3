package booking

import (
	"context"
	"time"

	"gymbook/internal/app/commands"
	"gymbook/internal/app/middleware"
	"gymbook/internal/app/outbox"
	domainbooking "gymbook/internal/domain/booking"
)

const confirmPaymentKey = "booking.confirm_payment"

// ConfirmPaymentCommand arrives from the payment broker consumer. Its
// idempotency key is the gateway reference, so a redelivered confirmation
// replays the stored result instead of flipping state twice.
type ConfirmPaymentCommand struct {
	BookingID  string
	PaymentRef string
	PaidAt     time.Time
}

func (c ConfirmPaymentCommand) Key() string { return confirmPaymentKey }

func (c ConfirmPaymentCommand) IdempotencyKey() string { return "pay:" + c.PaymentRef }

func (c ConfirmPaymentCommand) ResultPrototype() any { return &ConfirmPaymentResult{} }

type ConfirmPaymentResult struct {
	BookingID string `json:"booking_id"`
}

type ConfirmPaymentHandler struct {
	Stores  domainbooking.Stores
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *ConfirmPaymentHandler) Handle(ctx context.Context, cmd ConfirmPaymentCommand) (*ConfirmPaymentResult, error) {
	b, err := h.Stores.Accepted().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	paidAt := cmd.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	if err := b.ConfirmPayment(cmd.PaymentRef, paidAt); err != nil {
		return nil, err
	}
	if err := h.Stores.Accepted().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	return &ConfirmPaymentResult{BookingID: string(b.ID)}, nil
}

var _ commands.Handler[ConfirmPaymentCommand, *ConfirmPaymentResult] = (*ConfirmPaymentHandler)(nil)
var _ middleware.IdempotentCommand = ConfirmPaymentCommand{}
