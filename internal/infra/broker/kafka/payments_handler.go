package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"gymbook/internal/app/commands"
	bookingapp "gymbook/internal/app/handlers/booking"
)

// paymentConfirmedMessage is the gateway's settlement notification as it
// arrives on the payments topic.
type paymentConfirmedMessage struct {
	BookingID  string    `json:"booking_id"`
	PaymentRef string    `json:"payment_ref"`
	PaidAt     time.Time `json:"paid_at"`
}

// PaymentsHandler turns settlement notifications into ConfirmPayment
// commands. Redeliveries are absorbed by the idempotency middleware keyed on
// the payment reference.
type PaymentsHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

func (h PaymentsHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var payload paymentConfirmedMessage
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		if h.Logger != nil {
			h.Logger.Error("payments message decode failed", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
		// Poison message; mark it consumed rather than loop on it.
		return nil
	}
	cmd := bookingapp.ConfirmPaymentCommand{
		BookingID:  payload.BookingID,
		PaymentRef: payload.PaymentRef,
		PaidAt:     payload.PaidAt,
	}
	if _, err := commands.Dispatch[bookingapp.ConfirmPaymentCommand, *bookingapp.ConfirmPaymentResult](ctx, h.Commands, cmd); err != nil {
		if h.Logger != nil {
			h.Logger.Error("payment confirmation failed", "booking_id", payload.BookingID, "payment_ref", payload.PaymentRef, "error", err)
		}
		return err
	}
	return nil
}

var _ MessageHandler = PaymentsHandler{}
