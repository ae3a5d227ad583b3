package booking

import (
	"context"
	"time"

	"gymbook/internal/app/commands"
	"gymbook/internal/app/outbox"
	domainbooking "gymbook/internal/domain/booking"
	"gymbook/internal/domain/shared/caldate"
)

const cancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID string
	Reason    string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

type CancelBookingResult struct {
	BookingID string `json:"booking_id"`
}

// CancelBookingHandler closes an accepted booking before completion. The
// release hook removes the applicant from the trainer roster; class bookings
// release nothing. No refund is computed here; paid cancellations go through
// the drop flow.
type CancelBookingHandler struct {
	Stores  domainbooking.Stores
	Hooks   HookSelector
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*CancelBookingResult, error) {
	b, err := h.Stores.Accepted().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if err := b.Cancel(cmd.Reason, caldate.Today(time.Local), time.Now()); err != nil {
		return nil, err
	}
	if err := h.Hooks.For(b.Variant).OnRelease(ctx, b); err != nil {
		return nil, err
	}
	if err := h.Stores.History().Add(ctx, b); err != nil {
		return nil, err
	}
	if err := h.Stores.Accepted().Delete(ctx, b.ID); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	return &CancelBookingResult{BookingID: string(b.ID)}, nil
}

var _ commands.Handler[CancelBookingCommand, *CancelBookingResult] = (*CancelBookingHandler)(nil)
