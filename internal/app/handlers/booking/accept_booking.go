package booking

import (
	"context"
	"time"

	"gymbook/internal/app/commands"
	"gymbook/internal/app/middleware"
	"gymbook/internal/app/outbox"
	domainbooking "gymbook/internal/domain/booking"
)

const acceptBookingKey = "booking.accept"

type AcceptBookingCommand struct {
	BookingID       string
	IdempotencyKeyV string
}

func (c AcceptBookingCommand) Key() string { return acceptBookingKey }

func (c AcceptBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c AcceptBookingCommand) ResultPrototype() any { return &AcceptBookingResult{} }

type AcceptBookingResult struct {
	BookingID string `json:"booking_id"`
}

// AcceptBookingHandler relocates a pending request into the accepted store:
// save-in-destination first, delete-from-source second, then the variant hook
// places the applicant on the trainer's roster.
type AcceptBookingHandler struct {
	Stores  domainbooking.Stores
	Hooks   HookSelector
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *AcceptBookingHandler) Handle(ctx context.Context, cmd AcceptBookingCommand) (*AcceptBookingResult, error) {
	b, err := h.Stores.Requests().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if err := b.Accept(time.Now()); err != nil {
		return nil, err
	}
	if err := h.Stores.Accepted().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := h.Stores.Requests().Delete(ctx, b.ID); err != nil {
		return nil, err
	}
	if err := h.Hooks.For(b.Variant).OnAccept(ctx, b); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	return &AcceptBookingResult{BookingID: string(b.ID)}, nil
}

var _ commands.Handler[AcceptBookingCommand, *AcceptBookingResult] = (*AcceptBookingHandler)(nil)
var _ middleware.IdempotentCommand = AcceptBookingCommand{}
