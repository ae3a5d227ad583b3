package booking

import (
	"context"
	"errors"
	"time"

	"gymbook/internal/app/commands"
	"gymbook/internal/app/outbox"
	domainbooking "gymbook/internal/domain/booking"
)

const (
	rejectBookingKey   = "booking.reject"
	markUnavailableKey = "booking.mark_unavailable"
)

type RejectBookingCommand struct {
	BookingID string
	Reason    string
}

func (c RejectBookingCommand) Key() string { return rejectBookingKey }

type RejectBookingResult struct {
	BookingID string `json:"booking_id"`
}

// RejectBookingHandler handles rejection from Pending, or from Accepted while
// the booking is still unpaid. The record relocates into the history store.
type RejectBookingHandler struct {
	Stores  domainbooking.Stores
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *RejectBookingHandler) Handle(ctx context.Context, cmd RejectBookingCommand) (*RejectBookingResult, error) {
	id := domainbooking.BookingID(cmd.BookingID)
	b, fromAccepted, err := h.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := b.Reject(cmd.Reason, time.Now()); err != nil {
		return nil, err
	}
	if err := h.Stores.History().Add(ctx, b); err != nil {
		return nil, err
	}
	if fromAccepted {
		err = h.Stores.Accepted().Delete(ctx, id)
	} else {
		err = h.Stores.Requests().Delete(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	return &RejectBookingResult{BookingID: string(b.ID)}, nil
}

func (h *RejectBookingHandler) locate(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, bool, error) {
	b, err := h.Stores.Requests().ByID(ctx, id)
	if err == nil {
		return b, false, nil
	}
	if !errors.Is(err, domainbooking.ErrNotFound) {
		return nil, false, err
	}
	b, err = h.Stores.Accepted().ByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

type MarkUnavailableCommand struct {
	BookingID string
}

func (c MarkUnavailableCommand) Key() string { return markUnavailableKey }

// MarkUnavailableHandler rejects a pending request with the fixed system
// reason when the session capacity conflict is detected.
type MarkUnavailableHandler struct {
	Stores  domainbooking.Stores
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *MarkUnavailableHandler) Handle(ctx context.Context, cmd MarkUnavailableCommand) (*RejectBookingResult, error) {
	b, err := h.Stores.Requests().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if err := b.MarkUnavailable(time.Now()); err != nil {
		return nil, err
	}
	if err := h.Stores.History().Add(ctx, b); err != nil {
		return nil, err
	}
	if err := h.Stores.Requests().Delete(ctx, b.ID); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	return &RejectBookingResult{BookingID: string(b.ID)}, nil
}

var _ commands.Handler[RejectBookingCommand, *RejectBookingResult] = (*RejectBookingHandler)(nil)
var _ commands.Handler[MarkUnavailableCommand, *RejectBookingResult] = (*MarkUnavailableHandler)(nil)
