package booking

import (
	"context"
	"time"

	"gymbook/internal/app/commands"
	"gymbook/internal/app/outbox"
	domainbooking "gymbook/internal/domain/booking"
	"gymbook/internal/domain/shared/caldate"
)

const setScheduleKey = "booking.set_schedule"

type SetScheduleCommand struct {
	BookingID string
	StartDate string
}

func (c SetScheduleCommand) Key() string { return setScheduleKey }

type SetScheduleResult struct {
	BookingID string `json:"booking_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SetScheduleHandler fixes the paid booking's inclusive date range. The start
// date arrives as a string in any of the accepted formats.
type SetScheduleHandler struct {
	Stores  domainbooking.Stores
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *SetScheduleHandler) Handle(ctx context.Context, cmd SetScheduleCommand) (*SetScheduleResult, error) {
	start, err := caldate.Parse(cmd.StartDate)
	if err != nil {
		return nil, err
	}
	b, err := h.Stores.Accepted().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if err := b.SetSchedule(start, time.Now()); err != nil {
		return nil, err
	}
	if err := h.Stores.Accepted().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	return &SetScheduleResult{
		BookingID: string(b.ID),
		StartDate: b.Start.Format(),
		EndDate:   b.End.Format(),
	}, nil
}

var _ commands.Handler[SetScheduleCommand, *SetScheduleResult] = (*SetScheduleHandler)(nil)
