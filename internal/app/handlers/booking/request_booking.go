package booking

import (
	"context"
	"time"

	"gymbook/internal/app/commands"
	"gymbook/internal/app/middleware"
	"gymbook/internal/app/outbox"
	domainbooking "gymbook/internal/domain/booking"
	"gymbook/internal/domain/shared/money"
)

const requestBookingKey = "booking.request"

type RequestBookingCommand struct {
	CommandID       string
	Variant         domainbooking.Variant
	ApplicantName   string
	ApplicantEmail  string
	ApplicantPhone  string
	ClassName       string
	TrainerID       string
	SessionIDs      []string
	DurationUnit    domainbooking.DurationUnit
	DurationWeeks   int
	TotalCents      int64
	Currency        string
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &RequestBookingResult{} }

type RequestBookingResult struct {
	BookingID string `json:"booking_id"`
}

type RequestBookingHandler struct {
	Stores  domainbooking.Stores
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*RequestBookingResult, error) {
	price, err := money.New(cmd.TotalCents, cmd.Currency)
	if err != nil {
		return nil, err
	}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:      domainbooking.BookingID(cmd.CommandID),
		Variant: cmd.Variant,
		Applicant: domainbooking.Applicant{
			Name:  cmd.ApplicantName,
			Email: cmd.ApplicantEmail,
			Phone: cmd.ApplicantPhone,
		},
		Subject: domainbooking.Subject{
			ClassName:  cmd.ClassName,
			TrainerID:  cmd.TrainerID,
			SessionIDs: cmd.SessionIDs,
		},
		DurationUnit:  cmd.DurationUnit,
		DurationWeeks: cmd.DurationWeeks,
		TotalPrice:    price,
		SubmittedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := h.Stores.Requests().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := h.drainEvents(ctx, b); err != nil {
		return nil, err
	}
	return &RequestBookingResult{BookingID: string(b.ID)}, nil
}

func (h *RequestBookingHandler) drainEvents(ctx context.Context, b *domainbooking.Booking) error {
	return drainEvents(ctx, h.Outbox, h.Encoder, b)
}

func drainEvents(ctx context.Context, box outbox.Outbox, enc outbox.EventEncoder, b *domainbooking.Booking) error {
	pending := b.PendingEvents()
	b.ClearEvents()
	return outbox.RecordDomainEvents(ctx, box, enc, pending)
}

var _ commands.Handler[RequestBookingCommand, *RequestBookingResult] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = RequestBookingCommand{}
