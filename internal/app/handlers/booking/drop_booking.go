package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gymbook/internal/app/commands"
	"gymbook/internal/app/middleware"
	"gymbook/internal/app/outbox"
	"gymbook/internal/app/policies"
	domainbooking "gymbook/internal/domain/booking"
	"gymbook/internal/domain/shared/caldate"
	"gymbook/internal/domain/shared/money"
)

const dropBookingKey = "booking.drop"

// DropBookingCommand keys idempotency on the booking id so a repeated drop of
// a completed booking replays the first result instead of reaching the
// gateway again.
type DropBookingCommand struct {
	BookingID     string
	Reason        string
	ReferenceDate string // optional, defaults to today; accepted date formats apply
}

func (c DropBookingCommand) Key() string { return dropBookingKey }

func (c DropBookingCommand) IdempotencyKey() string { return "drop:" + c.BookingID }

func (c DropBookingCommand) ResultPrototype() any { return &DropBookingResult{} }

type DropBookingResult struct {
	BookingID    string   `json:"booking_id"`
	RefundCents  int64    `json:"refund_cents"`
	Currency     string   `json:"currency"`
	RefundID     string   `json:"refund_id,omitempty"`
	NewRecordIDs []string `json:"new_record_ids"`
}

// PartialRelocationError means the gateway refund was issued but one of the
// bookkeeping steps after it failed. Money has already moved; only the record
// relocation remains, and retrying the drop is safe because the refund ledger
// is checked by payment reference before the gateway is called again.
type PartialRelocationError struct {
	Step       string
	PaymentRef string
	Refund     money.Money
	Err        error
}

func (e *PartialRelocationError) Error() string {
	return fmt.Sprintf("booking: refund %s already issued for %s but %s failed: %v",
		e.Refund, e.PaymentRef, e.Step, e.Err)
}

func (e *PartialRelocationError) Unwrap() error { return e.Err }

// DropBookingHandler sequences the drop: guards, proration, gateway refund,
// refund record, history record, delete of the accepted record. The calls are
// independent; a failure never rolls back earlier steps.
type DropBookingHandler struct {
	Stores   domainbooking.Stores
	Payments policies.PaymentsPort
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
}

func (h *DropBookingHandler) Handle(ctx context.Context, cmd DropBookingCommand) (*DropBookingResult, error) {
	b, err := h.Stores.Accepted().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}

	reference, err := h.referenceDate(cmd.ReferenceDate)
	if err != nil {
		return nil, err
	}

	// A refund already on the ledger for this payment reference means a prior
	// attempt got past the gateway; resume bookkeeping without refunding twice.
	alreadyRefunded := false
	refund := b.TotalPrice.Zero()
	var confirmation policies.RefundConfirmation
	if b.PaymentRef != "" {
		prior, found, err := h.Stores.Refunds().ByPaymentRef(ctx, b.PaymentRef)
		if err != nil {
			return nil, err
		}
		if found {
			alreadyRefunded = true
			refund = prior.RefundAmount
		}
	}

	if b.Status == domainbooking.StatusDropped {
		// A prior attempt reserved the drop but did not finish. Resume with
		// the refund it computed.
		if !alreadyRefunded {
			refund = b.RefundAmount
		}
	} else {
		if !alreadyRefunded {
			if b.Start.IsZero() || b.End.IsZero() {
				return nil, domainbooking.ErrNotScheduled
			}
			refund, err = domainbooking.ComputeRefund(b.TotalPrice, b.Start, b.End, reference)
			if err != nil {
				return nil, err
			}
		}
		if err := b.Drop(cmd.Reason, refund, time.Now()); err != nil {
			return nil, err
		}
		// Reserve the drop with a version-checked write before any money
		// moves. A concurrent attempt that read the same snapshot loses here
		// with ErrConflict instead of reaching the gateway.
		if err := h.Stores.Accepted().Save(ctx, b); err != nil {
			return nil, err
		}
	}

	if !alreadyRefunded && b.Paid && !refund.IsZero() {
		confirmation, err = h.Payments.Refund(ctx, b.PaymentRef, refund)
		if err != nil {
			if errors.Is(err, policies.ErrGateway) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", policies.ErrGateway, err)
		}
	}

	if !alreadyRefunded {
		if err := h.Stores.Refunds().Add(ctx, b); err != nil {
			return nil, &PartialRelocationError{Step: "refund record", PaymentRef: b.PaymentRef, Refund: refund, Err: err}
		}
	}
	if err := h.Stores.History().Add(ctx, b); err != nil {
		return nil, &PartialRelocationError{Step: "history record", PaymentRef: b.PaymentRef, Refund: refund, Err: err}
	}
	if err := h.Stores.Accepted().Delete(ctx, b.ID); err != nil {
		return nil, &PartialRelocationError{Step: "accepted-store delete", PaymentRef: b.PaymentRef, Refund: refund, Err: err}
	}

	if err := drainEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	return &DropBookingResult{
		BookingID:    string(b.ID),
		RefundCents:  refund.Cents,
		Currency:     refund.Currency,
		RefundID:     confirmation.RefundID,
		NewRecordIDs: []string{string(b.ID)},
	}, nil
}

func (h *DropBookingHandler) referenceDate(raw string) (caldate.Date, error) {
	if raw == "" {
		return caldate.Today(time.Local), nil
	}
	return caldate.Parse(raw)
}

var _ commands.Handler[DropBookingCommand, *DropBookingResult] = (*DropBookingHandler)(nil)
var _ middleware.IdempotentCommand = DropBookingCommand{}
