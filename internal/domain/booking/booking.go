package booking

import (
	"errors"
	"time"

	"gymbook/internal/domain/shared/caldate"
	"gymbook/internal/domain/shared/events"
	"gymbook/internal/domain/shared/money"
)

var (
	ErrInvalidState       = errors.New("booking: invalid state transition")
	ErrReasonRequired     = errors.New("booking: reason required")
	ErrPaymentRefRequired = errors.New("booking: payment reference required")
	ErrNotPaid            = errors.New("booking: booking is not paid")
	ErrNotScheduled       = errors.New("booking: start and end dates not set")
	ErrNotFound           = errors.New("booking: not found")
	ErrConflict           = errors.New("booking: concurrent update detected")
	ErrApplicantRequired  = errors.New("booking: applicant email required")
	ErrDurationRequired   = errors.New("booking: duration unit or weeks required")
)

type BookingID string

type Status string

const (
	StatusPending     Status = "PENDING"
	StatusAccepted    Status = "ACCEPTED"
	StatusRejected    Status = "REJECTED"
	StatusUnavailable Status = "UNAVAILABLE"
	StatusExpired     Status = "EXPIRED"
	StatusCancelled   Status = "CANCELLED"
	StatusDropped     Status = "DROPPED"
	StatusCompleted   Status = "COMPLETED"
)

type Variant string

const (
	VariantClass   Variant = "CLASS"
	VariantTrainer Variant = "TRAINER"
)

type DurationUnit string

const (
	UnitDaily   DurationUnit = "DAILY"
	UnitWeekly  DurationUnit = "WEEKLY"
	UnitMonthly DurationUnit = "MONTHLY"
	UnitYearly  DurationUnit = "YEARLY"
)

// ReasonUnavailable is the fixed system reason recorded when a pending request
// is rejected because the session has no remaining capacity.
const ReasonUnavailable = "requested session is no longer available"

type Applicant struct {
	Name  string
	Email string
	Phone string
}

// Subject identifies what was booked: a class name for class bookings, a
// trainer plus session set for trainer bookings.
type Subject struct {
	ClassName  string
	TrainerID  string
	SessionIDs []string
}

type Booking struct {
	ID            BookingID
	Variant       Variant
	Applicant     Applicant
	Subject       Subject
	DurationUnit  DurationUnit
	DurationWeeks int
	TotalPrice    money.Money
	SubmittedAt   time.Time
	Status        Status
	Paid          bool
	PaidAt        time.Time
	PaymentRef    string
	AcceptedAt    time.Time
	Start         caldate.Date
	End           caldate.Date
	Reason        string
	RefundAmount  money.Money
	ClosedAt      time.Time
	Version       int64
	events.Recorder
}

type CreateParams struct {
	ID            BookingID
	Variant       Variant
	Applicant     Applicant
	Subject       Subject
	DurationUnit  DurationUnit
	DurationWeeks int
	TotalPrice    money.Money
	SubmittedAt   time.Time
}

// NewBooking creates a fresh Pending request. A zero total price marks a free
// booking and is allowed.
func NewBooking(params CreateParams) (*Booking, error) {
	if params.Applicant.Email == "" {
		return nil, ErrApplicantRequired
	}
	if params.TotalPrice.Cents < 0 {
		return nil, money.ErrNegativeAmount
	}
	switch params.Variant {
	case VariantClass:
		if params.DurationUnit == "" {
			return nil, ErrDurationRequired
		}
	case VariantTrainer:
		if params.DurationWeeks <= 0 {
			return nil, ErrDurationRequired
		}
	default:
		return nil, errors.New("booking: unknown variant")
	}
	b := &Booking{
		ID:            params.ID,
		Variant:       params.Variant,
		Applicant:     params.Applicant,
		Subject:       params.Subject,
		DurationUnit:  params.DurationUnit,
		DurationWeeks: params.DurationWeeks,
		TotalPrice:    params.TotalPrice,
		SubmittedAt:   params.SubmittedAt.UTC(),
		Status:        StatusPending,
	}
	b.Record(BookingRequested{BookingID: b.ID, Variant: b.Variant, Applicant: b.Applicant.Email, Total: b.TotalPrice, At: b.SubmittedAt})
	return b, nil
}

func (b *Booking) Accept(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.Status = StatusAccepted
	b.Paid = false
	b.AcceptedAt = now.UTC()
	b.Record(BookingAccepted{BookingID: b.ID, At: b.AcceptedAt})
	return nil
}

// Reject is allowed from Pending, and from Accepted only while unpaid.
func (b *Booking) Reject(reason string, now time.Time) error {
	if reason == "" {
		return ErrReasonRequired
	}
	if b.Status != StatusPending && !(b.Status == StatusAccepted && !b.Paid) {
		return ErrInvalidState
	}
	b.Status = StatusRejected
	b.Reason = reason
	b.ClosedAt = now.UTC()
	b.Record(BookingRejected{BookingID: b.ID, Reason: reason, At: b.ClosedAt})
	return nil
}

// MarkUnavailable rejects a pending request with the fixed system reason.
func (b *Booking) MarkUnavailable(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.Status = StatusUnavailable
	b.Reason = ReasonUnavailable
	b.ClosedAt = now.UTC()
	b.Record(BookingRejected{BookingID: b.ID, Reason: ReasonUnavailable, At: b.ClosedAt})
	return nil
}

func (b *Booking) ConfirmPayment(paymentRef string, paidAt time.Time) error {
	if b.Status != StatusAccepted || b.Paid {
		return ErrInvalidState
	}
	if paymentRef == "" {
		return ErrPaymentRefRequired
	}
	b.Paid = true
	b.PaidAt = paidAt.UTC()
	b.PaymentRef = paymentRef
	b.Record(PaymentConfirmed{BookingID: b.ID, PaymentRef: paymentRef, At: b.PaidAt})
	return nil
}

// SetSchedule fixes the inclusive start/end range once the booking is paid.
// The end date derives from the duration unit (class) or week count (trainer).
func (b *Booking) SetSchedule(start caldate.Date, now time.Time) error {
	if b.Status != StatusAccepted {
		return ErrInvalidState
	}
	if !b.Paid {
		return ErrNotPaid
	}
	if !b.Start.IsZero() || !b.End.IsZero() {
		return ErrInvalidState
	}
	end, err := b.scheduleEnd(start)
	if err != nil {
		return err
	}
	b.Start = start
	b.End = end
	b.Record(ScheduleSet{BookingID: b.ID, Start: start, End: end, At: now.UTC()})
	return nil
}

func (b *Booking) scheduleEnd(start caldate.Date) (caldate.Date, error) {
	if b.Variant == VariantTrainer {
		if b.DurationWeeks <= 0 {
			return caldate.Date{}, ErrDurationRequired
		}
		return start.AddDays(7*b.DurationWeeks - 1), nil
	}
	switch b.DurationUnit {
	case UnitDaily:
		return start, nil
	case UnitWeekly:
		return start.AddDays(6), nil
	case UnitMonthly:
		return start.AddMonths(1).AddDays(-1), nil
	case UnitYearly:
		return start.AddYears(1).AddDays(-1), nil
	default:
		return caldate.Date{}, ErrDurationRequired
	}
}

// Drop closes a paid, scheduled booking with the refund already computed by
// the caller. The record itself moves stores via the orchestrating handler.
func (b *Booking) Drop(reason string, refund money.Money, now time.Time) error {
	if reason == "" {
		return ErrReasonRequired
	}
	if b.Status != StatusAccepted {
		return ErrInvalidState
	}
	if !b.Paid {
		return ErrNotPaid
	}
	if b.Start.IsZero() || b.End.IsZero() {
		return ErrNotScheduled
	}
	b.Status = StatusDropped
	b.Reason = reason
	b.RefundAmount = refund
	b.ClosedAt = now.UTC()
	b.Record(BookingDropped{BookingID: b.ID, Refund: refund, Reason: reason, At: b.ClosedAt})
	return nil
}

// Cancel closes an accepted booking before completion. Trainer bookings also
// leave the schedule via the variant hook in the application layer.
func (b *Booking) Cancel(reason string, today caldate.Date, now time.Time) error {
	if reason == "" {
		return ErrReasonRequired
	}
	if b.Status != StatusAccepted {
		return ErrInvalidState
	}
	if b.EffectiveStatus(today) == StatusCompleted {
		return ErrInvalidState
	}
	b.Status = StatusCancelled
	b.Reason = reason
	b.ClosedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, Reason: reason, At: b.ClosedAt})
	return nil
}

// EffectiveStatus projects Completed at read time: an accepted, scheduled
// booking whose end date lies strictly before today. The projection is never
// persisted.
func (b *Booking) EffectiveStatus(today caldate.Date) Status {
	if b.Status == StatusAccepted && !b.End.IsZero() && b.End.Before(today) {
		return StatusCompleted
	}
	return b.Status
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusUnavailable, StatusCancelled, StatusDropped, StatusCompleted, StatusExpired:
		return true
	}
	return false
}
