package booking

import (
	"time"

	"gymbook/internal/domain/shared/caldate"
	"gymbook/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID BookingID
	Variant   Variant
	Applicant string
	Total     money.Money
	At        time.Time
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingAccepted struct {
	BookingID BookingID
	At        time.Time
}

func (e BookingAccepted) EventName() string     { return "booking.accepted" }
func (e BookingAccepted) AggregateID() string   { return string(e.BookingID) }
func (e BookingAccepted) OccurredAt() time.Time { return e.At }

type BookingRejected struct {
	BookingID BookingID
	Reason    string
	At        time.Time
}

func (e BookingRejected) EventName() string     { return "booking.rejected" }
func (e BookingRejected) AggregateID() string   { return string(e.BookingID) }
func (e BookingRejected) OccurredAt() time.Time { return e.At }

type PaymentConfirmed struct {
	BookingID  BookingID
	PaymentRef string
	At         time.Time
}

func (e PaymentConfirmed) EventName() string     { return "booking.payment_confirmed" }
func (e PaymentConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e PaymentConfirmed) OccurredAt() time.Time { return e.At }

type ScheduleSet struct {
	BookingID BookingID
	Start     caldate.Date
	End       caldate.Date
	At        time.Time
}

func (e ScheduleSet) EventName() string     { return "booking.schedule_set" }
func (e ScheduleSet) AggregateID() string   { return string(e.BookingID) }
func (e ScheduleSet) OccurredAt() time.Time { return e.At }

type BookingDropped struct {
	BookingID BookingID
	Refund    money.Money
	Reason    string
	At        time.Time
}

func (e BookingDropped) EventName() string     { return "booking.dropped" }
func (e BookingDropped) AggregateID() string   { return string(e.BookingID) }
func (e BookingDropped) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID
	Reason    string
	At        time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingExpired struct {
	BookingID BookingID
	At        time.Time
}

func (e BookingExpired) EventName() string     { return "booking.expired" }
func (e BookingExpired) AggregateID() string   { return string(e.BookingID) }
func (e BookingExpired) OccurredAt() time.Time { return e.At }
