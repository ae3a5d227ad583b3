package booking

import (
	"context"
	"time"
)

// A booking record lives in exactly one logical store at any instant:
// requests (Pending), accepted, or history (Rejected/Unavailable/Cancelled/
// Dropped). Refunds keep a separate ledger keyed by payment reference so a
// drop retry never refunds twice. Relocation between stores is two independent
// calls, create-then-delete, with no cross-call transaction.

// RequestStore holds Pending bookings.
type RequestStore interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, b *Booking) error
	Delete(ctx context.Context, id BookingID) error
	List(ctx context.Context, variant Variant) ([]*Booking, error)
	ListSubmittedBefore(ctx context.Context, cutoff time.Time) ([]*Booking, error)
}

// AcceptedStore holds Accepted bookings, paid or not. Save enforces an
// optimistic version check and returns ErrConflict on a stale write.
type AcceptedStore interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, b *Booking) error
	Delete(ctx context.Context, id BookingID) error
	List(ctx context.Context, variant Variant) ([]*Booking, error)
}

// HistoryStore is the append-only rejected/dropped/cancelled view.
type HistoryStore interface {
	Add(ctx context.Context, b *Booking) error
	List(ctx context.Context, variant Variant) ([]*Booking, error)
}

// RefundStore is the append-only refund ledger.
type RefundStore interface {
	Add(ctx context.Context, b *Booking) error
	ByPaymentRef(ctx context.Context, paymentRef string) (*Booking, bool, error)
	List(ctx context.Context, variant Variant) ([]*Booking, error)
}

// Stores bundles the logical stores behind one port so handlers take a single
// dependency.
type Stores interface {
	Requests() RequestStore
	Accepted() AcceptedStore
	History() HistoryStore
	Refunds() RefundStore
}
