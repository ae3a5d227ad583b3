package memory

import (
	"context"
	"sync"
	"time"

	domainbooking "gymbook/internal/domain/booking"
)

// Stores is the in-memory realization of the three logical booking stores
// plus the refund ledger. Every method copies on read so callers never share
// the stored aggregate.
type Stores struct {
	requests *requestStore
	accepted *acceptedStore
	history  *historyStore
	refunds  *refundStore
}

func NewStores() *Stores {
	return &Stores{
		requests: &requestStore{items: map[domainbooking.BookingID]*domainbooking.Booking{}},
		accepted: &acceptedStore{items: map[domainbooking.BookingID]*domainbooking.Booking{}},
		history:  &historyStore{},
		refunds:  &refundStore{},
	}
}

func (s *Stores) Requests() domainbooking.RequestStore  { return s.requests }
func (s *Stores) Accepted() domainbooking.AcceptedStore { return s.accepted }
func (s *Stores) History() domainbooking.HistoryStore   { return s.history }
func (s *Stores) Refunds() domainbooking.RefundStore    { return s.refunds }

var _ domainbooking.Stores = (*Stores)(nil)

func clone(b *domainbooking.Booking) *domainbooking.Booking {
	c := *b
	c.ClearEvents()
	return &c
}

type requestStore struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func (s *requestStore) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.items[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return clone(b), nil
}

func (s *requestStore) Save(ctx context.Context, b *domainbooking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[b.ID] = clone(b)
	return nil
}

func (s *requestStore) Delete(ctx context.Context, id domainbooking.BookingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domainbooking.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *requestStore) List(ctx context.Context, variant domainbooking.Variant) ([]*domainbooking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range s.items {
		if variant == "" || b.Variant == variant {
			out = append(out, clone(b))
		}
	}
	return out, nil
}

func (s *requestStore) ListSubmittedBefore(ctx context.Context, cutoff time.Time) ([]*domainbooking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range s.items {
		if b.SubmittedAt.Before(cutoff) {
			out = append(out, clone(b))
		}
	}
	return out, nil
}

type acceptedStore struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func (s *acceptedStore) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.items[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return clone(b), nil
}

// Save enforces the optimistic version check: the stored version must match
// the caller's snapshot or the write is rejected with ErrConflict.
func (s *acceptedStore) Save(ctx context.Context, b *domainbooking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[b.ID]; ok && existing.Version != b.Version {
		return domainbooking.ErrConflict
	}
	b.Version++
	s.items[b.ID] = clone(b)
	return nil
}

func (s *acceptedStore) Delete(ctx context.Context, id domainbooking.BookingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domainbooking.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *acceptedStore) List(ctx context.Context, variant domainbooking.Variant) ([]*domainbooking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range s.items {
		if variant == "" || b.Variant == variant {
			out = append(out, clone(b))
		}
	}
	return out, nil
}

type historyStore struct {
	mu    sync.RWMutex
	items []*domainbooking.Booking
}

// Add is tolerant of relocation retries: a record already archived under the
// same booking id is kept as is.
func (s *historyStore) Add(ctx context.Context, b *domainbooking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.ID == b.ID {
			return nil
		}
	}
	s.items = append(s.items, clone(b))
	return nil
}

func (s *historyStore) List(ctx context.Context, variant domainbooking.Variant) ([]*domainbooking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range s.items {
		if variant == "" || b.Variant == variant {
			out = append(out, clone(b))
		}
	}
	return out, nil
}

type refundStore struct {
	mu    sync.RWMutex
	items []*domainbooking.Booking
}

// Add keeps one ledger entry per booking id, matching the unique index the
// persistent ledger relies on.
func (s *refundStore) Add(ctx context.Context, b *domainbooking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.ID == b.ID {
			return nil
		}
	}
	s.items = append(s.items, clone(b))
	return nil
}

func (s *refundStore) ByPaymentRef(ctx context.Context, paymentRef string) (*domainbooking.Booking, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.items {
		if b.PaymentRef == paymentRef {
			return clone(b), true, nil
		}
	}
	return nil, false, nil
}

func (s *refundStore) List(ctx context.Context, variant domainbooking.Variant) ([]*domainbooking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range s.items {
		if variant == "" || b.Variant == variant {
			out = append(out, clone(b))
		}
	}
	return out, nil
}
