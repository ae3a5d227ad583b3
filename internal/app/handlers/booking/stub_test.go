package booking

import (
	"context"
	"testing"
	"time"

	"gymbook/internal/app/middleware"
	"gymbook/internal/app/policies"
	domainbooking "gymbook/internal/domain/booking"
	"gymbook/internal/domain/shared/caldate"
	"gymbook/internal/domain/shared/money"
)

// stubStores is the handler-test double for the four logical stores, with
// per-store error injection to exercise the partial-relocation paths.
type stubStores struct {
	requests *stubRequestStore
	accepted *stubAcceptedStore
	history  *stubHistoryStore
	refunds  *stubRefundStore
}

func newStubStores() *stubStores {
	return &stubStores{
		requests: &stubRequestStore{items: map[domainbooking.BookingID]*domainbooking.Booking{}},
		accepted: &stubAcceptedStore{items: map[domainbooking.BookingID]*domainbooking.Booking{}},
		history:  &stubHistoryStore{},
		refunds:  &stubRefundStore{},
	}
}

func (s *stubStores) Requests() domainbooking.RequestStore  { return s.requests }
func (s *stubStores) Accepted() domainbooking.AcceptedStore { return s.accepted }
func (s *stubStores) History() domainbooking.HistoryStore   { return s.history }
func (s *stubStores) Refunds() domainbooking.RefundStore    { return s.refunds }

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	c := *b
	c.ClearEvents()
	return &c
}

type stubRequestStore struct {
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func (s *stubRequestStore) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	b, ok := s.items[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (s *stubRequestStore) Save(ctx context.Context, b *domainbooking.Booking) error {
	s.items[b.ID] = cloneBooking(b)
	return nil
}

func (s *stubRequestStore) Delete(ctx context.Context, id domainbooking.BookingID) error {
	if _, ok := s.items[id]; !ok {
		return domainbooking.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *stubRequestStore) List(ctx context.Context, variant domainbooking.Variant) ([]*domainbooking.Booking, error) {
	var out []*domainbooking.Booking
	for _, b := range s.items {
		if variant == "" || b.Variant == variant {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (s *stubRequestStore) ListSubmittedBefore(ctx context.Context, cutoff time.Time) ([]*domainbooking.Booking, error) {
	var out []*domainbooking.Booking
	for _, b := range s.items {
		if b.SubmittedAt.Before(cutoff) {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

type stubAcceptedStore struct {
	items     map[domainbooking.BookingID]*domainbooking.Booking
	deleteErr error
}

func (s *stubAcceptedStore) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	b, ok := s.items[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (s *stubAcceptedStore) Save(ctx context.Context, b *domainbooking.Booking) error {
	if existing, ok := s.items[b.ID]; ok && existing.Version != b.Version {
		return domainbooking.ErrConflict
	}
	b.Version++
	s.items[b.ID] = cloneBooking(b)
	return nil
}

func (s *stubAcceptedStore) Delete(ctx context.Context, id domainbooking.BookingID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.items[id]; !ok {
		return domainbooking.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *stubAcceptedStore) List(ctx context.Context, variant domainbooking.Variant) ([]*domainbooking.Booking, error) {
	var out []*domainbooking.Booking
	for _, b := range s.items {
		if variant == "" || b.Variant == variant {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

type stubHistoryStore struct {
	items  []*domainbooking.Booking
	addErr error
}

func (s *stubHistoryStore) Add(ctx context.Context, b *domainbooking.Booking) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.items = append(s.items, cloneBooking(b))
	return nil
}

func (s *stubHistoryStore) List(ctx context.Context, variant domainbooking.Variant) ([]*domainbooking.Booking, error) {
	return s.items, nil
}

type stubRefundStore struct {
	items  []*domainbooking.Booking
	addErr error
}

func (s *stubRefundStore) Add(ctx context.Context, b *domainbooking.Booking) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.items = append(s.items, cloneBooking(b))
	return nil
}

func (s *stubRefundStore) ByPaymentRef(ctx context.Context, paymentRef string) (*domainbooking.Booking, bool, error) {
	for _, b := range s.items {
		if b.PaymentRef == paymentRef {
			return cloneBooking(b), true, nil
		}
	}
	return nil, false, nil
}

func (s *stubRefundStore) List(ctx context.Context, variant domainbooking.Variant) ([]*domainbooking.Booking, error) {
	return s.items, nil
}

type stubIdempotencyStore struct {
	items map[string]middleware.IdempotencyRecord
}

func newStubIdempotencyStore() *stubIdempotencyStore {
	return &stubIdempotencyStore{items: map[string]middleware.IdempotencyRecord{}}
}

func (s *stubIdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *stubIdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	s.items[rec.Key] = rec
	return nil
}

// stubGateway counts refund calls and can be primed to fail.
type stubGateway struct {
	calls      int
	lastRef    string
	lastAmount money.Money
	err        error
}

func (g *stubGateway) Refund(ctx context.Context, paymentRef string, amount money.Money) (policies.RefundConfirmation, error) {
	g.calls++
	g.lastRef = paymentRef
	g.lastAmount = amount
	if g.err != nil {
		return policies.RefundConfirmation{}, g.err
	}
	return policies.RefundConfirmation{PaymentRef: paymentRef, Amount: amount, RefundID: "re_1"}, nil
}

type stubSchedule struct {
	added   []string
	removed []string
}

func (s *stubSchedule) AddParticipant(ctx context.Context, trainerID string, sessionIDs []string, p policies.Participant) error {
	s.added = append(s.added, trainerID+":"+p.Email)
	return nil
}

func (s *stubSchedule) RemoveParticipant(ctx context.Context, trainerID string, sessionIDs []string, email string) error {
	s.removed = append(s.removed, trainerID+":"+email)
	return nil
}

func domainMoney(t *testing.T, cents int64) money.Money {
	t.Helper()
	m, err := money.New(cents, "USD")
	if err != nil {
		t.Fatalf("money.New: %v", err)
	}
	return m
}

func seedPaidScheduledBooking(t *testing.T, stores *stubStores, id string, startDay, endLen int) *domainbooking.Booking {
	t.Helper()
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:           domainbooking.BookingID(id),
		Variant:      domainbooking.VariantClass,
		Applicant:    domainbooking.Applicant{Name: "Dana", Email: "dana@example.com"},
		Subject:      domainbooking.Subject{ClassName: "Yoga"},
		DurationUnit: domainbooking.UnitMonthly,
		TotalPrice:   money.Must(10000, "USD"),
		SubmittedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	if err := b.Accept(time.Now()); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := b.ConfirmPayment("pay-"+id, time.Now()); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	// Dates set directly so the inclusive length is exact regardless of month.
	start, err := caldate.New(2025, time.January, startDay)
	if err != nil {
		t.Fatalf("caldate.New: %v", err)
	}
	b.Start = start
	b.End = start.AddDays(endLen - 1)
	b.ClearEvents()
	if err := stores.accepted.Save(context.Background(), b); err != nil {
		t.Fatalf("seed accepted: %v", err)
	}
	return b
}
