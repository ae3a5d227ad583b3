package booking

import (
	"context"
	"errors"
	"testing"

	"gymbook/internal/app/commands"
	"gymbook/internal/app/middleware"
	"gymbook/internal/app/policies"
	domainbooking "gymbook/internal/domain/booking"
	"gymbook/internal/domain/shared/caldate"
)

func TestDropRefundsProratedAmountAndRelocates(t *testing.T) {
	stores := newStubStores()
	gateway := &stubGateway{}
	seedPaidScheduledBooking(t, stores, "bk-1", 1, 10) // 01..10 Jan, 10000 USD

	h := &DropBookingHandler{Stores: stores, Payments: gateway}
	result, err := h.Handle(context.Background(), DropBookingCommand{
		BookingID:     "bk-1",
		Reason:        "moving away",
		ReferenceDate: "06-01-2025",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if result.RefundCents != 5000 || result.Currency != "USD" {
		t.Fatalf("result = %+v, want 5000 USD", result)
	}
	if result.RefundID != "re_1" {
		t.Fatalf("refund id = %q", result.RefundID)
	}
	if gateway.calls != 1 || gateway.lastRef != "pay-bk-1" || gateway.lastAmount.Cents != 5000 {
		t.Fatalf("gateway calls=%d ref=%q amount=%d", gateway.calls, gateway.lastRef, gateway.lastAmount.Cents)
	}
	if len(stores.refunds.items) != 1 || stores.refunds.items[0].RefundAmount.Cents != 5000 {
		t.Fatalf("refund ledger = %+v", stores.refunds.items)
	}
	if len(stores.history.items) != 1 || stores.history.items[0].Status != domainbooking.StatusDropped {
		t.Fatalf("history = %+v", stores.history.items)
	}
	if _, ok := stores.accepted.items["bk-1"]; ok {
		t.Fatal("accepted record not deleted")
	}
}

func TestDropGatewayFailureWritesNoRecordsAndRetryResumes(t *testing.T) {
	stores := newStubStores()
	gateway := &stubGateway{err: policies.ErrGateway}
	seedPaidScheduledBooking(t, stores, "bk-1", 1, 10)

	h := &DropBookingHandler{Stores: stores, Payments: gateway}
	cmd := DropBookingCommand{
		BookingID:     "bk-1",
		Reason:        "moving away",
		ReferenceDate: "06-01-2025",
	}
	_, err := h.Handle(context.Background(), cmd)
	if !errors.Is(err, policies.ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
	var partial *PartialRelocationError
	if errors.As(err, &partial) {
		t.Fatal("a declined refund is not a partial relocation")
	}

	if len(stores.refunds.items) != 0 {
		t.Fatal("refund recorded despite gateway failure")
	}
	if len(stores.history.items) != 0 {
		t.Fatal("history recorded despite gateway failure")
	}
	// The drop stays reserved on the accepted record so no other attempt can
	// slip in while the gateway is down.
	b, ok := stores.accepted.items["bk-1"]
	if !ok {
		t.Fatal("accepted record removed despite gateway failure")
	}
	if b.Status != domainbooking.StatusDropped {
		t.Fatalf("stored status = %v, want reserved drop", b.Status)
	}

	// Once the gateway recovers, the retry resumes from the reserved drop and
	// refunds the amount computed on the first attempt.
	gateway.err = nil
	result, err := h.Handle(context.Background(), cmd)
	if err != nil {
		t.Fatalf("retry after gateway recovery: %v", err)
	}
	if result.RefundCents != 5000 {
		t.Fatalf("retry refund = %d, want 5000", result.RefundCents)
	}
	if gateway.calls != 2 || gateway.lastAmount.Cents != 5000 {
		t.Fatalf("gateway calls=%d lastAmount=%d", gateway.calls, gateway.lastAmount.Cents)
	}
	if len(stores.refunds.items) != 1 || len(stores.history.items) != 1 {
		t.Fatalf("ledger=%d history=%d after retry", len(stores.refunds.items), len(stores.history.items))
	}
	if _, ok := stores.accepted.items["bk-1"]; ok {
		t.Fatal("accepted record not deleted after retry")
	}
}

// staleReadAcceptedStore serves reads from a fixed snapshot, simulating a
// second drop attempt that loaded the booking before the first one reserved it.
type staleReadAcceptedStore struct {
	*stubAcceptedStore
	stale *domainbooking.Booking
}

func (s *staleReadAcceptedStore) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	if s.stale != nil && s.stale.ID == id {
		return cloneBooking(s.stale), nil
	}
	return s.stubAcceptedStore.ByID(ctx, id)
}

type storesWithAccepted struct {
	*stubStores
	override domainbooking.AcceptedStore
}

func (s *storesWithAccepted) Accepted() domainbooking.AcceptedStore { return s.override }

func TestDropConcurrentAttemptLosesWithConflict(t *testing.T) {
	stores := newStubStores()
	gateway := &stubGateway{err: policies.ErrGateway}
	seedPaidScheduledBooking(t, stores, "bk-1", 1, 10)
	snapshot := cloneBooking(stores.accepted.items["bk-1"])

	// First attempt reserves the drop, then stalls at the gateway.
	h := &DropBookingHandler{Stores: stores, Payments: gateway}
	cmd := DropBookingCommand{BookingID: "bk-1", Reason: "moving away", ReferenceDate: "06-01-2025"}
	if _, err := h.Handle(context.Background(), cmd); !errors.Is(err, policies.ErrGateway) {
		t.Fatalf("first attempt: %v", err)
	}
	if gateway.calls != 1 {
		t.Fatalf("gateway calls after first attempt = %d", gateway.calls)
	}

	// Second attempt read the booking before the reservation landed. Its
	// version-checked write must lose before any money moves, even with the
	// gateway healthy again.
	gateway.err = nil
	staleStores := &storesWithAccepted{
		stubStores: stores,
		override:   &staleReadAcceptedStore{stubAcceptedStore: stores.accepted, stale: snapshot},
	}
	h2 := &DropBookingHandler{Stores: staleStores, Payments: gateway}
	_, err := h2.Handle(context.Background(), cmd)
	if !errors.Is(err, domainbooking.ErrConflict) {
		t.Fatalf("expected ErrConflict for the concurrent loser, got %v", err)
	}
	if gateway.calls != 1 {
		t.Fatalf("concurrent loser reached the gateway: calls = %d", gateway.calls)
	}
	if len(stores.refunds.items) != 0 || len(stores.history.items) != 0 {
		t.Fatalf("concurrent loser wrote records: ledger=%d history=%d", len(stores.refunds.items), len(stores.history.items))
	}
}

func TestDropRetryThroughBusCompletesRelocation(t *testing.T) {
	stores := newStubStores()
	gateway := &stubGateway{}
	seedPaidScheduledBooking(t, stores, "bk-1", 1, 10)
	stores.history.addErr = errors.New("history collection down")

	h := &DropBookingHandler{Stores: stores, Payments: gateway}
	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, DropBookingCommand{}.Key(), h)
	bus := middleware.ChainCommands(base, middleware.Idempotency(newStubIdempotencyStore(), nil))

	cmd := DropBookingCommand{BookingID: "bk-1", Reason: "moving away", ReferenceDate: "06-01-2025"}
	_, err := bus.Dispatch(context.Background(), cmd)
	var partial *PartialRelocationError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialRelocationError through the bus, got %v", err)
	}
	if partial.Step != "history record" {
		t.Fatalf("partial step = %q", partial.Step)
	}

	// The failed dispatch must not be cached; the retry re-executes the
	// handler, skips the gateway via the refund ledger and finishes the
	// relocation.
	stores.history.addErr = nil
	result, err := commands.Dispatch[DropBookingCommand, *DropBookingResult](context.Background(), bus, cmd)
	if err != nil {
		t.Fatalf("retry through bus: %v", err)
	}
	if result.RefundCents != 5000 {
		t.Fatalf("retry refund = %d, want 5000", result.RefundCents)
	}
	if gateway.calls != 1 {
		t.Fatalf("retry reached the gateway again: calls = %d", gateway.calls)
	}
	if len(stores.history.items) != 1 || len(stores.refunds.items) != 1 {
		t.Fatalf("history=%d ledger=%d after retry", len(stores.history.items), len(stores.refunds.items))
	}
	if _, ok := stores.accepted.items["bk-1"]; ok {
		t.Fatal("accepted record not deleted on retry")
	}
}

func TestDropHistoryFailureReportsPartialRelocation(t *testing.T) {
	stores := newStubStores()
	stores.history.addErr = errors.New("history collection down")
	gateway := &stubGateway{}
	seedPaidScheduledBooking(t, stores, "bk-1", 1, 10)

	h := &DropBookingHandler{Stores: stores, Payments: gateway}
	_, err := h.Handle(context.Background(), DropBookingCommand{
		BookingID:     "bk-1",
		Reason:        "moving away",
		ReferenceDate: "06-01-2025",
	})

	var partial *PartialRelocationError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialRelocationError, got %v", err)
	}
	if partial.Step != "history record" || partial.PaymentRef != "pay-bk-1" {
		t.Fatalf("partial = %+v", partial)
	}
	if gateway.calls != 1 {
		t.Fatalf("gateway calls = %d", gateway.calls)
	}
	// The refund ledger entry survives; it is what makes the retry safe.
	if len(stores.refunds.items) != 1 {
		t.Fatalf("refund ledger = %+v", stores.refunds.items)
	}
	if _, ok := stores.accepted.items["bk-1"]; !ok {
		t.Fatal("accepted record should remain until the retry finishes relocation")
	}
}

func TestDropRetrySkipsGatewayAfterRefund(t *testing.T) {
	stores := newStubStores()
	gateway := &stubGateway{}
	seedPaidScheduledBooking(t, stores, "bk-1", 1, 10)

	// Simulate a prior attempt that refunded and wrote the ledger entry but
	// failed before the relocation completed.
	stores.history.addErr = errors.New("transient")
	h := &DropBookingHandler{Stores: stores, Payments: gateway}
	cmd := DropBookingCommand{BookingID: "bk-1", Reason: "moving away", ReferenceDate: "06-01-2025"}
	if _, err := h.Handle(context.Background(), cmd); err == nil {
		t.Fatal("expected first attempt to fail")
	}
	if gateway.calls != 1 {
		t.Fatalf("gateway calls after first attempt = %d", gateway.calls)
	}

	stores.history.addErr = nil
	result, err := h.Handle(context.Background(), cmd)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if gateway.calls != 1 {
		t.Fatalf("retry reached the gateway again: calls = %d", gateway.calls)
	}
	if result.RefundCents != 5000 {
		t.Fatalf("retry refund = %d, want the original 5000", result.RefundCents)
	}
	if len(stores.refunds.items) != 1 {
		t.Fatalf("refund ledger duplicated: %d entries", len(stores.refunds.items))
	}
	if len(stores.history.items) != 1 {
		t.Fatalf("history entries = %d", len(stores.history.items))
	}
	if _, ok := stores.accepted.items["bk-1"]; ok {
		t.Fatal("accepted record not deleted on retry")
	}
}

func TestDropUnscheduledBookingRejected(t *testing.T) {
	stores := newStubStores()
	seedPaidScheduledBooking(t, stores, "bk-1", 1, 10)
	stored := stores.accepted.items["bk-1"]
	stored.Start = caldate.Date{}
	stored.End = caldate.Date{}

	h := &DropBookingHandler{Stores: stores, Payments: &stubGateway{}}
	_, err := h.Handle(context.Background(), DropBookingCommand{BookingID: "bk-1", Reason: "moving away"})
	if !errors.Is(err, domainbooking.ErrNotScheduled) {
		t.Fatalf("expected ErrNotScheduled, got %v", err)
	}
}

func TestDropZeroRefundSkipsGateway(t *testing.T) {
	stores := newStubStores()
	gateway := &stubGateway{}
	seedPaidScheduledBooking(t, stores, "bk-1", 1, 10)

	h := &DropBookingHandler{Stores: stores, Payments: gateway}
	result, err := h.Handle(context.Background(), DropBookingCommand{
		BookingID:     "bk-1",
		Reason:        "too late anyway",
		ReferenceDate: "11-01-2025",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.RefundCents != 0 {
		t.Fatalf("refund = %d, want 0", result.RefundCents)
	}
	if gateway.calls != 0 {
		t.Fatalf("gateway called for a zero refund: %d", gateway.calls)
	}
	if len(stores.history.items) != 1 {
		t.Fatal("booking not relocated to history")
	}
}

func TestDropUnknownBooking(t *testing.T) {
	h := &DropBookingHandler{Stores: newStubStores(), Payments: &stubGateway{}}
	_, err := h.Handle(context.Background(), DropBookingCommand{BookingID: "missing", Reason: "x"})
	if !errors.Is(err, domainbooking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
