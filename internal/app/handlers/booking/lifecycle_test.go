package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	domainbooking "gymbook/internal/domain/booking"
	"gymbook/internal/domain/shared/caldate"
)

func TestRequestBookingStoresPendingRequest(t *testing.T) {
	stores := newStubStores()
	h := &RequestBookingHandler{Stores: stores}

	result, err := h.Handle(context.Background(), RequestBookingCommand{
		CommandID:      "bk-1",
		Variant:        domainbooking.VariantClass,
		ApplicantName:  "Dana",
		ApplicantEmail: "dana@example.com",
		ClassName:      "Yoga",
		DurationUnit:   domainbooking.UnitMonthly,
		TotalCents:     10000,
		Currency:       "usd",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.BookingID != "bk-1" {
		t.Fatalf("booking id = %q", result.BookingID)
	}
	b, ok := stores.requests.items["bk-1"]
	if !ok {
		t.Fatal("request not stored")
	}
	if b.Status != domainbooking.StatusPending || b.TotalPrice.Currency != "USD" {
		t.Fatalf("stored request = status %v, currency %q", b.Status, b.TotalPrice.Currency)
	}
}

func TestRequestBookingValidatesApplicant(t *testing.T) {
	h := &RequestBookingHandler{Stores: newStubStores()}
	_, err := h.Handle(context.Background(), RequestBookingCommand{
		CommandID:    "bk-1",
		Variant:      domainbooking.VariantClass,
		DurationUnit: domainbooking.UnitDaily,
		Currency:     "USD",
	})
	if !errors.Is(err, domainbooking.ErrApplicantRequired) {
		t.Fatalf("expected ErrApplicantRequired, got %v", err)
	}
}

func TestAcceptRelocatesRequestAndRunsHook(t *testing.T) {
	stores := newStubStores()
	schedule := &stubSchedule{}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:            "bk-1",
		Variant:       domainbooking.VariantTrainer,
		Applicant:     domainbooking.Applicant{Email: "lee@example.com"},
		Subject:       domainbooking.Subject{TrainerID: "tr-9", SessionIDs: []string{"s1"}},
		DurationWeeks: 4,
		TotalPrice:    domainMoney(t, 20000),
		SubmittedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	b.ClearEvents()
	if err := stores.requests.Save(context.Background(), b); err != nil {
		t.Fatalf("seed: %v", err)
	}

	h := &AcceptBookingHandler{
		Stores: stores,
		Hooks:  HookSelector{Class: ClassHooks{}, Trainer: TrainerHooks{Schedule: schedule}},
	}
	if _, err := h.Handle(context.Background(), AcceptBookingCommand{BookingID: "bk-1"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if _, ok := stores.requests.items["bk-1"]; ok {
		t.Fatal("request not deleted after accept")
	}
	accepted, ok := stores.accepted.items["bk-1"]
	if !ok {
		t.Fatal("booking not in accepted store")
	}
	if accepted.Status != domainbooking.StatusAccepted || accepted.Paid {
		t.Fatalf("accepted = status %v, paid %v", accepted.Status, accepted.Paid)
	}
	if len(schedule.added) != 1 || schedule.added[0] != "tr-9:lee@example.com" {
		t.Fatalf("roster additions = %v", schedule.added)
	}
}

func TestRejectFallsBackToAcceptedStore(t *testing.T) {
	stores := newStubStores()
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:           "bk-1",
		Variant:      domainbooking.VariantClass,
		Applicant:    domainbooking.Applicant{Email: "dana@example.com"},
		DurationUnit: domainbooking.UnitDaily,
		TotalPrice:   domainMoney(t, 5000),
		SubmittedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	if err := b.Accept(time.Now()); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	b.ClearEvents()
	if err := stores.accepted.Save(context.Background(), b); err != nil {
		t.Fatalf("seed: %v", err)
	}

	h := &RejectBookingHandler{Stores: stores}
	if _, err := h.Handle(context.Background(), RejectBookingCommand{BookingID: "bk-1", Reason: "no capacity"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if _, ok := stores.accepted.items["bk-1"]; ok {
		t.Fatal("accepted record not deleted")
	}
	if len(stores.history.items) != 1 || stores.history.items[0].Status != domainbooking.StatusRejected {
		t.Fatalf("history = %+v", stores.history.items)
	}
}

func TestRejectPaidBookingFails(t *testing.T) {
	stores := newStubStores()
	seedPaidScheduledBooking(t, stores, "bk-1", 1, 10)

	h := &RejectBookingHandler{Stores: stores}
	_, err := h.Handle(context.Background(), RejectBookingCommand{BookingID: "bk-1", Reason: "too late"})
	if !errors.Is(err, domainbooking.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if len(stores.history.items) != 0 {
		t.Fatal("rejected paid booking leaked into history")
	}
}

func TestMarkUnavailableUsesSystemReason(t *testing.T) {
	stores := newStubStores()
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:           "bk-1",
		Variant:      domainbooking.VariantClass,
		Applicant:    domainbooking.Applicant{Email: "dana@example.com"},
		DurationUnit: domainbooking.UnitDaily,
		TotalPrice:   domainMoney(t, 5000),
		SubmittedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	b.ClearEvents()
	if err := stores.requests.Save(context.Background(), b); err != nil {
		t.Fatalf("seed: %v", err)
	}

	h := &MarkUnavailableHandler{Stores: stores}
	if _, err := h.Handle(context.Background(), MarkUnavailableCommand{BookingID: "bk-1"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(stores.history.items) != 1 {
		t.Fatal("booking not relocated to history")
	}
	got := stores.history.items[0]
	if got.Status != domainbooking.StatusUnavailable || got.Reason != domainbooking.ReasonUnavailable {
		t.Fatalf("history record = status %v, reason %q", got.Status, got.Reason)
	}
}

func TestConfirmPaymentMarksBookingPaid(t *testing.T) {
	stores := newStubStores()
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:           "bk-1",
		Variant:      domainbooking.VariantClass,
		Applicant:    domainbooking.Applicant{Email: "dana@example.com"},
		DurationUnit: domainbooking.UnitMonthly,
		TotalPrice:   domainMoney(t, 10000),
		SubmittedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	if err := b.Accept(time.Now()); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	b.ClearEvents()
	if err := stores.accepted.Save(context.Background(), b); err != nil {
		t.Fatalf("seed: %v", err)
	}

	h := &ConfirmPaymentHandler{Stores: stores}
	if _, err := h.Handle(context.Background(), ConfirmPaymentCommand{
		BookingID:  "bk-1",
		PaymentRef: "pay-77",
		PaidAt:     time.Now(),
	}); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	stored := stores.accepted.items["bk-1"]
	if !stored.Paid || stored.PaymentRef != "pay-77" {
		t.Fatalf("stored = paid %v, ref %q", stored.Paid, stored.PaymentRef)
	}
}

func TestSetScheduleParsesStartAndDerivesEnd(t *testing.T) {
	stores := newStubStores()
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:           "bk-1",
		Variant:      domainbooking.VariantClass,
		Applicant:    domainbooking.Applicant{Email: "dana@example.com"},
		DurationUnit: domainbooking.UnitMonthly,
		TotalPrice:   domainMoney(t, 10000),
		SubmittedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	if err := b.Accept(time.Now()); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := b.ConfirmPayment("pay-1", time.Now()); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	b.ClearEvents()
	if err := stores.accepted.Save(context.Background(), b); err != nil {
		t.Fatalf("seed: %v", err)
	}

	h := &SetScheduleHandler{Stores: stores}
	result, err := h.Handle(context.Background(), SetScheduleCommand{BookingID: "bk-1", StartDate: "15-01-2025"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.StartDate != "15-01-2025" || result.EndDate != "14-02-2025" {
		t.Fatalf("result = %+v", result)
	}

	if _, err := h.Handle(context.Background(), SetScheduleCommand{BookingID: "bk-1", StartDate: "not a date"}); !errors.Is(err, caldate.ErrUnparsable) {
		t.Fatalf("expected ErrUnparsable, got %v", err)
	}
}

func TestCancelReleasesTrainerRoster(t *testing.T) {
	stores := newStubStores()
	schedule := &stubSchedule{}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:            "bk-1",
		Variant:       domainbooking.VariantTrainer,
		Applicant:     domainbooking.Applicant{Email: "lee@example.com"},
		Subject:       domainbooking.Subject{TrainerID: "tr-9", SessionIDs: []string{"s1"}},
		DurationWeeks: 4,
		TotalPrice:    domainMoney(t, 20000),
		SubmittedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	if err := b.Accept(time.Now()); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	b.ClearEvents()
	if err := stores.accepted.Save(context.Background(), b); err != nil {
		t.Fatalf("seed: %v", err)
	}

	h := &CancelBookingHandler{
		Stores: stores,
		Hooks:  HookSelector{Class: ClassHooks{}, Trainer: TrainerHooks{Schedule: schedule}},
	}
	if _, err := h.Handle(context.Background(), CancelBookingCommand{BookingID: "bk-1", Reason: "changed plans"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(schedule.removed) != 1 || schedule.removed[0] != "tr-9:lee@example.com" {
		t.Fatalf("roster removals = %v", schedule.removed)
	}
	if len(stores.history.items) != 1 || stores.history.items[0].Status != domainbooking.StatusCancelled {
		t.Fatalf("history = %+v", stores.history.items)
	}
	if _, ok := stores.accepted.items["bk-1"]; ok {
		t.Fatal("accepted record not deleted")
	}
}

func TestPurgeExpiredDeletesOldRequests(t *testing.T) {
	stores := newStubStores()
	now := time.Now().UTC()
	for _, seed := range []struct {
		id  string
		age time.Duration
	}{
		{"old", 13 * 24 * time.Hour},
		{"fresh", 24 * time.Hour},
	} {
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID:           domainbooking.BookingID(seed.id),
			Variant:      domainbooking.VariantClass,
			Applicant:    domainbooking.Applicant{Email: seed.id + "@example.com"},
			DurationUnit: domainbooking.UnitDaily,
			TotalPrice:   domainMoney(t, 1000),
			SubmittedAt:  now.Add(-seed.age),
		})
		if err != nil {
			t.Fatalf("NewBooking: %v", err)
		}
		b.ClearEvents()
		if err := stores.requests.Save(context.Background(), b); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	h := &PurgeExpiredHandler{Stores: stores}
	result, err := h.Handle(context.Background(), PurgeExpiredCommand{Threshold: 12 * 24 * time.Hour})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.Purged != 1 {
		t.Fatalf("purged = %d, want 1", result.Purged)
	}
	if _, ok := stores.requests.items["old"]; ok {
		t.Fatal("stale request survived the purge")
	}
	if _, ok := stores.requests.items["fresh"]; !ok {
		t.Fatal("fresh request was purged")
	}
}

func TestListDerivesCompletedStatus(t *testing.T) {
	stores := newStubStores()
	seedPaidScheduledBooking(t, stores, "bk-1", 1, 10)
	// Make the stored schedule end yesterday so the projection kicks in.
	stored := stores.accepted.items["bk-1"]
	stored.End = caldate.Today(time.Local).AddDays(-1)
	stored.Start = stored.End.AddDays(-9)

	h := &ListBookingsHandler{Stores: stores}
	views, err := h.Ask(context.Background(), ListBookingsQuery{Store: StoreAccepted})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("views = %d", len(views))
	}
	if views[0].Status != string(domainbooking.StatusCompleted) {
		t.Fatalf("status = %q, want COMPLETED", views[0].Status)
	}
	if stores.accepted.items["bk-1"].Status != domainbooking.StatusAccepted {
		t.Fatal("projection mutated the stored record")
	}

	if _, err := h.Ask(context.Background(), ListBookingsQuery{Store: "bogus"}); !errors.Is(err, ErrUnknownStore) {
		t.Fatalf("expected ErrUnknownStore, got %v", err)
	}
}
