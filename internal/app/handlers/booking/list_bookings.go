package booking

import (
	"context"
	"errors"
	"time"

	"gymbook/internal/app/queries"
	domainbooking "gymbook/internal/domain/booking"
	"gymbook/internal/domain/shared/caldate"
)

const listBookingsKey = "booking.list"

type StoreName string

const (
	StoreRequests StoreName = "requests"
	StoreAccepted StoreName = "accepted"
	StoreHistory  StoreName = "history"
	StoreRefunds  StoreName = "refunds"
)

var ErrUnknownStore = errors.New("booking: unknown store name")

type ListBookingsQuery struct {
	Store   StoreName
	Variant domainbooking.Variant
}

func (q ListBookingsQuery) Key() string { return listBookingsKey }

type BookingView struct {
	ID             string `json:"id"`
	Variant        string `json:"variant"`
	ApplicantName  string `json:"applicant_name"`
	ApplicantEmail string `json:"applicant_email"`
	ApplicantPhone string `json:"applicant_phone"`
	Subject        string `json:"subject"`
	Status         string `json:"status"`
	Paid           bool   `json:"paid"`
	PaymentRef     string `json:"payment_ref,omitempty"`
	TotalCents     int64  `json:"total_cents"`
	RefundCents    int64  `json:"refund_cents,omitempty"`
	Currency       string `json:"currency"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// ListBookingsHandler projects store contents into view rows. Completed is
// derived here from the end date, never read from the record, and applicant
// display info goes through the memoized lookup.
type ListBookingsHandler struct {
	Stores domainbooking.Stores
	Users  *UserInfoCache
}

func (h *ListBookingsHandler) Ask(ctx context.Context, q ListBookingsQuery) ([]BookingView, error) {
	var (
		items []*domainbooking.Booking
		err   error
	)
	switch q.Store {
	case StoreRequests:
		items, err = h.Stores.Requests().List(ctx, q.Variant)
	case StoreAccepted:
		items, err = h.Stores.Accepted().List(ctx, q.Variant)
	case StoreHistory:
		items, err = h.Stores.History().List(ctx, q.Variant)
	case StoreRefunds:
		items, err = h.Stores.Refunds().List(ctx, q.Variant)
	default:
		return nil, ErrUnknownStore
	}
	if err != nil {
		return nil, err
	}

	today := caldate.Today(time.Local)
	views := make([]BookingView, 0, len(items))
	for _, b := range items {
		views = append(views, h.toView(ctx, b, today))
	}
	return views, nil
}

func (h *ListBookingsHandler) toView(ctx context.Context, b *domainbooking.Booking, today caldate.Date) BookingView {
	v := BookingView{
		ID:             string(b.ID),
		Variant:        string(b.Variant),
		ApplicantName:  b.Applicant.Name,
		ApplicantEmail: b.Applicant.Email,
		ApplicantPhone: b.Applicant.Phone,
		Subject:        subjectLabel(b),
		Status:         string(b.EffectiveStatus(today)),
		Paid:           b.Paid,
		PaymentRef:     b.PaymentRef,
		TotalCents:     b.TotalPrice.Cents,
		RefundCents:    b.RefundAmount.Cents,
		Currency:       b.TotalPrice.Currency,
		Reason:         b.Reason,
	}
	if !b.Start.IsZero() {
		v.StartDate = b.Start.Format()
	}
	if !b.End.IsZero() {
		v.EndDate = b.End.Format()
	}
	if h.Users != nil {
		if info, err := h.Users.Get(ctx, b.Applicant.Email); err == nil {
			if info.DisplayName != "" {
				v.ApplicantName = info.DisplayName
			}
			if info.Phone != "" {
				v.ApplicantPhone = info.Phone
			}
		}
	}
	return v
}

func subjectLabel(b *domainbooking.Booking) string {
	if b.Variant == domainbooking.VariantTrainer {
		return b.Subject.TrainerID
	}
	return b.Subject.ClassName
}

var _ queries.Handler[ListBookingsQuery, []BookingView] = (*ListBookingsHandler)(nil)
