package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "gymbook/internal/domain/booking"
	"gymbook/internal/domain/shared/caldate"
	"gymbook/internal/domain/shared/money"
)

// Each booking variant owns its own collection set: class_booking_request,
// trainer_booking_request and so on. Lookups by id probe both variants.

const (
	suffixRequest  = "booking_request"
	suffixAccepted = "booking_accepted"
	suffixHistory  = "booking_history"
	suffixRefund   = "booking_refund"
)

var variants = []domainbooking.Variant{domainbooking.VariantClass, domainbooking.VariantTrainer}

func collectionName(v domainbooking.Variant, suffix string) string {
	if v == domainbooking.VariantTrainer {
		return "trainer_" + suffix
	}
	return "class_" + suffix
}

type Stores struct {
	requests *requestStore
	accepted *acceptedStore
	history  *historyStore
	refunds  *refundStore
}

func NewStores(db *mongo.Database) *Stores {
	return &Stores{
		requests: &requestStore{db: db},
		accepted: &acceptedStore{db: db},
		history:  &historyStore{db: db},
		refunds:  &refundStore{db: db},
	}
}

func (s *Stores) Requests() domainbooking.RequestStore  { return s.requests }
func (s *Stores) Accepted() domainbooking.AcceptedStore { return s.accepted }
func (s *Stores) History() domainbooking.HistoryStore   { return s.history }
func (s *Stores) Refunds() domainbooking.RefundStore    { return s.refunds }

var _ domainbooking.Stores = (*Stores)(nil)

type requestStore struct {
	db *mongo.Database
}

func (s *requestStore) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	return findByID(ctx, s.db, suffixRequest, id)
}

func (s *requestStore) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	col := s.db.Collection(collectionName(b.Variant, suffixRequest))
	opts := options.Update().SetUpsert(true)
	_, err := col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (s *requestStore) Delete(ctx context.Context, id domainbooking.BookingID) error {
	return deleteByID(ctx, s.db, suffixRequest, id)
}

func (s *requestStore) List(ctx context.Context, variant domainbooking.Variant) ([]*domainbooking.Booking, error) {
	return list(ctx, s.db, suffixRequest, variant, bson.M{})
}

func (s *requestStore) ListSubmittedBefore(ctx context.Context, cutoff time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{"submitted_at": bson.M{"$lt": cutoff.UnixMilli()}}
	return list(ctx, s.db, suffixRequest, "", filter)
}

type acceptedStore struct {
	db *mongo.Database
}

func (s *acceptedStore) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	return findByID(ctx, s.db, suffixAccepted, id)
}

// Save rejects stale snapshots with ErrConflict via the version filter.
func (s *acceptedStore) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	col := s.db.Collection(collectionName(b.Variant, suffixAccepted))
	opts := options.Update().SetUpsert(true)
	res, err := col.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrConflict
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainbooking.ErrConflict
	}
	b.Version = doc.Version
	return nil
}

func (s *acceptedStore) Delete(ctx context.Context, id domainbooking.BookingID) error {
	return deleteByID(ctx, s.db, suffixAccepted, id)
}

func (s *acceptedStore) List(ctx context.Context, variant domainbooking.Variant) ([]*domainbooking.Booking, error) {
	return list(ctx, s.db, suffixAccepted, variant, bson.M{})
}

type historyStore struct {
	db *mongo.Database
}

func (s *historyStore) Add(ctx context.Context, b *domainbooking.Booking) error {
	col := s.db.Collection(collectionName(b.Variant, suffixHistory))
	_, err := col.InsertOne(ctx, newBookingDocument(b))
	if mongo.IsDuplicateKeyError(err) {
		// A relocation retry may re-add the same record; that is fine.
		return nil
	}
	return err
}

func (s *historyStore) List(ctx context.Context, variant domainbooking.Variant) ([]*domainbooking.Booking, error) {
	return list(ctx, s.db, suffixHistory, variant, bson.M{})
}

type refundStore struct {
	db *mongo.Database
}

func (s *refundStore) Add(ctx context.Context, b *domainbooking.Booking) error {
	col := s.db.Collection(collectionName(b.Variant, suffixRefund))
	_, err := col.InsertOne(ctx, newBookingDocument(b))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (s *refundStore) ByPaymentRef(ctx context.Context, paymentRef string) (*domainbooking.Booking, bool, error) {
	for _, v := range variants {
		col := s.db.Collection(collectionName(v, suffixRefund))
		var doc bookingDocument
		err := col.FindOne(ctx, bson.M{"payment_ref": paymentRef}).Decode(&doc)
		if err == nil {
			b, convErr := doc.toAggregate()
			if convErr != nil {
				return nil, false, convErr
			}
			return b, true, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, err
		}
	}
	return nil, false, nil
}

func (s *refundStore) List(ctx context.Context, variant domainbooking.Variant) ([]*domainbooking.Booking, error) {
	return list(ctx, s.db, suffixRefund, variant, bson.M{})
}

func findByID(ctx context.Context, db *mongo.Database, suffix string, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	for _, v := range variants {
		col := db.Collection(collectionName(v, suffix))
		var doc bookingDocument
		err := col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc)
		if err == nil {
			return doc.toAggregate()
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
	}
	return nil, domainbooking.ErrNotFound
}

func deleteByID(ctx context.Context, db *mongo.Database, suffix string, id domainbooking.BookingID) error {
	for _, v := range variants {
		col := db.Collection(collectionName(v, suffix))
		res, err := col.DeleteOne(ctx, bson.M{"_id": string(id)})
		if err != nil {
			return err
		}
		if res.DeletedCount > 0 {
			return nil
		}
	}
	return domainbooking.ErrNotFound
}

func list(ctx context.Context, db *mongo.Database, suffix string, variant domainbooking.Variant, filter bson.M) ([]*domainbooking.Booking, error) {
	targets := variants
	if variant != "" {
		targets = []domainbooking.Variant{variant}
	}
	var out []*domainbooking.Booking
	for _, v := range targets {
		col := db.Collection(collectionName(v, suffix))
		cur, err := col.Find(ctx, filter)
		if err != nil {
			return nil, err
		}
		var docs []bookingDocument
		if err := cur.All(ctx, &docs); err != nil {
			return nil, err
		}
		for _, doc := range docs {
			b, err := doc.toAggregate()
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
	}
	return out, nil
}

type applicantDocument struct {
	Name  string `bson:"name,omitempty"`
	Email string `bson:"email,omitempty"`
	Phone string `bson:"phone,omitempty"`
}

type bookingDocument struct {
	ID        string            `bson:"_id"`
	Variant   string            `bson:"variant"`
	Applicant applicantDocument `bson:"applicant_data,omitempty"`
	// Older records carry the applicant flattened on the root document.
	LegacyName    string   `bson:"applicant_name,omitempty"`
	LegacyEmail   string   `bson:"applicant_email,omitempty"`
	LegacyPhone   string   `bson:"applicant_phone,omitempty"`
	ClassName     string   `bson:"class_name,omitempty"`
	TrainerID     string   `bson:"trainer_id,omitempty"`
	SessionIDs    []string `bson:"session_ids,omitempty"`
	DurationUnit  string   `bson:"duration_unit,omitempty"`
	DurationWeeks int      `bson:"duration_weeks,omitempty"`
	TotalCents    int64    `bson:"total_cents"`
	Currency      string   `bson:"currency"`
	SubmittedAt   int64    `bson:"submitted_at"`
	Status        string   `bson:"status"`
	Paid          bool     `bson:"paid"`
	PaidAt        int64    `bson:"paid_at,omitempty"`
	PaymentRef    string   `bson:"payment_ref,omitempty"`
	AcceptedAt    int64    `bson:"accepted_at,omitempty"`
	StartDate     string   `bson:"start_date,omitempty"`
	EndDate       string   `bson:"end_date,omitempty"`
	Reason        string   `bson:"reason,omitempty"`
	RefundCents   int64    `bson:"refund_cents,omitempty"`
	ClosedAt      int64    `bson:"closed_at,omitempty"`
	Version       int64    `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:      string(b.ID),
		Variant: string(b.Variant),
		Applicant: applicantDocument{
			Name:  b.Applicant.Name,
			Email: b.Applicant.Email,
			Phone: b.Applicant.Phone,
		},
		ClassName:     b.Subject.ClassName,
		TrainerID:     b.Subject.TrainerID,
		SessionIDs:    b.Subject.SessionIDs,
		DurationUnit:  string(b.DurationUnit),
		DurationWeeks: b.DurationWeeks,
		TotalCents:    b.TotalPrice.Cents,
		Currency:      b.TotalPrice.Currency,
		SubmittedAt:   b.SubmittedAt.UnixMilli(),
		Status:        string(b.Status),
		Paid:          b.Paid,
		PaymentRef:    b.PaymentRef,
		Reason:        b.Reason,
		RefundCents:   b.RefundAmount.Cents,
		Version:       b.Version,
	}
	if !b.PaidAt.IsZero() {
		doc.PaidAt = b.PaidAt.UnixMilli()
	}
	if !b.AcceptedAt.IsZero() {
		doc.AcceptedAt = b.AcceptedAt.UnixMilli()
	}
	if !b.ClosedAt.IsZero() {
		doc.ClosedAt = b.ClosedAt.UnixMilli()
	}
	if !b.Start.IsZero() {
		doc.StartDate = b.Start.Format()
	}
	if !b.End.IsZero() {
		doc.EndDate = b.End.Format()
	}
	return doc
}

func (d bookingDocument) toAggregate() (*domainbooking.Booking, error) {
	applicant := domainbooking.Applicant{
		Name:  d.Applicant.Name,
		Email: d.Applicant.Email,
		Phone: d.Applicant.Phone,
	}
	if applicant.Email == "" {
		applicant = domainbooking.Applicant{Name: d.LegacyName, Email: d.LegacyEmail, Phone: d.LegacyPhone}
	}
	b := &domainbooking.Booking{
		ID:        domainbooking.BookingID(d.ID),
		Variant:   domainbooking.Variant(d.Variant),
		Applicant: applicant,
		Subject: domainbooking.Subject{
			ClassName:  d.ClassName,
			TrainerID:  d.TrainerID,
			SessionIDs: d.SessionIDs,
		},
		DurationUnit:  domainbooking.DurationUnit(d.DurationUnit),
		DurationWeeks: d.DurationWeeks,
		TotalPrice:    money.Money{Cents: d.TotalCents, Currency: d.Currency},
		SubmittedAt:   millisToTime(d.SubmittedAt),
		Status:        domainbooking.Status(d.Status),
		Paid:          d.Paid,
		PaymentRef:    d.PaymentRef,
		Reason:        d.Reason,
		RefundAmount:  money.Money{Cents: d.RefundCents, Currency: d.Currency},
		Version:       d.Version,
	}
	if d.PaidAt > 0 {
		b.PaidAt = millisToTime(d.PaidAt)
	}
	if d.AcceptedAt > 0 {
		b.AcceptedAt = millisToTime(d.AcceptedAt)
	}
	if d.ClosedAt > 0 {
		b.ClosedAt = millisToTime(d.ClosedAt)
	}
	if d.StartDate != "" {
		start, err := caldate.Parse(d.StartDate)
		if err != nil {
			return nil, err
		}
		b.Start = start
	}
	if d.EndDate != "" {
		end, err := caldate.Parse(d.EndDate)
		if err != nil {
			return nil, err
		}
		b.End = end
	}
	return b, nil
}

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
