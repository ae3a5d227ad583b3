package booking

import (
	"context"

	"gymbook/internal/app/policies"
	domainbooking "gymbook/internal/domain/booking"
)

// DomainHooks are the variant-specific side effects of a transition. One
// transition table serves both booking variants; the hooks differ.
type DomainHooks interface {
	// OnAccept runs after the record lands in the accepted store.
	OnAccept(ctx context.Context, b *domainbooking.Booking) error
	// OnRelease runs when an accepted booking leaves the schedule (cancel).
	OnRelease(ctx context.Context, b *domainbooking.Booking) error
}

// ClassHooks: class bookings have no schedule roster, every hook is a no-op.
type ClassHooks struct{}

func (ClassHooks) OnAccept(context.Context, *domainbooking.Booking) error  { return nil }
func (ClassHooks) OnRelease(context.Context, *domainbooking.Booking) error { return nil }

// TrainerHooks keep the trainer's session roster in step with the booking.
type TrainerHooks struct {
	Schedule policies.SchedulePort
}

func (h TrainerHooks) OnAccept(ctx context.Context, b *domainbooking.Booking) error {
	return h.Schedule.AddParticipant(ctx, b.Subject.TrainerID, b.Subject.SessionIDs, policies.Participant{
		Name:  b.Applicant.Name,
		Email: b.Applicant.Email,
		Phone: b.Applicant.Phone,
	})
}

func (h TrainerHooks) OnRelease(ctx context.Context, b *domainbooking.Booking) error {
	return h.Schedule.RemoveParticipant(ctx, b.Subject.TrainerID, b.Subject.SessionIDs, b.Applicant.Email)
}

// HookSelector picks the hooks for a booking's variant.
type HookSelector struct {
	Class   DomainHooks
	Trainer DomainHooks
}

func (s HookSelector) For(v domainbooking.Variant) DomainHooks {
	if v == domainbooking.VariantTrainer && s.Trainer != nil {
		return s.Trainer
	}
	if s.Class != nil {
		return s.Class
	}
	return ClassHooks{}
}
