package policies

import "context"

// Participant is the payload placed on a trainer's schedule slots.
type Participant struct {
	Name  string
	Email string
	Phone string
}

// SchedulePort mutates trainer session rosters. Class bookings never touch it.
type SchedulePort interface {
	AddParticipant(ctx context.Context, trainerID string, sessionIDs []string, p Participant) error
	RemoveParticipant(ctx context.Context, trainerID string, sessionIDs []string, email string) error
}
