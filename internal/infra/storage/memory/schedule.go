package memory

import (
	"context"
	"sync"

	"gymbook/internal/app/policies"
)

// ScheduleStore keeps trainer session rosters in memory.
type ScheduleStore struct {
	mu      sync.Mutex
	rosters map[string]map[string][]policies.Participant // trainerID -> sessionID -> roster
}

func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{rosters: make(map[string]map[string][]policies.Participant)}
}

func (s *ScheduleStore) AddParticipant(ctx context.Context, trainerID string, sessionIDs []string, p policies.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions, ok := s.rosters[trainerID]
	if !ok {
		sessions = make(map[string][]policies.Participant)
		s.rosters[trainerID] = sessions
	}
	for _, sid := range sessionIDs {
		sessions[sid] = append(sessions[sid], p)
	}
	return nil
}

func (s *ScheduleStore) RemoveParticipant(ctx context.Context, trainerID string, sessionIDs []string, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions, ok := s.rosters[trainerID]
	if !ok {
		return nil
	}
	for _, sid := range sessionIDs {
		roster := sessions[sid]
		kept := roster[:0]
		for _, p := range roster {
			if p.Email != email {
				kept = append(kept, p)
			}
		}
		sessions[sid] = kept
	}
	return nil
}

// Roster returns a copy of a session's participants, mostly for tests.
func (s *ScheduleStore) Roster(trainerID, sessionID string) []policies.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster := s.rosters[trainerID][sessionID]
	out := make([]policies.Participant, len(roster))
	copy(out, roster)
	return out
}

var _ policies.SchedulePort = (*ScheduleStore)(nil)
