package booking

import (
	"context"
	"time"

	"gymbook/internal/app/commands"
	"gymbook/internal/app/outbox"
	domainbooking "gymbook/internal/domain/booking"
)

const purgeExpiredKey = "booking.purge_expired"

type PurgeExpiredCommand struct {
	Threshold time.Duration
}

func (c PurgeExpiredCommand) Key() string { return purgeExpiredKey }

type PurgeExpiredResult struct {
	Purged int `json:"purged"`
}

// PurgeExpiredHandler permanently deletes pending requests older than the
// threshold. Deletion is the terminal Expired transition; nothing is archived.
type PurgeExpiredHandler struct {
	Stores  domainbooking.Stores
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *PurgeExpiredHandler) Handle(ctx context.Context, cmd PurgeExpiredCommand) (*PurgeExpiredResult, error) {
	cutoff := time.Now().UTC().Add(-cmd.Threshold)
	stale, err := h.Stores.Requests().ListSubmittedBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	purged := 0
	for _, b := range stale {
		if err := h.Stores.Requests().Delete(ctx, b.ID); err != nil {
			return &PurgeExpiredResult{Purged: purged}, err
		}
		b.Record(domainbooking.BookingExpired{BookingID: b.ID, At: time.Now().UTC()})
		if err := drainEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
			return &PurgeExpiredResult{Purged: purged}, err
		}
		purged++
	}
	return &PurgeExpiredResult{Purged: purged}, nil
}

var _ commands.Handler[PurgeExpiredCommand, *PurgeExpiredResult] = (*PurgeExpiredHandler)(nil)
