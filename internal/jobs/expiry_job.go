package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"gymbook/internal/app/commands"
	bookingapp "gymbook/internal/app/handlers/booking"
)

// ExpiryJob purges pending requests older than the threshold on a cron
// schedule.
type ExpiryJob struct {
	Commands  commands.Bus
	Threshold time.Duration
	Logger    *slog.Logger
}

// Register attaches the job to the provided cron runner.
func (j ExpiryJob) Register(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, j.run)
}

func (j ExpiryJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cmd := bookingapp.PurgeExpiredCommand{Threshold: j.Threshold}
	result, err := commands.Dispatch[bookingapp.PurgeExpiredCommand, *bookingapp.PurgeExpiredResult](ctx, j.Commands, cmd)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error("expiry purge failed", "error", err)
		}
		return
	}
	if j.Logger != nil && result != nil && result.Purged > 0 {
		j.Logger.Info("expired booking requests purged", "count", result.Purged)
	}
}
