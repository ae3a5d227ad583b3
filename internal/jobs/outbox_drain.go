package jobs

import (
	"context"
	"log/slog"
	"time"

	"gymbook/internal/app/outbox"
)

// OutboxDrain retries event delivery in the background. The per-command flush
// gives up as soon as the broker misbehaves and leaves the records buffered;
// this loop polls the outbox, walks the retry backoff schedule on failure and
// then waits for the next poll, so buffered events eventually leave the
// process.
type OutboxDrain struct {
	Box      outbox.Outbox
	Interval time.Duration
	Backoff  []time.Duration
	Logger   *slog.Logger
}

func (d OutboxDrain) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d OutboxDrain) drain(ctx context.Context) {
	err := d.Box.Flush(ctx)
	if err == nil {
		return
	}
	for _, pause := range d.Backoff {
		if d.Logger != nil {
			d.Logger.Warn("outbox flush failed", "error", err, "retry_in", pause)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}
		if err = d.Box.Flush(ctx); err == nil {
			return
		}
	}
	if d.Logger != nil {
		d.Logger.Error("outbox flush still failing after retries", "error", err)
	}
}
