package memory

import (
	"context"
	"sync"

	appoutbox "gymbook/internal/app/outbox"
)

// Sink receives flushed outbox records; the Kafka publisher satisfies it.
type Sink func(ctx context.Context, rec appoutbox.EventRecord) error

// Outbox buffers event records until the post-command flush hands them to the
// sink. Without a sink it simply discards on flush, which is the dev default.
type Outbox struct {
	mu      sync.Mutex
	pending []appoutbox.EventRecord
	sink    Sink
}

func NewOutbox(sink Sink) *Outbox {
	return &Outbox{sink: sink}
}

func (o *Outbox) Add(ctx context.Context, rec appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, rec)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	batch := o.pending
	o.pending = nil
	o.mu.Unlock()
	if o.sink == nil {
		return nil
	}
	for i, rec := range batch {
		if err := o.sink(ctx, rec); err != nil {
			o.mu.Lock()
			o.pending = append(batch[i:], o.pending...)
			o.mu.Unlock()
			return err
		}
	}
	return nil
}

var _ appoutbox.Outbox = (*Outbox)(nil)
