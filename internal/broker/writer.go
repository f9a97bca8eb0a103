package broker

import (
	"context"

	"github.com/brianly1003/pubd/internal/conn"
	"github.com/brianly1003/pubd/internal/domain/ports"
	"github.com/brianly1003/pubd/internal/subs"
)

// Writer delivers one fan-out message to one subscriber.
type Writer struct {
	writes   *conn.WriteRegistry
	registry commandSubmitter
	observer ports.Observer
	stats    *counters
	prune    bool
}

// Handle writes msg to subscriber id. An id without a write half is
// presumed gone and skipped. A failed write removes the write half; the
// subscription table only hears about it when pruning is enabled.
func (w *Writer) Handle(ctx context.Context, id uint64, msg string) {
	found, err := w.writes.Deliver(id, []byte(msg))
	switch {
	case !found:
		w.stats.skipped.Add(1)
	case err != nil:
		w.stats.writeFailures.Add(1)
		w.observer.SubscriberDropped(id, err)
		if w.prune {
			_ = w.registry.Submit(ctx, subs.Drop(id))
		}
	default:
		w.stats.delivered.Add(1)
	}
}

// handler routes work items to the reader or the writer.
type handler struct {
	reader *Reader
	writer *Writer
}

func (h handler) HandleRead(ctx context.Context, c *conn.Connection) {
	h.reader.Handle(ctx, c)
}

func (h handler) HandleWrite(ctx context.Context, id uint64, msg string) {
	h.writer.Handle(ctx, id, msg)
}
