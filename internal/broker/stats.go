package broker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/brianly1003/pubd/internal/work"
)

type counters struct {
	accepted      atomic.Int64
	lost          atomic.Int64
	messages      atomic.Int64
	delivered     atomic.Int64
	writeFailures atomic.Int64
	skipped       atomic.Int64
}

// Stats is a point-in-time view of the broker.
type Stats struct {
	InstanceID    string     `json:"instance_id"`
	Addr          string     `json:"addr"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	Accepted      int64      `json:"connections_accepted"`
	Lost          int64      `json:"connections_lost"`
	Idle          int        `json:"connections_idle"`
	Writable      int        `json:"connections_writable"`
	Messages      int64      `json:"messages_received"`
	Published     int64      `json:"publishes"`
	FanOut        int64      `json:"fanout_writes"`
	Delivered     int64      `json:"writes_delivered"`
	WriteFailures int64      `json:"writes_failed"`
	Skipped       int64      `json:"writes_skipped"`
	Topics        int        `json:"topics"`
	Subscriptions int        `json:"subscriptions"`
	Pool          work.Stats `json:"pool"`
}

// Stats collects broker counters. The topic and subscription counts come
// from the registry goroutine, so Stats blocks until it answers or ctx ends.
func (b *Broker) Stats(ctx context.Context) (Stats, error) {
	snap, err := b.registry.Snapshot(ctx)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		InstanceID:    b.instanceID,
		Addr:          b.Addr().String(),
		UptimeSeconds: int64(time.Since(b.started).Seconds()),
		Accepted:      b.stats.accepted.Load(),
		Lost:          b.stats.lost.Load(),
		Idle:          b.reads.Len(),
		Writable:      b.writes.Len(),
		Messages:      b.stats.messages.Load(),
		Published:     b.registry.Published(),
		FanOut:        b.registry.FanOut(),
		Delivered:     b.stats.delivered.Load(),
		WriteFailures: b.stats.writeFailures.Load(),
		Skipped:       b.stats.skipped.Load(),
		Topics:        snap.TopicCount(),
		Subscriptions: snap.SubscriptionCount(),
		Pool:          b.pool.Stats(),
	}, nil
}
