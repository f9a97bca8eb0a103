package broker

import (
	"context"

	"github.com/brianly1003/pubd/internal/conn"
	"github.com/rs/zerolog/log"
)

// DefaultRearmBuffer is the default re-armer channel capacity.
const DefaultRearmBuffer = 1024

// interest is the part of the poller the re-armer needs.
type interest interface {
	Modify(fd int, key uint64) error
}

// Rearmer returns processed connections to the reactor. It is the only
// goroutine that modifies the poller's interest set once the broker is
// running; the reactor itself only adds freshly accepted sockets.
type Rearmer struct {
	ch      chan *conn.Connection
	poller  interest
	reads   *conn.ReadRegistry
	onError func(c *conn.Connection, err error)
}

// NewRearmer creates a re-armer feeding reads.
func NewRearmer(p interest, reads *conn.ReadRegistry, buffer int, onError func(*conn.Connection, error)) *Rearmer {
	if buffer <= 0 {
		buffer = DefaultRearmBuffer
	}
	return &Rearmer{
		ch:      make(chan *conn.Connection, buffer),
		poller:  p,
		reads:   reads,
		onError: onError,
	}
}

// Return hands c back for re-arming. The caller gives up c. If ctx ends
// first the connection is closed instead.
func (r *Rearmer) Return(ctx context.Context, c *conn.Connection) {
	select {
	case r.ch <- c:
	case <-ctx.Done():
		_ = c.Close()
	}
}

// Run re-arms connections until ctx is canceled.
func (r *Rearmer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-r.ch:
			r.rearm(c)
		}
	}
}

// rearm puts c back in the read registry and only then re-enables its
// readiness notification. The reverse order would let an event fire for an
// id the reactor cannot find yet, and a one-shot registration would never
// report it again.
func (r *Rearmer) rearm(c *conn.Connection) {
	r.reads.Insert(c)

	if err := r.poller.Modify(c.Fd(), c.ID); err != nil {
		if taken, ok := r.reads.Take(c.ID); ok {
			_ = taken.Close()
		}
		log.Error().Err(err).Uint64("id", c.ID).Msg("failed to re-arm connection")
		if r.onError != nil {
			r.onError(c, err)
		}
	}
}

// Drain closes connections still waiting to be re-armed.
func (r *Rearmer) Drain() int {
	n := 0
	for {
		select {
		case c := <-r.ch:
			_ = c.Close()
			n++
		default:
			return n
		}
	}
}
