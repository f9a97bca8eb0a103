// Package broker wires the pubd runtime together.
//
// One reactor goroutine owns the listening socket and the poller. When a
// connection becomes readable the reactor takes it out of the read registry
// and queues it for the worker pool. A worker reads it, feeds the
// subscription registry and passes the connection to the re-armer, which
// puts it back in the read registry and re-enables its readiness event.
// Publishes come back out of the subscription registry as write items that
// any worker can deliver through the write registry.
package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/brianly1003/pubd/internal/conn"
	"github.com/brianly1003/pubd/internal/poller"
	"github.com/brianly1003/pubd/internal/subs"
	"github.com/brianly1003/pubd/internal/sync"
	"github.com/brianly1003/pubd/internal/work"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Broker is a running pubd instance.
type Broker struct {
	opts       Options
	instanceID string
	started    time.Time

	listener *poller.Listener
	poller   *poller.Poller

	reads  *conn.ReadRegistry
	writes *conn.WriteRegistry

	registry *subs.Registry
	queue    *work.Queue
	pool     *work.Pool
	rearmer  *Rearmer

	// nextID is only touched by the reactor goroutine.
	nextID uint64
	stats  counters

	running atomic.Bool
}

// New binds the listening socket and builds every component. Nothing runs
// until Run is called.
func New(opts Options) (*Broker, error) {
	opts.applyDefaults()

	listener, err := poller.Listen(opts.Host, opts.Port)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s:%d: %w", opts.Host, opts.Port, err)
	}

	p, err := poller.New(opts.MaxEvents)
	if err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to create poller: %w", err)
	}

	if err := p.Add(listener.Fd(), poller.ListenerKey); err != nil {
		_ = p.Close()
		_ = listener.Close()
		return nil, fmt.Errorf("failed to register listener: %w", err)
	}

	b := &Broker{
		opts:       opts,
		instanceID: uuid.New().String(),
		started:    time.Now(),
		listener:   listener,
		poller:     p,
		reads:      conn.NewReadRegistry(),
		writes:     conn.NewWriteRegistry(),
		queue:      work.NewQueue(),
		nextID:     1,
	}

	// Dependency order: registry, re-armer, pool. The reactor is Run.
	b.registry = subs.New(b.queue, opts.CommandBuffer)
	b.rearmer = NewRearmer(p, b.reads, opts.RearmBuffer, b.rearmFailed)

	reader := &Reader{
		registry: b.registry,
		rearm:    b.rearmer,
		writes:   b.writes,
		observer: opts.Observer,
		stats:    &b.stats,
		bufSize:  opts.ReadBufferSize,
		growth:   opts.ReadBufferGrowth,
		prune:    opts.PruneDeadSubscribers,
	}
	writer := &Writer{
		writes:   b.writes,
		registry: b.registry,
		observer: opts.Observer,
		stats:    &b.stats,
		prune:    opts.PruneDeadSubscribers,
	}
	b.pool = work.NewPool(opts.Workers, b.queue, handler{reader: reader, writer: writer})

	return b, nil
}

// Addr returns the address the broker is listening on.
func (b *Broker) Addr() *net.TCPAddr {
	return b.listener.Addr()
}

// InstanceID identifies this broker process in logs and stats.
func (b *Broker) InstanceID() string {
	return b.instanceID
}

// Run serves clients until ctx is canceled or a process-fatal error occurs:
// a failed accept or poll, or a stopped subscription registry. On return
// every socket has been closed. Run may only be called once.
func (b *Broker) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return errors.New("broker: Run called twice")
	}
	return b.run(ctx)
}

func (b *Broker) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg    sync.WaitGroup
		fatal = make(chan error, 3)
	)
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				fatal <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}

	start("subscription registry", b.registry.Run)
	start("re-armer", b.rearmer.Run)
	start("worker pool", b.pool.Run)

	// The reactor blocks in the poller without a timeout; the wake
	// descriptor is how cancellation reaches it.
	woken := make(chan struct{})
	go func() {
		defer close(woken)
		<-ctx.Done()
		if err := b.poller.Wake(); err != nil {
			log.Error().Err(err).Msg("failed to wake reactor")
		}
	}()

	log.Info().
		Str("instance_id", b.instanceID).
		Str("addr", b.Addr().String()).
		Int("workers", b.opts.Workers).
		Bool("prune_dead_subscribers", b.opts.PruneDeadSubscribers).
		Msg("broker listening")

	rerr := b.reactor(ctx)
	cancel()
	wg.Wait()
	<-woken
	close(fatal)

	b.shutdown()

	if rerr != nil {
		return rerr
	}
	return <-fatal
}

// reactor is the event loop. It returns nil once ctx is canceled.
func (b *Broker) reactor(ctx context.Context) error {
	keys := make([]poller.Key, 0, b.opts.MaxEvents)
	for {
		var err error
		keys, err = b.poller.Wait(keys)
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}

		for _, key := range keys {
			switch key {
			case poller.WakeKey:
				if ctx.Err() != nil {
					return nil
				}

			case poller.ListenerKey:
				if err := b.accept(); err != nil {
					return err
				}

			default:
				// A connection already in flight has no entry; a stray
				// event for it is ignored.
				if c, ok := b.reads.Take(key); ok {
					b.queue.Push(work.Read(c))
				}
			}
		}
	}
}

// accept takes one pending connection and re-arms the listener.
func (b *Broker) accept() error {
	fd, addr, err := b.listener.Accept()
	switch {
	case err == nil:
		b.register(fd, addr.String())
	case poller.IsTransientAccept(err):
		log.Debug().Err(err).Msg("nothing to accept")
	default:
		return err
	}

	if err := b.poller.Modify(b.listener.Fd(), poller.ListenerKey); err != nil {
		return fmt.Errorf("re-arm listener: %w", err)
	}
	return nil
}

// register splits an accepted socket into its halves and makes it visible
// to the rest of the broker. A failure here drops only this connection.
func (b *Broker) register(fd int, addr string) {
	id := b.nextID
	b.nextID++

	c, w, err := conn.Split(id, fd, addr)
	if err != nil {
		log.Warn().Err(err).Uint64("id", id).Str("addr", addr).Msg("dropping connection at accept")
		return
	}

	b.writes.Insert(w)
	b.reads.Insert(c)

	if err := b.poller.Add(c.Fd(), id); err != nil {
		b.reads.Take(id)
		b.writes.Remove(id)
		_ = c.Close()
		log.Warn().Err(err).Uint64("id", id).Str("addr", addr).Msg("dropping connection at accept")
		return
	}

	b.stats.accepted.Add(1)
	b.opts.Observer.ConnAccepted(id, addr)
}

func (b *Broker) rearmFailed(c *conn.Connection, err error) {
	if b.opts.PruneDeadSubscribers {
		b.writes.Remove(c.ID)
	}
	b.stats.lost.Add(1)
	b.opts.Observer.ConnLost(c.ID, c.Addr, err)
}

// shutdown closes every socket once all goroutines have stopped.
func (b *Broker) shutdown() {
	b.registry.Close()

	closed := 0
	for _, c := range b.reads.Drain() {
		_ = c.Close()
		closed++
	}
	closed += b.rearmer.Drain()
	for _, item := range b.queue.Drain() {
		if item.Kind == work.KindRead {
			_ = item.Conn.Close()
			closed++
		}
	}
	writable := b.writes.Drain()

	if err := b.poller.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close poller")
	}
	if err := b.listener.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close listener")
	}

	log.Info().
		Int("read_halves", closed).
		Int("write_halves", writable).
		Msg("broker stopped")
}
