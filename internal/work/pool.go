package work

import (
	"context"
	"sync/atomic"

	"github.com/brianly1003/pubd/internal/conn"
	"github.com/brianly1003/pubd/internal/sync"
	"github.com/rs/zerolog/log"
)

// DefaultWorkers is the default pool size.
const DefaultWorkers = 4

// Handler processes work items. Both methods run on a pool goroutine.
type Handler interface {
	// HandleRead takes ownership of c.
	HandleRead(ctx context.Context, c *conn.Connection)

	// HandleWrite delivers msg to subscriber id.
	HandleWrite(ctx context.Context, id uint64, msg string)
}

// Pool is a fixed set of interchangeable workers draining one queue.
type Pool struct {
	size    int
	queue   *Queue
	handler Handler

	active    atomic.Int32
	processed atomic.Int64
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Workers   int   `json:"workers"`
	Active    int32 `json:"active"`
	Processed int64 `json:"processed"`
	Pending   int   `json:"pending"`
}

// NewPool creates a pool of size workers.
func NewPool(size int, queue *Queue, handler Handler) *Pool {
	if size <= 0 {
		size = DefaultWorkers
	}
	return &Pool{
		size:    size,
		queue:   queue,
		handler: handler,
	}
}

// Run starts the workers and blocks until ctx is canceled and every worker
// has finished its current item.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx)
		}()
	}

	log.Debug().Int("workers", p.size).Msg("worker pool started")
	wg.Wait()
	log.Debug().Msg("worker pool stopped")

	return ctx.Err()
}

// Stats returns the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.size,
		Active:    p.active.Load(),
		Processed: p.processed.Load(),
		Pending:   p.queue.Len(),
	}
}

func (p *Pool) work(ctx context.Context) {
	for ctx.Err() == nil {
		item, err := p.queue.Pop(ctx)
		if err != nil {
			return
		}

		p.active.Add(1)
		p.dispatch(ctx, item)
		p.active.Add(-1)
		p.processed.Add(1)
	}
}

func (p *Pool) dispatch(ctx context.Context, item Item) {
	switch item.Kind {
	case KindRead:
		p.handler.HandleRead(ctx, item.Conn)
	case KindWrite:
		p.handler.HandleWrite(ctx, item.ID, item.Msg)
	default:
		log.Warn().Int("kind", int(item.Kind)).Msg("dropping unknown work item")
	}
}
