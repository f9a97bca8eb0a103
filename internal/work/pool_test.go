package work

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianly1003/pubd/internal/conn"
)

type recordingHandler struct {
	mu     sync.Mutex
	reads  []uint64
	writes []string
	wg     sync.WaitGroup
}

func (h *recordingHandler) HandleRead(_ context.Context, c *conn.Connection) {
	h.mu.Lock()
	h.reads = append(h.reads, c.ID)
	h.mu.Unlock()
	h.wg.Done()
}

func (h *recordingHandler) HandleWrite(_ context.Context, id uint64, msg string) {
	h.mu.Lock()
	h.writes = append(h.writes, msg)
	h.mu.Unlock()
	h.wg.Done()
}

func TestPool_DispatchesByKind(t *testing.T) {
	q := NewQueue()
	h := &recordingHandler{}
	p := NewPool(3, q, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	h.wg.Add(4)
	q.Push(Read(&conn.Connection{ID: 1}))
	q.Push(Read(&conn.Connection{ID: 2}))
	q.PushWrite(1, "t a")
	q.PushWrite(2, "t b")
	h.wg.Wait()

	h.mu.Lock()
	if len(h.reads) != 2 {
		t.Errorf("reads = %v, want 2 items", h.reads)
	}
	if len(h.writes) != 2 {
		t.Errorf("writes = %v, want 2 items", h.writes)
	}
	h.mu.Unlock()

	stats := p.Stats()
	if stats.Workers != 3 {
		t.Errorf("Stats().Workers = %d, want 3", stats.Workers)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if got := p.Stats().Processed; got != 4 {
		t.Errorf("Stats().Processed = %d, want 4", got)
	}
}

func TestNewPool_DefaultSize(t *testing.T) {
	p := NewPool(0, NewQueue(), &recordingHandler{})
	if p.Stats().Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", p.Stats().Workers, DefaultWorkers)
	}
}
