package work

import (
	"context"

	"github.com/brianly1003/pubd/internal/sync"
)

// Queue is an unbounded multi-producer, multi-consumer FIFO of work items.
//
// Push never blocks, so the subscription registry can fan a publish out to
// any number of subscribers while readers are waiting on it. Each item is
// delivered to exactly one consumer.
type Queue struct {
	mu    sync.Mutex
	items []Item
	head  int

	// ready holds a token while items may be pending.
	ready chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends an item.
func (q *Queue) Push(item Item) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.signal()
}

// PushWrite queues a write item. It lets the queue serve as the
// subscription registry's sink.
func (q *Queue) PushWrite(id uint64, msg string) {
	q.Push(Write(id, msg))
}

// Pop removes the oldest item, blocking until one is available or ctx is done.
func (q *Queue) Pop(ctx context.Context) (Item, error) {
	for {
		if item, ok := q.tryPop(); ok {
			return item, nil
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return Item{}, ctx.Err()
		}
	}
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

func (q *Queue) tryPop() (Item, bool) {
	q.mu.Lock()
	if q.head == len(q.items) {
		q.mu.Unlock()
		return Item{}, false
	}

	item := q.items[q.head]
	q.items[q.head] = Item{}
	q.head++

	remaining := len(q.items) - q.head
	if remaining == 0 {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > len(q.items)/2 && q.head >= 64 {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	q.mu.Unlock()

	// Pass the token on so another idle consumer picks up the rest.
	if remaining > 0 {
		q.signal()
	}
	return item, true
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Drain removes and returns every pending item. It is used on shutdown
// once no consumer is left.
func (q *Queue) Drain() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := append([]Item(nil), q.items[q.head:]...)
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
	return items
}
