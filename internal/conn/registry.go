package conn

import (
	"github.com/brianly1003/pubd/internal/sync"
)

// Default read buffer sizing.
const (
	DefaultReadBuffer = 4 * 1024
	DefaultReadGrowth = 1024
)

// ReadRegistry holds the connections that are idle and armed for reading.
// A connection that a worker is reading is not in the registry; Take is how
// it leaves and Insert is how it comes back.
type ReadRegistry struct {
	mu    sync.Mutex
	conns map[uint64]*Connection
}

// NewReadRegistry creates an empty read registry.
func NewReadRegistry() *ReadRegistry {
	return &ReadRegistry{conns: make(map[uint64]*Connection)}
}

// Insert puts c back under its id.
func (r *ReadRegistry) Insert(c *Connection) {
	r.mu.Lock()
	r.conns[c.ID] = c
	r.mu.Unlock()
}

// Take removes and returns the connection for id. It reports false when the
// id is unknown or already in flight.
func (r *ReadRegistry) Take(id uint64) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	return c, ok
}

// Has reports whether id is currently registered.
func (r *ReadRegistry) Has(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[id]
	return ok
}

// Len returns the number of idle connections.
func (r *ReadRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Drain empties the registry and returns what it held.
func (r *ReadRegistry) Drain() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Connection, 0, len(r.conns))
	for id, c := range r.conns {
		out = append(out, c)
		delete(r.conns, id)
	}
	return out
}

// WriteRegistry maps connection ids to their write halves. Entries are added
// at accept time and removed when a write fails.
type WriteRegistry struct {
	mu     sync.Mutex
	halves map[uint64]*WriteHalf
}

// NewWriteRegistry creates an empty write registry.
func NewWriteRegistry() *WriteRegistry {
	return &WriteRegistry{halves: make(map[uint64]*WriteHalf)}
}

// Insert registers w under its id.
func (r *WriteRegistry) Insert(w *WriteHalf) {
	r.mu.Lock()
	r.halves[w.ID] = w
	r.mu.Unlock()
}

// Deliver writes msg once to the write half registered for id.
//
// An unknown id is not an error: found is false and nothing happens. If the
// write fails the entry is removed and closed before Deliver returns, so
// the error is reported exactly once.
//
// The lock is held across the write. Writes never block, and holding it
// keeps two workers from interleaving bytes on the same socket.
func (r *WriteRegistry) Deliver(id uint64, msg []byte) (found bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.halves[id]
	if !ok {
		return false, nil
	}

	if _, err := w.Write(msg); err != nil {
		delete(r.halves, id)
		_ = w.Close()
		return true, err
	}
	return true, nil
}

// Remove drops and closes the write half for id. It reports whether the id
// was present.
func (r *WriteRegistry) Remove(id uint64) bool {
	r.mu.Lock()
	w, ok := r.halves[id]
	delete(r.halves, id)
	r.mu.Unlock()

	if ok {
		_ = w.Close()
	}
	return ok
}

// Has reports whether id has a write half.
func (r *WriteRegistry) Has(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.halves[id]
	return ok
}

// Len returns the number of registered write halves.
func (r *WriteRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.halves)
}

// Drain empties the registry and closes every write half.
func (r *WriteRegistry) Drain() int {
	r.mu.Lock()
	halves := r.halves
	r.halves = make(map[uint64]*WriteHalf)
	r.mu.Unlock()

	for _, w := range halves {
		_ = w.Close()
	}
	return len(halves)
}
