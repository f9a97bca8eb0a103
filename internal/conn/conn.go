// Package conn holds the broker's view of a client connection: two
// independent descriptors for the same TCP stream, one only ever read and
// one only ever written, and the registries that own them.
package conn

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/brianly1003/pubd/internal/domain"
	"golang.org/x/sys/unix"
)

// Connection is the read half of a client connection.
//
// A *Connection has exactly one owner at a time: the read registry, the
// work queue, a worker, or the re-armer. Whoever sends it on a channel
// gives it up.
type Connection struct {
	ID   uint64
	Addr string

	fd     int
	closed atomic.Bool
}

// WriteHalf is the write-only duplicate of a connection's socket.
type WriteHalf struct {
	ID uint64

	fd     int
	closed atomic.Bool
}

// Split takes ownership of an accepted socket and duplicates it into a read
// half and a write half. On error the socket is closed.
func Split(id uint64, fd int, addr string) (*Connection, *WriteHalf, error) {
	wfd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		_ = unix.Close(fd)
		return nil, nil, domain.NewConnError("dup", id, err)
	}

	return &Connection{ID: id, Addr: addr, fd: fd}, &WriteHalf{ID: id, fd: wfd}, nil
}

// Fd returns the read descriptor, for registering with the poller.
func (c *Connection) Fd() int {
	return c.fd
}

// Close closes the read half. The write half stays usable.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(c.fd)
}

// ReadAll drains the socket until it would block.
//
// The buffer starts at initial bytes and grows by growth whenever it fills
// up. A zero-byte read means the peer closed its side and is reported as
// domain.ErrConnClosed. Interrupted reads are retried. If the very first
// read would block, ReadAll returns an empty slice and no error.
func (c *Connection) ReadAll(initial, growth int) ([]byte, error) {
	if initial <= 0 {
		initial = DefaultReadBuffer
	}
	if growth <= 0 {
		growth = DefaultReadGrowth
	}

	buf := make([]byte, initial)
	n := 0
	for {
		r, err := unix.Read(c.fd, buf[n:])
		switch {
		case err == nil && r == 0:
			return nil, domain.NewConnError("read", c.ID, domain.ErrConnClosed)
		case err == nil:
			n += r
			if n == len(buf) {
				buf = append(buf, make([]byte, growth)...)
			}
		case errors.Is(err, unix.EAGAIN):
			return buf[:n], nil
		case errors.Is(err, unix.EINTR):
			continue
		default:
			return nil, domain.NewConnError("read", c.ID, err)
		}
	}
}

// Write makes one best-effort write of msg. Interrupted writes are retried;
// would-block is an error like any other, since the broker never waits on a
// slow subscriber. A short write is not an error.
func (w *WriteHalf) Write(msg []byte) (int, error) {
	if w.closed.Load() {
		return 0, domain.NewConnError("write", w.ID, unix.EBADF)
	}
	for {
		n, err := unix.Write(w.fd, msg)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, domain.NewConnError("write", w.ID, err)
		}
		return n, nil
	}
}

// Close closes the write half.
func (w *WriteHalf) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(w.fd)
}

func (c *Connection) String() string {
	return fmt.Sprintf("#%d (%s)", c.ID, c.Addr)
}
