//go:build linux

package poller

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/brianly1003/pubd/internal/domain"
	"golang.org/x/sys/unix"
)

// Poller is an epoll instance.
//
// Add, Modify and Delete are safe to call from any goroutine at the kernel
// level, but the broker restricts them by convention: the reactor registers
// new sockets and the re-armer is the only caller of Modify afterwards.
type Poller struct {
	epfd   int
	wakefd int
	raw    []unix.EpollEvent
	closed atomic.Bool
}

// New creates an epoll instance able to report up to maxEvents per Wait.
func New(maxEvents int) (*Poller, error) {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}

	p := &Poller{
		epfd:   epfd,
		wakefd: wakefd,
		raw:    make([]unix.EpollEvent, maxEvents),
	}

	// The wake descriptor is level-triggered and never re-armed: once
	// written it keeps firing, which is what a shutdown wants.
	ev := p.event(WakeKey, unix.EPOLLIN)
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll_ctl add wake: %w", err)
	}

	return p, nil
}

// Add registers fd for one-shot read readiness under key.
func (p *Poller) Add(fd int, key Key) error {
	return p.ctl(unix.EPOLL_CTL_ADD, fd, key)
}

// Modify re-arms fd for one-shot read readiness under key.
func (p *Poller) Modify(fd int, key Key) error {
	return p.ctl(unix.EPOLL_CTL_MOD, fd, key)
}

// Delete removes fd from the interest set.
func (p *Poller) Delete(fd int) error {
	if p.closed.Load() {
		return domain.ErrPollerClosed
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll_ctl del fd %d: %w", fd, err)
	}
	return nil
}

func (p *Poller) ctl(op int, fd int, key Key) error {
	if p.closed.Load() {
		return domain.ErrPollerClosed
	}
	ev := p.event(key, unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLONESHOT)
	if err := unix.EpollCtl(p.epfd, op, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl fd %d key %d: %w", fd, key, err)
	}
	return nil
}

// Wait blocks without timeout until at least one registration is ready and
// appends the ready keys to keys[:0]. Interrupted waits are retried.
//
// Wait must only be called from a single goroutine.
func (p *Poller) Wait(keys []Key) ([]Key, error) {
	keys = keys[:0]
	for {
		if p.closed.Load() {
			return keys, domain.ErrPollerClosed
		}

		n, err := unix.EpollWait(p.epfd, p.raw, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return keys, fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			keys = append(keys, decodeKey(&p.raw[i]))
		}
		return keys, nil
	}
}

// Wake makes a blocked Wait report WakeKey. It must not race with Close.
func (p *Poller) Wake() error {
	if p.closed.Load() {
		return domain.ErrPollerClosed
	}
	var one = [8]byte{1}
	for {
		_, err := unix.Write(p.wakefd, one[:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		// EAGAIN means the counter is already non-zero, which is enough.
		if err != nil && !errors.Is(err, unix.EAGAIN) {
			return fmt.Errorf("wake: %w", err)
		}
		return nil
	}
}

// Close releases the epoll instance. Registered sockets are not closed.
func (p *Poller) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	werr := unix.Close(p.wakefd)
	eerr := unix.Close(p.epfd)
	return errors.Join(werr, eerr)
}

func (p *Poller) event(key Key, events uint32) unix.EpollEvent {
	ev := unix.EpollEvent{Events: events}
	encodeKey(&ev, key)
	return ev
}

// The epoll user data is a 64-bit union; x/sys/unix exposes it as the Fd
// and Pad fields.
func encodeKey(ev *unix.EpollEvent, key Key) {
	ev.Fd = int32(uint32(key))
	ev.Pad = int32(uint32(key >> 32))
}

func decodeKey(ev *unix.EpollEvent) Key {
	return Key(uint32(ev.Fd)) | Key(uint32(ev.Pad))<<32
}
