//go:build linux

package poller

import (
	"errors"
	"net"
	"slices"
	"testing"
	"time"

	"github.com/brianly1003/pubd/internal/domain"
	"golang.org/x/sys/unix"
)

func TestKeyEncoding(t *testing.T) {
	keys := []Key{ListenerKey, 1, 42, 1<<32 + 7, WakeKey}
	for _, k := range keys {
		var ev unix.EpollEvent
		encodeKey(&ev, k)
		if got := decodeKey(&ev); got != k {
			t.Errorf("decodeKey(encodeKey(%d)) = %d", k, got)
		}
	}
}

func waitKeys(t *testing.T, p *Poller) []Key {
	t.Helper()

	type result struct {
		keys []Key
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		keys, err := p.Wait(nil)
		ch <- result{keys, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("Wait() error = %v", r.err)
		}
		return r.keys
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return")
		return nil
	}
}

func TestPoller_AcceptAndOneShotRead(t *testing.T) {
	p, err := New(16)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	l, err := Listen("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer l.Close()

	if l.Addr().Port == 0 {
		t.Fatal("Addr() should report the chosen port")
	}
	if err := p.Add(l.Fd(), ListenerKey); err != nil {
		t.Fatalf("Add(listener) error = %v", err)
	}

	client, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	if keys := waitKeys(t, p); !slices.Contains(keys, ListenerKey) {
		t.Fatalf("Wait() = %v, want listener key", keys)
	}

	fd, addr, err := l.Accept()
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	defer unix.Close(fd)
	if addr.IP.String() != "127.0.0.1" {
		t.Errorf("peer IP = %s, want 127.0.0.1", addr.IP)
	}

	// Nothing else is pending.
	if _, _, err := l.Accept(); !IsTransientAccept(err) {
		t.Errorf("second Accept() error = %v, want EAGAIN", err)
	}

	const id Key = 1<<32 + 5
	if err := p.Add(fd, id); err != nil {
		t.Fatalf("Add(conn) error = %v", err)
	}

	if _, err := client.Write([]byte("+ t")); err != nil {
		t.Fatalf("client Write() error = %v", err)
	}
	if keys := waitKeys(t, p); !slices.Contains(keys, id) {
		t.Fatalf("Wait() = %v, want %d", keys, id)
	}

	// The registration is disarmed until Modify, even though unread data
	// is still pending on the socket.
	if err := p.Wake(); err != nil {
		t.Fatalf("Wake() error = %v", err)
	}
	keys := waitKeys(t, p)
	if slices.Contains(keys, id) {
		t.Fatalf("Wait() = %v, one-shot key reported before re-arm", keys)
	}
	if !slices.Contains(keys, WakeKey) {
		t.Fatalf("Wait() = %v, want wake key", keys)
	}

	if err := p.Modify(fd, id); err != nil {
		t.Fatalf("Modify() error = %v", err)
	}
	if keys := waitKeys(t, p); !slices.Contains(keys, id) {
		t.Fatalf("Wait() after Modify = %v, want %d", keys, id)
	}
}

func TestPoller_ClosedOperations(t *testing.T) {
	p, err := New(0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := p.Add(0, 1); err == nil {
		t.Error("Add() after Close should fail")
	}
	if _, err := p.Wait(nil); err == nil {
		t.Error("Wait() after Close should fail")
	}
}

func TestPoller_WakeAfterClose(t *testing.T) {
	p, err := New(0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// The freed eventfd number is likely handed to this pipe.
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatalf("Pipe2() error = %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	if err := p.Wake(); !errors.Is(err, domain.ErrPollerClosed) {
		t.Fatalf("Wake() after Close error = %v, want ErrPollerClosed", err)
	}

	buf := make([]byte, 16)
	if n, err := unix.Read(fds[0], buf); n > 0 {
		t.Errorf("pipe received %d bytes after Wake on a closed poller", n)
	} else if !errors.Is(err, unix.EAGAIN) {
		t.Errorf("Read() error = %v, want EAGAIN", err)
	}
}

func TestListen_UnassignedAddress(t *testing.T) {
	if _, err := Listen("192.0.2.1", 0); err == nil {
		t.Error("Listen() with an invalid host should fail")
	}
}
