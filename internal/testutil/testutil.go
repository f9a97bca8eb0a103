// Package testutil provides shared test helpers for pubd tests.
package testutil

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/brianly1003/pubd/internal/domain/ports"
)

// EventKind names an observer callback.
type EventKind string

const (
	EventAccepted EventKind = "accepted"
	EventLost     EventKind = "lost"
	EventMessage  EventKind = "message"
	EventDropped  EventKind = "dropped"
)

// Event is one recorded observer callback.
type Event struct {
	Kind EventKind
	ID   uint64
	Addr string
	Text string
	Err  error
}

// RecordingObserver implements ports.Observer and keeps every event.
type RecordingObserver struct {
	mu     sync.Mutex
	events []Event
}

// NewRecordingObserver creates an empty recorder.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

func (o *RecordingObserver) ConnAccepted(id uint64, addr string) {
	o.record(Event{Kind: EventAccepted, ID: id, Addr: addr})
}

func (o *RecordingObserver) ConnLost(id uint64, addr string, err error) {
	o.record(Event{Kind: EventLost, ID: id, Addr: addr, Err: err})
}

func (o *RecordingObserver) MessageReceived(id uint64, addr string, text string) {
	o.record(Event{Kind: EventMessage, ID: id, Addr: addr, Text: text})
}

func (o *RecordingObserver) SubscriberDropped(id uint64, err error) {
	o.record(Event{Kind: EventDropped, ID: id, Err: err})
}

func (o *RecordingObserver) record(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

// Events returns a copy of everything recorded so far.
func (o *RecordingObserver) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	result := make([]Event, len(o.events))
	copy(result, o.events)
	return result
}

// Count returns how many events of kind were recorded.
func (o *RecordingObserver) Count(kind EventKind) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Messages returns the text of every MessageReceived event, in order.
func (o *RecordingObserver) Messages() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var msgs []string
	for _, e := range o.events {
		if e.Kind == EventMessage {
			msgs = append(msgs, e.Text)
		}
	}
	return msgs
}

// Ensure RecordingObserver implements ports.Observer.
var _ ports.Observer = (*RecordingObserver)(nil)

// Client is a raw TCP connection to a broker under test.
type Client struct {
	t    *testing.T
	conn net.Conn
}

// Dial connects to addr and closes the connection when the test ends.
func Dial(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return &Client{t: t, conn: c}
}

// Send writes one message.
func (c *Client) Send(msg string) {
	c.t.Helper()
	if _, err := c.conn.Write([]byte(msg)); err != nil {
		c.t.Fatalf("send %q: %v", msg, err)
	}
}

// Receive reads whatever arrives within timeout.
func (c *Client) Receive(timeout time.Duration) (string, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	buf := make([]byte, 4096)
	n, err := c.conn.Read(buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

// Expect reads exactly len(want) bytes and fails the test unless they equal want.
func (c *Client) Expect(want string, timeout time.Duration) {
	c.t.Helper()
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		c.t.Fatalf("set deadline: %v", err)
	}
	buf := make([]byte, len(want))
	got := 0
	for got < len(buf) {
		n, err := c.conn.Read(buf[got:])
		if err != nil {
			c.t.Fatalf("expected %q, read %q: %v", want, buf[:got], err)
		}
		got += n
	}
	if string(buf) != want {
		c.t.Fatalf("expected %q, got %q", want, buf)
	}
}

// ExpectSilence fails the test if anything arrives within d.
func (c *Client) ExpectSilence(d time.Duration) {
	c.t.Helper()
	msg, err := c.Receive(d)
	if err == nil {
		c.t.Fatalf("expected nothing, got %q", msg)
	}
	if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
		c.t.Fatalf("expected timeout, got %v", err)
	}
}

// Close closes the connection.
func (c *Client) Close() {
	_ = c.conn.Close()
}

// Addr formats host and port for Dial.
func Addr(host string, port int) string {
	return net.JoinHostPort(host, fmt.Sprint(port))
}
