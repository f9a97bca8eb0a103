package broker

import (
	"github.com/brianly1003/pubd/internal/conn"
	"github.com/brianly1003/pubd/internal/domain/ports"
	"github.com/brianly1003/pubd/internal/poller"
	"github.com/brianly1003/pubd/internal/subs"
	"github.com/brianly1003/pubd/internal/work"
)

// DefaultPort is the port pubd listens on unless told otherwise.
const DefaultPort = 1984

// Options configures a Broker.
type Options struct {
	// Host and Port of the listening socket. Port 0 picks a free port.
	Host string
	Port int

	// Workers is the worker pool size.
	Workers int

	// ReadBufferSize is the initial read buffer per read; it grows by
	// ReadBufferGrowth whenever it fills up.
	ReadBufferSize   int
	ReadBufferGrowth int

	// CommandBuffer and RearmBuffer size the subscription registry and
	// re-armer channels.
	CommandBuffer int
	RearmBuffer   int

	// MaxEvents bounds the readiness events collected per poll.
	MaxEvents int

	// PruneDeadSubscribers makes a failed write or read remove the
	// connection's id from every topic. Off by default: a dead id stays
	// subscribed and publishes to it are dropped by the writer.
	PruneDeadSubscribers bool

	// Observer receives connection events. Nil discards them.
	Observer ports.Observer
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		Host:             "0.0.0.0",
		Port:             DefaultPort,
		Workers:          work.DefaultWorkers,
		ReadBufferSize:   conn.DefaultReadBuffer,
		ReadBufferGrowth: conn.DefaultReadGrowth,
		CommandBuffer:    subs.DefaultBuffer,
		RearmBuffer:      DefaultRearmBuffer,
		MaxEvents:        poller.DefaultMaxEvents,
	}
}

func (o *Options) applyDefaults() {
	d := DefaultOptions()
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = d.ReadBufferSize
	}
	if o.ReadBufferGrowth <= 0 {
		o.ReadBufferGrowth = d.ReadBufferGrowth
	}
	if o.CommandBuffer <= 0 {
		o.CommandBuffer = d.CommandBuffer
	}
	if o.RearmBuffer <= 0 {
		o.RearmBuffer = d.RearmBuffer
	}
	if o.MaxEvents <= 0 {
		o.MaxEvents = d.MaxEvents
	}
	if o.Observer == nil {
		o.Observer = ports.NopObserver{}
	}
}
