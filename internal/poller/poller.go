// Package poller wraps the operating system's readiness notification facility
// and the raw listening socket the reactor accepts from.
//
// Every registration is one-shot: after a readiness event is reported for a
// key, that key stays silent until it is explicitly re-armed with Modify.
// This is what lets the reactor hand a connection to a worker without the
// kernel reporting it again while the worker is still reading.
package poller

import "math"

// Key identifies a registration. Connection ids are used directly as keys.
type Key = uint64

const (
	// ListenerKey is reserved for the listening socket.
	ListenerKey Key = 0

	// WakeKey is reserved for the internal wake-up descriptor used by Wake.
	WakeKey Key = math.MaxUint64
)

// DefaultMaxEvents is the number of events collected per Wait call.
const DefaultMaxEvents = 128
