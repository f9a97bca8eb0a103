// Package ports defines the interfaces the broker core depends on.
package ports

// Observer receives human-readable connection events from the broker core.
// Implementations must not block: they are called from the reactor and
// worker goroutines.
type Observer interface {
	// ConnAccepted is called once per accepted connection.
	ConnAccepted(id uint64, addr string)

	// ConnLost is called when a read fails and the connection is dropped.
	ConnLost(id uint64, addr string, err error)

	// MessageReceived is called for every inbound message that decodes as text.
	MessageReceived(id uint64, addr string, text string)

	// SubscriberDropped is called when a write fails and the write half
	// is removed from the write registry.
	SubscriberDropped(id uint64, err error)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) ConnAccepted(uint64, string)            {}
func (NopObserver) ConnLost(uint64, string, error)         {}
func (NopObserver) MessageReceived(uint64, string, string) {}
func (NopObserver) SubscriberDropped(uint64, error)        {}

var _ Observer = NopObserver{}
