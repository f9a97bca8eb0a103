package subs

// Kind tags a Command.
type Kind int

const (
	KindAdd Kind = iota + 1
	KindDelete
	KindPublish
	KindDrop
	kindSnapshot
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindDelete:
		return "delete"
	case KindPublish:
		return "publish"
	case KindDrop:
		return "drop"
	case kindSnapshot:
		return "snapshot"
	}
	return "unknown"
}

// Command is a request to the subscription registry.
type Command struct {
	Kind  Kind
	Key   string
	ID    uint64
	Value string

	reply chan Snapshot
}

// Add subscribes id to key.
func Add(key string, id uint64) Command {
	return Command{Kind: KindAdd, Key: key, ID: id}
}

// Delete unsubscribes id from key.
func Delete(key string, id uint64) Command {
	return Command{Kind: KindDelete, Key: key, ID: id}
}

// Publish fans value out to every subscriber of key.
func Publish(key, value string) Command {
	return Command{Kind: KindPublish, Key: key, Value: value}
}

// Drop removes id from every topic. It is only sent when dead subscriber
// pruning is enabled.
func Drop(id uint64) Command {
	return Command{Kind: KindDrop, ID: id}
}

// Snapshot is a copy of the subscription table.
type Snapshot struct {
	Topics map[string][]uint64
}

// TopicCount returns the number of topics with at least one subscriber.
func (s Snapshot) TopicCount() int {
	return len(s.Topics)
}

// SubscriptionCount returns the number of (topic, id) pairs.
func (s Snapshot) SubscriptionCount() int {
	n := 0
	for _, ids := range s.Topics {
		n += len(ids)
	}
	return n
}
