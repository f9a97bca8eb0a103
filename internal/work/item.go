// Package work provides the broker's work queue and the fixed-size worker
// pool that drains it.
package work

import "github.com/brianly1003/pubd/internal/conn"

// Kind tags an Item.
type Kind int

const (
	// KindRead carries ownership of a connection that is ready to read.
	KindRead Kind = iota + 1

	// KindWrite carries one outbound message for a subscriber id. The
	// socket is resolved at dispatch time, not when the item is created.
	KindWrite
)

// Item is a unit of work.
type Item struct {
	Kind Kind
	Conn *conn.Connection
	ID   uint64
	Msg  string
}

// Read wraps a connection into a read item. The caller gives up c.
func Read(c *conn.Connection) Item {
	return Item{Kind: KindRead, Conn: c, ID: c.ID}
}

// Write builds a write item for subscriber id.
func Write(id uint64, msg string) Item {
	return Item{Kind: KindWrite, ID: id, Msg: msg}
}
