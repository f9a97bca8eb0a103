package broker

import (
	"context"
	"unicode/utf8"

	"github.com/brianly1003/pubd/internal/conn"
	"github.com/brianly1003/pubd/internal/domain"
	"github.com/brianly1003/pubd/internal/domain/ports"
	"github.com/brianly1003/pubd/internal/protocol"
	"github.com/brianly1003/pubd/internal/subs"
	"github.com/rs/zerolog/log"
)

// commandSubmitter is the part of the subscription registry readers use.
type commandSubmitter interface {
	Submit(ctx context.Context, cmd subs.Command) error
}

// returner takes a connection back after it has been read.
type returner interface {
	Return(ctx context.Context, c *conn.Connection)
}

// Reader drains a ready connection, turns its message into registry
// commands and hands the connection to the re-armer.
type Reader struct {
	registry commandSubmitter
	rearm    returner
	writes   *conn.WriteRegistry
	observer ports.Observer
	stats    *counters

	bufSize int
	growth  int
	prune   bool
}

// Handle reads c. A read failure drops the connection for good; anything
// else, including an unparsable message, ends with c being re-armed.
func (r *Reader) Handle(ctx context.Context, c *conn.Connection) {
	data, err := c.ReadAll(r.bufSize, r.growth)
	if err != nil {
		r.drop(ctx, c, err)
		return
	}

	if len(data) > 0 && utf8.Valid(data) {
		text := string(data)
		r.stats.messages.Add(1)
		r.observer.MessageReceived(c.ID, c.Addr, text)

		msg := protocol.Parse(text)
		cmds := Commands(msg, c.ID)
		if len(cmds) == 0 {
			log.Debug().Err(rejection(msg)).Uint64("id", c.ID).Str("op", msg.Op).Msg("ignoring message")
		}
		for _, cmd := range cmds {
			if err := r.registry.Submit(ctx, cmd); err != nil {
				// Only happens while shutting down.
				_ = c.Close()
				return
			}
		}
	}

	r.rearm.Return(ctx, c)
}

func (r *Reader) drop(ctx context.Context, c *conn.Connection, err error) {
	_ = c.Close()
	r.stats.lost.Add(1)
	r.observer.ConnLost(c.ID, c.Addr, err)

	if !r.prune {
		return
	}
	r.writes.Remove(c.ID)
	_ = r.registry.Submit(ctx, subs.Drop(c.ID))
}

// Commands translates a parsed message from connection id into registry
// commands, in the order they must be applied.
//
//	+ key [value]  Add, then Publish when a value is present
//	: key value    Publish
//	- key [value]  Publish when a value is present, then Delete
//
// A message without a key, or with any other operator, yields nothing.
func Commands(msg protocol.Message, id uint64) []subs.Command {
	if !msg.HasKey() {
		return nil
	}

	switch msg.Op {
	case protocol.OpSubscribe:
		cmds := []subs.Command{subs.Add(msg.Key, id)}
		if msg.HasValue() {
			cmds = append(cmds, subs.Publish(msg.Key, msg.Value))
		}
		return cmds

	case protocol.OpPublish:
		return []subs.Command{subs.Publish(msg.Key, msg.Value)}

	case protocol.OpUnsubscribe:
		var cmds []subs.Command
		if msg.HasValue() {
			cmds = append(cmds, subs.Publish(msg.Key, msg.Value))
		}
		return append(cmds, subs.Delete(msg.Key, id))
	}

	return nil
}

// rejection says why Commands produced nothing for msg.
func rejection(msg protocol.Message) error {
	if !msg.HasKey() {
		return domain.ErrMissingKey
	}
	return domain.ErrUnknownOp
}
