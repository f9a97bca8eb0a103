// Package subs implements the subscription registry: a single goroutine that
// owns the topic table and turns publishes into outbound write work.
//
// The registry never touches a socket. For every subscriber of a published
// topic it hands the subscriber id and the formatted message to a WriteSink,
// and whoever drains the sink resolves the id to a socket later.
package subs

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/brianly1003/pubd/internal/domain"
	"github.com/brianly1003/pubd/internal/protocol"
	"github.com/brianly1003/pubd/internal/sync"
	"github.com/rs/zerolog/log"
)

// DefaultBuffer is the default command channel capacity.
const DefaultBuffer = 1024

// WriteSink accepts outbound write work. PushWrite must not block.
type WriteSink interface {
	PushWrite(id uint64, msg string)
}

// Registry owns the topic -> subscriber ids table.
type Registry struct {
	// topics is only touched by the Run goroutine.
	topics map[string]map[uint64]struct{}

	cmds chan Command
	sink WriteSink

	// quit is closed by Close; done is closed when Run returns.
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	doneOnce  sync.Once

	published atomic.Int64
	fanout    atomic.Int64
}

// New creates a registry that emits write work into sink.
func New(sink WriteSink, buffer int) *Registry {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Registry{
		topics: make(map[string]map[uint64]struct{}),
		cmds:   make(chan Command, buffer),
		sink:   sink,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Run processes commands until ctx is canceled. Closing the registry while
// it runs is fatal and reported as domain.ErrRegistryClosed. Commands still
// buffered when Run returns are discarded.
func (r *Registry) Run(ctx context.Context) error {
	defer r.doneOnce.Do(func() { close(r.done) })

	log.Debug().Msg("subscription registry started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("subscription registry stopped")
			return ctx.Err()

		case <-r.quit:
			return domain.ErrRegistryClosed

		case cmd := <-r.cmds:
			r.apply(cmd)
		}
	}
}

// Close stops the registry. Run returns domain.ErrRegistryClosed if it is
// still running, and Submit and Snapshot fail from then on.
func (r *Registry) Close() {
	r.closeOnce.Do(func() { close(r.quit) })
}

// Submit queues cmd. It blocks only while the command buffer is full and
// gives up when ctx is done. Once the registry is closed or Run has
// returned it fails with domain.ErrRegistryClosed.
func (r *Registry) Submit(ctx context.Context, cmd Command) error {
	if r.stopped() {
		return domain.ErrRegistryClosed
	}
	select {
	case r.cmds <- cmd:
		return nil
	case <-r.quit:
		return domain.ErrRegistryClosed
	case <-r.done:
		return domain.ErrRegistryClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) stopped() bool {
	select {
	case <-r.quit:
		return true
	case <-r.done:
		return true
	default:
		return false
	}
}

// Snapshot asks the registry goroutine for a copy of the table.
func (r *Registry) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := r.Submit(ctx, Command{Kind: kindSnapshot, reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-r.done:
		return Snapshot{}, domain.ErrRegistryClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Published returns the number of publish commands processed.
func (r *Registry) Published() int64 {
	return r.published.Load()
}

// FanOut returns the number of write items emitted.
func (r *Registry) FanOut() int64 {
	return r.fanout.Load()
}

func (r *Registry) apply(cmd Command) {
	switch cmd.Kind {
	case KindAdd:
		r.add(cmd.Key, cmd.ID)
	case KindDelete:
		r.remove(cmd.Key, cmd.ID)
	case KindPublish:
		r.publish(cmd.Key, cmd.Value)
	case KindDrop:
		r.drop(cmd.ID)
	case kindSnapshot:
		cmd.reply <- r.snapshot()
	default:
		log.Warn().Int("kind", int(cmd.Kind)).Msg("unknown registry command")
	}
}

func (r *Registry) add(key string, id uint64) {
	set, ok := r.topics[key]
	if !ok {
		set = make(map[uint64]struct{})
		r.topics[key] = set
	}
	if _, dup := set[id]; dup {
		return
	}
	set[id] = struct{}{}

	log.Debug().Str("topic", key).Uint64("id", id).Msg("subscribed")
}

func (r *Registry) remove(key string, id uint64) {
	set, ok := r.topics[key]
	if !ok {
		return
	}
	if _, ok := set[id]; !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(r.topics, key)
	}

	log.Debug().Str("topic", key).Uint64("id", id).Msg("unsubscribed")
}

func (r *Registry) publish(key, value string) {
	r.published.Add(1)

	set := r.topics[key]
	if len(set) == 0 {
		return
	}

	msg := protocol.Format(key, value)
	for id := range set {
		r.sink.PushWrite(id, msg)
	}
	r.fanout.Add(int64(len(set)))

	log.Trace().Str("topic", key).Int("subscribers", len(set)).Msg("published")
}

func (r *Registry) drop(id uint64) {
	for key := range r.topics {
		r.remove(key, id)
	}
}

func (r *Registry) snapshot() Snapshot {
	s := Snapshot{Topics: make(map[string][]uint64, len(r.topics))}
	for key, set := range r.topics {
		ids := make([]uint64, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		s.Topics[key] = ids
	}
	return s
}
