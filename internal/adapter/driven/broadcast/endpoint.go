package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
	"github.com/ericfisherdev/patientreg/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SyncChannel = (*Endpoint)(nil)

// envelope is either a message or a drain barrier.
type envelope struct {
	msg     model.SyncMessage
	barrier chan struct{}
}

type subscription struct {
	id      uint64
	handler func(model.SyncMessage)
}

// Endpoint is one tab's attachment to a named channel. Received messages are
// handed to subscribers by a single goroutine, one at a time, in the order
// they were queued.
type Endpoint struct {
	id    string
	name  string
	hub   *Hub
	queue chan envelope
	done  chan struct{}

	closeOnce sync.Once

	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
}

// ID returns the endpoint's unique id.
func (e *Endpoint) ID() string { return e.id }

// Name returns the channel name the endpoint is attached to.
func (e *Endpoint) Name() string { return e.name }

// Publish sends msg to every other endpoint on the channel. It never blocks on
// slow receivers: a receiver with a full queue loses the message.
func (e *Endpoint) Publish(ctx context.Context, msg model.SyncMessage) error {
	if e.isClosed() {
		return model.ErrChannelClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, peer := range e.hub.peers(e.name, e.id) {
		peer.deliver(msg.Clone())
	}
	return nil
}

func (e *Endpoint) deliver(msg model.SyncMessage) {
	select {
	case <-e.done:
	case e.queue <- envelope{msg: msg}:
	default:
		slog.Warn("sync message dropped, receiver queue full",
			"channel", e.name,
			"endpoint_id", e.id,
			"kind", msg.Kind,
		)
	}
}

// Subscribe registers handler for messages received after this call.
// The returned func removes the handler; calling it more than once is a no-op.
func (e *Endpoint) Subscribe(handler func(model.SyncMessage)) func() {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscription{id: id, handler: handler})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

// Drain blocks until every message queued before the call has been handed to
// subscribers, or ctx is done.
func (e *Endpoint) Drain(ctx context.Context) error {
	barrier := make(chan struct{})
	select {
	case e.queue <- envelope{barrier: barrier}:
	case <-e.done:
		return model.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-barrier:
		return nil
	case <-e.done:
		return model.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close detaches the endpoint from the channel and stops delivery. Messages
// still queued are discarded. Close is idempotent.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.hub.remove(e)
		close(e.done)
		slog.Debug("sync endpoint closed", "channel", e.name, "endpoint_id", e.id)
	})
	return nil
}

func (e *Endpoint) isClosed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

func (e *Endpoint) run() {
	for {
		select {
		case <-e.done:
			return
		case env := <-e.queue:
			if env.barrier != nil {
				close(env.barrier)
				continue
			}
			e.dispatch(env.msg)
		}
	}
}

func (e *Endpoint) dispatch(msg model.SyncMessage) {
	e.mu.RLock()
	subs := make([]subscription, len(e.subs))
	copy(subs, e.subs)
	e.mu.RUnlock()

	for _, s := range subs {
		s.handler(msg.Clone())
	}
}
