// Package broadcast implements the cross-tab sync channel as a process-wide
// hub of named, in-memory publish/subscribe channels. Delivery is
// at-most-once with no replay: an endpoint that is closed, not yet open, or
// whose queue is full when a message is published never sees it.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// DefaultBuffer is the per-endpoint delivery queue length used when a hub is
// created with a non-positive buffer.
const DefaultBuffer = 64

// Hub owns every named channel in the process. Endpoints opened on the same
// name receive each other's messages.
type Hub struct {
	mu       sync.Mutex
	channels map[string]map[string]*Endpoint
	buffer   int
}

// NewHub creates an empty hub whose endpoints queue up to buffer undelivered
// messages each.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		channels: make(map[string]map[string]*Endpoint),
		buffer:   buffer,
	}
}

// Open attaches a new endpoint to the channel called name.
func (h *Hub) Open(name string) *Endpoint {
	ep := &Endpoint{
		id:    uuid.NewString(),
		name:  name,
		hub:   h,
		queue: make(chan envelope, h.buffer),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	members, ok := h.channels[name]
	if !ok {
		members = make(map[string]*Endpoint)
		h.channels[name] = members
	}
	members[ep.id] = ep
	h.mu.Unlock()

	go ep.run()

	slog.Debug("sync endpoint opened", "channel", name, "endpoint_id", ep.id)
	return ep
}

// Members returns the number of open endpoints on the channel called name.
func (h *Hub) Members(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels[name])
}

// peers returns the open endpoints on name other than self.
func (h *Hub) peers(name, self string) []*Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.channels[name]
	out := make([]*Endpoint, 0, len(members))
	for id, ep := range members {
		if id != self {
			out = append(out, ep)
		}
	}
	return out
}

func (h *Hub) remove(ep *Endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.channels[ep.name]
	delete(members, ep.id)
	if len(members) == 0 {
		delete(h.channels, ep.name)
	}
}
