package httphandler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

// eventBuffer bounds the change events waiting to be written to one stream.
const eventBuffer = 16

// Events streams the tab's remote cache changes as server-sent events. Each
// change is one "change" event whose data is a ChangeEventResponse. Events
// that arrive while the client is too slow to keep up are dropped; the client
// should refresh to catch up.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	tabID := r.PathValue("tab")
	tab, err := h.tabs.Get(tabID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	events := make(chan model.ChangeEvent, eventBuffer)
	unsubscribe := tab.Registry.SubscribeToChanges(func(ev model.ChangeEvent) {
		select {
		case events <- ev:
		default:
			h.logger.Warn("event stream lagging, change dropped", "tab_id", tabID, "kind", ev.Kind)
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Error("event stream flush unsupported", "tab_id", tabID, "error", err)
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev := <-events:
			data, err := json.Marshal(toChangeEventResponse(ev))
			if err != nil {
				h.logger.Error("failed to encode change event", "tab_id", tabID, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
