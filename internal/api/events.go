package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/attnlab/dopamind/internal/domain"
	"github.com/attnlab/dopamind/internal/infra/eventbus"
	"github.com/attnlab/dopamind/internal/infra/metrics"
)

// ─── Live Event Feed ────────────────────────────────────────────────────────
// Engine events are relayed to browsers over Server-Sent Events; the
// celebration overlay and the sidebar subscribe to this feed.

// StreamMessage is one SSE payload.
type StreamMessage struct {
	Kind    domain.EventKind `json:"kind"`
	Payload domain.Event     `json:"payload"`
}

type frame struct {
	kind domain.EventKind
	data []byte
}

// EventHub fans bus events out to connected SSE clients.
type EventHub struct {
	mu      sync.RWMutex
	clients map[chan frame]struct{}
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[chan frame]struct{})}
}

// Attach relays every bus event to the hub.
func (h *EventHub) Attach(bus *eventbus.Bus) (func(), error) {
	return bus.SubscribeAll(func(ev domain.Event) error {
		return h.Broadcast(ev)
	})
}

// Broadcast sends ev to all connected clients. Slow clients drop messages.
func (h *EventHub) Broadcast(ev domain.Event) error {
	data, err := json.Marshal(StreamMessage{Kind: ev.Kind(), Payload: ev})
	if err != nil {
		return err
	}
	f := frame{kind: ev.Kind(), data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- f:
		default:
		}
	}
	return nil
}

// subscribe registers a new client. Returns the channel and an unsubscribe func.
func (h *EventHub) subscribe() (<-chan frame, func()) {
	ch := make(chan frame, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	metrics.SSEClients.Inc()

	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
		metrics.SSEClients.Dec()
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleSSE serves the feed.
// GET /api/gamification/events
func (h *EventHub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, unsub := h.subscribe()
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case f := <-ch:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.kind, f.data)
			flusher.Flush()
		}
	}
}
