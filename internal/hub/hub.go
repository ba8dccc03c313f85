package hub

import (
	"github.com/DoyleJ11/arena-server/internal/engine"
)

// Hub maps connection ids to their outboxes and fans events out to them.
// It is owned by the lobby loop and is not safe for concurrent use.
type Hub struct {
	clients map[string]chan<- engine.Payload
}

func New() *Hub {
	return &Hub{clients: make(map[string]chan<- engine.Payload)}
}

// Register adds a connection. A previous outbox under the same id is closed.
func (h *Hub) Register(id string, outbox chan<- engine.Payload) {
	if old, ok := h.clients[id]; ok && old != outbox {
		close(old)
	}
	h.clients[id] = outbox
}

// Unregister closes and forgets an outbox. Unknown ids are ignored.
func (h *Hub) Unregister(id string) {
	ch, ok := h.clients[id]
	if !ok {
		return
	}
	close(ch)
	delete(h.clients, id)
}

func (h *Hub) Connected(id string) bool {
	_, ok := h.clients[id]
	return ok
}

func (h *Hub) Len() int { return len(h.clients) }

// Deliver hands ev to every recipient that is still connected and returns
// the ids it had to drop. A recipient whose outbox is full is a slow client:
// its outbox is closed and it is removed, so the writer side sees the close
// and hangs up.
func (h *Hub) Deliver(ev engine.Outbound) (dropped []string) {
	for _, id := range ev.To {
		ch, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case ch <- ev.Payload:
			// ok
		default:
			close(ch)
			delete(h.clients, id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// Close closes every outbox.
func (h *Hub) Close() {
	for id, ch := range h.clients {
		close(ch) // tell the writer no more events
		delete(h.clients, id)
	}
}
