package ws

import "sync"

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans notification outcome events out to operator clients, keyed by
// organization name. Slow or broken clients are dropped, never waited on.
type Hub struct {
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan event
	done      chan struct{}
	once      sync.Once
}

type event struct {
	org     string
	payload []byte
}

type subscription struct {
	org    string
	client Subscriber
}

// NewHub creates a running Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan event, 64),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			for _, clients := range h.clients {
				for c := range clients {
					c.Close()
				}
			}
			return
		case sub := <-h.register:
			if _, ok := h.clients[sub.org]; !ok {
				h.clients[sub.org] = make(map[Subscriber]struct{})
			}
			h.clients[sub.org][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.clients[sub.org]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.clients, sub.org)
				}
			}
		case ev := <-h.broadcast:
			if clients, ok := h.clients[ev.org]; ok {
				for c := range clients {
					if err := c.Send(ev.payload); err != nil {
						c.Close()
						delete(clients, c)
					}
				}
				if len(clients) == 0 {
					delete(h.clients, ev.org)
				}
			}
		}
	}
}

// Register adds a client to an org stream.
func (h *Hub) Register(org string, client Subscriber) {
	select {
	case h.register <- subscription{org: org, client: client}:
	case <-h.done:
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(org string, client Subscriber) {
	select {
	case h.unreg <- subscription{org: org, client: client}:
	case <-h.done:
	}
}

// Broadcast sends payload to every client watching org. Non-blocking: when
// the hub is saturated the event is dropped, outcomes are observable in
// logs and metrics regardless.
func (h *Hub) Broadcast(org string, payload []byte) {
	select {
	case h.broadcast <- event{org: org, payload: payload}:
	case <-h.done:
	default:
	}
}

// Close shuts the hub down and disconnects all clients.
func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.done)
	})
}
