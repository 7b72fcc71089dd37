package websocket

import (
	"context"
	"net/http"
	"sync"

	"OfficeSLAMonitor/internal/logger"
)

// Message is the envelope for everything written to a socket.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub fans broadcast messages out to every registered client.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	onCount    func(int)
	log        *logger.Logger

	mu    sync.RWMutex
	count int
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		log:        log,
	}
}

// OnClientCount installs a callback invoked with the client total after
// every change. Must be called before Run.
func (h *Hub) OnClientCount(fn func(int)) {
	h.onCount = fn
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("WebSocket hub started")
	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				client.Close()
			}
			h.log.Info("WebSocket hub shutting down")
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.setCount(len(h.clients))
			h.log.Debug("WS client %s connected. Total: %d", client.ID, len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				h.setCount(len(h.clients))
				h.log.Debug("WS client %s disconnected. Total: %d", client.ID, len(h.clients))
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				if !client.Send(message) {
					delete(h.clients, client)
					client.Close()
					h.setCount(len(h.clients))
					h.log.Warn("Dropped slow WS client %s", client.ID)
				}
			}
		}
	}
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
	if h.onCount != nil {
		h.onCount(n)
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Broadcast queues a message for every client. It returns without sending
// once the hub has stopped.
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	select {
	case h.broadcast <- Message{Type: msgType, Payload: payload}:
	case <-h.done:
	}
}

// ServeWs upgrades the request and registers the connection with the hub.
// Inbound frames are ignored apart from keeping the connection alive.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	client, err := Upgrade(w, r, h.log, nil)
	if err != nil {
		return
	}

	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
		return
	}

	go func() {
		<-client.Done()
		select {
		case h.unregister <- client:
		case <-h.done:
		}
	}()
}
