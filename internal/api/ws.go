package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/pulse/internal/events"
	"github.com/wonny/pulse/pkg/logger"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsSendBuffer   = 32
)

// Hub relays pipeline events to connected dashboard websockets. It
// subscribes once to the event bus and fans out to every client; a
// client that cannot keep up is disconnected rather than buffered
// without bound.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan events.Event
}

// NewHub creates a hub and subscribes it to the event bus
func NewHub(bus *events.Bus, log *logger.Logger) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dashboard origin enforcement is a deployment concern
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  log,
		clients: make(map[*wsClient]struct{}),
	}

	bus.SubscribeAll(h.broadcast)
	return h
}

// Handle upgrades an HTTP request to a websocket event stream
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan events.Event, wsSendBuffer),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.WithField("clients", count).Debug("Websocket client connected")

	go h.writeLoop(client)
	go h.readLoop(client)
}

// broadcast fans one event out to every connected client
func (h *Hub) broadcast(ev events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- ev:
		default:
			// Slow consumer; drop the connection, not the pipeline
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// writeLoop pushes events and pings to one client until it goes away
func (h *Hub) writeLoop(client *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-client.send:
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteJSON(ev); err != nil {
				h.remove(client)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(client)
				return
			}
		}
	}
}

// readLoop discards inbound frames and detects disconnects
func (h *Hub) readLoop(client *wsClient) {
	defer h.remove(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// remove drops a client if still registered
func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	client.conn.Close()
}
