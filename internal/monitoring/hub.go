// Package monitoring exposes the agent monitor over HTTP, including a
// websocket stream of live events.
package monitoring

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/astc-project/astc-backend/internal/framework/monitor"
)

// connection is a single websocket client.
type connection struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans monitor events out to connected websocket clients.
type Hub struct {
	mon *monitor.Monitor

	connections map[string]*connection

	register   chan *connection
	unregister chan *connection
	broadcast  chan []byte

	mu   sync.Mutex
	done chan struct{}
}

// NewHub creates a hub that relays events from the given monitor.
func NewHub(mon *monitor.Monitor) *Hub {
	return &Hub{
		mon:         mon,
		connections: make(map[string]*connection),
		register:    make(chan *connection),
		unregister:  make(chan *connection),
		broadcast:   make(chan []byte, 256),
		done:        make(chan struct{}),
	}
}

// Run pumps monitor events to clients until Stop is called.
func (h *Hub) Run() {
	events := h.mon.Subscribe()
	defer h.mon.Unsubscribe(events)

	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.id] = conn
			h.mu.Unlock()
			log.Printf("[monitoring] client connected id=%s", conn.id)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.id]; ok {
				delete(h.connections, conn.id)
				close(conn.send)
			}
			h.mu.Unlock()
			log.Printf("[monitoring] client disconnected id=%s", conn.id)

		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("[monitoring] failed to encode event: %v", err)
				continue
			}
			h.broadcastData(data)

		case data := <-h.broadcast:
			h.broadcastData(data)

		case <-h.done:
			h.mu.Lock()
			for id, conn := range h.connections {
				delete(h.connections, id)
				close(conn.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) broadcastData(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		select {
		case conn.send <- data:
		default:
			// Slow client, drop it.
			delete(h.connections, id)
			close(conn.send)
		}
	}
}

// Broadcast sends an already encoded payload to every client.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}

// Stop shuts the hub down and disconnects all clients.
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) newConnection(ws *websocket.Conn) *connection {
	return &connection{
		id:   uuid.New().String(),
		conn: ws,
		send: make(chan []byte, 256),
	}
}
