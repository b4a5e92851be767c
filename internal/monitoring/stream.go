package monitoring

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Stream upgrades the request to a websocket and streams monitor events.
func (h *Handler) Stream(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[monitoring] websocket upgrade failed: %v", err)
		return
	}

	conn := h.hub.newConnection(ws)
	h.hub.register <- conn

	go h.writePump(conn)
	go h.readPump(conn)
}

// readPump drains client frames so pong handlers fire, then unregisters.
func (h *Handler) readPump(conn *connection) {
	defer func() {
		h.hub.unregister <- conn
		conn.conn.Close()
	}()

	conn.conn.SetReadLimit(4096)
	conn.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.conn.SetPongHandler(func(string) error {
		conn.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[monitoring] websocket read error: %v", err)
			}
			return
		}
	}
}

func (h *Handler) writePump(conn *connection) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.conn.Close()
	}()

	for {
		select {
		case data, ok := <-conn.send:
			conn.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				conn.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
