package status

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/chzchzchz/freedvrx/demod"
)

const sendQueueLen = 16

type client struct {
	conn *websocket.Conn
	send chan demod.Report
}

// writePump pumps reports from the hub to the websocket connection.
func (c *client) writePump(l *log.Logger) {
	defer c.conn.Close()
	for r := range c.send {
		if err := c.conn.WriteJSON(r); err != nil {
			l.Debug("ws write", "remote", c.conn.RemoteAddr(), "err", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Hub fans reports out to websocket clients. Slow clients miss reports
// rather than stall the broadcaster.
type Hub struct {
	log *log.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    demod.Report
	seen    bool
}

func NewHub(l *log.Logger) *Hub {
	return &Hub{log: l, clients: make(map[*client]struct{})}
}

func (h *Hub) Broadcast(r demod.Report) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last, h.seen = r, true
	for c := range h.clients {
		select {
		case c.send <- r:
		default:
		}
	}
}

// Last is the most recent report, if any was broadcast.
func (h *Hub) Last() (demod.Report, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.seen
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan demod.Report, sendQueueLen)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.seen {
		c.send <- h.last
	}
	h.mu.Unlock()
	go c.writePump(h.log)
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
