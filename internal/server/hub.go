package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"tagbadge/internal/logging"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 32
)

// Event is pushed to every websocket client.
type Event struct {
	Type    string `json:"type"`
	Client  string `json:"client,omitempty"`
	Index   int    `json:"index"`
	Version uint64 `json:"version,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// Hub fans events out to connected clients. Broadcast never blocks: a
// client that falls behind loses events.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	log     *logrus.Entry
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		log:     logging.Module("events"),
	}
}

// Register starts a writer for conn and returns the client id.
func (h *Hub) Register(conn *websocket.Conn) string {
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Event, sendBuffer),
	}
	c.send <- Event{Type: "hello", Client: c.id}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	go h.writer(c)
	h.log.Debugf("Client %s connected", c.id)
	return c.id
}

func (h *Hub) writer(c *client) {
	defer c.conn.Close()
	for ev := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			h.log.Debugf("Write deadline for %s failed: %v", c.id, err)
			h.Unregister(c.id)
			return
		}
		if err := c.conn.WriteJSON(ev); err != nil {
			h.log.Debugf("Write to %s failed: %v", c.id, err)
			h.Unregister(c.id)
			return
		}
	}
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	if err != nil {
		h.log.Debugf("Close handshake with %s failed: %v", c.id, err)
	}
}

// Unregister drops a client. Unknown ids are ignored.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		h.log.Debugf("Client %s disconnected", id)
	}
}

func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.log.Warnf("Client %s is slow, dropped %s event", c.id, ev.Type)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}
