package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/avvvet/keno-services/internal/comm"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultQueueSize = 64
	writeWait        = 10 * time.Second
)

// Client is one websocket connection with its outbound queue.
type Client struct {
	socketId string
	conn     *websocket.Conn
	send     chan []byte
	once     sync.Once
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

// Hub fans messages out to every connected client. A client whose queue is
// full is dropped so one slow reader never delays the others.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	queueSize int

	// OnMessage receives every message a client sends. May be nil.
	OnMessage func(socketId string, msg *comm.WSMessage)
}

func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		clients:   make(map[string]*Client),
		queueSize: queueSize,
	}
}

// Register adds a connection and starts its writer. The first message the
// client receives is the one returned by snapshot. The snapshot is taken
// before the hub lock so a slow state source never stalls Broadcast; an
// event published in between is not replayed.
func (h *Hub) Register(socketId string, conn *websocket.Conn, snapshot func() []byte) *Client {
	c := &Client{
		socketId: socketId,
		conn:     conn,
		send:     make(chan []byte, h.queueSize),
	}

	var first []byte
	if snapshot != nil {
		first = snapshot()
	}

	h.mu.Lock()
	if first != nil {
		c.send <- first
	}
	h.clients[socketId] = c
	h.mu.Unlock()

	go h.writePump(c)
	return c
}

func (h *Hub) Unregister(socketId string) {
	h.mu.Lock()
	c, ok := h.clients[socketId]
	if ok {
		delete(h.clients, socketId)
	}
	h.mu.Unlock()

	if ok {
		c.close()
	}
}

// Broadcast queues payload for every client without blocking.
func (h *Hub) Broadcast(payload []byte) {
	var slow []string

	h.mu.RLock()
	for id, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range slow {
		log.Warnf("dropping slow websocket client %s", id)
		h.Unregister(id)
	}
}

// Send queues payload for a single client. It reports false when the
// client is gone or its queue is full.
func (h *Hub) Send(socketId string, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[socketId]
	if !ok {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (h *Hub) SendMessage(socketId string, msg *comm.WSMessage) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("marshal %s message for %s: %v", msg.Type, socketId, err)
		return false
	}
	return h.Send(socketId, payload)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// Dispatch hands an incoming client message to OnMessage.
func (h *Hub) Dispatch(socketId string, msg *comm.WSMessage) {
	if h.OnMessage == nil {
		log.Debugf("ignoring %s message from %s", msg.Type, socketId)
		return
	}
	msg.SocketId = socketId
	h.OnMessage(socketId, msg)
}

func (h *Hub) writePump(c *Client) {
	defer h.Unregister(c.socketId)

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Infof("write to socket %s failed: %v", c.socketId, err)
			return
		}
	}
}
