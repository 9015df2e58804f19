package game

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

const (
	WRITE_WAIT       = 10 * time.Second
	CLIENT_SEND_SIZE = 64
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Client struct {
	conn       Conn
	userID     string
	outbound   chan []byte
	registered chan struct{}
}

// Hub fans server messages out to connected clients. Each client has one writer
// goroutine so messages arrive in the order they were sent.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan interface{}
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan interface{}, 100),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				h.dropLocked(client)
			}
			h.mu.Unlock()
			log.Println("[WS] Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			go client.writePump()
			log.Printf("[WS] Client connected (Total: %d)", len(h.clients))
			h.mu.Unlock()
			close(client.registered)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.dropLocked(client)
				log.Printf("[WS] Client disconnected: %s (Total: %d)", client.userID, len(h.clients))
			}
			h.mu.Unlock()

		case message, ok := <-h.broadcast:
			if !ok {
				return
			}
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("[WS] Marshal error: %v", err)
				continue
			}
			h.mu.RLock()
			for client := range h.clients {
				client.enqueue(data)
			}
			h.mu.RUnlock()
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Hub) dropLocked(client *Client) {
	delete(h.clients, client)
	close(client.outbound)
	client.conn.Close()
}

func (h *Hub) Broadcast(message interface{}) {
	select {
	case h.broadcast <- message:
	default:
		log.Println("[WS] Broadcast channel full, dropping message")
	}
}

// SendTo delivers message to every connection identified as userID.
func (h *Hub) SendTo(userID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Marshal error: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.userID == userID {
			client.enqueue(data)
		}
	}
}

// Reply delivers message to a single connection.
func (h *Hub) Reply(conn Conn, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Marshal error: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client := h.findLocked(conn); client != nil {
		client.enqueue(data)
	}
}

// Identify binds a connection to a participant after it registers.
func (h *Hub) Identify(conn Conn, userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	client := h.findLocked(conn)
	if client == nil {
		return false
	}
	client.userID = userID
	return true
}

// UserID returns the participant bound to conn, if any.
func (h *Hub) UserID(conn Conn) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client := h.findLocked(conn); client != nil {
		return client.userID
	}
	return ""
}

func (h *Hub) findLocked(conn Conn) *Client {
	for client := range h.clients {
		if client.conn == conn {
			return client
		}
	}
	return nil
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RegisterClient returns once Run has added the client, so a Reply or SendTo
// issued right after it reaches the connection.
func (h *Hub) RegisterClient(conn Conn, userID string) {
	client := &Client{
		conn:       conn,
		userID:     userID,
		outbound:   make(chan []byte, CLIENT_SEND_SIZE),
		registered: make(chan struct{}),
	}
	select {
	case h.register <- client:
		<-client.registered
	case <-h.stop:
		conn.Close()
	}
}

func (h *Hub) UnregisterClient(conn Conn) {
	h.mu.RLock()
	client := h.findLocked(conn)
	h.mu.RUnlock()
	if client == nil {
		return
	}
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

// enqueue must be called with the hub lock held and the client registered.
func (c *Client) enqueue(data []byte) {
	select {
	case c.outbound <- data:
	default:
		log.Printf("[WS] Send buffer full for user %s, dropping message", c.userID)
	}
}

func (c *Client) writePump() {
	for data := range c.outbound {
		c.conn.SetWriteDeadline(time.Now().Add(WRITE_WAIT))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[WS] Write error: %v", err)
		}
	}
}
