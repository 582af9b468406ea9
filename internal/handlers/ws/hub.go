package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// Caller is the write side of one connection, as seen by event handlers.
type Caller interface {
	SendJSON(v interface{}) error
}

// Broadcaster is the fan-out capability handed to event handlers. It is
// always injected, never reached as a global, so tests can substitute a
// recording fake.
type Broadcaster interface {
	JoinRoom(room string, c Caller)
	LeaveRoom(room string, c Caller)
	EmitToRoom(room string, event string, payload interface{})
}

// Room keys. A conversation room carries message/typing/read traffic, a
// user room is the private out-of-band channel, a presence room pushes
// last-seen updates to subscribers.
func ConversationRoom(conversationID uint) string {
	return fmt.Sprintf("conv:%d", conversationID)
}

func UserRoom(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func PresenceRoom(userID uint) string {
	return fmt.Sprintf("presence:%d", userID)
}

// Client wraps a WebSocket connection with metadata
type Client struct {
	Conn         *websocket.Conn
	UserID       uint
	LastPong     time.Time
	SupportsGzip bool
	PingTicker   *time.Ticker
	CloseChan    chan struct{}

	// One writer at a time per connection.
	writeMux sync.Mutex
}

// SendJSON writes one frame to this client, compressing large payloads when
// the client negotiated gzip.
func (c *Client) SendJSON(v interface{}) error {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return err
	}

	frameType := websocket.TextMessage
	finalData := jsonData
	if c.SupportsGzip && len(jsonData) > 512 {
		if compressed, err := CompressMessage(jsonData); err == nil && len(compressed) < len(jsonData) {
			finalData = compressed
			frameType = websocket.BinaryMessage
		}
	}

	c.writeMux.Lock()
	defer c.writeMux.Unlock()
	return c.Conn.WriteMessage(frameType, finalData)
}

// Hub tracks all active connections and their room memberships. It is the
// production Broadcaster.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*Client]bool
	rooms        map[string]map[Caller]bool
	pingInterval time.Duration
	pongTimeout  time.Duration
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	hub := &Hub{
		clients:      make(map[*Client]bool),
		rooms:        make(map[string]map[Caller]bool),
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
	}

	go hub.connectionHealthChecker()

	return hub
}

// Register adds a connection, auto-subscribes it to its own private user
// room, and starts health monitoring.
func (h *Hub) Register(userID uint, conn *websocket.Conn, supportsGzip bool) *Client {
	client := &Client{
		Conn:         conn,
		UserID:       userID,
		LastPong:     time.Now(),
		SupportsGzip: supportsGzip,
		PingTicker:   time.NewTicker(h.pingInterval),
		CloseChan:    make(chan struct{}),
	}

	conn.SetPongHandler(func(appData string) error {
		h.mu.Lock()
		if h.clients[client] {
			client.LastPong = time.Now()
		}
		h.mu.Unlock()
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.JoinRoom(UserRoom(userID), client)

	go h.pingRoutine(client)

	log.Printf("User %d connected to hub (total: %d, gzip: %v)", userID, total, supportsGzip)
	return client
}

// Unregister removes a connection and all its room memberships. It never
// touches persisted state; disconnect is teardown only.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if h.clients[client] {
		if client.PingTicker != nil {
			client.PingTicker.Stop()
		}
		close(client.CloseChan)
		delete(h.clients, client)
	}
	for room, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("User %d disconnected from hub (total: %d)", client.UserID, total)
}

// JoinRoom adds a caller to a room. Idempotent.
func (h *Hub) JoinRoom(room string, c Caller) {
	h.mu.Lock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[Caller]bool)
		h.rooms[room] = members
	}
	members[c] = true
	h.mu.Unlock()
}

// LeaveRoom removes a caller from a room.
func (h *Hub) LeaveRoom(room string, c Caller) {
	h.mu.Lock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
}

// EmitToRoom sends one event to every connection currently in the room.
// The member snapshot is taken under the lock so a single emit reaches a
// consistent membership set, and emits from one goroutine reach each member
// in emission order.
func (h *Hub) EmitToRoom(room string, event string, payload interface{}) {
	h.mu.RLock()
	members := make([]Caller, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	envelope := Event{Type: event, Payload: payload}
	for _, c := range members {
		if err := c.SendJSON(envelope); err != nil {
			log.Printf("Error emitting %s to room %s: %v", event, room, err)
			if client, ok := c.(*Client); ok {
				h.Unregister(client)
			}
		}
	}
}

// InRoom reports whether a caller is currently joined to a room.
func (h *Hub) InRoom(room string, c Caller) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[room][c]
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// pingRoutine sends periodic ping messages to keep the connection alive
func (h *Hub) pingRoutine(client *Client) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Ping routine recovered from panic for user %d: %v", client.UserID, r)
		}
	}()

	for {
		select {
		case <-client.CloseChan:
			return
		case <-client.PingTicker.C:
			h.mu.RLock()
			alive := h.clients[client]
			h.mu.RUnlock()
			if !alive {
				return
			}

			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("Ping failed for user %d: %v", client.UserID, err)
				h.Unregister(client)
				return
			}
		}
	}
}

// connectionHealthChecker removes connections that stopped answering pings
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.RLock()
		dead := make([]*Client, 0)
		now := time.Now()
		for client := range h.clients {
			if now.Sub(client.LastPong) > h.pongTimeout {
				dead = append(dead, client)
			}
		}
		h.mu.RUnlock()

		for _, client := range dead {
			log.Printf("Removing dead connection for user %d (no pong received)", client.UserID)
			h.Unregister(client)
		}
	}
}
