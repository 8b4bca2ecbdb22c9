package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"estate-backend/internal/models"
)

// MessageStore persists chat messages before broadcast
type MessageStore interface {
	Create(ctx context.Context, m *models.ChatMessage) error
}

// InboundMessage is what a connected client sends
type InboundMessage struct {
	Body string `json:"body"`
}

// Hub keeps one chat room per property, connecting the tenant and the
// landlord. Messages are persisted first, then fanned out to everyone in the
// room.
type Hub struct {
	store MessageStore

	mu    sync.RWMutex
	rooms map[int64]map[*Client]bool
}

func NewHub(store MessageStore) *Hub {
	return &Hub{
		store: store,
		rooms: make(map[int64]map[*Client]bool),
	}
}

// Client is one websocket connection scoped to a property room
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	propertyID int64
	userID     int64
	userName   string
	send       chan []byte
}

// Join registers a connection in the property room and starts its pumps
func (h *Hub) Join(conn *websocket.Conn, propertyID, userID int64, userName string) *Client {
	c := &Client{
		hub:        h,
		conn:       conn,
		propertyID: propertyID,
		userID:     userID,
		userName:   userName,
		send:       make(chan []byte, 32),
	}

	h.mu.Lock()
	if h.rooms[propertyID] == nil {
		h.rooms[propertyID] = make(map[*Client]bool)
	}
	h.rooms[propertyID][c] = true
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()
	log.Printf("[Chat] User %d joined property %d room", userID, propertyID)
	return c
}

func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	if room, ok := h.rooms[c.propertyID]; ok {
		if room[c] {
			delete(room, c)
			close(c.send)
		}
		if len(room) == 0 {
			delete(h.rooms, c.propertyID)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends a persisted message to everyone in the property room
func (h *Hub) Broadcast(propertyID int64, msg *models.ChatMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[propertyID] {
		select {
		case c.send <- payload:
		default:
			// Slow consumer, drop the frame rather than block the room
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		var in InboundMessage
		if err := c.conn.ReadJSON(&in); err != nil {
			return
		}
		if in.Body == "" {
			continue
		}

		msg := &models.ChatMessage{
			PropertyID: c.propertyID,
			SenderID:   c.userID,
			SenderName: c.userName,
			Body:       in.Body,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.hub.store.Create(ctx, msg)
		cancel()
		if err != nil {
			log.Printf("[Chat] Failed to persist message from user %d: %v", c.userID, err)
			continue
		}
		c.hub.Broadcast(c.propertyID, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(45 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
