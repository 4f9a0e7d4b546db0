package rtc

import (
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/HerbHall/watchdesk/internal/auth"
)

// Room name builders. Clients are auto-joined to their role and user rooms at
// connect; ticket rooms are joined on request.
func roleRoom(role string) string     { return "role_" + role }
func userRoom(userID string) string   { return "user_" + userID }
func ticketRoom(ticketID string) string { return "ticket_" + ticketID }

// wireMessage is the envelope pushed to WebSocket clients.
type wireMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// client is one WebSocket connection. Its send channel is buffered; a full
// buffer means the client is too slow and the message is dropped, never the
// sender blocked.
type client struct {
	id       string
	identity auth.Identity
	conn     *websocket.Conn
	send     chan []byte
}

// Hub tracks connections, room membership, and presence.
//
// Delivery is best-effort by construction: every path ends in a non-blocking
// channel send, so a slow or dead subscriber can never stall the poll cycle
// that produced the event.
type Hub struct {
	logger     *zap.Logger
	sendBuffer int

	mu       sync.RWMutex
	clients  map[*client]struct{}
	rooms    map[string]map[*client]struct{}
	presence map[string]int // user ID -> live connection count
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Hub{
		logger:     logger,
		sendBuffer: sendBuffer,
		clients:    make(map[*client]struct{}),
		rooms:      make(map[string]map[*client]struct{}),
		presence:   make(map[string]int),
	}
}

// add registers a connection and auto-joins its role and user rooms.
func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.joinLocked(c, roleRoom(c.identity.Role))
	h.joinLocked(c, userRoom(c.identity.UserID))
	h.presence[c.identity.UserID]++
}

// remove drops a connection from every room and updates presence.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if n := h.presence[c.identity.UserID]; n <= 1 {
		delete(h.presence, c.identity.UserID)
	} else {
		h.presence[c.identity.UserID] = n - 1
	}
	close(c.send)
}

func (h *Hub) join(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	h.joinLocked(c, room)
}

func (h *Hub) joinLocked(c *client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) leave(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(msgType string, data any) {
	payload, err := json.Marshal(wireMessage{Type: msgType, Data: data})
	if err != nil {
		h.logger.Warn("failed to marshal broadcast", zap.String("type", msgType), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		h.offer(c, msgType, payload)
	}
}

// ToRooms sends a message to every client in any of the given rooms, at most
// once per client.
func (h *Hub) ToRooms(msgType string, data any, rooms ...string) {
	h.ToRoomsExcept(nil, msgType, data, rooms...)
}

// ToRoomsExcept is ToRooms minus one connection. Used when relaying a client's
// own message back to its room, so the sender gets no echo.
func (h *Hub) ToRoomsExcept(except *client, msgType string, data any, rooms ...string) {
	payload, err := json.Marshal(wireMessage{Type: msgType, Data: data})
	if err != nil {
		h.logger.Warn("failed to marshal room message", zap.String("type", msgType), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[*client]struct{})
	for _, room := range rooms {
		for c := range h.rooms[room] {
			if c == except {
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			h.offer(c, msgType, payload)
		}
	}
}

// offer is the single non-blocking delivery point.
func (h *Hub) offer(c *client, msgType string, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.logger.Debug("send buffer full, dropping message",
			zap.String("client", c.id), zap.String("type", msgType))
	}
}

// Presence returns the IDs of users with at least one live connection.
func (h *Hub) Presence() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]string, 0, len(h.presence))
	for id := range h.presence {
		users = append(users, id)
	}
	return users
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client. Used at shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		h.remove(c)
	}
}

// roomCount reports membership size, for tests.
func (h *Hub) roomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
