package rtc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// clientMessage is what clients may send upstream: room management and typing
// indicators only.
type clientMessage struct {
	Type     string `json:"type"`
	TicketID string `json:"ticket_id,omitempty"`
	IsTyping bool   `json:"is_typing,omitempty"`
}

// typingNotice is relayed to a ticket room when a participant types.
type typingNotice struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

const writeTimeout = 10 * time.Second

// readPump consumes client messages until the connection dies, then
// unregisters the client. Clients only ever join or leave ticket rooms;
// anything else is ignored.
func (m *Module) readPump(ctx context.Context, c *client) {
	defer func() {
		m.hub.remove(c)
		_ = c.conn.CloseNow()
		m.logger.Debug("client disconnected",
			zap.String("client", c.id), zap.String("user", c.identity.UserID))
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			m.logger.Debug("ignoring malformed client message", zap.String("client", c.id))
			continue
		}
		switch msg.Type {
		case "join_ticket":
			if msg.TicketID != "" {
				m.hub.join(c, ticketRoom(msg.TicketID))
			}
		case "leave_ticket":
			if msg.TicketID != "" {
				m.hub.leave(c, ticketRoom(msg.TicketID))
			}
		case "typing":
			// Relayed to everyone else viewing the ticket; the sender knows
			// it is typing.
			if msg.TicketID != "" {
				m.hub.ToRoomsExcept(c, eventUserTyping,
					typingNotice{UserID: c.identity.UserID, IsTyping: msg.IsTyping},
					ticketRoom(msg.TicketID))
			}
		}
	}
}

// writePump drains the client's send buffer onto the wire. Exits when the
// hub closes the channel (unregister) or a write fails.
func (m *Module) writePump(ctx context.Context, c *client) {
	for payload := range c.send {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.conn.Write(writeCtx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			_ = c.conn.CloseNow()
			return
		}
	}
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}
