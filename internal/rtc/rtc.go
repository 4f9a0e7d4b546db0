// Package rtc fans device and ticket events out to WebSocket clients.
// Connections authenticate with a JWT bearer at handshake; delivery after
// that is best-effort so slow consumers never back-pressure the poll cycle.
package rtc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/watchdesk/internal/auth"
	"github.com/HerbHall/watchdesk/internal/server"
	"github.com/HerbHall/watchdesk/internal/ticketing"
	"github.com/HerbHall/watchdesk/internal/watch"
	"github.com/HerbHall/watchdesk/pkg/models"
	"github.com/HerbHall/watchdesk/pkg/plugin"
)

// Wire event types pushed to clients.
const (
	eventDeviceUpdated      = "device_updated"
	eventSystemAlert        = "system_alert"
	eventTicketUpdated      = "ticket_updated"
	eventTicketAssigned     = "ticket_assigned"
	eventTicketNotification = "ticket_notification"
	eventUserTyping         = "user_typing"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.HTTPProvider    = (*Module)(nil)
	_ plugin.EventSubscriber = (*Module)(nil)
	_ plugin.HealthChecker   = (*Module)(nil)
)

// Module implements the rtc plugin.
type Module struct {
	logger   *zap.Logger
	verifier *auth.Verifier
	hub      *Hub
	limiter  *rate.Limiter
}

// New creates the rtc module. A nil verifier (no configured JWT secret)
// makes Init fail, which disables the plugin rather than exposing an
// unauthenticated socket.
func New(verifier *auth.Verifier) *Module {
	return &Module{verifier: verifier}
}

// Info implements plugin.Plugin.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "rtc",
		Version:      "0.1.0",
		Description:  "WebSocket fan-out for device and ticket events",
		Dependencies: []string{"watch", "ticketing"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

// Init implements plugin.Plugin.
func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.verifier == nil {
		return fmt.Errorf("rtc requires auth.jwt_secret")
	}

	handshakeRate := 5.0
	burst := 10
	sendBuffer := 64
	if cfg := deps.Config; cfg != nil {
		if cfg.IsSet("handshake_rate") {
			handshakeRate = cfg.GetFloat64("handshake_rate")
		}
		if cfg.IsSet("handshake_burst") {
			burst = cfg.GetInt("handshake_burst")
		}
		if cfg.IsSet("send_buffer") {
			sendBuffer = cfg.GetInt("send_buffer")
		}
	}
	m.limiter = rate.NewLimiter(rate.Limit(handshakeRate), burst)
	m.hub = NewHub(m.logger, sendBuffer)

	m.logger.Info("rtc module initialized",
		zap.Float64("handshake_rate", handshakeRate),
		zap.Int("send_buffer", sendBuffer))
	return nil
}

// Start implements plugin.Plugin.
func (m *Module) Start(ctx context.Context) error {
	return nil
}

// Stop implements plugin.Plugin.
func (m *Module) Stop(ctx context.Context) error {
	if m.hub != nil {
		m.hub.CloseAll()
	}
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	if m.hub == nil {
		return plugin.HealthStatus{Healthy: false, Message: "hub not initialized"}
	}
	return plugin.HealthStatus{
		Healthy: true,
		Message: fmt.Sprintf("%d clients connected", m.hub.ClientCount()),
	}
}

// Subscriptions implements plugin.EventSubscriber: the bus topics this module
// translates into wire events.
func (m *Module) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{
		{Topic: watch.TopicDeviceUpdated, Handler: m.onDeviceUpdated},
		{Topic: watch.TopicDeviceAlert, Handler: m.onDeviceAlert},
		{Topic: ticketing.TopicTicketCreated, Handler: m.onTicketCreated},
		{Topic: ticketing.TopicTicketUpdated, Handler: m.onTicketUpdated},
		{Topic: ticketing.TopicTicketAssigned, Handler: m.onTicketAssigned},
	}
}

// onDeviceUpdated broadcasts device state to every connected client; the
// dashboard device grid is unscoped.
func (m *Module) onDeviceUpdated(ctx context.Context, event plugin.Event) {
	m.hub.Broadcast(eventDeviceUpdated, event.Payload)
}

// onDeviceAlert notifies operators only.
func (m *Module) onDeviceAlert(ctx context.Context, event plugin.Event) {
	m.hub.ToRooms(eventSystemAlert, event.Payload,
		roleRoom(auth.RoleAdmin), roleRoom(auth.RoleAgent))
}

func (m *Module) onTicketCreated(ctx context.Context, event plugin.Event) {
	ticket, ok := event.Payload.(models.Ticket)
	if !ok {
		m.logger.Warn("unexpected payload on ticket.created", zap.String("topic", event.Topic))
		return
	}
	m.hub.ToRooms(eventTicketUpdated, ticket, ticketRoom(ticket.ID))
	if ticket.AssignedTo != "" {
		m.hub.ToRooms(eventTicketAssigned, ticket, userRoom(ticket.AssignedTo))
	}
	m.hub.ToRooms(eventTicketNotification, ticket,
		roleRoom(auth.RoleAdmin), roleRoom(auth.RoleAgent))
}

func (m *Module) onTicketUpdated(ctx context.Context, event plugin.Event) {
	ticket, ok := event.Payload.(models.Ticket)
	if !ok {
		return
	}
	m.hub.ToRooms(eventTicketUpdated, ticket, ticketRoom(ticket.ID))
}

func (m *Module) onTicketAssigned(ctx context.Context, event plugin.Event) {
	ticket, ok := event.Payload.(models.Ticket)
	if !ok {
		return
	}
	m.hub.ToRooms(eventTicketUpdated, ticket, ticketRoom(ticket.ID))
	if ticket.AssignedTo != "" {
		m.hub.ToRooms(eventTicketAssigned, ticket, userRoom(ticket.AssignedTo))
	}
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/ws", Handler: m.handleWS},
		{Method: "GET", Path: "/presence", Handler: m.handlePresence},
	}
}

// handleWS upgrades an authenticated client to a WebSocket connection.
//
//	@Summary		Realtime socket
//	@Description	Upgrades to a WebSocket. Requires a valid bearer token (header or ?token=).
//	@Tags			rtc
//	@Security		BearerAuth
//	@Success		101
//	@Failure		401 {object} server.Problem
//	@Failure		429 {object} server.Problem
//	@Router			/rtc/ws [get]
func (m *Module) handleWS(w http.ResponseWriter, r *http.Request) {
	if !m.limiter.Allow() {
		server.RateLimited(w, "too many connection attempts", r.URL.Path)
		return
	}

	// Credentials are checked before the upgrade so a bad token gets a clean
	// 401 instead of a closed socket.
	identity, err := m.verifier.FromRequest(r)
	if err != nil {
		server.Unauthorized(w, "missing or invalid token", r.URL.Path)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		m.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}

	c := &client{
		id:       uuid.New().String(),
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, m.hub.sendBuffer),
	}
	m.hub.add(c)
	m.logger.Debug("client connected",
		zap.String("client", c.id),
		zap.String("user", identity.UserID),
		zap.String("role", identity.Role))

	go m.writePump(context.Background(), c)
	go m.readPump(context.Background(), c)
}

// handlePresence lists users with a live connection.
//
//	@Summary		Presence
//	@Description	Returns the IDs of users currently connected.
//	@Tags			rtc
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {object} map[string]any
//	@Router			/rtc/presence [get]
func (m *Module) handlePresence(w http.ResponseWriter, r *http.Request) {
	users := m.hub.Presence()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"online": users,
		"count":  len(users),
	})
}
