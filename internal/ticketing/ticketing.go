// Package ticketing owns the ticket store. Tickets arrive through the HTTP
// API or from the watch module when a device goes critical; every creation is
// announced on the event bus so the rtc module can push it to agents.
package ticketing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/watchdesk/pkg/models"
	"github.com/HerbHall/watchdesk/pkg/plugin"
)

// Event topics published by this module.
const (
	TopicTicketCreated  = "ticketing.ticket.created"
	TopicTicketUpdated  = "ticketing.ticket.updated"
	TopicTicketAssigned = "ticketing.ticket.assigned"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

// Service is the ticket-creation surface other modules depend on.
type Service interface {
	// CreateTicket stores a ticket, assigns it a number, and announces it on
	// the bus.
	CreateTicket(ctx context.Context, ticket *models.Ticket) error

	// FindOpenIncident returns the newest unresolved incident for a device
	// created at or after since, or nil when there is none.
	FindOpenIncident(ctx context.Context, deviceID string, since time.Time) (*models.Ticket, error)
}

var _ Service = (*Module)(nil)

// Module implements the ticketing plugin.
type Module struct {
	logger *zap.Logger
	bus    plugin.EventBus
	repo   TicketRepository
}

// New creates a new ticketing module.
func New() *Module {
	return &Module{}
}

// Info implements plugin.Plugin.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "ticketing",
		Version:      "0.1.0",
		Description:  "Ticket lifecycle for incidents and service requests",
		Dependencies: []string{"inventory"},
		APIVersion:   plugin.APIVersionCurrent,
		Required:     true,
	}
}

// Init implements plugin.Plugin.
func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	if deps.Store == nil {
		return fmt.Errorf("ticketing requires a store")
	}
	if err := deps.Store.Migrate(ctx, "ticketing", migrations()); err != nil {
		return fmt.Errorf("ticketing migrations: %w", err)
	}
	m.repo = NewSQLiteTicketRepository(deps.Store.DB())

	m.logger.Info("ticketing module initialized")
	return nil
}

// Start implements plugin.Plugin.
func (m *Module) Start(ctx context.Context) error {
	return nil
}

// Stop implements plugin.Plugin.
func (m *Module) Stop(ctx context.Context) error {
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	if m.repo == nil {
		return plugin.HealthStatus{Healthy: false, Message: "repository not initialized"}
	}
	return plugin.HealthStatus{Healthy: true}
}

// CreateTicket implements Service.
func (m *Module) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	if err := m.repo.Create(ctx, ticket); err != nil {
		return err
	}
	m.logger.Info("ticket created",
		zap.String("id", ticket.ID),
		zap.String("number", ticket.Number),
		zap.String("priority", string(ticket.Priority)))
	if m.bus != nil {
		m.bus.PublishAsync(ctx, plugin.Event{
			Topic:   TopicTicketCreated,
			Source:  "ticketing",
			Payload: *ticket,
		})
	}
	return nil
}

// FindOpenIncident implements Service.
func (m *Module) FindOpenIncident(ctx context.Context, deviceID string, since time.Time) (*models.Ticket, error) {
	return m.repo.FindOpenIncident(ctx, deviceID, since)
}

func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create ticketing_tickets table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS ticketing_tickets (
						id               TEXT PRIMARY KEY,
						number           TEXT NOT NULL UNIQUE,
						title            TEXT NOT NULL,
						description      TEXT NOT NULL DEFAULT '',
						type             TEXT NOT NULL DEFAULT 'incident',
						priority         TEXT NOT NULL DEFAULT 'medium',
						status           TEXT NOT NULL DEFAULT 'new',
						category         TEXT NOT NULL DEFAULT '',
						requester        TEXT NOT NULL DEFAULT '',
						assigned_to      TEXT NOT NULL DEFAULT '',
						source_device_id TEXT NOT NULL DEFAULT '',
						created_at       TIMESTAMP NOT NULL,
						updated_at       TIMESTAMP NOT NULL
					);
					CREATE INDEX IF NOT EXISTS idx_ticketing_tickets_status
						ON ticketing_tickets(status);
					CREATE INDEX IF NOT EXISTS idx_ticketing_tickets_device
						ON ticketing_tickets(source_device_id);
				`)
				return err
			},
		},
	}
}
