package watch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/watchdesk/internal/ticketing"
	"github.com/HerbHall/watchdesk/pkg/models"
)

// Ticketer opens incident tickets for critical devices.
//
// With a zero dedup window every critical poll opens a fresh ticket, matching
// the helpdesk's expectation that nothing is silently swallowed. A positive
// window suppresses a new incident while one for the same device is still
// open inside the window.
type Ticketer struct {
	logger      *zap.Logger
	tickets     ticketing.Service
	requester   string
	dedupWindow time.Duration
	now         func() time.Time
}

// NewTicketer creates a Ticketer. requester is the identity stamped on
// auto-opened tickets.
func NewTicketer(logger *zap.Logger, tickets ticketing.Service, requester string, dedupWindow time.Duration) *Ticketer {
	return &Ticketer{
		logger:      logger,
		tickets:     tickets,
		requester:   requester,
		dedupWindow: dedupWindow,
		now:         time.Now,
	}
}

// OpenIncident creates the incident ticket for a critical device. A ticket
// creation failure is logged and never propagates: the status write that
// triggered it stands.
func (t *Ticketer) OpenIncident(ctx context.Context, device models.Device, m *models.DeviceMetrics) {
	if t.dedupWindow > 0 {
		existing, err := t.tickets.FindOpenIncident(ctx, device.ID, t.now().Add(-t.dedupWindow))
		if err != nil {
			t.logger.Warn("incident dedup lookup failed, opening anyway",
				zap.String("device", device.Name), zap.Error(err))
		} else if existing != nil {
			t.logger.Debug("incident already open, skipping",
				zap.String("device", device.Name),
				zap.String("ticket", existing.Number))
			return
		}
	}

	ticket := models.Ticket{
		Title: fmt.Sprintf("Critical Alert: %s", device.Name),
		Description: fmt.Sprintf("Device %s has critical metrics:\nCPU: %g%%\nMemory: %g%%",
			device.Name, m.CPUUsage, m.MemoryUsage),
		Type:           models.TicketTypeIncident,
		Priority:       models.TicketPriorityCritical,
		Category:       "Infrastructure",
		Requester:      t.requester,
		SourceDeviceID: device.ID,
	}
	if err := t.tickets.CreateTicket(ctx, &ticket); err != nil {
		t.logger.Error("incident ticket creation failed",
			zap.String("device", device.Name), zap.Error(err))
		return
	}
	metricIncidentsOpened.Inc()
	t.logger.Warn("incident opened",
		zap.String("device", device.Name),
		zap.String("ticket", ticket.Number),
		zap.Float64("cpu", m.CPUUsage),
		zap.Float64("memory", m.MemoryUsage))
}
