package watch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/watchdesk/pkg/models"
	"github.com/HerbHall/watchdesk/pkg/plugin"
)

// DeviceRegistry is the slice of the inventory repository the watch core
// needs.
type DeviceRegistry interface {
	ListMonitored(ctx context.Context) ([]models.Device, error)
	UpdateStatus(ctx context.Context, id string, status models.DeviceStatus, lastSeen *time.Time, metrics *models.DeviceMetrics) error
}

// Reconciler makes poll outcomes durable and triggers downstream effects.
// Events are emitted only after the registry write succeeds, so subscribers
// never see state the database does not hold.
type Reconciler struct {
	logger       *zap.Logger
	devices      DeviceRegistry
	bus          plugin.EventBus
	ticketer     *Ticketer
	prober       Prober // nil disables the offline ICMP annotation
	classifyDisk bool
	now          func() time.Time
}

// NewReconciler wires a Reconciler. ticketer and prober may be nil.
func NewReconciler(logger *zap.Logger, devices DeviceRegistry, bus plugin.EventBus, ticketer *Ticketer, prober Prober, classifyDisk bool) *Reconciler {
	return &Reconciler{
		logger:       logger,
		devices:      devices,
		bus:          bus,
		ticketer:     ticketer,
		prober:       prober,
		classifyDisk: classifyDisk,
		now:          time.Now,
	}
}

// ApplySample records a successful poll: classify, persist (advancing
// last-seen), announce, and escalate when critical.
func (r *Reconciler) ApplySample(ctx context.Context, device models.Device, sample *RawSample) {
	if ctx.Err() != nil {
		return
	}

	now := r.now().UTC()
	metrics := sample.Metrics(now)
	status := Classify(metrics, device.Thresholds, r.classifyDisk)

	if err := r.devices.UpdateStatus(ctx, device.ID, status, &now, metrics); err != nil {
		// Event emission is suppressed so subscribers and the registry
		// cannot diverge.
		r.logger.Error("device state write failed",
			zap.String("device", device.Name), zap.Error(err))
		return
	}

	r.publish(ctx, TopicDeviceUpdated, DeviceUpdate{
		DeviceID: device.ID,
		Name:     device.Name,
		Status:   status,
		LastSeen: now,
		Metrics:  metrics,
	})

	switch status {
	case models.DeviceStatusWarning, models.DeviceStatusCritical:
		r.logger.Warn("device threshold breach",
			zap.String("device", device.Name),
			zap.String("status", string(status)),
			zap.Float64("cpu", metrics.CPUUsage),
			zap.Float64("memory", metrics.MemoryUsage))
		r.publish(ctx, TopicDeviceAlert, DeviceAlert{
			DeviceID: device.ID,
			Name:     device.Name,
			Status:   status,
			Metrics:  metrics,
		})
	}

	if status == models.DeviceStatusCritical && r.ticketer != nil {
		r.ticketer.OpenIncident(ctx, device, metrics)
	}
}

// ApplyUnreachable records a failed poll: the device goes offline, last-seen
// stays where it was (the device was not observed), and the previous metric
// snapshot is left in place.
func (r *Reconciler) ApplyUnreachable(ctx context.Context, device models.Device, cause error) {
	if ctx.Err() != nil {
		return
	}

	var reachable *bool
	if r.prober != nil {
		v := r.prober.Reachable(ctx, device.IPAddress)
		reachable = &v
	}

	r.logger.Info("device unreachable",
		zap.String("device", device.Name),
		zap.String("ip", device.IPAddress),
		zap.Boolp("icmp_reachable", reachable),
		zap.Error(cause))

	if err := r.devices.UpdateStatus(ctx, device.ID, models.DeviceStatusOffline, nil, nil); err != nil {
		r.logger.Error("device state write failed",
			zap.String("device", device.Name), zap.Error(err))
		return
	}

	r.publish(ctx, TopicDeviceUpdated, DeviceUpdate{
		DeviceID:  device.ID,
		Name:      device.Name,
		Status:    models.DeviceStatusOffline,
		LastSeen:  device.LastSeen,
		Reachable: reachable,
	})
}

func (r *Reconciler) publish(ctx context.Context, topic string, payload any) {
	if r.bus == nil {
		return
	}
	r.bus.PublishAsync(ctx, plugin.Event{
		Topic:   topic,
		Source:  "watch",
		Payload: payload,
	})
}
