package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/watchdesk/pkg/models"
)

// NewDevice returns a Device with sensible defaults, suitable for test fixtures.
// Override individual fields after creation as needed.
func NewDevice(opts ...func(*models.Device)) models.Device {
	d := models.Device{
		ID:         uuid.New().String(),
		Name:       "test-device",
		IPAddress:  "192.168.1.100",
		Community:  "public",
		Version:    models.SNMPv2c,
		DeviceType: models.DeviceTypeRouter,
		Location:   "lab",
		Department: "it",
		Thresholds: models.DefaultThresholds(),
		Monitored:  true,
		Status:     models.DeviceStatusOffline,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithName sets the device name.
func WithName(name string) func(*models.Device) {
	return func(d *models.Device) { d.Name = name }
}

// WithIP sets the device's address.
func WithIP(ip string) func(*models.Device) {
	return func(d *models.Device) { d.IPAddress = ip }
}

// WithThresholds sets the device's classification thresholds.
func WithThresholds(t models.Thresholds) func(*models.Device) {
	return func(d *models.Device) { d.Thresholds = t }
}

// WithMonitored sets the monitoring-enabled flag.
func WithMonitored(on bool) func(*models.Device) {
	return func(d *models.Device) { d.Monitored = on }
}
