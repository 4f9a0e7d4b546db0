package watch

import (
	"time"

	"github.com/HerbHall/watchdesk/pkg/models"
)

// Event topics published by this module.
const (
	// TopicDeviceUpdated fires after every durable status write.
	TopicDeviceUpdated = "watch.device.updated"

	// TopicDeviceAlert fires when a device classifies warning or critical.
	TopicDeviceAlert = "watch.device.alert"
)

// DeviceUpdate is the payload for TopicDeviceUpdated. Field names match the
// wire format pushed to WebSocket clients.
type DeviceUpdate struct {
	DeviceID string                `json:"deviceId"`
	Name     string                `json:"name"`
	Status   models.DeviceStatus   `json:"status"`
	LastSeen time.Time             `json:"lastSeen,omitzero"`
	Metrics  *models.DeviceMetrics `json:"metrics,omitempty"`

	// Reachable carries the ICMP probe result for offline transitions; nil
	// when the probe did not run.
	Reachable *bool `json:"icmpReachable,omitempty"`
}

// DeviceAlert is the payload for TopicDeviceAlert.
type DeviceAlert struct {
	DeviceID string                `json:"deviceId"`
	Name     string                `json:"name"`
	Status   models.DeviceStatus   `json:"status"`
	Metrics  *models.DeviceMetrics `json:"metrics,omitempty"`
}
