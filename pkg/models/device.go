package models

import "time"

// DeviceType categorizes a monitored network device.
type DeviceType string

const (
	DeviceTypeRouter   DeviceType = "router"
	DeviceTypeSwitch   DeviceType = "switch"
	DeviceTypeServer   DeviceType = "server"
	DeviceTypePrinter  DeviceType = "printer"
	DeviceTypeFirewall DeviceType = "firewall"
	DeviceTypeOther    DeviceType = "other"
)

// Valid reports whether t is a known device type.
func (t DeviceType) Valid() bool {
	switch t {
	case DeviceTypeRouter, DeviceTypeSwitch, DeviceTypeServer,
		DeviceTypePrinter, DeviceTypeFirewall, DeviceTypeOther:
		return true
	}
	return false
}

// DeviceStatus is the health state assigned by the poller.
type DeviceStatus string

const (
	DeviceStatusOnline   DeviceStatus = "online"
	DeviceStatusOffline  DeviceStatus = "offline"
	DeviceStatusWarning  DeviceStatus = "warning"
	DeviceStatusCritical DeviceStatus = "critical"
)

// SNMPVersion is the protocol version used to query a device.
// Only v1 and v2c community-based auth are supported.
type SNMPVersion string

const (
	SNMPv1  SNMPVersion = "1"
	SNMPv2c SNMPVersion = "2c"
)

// Valid reports whether v is a supported protocol version.
func (v SNMPVersion) Valid() bool {
	return v == SNMPv1 || v == SNMPv2c
}

// ThresholdPair is a warning/critical boundary for one metric, in percent.
type ThresholdPair struct {
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
}

// Thresholds holds the per-metric classification boundaries for a device.
type Thresholds struct {
	CPU    ThresholdPair `json:"cpu"`
	Memory ThresholdPair `json:"memory"`
	Disk   ThresholdPair `json:"disk"`
}

// DefaultThresholds returns the documented threshold defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPU:    ThresholdPair{Warning: 70, Critical: 90},
		Memory: ThresholdPair{Warning: 80, Critical: 95},
		Disk:   ThresholdPair{Warning: 85, Critical: 95},
	}
}

// NetworkTraffic holds raw interface octet counters from the last poll.
type NetworkTraffic struct {
	Inbound  int64 `json:"inbound"`
	Outbound int64 `json:"outbound"`
}

// DeviceMetrics is the latest metric snapshot for a device. Only the most
// recent sample is retained; there is no history store.
type DeviceMetrics struct {
	CPUUsage    float64        `json:"cpu_usage"`
	MemoryUsage float64        `json:"memory_usage"`
	DiskUsage   float64        `json:"disk_usage"`
	Traffic     NetworkTraffic `json:"network_traffic"`
	Uptime      int64          `json:"uptime"` // sysUpTime hundredths of a second
	CollectedAt time.Time      `json:"collected_at"`
}

// Device is a monitored network entity.
//
// Status, LastSeen, and Metrics are observed state: they are written only by
// the watch reconciler so they stay consistent with poll outcomes. API
// consumers mutate configuration fields only.
type Device struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`       // Unique.
	IPAddress  string         `json:"ip_address"` // Unique.
	Community  string         `json:"community"`
	Version    SNMPVersion    `json:"snmp_version"`
	DeviceType DeviceType     `json:"device_type"`
	Location   string         `json:"location"`
	Department string         `json:"department"`
	Thresholds Thresholds     `json:"thresholds"`
	Monitored  bool           `json:"monitored"`
	Status     DeviceStatus   `json:"status"`
	LastSeen   time.Time      `json:"last_seen,omitzero"`
	Metrics    *DeviceMetrics `json:"metrics,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
