package watch

import "github.com/HerbHall/watchdesk/pkg/models"

// Classify maps a metric snapshot against per-device thresholds.
//
// Critical dominates warning dominates online: a device past its CPU critical
// threshold is critical even when memory only crosses the warning line. Disk
// readings are carried in the snapshot but only participate when classifyDisk
// is set. Pure function; unreachable devices never get here (they are offline
// by definition).
func Classify(m *models.DeviceMetrics, t models.Thresholds, classifyDisk bool) models.DeviceStatus {
	critical := m.CPUUsage >= t.CPU.Critical || m.MemoryUsage >= t.Memory.Critical
	warning := m.CPUUsage >= t.CPU.Warning || m.MemoryUsage >= t.Memory.Warning
	if classifyDisk {
		critical = critical || m.DiskUsage >= t.Disk.Critical
		warning = warning || m.DiskUsage >= t.Disk.Warning
	}
	switch {
	case critical:
		return models.DeviceStatusCritical
	case warning:
		return models.DeviceStatusWarning
	default:
		return models.DeviceStatusOnline
	}
}
