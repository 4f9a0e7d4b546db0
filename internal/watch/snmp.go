package watch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"

	"github.com/HerbHall/watchdesk/pkg/models"
)

// ErrDeviceUnreachable wraps every transport-level or timeout failure from a
// poll. Callers treat it as connectivity loss; the transport detail stays in
// the wrapped message for the logs.
var ErrDeviceUnreachable = errors.New("device unreachable")

// Polled object identifiers. The columnar HOST-RESOURCES and IF-MIB objects
// are instance-qualified with .1 so a plain GET works without a walk.
const (
	oidSysUpTime   = "1.3.6.1.2.1.1.3.0"
	oidCPULoad     = "1.3.6.1.2.1.25.3.3.1.2.1"
	oidStorageUsed = "1.3.6.1.2.1.25.2.3.1.6.1"
	// Second hrStorage entry: agents that list physical memory first report
	// their first fixed disk here.
	oidDiskUsed    = "1.3.6.1.2.1.25.2.3.1.6.2"
	oidIfInOctets  = "1.3.6.1.2.1.2.2.1.10.1"
	oidIfOutOctets = "1.3.6.1.2.1.2.2.1.16.1"
)

var pollOIDs = []string{oidSysUpTime, oidCPULoad, oidStorageUsed, oidDiskUsed, oidIfInOctets, oidIfOutOctets}

// RawSample holds one poll's raw values in OID order. A value missing from
// the response stays zero rather than failing the poll.
type RawSample struct {
	UptimeTicks int64
	CPULoad     int64
	StorageUsed int64
	DiskUsed    int64
	InOctets    int64
	OutOctets   int64
}

// Metrics converts the raw sample into the stored snapshot. Agents report
// hrProcessorLoad and hrStorageUsed as percentages here, so the values pass
// through unscaled.
func (s *RawSample) Metrics(now time.Time) *models.DeviceMetrics {
	return &models.DeviceMetrics{
		CPUUsage:    float64(s.CPULoad),
		MemoryUsage: float64(s.StorageUsed),
		DiskUsage:   float64(s.DiskUsed),
		Traffic:     models.NetworkTraffic{Inbound: s.InOctets, Outbound: s.OutOctets},
		Uptime:      s.UptimeTicks,
		CollectedAt: now,
	}
}

// Querier issues metric queries against devices.
type Querier interface {
	// Query polls the fixed OID set on one device. Transport failures and
	// timeouts come back wrapped in ErrDeviceUnreachable.
	Query(ctx context.Context, device models.Device) (*RawSample, error)

	// Close tears down all open sessions. Subsequent queries recreate them.
	Close()
}

var _ Querier = (*SessionPool)(nil)

// SessionPool owns one SNMP session per device, created lazily on first poll
// and kept until Close or the session errors. Each device is polled by at
// most one goroutine at a time, so per-session access needs no lock; the map
// itself does.
type SessionPool struct {
	logger  *zap.Logger
	timeout time.Duration
	retries int

	mu       sync.Mutex
	sessions map[string]*gosnmp.GoSNMP
}

// NewSessionPool creates an empty pool.
func NewSessionPool(logger *zap.Logger, timeout time.Duration, retries int) *SessionPool {
	return &SessionPool{
		logger:   logger,
		timeout:  timeout,
		retries:  retries,
		sessions: make(map[string]*gosnmp.GoSNMP),
	}
}

func (p *SessionPool) session(device models.Device) (*gosnmp.GoSNMP, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.sessions[device.ID]; ok {
		return s, nil
	}

	version := gosnmp.Version2c
	if device.Version == models.SNMPv1 {
		version = gosnmp.Version1
	}
	s := &gosnmp.GoSNMP{
		Target:    device.IPAddress,
		Port:      161,
		Transport: "udp",
		Community: device.Community,
		Version:   version,
		Timeout:   p.timeout,
		Retries:   p.retries,
		MaxOids:   gosnmp.MaxOids,
	}
	if err := s.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrDeviceUnreachable, device.IPAddress, err)
	}
	p.sessions[device.ID] = s
	return s, nil
}

func (p *SessionPool) drop(deviceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[deviceID]; ok {
		if s.Conn != nil {
			_ = s.Conn.Close()
		}
		delete(p.sessions, deviceID)
	}
}

// Query implements Querier.
func (p *SessionPool) Query(ctx context.Context, device models.Device) (*RawSample, error) {
	s, err := p.session(device)
	if err != nil {
		return nil, err
	}

	s.Context = ctx
	packet, err := s.Get(pollOIDs)
	if err != nil {
		// A failed session is dropped so the next cycle starts clean.
		p.drop(device.ID)
		return nil, fmt.Errorf("%w: get %s: %v", ErrDeviceUnreachable, device.IPAddress, err)
	}

	var sample RawSample
	for _, v := range packet.Variables {
		name := strings.TrimPrefix(v.Name, ".")
		if v.Type == gosnmp.NoSuchObject || v.Type == gosnmp.NoSuchInstance || v.Type == gosnmp.Null {
			p.logger.Debug("metric absent from response",
				zap.String("device", device.Name), zap.String("oid", name))
			continue
		}
		value := gosnmp.ToBigInt(v.Value).Int64()
		switch name {
		case oidSysUpTime:
			sample.UptimeTicks = value
		case oidCPULoad:
			sample.CPULoad = value
		case oidStorageUsed:
			sample.StorageUsed = value
		case oidDiskUsed:
			sample.DiskUsed = value
		case oidIfInOctets:
			sample.InOctets = value
		case oidIfOutOctets:
			sample.OutOctets = value
		}
	}
	return &sample, nil
}

// Close implements Querier.
func (p *SessionPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, s := range p.sessions {
		if s.Conn != nil {
			_ = s.Conn.Close()
		}
		delete(p.sessions, id)
	}
}
