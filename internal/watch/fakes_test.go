package watch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/HerbHall/watchdesk/pkg/models"
)

// fakeRegistry is an in-memory DeviceRegistry that records UpdateStatus calls.
type fakeRegistry struct {
	mu      sync.Mutex
	devices []models.Device
	listErr error
	writes  []statusWrite
	failFor map[string]error
}

type statusWrite struct {
	DeviceID string
	Status   models.DeviceStatus
	LastSeen *time.Time
	Metrics  *models.DeviceMetrics
}

func newFakeRegistry(devices ...models.Device) *fakeRegistry {
	return &fakeRegistry{devices: devices, failFor: map[string]error{}}
}

func (f *fakeRegistry) ListMonitored(ctx context.Context) ([]models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Device, len(f.devices))
	copy(out, f.devices)
	return out, nil
}

func (f *fakeRegistry) UpdateStatus(ctx context.Context, id string, status models.DeviceStatus, lastSeen *time.Time, metrics *models.DeviceMetrics) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[id]; ok {
		return err
	}
	f.writes = append(f.writes, statusWrite{DeviceID: id, Status: status, LastSeen: lastSeen, Metrics: metrics})
	return nil
}

func (f *fakeRegistry) Writes() []statusWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]statusWrite, len(f.writes))
	copy(out, f.writes)
	return out
}

func (f *fakeRegistry) WritesFor(id string) []statusWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []statusWrite
	for _, w := range f.writes {
		if w.DeviceID == id {
			out = append(out, w)
		}
	}
	return out
}

// fakeQuerier serves canned samples or errors per device ID.
type fakeQuerier struct {
	mu      sync.Mutex
	samples map[string]*RawSample
	errs    map[string]error
	block   chan struct{} // when set, Query blocks until closed or ctx done
	closed  bool
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{samples: map[string]*RawSample{}, errs: map[string]error{}}
}

func (f *fakeQuerier) Query(ctx context.Context, device models.Device) (*RawSample, error) {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[device.ID]; ok {
		return nil, err
	}
	if s, ok := f.samples[device.ID]; ok {
		out := *s
		return &out, nil
	}
	return &RawSample{}, nil
}

func (f *fakeQuerier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeQuerier) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeTickets records created tickets and dedup lookups.
type fakeTickets struct {
	mu        sync.Mutex
	created   []models.Ticket
	createErr error
	open      *models.Ticket
	findErr   error
	lastSince time.Time
}

func (f *fakeTickets) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	ticket.Number = "TKT-test"
	f.created = append(f.created, *ticket)
	return nil
}

func (f *fakeTickets) FindOpenIncident(ctx context.Context, deviceID string, since time.Time) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSince = since
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.open, nil
}

func (f *fakeTickets) LastSince() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSince
}

func (f *fakeTickets) Created() []models.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Ticket, len(f.created))
	copy(out, f.created)
	return out
}

// fakeProber returns a fixed answer.
type fakeProber struct{ reachable bool }

func (f *fakeProber) Reachable(ctx context.Context, addr string) bool { return f.reachable }

var errBoom = errors.New("boom")
