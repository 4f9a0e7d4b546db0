package watch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/HerbHall/watchdesk/pkg/models"
)

// Poller drives the periodic evaluation of all monitored devices.
//
// One cycle reads the monitored set fresh from the registry, then polls every
// device concurrently under a semaphore bound. Cycles never overlap: a tick
// arriving while the previous cycle still runs is skipped and counted. A
// failing device never affects its siblings, and a panic anywhere in the
// cycle driver is recovered so the next tick still fires.
type Poller struct {
	logger     *zap.Logger
	cfg        Config
	devices    DeviceRegistry
	querier    Querier
	reconciler *Reconciler

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	inCycle      atomic.Bool
	cycleCount   atomic.Int64
	skippedCount atomic.Int64
	lastCycle    atomic.Int64 // unix nanos of the last completed cycle
}

// NewPoller wires a Poller.
func NewPoller(logger *zap.Logger, cfg Config, devices DeviceRegistry, querier Querier, reconciler *Reconciler) *Poller {
	return &Poller{
		logger:     logger,
		cfg:        cfg,
		devices:    devices,
		querier:    querier,
		reconciler: reconciler,
	}
}

// Start begins the repeating poll schedule: one immediate cycle, then one per
// interval. Idempotent; calling Start on a running poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx, p.done)
	p.logger.Info("poller started", zap.Duration("interval", p.cfg.Interval))
}

// Stop cancels the schedule, waits for the loop to exit, and releases all
// sessions. Safe to call when never started, and safe to call twice. After
// Stop returns no further registry writes happen, even for polls that were
// in flight: the cancelled context stops the reconciler.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
	p.querier.Close()
	p.logger.Info("poller stopped")
}

// Running reports whether the schedule is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Cycles returns the number of completed cycles.
func (p *Poller) Cycles() int64 { return p.cycleCount.Load() }

// Skipped returns the number of ticks skipped because a cycle was running.
func (p *Poller) Skipped() int64 { return p.skippedCount.Load() }

// LastCycle returns the completion time of the most recent cycle, zero when
// none has finished.
func (p *Poller) LastCycle() time.Time {
	ns := p.lastCycle.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// run drives the schedule. Cycles execute on their own goroutine so the tick
// loop keeps observing the clock while one runs; the inCycle guard then turns
// an overlapping tick into a counted skip instead of a queued cycle.
func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	var cycles sync.WaitGroup
	launch := func() {
		cycles.Add(1)
		go func() {
			defer cycles.Done()
			p.cycle(ctx)
		}()
	}

	launch()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cycles.Wait()
			return
		case <-ticker.C:
			launch()
		}
	}
}

// cycle runs one full evaluation of the monitored set.
func (p *Poller) cycle(ctx context.Context) {
	if !p.inCycle.CompareAndSwap(false, true) {
		metricSkippedTicks.Inc()
		p.skippedCount.Add(1)
		p.logger.Warn("previous cycle still running, skipping tick")
		return
	}
	defer p.inCycle.Store(false)

	defer func() {
		metricCycles.Inc()
		p.cycleCount.Add(1)
		p.lastCycle.Store(time.Now().UnixNano())
	}()

	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("panic in poll cycle", zap.Any("panic", rec))
		}
	}()

	devices, err := p.devices.ListMonitored(ctx)
	if err != nil {
		// Registry unreachable: log and wait for the next tick.
		p.logger.Error("failed to load monitored devices", zap.Error(err))
		return
	}
	metricDevicesMonitored.Set(float64(len(devices)))

	sem := semaphore.NewWeighted(p.cfg.MaxInFlight)
	var wg sync.WaitGroup
	for _, device := range devices {
		if err := sem.Acquire(ctx, 1); err != nil {
			break // context cancelled mid-cycle
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if rec := recover(); rec != nil {
					p.logger.Error("panic polling device",
						zap.String("device", device.Name), zap.Any("panic", rec))
				}
			}()
			p.pollDevice(ctx, device)
		}()
	}
	wg.Wait()
}

func (p *Poller) pollDevice(ctx context.Context, device models.Device) {
	start := time.Now()
	sample, err := p.querier.Query(ctx, device)
	metricPollDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metricPolls.WithLabelValues(pollResultUnreachable).Inc()
		p.reconciler.ApplyUnreachable(ctx, device, err)
		return
	}
	metricPolls.WithLabelValues(pollResultOK).Inc()
	p.reconciler.ApplySample(ctx, device, sample)
}
