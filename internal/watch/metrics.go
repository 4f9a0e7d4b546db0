package watch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "watchdesk",
		Subsystem: "watch",
		Name:      "poll_cycles_total",
		Help:      "Completed poll cycles.",
	})
	metricSkippedTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "watchdesk",
		Subsystem: "watch",
		Name:      "skipped_ticks_total",
		Help:      "Ticks skipped because the previous cycle was still running.",
	})
	metricPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchdesk",
		Subsystem: "watch",
		Name:      "polls_total",
		Help:      "Per-device poll outcomes.",
	}, []string{"result"})
	metricPollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "watchdesk",
		Subsystem: "watch",
		Name:      "poll_duration_seconds",
		Help:      "Duration of individual device polls.",
		Buckets:   prometheus.DefBuckets,
	})
	metricDevicesMonitored = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "watchdesk",
		Subsystem: "watch",
		Name:      "devices_monitored",
		Help:      "Devices with monitoring enabled at the last cycle.",
	})
	metricIncidentsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "watchdesk",
		Subsystem: "watch",
		Name:      "incidents_opened_total",
		Help:      "Incident tickets opened for critical devices.",
	})
)

const (
	pollResultOK          = "ok"
	pollResultUnreachable = "unreachable"
)
