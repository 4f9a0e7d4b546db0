package watch

import (
	"time"

	"github.com/HerbHall/watchdesk/pkg/plugin"
)

// Config holds the watch module's tunables.
type Config struct {
	Interval          time.Duration
	SNMPTimeout       time.Duration
	SNMPRetries       int
	MaxInFlight       int64
	ClassifyDisk      bool
	TicketDedupWindow time.Duration
	SystemRequester   string
	ICMPProbe         bool
}

func defaultConfig() Config {
	return Config{
		Interval:        30 * time.Second,
		SNMPTimeout:     5 * time.Second,
		SNMPRetries:     1,
		MaxInFlight:     16,
		SystemRequester: "system",
		ICMPProbe:       true,
	}
}

func loadConfig(cfg plugin.Config) Config {
	c := defaultConfig()
	if cfg == nil {
		return c
	}
	if cfg.IsSet("interval") {
		c.Interval = cfg.GetDuration("interval")
	}
	if cfg.IsSet("snmp_timeout") {
		c.SNMPTimeout = cfg.GetDuration("snmp_timeout")
	}
	if cfg.IsSet("snmp_retries") {
		c.SNMPRetries = cfg.GetInt("snmp_retries")
	}
	if cfg.IsSet("max_in_flight") {
		c.MaxInFlight = int64(cfg.GetInt("max_in_flight"))
	}
	if cfg.IsSet("classify_disk") {
		c.ClassifyDisk = cfg.GetBool("classify_disk")
	}
	if cfg.IsSet("ticket_dedup_window") {
		c.TicketDedupWindow = cfg.GetDuration("ticket_dedup_window")
	}
	if cfg.IsSet("system_requester") {
		c.SystemRequester = cfg.GetString("system_requester")
	}
	if cfg.IsSet("icmp_probe") {
		c.ICMPProbe = cfg.GetBool("icmp_probe")
	}
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 16
	}
	return c
}
