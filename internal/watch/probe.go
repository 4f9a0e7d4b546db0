package watch

import (
	"context"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// Prober answers host-level reachability questions. Used to annotate offline
// transitions: "SNMP agent down" and "host down" are different incidents.
type Prober interface {
	Reachable(ctx context.Context, addr string) bool
}

var _ Prober = (*ICMPProber)(nil)

// ICMPProber pings a host once with a short deadline. Runs unprivileged
// (UDP-based ICMP), so it works without CAP_NET_RAW.
type ICMPProber struct {
	Timeout time.Duration
}

// Reachable implements Prober.
func (p *ICMPProber) Reachable(ctx context.Context, addr string) bool {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		return false
	}
	pinger.Count = 1
	pinger.Timeout = p.Timeout
	if err := pinger.RunWithContext(ctx); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}
