package scanner

import (
	"context"
	"net/netip"
	"runtime"
	"time"

	ping "github.com/go-ping/ping"
)

// DefaultPingTimeout matches a single echo request with a one second wait.
const DefaultPingTimeout = time.Second

// Prober answers whether a host responds to a liveness check.
type Prober interface {
	Alive(ctx context.Context, ip string) bool
}

// ProberFunc adapts a plain function to Prober.
type ProberFunc func(ctx context.Context, ip string) bool

func (f ProberFunc) Alive(ctx context.Context, ip string) bool { return f(ctx, ip) }

// PingProber sends one ICMP echo request per check.
type PingProber struct {
	Timeout time.Duration
	// Privileged uses raw sockets. Windows always needs it; on Linux the
	// unprivileged UDP mode requires net.ipv4.ping_group_range.
	Privileged bool
}

// NewPingProber returns a prober waiting at most timeout for a reply.
func NewPingProber(timeout time.Duration, privileged bool) *PingProber {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	return &PingProber{Timeout: timeout, Privileged: privileged}
}

// Alive reports whether ip replied within the timeout. Any setup error or
// cancellation counts as not alive.
func (p *PingProber) Alive(ctx context.Context, ip string) bool {
	pinger, err := ping.NewPinger(ip)
	if err != nil {
		return false
	}

	pinger.SetPrivileged(p.Privileged || runtime.GOOS == "windows")
	pinger.Count = 1
	pinger.Timeout = p.Timeout
	if pinger.Timeout <= 0 {
		pinger.Timeout = DefaultPingTimeout
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- pinger.Run()
	}()

	select {
	case <-ctx.Done():
		pinger.Stop()
		<-errCh
		return false
	case err := <-errCh:
		if err != nil {
			return false
		}
		return pinger.Statistics().PacketsRecv > 0
	}
}

// SkipPolicy excludes addresses from scanning by their last octet,
// typically gateways and broadcast addresses. The match ignores the prefix
// length: on a /23 the default policy skips x.x.0.255 and x.x.1.1 (both
// usable hosts) and still probes x.x.1.254.
type SkipPolicy struct {
	LastOctets []int
}

// DefaultSkipPolicy skips .1 and .255.
func DefaultSkipPolicy() SkipPolicy {
	return SkipPolicy{LastOctets: []int{1, 255}}
}

// Skip reports whether addr should not be probed.
func (p SkipPolicy) Skip(addr netip.Addr) bool {
	if !addr.Is4() {
		return false
	}
	last := int(addr.As4()[3])
	for _, o := range p.LastOctets {
		if o == last {
			return true
		}
	}
	return false
}
