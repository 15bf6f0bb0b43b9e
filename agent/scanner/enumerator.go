package scanner

import (
	"context"
	"fmt"
	"iter"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// Subnet is an IPv4 network to sweep.
type Subnet struct {
	prefix netip.Prefix
}

// ParseSubnet parses CIDR notation. Host bits are tolerated and masked off,
// so "10.0.0.7/24" walks 10.0.0.0/24.
func ParseSubnet(cidr string) (Subnet, error) {
	p, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return Subnet{}, fmt.Errorf("invalid subnet %q: %w", cidr, err)
	}
	if !p.Addr().Is4() {
		return Subnet{}, fmt.Errorf("invalid subnet %q: only IPv4 is supported", cidr)
	}
	return Subnet{prefix: p.Masked()}, nil
}

// MustParseSubnet is ParseSubnet for constants in tests and defaults.
func MustParseSubnet(cidr string) Subnet {
	s, err := ParseSubnet(cidr)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Subnet) String() string { return s.prefix.String() }

// Prefix returns the masked network prefix.
func (s Subnet) Prefix() netip.Prefix { return s.prefix }

// Range returns the usable host range. Network and broadcast addresses are
// excluded unless the prefix is /31 or /32, where every address is a host.
func (s Subnet) Range() netipx.IPRange {
	first := s.prefix.Addr()
	last := netipx.PrefixLastIP(s.prefix)
	if s.prefix.Bits() <= 30 {
		first = first.Next()
		last = last.Prev()
	}
	return netipx.IPRangeFrom(first, last)
}

// Hosts yields every usable host address in ascending order.
func (s Subnet) Hosts() iter.Seq[netip.Addr] {
	r := s.Range()
	return func(yield func(netip.Addr) bool) {
		if !r.IsValid() {
			return
		}
		for a := r.From(); a.IsValid() && a.Compare(r.To()) <= 0; a = a.Next() {
			if !yield(a) {
				return
			}
		}
	}
}

// ParseAddresses parses a list of explicit IPv4 addresses, dropping
// duplicates while keeping first-seen order.
func ParseAddresses(list []string) ([]netip.Addr, error) {
	seen := make(map[netip.Addr]struct{}, len(list))
	out := make([]netip.Addr, 0, len(list))
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		a, err := netip.ParseAddr(raw)
		if err != nil || !a.Is4() {
			return nil, fmt.Errorf("invalid address %q", raw)
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}

// Target is a named group of addresses processed as one unit.
type Target struct {
	Name  string
	Addrs iter.Seq[netip.Addr]
}

// SubnetTarget wraps a subnet as a Target.
func SubnetTarget(s Subnet) Target {
	return Target{Name: s.String(), Addrs: s.Hosts()}
}

// ListTarget wraps an explicit address list as a Target.
func ListTarget(name string, addrs []netip.Addr) Target {
	return Target{Name: name, Addrs: func(yield func(netip.Addr) bool) {
		for _, a := range addrs {
			if !yield(a) {
				return
			}
		}
	}}
}

// EnumerateJobs emits a ScanJob per address to the returned channel, which
// is closed when the addresses are exhausted or ctx is done.
func EnumerateJobs(ctx context.Context, addrs iter.Seq[netip.Addr], source string) <-chan ScanJob {
	jobs := make(chan ScanJob)

	go func() {
		defer close(jobs)
		for a := range addrs {
			select {
			case <-ctx.Done():
				return
			case jobs <- ScanJob{Addr: a, Source: source}:
			}
		}
	}()

	return jobs
}
