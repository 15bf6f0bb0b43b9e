package scanner

import (
	"context"
	"sync"
)

// fakeQuerier answers from a per-address OID table. Unknown OIDs are
// reported as missing objects; addresses listed in down time out.
type fakeQuerier struct {
	mu     sync.Mutex
	values map[string]map[string]string
	down   map[string]bool
	calls  []string
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{values: map[string]map[string]string{}, down: map[string]bool{}}
}

func (f *fakeQuerier) set(ip, oid, value string) *fakeQuerier {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values[ip] == nil {
		f.values[ip] = map[string]string{}
	}
	f.values[ip][oid] = value
	return f
}

func (f *fakeQuerier) Query(ctx context.Context, ip, oid string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ip+" "+oid)
	if err := ctx.Err(); err != nil {
		return "", &QueryError{Kind: FailUnreachable, IP: ip, OID: oid, Err: err}
	}
	if f.down[ip] {
		return "", &QueryError{Kind: FailUnreachable, IP: ip, OID: oid}
	}
	if v, ok := f.values[ip][oid]; ok {
		return v, nil
	}
	return "", &QueryError{Kind: FailNoSuchObject, IP: ip, OID: oid}
}

func (f *fakeQuerier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeQuerier) queried(ip, oid string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == ip+" "+oid {
			return true
		}
	}
	return false
}

// aliveSet is a Prober answering from a fixed set of addresses.
type aliveSet struct {
	mu     sync.Mutex
	alive  map[string]bool
	probed []string
}

func newAliveSet(ips ...string) *aliveSet {
	s := &aliveSet{alive: map[string]bool{}}
	for _, ip := range ips {
		s.alive[ip] = true
	}
	return s
}

func (s *aliveSet) Alive(ctx context.Context, ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probed = append(s.probed, ip)
	return ctx.Err() == nil && s.alive[ip]
}

func (s *aliveSet) wasProbed(ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.probed {
		if p == ip {
			return true
		}
	}
	return false
}
