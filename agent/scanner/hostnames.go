package scanner

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

// PrinterServiceTypes are the DNS-SD service types printers advertise.
var PrinterServiceTypes = []string{"_ipp._tcp", "_ipps._tcp", "_printer._tcp", "_pdl-datastream._tcp"}

// HostnameBook maps IPv4 addresses to hostnames learned from mDNS. A nil
// book is valid and knows no names.
type HostnameBook struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewHostnameBook returns an empty book.
func NewHostnameBook() *HostnameBook {
	return &HostnameBook{names: make(map[string]string)}
}

// Add records host for ip unless a name is already known.
func (b *HostnameBook) Add(ip, host string) {
	host = strings.TrimSuffix(strings.TrimSpace(host), ".")
	if host == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.names[ip]; !ok {
		b.names[ip] = host
	}
}

// Lookup returns the hostname for ip, or "".
func (b *HostnameBook) Lookup(ip string) string {
	if b == nil {
		return ""
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.names[ip]
}

// Len returns the number of known addresses.
func (b *HostnameBook) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.names)
}

func (b *HostnameBook) consume(ctx context.Context, entries <-chan *zeroconf.ServiceEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-entries:
			if !ok {
				return
			}
			if e == nil {
				continue
			}
			for _, ip := range e.AddrIPv4 {
				b.Add(ip.String(), e.HostName)
			}
		}
	}
}

// BrowseHostnames browses the printer service types for at most timeout and
// returns what it learned. Resolver errors are logged and yield a partial
// (possibly empty) book.
func BrowseHostnames(ctx context.Context, timeout time.Duration, log Logger) *HostnameBook {
	log = orNop(log)
	book := NewHostnameBook()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, st := range PrinterServiceTypes {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			log.Warn("mDNS resolver error", "error", err)
			return book
		}
		entries := make(chan *zeroconf.ServiceEntry)
		wg.Add(1)
		go func() {
			defer wg.Done()
			book.consume(ctx, entries)
		}()
		if err := resolver.Browse(ctx, st, "local.", entries); err != nil {
			log.Warn("mDNS browse error", "service", st, "error", err)
		}
	}

	<-ctx.Done()
	wg.Wait()
	log.Debug("mDNS browse finished", "hosts", book.Len())
	return book
}
