package scanner

import (
	"context"
	"strings"
	"unicode"

	"github.com/somethingstarted/PrinterFinderInfoGatherer/common/snmp/oids"
)

// MaxSerialLength caps serials written to the totals file.
const MaxSerialLength = 64

// CounterReading is one device's state for the counter job.
type CounterReading struct {
	IP        string
	Reachable bool
	Model     string
	Serial    string
	Color     ColorVerdict
	BW        string
	ColorPage string
}

// CounterCollector reads impression counters from known printers.
type CounterCollector struct {
	prober     Prober
	q          Querier
	resolver   *Resolver
	classifier *Classifier
	tables     CounterOIDs
	log        Logger
}

// NewCounterCollector builds a collector using tables for OID selection.
func NewCounterCollector(prober Prober, q Querier, classifier *Classifier, tables CounterOIDs, log Logger) *CounterCollector {
	log = orNop(log)
	return &CounterCollector{
		prober:     prober,
		q:          q,
		resolver:   NewResolver(q, log),
		classifier: classifier,
		tables:     tables,
		log:        log,
	}
}

// Collect reads every address in order. onReading, when set, is called as
// each reading completes. Cancellation stops before the next address; the
// readings gathered so far are returned.
func (c *CounterCollector) Collect(ctx context.Context, ips []string, onReading func(CounterReading)) []CounterReading {
	out := make([]CounterReading, 0, len(ips))
	for _, ip := range ips {
		if ctx.Err() != nil {
			break
		}
		r := c.Read(ctx, ip)
		out = append(out, r)
		if onReading != nil {
			onReading(r)
		}
	}
	return out
}

// Read collects one device. An unreachable device yields a reading with
// only IP set.
func (c *CounterCollector) Read(ctx context.Context, ip string) CounterReading {
	r := CounterReading{IP: ip}
	if !c.prober.Alive(ctx, ip) {
		return r
	}
	r.Reachable = true

	if v, err := c.q.Query(ctx, ip, oids.HrDeviceDescr); err == nil {
		r.Model = strings.TrimSpace(v)
	}
	if v, ok := c.resolver.Resolve(ctx, ip, []string{oids.PrtGeneralSerialNumber}); ok {
		r.Serial = SanitizeSerial(v)
	}

	r.Color = c.classifier.IsColor(ctx, ip, r.Model)
	r.BW, _ = c.resolver.Resolve(ctx, ip, c.tables.BW.Lookup(r.Model))
	if r.Color.Color {
		r.ColorPage, _ = c.resolver.Resolve(ctx, ip, c.tables.Color.Lookup(r.Model))
	}

	c.log.Debug("counter reading", "ip", ip, "model", r.Model, "bw", r.BW, "color", r.ColorPage)
	return r
}

// SanitizeSerial truncates s to MaxSerialLength runes and keeps only
// letters, digits and spaces.
func SanitizeSerial(s string) string {
	r := []rune(s)
	if len(r) > MaxSerialLength {
		r = r[:MaxSerialLength]
	}
	var b strings.Builder
	for _, ch := range r {
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == ' ' {
			b.WriteRune(ch)
		}
	}
	return strings.TrimSpace(b.String())
}
