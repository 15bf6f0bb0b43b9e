package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sort"
	"strings"
	"time"

	"github.com/somethingstarted/PrinterFinderInfoGatherer/agent/storage"
	"github.com/somethingstarted/PrinterFinderInfoGatherer/common/snmp/oids"
)

// Outcome is the terminal state of one address in a discovery run.
type Outcome string

const (
	OutcomeSkipped     Outcome = "skipped"
	OutcomeUnreachable Outcome = "unreachable"
	OutcomeIgnored     Outcome = "ignored"
	OutcomeNotPrinter  Outcome = "not-printer"
	OutcomeNoSerial    Outcome = "no-serial"
	OutcomeCommitted   Outcome = "committed"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeFailed      Outcome = "failed"

	// outcomePrinter marks a host that passed classification and still
	// awaits the commit decision.
	outcomePrinter Outcome = "printer"
)

// HostResult carries everything learned about one address.
type HostResult struct {
	IP      string
	Outcome Outcome
	Device  storage.Device
	Verdict Verdict
	Err     error
}

// LogLine renders the result for the run log.
func (r HostResult) LogLine() string {
	d := r.Device.Sanitized()
	switch r.Outcome {
	case OutcomeSkipped:
		return fmt.Sprintf("%s - skipped", r.IP)
	case OutcomeUnreachable:
		return fmt.Sprintf("%s - ?", r.IP)
	case OutcomeIgnored, OutcomeNotPrinter:
		return fmt.Sprintf("%s \t%s: %s - %s - %s", r.IP, r.Verdict.Reason, d.Model, d.Serial, d.Hostname)
	case OutcomeNoSerial:
		return fmt.Sprintf("%s: %s- no serial - ?", r.IP, r.Verdict.Reason)
	case OutcomeDuplicate:
		return fmt.Sprintf("%s: %s- %s - %s - %s (already recorded)", r.IP, r.Verdict.Reason, d.Model, d.Serial, d.Hostname)
	case OutcomeFailed:
		return fmt.Sprintf("%s: %s- %s - %s - %s - write failed: %v", r.IP, r.Verdict.Reason, d.Model, d.Serial, d.Hostname, r.Err)
	default:
		return fmt.Sprintf("%s: %s- %s - %s - %s", r.IP, r.Verdict.Reason, d.Model, d.Serial, d.Hostname)
	}
}

// Summary counts outcomes over a run or a single target.
type Summary struct {
	Counts  map[Outcome]int
	Elapsed time.Duration
}

func (s *Summary) add(o Outcome) {
	if s.Counts == nil {
		s.Counts = make(map[Outcome]int)
	}
	s.Counts[o]++
}

func (s *Summary) merge(o Summary) {
	for k, v := range o.Counts {
		if s.Counts == nil {
			s.Counts = make(map[Outcome]int)
		}
		s.Counts[k] += v
	}
}

// Hosts returns the number of addresses processed.
func (s Summary) Hosts() int {
	n := 0
	for _, v := range s.Counts {
		n += v
	}
	return n
}

func (s Summary) String() string {
	keys := make([]string, 0, len(s.Counts))
	for k := range s.Counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, s.Counts[Outcome(k)]))
	}
	return fmt.Sprintf("%d hosts (%s)", s.Hosts(), strings.Join(parts, " "))
}

// DeviceStore is the persistence the discoverer commits printers to.
type DeviceStore interface {
	Has(ip string) (bool, error)
	Append(d storage.Device) error
}

// TargetEvent is emitted when a target starts and when it finishes.
type TargetEvent struct {
	Target  string
	Done    bool
	Summary Summary
}

// DiscoverConfig tunes a Discoverer.
type DiscoverConfig struct {
	// Workers above 1 probe and identify hosts concurrently. Commits are
	// always made from the Run goroutine.
	Workers   int
	Skip      SkipPolicy
	Hostnames *HostnameBook
	OnHost    func(HostResult)
	OnTarget  func(TargetEvent)
}

// Discoverer sweeps targets and records the printers it finds.
type Discoverer struct {
	prober     Prober
	q          Querier
	resolver   *Resolver
	classifier *Classifier
	store      DeviceStore
	cfg        DiscoverConfig
	log        Logger
}

// NewDiscoverer wires the pipeline stages together.
func NewDiscoverer(prober Prober, q Querier, classifier *Classifier, store DeviceStore, cfg DiscoverConfig, log Logger) *Discoverer {
	log = orNop(log)
	return &Discoverer{
		prober:     prober,
		q:          q,
		resolver:   NewResolver(q, log),
		classifier: classifier,
		store:      store,
		cfg:        cfg,
		log:        log,
	}
}

// Run processes targets in order. Per-host failures are recorded as
// outcomes and never stop the run; the returned error is non-nil only when
// ctx was cancelled before all targets were processed.
func (d *Discoverer) Run(ctx context.Context, targets []Target) (Summary, error) {
	start := time.Now()
	var total Summary

	for _, t := range targets {
		if ctx.Err() != nil {
			break
		}
		d.emitTarget(TargetEvent{Target: t.Name})
		tStart := time.Now()
		sum := d.runTarget(ctx, t)
		sum.Elapsed = time.Since(tStart)
		total.merge(sum)
		d.emitTarget(TargetEvent{Target: t.Name, Done: true, Summary: sum})
		d.log.Info("target finished", "target", t.Name, "summary", sum.String())
	}

	total.Elapsed = time.Since(start)
	return total, ctx.Err()
}

func (d *Discoverer) runTarget(ctx context.Context, t Target) Summary {
	var sum Summary
	if d.cfg.Workers <= 1 {
		for a := range t.Addrs {
			if ctx.Err() != nil {
				break
			}
			d.finish(&sum, d.commit(d.ScanHost(ctx, a)))
		}
		return sum
	}

	jobs := EnumerateJobs(ctx, t.Addrs, t.Name)
	results := StartHostPool(ctx, PoolConfig{Workers: d.cfg.Workers, MaxJitter: 50 * time.Millisecond}, jobs,
		func(ctx context.Context, j ScanJob) HostResult {
			return d.ScanHost(ctx, j.Addr)
		})
	for res := range results {
		d.finish(&sum, d.commit(res))
	}
	return sum
}

func (d *Discoverer) finish(sum *Summary, res HostResult) {
	sum.add(res.Outcome)
	if d.cfg.OnHost != nil {
		d.cfg.OnHost(res)
	}
}

func (d *Discoverer) emitTarget(ev TargetEvent) {
	if d.cfg.OnTarget != nil {
		d.cfg.OnTarget(ev)
	}
}

// ScanHost runs the skip, liveness, identity and classification stages for
// one address. It touches no persistent state.
func (d *Discoverer) ScanHost(ctx context.Context, addr netip.Addr) HostResult {
	res := HostResult{IP: addr.String()}

	if d.cfg.Skip.Skip(addr) {
		res.Outcome = OutcomeSkipped
		return res
	}
	if !d.prober.Alive(ctx, res.IP) {
		res.Outcome = OutcomeUnreachable
		return res
	}

	res.Device = d.Identify(ctx, res.IP)
	res.Verdict = d.classifier.ClassifyPrinter(ctx, res.IP)

	switch {
	case res.Verdict.Reason == ReasonIgnored:
		res.Outcome = OutcomeIgnored
	case !res.Verdict.IsPrinter:
		res.Outcome = OutcomeNotPrinter
	case strings.TrimSpace(res.Device.Serial) == "":
		res.Outcome = OutcomeNoSerial
	default:
		res.Outcome = outcomePrinter
	}
	return res
}

// Identify reads serial, model and hostname from ip. Any attribute that
// cannot be read is left empty.
func (d *Discoverer) Identify(ctx context.Context, ip string) storage.Device {
	dev := storage.Device{IP: ip}
	dev.Serial, _ = d.resolver.Resolve(ctx, ip, oids.SerialChain())
	if v, err := d.q.Query(ctx, ip, oids.SysDescr); err == nil {
		dev.Model = v
	}
	if v, err := d.q.Query(ctx, ip, oids.SysName); err == nil {
		dev.Hostname = v
	}
	if strings.TrimSpace(dev.Hostname) == "" {
		dev.Hostname = d.cfg.Hostnames.Lookup(ip)
	}
	return dev
}

// commit persists a classified printer. Other outcomes pass through.
func (d *Discoverer) commit(res HostResult) HostResult {
	if res.Outcome != outcomePrinter {
		return res
	}

	has, err := d.store.Has(res.IP)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		d.log.Error("duplicate check failed", "ip", res.IP, "error", err)
		return res
	}
	if has {
		res.Outcome = OutcomeDuplicate
		return res
	}

	err = d.store.Append(res.Device)
	switch {
	case err == nil:
		res.Outcome = OutcomeCommitted
	case errors.Is(err, storage.ErrDuplicate):
		res.Outcome = OutcomeDuplicate
	case errors.Is(err, storage.ErrInvalidSerial):
		res.Outcome = OutcomeNoSerial
	default:
		res.Outcome, res.Err = OutcomeFailed, err
		d.log.Error("device write failed", "ip", res.IP, "error", err)
	}
	return res
}
