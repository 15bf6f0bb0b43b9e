package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/somethingstarted/PrinterFinderInfoGatherer/agent/scanner"
	"github.com/somethingstarted/PrinterFinderInfoGatherer/agent/storage"
	commonutil "github.com/somethingstarted/PrinterFinderInfoGatherer/common/util"
)

// keepTotalsBackups bounds how many rotated totals files are kept per month.
const keepTotalsBackups = 5

// writeWarnInterval limits repeated found-devices write warnings, which
// usually share one cause such as a full disk.
const writeWarnInterval = time.Minute

// Logger is what jobs log through. *logger.Logger satisfies it.
type Logger interface {
	Error(msg string, context ...interface{})
	Warn(msg string, context ...interface{})
	WarnRateLimited(key string, interval time.Duration, msg string, context ...interface{})
	Info(msg string, context ...interface{})
	Debug(msg string, context ...interface{})
	Trace(msg string, context ...interface{})
}

// runner executes jobs against one loaded configuration.
type runner struct {
	cfg     *AgentConfig
	log     Logger
	prober  scanner.Prober
	querier scanner.Querier
	root    string
	now     func() time.Time

	// browse is replaced in tests to avoid multicast traffic
	browse func(ctx context.Context, timeout time.Duration, log scanner.Logger) *scanner.HostnameBook
}

func newRunner(cfg *AgentConfig, log Logger) (*runner, error) {
	root, err := cfg.OutputRoot()
	if err != nil {
		return nil, fmt.Errorf("resolve output directory: %w", err)
	}
	return &runner{
		cfg:     cfg,
		log:     log,
		prober:  scanner.NewPingProber(time.Duration(cfg.Liveness.TimeoutMs)*time.Millisecond, cfg.Liveness.Privileged),
		querier: scanner.NewSNMPQuerier(cfg.SNMPSettings()),
		root:    root,
		now:     time.Now,
		browse:  scanner.BrowseHostnames,
	}, nil
}

func (r *runner) layout() storage.Layout {
	return storage.Layout{Root: r.root}
}

// Run executes jobs in order and stops at the first failure.
func (r *runner) Run(ctx context.Context, jobs []Job) error {
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		switch job {
		case JobFind:
			_, err = r.FindPrinters(ctx)
		case JobCount:
			err = r.CountPrinters(ctx)
		default:
			err = fmt.Errorf("unknown job %q", job)
		}
		if err != nil {
			return fmt.Errorf("%s job: %w", job, err)
		}
	}
	return nil
}

// FindPrinters sweeps the configured targets and records new printers in
// the partition's found-devices file.
func (r *runner) FindPrinters(ctx context.Context) (scanner.Summary, error) {
	start := r.now()
	p := r.cfg.Partition(start)
	layout := r.layout()

	targets, err := r.cfg.Targets()
	if err != nil {
		return scanner.Summary{}, err
	}

	store, err := storage.OpenDeviceStore(layout.FoundDevicesPath(p), r.log)
	if err != nil {
		return scanner.Summary{}, err
	}
	runLog, err := storage.OpenRunLog(layout.MonthlyLogPath(p), layout.TodaysLogPath(p, storage.TodaysLogFind))
	if err != nil {
		return scanner.Summary{}, err
	}
	defer func() {
		if err := runLog.Close(); err != nil {
			r.log.Warn("closing run log", "error", err)
		}
	}()

	const job = "find printers"
	runLog.Start(job)
	commonutil.ShowInfo(fmt.Sprintf("Finding printers for %s in %s", p, store.Path()))
	r.log.Info("find job starting", "partition", p.String(), "targets", len(targets), "debug", r.cfg.Debug)

	var book *scanner.HostnameBook
	if r.cfg.Scan.MDNSHostnames {
		book = r.browse(ctx, time.Duration(r.cfg.Scan.MDNSTimeoutMs)*time.Millisecond, r.log)
	}

	d := scanner.NewDiscoverer(r.prober, r.querier,
		scanner.NewClassifier(r.querier, r.cfg.ClassifierRules()), store,
		scanner.DiscoverConfig{
			Workers:   r.cfg.Scan.Workers,
			Skip:      r.cfg.SkipPolicy(),
			Hostnames: book,
			OnHost: func(res scanner.HostResult) {
				r.log.Trace("host scanned", "ip", res.IP, "outcome", res.Outcome)
				if res.Outcome == scanner.OutcomeFailed {
					r.log.WarnRateLimited("found-devices-write", writeWarnInterval,
						"found-devices write failed", "file", store.Path(), "ip", res.IP, "error", res.Err)
				}
				runLog.Detail("%s", res.LogLine())
				label, tone := outcomeDisplay(res.Outcome)
				commonutil.ShowOutcome(res.IP, label, tone, hostDetail(res))
			},
			OnTarget: func(ev scanner.TargetEvent) {
				if ev.Done {
					runLog.Timed("finished subnet %s", ev.Target)
					runLog.Flush()
					return
				}
				runLog.Timed("starting subnet %s", ev.Target)
			},
		}, r.log)

	sum, err := d.Run(ctx, targets)
	runLog.Milestone("%s", sum.String())
	runLog.Finish(job, r.now().Sub(start))

	if err != nil {
		commonutil.ShowWarning(fmt.Sprintf("Discovery interrupted after %d hosts", sum.Hosts()))
		return sum, err
	}
	commonutil.ShowSuccess(fmt.Sprintf("Discovery finished: %d new printers, %s", sum.Counts[scanner.OutcomeCommitted], sum))
	r.log.Info("find job finished", "summary", sum.String(), "elapsed", sum.Elapsed)
	return sum, nil
}

// countAddresses returns the addresses the counter job reads: the known
// list in debug mode, otherwise the partition's found devices.
func (r *runner) countAddresses(p storage.Partition) ([]string, error) {
	if r.cfg.Debug {
		return r.cfg.KnownPrinters, nil
	}
	path := r.layout().FoundDevicesPath(p)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no found-devices file for %s: %w", p, err)
	}
	store, err := storage.OpenDeviceStore(path, r.log)
	if err != nil {
		return nil, err
	}
	return store.IPs()
}

// CountPrinters reads impression counters from every known printer and
// appends one row to the partition's totals file.
func (r *runner) CountPrinters(ctx context.Context) error {
	start := r.now()
	p := r.cfg.Partition(start)
	layout := r.layout()

	ips, err := r.countAddresses(p)
	if err != nil {
		return err
	}
	tables, err := r.cfg.CounterOIDs()
	if err != nil {
		return err
	}

	runLog, err := storage.OpenRunLog(layout.MonthlyLogPath(p), layout.TodaysLogPath(p, storage.TodaysLogCount))
	if err != nil {
		return err
	}
	defer func() {
		if err := runLog.Close(); err != nil {
			r.log.Warn("closing run log", "error", err)
		}
	}()

	const job = "printer counter"
	runLog.Start(job)
	commonutil.ShowInfo(fmt.Sprintf("Reading counters from %d printers", len(ips)))

	collector := scanner.NewCounterCollector(r.prober, r.querier,
		scanner.NewClassifier(r.querier, r.cfg.ClassifierRules()), tables, r.log)
	readings := collector.Collect(ctx, ips, func(rd scanner.CounterReading) {
		r.log.Trace("counters read", "ip", rd.IP, "reachable", rd.Reachable, "bw", rd.BW, "color", rd.ColorPage)
		runLog.Detail("%s", readingLine(rd))
		if !rd.Reachable {
			commonutil.ShowOutcome(rd.IP, "unreachable", commonutil.ToneDim, "")
			return
		}
		commonutil.ShowOutcome(rd.IP, "read", commonutil.ToneOK,
			fmt.Sprintf("%s b/w=%s color=%s", rd.Model, orDash(rd.BW), orDash(rd.ColorPage)))
	})
	if err := ctx.Err(); err != nil {
		// a partial row would misalign the history, so nothing is written
		runLog.Milestone("interrupted after %d of %d printers, no row written", len(readings), len(ips))
		runLog.Finish(job, r.now().Sub(start))
		return err
	}

	columns, row := totalsRow(readings, r.now())
	totals := storage.NewTotalsFile(layout.TotalsPath(p), p, r.log)
	if err := r.appendTotals(totals, columns, row); err != nil {
		runLog.Milestone("writing %s failed: %v", totals.Path(), err)
		runLog.Finish(job, r.now().Sub(start))
		return err
	}

	runLog.Finish(job, r.now().Sub(start))
	commonutil.ShowSuccess(fmt.Sprintf("Counters written to %s", totals.Path()))
	r.log.Info("count job finished", "printers", len(readings), "file", totals.Path())
	return nil
}

// appendTotals writes row, moving aside a totals file whose header cannot
// be read and starting a fresh one.
func (r *runner) appendTotals(totals *storage.TotalsFile, columns []storage.CounterColumn, row storage.CounterRow) error {
	err := totals.Append(columns, row)
	if !errors.Is(err, storage.ErrHeaderMismatch) {
		return err
	}

	backup, rerr := storage.RotateFile(totals.Path())
	if rerr != nil {
		return errors.Join(err, rerr)
	}
	r.log.Warn("totals file had an unexpected header, moved aside", "file", totals.Path(), "backup", backup)
	commonutil.ShowWarning(fmt.Sprintf("Unreadable totals file moved to %s", backup))
	if cerr := storage.CleanupOldBackups(totals.Path(), keepTotalsBackups, r.log); cerr != nil {
		r.log.Warn("backup cleanup failed", "error", cerr)
	}
	return totals.Append(columns, row)
}

func totalsRow(readings []scanner.CounterReading, at time.Time) ([]storage.CounterColumn, storage.CounterRow) {
	columns := make([]storage.CounterColumn, 0, len(readings))
	row := storage.CounterRow{Time: at, Counters: make(map[string]storage.Counter, len(readings))}
	for _, rd := range readings {
		columns = append(columns, storage.CounterColumn{
			IP:     rd.IP,
			Model:  storage.Device{Model: rd.Model}.Sanitized().Model,
			Serial: rd.Serial,
		})
		row.Counters[rd.IP] = storage.Counter{BW: rd.BW, Color: rd.ColorPage}
	}
	return columns, row
}

func readingLine(rd scanner.CounterReading) string {
	if !rd.Reachable {
		return fmt.Sprintf("%s - ?", rd.IP)
	}
	kind := "b/w"
	if rd.Color.Color {
		kind = "color"
	}
	return fmt.Sprintf("%s: %s - %s - %s (%s) - b/w %s - color %s",
		rd.IP, rd.Model, rd.Serial, kind, rd.Color.Source, orDash(rd.BW), orDash(rd.ColorPage))
}

func outcomeDisplay(o scanner.Outcome) (string, commonutil.Tone) {
	switch o {
	case scanner.OutcomeCommitted:
		return "new printer", commonutil.ToneOK
	case scanner.OutcomeDuplicate:
		return "known printer", commonutil.ToneInfo
	case scanner.OutcomeNoSerial:
		return "no serial", commonutil.ToneWarn
	case scanner.OutcomeFailed:
		return "write failed", commonutil.ToneError
	case scanner.OutcomeIgnored:
		return "ignored", commonutil.ToneDim
	case scanner.OutcomeNotPrinter:
		return "not a printer", commonutil.ToneDim
	default:
		return string(o), commonutil.ToneDim
	}
}

func hostDetail(res scanner.HostResult) string {
	switch res.Outcome {
	case scanner.OutcomeCommitted, scanner.OutcomeDuplicate, scanner.OutcomeIgnored:
		d := res.Device.Sanitized()
		return fmt.Sprintf("%s %s %s", d.Model, d.Serial, d.Hostname)
	case scanner.OutcomeFailed:
		return fmt.Sprint(res.Err)
	default:
		return ""
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
