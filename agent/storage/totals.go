package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// header layout: two leading cells, then one (b/w, color) pair per address
const (
	totalsLead     = 2
	totalsIPMarker = "IP:"
)

// CounterColumn describes one device column pair in the totals header.
type CounterColumn struct {
	IP     string
	Model  string
	Serial string
}

// Counter is one device's reading. Empty strings mean no value was read.
type Counter struct {
	BW    string
	Color string
}

// CounterRow is one run's readings keyed by address.
type CounterRow struct {
	Time     time.Time
	Counters map[string]Counter
}

// TotalsFile is the wide-format counter history of one partition. The
// address order is fixed by the header written when the file is created.
type TotalsFile struct {
	mu    sync.Mutex
	path  string
	title string
	log   Logger
}

// NewTotalsFile returns a handle for the totals file of partition p at path.
// Nothing is touched on disk until Append.
func NewTotalsFile(path string, p Partition, log Logger) *TotalsFile {
	return &TotalsFile{path: path, title: p.Title(), log: orNop(log)}
}

// Path returns the file location.
func (t *TotalsFile) Path() string { return t.path }

// Columns returns the address order recorded in the header, or nil when the
// file does not exist yet.
func (t *TotalsFile) Columns() ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.columns()
}

func (t *TotalsFile) columns() ([]string, error) {
	f, err := os.Open(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open totals file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rec, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s is empty", ErrHeaderMismatch, t.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read totals header: %w", err)
	}
	if len(rec) < totalsLead || rec[1] != totalsIPMarker {
		return nil, fmt.Errorf("%w: %s", ErrHeaderMismatch, t.path)
	}

	var ips []string
	for i := totalsLead; i < len(rec); i += 2 {
		if rec[i] == "" {
			continue
		}
		ips = append(ips, rec[i])
	}
	return ips, nil
}

// Append adds row to the file. When the file does not exist it is created
// with a header built from columns; otherwise the existing header order is
// used and readings for addresses it does not list are dropped.
func (t *TotalsFile) Append(columns []CounterColumn, row CounterRow) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	order, err := t.columns()
	if err != nil {
		return err
	}

	var records [][]string
	if order == nil {
		if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		records = append(records, t.header(columns)...)
		for _, c := range columns {
			order = append(order, c.IP)
		}
	} else {
		known := make(map[string]bool, len(order))
		for _, ip := range order {
			known[ip] = true
		}
		for _, c := range columns {
			if !known[c.IP] {
				t.log.Warn("address not in totals header, reading dropped", "ip", c.IP, "file", t.path)
			}
		}
	}
	records = append(records, dataRecord(order, row))

	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open totals file: %w", err)
	}
	w := csv.NewWriter(f)
	w.WriteAll(records)
	werr := w.Error()
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("append totals: %w", werr)
	}
	return nil
}

func (t *TotalsFile) header(columns []CounterColumn) [][]string {
	ipRow := []string{t.title, totalsIPMarker}
	modelRow := []string{"", "Model"}
	serialRow := []string{"", "Serial"}
	typeRow := []string{"Date", "Time"}
	for _, c := range columns {
		ipRow = append(ipRow, c.IP, c.IP)
		modelRow = append(modelRow, c.Model, "")
		serial := ""
		if c.Serial != "" {
			serial = "<--"
		}
		serialRow = append(serialRow, c.Serial, serial)
		typeRow = append(typeRow, "b/w", "color")
	}
	return [][]string{ipRow, modelRow, serialRow, typeRow}
}

func dataRecord(order []string, row CounterRow) []string {
	rec := []string{row.Time.Format("2006-01-02"), row.Time.Format("15:04:05")}
	for _, ip := range order {
		c := row.Counters[ip]
		rec = append(rec, c.BW, c.Color)
	}
	return rec
}
