package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
)

// MaxModelLength caps the model column.
const MaxModelLength = 40

// DeviceHeader is the first line of every found-devices file.
var DeviceHeader = []string{"ip", "model", "serial", "hostname"}

// Device is one discovered printer.
type Device struct {
	IP       string
	Model    string
	Serial   string
	Hostname string
}

// Sanitized returns d with commas and control characters (line breaks, NUL
// padding) replaced by spaces and the model truncated to MaxModelLength runes.
func (d Device) Sanitized() Device {
	d.IP = strings.TrimSpace(d.IP)
	d.Model = truncateRunes(flatten(d.Model), MaxModelLength)
	d.Serial = flatten(d.Serial)
	d.Hostname = flatten(d.Hostname)
	return d
}

func (d Device) record() []string {
	return []string{d.IP, d.Model, d.Serial, d.Hostname}
}

var flattener = strings.NewReplacer(",", " ", "\r\n", " ")

func flatten(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, flattener.Replace(s))
	return strings.TrimSpace(s)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

// DeviceStore is the append-only found-devices file of one partition.
// Has and Append are serialized so a duplicate check and the write that
// follows it cannot interleave with another writer in this process.
type DeviceStore struct {
	mu   sync.Mutex
	path string
	log  Logger
}

// OpenDeviceStore opens the file at path, creating it with the header row if
// it does not exist. An existing file is never rewritten.
func OpenDeviceStore(path string, log Logger) (*DeviceStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	switch {
	case err == nil:
		w := csv.NewWriter(f)
		w.Write(DeviceHeader)
		w.Flush()
		werr := w.Error()
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return nil, fmt.Errorf("write header: %w", werr)
		}
	case errors.Is(err, os.ErrExist):
	default:
		return nil, fmt.Errorf("open device file: %w", err)
	}

	return &DeviceStore{path: path, log: orNop(log)}, nil
}

// Path returns the file location.
func (s *DeviceStore) Path() string { return s.path }

// Has reports whether a record for ip exists.
func (s *DeviceStore) Has(ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.has(ip)
}

func (s *DeviceStore) has(ip string) (bool, error) {
	found := false
	err := s.scan(func(d Device) bool {
		if d.IP == ip {
			found = true
			return false
		}
		return true
	})
	return found, err
}

// Append writes d as a new row. Records with an empty serial are refused
// with ErrInvalidSerial and records for an address already present with
// ErrDuplicate. Each row is flushed before Append returns.
func (s *DeviceStore) Append(d Device) error {
	d = d.Sanitized()
	if d.Serial == "" {
		return ErrInvalidSerial
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dup, err := s.has(d.IP)
	if err != nil {
		return err
	}
	if dup {
		return ErrDuplicate
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open device file: %w", err)
	}
	w := csv.NewWriter(f)
	w.Write(d.record())
	w.Flush()
	werr := w.Error()
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("append device %s: %w", d.IP, werr)
	}

	s.log.Debug("device recorded", "ip", d.IP, "serial", d.Serial)
	return nil
}

// List returns every record in file order.
func (s *DeviceStore) List() ([]Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Device
	err := s.scan(func(d Device) bool {
		out = append(out, d)
		return true
	})
	return out, err
}

// IPs returns the recorded addresses in file order.
func (s *DeviceStore) IPs() ([]string, error) {
	devices, err := s.List()
	if err != nil {
		return nil, err
	}
	ips := make([]string, 0, len(devices))
	for _, d := range devices {
		ips = append(ips, d.IP)
	}
	return ips, nil
}

// scan walks the data rows, skipping the header and any unparsable line,
// until fn returns false.
func (s *DeviceStore) scan(fn func(Device) bool) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open device file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				s.log.Warn("skipping malformed device row", "file", s.path, "line", perr.Line)
				continue
			}
			return fmt.Errorf("read device file: %w", err)
		}
		if first {
			first = false
			if len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), DeviceHeader[0]) {
				continue
			}
		}
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		d := Device{IP: strings.TrimSpace(rec[0])}
		if len(rec) > 1 {
			d.Model = rec[1]
		}
		if len(rec) > 2 {
			d.Serial = rec[2]
		}
		if len(rec) > 3 {
			d.Hostname = rec[3]
		}
		if !fn(d) {
			return nil
		}
	}
}
