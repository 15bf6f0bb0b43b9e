package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Run log names for the two jobs. They are truncated at the start of each run.
const (
	TodaysLogFind  = "TodaysLog_FindPrinters.txt"
	TodaysLogCount = "TodaysLog_PrinterCounter.txt"
)

// GetDataDir returns the appropriate data directory for the current OS
func GetDataDir(appName string) (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		// Use ProgramData for system-wide or LOCALAPPDATA for user-specific
		baseDir = os.Getenv("LOCALAPPDATA")
		if baseDir == "" {
			baseDir = os.Getenv("PROGRAMDATA")
		}
		if baseDir == "" {
			return "", os.ErrNotExist
		}

	case "darwin": // macOS
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support")

	default: // Linux and other Unix-like systems
		// Try XDG_DATA_HOME first, fallback to ~/.local/share
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	dataDir := filepath.Join(baseDir, appName)

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	return dataDir, nil
}

// GetDefaultOutputDir returns the output root used when none is configured.
func GetDefaultOutputDir() (string, error) {
	dataDir, err := GetDataDir("PrinterFinder")
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "output"), nil
}

// Partition identifies the monthly file set records are written to.
type Partition struct {
	Year  int
	Month time.Month
}

// PartitionFor returns the partition for asOf shifted back by offsetDays.
// A run shortly after a month boundary can keep writing to the previous
// month this way.
func PartitionFor(asOf time.Time, offsetDays int) Partition {
	d := asOf.AddDate(0, 0, -offsetDays)
	return Partition{Year: d.Year(), Month: d.Month()}
}

// String renders the partition as YYYY-MM.
func (p Partition) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Title renders the partition as "Jan 2006", used in the totals header.
func (p Partition) Title() string {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

// Layout places partition files under a root directory, one subdirectory
// per year.
type Layout struct {
	Root string
}

// YearDir is <root>/<YYYY>.
func (l Layout) YearDir(p Partition) string {
	return filepath.Join(l.Root, fmt.Sprintf("%04d", p.Year))
}

// FoundDevicesPath is <root>/<YYYY>/foundprinters_<YYYY-MM>.csv.
func (l Layout) FoundDevicesPath(p Partition) string {
	return filepath.Join(l.YearDir(p), fmt.Sprintf("foundprinters_%04d-%02d.csv", p.Year, int(p.Month)))
}

// TotalsPath is <root>/<YYYY>/totals_<YYYY_MM>.csv.
func (l Layout) TotalsPath(p Partition) string {
	return filepath.Join(l.YearDir(p), fmt.Sprintf("totals_%04d_%02d.csv", p.Year, int(p.Month)))
}

// MonthlyLogPath is <root>/<YYYY>/log_<YYYY-MM>.txt.
func (l Layout) MonthlyLogPath(p Partition) string {
	return filepath.Join(l.YearDir(p), fmt.Sprintf("log_%04d-%02d.txt", p.Year, int(p.Month)))
}

// TodaysLogPath is <root>/<YYYY>/<name>.
func (l Layout) TodaysLogPath(p Partition, name string) string {
	return filepath.Join(l.YearDir(p), name)
}
