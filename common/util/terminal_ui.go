package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Global quiet and silent mode flags
var quietMode bool
var silentMode bool

var (
	outMu sync.Mutex
	out   io.Writer = os.Stdout
)

// SetQuietMode enables or disables quiet mode for all terminal output
func SetQuietMode(quiet bool) {
	quietMode = quiet
}

// SetSilentMode enables or disables silent mode (suppresses ALL output including errors)
func SetSilentMode(silent bool) {
	silentMode = silent
	if silent {
		quietMode = true // Silent mode implies quiet mode
	}
}

// IsQuietMode returns true if quiet mode is enabled
func IsQuietMode() bool {
	return quietMode
}

// IsSilentMode returns true if silent mode is enabled
func IsSilentMode() bool {
	return silentMode
}

// SetOutput redirects terminal output and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	prev := out
	out = w
	return prev
}

var (
	colorRed    = lipgloss.Color("#FF5555")
	colorYellow = lipgloss.Color("#F1FA8C")
	colorGreen  = lipgloss.Color("#50FA7B")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorGray   = lipgloss.Color("#6272A4")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	okStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle  = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle  = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	infoStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	dimStyle   = lipgloss.NewStyle().Foreground(colorGray)

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorCyan).
			Padding(0, 2)
)

// Tone selects the color used for a per-host outcome line.
type Tone int

const (
	ToneInfo Tone = iota
	ToneOK
	ToneWarn
	ToneDim
	ToneError
)

func (t Tone) style() lipgloss.Style {
	switch t {
	case ToneOK:
		return okStyle
	case ToneWarn:
		return warnStyle
	case ToneDim:
		return dimStyle
	case ToneError:
		return critStyle
	default:
		return infoStyle
	}
}

func printf(format string, args ...interface{}) {
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintf(out, format, args...)
}

// logLine renders the quiet-mode form: dim timestamp, colored level, message
func logLine(style lipgloss.Style, level, message string) {
	timestamp := time.Now().Format(time.RFC3339)
	printf("%s %s %s\n", dimStyle.Render(timestamp), style.Render("["+level+"]"), message)
}

// ShowBanner displays a boxed title with the component name and version
func ShowBanner(componentName, version string) {
	if quietMode {
		return
	}
	body := titleStyle.Render(componentName) + "\n" + dimStyle.Render("version "+version)
	printf("%s\n", bannerStyle.Render(body))
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	if quietMode {
		return
	}
	printf("  %s %s\n", okStyle.Render("✓"), message)
}

// ShowError displays an error message. Errors are shown in quiet mode too.
func ShowError(message string) {
	if silentMode {
		return
	}
	if quietMode {
		logLine(critStyle, "ERROR", message)
		return
	}
	printf("  %s %s\n", critStyle.Render("✗"), message)
}

// ShowInfo displays an informational message
func ShowInfo(message string) {
	if silentMode {
		return
	}
	if quietMode {
		logLine(infoStyle, "INFO", message)
		return
	}
	printf("  %s %s\n", infoStyle.Render("•"), message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	if silentMode {
		return
	}
	if quietMode {
		logLine(warnStyle, "WARN", message)
		return
	}
	printf("  %s %s\n", warnStyle.Render("!"), message)
}

// ShowOutcome prints one per-host scan line: the address padded to a fixed
// column, a colored outcome label and optional detail.
func ShowOutcome(ip, label string, tone Tone, detail string) {
	if quietMode {
		return
	}
	line := fmt.Sprintf("%-15s  %s", ip, tone.style().Render(label))
	if detail = strings.TrimSpace(detail); detail != "" {
		line += "  " + detail
	}
	printf("%s\n", line)
}

// ShowRecentLog prints the lines dump writes as a dimmed block. Nothing is
// printed in quiet mode or when dump writes nothing.
func ShowRecentLog(dump func(io.Writer) error) {
	if quietMode {
		return
	}
	var b strings.Builder
	if err := dump(&b); err != nil || b.Len() == 0 {
		return
	}
	printf("  %s\n", dimStyle.Render("recent log:"))
	for _, line := range strings.Split(strings.TrimRight(b.String(), "\n"), "\n") {
		printf("    %s\n", dimStyle.Render(line))
	}
}
