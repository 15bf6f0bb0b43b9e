package scanner

import (
	"context"
	"strings"

	"github.com/somethingstarted/PrinterFinderInfoGatherer/common/snmp/oids"
)

// Classification reasons written to the run log.
const (
	ReasonPrinter    = "printer"
	ReasonIgnored    = "in ignored list"
	ReasonNotPrinter = "not a printer"
)

// Verdict is the outcome of printer classification.
type Verdict struct {
	IsPrinter bool
	// Description is the hrDeviceDescr value the decision was based on.
	Description string
	Reason      string
}

// ColorSource records how a color decision was reached.
type ColorSource int

const (
	ColorFromTable ColorSource = iota + 1
	ColorFromToner
)

func (s ColorSource) String() string {
	switch s {
	case ColorFromTable:
		return "table"
	case ColorFromToner:
		return "toner"
	default:
		return "unknown"
	}
}

// ColorVerdict is the outcome of color classification.
type ColorVerdict struct {
	Color  bool
	Source ColorSource
}

// ClassifierRules holds the operator-maintained model lists.
type ClassifierRules struct {
	// IgnoreModels are matched case-insensitively as substrings of the
	// device description.
	IgnoreModels []string
	// ColorModels maps an exact model string to whether it prints color.
	ColorModels map[string]bool
}

// DefaultClassifierRules returns the built-in ignore list and color table.
func DefaultClassifierRules() ClassifierRules {
	return ClassifierRules{
		IgnoreModels: []string{
			"Canon MF450 Series",
			"Canon MF741C/743C",
			"Canon LBP226",
			"canon",
			"as400",
			"ibm",
			"yealink",
			"HP ETHERNET",
			"HP",
			"Xerox",
			"Integrated",
		},
		ColorModels: map[string]bool{
			"ECOSYS M3860idn":              false,
			"ECOSYS P3260dn":               false,
			"ECOSYS M6235cidn":             true,
			"Dell B2360dn":                 false,
			"KONICA MINOLTA bizhub 360i":   true,
			"KONICA MINOLTA bizhub C558":   true,
			"HP LaserJet MFP M130nw":       false,
			"HP Color LaserJet Pro M454dn": true,
			"Source Technologies ST9820":   false,
		},
	}
}

// Classifier decides whether a device is a printer worth recording and
// whether it prints color. It holds no mutable state.
type Classifier struct {
	q      Querier
	ignore []string
	colors map[string]bool
}

// NewClassifier builds a classifier over q with the given rules.
func NewClassifier(q Querier, rules ClassifierRules) *Classifier {
	c := &Classifier{q: q, colors: make(map[string]bool, len(rules.ColorModels))}
	for _, m := range rules.IgnoreModels {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			c.ignore = append(c.ignore, m)
		}
	}
	for k, v := range rules.ColorModels {
		c.colors[k] = v
	}
	return c
}

// ClassifyPrinter reads the device description from ip and classifies it.
// A failed or empty read is a negative verdict, never an error.
func (c *Classifier) ClassifyPrinter(ctx context.Context, ip string) Verdict {
	descr, err := c.q.Query(ctx, ip, oids.HrDeviceDescr)
	if err != nil {
		descr = ""
	}
	return c.ClassifyDescription(descr)
}

// ClassifyDescription applies the ignore list to an already-read description.
// The ignore list is a hard negative even when the device is a printer.
func (c *Classifier) ClassifyDescription(descr string) Verdict {
	descr = strings.TrimSpace(descr)
	if descr == "" {
		return Verdict{Reason: ReasonNotPrinter}
	}
	lower := strings.ToLower(descr)
	for _, m := range c.ignore {
		if strings.Contains(lower, m) {
			return Verdict{Description: descr, Reason: ReasonIgnored}
		}
	}
	return Verdict{IsPrinter: true, Description: descr, Reason: ReasonPrinter}
}

// KnownColor looks model up in the color table. The match is exact.
func (c *Classifier) KnownColor(model string) (color, known bool) {
	color, known = c.colors[model]
	return color, known
}

// IsColor decides whether the device at ip prints color. The model table
// wins; otherwise any cyan, magenta or yellow toner level the device
// reports, zero included, marks it as color.
func (c *Classifier) IsColor(ctx context.Context, ip, model string) ColorVerdict {
	if color, ok := c.KnownColor(model); ok {
		return ColorVerdict{Color: color, Source: ColorFromTable}
	}
	for _, oid := range oids.ColorTonerLevels() {
		if ctx.Err() != nil {
			break
		}
		if _, err := c.q.Query(ctx, ip, oid); err == nil {
			return ColorVerdict{Color: true, Source: ColorFromToner}
		}
	}
	return ColorVerdict{Color: false, Source: ColorFromToner}
}
