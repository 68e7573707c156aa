package parser

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
)

// DefaultHeaderRows is the header-row fallback order tried after the hint.
var DefaultHeaderRows = []int{6, 7, 5, 4, 0, 1, 2, 3}

// SheetSelector picks a worksheet by name or by 0-based index. The zero value selects
// automatically.
type SheetSelector struct {
	Name  string
	Index int
	ByIdx bool
}

// SheetByName selects a sheet by name.
func SheetByName(name string) SheetSelector { return SheetSelector{Name: name} }

// SheetByIndex selects a sheet by 0-based index.
func SheetByIndex(i int) SheetSelector { return SheetSelector{Index: i, ByIdx: true} }

// ParseSheetSelector reads a command-line value: integers are indexes, anything else a name.
func ParseSheetSelector(v string) SheetSelector {
	v = strings.TrimSpace(v)
	if v == "" {
		return SheetSelector{}
	}
	if i, err := strconv.Atoi(v); err == nil && i >= 0 {
		return SheetByIndex(i)
	}
	return SheetByName(v)
}

// Auto reports whether no sheet was requested.
func (s SheetSelector) Auto() bool { return !s.ByIdx && s.Name == "" }

func (s SheetSelector) String() string {
	switch {
	case s.ByIdx:
		return strconv.Itoa(s.Index)
	case s.Name != "":
		return s.Name
	default:
		return "auto"
	}
}

// Options configures ReadTable.
type Options struct {
	Sheet      SheetSelector
	HeaderHint *int
	HeaderRows []int

	// UnnamedThreshold is the placeholder-label fraction at which a header is rejected.
	UnnamedThreshold float64
	PromoteMaxScan   int

	// ExternalConverter is the office binary used to convert workbooks the native readers
	// cannot open. Empty disables the strategy.
	ExternalConverter string
	ExternalTimeout   time.Duration

	Logger *slog.Logger
}

// DefaultOptions returns the reader defaults.
func DefaultOptions() Options {
	return Options{
		HeaderRows:       DefaultHeaderRows,
		UnnamedThreshold: analysis.DefaultUnnamedThreshold,
		PromoteMaxScan:   analysis.DefaultPromoteMaxScan,
		ExternalTimeout:  2 * time.Minute,
	}
}

func (o Options) withDefaults() Options {
	if len(o.HeaderRows) == 0 {
		o.HeaderRows = DefaultHeaderRows
	}
	if o.UnnamedThreshold <= 0 {
		o.UnnamedThreshold = analysis.DefaultUnnamedThreshold
	}
	if o.PromoteMaxScan <= 0 {
		o.PromoteMaxScan = analysis.DefaultPromoteMaxScan
	}
	if o.ExternalTimeout <= 0 {
		o.ExternalTimeout = 2 * time.Minute
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// headerCandidates returns the hint followed by the fallback order, deduplicated.
func (o Options) headerCandidates() []int {
	seen := map[int]bool{}
	var out []int
	add := func(i int) {
		if i >= 0 && !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	if o.HeaderHint != nil {
		add(*o.HeaderHint)
	}
	for _, i := range o.HeaderRows {
		add(i)
	}
	return out
}

// HeaderRow is a convenience for building a hint pointer.
func HeaderRow(i int) *int { return &i }
