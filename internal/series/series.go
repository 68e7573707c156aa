// Package series turns one fetched document into a canonical monthly series.
package series

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
	"github.com/KaramelBytes/bpsloom-cli/internal/mapping"
	"github.com/KaramelBytes/bpsloom-cli/internal/parser"
)

// DefaultHeaderHint returns the header row usually found in each publication.
func DefaultHeaderHint(doc mapping.Document) int {
	if doc == mapping.Collections {
		return 6
	}
	return 7
}

// Request describes one document to assemble. Data holds the already-fetched bytes.
type Request struct {
	Document   mapping.Document
	URL        string
	Data       []byte
	Kind       parser.ContentKind // sniffed when KindUnknown
	Sheet      parser.SheetSelector
	SheetHint  string // vocabulary hint; defaults to the chosen sheet name
	HeaderHint *int   // defaults to DefaultHeaderHint
	DateColumn string

	Reader parser.Options
	Dates  analysis.DateOptions
	Logger *slog.Logger
}

// Result is an assembled series plus the diagnostics of how it was obtained.
type Result struct {
	Series    *mapping.Series
	Kind      parser.ContentKind
	Strategy  string
	Sheet     string
	HeaderRow int
	Attempts  []parser.Attempt
	Columns   []string // cleaned table labels
}

// Assemble extracts the best table from req.Data and maps it to the canonical series.
func Assemble(ctx context.Context, req Request) (*Result, error) {
	log := req.Logger
	if log == nil {
		log = slog.Default()
	}
	opt := req.Reader
	opt.Sheet = req.Sheet
	opt.Logger = log
	if opt.HeaderHint = req.HeaderHint; opt.HeaderHint == nil {
		opt.HeaderHint = parser.HeaderRow(DefaultHeaderHint(req.Document))
	}
	if len(opt.HeaderRows) == 0 {
		opt.HeaderRows = parser.DefaultHeaderRows
	}
	th := opt.UnnamedThreshold
	if th <= 0 {
		th = analysis.DefaultUnnamedThreshold
	}

	src := parser.NewSource(req.URL, req.Data, req.Kind)
	log.Info("assembling series", "document", req.Document.String(), "url", req.URL,
		"kind", src.Kind.String(), "sheet", req.Sheet.String(), "bytes", src.Len())

	rd := parser.NewReader(src, opt)
	t, err := rd.Read(ctx)
	res := &Result{Kind: src.Kind, Attempts: rd.Attempts()}
	if err != nil {
		return res, err
	}
	if p := promoteWeak(t, th, opt.PromoteMaxScan); p != t {
		log.Debug("header promoted after extraction", "header_row", p.HeaderRow)
		t = p
	}
	t = t.Clean()
	res.Strategy, res.Sheet, res.HeaderRow, res.Columns = t.Strategy, t.Sheet, t.HeaderRow, t.Columns

	hint := req.SheetHint
	if hint == "" && workbookStrategy(t.Strategy) {
		hint = t.Sheet
	}
	if hint == "" && !req.Sheet.ByIdx {
		hint = req.Sheet.Name
	}
	s, err := mapping.Map(t, mapping.Options{
		Document:   req.Document,
		SheetHint:  hint,
		DateColumn: req.DateColumn,
		Dates:      req.Dates,
		Logger:     log,
	})
	if err != nil {
		return res, fmt.Errorf("map %s: %w", req.Document, err)
	}
	res.Series = s
	log.Info("series assembled", "document", req.Document.String(), "rows", len(s.Rows), "dropped", s.Dropped,
		"metrics", len(s.Metrics), "vocabulary", s.Vocabulary.String())
	return res, nil
}

// promoteWeak re-derives the header of a mostly unnamed table. The promoted table is kept
// only when it still clears the minimal floor; otherwise t is returned unchanged.
func promoteWeak(t *analysis.Table, threshold float64, maxScan int) *analysis.Table {
	if !t.LooksUnnamed(threshold) {
		return t
	}
	if p := analysis.PromoteHeader(t, maxScan); p != nil && p.MeetsFloor() {
		return p
	}
	return t
}

// workbookStrategy reports whether tables from strategy carry a real sheet name. HTML and
// DOM tables are labelled by position instead.
func workbookStrategy(name string) bool {
	switch name {
	case "native", "legacy-manual", "external":
		return true
	}
	return false
}
