package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// SummaryOptions tunes Summarize.
type SummaryOptions struct {
	SampleRows       int
	UnnamedThreshold float64
	Dates            DateOptions
}

// DefaultSummaryOptions returns the defaults used by the inspect command.
func DefaultSummaryOptions() SummaryOptions {
	return SummaryOptions{SampleRows: 5, UnnamedThreshold: DefaultUnnamedThreshold, Dates: DefaultDateOptions()}
}

// Report is a markdown-friendly summary of an extracted table.
type Report struct {
	Name      string
	Sheet     string
	Strategy  string
	HeaderRow int
	Rows      int
	Cols      []ColumnSummary
	Samples   [][]string
	Warnings  []string
}

// ColumnSummary captures the inferred kind and basic statistics of a column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|text|empty
	NonNull int
	Missing int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Datetime range
	First time.Time
	Last  time.Time
	// Text examples
	ExampleTexts []string
}

// Summarize infers per-column kinds of t and collects sample rows.
func Summarize(name string, t *Table, opt SummaryOptions) *Report {
	if opt.SampleRows < 0 {
		opt.SampleRows = 5
	}
	if opt.UnnamedThreshold <= 0 {
		opt.UnnamedThreshold = DefaultUnnamedThreshold
	}
	if opt.Dates.SerialMax == 0 {
		opt.Dates = DefaultDateOptions()
	}
	rep := &Report{Name: name, Sheet: t.Sheet, Strategy: t.Strategy, HeaderRow: t.HeaderRow, Rows: len(t.Rows)}
	for j, label := range t.Columns {
		rep.Cols = append(rep.Cols, summarizeColumn(label, t.Column(j), opt.Dates))
	}
	for i := 0; i < len(t.Rows) && i < opt.SampleRows; i++ {
		row := make([]string, len(t.Rows[i]))
		for j, c := range t.Rows[i] {
			row[j] = c.String()
		}
		rep.Samples = append(rep.Samples, row)
	}
	if t.LooksUnnamed(opt.UnnamedThreshold) {
		rep.Warnings = append(rep.Warnings, "header is mostly unnamed placeholders; the real header may sit lower in the sheet")
	}
	if t.NonEmptyRows() <= 1 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("only %d non-empty data row(s)", t.NonEmptyRows()))
	}
	return rep
}

func summarizeColumn(label string, col []Cell, dopt DateOptions) ColumnSummary {
	cs := ColumnSummary{Name: label}
	var nums []float64
	dates := 0
	for _, c := range col {
		if c.IsEmpty() {
			cs.Missing++
			continue
		}
		cs.NonNull++
		if c.Kind == CellString {
			if tm, ok := ParseTextDate(c); ok {
				dates++
				cs.extendRange(tm)
				continue
			}
		}
		if c.Kind == CellNumber {
			if tm, ok := ParseSerialDate(c, dopt); ok && isMidnight(tm) && looksDateLabel(label) {
				dates++
				cs.extendRange(tm)
				continue
			}
		}
		if v := NormalizeNumbers([]Cell{c})[0]; v.Valid {
			nums = append(nums, v.Float)
			continue
		}
		if len(cs.ExampleTexts) < 3 {
			cs.ExampleTexts = append(cs.ExampleTexts, strings.TrimSpace(c.String()))
		}
	}
	switch {
	case cs.NonNull == 0:
		cs.Kind = "empty"
	case dates*2 > cs.NonNull:
		cs.Kind = "datetime"
	case len(nums)*2 > cs.NonNull:
		cs.Kind = "numeric"
		cs.Min, cs.Max, cs.Mean, cs.Std = describe(nums)
	default:
		cs.Kind = "text"
	}
	return cs
}

func (cs *ColumnSummary) extendRange(t time.Time) {
	if cs.First.IsZero() || t.Before(cs.First) {
		cs.First = t
	}
	if t.After(cs.Last) {
		cs.Last = t
	}
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}

func looksDateLabel(label string) bool {
	l := strings.ToLower(label)
	return strings.Contains(l, "fecha") || strings.Contains(l, "mes") || strings.Contains(l, "date")
}

func describe(vals []float64) (lo, hi, mean, std float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	var m2 float64
	for i, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		d := v - mean
		mean += d / float64(i+1)
		m2 += d * (v - mean)
	}
	if len(vals) > 1 {
		std = math.Sqrt(m2 / float64(len(vals)-1))
	}
	return lo, hi, mean, std
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[TABLE SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", r.Name))
	}
	if r.Sheet != "" {
		b.WriteString(fmt.Sprintf("Sheet: %s\n", r.Sheet))
	}
	if r.Strategy != "" {
		b.WriteString(fmt.Sprintf("Strategy: %s (header row %d)\n", r.Strategy, r.HeaderRow))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
		case "datetime":
			b.WriteString(fmt.Sprintf("; %s to %s", c.First.Format("2006-01-02"), c.Last.Format("2006-01-02")))
		case "text":
			if len(c.ExampleTexts) > 0 {
				b.WriteString("; e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(safeVal(ex))
				}
			}
		}
		b.WriteString("\n")
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		sort.Strings(r.Warnings)
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
