// Package mapping resolves source columns to canonical metrics and normalizes the period
// column into monthly buckets.
package mapping

import (
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
)

// Options configures Map.
type Options struct {
	Document   Document
	SheetHint  string // selects the unemployment vocabulary
	DateColumn string // explicit period column; detected when empty
	Dates      analysis.DateOptions
	Logger     *slog.Logger
}

// Row is one month of a canonical series. Metrics absent from the source are not present.
type Row struct {
	Date   time.Time
	Values map[string]analysis.Value
}

// Series is the canonical output of Map, sorted ascending by Date.
type Series struct {
	Document    Document
	Vocabulary  Vocabulary
	DateColumn  string
	Metrics     []string          // resolved metrics in schema order
	Resolution  map[string]string // metric -> source column label
	Synthesized []string          // metrics derived rather than read
	Rows        []Row
	Dropped     int // rows whose period could not be parsed
}

// Value returns the value of metric in row i.
func (s *Series) Value(i int, metric string) analysis.Value { return s.Rows[i].Values[metric] }

var dateValueRe = regexp.MustCompile(`\b(202\d|201\d)\b|ene|feb|mar|abr|may|jun|jul|ago|sep|set|oct|nov|dic`)

// Map resolves t to a canonical series for opt.Document.
func Map(t *analysis.Table, opt Options) (*Series, error) {
	if opt.Dates.SerialMax == 0 {
		opt.Dates = analysis.DefaultDateOptions()
	}
	log := opt.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dateIdx, err := findDateColumn(t, opt)
	if err != nil {
		return nil, err
	}
	vocab := SelectVocabulary(opt.Document, opt.SheetHint, t.Columns)
	s := &Series{
		Document:   opt.Document,
		Vocabulary: vocab,
		DateColumn: t.Columns[dateIdx],
		Resolution: map[string]string{},
	}
	log.Debug("vocabulary selected", "document", opt.Document.String(), "vocabulary", vocab.String(),
		"date_column", s.DateColumn)

	resolved := resolveColumns(t, vocab, dateIdx)
	values := map[string][]analysis.Value{}
	for metric, j := range resolved {
		s.Resolution[metric] = t.Columns[j]
		values[metric] = analysis.NormalizeNumbers(t.Column(j))
	}

	if vocab == VocabAltas {
		if _, ok := values["altas"]; !ok {
			mvd, okM := values["altas_montevideo"]
			inte, okI := values["altas_interior"]
			if okM && okI {
				values["altas"] = sumZones(mvd, inte)
				s.Synthesized = append(s.Synthesized, "altas")
				log.Info("altas synthesized from zone columns",
					"montevideo", s.Resolution["altas_montevideo"], "interior", s.Resolution["altas_interior"])
			}
		}
	}

	var missing []string
	for _, m := range Schema[opt.Document] {
		if _, ok := values[m]; ok {
			s.Metrics = append(s.Metrics, m)
		}
	}
	for _, m := range Required[opt.Document] {
		if _, ok := values[m]; !ok {
			missing = append(missing, m)
			log.Warn("metric not found", "document", opt.Document.String(), "metric", m)
		}
	}
	if len(s.Metrics) == 0 || len(missing) > 0 {
		return nil, &NoMetricsFoundError{Document: opt.Document, Vocabulary: vocab, Missing: missing, Columns: t.Columns}
	}

	months, ok := analysis.NormalizeMonths(t.Column(dateIdx), opt.Dates)
	for i := range t.Rows {
		if !ok[i] {
			s.Dropped++
			continue
		}
		row := Row{Date: months[i], Values: make(map[string]analysis.Value, len(s.Metrics))}
		for _, m := range s.Metrics {
			row.Values[m] = values[m][i]
		}
		s.Rows = append(s.Rows, row)
	}
	sort.SliceStable(s.Rows, func(a, b int) bool { return s.Rows[a].Date.Before(s.Rows[b].Date) })
	if s.Dropped > 0 {
		log.Info("rows without a readable period dropped", "dropped", s.Dropped, "kept", len(s.Rows))
	}
	return s, nil
}

// resolveColumns returns metric -> column index. Rules are applied in vocabulary order and
// each column serves at most one metric. The date column never serves a metric.
func resolveColumns(t *analysis.Table, vocab Vocabulary, dateIdx int) map[string]int {
	out := map[string]int{}
	used := map[int]bool{dateIdx: true}
	labels := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		labels[j] = strings.ToLower(strings.TrimSpace(c))
	}
	if target, ok := totalTarget[vocab]; ok {
		for j, l := range labels {
			if l == "total" && !used[j] {
				out[target] = j
				used[j] = true
				break
			}
		}
	}
	for _, r := range rules[vocab] {
		if _, done := out[r.metric]; done {
			continue
		}
	patterns:
		for _, p := range r.patterns {
			for j, l := range labels {
				if used[j] || analysis.IsUnnamed(t.Columns[j]) {
					continue
				}
				if p.match(l) {
					out[r.metric] = j
					used[j] = true
					break patterns
				}
			}
		}
	}
	return out
}

// sumZones adds two columns elementwise with nulls counted as zero.
func sumZones(a, b []analysis.Value) []analysis.Value {
	out := make([]analysis.Value, len(a))
	for i := range a {
		out[i] = analysis.Some(a[i].Float + b[i].Float)
	}
	return out
}

func findDateColumn(t *analysis.Table, opt Options) (int, error) {
	if want := strings.TrimSpace(opt.DateColumn); want != "" {
		for j, c := range t.Columns {
			if strings.EqualFold(strings.TrimSpace(c), want) {
				return j, nil
			}
		}
		return 0, &NoDateColumnError{Document: opt.Document, Wanted: want, Columns: t.Columns}
	}
	for j, c := range t.Columns {
		l := strings.ToLower(c)
		if strings.Contains(l, analysis.DateMarker) || strings.Contains(l, "mes") {
			return j, nil
		}
	}
	if t.Width() > 0 && dateLike(t.Column(0), opt.Dates) {
		return 0, nil
	}
	return 0, &NoDateColumnError{Document: opt.Document, Columns: t.Columns}
}

// dateLike reports whether more than 30% of col reads as a period.
func dateLike(col []analysis.Cell, opt analysis.DateOptions) bool {
	if len(col) == 0 {
		return false
	}
	hits := 0
	for _, c := range col {
		if _, ok := analysis.ParseSerialDate(c, opt); ok {
			hits++
			continue
		}
		if c.Kind == analysis.CellString && dateValueRe.MatchString(strings.ToLower(c.Text)) {
			hits++
		}
	}
	return float64(hits) > 0.3*float64(len(col))
}
