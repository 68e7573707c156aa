package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultUnnamedThreshold is the fraction of placeholder column labels at or above which a
// table header is considered unusable. Stricter document types may lower it (0.6 is also seen).
const DefaultUnnamedThreshold = 0.9

// DefaultPromoteMaxScan bounds how many data rows header promotion inspects.
const DefaultPromoteMaxScan = 20

// DateMarker is the header token that identifies the date column in the source documents.
const DateMarker = "fecha"

var unnamedRe = regexp.MustCompile(`^Unnamed: \d+$`)

// Table is a rectangular candidate table: ordered column labels plus rows of raw cells.
// Labels need not be unique.
type Table struct {
	Columns []string
	Rows    [][]Cell

	// Provenance, filled by the reader.
	Sheet     string
	HeaderRow int
	Strategy  string
}

// Score is the usability score used to rank candidates: more columns first, then more
// non-empty data rows.
type Score struct {
	Columns int
	Rows    int
}

// Less reports whether s ranks below o.
func (s Score) Less(o Score) bool {
	if s.Columns != o.Columns {
		return s.Columns < o.Columns
	}
	return s.Rows < o.Rows
}

func (s Score) String() string { return fmt.Sprintf("cols=%d rows=%d", s.Columns, s.Rows) }

// UnnamedLabel is the placeholder given to a column whose header cell is empty.
func UnnamedLabel(i int) string { return fmt.Sprintf("Unnamed: %d", i) }

// IsUnnamed reports whether a column label is empty or a generated placeholder.
func IsUnnamed(label string) bool {
	l := strings.TrimSpace(label)
	return l == "" || unnamedRe.MatchString(l) || strings.HasPrefix(l, "Unnamed:")
}

// FromGrid builds a table from a raw grid using row headerRow as the labels and every
// following row as data. Trailing columns that are empty in every row are dropped and short
// rows are padded.
func FromGrid(grid [][]Cell, headerRow int) (*Table, error) {
	if headerRow < 0 || headerRow >= len(grid) {
		return nil, fmt.Errorf("header row %d out of range (%d rows)", headerRow, len(grid))
	}
	width := 0
	for _, r := range grid[headerRow:] {
		for j := len(r) - 1; j >= 0; j-- {
			if !r[j].IsEmpty() {
				if j+1 > width {
					width = j + 1
				}
				break
			}
		}
	}
	if width == 0 {
		return nil, fmt.Errorf("header row %d: no values at or below it", headerRow)
	}
	t := &Table{Columns: make([]string, width), HeaderRow: headerRow}
	hdr := grid[headerRow]
	for j := 0; j < width; j++ {
		label := ""
		if j < len(hdr) {
			label = strings.TrimSpace(hdr[j].String())
		}
		if label == "" {
			label = UnnamedLabel(j)
		}
		t.Columns[j] = label
	}
	for _, r := range grid[headerRow+1:] {
		t.Rows = append(t.Rows, padRow(r, width))
	}
	return t, nil
}

func padRow(r []Cell, width int) []Cell {
	out := make([]Cell, width)
	copy(out, r)
	return out
}

// Width returns the column count.
func (t *Table) Width() int { return len(t.Columns) }

// NonEmptyRows counts data rows with at least one value.
func (t *Table) NonEmptyRows() int {
	n := 0
	for _, r := range t.Rows {
		if !rowEmpty(r) {
			n++
		}
	}
	return n
}

func rowEmpty(r []Cell) bool {
	for _, c := range r {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// Score returns the table's usability score.
func (t *Table) Score() Score {
	return Score{Columns: t.Width(), Rows: t.NonEmptyRows()}
}

// LooksUnnamed reports whether the fraction of placeholder labels reaches threshold.
func (t *Table) LooksUnnamed(threshold float64) bool {
	if len(t.Columns) == 0 {
		return true
	}
	cnt := 0
	for _, c := range t.Columns {
		if IsUnnamed(c) {
			cnt++
		}
	}
	return float64(cnt)/float64(len(t.Columns)) >= threshold
}

// Usable is the strict acceptance test: at least two columns, more than one non-empty data
// row and a header that is not mostly placeholders.
func (t *Table) Usable(threshold float64) bool {
	return t != nil && t.Width() >= 2 && t.NonEmptyRows() > 1 && !t.LooksUnnamed(threshold)
}

// MeetsFloor is the weak acceptance test used for the best-scored fallback candidate.
func (t *Table) MeetsFloor() bool {
	return t != nil && t.Width() >= 2 && t.NonEmptyRows() >= 1
}

// Column returns the cells of column j.
func (t *Table) Column(j int) []Cell {
	out := make([]Cell, len(t.Rows))
	for i, r := range t.Rows {
		if j < len(r) {
			out[i] = r[j]
		}
	}
	return out
}

// ColumnEmpty reports whether every value in column j is empty.
func (t *Table) ColumnEmpty(j int) bool {
	for _, r := range t.Rows {
		if j < len(r) && !r[j].IsEmpty() {
			return false
		}
	}
	return true
}

// Keep returns a copy of the table restricted to the given column indexes, in order.
func (t *Table) Keep(idx []int) *Table {
	out := &Table{Sheet: t.Sheet, HeaderRow: t.HeaderRow, Strategy: t.Strategy}
	for _, j := range idx {
		out.Columns = append(out.Columns, t.Columns[j])
	}
	for _, r := range t.Rows {
		nr := make([]Cell, len(idx))
		for k, j := range idx {
			if j < len(r) {
				nr[k] = r[j]
			}
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// DropEmptyColumns removes columns whose every value is empty.
func (t *Table) DropEmptyColumns() *Table {
	var keep []int
	for j := range t.Columns {
		if !t.ColumnEmpty(j) {
			keep = append(keep, j)
		}
	}
	return t.Keep(keep)
}

// Clean trims labels and drops all-empty columns plus placeholder-labelled columns. The
// first column is kept even when unlabelled since it often carries the date axis.
func (t *Table) Clean() *Table {
	var keep []int
	for j, c := range t.Columns {
		if t.ColumnEmpty(j) {
			continue
		}
		if j > 0 && IsUnnamed(c) {
			continue
		}
		keep = append(keep, j)
	}
	out := t.Keep(keep)
	for j, c := range out.Columns {
		out.Columns[j] = strings.TrimSpace(c)
	}
	return out
}

// PromoteHeader looks through the first maxScan data rows for one holding the date marker
// (trimmed, case-insensitive) and re-derives the header from it. Rows above the marker row
// and the row itself leave the data; all-empty columns are dropped. It returns nil when no
// marker row is found.
func PromoteHeader(t *Table, maxScan int) *Table {
	if t == nil {
		return nil
	}
	if maxScan <= 0 {
		maxScan = DefaultPromoteMaxScan
	}
	limit := min(maxScan, len(t.Rows))
	for i := 0; i < limit; i++ {
		row := t.Rows[i]
		found := false
		for _, c := range row {
			if strings.EqualFold(strings.TrimSpace(c.String()), DateMarker) {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		out := &Table{
			Columns:   make([]string, t.Width()),
			Sheet:     t.Sheet,
			HeaderRow: t.HeaderRow + 1 + i,
			Strategy:  t.Strategy,
		}
		for j := range out.Columns {
			label := ""
			if j < len(row) {
				label = strings.TrimSpace(row[j].String())
			}
			if label == "" {
				label = fmt.Sprintf("col_%d", j)
			}
			out.Columns[j] = label
		}
		for _, r := range t.Rows[i+1:] {
			out.Rows = append(out.Rows, padRow(r, len(out.Columns)))
		}
		return out.DropEmptyColumns()
	}
	return nil
}
