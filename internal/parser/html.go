package parser

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
)

// maxColspan caps colspan replication against malformed markup.
const maxColspan = 50

var dateHeaderRe = regexp.MustCompile(`(?i)fecha|\bmes\b|\baño\b|per[ií]odo|\b(ene|feb|mar|abr|may|jun|jul|ago|sep|set|oct|nov|dic)\b|\b(19|20)\d{2}\b`)

var spaceRe = regexp.MustCompile(`\s+`)

func cellText(s string) string { return strings.TrimSpace(spaceRe.ReplaceAllString(s, " ")) }

// htmlStrategy parses every <table> with goquery. Tables whose header mentions a date or
// month are tried first, then the rest from widest to narrowest.
type htmlStrategy struct{}

func (htmlStrategy) Name() string { return "html" }

func (htmlStrategy) Read(_ context.Context, src *Source, r *Reader) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src.Text()))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style").Remove()
	var cands []*analysis.Table
	doc.Find("table").Each(func(i int, s *goquery.Selection) {
		grid := selectionGrid(s)
		h := firstHeaderRow(grid)
		if h < 0 {
			return
		}
		t, err := analysis.FromGrid(grid, h)
		if err != nil {
			return
		}
		t.Sheet = fmt.Sprintf("table[%d]", i)
		cands = append(cands, t)
	})
	if len(cands) == 0 {
		return fmt.Errorf("no <table> with a header row")
	}
	for _, t := range RankHTMLTables(cands) {
		if r.offer(t, t.Sheet) {
			return nil
		}
	}
	return errNotUsable
}

// RankHTMLTables orders tables: date-headed first, then by width descending. The sort is
// stable so document order breaks ties.
func RankHTMLTables(ts []*analysis.Table) []*analysis.Table {
	out := append([]*analysis.Table(nil), ts...)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := hasDateHeader(out[i]), hasDateHeader(out[j])
		if di != dj {
			return di
		}
		return out[i].Width() > out[j].Width()
	})
	return out
}

func hasDateHeader(t *analysis.Table) bool {
	for _, c := range t.Columns {
		if !analysis.IsUnnamed(c) && dateHeaderRe.MatchString(c) {
			return true
		}
	}
	return false
}

func selectionGrid(table *goquery.Selection) [][]analysis.Cell {
	var grid [][]analysis.Cell
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// skip rows belonging to a nested table
		if tr.ParentsFiltered("table").First().Get(0) != table.Get(0) {
			return
		}
		var row []analysis.Cell
		tr.ChildrenFiltered("th, td").Each(func(_ int, td *goquery.Selection) {
			span := 1
			if v, ok := td.Attr("colspan"); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 1 {
					span = min(n, maxColspan)
				}
			}
			c := analysis.Text(cellText(td.Text()))
			for k := 0; k < span; k++ {
				row = append(row, c)
			}
		})
		grid = append(grid, row)
	})
	return grid
}

// firstHeaderRow returns the first row with at least two non-empty cells.
func firstHeaderRow(grid [][]analysis.Cell) int {
	for i, row := range grid {
		n := 0
		for _, c := range row {
			if !c.IsEmpty() {
				n++
			}
		}
		if n >= 2 {
			return i
		}
	}
	return -1
}
