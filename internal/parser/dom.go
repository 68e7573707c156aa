package parser

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
)

// domStrategy walks the parsed node tree by hand and decides between the first two rows for
// the header.
type domStrategy struct{}

func (domStrategy) Name() string { return "dom" }

func (domStrategy) Read(_ context.Context, src *Source, r *Reader) error {
	root, err := html.Parse(strings.NewReader(src.Text()))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	grids := domTables(root)
	if len(grids) == 0 {
		return fmt.Errorf("no table rows in document")
	}
	sort.SliceStable(grids, func(i, j int) bool { return gridWidth(grids[i]) > gridWidth(grids[j]) })
	for i, grid := range grids {
		h := DOMHeaderRow(grid)
		t, err := analysis.FromGrid(grid, h)
		if err != nil {
			r.fail(fmt.Sprintf("rows[%d]", i), err)
			continue
		}
		t.Sheet = fmt.Sprintf("rows[%d]", i)
		if r.offer(t, t.Sheet) {
			return nil
		}
	}
	return errNotUsable
}

// domTables groups <tr> rows by their closest enclosing table.
func domTables(root *html.Node) [][][]analysis.Cell {
	groups := map[*html.Node]int{}
	var out [][][]analysis.Cell
	var walk func(n, table *html.Node)
	walk = func(n, table *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Table:
				table = n
			case atom.Tr:
				row := domRow(n)
				if len(row) > 0 {
					idx, ok := groups[table]
					if !ok {
						idx = len(out)
						groups[table] = idx
						out = append(out, nil)
					}
					out[idx] = append(out[idx], row)
				}
				return
			case atom.Script, atom.Style:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, table)
		}
	}
	walk(root, nil)
	return out
}

func domRow(tr *html.Node) []analysis.Cell {
	var row []analysis.Cell
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			row = append(row, analysis.Text(cellText(nodeText(c))))
		}
	}
	return row
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// DOMHeaderRow picks row 0 or row 1 as header: the one with fewer digit-bearing cells.
func DOMHeaderRow(grid [][]analysis.Cell) int {
	if len(grid) < 2 {
		return 0
	}
	if digitCells(grid[1]) < digitCells(grid[0]) {
		return 1
	}
	return 0
}

func digitCells(row []analysis.Cell) int {
	n := 0
	for _, c := range row {
		if strings.IndexFunc(c.String(), unicode.IsDigit) >= 0 {
			n++
		}
	}
	return n
}

func gridWidth(grid [][]analysis.Cell) int {
	w := 0
	for _, r := range grid {
		w = max(w, len(r))
	}
	return w
}
