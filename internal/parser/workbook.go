package parser

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
)

// Workbook is a read-only view over a spreadsheet: sheet names in workbook order and the
// raw cell grid of each sheet.
type Workbook interface {
	Sheets() []string
	Grid(sheet string) ([][]analysis.Cell, error)
	Close() error
}

// sheetKeywords rank sheet names that usually hold the series; earlier keywords win.
var sheetKeywords = []string{"altas", "emision", "promedio", "recaudacion", "cuadro", "serie", "datos"}

// foldName lowercases s and strips accents so "Emisión" matches "emision".
func foldName(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(strings.TrimSpace(s))) {
		if r >= 0x300 && r <= 0x36f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sheetRank(name string) int {
	n := foldName(name)
	for i, kw := range sheetKeywords {
		if strings.Contains(n, kw) {
			return i
		}
	}
	return len(sheetKeywords)
}

// PrioritizeSheets orders sheets so that names carrying a known section keyword come first.
// The order is otherwise stable.
func PrioritizeSheets(sheets []string) []string {
	out := append([]string(nil), sheets...)
	sort.SliceStable(out, func(i, j int) bool { return sheetRank(out[i]) < sheetRank(out[j]) })
	return out
}

// SelectSheets resolves sel against the workbook sheet list.
func SelectSheets(sheets []string, sel SheetSelector) ([]string, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	switch {
	case sel.ByIdx:
		if sel.Index < 0 || sel.Index >= len(sheets) {
			return nil, fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", sel.Index, len(sheets))
		}
		return []string{sheets[sel.Index]}, nil
	case sel.Name != "":
		want := foldName(sel.Name)
		for _, s := range sheets {
			if foldName(s) == want {
				return []string{s}, nil
			}
		}
		return nil, fmt.Errorf("sheet '%s' not found.\nAvailable sheets: %s", sel.Name, strings.Join(sheets, ", "))
	}
	return PrioritizeSheets(sheets), nil
}
