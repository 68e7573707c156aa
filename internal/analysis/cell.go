package analysis

import (
	"strconv"
	"strings"
)

// CellKind classifies a raw cell value as it came out of the source document.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
	CellBool
)

// Cell is a raw table value: text, number, boolean or empty.
type Cell struct {
	Kind CellKind
	Text string
	Num  float64
}

// Text builds a string cell. Whitespace-only input becomes an empty cell.
func Text(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{}
	}
	return Cell{Kind: CellString, Text: s}
}

// Number builds a numeric cell.
func Number(f float64) Cell {
	return Cell{Kind: CellNumber, Num: f}
}

// Bool builds a boolean cell.
func Bool(b bool) Cell {
	if b {
		return Cell{Kind: CellBool, Num: 1}
	}
	return Cell{Kind: CellBool}
}

// IsEmpty reports whether the cell carries no value.
func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// String renders the cell the way it would appear in a delimited export.
func (c Cell) String() string {
	switch c.Kind {
	case CellString:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case CellBool:
		if c.Num != 0 {
			return "TRUE"
		}
		return "FALSE"
	default:
		return ""
	}
}

// TextCells converts a row of strings into cells.
func TextCells(vals []string) []Cell {
	out := make([]Cell, len(vals))
	for i, v := range vals {
		out[i] = Text(v)
	}
	return out
}
