package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
)

type excelWorkbook struct {
	f *excelize.File
}

func openExcelize(r io.Reader) (*excelWorkbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	return &excelWorkbook{f: f}, nil
}

func (w *excelWorkbook) Sheets() []string { return w.f.GetSheetList() }

func (w *excelWorkbook) Close() error { return w.f.Close() }

// Grid reads raw (unformatted) values so dates stay day serials and numbers keep full
// precision.
func (w *excelWorkbook) Grid(sheet string) ([][]analysis.Cell, error) {
	rows, err := w.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	grid := make([][]analysis.Cell, len(rows))
	for i, row := range rows {
		cells := make([]analysis.Cell, len(row))
		for j, v := range row {
			if strings.TrimSpace(v) == "" {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				cells[j] = analysis.Text(v)
				continue
			}
			typ, _ := w.f.GetCellType(sheet, ref)
			cells[j] = classifyRaw(v, typ)
		}
		grid[i] = cells
	}
	return grid, nil
}

func classifyRaw(v string, typ excelize.CellType) analysis.Cell {
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return analysis.Text(v)
	case excelize.CellTypeBool:
		return analysis.Bool(v == "1" || strings.EqualFold(v, "true"))
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return analysis.Number(f)
	}
	return analysis.Text(v)
}
