package parser

import (
	"context"
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
)

// OpenWorkbook opens a spreadsheet source with the backend matching its kind. Modern
// workbooks fall back to the raw OOXML reader when excelize refuses them.
func OpenWorkbook(src *Source) (Workbook, error) {
	switch src.Kind {
	case KindXLSX:
		wb, err := openExcelize(src.Rewind())
		if err == nil {
			return wb, nil
		}
		raw, rawErr := openRawOOXML(src.ReaderAt(), int64(src.Len()))
		if rawErr != nil {
			return nil, fmt.Errorf("%v; raw reader: %w", err, rawErr)
		}
		return raw, nil
	case KindXLS:
		return openBIFF(src.ReaderAt(), nil)
	}
	return nil, fmt.Errorf("%s is not a workbook", src.Kind)
}

// nativeStrategy reads every selected sheet at each candidate header row.
type nativeStrategy struct{}

func (nativeStrategy) Name() string { return "native" }

func (nativeStrategy) Read(ctx context.Context, src *Source, r *Reader) error {
	wb, err := OpenWorkbook(src)
	if err != nil {
		return err
	}
	defer wb.Close()
	return readWorkbook(ctx, wb, r)
}

func readWorkbook(ctx context.Context, wb Workbook, r *Reader) error {
	sheets, err := SelectSheets(wb.Sheets(), r.opt.Sheet)
	if err != nil {
		return err
	}
	for _, name := range sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		grid, err := wb.Grid(name)
		if err != nil {
			r.fail("sheet="+name, err)
			continue
		}
		for _, h := range r.opt.headerCandidates() {
			detail := fmt.Sprintf("sheet=%s header=%d", name, h)
			t, err := analysis.FromGrid(grid, h)
			if err != nil {
				r.fail(detail, err)
				continue
			}
			t.Sheet = name
			if r.offer(t, detail) {
				return nil
			}
		}
	}
	return errNotUsable
}

// legacyScanRows bounds the header search of the legacy manual reader.
const legacyScanRows = 30

// legacyStrategy re-reads a legacy workbook assuming Windows-1252 text and picks the header
// row by scoring the first rows.
type legacyStrategy struct{}

func (legacyStrategy) Name() string { return "legacy-manual" }

func (legacyStrategy) Read(ctx context.Context, src *Source, r *Reader) error {
	if src.Kind != KindXLS {
		return errSkipped
	}
	wb, err := openBIFF(src.ReaderAt(), charmap.Windows1252)
	if err != nil {
		return err
	}
	return readLegacySheets(ctx, wb, r)
}

// readLegacySheets offers one table per selected sheet, headed at its best-scored row.
func readLegacySheets(ctx context.Context, wb Workbook, r *Reader) error {
	sheets, err := SelectSheets(wb.Sheets(), r.opt.Sheet)
	if err != nil {
		return err
	}
	for _, name := range sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		grid, err := wb.Grid(name)
		if err != nil {
			r.fail("sheet="+name, err)
			continue
		}
		h := BestHeaderRow(grid, legacyScanRows)
		if h < 0 {
			r.fail("sheet="+name, fmt.Errorf("no header candidate in first %d rows", legacyScanRows))
			continue
		}
		t, err := analysis.FromGrid(grid, h)
		if err != nil {
			r.fail("sheet="+name, err)
			continue
		}
		t.Sheet = name
		if r.offer(t, fmt.Sprintf("sheet=%s header=%d", name, h)) {
			return nil
		}
	}
	return errNotUsable
}

// BestHeaderRow scores each of the first limit rows by non-empty plus string-typed cells
// and returns the highest (earliest on ties), or -1 for an empty grid.
func BestHeaderRow(grid [][]analysis.Cell, limit int) int {
	best, bestScore := -1, 0
	for i := 0; i < len(grid) && i < limit; i++ {
		score := 0
		for _, c := range grid[i] {
			if c.IsEmpty() {
				continue
			}
			score++
			if c.Kind == analysis.CellString {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}
