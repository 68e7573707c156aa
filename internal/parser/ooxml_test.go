package parser

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
)

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"styles.xml", "xl/styles.xml"},
	}
	for _, tt := range tests {
		if got := normalizeRelPath(tt.input); got != tt.expected {
			t.Errorf("normalizeRelPath(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestColIndexFromRef(t *testing.T) {
	for ref, want := range map[string]int{"A1": 0, "C12": 2, "AA3": 26, "": -1, "7": -1} {
		if got := colIndexFromRef(ref); got != want {
			t.Errorf("colIndexFromRef(%q) = %d, want %d", ref, got, want)
		}
	}
}

func TestRawOOXMLMatchesExcelize(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "Fecha")
	_ = f.SetCellValue("Sheet1", "C1", "Total")
	_ = f.SetCellValue("Sheet1", "A3", 45139)
	_ = f.SetCellValue("Sheet1", "C3", 12.5)
	_ = f.SetCellValue("Sheet1", "B3", true)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = f.Close()

	raw, err := openRawOOXML(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	if s := raw.Sheets(); len(s) != 1 || s[0] != "Sheet1" {
		t.Fatalf("sheets = %v", s)
	}
	grid, err := raw.Grid("Sheet1")
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if len(grid) != 3 || len(grid[1]) != 0 {
		t.Fatalf("expected a gap row, got %d rows", len(grid))
	}
	if grid[0][0].Text != "Fecha" || grid[0][2].Text != "Total" || !grid[0][1].IsEmpty() {
		t.Fatalf("header = %+v", grid[0])
	}
	if grid[2][0].Kind != analysis.CellNumber || grid[2][0].Num != 45139 || grid[2][2].Num != 12.5 {
		t.Fatalf("numbers = %+v", grid[2])
	}
	if grid[2][1].Kind != analysis.CellBool {
		t.Fatalf("bool = %+v", grid[2][1])
	}

	ex, err := openExcelize(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open excelize: %v", err)
	}
	defer ex.Close()
	eg, err := ex.Grid("Sheet1")
	if err != nil {
		t.Fatalf("excelize grid: %v", err)
	}
	if eg[2][0] != grid[2][0] || eg[0][0] != grid[0][0] || eg[2][1] != grid[2][1] {
		t.Fatalf("backends disagree: %+v vs %+v", eg, grid)
	}
}
