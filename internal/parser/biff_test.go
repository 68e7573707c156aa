package parser

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
	"github.com/KaramelBytes/bpsloom-cli/internal/parser/xlstest"
)

func TestRKValue(t *testing.T) {
	hi := func(f float64) uint32 { return uint32(math.Float64bits(f) >> 32) }
	neg := int32(-7)
	cases := []struct {
		rk   uint32
		want float64
	}{
		{100<<2 | 0x02, 100},
		{12345<<2 | 0x03, 123.45},
		{uint32(neg<<2) | 0x02, -7},
		{hi(1.5), 1.5},
		{hi(45139) | 0x01, 451.39},
	}
	for _, tc := range cases {
		if got := rkValue(tc.rk); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("rkValue(%#x) = %v, want %v", tc.rk, got, tc.want)
		}
	}
}

func TestParseSST_ContinueSwitchesWidth(t *testing.T) {
	var first bytes.Buffer
	first.Write(binary.LittleEndian.AppendUint32(nil, 2))
	first.Write(binary.LittleEndian.AppendUint32(nil, 2))
	first.Write(binary.LittleEndian.AppendUint16(nil, 6))
	first.WriteByte(0x00)
	first.WriteString("ene")
	var cont bytes.Buffer
	cont.WriteByte(0x01) // the rest of the string is UTF-16
	for _, r := range "-ñ3" {
		cont.Write(binary.LittleEndian.AppendUint16(nil, uint16(r)))
	}
	// the next string starts fresh inside the continue record
	cont.Write(binary.LittleEndian.AppendUint16(nil, 5))
	cont.WriteByte(0x00)
	cont.WriteString("Total")

	got := parseSST([][]byte{first.Bytes(), cont.Bytes()}, nil)
	if len(got) != 2 || got[0] != "ene-ñ3" || got[1] != "Total" {
		t.Fatalf("sst = %q", got)
	}
}

func TestOpenBIFF_RoundTrip(t *testing.T) {
	data := xlstest.Build(
		xlstest.Sheet{Name: "Recaudación", Rows: [][]any{
			{"Cuadro", nil, "Año 2023"},
			nil,
			{"Fecha", "Privados", "Públicos"},
			{44927, 1234.5, 1 << 30},
		}},
		xlstest.Sheet{Name: "Otra", Rows: [][]any{{"x"}}},
	)
	wb, err := openBIFF(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if names := wb.Sheets(); len(names) != 2 || names[0] != "Recaudación" || names[1] != "Otra" {
		t.Fatalf("sheets = %q", names)
	}
	grid, err := wb.Grid("Recaudación")
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if len(grid) != 4 {
		t.Fatalf("rows = %d, want 4", len(grid))
	}
	if grid[1] != nil {
		t.Fatalf("blank row should stay empty: %+v", grid[1])
	}
	if grid[2][2].Text != "Públicos" || grid[0][2].Text != "Año 2023" {
		t.Fatalf("strings = %+v / %+v", grid[2][2], grid[0][2])
	}
	row := grid[3]
	if row[0].Kind != analysis.CellNumber || row[0].Num != 44927 {
		t.Fatalf("rk cell = %+v", row[0])
	}
	if row[1].Num != 1234.5 || row[2].Num != 1<<30 {
		t.Fatalf("number cells = %+v %+v", row[1], row[2])
	}
}

func TestOpenBIFF_ForcedEncoding(t *testing.T) {
	// 0x80 is U+0080 as compressed Unicode but the euro sign in Windows-1252
	data := xlstest.Build(xlstest.Sheet{Name: "S", Rows: [][]any{{"Importe \u0080", "b"}}})
	wb, err := openBIFF(bytes.NewReader(data), charmap.Windows1252)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	grid, _ := wb.Grid("S")
	if grid[0][0].Text != "Importe €" {
		t.Fatalf("forced decode = %q", grid[0][0].Text)
	}

	plain, err := openBIFF(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	grid, _ = plain.Grid("S")
	if grid[0][0].Text != "Importe \u0080" {
		t.Fatalf("default decode = %q", grid[0][0].Text)
	}
}

func TestParseSST_ForcedEncodingAcrossContinue(t *testing.T) {
	var first bytes.Buffer
	first.Write(binary.LittleEndian.AppendUint32(nil, 1))
	first.Write(binary.LittleEndian.AppendUint32(nil, 1))
	first.Write(binary.LittleEndian.AppendUint16(nil, 4))
	first.WriteByte(0x00)
	first.Write([]byte{'A', 0xF1})
	cont := []byte{0x00, 'o', 0x80}

	got := parseSST([][]byte{first.Bytes(), cont}, charmap.Windows1252)
	if len(got) != 1 || got[0] != "Año€" {
		t.Fatalf("sst = %q", got)
	}
}

func TestOpenBIFF_RejectsNonCompound(t *testing.T) {
	if _, err := openBIFF(bytes.NewReader([]byte("not a compound file at all")), nil); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := parseBIFF([]byte{0x0A, 0x00, 0x00, 0x00}, nil); err == nil {
		t.Fatalf("expected BOF error")
	}
}

func TestBestHeaderRow(t *testing.T) {
	grid := [][]analysis.Cell{
		analysis.TextCells([]string{"Título"}),
		nil,
		analysis.TextCells([]string{"Fecha", "Privados", "Públicos"}),
		{analysis.Number(44927), analysis.Number(1), analysis.Number(2)},
	}
	if got := BestHeaderRow(grid, 30); got != 2 {
		t.Fatalf("BestHeaderRow = %d, want 2", got)
	}
	if got := BestHeaderRow(grid, 2); got != 0 {
		t.Fatalf("BestHeaderRow window 2 = %d, want 0", got)
	}
	if got := BestHeaderRow(nil, 30); got != -1 {
		t.Fatalf("BestHeaderRow(nil) = %d", got)
	}
}

type stubWorkbook struct {
	grids map[string][][]analysis.Cell
	names []string
}

func (w stubWorkbook) Sheets() []string { return w.names }

func (w stubWorkbook) Grid(name string) ([][]analysis.Cell, error) {
	g, ok := w.grids[name]
	if !ok {
		return nil, errors.New("corrupt sheet")
	}
	return g, nil
}

func (stubWorkbook) Close() error { return nil }

func TestReadLegacySheets_RecordsUnreadableSheet(t *testing.T) {
	wb := stubWorkbook{
		names: []string{"Rota", "Buena"},
		grids: map[string][][]analysis.Cell{"Buena": {
			analysis.TextCells([]string{"Fecha", "Altas"}),
			{analysis.Number(45139), analysis.Number(9800)},
			{analysis.Number(45170), analysis.Number(9950)},
		}},
	}
	r := NewReader(NewSource("altas.xls", []byte("x"), KindXLS), Options{})
	r.strategy = "legacy-manual"
	if err := readLegacySheets(context.Background(), wb, r); err != nil {
		t.Fatalf("readLegacySheets: %v", err)
	}
	if r.accepted == nil || r.accepted.Sheet != "Buena" {
		t.Fatalf("accepted = %+v", r.accepted)
	}
	at := r.Attempts()
	if len(at) != 1 || at[0].Detail != "sheet=Rota" || !strings.Contains(at[0].Err.Error(), "corrupt sheet") {
		t.Fatalf("attempts = %v", at)
	}
}
