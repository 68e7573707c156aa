package analysis

import (
	"strings"
	"testing"
)

func grid(rows ...[]string) [][]Cell {
	out := make([][]Cell, len(rows))
	for i, r := range rows {
		out[i] = TextCells(r)
	}
	return out
}

func TestFromGridPlaceholdersAndPadding(t *testing.T) {
	g := grid(
		[]string{"Título"},
		[]string{"Fecha", "", "Total"},
		[]string{"ene-23", "1", "2", "", ""},
		[]string{"feb-23"},
	)
	tbl, err := FromGrid(g, 1)
	if err != nil {
		t.Fatalf("FromGrid: %v", err)
	}
	if got := strings.Join(tbl.Columns, "|"); got != "Fecha|Unnamed: 1|Total" {
		t.Fatalf("columns = %q", got)
	}
	if len(tbl.Rows) != 2 || len(tbl.Rows[1]) != 3 {
		t.Fatalf("rows not padded: %+v", tbl.Rows)
	}
	if _, err := FromGrid(g, 9); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestUnnamedDetector(t *testing.T) {
	tbl := &Table{Columns: []string{"Unnamed: 0", "Unnamed: 1", "Unnamed: 2", "Fecha"}}
	if tbl.LooksUnnamed(0.9) {
		t.Fatalf("3/4 placeholders should pass a 0.9 threshold")
	}
	if !tbl.LooksUnnamed(0.6) {
		t.Fatalf("3/4 placeholders should trip a 0.6 threshold")
	}
	all := &Table{Columns: []string{"Unnamed: 0", " "}}
	if !all.LooksUnnamed(DefaultUnnamedThreshold) {
		t.Fatalf("all placeholders must trip the default threshold")
	}
}

func TestUsableAndFloor(t *testing.T) {
	one, _ := FromGrid(grid([]string{"Fecha", "Total"}, []string{"ene-23", "1"}), 0)
	if one.Usable(DefaultUnnamedThreshold) {
		t.Fatalf("a single data row is not usable")
	}
	if !one.MeetsFloor() {
		t.Fatalf("a single data row clears the floor")
	}
	narrow, _ := FromGrid(grid([]string{"Fecha"}, []string{"a"}, []string{"b"}), 0)
	if narrow.Usable(DefaultUnnamedThreshold) || narrow.MeetsFloor() {
		t.Fatalf("one column must never qualify")
	}
	if !(Score{Columns: 2, Rows: 9}).Less(Score{Columns: 3, Rows: 1}) {
		t.Fatalf("columns rank before rows")
	}
}

func TestClean(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Unnamed: 0", " Total ", "Unnamed: 2", "Vacía"},
		Rows: [][]Cell{
			{Text("ene-23"), Number(1), Text("nota"), {}},
			{Text("feb-23"), Number(2), {}, {}},
		},
	}
	got := tbl.Clean()
	if strings.Join(got.Columns, "|") != "Unnamed: 0|Total" {
		t.Fatalf("columns = %q", got.Columns)
	}
	if got.Rows[1][1].Num != 2 {
		t.Fatalf("row data misaligned: %+v", got.Rows[1])
	}
}

func TestPromoteHeader(t *testing.T) {
	rows := grid(
		[]string{"Banco de Previsión Social"},
		[]string{"Cuadro III.3"},
		[]string{"", "", "valores en pesos"},
		[]string{"  FECHA ", "Privados", "", "Públicos"},
		[]string{"ene-23", "10", "", "20"},
		[]string{"feb-23", "11", "", "21"},
	)
	tbl, err := FromGrid(append([][]Cell{nil}, rows...), 0)
	if err != nil {
		t.Fatalf("FromGrid: %v", err)
	}
	if !tbl.LooksUnnamed(DefaultUnnamedThreshold) {
		t.Fatalf("blank header should look unnamed")
	}
	p := PromoteHeader(tbl, DefaultPromoteMaxScan)
	if p == nil {
		t.Fatalf("expected promotion")
	}
	if got := strings.Join(p.Columns, "|"); got != "FECHA|Privados|Públicos" {
		t.Fatalf("columns = %q", got)
	}
	if p.HeaderRow != 4 {
		t.Fatalf("header row = %d, want 4", p.HeaderRow)
	}
	if len(p.Rows) != 2 || p.Rows[0][0].Text != "ene-23" {
		t.Fatalf("rows above the marker must be dropped: %+v", p.Rows)
	}
}

func TestPromoteHeaderNoMarker(t *testing.T) {
	tbl, _ := FromGrid(grid([]string{"", ""}, []string{"a", "b"}, []string{"Fecha", "x"}), 0)
	if p := PromoteHeader(tbl, 1); p != nil {
		t.Fatalf("marker outside the scan window must not promote: %v", p.Columns)
	}
	if p := PromoteHeader(nil, 5); p != nil {
		t.Fatalf("nil table")
	}
	if tbl.Columns[0] != "Unnamed: 0" {
		t.Fatalf("original table modified: %v", tbl.Columns)
	}
}

func TestPromoteHeaderEmptyLabels(t *testing.T) {
	tbl, _ := FromGrid(grid([]string{"", ""}, []string{"Fecha", "", "x"}, []string{"ene-23", "5", "6"}), 0)
	p := PromoteHeader(tbl, 5)
	if p == nil || strings.Join(p.Columns, "|") != "Fecha|col_1|x" {
		t.Fatalf("promoted = %+v", p)
	}
}
