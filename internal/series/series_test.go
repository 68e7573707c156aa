package series

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
	"github.com/KaramelBytes/bpsloom-cli/internal/mapping"
	"github.com/KaramelBytes/bpsloom-cli/internal/parser"
	"github.com/KaramelBytes/bpsloom-cli/internal/parser/xlstest"
)

func emisionWorkbook() []byte {
	rows := [][]any{
		{"Banco de Previsión Social"},
		{"III.3 Seguro de desempleo"},
		{},
		{"Cuadro 2 - Emisión mensual"},
		{},
		{},
		{nil, "Personas", nil, nil},
		{"Fecha", "Beneficiarios", "Altas", "Bajas"},
		{45231, 41250, 9800, 9100},
		{45139, 40120, "s/d", 8700},
		{45170, "40.870,00", 9950, 9300},
		{"Fuente: BPS - ATyR"},
	}
	return xlstest.Build(
		xlstest.Sheet{Name: "Notas", Rows: [][]any{{"Notas metodológicas"}, {"ver anexo"}}},
		xlstest.Sheet{Name: "Emisión", Rows: rows},
	)
}

func TestAssemble_LegacyWorkbookEndToEnd(t *testing.T) {
	res, err := Assemble(context.Background(), Request{
		Document:  mapping.Unemployment,
		URL:       "https://www.bps.gub.uy/bps/file/21703/1/iii_3_seguro_de_desempleo.xls",
		Data:      emisionWorkbook(),
		SheetHint: "Emisión",
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Kind != parser.KindXLS || res.Strategy != "native" || res.Sheet != "Emisión" || res.HeaderRow != 7 {
		t.Fatalf("provenance = %s/%s/%s/%d", res.Kind, res.Strategy, res.Sheet, res.HeaderRow)
	}
	s := res.Series
	if s.Vocabulary != mapping.VocabEmision {
		t.Fatalf("vocabulary = %v", s.Vocabulary)
	}
	if len(s.Rows) != 3 || s.Dropped != 1 {
		t.Fatalf("rows = %d dropped = %d", len(s.Rows), s.Dropped)
	}
	want := []time.Time{
		time.Date(2023, time.August, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, time.September, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC),
	}
	nonNull := 0
	for i, r := range s.Rows {
		if !r.Date.Equal(want[i]) {
			t.Errorf("row %d date = %s, want %s", i, r.Date.Format("2006-01"), want[i].Format("2006-01"))
		}
		if r.Values["beneficiarios"].Valid {
			nonNull++
		}
	}
	if nonNull == 0 {
		t.Fatal("no beneficiarios values")
	}
	if v := s.Rows[1].Values["beneficiarios"]; v.Float != 40870 {
		t.Errorf("locale retry: beneficiarios = %v, want 40870", v)
	}
	if v := s.Rows[0].Values["altas"]; v.Valid {
		t.Errorf("s/d should be null, got %v", v)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, s); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "fecha,beneficiarios,altas,bajas" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "2023-08-01,40120,,8700" {
		t.Errorf("first row = %q", lines[1])
	}
}

func TestAssemble_SheetNameIsDefaultHint(t *testing.T) {
	res, err := Assemble(context.Background(), Request{
		Document: mapping.Unemployment,
		URL:      "file.xls",
		Data:     emisionWorkbook(),
		Sheet:    parser.SheetByName("Emisión"),
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Series.Vocabulary != mapping.VocabEmision {
		t.Fatalf("vocabulary = %v, want emision", res.Series.Vocabulary)
	}
}

func TestAssemble_CollectionsMissingMetric(t *testing.T) {
	csv := "Recaudación mensual\n\n\n\n\n\nFecha;Privados;Total\nene-23;1.200;1.500\nfeb-23;1.300;1.600\n"
	res, err := Assemble(context.Background(), Request{
		Document: mapping.Collections,
		URL:      "recaudacion.csv",
		Data:     []byte(csv),
	})
	if !errors.Is(err, mapping.ErrNoMetricsFound) {
		t.Fatalf("err = %v, want ErrNoMetricsFound", err)
	}
	if res == nil || res.Strategy != "delimited" {
		t.Fatalf("diagnostics missing: %+v", res)
	}
}

func TestAssemble_Unreadable(t *testing.T) {
	_, err := Assemble(context.Background(), Request{
		Document: mapping.Unemployment,
		URL:      "x.xls",
		Data:     []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0, 0, 0, 0},
	})
	if !errors.Is(err, parser.ErrUnreadableFormat) {
		t.Fatalf("err = %v, want ErrUnreadableFormat", err)
	}
}

func TestWriteFile_RefusesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")
	if err := WriteFile(path, &mapping.Series{Metrics: []string{"altas"}}); err == nil {
		t.Fatal("expected error for empty series")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file should not exist: %v", err)
	}
}

func TestAssemble_ZoneColumnsPickAltasForAnyFormat(t *testing.T) {
	html := `<html><body><table>
<tr><th>Fecha</th><th>Montevideo</th><th>Interior</th></tr>
<tr><td>2023-08</td><td>4000</td><td>3000</td></tr>
<tr><td>2023-09</td><td>4100</td><td>3100</td></tr>
</table></body></html>`
	rows := [][]any{{"Altas por zona"}, {}, {}, {}, {}, {}, {},
		{"Fecha", "Montevideo", "Interior"},
		{45139, 4000, 3000},
		{45170, 4100, 3100},
	}
	cases := []struct {
		name string
		url  string
		data []byte
	}{
		{"html", "altas.html", []byte(html)},
		{"neutral sheet name", "altas.xls", xlstest.Build(xlstest.Sheet{Name: "Hoja1", Rows: rows})},
		{"csv", "altas.csv", []byte("Fecha;Montevideo;Interior\n2023-08;4000;3000\n2023-09;4100;3100\n")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Assemble(context.Background(), Request{Document: mapping.Unemployment, URL: tc.url, Data: tc.data})
			if err != nil {
				t.Fatalf("Assemble: %v", err)
			}
			s := res.Series
			if s.Vocabulary != mapping.VocabAltas {
				t.Fatalf("vocabulary = %v, want altas", s.Vocabulary)
			}
			if len(s.Synthesized) != 1 || s.Synthesized[0] != "altas" {
				t.Fatalf("synthesized = %v", s.Synthesized)
			}
			if len(s.Rows) != 2 || s.Rows[0].Values["altas"].Float != 7000 {
				t.Fatalf("rows = %+v", s.Rows)
			}
		})
	}
}

func TestPromoteWeak_KeepsTableWhenPromotionTooNarrow(t *testing.T) {
	weak := &analysis.Table{
		Columns: []string{"Unnamed: 0", "Unnamed: 1"},
		Rows: [][]analysis.Cell{
			{analysis.Text("Fecha"), {}},
			{analysis.Text("2023-08"), {}},
		},
	}
	if got := promoteWeak(weak, 0.9, 20); got != weak {
		t.Fatalf("one-column promotion adopted: %+v", got.Columns)
	}

	wide := &analysis.Table{
		Columns: []string{"Unnamed: 0", "Unnamed: 1"},
		Rows: [][]analysis.Cell{
			{analysis.Text("Fecha"), analysis.Text("Altas")},
			{analysis.Text("2023-08"), analysis.Number(9800)},
		},
	}
	got := promoteWeak(wide, 0.9, 20)
	if got == wide || got.Columns[0] != "Fecha" || got.Columns[1] != "Altas" || got.Width() != 2 {
		t.Fatalf("promotion not adopted: %+v", got.Columns)
	}
}
