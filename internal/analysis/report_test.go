package analysis

import (
	"strings"
	"testing"
)

func TestSummarizeMarkdown(t *testing.T) {
	tbl := &Table{
		Columns:   []string{"Fecha", "Total", "Nota"},
		Sheet:     "Altas",
		Strategy:  "native",
		HeaderRow: 7,
		Rows: [][]Cell{
			{Number(44927), Text("1.234,5"), Text("provisorio")},
			{Number(44958), Number(1300), {}},
			{Text("mar-23"), Number(1250), Text("a|b")},
		},
	}
	rep := Summarize("altas.xls", tbl, DefaultSummaryOptions())
	if rep.Cols[0].Kind != "datetime" || rep.Cols[1].Kind != "numeric" || rep.Cols[2].Kind != "text" {
		t.Fatalf("kinds = %s %s %s", rep.Cols[0].Kind, rep.Cols[1].Kind, rep.Cols[2].Kind)
	}
	if rep.Cols[1].Min != 1234.5 || rep.Cols[1].Max != 1300 {
		t.Fatalf("numeric stats = %+v", rep.Cols[1])
	}
	md := rep.Markdown()
	for _, want := range []string{
		"[TABLE SUMMARY]",
		"Source: altas.xls",
		"Strategy: native (header row 7)",
		"- Fecha: datetime (non-null 3, missing 0.0%); 2023-01-01 to 2023-03-01",
		"- Nota: text (non-null 2, missing 33.3%)",
		"[HEAD AND SAMPLE ROWS]",
		"a/b",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestSummarizeWarnsOnPlaceholders(t *testing.T) {
	tbl := &Table{Columns: []string{"Unnamed: 0", "Unnamed: 1"}, Rows: [][]Cell{{Text("a"), Text("b")}}}
	md := Summarize("", tbl, SummaryOptions{}).Markdown()
	if !strings.Contains(md, "[NOTES]") || !strings.Contains(md, "unnamed placeholders") {
		t.Fatalf("expected notes:\n%s", md)
	}
}
