package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
)

// rawWorkbook reads the OOXML parts directly. It is the fallback when excelize rejects a
// file, which happens with some generator quirks (leading slashes in relationship targets,
// missing content types).
type rawWorkbook struct {
	zr     *zip.Reader
	sheets []wbSheet
	rels   map[string]string
	shared []string
}

type wbSheet struct {
	Name    string
	SheetID int
	RID     string
}

func openRawOOXML(ra io.ReaderAt, size int64) (*rawWorkbook, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	w := &rawWorkbook{zr: zr}
	w.sheets = parseWorkbook(readZipFile(zr, "xl/workbook.xml"))
	if len(w.sheets) == 0 {
		return nil, fmt.Errorf("open xlsx: xl/workbook.xml lists no sheets")
	}
	w.rels = parseRelationships(readZipFile(zr, "xl/_rels/workbook.xml.rels"))
	w.shared = parseSharedStrings(readZipFile(zr, "xl/sharedStrings.xml"))
	return w, nil
}

func (w *rawWorkbook) Sheets() []string {
	out := make([]string, len(w.sheets))
	for i, s := range w.sheets {
		out[i] = s.Name
	}
	return out
}

func (w *rawWorkbook) Close() error { return nil }

func (w *rawWorkbook) Grid(sheet string) ([][]analysis.Cell, error) {
	target := ""
	for i, s := range w.sheets {
		if s.Name != sheet {
			continue
		}
		if rel, ok := w.rels[s.RID]; ok {
			target = normalizeRelPath(rel)
		} else {
			target = fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		}
		break
	}
	if target == "" {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	data := readZipFile(w.zr, target)
	if data == nil {
		return nil, fmt.Errorf("sheet %q: part %s missing", sheet, target)
	}
	rr := newSheetRowReader(data, w.shared)
	var grid [][]analysis.Cell
	for {
		idx, row, ok := rr.Next()
		if !ok {
			break
		}
		for len(grid) < idx {
			grid = append(grid, nil)
		}
		grid = append(grid, row)
	}
	return grid, nil
}

func parseWorkbook(data []byte) []wbSheet {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var sheets []wbSheet
	for {
		tok, err := dec.Token()
		if err != nil {
			return sheets
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "sheet" {
			var s wbSheet
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "name":
					s.Name = a.Value
				case "sheetId":
					s.SheetID, _ = strconv.Atoi(a.Value)
				case "id":
					s.RID = a.Value // in r: namespace
				}
			}
			sheets = append(sheets, s)
		}
	}
}

// parseRelationships returns map[r:id]Target.
func parseRelationships(data []byte) map[string]string {
	out := map[string]string{}
	if len(data) == 0 {
		return out
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			var id, target string
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "Id":
					id = a.Value
				case "Target":
					target = a.Value
				}
			}
			if id != "" && target != "" {
				out[id] = target
			}
		}
	}
}

func readZipFile(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil
			}
			defer rc.Close()
			b, _ := io.ReadAll(rc)
			return b
		}
	}
	return nil
}

func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	var inT bool
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "si" {
				buf.Reset()
			}
			if se.Name.Local == "t" {
				inT = true
			}
		case xml.EndElement:
			if se.Name.Local == "t" {
				inT = false
			}
			if se.Name.Local == "si" {
				out = append(out, buf.String())
				buf.Reset()
			}
		case xml.CharData:
			if inT {
				buf.Write(se)
			}
		}
	}
}

type sheetRowReader struct {
	dec    *xml.Decoder
	shared []string
	next   int
}

func newSheetRowReader(data []byte, shared []string) *sheetRowReader {
	return &sheetRowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

// Next returns the 0-based row index (from the r attribute when present) and its cells.
func (r *sheetRowReader) Next() (int, []analysis.Cell, bool) {
	var cur []analysis.Cell
	idx := -1
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return 0, nil, false
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "row":
				cur = nil
				idx = r.next
				for _, a := range se.Attr {
					if a.Name.Local == "r" {
						if n, err := strconv.Atoi(a.Value); err == nil && n > 0 {
							idx = n - 1
						}
					}
				}
			case "c":
				var rAttr, tAttr string
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "r":
						rAttr = a.Value
					case "t":
						tAttr = a.Value
					}
				}
				col := colIndexFromRef(rAttr)
				if col < 0 {
					col = len(cur)
				}
				for len(cur) <= col {
					cur = append(cur, analysis.Cell{})
				}
				cur[col] = r.readCell(tAttr)
			}
		case xml.EndElement:
			if se.Name.Local == "row" && idx >= 0 {
				r.next = idx + 1
				return idx, cur, true
			}
		}
	}
}

func (r *sheetRowReader) readCell(tAttr string) analysis.Cell {
	var val string
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return analysis.Text(val)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				var sb strings.Builder
				for {
					tk, er := r.dec.Token()
					if er != nil {
						break
					}
					if ed, ok := tk.(xml.EndElement); ok && (ed.Name.Local == "v" || ed.Name.Local == "t") {
						break
					}
					if ch, ok := tk.(xml.CharData); ok {
						sb.Write(ch)
					}
				}
				val += sb.String()
			}
		case xml.EndElement:
			if se.Name.Local == "c" {
				return typedCell(val, tAttr, r.shared)
			}
		}
	}
}

func typedCell(val, tAttr string, shared []string) analysis.Cell {
	switch tAttr {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || i < 0 || i >= len(shared) {
			return analysis.Cell{}
		}
		return analysis.Text(shared[i])
	case "inlineStr", "str", "e":
		return analysis.Text(val)
	case "b":
		return analysis.Bool(strings.TrimSpace(val) == "1")
	}
	if strings.TrimSpace(val) == "" {
		return analysis.Cell{}
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
		return analysis.Number(f)
	}
	return analysis.Text(val)
}

// colIndexFromRef maps refs like "C12" to 2; -1 when the ref has no column letters.
func colIndexFromRef(ref string) int {
	idx := 0
	n := 0
	for n < len(ref) {
		c := ref[n]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
		n++
	}
	return idx - 1
}

// normalizeRelPath converts relationship targets to zip entry names. Targets may carry a
// leading slash ("/xl/worksheets/sheet1.xml") that zip entries never have.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
