package parser

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
)

// BIFF record ids.
const (
	recFormula    = 0x0006
	recEOF        = 0x000A
	recFilePass   = 0x002F
	recContinue   = 0x003C
	recCodePage   = 0x0042
	recBoundSheet = 0x0085
	recMulRK      = 0x00BD
	recRString    = 0x00D6
	recSST        = 0x00FC
	recLabelSST   = 0x00FD
	recNumber     = 0x0203
	recLabel      = 0x0204
	recBoolErr    = 0x0205
	recString     = 0x0207
	recRK         = 0x027E
	recBOF        = 0x0809
)

const (
	biff8Version   = 0x0600
	bofWorksheet   = 0x0010
	sheetTypeWorks = 0x00
)

var errEncrypted = errors.New("xls: workbook is password protected")

var codepages = map[uint16]*charmap.Charmap{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	10000: charmap.Macintosh,
	28591: charmap.ISO8859_1,
}

// biffWorkbook is a legacy (BIFF5/BIFF8) workbook decoded fully into memory.
type biffWorkbook struct {
	names []string
	grids map[string][][]analysis.Cell
}

// openBIFF reads the Workbook stream out of the OLE2 container. When force is non-nil it
// replaces the declared codepage for 8-bit strings.
func openBIFF(ra io.ReaderAt, force *charmap.Charmap) (*biffWorkbook, error) {
	stream, err := workbookStream(ra)
	if err != nil {
		return nil, err
	}
	return parseBIFF(stream, force)
}

func workbookStream(ra io.ReaderAt) ([]byte, error) {
	doc, err := mscfb.New(ra)
	if err != nil {
		return nil, fmt.Errorf("open xls container: %w", err)
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name == "Workbook" || entry.Name == "Book" {
			b, err := io.ReadAll(entry)
			if err != nil {
				return nil, fmt.Errorf("read %s stream: %w", entry.Name, err)
			}
			return b, nil
		}
	}
	return nil, fmt.Errorf("open xls container: no Workbook stream")
}

type record struct {
	id   uint16
	data []byte
	next int // offset of the following record
}

func readRecord(stream []byte, off int) (record, bool) {
	if off+4 > len(stream) {
		return record{}, false
	}
	id := binary.LittleEndian.Uint16(stream[off:])
	n := int(binary.LittleEndian.Uint16(stream[off+2:]))
	end := off + 4 + n
	if end > len(stream) {
		return record{}, false
	}
	return record{id: id, data: stream[off+4 : end], next: end}, true
}

type boundSheet struct {
	name   string
	offset int
	kind   byte
}

type biffParser struct {
	stream  []byte
	version uint16
	enc     *charmap.Charmap
	force   *charmap.Charmap
	sst     []string
}

func parseBIFF(stream []byte, force *charmap.Charmap) (*biffWorkbook, error) {
	p := &biffParser{stream: stream, enc: charmap.Windows1252, force: force}
	sheets, err := p.globals()
	if err != nil {
		return nil, err
	}
	if force != nil {
		p.enc = force
	}
	wb := &biffWorkbook{grids: map[string][][]analysis.Cell{}}
	for _, s := range sheets {
		if s.kind != sheetTypeWorks {
			continue
		}
		grid, err := p.worksheet(s.offset)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", s.name, err)
		}
		wb.names = append(wb.names, s.name)
		wb.grids[s.name] = grid
	}
	if len(wb.names) == 0 {
		return nil, fmt.Errorf("xls: no worksheets")
	}
	return wb, nil
}

func (p *biffParser) globals() ([]boundSheet, error) {
	first, ok := readRecord(p.stream, 0)
	if !ok || first.id != recBOF || len(first.data) < 4 {
		return nil, fmt.Errorf("xls: workbook stream does not start with BOF")
	}
	p.version = binary.LittleEndian.Uint16(first.data)
	var sheets []boundSheet
	off := first.next
	for {
		rec, ok := readRecord(p.stream, off)
		if !ok {
			return nil, fmt.Errorf("xls: truncated globals substream")
		}
		off = rec.next
		switch rec.id {
		case recEOF:
			return sheets, nil
		case recFilePass:
			return nil, errEncrypted
		case recCodePage:
			if len(rec.data) >= 2 {
				if cm, ok := codepages[binary.LittleEndian.Uint16(rec.data)]; ok {
					p.enc = cm
				}
			}
		case recBoundSheet:
			if len(rec.data) < 8 {
				continue
			}
			s := boundSheet{offset: int(binary.LittleEndian.Uint32(rec.data)), kind: rec.data[5]}
			s.name = p.shortString(rec.data[6:])
			sheets = append(sheets, s)
		case recSST:
			segs := [][]byte{rec.data}
			for {
				nxt, ok := readRecord(p.stream, off)
				if !ok || nxt.id != recContinue {
					break
				}
				segs = append(segs, nxt.data)
				off = nxt.next
			}
			p.sst = parseSST(segs, p.force)
		}
	}
}

func (p *biffParser) isBIFF8() bool { return p.version >= biff8Version }

// shortString decodes a BOUNDSHEET name: 8-bit length, then (BIFF8 only) a flags byte.
func (p *biffParser) shortString(b []byte) string {
	if len(b) < 1 {
		return ""
	}
	n := int(b[0])
	if !p.isBIFF8() {
		return p.decode8(clip(b[1:], n))
	}
	if len(b) < 2 {
		return ""
	}
	if b[1]&0x01 != 0 {
		return decode16(clip(b[2:], 2*n))
	}
	return p.decodeCompressed(clip(b[2:], n))
}

// longString decodes a LABEL/STRING payload: 16-bit length, then (BIFF8 only) flags.
func (p *biffParser) longString(b []byte) string {
	if len(b) < 2 {
		return ""
	}
	n := int(binary.LittleEndian.Uint16(b))
	if !p.isBIFF8() {
		return p.decode8(clip(b[2:], n))
	}
	if len(b) < 3 {
		return ""
	}
	flags := b[2]
	rest := b[3:]
	if flags&0x08 != 0 {
		rest = skip(rest, 2)
	}
	if flags&0x04 != 0 {
		rest = skip(rest, 4)
	}
	if flags&0x01 != 0 {
		return decode16(clip(rest, 2*n))
	}
	return p.decodeCompressed(clip(rest, n))
}

func (p *biffParser) decode8(b []byte) string {
	s, err := p.enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// decodeCompressed reads BIFF8 compressed Unicode (the high byte of every code unit is zero),
// unless a forced legacy encoding is in effect.
func (p *biffParser) decodeCompressed(b []byte) string {
	if p.force != nil {
		return p.decode8(b)
	}
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}

func decode16(b []byte) string {
	u := make([]uint16, len(b)/2)
	for i := range u {
		u[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(u))
}

func clip(b []byte, n int) []byte {
	if n > len(b) {
		n = len(b)
	}
	return b[:n]
}

func skip(b []byte, n int) []byte {
	if n > len(b) {
		return nil
	}
	return b[n:]
}

type cellPos struct{ row, col int }

func (p *biffParser) worksheet(off int) ([][]analysis.Cell, error) {
	bof, ok := readRecord(p.stream, off)
	if !ok || bof.id != recBOF {
		return nil, fmt.Errorf("xls: no BOF at offset %d", off)
	}
	cells := map[cellPos]analysis.Cell{}
	maxRow, maxCol := -1, -1
	put := func(row, col int, c analysis.Cell) {
		if c.IsEmpty() {
			return
		}
		cells[cellPos{row, col}] = c
		maxRow = max(maxRow, row)
		maxCol = max(maxCol, col)
	}
	var pending *cellPos
	depth := 0
	off = bof.next
	for {
		rec, ok := readRecord(p.stream, off)
		if !ok {
			break
		}
		off = rec.next
		d := rec.data
		switch rec.id {
		case recBOF:
			depth++
		case recEOF:
			if depth == 0 {
				return buildGrid(cells, maxRow, maxCol), nil
			}
			depth--
		}
		if depth > 0 {
			continue
		}
		if rec.id == recString {
			if pending != nil {
				put(pending.row, pending.col, analysis.Text(p.longString(d)))
				pending = nil
			}
			continue
		}
		if len(d) < 6 {
			continue
		}
		row := int(binary.LittleEndian.Uint16(d))
		col := int(binary.LittleEndian.Uint16(d[2:]))
		switch rec.id {
		case recLabelSST:
			if len(d) >= 10 {
				i := int(binary.LittleEndian.Uint32(d[6:]))
				if i < len(p.sst) {
					put(row, col, analysis.Text(p.sst[i]))
				}
			}
		case recNumber:
			if len(d) >= 14 {
				put(row, col, analysis.Number(math.Float64frombits(binary.LittleEndian.Uint64(d[6:]))))
			}
		case recRK:
			if len(d) >= 10 {
				put(row, col, analysis.Number(rkValue(binary.LittleEndian.Uint32(d[6:]))))
			}
		case recMulRK:
			n := (len(d) - 6) / 6
			for k := 0; k < n; k++ {
				at := 4 + 6*k + 2
				put(row, col+k, analysis.Number(rkValue(binary.LittleEndian.Uint32(d[at:]))))
			}
		case recLabel, recRString:
			put(row, col, analysis.Text(p.longString(d[6:])))
		case recBoolErr:
			if len(d) >= 8 && d[7] == 0 {
				put(row, col, analysis.Bool(d[6] != 0))
			}
		case recFormula:
			if len(d) < 14 {
				continue
			}
			res := d[6:14]
			if res[6] == 0xFF && res[7] == 0xFF {
				switch res[0] {
				case 0:
					pending = &cellPos{row, col}
				case 1:
					put(row, col, analysis.Bool(res[2] != 0))
				}
				continue
			}
			put(row, col, analysis.Number(math.Float64frombits(binary.LittleEndian.Uint64(res))))
		}
	}
	return buildGrid(cells, maxRow, maxCol), nil
}

func buildGrid(cells map[cellPos]analysis.Cell, maxRow, maxCol int) [][]analysis.Cell {
	grid := make([][]analysis.Cell, maxRow+1)
	for pos, c := range cells {
		if grid[pos.row] == nil {
			grid[pos.row] = make([]analysis.Cell, maxCol+1)
		}
		grid[pos.row][pos.col] = c
	}
	return grid
}

// rkValue decodes an RK number: bit 1 selects a 30-bit integer over the high half of an
// IEEE double, bit 0 divides by 100.
func rkValue(rk uint32) float64 {
	var v float64
	if rk&0x02 != 0 {
		v = float64(int32(rk) >> 2)
	} else {
		v = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		v /= 100
	}
	return v
}

// sstReader walks the SST record and its CONTINUE records. A string's characters may be split
// across a boundary, in which case the continuation starts with a fresh flags byte.
type sstReader struct {
	segs  [][]byte
	seg   int
	pos   int
	force *charmap.Charmap // decodes compressed characters when set
}

func (r *sstReader) ensure() bool {
	for r.seg < len(r.segs) && r.pos >= len(r.segs[r.seg]) {
		r.seg++
		r.pos = 0
	}
	return r.seg < len(r.segs)
}

func (r *sstReader) u8() (byte, bool) {
	if !r.ensure() {
		return 0, false
	}
	b := r.segs[r.seg][r.pos]
	r.pos++
	return b, true
}

func (r *sstReader) u16() (uint16, bool) {
	lo, ok1 := r.u8()
	hi, ok2 := r.u8()
	return uint16(lo) | uint16(hi)<<8, ok1 && ok2
}

func (r *sstReader) u32() (uint32, bool) {
	lo, ok1 := r.u16()
	hi, ok2 := r.u16()
	return uint32(lo) | uint32(hi)<<16, ok1 && ok2
}

func (r *sstReader) skip(n int) {
	for n > 0 && r.ensure() {
		avail := len(r.segs[r.seg]) - r.pos
		step := min(avail, n)
		r.pos += step
		n -= step
	}
}

func (r *sstReader) chars(n int, wide bool) (string, bool) {
	var b strings.Builder
	for n > 0 {
		if r.seg < len(r.segs) && r.pos >= len(r.segs[r.seg]) {
			r.seg++
			r.pos = 0
			if r.seg >= len(r.segs) {
				return b.String(), false
			}
			flags := r.segs[r.seg][0]
			r.pos = 1
			wide = flags&0x01 != 0
			continue
		}
		if r.seg >= len(r.segs) {
			return b.String(), false
		}
		seg := r.segs[r.seg]
		if wide {
			if r.pos+1 >= len(seg) {
				r.pos = len(seg)
				continue
			}
			b.WriteString(string(utf16.Decode([]uint16{binary.LittleEndian.Uint16(seg[r.pos:])})))
			r.pos += 2
		} else {
			if r.force != nil {
				b.WriteRune(r.force.DecodeByte(seg[r.pos]))
			} else {
				b.WriteRune(rune(seg[r.pos]))
			}
			r.pos++
		}
		n--
	}
	return b.String(), true
}

// parseSST reads the shared strings. Compressed characters are Latin-1 code units unless
// force names the single-byte encoding to read them with.
func parseSST(segs [][]byte, force *charmap.Charmap) []string {
	r := &sstReader{segs: segs, force: force}
	if _, ok := r.u32(); !ok {
		return nil
	}
	unique, ok := r.u32()
	if !ok {
		return nil
	}
	out := make([]string, 0, min(int(unique), 1<<16))
	for i := 0; i < int(unique); i++ {
		n, ok := r.u16()
		if !ok {
			break
		}
		flags, ok := r.u8()
		if !ok {
			break
		}
		runs, ext := 0, 0
		if flags&0x08 != 0 {
			v, _ := r.u16()
			runs = int(v)
		}
		if flags&0x04 != 0 {
			v, _ := r.u32()
			ext = int(v)
		}
		s, ok := r.chars(int(n), flags&0x01 != 0)
		out = append(out, s)
		if !ok {
			break
		}
		r.skip(4*runs + ext)
	}
	return out
}

func (w *biffWorkbook) Sheets() []string { return append([]string(nil), w.names...) }

func (w *biffWorkbook) Grid(sheet string) ([][]analysis.Cell, error) {
	g, ok := w.grids[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	return g, nil
}

func (w *biffWorkbook) Close() error { return nil }
