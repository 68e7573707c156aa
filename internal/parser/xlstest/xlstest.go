// Package xlstest builds small legacy (BIFF8) workbooks in memory for tests.
package xlstest

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf16"
)

// Sheet is one worksheet. Row values may be string, int, float64 or nil.
type Sheet struct {
	Name string
	Rows [][]any
}

// Build returns a complete .xls file: a BIFF8 Workbook stream inside a version 3 compound
// file.
func Build(sheets ...Sheet) []byte {
	return Compound(Stream(sheets...))
}

const (
	sectorSize = 512
	endOfChain = 0xFFFFFFFE
	freeSect   = 0xFFFFFFFF
	fatSect    = 0xFFFFFFFD
	noStream   = 0xFFFFFFFF
	miniCutoff = 0x1000
)

// Compound wraps stream as the "Workbook" entry of a compound file. The stream is padded
// past the mini-stream cutoff so it lives in regular sectors.
func Compound(stream []byte) []byte {
	size := max(len(stream), miniCutoff)
	nsec := (size + sectorSize - 1) / sectorSize
	if nsec > 126 {
		panic("xlstest: workbook stream too large for a single FAT sector")
	}
	data := make([]byte, nsec*sectorSize)
	copy(data, stream)

	var out bytes.Buffer
	hdr := make([]byte, sectorSize)
	copy(hdr, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	le := binary.LittleEndian
	le.PutUint16(hdr[24:], 0x003E)
	le.PutUint16(hdr[26:], 0x0003)
	le.PutUint16(hdr[28:], 0xFFFE)
	le.PutUint16(hdr[30:], 9)
	le.PutUint16(hdr[32:], 6)
	le.PutUint32(hdr[44:], 1) // FAT sectors
	le.PutUint32(hdr[48:], 1) // first directory sector
	le.PutUint32(hdr[56:], miniCutoff)
	le.PutUint32(hdr[60:], endOfChain)
	le.PutUint32(hdr[68:], endOfChain)
	le.PutUint32(hdr[76:], 0) // DIFAT[0]: the FAT lives in sector 0
	for i := 1; i < 109; i++ {
		le.PutUint32(hdr[76+4*i:], freeSect)
	}
	out.Write(hdr)

	fat := make([]byte, sectorSize)
	for i := 0; i < sectorSize/4; i++ {
		le.PutUint32(fat[4*i:], freeSect)
	}
	le.PutUint32(fat[0:], fatSect)
	le.PutUint32(fat[4:], endOfChain)
	for i := 0; i < nsec; i++ {
		next := uint32(2 + i + 1)
		if i == nsec-1 {
			next = endOfChain
		}
		le.PutUint32(fat[4*(2+i):], next)
	}
	out.Write(fat)

	dir := make([]byte, sectorSize)
	dirEntry(dir[0:128], "Root Entry", 5, 1, endOfChain, 0)
	dirEntry(dir[128:256], "Workbook", 2, noStream, 2, uint32(len(data)))
	for _, off := range []int{256, 384} {
		le.PutUint32(dir[off+68:], noStream)
		le.PutUint32(dir[off+72:], noStream)
		le.PutUint32(dir[off+76:], noStream)
	}
	out.Write(dir)
	out.Write(data)
	return out.Bytes()
}

func dirEntry(b []byte, name string, typ byte, child, start, size uint32) {
	le := binary.LittleEndian
	u := utf16.Encode([]rune(name))
	for i, c := range u {
		le.PutUint16(b[2*i:], c)
	}
	le.PutUint16(b[64:], uint16(2*(len(u)+1)))
	b[66] = typ
	b[67] = 1 // black
	le.PutUint32(b[68:], noStream)
	le.PutUint32(b[72:], noStream)
	le.PutUint32(b[76:], child)
	le.PutUint32(b[116:], start)
	le.PutUint32(b[120:], size)
}

// Stream encodes sheets as a BIFF8 Workbook stream: globals (BOF, CODEPAGE, BOUNDSHEET, SST,
// EOF) followed by one substream per sheet.
func Stream(sheets ...Sheet) []byte {
	var sst []string
	index := map[string]int{}
	for _, s := range sheets {
		for _, row := range s.Rows {
			for _, v := range row {
				if str, ok := v.(string); ok {
					if _, seen := index[str]; !seen {
						index[str] = len(sst)
						sst = append(sst, str)
					}
				}
			}
		}
	}

	var g bytes.Buffer
	writeRecord(&g, 0x0809, bof(0x0005))
	writeRecord(&g, 0x0042, u16(1200))
	patch := make([]int, len(sheets))
	for i, s := range sheets {
		patch[i] = g.Len() + 4
		var b bytes.Buffer
		b.Write(u32(0))
		b.WriteByte(0) // visible
		b.WriteByte(0) // worksheet
		name, wide := encodeChars(s.Name)
		b.WriteByte(byte(len([]rune(s.Name))))
		b.WriteByte(flag(wide))
		b.Write(name)
		writeRecord(&g, 0x0085, b.Bytes())
	}
	var sb bytes.Buffer
	sb.Write(u32(uint32(len(sst))))
	sb.Write(u32(uint32(len(sst))))
	for _, s := range sst {
		chars, wide := encodeChars(s)
		sb.Write(u16(uint16(len(utf16.Encode([]rune(s))))))
		sb.WriteByte(flag(wide))
		sb.Write(chars)
	}
	writeRecord(&g, 0x00FC, sb.Bytes())
	writeRecord(&g, 0x000A, nil)

	out := g.Bytes()
	for i, s := range sheets {
		binary.LittleEndian.PutUint32(out[patch[i]:], uint32(len(out)))
		var w bytes.Buffer
		writeRecord(&w, 0x0809, bof(0x0010))
		for r, row := range s.Rows {
			for c, v := range row {
				writeCell(&w, r, c, v, index)
			}
		}
		writeRecord(&w, 0x000A, nil)
		out = append(out, w.Bytes()...)
	}
	return out
}

func writeCell(w *bytes.Buffer, row, col int, v any, sst map[string]int) {
	head := append(u16(uint16(row)), u16(uint16(col))...)
	head = append(head, u16(0)...) // xf
	switch x := v.(type) {
	case string:
		writeRecord(w, 0x00FD, append(head, u32(uint32(sst[x]))...))
	case int:
		if x >= -(1<<29) && x < 1<<29 {
			writeRecord(w, 0x027E, append(head, u32(uint32(int32(x)<<2)|0x02)...))
			return
		}
		writeRecord(w, 0x0203, append(head, f64(float64(x))...))
	case float64:
		writeRecord(w, 0x0203, append(head, f64(x)...))
	}
}

func bof(dt uint16) []byte {
	b := append(u16(0x0600), u16(dt)...)
	b = append(b, u16(0x0DBB)...)
	b = append(b, u16(0x07CC)...)
	b = append(b, u32(0)...)
	return append(b, u32(0x06)...)
}

func writeRecord(w *bytes.Buffer, id uint16, data []byte) {
	w.Write(u16(id))
	w.Write(u16(uint16(len(data))))
	w.Write(data)
}

// encodeChars returns compressed (one byte per char) text when every rune fits in a byte,
// UTF-16LE otherwise.
func encodeChars(s string) ([]byte, bool) {
	rs := []rune(s)
	compressed := make([]byte, 0, len(rs))
	for _, r := range rs {
		if r > 0xFF {
			u := utf16.Encode(rs)
			out := make([]byte, 2*len(u))
			for i, c := range u {
				binary.LittleEndian.PutUint16(out[2*i:], c)
			}
			return out, true
		}
		compressed = append(compressed, byte(r))
	}
	return compressed, false
}

func flag(wide bool) byte {
	if wide {
		return 0x01
	}
	return 0x00
}

func u16(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }
func u32(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }
func f64(v float64) []byte {
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v))
}
