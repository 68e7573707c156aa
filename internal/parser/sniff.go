package parser

import (
	"bytes"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"
)

// ContentKind classifies a downloaded document independently of its URL extension.
type ContentKind int

const (
	KindUnknown ContentKind = iota
	KindXLSX                // spreadsheet-modern (zip container)
	KindXLS                 // spreadsheet-legacy (OLE2 compound file)
	KindHTML
	KindText
)

func (k ContentKind) String() string {
	switch k {
	case KindXLSX:
		return "xlsx"
	case KindXLS:
		return "xls"
	case KindHTML:
		return "html"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// IsSpreadsheet reports whether k is one of the workbook kinds.
func (k ContentKind) IsSpreadsheet() bool { return k == KindXLSX || k == KindXLS }

var (
	zipMagic = []byte("PK")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// KindFromURL guesses the kind from the URL path extension.
func KindFromURL(rawURL string) ContentKind {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".xlsx", ".xlsm":
		return KindXLSX
	case ".xls":
		return KindXLS
	case ".html", ".htm":
		return KindHTML
	case ".csv", ".tsv", ".txt":
		return KindText
	}
	return KindUnknown
}

// Sniff classifies data. The URL extension only seeds the guess; a decisive byte
// signature always wins.
func Sniff(rawURL string, data []byte) ContentKind {
	guess := KindFromURL(rawURL)
	if k := sniffBytes(data); k != KindUnknown {
		return k
	}
	return guess
}

func sniffBytes(data []byte) ContentKind {
	head := data
	if len(head) > 8 {
		head = head[:8]
	}
	switch {
	case bytes.HasPrefix(head, zipMagic):
		return KindXLSX
	case bytes.HasPrefix(head, oleMagic):
		return KindXLS
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, utf8BOM), " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return KindHTML
	}
	if len(head) == 0 {
		return KindUnknown
	}
	if validUTF8Prefix(head) {
		return KindText
	}
	return KindUnknown
}

// validUTF8Prefix tolerates a multi-byte rune cut at the end of the slice.
func validUTF8Prefix(b []byte) bool {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return true
		}
		r, _ := utf8.DecodeLastRune(b)
		if r != utf8.RuneError {
			return false
		}
		b = b[:len(b)-1]
	}
	return false
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}
