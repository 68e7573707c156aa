package parser

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Source is an immutable downloaded document plus a rewindable cursor over it. Strategies
// read through Source so that every attempt starts from the beginning of the buffer.
type Source struct {
	URL  string
	Kind ContentKind

	data []byte
	rd   *bytes.Reader
	text *string
}

// NewSource wraps data. An empty kind is resolved with Sniff.
func NewSource(rawURL string, data []byte, kind ContentKind) *Source {
	if kind == KindUnknown {
		kind = Sniff(rawURL, data)
	}
	return &Source{URL: rawURL, Kind: kind, data: data, rd: bytes.NewReader(data)}
}

// Bytes returns the raw buffer. Callers must not modify it.
func (s *Source) Bytes() []byte { return s.data }

// Len returns the buffer size.
func (s *Source) Len() int { return len(s.data) }

// Rewind resets the cursor and returns it.
func (s *Source) Rewind() *bytes.Reader {
	_, _ = s.rd.Seek(0, io.SeekStart)
	return s.rd
}

// ReaderAt exposes the buffer for random access readers.
func (s *Source) ReaderAt() io.ReaderAt { return s.rd }

// Text decodes the buffer as text: a UTF-8 BOM is stripped and non UTF-8 content is read as
// Windows-1252, the encoding the publisher's legacy exports use.
func (s *Source) Text() string {
	if s.text != nil {
		return *s.text
	}
	b := bytes.TrimPrefix(s.data, utf8BOM)
	var out string
	if utf8.Valid(b) {
		out = string(b)
	} else if dec, err := charmap.Windows1252.NewDecoder().Bytes(b); err == nil {
		out = string(dec)
	} else {
		out = string(b)
	}
	s.text = &out
	return out
}
