package series

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/KaramelBytes/bpsloom-cli/internal/mapping"
	"github.com/KaramelBytes/bpsloom-cli/internal/utils"
)

// DateColumn is the first column of every series file.
const DateColumn = "fecha"

// Header returns the CSV header for s: the date first, then metrics in schema order.
func Header(s *mapping.Series) []string {
	return append([]string{DateColumn}, s.Metrics...)
}

// WriteCSV writes s to w. Null values are written as empty fields.
func WriteCSV(w io.Writer, s *mapping.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(s)); err != nil {
		return err
	}
	rec := make([]string, len(s.Metrics)+1)
	for _, r := range s.Rows {
		rec[0] = r.Date.Format("2006-01-02")
		for i, m := range s.Metrics {
			rec[i+1] = r.Values[m].String()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes s to path atomically. An empty series is refused so a failed run never
// replaces a good file.
func WriteFile(path string, s *mapping.Series) error {
	if s == nil || len(s.Rows) == 0 {
		return errors.New("refusing to write an empty series")
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, s); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
