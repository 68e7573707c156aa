package crawl

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/KaramelBytes/bpsloom-cli/internal/utils"
)

// IndexHeader is the column order of the index file.
var IndexHeader = []string{
	"capitulo", "titulo_corto", "tipo_archivo", "tamano", "tamano_bytes_aprox",
	"tamano_resuelto", "fecha_publicacion", "filename_final", "url_descarga", "url_pagina",
}

// ErrEmptyIndex is returned instead of writing an index with no rows.
var ErrEmptyIndex = errors.New("no index entries; refusing to write an empty index")

func sizeField(n int64) string {
	if n <= 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

// WriteIndexCSV writes entries to path atomically.
func WriteIndexCSV(path string, entries []Entry) error {
	if len(entries) == 0 {
		return ErrEmptyIndex
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(IndexHeader)
	for _, e := range entries {
		_ = w.Write([]string{
			e.Chapter, e.Title, e.FileType, e.Size, sizeField(e.SizeBytes),
			sizeField(e.ResolvedSize), e.Published, e.Filename, e.URL, e.Page,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// ReadIndexCSV loads an index file written by WriteIndexCSV. Columns are found by name so
// files with the older eight-column layout still load.
func ReadIndexCSV(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrEmptyIndex
	}
	col := map[string]int{}
	for i, h := range recs[0] {
		col[h] = i
	}
	get := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}
	var out []Entry
	for _, rec := range recs[1:] {
		e := Entry{
			Chapter:   get(rec, "capitulo"),
			Title:     get(rec, "titulo_corto"),
			FileType:  get(rec, "tipo_archivo"),
			Size:      get(rec, "tamano"),
			Published: get(rec, "fecha_publicacion"),
			Filename:  get(rec, "filename_final"),
			URL:       get(rec, "url_descarga"),
			Page:      get(rec, "url_pagina"),
		}
		e.SizeBytes, _ = strconv.ParseInt(get(rec, "tamano_bytes_aprox"), 10, 64)
		e.ResolvedSize, _ = strconv.ParseInt(get(rec, "tamano_resuelto"), 10, 64)
		out = append(out, e)
	}
	return out, nil
}
