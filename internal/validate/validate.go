// Package validate checks the CSV files produced by the crawler and the series commands.
package validate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
)

// File names written by the CLI.
const (
	IndexFile       = "indicadores_index.csv"
	UnemploymentCSV = "series_desempleo.csv"
	CollectionsCSV  = "series_recaudacion.csv"
)

// IndexColumns must all be present in an index file.
var IndexColumns = []string{
	"capitulo", "titulo_corto", "tipo_archivo", "tamano_resuelto",
	"fecha_publicacion", "filename_final", "url_descarga", "url_pagina",
}

// DefaultRequired lists the metric columns each series file must carry.
var DefaultRequired = map[string][]string{
	UnemploymentCSV: {"altas", "altas_montevideo", "altas_interior"},
	CollectionsCSV:  {"recaudacion_privados", "recaudacion_publicos", "recaudacion_total"},
}

// Error lists every problem found in one file.
type Error struct {
	Path     string
	Problems []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(e.Problems, "; "))
}

func readCSV(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(recs) == 0 {
		return nil, nil, &Error{Path: path, Problems: []string{"file is empty"}}
	}
	return recs[0], recs[1:], nil
}

func missingColumns(header, want []string) []string {
	var out []string
	for _, w := range want {
		if !slices.Contains(header, w) {
			out = append(out, w)
		}
	}
	return out
}

// Index validates an index file: required columns, a pdf or xls type on every row and an
// absolute http(s) download URL.
func Index(path string) error {
	header, rows, err := readCSV(path)
	if err != nil {
		return err
	}
	e := &Error{Path: path}
	if miss := missingColumns(header, IndexColumns); len(miss) > 0 {
		e.Problems = append(e.Problems, "missing columns: "+strings.Join(miss, ", "))
		return e
	}
	typ, link := slices.Index(header, "tipo_archivo"), slices.Index(header, "url_descarga")
	var badType, badURL []string
	for i, r := range rows {
		line := fmt.Sprint(i + 2)
		t := ""
		if typ < len(r) {
			t = strings.ToLower(strings.TrimSpace(r[typ]))
		}
		if t != "pdf" && t != "xls" {
			badType = append(badType, line)
		}
		u := ""
		if link < len(r) {
			u = strings.TrimSpace(r[link])
		}
		if !strings.HasPrefix(u, "http") {
			badURL = append(badURL, line)
		}
	}
	if len(badType) > 0 {
		e.Problems = append(e.Problems, "tipo_archivo not pdf/xls on lines "+strings.Join(badType, ","))
	}
	if len(badURL) > 0 {
		e.Problems = append(e.Problems, "url_descarga not http on lines "+strings.Join(badURL, ","))
	}
	if len(e.Problems) > 0 {
		return e
	}
	return nil
}

// Series validates a series file: a fecha column whose every value is a date, plus every
// required metric column.
func Series(path string, required []string) error {
	header, rows, err := readCSV(path)
	if err != nil {
		return err
	}
	e := &Error{Path: path}
	fecha := slices.Index(header, "fecha")
	if fecha < 0 {
		e.Problems = append(e.Problems, "missing column fecha")
	} else {
		var bad []string
		for i, r := range rows {
			if fecha >= len(r) {
				bad = append(bad, fmt.Sprint(i+2))
				continue
			}
			if _, ok := analysis.ParseTextDate(analysis.Text(r[fecha])); !ok {
				bad = append(bad, fmt.Sprint(i+2))
			}
		}
		if len(bad) > 0 {
			e.Problems = append(e.Problems, "invalid fecha on lines "+strings.Join(bad, ","))
		}
	}
	if miss := missingColumns(header, required); len(miss) > 0 {
		e.Problems = append(e.Problems, "missing metrics: "+strings.Join(miss, ", "))
	}
	if len(e.Problems) > 0 {
		return e
	}
	return nil
}

// Result is the outcome of validating one file.
type Result struct {
	Path string
	Err  error
}

// Run validates the index and both series files in dir. required overrides DefaultRequired
// per file name.
func Run(dir string, required map[string][]string) []Result {
	req := func(name string) []string {
		if r, ok := required[name]; ok {
			return r
		}
		return DefaultRequired[name]
	}
	idx := filepath.Join(dir, IndexFile)
	out := []Result{{Path: idx, Err: Index(idx)}}
	for _, name := range []string{UnemploymentCSV, CollectionsCSV} {
		p := filepath.Join(dir, name)
		out = append(out, Result{Path: p, Err: Series(p, req(name))})
	}
	return out
}

// Failed joins the errors of results, or returns nil when all passed.
func Failed(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}
