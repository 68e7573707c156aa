package validate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

const goodIndex = "capitulo,titulo_corto,tipo_archivo,tamano,tamano_bytes_aprox,tamano_resuelto,fecha_publicacion,filename_final,url_descarga,url_pagina\n" +
	"III.3,Seguro de desempleo,xls,952 KB,974848,,05/03/2024,iii_3.xls,https://www.bps.gub.uy/iii_3.xls,https://www.bps.gub.uy/1944/\n"

func TestIndex(t *testing.T) {
	dir := t.TempDir()
	if err := Index(write(t, dir, "ok.csv", goodIndex)); err != nil {
		t.Fatalf("good index: %v", err)
	}
	bad := strings.Replace(goodIndex, "xls,952", "doc,952", 1)
	bad = strings.Replace(bad, "https://www.bps.gub.uy/iii_3.xls", "/iii_3.xls", 1)
	err := Index(write(t, dir, "bad.csv", bad))
	var ve *Error
	if !errors.As(err, &ve) || len(ve.Problems) != 2 {
		t.Fatalf("bad index: err = %v", err)
	}
	err = Index(write(t, dir, "old.csv", "capitulo,tipo_archivo,url_descarga\nII,xls,https://x\n"))
	if err == nil || !strings.Contains(err.Error(), "tamano_resuelto") {
		t.Fatalf("missing columns not reported: %v", err)
	}
}

func TestSeries(t *testing.T) {
	dir := t.TempDir()
	p := write(t, dir, "s.csv", "fecha,altas,altas_montevideo,altas_interior\n2023-08-01,10,6,4\n2023-09-01,,,\n")
	if err := Series(p, DefaultRequired[UnemploymentCSV]); err != nil {
		t.Fatalf("good series: %v", err)
	}
	p = write(t, dir, "bad.csv", "fecha,altas\n2023-08-01,10\nFuente,3\n")
	err := Series(p, DefaultRequired[UnemploymentCSV])
	var ve *Error
	if !errors.As(err, &ve) || len(ve.Problems) != 2 {
		t.Fatalf("bad series: err = %v", err)
	}
	if !strings.Contains(ve.Problems[0], "lines 3") {
		t.Errorf("date problem = %q", ve.Problems[0])
	}
}

func TestRunReportsEveryFile(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, IndexFile, goodIndex)
	write(t, dir, CollectionsCSV, "fecha,recaudacion_privados,recaudacion_publicos,recaudacion_total\n2022-01-01,1,2,3\n")
	res := Run(dir, nil)
	if len(res) != 3 {
		t.Fatalf("results = %d", len(res))
	}
	if res[0].Err != nil || res[2].Err != nil {
		t.Fatalf("unexpected failures: %v / %v", res[0].Err, res[2].Err)
	}
	if !errors.Is(Failed(res), os.ErrNotExist) {
		t.Fatalf("missing desempleo file should fail: %v", Failed(res))
	}
}
