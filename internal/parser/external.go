package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// externalStrategy converts the document with an office suite (LibreOffice's soffice, for
// instance) and reads the converted xlsx natively. It is absent unless a converter is
// configured and found on PATH.
type externalStrategy struct{}

func (externalStrategy) Name() string { return "external" }

func (externalStrategy) Read(ctx context.Context, src *Source, r *Reader) error {
	conv := strings.TrimSpace(r.opt.ExternalConverter)
	if conv == "" {
		return errSkipped
	}
	bin, err := exec.LookPath(conv)
	if err != nil {
		return fmt.Errorf("converter %q: %w", conv, err)
	}
	dir, err := os.MkdirTemp("", "bpsloom-convert-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "source."+src.Kind.String())
	outDir := filepath.Join(dir, "out")
	if err := os.WriteFile(in, src.Bytes(), 0o600); err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, r.opt.ExternalTimeout)
	defer cancel()
	cmd := exec.CommandContext(cctx, bin, "--headless", "--convert-to", "xlsx", "--outdir", outDir, in)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("convert: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	out, err := os.ReadFile(filepath.Join(outDir, "source.xlsx"))
	if err != nil {
		return fmt.Errorf("convert: no output: %w", err)
	}
	wb, err := OpenWorkbook(NewSource(src.URL, out, KindXLSX))
	if err != nil {
		return err
	}
	defer wb.Close()
	return readWorkbook(ctx, wb, r)
}
