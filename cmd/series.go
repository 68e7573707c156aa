package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/bpsloom-cli/internal/history"
	"github.com/KaramelBytes/bpsloom-cli/internal/mapping"
	"github.com/KaramelBytes/bpsloom-cli/internal/parser"
	"github.com/KaramelBytes/bpsloom-cli/internal/series"
	"github.com/KaramelBytes/bpsloom-cli/internal/validate"
	"github.com/spf13/cobra"
)

// seriesFlags are the flags shared by the series commands.
type seriesFlags struct {
	url       string
	file      string
	sheet     string
	dateCol   string
	headerRow int
	out       string
}

func (f *seriesFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "", "download URL of the publication")
	cmd.Flags().StringVar(&f.file, "file", "", "read a local copy instead of downloading")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "sheet name or 0-based index (default: automatic)")
	cmd.Flags().StringVar(&f.dateCol, "date-col", "", "name of the date column (default: detected)")
	cmd.Flags().IntVar(&f.headerRow, "header-row", -1, "0-based header row hint (default: per document)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output CSV path (default: <out_dir>/<series file>)")
}

// seriesJob is one document to turn into a series file.
type seriesJob struct {
	doc       mapping.Document
	url       string
	file      string
	sheet     parser.SheetSelector
	dateCol   string
	headerRow *int
	out       string
}

func outputName(doc mapping.Document) string {
	if doc == mapping.Collections {
		return validate.CollectionsCSV
	}
	return validate.UnemploymentCSV
}

func (f *seriesFlags) job(doc mapping.Document) (seriesJob, error) {
	if f.url == "" && f.file == "" {
		return seriesJob{}, errors.New("one of --url or --file is required")
	}
	j := seriesJob{
		doc:     doc,
		url:     f.url,
		file:    f.file,
		sheet:   parser.ParseSheetSelector(f.sheet),
		dateCol: f.dateCol,
		out:     f.out,
	}
	if f.headerRow >= 0 {
		j.headerRow = parser.HeaderRow(f.headerRow)
	}
	return j, nil
}

// runSeries fetches (or reads) the document, assembles the series, writes the CSV and records
// the run in the history ledger.
func runSeries(ctx context.Context, cmd *cobra.Command, j seriesJob) (*series.Result, error) {
	started := time.Now()
	source := j.url
	var data []byte
	var err error
	if j.file != "" {
		if source == "" {
			source = j.file
		}
		data, err = os.ReadFile(j.file)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
	} else {
		res, gerr := newClient().Get(ctx, j.url)
		if gerr != nil {
			recordRun(ctx, history.Run{StartedAt: started, Document: j.doc.String(), URL: source, HeaderRow: -1, Error: gerr.Error()})
			return nil, gerr
		}
		data = res.Data
	}

	res, err := series.Assemble(ctx, series.Request{
		Document:   j.doc,
		URL:        source,
		Data:       data,
		Kind:       parser.KindUnknown,
		Sheet:      j.sheet,
		HeaderHint: j.headerRow,
		DateColumn: j.dateCol,
		Reader:     readerOptions(),
		Logger:     logger,
	})
	run := history.Run{StartedAt: started, Document: j.doc.String(), URL: source, HeaderRow: -1}
	if res != nil {
		run.Kind = res.Kind.String()
		run.Strategy = res.Strategy
		run.Sheet = res.Sheet
		if res.Strategy != "" {
			run.HeaderRow = res.HeaderRow
		}
	}
	if err != nil {
		run.Error = err.Error()
		recordRun(ctx, run)
		return res, err
	}

	out := j.out
	if out == "" {
		out = filepath.Join(cfg.OutDir, outputName(j.doc))
	}
	werr := series.WriteFile(out, res.Series)
	run.Rows = len(res.Series.Rows)
	run.Dropped = res.Series.Dropped
	if werr != nil {
		run.Error = werr.Error()
	}
	recordRun(ctx, run)
	if werr != nil {
		return res, fmt.Errorf("write %s: %w", out, werr)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d rows to %s (%s, sheet %q, header row %d, %s vocabulary)\n",
		len(res.Series.Rows), out, res.Strategy, res.Sheet, res.HeaderRow, res.Series.Vocabulary)
	if res.Series.Dropped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  %d row(s) without a date were dropped\n", res.Series.Dropped)
	}
	return res, nil
}

// recordRun stores r in the history ledger. Ledger failures are logged, never returned.
func recordRun(ctx context.Context, r history.Run) {
	if cfg.HistoryDB == "" {
		return
	}
	st, err := history.Open(cfg.HistoryDB)
	if err != nil {
		logger.Warn("history unavailable", "path", cfg.HistoryDB, "error", err)
		return
	}
	defer st.Close()
	if _, err := st.Record(ctx, r); err != nil {
		logger.Warn("history record failed", "error", err)
	}
}
