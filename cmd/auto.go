package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/bpsloom-cli/internal/crawl"
	"github.com/KaramelBytes/bpsloom-cli/internal/mapping"
	"github.com/KaramelBytes/bpsloom-cli/internal/parser"
	"github.com/KaramelBytes/bpsloom-cli/internal/validate"
	"github.com/spf13/cobra"
)

var autoIndex string

// autoTargets pairs each document with the index chapter it is published under.
var autoTargets = []struct {
	doc     mapping.Document
	chapter string
}{
	{mapping.Unemployment, "III.3"},
	{mapping.Collections, "II"},
}

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Build both series from the latest workbooks listed in the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := autoIndex
		if path == "" {
			path = filepath.Join(cfg.OutDir, validate.IndexFile)
		}
		entries, err := crawl.ReadIndexCSV(path)
		if err != nil {
			return fmt.Errorf("load index (run 'bpsloom index' first): %w", err)
		}
		var errs []error
		for _, t := range autoTargets {
			e, ok := crawl.PickLatest(entries, t.chapter, "xls")
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "⚠ No xls found for chapter %s\n", t.chapter)
				continue
			}
			logger.Info("latest publication", "chapter", t.chapter, "url", e.URL, "published", e.Published)
			_, err := runSeries(cmd.Context(), cmd, seriesJob{doc: t.doc, url: e.URL, sheet: parser.SheetByIndex(0)})
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", t.doc, err))
			}
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(autoCmd)
	autoCmd.Flags().StringVar(&autoIndex, "index", "", "index CSV to read (default: <out_dir>/indicadores_index.csv)")
}
