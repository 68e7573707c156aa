package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/bpsloom-cli/internal/crawl"
	"github.com/KaramelBytes/bpsloom-cli/internal/validate"
	"github.com/spf13/cobra"
)

var (
	idxPages        []string
	idxDelaySec     float64
	idxMaxPages     int
	idxResolveSizes bool
	idxOut          string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Crawl the publication pages and write the download index",
	RunE: func(cmd *cobra.Command, args []string) error {
		pages := cfg.IndexPages
		if len(idxPages) > 0 {
			pages = idxPages
		}
		opt := crawlOptions()
		if cmd.Flags().Changed("delay") {
			opt.Delay = time.Duration(idxDelaySec * float64(time.Second))
		}
		if idxMaxPages > 0 {
			opt.MaxPages = idxMaxPages
		}
		opt.ResolveSizes = idxResolveSizes

		entries, err := crawl.Crawl(cmd.Context(), newClient(), pages, opt)
		if err != nil {
			return err
		}
		out := idxOut
		if out == "" {
			out = filepath.Join(cfg.OutDir, validate.IndexFile)
		}
		if err := crawl.WriteIndexCSV(out, entries); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d entries to %s\n", len(entries), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringSliceVar(&idxPages, "pages", nil, "index pages to crawl (default: configured or built-in list)")
	indexCmd.Flags().Float64Var(&idxDelaySec, "delay", 0, "pause between pages in seconds (overrides config)")
	indexCmd.Flags().IntVar(&idxMaxPages, "max-pages", 0, "maximum number of pages to visit (overrides config)")
	indexCmd.Flags().BoolVar(&idxResolveSizes, "resolve-sizes", false, "probe each file for its exact size")
	indexCmd.Flags().StringVarP(&idxOut, "out", "o", "", "output CSV path (default: <out_dir>/indicadores_index.csv)")
}
