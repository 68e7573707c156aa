package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
	"github.com/KaramelBytes/bpsloom-cli/internal/parser"
	"github.com/KaramelBytes/bpsloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	insSheet      string
	insHeaderRow  int
	insSampleRows int
	insOutput     string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file|url>",
	Short: "Extract the best table from a document and print a summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		var data []byte
		if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
			res, err := newClient().Get(cmd.Context(), target)
			if err != nil {
				return err
			}
			data = res.Data
		} else {
			b, err := os.ReadFile(target)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			data = b
		}

		opt := readerOptions()
		opt.Sheet = parser.ParseSheetSelector(insSheet)
		if insHeaderRow >= 0 {
			opt.HeaderHint = parser.HeaderRow(insHeaderRow)
		}
		src := parser.NewSource(target, data, parser.KindUnknown)
		rd := parser.NewReader(src, opt)
		t, err := rd.Read(cmd.Context())
		if err != nil {
			return err
		}

		sopt := analysis.DefaultSummaryOptions()
		if insSampleRows > 0 {
			sopt.SampleRows = insSampleRows
		}
		sopt.UnnamedThreshold = opt.UnnamedThreshold
		rep := analysis.Summarize(target, t, sopt)
		var b strings.Builder
		fmt.Fprintf(&b, "Format: %s\n", src.Kind)
		b.WriteString(rep.Markdown())
		if at := rd.Attempts(); len(at) > 0 {
			b.WriteString("\n[ATTEMPTS]\n")
			for _, a := range at {
				b.WriteString("- ")
				b.WriteString(a.String())
				b.WriteString("\n")
			}
		}

		if insOutput != "" {
			if err := utils.SafeWriteFile(insOutput, []byte(b.String())); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", insOutput)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), b.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&insSheet, "sheet", "", "sheet name or 0-based index (default: automatic)")
	inspectCmd.Flags().IntVar(&insHeaderRow, "header-row", -1, "0-based header row hint")
	inspectCmd.Flags().IntVar(&insSampleRows, "sample-rows", 5, "number of sample rows to include")
	inspectCmd.Flags().StringVarP(&insOutput, "output", "o", "", "write the summary to a file instead of stdout")
}
