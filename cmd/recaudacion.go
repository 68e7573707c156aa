package cmd

import (
	"github.com/KaramelBytes/bpsloom-cli/internal/mapping"
	"github.com/spf13/cobra"
)

var recFlags = seriesFlags{headerRow: -1}

var recaudacionCmd = &cobra.Command{
	Use:   "recaudacion",
	Short: "Build the contribution collections series (chapter II)",
	Long: `Downloads (or reads) the chapter II collections workbook and writes the monthly series of
private, public and total collections.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := recFlags.job(mapping.Collections)
		if err != nil {
			return err
		}
		_, err = runSeries(cmd.Context(), cmd, j)
		return err
	},
}

func init() {
	rootCmd.AddCommand(recaudacionCmd)
	recFlags.register(recaudacionCmd)
}
