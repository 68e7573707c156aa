package cmd

import (
	"github.com/KaramelBytes/bpsloom-cli/internal/mapping"
	"github.com/spf13/cobra"
)

var desFlags = seriesFlags{headerRow: -1}

var desempleoCmd = &cobra.Command{
	Use:   "desempleo",
	Short: "Build the unemployment benefit series (chapter III.3)",
	Long: `Downloads (or reads) the III.3 "Subsidio por desempleo" workbook and writes the monthly
series with beneficiaries, new claims by zone and cause, exits, amounts and average payments.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := desFlags.job(mapping.Unemployment)
		if err != nil {
			return err
		}
		_, err = runSeries(cmd.Context(), cmd, j)
		return err
	},
}

func init() {
	rootCmd.AddCommand(desempleoCmd)
	desFlags.register(desempleoCmd)
}
