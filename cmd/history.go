package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/KaramelBytes/bpsloom-cli/internal/history"
	"github.com/KaramelBytes/bpsloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	histLimit int
	histJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent extraction runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer st.Close()
		runs, err := st.Recent(cmd.Context(), histLimit)
		if err != nil {
			return err
		}
		if histJSON {
			b, err := utils.PrettyJSON(runs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tDOCUMENT\tSTATUS\tSTRATEGY\tSHEET\tHEADER\tROWS\tDROPPED\tURL")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n", r.StartedAt.Local().Format("2006-01-02 15:04"),
				r.Document, r.Status, r.Strategy, r.Sheet, r.HeaderRow, r.Rows, r.Dropped, r.URL)
			if r.Error != "" {
				fmt.Fprintf(w, "\t\terror: %s\t\t\t\t\t\t\n", r.Error)
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&histLimit, "limit", "n", 20, "number of runs to show")
	historyCmd.Flags().BoolVar(&histJSON, "json", false, "print the runs as JSON")
}
