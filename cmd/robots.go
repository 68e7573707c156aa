package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var robotsCmd = &cobra.Command{
	Use:   "robots",
	Short: "Show the robots.txt of the observatory hosts",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for _, r := range newClient().CheckRobots(cmd.Context(), cfg.RobotsTargets) {
			fmt.Fprintf(w, "== %s\n", r.URL)
			if r.Err != nil {
				fmt.Fprintf(w, "  error: %v\n", r.Err)
			}
			fmt.Fprintf(w, "  HEAD %d, GET %d", r.HeadStatus, r.GetStatus)
			if r.ContentType != "" {
				fmt.Fprintf(w, ", %s", r.ContentType)
			}
			fmt.Fprintln(w)
			for _, line := range r.Preview {
				fmt.Fprintf(w, "  | %s\n", line)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(robotsCmd)
}
