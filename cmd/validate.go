package cmd

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/bpsloom-cli/internal/validate"
	"github.com/spf13/cobra"
)

var (
	valDir      string
	valRequired []string
	valRecReq   []string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the index and series files in the output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := valDir
		if dir == "" {
			dir = cfg.OutDir
		}
		required := map[string][]string{}
		if cmd.Flags().Changed("require-desempleo") {
			required[validate.UnemploymentCSV] = valRequired
		}
		if cmd.Flags().Changed("require-recaudacion") {
			required[validate.CollectionsCSV] = valRecReq
		}
		results := validate.Run(dir, required)
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "✗ %v\n", r.Err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", r.Path)
		}
		if err := validate.Failed(results); err != nil {
			return errors.New("validation failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&valDir, "dir", "", "directory holding the outputs (default: out_dir)")
	validateCmd.Flags().StringSliceVar(&valRequired, "require-desempleo", nil, "metric columns required in the unemployment series")
	validateCmd.Flags().StringSliceVar(&valRecReq, "require-recaudacion", nil, "metric columns required in the collections series")
}
