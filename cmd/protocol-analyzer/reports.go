// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/protocol-analyzer/internal/report"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List generated reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		gen, err := report.NewGenerator(cfg.Report, logger)
		if err != nil {
			return err
		}
		defer gen.Close()

		list, err := gen.List(cmd.Context(), limit)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if asJSON {
			return writeOutput(w, "json", list)
		}
		if len(list) == 0 {
			fmt.Fprintln(w, "No reports.")
			return nil
		}
		for _, r := range list {
			fmt.Fprintf(w, "%s  %-4s  %2d drug(s)  %s  %s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Format, r.DrugCount, r.Filename, r.MainCondition)
		}
		return nil
	},
}

func init() {
	reportsCmd.Flags().Int("limit", 20, "maximum number of reports to list (0 for all)")
	reportsCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(reportsCmd)
}
