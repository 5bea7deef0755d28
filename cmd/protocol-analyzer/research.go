// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/protocol-analyzer/internal/research"
)

var researchCmd = &cobra.Command{
	Use:   "research <drug>",
	Short: "Look up literature, trials and approvals for a drug",
	Long: `Research queries PubMed, ClinicalTrials.gov and openFDA concurrently for one
drug and prints the combined findings. A registry that fails contributes an
empty list.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		condition, _ := cmd.Flags().GetString("condition")
		format, _ := cmd.Flags().GetString("format")

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		env := research.NewAggregator(cfg.Research, logger).Aggregate(cmd.Context(), args[0], condition)
		return writeOutput(cmd.OutOrStdout(), format, env)
	},
}

func init() {
	researchCmd.Flags().String("condition", "", "restrict literature and trials to this condition")
	researchCmd.Flags().String("format", "json", "output format: json or yaml")

	rootCmd.AddCommand(researchCmd)
}
