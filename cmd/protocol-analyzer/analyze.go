// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/protocol-analyzer/internal/ingest"
	"github.com/pdiddy/protocol-analyzer/internal/report"
	"github.com/pdiddy/protocol-analyzer/internal/research"
	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a protocol document and list its drugs",
	Long: `Analyze extracts the text of a .docx, .pdf, .txt or .md protocol, asks the
configured AI provider for the drugs it prescribes, and prints the result.

With --research each drug is cross-referenced against PubMed,
ClinicalTrials.gov and openFDA. With --report a PDF or XLSX report is written
to report.dir.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().Bool("research", false, "look up research findings for every drug")
	analyzeCmd.Flags().String("report", "", "also write a report: pdf or xlsx")
	analyzeCmd.Flags().String("format", "json", "output format: json or yaml")

	rootCmd.AddCommand(analyzeCmd)
}

// analyzeOutput is what analyze prints.
type analyzeOutput struct {
	Analysis types.AnalysisResult              `json:"analysis" yaml:"analysis"`
	Research map[string]types.ResearchEnvelope `json:"research,omitempty" yaml:"research,omitempty"`
	Report   string                            `json:"report,omitempty" yaml:"report,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	withResearch, _ := cmd.Flags().GetBool("research")
	reportFlag, _ := cmd.Flags().GetString("report")
	format, _ := cmd.Flags().GetString("format")

	var reportFormat report.Format
	if reportFlag != "" {
		f, err := report.ParseFormat(reportFlag)
		if err != nil {
			return err
		}
		reportFormat = f
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	path := args[0]
	if !ingest.Supported(path, cfg.Server.AllowedExtensions) {
		return fmt.Errorf("%w: %s", ingest.ErrUnsupportedFormat, filepath.Base(path))
	}
	text, err := ingest.NewExtractor(cfg.Server.MaxUploadBytes).ExtractFile(path)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	analyzer, _ := newAnalyzer(logger)
	res, err := analyzer.Analyze(ctx, text)
	out := analyzeOutput{Analysis: res}
	if err != nil {
		if werr := writeOutput(cmd.OutOrStdout(), format, out); werr != nil {
			return werr
		}
		return err
	}

	if withResearch {
		fmt.Fprintf(os.Stderr, "Researching %d drug(s)...\n", len(res.Drugs))
		out.Research = research.NewAggregator(cfg.Research, logger).AggregateDrugs(ctx, res.Drugs)
	}

	if reportFormat != "" {
		gen, err := report.NewGenerator(cfg.Report, logger)
		if err != nil {
			return err
		}
		defer gen.Close()

		rep, err := gen.Generate(ctx, report.Document{Analysis: res, Research: out.Research}, reportFormat)
		if err != nil {
			return err
		}
		out.Report = filepath.Join(gen.Dir, rep.Filename)
		fmt.Fprintf(os.Stderr, "Report written to %s\n", out.Report)
	}

	return writeOutput(cmd.OutOrStdout(), format, out)
}
