package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/touchpoints/internal/metrics"
	"github.com/AngelCh415/touchpoints/internal/report"
	"github.com/AngelCh415/touchpoints/internal/source"
)

var analyzeFlags struct {
	document  string
	markdown  bool
	timelines bool
	asJSON    bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Re-run the analysis over a saved touchpoint document",
	Long: `Reads a touchpoint document written by "run" and prints the cohort,
channel, transition, gap and speed reports. No CRM access is needed.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.document, "document", "", "touchpoint document (defaults to the output path)")
	f.BoolVar(&analyzeFlags.markdown, "markdown", false, "render tables as Markdown")
	f.BoolVar(&analyzeFlags.timelines, "timelines", false, "include per-customer timelines")
	f.BoolVar(&analyzeFlags.asJSON, "json", false, "print the analysis as JSON instead of tables")
}

func runAnalyze(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	path := analyzeFlags.document
	if path == "" {
		path = cfg.OutputPath
	}
	journeys, err := source.ReadDocument(path)
	if err != nil {
		return err
	}
	a := metrics.NewAnalyzer(logger).Analyze(journeys)
	if analyzeFlags.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}
	if err := report.Render(os.Stdout, journeys, a, reportOptions(analyzeFlags.markdown, analyzeFlags.timelines)); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
