package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/touchpoints/internal/metrics"
	"github.com/AngelCh415/touchpoints/internal/report"
	"github.com/AngelCh415/touchpoints/internal/store"
)

var runFlags struct {
	noReport bool
	markdown bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch touchpoints from the CRM, save the document and print the report",
	Long: `Loads the local customer dataset, assembles every customer's touchpoint
timeline from the CRM one customer at a time, writes the touchpoint document
and prints the cohort and falloff report.

CRM_API_TOKEN must be set. The CRM is pinged before the batch starts.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.BoolVar(&runFlags.noReport, "no-report", false, "skip the text report")
	f.BoolVar(&runFlags.markdown, "markdown", false, "render report tables as Markdown")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	st := store.NewMemoryStore()
	job := newJob(cfg, st, logger)
	res, err := job.Run(cmd.Context())
	if err != nil {
		return err
	}
	logger.Info("run finished", slog.String("run_id", res.RunID), slog.String("output", cfg.OutputPath))

	if runFlags.noReport {
		return nil
	}
	journeys := st.All()
	a := metrics.NewAnalyzer(logger).Analyze(journeys)
	if err := report.Render(os.Stdout, journeys, a, reportOptions(runFlags.markdown, true)); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func reportOptions(markdown, timelines bool) report.Options {
	opts := report.Options{Timelines: timelines}
	if markdown {
		opts.Mode = report.Markdown
	}
	return opts
}
