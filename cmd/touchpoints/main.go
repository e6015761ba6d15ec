// touchpoints assembles per-customer CRM touchpoint timelines and reports
// where deals convert, stall or churn.
//
// Usage:
//
//	touchpoints run [--input customers.json] [--output touchpoints.json]
//	touchpoints analyze [--document touchpoints.json] [--markdown]
//	touchpoints serve [--document touchpoints.json]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootFlags struct {
	envFile  string
	input    string
	output   string
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:   "touchpoints",
	Short: "CRM touchpoint timelines and funnel analysis",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.envFile, "env-file", ".env", "optional env file read before the environment")
	f.StringVar(&rootFlags.input, "input", "", "local customer dataset, JSON or CSV (overrides INPUT_PATH)")
	f.StringVar(&rootFlags.output, "output", "", "touchpoint document path (overrides OUTPUT_PATH)")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
