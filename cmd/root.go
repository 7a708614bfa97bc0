package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pyqbank/internal/config"
	"pyqbank/internal/logger"
)

var version = "1.0.0"

// errPartial marks runs that completed but left work behind (failed
// chunks, missing questions, fallback annotations, rejected rows).
var errPartial = errors.New("completed with failures")

var rootCmd = &cobra.Command{
	Use:   "pyqbank",
	Short: "PYQ Bank CLI - previous-year question paper digitisation pipeline",
	Long: `PYQ Bank CLI turns scanned UPSC and UPPSC previous-year question
papers into a structured, annotated question bank.

The pipeline stages are exposed as subcommands (ocr, extract, repair,
merge, separate, annotate, upload) and as a single end-to-end run
(pipeline). Each stage reads and writes JSON question files so a run
can be inspected and resumed between stages.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. Exit codes: 0 success, 1 partial or runtime
// failure, 2 configuration error.
func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, config.ErrConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
