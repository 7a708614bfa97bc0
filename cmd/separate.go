package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pyqbank/internal/envelope"
	"pyqbank/internal/logger"
	"pyqbank/internal/options"
)

var separateCmd = &cobra.Command{
	Use:   "separate [question-file]",
	Short: "Split options embedded in question text into the option map",
	Long: `Run the option separator over every question in the file. Questions
whose options are already well formed are left untouched; questions
with recognisable inline markers get their options split out; the
rest are listed for manual fixing.

Running the command twice is a no-op.`,
	Example: `  pyqbank separate json_files/upsc_2024_merged.json`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSeparate,
}

func init() {
	rootCmd.AddCommand(separateCmd)

	separateCmd.Flags().StringP("output", "o", "", "Output JSON file (default: overwrite the input)")
}

func runSeparate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("separate-cmd")

	outputPath, _ := cmd.Flags().GetString("output")
	inPath := args[0]
	if outputPath == "" {
		outputPath = inPath
	}

	env, err := envelope.Read(inPath)
	if err != nil {
		return err
	}

	report := options.SeparateAll(env.Questions)

	if err := envelope.Write(outputPath, env); err != nil {
		return err
	}

	log.Info().
		Str("output_file", outputPath).
		Int("separated", report.Separated).
		Int("already_ok", report.AlreadyOK).
		Ints("to_fix", report.ToFix).
		Msg("Option separation finished")

	if len(report.ToFix) > 0 {
		return fmt.Errorf("%w: %d questions need manual option fixing: %v",
			errPartial, len(report.ToFix), report.ToFix)
	}
	return nil
}
