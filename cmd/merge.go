package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"pyqbank/internal/answerkey"
	"pyqbank/internal/envelope"
	"pyqbank/internal/logger"
	"pyqbank/internal/merge"
	"pyqbank/pkg/models"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [question-file...]",
	Short: "Union partial question files into one canonical file",
	Long: `Merge two or more partial question files for the same exam and year.

Files are merged in the order given on the command line; when two
files contain the same question number, the earlier file wins and the
collision is logged. The merged file is sorted by question number and
the coverage report names the numbers still missing from the expected
range.`,
	Example: `  pyqbank merge json_files/upsc_2024_structured_for_frontend.json \
      json_files/upsc_2024_repaired.json \
      --exam UPSC --year 2024 -o json_files/upsc_2024_merged.json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().String("exam", "", "Exam identifier: UPSC or UPPSC (required)")
	mergeCmd.Flags().Int("year", 0, "Exam year (required)")
	mergeCmd.Flags().StringP("output", "o", "", "Output JSON file (default: <json-dir>/<exam>_<year>_merged.json)")
	mergeCmd.Flags().Int("from", 1, "First expected question number")
	mergeCmd.Flags().Int("to", 0, "Last expected question number (default: from the answer key)")
	_ = mergeCmd.MarkFlagRequired("exam")
	_ = mergeCmd.MarkFlagRequired("year")
}

func runMerge(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("merge-cmd")

	exam, _ := cmd.Flags().GetString("exam")
	year, _ := cmd.Flags().GetInt("year")
	outputPath, _ := cmd.Flags().GetString("output")
	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")

	if err := validateExamYear(exam, year); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = questionFilePath(cfg.JSONDir, exam, year, "merged")
	}
	if to == 0 {
		to = answerkey.Expected(exam, year)
	}

	var inputs []merge.Input
	for _, path := range args {
		env, err := envelope.Read(path)
		if err != nil {
			return err
		}
		inputs = append(inputs, merge.Input{
			Source:    filepath.Base(path),
			Questions: env.Questions,
		})
	}

	result := merge.Merge(inputs, from, to)
	mismatches := answerkey.Stamp(result.Questions)

	env := models.NewEnvelope(exam, year, result.Questions)
	if err := envelope.Write(outputPath, env); err != nil {
		return err
	}

	log.Info().
		Str("output_file", outputPath).
		Int("merged", len(result.Questions)).
		Int("duplicates", len(result.Duplicates)).
		Ints("missing", result.Missing).
		Ints("extras", result.Extras).
		Int("key_mismatches", mismatches).
		Msg("Merge run finished")

	if len(result.Missing) > 0 {
		return fmt.Errorf("%w: %d questions missing: %v",
			errPartial, len(result.Missing), result.Missing)
	}
	return nil
}
