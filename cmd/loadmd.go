package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pyqbank/internal/answerkey"
	"pyqbank/internal/envelope"
	"pyqbank/internal/extract"
	"pyqbank/internal/logger"
	"pyqbank/pkg/models"
)

var loadmdCmd = &cobra.Command{
	Use:   "loadmd [markdown-file]",
	Short: "Load questions from a manually curated markdown dump",
	Long: `Convert a hand-maintained markdown question dump into a JSON
question file. The dump format is one block per question, blocks
separated by a line of three hyphens, each block opening with the
question number on its own line.

Inline options are separated where recognisable and the compiled-in
answer key is applied.`,
	Example: `  pyqbank loadmd markdown_files/uppsc_2024.md --exam UPPSC --year 2024`,
	Args:    cobra.ExactArgs(1),
	RunE:    runLoadMD,
}

func init() {
	rootCmd.AddCommand(loadmdCmd)

	loadmdCmd.Flags().String("exam", "", "Exam identifier: UPSC or UPPSC (required)")
	loadmdCmd.Flags().Int("year", 0, "Exam year (required)")
	loadmdCmd.Flags().StringP("output", "o", "", "Output JSON file (default: <json-dir>/<exam>_<year>_structured_for_frontend.json)")
	_ = loadmdCmd.MarkFlagRequired("exam")
	_ = loadmdCmd.MarkFlagRequired("year")
}

func runLoadMD(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("loadmd-cmd")

	exam, _ := cmd.Flags().GetString("exam")
	year, _ := cmd.Flags().GetInt("year")
	outputPath, _ := cmd.Flags().GetString("output")
	inPath := args[0]

	if err := validateExamYear(exam, year); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = questionFilePath(cfg.JSONDir, exam, year, structuredSuffix)
	}

	file, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("failed to open markdown file: %w", err)
	}
	defer file.Close()

	questions, skipped, err := extract.ParseMarkdownDump(file, exam, year)
	if err != nil {
		return err
	}
	questions, duplicates := extract.Dedupe(questions)
	mismatches := answerkey.Stamp(questions)

	env := models.NewEnvelope(exam, year, questions)
	env.Metadata.Note = "loaded from markdown dump: " + inPath
	if err := envelope.Write(outputPath, env); err != nil {
		return err
	}

	for _, reason := range skipped {
		log.Warn().Str("block", reason).Msg("Skipped markdown block")
	}
	log.Info().
		Str("output_file", outputPath).
		Int("loaded", len(questions)).
		Int("skipped", len(skipped)).
		Int("duplicates", duplicates).
		Int("key_mismatches", mismatches).
		Msg("Markdown load finished")

	if len(skipped) > 0 {
		return fmt.Errorf("%w: %d blocks skipped", errPartial, len(skipped))
	}
	return nil
}
